// Package pipeline drives the generation-validation-retry cycle: it turns a
// requirements document into a verified app record, feeding verifier
// diagnostics back into regeneration prompts up to a bounded number of
// attempts.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/appforge/internal/llm"
	"github.com/jonathan/appforge/internal/observability"
	"github.com/jonathan/appforge/internal/prompts"
	"github.com/jonathan/appforge/internal/types"
	"github.com/jonathan/appforge/internal/verify"
)

// Pipeline orchestrates generation, verification, and retries for one app at
// a time. All dependencies are injected; the pipeline holds no global state.
type Pipeline struct {
	store      Store
	client     llm.Client
	verifier   verify.Verifier
	logger     *observability.Logger
	maxRetries int
}

// New creates a pipeline. maxRetries bounds automatic regenerations per
// cycle; total generation calls are at most maxRetries+1.
func New(store Store, client llm.Client, verifier verify.Verifier, logger *observability.Logger, maxRetries int) *Pipeline {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = observability.NewNop()
	}
	return &Pipeline{
		store:      store,
		client:     client,
		verifier:   verifier,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Generate runs a full generation cycle for a requirement: create the app
// record, generate code, verify, and retry on verification failures.
//
// The returned app is non-nil whenever the app record was created, even on
// failure, so callers can inspect the failed attempt. The error is nil on
// success, ErrNotFound when the requirement is absent or owned by another
// user, *GenerationServiceError when the AI call failed, or
// *RetriesExhaustedError when verification never passed within the bound.
func (p *Pipeline) Generate(ctx context.Context, requirementID, userID uuid.UUID) (*types.App, error) {
	req, err := p.store.GetRequirement(ctx, requirementID, userID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}

	name := req.Extraction.AppName
	if name == "" {
		name = req.Title
	}
	colorCode := req.ColorCode
	if colorCode == "" {
		colorCode = types.DefaultColorCode
	}

	// Persist the generating record before the first AI call so a crash
	// mid-generation still leaves an inspectable record.
	app, err := p.store.CreateApp(ctx, &types.App{
		UserID:        userID,
		RequirementID: req.ID,
		Name:          name,
		Description:   types.Truncate(req.Prompt, 500),
		ColorCode:     colorCode,
		Status:        types.AppGenerating,
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("generation started",
		"app_id", app.ID, "requirement_id", req.ID, "max_retries", p.maxRetries)

	prompt := prompts.BuildGenerationPrompt(req, "")
	if err := p.generateInto(ctx, app, prompt); err != nil {
		if perr := p.propagateStatus(ctx, req.ID, types.RequirementFailed); perr != nil {
			return app, perr
		}
		return app, err
	}

	return p.finishCycle(ctx, app.ID, userID, req.ID)
}

// Regenerate re-runs generation for an existing app, overwriting it in
// place. A blank warning marks this as a plain "try again" and bumps the
// app's version suffix; a non-blank warning is injected into the prompt and
// leaves the name untouched.
func (p *Pipeline) Regenerate(ctx context.Context, appID, userID uuid.UUID, warning string) (*types.App, error) {
	app, err := p.store.GetApp(ctx, appID, userID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}

	req, err := p.store.GetRequirement(ctx, app.RequirementID, userID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}

	if strings.TrimSpace(warning) == "" {
		app.Name = types.BumpVersion(app.Name)
	}
	app.Status = types.AppGenerating
	app.ErrorMessage = ""
	updated, err := p.store.UpdateApp(ctx, app)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	app = updated

	p.logger.Info("regeneration started",
		"app_id", app.ID, "requirement_id", req.ID, "manual_warning", strings.TrimSpace(warning) != "")

	prompt := prompts.BuildGenerationPrompt(req, warning)
	if err := p.generateInto(ctx, app, prompt); err != nil {
		if perr := p.propagateStatus(ctx, req.ID, types.RequirementFailed); perr != nil {
			return app, perr
		}
		return app, err
	}

	return p.finishCycle(ctx, app.ID, userID, req.ID)
}

// finishCycle hands the freshly generated app to the retry controller and
// returns the final persisted record alongside the cycle's outcome.
func (p *Pipeline) finishCycle(ctx context.Context, appID, userID, requirementID uuid.UUID) (*types.App, error) {
	_, verifyErr := p.verifyAndRetry(ctx, appID, userID, requirementID)

	app, err := p.store.GetApp(ctx, appID, userID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}
	return app, verifyErr
}

// RetryResult is the retry controller's outcome for one cycle. Attempts
// counts verification rounds beyond the first that were needed, matching the
// number of automatic regenerations performed on success.
type RetryResult struct {
	Success      bool
	Attempts     int
	ErrorMessage string
}

// verifyAndRetry is the core state machine: verify the app's current code,
// and on verification failure regenerate with the diagnostic as a warning,
// up to maxRetries regenerations. The app is reloaded at every attempt
// boundary; in-memory state is never trusted across attempts.
func (p *Pipeline) verifyAndRetry(ctx context.Context, appID, userID, requirementID uuid.UUID) (RetryResult, error) {
	var lastError string

	for attempts := 0; attempts <= p.maxRetries; attempts++ {
		app, err := p.store.GetApp(ctx, appID, userID)
		if err != nil {
			return RetryResult{Attempts: attempts}, err
		}
		if app == nil {
			return RetryResult{Attempts: attempts}, ErrNotFound
		}

		// Success is always the first check each iteration.
		result := p.verifier.Verify(app.Code)
		if result.Valid {
			app.Status = types.AppCompleted
			app.ErrorMessage = ""
			updated, err := p.store.UpdateApp(ctx, app)
			if err != nil {
				return RetryResult{Attempts: attempts}, err
			}
			if updated == nil {
				// The app vanished under us; the requirement must not be
				// marked completed for an artifact that no longer exists.
				return RetryResult{Attempts: attempts}, ErrNotFound
			}
			if err := p.propagateStatus(ctx, requirementID, types.RequirementCompleted); err != nil {
				return RetryResult{Attempts: attempts}, err
			}
			p.logger.Info("verification passed", "app_id", appID, "attempts", attempts)
			return RetryResult{Success: true, Attempts: attempts}, nil
		}

		lastError = result.Diagnostic
		p.logger.Warn("verification failed",
			"app_id", appID, "attempt", attempts, "diagnostic", lastError)

		if attempts == p.maxRetries {
			if err := p.failApp(ctx, app, requirementID, lastError); err != nil {
				return RetryResult{Attempts: attempts}, err
			}
			return RetryResult{Attempts: attempts, ErrorMessage: lastError},
				&RetriesExhaustedError{AppID: appID, Attempts: attempts, Diagnostic: lastError}
		}

		if err := p.regenerateOnce(ctx, appID, userID, lastError); err != nil {
			// An AI-service failure is terminal: only verification failures
			// are retried. The app record is already marked failed.
			if perr := p.propagateStatus(ctx, requirementID, types.RequirementFailed); perr != nil {
				return RetryResult{Attempts: attempts}, perr
			}
			return RetryResult{Attempts: attempts, ErrorMessage: err.Error()}, err
		}
	}

	// Unreachable: the loop always returns at the attempts == maxRetries
	// boundary.
	return RetryResult{ErrorMessage: lastError},
		&RetriesExhaustedError{AppID: appID, Attempts: p.maxRetries, Diagnostic: lastError}
}

// regenerateOnce performs exactly one more generation call for an automatic
// retry, overwriting the app's code and metadata in place. The name is never
// changed here.
func (p *Pipeline) regenerateOnce(ctx context.Context, appID, userID uuid.UUID, warning string) error {
	app, err := p.store.GetApp(ctx, appID, userID)
	if err != nil {
		return err
	}
	if app == nil {
		return ErrNotFound
	}

	req, err := p.store.GetRequirement(ctx, app.RequirementID, userID)
	if err != nil {
		return err
	}
	if req == nil {
		return ErrNotFound
	}

	prompt := prompts.BuildGenerationPrompt(req, warning)
	return p.generateInto(ctx, app, prompt)
}

// generateInto calls the generation client and persists the outcome onto
// app. On success the app carries the new code with a provisional completed
// status, pending verification. On an AI-service failure the app is marked
// failed with the service's error message and a *GenerationServiceError is
// returned.
func (p *Pipeline) generateInto(ctx context.Context, app *types.App, prompt string) error {
	start := time.Now()

	result, err := p.client.GenerateCode(ctx, prompt)
	if err != nil {
		app.Status = types.AppFailed
		app.ErrorMessage = err.Error()
		app.Metadata = types.Metadata{
			ProcessingTimeMS: time.Since(start).Milliseconds(),
			TokensUsed:       0,
			GenerationPrompt: prompt,
		}
		if _, uerr := p.store.UpdateApp(ctx, app); uerr != nil {
			return uerr
		}
		return &GenerationServiceError{AppID: app.ID, Cause: err}
	}

	app.Code = result.Code
	app.Status = types.AppCompleted // provisional, pending verification
	app.ErrorMessage = ""
	app.Metadata = types.Metadata{
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		TokensUsed:       result.TokensUsed,
		Model:            result.Model,
		GenerationPrompt: prompt,
	}

	updated, err := p.store.UpdateApp(ctx, app)
	if err != nil {
		return err
	}
	if updated == nil {
		return ErrNotFound
	}
	*app = *updated
	return nil
}

func (p *Pipeline) failApp(ctx context.Context, app *types.App, requirementID uuid.UUID, errorMessage string) error {
	app.Status = types.AppFailed
	app.ErrorMessage = errorMessage
	if _, err := p.store.UpdateApp(ctx, app); err != nil {
		return err
	}
	return p.propagateStatus(ctx, requirementID, types.RequirementFailed)
}

// propagateStatus keeps the requirement's status in lockstep with the app's
// terminal outcome. It must complete before the pipeline call returns;
// failure here is fatal for the cycle.
func (p *Pipeline) propagateStatus(ctx context.Context, requirementID uuid.UUID, status types.RequirementStatus) error {
	if err := p.store.UpdateRequirementStatus(ctx, requirementID, status); err != nil {
		return fmt.Errorf("failed to propagate status %s to requirement %s: %w", status, requirementID, err)
	}
	return nil
}
