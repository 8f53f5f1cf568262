package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/appforge/internal/pipeline"
	"github.com/jonathan/appforge/internal/server/middleware"
	"github.com/jonathan/appforge/internal/types"
)

// GenerateAppRequest is the body for POST /api/apps/generate.
type GenerateAppRequest struct {
	RequirementID string `json:"requirement_id" validate:"required,uuid"`
}

// RegenerateAppRequest is the body for POST /api/apps/regenerate. A blank
// warning message means "try again from scratch" and bumps the app's
// version suffix; a non-blank one is fed back into the prompt.
type RegenerateAppRequest struct {
	AppID          string `json:"app_id" validate:"required,uuid"`
	WarningMessage string `json:"warning_message"`
}

// handleGenerateApp runs a full generation cycle for a requirement.
func (s *Server) handleGenerateApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req GenerateAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Requirement ID is required")
		return
	}
	requirementID, err := uuid.Parse(req.RequirementID)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid requirement ID")
		return
	}

	if !s.genSlots.TryAcquire(1) {
		w.Header().Set("Retry-After", "30")
		s.errorResponse(w, http.StatusServiceUnavailable,
			"Generation capacity exhausted. Please try again shortly.")
		return
	}
	defer s.genSlots.Release(1)

	app, err := s.pipeline.Generate(ctx, requirementID, userID)
	s.cycleResponse(w, app, err, http.StatusCreated)
}

// handleRegenerateApp re-runs generation for an existing app in place.
func (s *Server) handleRegenerateApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req RegenerateAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "App ID is required")
		return
	}
	appID, err := uuid.Parse(req.AppID)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid app ID")
		return
	}

	if !s.genSlots.TryAcquire(1) {
		w.Header().Set("Retry-After", "30")
		s.errorResponse(w, http.StatusServiceUnavailable,
			"Generation capacity exhausted. Please try again shortly.")
		return
	}
	defer s.genSlots.Release(1)

	app, err := s.pipeline.Regenerate(ctx, appID, userID, req.WarningMessage)
	s.cycleResponse(w, app, err, http.StatusOK)
}

// cycleResponse writes the outcome of a generation cycle. A failed cycle
// that still produced an app record returns that record alongside the error
// so the caller can inspect the failed attempt.
func (s *Server) cycleResponse(w http.ResponseWriter, app *types.App, err error, successStatus int) {
	if err == nil {
		s.jsonResponse(w, successStatus, app)
		return
	}

	if app == nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "Not found")
			return
		}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, HTTPStatus(err), map[string]any{
		"error": err.Error(),
		"app":   app,
	})
}

// handleListApps lists the authenticated user's apps
func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	apps, err := s.store.ListApps(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if apps == nil {
		apps = []types.App{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"apps":  apps,
		"count": len(apps),
	})
}

// handleGetApp retrieves one app by ID
func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid app ID")
		return
	}

	app, err := s.store.GetApp(r.Context(), id, userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if app == nil {
		s.errorResponse(w, http.StatusNotFound, "App not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, app)
}

// handleDeleteApp deletes an app
func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid app ID")
		return
	}

	deleted, err := s.store.DeleteApp(r.Context(), id, userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if !deleted {
		s.errorResponse(w, http.StatusNotFound, "App not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "App deleted successfully"})
}

// handleListAppsByRequirement lists all apps generated for one requirement
func (s *Server) handleListAppsByRequirement(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	requirementID, err := uuid.Parse(r.PathValue("requirementId"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid requirement ID")
		return
	}

	apps, err := s.store.ListAppsByRequirement(r.Context(), requirementID, userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if apps == nil {
		apps = []types.App{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"apps":  apps,
		"count": len(apps),
	})
}
