package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jonathan/appforge/internal/llm"
	"github.com/jonathan/appforge/internal/prompts"
	"github.com/jonathan/appforge/internal/schemas"
	"github.com/jonathan/appforge/internal/server/middleware"
	"github.com/jonathan/appforge/internal/types"
)

// ExtractRequirementsRequest is the body for POST /api/requirements.
type ExtractRequirementsRequest struct {
	Text string `json:"text" validate:"required"`
}

// UpdateRequirementRequest is the body for PUT /api/requirements/{id}.
// Absent fields leave the stored value untouched.
type UpdateRequirementRequest struct {
	Title      *string         `json:"title" validate:"omitempty,max=150"`
	Prompt     *string         `json:"prompt" validate:"omitempty,max=1500"`
	Extraction json.RawMessage `json:"extracted_requirements"`
}

// ListRequirementsResponse represents the response for listing requirements
type ListRequirementsResponse struct {
	Requirements []types.Requirement `json:"requirements"`
	Count        int                 `json:"count"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
}

// handleExtractRequirements turns a free-text app description into a
// structured requirements document via a lite-tier AI call. The record is
// created up front with processing status so a failed extraction still
// leaves an inspectable row.
func (s *Server) handleExtractRequirements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ExtractRequirementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "text field is required")
		return
	}

	text := strings.TrimSpace(req.Text)
	if utf8.RuneCountInString(text) < 100 {
		s.errorResponse(w, http.StatusBadRequest,
			"Please provide a valid text field with the requirement description of at least 100 characters.")
		return
	}
	if utf8.RuneCountInString(text) > 1500 {
		s.errorResponse(w, http.StatusBadRequest,
			"Text input is too long. Please limit to 1500 characters.")
		return
	}

	requirement, err := s.store.CreateRequirement(ctx, &types.Requirement{
		UserID: userID,
		Prompt: text,
		Title:  "Processing - " + time.Now().Format("2006-01-02"),
		Status: types.RequirementProcessing,
		Metadata: types.Metadata{
			Model: s.llmClient.GetModel(llm.TierLite),
		},
	})
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to create requirement: "+err.Error())
		return
	}

	prompt := prompts.ExtractionSystemPrompt() + "\n\n" + text
	raw, tokens, err := s.llmClient.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		s.failExtraction(ctx, requirement, start)
		s.logger.Error("extraction failed", "requirement_id", requirement.ID, "error", err)
		s.jsonResponse(w, http.StatusBadGateway, map[string]any{
			"error":          "Failed to extract requirements",
			"details":        err.Error(),
			"requirement_id": requirement.ID,
		})
		return
	}

	if err := schemas.ValidateExtraction(raw); err != nil {
		s.failExtraction(ctx, requirement, start)
		s.logger.Error("extraction schema validation failed",
			"requirement_id", requirement.ID, "error", err)
		s.jsonResponse(w, http.StatusBadGateway, map[string]any{
			"error":          "AI service returned requirements in an unexpected shape",
			"details":        err.Error(),
			"requirement_id": requirement.ID,
		})
		return
	}

	var extraction types.Extraction
	if err := json.Unmarshal([]byte(raw), &extraction); err != nil {
		s.failExtraction(ctx, requirement, start)
		s.jsonResponse(w, http.StatusBadGateway, map[string]any{
			"error":          "Failed to parse requirements from AI response",
			"requirement_id": requirement.ID,
		})
		return
	}

	title := extraction.AppName
	if title == "" {
		title = "Requirements - " + time.Now().Format("2006-01-02")
	}

	requirement.Title = title
	requirement.Extraction = extraction
	requirement.Status = types.RequirementDraft
	requirement.Metadata = types.Metadata{
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		TokensUsed:       tokens,
		Model:            s.llmClient.GetModel(llm.TierLite),
	}

	updated, err := s.store.UpdateRequirement(ctx, requirement)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to save requirement: "+err.Error())
		return
	}
	if updated == nil {
		s.errorResponse(w, http.StatusNotFound, "Requirement not found")
		return
	}

	s.jsonResponse(w, http.StatusCreated, updated)
}

// failExtraction marks the requirement record failed after an AI-side error.
// Best effort: the response already carries the real failure.
func (s *Server) failExtraction(ctx context.Context, requirement *types.Requirement, start time.Time) {
	requirement.Status = types.RequirementFailed
	requirement.Metadata.ProcessingTimeMS = time.Since(start).Milliseconds()
	if _, err := s.store.UpdateRequirement(ctx, requirement); err != nil {
		s.logger.Error("failed to mark requirement failed",
			"requirement_id", requirement.ID, "error", err)
	}
}

// handleListRequirements lists the authenticated user's requirements with
// pagination.
func (s *Server) handleListRequirements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := parseQueryInt(r, "limit", 10, 100)
	offset := parseQueryInt(r, "offset", 0, 0)

	requirements, err := s.store.ListRequirements(ctx, userID, limit, offset)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	total, err := s.store.CountRequirements(ctx, userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	if requirements == nil {
		requirements = []types.Requirement{}
	}
	s.jsonResponse(w, http.StatusOK, ListRequirementsResponse{
		Requirements: requirements,
		Count:        total,
		Limit:        limit,
		Offset:       offset,
	})
}

// handleGetRequirement retrieves one requirement by ID
func (s *Server) handleGetRequirement(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid requirement ID")
		return
	}

	requirement, err := s.store.GetRequirement(r.Context(), id, userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if requirement == nil {
		s.errorResponse(w, http.StatusNotFound, "Requirement not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, requirement)
}

// handleUpdateRequirement updates a requirement's editable fields. A
// provided extraction blob must pass schema validation before it is stored.
func (s *Server) handleUpdateRequirement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid requirement ID")
		return
	}

	var req UpdateRequirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	requirement, err := s.store.GetRequirement(ctx, id, userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if requirement == nil {
		s.errorResponse(w, http.StatusNotFound, "Requirement not found")
		return
	}

	if req.Prompt != nil {
		prompt := strings.TrimSpace(*req.Prompt)
		if utf8.RuneCountInString(prompt) < 10 {
			s.errorResponse(w, http.StatusBadRequest, "Prompt must be at least 10 characters long")
			return
		}
		requirement.Prompt = prompt
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			s.errorResponse(w, http.StatusBadRequest, "Title is required and cannot be empty")
			return
		}
		requirement.Title = title
	}

	if len(req.Extraction) > 0 {
		if err := schemas.ValidateExtraction(string(req.Extraction)); err != nil {
			s.errorResponse(w, HTTPStatus(err), "Invalid extracted requirements: "+err.Error())
			return
		}
		var extraction types.Extraction
		if err := json.Unmarshal(req.Extraction, &extraction); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid extracted requirements")
			return
		}
		requirement.Extraction = extraction
	}

	updated, err := s.store.UpdateRequirement(ctx, requirement)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if updated == nil {
		s.errorResponse(w, http.StatusNotFound, "Requirement not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, updated)
}

// handleDeleteRequirement deletes a requirement and, via cascade, its apps
func (s *Server) handleDeleteRequirement(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid requirement ID")
		return
	}

	deleted, err := s.store.DeleteRequirement(r.Context(), id, userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if !deleted {
		s.errorResponse(w, http.StatusNotFound, "Requirement not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "Requirement deleted successfully"})
}
