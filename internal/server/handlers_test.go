package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/appforge/internal/config"
	"github.com/jonathan/appforge/internal/llm"
	"github.com/jonathan/appforge/internal/observability"
	"github.com/jonathan/appforge/internal/pipeline"
	"github.com/jonathan/appforge/internal/server/ratelimit"
	"github.com/jonathan/appforge/internal/types"
)

const validExtractionJSON = `{
	"appName": "Task Tracker",
	"entities": ["Task"],
	"roles": ["User"],
	"features": [{"title": "Create tasks", "description": "Users can create and complete tasks"}],
	"technicalRequirements": ["React"],
	"businessRules": []
}`

// stubStore is an in-memory Store with user scoping.
type stubStore struct {
	mu           sync.Mutex
	requirements map[uuid.UUID]types.Requirement
	apps         map[uuid.UUID]types.App
}

func newStubStore() *stubStore {
	return &stubStore{
		requirements: make(map[uuid.UUID]types.Requirement),
		apps:         make(map[uuid.UUID]types.App),
	}
}

func (s *stubStore) CreateRequirement(_ context.Context, req *types.Requirement) (*types.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *req
	stored.ID = uuid.New()
	s.requirements[stored.ID] = stored
	out := stored
	return &out, nil
}

func (s *stubStore) GetRequirement(_ context.Context, id, userID uuid.UUID) (*types.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requirements[id]
	if !ok || req.UserID != userID {
		return nil, nil
	}
	out := req
	return &out, nil
}

func (s *stubStore) ListRequirements(_ context.Context, userID uuid.UUID, _, _ int) ([]types.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var reqs []types.Requirement
	for _, req := range s.requirements {
		if req.UserID == userID {
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

func (s *stubStore) CountRequirements(_ context.Context, userID uuid.UUID) (int, error) {
	reqs, _ := s.ListRequirements(context.Background(), userID, 0, 0)
	return len(reqs), nil
}

func (s *stubStore) UpdateRequirement(_ context.Context, req *types.Requirement) (*types.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.requirements[req.ID]
	if !ok || existing.UserID != req.UserID {
		return nil, nil
	}
	s.requirements[req.ID] = *req
	out := *req
	return &out, nil
}

func (s *stubStore) DeleteRequirement(_ context.Context, id, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requirements[id]
	if !ok || req.UserID != userID {
		return false, nil
	}
	delete(s.requirements, id)
	return true, nil
}

func (s *stubStore) GetApp(_ context.Context, id, userID uuid.UUID) (*types.App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok || app.UserID != userID {
		return nil, nil
	}
	out := app
	return &out, nil
}

func (s *stubStore) ListApps(_ context.Context, userID uuid.UUID) ([]types.App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var apps []types.App
	for _, app := range s.apps {
		if app.UserID == userID {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

func (s *stubStore) ListAppsByRequirement(_ context.Context, requirementID, userID uuid.UUID) ([]types.App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var apps []types.App
	for _, app := range s.apps {
		if app.UserID == userID && app.RequirementID == requirementID {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

func (s *stubStore) DeleteApp(_ context.Context, id, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok || app.UserID != userID {
		return false, nil
	}
	delete(s.apps, id)
	return true, nil
}

func (s *stubStore) putApp(app types.App) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[app.ID] = app
}

// stubPipeline returns scripted cycle outcomes.
type stubPipeline struct {
	app *types.App
	err error
}

func (p *stubPipeline) Generate(_ context.Context, _, _ uuid.UUID) (*types.App, error) {
	return p.app, p.err
}

func (p *stubPipeline) Regenerate(_ context.Context, _, _ uuid.UUID, _ string) (*types.App, error) {
	return p.app, p.err
}

// stubLLM returns a scripted JSON completion for extraction calls.
type stubLLM struct {
	jsonResponse string
	jsonErr      error
}

func (c *stubLLM) GenerateCode(_ context.Context, _ string) (*llm.GenerationResult, error) {
	return &llm.GenerationResult{Code: "const App = () => null;", Model: "stub-model"}, nil
}

func (c *stubLLM) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, int32, error) {
	if c.jsonErr != nil {
		return "", 0, c.jsonErr
	}
	return c.jsonResponse, 17, nil
}

func (c *stubLLM) GetModel(_ llm.ModelTier) string { return "stub-model" }
func (c *stubLLM) Close() error                    { return nil }

func newTestServer(t *testing.T, store Store, pl GenerationPipeline, client llm.Client) (*Server, http.Handler) {
	t.Helper()
	if client == nil {
		client = &stubLLM{jsonResponse: validExtractionJSON}
	}
	s := &Server{
		store:       store,
		pipeline:    pl,
		llmClient:   client,
		rateLimiter: ratelimit.NewLimiter(&ratelimit.Config{Enabled: false}),
		jwtService:  NewJWTService(&config.JWTConfig{Secret: "test-secret-0123456789abcdef0123", ExpirationHours: 24}),
		logger:      observability.NewNop(),
		validate:    validator.New(),
		genSlots:    semaphore.NewWeighted(4),
	}
	return s, s.routes()
}

func authedRequest(t *testing.T, s *Server, userID uuid.UUID, method, target string, body []byte) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	token, err := s.jwtService.GenerateToken(userID)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestHealth(t *testing.T) {
	_, handler := newTestServer(t, newStubStore(), &stubPipeline{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestAuth_MissingToken(t *testing.T) {
	_, handler := newTestServer(t, newStubStore(), &stubPipeline{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/apps", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_BadToken(t *testing.T) {
	_, handler := newTestServer(t, newStubStore(), &stubPipeline{}, nil)

	req := httptest.NewRequest("GET", "/api/apps", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExtractRequirements_Success(t *testing.T) {
	store := newStubStore()
	s, handler := newTestServer(t, store, &stubPipeline{}, nil)
	userID := uuid.New()

	text := strings.Repeat("Build a task tracking application for small teams. ", 4)
	body, _ := json.Marshal(map[string]string{"text": text})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, userID, "POST", "/api/requirements", body))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created types.Requirement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Task Tracker", created.Title)
	assert.Equal(t, types.RequirementDraft, created.Status)
	assert.Equal(t, int32(17), created.Metadata.TokensUsed)
	assert.Equal(t, []string{"Task"}, created.Extraction.Entities)

	stored, err := store.GetRequirement(context.Background(), created.ID, userID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, types.RequirementDraft, stored.Status)
}

func TestExtractRequirements_TooShort(t *testing.T) {
	s, handler := newTestServer(t, newStubStore(), &stubPipeline{}, nil)

	body, _ := json.Marshal(map[string]string{"text": "too short"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, uuid.New(), "POST", "/api/requirements", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 100 characters")
}

func TestExtractRequirements_TooLong(t *testing.T) {
	s, handler := newTestServer(t, newStubStore(), &stubPipeline{}, nil)

	body, _ := json.Marshal(map[string]string{"text": strings.Repeat("x", 1501)})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, uuid.New(), "POST", "/api/requirements", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "too long")
}

func TestExtractRequirements_InvalidShape(t *testing.T) {
	store := newStubStore()
	client := &stubLLM{jsonResponse: `{"appName": "X"}`}
	s, handler := newTestServer(t, store, &stubPipeline{}, client)
	userID := uuid.New()

	text := strings.Repeat("Build a task tracking application for small teams. ", 4)
	body, _ := json.Marshal(map[string]string{"text": text})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, userID, "POST", "/api/requirements", body))

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// The record exists and is marked failed.
	reqs, err := store.ListRequirements(context.Background(), userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, types.RequirementFailed, reqs[0].Status)
}

func TestGenerateApp_Success(t *testing.T) {
	app := &types.App{ID: uuid.New(), Name: "Task Tracker", Status: types.AppCompleted}
	s, handler := newTestServer(t, newStubStore(), &stubPipeline{app: app}, nil)

	body, _ := json.Marshal(map[string]string{"requirement_id": uuid.NewString()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, uuid.New(), "POST", "/api/apps/generate", body))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got types.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, app.ID, got.ID)
	assert.Equal(t, types.AppCompleted, got.Status)
}

func TestGenerateApp_MissingRequirementID(t *testing.T) {
	s, handler := newTestServer(t, newStubStore(), &stubPipeline{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, uuid.New(), "POST", "/api/apps/generate", []byte(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateApp_RequirementNotFound(t *testing.T) {
	s, handler := newTestServer(t, newStubStore(), &stubPipeline{err: pipeline.ErrNotFound}, nil)

	body, _ := json.Marshal(map[string]string{"requirement_id": uuid.NewString()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, uuid.New(), "POST", "/api/apps/generate", body))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateApp_RetriesExhaustedReturnsApp(t *testing.T) {
	app := &types.App{ID: uuid.New(), Status: types.AppFailed, ErrorMessage: "lint error: eval can be harmful at line 1, column 1"}
	pl := &stubPipeline{app: app, err: &pipeline.RetriesExhaustedError{AppID: app.ID, Attempts: 3, Diagnostic: app.ErrorMessage}}
	s, handler := newTestServer(t, newStubStore(), pl, nil)

	body, _ := json.Marshal(map[string]string{"requirement_id": uuid.NewString()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, uuid.New(), "POST", "/api/apps/generate", body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Error string    `json:"error"`
		App   types.App `json:"app"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, app.ID, resp.App.ID)
	assert.Contains(t, resp.Error, "lint error")
}

func TestGenerateApp_ServiceErrorIsBadGateway(t *testing.T) {
	app := &types.App{ID: uuid.New(), Status: types.AppFailed}
	pl := &stubPipeline{app: app, err: &pipeline.GenerationServiceError{AppID: app.ID, Cause: llm.NewGenerationError("upstream down", nil)}}
	s, handler := newTestServer(t, newStubStore(), pl, nil)

	body, _ := json.Marshal(map[string]string{"requirement_id": uuid.NewString()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, uuid.New(), "POST", "/api/apps/generate", body))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRegenerateApp_Success(t *testing.T) {
	app := &types.App{ID: uuid.New(), Name: "Task Tracker - V2", Status: types.AppCompleted}
	s, handler := newTestServer(t, newStubStore(), &stubPipeline{app: app}, nil)

	body, _ := json.Marshal(map[string]string{"app_id": app.ID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, uuid.New(), "POST", "/api/apps/regenerate", body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got types.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Task Tracker - V2", got.Name)
}

func TestGetRequirement_CrossUserIsNotFound(t *testing.T) {
	store := newStubStore()
	s, handler := newTestServer(t, store, &stubPipeline{}, nil)

	owner := uuid.New()
	created, err := store.CreateRequirement(context.Background(), &types.Requirement{
		UserID: owner, Title: "Mine", Status: types.RequirementDraft,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, uuid.New(), "GET", "/api/requirements/"+created.ID.String(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateRequirement_InvalidExtractionRejected(t *testing.T) {
	store := newStubStore()
	s, handler := newTestServer(t, store, &stubPipeline{}, nil)

	userID := uuid.New()
	created, err := store.CreateRequirement(context.Background(), &types.Requirement{
		UserID: userID, Title: "Mine", Prompt: "a task tracker app", Status: types.RequirementDraft,
	})
	require.NoError(t, err)

	body := []byte(`{"extracted_requirements": {"appName": "X"}}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, userID, "PUT", "/api/requirements/"+created.ID.String(), body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid extracted requirements")
}

func TestUpdateRequirement_ShortPromptRejected(t *testing.T) {
	store := newStubStore()
	s, handler := newTestServer(t, store, &stubPipeline{}, nil)

	userID := uuid.New()
	created, err := store.CreateRequirement(context.Background(), &types.Requirement{
		UserID: userID, Title: "Mine", Prompt: "a task tracker app", Status: types.RequirementDraft,
	})
	require.NoError(t, err)

	body := []byte(`{"prompt": "short"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, userID, "PUT", "/api/requirements/"+created.ID.String(), body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 10 characters")
}

func TestDeleteRequirement(t *testing.T) {
	store := newStubStore()
	s, handler := newTestServer(t, store, &stubPipeline{}, nil)

	userID := uuid.New()
	created, err := store.CreateRequirement(context.Background(), &types.Requirement{
		UserID: userID, Title: "Mine", Status: types.RequirementDraft,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, userID, "DELETE", "/api/requirements/"+created.ID.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, userID, "DELETE", "/api/requirements/"+created.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAppsByRequirement(t *testing.T) {
	store := newStubStore()
	s, handler := newTestServer(t, store, &stubPipeline{}, nil)

	userID := uuid.New()
	requirementID := uuid.New()
	store.putApp(types.App{ID: uuid.New(), UserID: userID, RequirementID: requirementID, Name: "A"})
	store.putApp(types.App{ID: uuid.New(), UserID: userID, RequirementID: uuid.New(), Name: "B"})
	store.putApp(types.App{ID: uuid.New(), UserID: uuid.New(), RequirementID: requirementID, Name: "C"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, userID, "GET", "/api/apps/requirement/"+requirementID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Apps  []types.App `json:"apps"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "A", resp.Apps[0].Name)
}

func TestDeleteApp_NotFound(t *testing.T) {
	s, handler := newTestServer(t, newStubStore(), &stubPipeline{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, s, uuid.New(), "DELETE", "/api/apps/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
