package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/appforge/internal/config"
	"github.com/jonathan/appforge/internal/db"
	"github.com/jonathan/appforge/internal/llm"
	"github.com/jonathan/appforge/internal/observability"
	"github.com/jonathan/appforge/internal/pipeline"
	"github.com/jonathan/appforge/internal/server/middleware"
	"github.com/jonathan/appforge/internal/server/ratelimit"
	"github.com/jonathan/appforge/internal/types"
	"github.com/jonathan/appforge/internal/verify"
)

// Store is the persistence surface the handlers need. *db.DB satisfies it.
type Store interface {
	CreateRequirement(ctx context.Context, req *types.Requirement) (*types.Requirement, error)
	GetRequirement(ctx context.Context, id, userID uuid.UUID) (*types.Requirement, error)
	ListRequirements(ctx context.Context, userID uuid.UUID, limit, offset int) ([]types.Requirement, error)
	CountRequirements(ctx context.Context, userID uuid.UUID) (int, error)
	UpdateRequirement(ctx context.Context, req *types.Requirement) (*types.Requirement, error)
	DeleteRequirement(ctx context.Context, id, userID uuid.UUID) (bool, error)
	GetApp(ctx context.Context, id, userID uuid.UUID) (*types.App, error)
	ListApps(ctx context.Context, userID uuid.UUID) ([]types.App, error)
	ListAppsByRequirement(ctx context.Context, requirementID, userID uuid.UUID) ([]types.App, error)
	DeleteApp(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

// GenerationPipeline runs full generation cycles. *pipeline.Pipeline
// satisfies it.
type GenerationPipeline interface {
	Generate(ctx context.Context, requirementID, userID uuid.UUID) (*types.App, error)
	Regenerate(ctx context.Context, appID, userID uuid.UUID, warning string) (*types.App, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	store       Store
	pipeline    GenerationPipeline
	llmClient   llm.Client
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	logger      *observability.Logger
	validate    *validator.Validate
	genSlots    *semaphore.Weighted
}

// New creates a new server instance wired to a live database and AI client.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Server, error) {
	if logger == nil {
		logger = observability.NewNop()
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	llmClient, err := llm.NewClient(ctx, llm.DefaultGeminiConfig(), cfg.GeminiAPIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	s := &Server{
		db:          database,
		store:       database,
		llmClient:   llmClient,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		jwtService:  NewJWTService(jwtConfig),
		logger:      logger,
		validate:    validator.New(),
		genSlots:    semaphore.NewWeighted(int64(cfg.MaxConcurrentGenerations)),
	}
	s.pipeline = pipeline.New(database, llmClient, verify.NewStaticVerifier(), logger, cfg.MaxRetries)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // generation cycles can run for minutes
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes builds the full handler chain. Everything under /api requires a
// valid JWT; /health does not.
func (s *Server) routes() http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("POST /api/requirements", s.handleExtractRequirements)
	api.HandleFunc("GET /api/requirements", s.handleListRequirements)
	api.HandleFunc("GET /api/requirements/{id}", s.handleGetRequirement)
	api.HandleFunc("PUT /api/requirements/{id}", s.handleUpdateRequirement)
	api.HandleFunc("DELETE /api/requirements/{id}", s.handleDeleteRequirement)

	api.HandleFunc("POST /api/apps/generate", s.handleGenerateApp)
	api.HandleFunc("POST /api/apps/regenerate", s.handleRegenerateApp)
	api.HandleFunc("GET /api/apps", s.handleListApps)
	api.HandleFunc("GET /api/apps/requirement/{requirementId}", s.handleListAppsByRequirement)
	api.HandleFunc("GET /api/apps/{id}", s.handleGetApp)
	api.HandleFunc("DELETE /api/apps/{id}", s.handleDeleteApp)

	authMiddleware := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())

	mux := http.NewServeMux()
	mux.Handle("/api/", authMiddleware(api))
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("server error", "error", err)
		}
	}()

	<-stop
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.llmClient != nil {
		if err := s.llmClient.Close(); err != nil {
			s.logger.Warn("failed to close AI client", "error", err)
		}
	}
	if s.db != nil {
		s.db.Close()
	}
	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		if !allowed {
			s.setRateLimitHeaders(w, info)
			s.rateLimitResponse(w, info)
			return
		}

		s.setRateLimitHeaders(w, info)
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method, "path", r.URL.Path,
			"remote", r.RemoteAddr, "duration", time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// For MVP, this uses the IP address from RemoteAddr.
// In the future, this could use X-Forwarded-For header (only from trusted proxies).
func (s *Server) extractClientID(r *http.Request) string {
	// Get IP from RemoteAddr (format: "IP:port")
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If parsing fails, use the whole RemoteAddr
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	s.logger.Warn("rate limit exceeded",
		"limit", info.Limit, "remaining", info.Remaining,
		"reset_at", info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// parseQueryInt parses an integer query parameter with a default and an
// optional maximum (maxValue <= 0 means unbounded).
func parseQueryInt(r *http.Request, name string, defaultValue, maxValue int) int {
	valueStr := r.URL.Query().Get(name)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 0 {
		return defaultValue
	}
	if maxValue > 0 && value > maxValue {
		return maxValue
	}
	return value
}
