package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cosai-tools/risk-navigator/internal/domain/riskmap"
	"github.com/cosai-tools/risk-navigator/internal/infrastructure/cache"
	"github.com/cosai-tools/risk-navigator/internal/infrastructure/config"
	"github.com/cosai-tools/risk-navigator/internal/infrastructure/database"
	"github.com/cosai-tools/risk-navigator/internal/metrics"
	assessmentsvc "github.com/cosai-tools/risk-navigator/internal/service/assessment"
)

// Server is the API server: HTTP listener, middleware chain and the wired
// dependencies behind the handler.
type Server struct {
	config     *config.Config
	httpServer *http.Server
	handler    *Handler
	logger     *slog.Logger
	db         *pgxpool.Pool
	redis      *redis.Client
	sessions   cache.SessionStore
}

// NewServer wires the API server from configuration: the risk map catalogs,
// the session store (Redis when configured, in-memory otherwise) and the
// optional Postgres submission repositories.
func NewServer(ctx context.Context, cfg *config.Config, store *riskmap.Store,
	logger *slog.Logger, zapLogger *zap.Logger) (*Server, error) {

	svc := assessmentsvc.NewService(store, zapLogger)
	metrics.SetCatalogSizes(len(store.Risks()), len(store.Controls()),
		len(store.Personas()), len(store.Questions()))

	health := newHealthService()

	// Session backend.
	var (
		sessions    cache.SessionStore
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(&cfg.Redis, zapLogger)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		redisClient = client
		sessions = cache.NewRedisSessionStore(client, cfg.Session.TTL, zapLogger)
		health.register("redis", redisChecker(client))
	} else {
		sessions = cache.NewMemorySessionStore(cfg.Session.TTL, zapLogger)
	}

	// Optional persistence.
	var (
		pool      *pgxpool.Pool
		inventory *database.InventoryRepository
		records   *database.AssessmentRepository
	)
	if cfg.Database.Enabled() {
		p, err := database.Connect(ctx, &cfg.Database, zapLogger)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		pool = p
		inventory = database.NewInventoryRepository(pool)
		records = database.NewAssessmentRepository(pool)
		health.register("database", databaseChecker(pool))
	} else {
		logger.Info("persistence disabled, submission endpoints will return 503")
	}

	handler := newWiredHandler(svc, sessions, inventory, records, logger)

	server := &Server{
		config:   cfg,
		handler:  handler,
		logger:   logger,
		db:       pool,
		redis:    redisClient,
		sessions: sessions,
	}

	mux := server.setupRoutes(health)

	middlewares := []Middleware{
		requestIDMiddleware,
		loggingMiddleware,
		metricsMiddleware,
		recoveryMiddleware,
		securityHeadersMiddleware,
		corsMiddleware(cfg.Security.CORS),
		rateLimitMiddleware(cfg.Security.RateLimit),
		timeoutMiddleware(cfg.Server.WriteTimeout),
	}

	var h http.Handler = mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	server.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        h,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return server, nil
}

// newWiredHandler keeps the nil-interface trap out of NewServer: a nil
// *database repository must become a nil interface, not a non-nil interface
// holding a nil pointer.
func newWiredHandler(svc *assessmentsvc.Service, sessions cache.SessionStore,
	inventory *database.InventoryRepository, records *database.AssessmentRepository,
	logger *slog.Logger) *Handler {
	h := &Handler{
		svc:      svc,
		sessions: sessions,
		logger:   logger,
	}
	if inventory != nil {
		h.inventory = inventory
	}
	if records != nil {
		h.records = records
	}
	return h
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes(health *healthService) *http.ServeMux {
	mux := http.NewServeMux()

	// Health surface
	mux.HandleFunc("GET /health", health.readinessHandler)
	mux.HandleFunc("GET /healthz", health.livenessHandler)
	mux.HandleFunc("GET /ready", health.readinessHandler)

	// Prometheus scrape endpoint
	mux.Handle("GET /metrics", metrics.Handler())

	// Catalog routes
	mux.HandleFunc("GET /api/v1/personas", s.handler.handleListPersonas)
	mux.HandleFunc("GET /api/v1/risks", s.handler.handleListRisks)
	mux.HandleFunc("GET /api/v1/risks/{id}", s.handler.handleGetRisk)
	mux.HandleFunc("GET /api/v1/controls", s.handler.handleListControls)
	mux.HandleFunc("GET /api/v1/controls/{id}", s.handler.handleGetControl)
	mux.HandleFunc("GET /api/v1/questions", s.handler.handleListQuestions)
	mux.HandleFunc("GET /api/v1/questions/{id}", s.handler.handleGetQuestion)

	// Stateless evaluation
	mux.HandleFunc("POST /api/v1/evaluate", s.handler.handleEvaluate)

	// Session lifecycle
	mux.HandleFunc("POST /api/v1/sessions", s.handler.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handler.handleGetSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handler.handleDeleteSession)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/personas", s.handler.handleSelectPersonas)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/answers", s.handler.handleSubmitAnswers)

	// Page views
	mux.HandleFunc("GET /api/v1/sessions/{id}/assessment", s.handler.handleAssessmentPage)
	mux.HandleFunc("GET /api/v1/sessions/{id}/control-mapping", s.handler.handleControlMappingPage)
	mux.HandleFunc("GET /api/v1/sessions/{id}/risk-analysis/{riskID}", s.handler.handleRiskAnalysisPage)
	mux.HandleFunc("GET /api/v1/sessions/{id}/export", s.handler.handleExportPage)

	// Submissions
	mux.HandleFunc("POST /api/v1/submissions/inventory", s.handler.handleSaveInventory)
	mux.HandleFunc("GET /api/v1/submissions/inventory/{id}", s.handler.handleGetInventory)
	mux.HandleFunc("POST /api/v1/sessions/{id}/submissions/assessments", s.handler.handleSaveAssessment)
	mux.HandleFunc("GET /api/v1/submissions/assessments/{id}", s.handler.handleGetAssessment)

	return mux
}

// Start runs the server until it fails or receives SIGINT/SIGTERM.
func (s *Server) Start() error {
	s.logger.Info("starting API server",
		"address", s.httpServer.Addr,
		"environment", s.config.Environment,
		"persistence", s.db != nil,
		"session_backend", sessionBackendName(s.redis),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown()
	}
}

// Shutdown drains in-flight requests and closes backing connections.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", "error", err)
		return err
	}

	// The session store owns the redis client and closes it.
	if err := s.sessions.Close(); err != nil {
		s.logger.Error("failed to close session store", "error", err)
	}
	if s.db != nil {
		s.db.Close()
	}

	s.logger.Info("server shutdown complete")
	return nil
}

func sessionBackendName(client *redis.Client) string {
	if client != nil {
		return "redis"
	}
	return "memory"
}
