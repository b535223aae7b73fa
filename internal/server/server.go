// Package server wires the booksmd services together behind an HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/booksmd/booksmd/internal/analyzer"
	"github.com/booksmd/booksmd/internal/api"
	"github.com/booksmd/booksmd/internal/blob"
	"github.com/booksmd/booksmd/internal/config"
	"github.com/booksmd/booksmd/internal/jobstore"
	"github.com/booksmd/booksmd/internal/pipeline"
	"github.com/booksmd/booksmd/internal/server/endpoints"
	"github.com/booksmd/booksmd/internal/svcctx"
)

// Server is the main booksmd HTTP server. It owns the blob store client, the
// job store, the analysis backend and the pipeline, and enriches every request
// context with them.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// ListenAddr is the address to listen on (default from config manager).
	ListenAddr string
	// ConfigManager provides configuration with hot-reload support.
	ConfigManager *config.Manager
	// Logger is the structured logger to use.
	Logger *slog.Logger
	// Store overrides the blob store (tests). When nil, an HTTP store is
	// built from the storage config.
	Store blob.Store
	// Analyzer overrides the analysis backend (tests). When nil, the
	// configured backend is built.
	Analyzer analyzer.Analyzer
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}

	appCfg := cfg.ConfigManager.Get()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = appCfg.Server.ListenAddr
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	services, err := buildServices(appCfg, cfg.Store, cfg.Analyzer, cfg.ConfigManager, cfg.Logger)
	if err != nil {
		return nil, err
	}
	s.services = services

	// Config changes affecting the analyzer or storage need a restart;
	// running jobs keep the backend they started with.
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		cfg.Logger.Info("configuration changed; restart to apply analyzer or storage changes")
	})

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // large report downloads
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// buildServices constructs the service graph from configuration.
func buildServices(appCfg *config.Config, store blob.Store, backend analyzer.Analyzer, mgr *config.Manager, logger *slog.Logger) (*svcctx.Services, error) {
	if store == nil {
		store = blob.NewHTTPStore(blob.HTTPStoreConfig{
			BaseURL: appCfg.Storage.BaseURL,
			Token:   config.ResolveEnvVars(appCfg.Storage.Token),
		})
	}

	jobs := jobstore.New(jobstore.Config{
		Store:         store,
		Logger:        logger,
		RetryAttempts: appCfg.Pipeline.RetryAttempts,
		RetryDelay:    appCfg.Pipeline.RetryDelay,
	})

	if backend == nil {
		var err error
		backend, err = newAnalyzer(appCfg.Analyzer)
		if err != nil {
			return nil, err
		}
	}

	pipe := pipeline.New(pipeline.Config{
		Jobs:     jobs,
		Analyzer: backend,
		Logger:   logger,
	})

	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		Pipeline: pipe,
		Delay:    appCfg.Pipeline.AnalyzeDelay,
		Logger:   logger,
	})

	return &svcctx.Services{
		Blob:         store,
		Jobs:         jobs,
		Analyzer:     backend,
		Pipeline:     pipe,
		Orchestrator: orch,
		Config:       mgr,
		Logger:       logger,
	}, nil
}

// newAnalyzer builds the analysis backend selected by configuration.
func newAnalyzer(cfg config.AnalyzerConfig) (analyzer.Analyzer, error) {
	var backend analyzer.Analyzer
	switch cfg.Backend {
	case "", analyzer.GradioName:
		backend = analyzer.NewGradioAnalyzer(analyzer.GradioConfig{
			SpaceID: cfg.Space,
		})
	case analyzer.OpenAIName:
		backend = analyzer.NewOpenAIAnalyzer(analyzer.OpenAIConfig{
			APIKey: config.ResolveEnvVars(cfg.APIKey),
			Model:  cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unknown analyzer backend: %s", cfg.Backend)
	}

	if cfg.Structured {
		structured, err := analyzer.NewStructuredAnalyzer(backend)
		if err != nil {
			return nil, fmt.Errorf("failed to build structured analyzer: %w", err)
		}
		backend = structured
	}
	return backend, nil
}

// Start starts the HTTP server.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Services returns the service graph. Useful for tests.
func (s *Server) Services() *svcctx.Services {
	return s.services
}

// Handler returns the fully wrapped HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the service graph is ready.
// Returns 503 Service Unavailable otherwise.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.services == nil || s.services.Jobs == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
