package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ganymede-hq/ganymede/pkg/config"
	"ganymede-hq/ganymede/pkg/models"
	"ganymede-hq/ganymede/pkg/proxy/handlers"
	"ganymede-hq/ganymede/pkg/proxy/middleware"
	"ganymede-hq/ganymede/pkg/translator"
)

// maxRequestBody caps chat-completion request bodies. Large enough for
// long histories with inline images.
const maxRequestBody = 32 << 20

// Deps are the wired components the server serves.
type Deps struct {
	// Translator drives chat completions.
	Translator *translator.Translator

	// Catalog serves /v1/models.
	Catalog *models.Catalog

	// SessionCount reports cached sessions for the health endpoint.
	SessionCount func() int

	// Metrics is the prometheus scrape handler (nil = not mounted).
	Metrics http.Handler

	// RequestObserver receives per-request metrics (nil = no metrics).
	RequestObserver func(model, outcome string, elapsed time.Duration)

	// Logger receives server lifecycle and request logs.
	Logger *slog.Logger
}

// Server is the caller-facing HTTP server.
type Server struct {
	cfg        config.ServerConfig
	metricsCfg config.MetricsConfig
	deps       Deps
	logger     *slog.Logger

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once

	mu        sync.RWMutex
	isRunning bool
}

// New creates a Server. The deps must be fully wired before Start.
func New(cfg config.ServerConfig, metricsCfg config.MetricsConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:          cfg,
		metricsCfg:   metricsCfg,
		deps:         deps,
		logger:       logger,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown: context
// cancellation, SIGTERM/SIGINT, a Stop call, or a listener error.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:        s.cfg.ListenAddress,
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.ReadTimeout,
		// WriteTimeout stays at the configured value; zero keeps SSE
		// streams alive indefinitely.
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting gateway server", "address", s.cfg.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Stop requests shutdown from another goroutine.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var shutdownErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.logger.Info("gateway server stopped")
	return shutdownErr
}

// IsRunning reports whether the server is accepting traffic.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler builds the routed handler with the full middleware chain.
// Exposed for tests.
func (s *Server) Handler() http.Handler {
	chatHandler := handlers.NewChatHandler(s.deps.Translator, s.logger)
	if s.deps.RequestObserver != nil {
		chatHandler.SetObserver(s.deps.RequestObserver)
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/chat/completions", chatHandler)
	mux.Handle("/v1/models", handlers.NewModelsHandler(s.deps.Catalog))
	mux.Handle("/healthz", handlers.NewHealthHandler(s.deps.SessionCount))

	if s.deps.Metrics != nil && s.metricsCfg.Enabled {
		path := s.metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, s.deps.Metrics)
	}

	return middleware.Chain(mux,
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
		middleware.CORS,
		middleware.BodyLimit(maxRequestBody),
	)
}
