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

	"mercator-hq/themis/pkg/config"
	"mercator-hq/themis/pkg/guardrails/storage"
	"mercator-hq/themis/pkg/pipeline"
	"mercator-hq/themis/pkg/telemetry/metrics"
)

// Server is the governance service's HTTP server.
type Server struct {
	config    *config.ServerConfig
	pipeline  *pipeline.Pipeline
	collector *metrics.Collector
	store     *storage.Store
	logger    *slog.Logger

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server over a fully constructed pipeline. store may
// be nil, in which case policy mutations are not persisted across restarts.
func NewServer(cfg *config.ServerConfig, p *pipeline.Pipeline, collector *metrics.Collector, store *storage.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:       cfg,
		pipeline:     p,
		collector:    collector,
		store:        store,
		logger:       logger.With("component", "server"),
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown. Shutdown is
// triggered by context cancellation, SIGINT/SIGTERM, or Shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting governance server", "address", s.config.ListenAddress)
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

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("governance server stopped")
	})

	return shutdownErr
}

// Handler returns the configured HTTP handler with the full middleware
// chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/completions", s.handleCompletion)

	mux.HandleFunc("GET /v1/policies", s.handleListPolicies)
	mux.HandleFunc("POST /v1/policies", s.handleAddPolicy)
	mux.HandleFunc("DELETE /v1/policies/{id}", s.handleRemovePolicy)
	mux.HandleFunc("POST /v1/policies/{id}/toggle", s.handleTogglePolicy)

	mux.HandleFunc("GET /v1/thresholds", s.handleGetThresholds)
	mux.HandleFunc("PUT /v1/thresholds", s.handleSetThresholds)

	mux.HandleFunc("POST /v1/feedback", s.handleRecordFeedback)
	mux.HandleFunc("POST /v1/feedback/drift-check", s.handleDriftCheck)
	mux.HandleFunc("POST /v1/feedback/retune", s.handleRetune)
	mux.HandleFunc("GET /v1/feedback/summary", s.handleFeedbackSummary)

	mux.HandleFunc("GET /v1/risk/trends", s.handleRiskTrends)
	mux.HandleFunc("GET /v1/guardrails/stats", s.handleGuardrailsStats)
	mux.HandleFunc("GET /v1/costs/summary", s.handleCostSummary)
	mux.HandleFunc("GET /v1/audit/records", s.handleAuditQuery)

	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.Handle("GET /metrics", s.collector.Handler())

	// Request id is assigned outermost so the logging and recovery layers
	// see it in the request context.
	var handler http.Handler = mux
	handler = recoveryMiddleware(handler)
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return handler
}

// IsRunning reports whether the server is accepting requests.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
