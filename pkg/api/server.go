package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/dochive/dochive/internal/logger"
	"github.com/dochive/dochive/pkg/engine"
	"github.com/dochive/dochive/pkg/metrics"
)

// Server is the HTTP server fronting the storage engine. It is created
// stopped; Start blocks until the context is cancelled.
type Server struct {
	server       *http.Server
	engine       *engine.Engine
	config       Config
	shutdownOnce sync.Once
}

// NewServer creates the API server. Defaults are applied here so the
// server also works when constructed directly in tests.
func NewServer(config Config, e *engine.Engine, m *metrics.Metrics) *Server {
	config.ApplyDefaults()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           NewRouter(e, m),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		IdleTimeout:       config.IdleTimeout,
	}

	return &Server{
		server: server,
		engine: e,
		config: config,
	}
}

// SeedDefaultBuckets ensures every configured default bucket exists.
func (s *Server) SeedDefaultBuckets(ctx context.Context) error {
	for _, name := range s.config.DefaultBuckets {
		if _, err := s.engine.EnsureBucket(ctx, name); err != nil {
			return fmt.Errorf("seed default bucket %q: %w", name, err)
		}
		logger.Info("default bucket ready", logger.Bucket(name))
	}
	return nil
}

// Start seeds default buckets, then serves until the context is cancelled
// or the listener fails. Cancellation triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	if err := s.SeedDefaultBuckets(ctx); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.server.Shutdown(ctx)
		if err != nil {
			logger.Error("API server shutdown failed", logger.Err(err))
		} else {
			logger.Info("API server stopped")
		}
	})
	return err
}
