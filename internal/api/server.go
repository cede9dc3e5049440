package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/seriarr/seriarr/internal/api/handlers"
	"github.com/seriarr/seriarr/internal/api/middleware"
	"github.com/seriarr/seriarr/internal/config"
	"github.com/seriarr/seriarr/internal/controllers"
	"github.com/seriarr/seriarr/internal/models"
	"github.com/sirupsen/logrus"
)

// Server exposes the daemon's health and status endpoints.
type Server struct {
	server        *http.Server
	reconcileCtrl *controllers.ReconcileController
	db            *models.Database
	logger        *logrus.Logger
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Config, reconcileCtrl *controllers.ReconcileController, db *models.Database, logger *logrus.Logger) *Server {
	s := &Server{
		reconcileCtrl: reconcileCtrl,
		db:            db,
		logger:        logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	statusHandler := handlers.NewStatusHandler(s.reconcileCtrl, s.db, s.logger)
	mux.HandleFunc("/status", statusHandler.ServeHTTP)
}

// Start starts the HTTP server and blocks until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
