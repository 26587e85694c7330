// Package server provides the HTTP API for Käbbel.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kabbel/internal/answer"
	"github.com/hyperjump/kabbel/internal/config"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/pkg/utils"
	"go.uber.org/zap"
)

// RecordStore is the part of the collection the API reads and administers.
type RecordStore interface {
	GetByID(ctx context.Context, id string) (*models.Record, error)
	Count(ctx context.Context, filter models.Filter) (int64, error)
	Delete(ctx context.Context, filter models.Filter) (int, error)
	Size() int
}

// Server is the HTTP server for the Käbbel API.
type Server struct {
	engine  *answer.Engine
	records RecordStore
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(engine *answer.Engine, records RecordStore, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		engine:  engine,
		records: records,
		config:  cfg,
		logger:  utils.OrNop(logger),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout()))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)
		r.Post("/statistics", s.handleStatistics)
		r.Post("/context", s.handleContext)
		r.Get("/records/{id}", s.handleGetRecord)
		r.Delete("/records", s.handleDeleteRecords)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// requestTimeout leaves room for a classify and a generate call.
func (s *Server) requestTimeout() time.Duration {
	t := 2 * s.config.LLM.Timeout
	if t < 60*time.Second {
		t = 60 * time.Second
	}
	return t
}

// Start starts the HTTP server and blocks until it stops.
// It returns nil after Stop.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr), zap.Bool("admin", s.config.Server.Admin))
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
