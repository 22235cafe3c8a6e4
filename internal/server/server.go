// Package server provides the HTTP API for gitaguide.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/gitaguide/internal/config"
	"github.com/hyperjump/gitaguide/internal/guidance"
	"github.com/hyperjump/gitaguide/internal/retrieval"
	"github.com/hyperjump/gitaguide/internal/storage"
	"github.com/hyperjump/gitaguide/pkg/utils"
)

// requestTimeout bounds a request, including the LLM call for guidance.
const requestTimeout = 90 * time.Second

// Server is the HTTP server for the gitaguide API.
type Server struct {
	composer  *guidance.Composer
	retriever *retrieval.Retriever
	storage   storage.Storage
	config    *config.Config
	reloader  *Reloader // optional
	logger    *zap.Logger
	server    *http.Server
	started   time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithReloader exposes reload status and the admin reload endpoint.
func WithReloader(r *Reloader) Option {
	return func(s *Server) { s.reloader = r }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	composer *guidance.Composer,
	retriever *retrieval.Retriever,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		composer:  composer,
		retriever: retriever,
		storage:   store,
		config:    cfg,
		logger:    utils.OrNop(logger),
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/guidance", s.handleGuidance)
		r.Post("/verses/search", s.handleSearch)
		r.Get("/keywords", s.handleKeywords)
		r.Get("/verses/{chapter}", s.handleChapter)
		r.Get("/verses/{chapter}/{verse}", s.handleVerse)
		r.Post("/reflections", s.handleCreateReflection)
		r.Get("/reflections", s.handleListReflections)
		r.Get("/reflections/{id}", s.handleGetReflection)
		r.Delete("/reflections/{id}", s.handleDeleteReflection)
		r.Get("/status", s.handleStatus)
		r.Post("/admin/reload", s.handleReload)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
