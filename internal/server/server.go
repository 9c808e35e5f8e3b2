// Package server implements the Standby HTTP control API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/standby-systems/standby/internal/orchestrator"
	"github.com/standby-systems/standby/internal/store"
)

const defaultMaxBody = 1 << 20 // 1 MiB

// Server is the operator-facing HTTP API.
type Server struct {
	orch   *orchestrator.Orchestrator
	store  store.Store
	router chi.Router
	addr   string
	logger *slog.Logger
	srv    *http.Server
}

// Options configures the server beyond its collaborators.
type Options struct {
	Addr    string
	APIKey  string
	MaxBody int64
	Logger  *slog.Logger
}

// New creates the HTTP server and registers all routes.
func New(orch *orchestrator.Orchestrator, st store.Store, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = defaultMaxBody
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		orch:   orch,
		store:  st,
		addr:   opts.Addr,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))
	r.Use(APIKeyMiddleware(opts.APIKey))
	r.Use(MaxBodyMiddleware(opts.MaxBody))

	s.router = r
	s.registerRoutes(r)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins serving HTTP requests. Blocks until the listener fails or
// the server is stopped.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.logger.Info("standby server listening", "addr", s.addr)
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}
