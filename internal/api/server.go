// Package api exposes camvault's local command surface as a small HTTP
// API bound to localhost only, grounded on the teacher's
// internal/http/server.go router-construction pattern (chi Mux, route
// groups, request-scoped middleware) but built on plain chi handlers
// rather than huma - SPEC_FULL.md explicitly drops huma from this
// repo's dependency set, since the command surface here is a fixed,
// small route list rather than a documented public API needing
// generated OpenAPI output.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jmylchreest/camvault/internal/api/middleware"
	"github.com/jmylchreest/camvault/internal/config"
	"github.com/jmylchreest/camvault/internal/libctx"
	"github.com/jmylchreest/camvault/internal/licensing"
	"github.com/jmylchreest/camvault/internal/repository"
	"github.com/jmylchreest/camvault/internal/rescan"
	"github.com/jmylchreest/camvault/internal/scheduler"
	"github.com/jmylchreest/camvault/internal/service/progress"
	"github.com/jmylchreest/camvault/internal/wipe"
)

// Deps bundles everything the command surface's handlers need to reach
// into the engine: repositories for every entity the routes touch, the
// open-library handle, the job runner (for enqueue/cancel), the
// progress service (for the SSE stream), and the licensing/diagnostics
// stub spec.md frames as an external collaborator.
type Deps struct {
	Libraries       repository.LibraryRepository
	IngestSessions  repository.IngestSessionRepository
	ManifestEntries repository.ManifestEntryRepository
	Clips           repository.ClipRepository
	Jobs            repository.JobRepository

	Libs     *libctx.Handle
	Runner   *scheduler.Runner
	Progress *progress.Service

	RescanGate *rescan.Gate
	Wipe       *wipe.Executor

	Licensing   *licensing.Service
	Diagnostics *licensing.Diagnostics

	Logger *slog.Logger
}

// Server wraps the chi router and http.Server lifecycle for the local
// command surface, grounded on the teacher's internal/http.Server.
type Server struct {
	cfg    config.ServerConfig
	router *chi.Mux
	logger *slog.Logger
	srv    *http.Server
}

// NewServer builds the router and wires every route spec.md's command
// surface section names, bound to cfg.Host (expected to be 127.0.0.1 or
// localhost - this is not a public API).
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.NewLoggingMiddleware(logger))
	router.Use(middleware.Recovery(logger))

	RegisterRoutes(router, deps)

	return &Server{cfg: cfg, router: router, logger: logger}
}

// Router exposes the underlying chi.Mux, for tests that want to drive
// requests directly with httptest.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start begins listening and blocks until the server stops or errors.
func (s *Server) Start() error {
	addr := s.cfg.Address()
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("starting command surface", slog.String("address", addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("starting command surface: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server within cfg.ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down command surface: %w", err)
	}
	return nil
}

// ListenAndServe starts the server and blocks until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}
