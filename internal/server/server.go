// Package server exposes the search engine over an HTTP JSON API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/queryforge/schemafuse/internal/search"
)

// EngineProvider resolves the search engine serving a project.
type EngineProvider interface {
	Engine(ctx context.Context, project string) (*search.Engine, error)
}

// StaticProvider serves the same engine for every project name.
type StaticProvider struct {
	engine *search.Engine
}

// NewStaticProvider wraps a single engine as a provider.
func NewStaticProvider(engine *search.Engine) *StaticProvider {
	return &StaticProvider{engine: engine}
}

func (p *StaticProvider) Engine(_ context.Context, _ string) (*search.Engine, error) {
	return p.engine, nil
}

// Server is the HTTP API server.
type Server struct {
	provider EngineProvider
	logger   *slog.Logger
}

// New creates an HTTP API server.
func New(provider EngineProvider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{provider: provider, logger: logger}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Route("/api/projects/{project}", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/search/multi", s.handleSearchMulti)
		r.Post("/compare", s.handleCompare)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/benchmark", s.handleBenchmark)
		r.Get("/methods", s.handleMethods)
	})
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("server_started", slog.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server_stopping")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request_completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("latency", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"}, nil)
}
