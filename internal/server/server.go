// Package server exposes a knowledge map over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /nodes
//	GET  /nodes/{id}
//	GET  /graph.{format}
//	GET  /nodes/{id}/graph.{format}?depth=&top_down=&wrap=&refresh=
//	POST /reload
//	GET  /metrics
//
// Every request is served from the workspace's current view, so a reload or
// any other store mutation is visible to the next request. Errors are
// returned as JSON {"code", "message"} with the status from
// [errors.HTTPStatus].
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/knowmap/pkg/kgraph"
	"github.com/matzehuels/knowmap/pkg/observability/prom"
	"github.com/matzehuels/knowmap/pkg/pipeline"
	"github.com/matzehuels/knowmap/pkg/source"
)

// Config wires a server to its collaborators.
type Config struct {
	Workspace *pipeline.Workspace
	Runner    *pipeline.Runner
	// Source backs POST /reload. Nil disables reloading.
	Source source.Source
	// Defaults supplies depth, orientation and wrap width when a request
	// does not override them.
	Defaults pipeline.Options
	// Metrics backs GET /metrics and request instrumentation. Nil disables both.
	Metrics *prom.Metrics
	Logger  *log.Logger
}

// Server serves one workspace.
type Server struct {
	ws       *pipeline.Workspace
	runner   *pipeline.Runner
	source   source.Source
	defaults pipeline.Options
	metrics  *prom.Metrics
	logger   *log.Logger

	reloadMu  sync.Mutex
	unwatch   func()
	closeOnce sync.Once
}

// New creates a server. Missing workspace, runner or logger are replaced by
// empty defaults.
func New(cfg Config) *Server {
	s := &Server{
		ws:       cfg.Workspace,
		runner:   cfg.Runner,
		source:   cfg.Source,
		defaults: cfg.Defaults,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
	if s.ws == nil {
		s.ws = pipeline.NewWorkspace(nil)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	s.unwatch = s.ws.Store().Subscribe(s.onChange)
	return s
}

// Close stops watching the store. It is safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(s.unwatch)
}

// onChange logs and counts every store mutation.
func (s *Server) onChange(c kgraph.Change) {
	s.logger.Info("store changed",
		"change_id", c.ID,
		"kind", c.Kind,
		"node", c.NodeID,
		"generation", c.Generation,
	)
	if s.metrics != nil {
		s.metrics.ObserveStoreChange(c.Kind.String())
	}
}

// Handler returns the routed handler with middleware installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(accessLog(s.logger, s.metrics))

	r.Get("/healthz", s.health)
	r.Get("/graph.{format}", s.graph)
	r.Route("/nodes", func(r chi.Router) {
		r.Get("/", s.listNodes)
		r.Get("/{id}", s.getNode)
		r.Get("/{id}/graph.{format}", s.graph)
	})
	r.Post("/reload", s.reload)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, s.logger, errNoRoute(r))
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests for up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	defer s.Close()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "nodes", s.ws.Store().NodeCount())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// accessLog logs one line per request and records it in metrics under the
// matched route pattern.
func accessLog(logger *log.Logger, metrics *prom.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			d := time.Since(start)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", d,
				"request_id", chimiddleware.GetReqID(r.Context()))
			if metrics != nil {
				metrics.ObserveRequest(r.Method, route, status, d)
			}
		})
	}
}
