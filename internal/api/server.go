// Package api exposes the ingestion HTTP surface.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recipe-ingest/internal/config"
	"recipe-ingest/internal/conflict"
	"recipe-ingest/internal/ingest"
	"recipe-ingest/internal/jobs"
	"recipe-ingest/internal/ratelimit"
	"recipe-ingest/internal/telemetry"
)

// Server wires HTTP handlers for the ingestion API.
type Server struct {
	cfg      config.Config
	svc      *ingest.Service
	jobStore jobs.Store
	resolver *conflict.Resolver
	limiter  ratelimit.Limiter
	log      *slog.Logger
}

// New constructs the API server.
func New(cfg config.Config, svc *ingest.Service, jobStore jobs.Store, resolver *conflict.Resolver, limiter ratelimit.Limiter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		svc:      svc,
		jobStore: jobStore,
		resolver: resolver,
		limiter:  limiter,
		log:      log,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)
		r.With(s.rateLimit).Post("/ingest", s.handleIngestURL)
		r.With(s.rateLimit).Post("/ingest/preview", s.handlePreview)
		r.With(s.rateLimit).Post("/ingest/document", s.handleDocument)
		r.With(s.rateLimit).Post("/ingest/document/async", s.handleDocumentAsync)
		// Batch is charged per URL inside the handler, not per request.
		r.Post("/ingest/batch", s.handleBatch)
		r.Post("/import/resolve-conflicts", s.handleResolveConflicts)
	})

	r.Get("/ingest/progress/{jobId}", s.handleProgress)
	r.Delete("/ingest/progress/{jobId}", s.handleCancelJob)

	return r
}

func (s *Server) batchOptions() jobs.BatchOptions {
	return jobs.BatchOptions{
		MaxConcurrent:  s.cfg.BatchConcurrency,
		Timeout:        s.cfg.BatchTimeout,
		MaxRetries:     s.cfg.BatchMaxRetries,
		BackoffInitial: s.cfg.BackoffInitial,
		BackoffMax:     s.cfg.BackoffMax,
	}
}
