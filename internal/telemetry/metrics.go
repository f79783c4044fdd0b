package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	IngestSuccess     = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_recipes_total", Help: "Recipes ingested and saved"})
	IngestFailures    = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_failures_total", Help: "Ingestion jobs that ended in error"})
	BatchSources      = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_batch_sources_total", Help: "Sources processed across all batches"})
	SourceRetries     = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_source_retries_total", Help: "Transient per-source retries"})
	ConflictsDetected = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_conflicts_detected_total", Help: "Import collisions detected"})
	ConflictsResolved = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_conflicts_resolved_total", Help: "Conflicts resolved successfully"})
	RateLimitRejects  = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_rate_limit_rejects_total", Help: "Requests rejected by rate limiter"})
	JobsInFlight      = prometheus.NewGauge(prometheus.GaugeOpts{Name: "ingest_jobs_inflight", Help: "Ingestion jobs currently running"})
	JobsSwept         = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_jobs_swept_total", Help: "Jobs evicted by the age sweeper"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			IngestSuccess,
			IngestFailures,
			BatchSources,
			SourceRetries,
			ConflictsDetected,
			ConflictsResolved,
			RateLimitRejects,
			JobsInFlight,
			JobsSwept,
		)
	})
	return promhttp.Handler()
}
