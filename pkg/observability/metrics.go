package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Ingestion metrics
	EventsIngestedTotal   *prometheus.CounterVec
	ValidationFailures    *prometheus.CounterVec
	RateLimitedTotal      prometheus.Counter
	DetachedWriteFailures *prometheus.CounterVec

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	SweepEntriesRemoved    *prometheus.CounterVec
	StaleRankingEvictions  prometheus.Counter

	// Snapshot metrics
	SnapshotDuration      prometheus.Histogram
	SnapshotFailuresTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analytics_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		EventsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_events_ingested_total",
				Help: "Total number of ingested events by outcome",
			},
			[]string{"status"},
		),
		ValidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_event_validation_failures_total",
				Help: "Total number of event validation failures by rule",
			},
			[]string{"rule"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_rate_limited_requests_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
		DetachedWriteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_detached_write_failures_total",
				Help: "Total number of fire-and-forget store writes that failed",
			},
			[]string{"operation"},
		),

		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_store_operations_total",
				Help: "Total number of store operations",
			},
			[]string{"operation", "status"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analytics_store_operation_duration_seconds",
				Help:    "Store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		SweepEntriesRemoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_sweep_entries_removed_total",
				Help: "Total number of expired entries removed per sweep family",
			},
			[]string{"sweep"},
		),
		StaleRankingEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_stale_ranking_evictions_total",
				Help: "Total number of stale entries evicted from the ranking index during reads",
			},
		),

		SnapshotDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "analytics_snapshot_duration_seconds",
				Help:    "End-to-end metrics snapshot computation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		SnapshotFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_snapshot_failures_total",
				Help: "Total number of failed metrics snapshot computations by stage",
			},
			[]string{"stage"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EventsIngestedTotal,
		m.ValidationFailures,
		m.RateLimitedTotal,
		m.DetachedWriteFailures,
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
		m.SweepEntriesRemoved,
		m.StaleRankingEvictions,
		m.SnapshotDuration,
		m.SnapshotFailuresTotal,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an HTTP handler with request count and duration metrics.
// The path label uses the route template, not the raw URL, to bound cardinality.
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// ObserveStoreOperation records the outcome and duration of one store operation
func (m *Metrics) ObserveStoreOperation(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
