package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shwetankt93/liftlab-assignment/pkg/analytics"
	"github.com/shwetankt93/liftlab-assignment/pkg/config"
	"github.com/shwetankt93/liftlab-assignment/pkg/httputil"
	"github.com/shwetankt93/liftlab-assignment/pkg/middleware"
	"github.com/shwetankt93/liftlab-assignment/pkg/observability"
)

// Server assembles the HTTP routers over the domain services
type Server struct {
	cfg        *config.Config
	logger     *observability.Logger
	metrics    *observability.Metrics
	registry   *prometheus.Registry
	events     *analytics.EventService
	metricsSvc *analytics.MetricsService
	health     *observability.HealthChecker
	rateLimit  *middleware.RateLimitMiddleware
}

// NewServer creates the HTTP server assembly. ctx scopes background work
// (the rate limiter's bucket cleanup loop) to the server's lifetime.
func NewServer(
	ctx context.Context,
	cfg *config.Config,
	logger *observability.Logger,
	metrics *observability.Metrics,
	registry *prometheus.Registry,
	events *analytics.EventService,
	metricsSvc *analytics.MetricsService,
	health *observability.HealthChecker,
) *Server {
	var rateLimit *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		rateLimit = middleware.NewRateLimitMiddleware(ctx, &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			WindowDuration:    cfg.RateLimit.WindowDuration,
			BurstSize:         cfg.RateLimit.BurstSize,
		}, metrics)
	}

	return &Server{
		cfg:        cfg,
		logger:     logger.WithComponent("api"),
		metrics:    metrics,
		registry:   registry,
		events:     events,
		metricsSvc: metricsSvc,
		health:     health,
		rateLimit:  rateLimit,
	}
}

// APIHandler returns the public API router
func (s *Server) APIHandler() http.Handler {
	router := mux.NewRouter()

	router.Use(httputil.RequestIDMiddleware(s.logger))
	router.Use(httputil.LoggingMiddleware(s.logger))
	router.Use(httputil.RecoveryMiddleware(s.logger))
	router.Use(httputil.CORSMiddleware(s.cfg.Server.AllowedOrigins))

	ingest := http.Handler(http.HandlerFunc(s.handleIngestEvent))
	if s.rateLimit != nil {
		ingest = s.rateLimit.Handler(ingest)
	}
	router.Handle("/api/events", s.instrument("/api/events", ingest)).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/api/metrics", s.instrument("/api/metrics", http.HandlerFunc(s.handleGetMetrics))).Methods(http.MethodGet, http.MethodOptions)

	return otelhttp.NewHandler(router, "analytics-api")
}

// OpsHandler returns the operational router served on the ops port
func (s *Server) OpsHandler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.health.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.health.Readiness).Methods(http.MethodGet)
	router.Handle("/metrics", observability.Handler(s.registry)).Methods(http.MethodGet)

	return router
}

func (s *Server) instrument(path string, next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return s.metrics.InstrumentHandler(path, next)
}
