package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shwetankt93/liftlab-assignment/pkg/analytics"
	"github.com/shwetankt93/liftlab-assignment/pkg/api"
	"github.com/shwetankt93/liftlab-assignment/pkg/config"
	"github.com/shwetankt93/liftlab-assignment/pkg/observability"
	"github.com/shwetankt93/liftlab-assignment/pkg/storage"
	redisstore "github.com/shwetankt93/liftlab-assignment/pkg/storage/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "analytics-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(parseLogLevel(cfg.Log.Level), os.Stdout)
	logger.WithFields(map[string]interface{}{
		"port":     cfg.Server.Port,
		"ops_port": cfg.Server.OpsPort,
	}).Info("starting analytics server")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Insecure:       cfg.Tracing.Insecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	store, err := redisstore.NewStore(storage.Config{
		RedisURL:        cfg.Redis.URL,
		RedisPassword:   cfg.Redis.Password,
		RedisDB:         cfg.Redis.DB,
		RedisMaxRetries: cfg.Redis.MaxRetries,
		RedisPoolSize:   cfg.Redis.PoolSize,
		ScanCount:       cfg.Redis.ScanCount,
	}, logger, metrics)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	logger.Info("connected to redis")

	events, err := analytics.NewEventService(store, logger, metrics)
	if err != nil {
		return fmt.Errorf("build event service: %w", err)
	}
	metricsSvc := analytics.NewMetricsService(store, logger, metrics)
	health := observability.NewHealthChecker(store.Client())

	serverCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	server := api.NewServer(serverCtx, cfg, logger, metrics, registry, events, metricsSvc, health)

	apiServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.APIHandler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	opsServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.OpsPort),
		Handler:      server.OpsHandler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
			os.Exit(1)
		}
	}()
	go func() {
		logger.Infof("ops server listening on %s", opsServer.Addr)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("ops server failed")
			os.Exit(1)
		}
	}()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, opsServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownTracing(ctx, tp, logger)
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return store.Close()
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		stopBackground()
		return nil
	})

	return shutdown.WaitForShutdown()
}

func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "warn":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}
