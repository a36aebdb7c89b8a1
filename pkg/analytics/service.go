package analytics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shwetankt93/liftlab-assignment/pkg/metrics"
	"github.com/shwetankt93/liftlab-assignment/pkg/observability"
	"github.com/shwetankt93/liftlab-assignment/pkg/storage"
)

// defaultSnapshotTimeout bounds one metrics retrieval end to end, sweeps
// included.
const defaultSnapshotTimeout = 10 * time.Second

// MetricsService serves the current metrics snapshot. Every retrieval first
// sweeps expired entries from all three series families so the snapshot
// never counts stale data, then collects the metrics. Both phases are
// all-or-nothing.
type MetricsService struct {
	store           storage.MetricsStore
	collector       *metrics.Collector
	logger          *observability.Logger
	metrics         *observability.Metrics
	snapshotTimeout time.Duration

	// now is swappable for tests
	now func() time.Time
}

// NewMetricsService builds the retrieval service. The obs parameter may be
// nil (tests).
func NewMetricsService(store storage.MetricsStore, logger *observability.Logger, obs *observability.Metrics) *MetricsService {
	return &MetricsService{
		store:           store,
		collector:       metrics.NewCollector(logger, metrics.DefaultProviders()...),
		logger:          logger.WithComponent("metrics-service"),
		metrics:         obs,
		snapshotTimeout: defaultSnapshotTimeout,
		now:             time.Now,
	}
}

// CurrentMetrics sweeps expired data and returns a fresh snapshot
func (s *MetricsService) CurrentMetrics(ctx context.Context) (*metrics.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.snapshotTimeout)
	defer cancel()

	start := time.Now()
	nowMs := s.now().UnixMilli()

	if err := s.sweep(ctx, nowMs); err != nil {
		s.recordFailure("sweep")
		return nil, err
	}

	snapshot, err := s.collector.Collect(ctx, metrics.Inputs{
		Store:               s.store,
		FiveMinutesAgoMs:    nowMs - (5 * time.Minute).Milliseconds(),
		FifteenMinutesAgoMs: nowMs - (15 * time.Minute).Milliseconds(),
	})
	if err != nil {
		s.recordFailure("collect")
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
	}
	return snapshot, nil
}

// sweep runs the three cleanup passes concurrently against one shared
// "now". Any sweep failure aborts the retrieval: serving a snapshot over
// partially swept data would double-count expired entries.
func (s *MetricsService) sweep(ctx context.Context, nowMs int64) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.store.CleanupActiveUsers(gctx, nowMs); err != nil {
			return fmt.Errorf("sweep active users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.store.CleanupPageViews(gctx, nowMs); err != nil {
			return fmt.Errorf("sweep page views: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.store.CleanupUserSessions(gctx, nowMs); err != nil {
			return fmt.Errorf("sweep user sessions: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (s *MetricsService) recordFailure(stage string) {
	if s.metrics != nil {
		s.metrics.SnapshotFailuresTotal.WithLabelValues(stage).Inc()
	}
}
