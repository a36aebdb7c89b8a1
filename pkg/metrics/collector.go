package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shwetankt93/liftlab-assignment/pkg/observability"
	"github.com/shwetankt93/liftlab-assignment/pkg/storage"
)

// Collector runs every registered provider concurrently and merges their
// results into a Snapshot.
type Collector struct {
	providers []Provider
	logger    *observability.Logger
}

// NewCollector returns a collector over the given providers
func NewCollector(logger *observability.Logger, providers ...Provider) *Collector {
	return &Collector{
		providers: providers,
		logger:    logger.WithComponent("metrics-collector"),
	}
}

// Collect computes all metrics for one snapshot. The first provider error
// cancels the remaining providers and fails the collection.
func (c *Collector) Collect(ctx context.Context, in Inputs) (*Snapshot, error) {
	var (
		mu      sync.Mutex
		results = make([]Result, 0, len(c.providers))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, provider := range c.providers {
		provider := provider
		g.Go(func() error {
			result, err := provider.Compute(gctx, in)
			if err != nil {
				return fmt.Errorf("compute %s: %w", provider.Name(), err)
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		TopPages:             []storage.PageView{},
		ActiveSessionsByUser: map[string]int64{},
		Timestamp:            time.Now().UTC(),
	}
	for _, result := range results {
		result.fill(snapshot)
	}

	c.logger.WithFields(map[string]interface{}{
		"active_users": snapshot.ActiveUsersCount,
		"top_pages":    len(snapshot.TopPages),
		"users":        len(snapshot.ActiveSessionsByUser),
	}).Debug("collected metrics snapshot")

	return snapshot, nil
}
