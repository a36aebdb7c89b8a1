package metrics

import (
	"context"
	"time"

	"github.com/shwetankt93/liftlab-assignment/pkg/storage"
)

// TopPagesLimit is the ranking depth exposed by the snapshot
const TopPagesLimit = 5

// Inputs carries the shared window bounds and the store handle for one
// collection pass. Both bounds derive from the same "now" so all providers
// see a consistent clock.
type Inputs struct {
	Store               storage.MetricsStore
	FiveMinutesAgoMs    int64
	FifteenMinutesAgoMs int64
}

// Snapshot is the assembled metrics response
type Snapshot struct {
	ActiveUsersCount     int64              `json:"activeUsersCount"`
	TopPages             []storage.PageView `json:"topPages"`
	ActiveSessionsByUser map[string]int64   `json:"activeSessionsByUser"`
	Timestamp            time.Time          `json:"timestamp"`
}

// Result is one provider's contribution to a snapshot
type Result interface {
	fill(*Snapshot)
}

// Provider computes one windowed metric
type Provider interface {
	// Name identifies the metric in logs and failure counters
	Name() string

	// Compute reads the store and returns this metric's result
	Compute(ctx context.Context, in Inputs) (Result, error)
}

// DefaultProviders returns the standard provider set backing the snapshot
func DefaultProviders() []Provider {
	return []Provider{
		ActiveUsersProvider{},
		TopPagesProvider{},
		ActiveSessionsProvider{},
	}
}
