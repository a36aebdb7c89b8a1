package storage

import (
	"context"
	"time"
)

// Read windows define the business meaning of "active"/"recent".
const (
	ActiveUsersWindow  = 5 * time.Minute
	UserSessionsWindow = 5 * time.Minute
	PageViewsWindow    = 15 * time.Minute
)

// Retention TTLs are deliberately longer than the read windows: a slow or
// skipped sweep must not lose the raw data the next sweep's cutoff
// comparison needs.
const (
	ActiveUsersTTL  = 10 * time.Minute
	UserSessionsTTL = 10 * time.Minute
	PageViewsTTL    = 30 * time.Minute
)

// PageView is one entry in the top-pages ranking
type PageView struct {
	URL       string `json:"url"`
	ViewCount int64  `json:"viewCount"`
}

// MetricsStore is the keyed time-series store backing all windowed metrics.
//
// Writes are serialized per key by the backing store; no operation spans a
// read-modify-write across two different keys atomically, which is why the
// ranking index may transiently overcount (see TopPages).
type MetricsStore interface {
	// RecordActiveUser appends the user to the active-users series at the
	// event timestamp.
	RecordActiveUser(ctx context.Context, userID string, timestampMs int64) error

	// RecordPageView appends an occurrence to the page's series and
	// optimistically refreshes the ranking index with the series' total
	// size (expired-but-unswept entries included).
	RecordPageView(ctx context.Context, pageURL string, timestampMs int64) error

	// RecordUserSession appends the session to the user's series and tracks
	// the user in the users-with-sessions set.
	RecordUserSession(ctx context.Context, userID, sessionID string, timestampMs int64) error

	// ActiveUserCount returns the number of distinct users seen since
	// windowStartMs (inclusive).
	ActiveUserCount(ctx context.Context, windowStartMs int64) (int64, error)

	// PageViewCount returns the number of views of pageURL since
	// windowStartMs (inclusive).
	PageViewCount(ctx context.Context, pageURL string, windowStartMs int64) (int64, error)

	// TopPages returns up to limit pages ordered by true windowed view count
	// descending. Candidates come from the ranking index, so a page whose
	// stale score fell outside the top limit may be missed; candidates with
	// zero live views are excluded and evicted from the index best-effort.
	TopPages(ctx context.Context, limit int, windowStartMs int64) ([]PageView, error)

	// ActiveSessionsByUser returns per-user session counts since
	// windowStartMs. Users with zero live sessions are dropped and removed
	// from the tracking set best-effort.
	ActiveSessionsByUser(ctx context.Context, windowStartMs int64) (map[string]int64, error)

	// CleanupActiveUsers evicts active-user entries older than the 5 minute
	// window as of nowMs.
	CleanupActiveUsers(ctx context.Context, nowMs int64) error

	// CleanupPageViews evicts page-view entries older than the 15 minute
	// window and resynchronizes the ranking index with the corrected sizes.
	CleanupPageViews(ctx context.Context, nowMs int64) error

	// CleanupUserSessions evicts session entries older than the 5 minute
	// window and prunes users whose series became empty.
	CleanupUserSessions(ctx context.Context, nowMs int64) error

	// Ping checks store connectivity
	Ping(ctx context.Context) error

	// Close releases the backing connection
	Close() error
}

// Config holds store connection configuration
type Config struct {
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// ScanCount bounds the per-iteration cost of cursor-based key
	// enumeration during sweeps.
	ScanCount int64
}

// DefaultConfig returns default store settings
func DefaultConfig() Config {
	return Config{
		RedisURL:        "redis://localhost:6379",
		RedisDB:         0,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
		ScanCount:       100,
	}
}
