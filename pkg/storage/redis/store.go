// Package redis implements the sliding-window MetricsStore on Redis sorted
// sets: one ZSET per logical series keyed by event timestamp, a ranking
// ZSET caching approximate per-page sizes for fast top-N candidate reads,
// and a plain SET tracking which users currently have a session series.
package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shwetankt93/liftlab-assignment/pkg/async"
	"github.com/shwetankt93/liftlab-assignment/pkg/observability"
	"github.com/shwetankt93/liftlab-assignment/pkg/storage"
)

const (
	activeUsersKey       = "active_users:5m"
	rankingKey           = "page_views:counts"
	usersWithSessionsKey = "users_with_sessions:5m"
	pageViewPrefix       = "page_views:"
	sessionPrefix        = "user_sessions:"
	sessionSuffix        = ":5m"

	// detachTimeout bounds fire-and-forget eviction writes launched from
	// read paths.
	detachTimeout = 5 * time.Second
)

// Store is the Redis-backed MetricsStore implementation
type Store struct {
	client    *goredis.Client
	logger    *observability.Logger
	metrics   *observability.Metrics
	scanCount int64
}

var _ storage.MetricsStore = (*Store)(nil)

// NewStore connects to Redis and returns a ready store. The metrics
// parameter may be nil (tests).
func NewStore(cfg storage.Config, logger *observability.Logger, metrics *observability.Metrics) (*Store, error) {
	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB >= 0 {
		opts.DB = cfg.RedisDB
	}
	if cfg.RedisMaxRetries > 0 {
		opts.MaxRetries = cfg.RedisMaxRetries
	}
	if cfg.RedisPoolSize > 0 {
		opts.PoolSize = cfg.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	scanCount := cfg.ScanCount
	if scanCount <= 0 {
		scanCount = 100
	}

	return &Store{
		client:    client,
		logger:    logger.WithComponent("redis-store"),
		metrics:   metrics,
		scanCount: scanCount,
	}, nil
}

// RecordActiveUser adds the user to the active-users series. One entry per
// user: a repeat visit just moves the user's score forward.
func (s *Store) RecordActiveUser(ctx context.Context, userID string, timestampMs int64) error {
	start := time.Now()
	err := s.recordActiveUser(ctx, userID, timestampMs)
	s.observe("record_active_user", start, err)
	return err
}

func (s *Store) recordActiveUser(ctx context.Context, userID string, timestampMs int64) error {
	if err := s.client.ZAdd(ctx, activeUsersKey, &goredis.Z{
		Score:  float64(timestampMs),
		Member: userID,
	}).Err(); err != nil {
		return fmt.Errorf("record active user: %w", err)
	}
	if err := s.client.Expire(ctx, activeUsersKey, storage.ActiveUsersTTL).Err(); err != nil {
		return fmt.Errorf("refresh active users TTL: %w", err)
	}
	return nil
}

// RecordPageView appends a view occurrence to the page's series, then
// refreshes the ranking index with the series' total size. The size still
// includes out-of-window entries the sweeper has not removed, so the
// ranking score may overcount until the next sweep corrects it.
func (s *Store) RecordPageView(ctx context.Context, pageURL string, timestampMs int64) error {
	start := time.Now()
	err := s.recordPageView(ctx, pageURL, timestampMs)
	s.observe("record_page_view", start, err)
	return err
}

func (s *Store) recordPageView(ctx context.Context, pageURL string, timestampMs int64) error {
	key := pageKey(pageURL)
	// Occurrences must not dedupe, so each member carries a uniqueness suffix.
	member := fmt.Sprintf("%d:%s", timestampMs, uuid.NewString()[:8])

	if err := s.client.ZAdd(ctx, key, &goredis.Z{
		Score:  float64(timestampMs),
		Member: member,
	}).Err(); err != nil {
		return fmt.Errorf("record page view: %w", err)
	}
	if err := s.client.Expire(ctx, key, storage.PageViewsTTL).Err(); err != nil {
		return fmt.Errorf("refresh page view TTL: %w", err)
	}

	size, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("size page series: %w", err)
	}
	if err := s.client.ZAdd(ctx, rankingKey, &goredis.Z{
		Score:  float64(size),
		Member: pageURL,
	}).Err(); err != nil {
		return fmt.Errorf("update ranking index: %w", err)
	}
	if err := s.client.Expire(ctx, rankingKey, storage.PageViewsTTL).Err(); err != nil {
		return fmt.Errorf("refresh ranking TTL: %w", err)
	}
	return nil
}

// RecordUserSession adds the session to the user's series and tracks the
// user in the users-with-sessions set used by the fan-out read.
func (s *Store) RecordUserSession(ctx context.Context, userID, sessionID string, timestampMs int64) error {
	start := time.Now()
	err := s.recordUserSession(ctx, userID, sessionID, timestampMs)
	s.observe("record_user_session", start, err)
	return err
}

func (s *Store) recordUserSession(ctx context.Context, userID, sessionID string, timestampMs int64) error {
	key := sessionKey(userID)

	if err := s.client.ZAdd(ctx, key, &goredis.Z{
		Score:  float64(timestampMs),
		Member: sessionID,
	}).Err(); err != nil {
		return fmt.Errorf("record user session: %w", err)
	}
	if err := s.client.SAdd(ctx, usersWithSessionsKey, userID).Err(); err != nil {
		return fmt.Errorf("track user with sessions: %w", err)
	}
	if err := s.client.Expire(ctx, key, storage.UserSessionsTTL).Err(); err != nil {
		return fmt.Errorf("refresh session TTL: %w", err)
	}
	if err := s.client.Expire(ctx, usersWithSessionsKey, storage.UserSessionsTTL).Err(); err != nil {
		return fmt.Errorf("refresh session set TTL: %w", err)
	}
	return nil
}

// ActiveUserCount counts users active since windowStartMs
func (s *Store) ActiveUserCount(ctx context.Context, windowStartMs int64) (int64, error) {
	start := time.Now()
	count, err := s.client.ZCount(ctx, activeUsersKey, formatScore(windowStartMs), "+inf").Result()
	s.observe("active_user_count", start, err)
	if err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return count, nil
}

// PageViewCount counts views of pageURL since windowStartMs
func (s *Store) PageViewCount(ctx context.Context, pageURL string, windowStartMs int64) (int64, error) {
	start := time.Now()
	count, err := s.client.ZCount(ctx, pageKey(pageURL), formatScore(windowStartMs), "+inf").Result()
	s.observe("page_view_count", start, err)
	if err != nil {
		return 0, fmt.Errorf("count page views: %w", err)
	}
	return count, nil
}

// TopPages returns up to limit pages by true windowed view count.
//
// The ranking index provides the candidate set in O(limit) instead of a
// full keyspace scan; each candidate's count is then validated against its
// series. A candidate with zero live views gets a detached eviction from
// the index and is excluded. A page whose stale score fell outside the top
// limit can be missed entirely; that precision/throughput trade is by
// contract, not an accident.
func (s *Store) TopPages(ctx context.Context, limit int, windowStartMs int64) ([]storage.PageView, error) {
	start := time.Now()
	pages, err := s.topPages(ctx, limit, windowStartMs)
	s.observe("top_pages", start, err)
	return pages, err
}

func (s *Store) topPages(ctx context.Context, limit int, windowStartMs int64) ([]storage.PageView, error) {
	if limit <= 0 {
		return []storage.PageView{}, nil
	}

	candidates, err := s.client.ZRevRangeWithScores(ctx, rankingKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking index: %w", err)
	}

	results := make([]storage.PageView, 0, len(candidates))
	for _, candidate := range candidates {
		pageURL, ok := candidate.Member.(string)
		if !ok {
			continue
		}

		count, err := s.client.ZCount(ctx, pageKey(pageURL), formatScore(windowStartMs), "+inf").Result()
		if err != nil {
			return nil, fmt.Errorf("validate candidate %q: %w", pageURL, err)
		}

		if count == 0 {
			s.evictStaleRankingEntry(ctx, pageURL)
			continue
		}

		results = append(results, storage.PageView{
			URL:       displayURL(pageURL),
			ViewCount: count,
		})
	}

	// True counts can reorder candidates relative to their stale scores.
	// Ties break on URL so one call's output is deterministic.
	sort.Slice(results, func(i, j int) bool {
		if results[i].ViewCount != results[j].ViewCount {
			return results[i].ViewCount > results[j].ViewCount
		}
		return results[i].URL < results[j].URL
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// evictStaleRankingEntry removes a zero-count page from the ranking index
// without blocking the read that discovered it.
func (s *Store) evictStaleRankingEntry(ctx context.Context, pageURL string) {
	if s.metrics != nil {
		s.metrics.StaleRankingEvictions.Inc()
	}
	async.SafeGo(ctx, detachTimeout, "evict stale ranking entry", s.detachedFailureHook(), func(ctx context.Context) error {
		return s.client.ZRem(ctx, rankingKey, pageURL).Err()
	})
}

// ActiveSessionsByUser fans out over the users-with-sessions set and counts
// each user's live sessions concurrently. Users with zero live sessions are
// dropped from the result and pruned from the set best-effort.
func (s *Store) ActiveSessionsByUser(ctx context.Context, windowStartMs int64) (map[string]int64, error) {
	start := time.Now()
	sessions, err := s.activeSessionsByUser(ctx, windowStartMs)
	s.observe("active_sessions_by_user", start, err)
	return sessions, err
}

func (s *Store) activeSessionsByUser(ctx context.Context, windowStartMs int64) (map[string]int64, error) {
	userIDs, err := s.client.SMembers(ctx, usersWithSessionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list users with sessions: %w", err)
	}

	var (
		mu     sync.Mutex
		result = make(map[string]int64, len(userIDs))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			count, err := s.client.ZCount(gctx, sessionKey(userID), formatScore(windowStartMs), "+inf").Result()
			if err != nil {
				return fmt.Errorf("count sessions for %q: %w", userID, err)
			}

			if count == 0 {
				s.evictStaleSessionUser(gctx, userID)
				return nil
			}

			mu.Lock()
			result[userID] = count
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// evictStaleSessionUser removes a user with no live sessions from the
// tracking set without blocking the read.
func (s *Store) evictStaleSessionUser(ctx context.Context, userID string) {
	async.SafeGo(ctx, detachTimeout, "evict stale session user", s.detachedFailureHook(), func(ctx context.Context) error {
		return s.client.SRem(ctx, usersWithSessionsKey, userID).Err()
	})
}

// CleanupActiveUsers evicts active-user entries at or before now-5m
func (s *Store) CleanupActiveUsers(ctx context.Context, nowMs int64) error {
	start := time.Now()
	err := s.cleanupActiveUsers(ctx, nowMs)
	s.observe("cleanup_active_users", start, err)
	return err
}

func (s *Store) cleanupActiveUsers(ctx context.Context, nowMs int64) error {
	cutoff := nowMs - storage.ActiveUsersWindow.Milliseconds()
	removed, err := s.client.ZRemRangeByScore(ctx, activeUsersKey, "-inf", formatScore(cutoff)).Result()
	if err != nil {
		return fmt.Errorf("sweep active users: %w", err)
	}
	s.recordSwept("active_users", removed)
	return nil
}

// CleanupPageViews walks every page series via cursor-based SCAN, evicts
// out-of-window entries, and repairs the ranking index: empty series are
// dropped from the index, surviving ones get their true size written back
// (undoing the optimistic overcount from RecordPageView).
func (s *Store) CleanupPageViews(ctx context.Context, nowMs int64) error {
	start := time.Now()
	err := s.cleanupPageViews(ctx, nowMs)
	s.observe("cleanup_page_views", start, err)
	return err
}

func (s *Store) cleanupPageViews(ctx context.Context, nowMs int64) error {
	cutoff := formatScore(nowMs - storage.PageViewsWindow.Milliseconds())

	iter := s.client.Scan(ctx, 0, pageViewPrefix+"*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// The ranking index shares the prefix; its scores are sizes, not
		// timestamps, so a range eviction there would wipe it.
		if key == rankingKey {
			continue
		}

		removed, err := s.client.ZRemRangeByScore(ctx, key, "-inf", cutoff).Result()
		if err != nil {
			return fmt.Errorf("sweep page series %q: %w", key, err)
		}
		s.recordSwept("page_views", removed)

		size, err := s.client.ZCard(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("size page series %q: %w", key, err)
		}

		pageURL := strings.TrimPrefix(key, pageViewPrefix)
		if size == 0 {
			if err := s.client.ZRem(ctx, rankingKey, pageURL).Err(); err != nil {
				return fmt.Errorf("drop empty page from ranking: %w", err)
			}
			continue
		}
		if err := s.client.ZAdd(ctx, rankingKey, &goredis.Z{
			Score:  float64(size),
			Member: pageURL,
		}).Err(); err != nil {
			return fmt.Errorf("repair ranking score for %q: %w", pageURL, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan page series: %w", err)
	}
	return nil
}

// CleanupUserSessions evicts expired session entries per user and removes
// users whose series became empty from the tracking set.
func (s *Store) CleanupUserSessions(ctx context.Context, nowMs int64) error {
	start := time.Now()
	err := s.cleanupUserSessions(ctx, nowMs)
	s.observe("cleanup_user_sessions", start, err)
	return err
}

func (s *Store) cleanupUserSessions(ctx context.Context, nowMs int64) error {
	cutoff := formatScore(nowMs - storage.UserSessionsWindow.Milliseconds())

	iter := s.client.Scan(ctx, 0, sessionPrefix+"*"+sessionSuffix, s.scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		removed, err := s.client.ZRemRangeByScore(ctx, key, "-inf", cutoff).Result()
		if err != nil {
			return fmt.Errorf("sweep session series %q: %w", key, err)
		}
		s.recordSwept("user_sessions", removed)

		size, err := s.client.ZCard(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("size session series %q: %w", key, err)
		}
		if size == 0 {
			userID := strings.TrimSuffix(strings.TrimPrefix(key, sessionPrefix), sessionSuffix)
			if err := s.client.SRem(ctx, usersWithSessionsKey, userID).Err(); err != nil {
				return fmt.Errorf("prune user %q from session set: %w", userID, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan session series: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client for health checks
func (s *Store) Client() *goredis.Client {
	return s.client
}

func (s *Store) observe(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation(operation, start, err)
	}
}

func (s *Store) recordSwept(sweep string, removed int64) {
	if s.metrics != nil && removed > 0 {
		s.metrics.SweepEntriesRemoved.WithLabelValues(sweep).Add(float64(removed))
	}
}

func (s *Store) detachedFailureHook() async.ErrorHook {
	if s.metrics == nil {
		return nil
	}
	return func(taskName string, _ error) {
		s.metrics.DetachedWriteFailures.WithLabelValues(taskName).Inc()
	}
}

func pageKey(pageURL string) string {
	return pageViewPrefix + pageURL
}

func sessionKey(userID string) string {
	return sessionPrefix + userID + sessionSuffix
}

// displayURL restores the leading slash stripped during storage-key
// normalization.
func displayURL(pageURL string) string {
	if strings.HasPrefix(pageURL, "/") {
		return pageURL
	}
	return "/" + pageURL
}

func formatScore(ms int64) string {
	return strconv.FormatInt(ms, 10)
}
