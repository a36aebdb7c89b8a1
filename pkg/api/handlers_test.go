package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shwetankt93/liftlab-assignment/pkg/analytics"
	"github.com/shwetankt93/liftlab-assignment/pkg/config"
	"github.com/shwetankt93/liftlab-assignment/pkg/observability"
	"github.com/shwetankt93/liftlab-assignment/pkg/storage"
)

// stubStore serves canned reads and accepts all writes
type stubStore struct {
	activeUsers int64
	topPages    []storage.PageView
	sessions    map[string]int64
	readErr     error
}

func (s *stubStore) RecordActiveUser(context.Context, string, int64) error          { return nil }
func (s *stubStore) RecordPageView(context.Context, string, int64) error            { return nil }
func (s *stubStore) RecordUserSession(context.Context, string, string, int64) error { return nil }

func (s *stubStore) ActiveUserCount(context.Context, int64) (int64, error) {
	return s.activeUsers, s.readErr
}

func (s *stubStore) PageViewCount(context.Context, string, int64) (int64, error) { return 0, nil }

func (s *stubStore) TopPages(context.Context, int, int64) ([]storage.PageView, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.topPages, nil
}

func (s *stubStore) ActiveSessionsByUser(context.Context, int64) (map[string]int64, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.sessions, nil
}

func (s *stubStore) CleanupActiveUsers(context.Context, int64) error  { return nil }
func (s *stubStore) CleanupPageViews(context.Context, int64) error    { return nil }
func (s *stubStore) CleanupUserSessions(context.Context, int64) error { return nil }
func (s *stubStore) Ping(context.Context) error                       { return nil }
func (s *stubStore) Close() error                                     { return nil }

func newTestServer(t *testing.T, store storage.MetricsStore, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	events, err := analytics.NewEventService(store, logger, metrics)
	if err != nil {
		t.Fatalf("NewEventService: %v", err)
	}
	metricsSvc := analytics.NewMetricsService(store, logger, metrics)
	health := observability.NewHealthChecker(nil)

	return NewServer(context.Background(), cfg, logger, metrics, registry, events, metricsSvc, health)
}

func postEvent(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

const validEventBody = `{
	"timestamp": "2024-03-15T14:30:00Z",
	"userId": "usr_alice",
	"eventType": "page_view",
	"pageUrl": "/home",
	"sessionId": "sess_abc"
}`

func TestIngestEventAccepted(t *testing.T) {
	handler := newTestServer(t, &stubStore{}, nil).APIHandler()

	rec := postEvent(t, handler, validEventBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var result analytics.IngestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success {
		t.Errorf("success = false, want true")
	}
	if result.ProcessedAt.IsZero() {
		t.Error("processedAt is zero")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestIngestEventValidationFailure(t *testing.T) {
	handler := newTestServer(t, &stubStore{}, nil).APIHandler()

	body := strings.Replace(validEventBody, "usr_alice", "alice", 1)
	rec := postEvent(t, handler, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
	}

	var result analytics.IngestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Success {
		t.Error("success = true for invalid event")
	}
	if !strings.Contains(result.Message, "usr_") {
		t.Errorf("message %q does not name the expected prefix", result.Message)
	}
}

func TestIngestEventMalformedJSON(t *testing.T) {
	handler := newTestServer(t, &stubStore{}, nil).APIHandler()

	rec := postEvent(t, handler, `{"userId": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIngestEventRateLimited(t *testing.T) {
	handler := newTestServer(t, &stubStore{}, func(cfg *config.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RequestsPerWindow = 1
		cfg.RateLimit.WindowDuration = time.Minute
		cfg.RateLimit.BurstSize = 0
	}).APIHandler()

	first := postEvent(t, handler, validEventBody)
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := postEvent(t, handler, validEventBody)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestGetMetrics(t *testing.T) {
	store := &stubStore{
		activeUsers: 12,
		topPages: []storage.PageView{
			{URL: "/home", ViewCount: 9},
		},
		sessions: map[string]int64{"usr_alice": 3},
	}
	handler := newTestServer(t, store, nil).APIHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		ActiveUsersCount     int64              `json:"activeUsersCount"`
		TopPages             []storage.PageView `json:"topPages"`
		ActiveSessionsByUser map[string]int64   `json:"activeSessionsByUser"`
		Timestamp            time.Time          `json:"timestamp"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.ActiveUsersCount != 12 {
		t.Errorf("activeUsersCount = %d, want 12", body.ActiveUsersCount)
	}
	if len(body.TopPages) != 1 || body.TopPages[0].URL != "/home" || body.TopPages[0].ViewCount != 9 {
		t.Errorf("topPages = %+v", body.TopPages)
	}
	if body.ActiveSessionsByUser["usr_alice"] != 3 {
		t.Errorf("activeSessionsByUser = %+v", body.ActiveSessionsByUser)
	}
	if body.Timestamp.IsZero() {
		t.Error("timestamp is zero")
	}
}

func TestGetMetricsStoreFailure(t *testing.T) {
	store := &stubStore{readErr: errors.New("redis gone")}
	handler := newTestServer(t, store, nil).APIHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "redis gone") {
		t.Error("response leaked the internal error")
	}
}

func TestGetMetricsStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	store := &stubStore{readErr: errors.New("connection refused")}
	cfg := config.Default()
	cfg.RateLimit.Enabled = false

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	events, err := analytics.NewEventService(store, logger, metrics)
	if err != nil {
		t.Fatalf("NewEventService: %v", err)
	}
	metricsSvc := analytics.NewMetricsService(store, logger, metrics)
	health := observability.NewHealthChecker(client)

	handler := NewServer(context.Background(), cfg, logger, metrics, registry, events, metricsSvc, health).APIHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503; body: %s", rec.Code, rec.Body.String())
	}
}

func TestOpsEndpoints(t *testing.T) {
	server := newTestServer(t, &stubStore{}, nil)
	handler := server.OpsHandler()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}
