package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/shwetankt93/liftlab-assignment/pkg/async"
	"github.com/shwetankt93/liftlab-assignment/pkg/observability"
	"github.com/shwetankt93/liftlab-assignment/pkg/storage"
	"github.com/shwetankt93/liftlab-assignment/pkg/validation"
)

// defaultWriteTimeout bounds each detached store write spawned by ingestion
const defaultWriteTimeout = 5 * time.Second

// Event is the ingestion request body
type Event struct {
	Timestamp string `json:"timestamp"`
	UserID    string `json:"userId"`
	EventType string `json:"eventType"`
	PageURL   string `json:"pageUrl"`
	SessionID string `json:"sessionId"`
}

// IngestResult is the ingestion response body
type IngestResult struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	ProcessedAt time.Time `json:"processedAt"`
}

func acceptedResult() IngestResult {
	return IngestResult{
		Success:     true,
		Message:     "Event processed successfully",
		ProcessedAt: time.Now().UTC(),
	}
}

func failureResult(message string) IngestResult {
	return IngestResult{
		Success:     false,
		Message:     message,
		ProcessedAt: time.Now().UTC(),
	}
}

// EventService ingests analytics events. Validation is synchronous; the
// three store writes are fire-and-forget, so a success response means
// "accepted", not "durably stored". Write failures surface only through
// logs and the detached-write failure counter.
type EventService struct {
	store        storage.MetricsStore
	validator    *validation.Validator
	normalizer   *validation.URLNormalizer
	logger       *observability.Logger
	metrics      *observability.Metrics
	writeTimeout time.Duration
}

// NewEventService builds the ingestion service. The metrics parameter may
// be nil (tests).
func NewEventService(store storage.MetricsStore, logger *observability.Logger, metrics *observability.Metrics) (*EventService, error) {
	normalizer, err := validation.NewURLNormalizer()
	if err != nil {
		return nil, err
	}
	return &EventService{
		store:        store,
		validator:    validation.NewValidator(),
		normalizer:   normalizer,
		logger:       logger.WithComponent("event-service"),
		metrics:      metrics,
		writeTimeout: defaultWriteTimeout,
	}, nil
}

// Process validates the event and, if it passes, launches the three store
// writes detached from the request. The returned error is non-nil only for
// validation failures; the result mirrors it for the response body.
func (s *EventService) Process(ctx context.Context, event Event) (IngestResult, error) {
	err := s.validator.Validate(validation.Event{
		Timestamp: event.Timestamp,
		UserID:    event.UserID,
		EventType: event.EventType,
		PageURL:   event.PageURL,
		SessionID: event.SessionID,
	})
	if err != nil {
		s.recordRejected(err)
		observability.FromContext(ctx).WithError(err).Warn("event rejected")
		return failureResult(err.Error()), err
	}

	ts, err := validation.ParseTimestamp(event.Timestamp)
	if err != nil {
		// Unreachable after validation, kept as a guard.
		s.recordRejected(err)
		return failureResult(err.Error()), err
	}
	timestampMs := ts.UnixMilli()

	normalizedURL := s.normalizer.Normalize(event.PageURL)

	async.SafeGo(ctx, s.writeTimeout, "record active user", s.detachedFailureHook(), func(ctx context.Context) error {
		return s.store.RecordActiveUser(ctx, event.UserID, timestampMs)
	})
	async.SafeGo(ctx, s.writeTimeout, "record page view", s.detachedFailureHook(), func(ctx context.Context) error {
		return s.store.RecordPageView(ctx, normalizedURL, timestampMs)
	})
	async.SafeGo(ctx, s.writeTimeout, "record user session", s.detachedFailureHook(), func(ctx context.Context) error {
		return s.store.RecordUserSession(ctx, event.UserID, event.SessionID, timestampMs)
	})

	if s.metrics != nil {
		s.metrics.EventsIngestedTotal.WithLabelValues("accepted").Inc()
	}
	return acceptedResult(), nil
}

func (s *EventService) recordRejected(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.EventsIngestedTotal.WithLabelValues("rejected").Inc()

	var verr *validation.Error
	if errors.As(err, &verr) {
		s.metrics.ValidationFailures.WithLabelValues(verr.Rule).Inc()
	}
}

func (s *EventService) detachedFailureHook() async.ErrorHook {
	if s.metrics == nil {
		return nil
	}
	return func(taskName string, _ error) {
		s.metrics.DetachedWriteFailures.WithLabelValues(taskName).Inc()
	}
}
