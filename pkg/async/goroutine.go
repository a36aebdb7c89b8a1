package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/shwetankt93/liftlab-assignment/pkg/observability"
)

// ErrorHook is called when a detached task fails, with the task name.
// Used to feed failure counters without coupling this package to metrics.
type ErrorHook func(taskName string, err error)

// SafeGo executes a function in a detached goroutine with:
//   - Panic recovery
//   - Timeout enforcement
//   - Error logging (failures never reach the caller)
//
// The task context keeps the parent's values (request ID, logger) but is
// detached from the parent's cancellation: an ingestion response returning
// must not abort the write it just acknowledged.
//
// Example:
//
//	async.SafeGo(r.Context(), 5*time.Second, "record page view", nil, func(ctx context.Context) error {
//	    return store.RecordPageView(ctx, url, ts)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, onError ErrorHook, fn func(context.Context) error) {
	detached := context.WithoutCancel(parentCtx)

	go func() {
		ctx, cancel := context.WithTimeout(detached, timeout)
		defer cancel()

		logger := observability.FromContext(ctx).WithField("task", taskName)

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("panic in detached task")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithError(err).Error("detached task failed")
			if onError != nil {
				onError(taskName, err)
			}
		}
	}()
}
