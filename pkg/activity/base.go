// Package activity provides common infrastructure for Temporal activity
// implementations: workflow context extraction, best-effort event emission,
// heartbeats, and logging that works both inside an activity and in plain
// Go code such as the CLI batch path and unit tests.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/ahrav/go-adhere/pkg/events"
)

// WorkflowContext contains metadata extracted from the Temporal activity context.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	ActivityID string
}

// BaseActivities provides common infrastructure for all activity types.
type BaseActivities struct {
	eventSink events.EventSink
}

// NewBaseActivities creates a new BaseActivities instance with the provided event sink.
// The event sink can be nil when event emission is not needed.
func NewBaseActivities(sink events.EventSink) BaseActivities {
	return BaseActivities{eventSink: sink}
}

// GetWorkflowContext safely extracts workflow context from the activity context.
// Outside an activity, where activity.GetInfo panics, it returns a local
// context with a fixed workflow ID so idempotency keys stay stable.
func (b *BaseActivities) GetWorkflowContext(ctx context.Context) WorkflowContext {
	var wfCtx WorkflowContext

	func() {
		defer func() {
			if r := recover(); r != nil {
				wfCtx.WorkflowID = "local"
				wfCtx.RunID = "local-" + uuid.New().String()[:8]
				wfCtx.ActivityID = "local-activity"
			}
		}()

		info := activity.GetInfo(ctx)
		wfCtx.WorkflowID = info.WorkflowExecution.ID
		wfCtx.RunID = info.WorkflowExecution.RunID
		wfCtx.ActivityID = info.ActivityID
	}()

	return wfCtx
}

// EmitEventSafe provides best-effort event emission with one retry.
// Failures are logged and never propagated to the caller.
func (b *BaseActivities) EmitEventSafe(
	ctx context.Context,
	envelope events.Envelope,
	description string,
) {
	if b.eventSink == nil {
		return
	}

	const maxAttempts = 2
	const retryDelay = 200 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				SafeLogError(ctx, fmt.Sprintf("Event emission cancelled: %s", description),
					"event_type", envelope.Type)
				return
			}
		}

		if err := b.eventSink.Append(ctx, envelope); err != nil {
			lastErr = err
			continue
		}
		return
	}

	SafeLogError(ctx, fmt.Sprintf("Failed to emit %s after %d attempts", description, maxAttempts),
		"event_type", envelope.Type,
		"error", lastErr)
}

// RecordHeartbeat safely records a heartbeat in the Temporal activity context.
func (b *BaseActivities) RecordHeartbeat(ctx context.Context, details ...any) {
	RecordHeartbeat(ctx, details...)
}

// SafeLog logs through the activity logger inside an activity and through
// slog.Default everywhere else.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	if logger, ok := activityLogger(ctx); ok {
		logger.Info(msg, keyvals...)
		return
	}
	slog.Default().InfoContext(ctx, msg, keyvals...)
}

// SafeLogError is SafeLog at error level.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	if logger, ok := activityLogger(ctx); ok {
		logger.Error(msg, keyvals...)
		return
	}
	slog.Default().ErrorContext(ctx, msg, keyvals...)
}

type activityLog interface {
	Info(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// activityLogger returns the activity logger, or false outside an activity.
func activityLogger(ctx context.Context) (logger activityLog, ok bool) {
	defer func() {
		if recover() != nil {
			logger, ok = nil, false
		}
	}()
	return activity.GetLogger(ctx), true
}

// RecordHeartbeat safely records activity heartbeat with details.
// It is a no-op outside an activity.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() {
		if recover() != nil {
			// Not an activity context, ignore
		}
	}()
	activity.RecordHeartbeat(ctx, details...)
}
