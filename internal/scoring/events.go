package scoring

import (
	"context"
	"fmt"

	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/pkg/activity"
	"github.com/ahrav/go-adhere/pkg/events"
)

// EventEmitter handles domain event emission for scoring operations.
// All emission is best-effort; failures are logged without affecting scoring.
type EventEmitter struct{ base activity.BaseActivities }

// NewEventEmitter creates a new EventEmitter with base activity infrastructure.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// EmitWindowScored emits one WindowScored event for a unit result.
func (e *EventEmitter) EmitWindowScored(
	ctx context.Context,
	batchRunID string,
	res domain.UnitResult,
	wfCtx activity.WorkflowContext,
) {
	domainEvent, err := domain.NewWindowScoredEvent(batchRunID, wfCtx.WorkflowID, wfCtx.RunID, res)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create WindowScored event",
			"patient_id", res.PatientID,
			"config_id", res.ConfigID,
			"error", err)
		return
	}
	e.base.EmitEventSafe(ctx, ToEnvelope(domainEvent), "WindowScored")
}

// ToEnvelope converts a domain event into the generic envelope.
func ToEnvelope(domainEvent domain.EventEnvelope) events.Envelope {
	return events.Envelope{
		ID:             domainEvent.IdempotencyKey,
		Type:           string(domainEvent.EventType),
		Source:         domainEvent.Producer,
		Version:        fmt.Sprintf("%d.0.0", domainEvent.Version),
		Timestamp:      domainEvent.OccurredAt,
		IdempotencyKey: domainEvent.IdempotencyKey,
		BatchRunID:     domainEvent.BatchRunID,
		WorkflowID:     domainEvent.WorkflowID,
		RunID:          domainEvent.RunID,
		Payload:        domainEvent.Payload,
	}
}
