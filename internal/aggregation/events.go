package aggregation

import (
	"context"
	"fmt"

	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/pkg/activity"
	"github.com/ahrav/go-adhere/pkg/events"
)

// EventEmitter handles event emission for the aggregation domain.
// Event emission is best-effort; failures are logged without affecting the roll-up.
type EventEmitter struct {
	base activity.BaseActivities
}

// NewEventEmitter creates a new EventEmitter with the provided base activities.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// EmitSummaryComputed emits a SummaryComputed event for one summary.
// Summaries without a scored window are not announced.
func (e *EventEmitter) EmitSummaryComputed(
	ctx context.Context,
	batchRunID string,
	summary domain.WindowSummary,
	wfCtx activity.WorkflowContext,
) {
	if summary.Status != domain.StatusScored {
		return
	}
	domainEvent, err := domain.NewSummaryComputedEvent(batchRunID, wfCtx.WorkflowID, wfCtx.RunID, summary)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create SummaryComputed event",
			"patient_id", summary.PatientID,
			"config_id", summary.ConfigID,
			"error", err)
		return
	}

	envelope := convertDomainEventToEnvelope(domainEvent)
	e.base.EmitEventSafe(ctx, envelope,
		fmt.Sprintf("SummaryComputed[%s/%s]", summary.PatientID, summary.ConfigID))
}

// convertDomainEventToEnvelope maps a domain.EventEnvelope onto the generic
// events.Envelope used by the sink.
func convertDomainEventToEnvelope(domainEvent domain.EventEnvelope) events.Envelope {
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
