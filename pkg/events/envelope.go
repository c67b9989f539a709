// Package events provides the generic event infrastructure for domain event
// emission: the Envelope wrapping every event and the EventSink it is
// appended to.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Envelope wraps a domain event payload with routing and idempotency metadata.
type Envelope struct {
	// ID uniquely identifies this event instance. Producers use the
	// idempotency key so retries yield the same ID.
	ID string `json:"id"`

	// Type identifies the event for routing, e.g. "WindowScored".
	Type string `json:"type"`

	// Source identifies the emitting component, e.g. "activity.score_units".
	Source string `json:"source"`

	// Version follows semantic versioning of the payload schema.
	Version string `json:"version"`

	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey ensures exactly-once processing during retries.
	IdempotencyKey string `json:"idempotency_key"`

	// BatchRunID correlates events of one scoring run.
	BatchRunID string `json:"batch_run_id"`

	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`

	// Payload contains the event data; its schema varies by Type and Version.
	Payload json.RawMessage `json:"payload"`
}

// EventSink receives events. Implementations should treat duplicate
// idempotency keys as no-ops and return quickly; callers never fail their
// primary operation because of a sink error.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event.
type NoOpEventSink struct{}

// Append implements EventSink.Append with no-op behavior.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error {
	return nil
}

// NewNoOpEventSink creates a new no-op event sink.
func NewNoOpEventSink() EventSink {
	return &NoOpEventSink{}
}

// LogSink writes every event to a structured logger at debug level. It is
// the default sink for workers without an event store.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default.
func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

// Append implements EventSink.
func (l *LogSink) Append(ctx context.Context, envelope Envelope) error {
	l.log.DebugContext(ctx, "domain event",
		"type", envelope.Type,
		"source", envelope.Source,
		"id", envelope.ID,
		"batch_run_id", envelope.BatchRunID,
		"workflow_id", envelope.WorkflowID)
	return nil
}

// RecordingSink keeps appended events in memory, deduplicated by idempotency
// key. It is safe for concurrent use.
type RecordingSink struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	events []Envelope
}

// NewRecordingSink creates an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{seen: make(map[string]struct{})}
}

// Append implements EventSink.
func (r *RecordingSink) Append(_ context.Context, envelope Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.seen[envelope.IdempotencyKey]; dup {
		return nil
	}
	r.seen[envelope.IdempotencyKey] = struct{}{}
	r.events = append(r.events, envelope)
	return nil
}

// Events returns a copy of the recorded events in append order.
func (r *RecordingSink) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.events...)
}

// OfType returns the recorded events with the given type.
func (r *RecordingSink) OfType(eventType string) []Envelope {
	var out []Envelope
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
