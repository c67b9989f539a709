package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event emitted by the system.
type EventType string

const (
	// EventTypeWindowScored is emitted once per evaluated unit.
	EventTypeWindowScored EventType = "WindowScored"

	// EventTypeSummaryComputed is emitted once per patient and configuration summary.
	EventTypeSummaryComputed EventType = "SummaryComputed"
)

// EventEnvelope wraps domain events with the metadata projections need for
// idempotent, ordered processing.
type EventEnvelope struct {
	// IdempotencyKey is derived from the batch run and event content so that
	// activity retries produce identical keys.
	IdempotencyKey string    `json:"idempotency_key" validate:"required"`
	EventType      EventType `json:"event_type"      validate:"required"`
	Version        int       `json:"version"         validate:"required,min=1"`
	OccurredAt     time.Time `json:"occurred_at"     validate:"required"`

	// BatchRunID identifies the scoring run; WorkflowID and RunID identify the
	// Temporal execution that produced the event.
	BatchRunID string          `json:"batch_run_id" validate:"required"`
	WorkflowID string          `json:"workflow_id"  validate:"required"`
	RunID      string          `json:"run_id"       validate:"required"`
	Payload    json.RawMessage `json:"payload"      validate:"required"`
	Producer   string          `json:"producer"     validate:"required"`
}

// Validate checks if the event envelope meets all requirements.
func (e *EventEnvelope) Validate() error {
	return validate.Struct(e)
}

// WindowScoredPayload describes one evaluated unit.
type WindowScoredPayload struct {
	PatientID   string        `json:"patient_id"   validate:"required"`
	ConfigID    string        `json:"config_id"    validate:"required"`
	WindowIndex int           `json:"window_index" validate:"min=0"`
	Algorithm   AlgorithmKind `json:"algorithm,omitempty"`
	Score       float64       `json:"score"        validate:"min=0,max=100"`
	Passed      bool          `json:"passed"`
	Status      string        `json:"status"       validate:"required"`
	ErrorKind   ErrorKind     `json:"error_kind,omitempty"`
}

// SummaryComputedPayload describes one window summary.
type SummaryComputedPayload struct {
	PatientID           string            `json:"patient_id"           validate:"required"`
	ConfigID            string            `json:"config_id"            validate:"required"`
	Method              AggregationMethod `json:"method"               validate:"required"`
	Score               float64           `json:"score"                validate:"min=0,max=100"`
	PassRate            float64           `json:"pass_rate"            validate:"min=0,max=1"`
	ScoredWindows       int               `json:"scored_windows"       validate:"min=0"`
	InsufficientWindows int               `json:"insufficient_windows" validate:"min=0"`
}

// GenerateIdempotencyKey creates a deterministic key for event deduplication.
func GenerateIdempotencyKey(batchRunID, eventSuffix string) string {
	sum := sha256.Sum256([]byte(batchRunID + eventSuffix))
	return hex.EncodeToString(sum[:])
}

// WindowScoredIdempotencyKey keys a unit event: H(run || ":unit:" || unit key).
func WindowScoredIdempotencyKey(batchRunID, unitKey string) string {
	return GenerateIdempotencyKey(batchRunID, ":unit:"+unitKey)
}

// SummaryComputedIdempotencyKey keys a summary event.
func SummaryComputedIdempotencyKey(batchRunID, patientID, configID string) string {
	return GenerateIdempotencyKey(batchRunID, fmt.Sprintf(":summary:%s/%s", patientID, configID))
}

func newEventEnvelope(
	eventType EventType,
	batchRunID, workflowID, runID, idemKey, producer string,
	payload any,
) (EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	envelope := EventEnvelope{
		IdempotencyKey: idemKey,
		EventType:      eventType,
		Version:        1,
		OccurredAt:     time.Now(),
		BatchRunID:     batchRunID,
		WorkflowID:     workflowID,
		RunID:          runID,
		Payload:        data,
		Producer:       producer,
	}
	if err := envelope.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid event envelope: %w", err)
	}
	return envelope, nil
}

// NewWindowScoredEvent creates a WindowScored envelope for one unit result.
func NewWindowScoredEvent(batchRunID, workflowID, runID string, res UnitResult) (EventEnvelope, error) {
	payload := WindowScoredPayload{
		PatientID:   res.PatientID,
		ConfigID:    res.ConfigID,
		WindowIndex: res.WindowIndex,
		Status:      "failed",
		ErrorKind:   res.ErrorKind,
	}
	if res.Result != nil {
		payload.Algorithm = res.Result.Algorithm
		payload.Score = res.Result.Score
		payload.Passed = res.Result.Passed
		payload.Status = string(res.Result.Status)
	}
	if err := validate.Struct(payload); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid window scored payload: %w", err)
	}
	key := fmt.Sprintf("%s/%s/%d", res.PatientID, res.ConfigID, res.WindowIndex)
	return newEventEnvelope(EventTypeWindowScored, batchRunID, workflowID, runID,
		WindowScoredIdempotencyKey(batchRunID, key), "activity.score_units", payload)
}

// NewSummaryComputedEvent creates a SummaryComputed envelope.
func NewSummaryComputedEvent(batchRunID, workflowID, runID string, s WindowSummary) (EventEnvelope, error) {
	payload := SummaryComputedPayload{
		PatientID:           s.PatientID,
		ConfigID:            s.ConfigID,
		Method:              s.Method,
		Score:               s.Score,
		PassRate:            s.PassRate,
		ScoredWindows:       s.ScoredWindows,
		InsufficientWindows: s.InsufficientWindows,
	}
	if err := validate.Struct(payload); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid summary computed payload: %w", err)
	}
	return newEventEnvelope(EventTypeSummaryComputed, batchRunID, workflowID, runID,
		SummaryComputedIdempotencyKey(batchRunID, s.PatientID, s.ConfigID), "activity.summarize_windows", payload)
}
