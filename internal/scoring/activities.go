package scoring

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-adhere/internal/domain"
	pkgactivity "github.com/ahrav/go-adhere/pkg/activity"
)

// heartbeatEvery controls how often ScoreUnits reports progress.
const heartbeatEvery = 100

// ProgressReporter reports progress during long-running operations.
type ProgressReporter func(message string)

// NewTemporalProgressReporter creates a ProgressReporter that converts progress
// messages into Temporal heartbeats.
func NewTemporalProgressReporter(
	ctx context.Context, baseActivities pkgactivity.BaseActivities,
) ProgressReporter {
	return func(message string) {
		baseActivities.RecordHeartbeat(ctx, message)
	}
}

// Observer is told about every unit ScoreUnits evaluates.
type Observer interface {
	ObserveUnit(algorithm string, res domain.UnitResult, elapsed time.Duration)
}

// Activities exposes the evaluators to Temporal workflows.
type Activities struct {
	pkgactivity.BaseActivities
	registry *Registry
	events   *EventEmitter
	observer Observer
}

// NewActivities creates scoring activities backed by registry.
// A nil registry uses NewRegistry.
func NewActivities(base pkgactivity.BaseActivities, registry *Registry) *Activities {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Activities{
		BaseActivities: base,
		registry:       registry,
		events:         NewEventEmitter(base),
	}
}

// WithObserver reports each evaluated unit to o.
func (a *Activities) WithObserver(o Observer) *Activities {
	a.observer = o
	return a
}

// ScoreUnits evaluates a chunk of units in order. Per-unit configuration, shape
// and data problems are recorded on the unit and never fail the activity; only
// invalid input is fatal, and cancellation is returned as a retryable error.
func (a *Activities) ScoreUnits(
	ctx context.Context,
	input domain.ScoreUnitsInput,
) (*domain.ScoreUnitsOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, nonRetryable("ScoreUnits", err, "invalid input")
	}
	configs := make([]*domain.AlgorithmConfig, len(input.Configs))
	for i := range input.Configs {
		configs[i] = &input.Configs[i]
	}
	index, err := domain.NewConfigIndex(configs...)
	if err != nil {
		return nil, nonRetryable("ScoreUnits", err, "invalid configuration set")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	pkgactivity.SafeLog(ctx, "Starting ScoreUnits activity",
		"workflow_id", wfCtx.WorkflowID,
		"activity_id", wfCtx.ActivityID,
		"batch_run_id", input.RunID,
		"units", len(input.Units),
		"configs", len(input.Configs))

	progress := NewTemporalProgressReporter(ctx, a.BaseActivities)
	out := &domain.ScoreUnitsOutput{Results: make([]domain.UnitResult, len(input.Units))}
	for i, unit := range input.Units {
		if err := ctx.Err(); err != nil {
			return nil, retryable("ScoreUnits", err, "context cancelled")
		}
		if i%heartbeatEvery == 0 {
			progress(fmt.Sprintf("Scoring unit %d/%d (%s)", i+1, len(input.Units), unit.Key()))
		}
		start := time.Now()
		out.Results[i] = a.registry.EvaluateUnit(index, unit)
		if a.observer != nil {
			a.observer.ObserveUnit(algorithmOf(index, unit), out.Results[i], time.Since(start))
		}
		a.events.EmitWindowScored(ctx, input.RunID, out.Results[i], wfCtx)
	}

	report := domain.BatchReport{Results: out.Results}
	report.Tally()
	pkgactivity.SafeLog(ctx, "ScoreUnits completed",
		"batch_run_id", input.RunID,
		"scored", report.Scored,
		"insufficient", report.Insufficient,
		"failed", report.Failed)

	return out, nil
}

func algorithmOf(index domain.ConfigLookup, unit domain.EvaluationUnit) string {
	if cfg, ok := index.Config(unit.ConfigID); ok {
		return string(cfg.Method)
	}
	return "unknown"
}

// Error helpers wrap errors as Temporal application errors.

func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationErrorWithCause(msg, tag, cause)
}
