package aggregation

import (
	"context"

	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/pkg/activity"
)

// Activities handles aggregation-specific Temporal activities.
type Activities struct {
	activity.BaseActivities
	events *EventEmitter
}

// NewActivities creates aggregation activities with the provided dependencies.
// The base activities provide common infrastructure for logging and event emission.
func NewActivities(base activity.BaseActivities) *Activities {
	return &Activities{
		BaseActivities: base,
		events:         NewEventEmitter(base),
	}
}

// SummarizeWindows rolls the unit results of a run up into one summary per
// patient and configuration. A zero policy means the default mean.
func (a *Activities) SummarizeWindows(
	ctx context.Context,
	input domain.SummarizeWindowsInput,
) (*domain.SummarizeWindowsOutput, error) {
	if input.Policy.Method == "" {
		input.Policy = domain.DefaultAggregationPolicy()
	}
	if err := input.Validate(); err != nil {
		return nil, nonRetryable("SummarizeWindows", err, "invalid input")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	activity.SafeLog(ctx, "Starting SummarizeWindows activity",
		"workflow_id", wfCtx.WorkflowID,
		"activity_id", wfCtx.ActivityID,
		"batch_run_id", input.RunID,
		"results", len(input.Results),
		"method", input.Policy.Method)

	summaries, err := Summarize(input.Results, input.Policy)
	if err != nil {
		return nil, nonRetryable("SummarizeWindows", err, "aggregation failed")
	}

	for _, s := range summaries {
		a.events.EmitSummaryComputed(ctx, input.RunID, s, wfCtx)
	}

	activity.SafeLog(ctx, "SummarizeWindows completed",
		"batch_run_id", input.RunID,
		"summaries", len(summaries))

	return &domain.SummarizeWindowsOutput{Summaries: summaries}, nil
}

// Error helpers - wrap errors as Temporal application errors

func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}
