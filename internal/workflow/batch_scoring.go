package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-adhere/internal/aggregation"
	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/scoring"
)

// DefaultChunkSize is the number of units sent to one ScoreUnits activity when
// the request does not set ChunkSize.
const DefaultChunkSize = 500

// Activity references for ExecuteActivity. Only the method names are used.
var (
	scoringActivities     *scoring.Activities
	aggregationActivities *aggregation.Activities
)

// BatchScoringWorkflow scores every unit of req and summarizes the results
// per patient and configuration. Units are scored in chunks that run in
// parallel; results keep the request's unit order. All workflow code must use
// workflow-safe APIs only.
func BatchScoringWorkflow(
	ctx workflow.Context,
	req domain.BatchRequest,
) (*domain.BatchReport, error) {
	// Version gate enables safe evolution and backward compatibility.
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "batch_scoring.v", workflow.DefaultVersion, currentVersion)

	if req.Summary.Method == "" {
		req.Summary = domain.DefaultAggregationPolicy()
	}
	if err := validateRequest(&req); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid batch request",
			"Validation",
			err,
		)
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	chunks := chunkUnits(req.Units, req.ChunkSize)
	logger.Info("Scoring batch", "run_id", req.RunID, "units", len(req.Units), "chunks", len(chunks))

	futures := make([]workflow.Future, len(chunks))
	for i, chunk := range chunks {
		futures[i] = workflow.ExecuteActivity(ctx, scoringActivities.ScoreUnits, domain.ScoreUnitsInput{
			RunID:   req.RunID,
			Configs: req.Configs,
			Units:   chunk,
		})
	}

	results := make([]domain.UnitResult, 0, len(req.Units))
	for i, f := range futures {
		var out domain.ScoreUnitsOutput
		if err := f.Get(ctx, &out); err != nil {
			logger.Error("Chunk scoring failed", "run_id", req.RunID, "chunk", i, "error", err)
			return nil, err
		}
		results = append(results, out.Results...)
	}

	var summary domain.SummarizeWindowsOutput
	err := workflow.ExecuteActivity(ctx, aggregationActivities.SummarizeWindows, domain.SummarizeWindowsInput{
		RunID:   req.RunID,
		Results: results,
		Policy:  req.Summary,
	}).Get(ctx, &summary)
	if err != nil {
		logger.Error("Summarizing windows failed", "run_id", req.RunID, "error", err)
		return nil, err
	}

	report := &domain.BatchReport{
		RunID:     req.RunID,
		Results:   results,
		Summaries: summary.Summaries,
	}
	report.Tally()
	logger.Info("Batch scored",
		"run_id", req.RunID,
		"scored", report.Scored,
		"insufficient", report.Insufficient,
		"failed", report.Failed)
	return report, nil
}

// validateRequest rejects malformed requests before any activity runs.
// Unknown configuration IDs on units are not rejected here; they surface as
// per-unit config failures.
func validateRequest(req *domain.BatchRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := req.Summary.Validate(); err != nil {
		return err
	}
	_, err := req.Index()
	return err
}

func chunkUnits(units []domain.EvaluationUnit, size int) [][]domain.EvaluationUnit {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]domain.EvaluationUnit, 0, (len(units)+size-1)/size)
	for start := 0; start < len(units); start += size {
		end := min(start+size, len(units))
		chunks = append(chunks, units[start:end])
	}
	return chunks
}
