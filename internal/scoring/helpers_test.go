package scoring //nolint:testpackage // Need access to unexported evaluators

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-adhere/internal/domain"
)

// mustConfig parses a configuration record or fails the test.
func mustConfig(t *testing.T, record string) *domain.AlgorithmConfig {
	t.Helper()
	cfg, err := domain.ParseConfig([]byte(record))
	require.NoError(t, err)
	return cfg
}

// week builds a fully observed seven-day input starting at day 0.
func week(values ...float64) domain.EvaluationInput {
	return domain.EvaluationInput{Series: domain.SeriesFromValues(0, values...)}
}

// day builds a one-day input.
func day(v float64) domain.EvaluationInput {
	return domain.EvaluationInput{Series: domain.SeriesFromValues(0, v)}
}

// mustScore evaluates through a fresh registry and requires a scored result.
func mustScore(t *testing.T, cfg *domain.AlgorithmConfig, in domain.EvaluationInput) domain.ScoreResult {
	t.Helper()
	res, err := NewRegistry().Evaluate(cfg, in)
	require.NoError(t, err)
	require.Equal(t, domain.StatusScored, res.Status, "breakdown: %v", res.Breakdown)
	require.NoError(t, res.Validate())
	return res
}

// mustInsufficient evaluates and requires an insufficient_data result.
func mustInsufficient(t *testing.T, cfg *domain.AlgorithmConfig, in domain.EvaluationInput) domain.ScoreResult {
	t.Helper()
	res, err := NewRegistry().Evaluate(cfg, in)
	require.NoError(t, err)
	require.True(t, res.Insufficient(), "expected insufficient data, got %+v", res)
	require.Zero(t, res.Score)
	require.False(t, res.Passed)
	return res
}

// requireShapeError evaluates and requires a DataShapeError.
func requireShapeError(t *testing.T, cfg *domain.AlgorithmConfig, in domain.EvaluationInput) {
	t.Helper()
	_, err := NewRegistry().Evaluate(cfg, in)
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrDataShape)
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func itoa(v int) string { return strconv.Itoa(v) }
