package scoring

import (
	"errors"

	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/frequency"
)

// evaluateBinaryThreshold scores the window's last value against one threshold.
// There is no partial credit.
func evaluateBinaryThreshold(
	cfg *domain.AlgorithmConfig,
	p *domain.BinaryThresholdParams,
	in domain.EvaluationInput,
) (domain.ScoreResult, error) {
	s, err := primarySeries(cfg, in)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	v, err := lastValue(cfg, cfg.Metric, s)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	score, holds := binaryThresholdScore(p, v)
	return domain.NewScoreResult(cfg, score, holds, map[string]any{
		"value":              v,
		"threshold":          p.Threshold,
		"comparisonOperator": string(p.ComparisonOperator),
		"conditionMet":       holds,
	}), nil
}

func binaryThresholdScore(p *domain.BinaryThresholdParams, v float64) (float64, bool) {
	if p.ComparisonOperator.Holds(v, p.Threshold) {
		return p.SuccessValue, true
	}
	return p.FailureValue, false
}

// evaluateMinimumFrequency counts days meeting the daily condition and applies
// the frequency requirement, or compares a single period aggregate. Missing
// days fail the daily condition. The score is always 100 or 0.
func evaluateMinimumFrequency(
	cfg *domain.AlgorithmConfig,
	p *domain.MinimumFrequencyParams,
	in domain.EvaluationInput,
) (domain.ScoreResult, error) {
	s, err := primarySeries(cfg, in)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	if p.Mode == domain.ModePeriodAggregate {
		agg, err := frequency.AggregatePeriod(p.CalculationMethod, s)
		if err != nil {
			return domain.ScoreResult{}, aggregateError(cfg, s, err)
		}
		holds := p.ComparisonOperator.Holds(agg, p.Threshold)
		return domain.NewScoreResult(cfg, binaryScore(holds), holds, map[string]any{
			"mode":               p.Mode,
			"calculationMethod":  string(p.CalculationMethod),
			"aggregate":          agg,
			"threshold":          p.Threshold,
			"comparisonOperator": string(p.ComparisonOperator),
			"observedDays":       s.Observed(),
		}), nil
	}

	statuses := make([]frequency.DayStatus, len(s))
	daily := make([]string, len(s))
	for i, day := range s {
		statuses[i] = frequency.StatusOf(day.Value != nil,
			day.Value != nil && p.DailyComparison.Holds(*day.Value, p.DailyThreshold))
		daily[i] = statuses[i].String()
	}
	out, err := frequency.Resolve(p.Requirement(), statuses)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	return domain.NewScoreResult(cfg, out.Score(), out.Met, map[string]any{
		"mode":            p.Mode,
		"frequencyMode":   string(p.FrequencyMode),
		"qualifyingDays":  out.SatisfiedDays,
		"requiredDays":    out.RequiredDays,
		"totalDays":       out.TotalDays,
		"longestRun":      out.LongestRun,
		"missingDays":     out.MissingDays,
		"dailyThreshold":  p.DailyThreshold,
		"dailyComparison": string(p.DailyComparison),
		"dailyResults":    daily,
	}), nil
}

// evaluateWeeklyElimination applies zero tolerance: any observed day failing the
// elimination condition scores the whole window 0. Limit mode compares the
// window sum with the weekly cap instead.
func evaluateWeeklyElimination(
	cfg *domain.AlgorithmConfig,
	p *domain.WeeklyEliminationParams,
	in domain.EvaluationInput,
) (domain.ScoreResult, error) {
	s, err := primarySeries(cfg, in)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	if p.Mode == domain.ModeLimit {
		total, err := frequency.AggregatePeriod(domain.CalcSum, s)
		if err != nil {
			return domain.ScoreResult{}, aggregateError(cfg, s, err)
		}
		holds := p.LimitComparison.Holds(total, p.WeeklyLimit)
		return domain.NewScoreResult(cfg, binaryScore(holds), holds, map[string]any{
			"mode":            p.Mode,
			"weeklyTotal":     total,
			"weeklyLimit":     p.WeeklyLimit,
			"limitComparison": string(p.LimitComparison),
			"observedDays":    s.Observed(),
		}), nil
	}

	violations := []int{}
	for i, day := range s {
		if day.Value != nil && !p.EliminationComparison.Holds(*day.Value, p.EliminationThreshold) {
			violations = append(violations, i)
		}
	}
	clean := len(violations) == 0
	breakdown := map[string]any{
		"mode":                  p.Mode,
		"eliminationThreshold":  p.EliminationThreshold,
		"eliminationComparison": string(p.EliminationComparison),
		"violationDays":         violations,
		"observedDays":          s.Observed(),
	}
	if !clean {
		breakdown["violationDayIndex"] = violations[0]
		breakdown["violationDay"] = s[violations[0]].Day
	}
	return domain.NewScoreResult(cfg, binaryScore(clean), clean, breakdown), nil
}

// aggregateError maps an empty aggregate onto insufficient data.
func aggregateError(cfg *domain.AlgorithmConfig, s domain.MetricSeries, err error) error {
	if errors.Is(err, frequency.ErrNoObservations) {
		return &domain.InsufficientDataError{
			ConfigID:      cfg.ConfigID,
			Series:        cfg.Metric,
			AvailableDays: s.Observed(),
			RequiredDays:  max(1, cfg.MinimumDataDays),
		}
	}
	return err
}
