package scoring

import (
	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/frequency"
)

// evaluateProportional reduces the window with the configured calculation
// method and awards credit proportional to progress toward the target.
func evaluateProportional(
	cfg *domain.AlgorithmConfig,
	p *domain.ProportionalParams,
	in domain.EvaluationInput,
) (domain.ScoreResult, error) {
	s, err := primarySeries(cfg, in)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	v, err := frequency.AggregatePeriod(p.CalculationMethod, s)
	if err != nil {
		return domain.ScoreResult{}, aggregateError(cfg, s, err)
	}

	score, raw := proportionalScore(p, v)
	return domain.NewPartialCreditResult(cfg, score, map[string]any{
		"value":             v,
		"target":            p.Target,
		"calculationMethod": string(p.CalculationMethod),
		"progressDirection": p.ProgressDirection,
		"rawScore":          raw,
		"partialCredit":     p.PartialCredit,
	}), nil
}

// proportionalScore returns the clamped score and the unclamped raw score.
// Buildup rewards reaching the target; countdown rewards staying under it.
// Without partial credit any raw score below the cap collapses to the minimum.
func proportionalScore(p *domain.ProportionalParams, v float64) (score, raw float64) {
	if p.ProgressDirection == domain.DirectionCountdown {
		raw = 100 - (v-p.Target)/p.Target*100
	} else {
		raw = v / p.Target * 100
	}
	score = min(max(raw, p.MinimumThreshold), p.MaximumCap)
	if !p.PartialCredit && raw < p.MaximumCap {
		score = p.MinimumThreshold
	}
	return score, raw
}

// evaluateHybrid scores each day proportionally (capped at 100), keeps days at
// or above the qualifying threshold, and averages the best
// RequiredQualifyingDays of them. Too few qualifying days scores 0.
func evaluateHybrid(
	cfg *domain.AlgorithmConfig,
	p *domain.ProportionalFrequencyHybridParams,
	in domain.EvaluationInput,
) (domain.ScoreResult, error) {
	s, err := primarySeries(cfg, in)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	daily := make([]*float64, len(s))
	qualifying := make([]float64, 0, len(s))
	for i, day := range s {
		if day.Value == nil {
			continue
		}
		score := min(100, max(0, *day.Value/p.DailyTarget*100))
		daily[i] = domain.Float(score)
		if *day.Value >= p.DailyMinimumThreshold {
			qualifying = append(qualifying, score)
		}
	}

	breakdown := map[string]any{
		"dailyScores":            daily,
		"dailyTarget":            p.DailyTarget,
		"dailyMinimumThreshold":  p.DailyMinimumThreshold,
		"qualifyingDays":         len(qualifying),
		"requiredQualifyingDays": p.RequiredQualifyingDays,
	}
	if len(qualifying) < p.RequiredQualifyingDays {
		breakdown["floorMet"] = false
		return domain.NewScoreResult(cfg, 0, false, breakdown), nil
	}

	mean, err := frequency.TopN(qualifying, p.RequiredQualifyingDays)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	breakdown["floorMet"] = true
	breakdown["topMean"] = mean
	return domain.NewPartialCreditResult(cfg, mean, breakdown), nil
}
