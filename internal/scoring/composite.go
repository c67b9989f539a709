package scoring

import (
	"errors"
	"fmt"

	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/frequency"
)

// componentScore is one component's contribution on one day.
type componentScore struct {
	Value    float64 `json:"value"`
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
	Zone     string  `json:"zone,omitempty"`
}

// evaluateComposite combines independently scored components by weight.
// Daily mode scores each component's last value. Frequency mode computes the
// composite per day, then applies the requirement to days at or above
// DailyPassThreshold, or averages the days when RequiredDays is zero.
// Weights were checked to sum to 1 when the configuration was parsed.
func evaluateComposite(
	cfg *domain.AlgorithmConfig,
	p *domain.CompositeWeightedParams,
	in domain.EvaluationInput,
) (domain.ScoreResult, error) {
	series := make([]domain.MetricSeries, len(p.Components))
	for i, c := range p.Components {
		s, err := subSeries(cfg, in, c.Metric, false)
		if err != nil {
			return domain.ScoreResult{}, err
		}
		series[i] = s
	}

	if p.Mode == domain.ModeDaily {
		values := make([]float64, len(p.Components))
		for i, c := range p.Components {
			v, err := lastValue(cfg, c.Metric, series[i])
			if err != nil {
				return domain.ScoreResult{}, err
			}
			values[i] = v
		}
		total, parts, err := compositeDay(cfg, p.Components, values)
		if err != nil {
			return domain.ScoreResult{}, err
		}
		return domain.NewPartialCreditResult(cfg, total, map[string]any{
			"mode":       p.Mode,
			"components": parts,
		}), nil
	}

	days := cfg.WindowDays
	dailyScores := make([]*float64, days)
	statuses := make([]frequency.DayStatus, days)
	scored := make([]float64, 0, days)
	values := make([]float64, len(p.Components))
	for d := 0; d < days; d++ {
		complete := true
		for i := range p.Components {
			v, ok := series[i].At(d)
			if !ok {
				complete = false
				break
			}
			values[i] = v
		}
		if !complete {
			continue
		}
		total, _, err := compositeDay(cfg, p.Components, values)
		if err != nil {
			return domain.ScoreResult{}, err
		}
		dailyScores[d] = domain.Float(domain.RoundScore(total))
		statuses[d] = frequency.StatusOf(true, total >= p.DailyPassThreshold)
		scored = append(scored, total)
	}
	if len(scored) < cfg.MinimumDataDays {
		return domain.ScoreResult{}, &domain.InsufficientDataError{
			ConfigID:      cfg.ConfigID,
			Series:        "components",
			AvailableDays: len(scored),
			RequiredDays:  cfg.MinimumDataDays,
		}
	}

	breakdown := map[string]any{
		"mode":        p.Mode,
		"dailyScores": dailyScores,
		"scoredDays":  len(scored),
	}
	if p.RequiredDays == 0 {
		mean, _ := frequency.Reduce(domain.CalcAverage, scored)
		breakdown["averageScore"] = mean
		return domain.NewPartialCreditResult(cfg, mean, breakdown), nil
	}

	out, err := frequency.Resolve(p.Requirement(), statuses)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	breakdown["dailyPassThreshold"] = p.DailyPassThreshold
	breakdown["qualifyingDays"] = out.SatisfiedDays
	breakdown["requiredDays"] = out.RequiredDays
	return domain.NewScoreResult(cfg, out.Score(), out.Met, breakdown), nil
}

// compositeDay scores one day's component values and returns the weighted sum.
func compositeDay(cfg *domain.AlgorithmConfig, comps []domain.Component, values []float64) (float64, map[string]componentScore, error) {
	parts := make(map[string]componentScore, len(comps))
	var total float64
	for i, c := range comps {
		score, label, err := scoreComponent(c, values[i])
		if errors.Is(err, domain.ErrConfigValidation) {
			return 0, nil, err
		}
		if err != nil {
			return 0, nil, &domain.DataShapeError{ConfigID: cfg.ConfigID, Series: c.Metric, Reason: err.Error()}
		}
		weighted := score * c.Weight
		total += weighted
		parts[c.Name] = componentScore{Value: values[i], Score: score, Weight: c.Weight, Weighted: weighted, Zone: label}
	}
	return total, parts, nil
}

// scoreComponent applies a component's sub-algorithm to a single value.
func scoreComponent(c domain.Component, v float64) (float64, string, error) {
	switch sp := c.Params.(type) {
	case *domain.ProportionalParams:
		score, _ := proportionalScore(sp, v)
		return score, "", nil
	case *domain.BinaryThresholdParams:
		score, _ := binaryThresholdScore(sp, v)
		return score, "", nil
	case *domain.ZoneBasedParams:
		return zoneScore(sp, v)
	default:
		return 0, "", &domain.ConfigValidationError{
			Field:  "components." + c.Name,
			Reason: fmt.Sprintf("unsupported sub-algorithm %s", c.SubAlgorithm),
		}
	}
}
