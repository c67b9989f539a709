package scoring

import (
	"slices"

	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/frequency"
	"github.com/ahrav/go-adhere/internal/zone"
)

// evaluateZoneBased scores values against a three- or five-tier zone table.
// Daily mode scores the window's last value; frequency mode requires one of the
// target zones on RequiredDays days; average mode averages observed zone scores.
func evaluateZoneBased(
	cfg *domain.AlgorithmConfig,
	p *domain.ZoneBasedParams,
	in domain.EvaluationInput,
) (domain.ScoreResult, error) {
	s, err := primarySeries(cfg, in)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	if p.Mode == domain.ModeDaily {
		v, err := lastValue(cfg, cfg.Metric, s)
		if err != nil {
			return domain.ScoreResult{}, err
		}
		m, err := zone.Match(p.Zones, v)
		if err != nil {
			return domain.ScoreResult{}, shapeError(cfg, err)
		}
		return domain.NewPartialCreditResult(cfg, m.Score(), map[string]any{
			"mode":      p.Mode,
			"value":     v,
			"zone":      m.Label(),
			"zoneIndex": m.Index,
			"zoneScore": m.Score(),
			"clamped":   m.Clamped,
		}), nil
	}

	matches, err := zone.MatchSeries(p.Zones, s)
	if err != nil {
		return domain.ScoreResult{}, shapeError(cfg, err)
	}
	counts := make(map[string]int, len(p.Zones))
	labels := make([]*string, len(matches))
	for i, m := range matches {
		if !m.Matched {
			continue
		}
		label := m.Result.Label()
		labels[i] = &label
		counts[label]++
	}
	breakdown := map[string]any{
		"mode":       p.Mode,
		"zoneCounts": counts,
		"dailyZones": labels,
	}

	if p.Mode == domain.ModeAverage {
		var total float64
		n := 0
		for _, m := range matches {
			if m.Matched {
				total += m.Result.Score()
				n++
			}
		}
		mean := total / float64(n)
		breakdown["averageZoneScore"] = mean
		return domain.NewPartialCreditResult(cfg, mean, breakdown), nil
	}

	statuses := make([]frequency.DayStatus, len(matches))
	for i, m := range matches {
		statuses[i] = frequency.StatusOf(m.Matched, m.Matched && slices.Contains(p.TargetZones, m.Result.Label()))
	}
	out, err := frequency.Resolve(p.Requirement(), statuses)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	breakdown["targetZones"] = p.TargetZones
	breakdown["qualifyingDays"] = out.SatisfiedDays
	breakdown["requiredDays"] = out.RequiredDays
	breakdown["longestRun"] = out.LongestRun
	return domain.NewScoreResult(cfg, out.Score(), out.Met, breakdown), nil
}

// shapeError reports a value the zone matcher rejected.
func shapeError(cfg *domain.AlgorithmConfig, err error) error {
	return &domain.DataShapeError{ConfigID: cfg.ConfigID, Series: cfg.Metric, Reason: err.Error()}
}

// zoneScore scores a single value for composite components.
func zoneScore(p *domain.ZoneBasedParams, v float64) (float64, string, error) {
	m, err := zone.Match(p.Zones, v)
	if err != nil {
		return 0, "", err
	}
	return m.Score(), m.Label(), nil
}
