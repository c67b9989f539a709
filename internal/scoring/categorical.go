package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/frequency"
)

// evaluateCategoricalFilter filters logged entries by category, reduces them
// with count, sum or exists, and compares the result with the threshold. Period
// mode reduces the whole window once; daily mode compares each day and applies
// the frequency requirement. Category matching ignores case.
func evaluateCategoricalFilter(
	cfg *domain.AlgorithmConfig,
	p *domain.CategoricalFilterParams,
	in domain.EvaluationInput,
) (domain.ScoreResult, error) {
	if in.Entries == nil {
		return domain.ScoreResult{}, &domain.InsufficientDataError{
			ConfigID:     cfg.ConfigID,
			Series:       cfg.Metric,
			RequiredDays: cfg.MinimumDataDays,
		}
	}

	categories := make(map[string]struct{}, len(p.Categories))
	for _, c := range p.Categories {
		categories[strings.ToLower(c)] = struct{}{}
	}
	include := p.FilterType == domain.FilterInclude

	end := in.StartDay + cfg.WindowDays
	byDay := make([][]domain.CategoricalEntry, cfg.WindowDays)
	matched := 0
	matchedByCategory := map[string]int{}
	for _, e := range in.Entries {
		if e.Day < in.StartDay || e.Day >= end {
			return domain.ScoreResult{}, &domain.DataShapeError{
				ConfigID: cfg.ConfigID,
				Series:   cfg.Metric,
				Reason:   fmt.Sprintf("entry on day %d outside window [%d,%d)", e.Day, in.StartDay, end),
			}
		}
		if math.IsNaN(e.Quantity) || math.IsInf(e.Quantity, 0) || e.Quantity < 0 {
			return domain.ScoreResult{}, &domain.DataShapeError{
				ConfigID: cfg.ConfigID,
				Series:   cfg.Metric,
				Reason:   fmt.Sprintf("entry on day %d has invalid quantity %v", e.Day, e.Quantity),
			}
		}
		name := strings.ToLower(e.Category)
		if _, listed := categories[name]; listed != include {
			continue
		}
		byDay[e.Day-in.StartDay] = append(byDay[e.Day-in.StartDay], e)
		matched++
		matchedByCategory[name]++
	}

	breakdown := map[string]any{
		"mode":               p.Mode,
		"filterType":         p.FilterType,
		"calculationMethod":  string(p.CalculationMethod),
		"threshold":          p.Threshold,
		"comparisonOperator": string(p.ComparisonOperator),
		"matchedEntries":     matched,
		"matchedCategories":  matchedByCategory,
	}

	if p.Mode == domain.ModePeriod {
		var all []domain.CategoricalEntry
		for _, day := range byDay {
			all = append(all, day...)
		}
		value := reduceEntries(p.CalculationMethod, all)
		holds := p.ComparisonOperator.Holds(value, p.Threshold)
		breakdown["value"] = value
		return domain.NewScoreResult(cfg, binaryScore(holds), holds, breakdown), nil
	}

	statuses := make([]frequency.DayStatus, len(byDay))
	dailyValues := make([]float64, len(byDay))
	for i, day := range byDay {
		dailyValues[i] = reduceEntries(p.CalculationMethod, day)
		statuses[i] = frequency.StatusOf(true, p.ComparisonOperator.Holds(dailyValues[i], p.Threshold))
	}
	out, err := frequency.Resolve(p.Requirement(), statuses)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	breakdown["dailyValues"] = dailyValues
	breakdown["qualifyingDays"] = out.SatisfiedDays
	breakdown["requiredDays"] = out.RequiredDays
	return domain.NewScoreResult(cfg, out.Score(), out.Met, breakdown), nil
}

// reduceEntries reduces matched entries: count of entries, summed quantity, or
// 1/0 for existence.
func reduceEntries(method domain.CalculationMethod, entries []domain.CategoricalEntry) float64 {
	switch method {
	case domain.CalcSum:
		var total float64
		for _, e := range entries {
			total += e.Quantity
		}
		return total
	case domain.CalcExists:
		if len(entries) > 0 {
			return 1
		}
		return 0
	default:
		return float64(len(entries))
	}
}
