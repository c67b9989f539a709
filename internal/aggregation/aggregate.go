// Package aggregation rolls per-window score results up into one summary per
// patient and configuration, and exposes that roll-up as a Temporal activity.
package aggregation

import (
	"fmt"
	"math"
	"sort"

	"github.com/ahrav/go-adhere/internal/domain"
)

type seriesKey struct {
	patientID string
	configID  string
}

// Summarize groups results by patient and configuration and combines the
// scored windows of each group with policy. Insufficient-data windows and
// failed units are counted but never averaged in, so a summary over nothing
// but insufficient windows reports insufficient_data rather than a zero score.
// Summaries are ordered by patient then configuration.
func Summarize(results []domain.UnitResult, policy domain.AggregationPolicy) ([]domain.WindowSummary, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid aggregation policy: %w", err)
	}

	groups := make(map[seriesKey]*domain.WindowSummary)
	scores := make(map[seriesKey][]float64)
	for _, r := range results {
		k := seriesKey{patientID: r.PatientID, configID: r.ConfigID}
		s, ok := groups[k]
		if !ok {
			s = &domain.WindowSummary{PatientID: r.PatientID, ConfigID: r.ConfigID, Method: policy.Method}
			groups[k] = s
		}
		s.Windows++
		switch {
		case r.Failed():
			s.FailedWindows++
		case r.Result.Insufficient():
			s.Algorithm = r.Result.Algorithm
			s.InsufficientWindows++
		default:
			s.Algorithm = r.Result.Algorithm
			s.ScoredWindows++
			if r.Result.Passed {
				s.PassedWindows++
			}
			scores[k] = append(scores[k], r.Result.Score)
		}
	}

	out := make([]domain.WindowSummary, 0, len(groups))
	for k, s := range groups {
		s.Status = domain.StatusInsufficientData
		if s.ScoredWindows > 0 {
			s.Status = domain.StatusScored
			s.Score = domain.RoundScore(Combine(policy, scores[k]))
			s.PassRate = float64(s.PassedWindows) / float64(s.ScoredWindows)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PatientID != out[j].PatientID {
			return out[i].PatientID < out[j].PatientID
		}
		return out[i].ConfigID < out[j].ConfigID
	})
	return out, nil
}

// Combine reduces scores with the policy's method. It returns 0 for no scores.
func Combine(policy domain.AggregationPolicy, scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	switch policy.Method {
	case domain.AggregationMethodMedian:
		return median(scores)
	case domain.AggregationMethodTrimmedMean:
		return trimmedMean(scores, policy.TrimFraction)
	default:
		return mean(scores)
	}
}

func mean(scores []float64) float64 {
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func median(scores []float64) float64 {
	sorted := sortedCopy(scores)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// trimmedMean drops floor(n*fraction) scores from each end. When trimming
// would leave nothing the median is used instead.
func trimmedMean(scores []float64, fraction float64) float64 {
	sorted := sortedCopy(scores)
	k := int(math.Floor(float64(len(sorted)) * fraction))
	if 2*k >= len(sorted) {
		return median(sorted)
	}
	return mean(sorted[k : len(sorted)-k])
}

func sortedCopy(scores []float64) []float64 {
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	return sorted
}
