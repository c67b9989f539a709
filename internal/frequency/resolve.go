// Package frequency applies structured frequency requirements ("at least X of
// Y days", consecutive runs, avoidance) and period aggregates to day-level
// outcomes. Requirements always arrive as explicit fields; free-text phrases
// are converted once, ahead of time, by the migrate package.
package frequency

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ahrav/go-adhere/internal/domain"
)

var (
	// ErrWindowMismatch is returned when the day outcomes do not cover TotalDays.
	ErrWindowMismatch = errors.New("day outcomes do not match the requirement window")

	// ErrUnsupportedMode is returned for modes Resolve cannot apply day by day.
	ErrUnsupportedMode = errors.New("unsupported frequency mode")

	// ErrNoObservations is returned when an aggregate has no observed values.
	ErrNoObservations = errors.New("no observed values")

	// ErrTooFewScores is returned by TopN when fewer than n scores are available.
	ErrTooFewScores = errors.New("fewer scores than required")
)

// DayStatus is the outcome of one day before a requirement is applied.
type DayStatus int

const (
	// DayMissing marks a day without data. It never counts as satisfied.
	DayMissing DayStatus = iota
	// DaySatisfied marks a day that met the daily condition.
	DaySatisfied
	// DayUnsatisfied marks an observed day that missed the daily condition.
	DayUnsatisfied
)

// String returns the status name used in breakdowns.
func (s DayStatus) String() string {
	switch s {
	case DaySatisfied:
		return "satisfied"
	case DayUnsatisfied:
		return "unsatisfied"
	default:
		return "missing"
	}
}

// StatusOf converts an observation into a DayStatus.
func StatusOf(observed, satisfied bool) DayStatus {
	switch {
	case !observed:
		return DayMissing
	case satisfied:
		return DaySatisfied
	default:
		return DayUnsatisfied
	}
}

// Outcome reports how a window of days measured against a requirement.
type Outcome struct {
	Met           bool `json:"met"`
	SatisfiedDays int  `json:"satisfiedDays"`
	LongestRun    int  `json:"longestRun"`
	MissingDays   int  `json:"missingDays"`
	RequiredDays  int  `json:"requiredDays"`
	TotalDays     int  `json:"totalDays"`
}

// Resolve applies req to one status per day of the window.
//
// Count and avoidance modes need RequiredDays satisfied days anywhere in the
// window; for avoidance the caller marks a day satisfied when the behavior was
// avoided. Consecutive mode needs an unbroken run, and a missing day breaks it.
func Resolve(req domain.FrequencyRequirement, days []DayStatus) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}
	if len(days) != req.TotalDays {
		return Outcome{}, fmt.Errorf("%d days for a %d day requirement: %w", len(days), req.TotalDays, ErrWindowMismatch)
	}

	out := Outcome{RequiredDays: req.RequiredDays, TotalDays: req.TotalDays}
	run := 0
	for _, d := range days {
		switch d {
		case DaySatisfied:
			out.SatisfiedDays++
			run++
			out.LongestRun = max(out.LongestRun, run)
		case DayMissing:
			out.MissingDays++
			run = 0
		default:
			run = 0
		}
	}

	switch req.Mode {
	case domain.FrequencyCount, domain.FrequencyAvoidance:
		out.Met = out.SatisfiedDays >= req.RequiredDays
	case domain.FrequencyConsecutive:
		out.Met = out.LongestRun >= req.RequiredDays
	default:
		return Outcome{}, fmt.Errorf("%s: %w", req.Mode, ErrUnsupportedMode)
	}
	return out, nil
}

// Score converts an outcome into the binary 100/0 score.
func (o Outcome) Score() float64 {
	if o.Met {
		return 100
	}
	return 0
}

// AggregatePeriod reduces the observed values of a window with method.
// Count is the number of observed days with a positive value.
func AggregatePeriod(method domain.CalculationMethod, series domain.MetricSeries) (float64, error) {
	return Reduce(method, series.Values())
}

// Reduce applies method to values.
func Reduce(method domain.CalculationMethod, values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoObservations
	}
	switch method {
	case domain.CalcSum:
		return sum(values), nil
	case domain.CalcAverage:
		return sum(values) / float64(len(values)), nil
	case domain.CalcMax:
		m := values[0]
		for _, v := range values[1:] {
			m = max(m, v)
		}
		return m, nil
	case domain.CalcMin:
		m := values[0]
		for _, v := range values[1:] {
			m = min(m, v)
		}
		return m, nil
	case domain.CalcCount:
		n := 0
		for _, v := range values {
			if v > 0 {
				n++
			}
		}
		return float64(n), nil
	case domain.CalcExists:
		for _, v := range values {
			if v > 0 {
				return 1, nil
			}
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("calculation method %q: %w", method, ErrUnsupportedMode)
	}
}

// TopN returns the mean of the n highest scores.
func TopN(scores []float64, n int) (float64, error) {
	if n <= 0 || len(scores) < n {
		return 0, fmt.Errorf("%d scores, need %d: %w", len(scores), n, ErrTooFewScores)
	}
	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	return sum(sorted[:n]) / float64(n), nil
}

// Compare evaluates "value op threshold".
func Compare(value float64, op domain.ComparisonOperator, threshold float64) bool {
	return op.Holds(value, threshold)
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}
