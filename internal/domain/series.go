package domain

import (
	"fmt"
	"math"
)

// DataPoint is one day of a metric. A nil Value is an explicit missing day.
type DataPoint struct {
	Day   int      `json:"day"`
	Value *float64 `json:"value"`
}

// MetricSeries is an ordered window of daily values. Missing days are explicit
// nil values and are never omitted.
type MetricSeries []DataPoint

// Float returns a pointer to v, for building series literals.
func Float(v float64) *float64 { return &v }

// SeriesFromValues builds a fully observed series starting at startDay.
func SeriesFromValues(startDay int, values ...float64) MetricSeries {
	s := make(MetricSeries, len(values))
	for i, v := range values {
		s[i] = DataPoint{Day: startDay + i, Value: Float(v)}
	}
	return s
}

// SeriesFromNullable builds a series starting at startDay where nil entries are missing days.
func SeriesFromNullable(startDay int, values ...*float64) MetricSeries {
	s := make(MetricSeries, len(values))
	for i, v := range values {
		s[i] = DataPoint{Day: startDay + i, Value: v}
	}
	return s
}

// EmptySeries returns a window of missing days.
func EmptySeries(startDay, days int) MetricSeries {
	s := make(MetricSeries, days)
	for i := range s {
		s[i] = DataPoint{Day: startDay + i}
	}
	return s
}

// ValidateShape checks that the series covers exactly window consecutive days
// and that every observed value is finite.
func (s MetricSeries) ValidateShape(window int) error {
	if len(s) != window {
		return fmt.Errorf("series has %d days, window requires %d", len(s), window)
	}
	for i, p := range s {
		if i > 0 && p.Day != s[i-1].Day+1 {
			return fmt.Errorf("day %d follows day %d; days must be consecutive", p.Day, s[i-1].Day)
		}
		if p.Value != nil && (math.IsNaN(*p.Value) || math.IsInf(*p.Value, 0)) {
			return fmt.Errorf("day %d has non-finite value", p.Day)
		}
	}
	return nil
}

// StartDay returns the first day of the window, or 0 for an empty series.
func (s MetricSeries) StartDay() int {
	if len(s) == 0 {
		return 0
	}
	return s[0].Day
}

// Observed returns the number of days carrying a value.
func (s MetricSeries) Observed() int {
	n := 0
	for _, p := range s {
		if p.Value != nil {
			n++
		}
	}
	return n
}

// Values returns the observed values in day order, skipping missing days.
func (s MetricSeries) Values() []float64 {
	out := make([]float64, 0, len(s))
	for _, p := range s {
		if p.Value != nil {
			out = append(out, *p.Value)
		}
	}
	return out
}

// Last returns the value of the final day of the window.
// A missing final day reports ok=false.
func (s MetricSeries) Last() (float64, bool) {
	if len(s) == 0 || s[len(s)-1].Value == nil {
		return 0, false
	}
	return *s[len(s)-1].Value, true
}

// At returns the value at index i of the window.
func (s MetricSeries) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) || s[i].Value == nil {
		return 0, false
	}
	return *s[i].Value, true
}

// CategoricalEntry is one logged item, e.g. a meal tagged "takeout".
type CategoricalEntry struct {
	Day      int     `json:"day"`
	Category string  `json:"category"`
	Quantity float64 `json:"quantity"`
}

// EvaluationInput carries every series an evaluator may consume for one window.
// Series is the primary metric; SubSeries holds named component metrics for
// composite algorithms; Entries holds categorical logs. A nil Entries slice means
// the data source had no log for the metric, while an empty slice means nothing
// was logged.
type EvaluationInput struct {
	StartDay  int                     `json:"startDay"`
	Series    MetricSeries            `json:"series,omitempty"`
	SubSeries map[string]MetricSeries `json:"subSeries,omitempty"`
	Entries   []CategoricalEntry      `json:"entries"`
}

// Sub returns the named sub-series, falling back to the primary series when the
// name matches nothing and fallback is true.
func (in EvaluationInput) Sub(name string, fallback bool) (MetricSeries, bool) {
	if s, ok := in.SubSeries[name]; ok {
		return s, true
	}
	if fallback && in.Series != nil {
		return in.Series, true
	}
	return nil, false
}
