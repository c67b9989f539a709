// Package zone resolves metric values to labeled score zones.
//
// A valid ZoneSet covers its range without gaps or overlaps and assigns every
// shared boundary to exactly one zone, so any finite value inside the range
// matches exactly one zone. Values outside the range clamp to the nearest
// terminal zone.
package zone

import (
	"errors"
	"fmt"
	"math"

	"github.com/ahrav/go-adhere/internal/domain"
)

var (
	// ErrNonFinite is returned for NaN or infinite values.
	ErrNonFinite = errors.New("value is not finite")

	// ErrNoZone is returned when a set violates the coverage invariant and
	// leaves the value unmatched. Validated sets never produce it.
	ErrNoZone = errors.New("no zone matches value")
)

// Result is the zone a value resolved to.
type Result struct {
	Index   int
	Zone    domain.Zone
	Clamped bool
}

// Label returns the matched zone label.
func (r Result) Label() string { return r.Zone.Label }

// Score returns the matched zone score.
func (r Result) Score() float64 { return r.Zone.Score }

// Match resolves value against a resolved, validated zone set.
func Match(set domain.ZoneSet, value float64) (Result, error) {
	if len(set) == 0 {
		return Result{}, domain.ErrEmptyZoneSet
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Result{}, fmt.Errorf("%v: %w", value, ErrNonFinite)
	}

	first, last := set[0], set[len(set)-1]
	if value < first.LowerBound || (value == first.LowerBound && !first.LowInclusive()) {
		return Result{Index: 0, Zone: first, Clamped: true}, nil
	}
	if value > last.UpperBound || (value == last.UpperBound && !last.HighInclusive()) {
		return Result{Index: len(set) - 1, Zone: last, Clamped: true}, nil
	}
	for i, z := range set {
		if z.Contains(value) {
			return Result{Index: i, Zone: z}, nil
		}
	}
	return Result{}, fmt.Errorf("%v: %w", value, ErrNoZone)
}

// DayMatch is the classification of one day. Missing days are not matched.
type DayMatch struct {
	Day     int
	Matched bool
	Result  Result
}

// MatchSeries classifies every day of the series.
func MatchSeries(set domain.ZoneSet, series domain.MetricSeries) ([]DayMatch, error) {
	out := make([]DayMatch, len(series))
	for i, p := range series {
		out[i].Day = p.Day
		if p.Value == nil {
			continue
		}
		res, err := Match(set, *p.Value)
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", p.Day, err)
		}
		out[i].Matched = true
		out[i].Result = res
	}
	return out, nil
}
