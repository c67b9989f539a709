package scoring

import (
	"math"

	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/zone"
)

const (
	minutesPerDay = 24 * 60
	// Bedtimes before noon belong to the previous evening's schedule.
	bedtimeRollover = 12 * 60
)

// evaluateSleepComposite combines two fixed components: mean duration zone
// score over observed nights, and schedule consistency. A night is consistent
// when each of its recorded bed and wake times lies within ToleranceMinutes of
// the trailing rolling mean for that time.
func evaluateSleepComposite(
	cfg *domain.AlgorithmConfig,
	p *domain.SleepCompositeParams,
	in domain.EvaluationInput,
) (domain.ScoreResult, error) {
	duration, err := subSeries(cfg, in, p.DurationMetric, true)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	bed, err := optionalSeries(cfg, in, p.BedtimeMetric)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	wake, err := optionalSeries(cfg, in, p.WaketimeMetric)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	matches, err := zone.MatchSeries(p.DurationZones, duration)
	if err != nil {
		return domain.ScoreResult{}, &domain.DataShapeError{ConfigID: cfg.ConfigID, Series: p.DurationMetric, Reason: err.Error()}
	}
	var durationTotal float64
	nights := 0
	nightly := make([]*string, len(matches))
	for i, m := range matches {
		if !m.Matched {
			continue
		}
		label := m.Result.Label()
		nightly[i] = &label
		durationTotal += m.Result.Score()
		nights++
	}
	durationScore := durationTotal / float64(nights)

	bedTimes := normalizeBedtimes(bed)
	wakeTimes := seriesValues(wake, cfg.WindowDays)
	compliant, evaluated := 0, 0
	for i := 0; i < cfg.WindowDays; i++ {
		bedOK, bedSeen := withinTolerance(bedTimes, i, p.RollingWindowDays, p.ToleranceMinutes)
		wakeOK, wakeSeen := withinTolerance(wakeTimes, i, p.RollingWindowDays, p.ToleranceMinutes)
		if !bedSeen && !wakeSeen {
			continue
		}
		evaluated++
		if (!bedSeen || bedOK) && (!wakeSeen || wakeOK) {
			compliant++
		}
	}
	if evaluated == 0 {
		return domain.ScoreResult{}, &domain.InsufficientDataError{
			ConfigID:     cfg.ConfigID,
			Series:       p.BedtimeMetric,
			RequiredDays: 1,
		}
	}
	consistencyScore := 100 * float64(compliant) / float64(evaluated)

	total := durationScore*p.DurationWeight + consistencyScore*p.ConsistencyWeight
	return domain.NewPartialCreditResult(cfg, total, map[string]any{
		"durationScore":     durationScore,
		"consistencyScore":  consistencyScore,
		"durationWeight":    p.DurationWeight,
		"consistencyWeight": p.ConsistencyWeight,
		"durationNights":    nights,
		"compliantNights":   compliant,
		"evaluatedNights":   evaluated,
		"nightlyZones":      nightly,
		"toleranceMinutes":  p.ToleranceMinutes,
	}), nil
}

// optionalSeries returns a shape-checked sub-series, or nil when it is absent.
func optionalSeries(cfg *domain.AlgorithmConfig, in domain.EvaluationInput, name string) (domain.MetricSeries, error) {
	s, ok := in.Sub(name, false)
	if !ok {
		return nil, nil
	}
	if err := s.ValidateShape(cfg.WindowDays); err != nil {
		return nil, &domain.DataShapeError{ConfigID: cfg.ConfigID, Series: name, Reason: err.Error()}
	}
	return s, nil
}

// seriesValues spreads a series over the window with NaN for missing days.
func seriesValues(s domain.MetricSeries, days int) []float64 {
	out := make([]float64, days)
	for i := range out {
		out[i] = math.NaN()
		if v, ok := s.At(i); ok {
			out[i] = v
		}
	}
	return out
}

// normalizeBedtimes moves after-midnight bedtimes past 24:00 so that 23:30 and
// 00:30 are an hour apart rather than 23 hours.
func normalizeBedtimes(s domain.MetricSeries) []float64 {
	out := seriesValues(s, len(s))
	for i, v := range out {
		if !math.IsNaN(v) && v < bedtimeRollover {
			out[i] = v + minutesPerDay
		}
	}
	return out
}

// withinTolerance compares night i with the mean of the trailing window ending
// at i, including i itself. seen is false when night i has no value.
func withinTolerance(times []float64, i, window int, tolerance float64) (ok, seen bool) {
	if i >= len(times) || math.IsNaN(times[i]) {
		return false, false
	}
	var sum float64
	n := 0
	for j := max(0, i-window+1); j <= i; j++ {
		if !math.IsNaN(times[j]) {
			sum += times[j]
			n++
		}
	}
	return math.Abs(times[i]-sum/float64(n)) <= tolerance, true
}
