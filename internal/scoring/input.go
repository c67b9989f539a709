package scoring

import (
	"github.com/ahrav/go-adhere/internal/domain"
)

// primarySeries returns the configuration's primary series after checking its
// shape against the window and its coverage against MinimumDataDays.
func primarySeries(cfg *domain.AlgorithmConfig, in domain.EvaluationInput) (domain.MetricSeries, error) {
	return checkSeries(cfg, cfg.Metric, in.Series)
}

// subSeries returns a named sub-series with the same checks as primarySeries.
// An absent series is missing metric data, not a shape error.
func subSeries(cfg *domain.AlgorithmConfig, in domain.EvaluationInput, name string, fallback bool) (domain.MetricSeries, error) {
	s, ok := in.Sub(name, fallback)
	if !ok {
		return nil, &domain.InsufficientDataError{
			ConfigID:     cfg.ConfigID,
			Series:       name,
			RequiredDays: cfg.MinimumDataDays,
		}
	}
	return checkSeries(cfg, name, s)
}

func checkSeries(cfg *domain.AlgorithmConfig, name string, s domain.MetricSeries) (domain.MetricSeries, error) {
	if err := s.ValidateShape(cfg.WindowDays); err != nil {
		return nil, &domain.DataShapeError{ConfigID: cfg.ConfigID, Series: name, Reason: err.Error()}
	}
	if observed := s.Observed(); observed < cfg.MinimumDataDays {
		return nil, &domain.InsufficientDataError{
			ConfigID:      cfg.ConfigID,
			Series:        name,
			AvailableDays: observed,
			RequiredDays:  cfg.MinimumDataDays,
		}
	}
	return s, nil
}

// lastValue returns the final day's value; a missing final day is insufficient data.
func lastValue(cfg *domain.AlgorithmConfig, name string, s domain.MetricSeries) (float64, error) {
	v, ok := s.Last()
	if !ok {
		return 0, &domain.InsufficientDataError{ConfigID: cfg.ConfigID, Series: name, RequiredDays: 1}
	}
	return v, nil
}

// binaryScore maps a condition onto 100/0.
func binaryScore(ok bool) float64 {
	if ok {
		return 100
	}
	return 0
}

// nullableValues renders a series for breakdowns, keeping missing days as nil.
func nullableValues(s domain.MetricSeries) []*float64 {
	out := make([]*float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}
