// Package metricsource supplies patient metric data to the batch runner.
//
// Sources return windows that always cover the requested days: a day without
// a recorded value is an explicit nil, never omitted. A metric that a patient
// has never recorded is reported as ErrNoData so the evaluator can tell
// "no series" apart from "a series of missing days".
package metricsource

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahrav/go-adhere/internal/domain"
)

var (
	// ErrUnknownPatient is returned for a patient the source has no record of.
	ErrUnknownPatient = errors.New("unknown patient")

	// ErrNoData is returned when the patient has no data for a metric.
	ErrNoData = errors.New("no data for metric")
)

// Source provides daily metric series and categorical entries per patient.
type Source interface {
	// Patients lists patient IDs in a stable order.
	Patients(ctx context.Context) ([]string, error)

	// Series returns days values of metric starting at startDay.
	Series(ctx context.Context, patientID, metric string, startDay, days int) (domain.MetricSeries, error)

	// Entries returns the categorical entries of metric logged in
	// [startDay, startDay+days). Nothing logged is an empty, non-nil slice.
	Entries(ctx context.Context, patientID, metric string, startDay, days int) ([]domain.CategoricalEntry, error)

	// Horizon returns one past the last day with any data for the patient.
	Horizon(ctx context.Context, patientID string) (int, error)
}

// Input assembles the evaluation input a configuration needs for one window.
// Missing metrics are left absent so the evaluator reports insufficient data.
func Input(
	ctx context.Context,
	src Source,
	cfg *domain.AlgorithmConfig,
	patientID string,
	startDay int,
) (domain.EvaluationInput, error) {
	in := domain.EvaluationInput{StartDay: startDay}
	needs := cfg.RequiredMetrics()

	if needs.Entries {
		entries, err := src.Entries(ctx, patientID, needs.Primary, startDay, cfg.WindowDays)
		if err != nil && !errors.Is(err, ErrNoData) {
			return in, fmt.Errorf("entries %s/%s: %w", patientID, needs.Primary, err)
		}
		in.Entries = entries
		return in, nil
	}

	if needs.Primary != "" {
		s, err := src.Series(ctx, patientID, needs.Primary, startDay, cfg.WindowDays)
		if err != nil && !errors.Is(err, ErrNoData) {
			return in, fmt.Errorf("series %s/%s: %w", patientID, needs.Primary, err)
		}
		in.Series = s
	}
	for _, name := range needs.SubSeries {
		s, err := src.Series(ctx, patientID, name, startDay, cfg.WindowDays)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return in, fmt.Errorf("series %s/%s: %w", patientID, name, err)
		}
		if in.SubSeries == nil {
			in.SubSeries = make(map[string]domain.MetricSeries, len(needs.SubSeries))
		}
		in.SubSeries[name] = s
	}
	return in, nil
}
