package batch

import (
	"context"
	"fmt"

	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/metricsource"
)

// Plan expands patients × configurations × windows into evaluation units.
// Windows tile the patient's data horizon back to back starting at day 0; a
// trailing partial window is dropped, but every pair gets at least one window
// so a patient with too little data still yields an insufficient-data result.
// A nil patients slice plans every patient the source knows.
func Plan(
	ctx context.Context,
	src metricsource.Source,
	cfgs []*domain.AlgorithmConfig,
	patients []string,
) ([]domain.EvaluationUnit, error) {
	if patients == nil {
		var err error
		if patients, err = src.Patients(ctx); err != nil {
			return nil, fmt.Errorf("list patients: %w", err)
		}
	}

	var units []domain.EvaluationUnit
	for _, patientID := range patients {
		horizon, err := src.Horizon(ctx, patientID)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", patientID, err)
		}
		for _, cfg := range cfgs {
			windows := max(horizon/cfg.WindowDays, 1)
			for w := 0; w < windows; w++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				in, err := metricsource.Input(ctx, src, cfg, patientID, w*cfg.WindowDays)
				if err != nil {
					return nil, fmt.Errorf("plan %s/%s window %d: %w", patientID, cfg.ConfigID, w, err)
				}
				units = append(units, domain.EvaluationUnit{
					PatientID:   patientID,
					ConfigID:    cfg.ConfigID,
					WindowIndex: w,
					Input:       in,
				})
			}
		}
	}
	return units, nil
}
