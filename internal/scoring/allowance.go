package scoring

import (
	"github.com/ahrav/go-adhere/internal/domain"
)

// evaluateConstrainedAllowance sums the window and penalizes every unit above
// the weekly allowance and every consumption day above MaxConsumptionDays.
// Both constraints must hold for the window to pass. An excess day costs the
// same PenaltyPerExcess as an excess unit.
func evaluateConstrainedAllowance(
	cfg *domain.AlgorithmConfig,
	p *domain.ConstrainedWeeklyAllowanceParams,
	in domain.EvaluationInput,
) (domain.ScoreResult, error) {
	s, err := primarySeries(cfg, in)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	var total float64
	consumptionDays := 0
	for _, v := range s.Values() {
		total += v
		if v > p.ConsumptionThreshold {
			consumptionDays++
		}
	}

	excessQuantity := max(0, total-p.WeeklyAllowance)
	excessDays := 0
	if p.MaxConsumptionDays != nil {
		excessDays = max(0, consumptionDays-*p.MaxConsumptionDays)
	}
	excessUnits := excessQuantity + float64(excessDays)

	score := p.BaseScore
	if excessUnits > 0 {
		score = max(p.MinimumScore, p.BaseScore-excessUnits*p.PenaltyPerExcess)
	}
	passed := excessQuantity == 0 && excessDays == 0

	breakdown := map[string]any{
		"weeklyTotal":     total,
		"weeklyAllowance": p.WeeklyAllowance,
		"excessQuantity":  excessQuantity,
		"consumptionDays": consumptionDays,
		"excessDays":      excessDays,
		"excessUnits":     excessUnits,
		"penalty":         p.BaseScore - score,
	}
	if p.MaxConsumptionDays != nil {
		breakdown["maxConsumptionDays"] = *p.MaxConsumptionDays
	}
	return domain.NewScoreResult(cfg, score, passed, breakdown), nil
}
