package domain

import (
	"errors"
	"math"
)

// ResultStatus distinguishes a computed score from a window that could not be scored.
type ResultStatus string

const (
	// StatusScored marks a result whose Score is meaningful.
	StatusScored ResultStatus = "scored"

	// StatusInsufficientData marks a window without enough observations.
	// Its Score is always 0 and must not be read as a legitimate zero.
	StatusInsufficientData ResultStatus = "insufficient_data"
)

// ScoreResult is the outcome of one evaluation. Breakdown carries enough detail
// to reconstruct the decision (zone label, qualifying days, violation index,
// component sub-scores).
type ScoreResult struct {
	ConfigID  string         `json:"configId"`
	Algorithm AlgorithmKind  `json:"algorithm"`
	Score     float64        `json:"score"     validate:"min=0,max=100"`
	Passed    bool           `json:"passed"`
	Status    ResultStatus   `json:"status"    validate:"oneof=scored insufficient_data"`
	Breakdown map[string]any `json:"breakdown"`
}

// NewScoreResult builds a scored result with the score clamped and rounded.
func NewScoreResult(cfg *AlgorithmConfig, score float64, passed bool, breakdown map[string]any) ScoreResult {
	if breakdown == nil {
		breakdown = map[string]any{}
	}
	return ScoreResult{
		ConfigID:  cfg.ConfigID,
		Algorithm: cfg.Method,
		Score:     RoundScore(score),
		Passed:    passed,
		Status:    StatusScored,
		Breakdown: breakdown,
	}
}

// NewPartialCreditResult builds a result whose pass flag follows the
// configuration's PassThreshold.
func NewPartialCreditResult(cfg *AlgorithmConfig, score float64, breakdown map[string]any) ScoreResult {
	rounded := RoundScore(score)
	return NewScoreResult(cfg, rounded, rounded >= cfg.PassThreshold, breakdown)
}

// InsufficientResult converts an InsufficientDataError into a typed result.
func InsufficientResult(cfg *AlgorithmConfig, cause *InsufficientDataError) ScoreResult {
	breakdown := map[string]any{
		"availableDays": cause.AvailableDays,
		"requiredDays":  cause.RequiredDays,
		"reason":        cause.Error(),
	}
	if cause.Series != "" {
		breakdown["series"] = cause.Series
	}
	return ScoreResult{
		ConfigID:  cfg.ConfigID,
		Algorithm: cfg.Method,
		Status:    StatusInsufficientData,
		Breakdown: breakdown,
	}
}

// Insufficient reports whether the result carries no score.
func (r ScoreResult) Insufficient() bool { return r.Status == StatusInsufficientData }

// Validate checks the result invariants.
func (r ScoreResult) Validate() error { return validate.Struct(r) }

// RoundScore clamps v to [0,100] and rounds it to one decimal place.
// NaN collapses to 0.
func RoundScore(v float64) float64 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 100:
		return 100
	}
	return math.Round(v*10) / 10
}

// AsInsufficient extracts an InsufficientDataError from err.
func AsInsufficient(err error) (*InsufficientDataError, bool) {
	var ide *InsufficientDataError
	if errors.As(err, &ide) {
		return ide, true
	}
	return nil, false
}
