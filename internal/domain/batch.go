package domain

import (
	"errors"
	"fmt"
	"sort"
)

// EvaluationUnit is one (patient, configuration, window) triple.
type EvaluationUnit struct {
	PatientID   string          `json:"patientId"   validate:"required"`
	ConfigID    string          `json:"configId"    validate:"required"`
	WindowIndex int             `json:"windowIndex" validate:"min=0"`
	Input       EvaluationInput `json:"input"`
}

// Key identifies the unit within a batch.
func (u EvaluationUnit) Key() string {
	return fmt.Sprintf("%s/%s/%d", u.PatientID, u.ConfigID, u.WindowIndex)
}

// ErrorKind classifies a unit failure for reports.
type ErrorKind string

// Unit failure kinds.
const (
	ErrorKindConfig   ErrorKind = "config_validation"
	ErrorKindShape    ErrorKind = "data_shape"
	ErrorKindInternal ErrorKind = "internal"
)

// ClassifyError maps an evaluation error onto an ErrorKind.
func ClassifyError(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrConfigValidation):
		return ErrorKindConfig
	case errors.Is(err, ErrDataShape):
		return ErrorKindShape
	default:
		return ErrorKindInternal
	}
}

// UnitResult is the outcome of one unit. Exactly one of Result and Error is set.
type UnitResult struct {
	PatientID   string       `json:"patientId"`
	ConfigID    string       `json:"configId"`
	WindowIndex int          `json:"windowIndex"`
	StartDay    int          `json:"startDay"`
	Result      *ScoreResult `json:"result,omitempty"`
	Error       string       `json:"error,omitempty"`
	ErrorKind   ErrorKind    `json:"errorKind,omitempty"`
	Cached      bool         `json:"cached,omitempty"`
}

// NewUnitFailure records err against unit.
func NewUnitFailure(unit EvaluationUnit, err error) UnitResult {
	return UnitResult{
		PatientID:   unit.PatientID,
		ConfigID:    unit.ConfigID,
		WindowIndex: unit.WindowIndex,
		StartDay:    unit.Input.StartDay,
		Error:       err.Error(),
		ErrorKind:   ClassifyError(err),
	}
}

// NewUnitResult records a score against unit.
func NewUnitResult(unit EvaluationUnit, result ScoreResult) UnitResult {
	return UnitResult{
		PatientID:   unit.PatientID,
		ConfigID:    unit.ConfigID,
		WindowIndex: unit.WindowIndex,
		StartDay:    unit.Input.StartDay,
		Result:      &result,
	}
}

// Failed reports whether the unit produced no result.
func (r UnitResult) Failed() bool { return r.Result == nil }

// ConfigLookup resolves configuration IDs for dispatch.
type ConfigLookup interface {
	Config(id string) (*AlgorithmConfig, bool)
}

// ConfigIndex is an immutable map-backed ConfigLookup.
type ConfigIndex map[string]*AlgorithmConfig

// NewConfigIndex indexes configurations by ID. Duplicate IDs are rejected.
func NewConfigIndex(cfgs ...*AlgorithmConfig) (ConfigIndex, error) {
	idx := make(ConfigIndex, len(cfgs))
	for _, c := range cfgs {
		if _, dup := idx[c.ConfigID]; dup {
			return nil, configError(c.ConfigID, "configId", "duplicate configuration id", nil)
		}
		idx[c.ConfigID] = c
	}
	return idx, nil
}

// Config implements ConfigLookup.
func (idx ConfigIndex) Config(id string) (*AlgorithmConfig, bool) {
	c, ok := idx[id]
	return c, ok
}

// IDs returns the configuration IDs in sorted order.
func (idx ConfigIndex) IDs() []string {
	ids := make([]string, 0, len(idx))
	for id := range idx {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BatchRequest is the input of a batch scoring run.
type BatchRequest struct {
	RunID     string            `json:"runId"     validate:"required"`
	Configs   []AlgorithmConfig `json:"configs"   validate:"required,min=1"`
	Units     []EvaluationUnit  `json:"units"     validate:"required,min=1,dive"`
	ChunkSize int               `json:"chunkSize" validate:"min=0"`
	Summary   AggregationPolicy `json:"summary"   validate:"-"`
}

// Validate checks the request shape.
func (r *BatchRequest) Validate() error { return validate.Struct(r) }

// Index builds the configuration lookup for the request.
func (r *BatchRequest) Index() (ConfigIndex, error) {
	cfgs := make([]*AlgorithmConfig, len(r.Configs))
	for i := range r.Configs {
		cfgs[i] = &r.Configs[i]
	}
	return NewConfigIndex(cfgs...)
}

// BatchReport collects every unit result of a run plus per-series summaries.
type BatchReport struct {
	RunID        string          `json:"runId"`
	Results      []UnitResult    `json:"results"`
	Summaries    []WindowSummary `json:"summaries,omitempty"`
	Scored       int             `json:"scored"`
	Insufficient int             `json:"insufficient"`
	Failed       int             `json:"failed"`
}

// Tally recomputes the outcome counters from Results.
func (r *BatchReport) Tally() {
	r.Scored, r.Insufficient, r.Failed = 0, 0, 0
	for _, res := range r.Results {
		switch {
		case res.Failed():
			r.Failed++
		case res.Result.Insufficient():
			r.Insufficient++
		default:
			r.Scored++
		}
	}
}

// ScoreUnitsInput is the input of the ScoreUnits activity.
type ScoreUnitsInput struct {
	RunID   string            `json:"runId"   validate:"required"`
	Configs []AlgorithmConfig `json:"configs" validate:"required,min=1"`
	Units   []EvaluationUnit  `json:"units"   validate:"required,min=1,dive"`
}

// Validate checks the activity input.
func (in *ScoreUnitsInput) Validate() error { return validate.Struct(in) }

// ScoreUnitsOutput is the output of the ScoreUnits activity, in unit order.
type ScoreUnitsOutput struct {
	Results []UnitResult `json:"results"`
}
