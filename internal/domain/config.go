package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ConfigRecord is the declarative configuration record as stored and exchanged.
// Method is accepted as an alias of ScoringMethod.
type ConfigRecord struct {
	ConfigID         string          `json:"configId"`
	RecommendationID string          `json:"recommendationId,omitempty"`
	ScoringMethod    string          `json:"scoringMethod,omitempty"`
	Method           string          `json:"method,omitempty"`
	Metric           string          `json:"metric,omitempty"`
	WindowDays       int             `json:"windowDays,omitempty"`
	PassThreshold    *float64        `json:"passThreshold,omitempty"`
	MinimumDataDays  int             `json:"minimumDataDays,omitempty"`
	Schema           json.RawMessage `json:"schema"`
}

// AlgorithmConfig is a validated, fully defaulted scoring configuration.
// It is created once by ParseConfig or NewAlgorithmConfig and never mutated,
// so a single value may be shared by any number of concurrent evaluations.
type AlgorithmConfig struct {
	ConfigID         string
	RecommendationID string
	// Metric names the primary series. Composite and sleep kinds read their
	// component metrics from the parameters instead.
	Metric          string
	Method          AlgorithmKind
	Params          MethodParams
	WindowDays      int
	PassThreshold   float64
	MinimumDataDays int
}

// ParseConfig decodes and validates one JSON configuration record.
func ParseConfig(data []byte) (*AlgorithmConfig, error) {
	var rec ConfigRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return nil, configError("", "", "cannot decode configuration record", err)
	}
	return NewAlgorithmConfig(rec)
}

// NewAlgorithmConfig validates a decoded record and resolves every default.
func NewAlgorithmConfig(rec ConfigRecord) (*AlgorithmConfig, error) {
	if rec.ConfigID == "" {
		return nil, configError("", "configId", "required field missing", nil)
	}
	method, err := recordMethod(rec)
	if err != nil {
		return nil, err
	}
	params, err := parseParams(rec.ConfigID, method, rec.Schema)
	if err != nil {
		return nil, err
	}

	cfg := &AlgorithmConfig{
		ConfigID:         rec.ConfigID,
		RecommendationID: rec.RecommendationID,
		Metric:           rec.Metric,
		Method:           method,
		Params:           params,
		WindowDays:       rec.WindowDays,
		PassThreshold:    DefaultPassThreshold,
		MinimumDataDays:  rec.MinimumDataDays,
	}
	if rec.PassThreshold != nil {
		cfg.PassThreshold = *rec.PassThreshold
	}
	if err := cfg.resolveWindow(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func recordMethod(rec ConfigRecord) (AlgorithmKind, error) {
	name := rec.ScoringMethod
	switch {
	case name == "" && rec.Method == "":
		return "", configError(rec.ConfigID, "scoringMethod", "required field missing", nil)
	case name == "":
		name = rec.Method
	case rec.Method != "" && rec.Method != name:
		return "", configError(rec.ConfigID, "method",
			fmt.Sprintf("conflicts with scoringMethod %q", rec.ScoringMethod), nil)
	}
	kind, err := ParseAlgorithmKind(name)
	if err != nil {
		return "", configError(rec.ConfigID, "scoringMethod", "unsupported method", err)
	}
	return kind, nil
}

// resolveWindow applies window, pass-threshold and minimum-data defaults and
// checks them against the parameters.
func (c *AlgorithmConfig) resolveWindow() error {
	if c.WindowDays < 0 {
		return configError(c.ConfigID, "windowDays", "must be positive", nil)
	}
	if c.WindowDays == 0 {
		c.WindowDays = defaultWindowDays(c.Params)
	}
	if total, ok := requirementWindow(c.Params); ok && c.WindowDays != total {
		return configError(c.ConfigID, "windowDays",
			fmt.Sprintf("window of %d days does not match totalDays %d", c.WindowDays, total), nil)
	}
	if p, ok := c.Params.(*ProportionalFrequencyHybridParams); ok && p.RequiredQualifyingDays > c.WindowDays {
		return configError(c.ConfigID, "requiredQualifyingDays",
			fmt.Sprintf("%d qualifying days cannot fit a %d day window", p.RequiredQualifyingDays, c.WindowDays), nil)
	}
	if c.PassThreshold < 0 || c.PassThreshold > 100 {
		return configError(c.ConfigID, "passThreshold", "must be within [0,100]", nil)
	}
	if c.MinimumDataDays < 0 {
		return configError(c.ConfigID, "minimumDataDays", "must not be negative", nil)
	}
	if c.MinimumDataDays == 0 {
		c.MinimumDataDays = DefaultMinimumDataDays
	}
	if c.MinimumDataDays > c.WindowDays {
		return configError(c.ConfigID, "minimumDataDays",
			fmt.Sprintf("%d exceeds the %d day window", c.MinimumDataDays, c.WindowDays), nil)
	}
	return nil
}

// requirementWindow returns the totalDays a frequency-style variant is bound to.
func requirementWindow(params MethodParams) (int, bool) {
	switch p := params.(type) {
	case *MinimumFrequencyParams:
		return p.TotalDays, true
	case *ZoneBasedParams:
		return p.TotalDays, p.Mode == ModeFrequency
	case *CompositeWeightedParams:
		return p.TotalDays, p.Mode == ModeFrequency
	case *CategoricalFilterParams:
		return p.TotalDays, p.Mode == ModeDaily
	default:
		return 0, false
	}
}

// Record converts the configuration back into its record form.
func (c *AlgorithmConfig) Record() (ConfigRecord, error) {
	schema, err := json.Marshal(c.Params)
	if err != nil {
		return ConfigRecord{}, fmt.Errorf("marshal %s schema: %w", c.Method, err)
	}
	pass := c.PassThreshold
	return ConfigRecord{
		ConfigID:         c.ConfigID,
		RecommendationID: c.RecommendationID,
		ScoringMethod:    string(c.Method),
		Metric:           c.Metric,
		WindowDays:       c.WindowDays,
		PassThreshold:    &pass,
		MinimumDataDays:  c.MinimumDataDays,
		Schema:           schema,
	}, nil
}

// MarshalJSON encodes the configuration as a record so it can cross process
// boundaries, e.g. as workflow or activity input.
func (c AlgorithmConfig) MarshalJSON() ([]byte, error) {
	rec, err := c.Record()
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// UnmarshalJSON decodes and re-validates a record produced by MarshalJSON.
func (c *AlgorithmConfig) UnmarshalJSON(data []byte) error {
	cfg, err := ParseConfig(data)
	if err != nil {
		return err
	}
	*c = *cfg
	return nil
}

// MetricNeeds lists the data an evaluation of a configuration consumes.
type MetricNeeds struct {
	Primary   string
	SubSeries []string
	Entries   bool
}

// RequiredMetrics reports which metric series the configuration reads.
func (c *AlgorithmConfig) RequiredMetrics() MetricNeeds {
	switch p := c.Params.(type) {
	case *CompositeWeightedParams:
		names := make([]string, 0, len(p.Components))
		for _, comp := range p.Components {
			names = append(names, comp.Metric)
		}
		return MetricNeeds{SubSeries: names}
	case *SleepCompositeParams:
		return MetricNeeds{SubSeries: []string{p.DurationMetric, p.BedtimeMetric, p.WaketimeMetric}}
	case *CategoricalFilterParams:
		return MetricNeeds{Primary: c.Metric, Entries: true}
	default:
		return MetricNeeds{Primary: c.Metric}
	}
}

// Validate re-checks an AlgorithmConfig built outside ParseConfig.
func (c *AlgorithmConfig) Validate() error {
	if c == nil || c.Params == nil {
		return configError("", "schema", "configuration has no parameters", nil)
	}
	if c.ConfigID == "" {
		return configError("", "configId", "required field missing", nil)
	}
	if err := validate.Struct(c.Params); err != nil {
		return configError(c.ConfigID, "schema", "invalid "+string(c.Method)+" schema", err)
	}
	if kindOf(c.Params, c.Method) != c.Method {
		return configError(c.ConfigID, "scoringMethod",
			fmt.Sprintf("parameters %T do not belong to %s", c.Params, c.Method), nil)
	}
	return nil
}

// kindOf maps a variant to the kind it belongs to. Zone parameters serve both
// zone kinds, so want disambiguates them.
func kindOf(params MethodParams, want AlgorithmKind) AlgorithmKind {
	switch params.(type) {
	case *BinaryThresholdParams:
		return KindBinaryThreshold
	case *MinimumFrequencyParams:
		return KindMinimumFrequency
	case *WeeklyEliminationParams:
		return KindWeeklyElimination
	case *ProportionalParams:
		return KindProportional
	case *ProportionalFrequencyHybridParams:
		return KindProportionalFrequencyHybrid
	case *ZoneBasedParams:
		if want.IsZoneBased() {
			return want
		}
		return KindZoneBased3Tier
	case *CompositeWeightedParams:
		return KindCompositeWeighted
	case *SleepCompositeParams:
		return KindSleepComposite
	case *CategoricalFilterParams:
		return KindCategoricalFilterThreshold
	case *ConstrainedWeeklyAllowanceParams:
		return KindConstrainedWeeklyAllowance
	default:
		return ""
	}
}
