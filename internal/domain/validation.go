package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Operators contain '=' and '<', which do not survive oneof tag parsing.
	_ = v.RegisterValidation("comparison", func(fl validator.FieldLevel) bool {
		return ComparisonOperator(fl.Field().String()).Valid()
	})
	return v
}

// parseParams decodes a method schema over the kind's defaults, rejects unknown
// fields, checks required fields, and validates single- and cross-field rules.
func parseParams(configID string, kind AlgorithmKind, raw json.RawMessage) (MethodParams, error) {
	params := newDefaultParams(kind)
	if params == nil {
		return nil, configError(configID, "scoringMethod", fmt.Sprintf("unsupported method %q", kind), nil)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil {
		return nil, configError(configID, "schema", "schema must be a JSON object", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(params); err != nil {
		return nil, configError(configID, "schema", "cannot decode "+string(kind)+" schema", err)
	}
	finalizeDefaults(params)

	for _, field := range requiredFields(params) {
		if _, ok := present[field]; !ok {
			return nil, configError(configID, field, "required field missing", nil)
		}
	}
	if err := validate.Struct(params); err != nil {
		return nil, configError(configID, "schema", "invalid "+string(kind)+" schema", err)
	}
	if err := checkParams(configID, kind, params); err != nil {
		return nil, err
	}
	return params, nil
}

// requiredFields lists the schema keys that must be present for the decoded
// variant. Mode-dependent fields are resolved from the decoded mode.
func requiredFields(params MethodParams) []string {
	switch p := params.(type) {
	case *BinaryThresholdParams:
		return []string{"threshold"}
	case *MinimumFrequencyParams:
		if p.Mode == ModePeriodAggregate {
			return []string{"calculationMethod", "threshold"}
		}
		return []string{"dailyThreshold", "requiredDays"}
	case *WeeklyEliminationParams:
		if p.Mode == ModeLimit {
			return []string{"weeklyLimit"}
		}
		return []string{"eliminationThreshold"}
	case *ProportionalParams:
		return []string{"target"}
	case *ProportionalFrequencyHybridParams:
		return []string{"dailyTarget", "requiredQualifyingDays"}
	case *ZoneBasedParams:
		if p.Mode == ModeFrequency {
			return []string{"zones", "targetZones", "requiredDays"}
		}
		return []string{"zones"}
	case *CompositeWeightedParams:
		return []string{"components"}
	case *CategoricalFilterParams:
		if p.Mode == ModeDaily {
			return []string{"categories", "threshold", "requiredDays"}
		}
		return []string{"categories", "threshold"}
	case *ConstrainedWeeklyAllowanceParams:
		return []string{"weeklyAllowance", "penaltyPerExcess"}
	default:
		return nil
	}
}

// checkParams enforces rules that span several fields of one variant.
func checkParams(configID string, kind AlgorithmKind, params MethodParams) error {
	switch p := params.(type) {
	case *MinimumFrequencyParams:
		if p.Mode == ModeDaily {
			if err := p.Requirement().Validate(); err != nil {
				return configError(configID, "requiredDays", "invalid frequency requirement", err)
			}
		}
	case *ProportionalParams:
		if p.MinimumThreshold > p.MaximumCap {
			return configError(configID, "minimumThreshold", "must not exceed maximumCap", nil)
		}
	case *ZoneBasedParams:
		return checkZoneParams(configID, kind, p)
	case *CompositeWeightedParams:
		return checkComposite(configID, p)
	case *SleepCompositeParams:
		if err := p.DurationZones.Validate(); err != nil {
			return configError(configID, "durationZones", "invalid zone set", err)
		}
		if err := checkWeights(p.DurationWeight, p.ConsistencyWeight); err != nil {
			return configError(configID, "durationWeight", "invalid weights", err)
		}
	case *CategoricalFilterParams:
		if p.Mode == ModeDaily {
			if err := p.Requirement().Validate(); err != nil {
				return configError(configID, "requiredDays", "invalid frequency requirement", err)
			}
		}
	case *ConstrainedWeeklyAllowanceParams:
		if p.MinimumScore > p.BaseScore {
			return configError(configID, "minimumScore", "must not exceed baseScore", nil)
		}
	}
	return nil
}

func checkZoneParams(configID string, kind AlgorithmKind, p *ZoneBasedParams) error {
	if tiers := kind.ZoneTiers(); tiers != 0 && len(p.Zones) != tiers {
		return configError(configID, "zones", fmt.Sprintf("%s needs %d zones, got %d", kind, tiers, len(p.Zones)), nil)
	}
	if err := p.Zones.Validate(); err != nil {
		return configError(configID, "zones", "invalid zone set", err)
	}
	if p.Mode != ModeFrequency {
		return nil
	}
	if err := p.Requirement().Validate(); err != nil {
		return configError(configID, "requiredDays", "invalid frequency requirement", err)
	}
	if len(p.TargetZones) == 0 {
		return configError(configID, "targetZones", "frequency mode needs at least one target zone", nil)
	}
	labels := p.Zones.Labels()
	for _, target := range p.TargetZones {
		if !slices.Contains(labels, target) {
			return configError(configID, "targetZones", fmt.Sprintf("unknown zone %q", target), nil)
		}
	}
	return nil
}

// componentKinds are the sub-algorithms a composite component may use.
var componentKinds = []AlgorithmKind{KindProportional, KindBinaryThreshold, KindZoneBased3Tier, KindZoneBased5Tier}

func checkComposite(configID string, p *CompositeWeightedParams) error {
	weights := make([]float64, len(p.Components))
	names := make(map[string]struct{}, len(p.Components))
	for i := range p.Components {
		c := &p.Components[i]
		if _, dup := names[c.Name]; dup {
			return configError(configID, "components", fmt.Sprintf("duplicate component %q", c.Name), nil)
		}
		names[c.Name] = struct{}{}
		if !slices.Contains(componentKinds, c.SubAlgorithm) {
			return configError(configID, "components."+c.Name+".subAlgorithm",
				fmt.Sprintf("%q cannot be used as a component", c.SubAlgorithm), nil)
		}
		schema, err := withComponentTarget(c)
		if err != nil {
			return configError(configID, "components."+c.Name+".subSchema", "schema must be a JSON object", err)
		}
		sub, err := parseParams(configID+"/"+c.Name, c.SubAlgorithm, schema)
		if err != nil {
			return err
		}
		c.Params = sub
		weights[i] = c.Weight
	}
	if err := checkWeights(weights...); err != nil {
		return configError(configID, "components", "invalid weights", err)
	}
	if p.Mode == ModeFrequency && p.RequiredDays > 0 {
		if err := p.Requirement().Validate(); err != nil {
			return configError(configID, "requiredDays", "invalid frequency requirement", err)
		}
	}
	return nil
}

// withComponentTarget injects the component's Target into its sub-schema as the
// proportional target or binary threshold, unless the sub-schema sets one.
func withComponentTarget(c *Component) (json.RawMessage, error) {
	schema := bytes.TrimSpace(c.SubSchema)
	if c.Target == nil {
		return schema, nil
	}
	fields := map[string]json.RawMessage{}
	if len(schema) > 0 && !bytes.Equal(schema, []byte("null")) {
		if err := json.Unmarshal(schema, &fields); err != nil {
			return nil, err
		}
	}
	key := "target"
	if c.SubAlgorithm == KindBinaryThreshold {
		key = "threshold"
	}
	if _, ok := fields[key]; !ok && !c.SubAlgorithm.IsZoneBased() {
		target, err := json.Marshal(*c.Target)
		if err != nil {
			return nil, err
		}
		fields[key] = target
	}
	return json.Marshal(fields)
}

// checkWeights enforces weights in [0,1] that sum to 1 within WeightTolerance.
func checkWeights(weights ...float64) error {
	var sum float64
	for _, w := range weights {
		if w < 0 || w > 1 || math.IsNaN(w) {
			return fmt.Errorf("weight %v outside [0,1]", w)
		}
		sum += w
	}
	if math.Abs(sum-1) > WeightTolerance {
		return fmt.Errorf("weights sum to %v, want 1", sum)
	}
	return nil
}
