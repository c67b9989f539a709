// Package domain defines the adherence scoring model: algorithm kinds and their
// parameter variants, evaluation inputs (metric series, zones, categorical entries),
// score results, and the configuration validation layer that resolves every
// default before an evaluator ever sees a configuration.
//
// Configuration Lifecycle:
//   - ParseConfig decodes a configuration record, resolves defaults and validates it.
//   - The resulting AlgorithmConfig is immutable and shared across all evaluations.
//   - Evaluators receive fully-resolved parameters and never apply defaults themselves.
//
// Error Taxonomy:
//   - ConfigValidationError: malformed configuration, raised before evaluation.
//   - DataShapeError: series length, ordering or value problems for one evaluation.
//   - InsufficientDataError: not enough observed days for a meaningful score.
package domain

import "fmt"

// AlgorithmKind identifies a scoring algorithm. The set is closed; parsing an
// unknown kind is a configuration error rather than a silent no-op.
type AlgorithmKind string

const (
	// KindBinaryThreshold scores a single value against one threshold (100/0).
	KindBinaryThreshold AlgorithmKind = "binary_threshold"

	// KindMinimumFrequency requires a daily condition on at least N of M days.
	KindMinimumFrequency AlgorithmKind = "minimum_frequency"

	// KindWeeklyElimination fails the whole week on any violating day, or on a
	// weekly sum above its cap in limit mode.
	KindWeeklyElimination AlgorithmKind = "weekly_elimination"

	// KindProportional gives partial credit proportional to progress toward a target.
	KindProportional AlgorithmKind = "proportional"

	// KindProportionalFrequencyHybrid averages the best qualifying daily
	// proportional scores, subject to a qualifying-day floor.
	KindProportionalFrequencyHybrid AlgorithmKind = "proportional_frequency_hybrid"

	// KindZoneBased3Tier maps values onto a three-zone score table.
	KindZoneBased3Tier AlgorithmKind = "zone_based_3tier"

	// KindZoneBased5Tier maps values onto a five-zone score table.
	KindZoneBased5Tier AlgorithmKind = "zone_based_5tier"

	// KindCompositeWeighted combines independently scored components by weight.
	KindCompositeWeighted AlgorithmKind = "composite_weighted"

	// KindSleepComposite combines sleep duration zones with schedule consistency.
	KindSleepComposite AlgorithmKind = "sleep_composite"

	// KindCategoricalFilterThreshold filters categorical entries and compares
	// the reduced value with a threshold.
	KindCategoricalFilterThreshold AlgorithmKind = "categorical_filter_threshold"

	// KindConstrainedWeeklyAllowance penalizes consumption beyond a weekly allowance.
	KindConstrainedWeeklyAllowance AlgorithmKind = "constrained_weekly_allowance"
)

// AllAlgorithmKinds returns every supported algorithm kind in declaration order.
// Returns a fresh slice so callers may modify it.
func AllAlgorithmKinds() []AlgorithmKind {
	return []AlgorithmKind{
		KindBinaryThreshold,
		KindMinimumFrequency,
		KindWeeklyElimination,
		KindProportional,
		KindProportionalFrequencyHybrid,
		KindZoneBased3Tier,
		KindZoneBased5Tier,
		KindCompositeWeighted,
		KindSleepComposite,
		KindCategoricalFilterThreshold,
		KindConstrainedWeeklyAllowance,
	}
}

// ParseAlgorithmKind converts a configuration string into an AlgorithmKind.
func ParseAlgorithmKind(s string) (AlgorithmKind, error) {
	for _, k := range AllAlgorithmKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown scoring method %q", s)
}

// String returns the string representation of the algorithm kind.
func (k AlgorithmKind) String() string { return string(k) }

// IsZoneBased reports whether the kind evaluates against a ZoneSet.
func (k AlgorithmKind) IsZoneBased() bool {
	return k == KindZoneBased3Tier || k == KindZoneBased5Tier
}

// ZoneTiers returns the number of zones a zone-based kind requires, or 0.
func (k AlgorithmKind) ZoneTiers() int {
	switch k {
	case KindZoneBased3Tier:
		return 3
	case KindZoneBased5Tier:
		return 5
	default:
		return 0
	}
}

// ComparisonOperator is a numeric comparison used by threshold checks.
type ComparisonOperator string

// Supported comparison operators.
const (
	OpGreaterEqual ComparisonOperator = ">="
	OpGreater      ComparisonOperator = ">"
	OpLessEqual    ComparisonOperator = "<="
	OpLess         ComparisonOperator = "<"
	OpEqual        ComparisonOperator = "=="
)

// equalityTolerance absorbs float noise for "==" comparisons.
const equalityTolerance = 1e-9

// Valid reports whether op is one of the supported operators.
func (op ComparisonOperator) Valid() bool {
	switch op {
	case OpGreaterEqual, OpGreater, OpLessEqual, OpLess, OpEqual:
		return true
	default:
		return false
	}
}

// Holds evaluates "value op threshold".
// An invalid operator never holds; configurations are validated before use.
func (op ComparisonOperator) Holds(value, threshold float64) bool {
	switch op {
	case OpGreaterEqual:
		return value >= threshold
	case OpGreater:
		return value > threshold
	case OpLessEqual:
		return value <= threshold
	case OpLess:
		return value < threshold
	case OpEqual:
		d := value - threshold
		return d <= equalityTolerance && d >= -equalityTolerance
	default:
		return false
	}
}

// CalculationMethod reduces a window of values to a single number.
type CalculationMethod string

// Supported calculation methods. Exists is only meaningful for categorical entries.
const (
	CalcSum     CalculationMethod = "sum"
	CalcAverage CalculationMethod = "average"
	CalcMax     CalculationMethod = "max"
	CalcMin     CalculationMethod = "min"
	CalcCount   CalculationMethod = "count"
	CalcExists  CalculationMethod = "exists"
)

// FrequencyMode selects how day-level outcomes satisfy a FrequencyRequirement.
type FrequencyMode string

const (
	// FrequencyCount requires RequiredDays satisfied days anywhere in the window.
	FrequencyCount FrequencyMode = "count"

	// FrequencyConsecutive requires a run of RequiredDays consecutive satisfied days.
	FrequencyConsecutive FrequencyMode = "consecutive"

	// FrequencyAvoidance requires RequiredDays days on which the behavior was
	// avoided; days without data cannot prove avoidance.
	FrequencyAvoidance FrequencyMode = "avoidance"

	// FrequencyPeriodAggregate reduces the whole window once with AggregationMethod.
	FrequencyPeriodAggregate FrequencyMode = "periodAggregate"
)

// FrequencyRequirement is the structured form of "at least X of Y days".
type FrequencyRequirement struct {
	RequiredDays      int               `json:"requiredDays"                validate:"min=1"`
	TotalDays         int               `json:"totalDays"                   validate:"min=1"`
	Mode              FrequencyMode     `json:"mode"                        validate:"oneof=count consecutive avoidance periodAggregate"`
	AggregationMethod CalculationMethod `json:"aggregationMethod,omitempty" validate:"omitempty,oneof=sum average max min count"`
}

// Validate enforces 0 < RequiredDays <= TotalDays.
func (f FrequencyRequirement) Validate() error {
	if err := validate.Struct(f); err != nil {
		return err
	}
	if f.RequiredDays > f.TotalDays {
		return fmt.Errorf("requiredDays %d exceeds totalDays %d", f.RequiredDays, f.TotalDays)
	}
	if f.Mode == FrequencyPeriodAggregate && f.AggregationMethod == "" {
		return fmt.Errorf("periodAggregate requirement needs an aggregationMethod")
	}
	return nil
}
