package domain

import (
	"bytes"
	"encoding/json"
)

// All configuration defaults live in this file. Evaluators never fall back to
// their own defaults; they receive parameters resolved here.

const (
	// DefaultComparison is the operator used when a configuration omits one.
	DefaultComparison = OpGreaterEqual

	// DefaultSuccessValue is awarded by binary algorithms when the condition holds.
	DefaultSuccessValue = 100.0

	// DefaultFailureValue is awarded by binary algorithms when the condition fails.
	DefaultFailureValue = 0.0

	// DefaultWeekDays is the length of a weekly evaluation window.
	DefaultWeekDays = 7

	// DefaultPassThreshold is the score at or above which a partial-credit
	// result counts as passed.
	DefaultPassThreshold = 70.0

	// DefaultMinimumDataDays is the minimum number of observed days per window.
	DefaultMinimumDataDays = 1

	// DefaultDailyPassThreshold marks a composite day as compliant.
	DefaultDailyPassThreshold = 70.0

	// DefaultSleepToleranceMinutes is the allowed drift from the rolling mean
	// bed/wake time for a night to count as consistent.
	DefaultSleepToleranceMinutes = 30.0

	// DefaultSleepDurationWeight and DefaultSleepConsistencyWeight split the
	// sleep composite between its two fixed components.
	DefaultSleepDurationWeight    = 0.6
	DefaultSleepConsistencyWeight = 0.4

	// WeightTolerance bounds the drift allowed when composite weights sum to 1.
	WeightTolerance = 1e-6
)

func defaultBinaryThreshold() *BinaryThresholdParams {
	return &BinaryThresholdParams{
		ComparisonOperator: DefaultComparison,
		SuccessValue:       DefaultSuccessValue,
		FailureValue:       DefaultFailureValue,
	}
}

func defaultMinimumFrequency() *MinimumFrequencyParams {
	return &MinimumFrequencyParams{
		Mode:               ModeDaily,
		DailyComparison:    DefaultComparison,
		TotalDays:          DefaultWeekDays,
		FrequencyMode:      FrequencyCount,
		ComparisonOperator: DefaultComparison,
	}
}

func defaultWeeklyElimination() *WeeklyEliminationParams {
	return &WeeklyEliminationParams{
		Mode:                  ModeElimination,
		EliminationComparison: OpLessEqual,
		LimitComparison:       OpLessEqual,
	}
}

func defaultProportional() *ProportionalParams {
	return &ProportionalParams{
		CalculationMethod: CalcSum,
		MinimumThreshold:  0,
		MaximumCap:        100,
		ProgressDirection: DirectionBuildup,
		PartialCredit:     true,
	}
}

func defaultHybrid() *ProportionalFrequencyHybridParams {
	return &ProportionalFrequencyHybridParams{}
}

func defaultZoneBased() *ZoneBasedParams {
	return &ZoneBasedParams{
		Mode:          ModeDaily,
		TotalDays:     DefaultWeekDays,
		FrequencyMode: FrequencyCount,
	}
}

func defaultCompositeWeighted() *CompositeWeightedParams {
	return &CompositeWeightedParams{
		Mode:               ModeDaily,
		DailyPassThreshold: DefaultDailyPassThreshold,
		TotalDays:          DefaultWeekDays,
		FrequencyMode:      FrequencyCount,
	}
}

func defaultSleepComposite() *SleepCompositeParams {
	return &SleepCompositeParams{
		DurationMetric:    "sleep_duration",
		BedtimeMetric:     "bedtime",
		WaketimeMetric:    "waketime",
		DurationWeight:    DefaultSleepDurationWeight,
		ConsistencyWeight: DefaultSleepConsistencyWeight,
		ToleranceMinutes:  DefaultSleepToleranceMinutes,
		RollingWindowDays: DefaultWeekDays,
	}
}

func defaultCategoricalFilter() *CategoricalFilterParams {
	return &CategoricalFilterParams{
		FilterType:         FilterInclude,
		ComparisonOperator: DefaultComparison,
		CalculationMethod:  CalcCount,
		Mode:               ModePeriod,
		TotalDays:          DefaultWeekDays,
		FrequencyMode:      FrequencyCount,
	}
}

func defaultConstrainedAllowance() *ConstrainedWeeklyAllowanceParams {
	return &ConstrainedWeeklyAllowanceParams{
		BaseScore:    100,
		MinimumScore: 0,
	}
}

// newDefaultParams returns the defaults-populated variant for kind. The JSON
// schema is decoded over these values so absent optional fields keep them.
func newDefaultParams(kind AlgorithmKind) MethodParams {
	switch kind {
	case KindBinaryThreshold:
		return defaultBinaryThreshold()
	case KindMinimumFrequency:
		return defaultMinimumFrequency()
	case KindWeeklyElimination:
		return defaultWeeklyElimination()
	case KindProportional:
		return defaultProportional()
	case KindProportionalFrequencyHybrid:
		return defaultHybrid()
	case KindZoneBased3Tier, KindZoneBased5Tier:
		return defaultZoneBased()
	case KindCompositeWeighted:
		return defaultCompositeWeighted()
	case KindSleepComposite:
		return defaultSleepComposite()
	case KindCategoricalFilterThreshold:
		return defaultCategoricalFilter()
	case KindConstrainedWeeklyAllowance:
		return defaultConstrainedAllowance()
	default:
		return nil
	}
}

// finalizeDefaults fills defaults that depend on decoded values. Slice defaults
// are applied here rather than before decoding because JSON decoding into a
// pre-populated slice reuses its elements.
func finalizeDefaults(params MethodParams) {
	switch p := params.(type) {
	case *ZoneBasedParams:
		p.Zones = p.Zones.Resolve()
	case *SleepCompositeParams:
		if len(p.DurationZones) == 0 {
			p.DurationZones = DefaultSleepDurationZones()
		}
		p.DurationZones = p.DurationZones.Resolve()
	case *CompositeWeightedParams:
		for i := range p.Components {
			if p.Components[i].Metric == "" {
				p.Components[i].Metric = p.Components[i].Name
			}
			var buf bytes.Buffer
			if raw := p.Components[i].SubSchema; len(raw) > 0 && json.Compact(&buf, raw) == nil {
				p.Components[i].SubSchema = buf.Bytes()
			}
		}
	}
}

// DefaultSleepDurationZones returns the five-tier sleep duration table in hours.
// Returns a fresh copy to prevent mutation.
func DefaultSleepDurationZones() ZoneSet {
	return ZoneSet{
		{Label: "very_short", LowerBound: 0, UpperBound: 5, Score: 20},
		{Label: "short", LowerBound: 5, UpperBound: 6, Score: 50},
		{Label: "near_target", LowerBound: 6, UpperBound: 7, Score: 80},
		{Label: "target", LowerBound: 7, UpperBound: 9, Score: 100},
		{Label: "long", LowerBound: 9, UpperBound: 14, Score: 70},
	}.Resolve()
}

// defaultWindowDays returns the evaluation window for a resolved configuration
// that did not set one explicitly.
func defaultWindowDays(params MethodParams) int {
	switch p := params.(type) {
	case *BinaryThresholdParams, *ProportionalParams:
		return 1
	case *MinimumFrequencyParams:
		return p.TotalDays
	case *ZoneBasedParams:
		if p.Mode == ModeDaily {
			return 1
		}
		return p.TotalDays
	case *CompositeWeightedParams:
		if p.Mode == ModeDaily {
			return 1
		}
		return p.TotalDays
	case *CategoricalFilterParams:
		if p.Mode == ModeDaily {
			return p.TotalDays
		}
		return DefaultWeekDays
	default:
		return DefaultWeekDays
	}
}
