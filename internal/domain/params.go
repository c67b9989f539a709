package domain

import "encoding/json"

// MethodParams is the sealed set of per-algorithm parameter variants.
// Only types in this package implement it, so the dispatcher can rely on the
// variant matching the configured AlgorithmKind.
type MethodParams interface {
	methodParams()
}

// Mode values shared by several parameter variants.
const (
	ModeDaily           = "daily"
	ModeFrequency       = "frequency"
	ModeAverage         = "average"
	ModePeriod          = "period"
	ModePeriodAggregate = "periodAggregate"
	ModeElimination     = "elimination"
	ModeLimit           = "limit"
)

// Progress directions for proportional scoring.
const (
	DirectionBuildup   = "buildup"
	DirectionCountdown = "countdown"
)

// Categorical filter types.
const (
	FilterInclude = "include"
	FilterExclude = "exclude"
)

// BinaryThresholdParams configures a single pass/fail comparison.
type BinaryThresholdParams struct {
	Threshold          float64            `json:"threshold"`
	ComparisonOperator ComparisonOperator `json:"comparisonOperator" validate:"comparison"`
	SuccessValue       float64            `json:"successValue"       validate:"min=0,max=100"`
	FailureValue       float64            `json:"failureValue"       validate:"min=0,max=100"`
}

// MinimumFrequencyParams configures "condition on at least N of M days", or a
// single comparison of a period aggregate in periodAggregate mode.
type MinimumFrequencyParams struct {
	Mode            string             `json:"mode"            validate:"oneof=daily periodAggregate"`
	DailyThreshold  float64            `json:"dailyThreshold"`
	DailyComparison ComparisonOperator `json:"dailyComparison" validate:"comparison"`
	RequiredDays    int                `json:"requiredDays"    validate:"min=0"`
	TotalDays       int                `json:"totalDays"       validate:"min=1"`
	FrequencyMode   FrequencyMode      `json:"frequencyMode"   validate:"oneof=count consecutive avoidance"`

	CalculationMethod  CalculationMethod  `json:"calculationMethod,omitempty"  validate:"omitempty,oneof=sum average max min count"`
	Threshold          float64            `json:"threshold"`
	ComparisonOperator ComparisonOperator `json:"comparisonOperator" validate:"comparison"`
}

// Requirement returns the structured frequency requirement for daily mode.
func (p *MinimumFrequencyParams) Requirement() FrequencyRequirement {
	return FrequencyRequirement{RequiredDays: p.RequiredDays, TotalDays: p.TotalDays, Mode: p.FrequencyMode}
}

// WeeklyEliminationParams configures zero-tolerance weekly scoring. In
// elimination mode every observed day must satisfy EliminationComparison against
// EliminationThreshold; in limit mode the weekly sum must satisfy LimitComparison
// against WeeklyLimit.
type WeeklyEliminationParams struct {
	Mode                  string             `json:"mode"                  validate:"oneof=elimination limit"`
	EliminationThreshold  float64            `json:"eliminationThreshold"`
	EliminationComparison ComparisonOperator `json:"eliminationComparison" validate:"comparison"`
	WeeklyLimit           float64            `json:"weeklyLimit"`
	LimitComparison       ComparisonOperator `json:"limitComparison"       validate:"comparison"`
}

// ProportionalParams configures partial credit toward a target.
type ProportionalParams struct {
	Target            float64           `json:"target"            validate:"gt=0"`
	CalculationMethod CalculationMethod `json:"calculationMethod" validate:"oneof=sum average max min count"`
	MinimumThreshold  float64           `json:"minimumThreshold"  validate:"min=0,max=100"`
	MaximumCap        float64           `json:"maximumCap"        validate:"min=0,max=100"`
	ProgressDirection string            `json:"progressDirection" validate:"oneof=buildup countdown"`
	PartialCredit     bool              `json:"partialCredit"`
}

// ProportionalFrequencyHybridParams configures per-day proportional credit with
// a qualifying-day floor. DailyMinimumThreshold is in metric units.
type ProportionalFrequencyHybridParams struct {
	DailyTarget            float64 `json:"dailyTarget"            validate:"gt=0"`
	DailyMinimumThreshold  float64 `json:"dailyMinimumThreshold"  validate:"min=0"`
	RequiredQualifyingDays int     `json:"requiredQualifyingDays" validate:"min=1"`
}

// ZoneBasedParams configures zone scoring. Daily mode scores the window's last
// value; frequency mode requires TargetZones on RequiredDays of TotalDays;
// average mode averages the zone score over observed days.
type ZoneBasedParams struct {
	Zones         ZoneSet       `json:"zones"         validate:"required,min=1"`
	Mode          string        `json:"mode"          validate:"oneof=daily frequency average"`
	TargetZones   []string      `json:"targetZones,omitempty"`
	RequiredDays  int           `json:"requiredDays"  validate:"min=0"`
	TotalDays     int           `json:"totalDays"     validate:"min=1"`
	FrequencyMode FrequencyMode `json:"frequencyMode" validate:"oneof=count consecutive avoidance"`
}

// Requirement returns the structured frequency requirement for frequency mode.
func (p *ZoneBasedParams) Requirement() FrequencyRequirement {
	return FrequencyRequirement{RequiredDays: p.RequiredDays, TotalDays: p.TotalDays, Mode: p.FrequencyMode}
}

// Component is one weighted part of a composite score.
// SubSchema holds the raw sub-algorithm parameters; Params is the resolved form.
type Component struct {
	Name         string          `json:"name"         validate:"required"`
	Metric       string          `json:"metric"`
	Weight       float64         `json:"weight"       validate:"min=0,max=1"`
	Target       *float64        `json:"target,omitempty"`
	SubAlgorithm AlgorithmKind   `json:"subAlgorithm" validate:"required"`
	SubSchema    json.RawMessage `json:"subSchema,omitempty"`
	Params       MethodParams    `json:"-"`
}

// CompositeWeightedParams configures a weighted combination of components.
// Frequency mode computes the composite per day and then either applies the
// requirement to days at or above DailyPassThreshold, or averages the days when
// RequiredDays is zero.
type CompositeWeightedParams struct {
	Mode               string        `json:"mode"               validate:"oneof=daily frequency"`
	Components         []Component   `json:"components"         validate:"required,min=1,dive"`
	DailyPassThreshold float64       `json:"dailyPassThreshold" validate:"min=0,max=100"`
	RequiredDays       int           `json:"requiredDays"       validate:"min=0"`
	TotalDays          int           `json:"totalDays"          validate:"min=1"`
	FrequencyMode      FrequencyMode `json:"frequencyMode"      validate:"oneof=count consecutive avoidance"`
}

// Requirement returns the structured frequency requirement for frequency mode.
func (p *CompositeWeightedParams) Requirement() FrequencyRequirement {
	return FrequencyRequirement{RequiredDays: p.RequiredDays, TotalDays: p.TotalDays, Mode: p.FrequencyMode}
}

// SleepCompositeParams configures the two fixed sleep components: duration
// scored on a five-tier zone table and bed/wake schedule consistency. Times are
// minutes after midnight; bedtimes before noon are treated as after midnight.
type SleepCompositeParams struct {
	DurationMetric    string  `json:"durationMetric"    validate:"required"`
	BedtimeMetric     string  `json:"bedtimeMetric"     validate:"required"`
	WaketimeMetric    string  `json:"waketimeMetric"    validate:"required"`
	DurationZones     ZoneSet `json:"durationZones"     validate:"required,len=5"`
	DurationWeight    float64 `json:"durationWeight"    validate:"min=0,max=1"`
	ConsistencyWeight float64 `json:"consistencyWeight" validate:"min=0,max=1"`
	ToleranceMinutes  float64 `json:"toleranceMinutes"  validate:"gt=0"`
	RollingWindowDays int     `json:"rollingWindowDays" validate:"min=1"`
}

// CategoricalFilterParams configures category filtering of logged entries.
// Period mode reduces the whole window once; daily mode reduces each day and
// applies the frequency requirement to the days that pass.
type CategoricalFilterParams struct {
	Categories         []string           `json:"categories"         validate:"required,min=1,dive,required"`
	FilterType         string             `json:"filterType"         validate:"oneof=include exclude"`
	Threshold          float64            `json:"threshold"`
	ComparisonOperator ComparisonOperator `json:"comparisonOperator" validate:"comparison"`
	CalculationMethod  CalculationMethod  `json:"calculationMethod"  validate:"oneof=count sum exists"`
	Mode               string             `json:"mode"               validate:"oneof=period daily"`
	RequiredDays       int                `json:"requiredDays"       validate:"min=0"`
	TotalDays          int                `json:"totalDays"          validate:"min=1"`
	FrequencyMode      FrequencyMode      `json:"frequencyMode"      validate:"oneof=count consecutive avoidance"`
}

// Requirement returns the structured frequency requirement for daily mode.
func (p *CategoricalFilterParams) Requirement() FrequencyRequirement {
	return FrequencyRequirement{RequiredDays: p.RequiredDays, TotalDays: p.TotalDays, Mode: p.FrequencyMode}
}

// ConstrainedWeeklyAllowanceParams configures a weekly quantity allowance with
// an optional cap on consumption days. A day counts as a consumption day when its
// value exceeds ConsumptionThreshold.
type ConstrainedWeeklyAllowanceParams struct {
	WeeklyAllowance      float64 `json:"weeklyAllowance"              validate:"min=0"`
	MaxConsumptionDays   *int    `json:"maxConsumptionDays,omitempty" validate:"omitempty,min=0"`
	PenaltyPerExcess     float64 `json:"penaltyPerExcess"             validate:"min=0"`
	BaseScore            float64 `json:"baseScore"                    validate:"min=0,max=100"`
	MinimumScore         float64 `json:"minimumScore"                 validate:"min=0,max=100"`
	ConsumptionThreshold float64 `json:"consumptionThreshold"`
}

func (*BinaryThresholdParams) methodParams()             {}
func (*MinimumFrequencyParams) methodParams()            {}
func (*WeeklyEliminationParams) methodParams()           {}
func (*ProportionalParams) methodParams()                {}
func (*ProportionalFrequencyHybridParams) methodParams() {}
func (*ZoneBasedParams) methodParams()                   {}
func (*CompositeWeightedParams) methodParams()           {}
func (*SleepCompositeParams) methodParams()              {}
func (*CategoricalFilterParams) methodParams()           {}
func (*ConstrainedWeeklyAllowanceParams) methodParams()  {}
