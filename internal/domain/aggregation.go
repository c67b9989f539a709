package domain

// AggregationMethod represents the statistical method used to roll window
// scores up into one summary score.
type AggregationMethod string

const (
	// AggregationMethodMean calculates the arithmetic average of the scored windows.
	AggregationMethodMean AggregationMethod = "mean"

	// AggregationMethodMedian finds the middle value when scores are sorted.
	AggregationMethodMedian AggregationMethod = "median"

	// AggregationMethodTrimmedMean calculates the mean after removing outliers from both ends.
	AggregationMethodTrimmedMean AggregationMethod = "trimmed_mean"
)

// String returns the string representation of the aggregation method.
func (m AggregationMethod) String() string { return string(m) }

// AggregationPolicy defines how window scores are combined.
type AggregationPolicy struct {
	Method AggregationMethod `json:"method" validate:"required,oneof=mean median trimmed_mean"`

	// TrimFraction is trimmed from each end for trimmed_mean; ignored otherwise.
	TrimFraction float64 `json:"trimFraction" validate:"min=0,max=0.5"`
}

// DefaultAggregationPolicy averages the scored windows.
func DefaultAggregationPolicy() AggregationPolicy {
	return AggregationPolicy{Method: AggregationMethodMean}
}

// Validate checks the policy.
func (p AggregationPolicy) Validate() error { return validate.Struct(p) }

// WindowSummary rolls up every window of one patient and configuration.
// Insufficient-data windows are counted but never contribute to Score.
type WindowSummary struct {
	PatientID           string            `json:"patientId"`
	ConfigID            string            `json:"configId"`
	Algorithm           AlgorithmKind     `json:"algorithm"`
	Method              AggregationMethod `json:"method"`
	Score               float64           `json:"score"`
	PassRate            float64           `json:"passRate"`
	Windows             int               `json:"windows"`
	ScoredWindows       int               `json:"scoredWindows"`
	PassedWindows       int               `json:"passedWindows"`
	InsufficientWindows int               `json:"insufficientWindows"`
	FailedWindows       int               `json:"failedWindows"`
	Status              ResultStatus      `json:"status"`
}

// SummarizeWindowsInput is the input of the SummarizeWindows activity.
type SummarizeWindowsInput struct {
	RunID   string            `json:"runId"   validate:"required"`
	Results []UnitResult      `json:"results"`
	Policy  AggregationPolicy `json:"policy"`
}

// Validate checks the activity input.
func (in *SummarizeWindowsInput) Validate() error { return validate.Struct(in) }

// SummarizeWindowsOutput carries the summaries sorted by patient then config.
type SummarizeWindowsOutput struct {
	Summaries []WindowSummary `json:"summaries"`
}
