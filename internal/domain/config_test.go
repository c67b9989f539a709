package domain //nolint:testpackage // Need access to unexported defaults

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, record string) *AlgorithmConfig {
	t.Helper()
	cfg, err := ParseConfig([]byte(record))
	require.NoError(t, err)
	return cfg
}

func requireConfigError(t *testing.T, record, field string) *ConfigValidationError {
	t.Helper()
	_, err := ParseConfig([]byte(record))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrConfigValidation)
	var cve *ConfigValidationError
	require.ErrorAs(t, err, &cve)
	if field != "" {
		assert.Equal(t, field, cve.Field, "unexpected field in %v", err)
	}
	return cve
}

func TestParseConfig_BinaryThresholdDefaults(t *testing.T) {
	cfg := mustParse(t, `{"configId":"sleep-8h","scoringMethod":"binary_threshold","metric":"sleep_hours","schema":{"threshold":8}}`)

	assert.Equal(t, KindBinaryThreshold, cfg.Method)
	assert.Equal(t, "sleep_hours", cfg.Metric)
	assert.Equal(t, 1, cfg.WindowDays)
	assert.Equal(t, DefaultPassThreshold, cfg.PassThreshold)
	assert.Equal(t, DefaultMinimumDataDays, cfg.MinimumDataDays)

	p, ok := cfg.Params.(*BinaryThresholdParams)
	require.True(t, ok)
	assert.Equal(t, 8.0, p.Threshold)
	assert.Equal(t, OpGreaterEqual, p.ComparisonOperator)
	assert.Equal(t, 100.0, p.SuccessValue)
	assert.Equal(t, 0.0, p.FailureValue)
}

func TestParseConfig_MethodAlias(t *testing.T) {
	cfg := mustParse(t, `{"configId":"steps","method":"proportional","schema":{"target":10000}}`)
	assert.Equal(t, KindProportional, cfg.Method)

	p := cfg.Params.(*ProportionalParams)
	assert.Equal(t, CalcSum, p.CalculationMethod)
	assert.Equal(t, DirectionBuildup, p.ProgressDirection)
	assert.Equal(t, 100.0, p.MaximumCap)
	assert.True(t, p.PartialCredit)
}

func TestParseConfig_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		record string
		field  string
	}{
		{
			name:   "missing config id",
			record: `{"scoringMethod":"binary_threshold","schema":{"threshold":1}}`,
			field:  "configId",
		},
		{
			name:   "missing method",
			record: `{"configId":"c","schema":{"threshold":1}}`,
			field:  "scoringMethod",
		},
		{
			name:   "typo in method",
			record: `{"configId":"c","scoringMethod":"binary_treshold","schema":{"threshold":1}}`,
			field:  "scoringMethod",
		},
		{
			name:   "conflicting alias",
			record: `{"configId":"c","scoringMethod":"binary_threshold","method":"proportional","schema":{"threshold":1}}`,
			field:  "method",
		},
		{
			name:   "unknown schema field",
			record: `{"configId":"c","scoringMethod":"binary_threshold","schema":{"threshold":1,"treshold":2}}`,
			field:  "schema",
		},
		{
			name:   "unknown record field",
			record: `{"configId":"c","scoringMethod":"binary_threshold","schema":{"threshold":1},"extra":true}`,
		},
		{
			name:   "missing threshold",
			record: `{"configId":"c","scoringMethod":"binary_threshold","schema":{}}`,
			field:  "threshold",
		},
		{
			name:   "string threshold",
			record: `{"configId":"c","scoringMethod":"binary_threshold","schema":{"threshold":"eight"}}`,
			field:  "schema",
		},
		{
			name:   "bad operator",
			record: `{"configId":"c","scoringMethod":"binary_threshold","schema":{"threshold":1,"comparisonOperator":"=>"}}`,
			field:  "schema",
		},
		{
			name:   "required days above total",
			record: `{"configId":"c","scoringMethod":"minimum_frequency","schema":{"dailyThreshold":1,"requiredDays":8,"totalDays":7}}`,
			field:  "requiredDays",
		},
		{
			name:   "zero required days",
			record: `{"configId":"c","scoringMethod":"minimum_frequency","schema":{"dailyThreshold":1,"requiredDays":0}}`,
			field:  "requiredDays",
		},
		{
			name:   "period aggregate without threshold",
			record: `{"configId":"c","scoringMethod":"minimum_frequency","schema":{"mode":"periodAggregate","calculationMethod":"sum"}}`,
			field:  "threshold",
		},
		{
			name:   "limit mode without weekly limit",
			record: `{"configId":"c","scoringMethod":"weekly_elimination","schema":{"mode":"limit"}}`,
			field:  "weeklyLimit",
		},
		{
			name:   "non-positive proportional target",
			record: `{"configId":"c","scoringMethod":"proportional","schema":{"target":0}}`,
			field:  "schema",
		},
		{
			name:   "minimum above cap",
			record: `{"configId":"c","scoringMethod":"proportional","schema":{"target":5,"minimumThreshold":90,"maximumCap":80}}`,
			field:  "minimumThreshold",
		},
		{
			name:   "hybrid days beyond window",
			record: `{"configId":"c","scoringMethod":"proportional_frequency_hybrid","schema":{"dailyTarget":6,"requiredQualifyingDays":8}}`,
			field:  "requiredQualifyingDays",
		},
		{
			name:   "window mismatch",
			record: `{"configId":"c","scoringMethod":"minimum_frequency","windowDays":5,"schema":{"dailyThreshold":1,"requiredDays":3}}`,
			field:  "windowDays",
		},
		{
			name:   "pass threshold above 100",
			record: `{"configId":"c","scoringMethod":"proportional","passThreshold":120,"schema":{"target":5}}`,
			field:  "passThreshold",
		},
		{
			name:   "minimum data days beyond window",
			record: `{"configId":"c","scoringMethod":"binary_threshold","minimumDataDays":2,"schema":{"threshold":1}}`,
			field:  "minimumDataDays",
		},
		{
			name:   "allowance minimum above base",
			record: `{"configId":"c","scoringMethod":"constrained_weekly_allowance","schema":{"weeklyAllowance":2,"penaltyPerExcess":25,"baseScore":50,"minimumScore":60}}`,
			field:  "minimumScore",
		},
		{
			name:   "categorical without categories",
			record: `{"configId":"c","scoringMethod":"categorical_filter_threshold","schema":{"threshold":2}}`,
			field:  "categories",
		},
		{
			name:   "schema not an object",
			record: `{"configId":"c","scoringMethod":"binary_threshold","schema":[1,2]}`,
			field:  "schema",
		},
	}

	for _, tt := range tests {
		tt := tt // per-iteration copy (go 1.21 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			requireConfigError(t, tt.record, tt.field)
		})
	}
}

const threeZones = `[
	{"label":"low","lowerBound":0,"upperBound":6,"score":40},
	{"label":"optimal","lowerBound":6,"upperBound":9,"score":100},
	{"label":"high","lowerBound":9,"upperBound":24,"score":60}
]`

func TestParseConfig_ZoneBased(t *testing.T) {
	cfg := mustParse(t, `{"configId":"sleep-zone","scoringMethod":"zone_based_3tier","schema":{"zones":`+threeZones+`}}`)
	p := cfg.Params.(*ZoneBasedParams)

	require.Len(t, p.Zones, 3)
	for _, z := range p.Zones {
		require.NotNil(t, z.BoundaryInclusiveLow)
		require.NotNil(t, z.BoundaryInclusiveHigh)
	}
	assert.False(t, p.Zones[0].HighInclusive())
	assert.True(t, p.Zones[2].HighInclusive())
	assert.Equal(t, 1, cfg.WindowDays)

	t.Run("tier count must match kind", func(t *testing.T) {
		requireConfigError(t, `{"configId":"c","scoringMethod":"zone_based_5tier","schema":{"zones":`+threeZones+`}}`, "zones")
	})

	t.Run("overlap", func(t *testing.T) {
		cve := requireConfigError(t, `{"configId":"c","scoringMethod":"zone_based_3tier","schema":{"zones":[
			{"label":"a","lowerBound":0,"upperBound":5,"score":10},
			{"label":"b","lowerBound":4,"upperBound":8,"score":50},
			{"label":"c","lowerBound":8,"upperBound":10,"score":100}]}}`, "zones")
		assert.ErrorIs(t, cve, ErrZoneOverlap)
	})

	t.Run("gap", func(t *testing.T) {
		cve := requireConfigError(t, `{"configId":"c","scoringMethod":"zone_based_3tier","schema":{"zones":[
			{"label":"a","lowerBound":0,"upperBound":5,"score":10},
			{"label":"b","lowerBound":6,"upperBound":8,"score":50},
			{"label":"c","lowerBound":8,"upperBound":10,"score":100}]}}`, "zones")
		assert.ErrorIs(t, cve, ErrZoneGap)
	})

	t.Run("frequency mode needs known target zones", func(t *testing.T) {
		requireConfigError(t, `{"configId":"c","scoringMethod":"zone_based_3tier","schema":{"mode":"frequency",
			"zones":`+threeZones+`,"targetZones":["ideal"],"requiredDays":5}}`, "targetZones")
	})

	t.Run("frequency mode window", func(t *testing.T) {
		cfg := mustParse(t, `{"configId":"c","scoringMethod":"zone_based_3tier","schema":{"mode":"frequency",
			"zones":`+threeZones+`,"targetZones":["optimal"],"requiredDays":5}}`)
		assert.Equal(t, 7, cfg.WindowDays)
	})
}

func TestParseConfig_Composite(t *testing.T) {
	record := `{"configId":"heart","scoringMethod":"composite_weighted","schema":{"components":[
		{"name":"steps","weight":0.5,"target":10000,"subAlgorithm":"proportional"},
		{"name":"active_minutes","weight":0.3,"subAlgorithm":"proportional","subSchema":{"target":30}},
		{"name":"resting_hr","metric":"rhr","weight":0.2,"subAlgorithm":"binary_threshold","target":70,
		 "subSchema":{"comparisonOperator":"<="}}
	]}}`
	cfg := mustParse(t, record)
	p := cfg.Params.(*CompositeWeightedParams)
	require.Len(t, p.Components, 3)

	steps := p.Components[0].Params.(*ProportionalParams)
	assert.Equal(t, 10000.0, steps.Target)
	assert.Equal(t, "steps", p.Components[0].Metric)

	active := p.Components[1].Params.(*ProportionalParams)
	assert.Equal(t, 30.0, active.Target)

	hr := p.Components[2].Params.(*BinaryThresholdParams)
	assert.Equal(t, 70.0, hr.Threshold)
	assert.Equal(t, OpLessEqual, hr.ComparisonOperator)

	assert.Equal(t, MetricNeeds{SubSeries: []string{"steps", "active_minutes", "rhr"}}, cfg.RequiredMetrics())

	t.Run("weights must sum to one", func(t *testing.T) {
		requireConfigError(t, `{"configId":"c","scoringMethod":"composite_weighted","schema":{"components":[
			{"name":"a","weight":0.5,"target":1,"subAlgorithm":"proportional"},
			{"name":"b","weight":0.3,"target":1,"subAlgorithm":"proportional"},
			{"name":"c","weight":0.1,"target":1,"subAlgorithm":"proportional"}]}}`, "components")
	})

	t.Run("weights within tolerance", func(t *testing.T) {
		mustParse(t, `{"configId":"c","scoringMethod":"composite_weighted","schema":{"components":[
			{"name":"a","weight":0.3333333,"target":1,"subAlgorithm":"proportional"},
			{"name":"b","weight":0.3333333,"target":1,"subAlgorithm":"proportional"},
			{"name":"c","weight":0.3333334,"target":1,"subAlgorithm":"proportional"}]}}`)
	})

	t.Run("unsupported sub-algorithm", func(t *testing.T) {
		requireConfigError(t, `{"configId":"c","scoringMethod":"composite_weighted","schema":{"components":[
			{"name":"a","weight":1,"subAlgorithm":"weekly_elimination","subSchema":{"eliminationThreshold":0}}]}}`,
			"components.a.subAlgorithm")
	})

	t.Run("invalid sub-schema", func(t *testing.T) {
		cve := requireConfigError(t, `{"configId":"c","scoringMethod":"composite_weighted","schema":{"components":[
			{"name":"a","weight":1,"subAlgorithm":"proportional"}]}}`, "target")
		assert.Equal(t, "c/a", cve.ConfigID)
	})

	t.Run("duplicate component", func(t *testing.T) {
		requireConfigError(t, `{"configId":"c","scoringMethod":"composite_weighted","schema":{"components":[
			{"name":"a","weight":0.5,"target":1,"subAlgorithm":"proportional"},
			{"name":"a","weight":0.5,"target":1,"subAlgorithm":"proportional"}]}}`, "components")
	})
}

func TestParseConfig_SleepCompositeDefaults(t *testing.T) {
	cfg := mustParse(t, `{"configId":"sleep","scoringMethod":"sleep_composite","schema":{}}`)
	p := cfg.Params.(*SleepCompositeParams)

	assert.Equal(t, DefaultSleepDurationZones(), p.DurationZones)
	assert.InDelta(t, 0.6, p.DurationWeight, 1e-9)
	assert.InDelta(t, 0.4, p.ConsistencyWeight, 1e-9)
	assert.Equal(t, 7, cfg.WindowDays)
	assert.Equal(t, MetricNeeds{SubSeries: []string{"sleep_duration", "bedtime", "waketime"}}, cfg.RequiredMetrics())

	requireConfigError(t, `{"configId":"sleep","scoringMethod":"sleep_composite","schema":{"durationWeight":0.7}}`, "durationWeight")
}

func TestAlgorithmConfig_JSONRoundTrip(t *testing.T) {
	records := []string{
		`{"configId":"a","scoringMethod":"zone_based_3tier","metric":"sleep_hours","schema":{"zones":` + threeZones + `}}`,
		`{"configId":"b","scoringMethod":"composite_weighted","schema":{"components":[
			{"name":"x","weight":0.5,"target":10,"subAlgorithm":"proportional"},
			{"name":"y","weight":0.5,"subAlgorithm":"zone_based_3tier","subSchema":{"zones":` + threeZones + `}}]}}`,
		`{"configId":"c","scoringMethod":"constrained_weekly_allowance","passThreshold":80,"schema":{"weeklyAllowance":2,"maxConsumptionDays":2,"penaltyPerExcess":25}}`,
	}
	for _, record := range records {
		original := mustParse(t, record)

		data, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded AlgorithmConfig
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, *original, decoded)
	}
}

func TestAlgorithmConfig_Validate(t *testing.T) {
	cfg := mustParse(t, `{"configId":"a","scoringMethod":"binary_threshold","schema":{"threshold":1}}`)
	require.NoError(t, cfg.Validate())

	mismatched := *cfg
	mismatched.Method = KindProportional
	assert.ErrorIs(t, mismatched.Validate(), ErrConfigValidation)

	var empty *AlgorithmConfig
	assert.True(t, errors.Is(empty.Validate(), ErrConfigValidation))
}

func TestFrequencyRequirement_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     FrequencyRequirement
		wantErr bool
	}{
		{"five of seven", FrequencyRequirement{RequiredDays: 5, TotalDays: 7, Mode: FrequencyCount}, false},
		{"all days", FrequencyRequirement{RequiredDays: 7, TotalDays: 7, Mode: FrequencyConsecutive}, false},
		{"zero required", FrequencyRequirement{RequiredDays: 0, TotalDays: 7, Mode: FrequencyCount}, true},
		{"required above total", FrequencyRequirement{RequiredDays: 8, TotalDays: 7, Mode: FrequencyAvoidance}, true},
		{"unknown mode", FrequencyRequirement{RequiredDays: 1, TotalDays: 7, Mode: "weekly"}, true},
		{"aggregate without method", FrequencyRequirement{RequiredDays: 1, TotalDays: 7, Mode: FrequencyPeriodAggregate}, true},
		{"aggregate with method", FrequencyRequirement{RequiredDays: 1, TotalDays: 7, Mode: FrequencyPeriodAggregate, AggregationMethod: CalcSum}, false},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (go 1.21 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestComparisonOperator_Holds(t *testing.T) {
	tests := []struct {
		op        ComparisonOperator
		value     float64
		threshold float64
		want      bool
	}{
		{OpGreaterEqual, 8, 8, true},
		{OpGreaterEqual, 7.999, 8, false},
		{OpGreater, 8, 8, false},
		{OpLessEqual, 400, 400, true},
		{OpLess, 400, 400, false},
		{OpEqual, 0.1 + 0.2, 0.3, true},
		{OpEqual, 1, 0, false},
		{ComparisonOperator("=>"), 1, 0, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.Holds(tt.value, tt.threshold), "%v %s %v", tt.value, tt.op, tt.threshold)
	}
}

func TestParseAlgorithmKind(t *testing.T) {
	for _, k := range AllAlgorithmKinds() {
		got, err := ParseAlgorithmKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
		assert.NotNil(t, newDefaultParams(k), "no defaults for %s", k)
	}
	_, err := ParseAlgorithmKind("Binary_Threshold")
	assert.Error(t, err)
}
