package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-adhere/internal/domain"
)

func TestRecordMinimumFrequency(t *testing.T) {
	cfg, change, err := Record([]byte(`{"configId":"mf","scoringMethod":"minimum_frequency",
		"schema":{"dailyThreshold":8000,"frequency":"5 of 7 days"}}`))
	require.NoError(t, err)
	assert.True(t, change.Migrated)
	assert.Equal(t, "mf", change.ConfigID)
	require.NotNil(t, change.Result)
	assert.Equal(t, "n_of_m", change.Result.Rule)

	p, ok := cfg.Params.(*domain.MinimumFrequencyParams)
	require.True(t, ok)
	assert.Equal(t, 5, p.RequiredDays)
	assert.Equal(t, 7, p.TotalDays)
	assert.Equal(t, domain.FrequencyCount, p.FrequencyMode)
	assert.InDelta(t, 8000, p.DailyThreshold, 1e-9)
}

func TestRecordWeeklyLimit(t *testing.T) {
	cfg, change, err := Record([]byte(`{"configId":"we","method":"weekly_elimination",
		"schema":{"frequency":"No more than 2 days per week."}}`))
	require.NoError(t, err)
	assert.True(t, change.Migrated)

	p, ok := cfg.Params.(*domain.WeeklyEliminationParams)
	require.True(t, ok)
	assert.Equal(t, domain.ModeLimit, p.Mode)
	assert.InDelta(t, 2, p.WeeklyLimit, 1e-9)
	assert.Equal(t, domain.OpLessEqual, p.LimitComparison)
	assert.NotContains(t, string(change.Rewritten), "frequency")

	again, err := domain.ParseConfig(change.Rewritten)
	require.NoError(t, err)
	assert.Equal(t, cfg.Params, again.Params)
}

func TestRecordAllowance(t *testing.T) {
	cfg, _, err := Record([]byte(`{"configId":"cw","scoringMethod":"constrained_weekly_allowance",
		"schema":{"frequency":"at most 3 per week","penaltyPerExcess":20}}`))
	require.NoError(t, err)
	p, ok := cfg.Params.(*domain.ConstrainedWeeklyAllowanceParams)
	require.True(t, ok)
	assert.InDelta(t, 3, p.WeeklyAllowance, 1e-9)
}

func TestRecordHybrid(t *testing.T) {
	cfg, _, err := Record([]byte(`{"configId":"h","scoringMethod":"proportional_frequency_hybrid",
		"schema":{"dailyTarget":30,"frequency":"at least 4 days per week"}}`))
	require.NoError(t, err)
	p, ok := cfg.Params.(*domain.ProportionalFrequencyHybridParams)
	require.True(t, ok)
	assert.Equal(t, 4, p.RequiredQualifyingDays)
}

const pressureZones = `[
	{"label":"normal","lowerBound":0,"upperBound":120,"score":100},
	{"label":"elevated","lowerBound":120,"upperBound":140,"score":60},
	{"label":"high","lowerBound":140,"upperBound":250,"score":20}]`

func TestRecordModeSwitch(t *testing.T) {
	t.Run("zone counts target days", func(t *testing.T) {
		cfg, _, err := Record([]byte(`{"configId":"bp","scoringMethod":"zone_based_3tier",
			"schema":{"zones":` + pressureZones + `,"targetZones":["normal"],"frequency":"5 of 7 days"}}`))
		require.NoError(t, err)
		p, ok := cfg.Params.(*domain.ZoneBasedParams)
		require.True(t, ok)
		assert.Equal(t, domain.ModeFrequency, p.Mode)
		assert.Equal(t, 5, p.RequiredDays)
		assert.Equal(t, 7, cfg.WindowDays)
	})

	t.Run("composite counts passing days", func(t *testing.T) {
		cfg, _, err := Record([]byte(`{"configId":"cardio","scoringMethod":"composite_weighted","schema":{
			"components":[
				{"name":"steps","weight":0.5,"target":10000,"subAlgorithm":"proportional"},
				{"name":"rhr","weight":0.5,"target":70,"subAlgorithm":"binary_threshold","subSchema":{"comparisonOperator":"<="}}],
			"frequency":"at least 4 days per week"}}`))
		require.NoError(t, err)
		p, ok := cfg.Params.(*domain.CompositeWeightedParams)
		require.True(t, ok)
		assert.Equal(t, domain.ModeFrequency, p.Mode)
		assert.Equal(t, 4, p.RequiredDays)
		assert.Equal(t, 7, cfg.WindowDays)
	})

	t.Run("categorical scores each day", func(t *testing.T) {
		cfg, _, err := Record([]byte(`{"configId":"takeout","scoringMethod":"categorical_filter_threshold",
			"schema":{"categories":["takeout"],"threshold":1,"comparisonOperator":"<=","frequency":"5 of 7 days"}}`))
		require.NoError(t, err)
		p, ok := cfg.Params.(*domain.CategoricalFilterParams)
		require.True(t, ok)
		assert.Equal(t, domain.ModeDaily, p.Mode)
		assert.Equal(t, 5, p.RequiredDays)
		assert.Equal(t, 7, cfg.WindowDays)
	})
}

func TestRecordPassThrough(t *testing.T) {
	cfg, change, err := Record([]byte(`{"configId":"b","scoringMethod":"binary_threshold","schema":{"threshold":5}}`))
	require.NoError(t, err)
	assert.False(t, change.Migrated)
	assert.Nil(t, change.Result)
	assert.Equal(t, domain.KindBinaryThreshold, cfg.Method)
}

func TestRecordErrors(t *testing.T) {
	tests := []struct {
		name   string
		record string
		is     error
	}{
		{
			name:   "unrecognized phrase",
			record: `{"configId":"x","scoringMethod":"minimum_frequency","schema":{"dailyThreshold":1,"frequency":"now and then"}}`,
			is:     ErrUnrecognized,
		},
		{
			name:   "limit on a count method",
			record: `{"configId":"x","scoringMethod":"minimum_frequency","schema":{"dailyThreshold":1,"frequency":"at most 2 per week"}}`,
		},
		{
			name:   "requirement on binary threshold",
			record: `{"configId":"x","scoringMethod":"binary_threshold","schema":{"threshold":1,"frequency":"5 of 7 days"}}`,
		},
		{
			name:   "migrated record still invalid",
			record: `{"configId":"x","scoringMethod":"minimum_frequency","schema":{"frequency":"5 of 7 days"}}`,
			is:     domain.ErrConfigValidation,
		},
		{
			name:   "zone requirement without target zones",
			record: `{"configId":"x","scoringMethod":"zone_based_3tier","schema":{"zones":` + pressureZones + `,"frequency":"5 of 7 days"}}`,
		},
		{
			name:   "not json",
			record: `{`,
		},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (go 1.21 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Record([]byte(tt.record))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestRecords(t *testing.T) {
	cfgs, changes, err := Records([]byte(`[
		{"configId":"a","scoringMethod":"minimum_frequency","schema":{"dailyThreshold":1,"frequency":"every day"}},
		{"configId":"b","scoringMethod":"binary_threshold","schema":{"threshold":5}}
	]`))
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	assert.True(t, changes[0].Migrated)
	assert.False(t, changes[1].Migrated)

	_, _, err = Records([]byte(`[{"configId":"a","scoringMethod":"minimum_frequency","schema":{"dailyThreshold":1,"frequency":"?"}}]`))
	require.ErrorIs(t, err, ErrUnrecognized)
	assert.Contains(t, err.Error(), "record 0")
}
