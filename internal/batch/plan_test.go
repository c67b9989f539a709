package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/metricsource"
)

const planData = `{"patients":[
  {"id":"p2","series":{"steps":[9000, 2000, 11000]}},
  {"id":"p1","series":{"steps":[9000, 9000, 9000, 1000, null, 9000, 9000, 500, 500, 500, 500, 500, 500, 500]}}
]}`

func TestPlan(t *testing.T) {
	src, err := metricsource.ParseDocument([]byte(planData))
	require.NoError(t, err)

	walk := mustParse(t, `{"configId":"walk","scoringMethod":"minimum_frequency","metric":"steps","schema":{
		"dailyThreshold":8000,"requiredDays":3}}`)
	daily := mustParse(t, stepsConfig)
	require.Equal(t, 7, walk.WindowDays)
	require.Equal(t, 1, daily.WindowDays)

	units, err := Plan(context.Background(), src, []*domain.AlgorithmConfig{walk, daily}, nil)
	require.NoError(t, err)
	// p1: 2 weekly + 14 daily; p2: 1 short weekly + 3 daily.
	require.Len(t, units, 20)

	first := units[0]
	assert.Equal(t, "p1", first.PatientID)
	assert.Equal(t, "walk", first.ConfigID)
	assert.Len(t, first.Input.Series, 7)

	second := units[1]
	assert.Equal(t, 1, second.WindowIndex)
	assert.Equal(t, 7, second.Input.StartDay)

	p2walk := units[16]
	assert.Equal(t, "p2", p2walk.PatientID)
	assert.Equal(t, "walk", p2walk.ConfigID)
	assert.Equal(t, 3, p2walk.Input.Series.Observed(), "short data still yields one padded window")

	r := NewRunner(nil, nil, Options{})
	report, err := r.Run(context.Background(), Job{
		RunID:   "run-plan",
		Configs: mustIndex(t, walk, daily),
		Units:   units,
	})
	require.NoError(t, err)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 100.0, report.Results[0].Result.Score, "five qualifying days in week one")
	assert.Equal(t, 0.0, report.Results[1].Result.Score)
}

func TestPlan_ExplicitPatients(t *testing.T) {
	src, err := metricsource.ParseDocument([]byte(planData))
	require.NoError(t, err)

	units, err := Plan(context.Background(), src, []*domain.AlgorithmConfig{mustParse(t, stepsConfig)}, []string{"p2"})
	require.NoError(t, err)
	assert.Len(t, units, 3)

	_, err = Plan(context.Background(), src, []*domain.AlgorithmConfig{mustParse(t, stepsConfig)}, []string{"ghost"})
	require.ErrorIs(t, err, metricsource.ErrUnknownPatient)
}
