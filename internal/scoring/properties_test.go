package scoring //nolint:testpackage // Need access to unexported evaluators

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-adhere/internal/domain"
)

// propertyConfigs covers every algorithm kind with a representative configuration.
var propertyConfigs = []string{
	`{"configId":"binary","scoringMethod":"binary_threshold","windowDays":7,"schema":{"threshold":50}}`,
	`{"configId":"minfreq","scoringMethod":"minimum_frequency","schema":{"dailyThreshold":40,"requiredDays":4}}`,
	`{"configId":"minfreq-agg","scoringMethod":"minimum_frequency","schema":{"mode":"periodAggregate","calculationMethod":"max","threshold":90}}`,
	`{"configId":"elim","scoringMethod":"weekly_elimination","schema":{"eliminationThreshold":95}}`,
	`{"configId":"limit","scoringMethod":"weekly_elimination","schema":{"mode":"limit","weeklyLimit":300}}`,
	`{"configId":"prop","scoringMethod":"proportional","windowDays":7,"schema":{"target":350}}`,
	`{"configId":"countdown","scoringMethod":"proportional","windowDays":7,"schema":{"target":40,"calculationMethod":"average","progressDirection":"countdown"}}`,
	`{"configId":"hybrid","scoringMethod":"proportional_frequency_hybrid","schema":{"dailyTarget":60,"requiredQualifyingDays":3}}`,
	`{"configId":"zone3","scoringMethod":"zone_based_3tier","windowDays":7,"schema":{"mode":"average","zones":[
		{"label":"low","lowerBound":0,"upperBound":30,"score":30},
		{"label":"mid","lowerBound":30,"upperBound":70,"score":100},
		{"label":"high","lowerBound":70,"upperBound":100,"score":50}]}}`,
	`{"configId":"zone5","scoringMethod":"zone_based_5tier","schema":{"mode":"frequency","targetZones":["c"],"requiredDays":2,"zones":[
		{"label":"a","lowerBound":0,"upperBound":20,"score":0},
		{"label":"b","lowerBound":20,"upperBound":40,"score":25},
		{"label":"c","lowerBound":40,"upperBound":60,"score":100},
		{"label":"d","lowerBound":60,"upperBound":80,"score":75},
		{"label":"e","lowerBound":80,"upperBound":100,"score":10}]}}`,
	`{"configId":"composite","scoringMethod":"composite_weighted","schema":{"mode":"frequency","components":[
		{"name":"x","weight":0.7,"target":50,"subAlgorithm":"proportional"},
		{"name":"y","weight":0.3,"target":20,"subAlgorithm":"binary_threshold"}]}}`,
	`{"configId":"sleep","scoringMethod":"sleep_composite","schema":{}}`,
	`{"configId":"allowance","scoringMethod":"constrained_weekly_allowance","schema":{"weeklyAllowance":200,"maxConsumptionDays":4,"penaltyPerExcess":0.5,"consumptionThreshold":10}}`,
	`{"configId":"categorical","scoringMethod":"categorical_filter_threshold","schema":{"categories":["a"],"mode":"daily","threshold":1,"requiredDays":3}}`,
}

// randomWindow is a quick.Generator for seven-day inputs with missing days.
type randomWindow struct{ in domain.EvaluationInput }

func (randomWindow) Generate(r *rand.Rand, _ int) reflect.Value {
	series := func(scale float64) domain.MetricSeries {
		s := domain.EmptySeries(0, 7)
		for i := range s {
			if r.Intn(5) > 0 {
				s[i].Value = domain.Float(r.Float64() * scale)
			}
		}
		return s
	}
	in := domain.EvaluationInput{
		Series: series(100),
		SubSeries: map[string]domain.MetricSeries{
			"x":              series(100),
			"y":              series(40),
			"sleep_duration": series(12),
			"bedtime":        series(1440),
			"waketime":       series(1440),
		},
	}
	in.Entries = []domain.CategoricalEntry{}
	for i := 0; i < r.Intn(10); i++ {
		in.Entries = append(in.Entries, domain.CategoricalEntry{
			Day: r.Intn(7), Category: []string{"a", "b"}[r.Intn(2)], Quantity: r.Float64() * 3,
		})
	}
	return reflect.ValueOf(randomWindow{in: in})
}

func TestProperty_ScoreBoundedAndDeterministic(t *testing.T) {
	r := NewRegistry()
	for _, record := range propertyConfigs {
		cfg := mustConfig(t, record)
		t.Run(cfg.ConfigID, func(t *testing.T) {
			prop := func(w randomWindow) bool {
				first, err := r.Evaluate(cfg, w.in)
				if err != nil {
					t.Logf("unexpected error: %v", err)
					return false
				}
				second, err := r.Evaluate(cfg, w.in)
				if err != nil || !reflect.DeepEqual(first, second) {
					return false
				}
				if first.Insufficient() {
					return first.Score == 0 && !first.Passed
				}
				return first.Score >= 0 && first.Score <= 100 && first.Validate() == nil
			}
			require.NoError(t, quick.Check(prop, &quick.Config{MaxCount: 200}))
		})
	}
}

func TestProperty_ConcurrentEvaluationSharesConfig(t *testing.T) {
	r := NewRegistry()
	cfg := mustConfig(t, propertyConfigs[10])
	in := randomWindow{}.Generate(rand.New(rand.NewSource(7)), 0).Interface().(randomWindow).in
	want, err := r.Evaluate(cfg, in)
	require.NoError(t, err)

	results := make(chan domain.ScoreResult, 16)
	for i := 0; i < cap(results); i++ {
		go func() {
			res, _ := r.Evaluate(cfg, in)
			results <- res
		}()
	}
	for i := 0; i < cap(results); i++ {
		assert.Equal(t, want, <-results)
	}
}
