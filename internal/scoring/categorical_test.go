package scoring //nolint:testpackage // Need access to unexported evaluators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-adhere/internal/domain"
)

func entries(es ...domain.CategoricalEntry) domain.EvaluationInput {
	if es == nil {
		es = []domain.CategoricalEntry{}
	}
	return domain.EvaluationInput{StartDay: 0, Entries: es}
}

func TestCategoricalFilter_Period(t *testing.T) {
	cfg := mustConfig(t, `{"configId":"takeout","scoringMethod":"categorical_filter_threshold","schema":{
		"categories":["takeout","fast_food"],"threshold":2,"comparisonOperator":"<="}}`)

	t.Run("within limit", func(t *testing.T) {
		res := mustScore(t, cfg, entries(
			domain.CategoricalEntry{Day: 0, Category: "Takeout", Quantity: 1},
			domain.CategoricalEntry{Day: 3, Category: "fast_food", Quantity: 1},
			domain.CategoricalEntry{Day: 4, Category: "salad", Quantity: 1},
		))
		assert.Equal(t, 100.0, res.Score)
		assert.Equal(t, 2.0, res.Breakdown["value"])
		assert.Equal(t, map[string]int{"takeout": 1, "fast_food": 1}, res.Breakdown["matchedCategories"])
	})

	t.Run("over limit", func(t *testing.T) {
		res := mustScore(t, cfg, entries(
			domain.CategoricalEntry{Day: 0, Category: "takeout", Quantity: 1},
			domain.CategoricalEntry{Day: 1, Category: "takeout", Quantity: 1},
			domain.CategoricalEntry{Day: 6, Category: "FAST_FOOD", Quantity: 1},
		))
		assert.Equal(t, 0.0, res.Score)
		assert.False(t, res.Passed)
	})

	t.Run("nothing logged", func(t *testing.T) {
		res := mustScore(t, cfg, entries())
		assert.Equal(t, 100.0, res.Score)
	})

	t.Run("no log at all", func(t *testing.T) {
		mustInsufficient(t, cfg, domain.EvaluationInput{})
	})

	t.Run("entry outside window", func(t *testing.T) {
		requireShapeError(t, cfg, entries(domain.CategoricalEntry{Day: 7, Category: "takeout", Quantity: 1}))
	})

	t.Run("invalid quantity", func(t *testing.T) {
		requireShapeError(t, cfg, entries(domain.CategoricalEntry{Day: 1, Category: "takeout", Quantity: math.NaN()}))
	})
}

func TestCategoricalFilter_ExcludeSum(t *testing.T) {
	cfg := mustConfig(t, `{"configId":"whole-food","scoringMethod":"categorical_filter_threshold","schema":{
		"categories":["processed"],"filterType":"exclude","calculationMethod":"sum","threshold":10}}`)

	res := mustScore(t, cfg, entries(
		domain.CategoricalEntry{Day: 0, Category: "vegetable", Quantity: 4},
		domain.CategoricalEntry{Day: 2, Category: "fruit", Quantity: 6.5},
		domain.CategoricalEntry{Day: 2, Category: "Processed", Quantity: 20},
	))
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, 10.5, res.Breakdown["value"])
	assert.Equal(t, 2, res.Breakdown["matchedEntries"])
}

func TestCategoricalFilter_Daily(t *testing.T) {
	cfg := mustConfig(t, `{"configId":"veg-days","scoringMethod":"categorical_filter_threshold","schema":{
		"categories":["vegetable"],"calculationMethod":"exists","threshold":1,"mode":"daily","requiredDays":5}}`)

	logged := []domain.CategoricalEntry{
		{Day: 10, Category: "vegetable", Quantity: 1},
		{Day: 11, Category: "vegetable", Quantity: 2},
		{Day: 11, Category: "vegetable", Quantity: 1},
		{Day: 12, Category: "fruit", Quantity: 1},
		{Day: 13, Category: "vegetable", Quantity: 1},
		{Day: 15, Category: "vegetable", Quantity: 1},
		{Day: 16, Category: "vegetable", Quantity: 1},
	}
	res := mustScore(t, cfg, domain.EvaluationInput{StartDay: 10, Entries: logged})
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, 5, res.Breakdown["qualifyingDays"])
	assert.Equal(t, []float64{1, 1, 0, 1, 0, 1, 1}, res.Breakdown["dailyValues"])

	res = mustScore(t, cfg, domain.EvaluationInput{StartDay: 10, Entries: logged[:5]})
	assert.Equal(t, 0.0, res.Score)
}

func TestReduceEntries(t *testing.T) {
	es := []domain.CategoricalEntry{{Quantity: 2}, {Quantity: 3.5}}
	assert.Equal(t, 2.0, reduceEntries(domain.CalcCount, es))
	assert.Equal(t, 5.5, reduceEntries(domain.CalcSum, es))
	assert.Equal(t, 1.0, reduceEntries(domain.CalcExists, es))
	assert.Equal(t, 0.0, reduceEntries(domain.CalcExists, nil))
}
