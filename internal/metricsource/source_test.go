package metricsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-adhere/internal/domain"
)

const patientsJSON = `{
  "patients": [
    {
      "id": "p2",
      "series": {
        "steps": [8000, null, 12000, 10000, 9000, 11000, 7000, 10000, 10000],
        "cardio_minutes": [30, 20, 0, 45, 30, 30, 10],
        "sleep_hours": [7.5, 8, 8]
      },
      "entries": {
        "meals": [
          {"day": 0, "category": "takeout", "quantity": 1},
          {"day": 8, "category": "home", "quantity": 1}
        ]
      }
    },
    {"id": "p1", "series": {"steps": [5000]}}
  ]
}`

func mustSource(t *testing.T) *FileSource {
	t.Helper()
	src, err := ParseDocument([]byte(patientsJSON))
	require.NoError(t, err)
	return src
}

func TestFileSource_Series(t *testing.T) {
	src := mustSource(t)
	ctx := context.Background()

	ids, err := src.Patients(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)

	got, err := src.Series(ctx, "p2", "steps", 0, 7)
	require.NoError(t, err)
	require.NoError(t, got.ValidateShape(7))
	assert.Equal(t, 6, got.Observed())

	second, err := src.Series(ctx, "p2", "steps", 7, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, second.StartDay())
	assert.Equal(t, 2, second.Observed(), "days past the recorded values are missing")

	_, err = src.Series(ctx, "p2", "weight", 0, 7)
	require.ErrorIs(t, err, ErrNoData)
	_, err = src.Series(ctx, "nobody", "steps", 0, 7)
	require.ErrorIs(t, err, ErrUnknownPatient)
}

func TestFileSource_EntriesAndHorizon(t *testing.T) {
	src := mustSource(t)
	ctx := context.Background()

	first, err := src.Entries(ctx, "p2", "meals", 0, 7)
	require.NoError(t, err)
	assert.Equal(t, []domain.CategoricalEntry{{Day: 0, Category: "takeout", Quantity: 1}}, first)

	empty, err := src.Entries(ctx, "p2", "meals", 14, 7)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = src.Entries(ctx, "p1", "meals", 0, 7)
	require.ErrorIs(t, err, ErrNoData)

	h, err := src.Horizon(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: `{`},
		{name: "missing id", doc: `{"patients":[{"series":{}}]}`},
		{name: "duplicate id", doc: `{"patients":[{"id":"a"},{"id":"a"}]}`},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (go 1.21 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestInput(t *testing.T) {
	src := mustSource(t)
	ctx := context.Background()

	t.Run("primary series", func(t *testing.T) {
		cfg := mustParse(t, `{"configId":"steps","scoringMethod":"proportional","metric":"steps","windowDays":7,"schema":{"target":10000}}`)
		in, err := Input(ctx, src, cfg, "p2", 0)
		require.NoError(t, err)
		assert.Len(t, in.Series, 7)
		assert.Nil(t, in.Entries)
	})

	t.Run("absent metric is left empty", func(t *testing.T) {
		cfg := mustParse(t, `{"configId":"steps","scoringMethod":"proportional","metric":"steps","windowDays":7,"schema":{"target":10000}}`)
		in, err := Input(ctx, src, cfg, "p1", 0)
		require.NoError(t, err)
		assert.Len(t, in.Series, 7)

		cfg.Metric = "weight"
		in, err = Input(ctx, src, cfg, "p1", 0)
		require.NoError(t, err)
		assert.Nil(t, in.Series)
	})

	t.Run("entries", func(t *testing.T) {
		cfg := mustParse(t, `{"configId":"meals","scoringMethod":"categorical_filter_threshold","metric":"meals",
			"schema":{"categories":["takeout"],"threshold":2,"comparisonOperator":"<="}}`)
		in, err := Input(ctx, src, cfg, "p2", 0)
		require.NoError(t, err)
		assert.Len(t, in.Entries, 1)
	})

	t.Run("unknown patient fails", func(t *testing.T) {
		cfg := mustParse(t, `{"configId":"steps","scoringMethod":"proportional","metric":"steps","windowDays":7,"schema":{"target":10000}}`)
		_, err := Input(ctx, src, cfg, "nobody", 0)
		require.ErrorIs(t, err, ErrUnknownPatient)
	})
}

func mustParse(t *testing.T, raw string) *domain.AlgorithmConfig {
	t.Helper()
	cfg, err := domain.ParseConfig([]byte(raw))
	require.NoError(t, err)
	return cfg
}
