package scoring //nolint:testpackage // Need access to unexported evaluators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-adhere/internal/domain"
)

func sleepInput(duration, bed, wake domain.MetricSeries) domain.EvaluationInput {
	sub := map[string]domain.MetricSeries{"sleep_duration": duration}
	if bed != nil {
		sub["bedtime"] = bed
	}
	if wake != nil {
		sub["waketime"] = wake
	}
	return domain.EvaluationInput{SubSeries: sub}
}

func TestSleepComposite(t *testing.T) {
	cfg := mustConfig(t, `{"configId":"sleep","scoringMethod":"sleep_composite","schema":{}}`)
	eightHours := domain.SeriesFromValues(0, 8, 8, 8, 8, 8, 8, 8)
	wake := domain.SeriesFromValues(0, 420, 420, 420, 420, 420, 420, 420)

	t.Run("steady schedule", func(t *testing.T) {
		bed := domain.SeriesFromValues(0, 1380, 1380, 1380, 1380, 1380, 1380, 1380)
		res := mustScore(t, cfg, sleepInput(eightHours, bed, wake))
		assert.Equal(t, 100.0, res.Score)
		assert.Equal(t, 7, res.Breakdown["compliantNights"])
	})

	t.Run("one late night", func(t *testing.T) {
		bed := domain.SeriesFromValues(0, 1380, 1380, 1380, 1380, 1380, 1380, 60)
		res := mustScore(t, cfg, sleepInput(eightHours, bed, wake))
		// 100*0.6 + (6/7*100)*0.4
		assert.Equal(t, 94.3, res.Score)
		assert.Equal(t, 6, res.Breakdown["compliantNights"])
		assert.Equal(t, 7, res.Breakdown["evaluatedNights"])
	})

	t.Run("bedtimes around midnight stay consistent", func(t *testing.T) {
		bed := domain.SeriesFromValues(0, 1430, 10, 1430, 10, 1430, 10, 1430)
		res := mustScore(t, cfg, sleepInput(eightHours, bed, wake))
		assert.Equal(t, 100.0, res.Breakdown["consistencyScore"])
	})

	t.Run("duration zones", func(t *testing.T) {
		duration := domain.SeriesFromNullable(0,
			domain.Float(6.5), domain.Float(4), nil, domain.Float(8), domain.Float(10), nil, nil)
		bed := domain.SeriesFromValues(0, 1380, 1380, 1380, 1380, 1380, 1380, 1380)
		res := mustScore(t, cfg, sleepInput(duration, bed, wake))
		// (80 + 20 + 100 + 70) / 4
		assert.InDelta(t, 67.5, res.Breakdown["durationScore"], 1e-9)
		assert.Equal(t, 4, res.Breakdown["durationNights"])
		assert.Equal(t, 80.5, res.Score)
		assert.True(t, res.Passed)
	})

	t.Run("duration falls back to primary series", func(t *testing.T) {
		bed := domain.SeriesFromValues(0, 1380, 1380, 1380, 1380, 1380, 1380, 1380)
		in := domain.EvaluationInput{
			Series:    eightHours,
			SubSeries: map[string]domain.MetricSeries{"bedtime": bed},
		}
		res := mustScore(t, cfg, in)
		assert.Equal(t, 100.0, res.Score)
	})

	t.Run("no schedule data", func(t *testing.T) {
		mustInsufficient(t, cfg, sleepInput(eightHours, nil, nil))
	})

	t.Run("schedule series of the wrong length", func(t *testing.T) {
		requireShapeError(t, cfg, sleepInput(eightHours, domain.SeriesFromValues(0, 1380), nil))
	})
}

func TestNormalizeBedtimes(t *testing.T) {
	got := normalizeBedtimes(domain.SeriesFromNullable(0, domain.Float(1410), domain.Float(30), nil, domain.Float(719), domain.Float(720)))
	assert.Equal(t, 1410.0, got[0])
	assert.Equal(t, 1470.0, got[1])
	assert.True(t, math.IsNaN(got[2]))
	assert.Equal(t, 2159.0, got[3])
	assert.Equal(t, 720.0, got[4])
}

func TestWithinTolerance(t *testing.T) {
	times := []float64{1380, math.NaN(), 1400, 1500}

	ok, seen := withinTolerance(times, 1, 7, 30)
	assert.False(t, seen)
	assert.False(t, ok)

	ok, seen = withinTolerance(times, 2, 7, 30)
	assert.True(t, seen)
	assert.True(t, ok)

	// Trailing window of two nights: mean(1400, 1500) = 1450.
	ok, _ = withinTolerance(times, 3, 2, 30)
	assert.False(t, ok)
	ok, _ = withinTolerance(times, 3, 2, 50)
	assert.True(t, ok)
}
