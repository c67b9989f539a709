package frequency

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-adhere/internal/domain"
)

const (
	s = DaySatisfied
	u = DayUnsatisfied
	m = DayMissing
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		req       domain.FrequencyRequirement
		days      []DayStatus
		met       bool
		satisfied int
		run       int
	}{
		{
			name:      "count met",
			req:       domain.FrequencyRequirement{RequiredDays: 5, TotalDays: 7, Mode: domain.FrequencyCount},
			days:      []DayStatus{s, s, u, s, s, m, s},
			met:       true,
			satisfied: 5,
			run:       2,
		},
		{
			name:      "count missed because missing days never satisfy",
			req:       domain.FrequencyRequirement{RequiredDays: 5, TotalDays: 7, Mode: domain.FrequencyCount},
			days:      []DayStatus{s, s, m, s, s, m, m},
			satisfied: 4,
			run:       2,
		},
		{
			name:      "consecutive met",
			req:       domain.FrequencyRequirement{RequiredDays: 3, TotalDays: 7, Mode: domain.FrequencyConsecutive},
			days:      []DayStatus{u, s, s, s, u, s, s},
			met:       true,
			satisfied: 5,
			run:       3,
		},
		{
			name:      "consecutive broken by missing day",
			req:       domain.FrequencyRequirement{RequiredDays: 3, TotalDays: 5, Mode: domain.FrequencyConsecutive},
			days:      []DayStatus{s, s, m, s, s},
			satisfied: 4,
			run:       2,
		},
		{
			name:      "avoidance needs observed days",
			req:       domain.FrequencyRequirement{RequiredDays: 7, TotalDays: 7, Mode: domain.FrequencyAvoidance},
			days:      []DayStatus{s, s, s, s, s, s, m},
			satisfied: 6,
			run:       6,
		},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (go 1.21 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resolve(tt.req, tt.days)
			require.NoError(t, err)
			assert.Equal(t, tt.met, out.Met)
			assert.Equal(t, tt.satisfied, out.SatisfiedDays)
			assert.Equal(t, tt.run, out.LongestRun)
			if tt.met {
				assert.Equal(t, 100.0, out.Score())
			} else {
				assert.Equal(t, 0.0, out.Score())
			}
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	_, err := Resolve(domain.FrequencyRequirement{RequiredDays: 2, TotalDays: 3, Mode: domain.FrequencyCount}, []DayStatus{s})
	assert.ErrorIs(t, err, ErrWindowMismatch)

	_, err = Resolve(domain.FrequencyRequirement{RequiredDays: 4, TotalDays: 3, Mode: domain.FrequencyCount}, []DayStatus{s, s, s})
	assert.Error(t, err)

	_, err = Resolve(domain.FrequencyRequirement{
		RequiredDays: 1, TotalDays: 1, Mode: domain.FrequencyPeriodAggregate, AggregationMethod: domain.CalcSum,
	}, []DayStatus{s})
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestReduce(t *testing.T) {
	values := []float64{350, 450, 0, 420}
	tests := []struct {
		method domain.CalculationMethod
		want   float64
	}{
		{domain.CalcSum, 1220},
		{domain.CalcAverage, 305},
		{domain.CalcMax, 450},
		{domain.CalcMin, 0},
		{domain.CalcCount, 3},
		{domain.CalcExists, 1},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (go 1.21 loop semantics)
		t.Run(string(tt.method), func(t *testing.T) {
			got, err := Reduce(tt.method, values)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := Reduce(domain.CalcSum, nil)
	assert.ErrorIs(t, err, ErrNoObservations)
	_, err = Reduce("median", values)
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestAggregatePeriod_SkipsMissingDays(t *testing.T) {
	series := domain.SeriesFromNullable(0, domain.Float(2), nil, domain.Float(4))
	avg, err := AggregatePeriod(domain.CalcAverage, series)
	require.NoError(t, err)
	assert.Equal(t, 3.0, avg)
}

func TestTopN(t *testing.T) {
	got, err := TopN([]float64{66.67, 100, 50, 80}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 90, got, 1e-9)

	_, err = TopN([]float64{100}, 2)
	assert.ErrorIs(t, err, ErrTooFewScores)

	input := []float64{1, 3, 2}
	_, err = TopN(input, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 2}, input, "TopN must not reorder its input")
}

// Property: adding a satisfied day never turns a met count requirement into a miss.
func TestResolve_CountMonotonic_Property(t *testing.T) {
	f := func(mask uint8, required uint8) bool {
		req := domain.FrequencyRequirement{RequiredDays: int(required%7) + 1, TotalDays: 7, Mode: domain.FrequencyCount}
		days := make([]DayStatus, 7)
		for i := range days {
			days[i] = StatusOf(true, mask&(1<<i) != 0)
		}
		before, err := Resolve(req, days)
		if err != nil {
			return false
		}
		for i := range days {
			if days[i] != DaySatisfied {
				days[i] = DaySatisfied
				break
			}
		}
		after, err := Resolve(req, days)
		if err != nil {
			return false
		}
		return !before.Met || after.Met
	}
	if err := quick.Check(f, nil); err != nil {
		t.Errorf("count monotonicity property failed: %v", err)
	}
}

func TestCompare(t *testing.T) {
	assert.True(t, Compare(8, domain.OpGreaterEqual, 8))
	assert.False(t, Compare(7.999, domain.OpGreaterEqual, 8))
}
