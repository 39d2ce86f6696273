package temporal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDaysAvailable_Empty(t *testing.T) {
	got := EncodeDaysAvailable(nil)
	want := Vector{0, 0, 0, 0, 0, 0, 0, 0, 0.5, 0, 0}
	assert.Equal(t, want, got)
}

func TestEncodeDaysAvailable_AllSubsets(t *testing.T) {
	// Every subset of the week, encoded from a bitmask.
	for bits := 0; bits < 1<<DaysPerWeek; bits++ {
		var days []Weekday
		for i := 0; i < DaysPerWeek; i++ {
			if bits&(1<<i) != 0 {
				days = append(days, Weekday(i))
			}
		}
		v := EncodeDaysAvailable(days)

		require.Len(t, v, Dims)
		for i := 0; i < DaysPerWeek; i++ {
			assert.True(t, v[i] == 0 || v[i] == 1, "dim %d not binary for %v", i, days)
		}
		assert.Equal(t, float32(len(days)), v[DimCount])
		if len(days) >= 5 {
			assert.Equal(t, float32(1), v[DimFlexible])
		} else {
			assert.Equal(t, float32(0), v[DimFlexible])
		}
		for _, x := range v {
			assert.False(t, math.IsNaN(float64(x)) || math.IsInf(float64(x), 0))
		}
	}
}

func TestEncodeDaysAvailable_Features(t *testing.T) {
	tests := []struct {
		name        string
		days        []Weekday
		weekdayFrac float32
		consecutive float32
	}{
		{"mon-thu", []Weekday{Monday, Tuesday, Wednesday, Thursday}, 1, 1},
		{"weekend", []Weekday{Saturday, Sunday}, 0, 1},
		{"fri-sun", []Weekday{Friday, Saturday, Sunday}, float32(1) / 3, 1},
		{"sun and mon do not wrap", []Weekday{Sunday, Monday}, 0.5, 0},
		{"gap", []Weekday{Monday, Wednesday}, 1, 0},
		{"single day", []Weekday{Tuesday}, 1, 1},
		{"duplicates ignored", []Weekday{Monday, Monday, Tuesday}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := EncodeDaysAvailable(tt.days)
			assert.InDelta(t, tt.weekdayFrac, v[DimWeekdayFrac], 1e-6)
			assert.Equal(t, tt.consecutive, v[DimConsecutive])
		})
	}
}

func TestScheduleCompatibility_Bounds(t *testing.T) {
	inputs := []Vector{
		EncodeDaysAvailable(nil),
		EncodeDaysAvailable([]Weekday{Saturday, Sunday}),
		EncodeDaysAvailable([]Weekday{Monday, Tuesday, Wednesday, Thursday}),
		EncodeDaysAvailable([]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}),
		EncodeUserSchedule("Mon-Thu nights"),
		EncodeUserSchedule("weekends only"),
		EncodeUserSchedule("flexible"),
		EncodeUserSchedule("3 nights per week"),
		EncodeUserSchedule(""),
	}
	for _, l := range inputs {
		for _, u := range inputs {
			score := ScheduleCompatibility(l, u)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

func TestScheduleCompatibility_Identical(t *testing.T) {
	for _, v := range []Vector{
		EncodeDaysAvailable([]Weekday{Monday, Tuesday, Wednesday, Thursday}),
		EncodeDaysAvailable([]Weekday{Saturday, Sunday}),
		EncodeDaysAvailable([]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}),
		EncodeUserSchedule("flexible"),
	} {
		assert.InDelta(t, 1.0, ScheduleCompatibility(v, v), 1e-9)
	}
}

func TestScheduleCompatibility_Weights(t *testing.T) {
	user := EncodeUserSchedule("Mon-Thu nights")
	monThu := EncodeDaysAvailable([]Weekday{Monday, Tuesday, Wednesday, Thursday})
	friSun := EncodeDaysAvailable([]Weekday{Friday, Saturday, Sunday})

	assert.InDelta(t, 1.0, ScheduleCompatibility(monThu, user), 1e-9)
	// No overlap, one night apart, neither flexible.
	want := 0.30*(1-1.0/7) + 0.30*0.5
	assert.InDelta(t, want, ScheduleCompatibility(friSun, user), 1e-9)
}
