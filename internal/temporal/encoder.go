// Package temporal encodes weekly availability for listings and schedule
// requirements for queries into a shared 11-dimensional layout.
package temporal

import "math"

// Dims is the length of a temporal vector.
const Dims = 11

// Layout of a temporal vector.
const (
	DimCount       = 7  // number of distinct days
	DimWeekdayFrac = 8  // share of days falling Monday-Friday
	DimConsecutive = 9  // 1 when the days form an unbroken run
	DimFlexible    = 10 // 1 when the schedule is treated as flexible
)

// flexibleMinDays is the day count at which a listing counts as flexible.
const flexibleMinDays = 5

// Vector is a temporal feature vector.
type Vector [Dims]float32

// Mask returns the weekday mask held in dims 0-6.
func (v Vector) Mask() [DaysPerWeek]bool {
	var m [DaysPerWeek]bool
	for i := 0; i < DaysPerWeek; i++ {
		m[i] = v[i] > 0.5
	}
	return m
}

// Days returns the weekdays set in the mask, in order.
func (v Vector) Days() []Weekday {
	var days []Weekday
	for i, set := range v.Mask() {
		if set {
			days = append(days, Weekday(i))
		}
	}
	return days
}

// Nights returns the per-week night count carried in dim 7.
func (v Vector) Nights() float64 {
	return float64(v[DimCount])
}

// Flexible reports whether the flexibility flag is set.
func (v Vector) Flexible() bool {
	return v[DimFlexible] > 0.5
}

// Slice returns the vector as a plain slice for model input.
func (v Vector) Slice() []float32 {
	out := make([]float32, Dims)
	copy(out, v[:])
	return out
}

// EncodeDaysAvailable encodes the weekdays a listing can be occupied.
// An empty set yields the neutral encoding with a 0.5 weekday fraction.
func EncodeDaysAvailable(days []Weekday) Vector {
	var mask [DaysPerWeek]bool
	for _, d := range days {
		if d >= Monday && d <= Sunday {
			mask[d] = true
		}
	}
	count := maskCount(mask)

	var v Vector
	if count == 0 {
		v[DimWeekdayFrac] = 0.5
		return v
	}
	fillMask(&v, mask)
	v[DimCount] = float32(count)
	v[DimWeekdayFrac] = weekdayFraction(mask)
	if isConsecutive(mask) {
		v[DimConsecutive] = 1
	}
	if count >= flexibleMinDays {
		v[DimFlexible] = 1
	}
	return v
}

// EncodeUserSchedule parses a query phrase and encodes the resulting schedule.
func EncodeUserSchedule(text string) Vector {
	return EncodeSchedule(ParseUserSchedule(text))
}

// EncodeSchedule encodes a parsed schedule. Dim 7 carries the requested nights per
// week rather than the mask size, and dim 10 the parsed flexibility.
func EncodeSchedule(s Schedule) Vector {
	var v Vector
	fillMask(&v, s.WeekdayMask)
	nights := s.NightsPerWeek
	if nights < 0 {
		nights = 0
	}
	if nights > DaysPerWeek {
		nights = DaysPerWeek
	}
	v[DimCount] = float32(nights)
	if maskCount(s.WeekdayMask) == 0 {
		v[DimWeekdayFrac] = 0.5
	} else {
		v[DimWeekdayFrac] = weekdayFraction(s.WeekdayMask)
		if isConsecutive(s.WeekdayMask) {
			v[DimConsecutive] = 1
		}
	}
	if s.Flexible {
		v[DimFlexible] = 1
	}
	return v
}

// ScheduleCompatibility scores how well a listing's week covers a user's week, in [0, 1].
//
//	0.40 * share of the user's days the listing offers
//	0.30 * closeness of the per-week night counts
//	0.30 * flexibility term (1.0 when either side is flexible or the masks agree, else 0.5)
func ScheduleCompatibility(listing, user Vector) float64 {
	lm, um := listing.Mask(), user.Mask()
	var overlap, userDays int
	same := true
	for i := 0; i < DaysPerWeek; i++ {
		if um[i] {
			userDays++
			if lm[i] {
				overlap++
			}
		}
		if lm[i] != um[i] {
			same = false
		}
	}
	coverage := float64(overlap) / math.Max(float64(userDays), 1)

	closeness := 1 - math.Abs(listing.Nights()-user.Nights())/DaysPerWeek
	if closeness < 0 {
		closeness = 0
	}

	flex := 0.5
	if listing.Flexible() || user.Flexible() || same {
		flex = 1.0
	}

	score := 0.40*coverage + 0.30*closeness + 0.30*flex
	return math.Min(math.Max(score, 0), 1)
}

func fillMask(v *Vector, mask [DaysPerWeek]bool) {
	for i, set := range mask {
		if set {
			v[i] = 1
		}
	}
}

func maskCount(mask [DaysPerWeek]bool) int {
	n := 0
	for _, set := range mask {
		if set {
			n++
		}
	}
	return n
}

func weekdayFraction(mask [DaysPerWeek]bool) float32 {
	total, weekdays := 0, 0
	for i, set := range mask {
		if !set {
			continue
		}
		total++
		if Weekday(i).IsWeekday() {
			weekdays++
		}
	}
	if total == 0 {
		return 0
	}
	return float32(weekdays) / float32(total)
}

// isConsecutive reports whether the set days form one run. Sunday does not wrap to Monday.
func isConsecutive(mask [DaysPerWeek]bool) bool {
	first, last, count := -1, -1, 0
	for i, set := range mask {
		if !set {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		count++
	}
	return count > 0 && last-first+1 == count
}
