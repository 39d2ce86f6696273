package temporal

import (
	"sort"
	"strings"
)

// Weekday indexes the week starting on Monday, matching the mask layout.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DaysPerWeek is the length of the weekday mask.
const DaysPerWeek = 7

var shortNames = [DaysPerWeek]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// weekdayAliases maps every accepted spelling to its weekday.
var weekdayAliases = map[string]Weekday{
	"mon": Monday, "monday": Monday, "mondays": Monday,
	"tue": Tuesday, "tues": Tuesday, "tuesday": Tuesday, "tuesdays": Tuesday,
	"wed": Wednesday, "weds": Wednesday, "wednesday": Wednesday, "wednesdays": Wednesday,
	"thu": Thursday, "thur": Thursday, "thurs": Thursday, "thursday": Thursday, "thursdays": Thursday,
	"fri": Friday, "friday": Friday, "fridays": Friday,
	"sat": Saturday, "saturday": Saturday, "saturdays": Saturday,
	"sun": Sunday, "sunday": Sunday, "sundays": Sunday,
}

// String returns the three-letter lowercase label ("mon", "tue", ...).
func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return "unknown"
	}
	return shortNames[d]
}

// IsWeekday reports whether d falls Monday through Friday.
func (d Weekday) IsWeekday() bool {
	return d >= Monday && d <= Friday
}

// ParseWeekday resolves a day name or abbreviation, ignoring case and surrounding space.
func ParseWeekday(name string) (Weekday, bool) {
	d, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// ParseDays converts listing day names into a sorted, de-duplicated weekday set.
// Unknown names are dropped.
func ParseDays(names []string) []Weekday {
	seen := make(map[Weekday]bool, len(names))
	days := make([]Weekday, 0, len(names))
	for _, name := range names {
		d, ok := ParseWeekday(name)
		if !ok || seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// Labels renders weekdays as their short labels.
func Labels(days []Weekday) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	return out
}
