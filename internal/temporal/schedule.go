package temporal

import (
	"regexp"
	"strconv"
	"strings"
)

// Schedule is the weekly requirement extracted from a query.
type Schedule struct {
	WeekdayMask   [DaysPerWeek]bool `json:"weekday_mask"`
	NightsPerWeek int               `json:"nights_per_week"`
	SpecificDays  []string          `json:"specific_days"`
	Flexible      bool              `json:"flexible"`
}

const rangeSep = `\s*(?:-|–|—|to|through|thru|until)\s*`

var (
	monThuPattern  = regexp.MustCompile(`\bmon(?:days?)?` + rangeSep + `thu(?:rsdays?|rs|r)?\b`)
	monFriPattern  = regexp.MustCompile(`\bmon(?:days?)?` + rangeSep + `fri(?:days?)?\b`)
	weekendPattern = regexp.MustCompile(`\bweekends?\b|\bfri(?:days?)?` + rangeSep + `sun(?:days?)?\b`)
	perWeekPattern = regexp.MustCompile(`\b(\d+)\s*(?:nights?|days?)\s*(?:per|a|/|each|every)\s*week\b`)
	dayNamePattern = regexp.MustCompile(`\b(mon(?:days?)?|tue(?:s|sdays?)?|wed(?:s|nesdays?)?|thu(?:rsdays?|rs|r)?|fri(?:days?)?|sat(?:urdays?)?|sun(?:days?)?)\b`)
	flexPattern    = regexp.MustCompile(`\b(?:flexible|flex|any\s*day|anytime|any\s+time)\b`)
)

type rangeRule struct {
	pattern *regexp.Regexp
	days    []Weekday
}

// rangeRules are tried in order; the first hit selects the mask.
var rangeRules = []rangeRule{
	{monThuPattern, []Weekday{Monday, Tuesday, Wednesday, Thursday}},
	{monFriPattern, []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}},
	{weekendPattern, []Weekday{Saturday, Sunday}},
}

// ParseUserSchedule extracts a weekly schedule from free text.
// A query that names no days is treated as flexible across the whole week.
func ParseUserSchedule(text string) Schedule {
	lower := strings.ToLower(text)
	var s Schedule
	nightsSet := false

	for _, rule := range rangeRules {
		loc := rule.pattern.FindStringIndex(lower)
		if loc == nil {
			continue
		}
		for _, d := range rule.days {
			s.WeekdayMask[d] = true
		}
		s.NightsPerWeek = len(rule.days)
		nightsSet = true
		// Blank the range so its endpoints are not read again as single days.
		lower = lower[:loc[0]] + strings.Repeat(" ", loc[1]-loc[0]) + lower[loc[1]:]
		break
	}

	if m := perWeekPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 0 {
			if n > DaysPerWeek {
				n = DaysPerWeek
			}
			s.NightsPerWeek = n
			nightsSet = true
		}
	}

	found := false
	for _, name := range dayNamePattern.FindAllString(lower, -1) {
		if d, ok := ParseWeekday(name); ok {
			s.WeekdayMask[d] = true
			found = true
		}
	}
	if found && !nightsSet {
		s.NightsPerWeek = maskCount(s.WeekdayMask)
		nightsSet = true
	}

	if maskCount(s.WeekdayMask) == 0 {
		for i := range s.WeekdayMask {
			s.WeekdayMask[i] = true
		}
		s.Flexible = true
		// An explicit "flexible"/"anytime" means every night of the week.
		// Silence keeps any per-week count the text gave.
		if flexPattern.MatchString(lower) || !nightsSet {
			s.NightsPerWeek = DaysPerWeek
		}
	}

	if !s.Flexible {
		s.SpecificDays = Labels(maskDays(s.WeekdayMask))
	} else {
		s.SpecificDays = []string{}
	}
	return s
}

func maskDays(mask [DaysPerWeek]bool) []Weekday {
	var days []Weekday
	for i, set := range mask {
		if set {
			days = append(days, Weekday(i))
		}
	}
	return days
}
