package query

import (
	"regexp"
	"strconv"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
)

const (
	nightsPerWeek  = 7
	nightsPerMonth = 30
	weeksPerMonth  = 4
	maxCount       = 3650
)

var (
	durationPattern = regexp.MustCompile(`\b(\d+)\s*(nights?|days?|weeks?|months?)\b`)
	// A count followed by this is a weekly rate, not a length of stay.
	perWeekSuffix = regexp.MustCompile(`^\s*(?:per|a|/|each|every)\s*week\b`)
)

// extractDuration finds the first "<N> nights|days|weeks|months" that is not a per-week rate.
func extractDuration(lower string) *model.Duration {
	for _, loc := range durationPattern.FindAllStringSubmatchIndex(lower, -1) {
		if perWeekSuffix.MatchString(lower[loc[1]:]) {
			continue
		}
		n, err := strconv.Atoi(lower[loc[2]:loc[3]])
		if err != nil || n <= 0 || n > maxCount {
			continue
		}

		unit := lower[loc[4]:loc[5]]
		switch unit[0] {
		case 'n', 'd':
			weeks := ceilDiv(n, nightsPerWeek)
			return &model.Duration{Nights: n, Weeks: weeks}
		case 'w':
			return &model.Duration{Nights: n * nightsPerWeek, Weeks: n}
		case 'm':
			return &model.Duration{Nights: n * nightsPerMonth, Weeks: n * weeksPerMonth}
		}
	}
	return nil
}

func ceilDiv(a, b int) int {
	q := (a + b - 1) / b
	if q < 1 {
		return 1
	}
	return q
}
