package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
)

const (
	amount    = `(\d[\d,]*(?:\.\d+)?)`
	maxAmount = 1e7
)

var (
	rangeDollarPattern   = regexp.MustCompile(`\$\s*` + amount + `\s*(?:-|–|—|to)\s*\$?\s*` + amount)
	rangeBetweenPattern  = regexp.MustCompile(`\bbetween\s+\$?\s*` + amount + `\s+and\s+\$?\s*` + amount)
	upperBoundPattern    = regexp.MustCompile(`\b(?:under|below|less\s+than|up\s+to|max(?:imum)?|no\s+more\s+than|at\s+most)\s*\$\s*` + amount)
	approximatePattern   = regexp.MustCompile(`(?:\b(?:around|about|approximately|approx\.?|roughly)\s*|~\s*)\$\s*` + amount)
	pricePerNightPattern = regexp.MustCompile(`\$\s*` + amount + `\s*(?:/|per\s+|a\s+)\s*(?:night|nt)\b`)
)

// extractBudget finds a nightly price band. Patterns are tried in priority order:
// explicit ranges, upper bounds, approximations, then a bare nightly price.
func extractBudget(lower string) *model.Budget {
	for _, p := range []*regexp.Regexp{rangeDollarPattern, rangeBetweenPattern} {
		if m := p.FindStringSubmatch(lower); m != nil {
			lo, ok1 := parseAmount(m[1])
			hi, ok2 := parseAmount(m[2])
			if ok1 && ok2 {
				if lo > hi {
					lo, hi = hi, lo
				}
				return &model.Budget{Min: lo, Max: hi}
			}
		}
	}

	if m := upperBoundPattern.FindStringSubmatch(lower); m != nil {
		if x, ok := parseAmount(m[1]); ok {
			return &model.Budget{Min: 0.5 * x, Max: x}
		}
	}

	for _, p := range []*regexp.Regexp{approximatePattern, pricePerNightPattern} {
		if m := p.FindStringSubmatch(lower); m != nil {
			if x, ok := parseAmount(m[1]); ok {
				return &model.Budget{Min: 0.8 * x, Max: 1.2 * x}
			}
		}
	}

	return nil
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 || v > maxAmount {
		return 0, false
	}
	return v, true
}
