package utils

import (
	"regexp"
	"sort"
	"strings"
)

// amenityAliases maps a canonical amenity key to the spellings that refer to it,
// both in listing amenity lists and in free-text queries.
var amenityAliases = map[string][]string{
	"wifi":       {"wifi", "wi-fi", "wireless internet", "internet", "broadband"},
	"parking":    {"parking", "garage", "car park", "parking spot"},
	"washer":     {"washer", "washing machine", "washer/dryer", "laundry", "in-unit laundry"},
	"dryer":      {"dryer", "washer/dryer"},
	"kitchen":    {"kitchen", "kitchenette", "full kitchen"},
	"gym":        {"gym", "gymnasium", "fitness", "fitness center"},
	"pool":       {"pool", "swimming pool"},
	"aircon":     {"air conditioner", "air conditioning", "aircon", "a/c"},
	"heating":    {"heating", "heater", "central heat"},
	"workspace":  {"workspace", "desk", "dedicated workspace", "office space"},
	"elevator":   {"elevator", "lift"},
	"doorman":    {"doorman", "concierge"},
	"pets":       {"pet friendly", "pet-friendly", "pets allowed", "pets"},
	"tv":         {"tv", "television", "smart tv"},
	"dishwasher": {"dishwasher"},
	"balcony":    {"balcony", "terrace", "patio"},
}

var amenityPatterns = buildAmenityPatterns()

func buildAmenityPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(amenityAliases))
	for key, aliases := range amenityAliases {
		quoted := make([]string, len(aliases))
		for i, a := range aliases {
			quoted[i] = regexp.QuoteMeta(a)
		}
		patterns[key] = regexp.MustCompile(`(?:^|[^a-z])(?:` + strings.Join(quoted, "|") + `)(?:$|[^a-z])`)
	}
	return patterns
}

// FuzzyMatchAmenity performs fuzzy matching for amenity names
// Returns true if the search term fuzzy matches the amenity
func FuzzyMatchAmenity(searchTerm, amenity string) bool {
	searchLower := strings.ToLower(strings.TrimSpace(searchTerm))
	amenityLower := strings.ToLower(strings.TrimSpace(amenity))
	if searchLower == "" || amenityLower == "" {
		return false
	}

	// Exact match
	if searchLower == amenityLower {
		return true
	}

	// Whole-word contains match
	if containsWord(amenityLower, searchLower) {
		return true
	}

	// Alias match: both sides resolve to the same canonical amenity
	key := NormalizeAmenity(searchLower)
	if pattern, ok := amenityPatterns[key]; ok {
		return pattern.MatchString(amenityLower)
	}

	return false
}

// NormalizeAmenity normalizes amenity names to their canonical key.
// Unknown names are returned lowercased.
func NormalizeAmenity(amenity string) string {
	amenityLower := strings.ToLower(strings.TrimSpace(amenity))
	if _, ok := amenityAliases[amenityLower]; ok {
		return amenityLower
	}
	for key, aliases := range amenityAliases {
		for _, alias := range aliases {
			if amenityLower == alias {
				return key
			}
		}
	}
	return amenityLower
}

// ExtractAmenities returns the canonical amenity keys mentioned in text, sorted.
func ExtractAmenities(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for key, pattern := range amenityPatterns {
		if pattern.MatchString(lower) {
			found = append(found, key)
		}
	}
	sort.Strings(found)
	return found
}

// HasAmenity reports whether any entry of a listing's amenity list matches the search term.
func HasAmenity(amenities []string, searchTerm string) bool {
	for _, a := range amenities {
		if FuzzyMatchAmenity(searchTerm, a) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	for i := strings.Index(s, word); i >= 0; {
		end := i + len(word)
		if (i == 0 || !isAlnum(s[i-1])) && (end == len(s) || !isAlnum(s[end])) {
			return true
		}
		next := strings.Index(s[i+1:], word)
		if next < 0 {
			break
		}
		i += next + 1
	}
	return false
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
