package query

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
)

//go:embed locations.yaml
var defaultLocations []byte

// LocationEntry is one named place in the keyword table.
type LocationEntry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Lat      float64  `yaml:"lat"`
	Lng      float64  `yaml:"lng"`
	RadiusKm float64  `yaml:"radius_km"`
}

type locationFile struct {
	Locations []LocationEntry `yaml:"locations"`
}

type keywordRule struct {
	keyword string
	pattern *regexp.Regexp
	entry   *LocationEntry
}

// LocationTable resolves place names in query text. It is immutable once built.
type LocationTable struct {
	rules []keywordRule
}

// DefaultLocationTable returns the built-in New York table.
func DefaultLocationTable() *LocationTable {
	t, err := ParseLocationTable(defaultLocations)
	if err != nil {
		panic(fmt.Sprintf("embedded locations.yaml: %v", err))
	}
	return t
}

// LoadLocationTable reads a table in the locations.yaml format.
func LoadLocationTable(path string) (*LocationTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading location table: %w", err)
	}
	return ParseLocationTable(data)
}

// ParseLocationTable builds a table from YAML.
func ParseLocationTable(data []byte) (*LocationTable, error) {
	var f locationFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing location table: %w", err)
	}

	t := &LocationTable{}
	for i := range f.Locations {
		e := &f.Locations[i]
		if e.Name == "" {
			return nil, fmt.Errorf("location %d has no name", i)
		}
		if e.Lat < -90 || e.Lat > 90 || e.Lng < -180 || e.Lng > 180 {
			return nil, fmt.Errorf("location %q has invalid coordinates", e.Name)
		}
		if e.RadiusKm <= 0 {
			e.RadiusKm = defaultRadiusKm
		}
		for _, kw := range e.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			t.rules = append(t.rules, keywordRule{
				keyword: kw,
				pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`),
				entry:   e,
			})
		}
	}
	return t, nil
}

// Lookup returns the place whose keyword is the longest match in text.
// Ties go to the entry listed first.
func (t *LocationTable) Lookup(text string) *model.QueryLocation {
	lower := strings.ToLower(text)
	var best *keywordRule
	for i := range t.rules {
		r := &t.rules[i]
		if best != nil && len(r.keyword) <= len(best.keyword) {
			continue
		}
		if r.pattern.MatchString(lower) {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	return &model.QueryLocation{
		Name:     best.entry.Name,
		Lat:      best.entry.Lat,
		Lng:      best.entry.Lng,
		RadiusKm: best.entry.RadiusKm,
	}
}

// Len returns the number of keywords in the table.
func (t *LocationTable) Len() int {
	return len(t.rules)
}
