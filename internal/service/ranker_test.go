package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/index"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/temporal"
)

func candidateIDs(cs []index.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestSelectCandidates_BoroughSoftFilter(t *testing.T) {
	ix := buildIndex(t, []row{
		{model.Listing{ID: "mn-1", Borough: strPtr("Manhattan")}, axis(1)},
		{model.Listing{ID: "bk-1", Borough: strPtr("Brooklyn")}, axis(1, 1)},
		{model.Listing{ID: "bk-2", Borough: strPtr("brooklyn ")}, axis(1, 2)},
		{model.Listing{ID: "none"}, axis(1, 0.1)},
	})
	scores, err := ix.Similarities(axis(1))
	assert.NoError(t, err)

	r := DefaultRanker()
	brooklyn := &model.Borough{ID: "bk", Name: "Brooklyn"}

	tests := []struct {
		name    string
		k       int
		borough *model.Borough
		want    []string
	}{
		{"no borough", 2, nil, []string{"mn-1", "none"}},
		{"enough borough matches", 2, brooklyn, []string{"bk-1", "bk-2"}},
		{"too few matches falls back", 3, brooklyn, []string{"mn-1", "none", "bk-1"}},
		{"unknown borough falls back", 1, &model.Borough{Name: "Queens"}, []string{"mn-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, candidateIDs(r.SelectCandidates(ix, scores, tt.k, tt.borough)))
		})
	}
}

func TestRescore_TiesBySimilarity(t *testing.T) {
	ix := buildIndex(t, []row{
		{model.Listing{ID: "b"}, axis(1)},
		{model.Listing{ID: "a"}, axis(1)},
		{model.Listing{ID: "c"}, axis(1, 1)},
	})
	candidates := []index.Candidate{
		{Row: 2, ID: "c", Score: 0.9},
		{Row: 0, ID: "b", Score: 0.5},
		{Row: 1, ID: "a", Score: 0.5},
	}
	// Identical temporal vectors everywhere, so order follows similarity then id.
	out := DefaultRanker().Rescore(ix, candidates, temporal.EncodeDaysAvailable(nil))
	got := make([]string, len(out))
	for i, s := range out {
		got[i] = s.ID
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)
	// Empty schedules on both sides: no coverage, equal nights, identical masks.
	assert.InDelta(t, 0.7*0.9+0.3*0.6, out[0].Final, 1e-6)
}

func TestMatchReasons(t *testing.T) {
	r := DefaultRanker()
	full := model.ListingMetadata{
		Listing: model.Listing{
			ID:            "x",
			PricePerNight: f64Ptr(120),
			Location:      &model.GeoPoint{Lat: 40.7075, Lng: -74.0113},
			Amenities:     model.JSONArray{"Wi-Fi", "Washer"},
		},
		Temporal: temporal.EncodeDaysAvailable([]temporal.Weekday{temporal.Monday, temporal.Tuesday}),
	}
	parsed := model.ParsedFields{
		Budget:    &model.Budget{Min: 37.5, Max: 150},
		Location:  &model.QueryLocation{Name: "Financial District", Lat: 40.7075, Lng: -74.0113, RadiusKm: 1.5},
		Schedule:  temporal.ParseUserSchedule("Tuesday and Wednesday"),
		Amenities: []string{"wifi", "parking"},
	}

	tests := []struct {
		name       string
		meta       model.ListingMetadata
		similarity float64
		want       []string
	}{
		{
			name:       "every reason",
			meta:       full,
			similarity: 0.82,
			want: []string{
				"Within your $37.5-$150 budget",
				"Within 1.5 km of Financial District",
				"Available on tue",
				"Has wifi",
				ReasonHighlyRelevant,
			},
		},
		{
			name:       "missing fields omit their reasons",
			meta:       model.ListingMetadata{Listing: model.Listing{ID: "y"}},
			similarity: 0.55,
			want:       []string{ReasonGoodMatch},
		},
		{
			name:       "low similarity",
			meta:       model.ListingMetadata{Listing: model.Listing{ID: "z", PricePerNight: f64Ptr(500)}},
			similarity: 0.2,
			want:       []string{ReasonGeneralMatch},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.MatchReasons(tt.meta, parsed, tt.similarity))
		})
	}
}

func TestMatchReasons_FlexibleScheduleNamesNoDays(t *testing.T) {
	meta := model.ListingMetadata{
		Listing:  model.Listing{ID: "x"},
		Temporal: temporal.EncodeDaysAvailable([]temporal.Weekday{temporal.Monday}),
	}
	parsed := model.ParsedFields{Schedule: temporal.ParseUserSchedule("anytime")}
	assert.Equal(t, []string{ReasonGeneralMatch}, DefaultRanker().MatchReasons(meta, parsed, 0.1))
}
