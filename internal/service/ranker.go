package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/index"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/temporal"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/utils"
)

// Similarity phrases, keyed on thresholds.
const (
	ReasonHighlyRelevant = "highly relevant"
	ReasonGoodMatch      = "good match"
	ReasonGeneralMatch   = "matches your search criteria"
)

const (
	highlyRelevantAt = 0.7
	goodMatchAt      = 0.5
)

// Ranker re-scores similarity candidates and explains them.
type Ranker struct {
	weightSimilarity float64
	weightSchedule   float64
}

// NewRanker creates a ranker with the given blend weights.
func NewRanker(weightSimilarity, weightSchedule float64) *Ranker {
	return &Ranker{
		weightSimilarity: weightSimilarity,
		weightSchedule:   weightSchedule,
	}
}

// DefaultRanker blends 0.7 similarity with 0.3 schedule compatibility.
func DefaultRanker() *Ranker {
	return NewRanker(0.7, 0.3)
}

// scored is a candidate after schedule re-scoring.
type scored struct {
	index.Candidate
	Similarity float64
	Final      float64
}

// SelectCandidates takes the top k rows, restricted to the query borough when
// at least k listings are in it.
func (r *Ranker) SelectCandidates(ix *index.Index, scores []float32, k int, borough *model.Borough) []index.Candidate {
	if borough != nil && borough.Name != "" {
		var rows []int
		for i := range ix.Metadata {
			if b := ix.Metadata[i].Borough; b != nil && strings.EqualFold(strings.TrimSpace(*b), borough.Name) {
				rows = append(rows, i)
			}
		}
		if len(rows) >= k {
			return ix.TopK(scores, k, rows)
		}
	}
	return ix.TopK(scores, k, nil)
}

// Rescore blends similarity with schedule compatibility and orders by final
// score, then similarity, then listing id.
func (r *Ranker) Rescore(ix *index.Index, candidates []index.Candidate, schedule temporal.Vector) []scored {
	out := make([]scored, len(candidates))
	for i, c := range candidates {
		sim := float64(c.Score)
		compat := temporal.ScheduleCompatibility(ix.Metadata[c.Row].Temporal, schedule)
		out[i] = scored{
			Candidate:  c,
			Similarity: sim,
			Final:      r.weightSimilarity*sim + r.weightSchedule*compat,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Final != out[j].Final {
			return out[i].Final > out[j].Final
		}
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MatchReasons explains a result in terms of what the query asked for.
// A reason whose listing field is missing is left out.
func (r *Ranker) MatchReasons(meta model.ListingMetadata, parsed model.ParsedFields, similarity float64) []string {
	reasons := []string{}

	if b := parsed.Budget; b != nil && meta.PricePerNight != nil && b.Contains(*meta.PricePerNight) {
		reasons = append(reasons, fmt.Sprintf("Within your $%s-$%s budget", formatAmount(b.Min), formatAmount(b.Max)))
	}

	if loc := parsed.Location; loc != nil && meta.HasLocation() {
		if meta.Location.DistanceKm(loc.Point()) <= loc.RadiusKm {
			reasons = append(reasons, fmt.Sprintf("Within %s km of %s", formatAmount(loc.RadiusKm), loc.Name))
		}
	}

	if days := sharedDays(meta.Temporal, parsed.Schedule); len(days) > 0 {
		reasons = append(reasons, "Available on "+strings.Join(temporal.Labels(days), ", "))
	}

	for _, a := range parsed.Amenities {
		if utils.HasAmenity(meta.Amenities, a) {
			reasons = append(reasons, "Has "+a)
		}
	}

	switch {
	case similarity >= highlyRelevantAt:
		reasons = append(reasons, ReasonHighlyRelevant)
	case similarity >= goodMatchAt:
		reasons = append(reasons, ReasonGoodMatch)
	default:
		reasons = append(reasons, ReasonGeneralMatch)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}
	return reasons
}

// sharedDays returns the user's specific days the listing offers. Flexible
// schedules name no specific days.
func sharedDays(listing temporal.Vector, schedule temporal.Schedule) []temporal.Weekday {
	if schedule.Flexible {
		return nil
	}
	offered := listing.Mask()
	var days []temporal.Weekday
	for i, want := range schedule.WeekdayMask {
		if want && offered[i] {
			days = append(days, temporal.Weekday(i))
		}
	}
	return days
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
