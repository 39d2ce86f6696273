package index

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestTopK(t *testing.T) {
	ix := &Index{ListingIDs: []string{"e", "b", "d", "a", "c"}}
	scores := []float32{0.1, 0.9, 0.5, 0.5, 0.7}

	tests := []struct {
		name string
		k    int
		rows []int
		want []string
	}{
		{"top three", 3, nil, []string{"b", "c", "a"}},
		{"ties break by id", 4, nil, []string{"b", "c", "a", "d"}},
		{"k above n is clamped", 100, nil, []string{"b", "c", "a", "d", "e"}},
		{"zero", 0, nil, nil},
		{"restricted rows", 2, []int{0, 2, 3}, []string{"a", "d"}},
		{"empty rows", 2, []int{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ix.TopK(scores, tt.k, tt.rows)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestTopK_PermutationInvariant(t *testing.T) {
	const n = 200
	rng := rand.New(rand.NewPCG(1, 2))
	base := make([]string, n)
	scoreOf := make(map[string]float32, n)
	for i := range base {
		base[i] = string(rune('A'+i%26)) + string(rune('a'+i/26))
		// Coarse scores force plenty of ties.
		scoreOf[base[i]] = float32(rng.IntN(20)) / 20
	}

	selection := func(order []string) []string {
		scores := make([]float32, len(order))
		for i, id := range order {
			scores[i] = scoreOf[id]
		}
		ix := &Index{ListingIDs: order}
		return ids(ix.TopK(scores, 15, nil))
	}

	want := selection(base)
	for trial := 0; trial < 10; trial++ {
		perm := append([]string(nil), base...)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		assert.Equal(t, want, selection(perm))
	}
}
