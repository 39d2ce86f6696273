package index

import (
	"container/heap"
	"sort"
)

// Candidate is a scored row.
type Candidate struct {
	Row   int
	ID    string
	Score float32
}

// better orders by score descending, then id ascending.
func better(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// minHeap keeps the worst retained candidate on top.
type minHeap []Candidate

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(Candidate)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopK selects the k best rows by score with a bounded heap. When rows is nil
// every row is a candidate. The result is ordered best first and does not
// depend on row order.
func (ix *Index) TopK(scores []float32, k int, rows []int) []Candidate {
	n := len(scores)
	if rows != nil {
		n = len(rows)
	}
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}

	h := make(minHeap, 0, k)
	for i := 0; i < n; i++ {
		row := i
		if rows != nil {
			row = rows[i]
		}
		c := Candidate{Row: row, ID: ix.ListingIDs[row], Score: scores[row]}
		if len(h) < k {
			heap.Push(&h, c)
			continue
		}
		if better(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	out := []Candidate(h)
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}
