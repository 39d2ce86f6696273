package ai

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// CachedEncoder memoizes embeddings by exact text.
type CachedEncoder struct {
	inner TextEncoder
	cache *ristretto.Cache[string, []float32]
}

// NewCachedEncoder wraps inner with an LRU-ish cache of up to maxEntries vectors.
func NewCachedEncoder(inner TextEncoder, maxEntries int) (*CachedEncoder, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxEntries)
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, []float32]{
		NumCounters:        int64(maxEntries) * 10,
		MaxCost:            int64(maxEntries),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	return &CachedEncoder{inner: inner, cache: cache}, nil
}

// Embed serves cached vectors and encodes only the misses, in one call.
func (c *CachedEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d vectors", ErrCountMismatch, len(missTexts), len(vectors))
	}
	for j, v := range vectors {
		out[missIdx[j]] = v
		c.cache.Set(missTexts[j], v, 1)
	}
	c.cache.Wait()
	return out, nil
}

// Dimensions implements TextEncoder.
func (c *CachedEncoder) Dimensions() int { return c.inner.Dimensions() }

// Revision implements TextEncoder.
func (c *CachedEncoder) Revision() string { return c.inner.Revision() }

// Close releases the cache.
func (c *CachedEncoder) Close() {
	c.cache.Close()
}
