package query

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"gopkg.in/yaml.v3"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
)

// BoroughTable is the optional borough reference source.
type BoroughTable interface {
	Boroughs(ctx context.Context) ([]model.Borough, error)
}

// StaticBoroughTable is an in-memory borough list.
type StaticBoroughTable []model.Borough

// Boroughs implements BoroughTable.
func (s StaticBoroughTable) Boroughs(context.Context) ([]model.Borough, error) {
	return s, nil
}

// LoadBoroughFile reads a YAML list of {id, name} records.
func LoadBoroughFile(path string) (StaticBoroughTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading borough table: %w", err)
	}
	var f struct {
		Boroughs []model.Borough `yaml:"boroughs"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing borough table: %w", err)
	}
	for i, b := range f.Boroughs {
		if b.ID == "" || b.Name == "" {
			return nil, fmt.Errorf("borough %d needs both id and name", i)
		}
	}
	return StaticBoroughTable(f.Boroughs), nil
}

const boroughCacheKey = "boroughs"

// CachedBoroughTable keeps the last successful load of another table for a TTL.
type CachedBoroughTable struct {
	inner BoroughTable
	ttl   time.Duration
	cache *ristretto.Cache[string, []model.Borough]
}

// NewCachedBoroughTable wraps inner. A non-positive ttl disables expiry.
func NewCachedBoroughTable(inner BoroughTable, ttl time.Duration) (*CachedBoroughTable, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []model.Borough]{
		NumCounters:        100,
		MaxCost:            10,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating borough cache: %w", err)
	}
	return &CachedBoroughTable{inner: inner, ttl: ttl, cache: cache}, nil
}

// Boroughs implements BoroughTable.
func (c *CachedBoroughTable) Boroughs(ctx context.Context) ([]model.Borough, error) {
	if b, ok := c.cache.Get(boroughCacheKey); ok {
		return b, nil
	}
	b, err := c.inner.Boroughs(ctx)
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 {
		c.cache.SetWithTTL(boroughCacheKey, b, 1, c.ttl)
	} else {
		c.cache.Set(boroughCacheKey, b, 1)
	}
	c.cache.Wait()
	return b, nil
}

// Close releases the cache.
func (c *CachedBoroughTable) Close() {
	c.cache.Close()
}

// matchBorough returns the first borough, in table order, whose name occurs in text.
func matchBorough(lower string, boroughs []model.Borough) *model.Borough {
	for _, b := range boroughs {
		name := strings.ToLower(strings.TrimSpace(b.Name))
		if name != "" && strings.Contains(lower, name) {
			found := b
			return &found
		}
	}
	return nil
}
