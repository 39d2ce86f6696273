package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/logging"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/preprocess"
)

const (
	DefaultBatchSize = 32
	DefaultWorkers   = 4
	progressEvery    = 100
)

// Source iterates every listing in a stable order. Rows the source cannot
// decode reach fn with a non-nil error and are skipped by the builder.
type Source interface {
	ForEachListing(ctx context.Context, fn func(model.Listing, error) error) error
}

// ListingEncoder turns processed listings into unit-norm embeddings.
type ListingEncoder interface {
	EncodeListings(ctx context.Context, listings []model.ProcessedListing) ([][]float32, error)
	BuildVersion() string
}

// Stats summarizes one build.
type Stats struct {
	Fetched   int
	Processed int
	Skipped   int
	Batches   int
	Duration  time.Duration
}

// Builder runs the offline fetch, preprocess, encode and stack pipeline.
type Builder struct {
	source    Source
	encoder   ListingEncoder
	prep      *preprocess.Preprocessor
	batchSize int
	workers   int
	logger    *slog.Logger
	now       func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder) error

// WithBatchSize sets how many listings go through the encoder at once.
func WithBatchSize(n int) BuilderOption {
	return func(b *Builder) error {
		if n < 1 {
			return fmt.Errorf("batch size must be positive, got %d", n)
		}
		b.batchSize = n
		return nil
	}
}

// WithWorkers sets the encoding pool size.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) error {
		if n < 1 {
			n = 1
		}
		b.workers = n
		return nil
	}
}

// WithLogger sets the builder logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger.With("component", "index-builder")
		return nil
	}
}

// WithClock overrides the build timestamp source.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) error {
		b.now = now
		return nil
	}
}

// NewBuilder creates a builder reading from source and encoding with encoder.
func NewBuilder(source Source, encoder ListingEncoder, opts ...BuilderOption) (*Builder, error) {
	b := &Builder{
		source:    source,
		encoder:   encoder,
		batchSize: DefaultBatchSize,
		workers:   DefaultWorkers,
		logger:    logging.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.prep = preprocess.New(preprocess.WithLogger(b.logger))
	return b, nil
}

// Build fetches, preprocesses and encodes every listing into a new index.
func (b *Builder) Build(ctx context.Context) (*Index, Stats, error) {
	start := time.Now()
	var stats Stats

	var raw []model.Listing
	err := b.source.ForEachListing(ctx, func(l model.Listing, err error) error {
		stats.Fetched++
		if err != nil {
			stats.Skipped++
			b.logger.Warn("skipping unreadable listing", "id", l.ID, "error", err)
			return nil
		}
		raw = append(raw, l)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("fetching listings: %w", err)
	}
	b.logger.Info("fetched listings", "count", stats.Fetched)

	result := b.prep.Batch(raw)
	stats.Processed = len(result.Listings)
	stats.Skipped += result.Skipped
	if stats.Skipped > 0 {
		b.logger.Warn("skipped listings", "skipped", stats.Skipped)
	}

	embeddings, batches, err := b.encode(ctx, result.Listings)
	if err != nil {
		return nil, stats, err
	}
	stats.Batches = batches

	n := len(result.Listings)
	ids := make([]string, n)
	meta := make([]model.ListingMetadata, n)
	for i, pl := range result.Listings {
		ids[i] = pl.ID
		meta[i] = model.ListingMetadata{Listing: pl.Raw, Temporal: pl.Temporal}
	}

	ix, err := New(ids, embeddings, meta, b.encoder.BuildVersion(), b.now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, stats, err
	}
	stats.Duration = time.Since(start)
	b.logger.Info("index built",
		"listings", n,
		"skipped", stats.Skipped,
		"batches", batches,
		"build_version", ix.BuildVersion,
		"duration", stats.Duration)
	return ix, stats, nil
}

// BuildTo builds the index and writes it to path.
func (b *Builder) BuildTo(ctx context.Context, path string) (*Index, Stats, error) {
	ix, stats, err := b.Build(ctx)
	if err != nil {
		return nil, stats, err
	}
	if err := ix.Save(path); err != nil {
		return nil, stats, err
	}
	b.logger.Info("index written", "path", path)
	return ix, stats, nil
}

// encode splits listings into batches, encodes them on a worker pool and
// stacks the rows back in input order.
func (b *Builder) encode(ctx context.Context, listings []model.ProcessedListing) ([]float32, int, error) {
	n := len(listings)
	out := make([]float32, n*Dims)
	if n == 0 {
		return out, 0, nil
	}

	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return nil, 0, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		done     int
		batches  int
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for startRow := 0; startRow < n; startRow += b.batchSize {
		endRow := min(startRow+b.batchSize, n)
		batch := listings[startRow:endRow]
		offset := startRow
		batches++

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			vecs, err := b.encoder.EncodeListings(ctx, batch)
			if err != nil {
				fail(fmt.Errorf("encoding listings %d-%d: %w", offset, offset+len(batch)-1, err))
				return
			}
			if len(vecs) != len(batch) {
				fail(fmt.Errorf("encoder returned %d rows for %d listings", len(vecs), len(batch)))
				return
			}
			for i, v := range vecs {
				if len(v) != Dims {
					fail(fmt.Errorf("%w: listing %s has %d values", ErrDimensionMismatch, batch[i].ID, len(v)))
					return
				}
				copy(out[(offset+i)*Dims:], v)
			}

			mu.Lock()
			before := done / progressEvery
			done += len(batch)
			if done/progressEvery > before || done == n {
				b.logger.Info("encoding progress", "done", done, "total", n)
			}
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submitting batch: %w", submitErr))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, batches, firstErr
	}
	if done < n {
		return nil, batches, fmt.Errorf("encoding interrupted after %d of %d listings: %w", done, n, ctx.Err())
	}
	return out, batches, nil
}
