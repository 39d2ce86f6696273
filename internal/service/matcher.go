// Package service wires the query processor, the two-tower model and the
// embedding index into the matching operation served over HTTP.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/index"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/logging"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/temporal"
)

const (
	DefaultTopK          = 10
	DefaultMaxQueryBytes = 2048
	DefaultWorkers       = 8

	ScoreBasisSimilarity = "similarity-dominated"
	ScoreBasisLearned    = "learned"
)

// QueryParser turns free text into a parsed query. It never fails.
type QueryParser interface {
	Process(ctx context.Context, text string) *model.ParsedQuery
}

// QueryEncoder is the user tower.
type QueryEncoder interface {
	EncodeQuery(ctx context.Context, q *model.ParsedQuery) ([]float32, error)
	BuildVersion() string
	Trained() bool
}

// Pinger reports database reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// loaded is published once the model and index are both available.
type loaded struct {
	encoder QueryEncoder
	index   *index.Index
}

// Matcher answers match requests. It is safe for concurrent use; the loaded
// model and index are read without locks.
type Matcher struct {
	parser        QueryParser
	ranker        *Ranker
	db            Pinger
	pool          *ants.Pool
	state         atomic.Pointer[loaded]
	defaultTopK   int
	maxQueryBytes int
	workers       int
	logger        *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithLogger sets the matcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger.With("component", "matcher")
		return nil
	}
}

// WithDatabase reports the given database in health checks.
func WithDatabase(db Pinger) Option {
	return func(m *Matcher) error {
		m.db = db
		return nil
	}
}

// WithDefaultTopK sets the result count used when a request has none.
func WithDefaultTopK(k int) Option {
	return func(m *Matcher) error {
		if k < 1 {
			return fmt.Errorf("default top_k must be positive, got %d", k)
		}
		m.defaultTopK = k
		return nil
	}
}

// WithMaxQueryBytes caps the accepted query length.
func WithMaxQueryBytes(n int) Option {
	return func(m *Matcher) error {
		if n < 1 {
			return fmt.Errorf("max query bytes must be positive, got %d", n)
		}
		m.maxQueryBytes = n
		return nil
	}
}

// WithWorkers sets the size of the pool that runs encoding and scoring.
func WithWorkers(n int) Option {
	return func(m *Matcher) error {
		if n < 1 {
			n = 1
		}
		m.workers = n
		return nil
	}
}

// WithRanker replaces the default 0.7/0.3 ranker.
func WithRanker(r *Ranker) Option {
	return func(m *Matcher) error {
		m.ranker = r
		return nil
	}
}

// NewMatcher creates a matcher that is not ready until Publish is called.
func NewMatcher(parser QueryParser, opts ...Option) (*Matcher, error) {
	m := &Matcher{
		parser:        parser,
		ranker:        DefaultRanker(),
		defaultTopK:   DefaultTopK,
		maxQueryBytes: DefaultMaxQueryBytes,
		workers:       DefaultWorkers,
		logger:        logging.Discard(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(m.workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	m.pool = pool
	return m, nil
}

// Close releases the worker pool.
func (m *Matcher) Close() {
	m.pool.Release()
}

// Publish makes a model and index available to requests. The index must have
// been built by this exact model.
func (m *Matcher) Publish(encoder QueryEncoder, ix *index.Index) error {
	if ix.BuildVersion != encoder.BuildVersion() {
		return fmt.Errorf("%w: index %q, model %q", index.ErrVersionMismatch, ix.BuildVersion, encoder.BuildVersion())
	}
	m.state.Store(&loaded{encoder: encoder, index: ix})
	m.logger.Info("matcher ready",
		"listings", ix.Len(),
		"build_version", ix.BuildVersion,
		"heads_trained", encoder.Trained())
	return nil
}

// Ready reports whether requests can be served.
func (m *Matcher) Ready() bool {
	return m.state.Load() != nil
}

// ModelInfo describes the loaded model.
func (m *Matcher) ModelInfo() (model.ModelInfo, error) {
	st := m.state.Load()
	if st == nil {
		return model.ModelInfo{}, ErrNotReady
	}
	return modelInfo(st.encoder), nil
}

func modelInfo(enc QueryEncoder) model.ModelInfo {
	info := model.ModelInfo{
		BuildVersion: enc.BuildVersion(),
		HeadsTrained: enc.Trained(),
		ScoreBasis:   ScoreBasisSimilarity,
	}
	if info.HeadsTrained {
		info.ScoreBasis = ScoreBasisLearned
	}
	return info
}

// Match ranks the indexed listings against a free-text query.
func (m *Matcher) Match(ctx context.Context, req model.MatchRequest) (*model.MatchResponse, error) {
	start := time.Now()

	text := strings.TrimSpace(req.Query)
	if text == "" {
		return nil, fmt.Errorf("%w: query must not be empty", ErrInvalidArgument)
	}
	if len(text) > m.maxQueryBytes {
		return nil, fmt.Errorf("%w: query is %d bytes, limit is %d", ErrInvalidArgument, len(text), m.maxQueryBytes)
	}
	topK := m.defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidArgument, topK)
	}

	st := m.state.Load()
	if st == nil {
		return nil, ErrNotReady
	}

	parsed := m.parser.Process(ctx, text)

	type outcome struct {
		matches []model.MatchResult
		err     error
	}
	done := make(chan outcome, 1)
	err := m.pool.Submit(func() {
		matches, err := m.rank(ctx, st, parsed, topK)
		done <- outcome{matches, err}
	})
	if err != nil {
		return nil, fmt.Errorf("submitting match: %w", err)
	}

	var res outcome
	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, deadline(ctx)
	}
	if res.err != nil {
		return nil, res.err
	}

	elapsed := time.Since(start)
	m.logger.Debug("match served",
		"results", len(res.matches),
		"top_k", topK,
		"duration", elapsed)

	return &model.MatchResponse{
		Query:            text,
		ParsedQuery:      parsed.Parsed,
		Count:            len(res.matches),
		Matches:          res.matches,
		ProcessingTimeMs: float64(elapsed.Microseconds()) / 1000,
		Model:            modelInfo(st.encoder),
	}, nil
}

// rank is the CPU-bound part of a request: user tower, one mat-vec,
// selection, re-scoring and reasons.
func (m *Matcher) rank(ctx context.Context, st *loaded, parsed *model.ParsedQuery, topK int) ([]model.MatchResult, error) {
	if ctx.Err() != nil {
		return nil, deadline(ctx)
	}

	u, err := st.encoder.EncodeQuery(ctx, parsed)
	if err != nil {
		if ctx.Err() != nil {
			return nil, deadline(ctx)
		}
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	if ctx.Err() != nil {
		return nil, deadline(ctx)
	}
	scores, err := st.index.Similarities(u)
	if err != nil {
		return nil, fmt.Errorf("scoring listings: %w", err)
	}
	if ctx.Err() != nil {
		return nil, deadline(ctx)
	}

	k := min(topK, st.index.Len())
	candidates := m.ranker.SelectCandidates(st.index, scores, k, parsed.Parsed.Borough)
	ranked := m.ranker.Rescore(st.index, candidates, parsed.ScheduleFeatures)

	matches := make([]model.MatchResult, len(ranked))
	for i, r := range ranked {
		meta := st.index.Metadata[r.Row]
		matches[i] = model.MatchResult{
			ListingID:       r.ID,
			Title:           deref(meta.Title),
			PricePerNight:   meta.PricePerNight,
			Location:        meta.Location,
			Neighborhood:    meta.Neighborhood,
			Borough:         meta.Borough,
			DaysAvailable:   labels(meta),
			Active:          meta.Active,
			SimilarityScore: r.Similarity,
			FinalScore:      r.Final,
			MatchReasons:    m.ranker.MatchReasons(meta, parsed.Parsed, r.Similarity),
		}
	}
	return matches, nil
}

// Listing returns the indexed record for id.
func (m *Matcher) Listing(id string) (*model.ListingMetadata, error) {
	st := m.state.Load()
	if st == nil {
		return nil, ErrNotReady
	}
	meta, ok := st.index.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: listing %q", ErrNotFound, id)
	}
	return &meta, nil
}

// Health reports readiness and database reachability.
func (m *Matcher) Health(ctx context.Context) model.HealthResponse {
	h := model.HealthResponse{
		Status:         "healthy",
		Database:       "not configured",
		Model:          "missing",
		EmbeddingIndex: "missing",
	}

	if m.db != nil {
		if err := m.db.Ping(ctx); err != nil {
			m.logger.Warn("database ping failed", "error", err)
			h.Database = "disconnected"
			h.Status = "degraded"
		} else {
			h.Database = "connected"
		}
	}

	st := m.state.Load()
	if st == nil {
		h.Status = "degraded"
		return h
	}
	h.Model = "loaded"
	h.EmbeddingIndex = fmt.Sprintf("%d listings", st.index.Len())
	h.Ready = true
	return h
}

func deadline(ctx context.Context) error {
	return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func labels(meta model.ListingMetadata) []string {
	return temporal.Labels(meta.Temporal.Days())
}
