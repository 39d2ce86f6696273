package tower

import (
	"context"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/ai"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/config"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/logging"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/temporal"
)

type narrowEncoder struct{}

func (narrowEncoder) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (narrowEncoder) Dimensions() int                                      { return 384 }
func (narrowEncoder) Revision() string                                     { return "narrow" }

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func listing(id, text string, days ...temporal.Weekday) model.ProcessedListing {
	return model.ProcessedListing{
		ID:         id,
		Text:       text,
		Structured: [model.StructuredDims]float32{120, 0, 0, 0, 40.7, -73.9, 1, 1, 2, 0.5, 1, 1},
		Temporal:   temporal.EncodeDaysAvailable(days),
	}
}

func newTestModel(t *testing.T, opts ...Option) *Model {
	t.Helper()
	m, err := New(ai.NewHashingEncoder(), opts...)
	require.NoError(t, err)
	return m
}

func TestNew_RejectsWrongEncoderWidth(t *testing.T) {
	_, err := New(narrowEncoder{})
	assert.ErrorIs(t, err, ErrEncoderWidth)
}

func TestEncodeListings_UnitNorm(t *testing.T) {
	m := newTestModel(t)
	vecs, err := m.EncodeListings(context.Background(), []model.ProcessedListing{
		listing("a", "Sunny loft in Williamsburg", temporal.Monday, temporal.Tuesday),
		listing("b", "Listing"),
		listing("c", "Quiet studio near the Financial District", temporal.Saturday, temporal.Sunday),
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		require.Len(t, v, EmbeddingDims)
		assert.InDelta(t, 1.0, norm(v), 1e-4)
	}
}

func TestEncodeQuery_UnitNorm(t *testing.T) {
	m := newTestModel(t)
	q := &model.ParsedQuery{
		QueryText:        "Mon-Thu nights in Brooklyn under $150",
		ScheduleFeatures: temporal.EncodeUserSchedule("Mon-Thu"),
	}
	v, err := m.EncodeQuery(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, v, EmbeddingDims)
	assert.InDelta(t, 1.0, norm(v), 1e-4)
}

func TestEncode_Deterministic(t *testing.T) {
	in := []model.ProcessedListing{listing("a", "Loft in SoHo", temporal.Friday)}

	a, err := newTestModel(t).EncodeListings(context.Background(), in)
	require.NoError(t, err)
	b, err := newTestModel(t).EncodeListings(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other := newTestModel(t, WithSeed(7))
	assert.NotEqual(t, newTestModel(t).BuildVersion(), other.BuildVersion())
}

func TestEncodeListings_BatchMatchesSingle(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()
	batch := []model.ProcessedListing{
		listing("a", "Loft in SoHo", temporal.Friday),
		listing("b", "Room in Astoria", temporal.Monday, temporal.Wednesday),
	}
	all, err := m.EncodeListings(ctx, batch)
	require.NoError(t, err)

	for i, l := range batch {
		one, err := m.EncodeListings(ctx, []model.ProcessedListing{l})
		require.NoError(t, err)
		assert.Equal(t, all[i], one[0])
	}
}

func TestBuildVersion(t *testing.T) {
	m := newTestModel(t)
	assert.Contains(t, m.BuildVersion(), ArchTag+"+"+ai.NewHashingEncoder().Revision()+"+w")
	assert.False(t, m.Trained())
}

func TestWeights_RoundTrip(t *testing.T) {
	m := newTestModel(t)
	w := m.Weights()
	w.Trained = true

	path := filepath.Join(t.TempDir(), "heads", "weights.gob.zst")
	require.NoError(t, SaveWeights(path, w))

	loaded, err := New(ai.NewHashingEncoder(), WithWeightsFile(path))
	require.NoError(t, err)
	assert.True(t, loaded.Trained())
	assert.Equal(t, m.BuildVersion(), loaded.BuildVersion())

	in := []model.ProcessedListing{listing("a", "Loft in SoHo", temporal.Friday)}
	want, err := m.EncodeListings(context.Background(), in)
	require.NoError(t, err)
	got, err := loaded.EncodeListings(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWeights_Mismatch(t *testing.T) {
	w := newTestModel(t).Weights()
	w.Layers[0].In = 3
	path := filepath.Join(t.TempDir(), "weights.gob.zst")
	require.NoError(t, SaveWeights(path, w))

	_, err := New(ai.NewHashingEncoder(), WithWeightsFile(path))
	assert.ErrorIs(t, err, ErrWeightsMismatch)
}

func TestDropout_OnlyInTraining(t *testing.T) {
	in := []model.ProcessedListing{listing("a", "Loft in SoHo", temporal.Friday)}
	ctx := context.Background()

	inference := newTestModel(t)
	a, err := inference.EncodeListings(ctx, in)
	require.NoError(t, err)
	b, err := inference.EncodeListings(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	training := newTestModel(t, WithTraining())
	c, err := training.EncodeListings(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
	assert.InDelta(t, 1.0, norm(c[0]), 1e-4)
}

func TestL2Normalize_Zero(t *testing.T) {
	v := make([]float32, 4)
	l2Normalize(v)
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5}, v)
}

func TestDense_Forward(t *testing.T) {
	d := &Dense{Name: "t", In: 2, Out: 2, W: []float32{1, 2, -1, -1}, B: []float32{0.5, 0}, ReLU: true}
	assert.Equal(t, []float32{5.5, 0}, d.Forward([]float32{1, 2}))
}

func TestFromConfig(t *testing.T) {
	enc := ai.NewHashingEncoder()

	m, err := FromConfig(config.ModelConfig{Seed: 42}, enc, slogDiscard())
	require.NoError(t, err)
	assert.Equal(t, newTestModel(t).BuildVersion(), m.BuildVersion())

	pinned, err := FromConfig(config.ModelConfig{Seed: 42, Version: m.BuildVersion()}, enc, slogDiscard())
	require.NoError(t, err)
	assert.Equal(t, m.BuildVersion(), pinned.BuildVersion())

	_, err = FromConfig(config.ModelConfig{Seed: 42, Version: "twotower-v0+old"}, enc, slogDiscard())
	assert.ErrorIs(t, err, ErrWeightsMismatch)
}

func slogDiscard() *slog.Logger { return logging.Discard() }

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestUntrainedTowers_FollowText(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()
	text := "quiet loft near the park with a piano"

	u, err := m.EncodeQuery(ctx, &model.ParsedQuery{
		QueryText:          text,
		StructuredFeatures: [model.StructuredDims]float32{50, 300, 40.7, -73.9, 1, 1, 2, 0.5, 7, 0, 0, 0},
		ScheduleFeatures:   temporal.EncodeUserSchedule("flexible"),
	})
	require.NoError(t, err)

	rows, err := m.EncodeListings(ctx, []model.ProcessedListing{
		listing("same", text, temporal.Saturday),
		listing("basement", "noisy basement next to highway", temporal.Monday),
		listing("studio", "Sunny studio by the river"),
	})
	require.NoError(t, err)

	same := dot(u, rows[0])
	assert.InDelta(t, 1.0, same, 1e-5)
	assert.Greater(t, same, dot(u, rows[1]))
	assert.Greater(t, same, dot(u, rows[2]))
}

func TestUntrainedTowers_IgnoreNonTextInputs(t *testing.T) {
	m := newTestModel(t)
	a := listing("a", "Loft in SoHo", temporal.Friday)
	b := listing("b", "Loft in SoHo", temporal.Monday, temporal.Tuesday)
	b.Structured[0] = 480

	rows, err := m.EncodeListings(context.Background(), []model.ProcessedListing{a, b})
	require.NoError(t, err)
	assert.Equal(t, rows[0], rows[1])
}

func TestUntrainedTowers_SharedTextTerms(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()

	u, err := m.EncodeQuery(ctx, &model.ParsedQuery{QueryText: "Financial District, $90 to $140, 3 nights per week"})
	require.NoError(t, err)
	rows, err := m.EncodeListings(ctx, []model.ProcessedListing{
		listing("fidi", "Financial District studio Any 3 nights per week, steps from Wall Street. Located in Financial District, New York"),
		listing("riverdale", "Riverdale apartment Quiet block near Van Cortlandt Park. Located in Riverdale, Bronx"),
	})
	require.NoError(t, err)
	assert.Greater(t, dot(u, rows[0]), dot(u, rows[1]))
}
