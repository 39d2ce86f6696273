package index

import (
	"encoding/gob"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/temporal"
)

func strPtr(s string) *string { return &s }

// unit returns a Dims-wide vector with weight on the given axes.
func unit(axes ...int) []float32 {
	v := make([]float32, Dims)
	for _, a := range axes {
		v[a] = 1
	}
	var s float64
	for _, x := range v {
		s += float64(x * x)
	}
	n := float32(math.Sqrt(s))
	for i := range v {
		v[i] /= n
	}
	return v
}

func testIndex(t *testing.T, ids []string, rows [][]float32) *Index {
	t.Helper()
	var emb []float32
	meta := make([]model.ListingMetadata, len(ids))
	for i, id := range ids {
		emb = append(emb, rows[i]...)
		meta[i] = model.ListingMetadata{
			Listing: model.Listing{
				ID:            id,
				Title:         strPtr("Listing " + id),
				DaysAvailable: model.JSONArray{"Monday", "Tuesday"},
			},
			Temporal: temporal.EncodeDaysAvailable([]temporal.Weekday{temporal.Monday, temporal.Tuesday}),
		}
	}
	ix, err := New(ids, emb, meta, "test-version", "2026-01-02T03:04:05Z")
	require.NoError(t, err)
	return ix
}

func TestNew_Validation(t *testing.T) {
	meta := []model.ListingMetadata{{Listing: model.Listing{ID: "a"}}}

	_, err := New([]string{"a"}, make([]float32, 10), meta, "v", "")
	assert.ErrorIs(t, err, ErrCorruptIndex)

	_, err = New([]string{"a", "b"}, make([]float32, 2*Dims), meta, "v", "")
	assert.ErrorIs(t, err, ErrCorruptIndex)

	_, err = New([]string{"b"}, make([]float32, Dims), meta, "v", "")
	assert.ErrorIs(t, err, ErrCorruptIndex)

	_, err = New([]string{"a"}, make([]float32, Dims), meta, "", "")
	assert.ErrorIs(t, err, ErrCorruptIndex)

	nan := make([]float32, Dims)
	nan[3] = float32(math.NaN())
	_, err = New([]string{"a"}, nan, meta, "v", "")
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ix := testIndex(t, []string{"a", "b", "c"}, [][]float32{unit(0), unit(1), unit(0, 1)})
	dir := t.TempDir()
	path := Path(dir)

	require.NoError(t, ix.Save(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())

	loaded, err := Load(path, "test-version")
	require.NoError(t, err)
	assert.Equal(t, ix.ListingIDs, loaded.ListingIDs)
	assert.Equal(t, ix.Embeddings, loaded.Embeddings)
	assert.Equal(t, ix.Metadata, loaded.Metadata)
	assert.Equal(t, "2026-01-02T03:04:05Z", loaded.BuildTimestamp)

	meta, ok := loaded.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, "Listing b", *meta.Title)
	assert.Equal(t, ix.Metadata[1].Temporal, meta.Temporal)

	// Saving again overwrites in place.
	require.NoError(t, ix.Save(path))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveLoad_KeepsZeroValues(t *testing.T) {
	zero, empty, none := 0.0, "", 0
	meta := []model.ListingMetadata{{
		Listing: model.Listing{
			ID:            "free",
			Title:         &empty,
			PricePerNight: &zero,
			MinimumNights: &none,
			Location:      &model.GeoPoint{},
			DaysAvailable: model.JSONArray{},
		},
		Temporal: temporal.EncodeDaysAvailable(nil),
	}}
	ix, err := New([]string{"free"}, unit(2), meta, "test-version", "")
	require.NoError(t, err)

	path := Path(t.TempDir())
	require.NoError(t, ix.Save(path))
	loaded, err := Load(path, "")
	require.NoError(t, err)

	got := loaded.Metadata[0]
	require.NotNil(t, got.Title)
	assert.Equal(t, "", *got.Title)
	require.NotNil(t, got.PricePerNight)
	assert.Equal(t, 0.0, *got.PricePerNight)
	require.NotNil(t, got.MinimumNights)
	assert.Equal(t, 0, *got.MinimumNights)
	require.NotNil(t, got.Location)
	assert.NotNil(t, got.DaysAvailable)
	assert.Equal(t, meta[0], got)
}

func writeArtifact(t *testing.T, path string, a artifact) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	require.NoError(t, gob.NewEncoder(zw).Encode(a))
	require.NoError(t, zw.Close())
}

func TestLoad_OldFormat(t *testing.T) {
	a, err := testIndex(t, []string{"a"}, [][]float32{unit(0)}).artifact()
	require.NoError(t, err)
	a.Format = 1

	path := Path(t.TempDir())
	writeArtifact(t, path, a)
	_, err = Load(path, "")
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.gob.zst"), "")
	assert.ErrorIs(t, err, ErrIndexNotFound)

	garbage := filepath.Join(dir, "garbage.gob.zst")
	require.NoError(t, os.WriteFile(garbage, []byte("not an index"), 0o644))
	_, err = Load(garbage, "")
	assert.ErrorIs(t, err, ErrCorruptIndex)

	ix := testIndex(t, []string{"a"}, [][]float32{unit(0)})
	path := Path(dir)
	require.NoError(t, ix.Save(path))
	_, err = Load(path, "other-version")
	assert.ErrorIs(t, err, ErrVersionMismatch)

	_, err = Load(path, "")
	assert.NoError(t, err)
}

func TestSimilarities(t *testing.T) {
	ix := testIndex(t, []string{"a", "b", "c"}, [][]float32{unit(0), unit(1), unit(0, 1)})

	scores, err := ix.Similarities(unit(0))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, scores[0], 1e-6)
	assert.InDelta(t, 0.0, scores[1], 1e-6)
	assert.InDelta(t, 1/math.Sqrt2, scores[2], 1e-6)
	for _, s := range scores {
		assert.LessOrEqual(t, math.Abs(float64(s)), 1+1e-4)
	}

	_, err = ix.Similarities(make([]float32, 3))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSimilarities_Empty(t *testing.T) {
	ix, err := New(nil, nil, nil, "v", "")
	require.NoError(t, err)
	scores, err := ix.Similarities(unit(0))
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.Empty(t, ix.TopK(scores, 5, nil))
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, FileName), Resolve(dir))

	file := filepath.Join(dir, "custom.gob.zst")
	assert.Equal(t, file, Resolve(file))
}
