// Package index holds the listing embedding matrix, its aligned metadata and
// the on-disk artifact the matcher loads at startup.
package index

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/temporal"
)

// Errors returned by index operations.
var (
	ErrIndexNotFound      = errors.New("embedding index not found")
	ErrCorruptIndex       = errors.New("embedding index is corrupt")
	ErrVersionMismatch    = errors.New("embedding index build version mismatch")
	ErrUnsupportedVersion = errors.New("unsupported index format")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
)

const (
	// FileName is the canonical artifact name inside the index directory.
	FileName = "listing_embeddings.gob.zst"

	// CurrentFormat is bumped on breaking artifact changes.
	CurrentFormat = 2

	// Dims is the embedding width stored in the matrix.
	Dims = 128
)

// Index is the immutable, loaded form of the artifact. Rows of Embeddings,
// ListingIDs and Metadata are aligned by position.
type Index struct {
	Format         int
	ListingIDs     []string
	Embeddings     []float32
	Metadata       []model.ListingMetadata
	BuildVersion   string
	BuildTimestamp string
	Dimensions     int

	byID map[string]int
}

// artifact is the on-disk layout. Listings are stored as one JSON document
// because gob drops zero values behind pointers, which would turn a stored
// price of 0 or an empty title into a missing field.
type artifact struct {
	Format         int
	ListingIDs     []string
	Embeddings     []float32
	Listings       []byte
	Temporal       []temporal.Vector
	BuildVersion   string
	BuildTimestamp string
	Dimensions     int
}

func (ix *Index) artifact() (artifact, error) {
	listings := make([]model.Listing, len(ix.Metadata))
	vectors := make([]temporal.Vector, len(ix.Metadata))
	for i, m := range ix.Metadata {
		listings[i] = m.Listing
		vectors[i] = m.Temporal
	}
	b, err := json.Marshal(listings)
	if err != nil {
		return artifact{}, fmt.Errorf("encoding listing metadata: %w", err)
	}
	return artifact{
		Format:         ix.Format,
		ListingIDs:     ix.ListingIDs,
		Embeddings:     ix.Embeddings,
		Listings:       b,
		Temporal:       vectors,
		BuildVersion:   ix.BuildVersion,
		BuildTimestamp: ix.BuildTimestamp,
		Dimensions:     ix.Dimensions,
	}, nil
}

func (a artifact) index() (*Index, error) {
	if a.Format != CurrentFormat {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, a.Format, CurrentFormat)
	}
	var listings []model.Listing
	if err := json.Unmarshal(a.Listings, &listings); err != nil {
		return nil, fmt.Errorf("%w: listing metadata: %v", ErrCorruptIndex, err)
	}
	if len(a.Temporal) != len(listings) {
		return nil, fmt.Errorf("%w: %d temporal rows for %d listings", ErrCorruptIndex, len(a.Temporal), len(listings))
	}
	meta := make([]model.ListingMetadata, len(listings))
	for i, l := range listings {
		meta[i] = model.ListingMetadata{Listing: l, Temporal: a.Temporal[i]}
	}
	ix := &Index{
		Format:         a.Format,
		ListingIDs:     a.ListingIDs,
		Embeddings:     a.Embeddings,
		Metadata:       meta,
		BuildVersion:   a.BuildVersion,
		BuildTimestamp: a.BuildTimestamp,
		Dimensions:     a.Dimensions,
	}
	if err := ix.validate(); err != nil {
		return nil, err
	}
	return ix, nil
}

// New assembles and validates an index.
func New(ids []string, embeddings []float32, metadata []model.ListingMetadata, buildVersion, buildTimestamp string) (*Index, error) {
	ix := &Index{
		Format:         CurrentFormat,
		ListingIDs:     ids,
		Embeddings:     embeddings,
		Metadata:       metadata,
		BuildVersion:   buildVersion,
		BuildTimestamp: buildTimestamp,
		Dimensions:     Dims,
	}
	if err := ix.validate(); err != nil {
		return nil, err
	}
	return ix, nil
}

// Len returns the number of listings.
func (ix *Index) Len() int {
	return len(ix.ListingIDs)
}

// Row returns the embedding of listing i without copying.
func (ix *Index) Row(i int) []float32 {
	return ix.Embeddings[i*ix.Dimensions : (i+1)*ix.Dimensions]
}

// Lookup returns the stored metadata for a listing id.
func (ix *Index) Lookup(id string) (model.ListingMetadata, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return model.ListingMetadata{}, false
	}
	return ix.Metadata[i], true
}

// Similarities computes E·u for every row in one matrix-vector product.
func (ix *Index) Similarities(u []float32) ([]float32, error) {
	if len(u) != ix.Dimensions {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", ErrDimensionMismatch, len(u), ix.Dimensions)
	}
	n := ix.Len()
	scores := make([]float32, n)
	if n == 0 {
		return scores, nil
	}
	blas32.Gemv(blas.NoTrans, 1,
		blas32.General{Rows: n, Cols: ix.Dimensions, Stride: ix.Dimensions, Data: ix.Embeddings},
		blas32.Vector{N: ix.Dimensions, Inc: 1, Data: u},
		0,
		blas32.Vector{N: n, Inc: 1, Data: scores},
	)
	return scores, nil
}

func (ix *Index) validate() error {
	if ix.Format != CurrentFormat {
		return fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, ix.Format, CurrentFormat)
	}
	if ix.Dimensions != Dims {
		return fmt.Errorf("%w: dimensions %d, want %d", ErrCorruptIndex, ix.Dimensions, Dims)
	}
	n := len(ix.ListingIDs)
	if len(ix.Metadata) != n {
		return fmt.Errorf("%w: %d ids but %d metadata rows", ErrCorruptIndex, n, len(ix.Metadata))
	}
	if len(ix.Embeddings) != n*ix.Dimensions {
		return fmt.Errorf("%w: %d embedding values for %d rows of %d", ErrCorruptIndex, len(ix.Embeddings), n, ix.Dimensions)
	}
	if ix.BuildVersion == "" {
		return fmt.Errorf("%w: missing build version", ErrCorruptIndex)
	}
	for _, v := range ix.Embeddings {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: non-finite embedding value", ErrCorruptIndex)
		}
	}

	byID := make(map[string]int, n)
	for i, id := range ix.ListingIDs {
		if _, dup := byID[id]; dup {
			return fmt.Errorf("%w: duplicate listing id %q", ErrCorruptIndex, id)
		}
		if ix.Metadata[i].ID != id {
			return fmt.Errorf("%w: row %d id %q does not match metadata %q", ErrCorruptIndex, i, id, ix.Metadata[i].ID)
		}
		byID[id] = i
	}
	ix.byID = byID
	return nil
}

// Path returns the artifact path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Resolve maps a configured location to the artifact path: a directory gets
// FileName appended, anything else is used as is.
func Resolve(location string) string {
	if info, err := os.Stat(location); err == nil && info.IsDir() {
		return Path(location)
	}
	return location
}

// Save writes the index to path as zstd-compressed gob. The file is written to a
// temp file in the same directory, synced and renamed, so path never holds a
// partial artifact.
func (ix *Index) Save(path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	a, err := ix.artifact()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.gob.zst")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err = gob.NewEncoder(zw).Encode(a); err != nil {
		zw.Close()
		return fmt.Errorf("encoding index: %w", err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("flushing index: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing index: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Load reads and validates an artifact. A non-empty expectedVersion must equal
// the artifact's build version.
func Load(path, expectedVersion string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	defer zr.Close()

	var a artifact
	if err := gob.NewDecoder(zr).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", ErrCorruptIndex, err)
	}
	ix, err := a.index()
	if err != nil {
		return nil, err
	}
	if expectedVersion != "" && ix.BuildVersion != expectedVersion {
		return nil, fmt.Errorf("%w: artifact %q, model %q (rebuild with 'indexer build')",
			ErrVersionMismatch, ix.BuildVersion, expectedVersion)
	}
	return ix, nil
}
