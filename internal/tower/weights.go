package tower

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// weightsFormat is bumped whenever the on-disk layout changes.
const weightsFormat = 1

// ErrWeightsMismatch is returned when a weights file does not fit the current architecture.
var ErrWeightsMismatch = errors.New("weights do not match architecture")

// Weights is the serialized form of the tower heads.
type Weights struct {
	Format  int
	Arch    string
	Trained bool
	Layers  []LayerWeights
}

// LayerWeights holds one dense layer.
type LayerWeights struct {
	Name string
	In   int
	Out  int
	W    []float32
	B    []float32
}

// Weights snapshots the model's heads.
func (m *Model) Weights() Weights {
	w := Weights{Format: weightsFormat, Arch: ArchTag, Trained: m.trained}
	for _, spec := range layerSpecs {
		d := m.layers[spec.name]
		w.Layers = append(w.Layers, LayerWeights{
			Name: d.Name,
			In:   d.In,
			Out:  d.Out,
			W:    append([]float32(nil), d.W...),
			B:    append([]float32(nil), d.B...),
		})
	}
	return w
}

func (w Weights) layerMap() (map[string]*Dense, error) {
	if w.Format != weightsFormat {
		return nil, fmt.Errorf("%w: format %d, want %d", ErrWeightsMismatch, w.Format, weightsFormat)
	}
	if w.Arch != ArchTag {
		return nil, fmt.Errorf("%w: arch %q, want %q", ErrWeightsMismatch, w.Arch, ArchTag)
	}
	byName := make(map[string]LayerWeights, len(w.Layers))
	for _, l := range w.Layers {
		byName[l.Name] = l
	}
	layers := make(map[string]*Dense, len(layerSpecs))
	for _, spec := range layerSpecs {
		l, ok := byName[spec.name]
		if !ok {
			return nil, fmt.Errorf("%w: missing layer %s", ErrWeightsMismatch, spec.name)
		}
		if l.In != spec.in || l.Out != spec.out {
			return nil, fmt.Errorf("%w: layer %s is %dx%d, want %dx%d",
				ErrWeightsMismatch, spec.name, l.In, l.Out, spec.in, spec.out)
		}
		d := &Dense{Name: l.Name, In: l.In, Out: l.Out, W: l.W, B: l.B, ReLU: true}
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWeightsMismatch, err)
		}
		layers[spec.name] = d
	}
	return layers, nil
}

// SaveWeights writes w as zstd-compressed gob, replacing path atomically.
func SaveWeights(path string, w Weights) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating weights dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".weights-*")
	if err != nil {
		return fmt.Errorf("creating temp weights file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw, err := zstd.NewWriter(tmp)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err = gob.NewEncoder(zw).Encode(w); err != nil {
		zw.Close()
		return fmt.Errorf("encoding weights: %w", err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("flushing weights: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing weights: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing weights: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming weights: %w", err)
	}
	return nil
}

// LoadWeights reads a file written by SaveWeights.
func LoadWeights(path string) (Weights, error) {
	var w Weights
	f, err := os.Open(path)
	if err != nil {
		return w, fmt.Errorf("opening weights: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return w, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	if err := gob.NewDecoder(zr).Decode(&w); err != nil {
		return w, fmt.Errorf("decoding weights: %w", err)
	}
	return w, nil
}
