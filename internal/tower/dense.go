package tower

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Dense is a fully connected layer y = act(W·x + b) with W stored Out×In row-major.
type Dense struct {
	Name string
	In   int
	Out  int
	W    []float32
	B    []float32
	ReLU bool
}

// newDense creates a layer with Glorot-uniform weights and zero bias.
func newDense(name string, in, out int, relu bool, rng *rand.Rand) *Dense {
	limit := math.Sqrt(6.0 / float64(in+out))
	w := make([]float32, in*out)
	for i := range w {
		w[i] = float32((rng.Float64()*2 - 1) * limit)
	}
	return &Dense{Name: name, In: in, Out: out, W: w, B: make([]float32, out), ReLU: relu}
}

// Forward applies the layer to x, which must have length In.
func (d *Dense) Forward(x []float32) []float32 {
	y := make([]float32, d.Out)
	copy(y, d.B)
	blas32.Gemv(blas.NoTrans, 1,
		blas32.General{Rows: d.Out, Cols: d.In, Stride: d.In, Data: d.W},
		blas32.Vector{N: d.In, Inc: 1, Data: x},
		1,
		blas32.Vector{N: d.Out, Inc: 1, Data: y},
	)
	if d.ReLU {
		for i, v := range y {
			if v < 0 {
				y[i] = 0
			}
		}
	}
	return y
}

func (d *Dense) validate() error {
	if len(d.W) != d.In*d.Out {
		return fmt.Errorf("layer %s: weights have %d values, want %d", d.Name, len(d.W), d.In*d.Out)
	}
	if len(d.B) != d.Out {
		return fmt.Errorf("layer %s: bias has %d values, want %d", d.Name, len(d.B), d.Out)
	}
	for _, v := range d.W {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("layer %s: non-finite weight", d.Name)
		}
	}
	return nil
}

// dropout zeroes each unit with probability rate and rescales the survivors.
func dropout(x []float32, rate float32, rng *rand.Rand) {
	keep := 1 - rate
	for i := range x {
		if rng.Float32() < rate {
			x[i] = 0
		} else {
			x[i] /= keep
		}
	}
}

// l2Normalize scales v to unit length in place. A zero vector becomes the
// uniform unit vector so every embedding has norm 1.
func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		u := float32(1 / math.Sqrt(float64(len(v))))
		for i := range v {
			v[i] = u
		}
		return
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		v[i] = float32(float64(x) / norm)
	}
}

func concat(parts ...[]float32) []float32 {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]float32, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
