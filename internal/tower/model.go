// Package tower implements the two-tower model: a shared frozen sentence encoder
// and separate dense heads for queries and listings, both ending in 128-dim
// unit vectors so that inner product equals cosine similarity.
package tower

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/ai"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/logging"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/temporal"
)

const (
	// EmbeddingDims is the width of both towers' output.
	EmbeddingDims = 128
	// ArchTag names the layer layout below; change it whenever a layer changes.
	ArchTag = "twotower-v1"

	structHidden   = 64
	temporalHidden = 32
	headHidden     = 256
	structDropout  = 0.2
	headDropout    = 0.3

	// DefaultSeed initializes untrained heads.
	DefaultSeed = 42

	// sketchBuckets is the width of the signed text sketch both towers share
	// while untrained. Each bucket feeds one positive and one negative unit.
	sketchBuckets = EmbeddingDims / 2
)

// ErrEncoderWidth is returned when the sentence encoder does not produce ai.TextDims values.
var ErrEncoderWidth = errors.New("text encoder width mismatch")

// Model holds both towers. After construction it is read-only and safe for
// concurrent inference unless training mode is on.
type Model struct {
	encoder ai.TextEncoder
	layers  map[string]*Dense
	trained bool
	version string
	logger  *slog.Logger

	training bool
	rngMu    sync.Mutex
	rng      *rand.Rand
}

// Option configures a Model.
type Option func(*options) error

type options struct {
	seed        uint64
	weightsPath string
	training    bool
	logger      *slog.Logger
}

// WithSeed sets the seed for Glorot initialization of untrained heads.
func WithSeed(seed int64) Option {
	return func(o *options) error {
		o.seed = uint64(seed)
		return nil
	}
}

// WithWeightsFile loads head weights from a file written by SaveWeights.
func WithWeightsFile(path string) Option {
	return func(o *options) error {
		o.weightsPath = path
		return nil
	}
}

// WithTraining turns dropout on. Inference must never use this.
func WithTraining() Option {
	return func(o *options) error {
		o.training = true
		return nil
	}
}

// WithLogger sets the model logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger.With("component", "two-tower")
		return nil
	}
}

// layer names, in fingerprint order
var layerSpecs = []struct {
	name    string
	in, out int
}{
	{"user.struct1", model.StructuredDims + temporal.Dims, structHidden},
	{"user.struct2", structHidden, structHidden},
	{"user.head1", ai.TextDims + structHidden, headHidden},
	{"user.head2", headHidden, EmbeddingDims},
	{"listing.struct1", model.StructuredDims, structHidden},
	{"listing.struct2", structHidden, structHidden},
	{"listing.temporal1", temporal.Dims, temporalHidden},
	{"listing.temporal2", temporalHidden, temporalHidden},
	{"listing.head1", ai.TextDims + structHidden + temporalHidden, headHidden},
	{"listing.head2", headHidden, EmbeddingDims},
}

// New builds the model around encoder.
func New(encoder ai.TextEncoder, opts ...Option) (*Model, error) {
	o := options{seed: DefaultSeed, logger: logging.Discard()}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	if encoder.Dimensions() != ai.TextDims {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrEncoderWidth, encoder.Dimensions(), ai.TextDims)
	}

	m := &Model{
		encoder:  encoder,
		logger:   o.logger,
		training: o.training,
		rng:      rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15)),
	}

	if o.weightsPath != "" {
		w, err := LoadWeights(o.weightsPath)
		if err != nil {
			return nil, err
		}
		layers, err := w.layerMap()
		if err != nil {
			return nil, err
		}
		m.layers = layers
		m.trained = w.Trained
		m.logger.Info("loaded tower weights", "path", o.weightsPath, "trained", w.Trained)
	} else {
		seeded := rand.New(rand.NewPCG(o.seed, o.seed))
		m.layers = make(map[string]*Dense, len(layerSpecs))
		for _, spec := range layerSpecs {
			m.layers[spec.name] = newDense(spec.name, spec.in, spec.out, true, seeded)
		}
		alignHeads(m.layers, seeded)
		m.logger.Info("initialized untrained tower heads", "seed", o.seed)
	}

	m.version = fmt.Sprintf("%s+%s+w%016x", ArchTag, encoder.Revision(), m.fingerprint())
	return m, nil
}

// BuildVersion ties an index to this architecture, encoder revision and weight set.
func (m *Model) BuildVersion() string {
	return m.version
}

// Trained reports whether the heads came from a fine-tune rather than seeded init.
func (m *Model) Trained() bool {
	return m.trained
}

// Encoder returns the shared sentence encoder.
func (m *Model) Encoder() ai.TextEncoder {
	return m.encoder
}

// alignHeads overwrites both towers' heads so that they map the text embedding
// through the same seeded count sketch and give structured and temporal inputs
// zero weight. Output i and i+sketchBuckets hold the positive and negative
// parts of sketch bucket i, so user·listing follows text cosine until the
// heads are fine-tuned.
func alignHeads(layers map[string]*Dense, rng *rand.Rand) {
	bucket := make([]int, ai.TextDims)
	sign := make([]float32, ai.TextDims)
	for j := range bucket {
		bucket[j] = rng.IntN(sketchBuckets)
		sign[j] = 1
		if rng.IntN(2) == 1 {
			sign[j] = -1
		}
	}

	// Text occupies the leading columns of both head1 inputs.
	for _, name := range []string{"user.head1", "listing.head1"} {
		d := layers[name]
		clear(d.W)
		clear(d.B)
		for j := 0; j < ai.TextDims; j++ {
			d.W[bucket[j]*d.In+j] = sign[j]
			d.W[(bucket[j]+sketchBuckets)*d.In+j] = -sign[j]
		}
	}
	for _, name := range []string{"user.head2", "listing.head2"} {
		d := layers[name]
		clear(d.W)
		clear(d.B)
		for k := 0; k < d.Out; k++ {
			d.W[k*d.In+k] = 1
		}
	}
}

func (m *Model) fingerprint() uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for _, spec := range layerSpecs {
		d := m.layers[spec.name]
		for _, vals := range [][]float32{d.W, d.B} {
			for _, v := range vals {
				bits := math.Float32bits(v)
				buf[0], buf[1], buf[2], buf[3] = byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24)
				h.Write(buf[:])
			}
		}
	}
	return h.Sum64()
}

func (m *Model) maybeDropout(x []float32, rate float32) {
	if !m.training {
		return
	}
	m.rngMu.Lock()
	dropout(x, rate, m.rng)
	m.rngMu.Unlock()
}

// EncodeQuery runs the user tower.
func (m *Model) EncodeQuery(ctx context.Context, q *model.ParsedQuery) ([]float32, error) {
	text, err := m.embedTexts(ctx, []string{q.QueryText})
	if err != nil {
		return nil, err
	}
	return m.userForward(text[0], q.StructuredFeatures[:], q.ScheduleFeatures[:]), nil
}

// EncodeListings runs the listing tower over a batch, preserving order.
func (m *Model) EncodeListings(ctx context.Context, listings []model.ProcessedListing) ([][]float32, error) {
	texts := make([]string, len(listings))
	for i, l := range listings {
		texts[i] = l.Text
	}
	textVecs, err := m.embedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(listings))
	for i := range listings {
		out[i] = m.listingForward(textVecs[i], listings[i].Structured[:], listings[i].Temporal[:])
	}
	return out, nil
}

func (m *Model) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := m.encoder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("encoding text: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d vectors", ai.ErrCountMismatch, len(texts), len(vecs))
	}
	for _, v := range vecs {
		if len(v) != ai.TextDims {
			return nil, fmt.Errorf("%w: got %d values", ErrEncoderWidth, len(v))
		}
	}
	return vecs, nil
}

func (m *Model) userForward(text, structured, schedule []float32) []float32 {
	s := m.layers["user.struct1"].Forward(concat(structured, schedule))
	m.maybeDropout(s, structDropout)
	s = m.layers["user.struct2"].Forward(s)

	h := m.layers["user.head1"].Forward(concat(text, s))
	m.maybeDropout(h, headDropout)
	out := m.layers["user.head2"].Forward(h)
	l2Normalize(out)
	return out
}

func (m *Model) listingForward(text, structured, temporalVec []float32) []float32 {
	s := m.layers["listing.struct1"].Forward(structured)
	m.maybeDropout(s, structDropout)
	s = m.layers["listing.struct2"].Forward(s)

	t := m.layers["listing.temporal1"].Forward(temporalVec)
	t = m.layers["listing.temporal2"].Forward(t)

	h := m.layers["listing.head1"].Forward(concat(text, s, t))
	m.maybeDropout(h, headDropout)
	out := m.layers["listing.head2"].Forward(h)
	l2Normalize(out)
	return out
}
