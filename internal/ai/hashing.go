package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

const bigramWeight = 0.5

// HashingEncoder is a deterministic bag-of-ngrams encoder. Each lowercase word and
// adjacent word pair is hashed with FNV-1a into a signed bucket; the result is
// L2-normalized. It needs no network and is used offline and in tests.
type HashingEncoder struct {
	dims int
}

// NewHashingEncoder returns a TextDims-wide hashing encoder.
func NewHashingEncoder() *HashingEncoder {
	return &HashingEncoder{dims: TextDims}
}

// Embed implements TextEncoder.
func (e *HashingEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.encode(text)
	}
	return out, nil
}

func (e *HashingEncoder) encode(text string) []float32 {
	v := make([]float32, e.dims)
	tokens := Tokenize(text)
	for i, tok := range tokens {
		e.add(v, tok, 1)
		if i > 0 {
			e.add(v, tokens[i-1]+" "+tok, bigramWeight)
		}
	}
	return NormalizeVector(v)
}

func (e *HashingEncoder) add(v []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(e.dims))
	if (sum>>63)&1 == 1 {
		weight = -weight
	}
	v[bucket] += weight
}

// Dimensions implements TextEncoder.
func (e *HashingEncoder) Dimensions() int { return e.dims }

// Revision implements TextEncoder.
func (e *HashingEncoder) Revision() string {
	return fmt.Sprintf("hashing:fnv1a-uni-bi@%d", e.dims)
}

// Tokenize splits text into lowercase letter/digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
