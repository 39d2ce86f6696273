// Package ai provides the frozen sentence encoders behind the two towers and the
// OpenAI-compatible chat client used for optional query assistance.
package ai

import (
	"context"
	"errors"
	"math"
)

// TextDims is the width of every sentence embedding fed to the towers.
const TextDims = 512

var (
	// ErrDisabled is returned when a remote client has no credentials.
	ErrDisabled = errors.New("ai: client not enabled")
	// ErrEmptyResponse is returned when a provider answers without data.
	ErrEmptyResponse = errors.New("ai: empty response")
	// ErrCountMismatch is returned when a provider returns a different number of vectors than texts.
	ErrCountMismatch = errors.New("ai: embedding count mismatch")
)

// TextEncoder maps texts to fixed-width sentence embeddings.
// Implementations must be safe for concurrent use and deterministic for a given Revision.
type TextEncoder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Revision identifies the encoder and its weights. It is part of the model build version.
	Revision() string
}

// NormalizeVector returns v scaled to unit length. A zero vector is returned as zeros.
func NormalizeVector(v []float32) []float32 {
	result := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return result
	}
	norm := float32(math.Sqrt(sum))
	for i, x := range v {
		result[i] = x / norm
	}
	return result
}

// FitDimensions truncates or zero-pads v to dims and renormalizes it.
// Providers whose native width differs from TextDims go through here.
func FitDimensions(v []float32, dims int) []float32 {
	out := make([]float32, dims)
	copy(out, v)
	return NormalizeVector(out)
}
