package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// LocalEncoder embeds through a local OpenAI-compatible server (Ollama, llama.cpp, vLLM).
type LocalEncoder struct {
	embedder embeddings.Embedder
	model    string
	logger   *slog.Logger
}

// NewLocalEncoder connects to baseURL using the given embedding model.
func NewLocalEncoder(baseURL, model string, logger *slog.Logger) (*LocalEncoder, error) {
	// Local servers ignore the token but the client requires one.
	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating local embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("creating local embedder: %w", err)
	}

	return &LocalEncoder{
		embedder: embedder,
		model:    model,
		logger:   logger.With("component", "local-encoder"),
	}, nil
}

// Embed returns one TextDims-wide unit vector per text.
func (e *LocalEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d vectors", ErrCountMismatch, len(texts), len(vectors))
	}
	for i, v := range vectors {
		vectors[i] = FitDimensions(v, TextDims)
	}
	return vectors, nil
}

// Dimensions implements TextEncoder.
func (e *LocalEncoder) Dimensions() int { return TextDims }

// Revision implements TextEncoder.
func (e *LocalEncoder) Revision() string {
	return fmt.Sprintf("local:%s@%d", e.model, TextDims)
}
