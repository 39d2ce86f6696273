package repository

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

const embeddingSchema = `
	CREATE TABLE IF NOT EXISTS listing_embedding (
		listing_id TEXT PRIMARY KEY,
		build_version TEXT NOT NULL,
		embedding vector(128) NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// PublishEmbeddings replaces the listing_embedding table with one build's rows
// in a single transaction. Readers see either the previous build or this one.
func (r *Repository) PublishEmbeddings(ctx context.Context, buildVersion string, ids []string, embeddings [][]float32) (int, error) {
	if r.driver != DriverPostgres {
		return 0, fmt.Errorf("%w: pgvector publish needs postgres, have %s", ErrUnsupportedDriver, r.driver)
	}
	if len(ids) != len(embeddings) {
		return 0, fmt.Errorf("publish: %d ids but %d embeddings", len(ids), len(embeddings))
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, embeddingSchema); err != nil {
		return 0, fmt.Errorf("failed to create listing_embedding: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM listing_embedding`); err != nil {
		return 0, fmt.Errorf("failed to clear listing_embedding: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO listing_embedding (listing_id, build_version, embedding) VALUES ($1, $2, $3)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		vec := pgvector.NewVector(embeddings[i])
		if _, err := stmt.ExecContext(ctx, id, buildVersion, vec); err != nil {
			return 0, fmt.Errorf("listing_id %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(ids), nil
}
