package repository

import (
	"context"
	"fmt"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS listing (
		id TEXT PRIMARY KEY,
		title TEXT,
		description TEXT,
		neighborhood_description TEXT,
		neighborhood TEXT,
		city TEXT,
		borough TEXT,
		space_type TEXT,
		kitchen_type TEXT,
		rental_type TEXT,
		active INTEGER NOT NULL DEFAULT 0,
		price_per_night REAL,
		bedrooms REAL,
		bathrooms REAL,
		guests INTEGER,
		square_feet REAL,
		minimum_nights INTEGER,
		maximum_nights INTEGER,
		location TEXT,
		days_available TEXT,
		amenities TEXT
	);

	CREATE TABLE IF NOT EXISTS borough (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	);
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS listing (
		id TEXT PRIMARY KEY,
		title TEXT,
		description TEXT,
		neighborhood_description TEXT,
		neighborhood TEXT,
		city TEXT,
		borough TEXT,
		space_type TEXT,
		kitchen_type TEXT,
		rental_type TEXT,
		active BOOLEAN NOT NULL DEFAULT FALSE,
		price_per_night DOUBLE PRECISION,
		bedrooms DOUBLE PRECISION,
		bathrooms DOUBLE PRECISION,
		guests INTEGER,
		square_feet DOUBLE PRECISION,
		minimum_nights INTEGER,
		maximum_nights INTEGER,
		location JSONB,
		days_available JSONB,
		amenities JSONB
	);

	CREATE TABLE IF NOT EXISTS borough (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	);
`

// CreateSchema creates the listing and borough tables if they do not exist.
func (r *Repository) CreateSchema(ctx context.Context) error {
	schema := sqliteSchema
	if r.driver == DriverPostgres {
		schema = postgresSchema
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
