// Package repository provides read access to the listings and borough tables
// on PostgreSQL or SQLite, and mirrors built embeddings into pgvector.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	// ErrUnsupportedDriver is returned for operations the current driver cannot perform.
	ErrUnsupportedDriver = errors.New("operation not supported by driver")
	// ErrMalformedRow marks a listing row whose columns could not be decoded.
	ErrMalformedRow = errors.New("malformed listing row")
)

const listingColumns = `id, title, description, neighborhood_description, neighborhood, city, borough,
	space_type, kitchen_type, rental_type, active, price_per_night, bedrooms, bathrooms,
	guests, square_feet, minimum_nights, maximum_nights, location, days_available, amenities`

// Repository handles database operations
type Repository struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the listings database.
func Open(driver, dsn string, maxConn, maxIdleConn int) (*Repository, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxConn)
		db.SetMaxIdleConns(maxIdleConn)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(2 * time.Minute)
	}

	return &Repository{db: db, driver: driver}, nil
}

// New wraps an existing connection.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db, driver: db.DriverName()}
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// Driver returns the driver name.
func (r *Repository) Driver() string {
	return r.driver
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ForEachListing streams every listing, active or not, ordered by id.
// A row that cannot be decoded is passed to fn with an error wrapping
// ErrMalformedRow and the fields read before the failure; if fn returns nil
// iteration continues with the next row. Iteration stops at the first error
// returned by fn.
func (r *Repository) ForEachListing(ctx context.Context, fn func(model.Listing, error) error) error {
	rows, err := r.db.QueryxContext(ctx, "SELECT "+listingColumns+" FROM listing ORDER BY id")
	if err != nil {
		return fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l model.Listing
		if err := rows.StructScan(&l); err != nil {
			if err := fn(l, fmt.Errorf("%w: %v", ErrMalformedRow, err)); err != nil {
				return err
			}
			continue
		}
		if err := fn(l, nil); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate listings: %w", err)
	}
	return nil
}

// GetListingByID retrieves a single listing, or nil when it does not exist.
func (r *Repository) GetListingByID(ctx context.Context, id string) (*model.Listing, error) {
	var listing model.Listing
	query := r.db.Rebind("SELECT " + listingColumns + " FROM listing WHERE id = ?")
	err := r.db.GetContext(ctx, &listing, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// CountListings returns the number of rows in the listing table.
func (r *Repository) CountListings(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM listing"); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

// Boroughs returns the borough reference table in its stored order.
func (r *Repository) Boroughs(ctx context.Context) ([]model.Borough, error) {
	var boroughs []model.Borough
	if err := r.db.SelectContext(ctx, &boroughs, "SELECT id, name FROM borough ORDER BY position, id"); err != nil {
		return nil, fmt.Errorf("failed to load boroughs: %w", err)
	}
	return boroughs, nil
}

// InsertListing writes one listing. Used for fixtures and local seeding.
func (r *Repository) InsertListing(ctx context.Context, l model.Listing) error {
	cols := strings.Join(strings.Fields(strings.ReplaceAll(listingColumns, ",", " ")), ", ")
	named := ":" + strings.ReplaceAll(cols, ", ", ", :")
	query := fmt.Sprintf("INSERT INTO listing (%s) VALUES (%s)", cols, named)
	if _, err := r.db.NamedExecContext(ctx, query, l); err != nil {
		return fmt.Errorf("failed to insert listing %s: %w", l.ID, err)
	}
	return nil
}

// InsertBorough appends a borough to the reference table.
func (r *Repository) InsertBorough(ctx context.Context, b model.Borough, position int) error {
	query := r.db.Rebind("INSERT INTO borough (id, name, position) VALUES (?, ?, ?)")
	if _, err := r.db.ExecContext(ctx, query, b.ID, b.Name, position); err != nil {
		return fmt.Errorf("failed to insert borough %s: %w", b.ID, err)
	}
	return nil
}
