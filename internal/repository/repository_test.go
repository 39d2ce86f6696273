package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int         { return &i }

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(DriverSQLite, ":memory:", 1, 1)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.CreateSchema(context.Background()))
	return repo
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever", 1, 1)
	assert.True(t, errors.Is(err, ErrUnsupportedDriver))
}

func TestForEachListing_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	full := model.Listing{
		ID:            "b-2",
		Title:         strPtr("Sunny loft"),
		Neighborhood:  strPtr("Williamsburg"),
		City:          strPtr("Brooklyn"),
		Borough:       strPtr("Brooklyn"),
		Active:        true,
		PricePerNight: f64Ptr(120),
		Bedrooms:      f64Ptr(2),
		Guests:        intPtr(3),
		MinimumNights: intPtr(2),
		Location:      &model.GeoPoint{Lat: 40.7081, Lng: -73.9571},
		DaysAvailable: model.JSONArray{"Monday", "Tuesday", "Wednesday", "Thursday"},
		Amenities:     model.JSONArray{"WiFi", "Washer"},
	}
	sparse := model.Listing{ID: "a-1"}

	require.NoError(t, repo.InsertListing(ctx, full))
	require.NoError(t, repo.InsertListing(ctx, sparse))

	var got []model.Listing
	err := repo.ForEachListing(ctx, func(l model.Listing, err error) error {
		require.NoError(t, err)
		got = append(got, l)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by id.
	assert.Equal(t, "a-1", got[0].ID)
	assert.Nil(t, got[0].Title)
	assert.Nil(t, got[0].Location)
	assert.Empty(t, got[0].DaysAvailable)
	assert.False(t, got[0].Active)

	assert.Equal(t, full, got[1])

	n, err := repo.CountListings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestForEachListing_StopsOnError(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, repo.InsertListing(ctx, model.Listing{ID: id}))
	}

	stop := errors.New("stop")
	seen := 0
	err := repo.ForEachListing(ctx, func(model.Listing, error) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, seen)
}

func TestForEachListing_MalformedRowSkipped(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.InsertListing(ctx, model.Listing{ID: "a", DaysAvailable: model.JSONArray{"mon"}}))
	require.NoError(t, repo.InsertListing(ctx, model.Listing{ID: "c"}))
	_, err := repo.db.ExecContext(ctx, "INSERT INTO listing (id, days_available) VALUES ('b', 'mon,tue')")
	require.NoError(t, err)

	var delivered, malformed []string
	err = repo.ForEachListing(ctx, func(l model.Listing, err error) error {
		if err != nil {
			assert.ErrorIs(t, err, ErrMalformedRow)
			malformed = append(malformed, l.ID)
			return nil
		}
		delivered = append(delivered, l.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, delivered)
	assert.Equal(t, []string{"b"}, malformed)
}

func TestGetListingByID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.InsertListing(ctx, model.Listing{ID: "x", Title: strPtr("Studio")}))

	l, err := repo.GetListingByID(ctx, "x")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, "Studio", *l.Title)

	missing, err := repo.GetListingByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBoroughs_Order(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.InsertBorough(ctx, model.Borough{ID: "mn", Name: "Manhattan"}, 0))
	require.NoError(t, repo.InsertBorough(ctx, model.Borough{ID: "bk", Name: "Brooklyn"}, 1))
	require.NoError(t, repo.InsertBorough(ctx, model.Borough{ID: "qn", Name: "Queens"}, 2))

	boroughs, err := repo.Boroughs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Borough{
		{ID: "mn", Name: "Manhattan"},
		{ID: "bk", Name: "Brooklyn"},
		{ID: "qn", Name: "Queens"},
	}, boroughs)
}

func TestPublishEmbeddings_RequiresPostgres(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.PublishEmbeddings(context.Background(), "v1", []string{"a"}, [][]float32{make([]float32, 128)})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestPing(t *testing.T) {
	repo := newTestRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))
	assert.Equal(t, DriverSQLite, repo.Driver())
}
