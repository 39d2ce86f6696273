package main

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
)

func TestParseSeed(t *testing.T) {
	f, err := os.Open("testdata/listings.yaml")
	require.NoError(t, err)
	defer f.Close()

	data, err := parseSeed(f)
	require.NoError(t, err)

	assert.Equal(t, []model.Borough{
		{ID: "bk", Name: "Brooklyn"},
		{ID: "mn", Name: "Manhattan"},
		{ID: "qn", Name: "Queens"},
	}, data.Boroughs)

	require.Len(t, data.Listings, 3)
	loft := data.Listings[0]
	assert.Equal(t, "bk-101", loft.ID)
	require.NotNil(t, loft.Title)
	assert.Equal(t, "Sunny Williamsburg loft", *loft.Title)
	require.NotNil(t, loft.PricePerNight)
	assert.Equal(t, 135.0, *loft.PricePerNight)
	require.NotNil(t, loft.Guests)
	assert.Equal(t, 2, *loft.Guests)
	require.NotNil(t, loft.Location)
	assert.InDelta(t, 40.7145, loft.Location.Lat, 1e-9)
	assert.Equal(t, model.JSONArray{"Monday", "Tuesday", "Wednesday", "Thursday"}, loft.DaysAvailable)
	assert.Equal(t, model.JSONArray{"wifi", "washer"}, loft.Amenities)
	assert.True(t, loft.Active)

	studio := data.Listings[1]
	assert.Nil(t, studio.Bedrooms)
	assert.Nil(t, studio.KitchenType)

	assert.False(t, data.Listings[2].Active)
	assert.Empty(t, data.Listings[2].DaysAvailable)
}

func TestParseSeed_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing id", "listings:\n  - title: no id\n", "has no id"},
		{"duplicate id", "listings:\n  - id: a\n  - id: a\n", "duplicate listing id"},
		{"bad yaml", "listings: [\n", "parsing seed file"},
		{"wrong type", "listings:\n  - id: a\n    guests: many\n", "decoding listings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSeed(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}
