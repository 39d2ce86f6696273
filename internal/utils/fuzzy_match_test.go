package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuzzyMatchAmenity(t *testing.T) {
	tests := []struct {
		search  string
		amenity string
		want    bool
	}{
		{"wifi", "WiFi", true},
		{"wifi", "Wireless Internet", true},
		{"wi-fi", "Free wifi", true},
		{"washer", "Washer/Dryer in unit", true},
		{"laundry", "Washing machine", true},
		{"parking", "Street parking", true},
		{"kitchen", "Full kitchen", true},
		{"gym", "Fitness center", true},
		{"pool", "Carpool lane", false},
		{"tv", "TV", true},
		{"tv", "Rooftop view", false},
		{"parking", "Wifi", false},
		{"", "Wifi", false},
	}

	for _, tt := range tests {
		t.Run(tt.search+"/"+tt.amenity, func(t *testing.T) {
			assert.Equal(t, tt.want, FuzzyMatchAmenity(tt.search, tt.amenity))
		})
	}
}

func TestNormalizeAmenity(t *testing.T) {
	assert.Equal(t, "wifi", NormalizeAmenity("Wi-Fi"))
	assert.Equal(t, "washer", NormalizeAmenity("washing machine"))
	assert.Equal(t, "aircon", NormalizeAmenity(" A/C "))
	assert.Equal(t, "hot tub", NormalizeAmenity("Hot Tub"))
}

func TestExtractAmenities(t *testing.T) {
	assert.Equal(t, []string{"wifi"}, ExtractAmenities("Mon-Thu nights in Brooklyn under $150, need wifi, 4 weeks"))
	assert.Equal(t, []string{"gym", "parking", "washer"}, ExtractAmenities("Parking and a gym, laundry in unit"))
	assert.Empty(t, ExtractAmenities("anywhere, cheapest option"))
	// Substrings of other words do not count.
	assert.Empty(t, ExtractAmenities("a desktop computer"))
}

func TestHasAmenity(t *testing.T) {
	amenities := []string{"Wireless Internet", "Kitchen"}
	assert.True(t, HasAmenity(amenities, "wifi"))
	assert.True(t, HasAmenity(amenities, "kitchen"))
	assert.False(t, HasAmenity(amenities, "gym"))
	assert.False(t, HasAmenity(nil, "wifi"))
}
