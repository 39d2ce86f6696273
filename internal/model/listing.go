package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/temporal"
)

// Listing is a short-term rental unit as stored in the listings table.
// Every descriptive and numeric field is optional.
type Listing struct {
	ID                      string    `json:"id" db:"id"`
	Title                   *string   `json:"title,omitempty" db:"title"`
	Description             *string   `json:"description,omitempty" db:"description"`
	NeighborhoodDescription *string   `json:"neighborhood_description,omitempty" db:"neighborhood_description"`
	Neighborhood            *string   `json:"neighborhood,omitempty" db:"neighborhood"`
	City                    *string   `json:"city,omitempty" db:"city"`
	Borough                 *string   `json:"borough,omitempty" db:"borough"`
	SpaceType               *string   `json:"space_type,omitempty" db:"space_type"`
	KitchenType             *string   `json:"kitchen_type,omitempty" db:"kitchen_type"`
	RentalType              *string   `json:"rental_type,omitempty" db:"rental_type"`
	Active                  bool      `json:"active" db:"active"`
	PricePerNight           *float64  `json:"price_per_night,omitempty" db:"price_per_night"`
	Bedrooms                *float64  `json:"bedrooms,omitempty" db:"bedrooms"`
	Bathrooms               *float64  `json:"bathrooms,omitempty" db:"bathrooms"`
	Guests                  *int      `json:"guests,omitempty" db:"guests"`
	SquareFeet              *float64  `json:"square_feet,omitempty" db:"square_feet"`
	MinimumNights           *int      `json:"minimum_nights,omitempty" db:"minimum_nights"`
	MaximumNights           *int      `json:"maximum_nights,omitempty" db:"maximum_nights"`
	Location                *GeoPoint `json:"location,omitempty" db:"location"`
	DaysAvailable           JSONArray `json:"days_available" db:"days_available"`
	Amenities               JSONArray `json:"amenities,omitempty" db:"amenities"`
}

// Coordinates returns the listing position, or (0, 0) when it has none.
func (l *Listing) Coordinates() (lat, lng float64) {
	if l.Location == nil {
		return 0, 0
	}
	return l.Location.Lat, l.Location.Lng
}

// HasLocation reports whether the listing can take part in geographic scoring.
func (l *Listing) HasLocation() bool {
	return l.Location != nil && !l.Location.IsZero()
}

// Weekdays parses DaysAvailable into a weekday set.
func (l *Listing) Weekdays() []temporal.Weekday {
	return temporal.ParseDays(l.DaysAvailable)
}

// ListingMetadata is the per-row payload stored alongside the embedding matrix.
type ListingMetadata struct {
	Listing
	Temporal temporal.Vector `json:"-"`
}

// StructuredDims is the length of the structured feature vectors on both towers.
const StructuredDims = 12

// ProcessedListing is the typed, model-ready form of a Listing.
type ProcessedListing struct {
	ID         string
	Text       string
	Structured [StructuredDims]float32
	Temporal   temporal.Vector
	Raw        Listing
}

// GeoPoint is a latitude/longitude pair stored as a JSON object.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the point is the (0, 0) placeholder.
func (g GeoPoint) IsZero() bool {
	return g.Lat == 0 && g.Lng == 0
}

// DistanceKm returns the great-circle distance to another point.
func (g GeoPoint) DistanceKm(o GeoPoint) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(o.Lat - g.Lat)
	dLng := toRad(o.Lng - g.Lng)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(g.Lat))*math.Cos(toRad(o.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Value implements driver.Valuer interface
func (g GeoPoint) Value() (driver.Value, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface
func (g *GeoPoint) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*g = GeoPoint{}
		return nil
	case []byte:
		return json.Unmarshal(v, g)
	case string:
		return json.Unmarshal([]byte(v), g)
	default:
		return fmt.Errorf("unsupported location type %T", value)
	}
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("unsupported array type %T", value)
		}
		bytes = []byte(s)
	}
	if len(bytes) == 0 {
		*j = nil
		return nil
	}
	return json.Unmarshal(bytes, j)
}
