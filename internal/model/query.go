package model

import "github.com/splitleaseteam/splitlease-monorepo-sub000/internal/temporal"

// Layout of a query's structured feature vector.
const (
	QueryBudgetMin = iota
	QueryBudgetMax
	QueryLat
	QueryLng
	QueryRadiusKm
	QueryNights
	QueryWeeks
	QueryNightsPerWeek
	QueryFlexible
)

// ParsedQuery is the request-local result of query processing.
type ParsedQuery struct {
	QueryText          string                  `json:"query_text"`
	StructuredFeatures [StructuredDims]float32 `json:"-"`
	ScheduleFeatures   temporal.Vector         `json:"-"`
	Parsed             ParsedFields            `json:"parsed"`
}

// ParsedFields holds the human-meaningful values behind the feature vectors.
// Absent values are nil.
type ParsedFields struct {
	Budget    *Budget           `json:"budget,omitempty"`
	Duration  *Duration         `json:"duration,omitempty"`
	Location  *QueryLocation    `json:"location,omitempty"`
	Schedule  temporal.Schedule `json:"schedule"`
	Borough   *Borough          `json:"borough,omitempty"`
	Amenities []string          `json:"amenities,omitempty"`
}

// Budget is a nightly price band.
type Budget struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether price falls inside the band.
func (b Budget) Contains(price float64) bool {
	return price >= b.Min && price <= b.Max
}

// Duration is the requested length of stay.
type Duration struct {
	Nights int `json:"nights"`
	Weeks  int `json:"weeks"`
}

// QueryLocation is a resolved place with a search radius.
type QueryLocation struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radius_km"`
}

// Point returns the location centre.
func (q QueryLocation) Point() GeoPoint {
	return GeoPoint{Lat: q.Lat, Lng: q.Lng}
}

// Borough is a row of the borough reference table.
type Borough struct {
	ID   string `json:"id" db:"id" yaml:"id"`
	Name string `json:"name" db:"name" yaml:"name"`
}
