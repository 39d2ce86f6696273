// Package preprocess turns raw listings into the text, structured and temporal
// inputs of the listing tower.
package preprocess

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/logging"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/temporal"
)

// Layout of a listing's structured feature vector. Dims 1-3 stay zero.
const (
	DimPrice         = 0
	DimLat           = 4
	DimLng           = 5
	DimBedrooms      = 6
	DimBathrooms     = 7
	DimGuests        = 8
	DimSqftThousands = 9
	DimMinNights     = 10
	DimMaxNightsYear = 11
)

// Defaults for missing listing numerics.
const (
	defaultBedrooms      = 1
	defaultBathrooms     = 1
	defaultGuests        = 2
	defaultSqftThousands = 0.5
	defaultMinNights     = 1
	defaultMaxNightsYear = 1.0
)

// EmptyText is substituted when a listing has no descriptive text at all.
const EmptyText = "Listing"

// ErrDataQuality marks a listing that cannot be featurized.
var ErrDataQuality = errors.New("data quality")

// Result is the outcome of a batch.
type Result struct {
	Listings []model.ProcessedListing
	Skipped  int
}

// Preprocessor featurizes listings.
type Preprocessor struct {
	logger *slog.Logger
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithLogger sets the logger used for skipped listings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Preprocessor) {
		p.logger = logger.With("component", "preprocess")
	}
}

// New creates a Preprocessor.
func New(opts ...Option) *Preprocessor {
	p := &Preprocessor{logger: logging.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Batch processes every listing, logging and counting the ones that fail.
func (p *Preprocessor) Batch(listings []model.Listing) Result {
	res := Result{Listings: make([]model.ProcessedListing, 0, len(listings))}
	for _, l := range listings {
		pl, err := p.Process(l)
		if err != nil {
			res.Skipped++
			p.logger.Warn("skipping listing", "id", l.ID, "error", err)
			continue
		}
		res.Listings = append(res.Listings, pl)
	}
	return res
}

// Process featurizes one listing.
func (p *Preprocessor) Process(l model.Listing) (model.ProcessedListing, error) {
	if strings.TrimSpace(l.ID) == "" {
		return model.ProcessedListing{}, fmt.Errorf("%w: listing has no id", ErrDataQuality)
	}
	structured, err := StructuredFeatures(l)
	if err != nil {
		return model.ProcessedListing{}, fmt.Errorf("%w: listing %s: %v", ErrDataQuality, l.ID, err)
	}
	return model.ProcessedListing{
		ID:         l.ID,
		Text:       Text(l),
		Structured: structured,
		Temporal:   temporal.EncodeDaysAvailable(l.Weekdays()),
		Raw:        l,
	}, nil
}

// Text joins the listing's descriptive fields into one blob for the sentence encoder.
func Text(l model.Listing) string {
	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	add(str(l.Title))
	add(str(l.Description))
	if blurb := str(l.NeighborhoodDescription); blurb != "" {
		add("Neighborhood: " + blurb)
	}

	hood, city := str(l.Neighborhood), str(l.City)
	switch {
	case hood != "" && city != "":
		add("Located in " + hood + ", " + city)
	case city != "":
		add("Located in " + city)
	case hood != "":
		add("Located in " + hood)
	}

	if t := str(l.SpaceType); t != "" {
		add("Property type: " + t)
	}
	if k := str(l.KitchenType); k != "" {
		add("Kitchen: " + k)
	}
	if r := str(l.RentalType); r != "" {
		add("Rental type: " + r)
	}

	if len(parts) == 0 {
		return EmptyText
	}
	return strings.Join(parts, " ")
}

// StructuredFeatures builds the listing's numeric vector. It fails on NaN or
// infinite inputs so a bad row never reaches the model.
func StructuredFeatures(l model.Listing) ([model.StructuredDims]float32, error) {
	var f [model.StructuredDims]float32

	lat, lng := l.Coordinates()
	values := []struct {
		dim   int
		name  string
		value float64
	}{
		{DimPrice, "price_per_night", floatOr(l.PricePerNight, 0)},
		{DimLat, "lat", lat},
		{DimLng, "lng", lng},
		{DimBedrooms, "bedrooms", floatOr(l.Bedrooms, defaultBedrooms)},
		{DimBathrooms, "bathrooms", floatOr(l.Bathrooms, defaultBathrooms)},
		{DimGuests, "guests", intOr(l.Guests, defaultGuests)},
		{DimSqftThousands, "square_feet", scaled(l.SquareFeet, 1000, defaultSqftThousands)},
		{DimMinNights, "minimum_nights", intOr(l.MinimumNights, defaultMinNights)},
		{DimMaxNightsYear, "maximum_nights", scaledInt(l.MaximumNights, 365, defaultMaxNightsYear)},
	}
	for _, v := range values {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) || math.Abs(v.value) > math.MaxFloat32 {
			return f, fmt.Errorf("%s is not finite", v.name)
		}
		f[v.dim] = float32(v.value)
	}
	return f, nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def float64) float64 {
	if v == nil {
		return def
	}
	return float64(*v)
}

func scaled(v *float64, by, def float64) float64 {
	if v == nil {
		return def
	}
	return *v / by
}

func scaledInt(v *int, by, def float64) float64 {
	if v == nil {
		return def
	}
	return float64(*v) / by
}
