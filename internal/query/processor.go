// Package query turns free-text rental searches into structured requirements
// and the feature vectors consumed by the user tower.
package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/logging"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/temporal"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/utils"
)

// Neutral values used when the query does not say.
const (
	defaultBudgetMin = 50.0
	defaultBudgetMax = 300.0
	defaultRadiusKm  = 10.0
	defaultNights    = 7
	defaultWeeks     = 1
)

// Processor parses queries. It is safe for concurrent use.
type Processor struct {
	locations *LocationTable
	boroughs  BoroughTable
	assistant LocationAssistant
	logger    *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor) error

// WithLogger sets the processor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) error {
		p.logger = logger.With("component", "query-processor")
		return nil
	}
}

// WithLocationTable replaces the built-in location keywords.
func WithLocationTable(t *LocationTable) Option {
	return func(p *Processor) error {
		p.locations = t
		return nil
	}
}

// WithBoroughTable enables borough extraction.
func WithBoroughTable(t BoroughTable) Option {
	return func(p *Processor) error {
		p.boroughs = t
		return nil
	}
}

// WithLocationAssistant enables the fallback for places missing from the keyword table.
func WithLocationAssistant(a LocationAssistant) Option {
	return func(p *Processor) error {
		p.assistant = a
		return nil
	}
}

// NewProcessor creates a processor with the built-in location table.
func NewProcessor(opts ...Option) (*Processor, error) {
	p := &Processor{
		locations: DefaultLocationTable(),
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Process parses text. It never fails: anything it cannot read is left absent
// and the feature vectors fall back to neutral defaults.
func (p *Processor) Process(ctx context.Context, text string) *model.ParsedQuery {
	lower := strings.ToLower(text)

	parsed := model.ParsedFields{
		Budget:    extractBudget(lower),
		Duration:  extractDuration(lower),
		Location:  p.locations.Lookup(lower),
		Schedule:  temporal.ParseUserSchedule(text),
		Amenities: utils.ExtractAmenities(text),
	}

	if parsed.Location == nil && p.assistant != nil {
		loc, err := p.assistant.Locate(ctx, text)
		if err != nil {
			p.logger.Warn("location assist failed", "error", err)
		} else {
			parsed.Location = loc
		}
	}

	if p.boroughs != nil {
		boroughs, err := p.boroughs.Boroughs(ctx)
		if err != nil {
			p.logger.Warn("borough table unavailable", "error", err)
		} else {
			parsed.Borough = matchBorough(lower, boroughs)
		}
	}

	return &model.ParsedQuery{
		QueryText:          text,
		StructuredFeatures: structuredFeatures(parsed),
		ScheduleFeatures:   temporal.EncodeSchedule(parsed.Schedule),
		Parsed:             parsed,
	}
}

func structuredFeatures(p model.ParsedFields) [model.StructuredDims]float32 {
	var f [model.StructuredDims]float32

	f[model.QueryBudgetMin] = defaultBudgetMin
	f[model.QueryBudgetMax] = defaultBudgetMax
	if p.Budget != nil {
		f[model.QueryBudgetMin] = float32(p.Budget.Min)
		f[model.QueryBudgetMax] = float32(p.Budget.Max)
	}

	f[model.QueryRadiusKm] = defaultRadiusKm
	if p.Location != nil {
		f[model.QueryLat] = float32(p.Location.Lat)
		f[model.QueryLng] = float32(p.Location.Lng)
		f[model.QueryRadiusKm] = float32(p.Location.RadiusKm)
	}

	f[model.QueryNights] = defaultNights
	f[model.QueryWeeks] = defaultWeeks
	if p.Duration != nil {
		f[model.QueryNights] = float32(p.Duration.Nights)
		f[model.QueryWeeks] = float32(p.Duration.Weeks)
	}

	f[model.QueryNightsPerWeek] = float32(p.Schedule.NightsPerWeek)
	if p.Schedule.Flexible {
		f[model.QueryFlexible] = 1
	}
	return f
}
