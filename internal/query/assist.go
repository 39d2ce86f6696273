package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/ai"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/utils"
)

const (
	maxAssistRadiusKm = 50.0
	locatePrompt      = `You resolve place names in short-term rental search queries.
Return ONLY a JSON object: {"name": string, "lat": number, "lng": number, "radius_km": number}.
name is the neighborhood or city the user wants to stay in; radius_km is a sensible search radius.
If the query names no place, return {"name": ""}.

Query: "quiet studio near columbia university"
Response: {"name": "Morningside Heights", "lat": 40.8100, "lng": -73.9625, "radius_km": 1.5}

Query: "anywhere cheap, 3 nights"
Response: {"name": ""}`
)

// ChatCompleter is the part of the OpenAI client the assistant needs.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, req ai.ChatCompletionRequest) (*ai.ChatCompletionResponse, error)
}

// LocationAssistant resolves a place the keyword table does not know.
type LocationAssistant interface {
	Locate(ctx context.Context, text string) (*model.QueryLocation, error)
}

// ChatLocationAssistant asks a chat model for coordinates.
type ChatLocationAssistant struct {
	client ChatCompleter
	logger *slog.Logger
}

// NewChatLocationAssistant creates an assistant over client.
func NewChatLocationAssistant(client ChatCompleter, logger *slog.Logger) *ChatLocationAssistant {
	return &ChatLocationAssistant{client: client, logger: logger.With("component", "location-assist")}
}

type assistLocation struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radius_km"`
}

// Locate returns nil without error when the model finds no place.
func (a *ChatLocationAssistant) Locate(ctx context.Context, text string) (*model.QueryLocation, error) {
	resp, err := a.client.ChatCompletion(ctx, ai.ChatCompletionRequest{
		Messages: []ai.ChatMessage{
			{Role: "system", Content: locatePrompt},
			{Role: "user", Content: text},
		},
		Temperature:    0.1,
		ResponseFormat: &ai.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, ai.ErrEmptyResponse
	}

	var loc assistLocation
	content := resp.Choices[0].Message.Content
	if err := utils.ParseAIJSON(content, &loc); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	loc.Name = strings.TrimSpace(loc.Name)
	if loc.Name == "" {
		return nil, nil
	}
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 || (loc.Lat == 0 && loc.Lng == 0) {
		return nil, fmt.Errorf("AI returned invalid coordinates (%f, %f) for %q", loc.Lat, loc.Lng, loc.Name)
	}
	if loc.RadiusKm <= 0 {
		loc.RadiusKm = defaultRadiusKm
	}
	if loc.RadiusKm > maxAssistRadiusKm {
		loc.RadiusKm = maxAssistRadiusKm
	}

	a.logger.Debug("resolved location", "name", loc.Name, "lat", loc.Lat, "lng", loc.Lng)
	return &model.QueryLocation{Name: loc.Name, Lat: loc.Lat, Lng: loc.Lng, RadiusKm: loc.RadiusKm}, nil
}
