package model

// MatchRequest is the body of POST /match.
type MatchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

// MatchResponse is a ranked result set.
type MatchResponse struct {
	Query            string        `json:"query"`
	ParsedQuery      ParsedFields  `json:"parsed_query"`
	Count            int           `json:"count"`
	Matches          []MatchResult `json:"matches"`
	ProcessingTimeMs float64       `json:"processing_time_ms"`
	Model            ModelInfo     `json:"model"`
}

// MatchResult is one ranked listing.
type MatchResult struct {
	ListingID       string    `json:"listing_id"`
	Title           string    `json:"title"`
	PricePerNight   *float64  `json:"price_per_night"`
	Location        *GeoPoint `json:"location"`
	Neighborhood    *string   `json:"neighborhood,omitempty"`
	Borough         *string   `json:"borough,omitempty"`
	DaysAvailable   []string  `json:"days_available"`
	Active          bool      `json:"active"`
	SimilarityScore float64   `json:"similarity_score"`
	FinalScore      float64   `json:"final_score"`
	MatchReasons    []string  `json:"match_reasons"`
}

// ModelInfo describes the model that produced the scores.
type ModelInfo struct {
	BuildVersion string `json:"build_version"`
	HeadsTrained bool   `json:"heads_trained"`
	ScoreBasis   string `json:"score_basis"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	Database       string `json:"database"`
	Model          string `json:"tensorflow_model"`
	EmbeddingIndex string `json:"embedding_index"`
	Ready          bool   `json:"ready"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}
