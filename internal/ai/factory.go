package ai

import (
	"fmt"
	"log/slog"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/config"
)

// Providers accepted by NewEncoder.
const (
	ProviderOpenAI  = "openai"
	ProviderLocal   = "local"
	ProviderHashing = "hashing"
)

// NewEncoder builds the configured sentence encoder.
func NewEncoder(cfg *config.Config, logger *slog.Logger) (TextEncoder, error) {
	switch cfg.Model.Provider {
	case ProviderOpenAI:
		client, err := NewOpenAIClient(&cfg.OpenAI, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if !client.IsEnabled() {
			return nil, fmt.Errorf("%w: openai provider needs OPENAI_API_KEY", ErrDisabled)
		}
		return NewOpenAIEncoder(client), nil
	case ProviderLocal:
		return NewLocalEncoder(cfg.Model.LocalBaseURL, cfg.Model.LocalModel, logger)
	case ProviderHashing:
		return NewHashingEncoder(), nil
	default:
		return nil, fmt.Errorf("unknown text encoder provider %q", cfg.Model.Provider)
	}
}
