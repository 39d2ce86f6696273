package tower

import (
	"fmt"
	"log/slog"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/ai"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/config"
)

// FromConfig builds the model around encoder using the MODEL_* settings and
// checks it against MODEL_VERSION when one is pinned.
func FromConfig(cfg config.ModelConfig, encoder ai.TextEncoder, logger *slog.Logger) (*Model, error) {
	opts := []Option{WithSeed(cfg.Seed), WithLogger(logger)}
	if cfg.WeightsPath != "" {
		opts = append(opts, WithWeightsFile(cfg.WeightsPath))
	}
	m, err := New(encoder, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Version != "" && cfg.Version != m.BuildVersion() {
		return nil, fmt.Errorf("%w: MODEL_VERSION is %q but the configured model is %q",
			ErrWeightsMismatch, cfg.Version, m.BuildVersion())
	}
	return m, nil
}
