package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/ai"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/config"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/logging"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/tower"
)

var weightsOutput string

func init() {
	rootCmd.AddCommand(weightsCmd)
	weightsCmd.Flags().StringVarP(&weightsOutput, "output", "o", "", "Destination file for the head weights (required)")
	weightsCmd.MarkFlagRequired("output")
}

// WeightsResult is the response for the weights command.
type WeightsResult struct {
	Status       string `json:"status"`
	Path         string `json:"path"`
	Layers       int    `json:"layers"`
	Trained      bool   `json:"trained"`
	BuildVersion string `json:"build_version"`
	SizeBytes    int64  `json:"size_bytes"`
}

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Export the current tower head weights",
	Long: `Write the head weights the model would use right now (seeded or loaded from
MODEL_WEIGHTS_PATH) to a file. Pointing MODEL_WEIGHTS_PATH at the export pins
the build version across seed or code changes.`,
	RunE: runWeights,
}

func runWeights(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fail(ExitConfigError, "loading configuration: %w", err)
	}
	logger := logging.New(cfg.Logging, os.Stderr)

	encoder, err := ai.NewEncoder(cfg, logger)
	if err != nil {
		return fail(ExitConfigError, "text encoder: %w", err)
	}
	model, err := tower.FromConfig(cfg.Model, encoder, logger)
	if err != nil {
		return fail(ExitConfigError, "two-tower model: %w", err)
	}

	w := model.Weights()
	if err := tower.SaveWeights(weightsOutput, w); err != nil {
		return fail(ExitError, "%w", err)
	}

	result := WeightsResult{
		Status:       "complete",
		Path:         weightsOutput,
		Layers:       len(w.Layers),
		Trained:      w.Trained,
		BuildVersion: model.BuildVersion(),
	}
	if info, err := os.Stat(weightsOutput); err == nil {
		result.SizeBytes = info.Size()
	}

	if humanOutput {
		fmt.Printf("Exported %d layers to %s (%s)\n", result.Layers, result.Path, formatBytes(result.SizeBytes))
		fmt.Printf("  Build version: %s\n", result.BuildVersion)
		return nil
	}
	return outputJSON(result)
}
