package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/ai"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/config"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/index"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/logging"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/repository"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/tower"
)

var (
	buildOutput  string
	buildPublish bool
)

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Artifact path or directory (default EMBEDDING_INDEX_PATH)")
	buildCmd.Flags().BoolVar(&buildPublish, "publish", false, "Also mirror embeddings into the listing_embedding pgvector table")
}

// BuildResult is the response for the build command.
type BuildResult struct {
	Status          string  `json:"status"`
	Path            string  `json:"path"`
	Fetched         int     `json:"fetched"`
	Indexed         int     `json:"indexed"`
	Skipped         int     `json:"skipped"`
	Batches         int     `json:"batches"`
	BuildVersion    string  `json:"build_version"`
	HeadsTrained    bool    `json:"heads_trained"`
	DurationSeconds float64 `json:"duration_seconds"`
	IndexSizeBytes  int64   `json:"index_size_bytes"`
	Published       int     `json:"published,omitempty"`
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build or rebuild the embedding index",
	Long: `Fetch every listing, preprocess it, encode it through the listing tower and
write the artifact atomically. Rebuilding overwrites the previous artifact.`,
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fail(ExitConfigError, "loading configuration: %w", err)
	}
	if buildOutput != "" {
		cfg.Index.Path = buildOutput
	}
	if err := cfg.Validate(); err != nil {
		return fail(ExitConfigError, "%w", err)
	}

	logger := logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	repo, err := repository.Open(cfg.PostgreSQL.Driver, cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections, cfg.PostgreSQL.MaxIdleConnections)
	if err != nil {
		return fail(ExitError, "%w", err)
	}
	defer repo.Close()

	if total, err := repo.CountListings(ctx); err == nil {
		logger.Info("starting index build", "listings", total, "driver", repo.Driver())
	}

	encoder, err := ai.NewEncoder(cfg, logger)
	if err != nil {
		return fail(ExitConfigError, "text encoder: %w", err)
	}
	model, err := tower.FromConfig(cfg.Model, encoder, logger)
	if err != nil {
		return fail(ExitConfigError, "two-tower model: %w", err)
	}

	builder, err := index.NewBuilder(repo, model,
		index.WithBatchSize(cfg.Index.BatchSize),
		index.WithWorkers(cfg.Index.Workers),
		index.WithLogger(logger),
	)
	if err != nil {
		return fail(ExitConfigError, "%w", err)
	}

	path := index.Resolve(cfg.Index.Path)
	ix, stats, err := builder.BuildTo(ctx, path)
	if err != nil {
		return fail(ExitError, "building index: %w", err)
	}

	result := BuildResult{
		Status:          "complete",
		Path:            path,
		Fetched:         stats.Fetched,
		Indexed:         stats.Processed,
		Skipped:         stats.Skipped,
		Batches:         stats.Batches,
		BuildVersion:    ix.BuildVersion,
		HeadsTrained:    model.Trained(),
		DurationSeconds: stats.Duration.Seconds(),
	}
	if info, err := os.Stat(path); err == nil {
		result.IndexSizeBytes = info.Size()
	}

	if buildPublish {
		rows := make([][]float32, ix.Len())
		for i := range rows {
			rows[i] = ix.Row(i)
		}
		n, err := repo.PublishEmbeddings(ctx, ix.BuildVersion, ix.ListingIDs, rows)
		if err != nil {
			return fail(ExitError, "publishing embeddings: %w", err)
		}
		result.Published = n
	}

	if humanOutput {
		fmt.Printf("Build complete:\n")
		fmt.Printf("  Listings indexed: %d\n", result.Indexed)
		fmt.Printf("  Listings skipped: %d\n", result.Skipped)
		fmt.Printf("  Batches: %d\n", result.Batches)
		fmt.Printf("  Time elapsed: %s\n", formatDuration(stats.Duration))
		fmt.Printf("  Index size: %s\n", formatBytes(result.IndexSizeBytes))
		fmt.Printf("  Build version: %s\n", result.BuildVersion)
		fmt.Printf("  Path: %s\n", result.Path)
		if buildPublish {
			fmt.Printf("  Published to pgvector: %d\n", result.Published)
		}
		return nil
	}
	return outputJSON(result)
}
