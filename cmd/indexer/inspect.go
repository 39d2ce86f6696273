package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/config"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/index"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/repository"
)

var (
	inspectPath    string
	inspectListing string
)

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectPath, "path", "p", "", "Artifact path or directory (default EMBEDDING_INDEX_PATH)")
	inspectCmd.Flags().StringVar(&inspectListing, "listing", "", "Show the indexed record for one listing id")
}

// InspectResult is the response for the inspect command.
type InspectResult struct {
	Status         string                 `json:"status"`
	Path           string                 `json:"path"`
	Listings       int                    `json:"listings"`
	Active         int                    `json:"active"`
	Dimensions     int                    `json:"dimensions"`
	BuildVersion   string                 `json:"build_version"`
	BuildTimestamp string                 `json:"build_timestamp"`
	IndexSizeBytes int64                  `json:"index_size_bytes"`
	VersionPinned  bool                   `json:"version_pinned"`
	VersionMatches bool                   `json:"version_matches"`
	DatabaseCount  *int                   `json:"database_count,omitempty"`
	Listing        *model.ListingMetadata `json:"listing,omitempty"`
	DatabaseRow    *model.Listing         `json:"database_row,omitempty"`
	Recommendation string                 `json:"recommendation,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize an embedding index artifact",
	Long: `Load an artifact, validate its shape and report what it contains. When a
database is configured the listing count is compared to detect a stale index.`,
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fail(ExitConfigError, "loading configuration: %w", err)
	}
	location := inspectPath
	if location == "" {
		location = cfg.Index.Path
	}
	if location == "" {
		return fail(ExitConfigError, "no artifact given: pass --path or set EMBEDDING_INDEX_PATH")
	}

	path := index.Resolve(location)
	ix, err := index.Load(path, "")
	if err != nil {
		return fail(ExitError, "%w", err)
	}

	result := InspectResult{
		Status:         "ok",
		Path:           path,
		Listings:       ix.Len(),
		Dimensions:     ix.Dimensions,
		BuildVersion:   ix.BuildVersion,
		BuildTimestamp: ix.BuildTimestamp,
		VersionPinned:  cfg.Model.Version != "",
		VersionMatches: cfg.Model.Version == "" || cfg.Model.Version == ix.BuildVersion,
	}
	for _, m := range ix.Metadata {
		if m.Active {
			result.Active++
		}
	}
	if info, err := os.Stat(path); err == nil {
		result.IndexSizeBytes = info.Size()
	}
	if !result.VersionMatches {
		result.Status = "mismatch"
		result.Recommendation = "MODEL_VERSION differs from the artifact; rebuild with 'indexer build'"
	}

	if inspectListing != "" {
		meta, ok := ix.Lookup(inspectListing)
		if !ok {
			return fail(ExitError, "listing %q is not in the index", inspectListing)
		}
		result.Listing = &meta
	}

	if cfg.PostgreSQL.DSN != "" || cfg.PostgreSQL.Host != "" {
		repo, err := repository.Open(cfg.PostgreSQL.Driver, cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections, cfg.PostgreSQL.MaxIdleConnections)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: database unavailable: %v\n", err)
		} else {
			defer repo.Close()
			if n, err := repo.CountListings(ctx); err == nil {
				result.DatabaseCount = &n
				if n != ix.Len() && result.Recommendation == "" {
					result.Status = "stale"
					result.Recommendation = fmt.Sprintf("database has %d listings, index has %d; rebuild with 'indexer build'", n, ix.Len())
				}
			}
			if inspectListing != "" {
				if row, err := repo.GetListingByID(ctx, inspectListing); err == nil {
					result.DatabaseRow = row
				}
			}
		}
	}

	if !humanOutput {
		return outputJSON(result)
	}

	fmt.Printf("Embedding Index Status: %s\n\n", result.Status)
	fmt.Printf("  Path: %s\n", result.Path)
	fmt.Printf("  Listings: %d (%d active)\n", result.Listings, result.Active)
	fmt.Printf("  Dimensions: %d\n", result.Dimensions)
	fmt.Printf("  Build version: %s\n", result.BuildVersion)
	fmt.Printf("  Built at: %s\n", result.BuildTimestamp)
	fmt.Printf("  Size: %s\n", formatBytes(result.IndexSizeBytes))
	if result.DatabaseCount != nil {
		fmt.Printf("  Listings in database: %d\n", *result.DatabaseCount)
	}
	if result.Listing != nil {
		title := ""
		if result.Listing.Title != nil {
			title = *result.Listing.Title
		}
		fmt.Printf("\nListing %s: %s\n", result.Listing.ID, title)
		fmt.Printf("  Days available: %v\n", result.Listing.DaysAvailable)
		if result.DatabaseRow == nil {
			fmt.Printf("  Not found in database\n")
		}
	}
	if result.Recommendation != "" {
		fmt.Printf("\n%s\n", result.Recommendation)
	}
	return nil
}
