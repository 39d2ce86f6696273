// Command indexer builds and inspects the listing embedding index.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput switches from JSON to readable output.
var humanOutput bool

const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitConfigError = 2
)

func main() {
	os.Exit(run())
}

// run executes the command tree. Commands return errors rather than exiting
// so that their deferred cleanup runs.
func run() int {
	if err := rootCmd.Execute(); err != nil {
		return reportError(os.Stdout, os.Stderr, err)
	}
	return ExitSuccess
}

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Build and inspect the listing embedding index",
	Long: `indexer runs the offline side of the listing matcher.

  build    fetch every listing, encode it with the listing tower and write the artifact
  inspect  summarize an existing artifact
  seed     load sample listings into a database for local runs
  weights  export the tower head weights so a build version can be pinned

Configuration comes from the same environment variables as the server.
All commands output JSON unless --human is given.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}
