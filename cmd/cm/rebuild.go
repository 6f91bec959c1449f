package main

import (
	"github.com/spf13/cobra"

	"github.com/citationmanager/cm/internal/index"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the search index from the references directory",
	Long: `Rebuild the SQLite search index from the author and citation files.

The index is derived data under <refsDir>/.cache; use this after editing
records by hand or pulling changes from git.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status string `json:"status"`
	Path   string `json:"path"`
	index.RebuildStats
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	store := openStore(cfg)

	db, err := index.OpenDB(cfg.IndexPath())
	if err != nil {
		exitWithError(ExitError, "opening index: %v", err)
	}
	defer db.Close()

	stats, err := db.RebuildFromStore(store)
	if err != nil {
		exitWithError(ExitDataError, "rebuilding index: %v", err)
	}
	logger.Info("index rebuilt")

	if humanOutput {
		outputHuman("Indexed %d citations and %d authors\n", stats.Citations, stats.Authors)
		return nil
	}
	return outputJSON(RebuildResult{Status: "rebuilt", Path: cfg.IndexPath(), RebuildStats: stats})
}
