package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citationmanager/cm/internal/index"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", DefaultSearchLimit, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed citations by title, people or year",
	Long: `Full-text search over the citation index. A citation whose id is
exactly the query is listed first. Run "cm rebuild" first to create or
refresh the index.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	path := cfg.IndexPath()
	if _, err := os.Stat(path); err != nil {
		exitWithError(ExitError, "no search index at %s; run \"cm rebuild\" first", path)
	}
	db, err := index.OpenDB(path)
	if err != nil {
		exitWithError(ExitError, "opening index: %v", err)
	}
	defer db.Close()

	count, err := db.Count()
	if err != nil {
		exitWithError(ExitError, "reading index: %v", err)
	}
	if count == 0 {
		exitWithError(ExitError, "search index is empty; run \"cm rebuild\" first")
	}

	query := strings.Join(args, " ")
	results, err := db.SearchExactFirst(query, searchLimit)
	if err != nil {
		exitWithError(ExitError, "search failed: %v", err)
	}

	if humanOutput {
		if len(results) == 0 {
			outputHuman("No citations found\n")
			return nil
		}
		for _, c := range results {
			outputHuman("%s  %s  %s\n", keyColor(c.ID), c.Year, truncateString(c.Title, SearchTitleMaxLen))
			if len(c.People) > 0 {
				outputHuman("    %s\n", dimColor(strings.Join(c.People, "; ")))
			}
		}
		return nil
	}
	return outputJSON(results)
}

