package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citationmanager/cm/internal/bibformat"
	"github.com/citationmanager/cm/internal/scanner"
)

var scanForce bool

func init() {
	scanCmd.Flags().BoolVarP(&scanForce, "force", "f", false, "Write the bibliography even when no citation changed")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan <document>",
	Short: "Resolve a document's citations and write its bibliography",
	Long: `Scan the aux files under the build directory for \citation keys,
resolve them against the references directory and write <document>.bbl.

Known and missing keys are cached in <document>.cit, so only new or
previously missing keys are looked up. Missing citations are reported but
do not fail the scan.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	store := openStore(cfg)

	s := scanner.New(store, bibformat.Alpha{}, scanner.Options{
		BuildDir:         cfg.BuildDir,
		CachePath:        cfg.CitePath(args[0]),
		OutputPath:       cfg.BblPath(args[0]),
		FieldMapping:     cfg.BiblatexFieldMapping,
		EntryTypeMapping: cfg.EntryTypeMapping,
		Force:            scanForce,
	}, logger)

	result, err := s.Run()
	if err != nil {
		if errors.Is(err, scanner.ErrFormatter) {
			exitWithError(ExitFormatterError, "%v", err)
		}
		exitWithError(ExitError, "scan failed: %v", err)
	}

	if humanOutput {
		outputHuman("Referenced %d citations in %s\n", len(result.Referenced), cfg.BuildDir)
		for _, key := range result.Resolved {
			outputHuman("  %s %s\n", okColor("found"), keyColor(key))
		}
		if len(result.Missing) > 0 {
			outputHuman("%s %s\n", missingColor("missing:"), strings.Join(result.Missing, ", "))
		}
		if result.NothingToDo {
			outputHuman("No new citations, nothing more to do\n")
		} else {
			outputHuman("Wrote %d entries to %s\n", result.Entries, result.Output)
		}
		return nil
	}
	return outputJSON(result)
}
