package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/citationmanager/cm/internal/bibformat"
	"github.com/citationmanager/cm/internal/refstore"
	"github.com/citationmanager/cm/internal/scanner"
)

var exportKeys string

func init() {
	exportCmd.Flags().StringVar(&exportKeys, "keys", "", "Comma-separated citation ids to export (default all)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored citations as BibTeX",
	Long: `Export citations from the references directory to BibTeX. Output is
always BibTeX text, regardless of --human. Unknown keys are skipped with a
warning.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	store := openStore(cfg)

	keys := splitKeys(exportKeys)
	if len(keys) == 0 {
		var err error
		keys, err = store.List(refstore.Citations)
		if err != nil {
			exitWithError(ExitError, "listing citations: %v", err)
		}
	}

	var found []string
	entries := make(map[string]scanner.Entry, len(keys))
	for _, key := range keys {
		rec, err := store.Load(refstore.Citations, key)
		if err != nil {
			if errors.Is(err, refstore.ErrMalformedRecord) {
				exitWithError(ExitDataError, "%v", err)
			}
			logger.Sugar().Warnf("skipping %s: %v", key, err)
			continue
		}
		fields := rec.Fields.Rename(cfg.BiblatexFieldMapping)
		entries[rec.ID] = scanner.NewEntry(fields, cfg.EntryTypeMapping)
		found = append(found, rec.ID)
	}

	outputHuman("%s", bibformat.ToBibTeXList(found, entries))
	return nil
}
