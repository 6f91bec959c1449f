package main

import (
	"github.com/spf13/cobra"

	"github.com/citationmanager/cm/internal/clipboard"
	"github.com/citationmanager/cm/internal/ris"
)

var sortRISCopy bool

func init() {
	sortRISCmd.Flags().BoolVarP(&sortRISCopy, "copy", "c", false, "Copy the sorted text to the clipboard")
	rootCmd.AddCommand(sortRISCmd)
}

var sortRISCmd = &cobra.Command{
	Use:   "sort-ris [file|-]",
	Short: "Clean up pasted RIS text",
	Long: `Print RIS text with author lines first (in order, duplicates removed)
followed by every other line deduplicated and sorted. Reads the clipboard
when no argument is given. Always prints text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSortRIS,
}

func runSortRIS(cmd *cobra.Command, args []string) error {
	sorted := ris.SortRIS(readRecordInput(args))
	if sortRISCopy {
		if err := clipboard.Copy(sorted); err != nil {
			exitWithError(ExitError, "%v", err)
		}
	}
	outputHuman("%s", sorted)
	return nil
}
