package main

import (
	"github.com/spf13/cobra"

	"github.com/citationmanager/cm/internal/ris"
)

func init() {
	rootCmd.AddCommand(risTypesCmd)
}

var risTypesCmd = &cobra.Command{
	Use:   "ris-types",
	Short: "Show the RIS TY types and their BibLaTeX entry types",
	Long: `Show the table used to map a RIS record's TY line to a BibLaTeX entry
type. Types with an empty biblatex value cannot be captured.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if humanOutput {
			outputHuman("%s", ris.TypesYAML())
			return nil
		}
		return outputJSON(ris.Types())
	},
}
