package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citationmanager/cm/internal/biblatex"
	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/ris"
)

var parseStrict bool

func init() {
	parseCmd.Flags().BoolVar(&parseStrict, "strict", false, "Fail on lines that are not RIS tags")
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Convert a RIS record to normalized BibLaTeX fields",
	Long: `Parse a RIS record (from a file, stdin with "-", or the clipboard
when no argument is given) and print the
BibLaTeX entry type, normalized fields, people and suggested citation id.
Nothing is written to the references directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

// ParseResult is the response for the parse command.
type ParseResult struct {
	EntryType string                 `json:"entrytype"`
	CiteID    string                 `json:"citeid"`
	People    []reference.PersonRole `json:"people"`
	Fields    reference.Fields       `json:"fields"`
}

func runParse(cmd *cobra.Command, args []string) error {
	text := readRecordInput(args)

	entryType, err := ris.BibLatexType(text)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	var rec ris.Record
	if parseStrict {
		rec, err = ris.ParseStrict(text, entryType)
		if err != nil {
			var pe *ris.ParseError
			if errors.As(err, &pe) {
				exitWithError(ExitDataError, "%v", err)
			}
			exitWithError(ExitError, "%v", err)
		}
	} else {
		rec = ris.Parse(text, entryType)
	}

	norm, citeID, err := biblatex.Normalize(rec)
	if err != nil {
		exitWithError(ExitDataError, "normalizing record: %v", err)
	}

	result := ParseResult{
		EntryType: norm.EntryType,
		CiteID:    citeID,
		People:    norm.People,
		Fields:    norm.Fields,
	}

	if humanOutput {
		outputHuman("@%s{%s}\n", result.EntryType, keyColor(result.CiteID))
		for _, p := range result.People {
			outputHuman("  %-10s %s\n", p.Role, p.Name)
		}
		for _, name := range result.Fields.Keys() {
			outputHuman("  %-10s %s\n", name, truncateString(strings.Join(result.Fields[name].Strings(), "; "), SearchTitleMaxLen))
		}
		return nil
	}
	return outputJSON(result)
}
