package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citationmanager/cm/internal/biblatex"
	"github.com/citationmanager/cm/internal/capture"
	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/refstore"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <author|cite> <name>",
	Short: "Show one stored author or citation",
	Args:  cobra.ExactArgs(2),
	RunE:  runShow,
}

// ShowResult is the response for the show command.
type ShowResult struct {
	Kind   string           `json:"kind"`
	ID     string           `json:"id"`
	Fields reference.Fields `json:"fields"`
	Meta   reference.Fields `json:"meta,omitempty"`
	Notes  string           `json:"notes,omitempty"`

	Author *biblatex.AuthorRecord `json:"author,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	kind, err := refstore.KindByName(args[0])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	cfg := mustLoadConfig()
	rec, err := openStore(cfg).Load(kind, args[1])
	if err != nil {
		switch {
		case errors.Is(err, refstore.ErrNotFound):
			exitWithError(ExitError, "%s not found: %s", kind.Name, args[1])
		case errors.Is(err, refstore.ErrMalformedRecord):
			exitWithError(ExitDataError, "%v", err)
		default:
			exitWithError(ExitError, "loading %s: %v", kind.Name, err)
		}
	}

	result := ShowResult{Kind: kind.Name, ID: rec.ID, Fields: rec.Fields, Meta: rec.Meta, Notes: rec.Body}
	if kind.Name == refstore.Authors.Name {
		a := biblatex.AuthorFromFields(rec.Fields)
		result.Author = &a
	}

	if humanOutput {
		outputHuman("%s %s\n", kind.Name, keyColor(result.ID))
		if result.Author != nil {
			for _, line := range authorLines(*result.Author) {
				outputHuman("  %s\n", line)
			}
			return nil
		}
		printFields(result.Fields)
		if len(result.Meta) > 0 {
			outputHuman("%s\n", dimColor("--"))
			meta := result.Meta.Clone()
			if people, ok := meta[capture.MetaPeople]; ok {
				delete(meta, capture.MetaPeople)
				for _, token := range people.Strings() {
					p := reference.ParsePersonRole(token)
					outputHuman("  %-14s %s\n", p.Role, p.Name)
				}
			}
			printFields(meta)
		}
		if result.Notes != "" {
			outputHuman("\n%s", result.Notes)
		}
		return nil
	}
	return outputJSON(result)
}

func printFields(f reference.Fields) {
	for _, name := range f.Keys() {
		outputHuman("  %-14s %s\n", name, strings.Join(f[name].Strings(), "; "))
	}
}

// authorLines renders an author record as "First von Surname, Jr" followed
// by whichever contact details are set.
func authorLines(a biblatex.AuthorRecord) []string {
	var name []string
	for _, part := range []string{a.FirstName, a.Von, a.Surname} {
		if part != "" {
			name = append(name, part)
		}
	}
	display := strings.Join(name, " ")
	if display == "" {
		display = a.CleanName
	}
	if a.Jr != "" {
		display += ", " + a.Jr
	}

	lines := []string{display}
	if a.Email != "" {
		lines = append(lines, "email:     "+a.Email)
	}
	if a.Institute != "" {
		lines = append(lines, "institute: "+a.Institute)
	}
	for _, url := range a.URL {
		if url != "" {
			lines = append(lines, "url:       "+url)
		}
	}
	return lines
}
