package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/citationmanager/cm/internal/capture"
	"github.com/citationmanager/cm/internal/index"
	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/refstore"
	"github.com/citationmanager/cm/internal/ris"
)

var (
	captureCiteID  string
	captureNotes   string
	capturePDFURL  string
	capturePDFType string
	captureSelect  []string
	captureSet     []string
	captureYes     bool
)

func init() {
	captureCmd.Flags().StringVar(&captureCiteID, "cite-id", "", "Citation id to store under (default derived from the record)")
	captureCmd.Flags().StringVar(&captureNotes, "notes", "", "File holding notes for the citation body")
	captureCmd.Flags().StringVar(&capturePDFURL, "pdf-url", "", "PDF location (default the record's first url)")
	captureCmd.Flags().StringVar(&capturePDFType, "pdf-type", string(capture.DefaultPDFType), "PDF type: owned, public or unknown")
	captureCmd.Flags().StringArrayVar(&captureSelect, "select", nil, `Point a person at a stored author, as "Last, First=Stored_Name"`)
	captureCmd.Flags().StringArrayVar(&captureSet, "set", nil, `Set a BibLaTeX field before saving, as "name=value"`)
	captureCmd.Flags().BoolVarP(&captureYes, "yes", "y", false, "Overwrite existing records without asking")
	rootCmd.AddCommand(captureCmd)
}

var captureCmd = &cobra.Command{
	Use:   "capture [file|-]",
	Short: "Store a RIS record as a citation and its new authors",
	Long: `Capture a RIS record (from a file, stdin with "-", or the clipboard when no
argument is given) into the references directory.

People are matched against stored authors by surname (including indexed
authors of the same surname once "cm rebuild" has run); the first match is
used unless --select says otherwise, and people without a match get a new
author record. The citation is then written under its citation id. Existing
records are only overwritten after confirmation (or with --yes).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCapture,
}

// CaptureResult is the response for the capture command.
type CaptureResult struct {
	CiteID        string            `json:"citeid"`
	EntryType     string            `json:"entrytype"`
	Saved         bool              `json:"saved"`
	AuthorsAdded  []string          `json:"authors_added"`
	AuthorsKept   []string          `json:"authors_kept,omitempty"`
	Selected      map[string]string `json:"selected"`
	SimilarCiteID []string          `json:"similar_citeids,omitempty"`
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	store := index.CandidateStore{Store: openStore(cfg)}
	if _, err := os.Stat(cfg.IndexPath()); err == nil {
		db, err := index.OpenDB(cfg.IndexPath())
		if err != nil {
			exitWithError(ExitError, "opening index: %v", err)
		}
		defer db.Close()
		store.DB = db
	}

	confirm := promptConfirm
	if captureYes {
		confirm = func(string) bool { return true }
	} else if len(args) > 0 && args[0] == "-" {
		confirm = nil
	}

	s := capture.NewSession(store, confirm, logger)
	if err := s.SetRIS(readRecordInput(args)); err != nil {
		if errors.Is(err, ris.ErrUnknownType) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "reading record: %v", err)
	}

	if err := s.SetPDFType(capturePDFType); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if capturePDFURL != "" {
		s.SetPDFURL(capturePDFURL)
	}
	if captureCiteID != "" {
		if err := s.SetCiteID(captureCiteID); err != nil {
			exitWithError(ExitError, "%v", err)
		}
	}
	if captureNotes != "" {
		s.Notes = readInput(captureNotes)
	}
	if len(captureSet) > 0 {
		edited, changed, err := applyFieldEdits(s.Entry, captureSet)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if changed {
			s.SetEntry(edited)
		}
	}
	for _, sel := range captureSelect {
		name, match, ok := strings.Cut(sel, "=")
		if !ok {
			exitWithError(ExitError, "invalid --select %q, want \"Name=Stored_Name\"", sel)
		}
		if err := selectByName(s, strings.TrimSpace(name), strings.TrimSpace(match)); err != nil {
			exitWithError(ExitError, "%v", err)
		}
	}

	result := CaptureResult{EntryType: s.EntryType, AuthorsAdded: []string{}}
	for _, p := range s.PeopleToAdd() {
		if s.Selected[p.Token()] != refstore.Authors.Sentinel {
			continue // picked up by an earlier save
		}
		a := s.AuthorTemplate(p)
		saved, err := s.SaveAuthor(a)
		if err != nil {
			exitWithError(ExitDataError, "saving author %s: %v", p.Name, err)
		}
		if saved {
			result.AuthorsAdded = append(result.AuthorsAdded, a.CleanName)
		} else {
			result.AuthorsKept = append(result.AuthorsKept, a.CleanName)
		}
	}

	saved, err := s.SaveCitation()
	if err != nil {
		if errors.Is(err, capture.ErrNoCiteID) {
			exitWithError(ExitError, "%v; pass --cite-id", err)
		}
		exitWithError(ExitError, "saving citation: %v", err)
	}
	logger.Info("capture finished", zap.String("citeid", s.CiteID), zap.Bool("saved", saved))

	result.CiteID = s.CiteID
	result.Saved = saved
	result.Selected = s.Selected
	result.SimilarCiteID = s.CiteCandidates

	if humanOutput {
		for _, name := range result.AuthorsAdded {
			outputHuman("%s author %s\n", okColor("added"), name)
		}
		for _, name := range result.AuthorsKept {
			outputHuman("%s author %s\n", dimColor("kept"), name)
		}
		if saved {
			outputHuman("%s citation %s\n", okColor("saved"), keyColor(result.CiteID))
		} else {
			outputHuman("%s citation %s unchanged\n", dimColor("kept"), keyColor(result.CiteID))
		}
		return nil
	}
	return outputJSON(result)
}

// selectByName points every role a person holds in the capture at match.
func selectByName(s *capture.Session, name, match string) error {
	found := false
	for _, role := range reference.PersonRoles {
		token := reference.MakePersonRole(name, role)
		if _, ok := s.Candidates[token]; ok {
			found = true
			if err := s.SelectPerson(token, match); err != nil {
				return err
			}
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", capture.ErrUnknownPerson, name)
	}
	return nil
}

// promptConfirm asks a yes/no question on the terminal; anything but y or
// yes is no.
func promptConfirm(msg string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", msg)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// applyFieldEdits returns a copy of entry with each "name=value" edit
// applied and whether anything changed. An empty value removes the field.
func applyFieldEdits(entry reference.Fields, edits []string) (reference.Fields, bool, error) {
	out := entry.Clone()
	changed := false
	for _, edit := range edits {
		name, value, ok := strings.Cut(edit, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, false, fmt.Errorf("invalid --set %q, want \"name=value\"", edit)
		}
		old, exists := out[name]
		if value == "" {
			if exists {
				delete(out, name)
				changed = true
			}
			continue
		}
		if v := reference.String(value); !exists || !old.Equal(v) {
			out[name] = v
			changed = true
		}
	}
	return out, changed, nil
}
