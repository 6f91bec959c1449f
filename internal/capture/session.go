// Package capture turns pasted RIS text into stored authors and citations.
// A Session holds one capture's state explicitly; callers thread it through
// their prompts instead of sharing globals.
package capture

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/citationmanager/cm/internal/biblatex"
	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/refstore"
	"github.com/citationmanager/cm/internal/ris"
)

// PDFType says where a citation's PDF comes from.
type PDFType string

const (
	PDFOwned   PDFType = "owned"
	PDFPublic  PDFType = "public"
	PDFUnknown PDFType = "unknown"
)

// DefaultPDFType is used until the caller picks another.
const DefaultPDFType = PDFPublic

// Front-matter keys written beside the biblatex fields of a citation.
const (
	MetaPeople  = "people"
	MetaPDFURL  = "pdfUrl"
	MetaPDFType = "pdfType"
)

// Errors returned by a Session.
var (
	ErrNoRIS          = errors.New("no RIS text to capture")
	ErrNoCiteID       = errors.New("no citation id chosen")
	ErrUnknownPerson  = errors.New("person is not part of this capture")
	ErrInvalidPDFType = errors.New("pdf type must be owned, public or unknown")
)

// Confirm asks the operator a yes/no question, e.g. before an overwrite.
type Confirm func(msg string) bool

// Store is the part of the record store a capture uses.
type Store interface {
	Exists(kind refstore.Kind, name string) bool
	CandidateMatches(kind refstore.Kind, partial string) ([]string, error)
	Save(kind refstore.Kind, rec refstore.Record) error
}

// Session is the state of one capture.
type Session struct {
	store   Store
	confirm Confirm
	log     *zap.Logger

	RISText   string
	EntryType string
	Parsed    ris.Record
	People    []reference.PersonRole

	// Candidates and Selected are keyed by PersonRole token.
	Candidates map[string][]string
	Selected   map[string]string

	Entry       reference.Fields
	entryEdited bool

	Notes string

	SuggestedCiteID string
	CiteID          string
	citeIDEdited    bool
	CiteCandidates  []string

	PDFURL       string
	pdfURLEdited bool
	PDFType      PDFType
}

// NewSession starts an empty capture. A nil confirm answers every
// question with no.
func NewSession(store Store, confirm Confirm, log *zap.Logger) *Session {
	if confirm == nil {
		confirm = func(string) bool { return false }
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{store: store, confirm: confirm, log: log}
	s.Reset()
	return s
}

// Reset clears all capture state.
func (s *Session) Reset() {
	s.RISText = ""
	s.EntryType = ""
	s.Parsed = nil
	s.People = nil
	s.Candidates = map[string][]string{}
	s.Selected = map[string]string{}
	s.Entry = nil
	s.entryEdited = false
	s.Notes = ""
	s.SuggestedCiteID = ""
	s.CiteID = ""
	s.citeIDEdited = false
	s.CiteCandidates = nil
	s.PDFURL = ""
	s.pdfURLEdited = false
	s.PDFType = DefaultPDFType
}

// SetRIS replaces the RIS text and re-derives everything from it.
func (s *Session) SetRIS(text string) error {
	s.RISText = text
	return s.Update()
}

// Update re-parses and re-normalizes the RIS text and refreshes author and
// citation candidates. Values the caller edited (entry fields, cite id,
// pdf url, person selections) are kept.
func (s *Session) Update() error {
	if s.RISText == "" {
		return ErrNoRIS
	}

	entryType, err := ris.BibLatexType(s.RISText)
	if err != nil {
		return err
	}
	s.EntryType = entryType
	s.Parsed = ris.Parse(s.RISText, entryType)

	norm, citeID, err := biblatex.Normalize(s.Parsed)
	if err != nil {
		return err
	}
	s.People = norm.People

	candidates := make(map[string][]string, len(s.People))
	selected := make(map[string]string, len(s.People))
	for _, p := range s.People {
		token := p.Token()
		matches, err := s.store.CandidateMatches(refstore.Authors, p.Surname())
		if err != nil {
			return fmt.Errorf("finding authors for %s: %w", p.Name, err)
		}
		candidates[token] = matches
		if prev, ok := s.Selected[token]; ok {
			selected[token] = prev
		} else {
			selected[token] = matches[0]
		}
	}
	s.Candidates = candidates
	s.Selected = selected

	if !s.entryEdited {
		s.Entry = norm.Fields
	}

	s.SuggestedCiteID = citeID
	if !s.citeIDEdited {
		s.CiteID = citeID
	}
	if err := s.refreshCiteCandidates(); err != nil {
		return err
	}

	if !s.pdfURLEdited {
		if urls := s.Entry["url"].Strings(); len(urls) > 0 && urls[0] != "" {
			s.PDFURL = urls[0]
		}
	}

	s.log.Debug("capture updated",
		zap.String("entrytype", s.EntryType),
		zap.Int("people", len(s.People)),
		zap.String("citeid", s.CiteID))
	return nil
}

func (s *Session) refreshCiteCandidates() error {
	if s.CiteID == "" {
		s.CiteCandidates = []string{refstore.Citations.Sentinel}
		return nil
	}
	matches, err := s.store.CandidateMatches(refstore.Citations, s.CiteID)
	if err != nil {
		return fmt.Errorf("finding citations like %s: %w", s.CiteID, err)
	}
	s.CiteCandidates = matches
	return nil
}

// SelectPerson records which stored author (or the "new" sentinel) a
// person of this capture refers to.
func (s *Session) SelectPerson(token, match string) error {
	if _, ok := s.Candidates[token]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPerson, token)
	}
	s.Selected[token] = match
	return nil
}

// PeopleToAdd returns the people whose selection is the "new" sentinel,
// in capture order.
func (s *Session) PeopleToAdd() []reference.PersonRole {
	var out []reference.PersonRole
	seen := map[string]bool{}
	for _, p := range s.People {
		token := p.Token()
		if seen[token] {
			continue
		}
		seen[token] = true
		if s.Selected[token] == refstore.Authors.Sentinel {
			out = append(out, p)
		}
	}
	return out
}

// AuthorTemplate returns the author record proposed for a new person.
func (s *Session) AuthorTemplate(p reference.PersonRole) biblatex.AuthorRecord {
	return biblatex.NormalizeAuthor(p.Name)
}

// SaveAuthor stores an author record, asking before overwriting. It
// reports whether the record was written. People of this capture whose
// template matches the saved clean name are pointed at it.
func (s *Session) SaveAuthor(a biblatex.AuthorRecord) (bool, error) {
	if a.CleanName == "" {
		return false, fmt.Errorf("%w: missing %s", refstore.ErrMalformedRecord, biblatex.AuthorFieldCleanName)
	}
	if s.store.Exists(refstore.Authors, a.CleanName) {
		msg := fmt.Sprintf("The author [%s] already exists, do you really want to overwrite this author?", a.CleanName)
		if !s.confirm(msg) {
			s.log.Info("kept existing author", zap.String("cleanname", a.CleanName))
			return false, nil
		}
		s.log.Info("overwriting author", zap.String("cleanname", a.CleanName))
	}

	if err := s.store.Save(refstore.Authors, refstore.Record{Fields: a.Fields()}); err != nil {
		return false, err
	}

	stored := refstore.Sanitize(a.CleanName)
	for _, p := range s.People {
		token := p.Token()
		if s.Selected[token] != refstore.Authors.Sentinel {
			continue
		}
		if biblatex.NormalizeAuthor(p.Name).CleanName == a.CleanName {
			s.Selected[token] = stored
			s.Candidates[token] = insertSorted(s.Candidates[token], stored)
		}
	}
	return true, nil
}

// insertSorted adds name to a candidate list (matches then sentinel)
// keeping the matches sorted.
func insertSorted(candidates []string, name string) []string {
	if len(candidates) == 0 {
		return []string{name}
	}
	matches := append([]string(nil), candidates[:len(candidates)-1]...)
	sentinel := candidates[len(candidates)-1]
	for _, m := range matches {
		if m == name {
			return candidates
		}
	}
	matches = append(matches, name)
	sort.Strings(matches)
	return append(matches, sentinel)
}

// SetEntry replaces the biblatex fields; later updates keep them.
func (s *Session) SetEntry(fields reference.Fields) {
	s.Entry = fields.Clone()
	s.entryEdited = true
}

// SetCiteID overrides the derived citation id and refreshes the list of
// similar stored citations.
func (s *Session) SetCiteID(id string) error {
	s.CiteID = id
	s.citeIDEdited = id != ""
	return s.refreshCiteCandidates()
}

// SetPDFURL overrides the pdf url; an empty url goes back to the default.
func (s *Session) SetPDFURL(url string) {
	s.PDFURL = url
	s.pdfURLEdited = url != ""
}

// SetPDFType sets where the pdf comes from.
func (s *Session) SetPDFType(t string) error {
	switch PDFType(t) {
	case PDFOwned, PDFPublic, PDFUnknown:
		s.PDFType = PDFType(t)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPDFType, t)
	}
}

// Citation assembles the record SaveCitation writes: the biblatex fields
// with people merged back by role, the sorted person tokens, pdf metadata
// and the notes body.
func (s *Session) Citation() refstore.Record {
	fields := s.Entry.Clone()
	byRole := biblatex.Record{People: s.People}.PeopleByRole()
	for _, role := range reference.PersonRoles {
		if names := byRole[role]; len(names) > 0 {
			fields[string(role)] = reference.List(names...)
		}
	}

	tokens := make([]string, 0, len(s.People))
	seen := map[string]bool{}
	for _, p := range s.People {
		if token := p.Token(); !seen[token] {
			seen[token] = true
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)

	meta := reference.Fields{
		MetaPeople:  reference.List(tokens...),
		MetaPDFType: reference.String(string(s.PDFType)),
	}
	if s.PDFURL != "" {
		meta[MetaPDFURL] = reference.String(s.PDFURL)
	}

	return refstore.Record{ID: s.CiteID, Fields: fields, Meta: meta, Body: s.Notes}
}

// SaveCitation stores the citation under CiteID, asking before
// overwriting. It reports whether the record was written.
func (s *Session) SaveCitation() (bool, error) {
	if s.CiteID == "" || s.CiteID == refstore.Citations.Sentinel {
		return false, ErrNoCiteID
	}
	if s.Entry == nil {
		return false, ErrNoRIS
	}

	if s.store.Exists(refstore.Citations, s.CiteID) {
		msg := fmt.Sprintf("The citation [%s] already exists, do you really want to overwrite this citation?", s.CiteID)
		if !s.confirm(msg) {
			s.log.Info("kept existing citation", zap.String("citeid", s.CiteID))
			return false, nil
		}
		s.log.Info("overwriting citation", zap.String("citeid", s.CiteID))
	}

	if err := s.store.Save(refstore.Citations, s.Citation()); err != nil {
		return false, err
	}
	return true, s.refreshCiteCandidates()
}
