// Package refstore persists authors and citations as individual
// front-matter files under a two-level directory layout derived from each
// record's sanitized identifier.
package refstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/citationmanager/cm/internal/fsutil"
	"github.com/citationmanager/cm/internal/reference"
)

// Errors returned by the store.
var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrNotFound        = errors.New("record not found")
	ErrEmptyName       = errors.New("name is empty after sanitizing")
)

// Kind describes one record tree in the store.
type Kind struct {
	Name      string // human-readable name
	Dir       string // subdirectory under the store root
	IDField   string // front-matter key holding the identity
	FieldsKey string // front-matter key nesting the fields; "" keeps them inline
	Sentinel  string // synthetic final candidate
}

// The two record kinds.
var (
	Authors = Kind{
		Name:     "author",
		Dir:      "author",
		IDField:  "cleanname",
		Sentinel: "new",
	}
	Citations = Kind{
		Name:      "citation",
		Dir:       "cite",
		IDField:   "citeid",
		FieldsKey: "biblatex",
		Sentinel:  "other",
	}
)

// KindByName resolves "author" or "cite"/"citation".
func KindByName(name string) (Kind, error) {
	switch name {
	case "author", "authors":
		return Authors, nil
	case "cite", "citation", "citations":
		return Citations, nil
	default:
		return Kind{}, fmt.Errorf("unknown record kind %q (want author or cite)", name)
	}
}

// FileExt is the extension of stored record files.
const FileExt = ".md"

// Separator replaces runs of unsafe characters in sanitized names.
const Separator = "_"

var (
	unsafeRunRegex    = regexp.MustCompile("[\"'`{}\\s/\\\\]+")
	separatorRunRegex = regexp.MustCompile(regexp.QuoteMeta(Separator) + "+")
)

// Sanitize collapses quotes, braces, slashes and whitespace into single
// separators and trims separators from both ends. Leading dots are dropped
// so neither the file nor its fan-out directory can be "." or "..".
func Sanitize(name string) string {
	s := unsafeRunRegex.ReplaceAllString(name, Separator)
	s = separatorRunRegex.ReplaceAllString(s, Separator)
	s = strings.TrimLeft(strings.Trim(s, Separator), ".")
	return strings.Trim(s, Separator)
}

// fanOut returns the first two characters of a sanitized name.
func fanOut(sanitized string) string {
	runes := []rune(sanitized)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes)
}

// Record is a stored author or citation.
type Record struct {
	ID     string
	Fields reference.Fields
	Meta   reference.Fields // other front-matter keys, citations only
	Body   string
}

// Store is a flat-file record store rooted at a references directory.
// It assumes a single writer.
type Store struct {
	root string
}

// New returns a store rooted at root. Nothing is created until Save.
func New(root string) *Store {
	return &Store{root: root}
}

// PathFor returns the file path for name in the given kind's tree.
func (s *Store) PathFor(kind Kind, name string) (string, error) {
	clean := Sanitize(name)
	if clean == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyName, name)
	}
	return filepath.Join(s.root, kind.Dir, fanOut(clean), clean+FileExt), nil
}

// Exists reports whether a record named name is stored.
func (s *Store) Exists(kind Kind, name string) bool {
	path, err := s.PathFor(kind, name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CandidateMatches lists stored names (file names without extension) that
// contain partial, sorted, followed by the kind's sentinel. The result is
// never empty.
func (s *Store) CandidateMatches(kind Kind, partial string) ([]string, error) {
	pattern := filepath.Join(s.root, kind.Dir, "*", "*"+escapeGlob(Sanitize(partial))+"*"+FileExt)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("matching %s candidates: %w", kind.Name, err)
	}

	matches := make([]string, 0, len(paths)+1)
	for _, p := range paths {
		matches = append(matches, strings.TrimSuffix(filepath.Base(p), FileExt))
	}
	sort.Strings(matches)
	return append(matches, kind.Sentinel), nil
}

// escapeGlob quotes the filepath.Match metacharacters in s.
func escapeGlob(s string) string {
	return strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`).Replace(s)
}

// Save writes rec, creating parent directories and replacing any existing
// file. Overwrite policy belongs to the caller.
func (s *Store) Save(kind Kind, rec Record) error {
	if rec.ID == "" && kind.FieldsKey == "" {
		rec.ID = rec.Fields.Get(kind.IDField)
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: missing %s", ErrMalformedRecord, kind.IDField)
	}
	if rec.Fields == nil {
		return fmt.Errorf("%w: no fields", ErrMalformedRecord)
	}

	path, err := s.PathFor(kind, rec.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	data, err := encodeRecord(kind, rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	if err := fsutil.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("saving %s %s: %w", kind.Name, rec.ID, err)
	}
	return nil
}

// Load reads the record named name. It returns ErrNotFound when no file
// exists.
func (s *Store) Load(kind Kind, name string) (Record, error) {
	path, err := s.PathFor(kind, name)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, fmt.Errorf("%w: %s %s", ErrNotFound, kind.Name, name)
		}
		return Record{}, fmt.Errorf("reading %s: %w", path, err)
	}

	rec, err := decodeRecord(kind, data)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// List returns the stored names of a kind in ascending order.
func (s *Store) List(kind Kind) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.root, kind.Dir, "*", "*"+FileExt))
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", kind.Name, err)
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, strings.TrimSuffix(filepath.Base(p), FileExt))
	}
	sort.Strings(names)
	return names, nil
}
