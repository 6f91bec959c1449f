// Package scanner reconciles the citations referenced by a LaTeX build
// against the record store and hands the resolved set to a bibliography
// formatter. Resolution is incremental: a cache file carries known and
// missing keys between runs so each key is looked up once unless it was
// missing.
package scanner

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/citationmanager/cm/internal/fsutil"
	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/refstore"
)

// ErrFormatter wraps failures reported by the bibliography formatter.
var ErrFormatter = errors.New("bibliography formatter failed")

// Entry is one bibliography entry handed to a Formatter.
type Entry struct {
	Type   string                      `json:"type"`
	Fields reference.Fields            `json:"fields"`
	People map[reference.Role][]string `json:"people"`
}

// Formatter renders the entries for keys (in the given order) into a
// bibliography artifact.
type Formatter interface {
	Format(keys []string, entries map[string]Entry) ([]byte, error)
}

// Store is the part of the record store the scanner reads.
type Store interface {
	Load(kind refstore.Kind, name string) (refstore.Record, error)
}

// Options configures a scan.
type Options struct {
	BuildDir         string            // searched recursively for aux files
	CachePath        string            // known/missing cache file
	OutputPath       string            // formatted bibliography
	FieldMapping     map[string]string // applied to stored fields when resolved
	EntryTypeMapping map[string]string // applied when assembling entries
	Force            bool              // format even when nothing changed
}

// Result summarizes a run.
type Result struct {
	Referenced  []string `json:"referenced"`
	NewKeys     []string `json:"new_keys"`
	Resolved    []string `json:"resolved"`
	Missing     []string `json:"missing"`
	Entries     int      `json:"entries"`
	NothingToDo bool     `json:"nothing_to_do"`
	Output      string   `json:"output,omitempty"`
}

// Scanner runs reconciliation passes.
type Scanner struct {
	store     Store
	formatter Formatter
	opts      Options
	log       *zap.Logger
}

// New returns a scanner. A nil logger discards log output.
func New(store Store, formatter Formatter, opts Options, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{store: store, formatter: formatter, opts: opts, log: log}
}

// Run performs one reconciliation pass. The cache is persisted before the
// formatter is invoked, so a formatter failure (wrapped in ErrFormatter)
// leaves this run's cache durable and no output written. Missing citations
// are reported in the result, not returned as errors. Formatting is skipped
// unless a key is newly referenced, a previously missing key resolved, or
// Force is set; the resolved-from-missing case also formats so a record
// added after the first scan reaches the bibliography.
func (s *Scanner) Run() (*Result, error) {
	cache := LoadCache(s.opts.CachePath, s.log)

	referenced, err := ScanAux(s.opts.BuildDir, s.log)
	if err != nil {
		return nil, err
	}

	result := &Result{Referenced: referenced}

	toResolve := map[string]bool{}
	for key := range cache.Missing {
		toResolve[key] = true
	}
	for _, key := range referenced {
		if _, known := cache.Known[key]; known {
			continue
		}
		toResolve[key] = true
		if !cache.Missing[key] {
			result.NewKeys = append(result.NewKeys, key)
		}
	}

	for _, key := range sortedKeys(toResolve) {
		s.log.Debug("looking for citation", zap.String("key", key))

		rec, err := s.store.Load(refstore.Citations, key)
		if err != nil {
			if errors.Is(err, refstore.ErrNotFound) {
				s.log.Warn("citation could not be found", zap.String("key", key))
			} else {
				s.log.Error("citation could not be loaded", zap.String("key", key), zap.Error(err))
			}
			cache.MarkMissing(key)
			continue
		}

		cache.Resolve(key, rec.Fields.Rename(s.opts.FieldMapping))
		result.Resolved = append(result.Resolved, key)
	}
	result.Missing = cache.MissingKeys()

	if err := cache.Save(s.opts.CachePath); err != nil {
		return nil, err
	}

	if len(result.NewKeys) == 0 && !resolvedFromMissing(result) && !s.opts.Force {
		s.log.Info("no new citations, nothing more to do")
		result.NothingToDo = true
		return result, nil
	}

	keys := cache.KnownKeys()
	entries := make(map[string]Entry, len(keys))
	for _, key := range keys {
		entries[key] = NewEntry(cache.Known[key], s.opts.EntryTypeMapping)
	}
	result.Entries = len(entries)

	out, err := s.formatter.Format(keys, entries)
	if err != nil {
		s.log.Error("formatting bibliography", zap.Error(err))
		return result, fmt.Errorf("%w: %v", ErrFormatter, err)
	}

	if err := fsutil.WriteFileAtomic(s.opts.OutputPath, out, 0644); err != nil {
		return result, fmt.Errorf("writing %s: %w", s.opts.OutputPath, err)
	}
	result.Output = s.opts.OutputPath
	s.log.Info("wrote bibliography", zap.String("path", s.opts.OutputPath), zap.Int("entries", len(entries)))
	return result, nil
}

// resolvedFromMissing reports whether any key resolved this run was not
// newly referenced, i.e. it came off the missing list.
func resolvedFromMissing(r *Result) bool {
	fresh := make(map[string]bool, len(r.NewKeys))
	for _, k := range r.NewKeys {
		fresh[k] = true
	}
	for _, k := range r.Resolved {
		if !fresh[k] {
			return true
		}
	}
	return false
}

// NewEntry builds a formatter entry from stored fields, applying the entry
// type mapping and lifting person fields out by role. Empty names are
// dropped.
func NewEntry(fields reference.Fields, typeMapping map[string]string) Entry {
	e := Entry{
		Type:   fields.Get(reference.EntryTypeField),
		Fields: reference.Fields{},
		People: map[reference.Role][]string{},
	}
	if mapped, ok := typeMapping[e.Type]; ok {
		e.Type = mapped
	}

	isPerson := map[string]bool{}
	for _, role := range reference.PersonRoles {
		isPerson[string(role)] = true
		var names []string
		for _, name := range fields[string(role)].Strings() {
			if name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			e.People[role] = names
		}
	}

	for name, v := range fields {
		if name == reference.EntryTypeField || isPerson[name] {
			continue
		}
		e.Fields[name] = v
	}
	return e
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
