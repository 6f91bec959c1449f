package scanner

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/refstore"
)

type recordingFormatter struct {
	calls   int
	keys    []string
	entries map[string]Entry
	err     error
}

func (f *recordingFormatter) Format(keys []string, entries map[string]Entry) ([]byte, error) {
	f.calls++
	f.keys = keys
	f.entries = entries
	if f.err != nil {
		return nil, f.err
	}
	return []byte("\\begin{thebibliography}{}\n" + strings.Join(keys, "\n") + "\n\\end{thebibliography}\n"), nil
}

// countingStore records how often each key is looked up.
type countingStore struct {
	*refstore.Store
	loads map[string]int
}

func (s *countingStore) Load(kind refstore.Kind, name string) (refstore.Record, error) {
	s.loads[name]++
	return s.Store.Load(kind, name)
}

type fixture struct {
	t         *testing.T
	store     *countingStore
	formatter *recordingFormatter
	opts      Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	return &fixture{
		t:         t,
		store:     &countingStore{Store: refstore.New(filepath.Join(root, "refs")), loads: map[string]int{}},
		formatter: &recordingFormatter{},
		opts: Options{
			BuildDir:   filepath.Join(root, "build"),
			CachePath:  filepath.Join(root, "build", "paper.cit"),
			OutputPath: filepath.Join(root, "build", "paper.bbl"),
		},
	}
}

func (f *fixture) writeAux(name, content string) {
	f.t.Helper()
	path := filepath.Join(f.opts.BuildDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		f.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) saveCitation(id string, fields reference.Fields) {
	f.t.Helper()
	if err := f.store.Save(refstore.Citations, refstore.Record{ID: id, Fields: fields}); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) run() *Result {
	f.t.Helper()
	res, err := New(f.store, f.formatter, f.opts, zap.NewNop()).Run()
	if err != nil {
		f.t.Fatalf("Run() error = %v", err)
	}
	return res
}

func article(title string) reference.Fields {
	return reference.Fields{
		reference.EntryTypeField: reference.String("article"),
		"title":                  reference.String(title),
		"author":                 reference.List("Smith, John"),
		"year":                   reference.String("2020"),
	}
}

func TestRun_PartialResolution(t *testing.T) {
	f := newFixture(t)
	f.writeAux("paper.aux", "\\relax\n\\citation{a}\n\\citation{b}\n")
	f.saveCitation("a", article("Alpha"))

	res := f.run()

	if strings.Join(res.Missing, ",") != "b" {
		t.Errorf("Missing = %v, want [b]", res.Missing)
	}
	if strings.Join(res.Resolved, ",") != "a" {
		t.Errorf("Resolved = %v, want [a]", res.Resolved)
	}
	if res.NothingToDo {
		t.Error("first run should not be a no-op")
	}
	if f.formatter.calls != 1 {
		t.Fatalf("formatter calls = %d, want 1", f.formatter.calls)
	}
	if strings.Join(f.formatter.keys, ",") != "a" {
		t.Errorf("formatter keys = %v, want [a]", f.formatter.keys)
	}
	if _, ok := f.formatter.entries["b"]; ok {
		t.Error("missing citation b should not be formatted")
	}
	if got := f.formatter.entries["a"].Fields.Get("title"); got != "Alpha" {
		t.Errorf("entry a title = %q, want Alpha", got)
	}

	data, err := os.ReadFile(f.opts.CachePath)
	if err != nil {
		t.Fatalf("reading cache: %v", err)
	}
	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatalf("cache is not JSON: %v", err)
	}
	if _, ok := file.KnownCitations["a"]; !ok || len(file.KnownCitations) != 1 {
		t.Errorf("knownCitations = %v, want only a", file.KnownCitations)
	}
	if strings.Join(file.MissingCitations, ",") != "b" {
		t.Errorf("missingCitations = %v, want [b]", file.MissingCitations)
	}

	if _, err := os.Stat(f.opts.OutputPath); err != nil {
		t.Errorf("bibliography not written: %v", err)
	}
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.writeAux("paper.aux", "\\citation{a}\n")
	f.saveCitation("a", article("Alpha"))

	f.run()
	first, err := os.ReadFile(f.opts.CachePath)
	if err != nil {
		t.Fatal(err)
	}

	res := f.run()
	if !res.NothingToDo {
		t.Error("second run should report nothing to do")
	}
	if f.formatter.calls != 1 {
		t.Errorf("formatter calls = %d, want 1", f.formatter.calls)
	}

	second, err := os.ReadFile(f.opts.CachePath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("cache changed between runs:\n%s\n---\n%s", first, second)
	}
}

func TestRun_KnownKeysNotRequeried(t *testing.T) {
	f := newFixture(t)
	f.writeAux("paper.aux", "\\citation{a}\n")
	f.saveCitation("a", article("Alpha"))
	f.saveCitation("c", article("Gamma"))

	f.run()
	f.writeAux("paper.aux", "\\citation{a}\n\\citation{c}\n")
	res := f.run()

	if f.store.loads["a"] != 1 {
		t.Errorf("a looked up %d times, want 1", f.store.loads["a"])
	}
	if f.store.loads["c"] != 1 {
		t.Errorf("c looked up %d times, want 1", f.store.loads["c"])
	}
	if strings.Join(res.NewKeys, ",") != "c" {
		t.Errorf("NewKeys = %v, want [c]", res.NewKeys)
	}
	if strings.Join(f.formatter.keys, ",") != "a,c" {
		t.Errorf("formatter keys = %v, want all known keys", f.formatter.keys)
	}
}

func TestRun_MissingRetriedUntilResolved(t *testing.T) {
	f := newFixture(t)
	f.writeAux("paper.aux", "\\citation{b}\n")

	res := f.run()
	if strings.Join(res.Missing, ",") != "b" {
		t.Fatalf("Missing = %v, want [b]", res.Missing)
	}

	// Still missing: retried, no new keys, nothing to format.
	res = f.run()
	if f.store.loads["b"] != 2 {
		t.Errorf("b looked up %d times, want 2", f.store.loads["b"])
	}
	if !res.NothingToDo {
		t.Error("run with only a still-missing key should be a no-op")
	}

	f.saveCitation("b", article("Beta"))
	res = f.run()
	if len(res.Missing) != 0 {
		t.Errorf("Missing = %v, want none", res.Missing)
	}
	if res.NothingToDo {
		t.Error("resolving a missing key should reformat")
	}
	if strings.Join(f.formatter.keys, ",") != "b" {
		t.Errorf("formatter keys = %v, want [b]", f.formatter.keys)
	}

	f.run()
	if f.store.loads["b"] != 3 {
		t.Errorf("resolved key b looked up again: %d loads", f.store.loads["b"])
	}
}

func TestRun_CorruptCacheIsFirstRun(t *testing.T) {
	f := newFixture(t)
	f.writeAux("paper.aux", "\\citation{a}\n")
	f.saveCitation("a", article("Alpha"))
	if err := os.WriteFile(f.opts.CachePath, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	res := f.run()
	if strings.Join(res.Resolved, ",") != "a" {
		t.Errorf("Resolved = %v, want [a]", res.Resolved)
	}
	if f.formatter.calls != 1 {
		t.Errorf("formatter calls = %d, want 1", f.formatter.calls)
	}
}

func TestRun_FormatterFailure(t *testing.T) {
	f := newFixture(t)
	f.writeAux("paper.aux", "\\citation{a}\n")
	f.saveCitation("a", article("Alpha"))
	f.formatter.err = errors.New("boom")

	_, err := New(f.store, f.formatter, f.opts, zap.NewNop()).Run()
	if !errors.Is(err, ErrFormatter) {
		t.Fatalf("Run() error = %v, want ErrFormatter", err)
	}
	if _, err := os.Stat(f.opts.OutputPath); !os.IsNotExist(err) {
		t.Errorf("output should not be written, stat error = %v", err)
	}

	cache := LoadCache(f.opts.CachePath, zap.NewNop())
	if _, ok := cache.Known["a"]; !ok {
		t.Error("cache should be persisted before formatting")
	}
}

func TestRun_Mappings(t *testing.T) {
	f := newFixture(t)
	f.opts.FieldMapping = map[string]string{"journaltitle": "journal"}
	f.opts.EntryTypeMapping = map[string]string{"online": "misc"}
	f.writeAux("paper.aux", "\\citation{web}\n")
	f.saveCitation("web", reference.Fields{
		reference.EntryTypeField: reference.String("online"),
		"journaltitle":           reference.String("The Web"),
		"author":                 reference.List("Doe, Jane", "Roe, Rick"),
		"editor":                 reference.String("Ed, Itor"),
		"translator":             reference.String(""),
	})

	f.run()

	e, ok := f.formatter.entries["web"]
	if !ok {
		t.Fatal("entry web not formatted")
	}
	if e.Type != "misc" {
		t.Errorf("Type = %q, want misc", e.Type)
	}
	if e.Fields.Get("journal") != "The Web" {
		t.Errorf("journal = %q, want The Web", e.Fields.Get("journal"))
	}
	if _, ok := e.Fields["journaltitle"]; ok {
		t.Error("journaltitle should have been renamed")
	}
	if _, ok := e.Fields["author"]; ok {
		t.Error("author should be lifted into People")
	}
	if got := strings.Join(e.People[reference.RoleAuthor], "|"); got != "Doe, Jane|Roe, Rick" {
		t.Errorf("authors = %q", got)
	}
	if got := strings.Join(e.People[reference.RoleEditor], "|"); got != "Ed, Itor" {
		t.Errorf("editors = %q", got)
	}
	if _, ok := e.People[reference.RoleTranslator]; ok {
		t.Error("empty translator placeholder should not become a person")
	}
}

func TestRun_Force(t *testing.T) {
	f := newFixture(t)
	f.writeAux("paper.aux", "\\citation{a}\n")
	f.saveCitation("a", article("Alpha"))

	f.run()
	f.opts.Force = true
	res := f.run()
	if res.NothingToDo {
		t.Error("forced run should format")
	}
	if f.formatter.calls != 2 {
		t.Errorf("formatter calls = %d, want 2", f.formatter.calls)
	}
}

func TestRun_NoBuildDir(t *testing.T) {
	f := newFixture(t)
	f.opts.CachePath = filepath.Join(t.TempDir(), "paper.cit")

	res := f.run()
	if !res.NothingToDo {
		t.Error("run with no aux files should be a no-op")
	}
	if _, err := os.Stat(f.opts.CachePath); err != nil {
		t.Errorf("cache should be written even with nothing to do: %v", err)
	}
}
