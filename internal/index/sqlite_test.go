package index

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/refstore"
)

// setupTestDB creates a store with test records and an index rebuilt from it.
func setupTestDB(t *testing.T) (*DB, *refstore.Store) {
	t.Helper()

	tmpDir := t.TempDir()
	store := refstore.New(filepath.Join(tmpDir, "refs"))

	citations := []refstore.Record{
		{
			ID: "smith2020machineLearning",
			Fields: reference.Fields{
				reference.EntryTypeField: reference.String("article"),
				"title":                  reference.String("Machine Learning in Biology"),
				"year":                   reference.String("2020"),
				"author":                 reference.List("Smith, John", "Doe, Jane"),
			},
		},
		{
			ID: "jones2019proteins",
			Fields: reference.Fields{
				reference.EntryTypeField: reference.String("book"),
				"title":                  reference.String("Deep Learning for Protein Structure"),
				"year":                   reference.String("2019"),
				"author":                 reference.String("Jones, Bob"),
				"editor":                 reference.String(""),
			},
		},
	}
	for _, c := range citations {
		if err := store.Save(refstore.Citations, c); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"Smith, John", "Smith, Anna", "Doe, Jane"} {
		rec := refstore.Record{Fields: reference.Fields{
			"cleanname": reference.String(name),
			"surname":   reference.String(reference.Surname(name)),
		}}
		if err := store.Save(refstore.Authors, rec); err != nil {
			t.Fatal(err)
		}
	}

	db, err := OpenDB(filepath.Join(tmpDir, "refs", ".cache", "citations.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stats, err := db.RebuildFromStore(store)
	if err != nil {
		t.Fatalf("RebuildFromStore() error = %v", err)
	}
	if stats.Citations != 2 || stats.Authors != 3 {
		t.Fatalf("RebuildFromStore() = %+v, want 2 citations and 3 authors", stats)
	}
	return db, store
}

func TestDB_GetByID(t *testing.T) {
	db, _ := setupTestDB(t)

	c, err := db.GetByID("smith2020machineLearning")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if c.Title != "Machine Learning in Biology" || c.Year != "2020" || c.EntryType != "article" {
		t.Errorf("GetByID() = %+v", c)
	}
	if len(c.People) != 2 || c.People[0] != "Smith, John" {
		t.Errorf("People = %v", c.People)
	}
	if c.Fields.Get("title") != c.Title {
		t.Errorf("Fields[title] = %q", c.Fields.Get("title"))
	}

	if _, err := db.GetByID("nope"); !errors.Is(err, refstore.ErrNotFound) {
		t.Errorf("GetByID(nope) error = %v, want ErrNotFound", err)
	}
}

func TestDB_Search(t *testing.T) {
	db, _ := setupTestDB(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"learning", []string{"jones2019proteins", "smith2020machineLearning"}},
		{"protein", []string{"jones2019proteins"}},
		{"biology", []string{"smith2020machineLearning"}},
		{"jones", []string{"jones2019proteins"}},
		{"Doe, Jane", []string{"smith2020machineLearning"}},
		{"2019", []string{"jones2019proteins"}},
		{"smith AND", nil},
		{"NOT", nil},
		{"OR learning", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := db.Search(tt.query, 10)
			if err != nil {
				t.Fatalf("Search(%q) error = %v", tt.query, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Search(%q) = %d results, want %d", tt.query, len(got), len(tt.want))
			}
			for i, c := range got {
				if c.ID != tt.want[i] {
					t.Errorf("Search(%q)[%d] = %s, want %s", tt.query, i, c.ID, tt.want[i])
				}
			}
		})
	}
}

func TestDB_SearchLimit(t *testing.T) {
	db, _ := setupTestDB(t)
	got, err := db.Search("learning", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("Search() with limit 1 = %d results", len(got))
	}
}

func TestDB_SearchExactFirst(t *testing.T) {
	db, _ := setupTestDB(t)

	got, err := db.SearchExactFirst(" smith2020machineLearning ", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "smith2020machineLearning" {
		t.Errorf("SearchExactFirst(id) = %+v, want only the exact citation", got)
	}

	got, err = db.SearchExactFirst("learning", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "jones2019proteins" {
		t.Errorf("SearchExactFirst(learning) = %+v, want plain search order", got)
	}

	n, err := db.Count()
	if err != nil || n != 2 {
		t.Errorf("Count() = %d, %v, want 2", n, err)
	}
}

func TestDB_AuthorsBySurname(t *testing.T) {
	db, _ := setupTestDB(t)
	got, err := db.AuthorsBySurname("Smith")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "Smith, Anna" || got[1] != "Smith, John" {
		t.Errorf("AuthorsBySurname(Smith) = %v", got)
	}
}

func TestDB_RebuildReplaces(t *testing.T) {
	db, store := setupTestDB(t)

	err := store.Save(refstore.Citations, refstore.Record{
		ID:     "new2024",
		Fields: reference.Fields{"title": reference.String("Fresh")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.RebuildFromStore(store); err != nil {
		t.Fatal(err)
	}

	n, err := db.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestPrepareFTSQuery(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"simple", "simple"},
		{"  padded  ", "padded"},
		{"Smith, John", `"Smith, John"`},
		{`say "hi"`, `"say ""hi"""`},
		{"smith AND", `"smith AND"`},
		{"NOT", `"NOT"`},
		{"NEAR me", `"NEAR me"`},
		{"smith and doe", "smith and doe"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := prepareFTSQuery(tt.input); got != tt.want {
			t.Errorf("prepareFTSQuery(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
