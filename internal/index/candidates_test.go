package index

import (
	"os"
	"strings"
	"testing"

	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/refstore"
)

func TestCandidateStore_AuthorsBySurname(t *testing.T) {
	db, store := setupTestDB(t)

	variant := refstore.Record{Fields: reference.Fields{
		"cleanname": reference.String("Smyth, John"),
		"surname":   reference.String("Smith"),
	}}
	if err := store.Save(refstore.Authors, variant); err != nil {
		t.Fatal(err)
	}
	if _, err := db.RebuildFromStore(store); err != nil {
		t.Fatal(err)
	}

	c := CandidateStore{Store: store, DB: db}
	got, err := c.CandidateMatches(refstore.Authors, "Smith")
	if err != nil {
		t.Fatalf("CandidateMatches() error = %v", err)
	}
	if want := "Smith,_Anna|Smith,_John|Smyth,_John|new"; strings.Join(got, "|") != want {
		t.Errorf("CandidateMatches(Smith) = %v, want %s", got, want)
	}

	// An indexed author whose file is gone is not offered.
	path, err := store.PathFor(refstore.Authors, "Smyth, John")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	got, err = c.CandidateMatches(refstore.Authors, "Smith")
	if err != nil {
		t.Fatal(err)
	}
	if want := "Smith,_Anna|Smith,_John|new"; strings.Join(got, "|") != want {
		t.Errorf("CandidateMatches(Smith) after delete = %v, want %s", got, want)
	}
}

func TestCandidateStore_CitationsAndNoIndex(t *testing.T) {
	db, store := setupTestDB(t)

	got, err := CandidateStore{Store: store, DB: db}.CandidateMatches(refstore.Citations, "smith")
	if err != nil {
		t.Fatal(err)
	}
	if want := "smith2020machineLearning|other"; strings.Join(got, "|") != want {
		t.Errorf("citation candidates = %v, want %s", got, want)
	}

	got, err = CandidateStore{Store: store}.CandidateMatches(refstore.Authors, "Doe")
	if err != nil {
		t.Fatal(err)
	}
	if want := "Doe,_Jane|new"; strings.Join(got, "|") != want {
		t.Errorf("author candidates without index = %v, want %s", got, want)
	}
}
