// Package index maintains an ephemeral SQLite query index over the record
// store. The flat files remain the source of truth; the index is rebuilt
// from them on demand and can be deleted at any time.
package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/refstore"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// Citation is one indexed citation.
type Citation struct {
	ID        string           `json:"citeid"`
	EntryType string           `json:"entrytype"`
	Title     string           `json:"title"`
	Year      string           `json:"year"`
	People    []string         `json:"people"`
	Fields    reference.Fields `json:"fields,omitempty"`
}

const selectCitationFields = `id, entrytype, title, year, people_json, fields_json`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS citations (
			id TEXT PRIMARY KEY,
			entrytype TEXT NOT NULL,
			title TEXT NOT NULL,
			year TEXT NOT NULL,
			people_json TEXT NOT NULL,
			fields_json TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS authors (
			cleanname TEXT PRIMARY KEY,
			surname TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_authors_surname ON authors(surname);

		CREATE VIRTUAL TABLE IF NOT EXISTS citations_fts USING fts5(
			id,
			title,
			people_text,
			year
		);
	`
	_, err := db.Exec(schema)
	return err
}

// RebuildStats reports what a rebuild indexed.
type RebuildStats struct {
	Citations int `json:"citations"`
	Authors   int `json:"authors"`
}

// RebuildFromStore clears the database and rebuilds it from the record
// store. A malformed record aborts the rebuild, leaving the previous index.
func (d *DB) RebuildFromStore(store *refstore.Store) (RebuildStats, error) {
	var stats RebuildStats

	tx, err := d.db.Begin()
	if err != nil {
		return stats, fmt.Errorf("starting rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"citations", "citations_fts", "authors"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return stats, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	citeStmt, err := tx.Prepare(`
		INSERT INTO citations (` + selectCitationFields + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return stats, fmt.Errorf("preparing citations insert: %w", err)
	}
	defer citeStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO citations_fts (id, title, people_text, year)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return stats, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	ids, err := store.List(refstore.Citations)
	if err != nil {
		return stats, err
	}
	for _, id := range ids {
		rec, err := store.Load(refstore.Citations, id)
		if err != nil {
			return stats, fmt.Errorf("loading citation %s: %w", id, err)
		}

		people := peopleOf(rec.Fields)
		peopleJSON, err := json.Marshal(people)
		if err != nil {
			return stats, fmt.Errorf("marshaling people for %s: %w", rec.ID, err)
		}
		fieldsJSON, err := json.Marshal(rec.Fields)
		if err != nil {
			return stats, fmt.Errorf("marshaling fields for %s: %w", rec.ID, err)
		}

		title := rec.Fields.Get("title")
		year := rec.Fields.Get("year")
		_, err = citeStmt.Exec(rec.ID, rec.Fields.Get(reference.EntryTypeField), title, year,
			string(peopleJSON), string(fieldsJSON))
		if err != nil {
			return stats, fmt.Errorf("inserting citation %s: %w", rec.ID, err)
		}
		if _, err := ftsStmt.Exec(rec.ID, title, strings.Join(people, ", "), year); err != nil {
			return stats, fmt.Errorf("inserting fts for %s: %w", rec.ID, err)
		}
		stats.Citations++
	}

	names, err := store.List(refstore.Authors)
	if err != nil {
		return stats, err
	}
	for _, name := range names {
		rec, err := store.Load(refstore.Authors, name)
		if err != nil {
			return stats, fmt.Errorf("loading author %s: %w", name, err)
		}
		surname := rec.Fields.Get("surname")
		if surname == "" {
			surname = reference.Surname(rec.ID)
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO authors (cleanname, surname) VALUES (?, ?)`, rec.ID, surname); err != nil {
			return stats, fmt.Errorf("inserting author %s: %w", rec.ID, err)
		}
		stats.Authors++
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("committing rebuild: %w", err)
	}
	return stats, nil
}

// peopleOf lists the non-empty person names of a citation in role order.
func peopleOf(fields reference.Fields) []string {
	people := []string{}
	for _, role := range reference.PersonRoles {
		for _, name := range fields[string(role)].Strings() {
			if name != "" {
				people = append(people, name)
			}
		}
	}
	return people
}

// GetByID retrieves a citation by its cite id.
func (d *DB) GetByID(id string) (*Citation, error) {
	row := d.db.QueryRow(`SELECT `+selectCitationFields+` FROM citations WHERE id = ?`, id)
	c, err := scanCitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: citation %s", refstore.ErrNotFound, id)
	}
	return c, err
}

// Search performs a full-text search over cite id, title, people and year.
func (d *DB) Search(query string, limit int) ([]Citation, error) {
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return []Citation{}, nil
	}

	rows, err := d.db.Query(`
		SELECT `+selectCitationFields+`
		FROM citations
		WHERE id IN (SELECT id FROM citations_fts WHERE citations_fts MATCH ?)
		ORDER BY id
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	results := []Citation{}
	for rows.Next() {
		c, err := scanCitation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *c)
	}
	return results, rows.Err()
}

// SearchExactFirst runs Search and puts the citation whose id equals query,
// if any, at the front of the results.
func (d *DB) SearchExactFirst(query string, limit int) ([]Citation, error) {
	results, err := d.Search(query, limit)
	if err != nil {
		return nil, err
	}
	exact, err := d.GetByID(strings.TrimSpace(query))
	if errors.Is(err, refstore.ErrNotFound) {
		return results, nil
	}
	if err != nil {
		return nil, err
	}

	out := []Citation{*exact}
	for _, c := range results {
		if c.ID != exact.ID {
			out = append(out, c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AuthorsBySurname returns stored clean names with the given surname.
func (d *DB) AuthorsBySurname(surname string) ([]string, error) {
	rows, err := d.db.Query(`SELECT cleanname FROM authors WHERE surname = ? ORDER BY cleanname`, surname)
	if err != nil {
		return nil, fmt.Errorf("querying authors: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning author: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Count returns the number of indexed citations.
func (d *DB) Count() (int, error) {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM citations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting citations: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCitation(row rowScanner) (*Citation, error) {
	var c Citation
	var peopleJSON, fieldsJSON string
	if err := row.Scan(&c.ID, &c.EntryType, &c.Title, &c.Year, &peopleJSON, &fieldsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning citation: %w", err)
	}
	if err := json.Unmarshal([]byte(peopleJSON), &c.People); err != nil {
		return nil, fmt.Errorf("unmarshaling people for %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &c.Fields); err != nil {
		return nil, fmt.Errorf("unmarshaling fields for %s: %w", c.ID, err)
	}
	return &c, nil
}

// ftsOperators are the bare words FTS5 parses as query operators.
var ftsOperators = map[string]bool{"AND": true, "OR": true, "NOT": true, "NEAR": true}

// prepareFTSQuery quotes queries containing FTS5 syntax characters or
// operator words so they match as a phrase.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}
	if strings.ContainsAny(query, "\"*+-:(){}[]^~,.'") || hasFTSOperator(query) {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}
	return query
}

func hasFTSOperator(query string) bool {
	for _, word := range strings.Fields(query) {
		if ftsOperators[word] {
			return true
		}
	}
	return false
}
