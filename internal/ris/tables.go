package ris

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed ris_types.yaml
var risTypesYAML []byte

//go:embed ris_fields.yaml
var risFieldsYAML []byte

// TableEntry is one row of the RIS type or field table.
type TableEntry struct {
	Description string `yaml:"description" json:"description"`
	BibLatex    string `yaml:"biblatex" json:"biblatex"`
}

var (
	tablesOnce sync.Once
	risTypes   map[string]TableEntry
	risFields  map[string]TableEntry
	tablesErr  error
)

func loadTables() error {
	tablesOnce.Do(func() {
		if err := yaml.Unmarshal(risTypesYAML, &risTypes); err != nil {
			tablesErr = fmt.Errorf("parsing RIS type table: %w", err)
			return
		}
		if err := yaml.Unmarshal(risFieldsYAML, &risFields); err != nil {
			tablesErr = fmt.Errorf("parsing RIS field table: %w", err)
		}
	})
	return tablesErr
}

// Types returns the RIS type table keyed by TY tag.
func Types() map[string]TableEntry {
	if err := loadTables(); err != nil {
		panic(err)
	}
	return risTypes
}

// Fields returns the RIS field table keyed by tag.
func Fields() map[string]TableEntry {
	if err := loadTables(); err != nil {
		panic(err)
	}
	return risFields
}

// TypesYAML returns the embedded RIS type table as text, comments
// included, for display.
func TypesYAML() string {
	return string(risTypesYAML)
}

// fieldName returns the BibLaTeX name of a RIS tag, or the tag itself when
// the table has no mapping for it.
func fieldName(tag string) string {
	if entry, ok := Fields()[tag]; ok && entry.BibLatex != "" {
		return entry.BibLatex
	}
	return tag
}
