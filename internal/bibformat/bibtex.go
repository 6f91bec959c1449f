package bibformat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/scanner"
)

// verbatimFields are written without LaTeX escaping.
var verbatimFields = map[string]bool{
	"doi":  true,
	"url":  true,
	"file": true,
}

// ToBibTeX converts an entry to BibTeX format. People come first in role
// order, then the remaining fields by name; empty values are skipped.
func ToBibTeX(key string, e scanner.Entry) string {
	entryType := e.Type
	if entryType == "" {
		entryType = "misc"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", entryType, key)

	for _, role := range reference.PersonRoles {
		if people := e.People[role]; len(people) > 0 {
			fmt.Fprintf(&b, "  %s = {%s},\n", role, formatPeople(people))
		}
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := fieldValue(name, e.Fields[name])
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "  %s = {%s},\n", name, value)
	}

	b.WriteString("}\n")
	return b.String()
}

// ToBibTeXList converts the entries for keys, in order, to BibTeX format.
func ToBibTeXList(keys []string, entries map[string]scanner.Entry) string {
	var out []string
	for _, key := range keys {
		if e, ok := entries[key]; ok {
			out = append(out, ToBibTeX(key, e))
		}
	}
	return strings.Join(out, "\n")
}

// BibTeX is a scanner.Formatter writing a .bib file.
type BibTeX struct{}

// Format implements scanner.Formatter.
func (BibTeX) Format(keys []string, entries map[string]scanner.Entry) ([]byte, error) {
	for _, key := range keys {
		if _, ok := entries[key]; !ok {
			return nil, fmt.Errorf("no entry for citation %q", key)
		}
	}
	return []byte(ToBibTeXList(keys, entries)), nil
}

// formatPeople formats names in BibTeX style: "Last, First and Last, First".
func formatPeople(people []string) string {
	escaped := make([]string, 0, len(people))
	for _, p := range people {
		escaped = append(escaped, escapeLatex(stripBraces(strings.TrimSpace(p))))
	}
	return strings.Join(escaped, " and ")
}

func fieldValue(name string, v reference.Value) string {
	var parts []string
	for _, s := range v.Strings() {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !verbatimFields[name] {
			s = escapeLatex(stripBraces(s))
		}
		parts = append(parts, s)
	}
	sep := ", "
	if verbatimFields[name] {
		sep = " "
	}
	return strings.Join(parts, sep)
}
