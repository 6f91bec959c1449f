// Package biblatex normalizes parsed RIS records into BibLaTeX-shaped
// records and derives citation keys.
package biblatex

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/citationmanager/cm/internal/reference"
)

//go:embed biblatex_types.yaml
var biblatexTypesYAML []byte

// TypeSchema describes one BibLaTeX entry type.
type TypeSchema struct {
	RequiredFields []string `yaml:"requiredFields"`
}

var (
	schemaOnce sync.Once
	schemas    map[string]TypeSchema
	schemaErr  error
)

// Schemas returns the entry-type schema table keyed by entry type.
func Schemas() map[string]TypeSchema {
	schemaOnce.Do(func() {
		if err := yaml.Unmarshal(biblatexTypesYAML, &schemas); err != nil {
			schemaErr = fmt.Errorf("parsing BibLaTeX type table: %w", err)
		}
	})
	if schemaErr != nil {
		panic(schemaErr)
	}
	return schemas
}

// Field names consulted while deriving a citation key.
const (
	FieldYear       = "year"
	FieldShortTitle = "shorttitle"
)

// ErrMissingRequiredField is matched by MissingRequiredFieldError.
var ErrMissingRequiredField = errors.New("missing required field")

// MissingRequiredFieldError reports a field that must be present in the
// input to normalization.
type MissingRequiredFieldError struct {
	Field string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingRequiredField, e.Field)
}

// Is reports whether target is ErrMissingRequiredField.
func (e *MissingRequiredFieldError) Is(target error) bool {
	return target == ErrMissingRequiredField
}

// Record is a normalized BibLaTeX record. Fields holds every non-person
// field (including the entry type) and People the extracted persons in
// role order, then source order.
type Record struct {
	EntryType string                 `json:"entrytype"`
	Fields    reference.Fields       `json:"fields"`
	People    []reference.PersonRole `json:"people"`
}

// PeopleByRole groups the record's people by role, preserving order.
func (r Record) PeopleByRole() map[reference.Role][]string {
	out := make(map[reference.Role][]string)
	for _, p := range r.People {
		out[p.Role] = append(out[p.Role], p.Name)
	}
	return out
}

// Normalize extracts people, fills placeholder values for the required
// fields of the entry type and derives the citation key. The input map is
// not modified.
func Normalize(in reference.Fields) (Record, string, error) {
	entryType, ok := in[reference.EntryTypeField]
	if !ok {
		return Record{}, "", &MissingRequiredFieldError{Field: reference.EntryTypeField}
	}

	fields, people := ExtractPeople(in)

	rec := Record{
		EntryType: entryType.Scalar(),
		Fields:    FillRequired(fields, entryType.Scalar()),
		People:    people,
	}

	return rec, CiteID(people, rec.Fields), nil
}

// ExtractPeople returns a copy of in without the person fields, and the
// persons found in them tagged with their role.
func ExtractPeople(in reference.Fields) (reference.Fields, []reference.PersonRole) {
	out := in.Clone()
	var people []reference.PersonRole

	for _, role := range reference.PersonRoles {
		v, ok := out[string(role)]
		if !ok {
			continue
		}
		delete(out, string(role))
		for _, name := range v.Strings() {
			people = append(people, reference.PersonRole{Name: name, Role: role})
		}
	}

	return out, people
}

// FillRequired returns a copy of fields with an empty placeholder for each
// field the entry type requires but fields lacks. Unknown entry types add
// nothing.
func FillRequired(fields reference.Fields, entryType string) reference.Fields {
	out := fields.Clone()
	schema, ok := Schemas()[entryType]
	if !ok {
		return out
	}
	for _, name := range schema.RequiredFields {
		if _, present := out[name]; !present {
			out[name] = reference.String("")
		}
	}
	return out
}

// CiteID derives a citation key: the surnames of every author in order,
// then the year, then the camel-cased short title, with the first
// character lower-cased. Keys are not checked for uniqueness.
func CiteID(people []reference.PersonRole, fields reference.Fields) string {
	var b strings.Builder

	for _, p := range people {
		if p.Role != reference.RoleAuthor {
			continue
		}
		b.WriteString(p.Surname())
	}

	if year, ok := fields[FieldYear]; ok {
		b.WriteString(year.Scalar())
	}

	if short, ok := fields[FieldShortTitle]; ok {
		b.WriteString(LowerFirst(ToCamelCase(strings.TrimSpace(short.Scalar()))))
	}

	return LowerFirst(b.String())
}

// ToCamelCase joins the words of text, capitalizing every word after the
// first. Hyphens and underscores separate words like spaces do.
func ToCamelCase(text string) string {
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(text))
	if len(words) == 0 {
		return ""
	}

	caser := cases.Title(language.Und)
	var b strings.Builder
	b.WriteString(words[0])
	for _, w := range words[1:] {
		b.WriteString(caser.String(w))
	}
	return b.String()
}

// LowerFirst lower-cases the first character of s.
func LowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
