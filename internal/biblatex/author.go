package biblatex

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/citationmanager/cm/internal/reference"
)

// AuthorRecord is the template stored for a person in the author tree.
type AuthorRecord struct {
	CleanName string   `json:"cleanname" yaml:"cleanname"`
	Surname   string   `json:"surname" yaml:"surname"`
	FirstName string   `json:"firstname" yaml:"firstname"`
	Von       string   `json:"von" yaml:"von"`
	Jr        string   `json:"jr" yaml:"jr"`
	Email     string   `json:"email" yaml:"email"`
	Institute string   `json:"institute" yaml:"institute"`
	URL       []string `json:"url" yaml:"url"`
}

// Author record field names.
const (
	AuthorFieldCleanName = "cleanname"
	AuthorFieldSurname   = "surname"
	AuthorFieldFirstName = "firstname"
	AuthorFieldVon       = "von"
	AuthorFieldJr        = "jr"
	AuthorFieldEmail     = "email"
	AuthorFieldInstitute = "institute"
	AuthorFieldURL       = "url"
)

var (
	multipleSpaceRegex    = regexp.MustCompile(`\s+`)
	spaceBeforeCommaRegex = regexp.MustCompile(`\s+,`)
)

// NormalizeAuthor splits a BibTeX-style name ("von Last, First" or
// "von Last, Jr, First") into its parts and builds the clean display name
// "von Last Jr, First". Dots in first names become spaces.
//
// Leading lower-case words of the last-name part are taken as the von part.
func NormalizeAuthor(name string) AuthorRecord {
	rec := AuthorRecord{CleanName: name, URL: []string{}}

	parts := strings.Split(name, ",")
	lastPart := strings.TrimSpace(parts[0])
	var jr, first string
	switch len(parts) {
	case 1:
	case 2:
		first = parts[1]
	default:
		jr = strings.TrimSpace(parts[1])
		first = strings.Join(parts[2:], " ")
	}
	first = strings.TrimSpace(multipleSpaceRegex.ReplaceAllString(strings.ReplaceAll(first, ".", " "), " "))

	words := strings.Fields(lastPart)
	var von []string
	for len(words) > 1 && startsLower(words[0]) {
		von = append(von, words[0])
		words = words[1:]
	}
	surname := strings.Join(words, " ")

	clean := strings.Join(von, " ") + " " + surname + " " + jr
	if first != "" {
		clean += ", " + first
	}
	clean = multipleSpaceRegex.ReplaceAllString(clean, " ")
	clean = spaceBeforeCommaRegex.ReplaceAllString(clean, ",")

	rec.CleanName = strings.TrimSpace(clean)
	rec.Surname = surname
	rec.FirstName = first
	rec.Von = strings.Join(von, " ")
	rec.Jr = jr
	return rec
}

func startsLower(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsLower(r)
}

// Fields returns the record as a field map for the record store.
func (a AuthorRecord) Fields() reference.Fields {
	return reference.Fields{
		AuthorFieldCleanName: reference.String(a.CleanName),
		AuthorFieldSurname:   reference.String(a.Surname),
		AuthorFieldFirstName: reference.String(a.FirstName),
		AuthorFieldVon:       reference.String(a.Von),
		AuthorFieldJr:        reference.String(a.Jr),
		AuthorFieldEmail:     reference.String(a.Email),
		AuthorFieldInstitute: reference.String(a.Institute),
		AuthorFieldURL:       reference.List(a.URL...),
	}
}

// AuthorFromFields is the inverse of AuthorRecord.Fields.
func AuthorFromFields(f reference.Fields) AuthorRecord {
	rec := AuthorRecord{
		CleanName: f.Get(AuthorFieldCleanName),
		Surname:   f.Get(AuthorFieldSurname),
		FirstName: f.Get(AuthorFieldFirstName),
		Von:       f.Get(AuthorFieldVon),
		Jr:        f.Get(AuthorFieldJr),
		Email:     f.Get(AuthorFieldEmail),
		Institute: f.Get(AuthorFieldInstitute),
		URL:       []string{},
	}
	if v, ok := f[AuthorFieldURL]; ok {
		if v.IsList() {
			rec.URL = v.Strings()
		} else if v.Scalar() != "" {
			rec.URL = []string{v.Scalar()}
		}
	}
	return rec
}
