// Package ris parses RIS tagged bibliographic text into BibLaTeX-named
// field maps.
package ris

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/citationmanager/cm/internal/reference"
)

// Record is a parsed RIS entry keyed by (renamed) field name.
type Record = reference.Fields

const (
	tagType      = "TY"
	tagEndRecord = "ER"
	tagAuthor    = "AU"
	delimiter    = "-"
)

// Page fields merged into "pages" after parsing.
const (
	fieldFirstPage = "firstpage"
	fieldLastPage  = "lastpage"
	fieldPages     = "pages"
)

// ErrUnknownType is returned when the TY line is absent or names a type
// without a BibLaTeX equivalent.
var ErrUnknownType = errors.New("no known BibLaTeX type for RIS TY field")

// ParseError reports a line from which no tag could be extracted.
type ParseError struct {
	Line int
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: no RIS tag in %q", e.Line, e.Text)
}

// risTypeRegex matches the type line: TY, two spaces, a dash, a space.
var risTypeRegex = regexp.MustCompile(`(?m)^TY\s\s-\s(\S+)`)

// risTagRegex matches the leading non-whitespace run of a line.
var risTagRegex = regexp.MustCompile(`^\S+`)

// BibLatexType returns the BibLaTeX entry type for the TY line of risText.
func BibLatexType(risText string) (string, error) {
	m := risTypeRegex.FindStringSubmatch(risText)
	if m == nil {
		return "", ErrUnknownType
	}

	tag := strings.ToUpper(m[1])
	entry, ok := Types()[tag]
	if !ok || entry.BibLatex == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, tag)
	}
	return entry.BibLatex, nil
}

// Parse converts RIS text into a Record. The TY tag is replaced by
// entryType under reference.EntryTypeField, ER is dropped, tags are renamed
// through the RIS field table and repeated tags become lists in source
// order. Start and end pages are folded into a single "pages" field.
//
// Lines with no extractable tag are skipped.
func Parse(risText, entryType string) Record {
	rec := Record{}

	for _, line := range strings.Split(risText, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		tag, value, ok := splitLine(line)
		if !ok {
			continue
		}

		switch tag {
		case tagEndRecord:
			continue
		case tagType:
			rec[reference.EntryTypeField] = reference.String(entryType)
			continue
		}

		name := fieldName(tag)
		if existing, seen := rec[name]; seen {
			rec[name] = existing.Append(value)
		} else {
			rec[name] = reference.String(value)
		}
	}

	return mergePages(rec)
}

// ParseStrict is Parse but reports the first line without a tag.
func ParseStrict(risText, entryType string) (Record, error) {
	for i, line := range strings.Split(risText, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if _, _, ok := splitLine(line); !ok && strings.TrimSpace(line) != "" {
			return nil, &ParseError{Line: i + 1, Text: line}
		}
	}
	return Parse(risText, entryType), nil
}

// splitLine extracts the tag and value of one RIS line.
func splitLine(line string) (tag, value string, ok bool) {
	tag = risTagRegex.FindString(line)
	if tag == "" {
		return "", "", false
	}

	value = strings.TrimSpace(strings.TrimPrefix(line, tag))
	value = strings.TrimSpace(strings.TrimPrefix(value, delimiter))
	return tag, value, true
}

// mergePages replaces firstpage/lastpage with a single pages field. Repeated
// start and end pages are paired by position into a list of ranges; a page
// without a partner is kept on its own.
func mergePages(rec Record) Record {
	first, hasFirst := rec[fieldFirstPage]
	last, hasLast := rec[fieldLastPage]

	switch {
	case hasFirst && hasLast && !first.IsList() && !last.IsList():
		rec[fieldPages] = reference.String(first.Scalar() + "-" + last.Scalar())
	case hasFirst && hasLast:
		rec[fieldPages] = reference.List(pairPages(first.Strings(), last.Strings())...)
	case hasFirst:
		rec[fieldPages] = first
	case hasLast:
		rec[fieldPages] = last
	default:
		return rec
	}

	delete(rec, fieldFirstPage)
	delete(rec, fieldLastPage)
	return rec
}

func pairPages(firsts, lasts []string) []string {
	n := len(firsts)
	if len(lasts) > n {
		n = len(lasts)
	}
	ranges := make([]string, 0, n)
	for i := 0; i < n; i++ {
		switch {
		case i < len(firsts) && i < len(lasts):
			ranges = append(ranges, firsts[i]+"-"+lasts[i])
		case i < len(firsts):
			ranges = append(ranges, firsts[i])
		default:
			ranges = append(ranges, lasts[i])
		}
	}
	return ranges
}

// tagAliases are rewritten in tag position before SortRIS deduplicates.
var tagAliases = []struct{ from, to string }{
	{"A1", "AU"},
	{"T1", "TI"},
	{"N2", "AB"},
	{"L1", "UR"},
	{"L2", "UR"},
}

// SortRIS cleans up pasted RIS text. Author lines keep their order with
// duplicates removed and come first; every other non-blank line is
// deduplicated and sorted lexicographically. ER lines are dropped.
func SortRIS(risText string) string {
	var authors []string
	seenAuthors := make(map[string]bool)
	others := make(map[string]bool)

	for _, line := range strings.Split(risText, "\n") {
		line = strings.TrimRight(line, "\r")
		for _, alias := range tagAliases {
			if strings.HasPrefix(line, alias.from+"  -") {
				line = alias.to + strings.TrimPrefix(line, alias.from)
				break
			}
		}

		switch {
		case strings.HasPrefix(line, tagEndRecord+"  -"):
			continue
		case strings.HasPrefix(line, tagAuthor+"  -"):
			if seenAuthors[line] {
				continue
			}
			seenAuthors[line] = true
			authors = append(authors, line)
		case strings.TrimSpace(line) == "":
			continue
		default:
			others[line] = true
		}
	}

	sorted := make([]string, 0, len(others))
	for line := range others {
		sorted = append(sorted, line)
	}
	sort.Strings(sorted)

	return strings.Join(authors, "\n") + "\n" + strings.Join(sorted, "\n")
}
