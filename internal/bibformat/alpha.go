package bibformat

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/scanner"
)

// Alpha renders entries as a thebibliography block with alphabetic labels
// ("Smi20", "SD21a"), sorted by author, year then title, names written
// "Last, First".
type Alpha struct{}

// Format implements scanner.Formatter.
func (Alpha) Format(keys []string, entries map[string]scanner.Entry) ([]byte, error) {
	items := make([]alphaItem, 0, len(keys))
	for _, key := range keys {
		e, ok := entries[key]
		if !ok {
			return nil, fmt.Errorf("no entry for citation %q", key)
		}
		items = append(items, alphaItem{key: key, entry: e, names: names(e)})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].sortKey() < items[j].sortKey()
	})
	assignLabels(items)

	widest := ""
	for _, it := range items {
		if len([]rune(it.label)) > len([]rune(widest)) {
			widest = it.label
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\\begin{thebibliography}{%s}\n", widest)
	for _, it := range items {
		b.WriteString("\n")
		it.write(&b)
	}
	b.WriteString("\n\\end{thebibliography}\n")
	return []byte(b.String()), nil
}

type alphaItem struct {
	key   string
	entry scanner.Entry
	names []string
	label string
}

// names returns the people a label and sort are based on: authors, or
// editors when there are none.
func names(e scanner.Entry) []string {
	if len(e.People[reference.RoleAuthor]) > 0 {
		return e.People[reference.RoleAuthor]
	}
	return e.People[reference.RoleEditor]
}

func (it alphaItem) sortKey() string {
	var parts []string
	for _, n := range it.names {
		last, first := splitName(n)
		parts = append(parts, strings.ToLower(labelSurname(last)+" "+first))
	}
	return strings.Join(parts, "  ") + "\x00" + year(it.entry.Fields) + "\x00" +
		strings.ToLower(stripBraces(it.entry.Fields.Get("title"))) + "\x00" + it.key
}

// year prefers the year field, falling back to the leading part of date.
func year(f reference.Fields) string {
	if y := strings.TrimSpace(f.Get("year")); y != "" {
		return y
	}
	date := strings.TrimSpace(f.Get("date"))
	if len(date) >= 4 {
		return date[:4]
	}
	return date
}

// baseLabel builds the label before collision suffixes.
func (it alphaItem) baseLabel() string {
	var prefix string
	switch n := len(it.names); {
	case n == 0:
		prefix = firstRunes(stripBraces(it.key), 3)
	case n == 1:
		last, _ := splitName(it.names[0])
		prefix = firstRunes(stripBraces(labelSurname(last)), 3)
	default:
		limit := n
		if limit > 3 {
			limit = 3
		}
		for _, name := range it.names[:limit] {
			last, _ := splitName(name)
			prefix += firstRunes(stripBraces(labelSurname(last)), 1)
		}
		if n > 3 {
			prefix += "+"
		}
	}

	y := year(it.entry.Fields)
	if len(y) > 2 {
		y = y[len(y)-2:]
	}
	return prefix + y
}

func firstRunes(s string, n int) string {
	var out []rune
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, r)
		if len(out) == n {
			break
		}
	}
	return string(out)
}

// assignLabels sets each item's label, adding a, b, ..., z, aa, ab, ... to
// labels shared by more than one item in sorted order.
func assignLabels(items []alphaItem) {
	count := map[string]int{}
	for i := range items {
		items[i].label = items[i].baseLabel()
		count[items[i].label]++
	}
	next := map[string]int{}
	for i := range items {
		base := items[i].label
		if count[base] < 2 {
			continue
		}
		items[i].label = base + labelSuffix(next[base])
		next[base]++
	}
}

// labelSuffix returns the n-th collision suffix (0 is "a", 26 is "aa").
func labelSuffix(n int) string {
	var out []byte
	for n++; n > 0; n = (n - 1) / 26 {
		out = append([]byte{byte('a' + (n-1)%26)}, out...)
	}
	return string(out)
}

func (it alphaItem) write(b *strings.Builder) {
	f := it.entry.Fields
	fmt.Fprintf(b, "\\bibitem[%s]{%s}\n", it.label, it.key)

	var blocks []string
	if len(it.entry.People[reference.RoleAuthor]) > 0 {
		blocks = append(blocks, joinNames(it.entry.People[reference.RoleAuthor]))
	} else if eds := it.entry.People[reference.RoleEditor]; len(eds) > 0 {
		suffix := ", editor"
		if len(eds) > 1 {
			suffix = ", editors"
		}
		blocks = append(blocks, joinNames(eds)+suffix)
	}

	if title := text(f, "title"); title != "" {
		blocks = append(blocks, title)
	}
	if venue := venueBlock(it.entry.Type, f); venue != "" {
		blocks = append(blocks, venue)
	}
	if note := text(f, "note"); note != "" {
		blocks = append(blocks, note)
	}
	if doi := f.Get("doi"); doi != "" {
		blocks = append(blocks, "doi:\\href{https://doi.org/"+doi+"}{"+escapeLatex(doi)+"}")
	}
	if url := f.Get("url"); url != "" {
		blocks = append(blocks, "\\url{"+url+"}")
	}

	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\\newblock ")
		}
		b.WriteString(block)
		if !strings.HasSuffix(block, ".") {
			b.WriteString(".")
		}
		b.WriteString("\n")
	}
}

// text returns an escaped field value, lists joined by commas.
func text(f reference.Fields, name string) string {
	v, ok := f[name]
	if !ok {
		return ""
	}
	var parts []string
	for _, s := range v.Strings() {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, escapeLatex(stripBraces(s)))
		}
	}
	return strings.Join(parts, ", ")
}

// joinNames writes "A", "A and B" or "A, B, and C".
func joinNames(people []string) string {
	escaped := make([]string, len(people))
	for i, p := range people {
		escaped[i] = escapeLatex(stripBraces(strings.TrimSpace(p)))
	}
	switch len(escaped) {
	case 1:
		return escaped[0]
	case 2:
		return escaped[0] + " and " + escaped[1]
	default:
		return strings.Join(escaped[:len(escaped)-1], ", ") + ", and " + escaped[len(escaped)-1]
	}
}

// venueBlock renders where a work appeared: journal or container, then
// volume, number and pages, then publisher and year.
func venueBlock(entryType string, f reference.Fields) string {
	var parts []string

	switch {
	case text(f, "journaltitle") != "":
		parts = append(parts, "\\emph{"+text(f, "journaltitle")+"}")
	case text(f, "journal") != "":
		parts = append(parts, "\\emph{"+text(f, "journal")+"}")
	case text(f, "booktitle") != "":
		parts = append(parts, "In \\emph{"+text(f, "booktitle")+"}")
	}

	if vol := text(f, "volume"); vol != "" {
		if num := text(f, "number"); num != "" {
			vol += "(" + num + ")"
		}
		parts = append(parts, vol)
	}
	if pages := text(f, "pages"); pages != "" {
		prefix := "pages "
		if entryType == "article" {
			prefix = ""
		}
		parts = append(parts, prefix+strings.ReplaceAll(strings.ReplaceAll(pages, "--", "-"), "-", "--"))
	}
	for _, name := range []string{"institution", "publisher", "location"} {
		if v := text(f, name); v != "" {
			parts = append(parts, v)
		}
	}
	if y := year(f); y != "" {
		parts = append(parts, escapeLatex(y))
	}
	return strings.Join(parts, ", ")
}
