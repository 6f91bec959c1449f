// Package bibformat renders resolved citations. Alpha writes a LaTeX
// thebibliography (.bbl) block with alphabetic labels; BibTeX writes
// entries for export.
package bibformat

import (
	"strings"
	"unicode"
)

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\textbackslash{}`,
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}

// stripBraces removes the grouping braces BibLaTeX values often carry
// ("{NASA}") so they do not get escaped into literal braces.
func stripBraces(s string) string {
	return strings.NewReplacer("{", "", "}", "").Replace(s)
}

// splitName splits "Last, First" into its parts. A name without a comma
// is taken to be a surname.
func splitName(name string) (last, first string) {
	last, first, _ = strings.Cut(name, ",")
	return strings.TrimSpace(last), strings.TrimSpace(first)
}

// labelSurname drops a lower-case von prefix ("van der Berg" -> "Berg")
// for label purposes.
func labelSurname(last string) string {
	words := strings.Fields(last)
	for len(words) > 1 {
		r := []rune(words[0])
		if len(r) == 0 || !unicode.IsLower(r[0]) {
			break
		}
		words = words[1:]
	}
	return strings.Join(words, " ")
}
