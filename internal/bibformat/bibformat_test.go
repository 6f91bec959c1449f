package bibformat

import (
	"fmt"
	"strings"
	"testing"

	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/scanner"
)

func authored(year, title string, authors ...string) scanner.Entry {
	return scanner.Entry{
		Type: "article",
		Fields: reference.Fields{
			"year":  reference.String(year),
			"title": reference.String(title),
		},
		People: map[reference.Role][]string{reference.RoleAuthor: authors},
	}
}

func sampleEntries() map[string]scanner.Entry {
	first := authored("2020", "Alpha Paper", "Smith, John")
	first.Fields["journaltitle"] = reference.String("Nature")
	first.Fields["volume"] = reference.String("5")
	first.Fields["number"] = reference.String("2")
	first.Fields["pages"] = reference.String("10-20")

	return map[string]scanner.Entry{
		"smith2020a": first,
		"smith2020b": authored("2020", "Beta Paper", "Smith, John"),
		"doe2021":    authored("2021", "Joint", "Doe, Jane", "Roe, Rick"),
		"big":        authored("1999", "Many Hands", "Ant, X", "Bee, Y", "Cat, Z", "Dog, W"),
		"ed": {
			Type:   "book",
			Fields: reference.Fields{"year": reference.String("2010"), "title": reference.String("Edited")},
			People: map[reference.Role][]string{reference.RoleEditor: {"Ed, Itor"}},
		},
		"noname": {Type: "misc", Fields: reference.Fields{"title": reference.String("Anonymous")}},
	}
}

func TestAlpha_Format(t *testing.T) {
	entries := sampleEntries()
	keys := []string{"big", "doe2021", "ed", "noname", "smith2020a", "smith2020b"}

	out, err := Alpha{}.Format(keys, entries)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	got := string(out)

	if !strings.HasPrefix(got, "\\begin{thebibliography}{ABC+99}\n") {
		t.Errorf("unexpected preamble:\n%s", got)
	}
	if !strings.HasSuffix(got, "\\end{thebibliography}\n") {
		t.Errorf("missing end of environment:\n%s", got)
	}

	order := []string{
		"\\bibitem[non]{noname}\n",
		"\\bibitem[ABC+99]{big}\n",
		"\\bibitem[DR21]{doe2021}\n",
		"\\bibitem[Ed10]{ed}\n",
		"\\bibitem[Smi20a]{smith2020a}\n",
		"\\bibitem[Smi20b]{smith2020b}\n",
	}
	last := -1
	for _, item := range order {
		idx := strings.Index(got, item)
		if idx < 0 {
			t.Errorf("missing %q in:\n%s", item, got)
			continue
		}
		if idx < last {
			t.Errorf("%q out of author-year-title order", item)
		}
		last = idx
	}

	for _, want := range []string{
		"\\bibitem[Smi20a]{smith2020a}\nSmith, John.\n\\newblock Alpha Paper.\n\\newblock \\emph{Nature}, 5(2), 10--20, 2020.\n",
		"Doe, Jane and Roe, Rick.\n",
		"Ant, X, Bee, Y, Cat, Z, and Dog, W.\n",
		"Ed, Itor, editor.\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestAlpha_MissingEntry(t *testing.T) {
	if _, err := (Alpha{}).Format([]string{"ghost"}, map[string]scanner.Entry{}); err == nil {
		t.Error("Format() should fail when a key has no entry")
	}
}

func TestLabelSuffix(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "a"},
		{1, "b"},
		{25, "z"},
		{26, "aa"},
		{27, "ab"},
		{51, "az"},
		{52, "ba"},
		{701, "zz"},
		{702, "aaa"},
	}
	for _, tt := range tests {
		if got := labelSuffix(tt.n); got != tt.want {
			t.Errorf("labelSuffix(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestAlpha_ManyCollisions(t *testing.T) {
	entries := map[string]scanner.Entry{}
	var keys []string
	for i := 0; i < 28; i++ {
		key := fmt.Sprintf("k%02d", i)
		keys = append(keys, key)
		entries[key] = authored("2020", fmt.Sprintf("T%02d", i), "Smith, John")
	}

	out, err := Alpha{}.Format(keys, entries)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`\bibitem[Smi20a]{k00}`, `\bibitem[Smi20z]{k25}`, `\bibitem[Smi20aa]{k26}`, `\bibitem[Smi20ab]{k27}`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output missing %s", want)
		}
	}
	for _, bad := range []string{"[Smi20{]", "[Smi20|]"} {
		if strings.Contains(string(out), bad) {
			t.Errorf("output has non-letter label %s", bad)
		}
	}
}

func TestAlpha_Empty(t *testing.T) {
	out, err := Alpha{}.Format(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "\\begin{thebibliography}{}\n\n\\end{thebibliography}\n" {
		t.Errorf("Format() = %q", out)
	}
}

func TestAlpha_DateFallbackAndVon(t *testing.T) {
	e := authored("", "Dated", "van der Berg, Jan")
	e.Fields["date"] = reference.String("2018-05-01")
	out, err := Alpha{}.Format([]string{"berg"}, map[string]scanner.Entry{"berg": e})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "\\bibitem[Ber18]{berg}") {
		t.Errorf("label should skip the von part and use the date year:\n%s", out)
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"R&D 100%", `R\&D 100\%`},
		{"a_b #1 $5", `a\_b \#1 \$5`},
		{`back\slash`, `back\textbackslash{}slash`},
		{"x~y^z", `x\textasciitilde{}y\textasciicircum{}z`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeLatex(tt.input); got != tt.want {
				t.Errorf("escapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToBibTeX(t *testing.T) {
	e := scanner.Entry{
		Type: "article",
		Fields: reference.Fields{
			"title":    reference.String("A & B"),
			"year":     reference.String("2020"),
			"url":      reference.String("http://x.org/a_b"),
			"keywords": reference.List("k1", "k2"),
			"note":     reference.String(""),
		},
		People: map[reference.Role][]string{
			reference.RoleAuthor: {"Smith, John", "Doe, Jane"},
		},
	}

	got := ToBibTeX("smith2020", e)
	want := "@article{smith2020,\n" +
		"  author = {Smith, John and Doe, Jane},\n" +
		"  keywords = {k1, k2},\n" +
		"  title = {A \\& B},\n" +
		"  url = {http://x.org/a_b},\n" +
		"  year = {2020},\n" +
		"}\n"
	if got != want {
		t.Errorf("ToBibTeX() =\n%s\nwant\n%s", got, want)
	}
}

func TestToBibTeX_DefaultType(t *testing.T) {
	got := ToBibTeX("k", scanner.Entry{})
	if got != "@misc{k,\n}\n" {
		t.Errorf("ToBibTeX() = %q", got)
	}
}

func TestBibTeX_Format(t *testing.T) {
	entries := sampleEntries()
	out, err := BibTeX{}.Format([]string{"smith2020b", "doe2021"}, entries)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	got := string(out)
	if strings.Index(got, "@article{smith2020b,") > strings.Index(got, "@article{doe2021,") {
		t.Errorf("entries should follow key order:\n%s", got)
	}
	if strings.Contains(got, "smith2020a") {
		t.Errorf("unrequested entry written:\n%s", got)
	}

	if _, err := (BibTeX{}).Format([]string{"ghost"}, entries); err == nil {
		t.Error("Format() should fail when a key has no entry")
	}
}
