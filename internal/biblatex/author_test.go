package biblatex

import (
	"testing"

	"github.com/citationmanager/cm/internal/reference"
)

func TestNormalizeAuthor(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  AuthorRecord
	}{
		{
			name:  "last, first",
			input: "Smith, John",
			want:  AuthorRecord{CleanName: "Smith, John", Surname: "Smith", FirstName: "John"},
		},
		{
			name:  "initials with dots",
			input: "Smith, J.R.",
			want:  AuthorRecord{CleanName: "Smith, J R", Surname: "Smith", FirstName: "J R"},
		},
		{
			name:  "von part",
			input: "van der Berg, Jan",
			want:  AuthorRecord{CleanName: "van der Berg, Jan", Surname: "Berg", FirstName: "Jan", Von: "van der"},
		},
		{
			name:  "jr part",
			input: "King, Jr, Martin Luther",
			want:  AuthorRecord{CleanName: "King Jr, Martin Luther", Surname: "King", FirstName: "Martin Luther", Jr: "Jr"},
		},
		{
			name:  "extra whitespace",
			input: "  Smith   ,   John  ",
			want:  AuthorRecord{CleanName: "Smith, John", Surname: "Smith", FirstName: "John"},
		},
		{
			name:  "surname only",
			input: "Plato",
			want:  AuthorRecord{CleanName: "Plato", Surname: "Plato"},
		},
		{
			name:  "lower-case single word is a surname",
			input: "bell, hooks",
			want:  AuthorRecord{CleanName: "bell, hooks", Surname: "bell", FirstName: "hooks"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAuthor(tt.input)
			if got.CleanName != tt.want.CleanName {
				t.Errorf("CleanName = %q, want %q", got.CleanName, tt.want.CleanName)
			}
			if got.Surname != tt.want.Surname {
				t.Errorf("Surname = %q, want %q", got.Surname, tt.want.Surname)
			}
			if got.FirstName != tt.want.FirstName {
				t.Errorf("FirstName = %q, want %q", got.FirstName, tt.want.FirstName)
			}
			if got.Von != tt.want.Von {
				t.Errorf("Von = %q, want %q", got.Von, tt.want.Von)
			}
			if got.Jr != tt.want.Jr {
				t.Errorf("Jr = %q, want %q", got.Jr, tt.want.Jr)
			}
			if got.URL == nil {
				t.Error("URL should be an empty list, not nil")
			}
		})
	}
}

func TestAuthorRecord_FieldsRoundTrip(t *testing.T) {
	a := NormalizeAuthor("Smith, John")
	a.Email = "john@example.org"
	a.URL = []string{"https://example.org/john"}

	f := a.Fields()
	if !f[AuthorFieldURL].IsList() {
		t.Error("url should be stored as a list")
	}

	got := AuthorFromFields(f)
	if got.CleanName != a.CleanName || got.Email != a.Email || len(got.URL) != 1 || got.URL[0] != a.URL[0] {
		t.Errorf("AuthorFromFields(Fields()) = %+v, want %+v", got, a)
	}
}

func TestAuthorFromFields_ScalarURL(t *testing.T) {
	got := AuthorFromFields(reference.Fields{
		AuthorFieldCleanName: reference.String("Smith, John"),
		AuthorFieldURL:       reference.String("https://example.org"),
	})
	if len(got.URL) != 1 || got.URL[0] != "https://example.org" {
		t.Errorf("URL = %v", got.URL)
	}
}
