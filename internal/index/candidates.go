package index

import (
	"sort"

	"github.com/citationmanager/cm/internal/reference"
	"github.com/citationmanager/cm/internal/refstore"
)

// CandidateStore is a record store whose author candidates also include
// indexed authors sharing the partial name's surname, so an author filed
// under a different spelling of the clean name is still offered.
type CandidateStore struct {
	*refstore.Store
	DB *DB
}

// CandidateMatches merges the store's file matches with indexed authors of
// the same surname. The result is sorted with the sentinel last.
func (c CandidateStore) CandidateMatches(kind refstore.Kind, partial string) ([]string, error) {
	matches, err := c.Store.CandidateMatches(kind, partial)
	if err != nil || kind.Name != refstore.Authors.Name || c.DB == nil {
		return matches, err
	}

	indexed, err := c.DB.AuthorsBySurname(reference.Surname(partial))
	if err != nil {
		return nil, err
	}
	if len(indexed) == 0 {
		return matches, nil
	}

	seen := map[string]bool{}
	merged := make([]string, 0, len(matches)+len(indexed))
	for _, m := range matches[:len(matches)-1] {
		seen[m] = true
		merged = append(merged, m)
	}
	for _, name := range indexed {
		stored := refstore.Sanitize(name)
		if stored == "" || seen[stored] || !c.Store.Exists(refstore.Authors, name) {
			continue
		}
		seen[stored] = true
		merged = append(merged, stored)
	}
	sort.Strings(merged)
	return append(merged, kind.Sentinel), nil
}
