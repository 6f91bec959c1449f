package scanner

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/citationmanager/cm/internal/fsutil"
	"github.com/citationmanager/cm/internal/reference"
)

// Cache is the state carried between scanner runs: citations resolved from
// the store (with their field-mapped fields) and citations that could not
// be found. A key is never in both.
type Cache struct {
	Known   map[string]reference.Fields
	Missing map[string]bool
}

// cacheFile is the on-disk shape of a Cache.
type cacheFile struct {
	KnownCitations   map[string]reference.Fields `json:"knownCitations"`
	MissingCitations []string                    `json:"missingCitations"`
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		Known:   map[string]reference.Fields{},
		Missing: map[string]bool{},
	}
}

// LoadCache reads the cache at path. An absent or unreadable file yields an
// empty cache; the reason is logged, never returned.
func LoadCache(path string, log *zap.Logger) *Cache {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info("initializing citation cache for the first time", zap.String("path", path))
		} else {
			log.Warn("could not read citation cache, starting empty", zap.String("path", path), zap.Error(err))
		}
		return NewCache()
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Warn("citation cache is corrupt, starting empty", zap.String("path", path), zap.Error(err))
		return NewCache()
	}

	c := NewCache()
	for key, fields := range file.KnownCitations {
		if fields == nil {
			fields = reference.Fields{}
		}
		c.Known[key] = fields
	}
	for _, key := range file.MissingCitations {
		if _, known := c.Known[key]; !known {
			c.Missing[key] = true
		}
	}
	return c
}

// Resolve records key as found with the given fields. It reports whether
// the key was previously missing.
func (c *Cache) Resolve(key string, fields reference.Fields) bool {
	wasMissing := c.Missing[key]
	delete(c.Missing, key)
	c.Known[key] = fields
	return wasMissing
}

// MarkMissing records key as not found, evicting any known entry.
func (c *Cache) MarkMissing(key string) {
	delete(c.Known, key)
	c.Missing[key] = true
}

// KnownKeys returns the resolved keys in ascending order.
func (c *Cache) KnownKeys() []string {
	keys := make([]string, 0, len(c.Known))
	for k := range c.Known {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MissingKeys returns the unresolved keys in ascending order.
func (c *Cache) MissingKeys() []string {
	keys := make([]string, 0, len(c.Missing))
	for k := range c.Missing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save replaces the cache file at path.
func (c *Cache) Save(path string) error {
	file := cacheFile{
		KnownCitations:   c.Known,
		MissingCitations: c.MissingKeys(),
	}
	if file.KnownCitations == nil {
		file.KnownCitations = map[string]reference.Fields{}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling citation cache: %w", err)
	}
	data = append(data, '\n')

	if err := fsutil.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
