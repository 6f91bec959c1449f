package scanner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// AuxExt is the extension of the build artifacts listing cited keys.
const AuxExt = ".aux"

var citationRegex = regexp.MustCompile(`\\citation\{([^}]*)\}`)

// parseAux returns the keys cited in one aux file, in order of appearance.
// A marker may carry several comma-separated keys.
func parseAux(r io.Reader) ([]string, error) {
	var keys []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, m := range citationRegex.FindAllStringSubmatch(scanner.Text(), -1) {
			for _, key := range strings.Split(m[1], ",") {
				if key = strings.TrimSpace(key); key != "" {
					keys = append(keys, key)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// ScanAux walks buildDir for aux files and returns the distinct cited keys
// in ascending order. A missing build directory yields no keys.
func ScanAux(buildDir string, log *zap.Logger) ([]string, error) {
	seen := map[string]bool{}

	err := filepath.WalkDir(buildDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == buildDir && errors.Is(err, fs.ErrNotExist) {
				log.Warn("build directory does not exist", zap.String("path", buildDir))
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != AuxExt {
			return nil
		}

		log.Info("scanning", zap.String("path", path))
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		keys, err := parseAux(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for _, k := range keys {
			seen[k] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", buildDir, err)
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
