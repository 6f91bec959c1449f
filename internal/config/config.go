// Package config handles citation manager configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the citation manager configuration stored in
// ~/.config/citationManager/config.yaml.
type Config struct {
	RefsDir              string            `yaml:"refsDir" json:"refs_dir" validate:"required"`
	BuildDir             string            `yaml:"buildDir,omitempty" json:"build_dir"`
	EntryTypeMapping     map[string]string `yaml:"entryTypeMapping,omitempty" json:"entry_type_mapping"`
	BiblatexFieldMapping map[string]string `yaml:"biblatexFieldMapping,omitempty" json:"biblatex_field_mapping"`
	LogFile              string            `yaml:"logFile,omitempty" json:"log_file,omitempty"`
	LogLevel             string            `yaml:"logLevel,omitempty" json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// Defaults applied to settings left empty.
const (
	DefaultBuildDir = "build/latex"
	DefaultLogLevel = "info"
)

// File extensions of the scanner's per-document outputs.
const (
	BblExt  = ".bbl"
	CiteExt = ".cit"
)

// ErrRefsDirNotConfigured is returned when no references directory is set.
var ErrRefsDirNotConfigured = errors.New("no references directory has been configured")

var validate = validator.New()

// Parse decodes YAML configuration and applies defaults. It does not
// validate; call Validate once overrides have been applied.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Load reads configuration from path. A missing file yields an empty
// configuration with defaults applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

func (c *Config) applyDefaults() {
	if c.BuildDir == "" {
		c.BuildDir = DefaultBuildDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.EntryTypeMapping == nil {
		c.EntryTypeMapping = map[string]string{}
	}
	if c.BiblatexFieldMapping == nil {
		c.BiblatexFieldMapping = map[string]string{}
	}
	c.RefsDir = ExpandPath(c.RefsDir)
	c.BuildDir = ExpandPath(c.BuildDir)
	c.LogFile = ExpandPath(c.LogFile)
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "RefsDir" {
					return ErrRefsDirNotConfigured
				}
			}
			return fmt.Errorf("invalid config: %s", verrs[0].Error())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

var extensionRegex = regexp.MustCompile(`\.[^./\\]+$`)

// projectBase strips the extension from a LaTeX project file name.
func projectBase(project string) string {
	return extensionRegex.ReplaceAllString(project, "")
}

// BblPath returns the bibliography output path for a project.
func (c *Config) BblPath(project string) string {
	return filepath.Join(c.BuildDir, projectBase(project)+BblExt)
}

// CitePath returns the citation cache path for a project.
func (c *Config) CitePath(project string) string {
	return filepath.Join(c.BuildDir, projectBase(project)+CiteExt)
}

// CacheDir is the references-directory subdirectory for rebuildable state.
const CacheDir = ".cache"

// IndexPath returns the path of the derived SQLite search index.
func (c *Config) IndexPath() string {
	return filepath.Join(c.RefsDir, CacheDir, "citations.db")
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
