package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "citationManager"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yaml"
	// EnvFile is an optional dotenv file next to the config file.
	EnvFile = ".env"
)

// Environment variables that override file settings.
const (
	EnvRefsDir  = "CM_REFS_DIR"
	EnvBuildDir = "CM_BUILD_DIR"
	EnvLogFile  = "CM_LOG_FILE"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *Config

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/citationManager/config.yaml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file and applies
// environment overrides. A dotenv file beside the config is read first;
// variables already set in the process environment win.
// Returns a config with defaults (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*Config, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	cfg := &Config{}
	cfg.applyDefaults()
	if path != "" {
		envPath := filepath.Join(filepath.Dir(path), EnvFile)
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", envPath, err)
		}

		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.applyEnv()
	globalConfigCache = cfg
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRefsDir); v != "" {
		c.RefsDir = ExpandPath(v)
	}
	if v := os.Getenv(EnvBuildDir); v != "" {
		c.BuildDir = ExpandPath(v)
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile = ExpandPath(v)
	}
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// ValidateGlobalConfig loads the global config and checks it.
func ValidateGlobalConfig() (*Config, error) {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HelpfulConfigMessage returns a helpful message when refsDir is not configured.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No references directory configured.

Tip: Create %s:
  mkdir -p %s
  echo 'refsDir: ~/references' > %s

or set %s in the environment.`,
		configPath,
		filepath.Dir(configPath),
		configPath,
		EnvRefsDir)
}
