// Package main provides the cm CLI entry point.
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/citationmanager/cm/internal/config"
	"github.com/citationmanager/cm/internal/logging"
	"github.com/citationmanager/cm/internal/refstore"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// logLevel overrides the configured log level when set.
var logLevel string

// logger is built once configuration is loaded; until then it discards.
var logger = zap.NewNop()

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cm",
	Short: "Citation manager for LaTeX documents",
	Long: `cm captures RIS records into a flat-file store of authors and
citations, and reconciles the citations a LaTeX build references against
that store to write the document's bibliography.

All commands output JSON by default; use --human for readable text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Version = Version
}

// mustLoadConfig loads and validates the global configuration and builds
// the logger. It exits with ExitConfigError on failure.
func mustLoadConfig() *config.Config {
	cfg, err := config.ValidateGlobalConfig()
	if err != nil {
		if errors.Is(err, config.ErrRefsDirNotConfigured) && humanOutput {
			exitWithError(ExitConfigError, "%v\n\n%s", err, config.HelpfulConfigMessage())
		}
		exitWithError(ExitConfigError, "%v", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	l, err := logging.New(logging.Options{Level: level, File: cfg.LogFile})
	if err != nil {
		exitWithError(ExitConfigError, "configuring logging: %v", err)
	}
	logger = l
	return cfg
}

// openStore returns the record store rooted at the configured references
// directory. The directory is created on first save.
func openStore(cfg *config.Config) *refstore.Store {
	return refstore.New(cfg.RefsDir)
}
