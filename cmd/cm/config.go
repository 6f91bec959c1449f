package main

import (
	"github.com/spf13/cobra"

	"github.com/citationmanager/cm/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration loaded from the global config file, after
environment overrides and defaults are applied.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

// ConfigResult is the response for the config command.
type ConfigResult struct {
	Path   string         `json:"path"`
	Config *config.Config `json:"config"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	path := config.GlobalConfigPath()

	if humanOutput {
		outputHuman("Config file:  %s\n", path)
		outputHuman("refsDir:      %s\n", cfg.RefsDir)
		outputHuman("buildDir:     %s\n", cfg.BuildDir)
		outputHuman("logLevel:     %s\n", cfg.LogLevel)
		if cfg.LogFile != "" {
			outputHuman("logFile:      %s\n", cfg.LogFile)
		}
		for from, to := range cfg.EntryTypeMapping {
			outputHuman("entry type:   %s -> %s\n", from, to)
		}
		for from, to := range cfg.BiblatexFieldMapping {
			outputHuman("field:        %s -> %s\n", from, to)
		}
		return nil
	}
	return outputJSON(ConfigResult{Path: path, Config: cfg})
}
