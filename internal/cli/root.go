// Package cli implements the timeline-editor commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaki95/timeline-editor/config"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:          "timeline-editor",
	Short:        "Timeline editing and playback engine",
	Long:         "Serves a multi-track timeline editor over HTTP and renders saved projects to video files.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config/config.yaml", "Path to the YAML configuration")
	RootCmd.AddCommand(serveCmd, renderCmd)
}

// Execute runs the root command.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file, falling back to defaults when it
// does not exist.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if os.IsNotExist(err) {
		slog.Warn("Configuration file not found, using defaults", "path", configPath)
		cfg = config.Default()
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
