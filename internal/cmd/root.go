// Package cmd provides the CLI commands for the Scrabble client.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yasskadd/scrabble/internal/app"
	"github.com/yasskadd/scrabble/internal/appdir"
	"github.com/yasskadd/scrabble/internal/config"
	"github.com/yasskadd/scrabble/internal/logging"
)

var (
	// Global flags
	configPath    string // --config: explicit settings file
	debug         bool
	logLevel      string // --log-level flag (debug, info, warn, error)
	logFile       string
	logComponents string

	// Loaded configuration
	cfg *config.Config
	// configResult contains metadata about where config was loaded from
	configResult *config.LoadResult
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scrabble",
	Short: "Scrabble - command-line client for the Scrabble game server",
	Long: `Scrabble is a command-line client for the Scrabble game server.

It uses the same connection bridge and HTTP gateway as the desktop
application, which makes it handy to test a server or a session cookie
without starting the UI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help and completion commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		if err := appdir.EnsureDir(); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		// 1. --config flag (explicit path) takes highest priority
		// 2. settings.yaml (created from embedded defaults if needed)
		var err error
		if configPath != "" {
			configResult, err = config.LoadFile(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
			}
		} else {
			configResult, err = config.LoadSettings()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
		}
		cfg = configResult.Config

		if err := logging.Initialize(effectiveLogging(cfg)); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		logging.App().Debug("Configuration loaded",
			"source", configResult.Source.String(),
			"path", configResult.SourcePath,
		)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		// Clean up logging resources
		return logging.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file path (overrides settings.yaml in the data directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (shorthand for --log-level=debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: from settings)")
	rootCmd.PersistentFlags().StringVarP(&logFile, "logfile", "l", "", "Log file path (logs are also written to console)")
	rootCmd.PersistentFlags().StringVar(&logComponents, "log-components", "", "Comma-separated list of components to log (e.g., 'bridge,socket'). Empty means all components.")
}

// effectiveLogging merges the settings file with the command-line flags.
// Priority: --log-level flag > --debug flag > settings.
func effectiveLogging(c *config.Config) logging.Config {
	lc := c.Log.Logging("")
	if logLevel != "" {
		lc.Level = logLevel
	} else if debug {
		lc.Level = "debug"
	}
	if logFile != "" {
		lc.FileLog = nil
		lc.LogFile = logFile
	}
	if components := splitComponents(logComponents); len(components) > 0 {
		lc.Components = components
	}
	return lc
}

func splitComponents(s string) []string {
	var components []string
	for _, c := range strings.Split(s, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			components = append(components, c)
		}
	}
	return components
}

// newRuntime assembles the client runtime from the loaded configuration.
func newRuntime(onFatal func(error)) (*app.App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return app.Build(cfg, app.Options{
		SettingsPath: configResult.SourcePath,
		OnFatal:      onFatal,
	})
}
