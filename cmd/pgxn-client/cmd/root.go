package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/pgxn-client/internal/logger"
	"github.com/oshokin/pgxn-client/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the default logging level.
	logLevel string

	// rootCmd represents the base command grouping the client subcommands.
	rootCmd = &cobra.Command{
		Use:   "pgxn-client",
		Short: "Interact with the PostgreSQL Extension Network.",
		Long: `pgxn-client talks to a PostgreSQL Extension Network mirror: it downloads
distribution archives, builds and installs them against a local server, runs
their test suites, and loads the extensions they provide into a database.

Distributions are referenced by name with an optional version constraint
(pair, pair=0.1.2, pair>=0.1.0), by archive path, or by source directory.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
	}
)

// Execute runs the pgxn-client CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "path to configuration file (default pgxn-client-settings.yaml)")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "logging level (debug, info, warn, error)")
}
