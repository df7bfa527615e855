package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pgxn-client/internal/pg"
	"github.com/oshokin/pgxn-client/internal/service/load"
)

var (
	// loadConn carries the connection parameters for the target database.
	loadConn pg.ConnectionOptions
	// loadYes answers every confirmation prompt positively.
	loadYes bool

	// loadCmd activates a distribution's extensions in a database.
	loadCmd = &cobra.Command{
		Use:   "load <spec>",
		Short: "Load a distribution's extensions into a database.",
		Long: `Activates every extension a distribution provides, in the order the
metadata declares them. On servers with extension support the command
issues CREATE EXTENSION when a control file is installed; otherwise it
locates and executes the extension's SQL script through psql.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return load.Run(ctx, &load.Options{
				ConfigPath: configPath,
				Spec:       args[0],
				Connection: loadConn,
				Yes:        loadYes,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	addConnectionFlags(loadCmd, &loadConn)
	loadCmd.Flags().BoolVarP(&loadYes, "yes", "y", false, "assume affirmative answer to all questions")

	rootCmd.AddCommand(loadCmd)
}
