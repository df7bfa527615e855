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
	// unloadConn carries the connection parameters for the target database.
	unloadConn pg.ConnectionOptions
	// unloadYes answers every confirmation prompt positively.
	unloadYes bool

	// unloadCmd deactivates a distribution's extensions in a database.
	unloadCmd = &cobra.Command{
		Use:   "unload <spec>",
		Short: "Unload a distribution's extensions from a database.",
		Long: `Deactivates every extension a distribution provides, walking the
metadata in reverse declaration order. Extensions managed by the server
are dropped with DROP EXTENSION; for the rest the command looks for an
uninstall script and asks before executing it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return load.Run(ctx, &load.Options{
				ConfigPath: configPath,
				Spec:       args[0],
				Connection: unloadConn,
				Unload:     true,
				Yes:        unloadYes,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	addConnectionFlags(unloadCmd, &unloadConn)
	unloadCmd.Flags().BoolVarP(&unloadYes, "yes", "y", false, "assume affirmative answer to all questions")

	rootCmd.AddCommand(unloadCmd)
}
