package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pgxn-client/internal/pg"
	"github.com/oshokin/pgxn-client/internal/service/check"
)

var (
	// checkConn carries the connection parameters for the test database.
	checkConn pg.ConnectionOptions

	// checkCmd runs a distribution's regression tests.
	checkCmd = &cobra.Command{
		Use:   "check <spec>",
		Short: "Run a distribution's test suite.",
		Long: `Obtains and builds a distribution, then runs its installcheck target
against the selected database. When the tests fail, the regression
output files are copied into the current directory for inspection.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return check.Run(ctx, &check.Options{
				ConfigPath: configPath,
				Spec:       args[0],
				Connection: checkConn,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	addConnectionFlags(checkCmd, &checkConn)

	rootCmd.AddCommand(checkCmd)
}
