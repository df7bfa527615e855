package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pgxn-client/internal/service/selfupdate"
)

var (
	// selfupdateCheck only reports whether an update is available.
	selfupdateCheck bool

	// selfupdateCmd replaces the running binary with the latest release.
	selfupdateCmd = &cobra.Command{
		Use:   "selfupdate",
		Short: "Update the client to the latest published release.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return selfupdate.Run(ctx, &selfupdate.Options{
				ConfigPath: configPath,
				Check:      selfupdateCheck,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	selfupdateCmd.Flags().
		BoolVar(&selfupdateCheck, "check", false, "only report whether an update is available")

	rootCmd.AddCommand(selfupdateCmd)
}
