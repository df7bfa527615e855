package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pgxn-client/internal/service/install"
)

var (
	// uninstallSudo wraps the uninstall step with the configured sudo program.
	uninstallSudo bool

	// uninstallCmd removes a distribution's files from the server tree.
	uninstallCmd = &cobra.Command{
		Use:   "uninstall <spec>",
		Short: "Remove a distribution's files from the server.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return install.Run(ctx, &install.Options{
				ConfigPath: configPath,
				Spec:       args[0],
				Sudo:       uninstallSudo,
				Uninstall:  true,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	uninstallCmd.Flags().
		BoolVar(&uninstallSudo, "sudo", false, "run the uninstall step via the configured sudo program")

	rootCmd.AddCommand(uninstallCmd)
}
