package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pgxn-client/internal/service/install"
)

var (
	// installSudo wraps the install step with the configured sudo program.
	installSudo bool

	// installCmd builds a distribution and installs it into the server tree.
	installCmd = &cobra.Command{
		Use:   "install <spec>",
		Short: "Download, build, and install a distribution.",
		Long: `Obtains a distribution (from the mirror, an archive, or a source
directory), runs its configure script if present, builds it with make
against the local server, and installs the result into the directories
reported by pg_config.

The install step usually writes into directories owned by another user:
pass --sudo to run it through the configured sudo program.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return install.Run(ctx, &install.Options{
				ConfigPath: configPath,
				Spec:       args[0],
				Sudo:       installSudo,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	installCmd.Flags().
		BoolVar(&installSudo, "sudo", false, "run the install step via the configured sudo program")

	rootCmd.AddCommand(installCmd)
}
