package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pgxn-client/internal/service/download"
)

var (
	// downloadTarget is the directory or file where the archive is saved.
	downloadTarget string

	// downloadCmd fetches a distribution archive without building it.
	downloadCmd = &cobra.Command{
		Use:   "download <spec>",
		Short: "Download a distribution from the mirror.",
		Long: `Resolves a distribution on the mirror, downloads its release archive
and verifies the published checksum. Nothing is built or installed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return download.Run(ctx, &download.Options{
				ConfigPath: configPath,
				Spec:       args[0],
				Target:     downloadTarget,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	downloadCmd.Flags().
		StringVarP(&downloadTarget, "target", "t", ".", "directory or file where the archive is saved")

	rootCmd.AddCommand(downloadCmd)
}
