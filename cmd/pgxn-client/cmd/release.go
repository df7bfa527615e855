package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pgxn-client/internal/service/release"
)

var (
	// releaseDir holds the built release binaries.
	releaseDir string
	// releaseOut is the manifest output path.
	releaseOut string

	// releaseCmd generates the manifest consumed by selfupdate.
	// Maintainer tooling, kept out of the help listing.
	releaseCmd = &cobra.Command{
		Use:    "release-manifest",
		Short:  "Generate the release manifest for published binaries.",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return release.Run(ctx, &release.Options{
				Dir: releaseDir,
				Out: releaseOut,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	releaseCmd.Flags().StringVar(&releaseDir, "dir", ".", "directory holding the built release binaries")
	releaseCmd.Flags().StringVar(&releaseOut, "out", "", "manifest output path (default: inside --dir)")

	rootCmd.AddCommand(releaseCmd)
}
