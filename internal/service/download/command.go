package download

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/pgxn-client/internal/config"
	"github.com/oshokin/pgxn-client/internal/logger"
	"github.com/oshokin/pgxn-client/internal/network"
	"github.com/oshokin/pgxn-client/internal/service/common"
	"github.com/oshokin/pgxn-client/internal/spec"
)

// Options contains inputs for the download entry point.
type Options struct {
	// ConfigPath is an optional path to the YAML settings file.
	ConfigPath string
	// Spec is the distribution specification to download.
	Spec string
	// Target is the directory or filename to save the archive to,
	// defaulting to the current directory.
	Target string
}

// errLocalSpec is returned when the specification already points at the
// local filesystem, so there is nothing to download.
var errLocalSpec = errors.New("cannot download a local specification")

// Run resolves a distribution against the mirror, downloads its release
// archive and verifies it against the published digest.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "download")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return err
	}

	sp, err := spec.Parse(opts.Spec)
	if err != nil {
		return err
	}

	if sp.IsLocal() {
		return fmt.Errorf("%w: %s", errLocalSpec, sp)
	}

	mc := common.BuildMirror(cfg)

	dist, err := mc.Resolve(ctx, sp)
	if err != nil {
		return err
	}

	// Refuse unverifiable content before spending the bandwidth.
	if dist.SHA1 == "" {
		return network.ErrMissingChecksum
	}

	rawURL, err := mc.DownloadURL(ctx, dist.Name, dist.Version)
	if err != nil {
		return err
	}

	target := opts.Target
	if target == "" {
		target = "."
	}

	dest, err := network.TargetPath(target, rawURL)
	if err != nil {
		return err
	}

	fn, err := network.NewFetcher(cfg.Timeout).Fetch(ctx, rawURL, dest)
	if err != nil {
		return err
	}

	if err = network.VerifyFileSHA1(ctx, fn, dist.SHA1); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Archive saved", "path", fn)

	return nil
}
