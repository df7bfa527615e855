package install

import (
	"context"

	"github.com/oshokin/pgxn-client/internal/config"
	"github.com/oshokin/pgxn-client/internal/executor"
	"github.com/oshokin/pgxn-client/internal/logger"
	"github.com/oshokin/pgxn-client/internal/network"
	"github.com/oshokin/pgxn-client/internal/service/common"
	"github.com/oshokin/pgxn-client/internal/spec"
)

// Options contains inputs for the install and uninstall entry points.
type Options struct {
	// ConfigPath is an optional path to the YAML settings file.
	ConfigPath string
	// Spec is the distribution specification to operate on.
	Spec string
	// Sudo wraps the privileged make target with the configured sudo program.
	Sudo bool
	// Uninstall selects the uninstall target instead of build and install.
	Uninstall bool
}

// Run drives the build pipeline: acquire the source, run an optional
// configure script, then the make targets in order. Any non-zero tool
// exit aborts the pipeline.
func Run(ctx context.Context, opts *Options) error {
	name := "install"
	if opts.Uninstall {
		name = "uninstall"
	}

	ctx = logger.WithName(ctx, name)

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return err
	}

	sp, err := spec.Parse(opts.Spec)
	if err != nil {
		return err
	}

	acq := common.NewAcquirer(common.BuildMirror(cfg), network.NewFetcher(cfg.Timeout))

	src, err := acq.Acquire(ctx, sp)
	if err != nil {
		return err
	}

	defer src.Close()

	b := &common.Builder{
		Cfg:    cfg,
		Runner: executor.NewExecRunner(),
		Sudo:   opts.Sudo,
	}

	if err = b.MaybeRunConfigure(ctx, src.Dir); err != nil {
		return err
	}

	if opts.Uninstall {
		logger.Info(ctx, "removing extension")

		return b.RunMake(ctx, src.Dir, true, nil, "uninstall")
	}

	logger.Info(ctx, "building extension")

	if err = b.RunMake(ctx, src.Dir, false, nil, "all"); err != nil {
		return err
	}

	logger.Info(ctx, "installing extension")

	return b.RunMake(ctx, src.Dir, true, nil, "install")
}
