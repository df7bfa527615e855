package check

import (
	"context"
	"os"
	"path/filepath"

	"github.com/oshokin/pgxn-client/internal/config"
	"github.com/oshokin/pgxn-client/internal/executor"
	"github.com/oshokin/pgxn-client/internal/logger"
	"github.com/oshokin/pgxn-client/internal/network"
	"github.com/oshokin/pgxn-client/internal/pg"
	"github.com/oshokin/pgxn-client/internal/service/common"
	"github.com/oshokin/pgxn-client/internal/spec"
)

// Options contains inputs for the check entry point.
type Options struct {
	// ConfigPath is an optional path to the YAML settings file.
	ConfigPath string
	// Spec is the distribution specification to test.
	Spec string
	// Connection carries the database the regression suite runs against.
	Connection pg.ConnectionOptions
}

// Run executes a distribution's regression suite through the build
// tool's installcheck target. When the suite fails, its regression
// artifacts are copied into the current directory before the source
// tree is removed.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "check")

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
	}

	if err = b.MaybeRunConfigure(ctx, src.Dir); err != nil {
		return err
	}

	logger.Info(ctx, "checking extension")

	env := opts.Connection.Env()
	logger.Debugf(ctx, "additional env: %v", env)

	targets := []string{"installcheck"}
	if opts.Connection.DBName != "" {
		targets = append(targets, "CONTRIB_TESTDB="+opts.Connection.DBName)
	}

	if err = b.RunMake(ctx, src.Dir, false, env, targets...); err != nil {
		rescueRegressionFiles(ctx, src.Dir)

		return err
	}

	return nil
}

// rescueRegressionFiles copies the regression outputs of a failed suite
// out of the source tree, which is about to disappear with its
// temporary directory.
func rescueRegressionFiles(ctx context.Context, dir string) {
	for _, ext := range []string{"out", "diffs"} {
		fn := filepath.Join(dir, "regression."+ext)
		if _, err := os.Stat(fn); err != nil {
			continue
		}

		logger.Infof(ctx, "copying regression.%s", ext)

		data, err := os.ReadFile(filepath.Clean(fn))
		if err == nil {
			err = os.WriteFile("./regression."+ext, data, config.DefaultFilePermissions)
		}

		if err != nil {
			logger.Warnf(ctx, "unable to copy regression.%s: %v", ext, err)
		}
	}
}
