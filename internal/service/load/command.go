package load

import (
	"context"
	"errors"

	"github.com/oshokin/pgxn-client/internal/config"
	"github.com/oshokin/pgxn-client/internal/executor"
	"github.com/oshokin/pgxn-client/internal/logger"
	"github.com/oshokin/pgxn-client/internal/meta"
	"github.com/oshokin/pgxn-client/internal/network"
	"github.com/oshokin/pgxn-client/internal/pg"
	"github.com/oshokin/pgxn-client/internal/prompt"
	"github.com/oshokin/pgxn-client/internal/service/common"
	"github.com/oshokin/pgxn-client/internal/spec"
)

// Options contains inputs for the load and unload entry points.
type Options struct {
	// ConfigPath is an optional path to the YAML settings file.
	ConfigPath string
	// Spec is the distribution specification whose extensions to process.
	Spec string
	// Connection carries the database connection parameters.
	Connection pg.ConnectionOptions
	// Unload removes the extensions instead of loading them.
	Unload bool
	// Yes answers every confirmation prompt positively.
	Yes bool
}

// Run activates or deactivates every extension object the distribution
// provides: in declaration order for load, in reverse for unload, since
// later objects may depend on earlier ones.
func Run(ctx context.Context, opts *Options) error {
	name := "load"
	if opts.Unload {
		name = "unload"
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

	dist, err := acq.ResolveMeta(ctx, sp)
	if err != nil {
		return err
	}

	runner := executor.NewExecRunner()
	inst := pg.NewInstallation(cfg.PgConfig, runner)
	psql := pg.NewPsql(inst, runner, opts.Connection)

	var confirmer prompt.Confirmer = prompt.NewTerminal()
	if opts.Yes {
		confirmer = prompt.NewAuto()
	}

	eng := newEngine(inst, psql, confirmer, opts.Unload)

	provides := dist.Provides
	if opts.Unload {
		provides = dist.ReversedProvides()
	}

	declined, err := runProvides(ctx, eng, provides)
	if err != nil {
		return err
	}

	if declined > 0 {
		logger.Warnf(ctx, "skipped %d of %d extensions on user request", declined, len(provides))
	}

	return nil
}

// runProvides drives the engine over the provided objects. A decline
// skips only that object; everything else aborts the run.
func runProvides(ctx context.Context, eng *engine, provides []meta.Extension) (int, error) {
	var declined int

	for _, ext := range provides {
		err := eng.activate(ctx, ext.Name, ext.File)
		if errors.Is(err, prompt.ErrDeclined) {
			logger.Warnf(ctx, "skipping extension '%s': %v", ext.Name, err)
			declined++

			continue
		}

		if err != nil {
			return declined, err
		}
	}

	return declined, nil
}
