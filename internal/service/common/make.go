//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/pgxn-client/internal/config"
	"github.com/oshokin/pgxn-client/internal/executor"
	"github.com/oshokin/pgxn-client/internal/logger"
)

// Builder sequences the external build tool over an unpacked source tree.
type Builder struct {
	// Cfg supplies the tool names.
	Cfg *config.Config
	// Runner executes the external programs.
	Runner executor.Runner
	// Sudo wraps privileged targets with the configured sudo program.
	Sudo bool
}

// MaybeRunConfigure runs the configure script when the source ships
// one. Absence is not an error, a non-zero exit is.
func (b *Builder) MaybeRunConfigure(ctx context.Context, dir string) error {
	fn := filepath.Join(dir, "configure")
	logger.Debugf(ctx, "checking '%s'", fn)

	if _, err := os.Stat(fn); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("check configure script: %w", err)
	}

	logger.Info(ctx, "running configure")

	return b.Runner.Run(ctx, executor.Cmd{
		Argv: []string{fn},
		Dir:  dir,
	})
}

// RunMake invokes the make program in dir with the pg_config binding
// PGXS wants. The env entries overlay the process environment. When
// elevated is set and the caller asked for it, the whole invocation is
// wrapped with the sudo program.
func (b *Builder) RunMake(ctx context.Context, dir string, elevated bool, env []string, targets ...string) error {
	argv := []string{b.Cfg.MakeProgram, "PG_CONFIG=" + b.Cfg.PgConfig}
	argv = append(argv, targets...)

	if elevated && b.Sudo {
		argv = executor.Sudo(b.Cfg.SudoProgram, argv)
	}

	return b.Runner.Run(ctx, executor.Cmd{
		Argv: argv,
		Dir:  dir,
		Env:  env,
	})
}
