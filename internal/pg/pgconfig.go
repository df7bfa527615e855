package pg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/pgxn-client/internal/executor"
	"github.com/oshokin/pgxn-client/internal/logger"
)

// errNoOption is returned when pg_config does not report a requested value.
var errNoOption = errors.New("pg_config reports no such option")

// Installation exposes the layout of a PostgreSQL installation as
// reported by pg_config. The tool is run once and its output cached for
// the lifetime of the value.
type Installation struct {
	// program is the pg_config executable.
	program string
	// runner executes the pg_config call.
	runner executor.Runner
	// values holds the parsed pg_config output once loaded.
	values map[string]string
}

// NewInstallation creates an Installation backed by the given pg_config executable.
func NewInstallation(program string, runner executor.Runner) *Installation {
	return &Installation{
		program: program,
		runner:  runner,
	}
}

// Option returns one pg_config value, such as SHAREDIR or BINDIR.
func (i *Installation) Option(ctx context.Context, name string) (string, error) {
	if i.values == nil {
		if err := i.load(ctx); err != nil {
			return "", err
		}
	}

	value, ok := i.values[strings.ToUpper(name)]
	if !ok {
		return "", fmt.Errorf("%w: %s", errNoOption, name)
	}

	return value, nil
}

// Bindir returns the directory holding the server executables.
func (i *Installation) Bindir(ctx context.Context) (string, error) {
	return i.Option(ctx, "BINDIR")
}

// Sharedir returns the directory holding architecture-independent files,
// where extension control files and SQL scripts are installed.
func (i *Installation) Sharedir(ctx context.Context) (string, error) {
	return i.Option(ctx, "SHAREDIR")
}

// PsqlPath returns the path of the psql executable.
func (i *Installation) PsqlPath(ctx context.Context) (string, error) {
	bindir, err := i.Bindir(ctx)
	if err != nil {
		return "", err
	}

	return filepath.Join(bindir, "psql"), nil
}

// HasExtensionControl reports whether the extension ships a control file,
// meaning the server can manage it through CREATE EXTENSION.
func (i *Installation) HasExtensionControl(ctx context.Context, name string) (bool, error) {
	sharedir, err := i.Sharedir(ctx)
	if err != nil {
		return false, err
	}

	fn := filepath.Join(sharedir, "extension", name+".control")
	logger.Debugf(ctx, "checking if exists %s", fn)

	if _, err = os.Stat(fn); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("check control file: %w", err)
	}

	return true, nil
}

// load runs pg_config and parses its NAME = value lines.
func (i *Installation) load(ctx context.Context) error {
	var out bytes.Buffer

	err := i.runner.Run(ctx, executor.Cmd{
		Argv:   []string{i.program},
		Stdout: &out,
	})
	if err != nil {
		return fmt.Errorf("run pg_config: %w", err)
	}

	values := make(map[string]string)

	for _, line := range strings.Split(out.String(), "\n") {
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		values[key] = strings.TrimSpace(line[idx+1:])
	}

	i.values = values

	return nil
}
