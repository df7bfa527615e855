package load

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/pgxn-client/internal/logger"
	"github.com/oshokin/pgxn-client/internal/meta"
	"github.com/oshokin/pgxn-client/internal/pg"
	"github.com/oshokin/pgxn-client/internal/prompt"
)

// errSQLFileNotFound is returned when no candidate path holds an
// extension's script.
var errSQLFileNotFound = errors.New("cannot find sql file for extension")

// engine applies the activation decision logic to one extension object
// at a time: native CREATE/DROP EXTENSION where the server supports it
// and a control file is installed, plain SQL scripts otherwise.
type engine struct {
	// inst locates the server installation directories.
	inst *pg.Installation
	// psql executes statements and scripts against the database.
	psql *pg.Psql
	// confirmer asks the user at ambiguous decision points.
	confirmer prompt.Confirmer
	// unload flips the engine from activation to deactivation.
	unload bool
	// loaded tracks the script paths already executed in this run.
	loaded map[string]struct{}
}

// newEngine creates an engine with a fresh loaded-file set, so a new
// run never inherits another run's idempotence state.
func newEngine(inst *pg.Installation, psql *pg.Psql, confirmer prompt.Confirmer, unload bool) *engine {
	return &engine{
		inst:      inst,
		psql:      psql,
		confirmer: confirmer,
		unload:    unload,
		loaded:    make(map[string]struct{}),
	}
}

// activate runs the decision algorithm for one provided extension
// object. A prompt.ErrDeclined return means the user skipped this
// object; any other error is fatal for the whole run.
func (e *engine) activate(ctx context.Context, name, fileHint string) error {
	if e.unload {
		logger.Debugf(ctx, "unloading extension '%s' with file: %s", name, fileHint)
	} else {
		logger.Debugf(ctx, "loading extension '%s' with file: %s", name, fileHint)
	}

	// A hint pointing away from SQL marks a module with nothing to execute.
	if fileHint != "" && !strings.HasSuffix(fileHint, ".sql") {
		logger.Infof(ctx,
			"the specified file '%s' doesn't seem SQL: assuming '%s' is not a PostgreSQL extension",
			fileHint, name)

		return nil
	}

	pgver, err := e.psql.ServerVersion(ctx)
	if err != nil {
		return err
	}

	if pg.SupportsExtensions(pgver) {
		native, ctlErr := e.inst.HasExtensionControl(ctx, name)
		if ctlErr != nil {
			return ctlErr
		}

		if native {
			return e.nativeStatement(ctx, name)
		}

		// An explicit hint already names the script, so only a guessed
		// fallback needs the user to agree to it.
		if fileHint == "" {
			if err = e.confirmLooseObjects(ctx, name); err != nil {
				return err
			}
		}
	}

	return e.runScript(ctx, name, fileHint)
}

// nativeStatement manages the object through the server's own
// extension machinery.
func (e *engine) nativeStatement(ctx context.Context, name string) error {
	if err := meta.ValidateLabel(name); err != nil {
		return fmt.Errorf("extension name %q: %w", name, err)
	}

	stmt := "CREATE EXTENSION " + pg.QuoteIdentifier(name) + ";"
	if e.unload {
		stmt = "DROP EXTENSION " + pg.QuoteIdentifier(name) + ";"
	}

	logger.Debugf(ctx, "executing: %s", stmt)

	return e.psql.ExecuteSQL(ctx, stmt)
}

// confirmLooseObjects asks to proceed without a control file.
func (e *engine) confirmLooseObjects(ctx context.Context, name string) error {
	question := fmt.Sprintf(
		"The extension '%s' doesn't contain a control file:\nit will be installed as a loose set of objects.\nDo you want to continue?",
		name)
	if e.unload {
		question = fmt.Sprintf(
			"The extension '%s' doesn't contain a control file:\nwill look for an SQL script to unload the objects.\nDo you want to continue?",
			name)
	}

	return e.confirmer.Confirm(ctx, question)
}

// runScript resolves the object's SQL script and executes it through
// psql, guarding repeated loads within the run.
func (e *engine) runScript(ctx context.Context, name, fileHint string) error {
	sqlfile := fileHint
	guessed := false

	if sqlfile == "" {
		sqlfile = name + ".sql"
		guessed = true
	}

	if e.unload {
		// Hints may carry a directory, but the build flattens scripts
		// into the share tree, so the prefix goes onto the base name.
		sqlfile = "uninstall_" + filepath.Base(sqlfile)
	}

	fn, err := e.findSQLFile(ctx, name, sqlfile)
	if err != nil {
		return err
	}

	if e.unload {
		question := fmt.Sprintf(
			"In order to unload the extension '%s' looks like you will have\nto load the file '%s'.\nDo you want to execute it?",
			name, fn)
		if err = e.confirmer.Confirm(ctx, question); err != nil {
			return err
		}

		return e.psql.ExecuteFile(ctx, fn)
	}

	if guessed {
		question := fmt.Sprintf(
			"The extension '%s' doesn't specify a SQL file.\n'%s' is probably the right one.\nDo you want to load it?",
			name, fn)
		if err = e.confirmer.Confirm(ctx, question); err != nil {
			return err
		}
	}

	if _, done := e.loaded[fn]; done {
		logger.Infof(ctx, "file %s already loaded", fn)

		return nil
	}

	if err = e.psql.ExecuteFile(ctx, fn); err != nil {
		return err
	}

	e.loaded[fn] = struct{}{}

	return nil
}

// findSQLFile locates a script under the server's share directory,
// trying the extension's own directory, the script's stem directory and
// the contrib tree, in that order.
func (e *engine) findSQLFile(ctx context.Context, name, sqlfile string) (string, error) {
	sqlfile = filepath.Base(sqlfile)

	sharedir, err := e.inst.Sharedir(ctx)
	if err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(sqlfile, filepath.Ext(sqlfile))
	tries := []string{
		filepath.Join(name, sqlfile),
		filepath.Join(stem, sqlfile),
		filepath.Join("contrib", sqlfile),
	}

	seen := make(map[string]struct{}, len(tries))

	for _, try := range tries {
		if _, dup := seen[try]; dup {
			continue
		}

		seen[try] = struct{}{}

		fn := filepath.Join(sharedir, try)
		logger.Debugf(ctx, "checking sql file in %s", fn)

		if _, statErr := os.Stat(fn); statErr == nil {
			return fn, nil
		}
	}

	return "", fmt.Errorf("%w '%s': '%s'", errSQLFileNotFound, name, sqlfile)
}
