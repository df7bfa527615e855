package load

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/pgxn-client/internal/executor"
	"github.com/oshokin/pgxn-client/internal/meta"
	"github.com/oshokin/pgxn-client/internal/pg"
	"github.com/oshokin/pgxn-client/internal/prompt"
)

// testEnv hosts a fake installation tree and a scripted database. The
// runner answers pg_config with the tree layout, version queries with
// the banner, and records everything psql receives on stdin.
type testEnv struct {
	sharedir  string
	banner    string
	executed  []string
	queries   int
	asked     []string
	declineOn []string
}

func newTestEnv(t *testing.T, banner string) *testEnv {
	t.Helper()

	return &testEnv{
		sharedir: t.TempDir(),
		banner:   banner,
	}
}

func (env *testEnv) runner() executor.RunnerFunc {
	return func(_ context.Context, cmd executor.Cmd) error {
		switch {
		case filepath.Base(cmd.Argv[0]) == "pg_config":
			_, err := fmt.Fprintf(cmd.Stdout, "BINDIR = /fake/bin\nSHAREDIR = %s\n", env.sharedir)

			return err
		case len(cmd.Argv) >= 2 && cmd.Argv[len(cmd.Argv)-2] == "-c":
			env.queries++

			_, err := fmt.Fprintln(cmd.Stdout, env.banner)

			return err
		default:
			data, err := io.ReadAll(cmd.Stdin)
			if err != nil {
				return err
			}

			env.executed = append(env.executed, strings.TrimSpace(string(data)))

			return nil
		}
	}
}

// engine builds an engine against the environment, declining every
// prompt containing one of the declineOn markers.
func (env *testEnv) engine(unload bool) *engine {
	runner := env.runner()
	inst := pg.NewInstallation("pg_config", runner)
	psql := pg.NewPsql(inst, runner, pg.ConnectionOptions{})

	confirmer := prompt.ConfirmerFunc(func(_ context.Context, question string) error {
		env.asked = append(env.asked, question)

		for _, marker := range env.declineOn {
			if strings.Contains(question, marker) {
				return prompt.ErrDeclined
			}
		}

		return nil
	})

	return newEngine(inst, psql, confirmer, unload)
}

// addScript places a SQL file under the share directory whose content
// names its own relative path.
func (env *testEnv) addScript(t *testing.T, rel string) {
	t.Helper()

	fn := filepath.Join(env.sharedir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(fn), 0o755))
	require.NoError(t, os.WriteFile(fn, []byte("-- "+rel+"\n"), 0o600))
}

// addControl registers a control file for the extension name.
func (env *testEnv) addControl(t *testing.T, name string) {
	t.Helper()

	dir := filepath.Join(env.sharedir, "extension")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".control"), []byte("comment = 'x'\n"), 0o600))
}

const modernBanner = "PostgreSQL 9.2.0 on x86_64-pc-linux-gnu"

// TestNativeLoad checks that a control file turns activation into
// CREATE EXTENSION with no prompting.
func TestNativeLoad(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)
	env.addControl(t, "pair")

	require.NoError(t, env.engine(false).activate(context.Background(), "pair", ""))
	require.Equal(t, []string{`CREATE EXTENSION "pair";`}, env.executed)
	require.Empty(t, env.asked)
}

// TestNativeUnload checks the DROP EXTENSION counterpart.
func TestNativeUnload(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)
	env.addControl(t, "pair")

	require.NoError(t, env.engine(true).activate(context.Background(), "pair", ""))
	require.Equal(t, []string{`DROP EXTENSION "pair";`}, env.executed)
	require.Empty(t, env.asked)
}

// TestNonSQLHintSkips checks that a non-SQL hint produces no database
// traffic at all.
func TestNonSQLHintSkips(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)

	require.NoError(t, env.engine(false).activate(context.Background(), "pair", "pair.so"))
	require.Empty(t, env.executed)
	require.Empty(t, env.asked)
	require.Zero(t, env.queries)
}

// TestBelowThresholdIgnoresControl checks that native activation is
// never attempted on servers predating extension support, control file
// or not.
func TestBelowThresholdIgnoresControl(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "PostgreSQL 9.0.13 on x86_64-pc-linux-gnu")
	env.addControl(t, "pair")
	env.addScript(t, "pair/pair.sql")

	require.NoError(t, env.engine(false).activate(context.Background(), "pair", ""))
	require.Equal(t, []string{"-- pair/pair.sql"}, env.executed)

	// Only the guessed-filename prompt, never the loose-objects one.
	require.Len(t, env.asked, 1)
	require.Contains(t, env.asked[0], "probably the right one")
}

// TestExplicitHintLoadsDirectly checks that an explicit SQL hint runs
// without any confirmation even when no control file exists.
func TestExplicitHintLoadsDirectly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)
	env.addScript(t, "bar/bar.sql")

	require.NoError(t, env.engine(false).activate(context.Background(), "bar", "bar.sql"))
	require.Equal(t, []string{"-- bar/bar.sql"}, env.executed)
	require.Empty(t, env.asked)
}

// TestGuessedLoadPrompts checks the two prompts of a guessed fallback:
// the loose-objects agreement and the resolved filename.
func TestGuessedLoadPrompts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)
	env.addScript(t, "foo/foo.sql")

	require.NoError(t, env.engine(false).activate(context.Background(), "foo", ""))
	require.Equal(t, []string{"-- foo/foo.sql"}, env.executed)

	require.Len(t, env.asked, 2)
	require.Contains(t, env.asked[0], "loose set of objects")
	require.Contains(t, env.asked[1], filepath.Join(env.sharedir, "foo", "foo.sql"))
}

// TestLoadIdempotentPerRun checks that one run executes a script once
// while a fresh run executes it again.
func TestLoadIdempotentPerRun(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)
	env.addScript(t, "pair/pair.sql")

	eng := env.engine(false)
	require.NoError(t, eng.activate(context.Background(), "pair", "pair.sql"))
	require.NoError(t, eng.activate(context.Background(), "pair", "pair.sql"))
	require.Equal(t, []string{"-- pair/pair.sql"}, env.executed)

	require.NoError(t, env.engine(false).activate(context.Background(), "pair", "pair.sql"))
	require.Equal(t, []string{"-- pair/pair.sql", "-- pair/pair.sql"}, env.executed)
}

// TestCandidateOrder checks that the first existing candidate wins and
// later directories are only fallbacks.
func TestCandidateOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)
	env.addScript(t, "pair/pair.sql")
	env.addScript(t, "contrib/pair.sql")
	env.addScript(t, "pair_ext/pair_ext.sql")
	env.addScript(t, "contrib/solo.sql")

	eng := env.engine(false)

	// Both the name directory and contrib exist: the name directory wins.
	require.NoError(t, eng.activate(context.Background(), "pair", "pair.sql"))

	// The name directory misses, the script stem directory matches.
	require.NoError(t, eng.activate(context.Background(), "other", "pair_ext.sql"))

	// Only contrib holds the script.
	require.NoError(t, eng.activate(context.Background(), "solo", "solo.sql"))

	require.Equal(t, []string{
		"-- pair/pair.sql",
		"-- pair_ext/pair_ext.sql",
		"-- contrib/solo.sql",
	}, env.executed)
}

// TestUnloadFlattensHintBeforePrefix checks that a directory-carrying
// hint still resolves to an uninstall_ script.
func TestUnloadFlattensHintBeforePrefix(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)
	env.addScript(t, "pair/uninstall_pair.sql")

	require.NoError(t, env.engine(true).activate(context.Background(), "pair", "sql/pair.sql"))
	require.Equal(t, []string{"-- pair/uninstall_pair.sql"}, env.executed)

	// The hint spares the loose-objects prompt; only the execution one remains.
	require.Len(t, env.asked, 1)
	require.Contains(t, env.asked[0], filepath.Join(env.sharedir, "pair", "uninstall_pair.sql"))
}

// TestUnloadGuessedPrompts checks both unload prompts fire without a
// hint.
func TestUnloadGuessedPrompts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)
	env.addScript(t, "pair/uninstall_pair.sql")

	require.NoError(t, env.engine(true).activate(context.Background(), "pair", ""))
	require.Equal(t, []string{"-- pair/uninstall_pair.sql"}, env.executed)

	require.Len(t, env.asked, 2)
	require.Contains(t, env.asked[0], "will look for an SQL script")
	require.Contains(t, env.asked[1], "Do you want to execute it?")
}

// TestUnloadRepeats checks that unload has no idempotence guard.
func TestUnloadRepeats(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)
	env.addScript(t, "pair/uninstall_pair.sql")

	eng := env.engine(true)
	require.NoError(t, eng.activate(context.Background(), "pair", "pair.sql"))
	require.NoError(t, eng.activate(context.Background(), "pair", "pair.sql"))
	require.Len(t, env.executed, 2)
}

// TestDeclineAborts checks that declining the execution prompt skips
// the script.
func TestDeclineAborts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)
	env.addScript(t, "pair/uninstall_pair.sql")
	env.declineOn = []string{"Do you want to execute it?"}

	err := env.engine(true).activate(context.Background(), "pair", "pair.sql")
	require.ErrorIs(t, err, prompt.ErrDeclined)
	require.Empty(t, env.executed)
}

// TestMissingScriptError checks the error names both the object and the
// filename.
func TestMissingScriptError(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)

	err := env.engine(false).activate(context.Background(), "pair", "pair.sql")
	require.ErrorIs(t, err, errSQLFileNotFound)
	require.ErrorContains(t, err, "'pair': 'pair.sql'")
}

// TestUnparsableVersionFatal checks that a strange version banner stops
// the run.
func TestUnparsableVersionFatal(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "strange banner")
	env.addScript(t, "pair/pair.sql")

	err := env.engine(false).activate(context.Background(), "pair", "pair.sql")
	require.ErrorIs(t, err, pg.ErrVersionNotRecognized)
	require.Empty(t, env.executed)
}

// TestRunProvidesContinuesAfterDecline checks the batch policy: a
// declined object is skipped, the rest still runs.
func TestRunProvidesContinuesAfterDecline(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, modernBanner)
	env.addScript(t, "foo/foo.sql")
	env.addScript(t, "bar/bar.sql")
	env.declineOn = []string{"extension 'foo'"}

	provides := []meta.Extension{
		{Name: "foo"},
		{Name: "bar", File: "bar.sql"},
	}

	declined, err := runProvides(context.Background(), env.engine(false), provides)
	require.NoError(t, err)
	require.Equal(t, 1, declined)
	require.Equal(t, []string{"-- bar/bar.sql"}, env.executed)
}
