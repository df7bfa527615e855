package spec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseRemote verifies name and constraint parsing for mirror specs.
func TestParseRemote(t *testing.T) {
	t.Parallel()

	sp, err := Parse("semver")
	require.NoError(t, err)
	require.Equal(t, Remote, sp.Kind)
	require.Equal(t, "semver", sp.Name)
	require.Empty(t, sp.Operator)
	require.False(t, sp.IsLocal())

	c, err := sp.Constraint()
	require.NoError(t, err)
	require.Nil(t, c)
}

// TestParseRemoteWithOperator verifies each supported comparison operator.
func TestParseRemoteWithOperator(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"pair=1.2.0":      "=",
		"pair==1.2.0":     "=",
		"pair>=0.1.4":     ">=",
		"pair>0.1.4":      ">",
		"pair<=2.0.0":     "<=",
		"pair<2.0.0":      "<",
		"pg_amqp=0.3.0":   "=",
		"semver-x>=1.0.0": ">=",
	}
	for input, op := range cases {
		sp, err := Parse(input)
		require.NoError(t, err, input)
		require.Equal(t, op, sp.Operator, input)
		require.NotNil(t, sp.Version, input)

		c, err := sp.Constraint()
		require.NoError(t, err, input)
		require.True(t, c.Check(sp.Version), input)
	}
}

// TestParseExact verifies the exact pin detection used for direct metadata lookup.
func TestParseExact(t *testing.T) {
	t.Parallel()

	sp, err := Parse("pair==0.1.5")
	require.NoError(t, err)
	require.True(t, sp.IsExact())
	require.Equal(t, "pair=0.1.5", sp.String())

	sp, err = Parse("pair>=0.1.5")
	require.NoError(t, err)
	require.False(t, sp.IsExact())
}

// TestParseInvalid verifies rejection of malformed specifications.
func TestParseInvalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "  ", "pair=not.a.version", "=1.0.0"} {
		_, err := Parse(input)
		require.Error(t, err, input)
	}
}

// TestParseLocalDir verifies directory detection for path-like arguments.
func TestParseLocalDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	sp, err := Parse(dir)
	require.NoError(t, err)
	require.Equal(t, Dir, sp.Kind)
	require.Equal(t, dir, sp.Path)
	require.True(t, sp.IsLocal())
	require.Equal(t, dir, sp.String())
}

// TestParseLocalArchive verifies file detection for path-like arguments.
func TestParseLocalArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fn := filepath.Join(dir, "pair-0.1.5.zip")
	require.NoError(t, os.WriteFile(fn, []byte("zip"), 0o600))

	sp, err := Parse(fn)
	require.NoError(t, err)
	require.Equal(t, Archive, sp.Kind)
	require.Equal(t, fn, sp.Path)
}

// TestParseLocalMissing verifies that a path-like argument must exist.
func TestParseLocalMissing(t *testing.T) {
	t.Parallel()

	_, err := Parse(filepath.Join(t.TempDir(), "no-such-dist.zip"))
	require.Error(t, err)
}
