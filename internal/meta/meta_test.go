package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleMeta = `{
	"name": "pair",
	"abstract": "A key/value pair data type",
	"version": "0.1.5",
	"sha1": "9988d7adb056b11f8576db44cca30f88a08bd652",
	"provides": {
		"pair": {"file": "sql/pair.sql", "version": "0.1.2"},
		"trio": {"file": "sql/trio.sql", "version": "0.1.0"},
		"solo": {"version": "0.1.0"}
	}
}`

// TestParse verifies decoding of the top-level metadata fields.
func TestParse(t *testing.T) {
	t.Parallel()

	d, err := Parse([]byte(sampleMeta))
	require.NoError(t, err)
	require.Equal(t, "pair", d.Name)
	require.Equal(t, "A key/value pair data type", d.Abstract)
	require.Equal(t, "0.1.5", d.Version.String())
	require.Equal(t, "9988d7adb056b11f8576db44cca30f88a08bd652", d.SHA1)
}

// TestParseKeepsProvidesOrder verifies that provides entries stay in document order.
func TestParseKeepsProvidesOrder(t *testing.T) {
	t.Parallel()

	d, err := Parse([]byte(sampleMeta))
	require.NoError(t, err)
	require.Len(t, d.Provides, 3)
	require.Equal(t, "pair", d.Provides[0].Name)
	require.Equal(t, "sql/pair.sql", d.Provides[0].File)
	require.Equal(t, "trio", d.Provides[1].Name)
	require.Equal(t, "solo", d.Provides[2].Name)
	require.Empty(t, d.Provides[2].File)
}

// TestReversedProvides verifies the unload order is the exact reverse of the load order.
func TestReversedProvides(t *testing.T) {
	t.Parallel()

	d, err := Parse([]byte(sampleMeta))
	require.NoError(t, err)

	rev := d.ReversedProvides()
	require.Len(t, rev, 3)
	require.Equal(t, "solo", rev[0].Name)
	require.Equal(t, "trio", rev[1].Name)
	require.Equal(t, "pair", rev[2].Name)

	// The original slice is untouched.
	require.Equal(t, "pair", d.Provides[0].Name)
}

// TestParseRejectsIncompleteMetadata verifies required field checks.
func TestParseRejectsIncompleteMetadata(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{"version": "1.0.0"}`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"name": "pair"}`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"name": "pair", "version": "1.0.0", "provides": []}`))
	require.Error(t, err)

	_, err = Parse([]byte(`not json`))
	require.Error(t, err)
}

// TestParseWithoutProvides verifies metadata without a provides section is accepted.
func TestParseWithoutProvides(t *testing.T) {
	t.Parallel()

	d, err := Parse([]byte(`{"name": "pair", "version": "1.0.0", "provides": null}`))
	require.NoError(t, err)
	require.Empty(t, d.Provides)
}

// TestFromDir verifies reading META.json out of a source directory.
func TestFromDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFilename), []byte(sampleMeta), 0o600))

	d, err := FromDir(dir)
	require.NoError(t, err)
	require.Equal(t, "pair", d.Name)

	_, err = FromDir(t.TempDir())
	require.Error(t, err)
}
