package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations for settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing mirror.
	settings := new(Config)

	err := Validate(settings)
	require.Error(t, err)

	// Bad mirror URL.
	settings = &Config{
		MirrorURL: "not a url",
	}

	err = Validate(settings)
	require.Error(t, err)

	// Okay with release URL, tool defaults filled.
	settings = &Config{
		MirrorURL:  "https://api.pgxn.org/",
		ReleaseURL: "https://example.com/releases/",
	}

	err = Validate(settings)
	require.NoError(t, err)
	require.Equal(t, "make", settings.MakeProgram)
	require.Equal(t, "sudo", settings.SudoProgram)
	require.Equal(t, "pg_config", settings.PgConfig)
	require.Equal(t, DefaultTimeout, settings.Timeout)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		MirrorURL:   "https://mirror.local/",
		MakeProgram: "gmake",
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.MirrorURL, loaded.MirrorURL)
	require.Equal(t, "gmake", loaded.MakeProgram)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoadOrDefault verifies fallback behavior for missing settings files.
func TestLoadOrDefault(t *testing.T) {
	// Not parallel: relies on the default settings file being absent
	// from the working directory.
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	require.Equal(t, DefaultMirrorURL, cfg.MirrorURL)

	// An explicit path must exist.
	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
