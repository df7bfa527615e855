package download

import (
	"context"
	"crypto/sha1" //nolint:gosec // PGXN publishes SHA-1 digests, the fixtures need matching ones.
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/pgxn-client/internal/config"
	"github.com/oshokin/pgxn-client/internal/network"
)

const testIndex = `{
	"meta": "/dist/{dist}/{version}/META.json",
	"download": "/dist/{dist}/{version}/{dist}-{version}.zip"
}`

// startMirror serves pair 1.2.0 with the given digest in its metadata
// and returns the path of a settings file pointing at the stub.
func startMirror(t *testing.T, digest string, archive []byte) string {
	t.Helper()

	metaJSON := `{"name": "pair", "version": "1.2.0"}`
	if digest != "" {
		metaJSON = fmt.Sprintf(`{"name": "pair", "version": "1.2.0", "sha1": %q}`, digest)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testIndex))
	})
	mux.HandleFunc("/dist/pair/1.2.0/META.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(metaJSON))
	})
	mux.HandleFunc("/dist/pair/1.2.0/pair-1.2.0.zip", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	configPath := filepath.Join(t.TempDir(), "settings.yaml")
	cfg := &config.Config{
		MirrorURL: srv.URL,
		CacheDir:  t.TempDir(),
		Timeout:   time.Second,
	}
	require.NoError(t, config.Save(configPath, cfg))

	return configPath
}

// TestRunSavesArchive checks the happy path: the archive lands in the
// target directory under its mirror name.
func TestRunSavesArchive(t *testing.T) {
	t.Parallel()

	archive := []byte("release archive bytes")
	digest := sha1.Sum(archive) //nolint:gosec // See package import note.
	configPath := startMirror(t, hex.EncodeToString(digest[:]), archive)

	target := t.TempDir()
	opts := &Options{
		ConfigPath: configPath,
		Spec:       "pair=1.2.0",
		Target:     target,
	}
	require.NoError(t, Run(context.Background(), opts))

	saved, err := os.ReadFile(filepath.Join(target, "pair-1.2.0.zip"))
	require.NoError(t, err)
	require.Equal(t, archive, saved)
}

// TestRunBadChecksum checks that a digest mismatch removes the download
// and surfaces the checksum error.
func TestRunBadChecksum(t *testing.T) {
	t.Parallel()

	digest := sha1.Sum([]byte("entirely different content")) //nolint:gosec // See package import note.
	configPath := startMirror(t, hex.EncodeToString(digest[:]), []byte("release archive bytes"))

	target := t.TempDir()
	opts := &Options{
		ConfigPath: configPath,
		Spec:       "pair=1.2.0",
		Target:     target,
	}

	err := Run(context.Background(), opts)
	require.ErrorIs(t, err, network.ErrBadChecksum)
	require.NoFileExists(t, filepath.Join(target, "pair-1.2.0.zip"))
}

// TestRunMissingChecksum checks that metadata without a digest refuses
// the download before fetching anything.
func TestRunMissingChecksum(t *testing.T) {
	t.Parallel()

	configPath := startMirror(t, "", []byte("release archive bytes"))

	target := t.TempDir()
	opts := &Options{
		ConfigPath: configPath,
		Spec:       "pair=1.2.0",
		Target:     target,
	}

	err := Run(context.Background(), opts)
	require.ErrorIs(t, err, network.ErrMissingChecksum)
	require.NoFileExists(t, filepath.Join(target, "pair-1.2.0.zip"))
}

// TestRunLocalSpec checks that filesystem specifications are rejected.
func TestRunLocalSpec(t *testing.T) {
	t.Parallel()

	opts := &Options{
		ConfigPath: startMirror(t, "", nil),
		Spec:       t.TempDir(),
	}

	err := Run(context.Background(), opts)
	require.ErrorIs(t, err, errLocalSpec)
}
