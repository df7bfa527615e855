package selfupdate

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/pgxn-client/internal/logger"
	"github.com/oshokin/pgxn-client/internal/version"

	// Ensure SHA-512 is linked in for checksum calculation.
	_ "crypto/sha512"
)

var (
	errHashUnavailable  = errors.New("hash function unavailable")
	errNoPlatformBinary = errors.New("no release binary for platform")
)

const (
	// ManifestFilename is the release manifest served next to the binaries.
	ManifestFilename = "pgxn-client-release.yaml"

	// markerName guards against two updates racing on the same executable.
	markerName = "pgxn-client-update.marker"

	// DefaultBinaryMode is the permission applied to installed binaries.
	DefaultBinaryMode os.FileMode = 0o755

	// ChecksumHash computes the release file digests.
	ChecksumHash crypto.Hash = crypto.SHA512

	// markerLifetime is the age past which an update marker counts as
	// abandoned rather than live.
	markerLifetime = 15 * time.Minute
)

// Manifest describes a published release: its version and the binary
// for every supported platform.
type Manifest struct {
	// Version is the semantic version of the release.
	Version string `yaml:"version"`
	// Binaries maps a GOOS-GOARCH key to that platform's binary entry.
	Binaries map[string]Binary `yaml:"binaries"`
}

// Binary is one downloadable file of a release.
type Binary struct {
	// File is the filename relative to the release URL.
	File string `yaml:"file"`
	// Checksum is the base64-encoded SHA-512 digest of the file.
	Checksum string `yaml:"checksum"`
}

// NewManifest returns a manifest stamped with the build version.
func NewManifest() *Manifest {
	return &Manifest{
		Version:  version.Short(),
		Binaries: make(map[string]Binary),
	}
}

// PlatformKey identifies the running platform inside a manifest.
func PlatformKey() string {
	return runtime.GOOS + "-" + runtime.GOARCH
}

// ForPlatform returns the binary entry for the running platform.
func (m *Manifest) ForPlatform() (Binary, error) {
	entry, ok := m.Binaries[PlatformKey()]
	if !ok {
		return Binary{}, fmt.Errorf("%w: %s", errNoPlatformBinary, PlatformKey())
	}

	return entry, nil
}

// FileChecksum returns the digest of a file using ChecksumHash.
func FileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if !ChecksumHash.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := ChecksumHash.New()
	if _, err = hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// markerPath places the marker in the system temp directory, shared by
// every invocation of the client on this machine.
func markerPath() string {
	return filepath.Join(os.TempDir(), markerName)
}

// updateInProgress reports whether another update run owns the marker.
// A marker older than markerLifetime with no other client process alive
// is abandoned and gets removed.
func updateInProgress(ctx context.Context) bool {
	info, err := os.Stat(markerPath())
	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	if err != nil {
		logger.Infof(ctx, "unable to read update marker: %v", err)

		return false
	}

	if time.Since(info.ModTime()) <= markerLifetime {
		return true
	}

	logger.Info(ctx, "The update marker is stale, attempting cleanup")

	if alive, psErr := clientProcessAlive(); psErr != nil || alive {
		return true
	}

	if err = os.Remove(markerPath()); err != nil {
		return true
	}

	return false
}

// clientProcessAlive reports whether another process with this
// executable's name is running.
func clientProcessAlive() (bool, error) {
	exe, err := os.Executable()
	if err != nil {
		return false, err
	}

	name := filepath.Base(exe)

	processes, err := ps.Processes()
	if err != nil {
		return false, err
	}

	self := os.Getpid()

	for _, proc := range processes {
		if proc.Pid() == self {
			continue
		}

		if proc.Executable() == name {
			return true, nil
		}
	}

	return false, nil
}

// placeMarker creates the marker file.
func placeMarker() error {
	marker, err := os.Create(markerPath())
	if err != nil {
		return err
	}

	return marker.Close()
}

// removeMarker deletes the marker, ignoring a missing file.
func removeMarker() {
	if _, err := os.Stat(markerPath()); err == nil {
		_ = os.Remove(markerPath())
	}
}
