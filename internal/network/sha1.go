package network

import (
	"context"
	"crypto/sha1" //nolint:gosec // PGXN publishes SHA-1 digests, matching them requires SHA-1.
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/pgxn-client/internal/logger"
)

// checksumChunkSize is how much of the file is read per hashing step.
const checksumChunkSize = 8192

var (
	// ErrBadChecksum is returned when a file digest does not match the published one.
	ErrBadChecksum = errors.New("bad sha1 in downloaded file")
	// ErrMissingChecksum is returned when the metadata publishes no digest to verify against.
	ErrMissingChecksum = errors.New("sha1 missing from the distribution meta")
)

// VerifyFileSHA1 streams the file and compares its SHA-1 digest with the
// expected hex digest. On mismatch the file is removed before returning,
// so unverified content never survives on disk. An empty expected digest
// is refused.
func VerifyFileSHA1(ctx context.Context, path, expected string) error {
	if expected == "" {
		return ErrMissingChecksum
	}

	logger.Debugf(ctx, "checking sha1 of '%s'", path)

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open file for checksum: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	hasher := sha1.New() //nolint:gosec // See package import note.

	if _, err = io.CopyBuffer(hasher, f, make([]byte, checksumChunkSize)); err != nil {
		return fmt.Errorf("read file for checksum: %w", err)
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(got, expected) {
		_ = os.Remove(path)
		logger.Errorf(ctx, "file %s has sha1 %s instead of %s", path, got, expected)

		return fmt.Errorf("%w: %s has sha1 %s instead of %s", ErrBadChecksum, path, got, expected)
	}

	return nil
}
