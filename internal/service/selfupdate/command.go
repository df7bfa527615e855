package selfupdate

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	goupdate "github.com/doitdistributed/go-update"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/pgxn-client/internal/config"
	"github.com/oshokin/pgxn-client/internal/logger"
	"github.com/oshokin/pgxn-client/internal/network"
	"github.com/oshokin/pgxn-client/internal/version"
)

var (
	errNoReleaseURL     = errors.New("no release URL configured")
	errUpdateInProgress = errors.New("another update is already in progress")
	errNoChecksum       = errors.New("checksum missing for file")
	errEmptyManifest    = errors.New("release manifest has no version")
)

// Options are inputs accepted by the selfupdate entry point.
type Options struct {
	// ConfigPath is an optional path to the YAML settings file.
	ConfigPath string
	// Check reports whether an update is available without applying it.
	Check bool
}

// runner holds the mutable state of a single update execution.
type runner struct {
	cfg          *config.Config
	fetcher      *network.Fetcher
	tempDir      string
	target       string
	markerPlaced bool
}

// Run replaces the running executable with the latest published
// release, or with Check set only reports whether one exists.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "selfupdate")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return err
	}

	if cfg.ReleaseURL == "" {
		return errNoReleaseURL
	}

	r := &runner{
		cfg:     cfg,
		fetcher: network.NewFetcher(cfg.Timeout),
	}

	defer r.cleanup(ctx)

	man, err := r.fetchManifest(ctx)
	if err != nil {
		return fmt.Errorf("fetch release manifest: %w", err)
	}

	current, err := version.Semver()
	if err != nil {
		return err
	}

	remote, err := semver.NewVersion(man.Version)
	if err != nil {
		return fmt.Errorf("parse release version %q: %w", man.Version, err)
	}

	if !remote.GreaterThan(current) {
		logger.InfoKV(ctx, "Client is up to date", "version", current.String())

		return nil
	}

	if opts.Check {
		logger.InfoKV(ctx, "Update available",
			"current", current.String(), "available", remote.String())

		return nil
	}

	entry, err := man.ForPlatform()
	if err != nil {
		return err
	}

	if updateInProgress(ctx) {
		return errUpdateInProgress
	}

	if err = placeMarker(); err != nil {
		return err
	}

	r.markerPlaced = true

	r.target, err = os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	if err = r.apply(ctx, entry); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Client updated",
		"from", current.String(), "to", remote.String())

	return nil
}

// fetchManifest downloads and parses the release manifest.
func (r *runner) fetchManifest(ctx context.Context) (*Manifest, error) {
	rawURL, err := r.releaseFileURL(ManifestFilename)
	if err != nil {
		return nil, err
	}

	dir, err := r.ensureTempDir()
	if err != nil {
		return nil, err
	}

	fn, err := r.fetcher.Fetch(ctx, rawURL, filepath.Join(dir, ManifestFilename))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Clean(fn))
	if err != nil {
		return nil, err
	}

	var man Manifest
	if err = yaml.Unmarshal(data, &man); err != nil {
		return nil, err
	}

	if man.Version == "" {
		return nil, errEmptyManifest
	}

	return &man, nil
}

// releaseFileURL composes the URL of a file under the release URL.
func (r *runner) releaseFileURL(name string) (string, error) {
	u, err := url.Parse(r.cfg.ReleaseURL)
	if err != nil {
		return "", fmt.Errorf("parse release URL: %w", err)
	}

	// path.Join also collapses duplicate slashes in the composed path.
	u.Path = path.Join(u.Path, name)

	return u.String(), nil
}

// ensureTempDir creates the download directory on first use.
func (r *runner) ensureTempDir() (string, error) {
	if r.tempDir != "" {
		return r.tempDir, nil
	}

	dir, err := os.MkdirTemp("", "pgxn-client-update-")
	if err != nil {
		return "", err
	}

	r.tempDir = dir

	return dir, nil
}

// apply downloads the platform binary and swaps it in for the target
// executable. The checksum is verified before the target is touched.
func (r *runner) apply(ctx context.Context, entry Binary) error {
	if entry.Checksum == "" {
		return fmt.Errorf("%w: %s", errNoChecksum, entry.File)
	}

	sum, err := base64.StdEncoding.DecodeString(entry.Checksum)
	if err != nil {
		return fmt.Errorf("decode checksum for %s: %w", entry.File, err)
	}

	rawURL, err := r.releaseFileURL(entry.File)
	if err != nil {
		return err
	}

	dir, err := r.ensureTempDir()
	if err != nil {
		return err
	}

	fn, err := r.fetcher.Fetch(ctx, rawURL, filepath.Join(dir, entry.File))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Clean(fn))
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Applying update", "target", r.target)

	err = goupdate.Apply(bytes.NewReader(data), goupdate.Options{
		TargetPath: r.target,
		TargetMode: DefaultBinaryMode,
		Checksum:   sum,
		Hash:       ChecksumHash,
	})
	if err != nil {
		return fmt.Errorf("apply update: %w", err)
	}

	oldFileName := r.target + ".old"
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}

// cleanup removes the temporary directory and, when this run owns it,
// the update marker.
func (r *runner) cleanup(ctx context.Context) {
	if r.markerPlaced {
		removeMarker()
	}

	if r.tempDir != "" {
		_ = os.RemoveAll(r.tempDir)
	}

	logger.Debug(ctx, "selfupdate cleanup complete")
}
