//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/pgxn-client/internal/archive"
	"github.com/oshokin/pgxn-client/internal/config"
	"github.com/oshokin/pgxn-client/internal/meta"
	"github.com/oshokin/pgxn-client/internal/mirror"
	"github.com/oshokin/pgxn-client/internal/network"
	"github.com/oshokin/pgxn-client/internal/repository/cache"
	"github.com/oshokin/pgxn-client/internal/spec"
)

// metaCacheTTL bounds how long cached mirror documents stay fresh.
const metaCacheTTL = 24 * time.Hour

// Source is a distribution brought to the local filesystem, unpacked
// and ready to build.
type Source struct {
	// Dir is the directory holding the distribution files.
	Dir string
	// Meta is the distribution metadata.
	Meta *meta.Distribution

	// cleanup removes the temporary files backing the source. It is nil
	// when the source is the user's own directory.
	cleanup func()
}

// Close removes the temporary files backing the source, if any.
func (s *Source) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Acquirer turns a distribution specification into a local source tree.
type Acquirer struct {
	// mirror resolves remote specifications and serves their metadata.
	mirror *mirror.Client
	// fetcher downloads release archives.
	fetcher *network.Fetcher
}

// NewAcquirer creates an Acquirer using the given mirror and fetcher.
func NewAcquirer(m *mirror.Client, f *network.Fetcher) *Acquirer {
	return &Acquirer{
		mirror:  m,
		fetcher: f,
	}
}

// BuildMirror creates the mirror client for the configuration, with an
// on-disk document cache under the configured or user cache directory.
func BuildMirror(cfg *config.Config) *mirror.Client {
	dir := cfg.CacheDir
	if dir == "" {
		if base, err := os.UserCacheDir(); err == nil {
			dir = filepath.Join(base, "pgxn-client")
		}
	}

	var repo cache.Repository
	if dir != "" {
		repo = cache.NewFileRepository(dir, metaCacheTTL)
	}

	return mirror.NewClient(cfg.MirrorURL, cfg.Timeout, repo)
}

// Acquire brings the distribution the specification describes to a
// local directory. Local directories are used in place; archives and
// remote distributions are unpacked into a temporary directory removed
// by Source.Close.
func (a *Acquirer) Acquire(ctx context.Context, sp *spec.Spec) (*Source, error) {
	switch sp.Kind {
	case spec.Dir:
		return a.fromDir(sp.Path)
	case spec.Archive:
		return a.fromArchive(ctx, sp.Path)
	default:
		return a.fromMirror(ctx, sp)
	}
}

// ResolveMeta returns the metadata for a specification without bringing
// the distribution files over.
func (a *Acquirer) ResolveMeta(ctx context.Context, sp *spec.Spec) (*meta.Distribution, error) {
	switch sp.Kind {
	case spec.Dir:
		return meta.FromDir(sp.Path)
	case spec.Archive:
		data, err := archive.ExtractFile(sp.Path, meta.MetaFilename)
		if err != nil {
			return nil, fmt.Errorf("read metadata from archive: %w", err)
		}

		return meta.Parse(data)
	default:
		return a.mirror.Resolve(ctx, sp)
	}
}

func (a *Acquirer) fromDir(dir string) (*Source, error) {
	dist, err := meta.FromDir(dir)
	if err != nil {
		return nil, err
	}

	return &Source{Dir: dir, Meta: dist}, nil
}

func (a *Acquirer) fromArchive(ctx context.Context, archivePath string) (*Source, error) {
	tmp, err := os.MkdirTemp("", "pgxn-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	root, err := archive.Unpack(ctx, archivePath, filepath.Join(tmp, "src"))
	if err != nil {
		_ = os.RemoveAll(tmp)

		return nil, err
	}

	dist, err := meta.FromDir(root)
	if err != nil {
		_ = os.RemoveAll(tmp)

		return nil, err
	}

	return &Source{
		Dir:  root,
		Meta: dist,
		cleanup: func() {
			_ = os.RemoveAll(tmp)
		},
	}, nil
}

func (a *Acquirer) fromMirror(ctx context.Context, sp *spec.Spec) (*Source, error) {
	dist, err := a.mirror.Resolve(ctx, sp)
	if err != nil {
		return nil, err
	}

	if dist.SHA1 == "" {
		return nil, network.ErrMissingChecksum
	}

	rawURL, err := a.mirror.DownloadURL(ctx, dist.Name, dist.Version)
	if err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp("", "pgxn-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	cleanup := func() {
		_ = os.RemoveAll(tmp)
	}

	dest, err := network.TargetPath(tmp, rawURL)
	if err != nil {
		cleanup()

		return nil, err
	}

	fn, err := a.fetcher.Fetch(ctx, rawURL, dest)
	if err != nil {
		cleanup()

		return nil, err
	}

	if err = network.VerifyFileSHA1(ctx, fn, dist.SHA1); err != nil {
		cleanup()

		return nil, err
	}

	root, err := archive.Unpack(ctx, fn, filepath.Join(tmp, "src"))
	if err != nil {
		cleanup()

		return nil, err
	}

	return &Source{
		Dir:     root,
		Meta:    dist,
		cleanup: cleanup,
	}, nil
}
