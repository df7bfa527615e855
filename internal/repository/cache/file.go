package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/pgxn-client/internal/config"
)

// Repository defines caching operations for mirror responses.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// FileRepository stores cached responses as files under a directory,
// mirroring the key structure. Entries older than the TTL are reported
// as missing so that callers refetch them.
type FileRepository struct {
	// dir is the root directory of the cache.
	dir string
	// ttl is the entry lifetime. Zero or negative means entries never expire.
	ttl time.Duration
	// mu protects concurrent access to the cache files.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when a cache entry does not exist or has expired.
	ErrNotFound = errors.New("cache entry not found")

	// errBadKey is returned for keys that would escape the cache directory.
	errBadKey = errors.New("invalid cache key")
)

// NewFileRepository creates a repository rooted at the provided directory.
func NewFileRepository(dir string, ttl time.Duration) *FileRepository {
	return &FileRepository{
		dir: filepath.Clean(dir),
		ttl: ttl,
	}
}

// Get reads a cached entry. Expired entries count as missing.
func (r *FileRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, err := r.filename(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	if r.ttl > 0 && time.Since(info.ModTime()) > r.ttl {
		return nil, ErrNotFound
	}

	contents, err := os.ReadFile(fn)
	if err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	return contents, nil
}

// Put writes a cache entry, creating parent directories as needed.
func (r *FileRepository) Put(_ context.Context, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, err := r.filename(key)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	if err = os.WriteFile(fn, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}

	return nil
}

// filename maps a key to a path under the cache root.
// Keys are normalized so they cannot escape the root.
func (r *FileRepository) filename(key string) (string, error) {
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	if key == "" || key == "." {
		return "", fmt.Errorf("%w: %q", errBadKey, key)
	}

	return filepath.Join(r.dir, filepath.FromSlash(key)), nil
}
