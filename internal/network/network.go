// Package network fetches release archives over HTTP and verifies their
// integrity against the digests published in the distribution metadata.
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/oshokin/pgxn-client/internal/logger"
)

// errBadHTTPStatus is returned for responses other than 200 OK.
var errBadHTTPStatus = errors.New("unexpected http status")

// Fetcher downloads files over HTTP.
type Fetcher struct {
	// httpClient executes the requests.
	httpClient *http.Client
}

// NewFetcher creates a fetcher whose requests use the provided timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads a URL into the destination path and returns that path.
// The body is written to a temporary file first and renamed into place
// once complete, so an interrupted download leaves no partial file behind
// under the final name.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) (string, error) {
	logger.InfoKV(ctx, "Downloading archive", "url", rawURL, "path", dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s, %s: %w", rawURL, resp.Status, errBadHTTPStatus)
	}

	tmp := dest + ".tmp"

	out, err := os.Create(filepath.Clean(tmp))
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}

	_, err = io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp)

		return "", fmt.Errorf("write download file: %w", err)
	}

	if err = os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)

		return "", fmt.Errorf("rename download file: %w", err)
	}

	return dest, nil
}

// TargetPath decides where a download lands. When target is an existing
// directory the archive keeps its name from the URL; otherwise target
// itself is the destination. The result is absolute.
func TargetPath(target, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse download URL: %w", err)
	}

	fn := target
	if info, statErr := os.Stat(target); statErr == nil && info.IsDir() {
		fn = filepath.Join(target, path.Base(u.Path))
	}

	abs, err := filepath.Abs(fn)
	if err != nil {
		return "", fmt.Errorf("resolve download target: %w", err)
	}

	return abs, nil
}
