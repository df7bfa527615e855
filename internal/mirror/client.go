package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/oshokin/pgxn-client/internal/logger"
	"github.com/oshokin/pgxn-client/internal/meta"
	"github.com/oshokin/pgxn-client/internal/repository/cache"
	"github.com/oshokin/pgxn-client/internal/spec"
)

const (
	// indexPath is the location of the API index relative to the mirror root.
	indexPath = "/index.json"

	// indexCacheKey is the cache key under which the API index is stored.
	indexCacheKey = "index.json"
)

var (
	// errBadHTTPStatus is returned for responses other than 200 OK.
	errBadHTTPStatus = errors.New("unexpected http status")
	// errNoTemplate is returned when the API index lacks a needed URI template.
	errNoTemplate = errors.New("mirror index has no template")
	// errNoRelease is returned when no published release satisfies the spec.
	errNoRelease = errors.New("no suitable release found")
)

// releaseStatuses is the order in which release channels are searched.
var releaseStatuses = []string{"stable", "testing"}

// Client talks to a PGXN mirror over HTTP.
// The mirror publishes an index of URI templates which the client expands
// with the distribution name and version to reach the other documents.
type Client struct {
	// baseURL is the mirror root without a trailing slash.
	baseURL string
	// cachePrefix scopes cache keys to this mirror's host, so switching
	// mirrors never serves another mirror's documents.
	cachePrefix string
	// httpClient executes the requests.
	httpClient *http.Client
	// repo optionally caches fetched documents on disk.
	repo cache.Repository
	// templates holds the parsed API index once fetched.
	templates map[string]string
}

// distReleases mirrors the release listing document of a distribution.
type distReleases struct {
	Releases map[string][]struct {
		Version *semver.Version `json:"version"`
	} `json:"releases"`
}

// NewClient creates a mirror client. The cache repository may be nil,
// in which case every document is fetched from the network.
func NewClient(baseURL string, timeout time.Duration, repo cache.Repository) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		repo:       repo,
	}

	if u, err := url.Parse(c.baseURL); err == nil && u.Host != "" {
		c.cachePrefix = u.Host
	}

	return c
}

// Resolve turns a remote spec into full distribution metadata.
// Exact pins go straight to the metadata document; ranges pick the
// highest published release satisfying the constraint.
func (c *Client) Resolve(ctx context.Context, sp *spec.Spec) (*meta.Distribution, error) {
	if sp.IsExact() {
		return c.Meta(ctx, sp.Name, sp.Version)
	}

	constraint, err := sp.Constraint()
	if err != nil {
		return nil, err
	}

	version, err := c.bestRelease(ctx, sp, constraint)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Resolved distribution",
		"name", sp.Name, "version", version.String())

	return c.Meta(ctx, sp.Name, version)
}

// Meta fetches the metadata document of a specific release.
// Release metadata is immutable, so it is served from the cache when present.
func (c *Client) Meta(ctx context.Context, name string, version *semver.Version) (*meta.Distribution, error) {
	u, err := c.expand(ctx, "meta", name, version)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("dist/%s/%s/META.json", strings.ToLower(name), version)

	data, err := c.cached(ctx, key, u)
	if err != nil {
		return nil, err
	}

	return meta.Parse(data)
}

// DownloadURL returns the absolute URL of a release archive.
func (c *Client) DownloadURL(ctx context.Context, name string, version *semver.Version) (string, error) {
	return c.expand(ctx, "download", name, version)
}

// bestRelease returns the highest release of a distribution satisfying the
// constraint, searching the stable channel before testing.
// A nil constraint accepts any version.
func (c *Client) bestRelease(ctx context.Context, sp *spec.Spec, constraint *semver.Constraints) (*semver.Version, error) {
	u, err := c.expand(ctx, "dist", sp.Name, nil)
	if err != nil {
		return nil, err
	}

	data, err := c.fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	var doc distReleases
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse release listing: %w", err)
	}

	for _, status := range releaseStatuses {
		versions := make(semver.Collection, 0, len(doc.Releases[status]))
		for _, rel := range doc.Releases[status] {
			if rel.Version != nil {
				versions = append(versions, rel.Version)
			}
		}

		sort.Sort(sort.Reverse(versions))

		for _, v := range versions {
			if constraint == nil || constraint.Check(v) {
				if status != "stable" {
					logger.Warnf(ctx, "no stable release found, using %s %s", status, v)
				}

				return v, nil
			}
		}
	}

	return nil, fmt.Errorf("distribution %s: %w", sp, errNoRelease)
}

// expand resolves a URI template from the API index into an absolute URL.
// Distribution names are lowercased, matching the mirror layout.
func (c *Client) expand(ctx context.Context, tplName, dist string, version *semver.Version) (string, error) {
	templates, err := c.loadTemplates(ctx)
	if err != nil {
		return "", err
	}

	tpl, ok := templates[tplName]
	if !ok {
		return "", fmt.Errorf("%w: %q", errNoTemplate, tplName)
	}

	pairs := []string{"{dist}", strings.ToLower(dist)}
	if version != nil {
		pairs = append(pairs, "{version}", version.String())
	}

	return c.baseURL + strings.NewReplacer(pairs...).Replace(tpl), nil
}

// loadTemplates fetches and parses the API index, once per client.
func (c *Client) loadTemplates(ctx context.Context) (map[string]string, error) {
	if c.templates != nil {
		return c.templates, nil
	}

	data, err := c.cached(ctx, indexCacheKey, c.baseURL+indexPath)
	if err != nil {
		return nil, err
	}

	var templates map[string]string
	if err = json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("parse mirror index: %w", err)
	}

	c.templates = templates

	return templates, nil
}

// cached serves a document from the cache repository, falling back to the
// network and storing the result. Without a repository it just fetches.
func (c *Client) cached(ctx context.Context, key, rawURL string) ([]byte, error) {
	if c.repo == nil {
		return c.fetch(ctx, rawURL)
	}

	if c.cachePrefix != "" {
		key = c.cachePrefix + "/" + key
	}

	data, err := c.repo.Get(ctx, key)
	if err == nil {
		logger.Debugf(ctx, "cache hit for %s", key)

		return data, nil
	}

	if !errors.Is(err, cache.ErrNotFound) {
		return nil, err
	}

	data, err = c.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if err = c.repo.Put(ctx, key, data); err != nil {
		logger.Warnf(ctx, "unable to cache %s: %v", key, err)
	}

	return data, nil
}

// fetch executes a GET request and returns the response body.
func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	logger.Debugf(ctx, "fetching %s", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", rawURL, resp.Status, errBadHTTPStatus)
	}

	return io.ReadAll(resp.Body)
}
