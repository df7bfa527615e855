package release

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/pgxn-client/internal/logger"
	"github.com/oshokin/pgxn-client/internal/service/selfupdate"
)

// binaryPrefix marks release binaries in the scanned directory.
const binaryPrefix = "pgxn-client-"

// manifestMode is the permission of the written manifest.
const manifestMode os.FileMode = 0o644

var errNoBinaries = errors.New("no release binaries found")

// Options contains inputs for the manifest generator entry point.
type Options struct {
	// Dir is the directory holding the built release binaries.
	Dir string
	// Out is the manifest output path. Empty writes into Dir.
	Out string
}

// generator collects checksums for one manifest run.
type generator struct {
	dir string
	out string
	man *selfupdate.Manifest
}

// Run scans a directory of built binaries and writes the release
// manifest the selfupdate command consumes.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "release-manifest")

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	out := opts.Out
	if out == "" {
		out = filepath.Join(dir, selfupdate.ManifestFilename)
	}

	g := &generator{
		dir: dir,
		out: out,
		man: selfupdate.NewManifest(),
	}

	if err := g.fill(ctx); err != nil {
		return err
	}

	if err := g.save(); err != nil {
		return err
	}

	g.printNextSteps(ctx)

	return nil
}

// fill hashes every release binary in the directory into the manifest.
func (g *generator) fill(ctx context.Context) error {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return fmt.Errorf("read release directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		key, ok := platformKey(entry.Name())
		if !ok {
			continue
		}

		sum, sumErr := selfupdate.FileChecksum(filepath.Join(g.dir, entry.Name()))
		if sumErr != nil {
			return sumErr
		}

		g.man.Binaries[key] = selfupdate.Binary{
			File:     entry.Name(),
			Checksum: base64.StdEncoding.EncodeToString(sum),
		}

		logger.InfoKV(ctx, "Hashed release binary", "file", entry.Name(), "platform", key)
	}

	if len(g.man.Binaries) == 0 {
		return fmt.Errorf("%w in %s", errNoBinaries, g.dir)
	}

	return nil
}

// platformKey derives the GOOS-GOARCH key from a binary filename.
func platformKey(name string) (string, bool) {
	if !strings.HasPrefix(name, binaryPrefix) {
		return "", false
	}

	key := strings.TrimSuffix(strings.TrimPrefix(name, binaryPrefix), ".exe")
	if !strings.Contains(key, "-") {
		return "", false
	}

	return key, true
}

// save writes the manifest to the output path.
func (g *generator) save() error {
	data, err := yaml.Marshal(g.man)
	if err != nil {
		return err
	}

	if err = os.WriteFile(filepath.Clean(g.out), data, manifestMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// printNextSteps logs the files to publish under the release URL.
func (g *generator) printNextSteps(ctx context.Context) {
	files := make([]string, 0, len(g.man.Binaries)+1)
	for _, binary := range g.man.Binaries {
		files = append(files, binary.File)
	}

	files = append(files, filepath.Base(g.out))
	sort.Strings(files)

	var builder strings.Builder

	builder.WriteString("Upload the following files to the release URL folder:\n")

	for i, name := range files {
		if i > 0 {
			builder.WriteString(",\n")
		}

		builder.WriteString(name)
	}

	logger.Info(ctx, builder.String())
}
