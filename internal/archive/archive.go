// Package archive unpacks distribution archives.
//
// PGXN releases are zip files, but locally built tarballs are accepted
// too. Formats are recognized by file extension.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/pgxn-client/internal/logger"
)

var (
	// errUnknownFormat is returned for archives with an unrecognized extension.
	errUnknownFormat = errors.New("unknown archive format")
	// errEntryNotFound is returned when a requested entry is absent from the archive.
	errEntryNotFound = errors.New("entry not found in archive")
	// errUnsafePath is returned for entries that would escape the destination.
	errUnsafePath = errors.New("archive entry escapes destination")
)

// Unpack extracts an archive into destDir and returns the directory the
// content was extracted in: the single top-level directory when the
// archive has one, destDir itself otherwise.
func Unpack(ctx context.Context, archivePath, destDir string) (string, error) {
	logger.Debugf(ctx, "unpacking '%s'", archivePath)

	var err error

	switch {
	case strings.HasSuffix(archivePath, ".zip"):
		err = unpackZip(archivePath, destDir)
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		err = unpackTarGz(archivePath, destDir)
	default:
		return "", fmt.Errorf("%w: %q", errUnknownFormat, filepath.Base(archivePath))
	}

	if err != nil {
		return "", err
	}

	return contentDir(destDir)
}

// ExtractFile reads a single entry from an archive without unpacking it.
// The entry is looked up at the archive root and one directory deep, the
// level distribution files live at.
func ExtractFile(archivePath, name string) ([]byte, error) {
	switch {
	case strings.HasSuffix(archivePath, ".zip"):
		return extractZipFile(archivePath, name)
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		return extractTarGzFile(archivePath, name)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownFormat, filepath.Base(archivePath))
	}
}

// matchesEntry reports whether an archive member path names the wanted
// file, either at the root or inside the top-level directory.
func matchesEntry(member, name string) bool {
	member = strings.TrimSuffix(member, "/")
	if member == name {
		return true
	}

	parts := strings.SplitN(member, "/", 2)

	return len(parts) == 2 && parts[1] == name
}

// safeTarget joins an entry name to the destination, rejecting escapes.
func safeTarget(destDir, entryName string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(entryName))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", errUnsafePath, entryName)
	}

	return target, nil
}

// contentDir returns the single top-level directory of destDir when there
// is one, destDir otherwise.
func contentDir(destDir string) (string, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", fmt.Errorf("inspect extracted content: %w", err)
	}

	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(destDir, entries[0].Name()), nil
	}

	return destDir, nil
}

func unpackZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = r.Close()
	}()

	for _, f := range r.File {
		target, err := safeTarget(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("extract %s: %w", f.Name, err)
			}

			continue
		}

		if err = writeZipEntry(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}

	return nil
}

func writeZipEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = rc.Close()
	}()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}

	_, err = io.Copy(out, rc)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	return err
}

func unpackTarGz(archivePath, destDir string) error {
	f, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	gzReader, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("decompress archive: %w", err)
	}

	defer func() {
		_ = gzReader.Close()
	}()

	tarReader := tar.NewReader(gzReader)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		target, err := safeTarget(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("extract %s: %w", header.Name, err)
			}
		case tar.TypeReg:
			if err = writeTarEntry(tarReader, header, target); err != nil {
				return fmt.Errorf("extract %s: %w", header.Name, err)
			}
		}
	}
}

func writeTarEntry(tarReader *tar.Reader, header *tar.Header, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
	if err != nil {
		return err
	}

	_, err = io.Copy(out, tarReader)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	return err
}

func extractZipFile(archivePath, name string) ([]byte, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = r.Close()
	}()

	for _, f := range r.File {
		if !matchesEntry(f.Name, name) || f.FileInfo().IsDir() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}

		data, err := io.ReadAll(rc)
		_ = rc.Close()

		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}

		return data, nil
	}

	return nil, fmt.Errorf("%w: %q", errEntryNotFound, name)
}

func extractTarGzFile(archivePath, name string) ([]byte, error) {
	f, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	gzReader, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress archive: %w", err)
	}

	defer func() {
		_ = gzReader.Close()
	}()

	tarReader := tar.NewReader(gzReader)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}

		if header.Typeflag != tar.TypeReg || !matchesEntry(header.Name, name) {
			continue
		}

		data, err := io.ReadAll(tarReader)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", header.Name, err)
		}

		return data, nil
	}

	return nil, fmt.Errorf("%w: %q", errEntryNotFound, name)
}
