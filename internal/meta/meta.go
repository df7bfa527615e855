package meta

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
)

// MetaFilename is the metadata file name inside a distribution.
const MetaFilename = "META.json"

var (
	// errNoName is returned when the metadata lacks a distribution name.
	errNoName = errors.New("distribution metadata has no name")
	// errNoVersion is returned when the metadata lacks a version.
	errNoVersion = errors.New("distribution metadata has no version")
	// errProvidesNotObject is returned when the provides section is not a JSON object.
	errProvidesNotObject = errors.New("provides section is not an object")
)

// Extension is one entry of the provides section: an extension shipped
// by the distribution together with its optional SQL file hint.
type Extension struct {
	// Name is the extension name as published.
	Name string
	// File is the SQL file hint, empty when the metadata does not name one.
	File string
	// Version is the extension version, when published.
	Version *semver.Version
}

// Distribution is the parsed distribution metadata.
type Distribution struct {
	// Name is the distribution name.
	Name string
	// Abstract is the one-line description, when published.
	Abstract string
	// Version is the distribution version.
	Version *semver.Version
	// SHA1 is the hex digest of the release archive. It is present in
	// mirror metadata and absent from local source trees.
	SHA1 string
	// Provides lists the extensions shipped by the distribution in the
	// exact order they appear in the metadata document.
	Provides []Extension
}

// Parse decodes distribution metadata from a JSON document.
// The provides section is decoded token by token so that the document
// order of the extensions is preserved.
func Parse(data []byte) (*Distribution, error) {
	var raw struct {
		Name     string          `json:"name"`
		Abstract string          `json:"abstract"`
		Version  *semver.Version `json:"version"`
		SHA1     string          `json:"sha1"`
		Provides json.RawMessage `json:"provides"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse distribution metadata: %w", err)
	}

	if raw.Name == "" {
		return nil, errNoName
	}

	if raw.Version == nil {
		return nil, errNoVersion
	}

	d := &Distribution{
		Name:     raw.Name,
		Abstract: raw.Abstract,
		Version:  raw.Version,
		SHA1:     raw.SHA1,
	}

	provides, err := parseProvides(raw.Provides)
	if err != nil {
		return nil, err
	}

	d.Provides = provides

	return d, nil
}

// FromDir reads and parses META.json from a source directory.
func FromDir(dir string) (*Distribution, error) {
	data, err := os.ReadFile(filepath.Clean(filepath.Join(dir, MetaFilename)))
	if err != nil {
		return nil, fmt.Errorf("read distribution metadata: %w", err)
	}

	return Parse(data)
}

// ReversedProvides returns the provides entries in reverse document order,
// the order in which extensions are unloaded.
func (d *Distribution) ReversedProvides() []Extension {
	out := make([]Extension, len(d.Provides))
	for i, ext := range d.Provides {
		out[len(d.Provides)-1-i] = ext
	}

	return out
}

// parseProvides walks the provides object token by token, keeping the
// entries in document order. encoding/json maps would lose it.
func parseProvides(raw json.RawMessage) ([]Extension, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse provides: %w", err)
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errProvidesNotObject
	}

	var out []Extension

	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse provides: %w", err)
		}

		name, _ := tok.(string)

		var entry struct {
			File    string          `json:"file"`
			Version *semver.Version `json:"version"`
		}

		if err = dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("parse provides entry %q: %w", name, err)
		}

		out = append(out, Extension{
			Name:    name,
			File:    entry.File,
			Version: entry.Version,
		})
	}

	return out, nil
}
