// Package spec parses distribution specifications given on the command line.
//
// A specification selects either a distribution on the mirror, optionally
// constrained to a version range (name, name=1.2.0, name>=1.2.0), or a
// local source: a directory or an archive file. Local paths are recognized
// by a path separator or a leading dot.
package spec

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Kind identifies what a distribution specification points at.
type Kind int

const (
	// Remote is a distribution to be resolved through the mirror.
	Remote Kind = iota
	// Archive is a local archive file.
	Archive
	// Dir is a local source directory.
	Dir
)

var (
	// errEmptySpec is returned when the specification string is blank.
	errEmptySpec = errors.New("empty distribution specification")
	// errInvalidSpec is returned when the specification cannot be parsed.
	errInvalidSpec = errors.New("invalid distribution specification")

	// nameRe matches a distribution name with an optional operator and version.
	nameRe = regexp.MustCompile(`^([a-zA-Z0-9_][a-zA-Z0-9_.-]*?)(?:(==|=|>=|>|<=|<)(.*))?$`)
)

// Spec is a parsed distribution specification.
// Exactly one of the remote fields (Name) or Path is meaningful,
// depending on Kind, and the kind never changes after parsing.
type Spec struct {
	// Kind tells whether the spec is remote, an archive, or a directory.
	Kind Kind
	// Name is the distribution name for remote specs.
	Name string
	// Operator is the comparison operator for remote specs, empty when
	// any version is acceptable.
	Operator string
	// Version is the version bound for remote specs with an operator.
	Version *semver.Version
	// Path is the local path for archive and directory specs.
	Path string
}

// Parse converts a command line argument into a Spec.
// Strings containing a path separator or starting with a dot are treated
// as local paths and must exist; everything else is a remote specification.
func Parse(s string) (*Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptySpec
	}

	if looksLocal(s) {
		return parseLocal(s)
	}

	m := nameRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", errInvalidSpec, s)
	}

	sp := &Spec{
		Kind: Remote,
		Name: m[1],
	}

	if m[2] == "" {
		return sp, nil
	}

	op := m[2]
	if op == "==" {
		op = "="
	}

	v, err := semver.NewVersion(strings.TrimSpace(m[3]))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: bad version: %w", errInvalidSpec, s, err)
	}

	sp.Operator = op
	sp.Version = v

	return sp, nil
}

// looksLocal reports whether the argument should be treated as a filesystem path.
func looksLocal(s string) bool {
	return strings.HasPrefix(s, ".") ||
		strings.ContainsRune(s, '/') ||
		strings.ContainsRune(s, os.PathSeparator)
}

// parseLocal classifies an existing path as a directory or an archive.
func parseLocal(s string) (*Spec, error) {
	info, err := os.Stat(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errInvalidSpec, s, err)
	}

	kind := Archive
	if info.IsDir() {
		kind = Dir
	}

	return &Spec{Kind: kind, Path: s}, nil
}

// IsLocal reports whether the spec points at the local filesystem.
func (s *Spec) IsLocal() bool {
	return s.Kind != Remote
}

// IsExact reports whether the spec pins a single version.
func (s *Spec) IsExact() bool {
	return s.Operator == "="
}

// Constraint returns the version constraint for a remote spec,
// or nil when any version is acceptable.
func (s *Spec) Constraint() (*semver.Constraints, error) {
	if s.Operator == "" {
		return nil, nil
	}

	c, err := semver.NewConstraint(s.Operator + s.Version.String())
	if err != nil {
		return nil, fmt.Errorf("build version constraint: %w", err)
	}

	return c, nil
}

// String renders the spec the way it was written on the command line.
func (s *Spec) String() string {
	if s.IsLocal() {
		return s.Path
	}

	if s.Operator == "" {
		return s.Name
	}

	return s.Name + s.Operator + s.Version.String()
}
