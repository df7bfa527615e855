package pg

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrVersionNotRecognized is returned when the output of SELECT version()
// does not look like a PostgreSQL version banner.
var ErrVersionNotRecognized = errors.New("cannot parse version number")

// versionRe matches the numeric part of a version banner such as
// "PostgreSQL 16.2 on x86_64-pc-linux-gnu". The patch number is optional.
var versionRe = regexp.MustCompile(`\S+\s+(\d+)\.(\d+)(?:\.(\d+))?`)

// extensionSupport is the first server version shipping CREATE EXTENSION.
var extensionSupport = semver.New(9, 1, 0, "", "")

// ParseServerVersion extracts the server version from the output of
// SELECT version(). A missing patch number counts as zero.
func ParseServerVersion(banner string) (*semver.Version, error) {
	data := strings.TrimSpace(banner)

	m := versionRe.FindStringSubmatch(data)
	if m == nil {
		return nil, fmt.Errorf("%w from %q", ErrVersionNotRecognized, data)
	}

	major, _ := strconv.ParseUint(m[1], 10, 64)
	minor, _ := strconv.ParseUint(m[2], 10, 64)

	var patch uint64
	if m[3] != "" {
		patch, _ = strconv.ParseUint(m[3], 10, 64)
	}

	return semver.New(major, minor, patch, "", ""), nil
}

// SupportsExtensions reports whether a server of the given version
// understands CREATE EXTENSION.
func SupportsExtensions(v *semver.Version) bool {
	return !v.LessThan(extensionSupport)
}
