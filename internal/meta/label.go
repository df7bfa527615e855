package meta

import (
	"errors"
	"fmt"
	"regexp"
)

// maxLabelLength matches the PostgreSQL identifier length limit (NAMEDATALEN - 1).
const maxLabelLength = 63

var (
	// errInvalidLabel is returned for extension names unsafe to interpolate into SQL.
	errInvalidLabel = errors.New("invalid extension name")

	// labelRe accepts names made of letters, digits, underscores and inner
	// hyphens, starting with a letter or underscore.
	labelRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)
)

// ValidateLabel checks that an extension name is safe to use in a
// CREATE EXTENSION or DROP EXTENSION statement.
func ValidateLabel(s string) error {
	if len(s) == 0 || len(s) > maxLabelLength || !labelRe.MatchString(s) {
		return fmt.Errorf("%w: %q", errInvalidLabel, s)
	}

	return nil
}
