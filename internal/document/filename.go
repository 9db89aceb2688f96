package document

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidName is returned for names that could address anything other than a
// single file directly inside the document root.
var ErrInvalidName = errors.New("invalid document name")

// MaxNameLength bounds a single path segment, matching common filesystem limits.
const MaxNameLength = 255

// ValidateName checks a download filename taken from one request path segment.
// Separators, parent references, control characters (NUL included) and
// over-long names are rejected, so an accepted name is also safe to echo in a
// quoted header parameter.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidName
	case len(name) > MaxNameLength:
		return ErrInvalidName
	case strings.ContainsAny(name, "/\\"):
		return ErrInvalidName
	case strings.IndexFunc(name, unicode.IsControl) >= 0:
		return ErrInvalidName
	case strings.HasPrefix(name, ".."):
		return ErrInvalidName
	}
	return nil
}
