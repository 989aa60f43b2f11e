// Package apperr defines shared error values and types for PATKIT.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrMissingData   = errors.New("missing data")
)

// VersionError reports a metadata file whose format_version is newer
// than this build supports. Loading fails fast on these instead of
// attempting a best-effort parse.
type VersionError struct {
	Path      string
	Version   string
	Supported string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf(
		"unsupported file version %q in %s (newest supported version is %s)",
		e.Version, e.Path, e.Supported)
}

// IsVersionError reports whether err is (or wraps) a VersionError.
func IsVersionError(err error) bool {
	var ve *VersionError
	return errors.As(err, &ve)
}
