package profile

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by a profile store when no profile exists for a subject.
var ErrNotFound = errors.New("profile not found")

// FetchError reports that the profile store could not be read. SubjectID is
// empty for listing queries.
// It is retryable and must never be treated as a sign-out.
type FetchError struct {
	SubjectID string
	Err       error
}

func (e *FetchError) Error() string {
	if e.SubjectID == "" {
		return fmt.Sprintf("fetch profiles: %v", e.Err)
	}
	return fmt.Sprintf("fetch profile %s: %v", e.SubjectID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError reports that a profile create or merge failed.
type WriteError struct {
	SubjectID string
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write profile %s: %v", e.SubjectID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsFetchError reports whether err wraps a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsWriteError reports whether err wraps a *WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}
