package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrCredentialIncomplete is returned when a credential lacks subject, email or hash.
	ErrCredentialIncomplete = errors.New("credential requires subject_id, email and password_hash")
)
