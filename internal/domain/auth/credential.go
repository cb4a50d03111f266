package auth

import (
	"errors"
	"time"
)

var (
	// ErrCredentialNotFound is returned when no password account matches.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrEmailTaken is returned when a password account already uses the email.
	ErrEmailTaken = errors.New("email already registered")
)

// Credential is a password account held by the local identity provider.
type Credential struct {
	SubjectID     string    `db:"subject_id"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password_hash"`
	DisplayName   string    `db:"display_name"`
	EmailVerified bool      `db:"email_verified"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Identity returns the identity asserted by a successful password check.
func (c Credential) Identity() Identity {
	return Identity{
		SubjectID:     c.SubjectID,
		Email:         c.Email,
		Name:          c.DisplayName,
		EmailVerified: c.EmailVerified,
		Method:        MethodPassword,
	}
}
