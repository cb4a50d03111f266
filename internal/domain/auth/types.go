package auth

// Package auth contains domain-level types for identities, sessions and
// sign-in failures. It is pure and free of framework/adapter concerns.

import (
	"errors"
	"fmt"
	"time"
)

// Method records how an identity authenticated.
type Method string

const (
	MethodPassword  Method = "password"
	MethodFederated Method = "federated"
)

// Identity is the authenticated principal returned by an identity provider.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	SubjectID     string // stable provider subject id
	Email         string
	Name          string
	EmailVerified bool
	Method        Method
}

// Verified reports whether the identity may sign in under a verification
// policy. Federated identities are treated as pre-verified.
func (i Identity) Verified() bool {
	return i.Method == MethodFederated || i.EmailVerified
}

var (
	// ErrSessionNotFound is returned by session stores for unknown or expired ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a stored session is past its expiry.
	ErrSessionExpired = errors.New("session expired")
)

// Session is the server-side record of an identity-provider session.
// ID is the opaque value carried in the session cookie.
type Session struct {
	ID            string    `json:"id"`
	SubjectID     string    `json:"subject_id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"email_verified"`
	Method        Method    `json:"method"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Identity returns the identity the session was issued for.
func (s Session) Identity() Identity {
	return Identity{
		SubjectID:     s.SubjectID,
		Email:         s.Email,
		Name:          s.Name,
		EmailVerified: s.EmailVerified,
		Method:        s.Method,
	}
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

// EventKind classifies a session change notification.
type EventKind string

const (
	EventLogin   EventKind = "login"
	EventLogout  EventKind = "logout"
	EventRefresh EventKind = "refresh"
)

// SessionEvent is published whenever a session starts, ends or is refreshed.
type SessionEvent struct {
	SessionID string    `json:"session_id"`
	Kind      EventKind `json:"kind"`
	SubjectID string    `json:"subject_id,omitempty"`
	At        time.Time `json:"at"`
}

// ErrorKind classifies sign-in failures surfaced to the user.
type ErrorKind string

const (
	ErrInvalidCredential ErrorKind = "invalid_credential"
	ErrUserNotFound      ErrorKind = "user_not_found"
	ErrInvalidEmail      ErrorKind = "invalid_email"
	ErrEmailNotVerified  ErrorKind = "email_not_verified"
	ErrEmailInUse        ErrorKind = "email_in_use"
	ErrWeakPassword      ErrorKind = "weak_password"
	ErrProvider          ErrorKind = "provider_error"
)

// AuthError is a user-facing authentication failure. It never implies a
// change to persisted state.
type AuthError struct {
	Kind ErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Message returns the text shown to the user for this failure.
func (e *AuthError) Message() string {
	switch e.Kind {
	case ErrInvalidCredential:
		return "Incorrect password."
	case ErrUserNotFound:
		return "User does not exist. Please sign up first."
	case ErrInvalidEmail:
		return "Invalid email format."
	case ErrEmailNotVerified:
		return "Please verify your email before signing in."
	case ErrEmailInUse:
		return "An account with this email already exists."
	case ErrWeakPassword:
		return "Password is too weak."
	default:
		return "Sign-in failed. Please try again."
	}
}

// NewAuthError builds an AuthError of the given kind.
func NewAuthError(kind ErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

// AsAuthError extracts an *AuthError from err.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsKind reports whether err is an AuthError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	ae, ok := AsAuthError(err)
	return ok && ae.Kind == kind
}
