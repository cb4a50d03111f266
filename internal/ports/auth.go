package ports

// Package ports defines interfaces (hexagonal ports) for identity, session
// and profile behavior. Implementations live in internal/adapters and
// internal/data; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
)

// SignUpInput carries the fields needed to register a password account.
type SignUpInput struct {
	Email    string
	Password string
	Name     string
}

// PasswordProvider authenticates email+password credentials.
// Failures are *domainauth.AuthError values.
type PasswordProvider interface {
	SignIn(ctx context.Context, email, password string) (domainauth.Identity, error)
	SignUp(ctx context.Context, in SignUpInput) (domainauth.Identity, error)
	SendPasswordReset(ctx context.Context, email string) error
}

// BeginInput carries inputs for initiating a federated auth flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// FederatedProvider initiates and completes a sign-in flow against an external IdP.
type FederatedProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// SessionStore persists and retrieves identity-provider sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionEvents publishes and delivers session change notifications.
// Subscribe delivers events for one session until cancel is called or ctx ends;
// the returned channel is closed afterwards.
type SessionEvents interface {
	Publish(ctx context.Context, ev domainauth.SessionEvent) error
	Subscribe(ctx context.Context, sessionID string) (<-chan domainauth.SessionEvent, func(), error)
}

// CredentialStore persists password accounts for the local identity provider.
// Emails are matched case-insensitively.
type CredentialStore interface {
	// Create returns domainauth.ErrEmailTaken when the email is registered.
	Create(ctx context.Context, c domainauth.Credential) (*domainauth.Credential, error)
	// GetByEmail returns domainauth.ErrCredentialNotFound when no account matches.
	GetByEmail(ctx context.Context, email string) (*domainauth.Credential, error)
	// RecordPasswordReset stores a reset request; subjectID is nil for unknown emails.
	RecordPasswordReset(ctx context.Context, email string, subjectID *string) error
}
