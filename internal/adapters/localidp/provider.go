// Package localidp is the email/password identity provider. Accounts live in
// the credentials table and passwords are stored as argon2id hashes.
package localidp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
)

var _ ports.PasswordProvider = (*Provider)(nil)

// DefaultParams are the argon2id parameters used for new hashes.
var DefaultParams = &argon2id.Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// DefaultMinPasswordLength is the shortest password SignUp accepts by default.
const DefaultMinPasswordLength = 6

// Config configures Provider.
type Config struct {
	Store  ports.CredentialStore
	Logger *slog.Logger
	// MinPasswordLength defaults to DefaultMinPasswordLength.
	MinPasswordLength int
	// AutoVerify marks new accounts as verified. With no email delivery this
	// is the only way a password account becomes verified.
	AutoVerify bool
	// Params overrides DefaultParams.
	Params *argon2id.Params
}

// Provider implements ports.PasswordProvider on a CredentialStore.
type Provider struct {
	store      ports.CredentialStore
	logger     *slog.Logger
	minLength  int
	autoVerify bool
	params     *argon2id.Params
	newID      func() string
}

// New creates a Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.Store == nil {
		return nil, errors.New("localidp: credential store is required")
	}
	p := &Provider{
		store:      cfg.Store,
		logger:     cfg.Logger,
		minLength:  cfg.MinPasswordLength,
		autoVerify: cfg.AutoVerify,
		params:     cfg.Params,
		newID:      func() string { return uuid.NewString() },
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.minLength <= 0 {
		p.minLength = DefaultMinPasswordLength
	}
	if p.params == nil {
		p.params = DefaultParams
	}
	return p, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return "", domainauth.NewAuthError(domainauth.ErrInvalidEmail, err)
	}
	return strings.ToLower(email), nil
}

// SignIn verifies email and password.
func (p *Provider) SignIn(ctx context.Context, email, password string) (domainauth.Identity, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return domainauth.Identity{}, err
	}

	cred, err := p.store.GetByEmail(ctx, normalized)
	if errors.Is(err, domainauth.ErrCredentialNotFound) {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrUserNotFound, err)
	}
	if err != nil {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrProvider, err)
	}

	ok, err := argon2id.ComparePasswordAndHash(password, cred.PasswordHash)
	if err != nil {
		p.logger.ErrorContext(ctx, "password hash comparison failed", "subject_id", cred.SubjectID, "error", err)
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrProvider, err)
	}
	if !ok {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrInvalidCredential, nil)
	}
	return cred.Identity(), nil
}

// SignUp registers a new password account.
func (p *Provider) SignUp(ctx context.Context, in ports.SignUpInput) (domainauth.Identity, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domainauth.Identity{}, err
	}
	if len(in.Password) < p.minLength {
		return domainauth.Identity{}, domainauth.NewAuthError(
			domainauth.ErrWeakPassword,
			fmt.Errorf("password must be at least %d characters", p.minLength),
		)
	}

	hash, err := argon2id.CreateHash(in.Password, p.params)
	if err != nil {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrProvider, fmt.Errorf("hash password: %w", err))
	}

	cred, err := p.store.Create(ctx, domainauth.Credential{
		SubjectID:     p.newID(),
		Email:         email,
		PasswordHash:  hash,
		DisplayName:   strings.TrimSpace(in.Name),
		EmailVerified: p.autoVerify,
	})
	if errors.Is(err, domainauth.ErrEmailTaken) {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrEmailInUse, err)
	}
	if err != nil {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrProvider, err)
	}

	p.logger.InfoContext(ctx, "password account created", "subject_id", cred.SubjectID)
	return cred.Identity(), nil
}

// SendPasswordReset records a reset request. Unknown emails are recorded
// too so callers cannot probe which accounts exist.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	var subjectID *string
	cred, err := p.store.GetByEmail(ctx, normalized)
	switch {
	case err == nil:
		subjectID = &cred.SubjectID
	case errors.Is(err, domainauth.ErrCredentialNotFound):
	default:
		return domainauth.NewAuthError(domainauth.ErrProvider, err)
	}

	if err = p.store.RecordPasswordReset(ctx, normalized, subjectID); err != nil {
		return domainauth.NewAuthError(domainauth.ErrProvider, err)
	}
	p.logger.InfoContext(ctx, "password reset requested", "known_account", subjectID != nil)
	return nil
}
