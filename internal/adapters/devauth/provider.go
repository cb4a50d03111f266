// Package devauth is a config-driven federated provider for local development.
// It stands in for Google sign-in when AUTH_FEDERATED_MODE=mock.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
)

var _ ports.FederatedProvider = (*Provider)(nil)

const defaultCallbackPath = "/auth/callback"

// Config controls the dev auth provider behavior. SubjectID and Email are required.
type Config struct {
	SubjectID string
	Email     string
	Name      string // defaults to the local part of Email
	// CallbackPath is where Begin sends the browser; "/auth/callback" when empty.
	CallbackPath string
}

// Provider short-circuits the OAuth flow by redirecting straight back to
// our own callback with locally generated state. Exchange ignores the code
// and returns the configured identity.
type Provider struct {
	identity domainauth.Identity
	callback string
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.SubjectID == "" {
		return nil, errors.New("dev auth: SubjectID is required")
	}
	local, _, ok := strings.Cut(cfg.Email, "@")
	if cfg.Email == "" || !ok || local == "" {
		return nil, errors.New("dev auth: Email must be an address")
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = local
	}
	callback := cfg.CallbackPath
	if callback == "" {
		callback = defaultCallbackPath
	}
	return &Provider{
		identity: domainauth.Identity{
			SubjectID:     cfg.SubjectID,
			Email:         cfg.Email,
			Name:          name,
			EmailVerified: true,
			Method:        domainauth.MethodFederated,
		},
		callback: callback,
	}, nil
}

// Begin returns a local callback URL with fresh state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	q := url.Values{"code": {"dev"}, "state": {state}}
	return p.callback + "?" + q.Encode(), state, nonce, nil
}

// Exchange returns the dev identity. The handler has already matched state
// against its cookie; an empty code or state still fails like a real IdP would.
func (p *Provider) Exchange(_ context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	switch {
	case in.Code == "":
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrProvider, errors.New("authorization code is required"))
	case in.State == "":
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrProvider, errors.New("state is required"))
	}
	return p.identity, nil
}

func randomString(n int) (string, error) {
	b := make([]byte, (n*3+3)/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
