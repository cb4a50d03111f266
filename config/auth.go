package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode selects the federated (Google) sign-in provider.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for federated sign-in.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev federated sign-in (for development only).
	AuthModeMock AuthMode = "mock"
	// AuthModeDisabled turns federated sign-in off; password sign-in still works.
	AuthModeDisabled AuthMode = "disabled"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oauth", "mock", "disabled":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock, disabled)", v)
	}
}

// EventsBackend selects where session change notifications travel.
type EventsBackend string

const (
	// EventsBackendRedis uses Redis pub/sub so every instance sees every event.
	EventsBackendRedis EventsBackend = "redis"
	// EventsBackendLocal uses an in-process bus (single instance only).
	EventsBackendLocal EventsBackend = "local"
)

// UnmarshalText implements encoding.TextUnmarshaler for EventsBackend.
func (b *EventsBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "redis", "local":
		*b = EventsBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid EventsBackend: %q (valid options: redis, local)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration. The discovery URL defaults
// to Google's issuer.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL" envDefault:"https://accounts.google.com"`
}

// DevAuthConfig controls the mock federated identity.
// Used when AUTH_FEDERATED_MODE=mock for development and testing.
type DevAuthConfig struct {
	SubjectID string `env:"SUBJECT_ID" envDefault:"dev-user"`
	Email     string `env:"EMAIL"      envDefault:"dev@example.edu"`
	Name      string `env:"NAME"       envDefault:"Dev User"`
}

// LocalIDPConfig controls the built-in email/password identity provider.
type LocalIDPConfig struct {
	// AutoVerify marks new accounts verified at sign-up.
	AutoVerify        bool `env:"AUTO_VERIFY"         envDefault:"true"`
	MinPasswordLength int  `env:"MIN_PASSWORD_LENGTH" envDefault:"6"`
}

// SessionConfig controls session lifetime and change notifications.
type SessionConfig struct {
	TTL           time.Duration `env:"AUTH_SESSION_TTL"       envDefault:"24h"`
	EventsBackend EventsBackend `env:"SESSION_EVENTS_BACKEND" envDefault:"redis"`
	KeyPrefix     string        `env:"SESSION_KEY_PREFIX"     envDefault:"session:"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// FederatedMode determines which federated provider to use.
	FederatedMode AuthMode `env:"AUTH_FEDERATED_MODE" envDefault:"oauth"`

	// OAuth configuration (used when FederatedMode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when FederatedMode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// LocalIDP configures password accounts.
	LocalIDP LocalIDPConfig `envPrefix:"LOCALIDP_"`

	Session SessionConfig

	// RequireVerifiedEmail blocks password sign-in until the email is verified.
	RequireVerifiedEmail bool `env:"AUTH_REQUIRE_VERIFIED_EMAIL" envDefault:"false"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Session.TTL <= 0 {
		a.Session.TTL = 24 * time.Hour
	}
	if a.Session.EventsBackend == "" {
		a.Session.EventsBackend = EventsBackendRedis
	}
	if strings.TrimSpace(a.Session.KeyPrefix) == "" {
		a.Session.KeyPrefix = "session:"
	}
	if a.LocalIDP.MinPasswordLength < 6 {
		a.LocalIDP.MinPasswordLength = 6
	}
	if a.FederatedMode == "" {
		a.FederatedMode = AuthModeOAuth
	}
	// OAuth without credentials cannot start a flow.
	if a.FederatedMode == AuthModeOAuth &&
		(strings.TrimSpace(a.OAuth.ClientID) == "" || strings.TrimSpace(a.OAuth.ClientSecret) == "") {
		a.FederatedMode = AuthModeDisabled
	}
}
