package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Chavhanmoin/CrackBatu/config"
	"github.com/Chavhanmoin/CrackBatu/internal/adapters/devauth"
	"github.com/Chavhanmoin/CrackBatu/internal/adapters/localidp"
	"github.com/Chavhanmoin/CrackBatu/internal/adapters/oidc"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
	"github.com/Chavhanmoin/CrackBatu/internal/service"
)

// AuthConfig contains configuration for the identity providers.
type AuthConfig struct {
	Auth        config.AuthConfig
	Credentials ports.CredentialStore
	HTTPClient  *http.Client // Optional; used for OIDC discovery and token exchange
	Logger      *slog.Logger
}

// BuildIdentityProviders creates the password provider and, depending on the
// federated mode, a Google provider. A federated provider that cannot be built
// is logged and left nil so password sign-in keeps working.
func BuildIdentityProviders(ctx context.Context, cfg AuthConfig) (service.IdentityProviders, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	password, err := localidp.New(localidp.Config{
		Store:             cfg.Credentials,
		Logger:            logger,
		MinPasswordLength: cfg.Auth.LocalIDP.MinPasswordLength,
		AutoVerify:        cfg.Auth.LocalIDP.AutoVerify,
	})
	if err != nil {
		return service.IdentityProviders{}, fmt.Errorf("build password provider: %w", err)
	}

	providers := service.IdentityProviders{Password: password}

	switch cfg.Auth.FederatedMode {
	case config.AuthModeMock:
		prov, devErr := devauth.NewProvider(devauth.Config{
			SubjectID: cfg.Auth.DevAuth.SubjectID,
			Email:     cfg.Auth.DevAuth.Email,
			Name:      cfg.Auth.DevAuth.Name,
		})
		if devErr != nil {
			logger.WarnContext(ctx, "failed to create dev auth provider, federated sign-in disabled", "error", devErr)
			break
		}
		providers.Federated = prov

	case config.AuthModeOAuth:
		oauth := cfg.Auth.OAuth
		prov, oidcErr := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Scope:        oauth.Scope,
			DiscoveryURL: oauth.DiscoveryURL,
			HTTPClient:   cfg.HTTPClient,
		})
		if oidcErr != nil {
			logger.WarnContext(ctx, "failed to create OIDC provider, federated sign-in disabled", "error", oidcErr)
			break
		}
		providers.Federated = prov

	default:
		logger.InfoContext(ctx, "federated sign-in disabled", "mode", cfg.Auth.FederatedMode)
	}

	return providers, nil
}
