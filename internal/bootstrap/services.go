package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Chavhanmoin/CrackBatu/config"
	"github.com/Chavhanmoin/CrackBatu/internal/data"
	httpx "github.com/Chavhanmoin/CrackBatu/internal/http"
	"github.com/Chavhanmoin/CrackBatu/internal/observability/metrics"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
	"github.com/Chavhanmoin/CrackBatu/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Profiles *service.ProfileService
	Auth     *service.AuthService
	Resolver *service.SessionResolver
	Metrics  *metrics.Recorder
	Sessions *SessionBackend
	// Readiness pings the database and Redis for GET /readyz.
	Readiness map[string]httpx.HealthCheck
}

// Close releases resources owned by the container.
func (c *ServiceContainer) Close() {
	if c != nil {
		c.Sessions.Close()
	}
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger

	// Optional overrides, mostly for tests. Postgres repositories are used when nil.
	ProfileStore    ports.ProfileStore
	CredentialStore ports.CredentialStore
	Registry        *prometheus.Registry
	HTTPClient      *http.Client
}

// newRegistry returns a registry carrying the Go runtime and process collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewServices wires repositories, identity providers and the session
// backend into the services the HTTP layer consumes.
func NewServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps require config")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	profileStore := deps.ProfileStore
	if profileStore == nil {
		profileStore = data.NewProfileRepo(deps.DB)
	}
	credentials := deps.CredentialStore
	if credentials == nil {
		credentials = data.NewCredentialRepo(deps.DB)
	}
	reg := deps.Registry
	if reg == nil {
		reg = newRegistry()
	}
	recorder := metrics.New(reg)

	backend, err := BuildSessionBackend(SessionBackendConfig{
		Session:     cfg.Auth.Session,
		RedisClient: deps.RedisClient,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build session backend: %w", err)
	}

	providers, err := BuildIdentityProviders(ctx, AuthConfig{
		Auth:        cfg.Auth,
		Credentials: credentials,
		HTTPClient:  deps.HTTPClient,
		Logger:      logger,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	profiles := service.NewProfileService(service.ProfileServiceOptions{
		Store:   profileStore,
		Logger:  logger,
		Metrics: recorder,
	})

	auth := service.NewAuthService(service.AuthServiceOptions{
		Providers: providers,
		Sessions:  service.SessionDeps{Store: backend.Store, Events: backend.Events},
		Profiles:  profiles,
		Policy: service.AuthPolicy{
			SessionTTL:           cfg.Auth.Session.TTL,
			RequireVerifiedEmail: cfg.Auth.RequireVerifiedEmail,
		},
		Logger:  logger,
		Metrics: recorder,
	})

	resolver := service.NewSessionResolver(service.SessionResolverOptions{
		Sessions: backend.Store,
		Profiles: profileStore,
		Events:   backend.Events,
		Logger:   logger,
		Metrics:  recorder,
	})

	return &ServiceContainer{
		Profiles:  profiles,
		Auth:      auth,
		Resolver:  resolver,
		Metrics:   recorder,
		Sessions:  backend,
		Readiness: readinessChecks(deps.DB, deps.RedisClient),
	}, nil
}

func readinessChecks(db *sql.DB, client redis.UniversalClient) map[string]httpx.HealthCheck {
	checks := make(map[string]httpx.HealthCheck, 2)
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return checks
}

// ServiceOrchestrationConfig contains dependencies for running the portal.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown serves HTTP until ctx is cancelled or the server
// fails, then drains in-flight requests within the shutdown timeout.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("service orchestration config requires config and services")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := NewHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	// Request contexts end with gctx so open event streams let Shutdown finish.
	server.BaseContext = func(net.Listener) context.Context { return gctx }
	g.Go(func() error {
		logger.InfoContext(gctx, "starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down services...")
		return ShutdownHTTPServer(ShutdownConfig{
			Server:  server,
			Timeout: cfg.Config.HTTP.ShutdownTimeout,
			Logger:  logger,
		})
	})

	return g.Wait()
}
