package bootstrap

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chavhanmoin/CrackBatu/config"
	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	authmocks "github.com/Chavhanmoin/CrackBatu/internal/mocks/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/service"
	"github.com/Chavhanmoin/CrackBatu/internal/testutil"
)

func testConfig(backend config.EventsBackend) *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.Auth.FederatedMode = config.AuthModeDisabled
	cfg.Auth.Session = config.SessionConfig{TTL: time.Hour, EventsBackend: backend, KeyPrefix: "portal-test:"}
	cfg.Auth.LocalIDP.MinPasswordLength = 6
	cfg.Observability.Metrics = config.ObservabilityMetricsConfig{Enabled: true, Path: "/internal/metrics"}
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.HTTP.ShutdownTimeout = time.Second
	return cfg
}

func newTestServices(t *testing.T, cfg *config.AppConfig, profiles *authmocks.MemoryProfileStore) *ServiceContainer {
	t.Helper()
	svc, err := NewServices(context.Background(), &ServiceDeps{
		Config:       cfg,
		RedisClient:  testutil.NewMiniRedis(t),
		Logger:       discardLogger(),
		ProfileStore: profiles,
		Registry:     prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestNewServices_RequiresRedis(t *testing.T) {
	t.Parallel()
	_, err := NewServices(context.Background(), &ServiceDeps{Config: testConfig(config.EventsBackendRedis)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestNewServices_SessionLifecycle(t *testing.T) {
	t.Parallel()

	for _, backend := range []config.EventsBackend{config.EventsBackendRedis, config.EventsBackendLocal} {
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()
			profiles := authmocks.NewMemoryProfileStore()
			svc := newTestServices(t, testConfig(backend), profiles)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_, err := svc.Auth.BeginFederated(ctx, "https://portal.example.edu/auth/callback")
			require.ErrorIs(t, err, service.ErrFederatedDisabled)

			p := testutil.NewProfile("u1").Build()
			profiles.Put(p)
			id := testutil.Identity(p.SubjectID)
			require.NoError(t, svc.Sessions.Store.Save(ctx, domainauth.Session{
				ID:        "sess-1",
				SubjectID: id.SubjectID,
				Email:     id.Email,
				Method:    id.Method,
				ExpiresAt: time.Now().Add(time.Hour),
			}))

			sub, err := svc.Resolver.Resolve(ctx, "sess-1")
			require.NoError(t, err)
			defer sub.Close()

			first := <-sub.Updates()
			require.True(t, first.Provisioned())

			require.NoError(t, svc.Auth.SignOut(ctx, "sess-1"))

			select {
			case next := <-sub.Updates():
				assert.False(t, next.Authenticated())
			case <-ctx.Done():
				t.Fatal("no update after sign-out")
			}
		})
	}
}

func TestBuildHTTPHandler_MetricsPath(t *testing.T) {
	t.Parallel()
	cfg := testConfig(config.EventsBackendLocal)
	svc := newTestServices(t, cfg, authmocks.NewMemoryProfileStore())

	h := BuildHTTPHandler(&HTTPServerConfig{Config: cfg, Services: svc, Logger: discardLogger()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portal_session_subscriptions")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	cfg.Observability.Metrics.Enabled = false
	h = BuildHTTPHandler(&HTTPServerConfig{Config: cfg, Services: svc, Logger: discardLogger()})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuildHTTPHandler_ReadinessPingsRedis(t *testing.T) {
	t.Parallel()
	cfg := testConfig(config.EventsBackendLocal)
	svc := newTestServices(t, cfg, authmocks.NewMemoryProfileStore())
	require.Contains(t, svc.Readiness, "redis")
	assert.NotContains(t, svc.Readiness, "postgres")

	h := BuildHTTPHandler(&HTTPServerConfig{Config: cfg, Services: svc, Logger: discardLogger()})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"redis":"ok"}}`, rec.Body.String())
}

func TestNewServices_DefaultRegistryHasRuntimeCollectors(t *testing.T) {
	t.Parallel()
	cfg := testConfig(config.EventsBackendLocal)
	svc, err := NewServices(context.Background(), &ServiceDeps{
		Config:       cfg,
		RedisClient:  testutil.NewMiniRedis(t),
		Logger:       discardLogger(),
		ProfileStore: authmocks.NewMemoryProfileStore(),
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	rec := httptest.NewRecorder()
	svc.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRunServicesWithShutdown_StopsOnCancel(t *testing.T) {
	t.Parallel()
	cfg := testConfig(config.EventsBackendLocal)
	svc := newTestServices(t, cfg, authmocks.NewMemoryProfileStore())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunServicesWithShutdown(ctx, &ServiceOrchestrationConfig{Config: cfg, Services: svc, Logger: discardLogger()})
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestInitLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := InitLogger("chatty")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger = InitLogger("debug")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestInitLogger_DebugAddsSource(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	initLogger(&buf, "debug").Debug("probe")
	assert.Contains(t, buf.String(), `"service":"portal"`)
	assert.Contains(t, buf.String(), `"source"`)

	buf.Reset()
	initLogger(&buf, "info").Info("probe")
	assert.Contains(t, buf.String(), `"service":"portal"`)
	assert.NotContains(t, buf.String(), `"source"`)
}
