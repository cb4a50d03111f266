package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Chavhanmoin/CrackBatu/internal/adapters/eventbus"
	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
	authmocks "github.com/Chavhanmoin/CrackBatu/internal/mocks/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/observability/metrics"
	"github.com/Chavhanmoin/CrackBatu/internal/service"
	"github.com/Chavhanmoin/CrackBatu/internal/testutil"
)

// portalFixture wires the real services over in-memory doubles.
type portalFixture struct {
	password  *authmocks.MockPasswordProvider
	federated *authmocks.MockFederatedProvider
	sessions  *authmocks.MemorySessionStore
	profiles  *authmocks.MemoryProfileStore
	bus       *eventbus.Bus
	metrics   *metrics.Recorder
	auth      *service.AuthService
	resolver  *service.SessionResolver
	handler   http.Handler
}

type fixtureOption func(*service.AuthServiceOptions)

func withoutFederated() fixtureOption {
	return func(o *service.AuthServiceOptions) { o.Providers.Federated = nil }
}

func newPortalFixture(t *testing.T, opts ...fixtureOption) *portalFixture {
	t.Helper()
	f := &portalFixture{
		password:  authmocks.NewMockPasswordProvider(),
		federated: authmocks.NewMockFederatedProvider(),
		sessions:  authmocks.NewMemorySessionStore(),
		profiles:  authmocks.NewMemoryProfileStore(),
		bus:       eventbus.New(8),
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	t.Cleanup(f.bus.Close)

	profiles := service.NewProfileService(service.ProfileServiceOptions{Store: f.profiles, Metrics: f.metrics})
	authOpts := service.AuthServiceOptions{
		Providers: service.IdentityProviders{Password: f.password, Federated: f.federated},
		Sessions:  service.SessionDeps{Store: f.sessions, Events: f.bus},
		Profiles:  profiles,
		Metrics:   f.metrics,
	}
	for _, opt := range opts {
		opt(&authOpts)
	}
	f.auth = service.NewAuthService(authOpts)
	f.resolver = service.NewSessionResolver(service.SessionResolverOptions{
		Sessions: f.sessions,
		Profiles: f.profiles,
		Events:   f.bus,
		Metrics:  f.metrics,
	})
	f.handler = NewRouter(RouterServices{
		Auth:        f.auth,
		Sessions:    f.resolver,
		Users:       profiles,
		Metrics:     f.metrics,
		MetricsPath: "/metrics",
		BaseURL:     "https://portal.example.edu",
	})
	return f
}

// signedIn stores p and a live session for it and returns the session cookie.
func (f *portalFixture) signedIn(t *testing.T, p profile.Profile) *http.Cookie {
	t.Helper()
	f.profiles.Put(p)
	id := testutil.Identity(p.SubjectID)
	sess := domainauth.Session{
		ID:            "sess-" + p.SubjectID,
		SubjectID:     id.SubjectID,
		Email:         id.Email,
		Name:          id.Name,
		EmailVerified: id.EmailVerified,
		Method:        id.Method,
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	require.NoError(t, f.sessions.Save(context.Background(), sess))
	return &http.Cookie{Name: sessionCookieName, Value: sess.ID}
}

func (f *portalFixture) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
