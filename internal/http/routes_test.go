package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
	"github.com/Chavhanmoin/CrackBatu/internal/testutil"
)

type pageResponse struct {
	Page       string              `json:"page"`
	Department *profile.Department `json:"department"`
	Links      []Link              `json:"links"`
	Users      []profile.Profile   `json:"users"`
	RedirectTo string              `json:"redirect_to"`
	Error      string              `json:"error"`
	Retryable  bool                `json:"retryable"`
}

func TestRoutes_Healthz(t *testing.T) {
	t.Parallel()
	f := newPortalFixture(t)

	get := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, get.Code)
	assert.JSONEq(t, healthResponse, get.Body.String())

	head := f.do(httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusOK, head.Code)
	assert.Empty(t, head.Body.String())
}

func TestRoutes_Readyz(t *testing.T) {
	t.Parallel()

	down := errors.New("connection refused")
	tests := []struct {
		name     string
		checks   map[string]HealthCheck
		wantCode int
		wantBody string
	}{
		{name: "no checks", wantCode: http.StatusOK, wantBody: `{"status":"ok"}`},
		{
			name: "all healthy",
			checks: map[string]HealthCheck{
				"postgres": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return nil },
			},
			wantCode: http.StatusOK,
			wantBody: `{"status":"ok","checks":{"postgres":"ok","redis":"ok"}}`,
		},
		{
			name: "redis down",
			checks: map[string]HealthCheck{
				"postgres": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return down },
			},
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"status":"unavailable","checks":{"postgres":"ok","redis":"unavailable"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewRouter(RouterServices{Readiness: tt.checks})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		})
	}
}

func TestRoutes_PageGate(t *testing.T) {
	t.Parallel()

	student := testutil.NewProfile("s1").Build()
	civil := testutil.NewProfile("c1").DepartmentAdmin(profile.DepartmentCivil).Build()
	super := testutil.NewProfile("root").SuperAdmin().Build()
	invalid := testutil.NewProfile("x1").WithRole("dean").Build()

	tests := []struct {
		name      string
		viewer    *profile.Profile
		path      string
		wantCode  int
		wantError string
		wantLogin string
	}{
		{name: "anonymous dashboard", path: "/dashboard", wantCode: http.StatusUnauthorized,
			wantLogin: "/login?redirect_uri=%2Fdashboard"},
		{name: "anonymous admin page", path: "/admin/users", wantCode: http.StatusUnauthorized,
			wantLogin: "/admin/login?redirect_uri=%2Fadmin%2Fusers"},
		{name: "student dashboard", viewer: &student, path: "/dashboard", wantCode: http.StatusOK},
		{name: "invalid role dashboard", viewer: &invalid, path: "/dashboard", wantCode: http.StatusOK},
		{name: "invalid role admin page", viewer: &invalid, path: "/admin/dashboard",
			wantCode: http.StatusForbidden, wantError: "forbidden"},
		{name: "student admin dashboard", viewer: &student, path: "/admin/dashboard",
			wantCode: http.StatusForbidden, wantError: "forbidden"},
		{name: "department admin approvals", viewer: &civil, path: "/admin/approvals",
			wantCode: http.StatusForbidden, wantError: "forbidden"},
		{name: "super admin approvals", viewer: &super, path: "/admin/approvals", wantCode: http.StatusOK},
		{name: "own department", viewer: &civil, path: "/admin/departments/civil", wantCode: http.StatusOK},
		{name: "other department", viewer: &civil, path: "/admin/departments/Computer",
			wantCode: http.StatusForbidden, wantError: "forbidden"},
		{name: "super admin any department", viewer: &super, path: "/admin/departments/First%20Year",
			wantCode: http.StatusOK},
		{name: "unknown department", viewer: &super, path: "/admin/departments/Law",
			wantCode: http.StatusNotFound, wantError: "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newPortalFixture(t)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Accept", "application/json")
			if tt.viewer != nil {
				req.AddCookie(f.signedIn(t, *tt.viewer))
			}

			rec := f.do(req)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			body := decodeBody[pageResponse](t, rec)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body.Error)
			}
			if tt.wantLogin != "" {
				assert.Equal(t, tt.wantLogin, body.RedirectTo)
			}
		})
	}
}

func TestRoutes_BrowserRedirectsToLogin(t *testing.T) {
	t.Parallel()
	f := newPortalFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard?dept=Civil", nil)
	req.Header.Set("Accept", "text/html")

	rec := f.do(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login?redirect_uri=%2Fadmin%2Fdashboard%3Fdept%3DCivil", rec.Header().Get("Location"))
}

func TestRoutes_IdentityWithoutProfileRedirects(t *testing.T) {
	t.Parallel()
	f := newPortalFixture(t)
	cookie := f.signedIn(t, testutil.NewProfile("u1").Build())
	f.profiles.GetFunc = func(context.Context, string) (*profile.Profile, error) {
		return nil, profile.ErrNotFound
	}
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)

	rec := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "not_provisioned", decodeBody[pageResponse](t, rec).Error)
}

func TestRoutes_ProfileStoreDownIsRetryable(t *testing.T) {
	t.Parallel()
	f := newPortalFixture(t)
	cookie := f.signedIn(t, testutil.NewProfile("root").SuperAdmin().Build())
	f.profiles.GetFunc = func(context.Context, string) (*profile.Profile, error) {
		return nil, errors.New("connection reset")
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(cookie)

	rec := f.do(req)

	// Never a redirect, even for browsers.
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, decodeBody[pageResponse](t, rec).Retryable)
}

func TestRoutes_AdminDashboardLinks(t *testing.T) {
	t.Parallel()

	labels := func(links []Link) []string {
		out := make([]string, 0, len(links))
		for _, l := range links {
			out = append(out, l.Label)
		}
		return out
	}

	t.Run("super admin", func(t *testing.T) {
		t.Parallel()
		f := newPortalFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard?dept=first%20year", nil)
		req.AddCookie(f.signedIn(t, testutil.NewProfile("root").SuperAdmin().Build()))

		body := decodeBody[pageResponse](t, f.do(req))

		assert.Equal(t, []string{"Manage All Departments", "Approve Deletes", "Edit or Delete Any Content"}, labels(body.Links))
		require.NotNil(t, body.Department)
		assert.Equal(t, profile.DepartmentFirstYear, *body.Department)
	})

	t.Run("department admin ignores other department", func(t *testing.T) {
		t.Parallel()
		f := newPortalFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard?dept=Computer", nil)
		req.AddCookie(f.signedIn(t, testutil.NewProfile("c1").DepartmentAdmin(profile.DepartmentCivil).Build()))

		body := decodeBody[pageResponse](t, f.do(req))

		assert.Equal(t,
			[]string{"Manage your Department", "Upload or Edit Content", "Delete requires Super Admin Approval"},
			labels(body.Links))
		assert.Equal(t, "/admin/departments/Civil", body.Links[0].Href)
		require.NotNil(t, body.Department)
		assert.Equal(t, profile.DepartmentCivil, *body.Department)
	})
}

func TestRoutes_AdminUsersScoping(t *testing.T) {
	t.Parallel()
	f := newPortalFixture(t)
	f.profiles.Put(testutil.NewProfile("s1").Build())
	f.profiles.Put(testutil.NewProfile("m1").DepartmentAdmin(profile.DepartmentMechanical).Build())
	civilCookie := f.signedIn(t, testutil.NewProfile("c1").DepartmentAdmin(profile.DepartmentCivil).Build())
	superCookie := f.signedIn(t, testutil.NewProfile("root").SuperAdmin().Build())

	list := func(cookie *http.Cookie) []string {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.AddCookie(cookie)
		rec := f.do(req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var ids []string
		for _, u := range decodeBody[pageResponse](t, rec).Users {
			ids = append(ids, u.SubjectID)
		}
		return ids
	}

	assert.ElementsMatch(t, []string{"s1", "m1", "c1", "root"}, list(superCookie))
	assert.Equal(t, []string{"c1"}, list(civilCookie))
}

func TestRoutes_DepartmentListing(t *testing.T) {
	t.Parallel()
	f := newPortalFixture(t)
	f.profiles.Put(testutil.NewProfile("m1").DepartmentAdmin(profile.DepartmentMechanical).Build())
	req := httptest.NewRequest(http.MethodGet, "/admin/departments/mechanical", nil)
	req.AddCookie(f.signedIn(t, testutil.NewProfile("root").SuperAdmin().Build()))

	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[pageResponse](t, rec)
	require.Len(t, body.Users, 1)
	assert.Equal(t, "m1", body.Users[0].SubjectID)
	require.NotNil(t, body.Department)
	assert.Equal(t, profile.DepartmentMechanical, *body.Department)
}

func TestRoutes_Metrics(t *testing.T) {
	t.Parallel()
	f := newPortalFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	raw, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `portal_gate_decisions_total{capability="none",outcome="redirect",reason="unauthenticated"} 1`)
}

func TestRoutes_AuthRoutesOptional(t *testing.T) {
	t.Parallel()
	f := newPortalFixture(t)
	h := NewRouter(RouterServices{Sessions: f.resolver, Users: nil})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
