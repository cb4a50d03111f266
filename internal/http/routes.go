package httpx

import (
	"log/slog"
	"net/http"

	"github.com/Chavhanmoin/CrackBatu/internal/domain/access"
	"github.com/Chavhanmoin/CrackBatu/internal/observability/metrics"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth     AuthServiceInterface // Optional; auth routes are skipped when nil
	Sessions SessionSource        // Required
	Users    UserLister           // Required
	Metrics  *metrics.Recorder    // Optional

	// Readiness checks back GET /readyz; an empty map always reports ready.
	Readiness map[string]HealthCheck
	// MetricsPath exposes Metrics when both are set.
	MetricsPath  string
	CookieDomain string
	BaseURL      string
	Stream       StreamOptions
	Logger       *slog.Logger
}

// NewRouter creates and configures a new HTTP router with browser detection.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()
	cookies := cookieJar{Domain: services.CookieDomain}

	gate := &Gatekeeper{Resolver: services.Sessions, Metrics: services.Metrics, Logger: services.Logger}
	pages := &PageHandlers{Directory: services.Users, Logger: services.Logger}
	registerPageRoutes(mux, gate, pages)

	if services.Auth != nil {
		registerAuthRoutes(mux, &AuthHandlers{
			Svc:      services.Auth,
			Sessions: services.Sessions,
			Cookies:  cookies,
			BaseURL:  services.BaseURL,
			Logger:   services.Logger,
			Stream:   services.Stream,
		})
	}

	mux.HandleFunc("GET /healthz", liveness)
	mux.HandleFunc("HEAD /healthz", liveness)
	mux.Handle("GET /readyz", readiness(services.Readiness, services.Logger))
	if services.Metrics != nil && services.MetricsPath != "" {
		mux.Handle("GET "+services.MetricsPath, services.Metrics.Handler())
	}

	return BrowserDetection()(mux)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/admin/login", h.AdminLogin)
	mux.HandleFunc("POST /auth/signup", h.SignUp)
	mux.HandleFunc("POST /auth/password-reset", h.PasswordReset)
	mux.HandleFunc("GET /auth/google", h.Google)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
	mux.HandleFunc("GET /auth/events", h.Events)
}

func registerPageRoutes(mux *http.ServeMux, gate *Gatekeeper, h *PageHandlers) {
	page := func(req access.Requirement, fn http.HandlerFunc) http.Handler {
		return gate.Require(req)(fn)
	}

	mux.Handle("GET /dashboard", page(access.Requirement{
		Capability: access.CapabilityNone,
		Audience:   access.AudienceStudent,
	}, h.Dashboard))
	mux.Handle("GET /admin/dashboard", page(access.Requirement{
		Capability: access.CapabilityAnyAdmin,
		Audience:   access.AudienceAdmin,
	}, h.AdminDashboard))
	mux.Handle("GET /admin/users", page(access.Requirement{
		Capability: access.CapabilityAnyAdmin,
		Audience:   access.AudienceAdmin,
	}, h.Users))
	mux.Handle("GET /admin/approvals", page(access.Requirement{
		Capability: access.CapabilitySuperAdminOnly,
		Audience:   access.AudienceAdmin,
	}, h.Approvals))
	mux.Handle("GET /admin/departments/{dept}", gate.RequireFor(departmentRequirement)(http.HandlerFunc(h.Department)))
}
