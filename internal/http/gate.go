package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Chavhanmoin/CrackBatu/internal/domain/access"
	"github.com/Chavhanmoin/CrackBatu/internal/observability/metrics"
)

// Snapshotter resolves the session behind a request.
type Snapshotter interface {
	Snapshot(ctx context.Context, sessionID string) access.SessionContext
}

// errPageNotFound is returned by requirement builders for pages that do not exist.
var errPageNotFound = errors.New("page not found")

// Gatekeeper guards pages with access requirements.
type Gatekeeper struct {
	Resolver Snapshotter
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
}

func (g *Gatekeeper) logger() *slog.Logger {
	if g != nil && g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// Require returns a middleware enforcing a fixed requirement.
func (g *Gatekeeper) Require(req access.Requirement) func(http.Handler) http.Handler {
	return g.RequireFor(func(*http.Request) (access.Requirement, error) { return req, nil })
}

// RequireFor returns a middleware enforcing a requirement derived from the
// request, e.g. from a path value. A builder error answers 404.
func (g *Gatekeeper) RequireFor(build func(*http.Request) (access.Requirement, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, err := build(r)
			if err != nil {
				WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err})
				return
			}

			sc := g.Resolver.Snapshot(r.Context(), sessionIDFromRequest(r))
			d := access.Evaluate(sc, req)
			g.Metrics.GateDecision(string(req.Capability), string(d.Outcome), string(d.Reason))

			switch d.Outcome {
			case access.Allow:
				next.ServeHTTP(w, r.WithContext(SetDecisionInContext(r.Context(), d)))
			case access.Redirect:
				g.redirectToLogin(w, r, d)
			case access.Forbidden:
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "forbidden",
					Message: "You do not have access to this page.",
				})
			case access.Unavailable:
				g.logger().WarnContext(r.Context(), "gate unavailable", "path", r.URL.Path, "error", sc.Err)
				WriteError(w, ErrorParams{
					Code:      http.StatusServiceUnavailable,
					ErrCode:   string(d.Reason),
					Message:   "Your profile could not be loaded. Please try again.",
					Retryable: true,
				})
			}
		})
	}
}

type redirectBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RedirectTo string `json:"redirect_to"`
}

// redirectToLogin sends browsers to the login page with a return path; API
// callers get a 401 naming the same target.
func (g *Gatekeeper) redirectToLogin(w http.ResponseWriter, r *http.Request, d access.Decision) {
	target := loginURL(d.RedirectTo, safeRedirectPath(r.URL.RequestURI()))
	if IsBrowserRequest(r) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	WriteJSON(w, http.StatusUnauthorized, redirectBody{
		Error:      string(d.Reason),
		Message:    "Sign in to continue.",
		RedirectTo: target,
	})
}
