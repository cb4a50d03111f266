package httpx

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/Chavhanmoin/CrackBatu/internal/domain/access"
	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
	"github.com/Chavhanmoin/CrackBatu/internal/service"
)

// AuthServiceInterface defines the auth operations the handlers need.
type AuthServiceInterface interface {
	SignIn(ctx context.Context, email, password string) (*service.SignInResult, error)
	AdminSignIn(ctx context.Context, email, password string) (*service.SignInResult, error)
	SignUp(ctx context.Context, in ports.SignUpInput) (*service.SignUpResult, error)
	SendPasswordReset(ctx context.Context, email string) error
	BeginFederated(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteFederated(ctx context.Context, input service.CompleteLoginInput) (*service.SignInResult, error)
	SignOut(ctx context.Context, sessionID string) error
}

// SessionSource resolves sessions once or as a live feed.
type SessionSource interface {
	Snapshotter
	Resolve(ctx context.Context, sessionID string) (*service.Subscription, error)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc      AuthServiceInterface
	Sessions SessionSource
	Cookies  cookieJar
	BaseURL  string
	Logger   *slog.Logger
	Stream   StreamOptions
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// decodeCredentials accepts either a JSON body or a urlencoded form.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		if !DecodeJSON(w, r, &req) {
			return req, false
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
			return req, false
		}
		req = credentialsRequest{
			Email:    r.PostForm.Get("email"),
			Password: r.PostForm.Get("password"),
			Name:     r.PostForm.Get("name"),
		}
	}
	req.Email = strings.TrimSpace(req.Email)
	return req, true
}

type redirectResponse struct {
	RedirectTo string           `json:"redirect_to"`
	Profile    *profile.Profile `json:"profile,omitempty"`
}

// Login handles POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	res, err := h.Svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	h.Cookies.setSession(w, r, res.Session)
	respondRedirect(w, r, http.StatusOK, redirectResponse{RedirectTo: res.RedirectTo, Profile: res.Profile})
}

// AdminLogin handles POST /auth/admin/login.
func (h *AuthHandlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	res, err := h.Svc.AdminSignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	h.Cookies.setSession(w, r, res.Session)
	respondRedirect(w, r, http.StatusOK, redirectResponse{RedirectTo: res.RedirectTo, Profile: res.Profile})
}

type signUpResponse struct {
	RedirectTo          string           `json:"redirect_to"`
	Profile             *profile.Profile `json:"profile,omitempty"`
	VerificationPending bool             `json:"verification_pending,omitempty"`
}

// SignUp handles POST /auth/signup.
func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	res, err := h.Svc.SignUp(r.Context(), ports.SignUpInput{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	body := signUpResponse{RedirectTo: res.RedirectTo, Profile: res.Profile}
	if res.Session == nil {
		body.VerificationPending = res.VerificationPending
		WriteJSON(w, http.StatusAccepted, body)
		return
	}
	h.Cookies.setSession(w, r, *res.Session)
	if IsBrowserRequest(r) {
		http.Redirect(w, r, res.RedirectTo, http.StatusSeeOther)
		return
	}
	WriteJSON(w, http.StatusCreated, body)
}

// PasswordReset handles POST /auth/password-reset.
func (h *AuthHandlers) PasswordReset(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	if err := h.Svc.SendPasswordReset(r.Context(), req.Email); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// Google starts the federated flow.
// GET /auth/google?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Google(w http.ResponseWriter, r *http.Request) {
	redirectURI := r.URL.Query().Get("redirect_uri")
	if redirectURI != "" {
		redirectURI = safeRedirectPath(redirectURI)
	}

	result, err := h.Svc.BeginFederated(r.Context(), strings.TrimRight(h.BaseURL, "/")+"/auth/callback")
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	h.Cookies.setOAuth(w, r, oauthCookieParams{State: result.State, Nonce: result.Nonce, RedirectURI: redirectURI})
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback completes the federated flow.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     errors.New("authorization code is required"),
		})
		return
	}
	if state == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_state",
			Err:     errors.New("state parameter is required"),
		})
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonceCookie, err := r.Cookie(oauthNonceCookieName)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}

	res, err := h.Svc.CompleteFederated(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	h.Cookies.clearOAuth(w, r)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	h.Cookies.setSession(w, r, res.Session)
	http.Redirect(w, r, h.Cookies.postLoginRedirect(w, r, res.RedirectTo), http.StatusFound)
}

// Logout handles POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := sessionIDFromRequest(r); sid != "" {
		if err := h.Svc.SignOut(r.Context(), sid); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	h.Cookies.clear(w, r, sessionCookieName)

	target := access.StudentLoginPath
	if candidate := r.URL.Query().Get("redirect_uri"); candidate != "" {
		target = safeRedirectPath(candidate)
	}
	if IsBrowserRequest(r) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": target})
}

type userView struct {
	SubjectID     string            `json:"subject_id"`
	Email         string            `json:"email"`
	Name          string            `json:"name"`
	EmailVerified bool              `json:"email_verified"`
	Method        domainauth.Method `json:"method"`
}

// sessionView is the wire form of a SessionContext.
type sessionView struct {
	Resolved      bool             `json:"resolved"`
	Authenticated bool             `json:"authenticated"`
	Provisioned   bool             `json:"provisioned"`
	User          *userView        `json:"user,omitempty"`
	Profile       *profile.Profile `json:"profile,omitempty"`
	Error         string           `json:"error,omitempty"`
	Retryable     bool             `json:"retryable,omitempty"`
}

func newSessionView(sc access.SessionContext) sessionView {
	v := sessionView{
		Resolved:      sc.Resolved,
		Authenticated: sc.Authenticated(),
		Provisioned:   sc.Provisioned(),
		Profile:       sc.Profile,
	}
	if id := sc.Identity; id != nil {
		v.User = &userView{
			SubjectID:     id.SubjectID,
			Email:         id.Email,
			Name:          id.Name,
			EmailVerified: id.EmailVerified,
			Method:        id.Method,
		}
	}
	if sc.Err != nil {
		v.Error = "Your profile could not be loaded. Please try again."
		v.Retryable = true
	}
	return v
}

// Status returns the current session state.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sid := sessionIDFromRequest(r)
	sc := h.Sessions.Snapshot(r.Context(), sid)
	if sc.Err != nil {
		h.logger().WarnContext(r.Context(), "session status degraded", "error", sc.Err)
	} else if sid != "" && !sc.Authenticated() {
		h.Cookies.clear(w, r, sessionCookieName)
	}
	WriteJSON(w, http.StatusOK, newSessionView(sc))
}

// writeAuthError maps service failures to responses. Provider failures keep
// their user-facing message; store failures are retryable.
func (h *AuthHandlers) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if ae, ok := domainauth.AsAuthError(err); ok {
		WriteError(w, ErrorParams{Code: authErrorStatus(ae.Kind), ErrCode: string(ae.Kind), Message: ae.Message()})
		return
	}

	switch {
	case errors.Is(err, service.ErrNoAdminRecord):
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "no_admin_record",
			Message: service.NoAdminRecordMessage,
		})
	case errors.Is(err, service.ErrFederatedDisabled):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "federated_disabled", Err: err})
	case profile.IsFetchError(err), profile.IsWriteError(err):
		h.logger().ErrorContext(r.Context(), "profile store failure", "path", r.URL.Path, "error", err)
		WriteError(w, ErrorParams{
			Code:      http.StatusServiceUnavailable,
			ErrCode:   "profile_unavailable",
			Message:   "Your profile could not be saved or loaded. Please try again.",
			Retryable: true,
		})
	default:
		h.logger().ErrorContext(r.Context(), "auth request failed", "path", r.URL.Path, "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal_error",
			Message: "Something went wrong. Please try again.",
		})
	}
}

func authErrorStatus(kind domainauth.ErrorKind) int {
	switch kind {
	case domainauth.ErrInvalidCredential, domainauth.ErrUserNotFound:
		return http.StatusUnauthorized
	case domainauth.ErrInvalidEmail, domainauth.ErrWeakPassword:
		return http.StatusBadRequest
	case domainauth.ErrEmailInUse:
		return http.StatusConflict
	case domainauth.ErrEmailNotVerified:
		return http.StatusForbidden
	case domainauth.ErrProvider:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// respondRedirect sends browser form posts on with 303 and answers API
// callers with the JSON body.
func respondRedirect(w http.ResponseWriter, r *http.Request, code int, body redirectResponse) {
	if IsBrowserRequest(r) {
		http.Redirect(w, r, body.RedirectTo, http.StatusSeeOther)
		return
	}
	WriteJSON(w, code, body)
}

// loginURL builds a login page URL that returns to redirectURI afterwards.
func loginURL(loginPath, redirectURI string) string {
	u := url.URL{Path: loginPath}
	if redirectURI != "" {
		u.RawQuery = url.Values{"redirect_uri": {redirectURI}}.Encode()
	}
	return u.String()
}
