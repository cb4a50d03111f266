package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
)

const (
	sessionCookieName      = "session_id"
	oauthStateCookieName   = "oauth_state"
	oauthNonceCookieName   = "oauth_nonce"
	postLoginRedirectName  = "post_login_redirect"
	oauthCookieMaxAgeSecs  = 600
	defaultPostLoginTarget = "/dashboard"
)

// cookieJar writes the portal's cookies with consistent attributes.
type cookieJar struct {
	Domain string
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func (c cookieJar) set(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clear expires a cookie immediately, mirroring the attributes used to set it.
func (c cookieJar) clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookieJar) setSession(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	c.set(w, r, sessionCookieName, s.ID, max(int(time.Until(s.ExpiresAt).Seconds()), 1))
}

// oauthCookieParams groups values needed to set OAuth cookies.
type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

func (c cookieJar) setOAuth(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	c.set(w, r, oauthStateCookieName, p.State, oauthCookieMaxAgeSecs)
	c.set(w, r, oauthNonceCookieName, p.Nonce, oauthCookieMaxAgeSecs)
	if p.RedirectURI != "" {
		c.set(w, r, postLoginRedirectName, p.RedirectURI, oauthCookieMaxAgeSecs)
	}
}

func (c cookieJar) clearOAuth(w http.ResponseWriter, r *http.Request) {
	c.clear(w, r, oauthStateCookieName)
	c.clear(w, r, oauthNonceCookieName)
}

// postLoginRedirect returns the stored redirect, or fallback, and clears the cookie.
func (c cookieJar) postLoginRedirect(w http.ResponseWriter, r *http.Request, fallback string) string {
	target := fallback
	if target == "" {
		target = defaultPostLoginTarget
	}
	if rc, err := r.Cookie(postLoginRedirectName); err == nil {
		if safe := safeRedirectPath(rc.Value); safe != "/" {
			target = safe
		}
		c.clear(w, r, postLoginRedirectName)
	}
	return target
}

func sessionIDFromRequest(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	// Browsers treat "\" as "/", so "/\host" would leave the origin.
	if strings.ContainsFunc(candidate, isUnsafeRedirectRune) {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") ||
		strings.HasPrefix(candidate, "//") || strings.ContainsFunc(u.Path, isUnsafeRedirectRune) {
		return "/"
	}
	return candidate
}

func isUnsafeRedirectRune(r rune) bool {
	return r == '\\' || unicode.IsControl(r)
}
