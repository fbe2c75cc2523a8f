package auth

import (
	"net/http"
	"time"
)

// SetSessionCookie stores the token in an HttpOnly cookie.
//
//   - HttpOnly: JavaScript cannot read it (XSS cannot steal the token)
//   - SameSite=Lax: sent on top-level navigations, not on cross-site POSTs
//   - Secure: only in production, where the app is served over HTTPS
//   - MaxAge: the token TTL, so the cookie never outlives its token
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to delete the session cookie.
//
// Since sessions are stateless, "logout" only removes the client copy; the
// token itself stays valid until it expires.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
