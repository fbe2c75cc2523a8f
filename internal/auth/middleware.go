package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/medtrack/internal/apperror"
	"github.com/sakif/medtrack/internal/model"
)

// SessionCookie is the name of the HttpOnly cookie carrying the session token.
const SessionCookie = "session-token"

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A package-private type means
// no other package can create a colliding key, so only this package can read
// or write the session value.
type contextKey string

const sessionKey contextKey = "session"

// Authenticator is the single authoritative session check. The gate
// middleware and every protected handler both call Authenticate, so the
// verification logic exists exactly once.
type Authenticator struct {
	tokens *TokenService
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator backed by the given TokenService.
func NewAuthenticator(tokens *TokenService, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, logger: logger}
}

// Tokens exposes the underlying TokenService (for issuing on login/signup).
func (a *Authenticator) Tokens() *TokenService {
	return a.tokens
}

// Authenticate resolves the session for a request.
//
// Errors:
//   - apperror.ErrConfiguration if no signing secret is configured
//   - apperror.ErrUnauthorized (ErrInvalidToken) for a missing, malformed,
//     forged or expired token
func (a *Authenticator) Authenticate(r *http.Request) (model.Session, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return model.Session{}, ErrInvalidToken
	}

	session, err := a.tokens.Verify(token)
	if err != nil {
		if !errors.Is(err, apperror.ErrConfiguration) {
			a.logger.Warn("invalid session token",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
		}
		return model.Session{}, err
	}
	return session, nil
}

// TokenFromRequest returns the session token from the Authorization header
// ("Bearer <token>") or, if the header is absent, from the session cookie.
// The header takes precedence when both are present.
func TokenFromRequest(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		// http.ErrNoCookie: anonymous request
		return ""
	}
	return cookie.Value
}

// Gate is the transport-level authorization check for the API namespace.
//
// Paths in publicPaths (and anything below them) pass straight through.
// Every other request must carry a valid session; otherwise the gate answers
// a uniform 401 before the handler runs, so no body is ever parsed for an
// unauthenticated caller.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new one that wraps it:
//
//	req → Gate → Handler → Gate → resp
func Gate(a *Authenticator, publicPaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path, publicPaths) {
				next.ServeHTTP(w, r)
				return
			}

			session, err := a.Authenticate(r)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session stored by Gate.
// Returns false for public routes and anonymous requests.
func SessionFromContext(ctx context.Context) (model.Session, bool) {
	session, ok := ctx.Value(sessionKey).(model.Session)
	return session, ok && session.Sub != ""
}

// isPublicPath matches exact paths and their sub-paths, so "/api/health"
// also allows "/api/health/" but not "/api/healthz".
func isPublicPath(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}` + "\n"))
}
