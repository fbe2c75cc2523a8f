package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/medtrack/internal/auth"
	"github.com/sakif/medtrack/internal/model"
	"github.com/sakif/medtrack/internal/service"
)

// AuthHandler serves signup, login, logout and the current-session lookup.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup  → create an account, set the session cookie
//   - HandleLogin   → verify credentials, set the session cookie
//   - HandleLogout  → clear the session cookie
//   - HandleSession → return the identity in the current token
type AuthHandler struct {
	auth          *service.AuthService
	authn         *auth.Authenticator
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
//
// secureCookies sets the Secure flag on the session cookie; turn it on
// whenever the app is served over HTTPS (APP_ENV=production).
func NewAuthHandler(
	authService *service.AuthService,
	authn *auth.Authenticator,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:          authService,
		authn:         authn,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse wraps the public view of a user.
// model.User hides PasswordHash with json:"-".
type UserResponse struct {
	User *model.User `json:"user"`
}

// HandleSignup registers a new account.
//
// HTTP: POST /api/auth/signup
// REQUEST BODY: {"email": "alice@x.io", "password": "correct-horse"}
// RESPONSE: 201 {"user": {...}} and the session cookie
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.authn.Tokens().TTL(), h.secureCookies)
	writeJSON(w, http.StatusCreated, UserResponse{User: result.User})
}

// HandleLogin verifies credentials and starts a session.
//
// HTTP: POST /api/auth/login
// RESPONSE: 200 {"user": {...}} and the session cookie, or 401
// {"error": "Invalid credentials"} for any credential mismatch.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.authn.Tokens().TTL(), h.secureCookies)
	writeJSON(w, http.StatusOK, UserResponse{User: result.User})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/auth/logout
//
// Tokens are stateless, so there is nothing to revoke server-side. A copied
// bearer token stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// HandleSession returns the identity carried by the request's token.
//
// HTTP: GET /api/auth
// RESPONSE: {"sub": "<user id>", "email": "alice@x.io"}
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.authn, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// requireSession runs the same verification as the gate and writes the
// error response itself when there is no valid session.
//
// The gate has normally rejected anonymous requests already; calling
// Authenticate again means a handler mounted without the gate still cannot
// be reached anonymously.
func requireSession(w http.ResponseWriter, r *http.Request, authn *auth.Authenticator, logger *slog.Logger) (model.Session, bool) {
	session, err := authn.Authenticate(r)
	if err != nil {
		writeError(w, logger, err)
		return model.Session{}, false
	}
	return session, true
}
