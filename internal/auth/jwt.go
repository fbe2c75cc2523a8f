// Package auth provides password hashing, session tokens and the request
// gate for the medtrack API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User signs up or logs in with email + password
//  2. Server verifies the password (bcrypt) and issues a JWT session token
//  3. The token is returned in an HttpOnly cookie; API clients may instead
//     send it as "Authorization: Bearer <token>"
//  4. The gate middleware verifies the token on every protected /api route
//     before the handler runs, and handlers re-resolve the session through
//     the same Authenticator
//
// WHY JWT?
// JWT is stateless: the server doesn't store sessions. Everything needed
// (user ID, email, expiry) is inside the signed token.
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","email":"a@b.c","iat":...,"exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/medtrack/internal/apperror"
	"github.com/sakif/medtrack/internal/model"
)

// DefaultSessionTTL is the token lifetime. The session cookie's Max-Age is
// derived from the TokenService TTL, so the two cannot drift apart.
const DefaultSessionTTL = 12 * time.Hour

// MissingSecretKey names the configuration that must be present for any
// token operation.
const MissingSecretKey = "JWT_SECRET or AUTH_SECRET"

const issuer = "medtrack"

// ErrInvalidToken is returned for every verification failure: bad
// signature, malformed token, wrong algorithm or expiry. Callers must not
// distinguish between them.
var ErrInvalidToken = apperror.Unauthorized("Unauthorized")

// TokenService handles JWT creation and validation.
//
// An empty secret is allowed at construction so the server can start and
// report the missing configuration per request; Issue and Verify then fail
// with a configuration error.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithTTL overrides DefaultSessionTTL.
func WithTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) { s.ttl = ttl }
}

// WithClock replaces time.Now, for expiry tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService with the given secret.
// A non-empty secret must be at least 16 characters.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	if secret != "" && len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}

	s := &TokenService{
		secret: []byte(secret),
		ttl:    DefaultSessionTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl <= 0 {
		return nil, errors.New("auth: session TTL must be positive")
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Configured reports whether a signing secret is present.
func (s *TokenService) Configured() bool {
	return len(s.secret) > 0
}

// claims is the JWT payload: the registered claims plus the email.
// "sub" (Subject) carries the internal user ID.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issue signs a session token for the given identity, valid for TTL().
func (s *TokenService) Issue(session model.Session) (string, error) {
	return s.IssueWithTTL(session, s.ttl)
}

// IssueWithTTL signs a token with a custom lifetime.
// Used in tests to mint already-expired tokens.
func (s *TokenService) IssueWithTTL(session model.Session, ttl time.Duration) (string, error) {
	if !s.Configured() {
		return "", apperror.ConfigMissing(MissingSecretKey)
	}

	now := s.now()
	c := claims{
		Email: session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a session token and returns its identity.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Algorithm is HS256 (prevents "alg: none" / algorithm confusion)
//   - Token carries an expiry and it is in the future (per s.now)
//   - Issuer matches
//
// All failures collapse into ErrInvalidToken; the cause is kept in the
// wrapped message for server-side logs only.
func (s *TokenService) Verify(tokenStr string) (model.Session, error) {
	if !s.Configured() {
		return model.Session{}, apperror.ConfigMissing(MissingSecretKey)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	var c claims
	token, err := parser.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || c.Subject == "" {
		return model.Session{}, ErrInvalidToken
	}

	return model.Session{Sub: c.Subject, Email: c.Email}, nil
}
