package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/medtrack/internal/apperror"
	"github.com/sakif/medtrack/internal/auth"
	"github.com/sakif/medtrack/internal/model"
	"github.com/sakif/medtrack/internal/repository"
)

// MinPasswordLength is counted in characters (runes), after trimming.
const MinPasswordLength = 8

// invalidCredentials is the single answer for every failed login, whether the
// email is unknown or the password is wrong. Distinct messages would let a
// caller enumerate registered emails.
const invalidCredentials = "Invalid credentials"

// AuthService handles signup and login.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validate  *validator.Validate
	logger    *slog.Logger

	// dummyHash is compared against on unknown emails so that a login for a
	// missing account costs one bcrypt comparison like a real one.
	dummyHash string
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	dummy, err := passwords.Hash("medtrack-timing-equalizer")
	if err != nil {
		// Only possible for inputs over 72 bytes, which the literal is not.
		panic(fmt.Sprintf("service/auth: hashing dummy password: %v", err))
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		validate:  newValidator(),
		logger:    logger,
		dummyHash: dummy,
	}
}

// AuthResult bundles the user and the issued token so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Credentials is the normalized signup/login input.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// normalizeCredentials trims and lowercases the email and trims the password.
func normalizeCredentials(email, password string) Credentials {
	return Credentials{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: strings.TrimSpace(password),
	}
}

// Signup registers a new account and issues a session token for it.
//
// Rules, checked in order:
//  1. email and password are both required
//  2. email must be syntactically valid
//  3. password is at least MinPasswordLength characters and at most
//     auth.MaxPasswordBytes bytes (bcrypt ignores anything past 72)
//  4. the email is not already registered (409)
func (s *AuthService) Signup(ctx context.Context, email, password string) (*AuthResult, error) {
	creds := normalizeCredentials(email, password)

	if creds.Email == "" || creds.Password == "" {
		return nil, apperror.ValidationFailed("email", "Email and password are required")
	}
	if err := s.validate.Struct(creds); err != nil {
		return nil, validationError(err)
	}
	if utf8.RuneCountInString(creds.Password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if len(creds.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordBytes))
	}

	// Fail before writing anything if sessions cannot be issued; otherwise
	// the account would exist but the caller would get a 500.
	if !s.tokens.Configured() {
		return nil, apperror.ConfigMissing(auth.MissingSecretKey)
	}

	// Pre-check for a friendly 409. The UNIQUE constraint still catches the
	// race where two signups for the same email interleave.
	if _, err := s.users.GetByEmail(ctx, creds.Email); err == nil {
		return nil, apperror.Conflict("User already exists")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking existing user: %w", err)
	}

	hash, err := s.passwords.Hash(creds.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Email: creds.Email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))

	return s.issue(user)
}

// Login verifies credentials and issues a session token.
//
// An unknown email and a wrong password produce the same 401.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	creds := normalizeCredentials(email, password)

	if creds.Email == "" || creds.Password == "" {
		return nil, apperror.ValidationFailed("email", "Email and password are required")
	}
	if !s.tokens.Configured() {
		return nil, apperror.ConfigMissing(auth.MissingSecretKey)
	}

	user, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.Verify(s.dummyHash, creds.Password)
			s.logger.Warn("login failed", slog.String("reason", "unknown email"))
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if !s.passwords.Verify(user.PasswordHash, creds.Password) {
		s.logger.Warn("login failed",
			slog.String("reason", "wrong password"),
			slog.String("userID", user.ID),
		)
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(model.Session{Sub: user.ID, Email: user.Email})
	if err != nil {
		if errors.Is(err, apperror.ErrConfiguration) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
