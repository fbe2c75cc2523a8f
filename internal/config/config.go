// Package config loads runtime configuration from the environment.
//
// A .env file in the working directory is read first (if present) so local
// development does not need exported variables. Real environment variables
// always win over the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvPort               = "PORT"
	EnvDatabaseURL        = "DATABASE_URL"
	EnvJWTSecret          = "JWT_SECRET"
	EnvAuthSecret         = "AUTH_SECRET"
	EnvAppEnv             = "APP_ENV"
	EnvSessionTTLHours    = "SESSION_TTL_HOURS"
	EnvRateLimitRequests  = "RATE_LIMIT_AUTH_REQUESTS"
	EnvRateLimitWindow    = "RATE_LIMIT_AUTH_WINDOW"
	EnvLogLevel           = "LOG_LEVEL"
	EnvLogFormat          = "LOG_FORMAT"
	defaultDatabasePath   = "data/medtrack.db"
	missingSecretKeyLabel = "JWT_SECRET or AUTH_SECRET"
)

// Config holds all runtime settings.
type Config struct {
	Port        int
	DatabaseURL string
	JWTSecret   string
	AuthSecret  string
	Environment string
	SessionTTL  time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	LogLevel  slog.Level
	LogFormat string
}

// Load reads .env (if any) and the process environment.
// Malformed numeric or duration values are errors; absent values fall back
// to defaults.
func Load() (Config, error) {
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function (os.LookupEnv in
// production, a map in tests).
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		DatabaseURL: get(EnvDatabaseURL, defaultDatabasePath),
		JWTSecret:   get(EnvJWTSecret, ""),
		AuthSecret:  get(EnvAuthSecret, ""),
		Environment: get(EnvAppEnv, "development"),
		LogFormat:   strings.ToLower(get(EnvLogFormat, "text")),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(get(EnvPort, "8080")); err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("config: invalid %s value %q", EnvPort, get(EnvPort, ""))
	}

	ttlHours, err := strconv.Atoi(get(EnvSessionTTLHours, "12"))
	if err != nil || ttlHours <= 0 {
		return Config{}, fmt.Errorf("config: invalid %s value %q", EnvSessionTTLHours, get(EnvSessionTTLHours, ""))
	}
	cfg.SessionTTL = time.Duration(ttlHours) * time.Hour

	if cfg.RateLimitRequests, err = strconv.Atoi(get(EnvRateLimitRequests, "20")); err != nil || cfg.RateLimitRequests <= 0 {
		return Config{}, fmt.Errorf("config: invalid %s value %q", EnvRateLimitRequests, get(EnvRateLimitRequests, ""))
	}
	if cfg.RateLimitWindow, err = time.ParseDuration(get(EnvRateLimitWindow, "1m")); err != nil || cfg.RateLimitWindow <= 0 {
		return Config{}, fmt.Errorf("config: invalid %s value %q", EnvRateLimitWindow, get(EnvRateLimitWindow, ""))
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get(EnvLogLevel, "info"))); err != nil {
		return Config{}, fmt.Errorf("config: invalid %s: %w", EnvLogLevel, err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("config: invalid %s value %q (want text or json)", EnvLogFormat, cfg.LogFormat)
	}

	return cfg, nil
}

// Secret returns the token signing secret: JWT_SECRET, else AUTH_SECRET.
func (c Config) Secret() string {
	if c.JWTSecret != "" {
		return c.JWTSecret
	}
	return c.AuthSecret
}

// Production reports whether the app runs in production (secure cookies).
func (c Config) Production() bool {
	return c.Environment == "production"
}

// Missing lists required settings that are absent. The auth secret is only
// required when requireAuth is true.
func (c Config) Missing(requireAuth bool) []string {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, EnvDatabaseURL)
	}
	if requireAuth && c.Secret() == "" {
		missing = append(missing, missingSecretKeyLabel)
	}
	return missing
}

// NewLogger builds the process logger from LOG_LEVEL / LOG_FORMAT.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
