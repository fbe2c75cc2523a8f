// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware and
// routes, and decides:
//   - which URL patterns map to which handler functions
//   - what middleware runs on which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  sqlite.DB → repositories → services → handlers → chi routes
//
// This is the "composition root" pattern: every dependency is wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/medtrack/internal/auth"
	"github.com/sakif/medtrack/internal/config"
	"github.com/sakif/medtrack/internal/handler"
	"github.com/sakif/medtrack/internal/middleware"
	sqliteRepo "github.com/sakif/medtrack/internal/repository/sqlite"
	"github.com/sakif/medtrack/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish on SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Public API paths. Everything else under /api requires a session.
var publicPaths = []string{
	"/api/health",
	"/api/auth/signup",
	"/api/auth/login",
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it on shutdown;
// callers that never Start (tests) call Close.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
	now     func() time.Time
}

// Option customises a Server. Production code passes none.
type Option func(*Server)

// WithClock fixes the time used for sessions and "today". Tests use it to
// pin reminders to a known day.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRateLimiter replaces the auth rate limiter.
func WithRateLimiter(l *middleware.RateLimiter) Option {
	return func(s *Server) { s.limiter = l }
}

// New opens the database (running migrations) and builds the router.
//
// A missing token secret is not fatal: the server starts, /api/health
// reports authConfigured=false, and auth endpoints answer 500 with the
// missing setting named.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	db, err := sqliteRepo.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /api/health              → liveness + configuration state   (public)
//	POST   /api/auth/signup         → create account                   (public, rate limited)
//	POST   /api/auth/login          → start session                    (public, rate limited)
//	POST   /api/auth/logout         → clear session cookie
//	GET    /api/auth                → current session
//	GET    /api/medicines           → list medicines
//	POST   /api/medicines           → create medicine
//	GET    /api/medicines/{id}      → get medicine
//	PUT    /api/medicines/{id}      → update medicine
//	DELETE /api/medicines/{id}      → delete medicine
//	GET    /api/reminders/today     → reconcile + list today's reminders
//	POST   /api/reminders/{id}      → create today's reminder for medicine {id}
//	PATCH  /api/reminders/{id}      → set status of reminder {id}
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns a unique ID to each request (for tracing)
//  2. RealIP: extracts the real client IP from proxy headers
//  3. Logger: logs each request with timing info
//  4. Recoverer: catches panics and returns 500 instead of crashing
//  5. Gate (on /api): rejects requests without a valid session
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.Secret(),
		auth.WithTTL(s.config.SessionTTL),
		auth.WithClock(s.now),
	)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	if !tokens.Configured() {
		s.logger.Warn("no token secret configured, authentication is disabled",
			slog.String("missing", auth.MissingSecretKey),
		)
	}
	authn := auth.NewAuthenticator(tokens, s.logger)

	// === Services ===
	// Each service gets repository interfaces, never the *sqlite.DB itself.
	users := s.db.Users()
	medicines := s.db.Medicines()
	reminders := s.db.Reminders()

	authService := service.NewAuthService(users, tokens, auth.NewPasswordService(), s.logger)
	medicineService := service.NewMedicineService(medicines, s.logger)
	reminderService := service.NewReminderService(medicines, reminders, s.logger,
		service.WithReminderClock(s.now))

	// === Handlers ===
	healthHandler := handler.NewHealthHandler(handler.HealthInfo{
		Environment:        s.config.Environment,
		DatabaseConfigured: s.config.DatabaseURL != "",
		AuthConfigured:     tokens.Configured(),
	})
	authHandler := handler.NewAuthHandler(authService, authn, s.config.Production(), s.logger)
	medicineHandler := handler.NewMedicineHandler(medicineService, authn, s.logger)
	reminderHandler := handler.NewReminderHandler(reminderService, authn, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.Gate(authn, publicPaths...))

		r.Get("/health", healthHandler.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/", authHandler.HandleSession)
			r.With(s.limiter.Middleware("auth")).Post("/signup", authHandler.HandleSignup)
			r.With(s.limiter.Middleware("auth")).Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
		})

		r.Route("/medicines", func(r chi.Router) {
			r.Get("/", medicineHandler.HandleList)
			r.Post("/", medicineHandler.HandleCreate)
			r.Get("/{id}", medicineHandler.HandleGet)
			r.Put("/{id}", medicineHandler.HandleUpdate)
			r.Delete("/{id}", medicineHandler.HandleDelete)
		})

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/today", reminderHandler.HandleToday)
			r.Post("/{id}", reminderHandler.HandleCreate)
			r.Patch("/{id}", reminderHandler.HandleUpdate)
		})
	})

	return nil
}

// Handler returns the root HTTP handler (for httptest servers).
func (s *Server) Handler() http.Handler {
	return s.router
}

// RateLimiter returns the limiter guarding signup and login.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.limiter
}

// Close releases the database connection.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("environment", s.config.Environment),
			slog.String("database", s.config.DatabaseURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
