// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and
// routes. It is the one place that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and passes it to New(), which creates:
//   mongodb.DB → AuthService → AuthHandler / AdminHandler
//
// This is the "composition root" pattern — all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase. Each
// layer only receives what it needs: the service gets the repository
// interface, the handlers get the service, and nothing below the handler
// layer ever touches HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"
	"github.com/unrolled/secure"

	"github.com/sakif/auth-service/internal/auth"
	"github.com/sakif/auth-service/internal/config"
	"github.com/sakif/auth-service/internal/handler"
	"github.com/sakif/auth-service/internal/mail"
	"github.com/sakif/auth-service/internal/middleware"
	"github.com/sakif/auth-service/internal/model"
	mongoRepo "github.com/sakif/auth-service/internal/repository/mongodb"
	"github.com/sakif/auth-service/internal/service"
)

// Server owns the router and the resources that must be released on
// shutdown. The MongoDB client is opened in New and closed at the end of
// Start, after in-flight requests have drained.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *mongoRepo.DB
}

// New connects to MongoDB and assembles the full dependency chain.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := mongoRepo.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		db.Close(ctx)
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET  /                              → health line (plain text)
// POST /api/v1/user/signup            → create account
// POST /api/v1/user/signin            → issue session cookie
// POST /api/v1/user/logout            → clear session cookie
// GET  /api/v1/user/me                → current user (auth required)
// POST /api/v1/user/forgot-password   → email a reset link
// POST /api/v1/user/reset-password    → consume a reset token
// GET  /api/v1/user/csrf-token        → token for double-submit clients
// GET  /api/v1/admin/users            → user listing (admin only)
//
// MIDDLEWARE ORDER MATTERS:
// RequestID and RealIP run first so the logger and rate limiter see them.
// The security layers (headers, CORS, CSRF) wrap the API routes; the rate
// limiter guards only the credential endpoints under /api/v1/user.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(s.config.BcryptCost)

	// Without SMTP settings, reset links go to the log instead of the wire.
	// Useful locally; in production Configured() should be true.
	var mailer mail.Mailer
	if s.config.SMTP.Configured() {
		mailer = mail.NewSMTPMailer(s.config.SMTP, s.logger)
	} else {
		s.logger.Warn("SMTP not configured, password reset emails will be logged only")
		mailer = mail.NewLogMailer(s.logger)
	}

	authService := service.NewAuthService(s.db, tokens, passwords, mailer, s.config.AppBaseURL, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.config.IsProduction(), s.logger)
	adminHandler := handler.NewAdminHandler(authService, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Response header hardening. SSLRedirect stays off here — TLS
	// termination is the proxy's job.
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: "default-src 'self'",
		IsDevelopment:         !s.config.IsProduction(),
	})
	s.router.Use(secureMiddleware.Handler)

	// The browser frontend lives on a different origin and sends the
	// session cookie, so credentials must be allowed and the origin list
	// must be explicit (credentialed CORS forbids "*").
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Health ===
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("server running"))
	})

	// === API Routes ===
	// CSRF protection wraps the whole API group: unsafe methods must echo
	// the token from GET /api/v1/user/csrf-token in the X-CSRF-Token header.
	csrfProtect := csrf.Protect(
		[]byte(s.config.CSRFAuthKey),
		csrf.Secure(s.config.IsProduction()),
		csrf.SameSite(csrf.SameSiteStrictMode),
		csrf.Path("/"),
	)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(csrfProtect)

		r.Route("/user", func(r chi.Router) {
			// Credential endpoints are the brute-force surface.
			r.Use(middleware.RateLimit(s.config.RateLimit, s.config.RateWindow))

			// Signup reads claims when present: only an authenticated
			// admin may create another admin.
			r.With(auth.OptionalAuth(tokens)).Post("/signup", authHandler.HandleSignUp)
			r.Post("/signin", authHandler.HandleSignIn)
			r.Post("/logout", authHandler.HandleLogout)
			r.Post("/forgot-password", authHandler.HandleForgotPassword)
			r.Post("/reset-password", authHandler.HandleResetPassword)
			r.Get("/csrf-token", authHandler.HandleCSRFToken)

			r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Use(auth.RequireRole(model.RoleAdmin))

			r.Get("/users", adminHandler.HandleListUsers)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds to finish, and finally disconnect from MongoDB.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("database", s.config.MongoDB),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			s.closeDB()
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			s.closeDB()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	s.closeDB()
	return nil
}

func (s *Server) closeDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.db.Close(ctx); err != nil {
		s.logger.Error("closing mongodb connection", slog.String("error", err.Error()))
	}
}
