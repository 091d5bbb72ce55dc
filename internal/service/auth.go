// Package service — authentication business logic.
//
// AuthService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	handler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	              ↘ TokenService (JWT), PasswordService (bcrypt), Mailer (SMTP)
//
// Handlers never touch the database; the service never touches HTTP. Every
// failure the service returns is an apperror category, so the handler layer
// can map it to a status code without inspecting message strings.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/auth-service/internal/apperror"
	"github.com/sakif/auth-service/internal/auth"
	"github.com/sakif/auth-service/internal/mail"
	"github.com/sakif/auth-service/internal/model"
	"github.com/sakif/auth-service/internal/repository"
	"github.com/sakif/auth-service/internal/validate"
)

// ResetTokenTTL is how long a password-reset token stays redeemable.
const ResetTokenTTL = time.Hour

// defaultMailTimeout bounds how long a detached email goroutine waits on
// the relay before giving up and logging. A dead relay would otherwise
// hold the goroutine for the OS-level TCP timeout.
const defaultMailTimeout = 10 * time.Second

// AuthService handles the authentication business logic.
type AuthService struct {
	users       repository.UserRepository
	tokens      *auth.TokenService
	passwords   *auth.PasswordService
	mailer      mail.Mailer
	appBaseURL  string
	mailTimeout time.Duration
	logger      *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph. appBaseURL is
// the public base used to build reset links placed in emails.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	mailer mail.Mailer,
	appBaseURL string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		passwords:   passwords,
		mailer:      mailer,
		appBaseURL:  strings.TrimRight(appBaseURL, "/"),
		mailTimeout: defaultMailTimeout,
		logger:      logger,
	}
}

// AuthResult is returned by SignIn. It bundles the user record and the
// issued JWT so the handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignUp registers a new account.
//
// The email is normalized to lowercase before anything else, so the unique
// index never sees two casings of the same address. Validation runs before
// any database access. There is NO existence pre-check: the repository's
// atomic unique-insert is the only duplicate detection, which closes the
// check-then-create race between concurrent sign-ups.
//
// requestedRole may be empty (defaults to "user"). Granting "admin"
// requires the caller to already be an authenticated admin; a plain
// request body asking for admin is refused.
func (s *AuthService) SignUp(ctx context.Context, email, password, requestedRole string, callerIsAdmin bool) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := validate.Credentials(email, password); err != nil {
		return nil, fmt.Errorf("service/auth: signing up: %w", err)
	}

	role := requestedRole
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("service/auth: signing up: %w",
			apperror.ValidationFailed("role", "role must be one of: user, admin"))
	}
	if role == model.RoleAdmin && !callerIsAdmin {
		return nil, fmt.Errorf("service/auth: signing up: %w",
			apperror.Forbidden("only an admin can grant the admin role"))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: signing up %s: %w", email, err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", email, err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("role", user.Role),
	)
	return user, nil
}

// SignIn authenticates credentials and issues a session token.
//
// Failure modes, in order: missing fields (validation), unknown email
// (not found), wrong password (unauthorized). The bcrypt comparison is the
// only credential check — no early exit on partial matches.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" {
		return nil, fmt.Errorf("service/auth: signing in: %w",
			apperror.ValidationFailed("email", "email is required"))
	}
	if password == "" {
		return nil, fmt.Errorf("service/auth: signing in: %w",
			apperror.ValidationFailed("password", "password is required"))
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: signing in %s: %w", email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Info("sign-in rejected", slog.String("userID", user.ID))
		return nil, fmt.Errorf("service/auth: signing in %s: %w", email,
			apperror.Unauthorized("invalid credentials"))
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// ForgotPassword starts the reset flow for the given address.
//
// A 256-bit random token is stored with a one-hour expiry, and the reset
// link is emailed on a detached goroutine. Email delivery failures are
// logged and swallowed — the caller's response never depends on SMTP (and
// never reveals relay trouble). The user lookup failure, in contrast, IS
// surfaced as a 404, matching the documented API.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("service/auth: forgot password: %w",
			apperror.ValidationFailed("email", "email is required"))
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("service/auth: forgot password for %s: %w", email, err)
	}

	token, err := newResetToken()
	if err != nil {
		return fmt.Errorf("service/auth: generating reset token: %w", err)
	}

	expiresAt := time.Now().Add(ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return fmt.Errorf("service/auth: storing reset token for user %s: %w", user.ID, err)
	}

	s.logger.Info("reset token issued",
		slog.String("userID", user.ID),
		slog.Time("expiresAt", expiresAt),
	)

	// Fire and forget. The request path is done; delivery happens (or
	// fails, logged) on its own goroutine with its own deadline.
	go s.sendResetEmail(user.Email, token)

	return nil
}

// ResetPassword redeems a reset token and installs a new password.
//
// The new password goes through the same strength validation as sign-up —
// a reset must not become the weak-password back door. The lookup filters
// on expiry, so expired and unknown tokens fail identically, and
// UpdatePassword clears the token fields, making each token single-use.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return fmt.Errorf("service/auth: resetting password: %w", apperror.InvalidToken())
	}
	if err := validate.Password(newPassword); err != nil {
		return fmt.Errorf("service/auth: resetting password: %w", err)
	}

	user, err := s.users.FindByResetToken(ctx, token, time.Now())
	if err != nil {
		return fmt.Errorf("service/auth: resetting password: %w", err)
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: hashing new password for user %s: %w", user.ID, err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("service/auth: updating password for user %s: %w", user.ID, err)
	}

	s.logger.Info("password reset completed", slog.String("userID", user.ID))
	return nil
}

// GetUserByID returns the user for the given internal ID. Used by /me after
// the middleware validates the JWT.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ListUsers returns a page of accounts for the admin listing.
func (s *AuthService) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	users, err := s.users.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/auth: listing users: %w", err)
	}
	return users, nil
}

// sendResetEmail builds and delivers the reset-link email. Runs on its own
// goroutine; errors are logged, never returned.
func (s *AuthService) sendResetEmail(to, token string) {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.appBaseURL, token)
	body := fmt.Sprintf(
		`<p>You requested a password reset.</p>
<p><a href="%s">Click here to choose a new password.</a></p>
<p>The link expires in one hour. If you didn't request this, ignore this email.</p>`,
		link,
	)

	done := make(chan error, 1)
	go func() {
		done <- s.mailer.Send(to, "Password reset", body)
	}()

	select {
	case err := <-done:
		if err != nil {
			// Swallowed: the reset request already succeeded, and surfacing
			// delivery errors would leak relay state to the caller.
			s.logger.Error("reset email failed", slog.String("error", err.Error()))
		}
	case <-time.After(s.mailTimeout):
		// Stop waiting; the buffered channel lets the dial goroutine
		// finish on its own whenever the relay finally answers.
		s.logger.Error("reset email timed out", slog.String("to", to))
	}
}

// newResetToken returns 256 bits from crypto/rand, hex-encoded into a
// 64-character printable token.
func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
