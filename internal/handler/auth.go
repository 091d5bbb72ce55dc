package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/sakif/auth-service/internal/auth"
	"github.com/sakif/auth-service/internal/service"
)

// maxBodyBytes caps request bodies. The API only ever receives small JSON
// documents; 16 KiB is generous.
const maxBodyBytes = 16 << 10

// AuthHandler exposes the authentication flow over HTTP.
//
//	HandleSignUp         POST /signup          → 201
//	HandleSignIn         POST /signin          → 200 + HttpOnly "token" cookie
//	HandleLogout         POST /logout          → 200, clears the cookie
//	HandleMe             GET  /me              → 200 profile (RequireAuth)
//	HandleForgotPassword POST /forgot-password → 200, reset email dispatched
//	HandleResetPassword  POST /reset-password  → 200
//	HandleCSRFToken      GET  /csrf-token      → 200 {"csrfToken": ...}
//
// The handler owns only HTTP concerns: decoding bodies, setting cookies,
// mapping errors to statuses. Everything else lives in the service.
type AuthHandler struct {
	authService  *service.AuthService
	secureCookie bool // Secure attribute on the token cookie (production)
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookie should be true in
// production so the token cookie is only ever sent over HTTPS.
func NewAuthHandler(authService *service.AuthService, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// decode reads a JSON body into dst with a size cap.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body must be valid JSON",
		})
		return false
	}
	return true
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // optional; "admin" needs an admin caller
}

// HandleSignUp registers a new account.
//
// The optional role field is only honored when the request carries a valid
// admin token (OptionalAuth middleware puts the claims in the context);
// anonymous requests asking for admin get a 403.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	callerIsAdmin := auth.IsAdmin(r.Context())

	if _, err := h.authService.SignUp(r.Context(), req.Email, req.Password, req.Role, callerIsAdmin); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "user signed up successfully"})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignIn authenticates credentials and sets the session cookie.
//
// The JWT travels in an HttpOnly cookie: scripts can't read it (XSS can't
// steal it), SameSite=Strict keeps it off cross-site requests, and MaxAge
// matches the token's own expiry so the two never disagree.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(auth.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, MessageResponse{Message: "signed in successfully"})
}

// HandleLogout clears the token cookie.
//
// Sessions are stateless, so "logout" is purely client-side: the token
// itself stays valid until its one-hour expiry, but without the cookie the
// browser can't present it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// HandleMe returns the authenticated caller's profile.
// Runs behind RequireAuth, so the claims are always present.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but don't assume the wiring.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), claims.Subject)
	if err != nil {
		h.logger.Error("me: user lookup failed", slog.String("userID", claims.Subject))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// HandleForgotPassword starts the reset flow. The email is dispatched
// asynchronously; by the time this returns 200 the token is persisted but
// delivery may still be in flight (or may fail — that's logged, not
// surfaced).
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "password reset email sent"})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// HandleResetPassword redeems a reset token.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "password reset successfully"})
}

type csrfTokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// HandleCSRFToken hands the client a CSRF token for subsequent unsafe
// requests. The gorilla/csrf middleware validates the matching header on
// POSTs; this endpoint is how a browser client bootstraps it.
func (h *AuthHandler) HandleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, csrfTokenResponse{CSRFToken: csrf.Token(r)})
}
