package auth

import (
	"context"
	"net/http"

	"github.com/sakif/auth-service/internal/model"
)

// CookieName is the cookie the signed token travels in. The cookie is
// HttpOnly so scripts can never read it; see the handler package for the
// attributes set on login.
const CookieName = "token"

// contextKey is an unexported type used for context keys in this package.
//
// context.WithValue uses any as the key type. A package-private key type
// means only this package can read or write claims in the context — no
// other package can collide with or shadow the value.
type contextKey string

const claimsKey contextKey = "claims"

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "token" HttpOnly cookie, verifies it, and
// stores the claims in the request context. If the token is missing or
// invalid, it returns 401 Unauthorized and stops the request chain.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractClaims(r, tokens)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the caller's identity if a valid token is present,
// but does NOT block the request if it's missing or invalid.
//
// Signup uses this: the route is public, but an authenticated admin on the
// same route is allowed to grant the admin role.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, err := extractClaims(r, tokens); err == nil {
				ctx := context.WithValue(r.Context(), claimsKey, claims)
				r = r.WithContext(ctx)
			}
			// Always continue — no 401 even if no token
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a route on the role claim. It must run after
// RequireAuth (it relies on claims already being in the context).
//
// Responses:
//   - 401 when there is no identity or the identity has no role claim
//   - 403 when the role is not in the permitted set
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	permitted := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		permitted[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Role == "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "user role not found")
				return
			}
			if _, allowed := permitted[claims.Role]; !allowed {
				writeAuthError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext retrieves the authenticated caller's claims from the
// request context.
//
// Returns (nil, false) if the request is anonymous (no valid token was
// present). On RequireAuth-protected routes it always returns (claims, true).
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// IsAdmin reports whether the context carries an authenticated admin.
func IsAdmin(ctx context.Context) bool {
	claims, ok := ClaimsFromContext(ctx)
	return ok && claims.Role == model.RoleAdmin
}

// extractClaims reads the JWT cookie and verifies it.
// Shared by RequireAuth and OptionalAuth.
func extractClaims(r *http.Request, tokens *TokenService) (*Claims, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		// http.ErrNoCookie — not an error condition, just anonymous
		return nil, err
	}
	return tokens.Verify(cookie.Value)
}

// writeAuthError emits the same JSON error shape the handler package uses.
// Kept local so the middleware doesn't import the handler package and
// create a cycle.
func writeAuthError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + errType + `","message":"` + message + `"}`))
}
