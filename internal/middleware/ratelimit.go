package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"
)

// clientWindow tracks one client's count inside its current window.
type clientWindow struct {
	start time.Time
	count int
}

// fixedWindowLimiter counts requests per client key within fixed windows.
//
// WHY FIXED WINDOWS?
// The first request from a client opens its window; once the window
// expires the counter resets completely, so a request arriving right
// after expiry always passes. A sliding counter would keep rejecting
// while the previous window's weight decays, which is not the behavior
// clients are told to expect (retry after the window).
type fixedWindowLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientWindow
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time // stubbed in tests
}

func newFixedWindowLimiter(limit int, window time.Duration) *fixedWindowLimiter {
	return &fixedWindowLimiter{
		clients:   make(map[string]*clientWindow),
		limit:     limit,
		window:    window,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// allow records one request for key and reports whether it is within the
// limit for the client's current window.
func (l *fixedWindowLimiter) allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}

	c, ok := l.clients[key]
	if !ok || now.Sub(c.start) >= l.window {
		l.clients[key] = &clientWindow{start: now, count: 1}
		return true
	}

	c.count++
	return c.count <= l.limit
}

// sweep drops expired windows so the map doesn't grow with one entry per
// client address ever seen. Caller holds the lock.
func (l *fixedWindowLimiter) sweep(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.start) >= l.window {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

// RateLimit limits each client IP to `limit` requests per fixed `window`.
//
// WHY PER-IP?
// The endpoints behind this limiter (signup, signin, forgot-password) are
// the ones an attacker hammers for credential stuffing or reset-token
// harvesting. Keying by IP throttles a single abusive client without
// locking out everyone behind the service.
//
// Rejected requests get the same JSON error envelope the handlers use, so
// API clients can treat 429 like any other error response.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	limiter := newFixedWindowLimiter(limit, window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.allow(clientIP(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error":   "too_many_requests",
					"message": "Too many requests, please try again later.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. RealIP middleware runs earlier
// in the chain, so behind a proxy RemoteAddr already holds the true client.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
