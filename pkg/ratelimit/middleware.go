package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Defaults for the auth endpoints: bursts of 20 per IP, refilling one
// request per second.
const (
	DefaultCapacity   = 20
	DefaultRefillRate = 1.0
	DefaultBucketTTL  = time.Hour
)

// PerIP returns a middleware limiting each client IP to bursts of
// capacity requests, refilled at refillRate per second. Over-limit
// requests get 429 without reaching the handlers.
func PerIP(capacity int, refillRate float64) func(http.Handler) http.Handler {
	limiter := NewLimiter(capacity, refillRate, DefaultBucketTTL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.Allow(ip) {
				slog.Warn("Request rate limited", "ip", ip, "path", r.URL.Path)
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP trusts RealIP-style middleware to have rewritten RemoteAddr
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
