package server

import (
	"crypto/subtle"
	"math"
	"net"
	"net/http"
	"strconv"
)

// requireAdminAPI protects admin endpoints with a bearer token.
// With no token configured every admin request is refused.
func (s *Server) requireAdminAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.AdminAPIKey == "" {
			s.log.Warn("Admin API accessed but no admin API key is configured")
			s.respondError(w, http.StatusForbidden, "Admin API is disabled. Set ADMIN_API_KEY to enable it.")
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.respondError(w, http.StatusUnauthorized, "Missing Authorization header")
			return
		}

		// Expected format: "Bearer <api_key>"
		expected := "Bearer " + s.deps.AdminAPIKey
		if subtle.ConstantTimeCompare([]byte(authHeader), []byte(expected)) != 1 {
			s.log.Warn("Invalid admin API key attempt", "remote_addr", r.RemoteAddr)
			s.respondError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimit applies the per-IP sliding window. RealIP must run first.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if !s.deps.Limiter.Allow(ip) {
			retry := int(math.Ceil(s.deps.Limiter.RetryAfter(ip).Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.log.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path)
			s.respondError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// securityHeaders adds security headers to all responses
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
