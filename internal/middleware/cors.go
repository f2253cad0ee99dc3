package middleware

import (
	"net/http"
)

// CORS handles cross-origin requests from the web frontend.
type CORS struct {
	allowedOrigins map[string]bool
	allowAll       bool
}

// NewCORS creates a CORS middleware. An origin of "*" allows any origin.
func NewCORS(allowedOrigins []string) *CORS {
	c := &CORS{allowedOrigins: make(map[string]bool)}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			c.allowAll = true
		}
		c.allowedOrigins[origin] = true
	}
	return c
}

// Handler wraps next with CORS headers and preflight handling.
func (c *CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (c.allowAll || c.allowedOrigins[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
