// Package middleware provides the HTTP middleware chain in front of the
// API handlers.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/b8oost/boost-service/pkg/logger"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestID returns the request id stored in the context, or empty.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Tracing assigns each request an id, propagates it via context and the
// X-Request-ID header, and logs the request on completion.
type Tracing struct {
	log *logger.Logger
}

// NewTracing creates a tracing middleware.
func NewTracing(log *logger.Logger) *Tracing {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return &Tracing{log: log}
}

// Handler wraps next with request tracing.
func (t *Tracing) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rw, r.WithContext(ctx))

		t.log.WithField("request_id", requestID).
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", rw.statusCode).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("request handled")
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
