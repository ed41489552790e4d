package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/farmstead/farmbook/pkg/contextkeys"
	"github.com/farmstead/farmbook/pkg/observability"
)

// RequestLogging assigns each request a UUID and logs it on completion
// with method, path, status and duration. The request id is attached to
// the context and echoed in the X-Request-ID response header.
func RequestLogging(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := contextkeys.WithRequestID(r.Context(), requestID)
			reqLogger := logger.WithField("request_id", requestID)
			ctx = observability.WithLogger(ctx, reqLogger)

			w.Header().Set("X-Request-ID", requestID)

			recorder := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r.WithContext(ctx))

			reqLogger.WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      recorder.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote":      getClientIP(r),
			}).Info("request completed")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// getClientIP returns the originating client address, honoring proxy
// headers when present.
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

// Recovery converts handler panics into 500 responses instead of
// tearing down the connection.
func Recovery(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithFields(map[string]interface{}{
						"panic": fmt.Sprintf("%v", rec),
						"path":  r.URL.Path,
					}).Error("handler panicked")
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
