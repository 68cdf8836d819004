package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/mir00r/edge-router/internal/domain"
	"github.com/mir00r/edge-router/pkg/logger"
)

type contextKey string

const requestContextKey contextKey = "requestContext"

// RequestContextFrom returns the request context stored by LoggingMiddleware
func RequestContextFrom(ctx context.Context) (*domain.RequestContext, bool) {
	requestCtx, ok := ctx.Value(requestContextKey).(*domain.RequestContext)
	return requestCtx, ok
}

// RequestID returns the request id stored by LoggingMiddleware, or ""
func RequestID(ctx context.Context) string {
	if requestCtx, ok := RequestContextFrom(ctx); ok {
		return requestCtx.RequestID
	}
	return ""
}

// LoggingMiddleware provides structured request logging and assigns each
// request an id, echoed back in X-Request-ID
func LoggingMiddleware(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestCtx := domain.NewRequestContext(r)
			r = r.WithContext(context.WithValue(r.Context(), requestContextKey, requestCtx))
			w.Header().Set("X-Request-ID", requestCtx.RequestID)

			wrappedWriter := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			requestLogger := logger.RequestLogger(
				requestCtx.RequestID,
				requestCtx.Method,
				requestCtx.Path,
				requestCtx.RemoteAddr,
			)

			requestLogger.Debug("Request started")

			next.ServeHTTP(wrappedWriter, r)

			duration := time.Since(start)
			logEntry := requestLogger.WithFields(map[string]interface{}{
				"status_code":   wrappedWriter.statusCode,
				"duration_ms":   duration.Milliseconds(),
				"response_size": wrappedWriter.size,
			})

			switch {
			case wrappedWriter.statusCode >= 500:
				logEntry.Error("Request completed with error")
			case wrappedWriter.statusCode >= 400:
				logEntry.Warn("Request completed with warning")
			default:
				logEntry.Info("Request completed")
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture response details
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size
func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += int64(size)
	return size, err
}

// Flush lets streamed upstream responses through the wrapper
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RecoveryMiddleware provides panic recovery with logging
func RecoveryMiddleware(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.WithFields(map[string]interface{}{
						"request_id": RequestID(r.Context()),
						"path":       r.URL.Path,
						"method":     r.Method,
						"panic":      err,
					}).Error("Panic recovered in request handler")

					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware adds security headers to admin responses
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}
