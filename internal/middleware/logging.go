// path: backend/internal/middleware/logging.go

package middleware

import (
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/modhub/platform/internal/application/common"
)

// loggingResponseWriter wraps a response writer to capture status code and
// size for the access log line.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func newLoggingResponseWriter(w http.ResponseWriter) *loggingResponseWriter {
	return &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	size, err := lrw.ResponseWriter.Write(b)
	lrw.size += size
	return size, err
}

// RequestLogger logs one line per request: method, path, status, duration,
// and the resolved principal's user id when present.
func RequestLogger(logger common.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := chimw.GetReqID(r.Context())
			wrapped := newLoggingResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			fields := []interface{}{
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"size", wrapped.size,
				"ip", extractIP(r),
			}
			if p, ok := GetPrincipal(r.Context()); ok {
				fields = append(fields, "user_id", p.User.ID().String())
			}

			switch {
			case wrapped.statusCode >= 500:
				logger.Error("request completed", fields...)
			case wrapped.statusCode >= 400:
				logger.Warn("request completed", fields...)
			default:
				logger.Info("request completed", fields...)
			}
		})
	}
}

// RecoveryLogger recovers a panic raised by the handlers below it, logs it
// through Logger, and answers the request with a 500.
func RecoveryLogger(logger common.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := chimw.GetReqID(r.Context())
					logger.Error("panic recovered", "request_id", requestID, "error", err)
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// extractIP prefers X-Forwarded-For/X-Real-IP (behind a proxy) and falls
// back to the connection's RemoteAddr.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if parts := strings.Split(xff, ","); len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
