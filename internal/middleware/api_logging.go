package middleware

import (
	"net/http"
	"strings"
	"time"

	"society-billing/internal/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const RequestIDHeader = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// RequestLogger tags every request with an id, attaches a request-scoped
// zerolog logger to the context and writes one access line per request
func RequestLogger(next http.Handler) http.Handler {
	base := logger.WithComponent("http")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		l := base.With().Str("request_id", requestID).Logger()
		r = r.WithContext(l.WithContext(r.Context()))
		// Authenticate adds the caller to this logger in place
		reqLog := zerolog.Ctx(r.Context())

		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		var event *zerolog.Event
		switch {
		case wrapped.statusCode >= 500:
			event = reqLog.Error()
		case wrapped.statusCode >= 400:
			event = reqLog.Warn()
		default:
			event = reqLog.Info()
		}
		event.
			Str("method", r.Method).
			Str("path", sanitizePath(r.URL.Path)).
			Int("status", wrapped.statusCode).
			Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0).
			Int("response_size", wrapped.bytesWritten).
			Str("ip", getClientIP(r)).
			Str("user_agent", r.UserAgent()).
			Msg("request")
	})
}

// shouldSkipLogging returns true for paths that shouldn't be logged
func shouldSkipLogging(path string) bool {
	skipPaths := []string{
		"/health",
		"/metrics",
		"/favicon.ico",
	}

	for _, skip := range skipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}

	return false
}

// sanitizePath drops query parameters and truncates very long paths
func sanitizePath(path string) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 500 {
		path = path[:500]
	}
	return path
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (for proxies/load balancers)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}

	return ip
}
