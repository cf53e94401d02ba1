package trace

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marcosilvestroni/summarize-commits/internal/log"
	"github.com/marcosilvestroni/summarize-commits/internal/metrics"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader is echoed back, and honoured when a proxy already set it.
	RequestIDHeader = "X-Request-ID"
)

// Config wires the trace middleware. Every field is optional.
type Config struct {
	Logger    *log.Logger
	Metrics   *metrics.Metrics
	ExtractIP func(*http.Request) string
	// Route maps a request to a low-cardinality label, usually the mux
	// pattern that will serve it.
	Route func(*http.Request) string
}

// Middleware handles request tracing and logging
type Middleware struct {
	cfg    Config
	logger *log.Logger
	access *log.StructuredLogger
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(cfg Config) *Middleware {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	return &Middleware{
		cfg:    cfg,
		logger: logger,
		access: log.NewStructuredLogger(logger),
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.cfg.ExtractIP != nil {
			clientIP = m.cfg.ExtractIP(r)
		}

		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = log.NewContext(ctx, m.logger.With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		m.logger.DebugContext(ctx, "HTTP request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		route := r.URL.Path
		if m.cfg.Route != nil {
			route = m.cfg.Route(r)
		}
		m.cfg.Metrics.ObserveHTTP(r.Method, route, rw.statusCode, duration)
		m.access.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
