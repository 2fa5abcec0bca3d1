package logging

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Surfaces a request can belong to, logged as the "surface" field.
const (
	SurfaceAdmin = "admin"
	SurfaceEmbed = "embed"
	SurfaceOps   = "ops"
)

const unmatchedRoute = "unmatched"

type loggerKey struct{}

// WithLogger stores logger on ctx.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request-scoped logger, if one was stored.
func FromContext(ctx context.Context) (*zap.Logger, bool) {
	logger, ok := ctx.Value(loggerKey{}).(*zap.Logger)
	return logger, ok
}

// FromRequest returns the request-scoped logger or fallback.
func FromRequest(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if logger, ok := FromContext(r.Context()); ok {
		return logger
	}
	return fallback
}

// SurfaceOf classifies a request path into the admin API, the embed pages
// or the operational endpoints (probes, metrics, docs).
func SurfaceOf(path string) string {
	switch {
	case path == "/api" || strings.HasPrefix(path, "/api/"):
		return SurfaceAdmin
	case path == "/embed" || strings.HasPrefix(path, "/embed/"):
		return SurfaceEmbed
	default:
		return SurfaceOps
	}
}

// RequestLogger scopes base to the request (request id, method, surface),
// puts it on the context and logs one completion entry carrying the matched
// chi route pattern. Server errors complete at Error level.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			fields := []zap.Field{
				zap.String("http_method", r.Method),
				zap.String("surface", SurfaceOf(r.URL.Path)),
			}
			if requestID := middleware.GetReqID(r.Context()); requestID != "" {
				fields = append(fields, zap.String("request_id", requestID))
			}
			logger := base.With(fields...)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(WithLogger(r.Context(), logger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			completion := []zap.Field{
				zap.String("route", matchedRoute(r)),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}
			if status >= http.StatusInternalServerError {
				logger.Error("request completed", completion...)
				return
			}
			logger.Info("request completed", completion...)
		})
	}
}

// matchedRoute reads the pattern chi resolved while serving r.
func matchedRoute(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}
