package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(base))
	r.Get("/api/tenants/{tenantId}", func(w http.ResponseWriter, req *http.Request) {
		logger, ok := FromContext(req.Context())
		require.True(t, ok)
		logger.Info("handled")
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tenants/42", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "handled", entries[0].Message)
	require.NotEmpty(t, entries[0].ContextMap()["request_id"])

	completed := entries[1]
	require.Equal(t, "request completed", completed.Message)
	fields := completed.ContextMap()
	require.Equal(t, "GET", fields["http_method"])
	require.Equal(t, "/api/tenants/{tenantId}", fields["route"])
	require.Equal(t, SurfaceAdmin, fields["surface"])
	require.EqualValues(t, http.StatusTeapot, fields["status"])
	require.Equal(t, zapcore.InfoLevel, completed.Level)
}

func TestRequestLoggerServerErrorAndUnmatchedRoute(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)

	r := chi.NewRouter()
	r.Use(RequestLogger(zap.New(core)))
	r.Get("/embed/{agentSlug}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/embed/bot", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	entries := logs.All()
	require.Len(t, entries, 2)

	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	require.Equal(t, "/embed/{agentSlug}", entries[0].ContextMap()["route"])
	require.Equal(t, SurfaceEmbed, entries[0].ContextMap()["surface"])

	require.Equal(t, zapcore.InfoLevel, entries[1].Level)
	require.Equal(t, "unmatched", entries[1].ContextMap()["route"])
	require.Equal(t, SurfaceOps, entries[1].ContextMap()["surface"])
	require.EqualValues(t, http.StatusNotFound, entries[1].ContextMap()["status"])
}

func TestSurfaceOf(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/api":             SurfaceAdmin,
		"/api/agents":      SurfaceAdmin,
		"/apis":            SurfaceOps,
		"/embed/dashboard": SurfaceEmbed,
		"/healthz":         SurfaceOps,
		"/metrics":         SurfaceOps,
	}
	for path, want := range tests {
		require.Equal(t, want, SurfaceOf(path), path)
	}
}

func TestFromRequestFallback(t *testing.T) {
	t.Parallel()

	fallback := zap.NewNop()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Same(t, fallback, FromRequest(req, fallback))

	scoped := zap.NewExample()
	req = req.WithContext(WithLogger(req.Context(), scoped))
	require.Same(t, scoped, FromRequest(req, fallback))
}
