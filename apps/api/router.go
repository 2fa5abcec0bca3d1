package main

import (
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformlogging "github.com/flowlyst-io/agents/platform/go/logging"
	"github.com/flowlyst-io/agents/platform/go/metrics"
	platformmiddleware "github.com/flowlyst-io/agents/platform/go/middleware"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

const readinessTimeout = 2 * time.Second

// routeMounter is implemented by every domain HTTP handler.
type routeMounter interface {
	Routes(r chi.Router)
}

type routerDeps struct {
	logger         *zap.Logger
	metrics        *metrics.Metrics
	db             persistence.Pinger
	spec           *openapi3.T
	requestTimeout time.Duration
	corsOrigins    []string

	tenants    routeMounter
	agents     routeMounter
	dashboards routeMounter
	embed      routeMounter
}

func newRouter(deps routerDeps) http.Handler {
	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		deps.metrics.Middleware,
	)
	if deps.requestTimeout > 0 {
		rootRouter.Use(chimw.Timeout(deps.requestTimeout))
	}
	rootRouter.Use(platformlogging.RequestLogger(deps.logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := persistence.CheckReady(r.Context(), deps.db, readinessTimeout); err != nil {
			platformlogging.FromRequest(r, deps.logger).Warn("readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Method(http.MethodGet, "/metrics", deps.metrics.Handler())

	// ---- Swagger UI + OpenAPI JSON (public) ----
	registerDocsRoutes(rootRouter, deps.spec, deps.logger)

	rootRouter.Route("/api", func(r chi.Router) {
		r.Use(platformmiddleware.CORS(deps.corsOrigins))
		r.Use(platformmiddleware.SpecValidator(deps.spec, deps.logger))
		r.Route("/tenants", deps.tenants.Routes)
		r.Route("/agents", deps.agents.Routes)
		r.Route("/dashboards", deps.dashboards.Routes)
	})

	rootRouter.Route("/embed", deps.embed.Routes)

	return rootRouter
}
