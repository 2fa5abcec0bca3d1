package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/flowlyst-io/agents/contracts"
	tenantshandler "github.com/flowlyst-io/agents/domains/tenants/be/handler"
	tenantsservice "github.com/flowlyst-io/agents/domains/tenants/be/service"
	"github.com/flowlyst-io/agents/platform/go/metrics"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

// stubRoutes answers every route it mounts with a fixed status and records
// the path it served.
type stubRoutes struct {
	status int
}

func (s stubRoutes) Routes(r chi.Router) {
	r.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Served-Path", r.URL.Path)
		w.WriteHeader(s.status)
	})
}

// createOnlyTenantRepo stores created tenants in memory; every other call panics.
type createOnlyTenantRepo struct {
	created []string
}

func (r *createOnlyTenantRepo) List(context.Context) ([]persistence.TenantWithAgentCount, error) {
	panic("List not expected")
}

func (r *createOnlyTenantRepo) Create(_ context.Context, id uuid.UUID, name string) (persistence.Tenant, error) {
	r.created = append(r.created, name)
	return persistence.Tenant{ID: id, Name: name}, nil
}

func (r *createOnlyTenantRepo) Get(context.Context, uuid.UUID) (persistence.Tenant, error) {
	panic("Get not expected")
}

func (r *createOnlyTenantRepo) Rename(context.Context, uuid.UUID, string) (persistence.Tenant, error) {
	panic("Rename not expected")
}

func (r *createOnlyTenantRepo) Delete(context.Context, persistence.DeleteTenantParams) (persistence.DeleteTenantResult, error) {
	panic("Delete not expected")
}

func newTestRouter(t *testing.T, db stubPinger) http.Handler {
	t.Helper()
	return newTestRouterWithTenants(t, db, stubRoutes{status: http.StatusOK})
}

func newTestRouterWithTenants(t *testing.T, db stubPinger, tenants routeMounter) http.Handler {
	t.Helper()

	spec, err := contracts.LoadAdmin(context.Background())
	require.NoError(t, err)

	return newRouter(routerDeps{
		logger:     zaptest.NewLogger(t),
		metrics:    metrics.New(prometheus.NewRegistry()),
		db:         db,
		spec:       spec,
		tenants:    tenants,
		agents:     stubRoutes{status: http.StatusOK},
		dashboards: stubRoutes{status: http.StatusOK},
		embed:      stubRoutes{status: http.StatusOK},
	})
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProbes(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusOK, serve(newTestRouter(t, stubPinger{}), http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusOK, serve(newTestRouter(t, stubPinger{}), http.MethodGet, "/readyz", "").Code)

	down := newTestRouter(t, stubPinger{err: errors.New("connection refused")})
	require.Equal(t, http.StatusOK, serve(down, http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusServiceUnavailable, serve(down, http.MethodGet, "/readyz", "").Code)
}

func TestDocsRoutes(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, stubPinger{})

	ui := serve(router, http.MethodGet, "/docs", "")
	require.Equal(t, http.StatusOK, ui.Code)
	require.Contains(t, ui.Body.String(), adminSpecURL)

	doc := serve(router, http.MethodGet, adminSpecURL, "")
	require.Equal(t, http.StatusOK, doc.Code)
	require.Equal(t, "application/json", doc.Header().Get("Content-Type"))
	require.Contains(t, doc.Body.String(), `"operationId":"deleteTenant"`)
}

func TestAPIRequestsPassContractValidation(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, stubPinger{})

	rec := serve(router, http.MethodPost, "/api/agents", `{"name":"Bot","workflowId":"wf_1","newTenantName":"Acme"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/api/agents", rec.Header().Get("X-Served-Path"))

	rec = serve(router, http.MethodPut, "/api/dashboards/"+uuid.NewString()+"/agents/order", `{"agentIds":["`+uuid.NewString()+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodPost, "/api/agents", `{"name":"Bot"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	require.Empty(t, rec.Header().Get("X-Served-Path"))
}

func TestEmbedRoutesSkipContractValidation(t *testing.T) {
	t.Parallel()

	rec := serve(newTestRouter(t, stubPinger{}), http.MethodGet, "/embed/dashboard/utb", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/embed/dashboard/utb", rec.Header().Get("X-Served-Path"))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, stubPinger{})
	serve(router, http.MethodGet, "/healthz", "")

	rec := serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestTenantNameLengthAppliesAfterTrimming(t *testing.T) {
	t.Parallel()

	repo := &createOnlyTenantRepo{}
	handler := tenantshandler.New(tenantsservice.New(repo, nil), zaptest.NewLogger(t))
	router := newTestRouterWithTenants(t, stubPinger{}, handler)

	longest := strings.Repeat("a", tenantsservice.MaxNameLength)

	rec := serve(router, http.MethodPost, "/api/tenants", `{"name":"  `+longest+` "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, []string{longest}, repo.created)

	rec = serve(router, http.MethodPost, "/api/tenants", `{"name":"`+longest+`a"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), `"name"`)
	require.Len(t, repo.created, 1)
}
