package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/flowlyst-io/agents/domains/tenants/be/service"
	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/httpapi"
)

type mockService struct {
	listFn    func(ctx context.Context) ([]service.Tenant, error)
	createFn  func(ctx context.Context, name string) (service.Tenant, error)
	getFn     func(ctx context.Context, id uuid.UUID) (service.Tenant, error)
	renameFn  func(ctx context.Context, id uuid.UUID, name string) (service.Tenant, error)
	deleteFn  func(ctx context.Context, id uuid.UUID, input service.DeleteInput) (service.DeleteResult, error)
	resolveFn func(ctx context.Context, choice service.Choice) (*uuid.UUID, error)
}

func (m *mockService) List(ctx context.Context) ([]service.Tenant, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx)
}

func (m *mockService) Create(ctx context.Context, name string) (service.Tenant, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, name)
}

func (m *mockService) Get(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockService) Rename(ctx context.Context, id uuid.UUID, name string) (service.Tenant, error) {
	if m.renameFn == nil {
		panic("renameFn not configured")
	}
	return m.renameFn(ctx, id, name)
}

func (m *mockService) Delete(ctx context.Context, id uuid.UUID, input service.DeleteInput) (service.DeleteResult, error) {
	if m.deleteFn == nil {
		panic("deleteFn not configured")
	}
	return m.deleteFn(ctx, id, input)
}

func (m *mockService) Resolve(ctx context.Context, choice service.Choice) (*uuid.UUID, error) {
	if m.resolveFn == nil {
		panic("resolveFn not configured")
	}
	return m.resolveFn(ctx, choice)
}

func newRouter(t *testing.T, svc service.Service) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api/tenants", New(svc, zaptest.NewLogger(t)).Routes)
	return r
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) httpapi.ProblemDetails {
	t.Helper()
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var problem httpapi.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestHandlerList(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.listFn = func(ctx context.Context) ([]service.Tenant, error) {
		return []service.Tenant{{ID: uuid.New(), Name: "Acme", AgentCount: 2}}, nil
	}

	rec := serve(t, newRouter(t, svc), http.MethodGet, "/api/tenants", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []struct {
			Name       string `json:"name"`
			AgentCount int    `json:"agentCount"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	require.Equal(t, "Acme", body.Items[0].Name)
	require.Equal(t, 2, body.Items[0].AgentCount)
}

func TestHandlerCreate(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{}
	svc.createFn = func(ctx context.Context, name string) (service.Tenant, error) {
		require.Equal(t, "Acme", name)
		now := time.Now().UTC()
		return service.Tenant{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}, nil
	}

	rec := serve(t, newRouter(t, svc), http.MethodPost, "/api/tenants", `{"name":"Acme"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "/api/tenants/"+id.String(), rec.Header().Get("Location"))
	require.NotContains(t, rec.Body.String(), "agentCount")
}

func TestHandlerCreateErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		body   string
		svcErr error
		status int
	}{
		{name: "missing name", body: `{}`, status: http.StatusBadRequest},
		{name: "malformed", body: `{"name":`, status: http.StatusBadRequest},
		{name: "service validation", body: `{"name":"bad/name"}`, svcErr: apperrors.NewValidation("name", "invalid"), status: http.StatusBadRequest},
		{name: "duplicate", body: `{"name":"Acme"}`, svcErr: service.ErrConflict, status: http.StatusConflict},
		{name: "storage", body: `{"name":"Acme"}`, svcErr: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockService{}
			svc.createFn = func(ctx context.Context, name string) (service.Tenant, error) {
				return service.Tenant{}, tc.svcErr
			}

			rec := serve(t, newRouter(t, svc), http.MethodPost, "/api/tenants", tc.body)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.status, decodeProblem(t, rec).Status)
		})
	}
}

func TestHandlerGetInvalidID(t *testing.T) {
	t.Parallel()

	rec := serve(t, newRouter(t, &mockService{}), http.MethodGet, "/api/tenants/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeProblem(t, rec).Errors, "tenantId")
}

func TestHandlerGetNotFound(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.getFn = func(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
		return service.Tenant{}, service.ErrNotFound
	}

	rec := serve(t, newRouter(t, svc), http.MethodGet, "/api/tenants/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "tenant not found", decodeProblem(t, rec).Detail)
}

func TestHandlerUpdate(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{}
	svc.renameFn = func(ctx context.Context, gotID uuid.UUID, name string) (service.Tenant, error) {
		require.Equal(t, id, gotID)
		return service.Tenant{ID: id, Name: name}, nil
	}

	rec := serve(t, newRouter(t, svc), http.MethodPatch, "/api/tenants/"+id.String(), `{"name":"Globex"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Globex"`)
}

func TestHandlerDelete(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	target := uuid.New()
	svc := &mockService{}
	svc.deleteFn = func(ctx context.Context, gotID uuid.UUID, input service.DeleteInput) (service.DeleteResult, error) {
		require.Equal(t, id, gotID)
		require.Equal(t, "reassign", input.Action)
		require.NotNil(t, input.TargetTenantID)
		require.Equal(t, target, *input.TargetTenantID)
		return service.DeleteResult{AgentsAffected: 2}, nil
	}

	rec := serve(t, newRouter(t, svc), http.MethodDelete, "/api/tenants/"+id.String()+"?action=reassign&targetTenantId="+target.String(), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestHandlerDeleteErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		query  string
		svcErr error
		status int
		title  string
	}{
		{name: "bad target", query: "?action=reassign&targetTenantId=nope", status: http.StatusBadRequest},
		{name: "unknown action", query: "?action=archive", svcErr: apperrors.NewValidation("action", "invalid"), status: http.StatusBadRequest},
		{name: "missing tenant", query: "?action=make_general", svcErr: service.ErrNotFound, status: http.StatusNotFound},
		{
			name:   "coordinator failure",
			query:  "?action=delete_agents",
			svcErr: &apperrors.TenantDeletionError{Disposition: "delete_agents", Cause: errors.New("deadlock detected")},
			status: http.StatusInternalServerError,
			title:  "Tenant deletion failed",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockService{}
			svc.deleteFn = func(ctx context.Context, id uuid.UUID, input service.DeleteInput) (service.DeleteResult, error) {
				return service.DeleteResult{}, tc.svcErr
			}

			rec := serve(t, newRouter(t, svc), http.MethodDelete, "/api/tenants/"+uuid.NewString()+tc.query, "")
			require.Equal(t, tc.status, rec.Code)
			problem := decodeProblem(t, rec)
			if tc.title != "" {
				require.Equal(t, tc.title, problem.Title)
			}
		})
	}
}
