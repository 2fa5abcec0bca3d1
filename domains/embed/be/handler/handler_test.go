package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/flowlyst-io/agents/domains/embed/be/service"
)

type mockService struct {
	agentFn          func(ctx context.Context, agentSlug string) (service.Agent, error)
	dashboardFn      func(ctx context.Context, slug string) (service.Dashboard, error)
	dashboardAgentFn func(ctx context.Context, slug, agentSlug string) (service.Dashboard, service.Agent, error)
}

func (m *mockService) ResolveAgent(ctx context.Context, agentSlug string) (service.Agent, error) {
	if m.agentFn == nil {
		panic("agentFn not configured")
	}
	return m.agentFn(ctx, agentSlug)
}

func (m *mockService) ResolveDashboard(ctx context.Context, slug string) (service.Dashboard, error) {
	if m.dashboardFn == nil {
		panic("dashboardFn not configured")
	}
	return m.dashboardFn(ctx, slug)
}

func (m *mockService) ResolveDashboardAgent(ctx context.Context, slug, agentSlug string) (service.Dashboard, service.Agent, error) {
	if m.dashboardAgentFn == nil {
		panic("dashboardAgentFn not configured")
	}
	return m.dashboardAgentFn(ctx, slug, agentSlug)
}

func newRouter(t *testing.T, svc service.Service, cfg Config) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/embed", New(svc, zaptest.NewLogger(t), cfg).Routes)
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestAgentPage(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.agentFn = func(ctx context.Context, agentSlug string) (service.Agent, error) {
		require.Equal(t, "a1b2c3", agentSlug)
		return service.Agent{Name: "Bot", Slug: agentSlug, WorkflowID: "wf_1"}, nil
	}

	rec := get(t, newRouter(t, svc, Config{WidgetScriptURL: "https://cdn.example.com/chat.js"}), "/embed/a1b2c3")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "frame-ancestors *", rec.Header().Get("Content-Security-Policy"))
	require.Contains(t, rec.Body.String(), `data-workflow-id="wf_1"`)
	require.Contains(t, rec.Body.String(), `https://cdn.example.com/chat.js`)
}

func TestDashboardPage(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.dashboardFn = func(ctx context.Context, slug string) (service.Dashboard, error) {
		return service.Dashboard{
			Title:  "Support <Team>",
			Slug:   slug,
			Source: service.SourceDatabase,
			Agents: []service.Agent{
				{Name: "Help Desk", Slug: "helpdesk"},
				{Name: "Sales", Slug: "sales"},
			},
		}, nil
	}

	cfg := Config{FrameAncestors: []string{"https://acme.example", " ", "https://globex.example"}}
	rec := get(t, newRouter(t, svc, cfg), "/embed/dashboard/support")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "frame-ancestors https://acme.example https://globex.example", rec.Header().Get("Content-Security-Policy"))

	body := rec.Body.String()
	require.Contains(t, body, "Choose an agent")
	require.Contains(t, body, "Support &lt;Team&gt;")
	require.Contains(t, body, `href="/embed/dashboard/support/helpdesk"`)
	require.Contains(t, body, `href="/embed/dashboard/support/sales"`)
	require.Contains(t, body, "💬")
	require.Contains(t, body, "💼")
	require.Less(t, strings.Index(body, "Help Desk"), strings.Index(body, "Sales"))
}

func TestDashboardPageEmptyState(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.dashboardFn = func(ctx context.Context, slug string) (service.Dashboard, error) {
		return service.Dashboard{Title: "Agents", Slug: slug, Source: service.SourceLegacy}, nil
	}

	rec := get(t, newRouter(t, svc, Config{}), "/embed/dashboard/utb")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No agents available")
	require.Contains(t, rec.Body.String(), "Contact your administrator to set up agents.")
}

func TestDashboardAgentPage(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.dashboardAgentFn = func(ctx context.Context, slug, agentSlug string) (service.Dashboard, service.Agent, error) {
		require.Equal(t, "support", slug)
		require.Equal(t, "bot", agentSlug)
		return service.Dashboard{Title: "Support", Slug: slug}, service.Agent{Name: "Bot", Slug: agentSlug, WorkflowID: "wf_1"}, nil
	}

	rec := get(t, newRouter(t, svc, Config{}), "/embed/dashboard/support/bot")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `href="/embed/dashboard/support"`)
	require.Contains(t, body, "All Agents")
	require.Contains(t, body, `data-workflow-id="wf_1"`)
}

func TestEmbedErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		text   string
	}{
		{name: "not found", err: service.ErrDashboardNotFound, status: http.StatusNotFound, text: "could not be found"},
		{name: "agent not member", err: service.ErrAgentNotFound, status: http.StatusNotFound, text: "could not be found"},
		{name: "store failure", err: errors.New("connection reset"), status: http.StatusInternalServerError, text: "Something went wrong"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockService{}
			svc.dashboardAgentFn = func(ctx context.Context, slug, agentSlug string) (service.Dashboard, service.Agent, error) {
				return service.Dashboard{}, service.Agent{}, tc.err
			}

			rec := get(t, newRouter(t, svc, Config{}), "/embed/dashboard/support/bot")
			require.Equal(t, tc.status, rec.Code)
			require.Contains(t, rec.Body.String(), tc.text)
			require.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
		})
	}
}

func TestUnknownEmbedRoute(t *testing.T) {
	t.Parallel()

	rec := get(t, newRouter(t, &mockService{}, Config{}), "/embed/dashboard/a/b/c")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "could not be found")
}

func TestDatabaseAliasRedirects(t *testing.T) {
	t.Parallel()

	router := newRouter(t, &mockService{}, Config{})

	tests := []struct {
		name     string
		target   string
		location string
	}{
		{name: "dashboard", target: "/embed/dashboard/db/support", location: "/embed/dashboard/support"},
		{name: "dashboard agent", target: "/embed/dashboard/db/support/a1b2c3", location: "/embed/dashboard/support/a1b2c3"},
		{name: "keeps query", target: "/embed/dashboard/db/support?theme=dark", location: "/embed/dashboard/support?theme=dark"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := get(t, router, tt.target)
			require.Equal(t, http.StatusPermanentRedirect, rec.Code)
			require.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}
