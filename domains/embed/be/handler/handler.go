package handler

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flowlyst-io/agents/domains/embed/be/service"
	"github.com/flowlyst-io/agents/platform/go/apperrors"
	platformlogging "github.com/flowlyst-io/agents/platform/go/logging"
)

const embedBasePath = "/embed"

//go:embed templates/*.html
var templateFS embed.FS

type page string

const (
	agentPage          page = "agent.html"
	dashboardPage      page = "dashboard.html"
	dashboardAgentPage page = "dashboard_agent.html"
	notFoundPage       page = "not_found.html"
)

// Config controls how embed pages are served.
type Config struct {
	// WidgetScriptURL is loaded by chat pages to mount the chat widget.
	WidgetScriptURL string
	// FrameAncestors lists origins allowed to iframe the pages.
	FrameAncestors []string
}

// Handler renders the public embed pages.
type Handler struct {
	svc            service.Service
	logger         *zap.Logger
	widgetScript   string
	frameAncestors string
	pages          map[page]*template.Template
}

type card struct {
	Name string
	Icon string
	Href string
}

type view struct {
	PageTitle       string
	Heading         string
	BackLink        string
	WorkflowID      string
	WidgetScriptURL string
	Cards           []card
	EmptyHint       string
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger, cfg Config) *Handler {
	if svc == nil {
		panic("embed service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	pages := make(map[page]*template.Template, 4)
	for _, p := range []page{agentPage, dashboardPage, dashboardAgentPage, notFoundPage} {
		pages[p] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+string(p)))
	}

	return &Handler{
		svc:            svc,
		logger:         logger,
		widgetScript:   cfg.WidgetScriptURL,
		frameAncestors: frameAncestors(cfg.FrameAncestors),
		pages:          pages,
	}
}

// Routes mounts the embed pages on r.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.securityHeaders)
	r.Get("/dashboard/{slug}", h.Dashboard)
	r.Get("/dashboard/{slug}/{agentSlug}", h.DashboardAgent)
	r.Get("/dashboard/db/{slug}", h.redirectDatabaseAlias)
	r.Get("/dashboard/db/{slug}/{agentSlug}", h.redirectDatabaseAlias)
	r.Get("/{agentSlug}", h.Agent)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.render(r.Context(), w, http.StatusNotFound, notFoundPage, notFoundView())
	})
}

// Agent implements GET /embed/{agentSlug}.
func (h *Handler) Agent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.svc.ResolveAgent(r.Context(), chi.URLParam(r, "agentSlug"))
	if err != nil {
		h.writeError(r.Context(), w, err, "agent")
		return
	}

	h.render(r.Context(), w, http.StatusOK, agentPage, view{
		PageTitle:       agent.Name,
		WorkflowID:      agent.WorkflowID,
		WidgetScriptURL: h.widgetScript,
	})
}

// Dashboard implements GET /embed/dashboard/{slug}.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.svc.ResolveDashboard(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(r.Context(), w, err, "dashboard")
		return
	}

	v := view{
		PageTitle: dashboard.Title,
		Heading:   dashboard.Title,
		Cards:     make([]card, 0, len(dashboard.Agents)),
		EmptyHint: emptyHint(dashboard.Source),
	}
	for _, agent := range dashboard.Agents {
		v.Cards = append(v.Cards, card{
			Name: agent.Name,
			Icon: service.Icon(agent.Name, dashboard.Slug),
			Href: dashboardPath(dashboard.Slug, agent.Slug),
		})
	}
	h.render(r.Context(), w, http.StatusOK, dashboardPage, v)
}

// DashboardAgent implements GET /embed/dashboard/{slug}/{agentSlug}.
func (h *Handler) DashboardAgent(w http.ResponseWriter, r *http.Request) {
	dashboard, agent, err := h.svc.ResolveDashboardAgent(r.Context(), chi.URLParam(r, "slug"), chi.URLParam(r, "agentSlug"))
	if err != nil {
		h.writeError(r.Context(), w, err, "dashboard agent")
		return
	}

	h.render(r.Context(), w, http.StatusOK, dashboardAgentPage, view{
		PageTitle:       agent.Name,
		Heading:         agent.Name,
		BackLink:        dashboardPath(dashboard.Slug),
		WorkflowID:      agent.WorkflowID,
		WidgetScriptURL: h.widgetScript,
	})
}

// redirectDatabaseAlias sends the older /embed/dashboard/db/... links to the
// resolver-backed dashboard routes.
func (h *Handler) redirectDatabaseAlias(w http.ResponseWriter, r *http.Request) {
	segments := []string{chi.URLParam(r, "slug")}
	if agentSlug := chi.URLParam(r, "agentSlug"); agentSlug != "" {
		segments = append(segments, agentSlug)
	}

	target := dashboardPath(segments...)
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusPermanentRedirect)
}

func (h *Handler) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "frame-ancestors "+h.frameAncestors)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) render(ctx context.Context, w http.ResponseWriter, status int, p page, v view) {
	var buf bytes.Buffer
	if err := h.pages[p].ExecuteTemplate(&buf, "layout", v); err != nil {
		h.loggerFrom(ctx).Error("render embed page", zap.String("page", string(p)), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, resource string) {
	var notFound *apperrors.NotFoundError
	if errors.As(err, &notFound) {
		h.loggerFrom(ctx).Info("embed resource not found", zap.String("resource", resource), zap.Error(err))
		h.render(ctx, w, http.StatusNotFound, notFoundPage, notFoundView())
		return
	}

	h.loggerFrom(ctx).Error("embed page failed", zap.String("resource", resource), zap.Error(err))
	h.render(ctx, w, http.StatusInternalServerError, notFoundPage, view{
		PageTitle: "Something went wrong",
		Heading:   "Something went wrong",
		EmptyHint: "Please try again in a moment.",
	})
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}

func notFoundView() view {
	return view{
		PageTitle: "Not found",
		Heading:   "This page could not be found",
		EmptyHint: "Check the link you were given or contact your administrator.",
	}
}

func emptyHint(source string) string {
	if source == service.SourceLegacy {
		return "Contact your administrator to set up agents."
	}
	return "Contact your administrator to add agents to this dashboard."
}

func dashboardPath(segments ...string) string {
	escaped := make([]string, 0, len(segments)+1)
	escaped = append(escaped, embedBasePath+"/dashboard")
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return strings.Join(escaped, "/")
}

func frameAncestors(origins []string) string {
	cleaned := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			cleaned = append(cleaned, origin)
		}
	}
	if len(cleaned) == 0 {
		return "*"
	}
	return strings.Join(cleaned, " ")
}
