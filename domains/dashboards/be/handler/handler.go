package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowlyst-io/agents/domains/dashboards/be/service"
	tenantservice "github.com/flowlyst-io/agents/domains/tenants/be/service"
	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/httpapi"
	platformlogging "github.com/flowlyst-io/agents/platform/go/logging"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

const dashboardsBasePath = "/api/dashboards"

type operation string

const (
	listOperation          operation = "listDashboards"
	createOperation        operation = "createDashboard"
	getOperation           operation = "getDashboard"
	updateOperation        operation = "updateDashboard"
	deleteOperation        operation = "deleteDashboard"
	addAgentsOperation     operation = "addDashboardAgents"
	removeAgentsOperation  operation = "removeDashboardAgents"
	setMembershipOperation operation = "setDashboardAgents"
	reorderOperation       operation = "reorderDashboardAgents"
)

// Handler exposes the dashboards service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("dashboards service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the dashboard and membership endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{dashboardId}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
		r.Post("/agents", h.AddAgents)
		r.Delete("/agents", h.RemoveAgents)
		r.Put("/agents", h.SetMembership)
		r.Put("/agents/order", h.ReorderAgents)
	})
}

type tenantRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type dashboardResponse struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Slug       string     `json:"slug"`
	TenantID   *uuid.UUID `json:"tenantId"`
	TenantName *string    `json:"tenantName"`
	AgentCount int        `json:"agentCount"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type memberResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
	WorkflowID string     `json:"workflowId"`
	TenantID   *uuid.UUID `json:"tenantId"`
	TenantName *string    `json:"tenantName"`
	Order      int        `json:"order"`
}

type dashboardDetailResponse struct {
	dashboardResponse
	Tenant *tenantRef       `json:"tenant"`
	Agents []memberResponse `json:"agents"`
}

type listResponse struct {
	Items []dashboardResponse `json:"items"`
}

type membershipResponse struct {
	Added   []uuid.UUID `json:"added"`
	Removed []uuid.UUID `json:"removed"`
}

type createRequest struct {
	Title         string               `json:"title" validate:"required,max=255"`
	TenantID      httpapi.OptionalUUID `json:"tenantId"`
	NewTenantName *string              `json:"newTenantName" validate:"omitempty,max=4096"`
}

type updateRequest struct {
	Title         *string              `json:"title" validate:"omitempty,max=255"`
	TenantID      httpapi.OptionalUUID `json:"tenantId"`
	NewTenantName *string              `json:"newTenantName" validate:"omitempty,max=4096"`
}

type agentIDsRequest struct {
	AgentIDs []uuid.UUID `json:"agentIds" validate:"required"`
}

// List implements GET /api/dashboards?tenantId=all|general|{uuid}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := tenantFilter(r)
	if err != nil {
		h.writeError(r.Context(), w, err, listOperation)
		return
	}

	dashboards, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.writeError(r.Context(), w, err, listOperation)
		return
	}

	items := make([]dashboardResponse, 0, len(dashboards))
	for _, dashboard := range dashboards {
		items = append(items, toResponse(dashboard))
	}
	httpapi.WriteJSON(w, http.StatusOK, listResponse{Items: items})
}

// Create implements POST /api/dashboards.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	choice, err := tenantservice.ParseChoice(body.TenantID.Set, body.TenantID.Value, body.NewTenantName)
	if err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	input := service.CreateInput{Title: body.Title, Tenant: tenantservice.None()}
	if choice != nil {
		input.Tenant = *choice
	}

	dashboard, err := h.svc.Create(r.Context(), input)
	if err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%s", dashboardsBasePath, dashboard.ID))
	httpapi.WriteJSON(w, http.StatusCreated, toResponse(dashboard))
}

// Get implements GET /api/dashboards/{dashboardId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathUUID(r, "dashboardId")
	if err != nil {
		h.writeError(r.Context(), w, err, getOperation)
		return
	}

	dashboard, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(r.Context(), w, err, getOperation)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toDetailResponse(dashboard))
}

// Update implements PATCH /api/dashboards/{dashboardId}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathUUID(r, "dashboardId")
	if err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}

	var body updateRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}

	choice, err := tenantservice.ParseChoice(body.TenantID.Set, body.TenantID.Value, body.NewTenantName)
	if err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}

	dashboard, err := h.svc.Update(r.Context(), id, service.UpdateInput{Title: body.Title, Tenant: choice})
	if err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toResponse(dashboard))
}

// Delete implements DELETE /api/dashboards/{dashboardId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathUUID(r, "dashboardId")
	if err != nil {
		h.writeError(r.Context(), w, err, deleteOperation)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(r.Context(), w, err, deleteOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddAgents implements POST /api/dashboards/{dashboardId}/agents.
func (h *Handler) AddAgents(w http.ResponseWriter, r *http.Request) {
	id, agentIDs, ok := h.membershipRequest(w, r, addAgentsOperation)
	if !ok {
		return
	}

	added, err := h.svc.AddAgents(r.Context(), id, agentIDs)
	if err != nil {
		h.writeError(r.Context(), w, err, addAgentsOperation)
		return
	}

	h.loggerFrom(r.Context()).Debug("dashboard agents added",
		zap.String("dashboard_id", id.String()),
		zap.Int("requested", len(agentIDs)),
		zap.Int("added", len(added)),
	)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveAgents implements DELETE /api/dashboards/{dashboardId}/agents.
func (h *Handler) RemoveAgents(w http.ResponseWriter, r *http.Request) {
	id, agentIDs, ok := h.membershipRequest(w, r, removeAgentsOperation)
	if !ok {
		return
	}

	if err := h.svc.RemoveAgents(r.Context(), id, agentIDs); err != nil {
		h.writeError(r.Context(), w, err, removeAgentsOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetMembership implements PUT /api/dashboards/{dashboardId}/agents.
func (h *Handler) SetMembership(w http.ResponseWriter, r *http.Request) {
	id, agentIDs, ok := h.membershipRequest(w, r, setMembershipOperation)
	if !ok {
		return
	}

	change, err := h.svc.SetMembership(r.Context(), id, agentIDs)
	if err != nil {
		h.writeError(r.Context(), w, err, setMembershipOperation)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, membershipResponse{Added: change.Added, Removed: change.Removed})
}

// ReorderAgents implements PUT /api/dashboards/{dashboardId}/agents/order.
func (h *Handler) ReorderAgents(w http.ResponseWriter, r *http.Request) {
	id, agentIDs, ok := h.membershipRequest(w, r, reorderOperation)
	if !ok {
		return
	}

	if err := h.svc.ReorderAgents(r.Context(), id, agentIDs); err != nil {
		h.writeError(r.Context(), w, err, reorderOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) membershipRequest(w http.ResponseWriter, r *http.Request, op operation) (uuid.UUID, []uuid.UUID, bool) {
	id, err := httpapi.PathUUID(r, "dashboardId")
	if err != nil {
		h.writeError(r.Context(), w, err, op)
		return uuid.Nil, nil, false
	}

	var body agentIDsRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeError(r.Context(), w, err, op)
		return uuid.Nil, nil, false
	}
	return id, body.AgentIDs, true
}

func tenantFilter(r *http.Request) (persistence.TenantFilter, error) {
	raw, err := httpapi.QueryString(r.URL.Query(), "tenantId")
	if err != nil {
		return persistence.TenantFilter{}, err
	}
	if raw == nil {
		return persistence.TenantFilter{Kind: persistence.TenantFilterAll}, nil
	}

	filter, err := persistence.ParseTenantFilter(*raw)
	if err != nil {
		return persistence.TenantFilter{}, apperrors.NewValidation("tenantId", err.Error())
	}
	return filter, nil
}

func toResponse(dashboard service.Dashboard) dashboardResponse {
	return dashboardResponse{
		ID:         dashboard.ID,
		Title:      dashboard.Title,
		Slug:       dashboard.Slug,
		TenantID:   dashboard.TenantID,
		TenantName: dashboard.TenantName,
		AgentCount: dashboard.AgentCount,
		CreatedAt:  dashboard.CreatedAt,
		UpdatedAt:  dashboard.UpdatedAt,
	}
}

func toDetailResponse(dashboard service.DashboardWithAgents) dashboardDetailResponse {
	resp := dashboardDetailResponse{
		dashboardResponse: toResponse(dashboard.Dashboard),
		Agents:            make([]memberResponse, 0, len(dashboard.Agents)),
	}
	if dashboard.TenantID != nil && dashboard.TenantName != nil {
		resp.Tenant = &tenantRef{ID: *dashboard.TenantID, Name: *dashboard.TenantName}
	}
	for _, m := range dashboard.Agents {
		resp.Agents = append(resp.Agents, memberResponse{
			ID:         m.AgentID,
			Name:       m.Name,
			Slug:       m.Slug,
			WorkflowID: m.WorkflowID,
			TenantID:   m.TenantID,
			TenantName: m.TenantName,
			Order:      m.Order,
		})
	}
	return resp
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, op operation) {
	problem := httpapi.Classify(err)

	logger := h.loggerFrom(ctx)
	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", problem.Status),
		zap.Error(err),
	}

	switch {
	case problem.Status >= http.StatusInternalServerError:
		logger.Error("dashboards operation failed", fields...)
	case problem.Status == http.StatusNotFound:
		logger.Info("dashboards resource not found", fields...)
	default:
		logger.Warn("dashboards request rejected", fields...)
	}

	httpapi.WriteProblem(w, problem)
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
