package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowlyst-io/agents/domains/agents/be/service"
	tenantservice "github.com/flowlyst-io/agents/domains/tenants/be/service"
	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/httpapi"
	platformlogging "github.com/flowlyst-io/agents/platform/go/logging"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

const agentsBasePath = "/api/agents"

type operation string

const (
	listOperation   operation = "listAgents"
	createOperation operation = "createAgent"
	getOperation    operation = "getAgent"
	updateOperation operation = "updateAgent"
	deleteOperation operation = "deleteAgent"
)

// Handler exposes the agents service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("agents service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the agent endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{agentId}", h.Get)
	r.Patch("/{agentId}", h.Update)
	r.Delete("/{agentId}", h.Delete)
}

type agentResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
	WorkflowID string     `json:"workflowId"`
	TenantID   *uuid.UUID `json:"tenantId"`
	TenantName *string    `json:"tenantName"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type listResponse struct {
	Items []agentResponse `json:"items"`
}

type createRequest struct {
	Name          string               `json:"name" validate:"required,max=255"`
	WorkflowID    string               `json:"workflowId" validate:"required,max=255"`
	TenantID      httpapi.OptionalUUID `json:"tenantId"`
	NewTenantName *string              `json:"newTenantName" validate:"omitempty,max=4096"`
}

type updateRequest struct {
	Name          *string              `json:"name" validate:"omitempty,max=255"`
	WorkflowID    *string              `json:"workflowId" validate:"omitempty,max=255"`
	TenantID      httpapi.OptionalUUID `json:"tenantId"`
	NewTenantName *string              `json:"newTenantName" validate:"omitempty,max=4096"`
}

// List implements GET /api/agents?tenantId=all|general|{uuid}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := tenantFilter(r)
	if err != nil {
		h.writeError(r.Context(), w, err, listOperation)
		return
	}

	agents, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.writeError(r.Context(), w, err, listOperation)
		return
	}

	items := make([]agentResponse, 0, len(agents))
	for _, agent := range agents {
		items = append(items, toResponse(agent))
	}
	httpapi.WriteJSON(w, http.StatusOK, listResponse{Items: items})
}

// Create implements POST /api/agents.
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

	input := service.CreateInput{Name: body.Name, WorkflowID: body.WorkflowID, Tenant: tenantservice.None()}
	if choice != nil {
		input.Tenant = *choice
	}

	agent, err := h.svc.Create(r.Context(), input)
	if err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%s", agentsBasePath, agent.ID))
	httpapi.WriteJSON(w, http.StatusCreated, toResponse(agent))
}

// Get implements GET /api/agents/{agentId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathUUID(r, "agentId")
	if err != nil {
		h.writeError(r.Context(), w, err, getOperation)
		return
	}

	agent, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(r.Context(), w, err, getOperation)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toResponse(agent))
}

// Update implements PATCH /api/agents/{agentId}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathUUID(r, "agentId")
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

	agent, err := h.svc.Update(r.Context(), id, service.UpdateInput{
		Name:       body.Name,
		WorkflowID: body.WorkflowID,
		Tenant:     choice,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toResponse(agent))
}

// Delete implements DELETE /api/agents/{agentId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathUUID(r, "agentId")
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

func toResponse(agent service.Agent) agentResponse {
	return agentResponse{
		ID:         agent.ID,
		Name:       agent.Name,
		Slug:       agent.Slug,
		WorkflowID: agent.WorkflowID,
		TenantID:   agent.TenantID,
		TenantName: agent.TenantName,
		CreatedAt:  agent.CreatedAt,
		UpdatedAt:  agent.UpdatedAt,
	}
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
		logger.Error("agents operation failed", fields...)
	case problem.Status == http.StatusNotFound:
		logger.Info("agents resource not found", fields...)
	default:
		logger.Warn("agents request rejected", fields...)
	}

	httpapi.WriteProblem(w, problem)
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
