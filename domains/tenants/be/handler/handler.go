package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowlyst-io/agents/domains/tenants/be/service"
	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/httpapi"
	platformlogging "github.com/flowlyst-io/agents/platform/go/logging"
)

const tenantsBasePath = "/api/tenants"

type operation string

const (
	listOperation   operation = "listTenants"
	createOperation operation = "createTenant"
	getOperation    operation = "getTenant"
	updateOperation operation = "updateTenant"
	deleteOperation operation = "deleteTenant"
)

// Handler exposes the tenants service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the tenant endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{tenantId}", h.Get)
	r.Patch("/{tenantId}", h.Update)
	r.Delete("/{tenantId}", h.Delete)
}

type tenantResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	AgentCount *int      `json:"agentCount,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type listResponse struct {
	Items []tenantResponse `json:"items"`
}

type tenantRequest struct {
	Name string `json:"name" validate:"required,max=4096"`
}

// List implements GET /api/tenants.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, err, listOperation)
		return
	}

	items := make([]tenantResponse, 0, len(tenants))
	for _, tenant := range tenants {
		count := tenant.AgentCount
		item := toResponse(tenant)
		item.AgentCount = &count
		items = append(items, item)
	}
	httpapi.WriteJSON(w, http.StatusOK, listResponse{Items: items})
}

// Create implements POST /api/tenants.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body tenantRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	tenant, err := h.svc.Create(r.Context(), body.Name)
	if err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%s", tenantsBasePath, tenant.ID))
	httpapi.WriteJSON(w, http.StatusCreated, toResponse(tenant))
}

// Get implements GET /api/tenants/{tenantId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathUUID(r, "tenantId")
	if err != nil {
		h.writeError(r.Context(), w, err, getOperation)
		return
	}

	tenant, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(r.Context(), w, err, getOperation)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toResponse(tenant))
}

// Update implements PATCH /api/tenants/{tenantId}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathUUID(r, "tenantId")
	if err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}

	var body tenantRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}

	tenant, err := h.svc.Rename(r.Context(), id, body.Name)
	if err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toResponse(tenant))
}

// Delete implements DELETE /api/tenants/{tenantId}?action=...&targetTenantId=...
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathUUID(r, "tenantId")
	if err != nil {
		h.writeError(r.Context(), w, err, deleteOperation)
		return
	}

	input, err := deleteInput(r)
	if err != nil {
		h.writeError(r.Context(), w, err, deleteOperation)
		return
	}

	result, err := h.svc.Delete(r.Context(), id, input)
	if err != nil {
		h.writeError(r.Context(), w, err, deleteOperation)
		return
	}

	h.loggerFrom(r.Context()).Info("tenant deleted",
		zap.String("tenant_id", id.String()),
		zap.String("disposition", string(result.Disposition)),
		zap.Int64("agents_affected", result.AgentsAffected),
		zap.Int64("dashboards_cleared", result.DashboardsCleared),
	)
	w.WriteHeader(http.StatusNoContent)
}

func deleteInput(r *http.Request) (service.DeleteInput, error) {
	query := r.URL.Query()

	action, err := httpapi.QueryString(query, "action")
	if err != nil {
		return service.DeleteInput{}, err
	}
	target, err := httpapi.QueryString(query, "targetTenantId")
	if err != nil {
		return service.DeleteInput{}, err
	}

	var input service.DeleteInput
	if action != nil {
		input.Action = *action
	}
	if target != nil && *target != "" {
		targetID, err := uuid.Parse(*target)
		if err != nil {
			return service.DeleteInput{}, apperrors.NewValidation("targetTenantId", "targetTenantId must be a valid UUID")
		}
		input.TargetTenantID = &targetID
	}
	return input, nil
}

func toResponse(tenant service.Tenant) tenantResponse {
	return tenantResponse{
		ID:        tenant.ID,
		Name:      tenant.Name,
		CreatedAt: tenant.CreatedAt,
		UpdatedAt: tenant.UpdatedAt,
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
		logger.Error("tenants operation failed", fields...)
	case problem.Status == http.StatusNotFound:
		logger.Info("tenants resource not found", fields...)
	default:
		logger.Warn("tenants request rejected", fields...)
	}

	httpapi.WriteProblem(w, problem)
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
