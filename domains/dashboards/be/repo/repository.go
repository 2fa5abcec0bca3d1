package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// Repository exposes persistence operations required by the dashboards service.
type Repository interface {
	List(ctx context.Context, filter persistence.TenantFilter) ([]persistence.Dashboard, error)
	Create(ctx context.Context, params persistence.CreateDashboardParams) (persistence.Dashboard, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Dashboard, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateDashboardParams) (persistence.Dashboard, error)
	Delete(ctx context.Context, id uuid.UUID) error

	ListMembers(ctx context.Context, dashboardID uuid.UUID) ([]persistence.DashboardMember, error)
	AddMembers(ctx context.Context, dashboardID uuid.UUID, agentIDs []uuid.UUID) ([]uuid.UUID, error)
	RemoveMembers(ctx context.Context, dashboardID uuid.UUID, agentIDs []uuid.UUID) (int64, error)
	SetMembers(ctx context.Context, dashboardID uuid.UUID, desired []uuid.UUID, plan persistence.PlanFunc) (persistence.MembershipPlan, error)
	ReorderMembers(ctx context.Context, dashboardID uuid.UUID, ordered []uuid.UUID) error
}

type postgresRepository struct {
	dashboards  *persistence.DashboardStore
	memberships *persistence.MembershipStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(dashboards *persistence.DashboardStore, memberships *persistence.MembershipStore) Repository {
	if dashboards == nil {
		panic("dashboard store is required")
	}
	if memberships == nil {
		panic("membership store is required")
	}
	return &postgresRepository{dashboards: dashboards, memberships: memberships}
}

func (r *postgresRepository) List(ctx context.Context, filter persistence.TenantFilter) ([]persistence.Dashboard, error) {
	return r.dashboards.List(ctx, filter)
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateDashboardParams) (persistence.Dashboard, error) {
	return r.dashboards.Create(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Dashboard, error) {
	return r.dashboards.Get(ctx, id)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateDashboardParams) (persistence.Dashboard, error) {
	return r.dashboards.Update(ctx, id, params)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.dashboards.Delete(ctx, id)
}

func (r *postgresRepository) ListMembers(ctx context.Context, dashboardID uuid.UUID) ([]persistence.DashboardMember, error) {
	return r.dashboards.ListMembers(ctx, dashboardID)
}

func (r *postgresRepository) AddMembers(ctx context.Context, dashboardID uuid.UUID, agentIDs []uuid.UUID) ([]uuid.UUID, error) {
	return r.memberships.Add(ctx, dashboardID, agentIDs)
}

func (r *postgresRepository) RemoveMembers(ctx context.Context, dashboardID uuid.UUID, agentIDs []uuid.UUID) (int64, error) {
	return r.memberships.Remove(ctx, dashboardID, agentIDs)
}

func (r *postgresRepository) SetMembers(ctx context.Context, dashboardID uuid.UUID, desired []uuid.UUID, plan persistence.PlanFunc) (persistence.MembershipPlan, error) {
	return r.memberships.Set(ctx, dashboardID, desired, plan)
}

func (r *postgresRepository) ReorderMembers(ctx context.Context, dashboardID uuid.UUID, ordered []uuid.UUID) error {
	return r.memberships.Reorder(ctx, dashboardID, ordered)
}
