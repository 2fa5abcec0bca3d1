package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// Repository exposes the read paths the embed pages need.
type Repository interface {
	AgentBySlug(ctx context.Context, slug string) (persistence.Agent, error)
	AgentsByWorkflowIDs(ctx context.Context, workflowIDs []string) ([]persistence.Agent, error)
	DashboardBySlug(ctx context.Context, slug string) (persistence.Dashboard, error)
	DashboardMembers(ctx context.Context, dashboardID uuid.UUID) ([]persistence.DashboardMember, error)
}

type postgresRepository struct {
	agents     *persistence.AgentStore
	dashboards *persistence.DashboardStore
}

// NewPostgresRepository builds a Repository over the agent and dashboard stores.
func NewPostgresRepository(agents *persistence.AgentStore, dashboards *persistence.DashboardStore) Repository {
	if agents == nil {
		panic("agent store is required")
	}
	if dashboards == nil {
		panic("dashboard store is required")
	}
	return &postgresRepository{agents: agents, dashboards: dashboards}
}

func (r *postgresRepository) AgentBySlug(ctx context.Context, slug string) (persistence.Agent, error) {
	return r.agents.GetBySlug(ctx, slug)
}

func (r *postgresRepository) AgentsByWorkflowIDs(ctx context.Context, workflowIDs []string) ([]persistence.Agent, error) {
	return r.agents.ListByWorkflowIDs(ctx, workflowIDs)
}

func (r *postgresRepository) DashboardBySlug(ctx context.Context, slug string) (persistence.Dashboard, error) {
	return r.dashboards.GetBySlug(ctx, slug)
}

func (r *postgresRepository) DashboardMembers(ctx context.Context, dashboardID uuid.UUID) ([]persistence.DashboardMember, error) {
	return r.dashboards.ListMembers(ctx, dashboardID)
}
