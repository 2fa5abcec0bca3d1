package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// Repository exposes persistence operations required by the agents service.
type Repository interface {
	List(ctx context.Context, filter persistence.TenantFilter) ([]persistence.Agent, error)
	Create(ctx context.Context, params persistence.CreateAgentParams) (persistence.Agent, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Agent, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateAgentParams) (persistence.Agent, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	store *persistence.AgentStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.AgentStore) Repository {
	if store == nil {
		panic("agent store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) List(ctx context.Context, filter persistence.TenantFilter) ([]persistence.Agent, error) {
	return r.store.List(ctx, filter)
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateAgentParams) (persistence.Agent, error) {
	return r.store.Create(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Agent, error) {
	return r.store.Get(ctx, id)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateAgentParams) (persistence.Agent, error) {
	return r.store.Update(ctx, id, params)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.Delete(ctx, id)
}
