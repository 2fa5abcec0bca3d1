package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// Repository exposes persistence operations required by the tenants service.
type Repository interface {
	List(ctx context.Context) ([]persistence.TenantWithAgentCount, error)
	Create(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Tenant, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error)
	Delete(ctx context.Context, params persistence.DeleteTenantParams) (persistence.DeleteTenantResult, error)
}

type postgresRepository struct {
	store *persistence.TenantStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.TenantStore) Repository {
	if store == nil {
		panic("tenant store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) List(ctx context.Context) ([]persistence.TenantWithAgentCount, error) {
	return r.store.List(ctx)
}

func (r *postgresRepository) Create(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error) {
	return r.store.Create(ctx, id, name)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	return r.store.Get(ctx, id)
}

func (r *postgresRepository) Rename(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error) {
	return r.store.Rename(ctx, id, name)
}

func (r *postgresRepository) Delete(ctx context.Context, params persistence.DeleteTenantParams) (persistence.DeleteTenantResult, error) {
	return r.store.DeleteWithDisposition(ctx, params)
}
