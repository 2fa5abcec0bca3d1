package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Agent mirrors a row of the agents table joined with its tenant name.
type Agent struct {
	ID         uuid.UUID  `db:"id"`
	Name       string     `db:"name"`
	Slug       string     `db:"slug"`
	WorkflowID string     `db:"workflow_id"`
	TenantID   *uuid.UUID `db:"tenant_id"`
	TenantName *string    `db:"tenant_name"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// CreateAgentParams holds the values required to insert an agent.
type CreateAgentParams struct {
	ID         uuid.UUID
	Name       string
	Slug       string
	WorkflowID string
	TenantID   *uuid.UUID
}

// UpdateAgentParams holds a partial agent update. Nil pointers leave the
// column unchanged; SetTenant replaces tenant_id with TenantID (nil clears it).
type UpdateAgentParams struct {
	Name       *string
	WorkflowID *string
	SetTenant  bool
	TenantID   *uuid.UUID
}

const agentColumns = `a.id, a.name, a.slug, a.workflow_id, a.tenant_id, t.name, a.created_at, a.updated_at`

// AgentStore provides access to the agents table.
type AgentStore struct {
	pool *pgxpool.Pool
}

// NewAgentStore creates a store; assumes BootstrapSchema already ran.
func NewAgentStore(pool *pgxpool.Pool) (*AgentStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &AgentStore{pool: pool}, nil
}

// Create inserts an agent. Slug collisions yield ErrAgentSlugConflict and an
// unknown tenant yields ErrTenantReference.
func (s *AgentStore) Create(ctx context.Context, params CreateAgentParams) (Agent, error) {
	if params.ID == uuid.Nil {
		return Agent{}, errors.New("agent id is required")
	}

	row := s.pool.QueryRow(ctx, `
        WITH a AS (
            INSERT INTO agents (id, name, slug, workflow_id, tenant_id)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING *
        )
        SELECT `+agentColumns+`
        FROM a
        LEFT JOIN tenants t ON t.id = a.tenant_id
    `, params.ID, params.Name, params.Slug, params.WorkflowID, params.TenantID)

	agent, err := scanAgent(row)
	if err != nil {
		return Agent{}, mapAgentWriteError(err)
	}
	return agent, nil
}

// Update applies a partial update and returns the refreshed row.
func (s *AgentStore) Update(ctx context.Context, id uuid.UUID, params UpdateAgentParams) (Agent, error) {
	row := s.pool.QueryRow(ctx, `
        WITH a AS (
            UPDATE agents
            SET name = COALESCE($2::text, name),
                workflow_id = COALESCE($3::text, workflow_id),
                tenant_id = CASE WHEN $4::boolean THEN $5::uuid ELSE tenant_id END,
                updated_at = NOW()
            WHERE id = $1
            RETURNING *
        )
        SELECT `+agentColumns+`
        FROM a
        LEFT JOIN tenants t ON t.id = a.tenant_id
    `, id, params.Name, params.WorkflowID, params.SetTenant, params.TenantID)

	agent, err := scanAgent(row)
	if err != nil {
		return Agent{}, mapAgentWriteError(err)
	}
	return agent, nil
}

// Get fetches an agent by id.
func (s *AgentStore) Get(ctx context.Context, id uuid.UUID) (Agent, error) {
	return scanAgent(s.pool.QueryRow(ctx, `
        SELECT `+agentColumns+`
        FROM agents a
        LEFT JOIN tenants t ON t.id = a.tenant_id
        WHERE a.id = $1
    `, id))
}

// GetBySlug fetches an agent by its public slug.
func (s *AgentStore) GetBySlug(ctx context.Context, slug string) (Agent, error) {
	return scanAgent(s.pool.QueryRow(ctx, `
        SELECT `+agentColumns+`
        FROM agents a
        LEFT JOIN tenants t ON t.id = a.tenant_id
        WHERE a.slug = $1
    `, slug))
}

// Delete removes an agent; memberships cascade.
func (s *AgentStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAgentNotFound
	}
	return nil
}

// List returns agents matching the filter, newest first.
func (s *AgentStore) List(ctx context.Context, filter TenantFilter) ([]Agent, error) {
	where, args := filter.whereClause("a.tenant_id")
	rows, err := s.pool.Query(ctx, `
        SELECT `+agentColumns+`
        FROM agents a
        LEFT JOIN tenants t ON t.id = a.tenant_id
        `+where+`
        ORDER BY a.created_at DESC, a.id
    `, args...)
	if err != nil {
		return nil, err
	}
	return collectAgents(rows)
}

// ListByWorkflowIDs returns agents bound to any of the workflow ids, in the
// order the ids were given.
func (s *AgentStore) ListByWorkflowIDs(ctx context.Context, workflowIDs []string) ([]Agent, error) {
	if len(workflowIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
        SELECT `+agentColumns+`
        FROM agents a
        LEFT JOIN tenants t ON t.id = a.tenant_id
        WHERE a.workflow_id = ANY($1::text[])
        ORDER BY array_position($1::text[], a.workflow_id), a.created_at
    `, workflowIDs)
	if err != nil {
		return nil, err
	}
	return collectAgents(rows)
}

func collectAgents(rows pgx.Rows) ([]Agent, error) {
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, agent)
	}
	return out, rows.Err()
}

func scanAgent(row pgx.Row) (Agent, error) {
	var rec Agent
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Slug, &rec.WorkflowID, &rec.TenantID, &rec.TenantName, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrAgentNotFound
		}
		return Agent{}, err
	}
	return rec, nil
}

func mapAgentWriteError(err error) error {
	switch {
	case isUniqueViolation(err, constraintAgentSlug):
		return ErrAgentSlugConflict
	case isForeignKeyViolation(err, constraintAgentTenant):
		return ErrTenantReference
	default:
		return err
	}
}
