package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tenant mirrors a row of the tenants table.
type Tenant struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TenantWithAgentCount is a tenant listing row.
type TenantWithAgentCount struct {
	Tenant
	AgentCount int `db:"agent_count"`
}

// Disposition selects what happens to a tenant's agents when it is deleted.
type Disposition string

const (
	DispositionMakeGeneral  Disposition = "make_general"
	DispositionReassign     Disposition = "reassign"
	DispositionDeleteAgents Disposition = "delete_agents"
)

// Valid reports whether d is one of the known dispositions.
func (d Disposition) Valid() bool {
	switch d {
	case DispositionMakeGeneral, DispositionReassign, DispositionDeleteAgents:
		return true
	default:
		return false
	}
}

// DeleteTenantParams describes a tenant deletion.
type DeleteTenantParams struct {
	TenantID       uuid.UUID
	Disposition    Disposition
	TargetTenantID *uuid.UUID // required for DispositionReassign
}

// DeleteTenantResult reports the rows touched by a deletion.
type DeleteTenantResult struct {
	AgentsAffected    int64
	DashboardsCleared int64
}

// TenantStore provides access to the tenants table.
type TenantStore struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

// NewTenantStore creates a store; assumes BootstrapSchema already ran.
func NewTenantStore(pool *pgxpool.Pool) (*TenantStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TenantStore{pool: pool, tx: NewTxRunner(pool)}, nil
}

// Create inserts a tenant. A duplicate name yields ErrTenantConflict.
func (s *TenantStore) Create(ctx context.Context, id uuid.UUID, name string) (Tenant, error) {
	if id == uuid.Nil {
		return Tenant{}, errors.New("tenant id is required")
	}

	row := s.pool.QueryRow(ctx, `
        INSERT INTO tenants (id, name)
        VALUES ($1, $2)
        RETURNING id, name, created_at, updated_at
    `, id, name)

	tenant, err := scanTenant(row)
	if err != nil {
		if isUniqueViolation(err, constraintTenantName) {
			return Tenant{}, ErrTenantConflict
		}
		return Tenant{}, err
	}
	return tenant, nil
}

// Rename updates the tenant name.
func (s *TenantStore) Rename(ctx context.Context, id uuid.UUID, name string) (Tenant, error) {
	row := s.pool.QueryRow(ctx, `
        UPDATE tenants
        SET name = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING id, name, created_at, updated_at
    `, id, name)

	tenant, err := scanTenant(row)
	if err != nil {
		if isUniqueViolation(err, constraintTenantName) {
			return Tenant{}, ErrTenantConflict
		}
		return Tenant{}, err
	}
	return tenant, nil
}

// Get fetches a tenant by id.
func (s *TenantStore) Get(ctx context.Context, id uuid.UUID) (Tenant, error) {
	return scanTenant(s.pool.QueryRow(ctx, `
        SELECT id, name, created_at, updated_at
        FROM tenants
        WHERE id = $1
    `, id))
}

// List returns every tenant with the number of agents it owns, newest first.
func (s *TenantStore) List(ctx context.Context) ([]TenantWithAgentCount, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT t.id, t.name, t.created_at, t.updated_at, COUNT(a.id)::int AS agent_count
        FROM tenants t
        LEFT JOIN agents a ON a.tenant_id = t.id
        GROUP BY t.id
        ORDER BY t.created_at DESC, t.name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TenantWithAgentCount
	for rows.Next() {
		var rec TenantWithAgentCount
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.CreatedAt, &rec.UpdatedAt, &rec.AgentCount); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteWithDisposition removes a tenant in one transaction: it applies the
// disposition to the tenant's agents, clears the tenant from dashboards and
// deletes the tenant row. Nothing is persisted unless every step succeeds.
func (s *TenantStore) DeleteWithDisposition(ctx context.Context, params DeleteTenantParams) (DeleteTenantResult, error) {
	if !params.Disposition.Valid() {
		return DeleteTenantResult{}, fmt.Errorf("unknown disposition %q", params.Disposition)
	}
	if params.Disposition == DispositionReassign && params.TargetTenantID == nil {
		return DeleteTenantResult{}, errors.New("reassign requires a target tenant")
	}

	var result DeleteTenantResult
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockTenant(ctx, tx, params.TenantID, "FOR UPDATE"); err != nil {
			return err
		}

		affected, err := applyDisposition(ctx, tx, params)
		if err != nil {
			return err
		}
		result.AgentsAffected = affected

		// Dashboards are cleared explicitly before the delete so the count is
		// reported; the foreign key would otherwise null them silently.
		tag, err := tx.Exec(ctx, `
            UPDATE dashboards SET tenant_id = NULL, updated_at = NOW()
            WHERE tenant_id = $1
        `, params.TenantID)
		if err != nil {
			return fmt.Errorf("clear dashboards: %w", err)
		}
		result.DashboardsCleared = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, params.TenantID)
		if err != nil {
			return fmt.Errorf("delete tenant row: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return ErrTenantNotFound
		}
		return nil
	})
	if err != nil {
		return DeleteTenantResult{}, err
	}
	return result, nil
}

func applyDisposition(ctx context.Context, tx pgx.Tx, params DeleteTenantParams) (int64, error) {
	switch params.Disposition {
	case DispositionMakeGeneral:
		tag, err := tx.Exec(ctx, `
            UPDATE agents SET tenant_id = NULL, updated_at = NOW()
            WHERE tenant_id = $1
        `, params.TenantID)
		if err != nil {
			return 0, fmt.Errorf("move agents to general: %w", err)
		}
		return tag.RowsAffected(), nil
	case DispositionReassign:
		target := *params.TargetTenantID
		if target == params.TenantID {
			return 0, errors.New("target tenant must differ from the deleted tenant")
		}
		if err := lockTenant(ctx, tx, target, "FOR SHARE"); err != nil {
			if errors.Is(err, ErrTenantNotFound) {
				return 0, ErrDeletionTargetNotFound
			}
			return 0, err
		}
		tag, err := tx.Exec(ctx, `
            UPDATE agents SET tenant_id = $2, updated_at = NOW()
            WHERE tenant_id = $1
        `, params.TenantID, target)
		if err != nil {
			return 0, fmt.Errorf("reassign agents: %w", err)
		}
		return tag.RowsAffected(), nil
	case DispositionDeleteAgents:
		tag, err := tx.Exec(ctx, `DELETE FROM agents WHERE tenant_id = $1`, params.TenantID)
		if err != nil {
			return 0, fmt.Errorf("delete agents: %w", err)
		}
		return tag.RowsAffected(), nil
	default:
		return 0, fmt.Errorf("unknown disposition %q", params.Disposition)
	}
}

// lockTenant takes a row lock on the tenant, returning ErrTenantNotFound when absent.
func lockTenant(ctx context.Context, q querier, id uuid.UUID, mode string) error {
	var locked uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM tenants WHERE id = $1 `+mode, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("lock tenant: %w", err)
	}
	return nil
}

func scanTenant(row pgx.Row) (Tenant, error) {
	var rec Tenant
	if err := row.Scan(&rec.ID, &rec.Name, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrTenantNotFound
		}
		return Tenant{}, err
	}
	return rec, nil
}
