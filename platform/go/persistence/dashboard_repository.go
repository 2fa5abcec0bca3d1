package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dashboard mirrors a row of the dashboards table with listing aggregates.
type Dashboard struct {
	ID         uuid.UUID  `db:"id"`
	Title      string     `db:"title"`
	Slug       string     `db:"slug"`
	TenantID   *uuid.UUID `db:"tenant_id"`
	TenantName *string    `db:"tenant_name"`
	AgentCount int        `db:"agent_count"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// DashboardMember is an agent as listed inside a dashboard.
type DashboardMember struct {
	AgentID    uuid.UUID  `db:"agent_id"`
	Name       string     `db:"name"`
	Slug       string     `db:"slug"`
	WorkflowID string     `db:"workflow_id"`
	TenantID   *uuid.UUID `db:"tenant_id"`
	TenantName *string    `db:"tenant_name"`
	Order      int        `db:"sort_order"`
	AddedAt    time.Time  `db:"created_at"`
}

// CreateDashboardParams holds the values required to insert a dashboard.
type CreateDashboardParams struct {
	ID       uuid.UUID
	Title    string
	Slug     string
	TenantID *uuid.UUID
}

// UpdateDashboardParams holds a partial dashboard update.
type UpdateDashboardParams struct {
	Title     *string
	SetTenant bool
	TenantID  *uuid.UUID
}

const dashboardColumns = `d.id, d.title, d.slug, d.tenant_id, t.name,
        (SELECT COUNT(*)::int FROM dashboard_agents da WHERE da.dashboard_id = d.id),
        d.created_at, d.updated_at`

// DashboardStore provides access to the dashboards table.
type DashboardStore struct {
	pool *pgxpool.Pool
}

// NewDashboardStore creates a store; assumes BootstrapSchema already ran.
func NewDashboardStore(pool *pgxpool.Pool) (*DashboardStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &DashboardStore{pool: pool}, nil
}

// Create inserts a dashboard.
func (s *DashboardStore) Create(ctx context.Context, params CreateDashboardParams) (Dashboard, error) {
	if params.ID == uuid.Nil {
		return Dashboard{}, errors.New("dashboard id is required")
	}

	row := s.pool.QueryRow(ctx, `
        WITH d AS (
            INSERT INTO dashboards (id, title, slug, tenant_id)
            VALUES ($1, $2, $3, $4)
            RETURNING *
        )
        SELECT d.id, d.title, d.slug, d.tenant_id, t.name, 0, d.created_at, d.updated_at
        FROM d
        LEFT JOIN tenants t ON t.id = d.tenant_id
    `, params.ID, params.Title, params.Slug, params.TenantID)

	dashboard, err := scanDashboard(row)
	if err != nil {
		return Dashboard{}, mapDashboardWriteError(err)
	}
	return dashboard, nil
}

// Update applies a partial update and returns the refreshed row.
func (s *DashboardStore) Update(ctx context.Context, id uuid.UUID, params UpdateDashboardParams) (Dashboard, error) {
	row := s.pool.QueryRow(ctx, `
        WITH d AS (
            UPDATE dashboards
            SET title = COALESCE($2::text, title),
                tenant_id = CASE WHEN $3::boolean THEN $4::uuid ELSE tenant_id END,
                updated_at = NOW()
            WHERE id = $1
            RETURNING *
        )
        SELECT `+dashboardColumns+`
        FROM d
        LEFT JOIN tenants t ON t.id = d.tenant_id
    `, id, params.Title, params.SetTenant, params.TenantID)

	dashboard, err := scanDashboard(row)
	if err != nil {
		return Dashboard{}, mapDashboardWriteError(err)
	}
	return dashboard, nil
}

// Get fetches a dashboard by id.
func (s *DashboardStore) Get(ctx context.Context, id uuid.UUID) (Dashboard, error) {
	return scanDashboard(s.pool.QueryRow(ctx, `
        SELECT `+dashboardColumns+`
        FROM dashboards d
        LEFT JOIN tenants t ON t.id = d.tenant_id
        WHERE d.id = $1
    `, id))
}

// GetBySlug fetches a dashboard by its public slug.
func (s *DashboardStore) GetBySlug(ctx context.Context, slug string) (Dashboard, error) {
	return scanDashboard(s.pool.QueryRow(ctx, `
        SELECT `+dashboardColumns+`
        FROM dashboards d
        LEFT JOIN tenants t ON t.id = d.tenant_id
        WHERE d.slug = $1
    `, slug))
}

// Delete removes a dashboard; memberships cascade.
func (s *DashboardStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dashboards WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDashboardNotFound
	}
	return nil
}

// List returns dashboards matching the filter, newest first.
func (s *DashboardStore) List(ctx context.Context, filter TenantFilter) ([]Dashboard, error) {
	where, args := filter.whereClause("d.tenant_id")
	rows, err := s.pool.Query(ctx, `
        SELECT `+dashboardColumns+`
        FROM dashboards d
        LEFT JOIN tenants t ON t.id = d.tenant_id
        `+where+`
        ORDER BY d.created_at DESC, d.id
    `, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dashboard
	for rows.Next() {
		dashboard, err := scanDashboard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dashboard)
	}
	return out, rows.Err()
}

// ListMembers returns the dashboard's agents ascending by order.
func (s *DashboardStore) ListMembers(ctx context.Context, dashboardID uuid.UUID) ([]DashboardMember, error) {
	return listMembers(ctx, s.pool, dashboardID)
}

func listMembers(ctx context.Context, q querier, dashboardID uuid.UUID) ([]DashboardMember, error) {
	rows, err := q.Query(ctx, `
        SELECT a.id, a.name, a.slug, a.workflow_id, a.tenant_id, t.name, da.sort_order, da.created_at
        FROM dashboard_agents da
        JOIN agents a ON a.id = da.agent_id
        LEFT JOIN tenants t ON t.id = a.tenant_id
        WHERE da.dashboard_id = $1
        ORDER BY da.sort_order, da.created_at, a.id
    `, dashboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DashboardMember
	for rows.Next() {
		var m DashboardMember
		if err := rows.Scan(&m.AgentID, &m.Name, &m.Slug, &m.WorkflowID, &m.TenantID, &m.TenantName, &m.Order, &m.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanDashboard(row pgx.Row) (Dashboard, error) {
	var rec Dashboard
	if err := row.Scan(&rec.ID, &rec.Title, &rec.Slug, &rec.TenantID, &rec.TenantName, &rec.AgentCount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dashboard{}, ErrDashboardNotFound
		}
		return Dashboard{}, err
	}
	return rec, nil
}

func mapDashboardWriteError(err error) error {
	switch {
	case isUniqueViolation(err, constraintDashboardSlug):
		return ErrDashboardSlugConflict
	case isForeignKeyViolation(err, constraintDashboardTenant):
		return ErrTenantReference
	default:
		return err
	}
}
