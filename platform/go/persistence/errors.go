package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Storage-level sentinels. Domain repositories translate these into the
// shared error taxonomy.
var (
	ErrTenantNotFound         = errors.New("tenant not found")
	ErrTenantConflict         = errors.New("tenant name already exists")
	ErrDeletionTargetNotFound = errors.New("target tenant not found")
	ErrTenantReference        = errors.New("referenced tenant does not exist")
	ErrAgentNotFound          = errors.New("agent not found")
	ErrAgentSlugConflict      = errors.New("agent slug already exists")
	ErrDashboardNotFound      = errors.New("dashboard not found")
	ErrDashboardSlugConflict  = errors.New("dashboard slug already exists")
	ErrMembershipMismatch     = errors.New("agent ids do not match dashboard membership")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const (
	constraintTenantName        = "tenants_name_unique"
	constraintAgentSlug         = "agents_slug_unique"
	constraintAgentTenant       = "agents_tenant_fk"
	constraintDashboardSlug     = "dashboards_slug_unique"
	constraintDashboardTenant   = "dashboards_tenant_fk"
	constraintMembershipAgentFK = "dashboard_agents_agent_fk"
)

// violatedConstraint reports the constraint named by a PostgreSQL error with
// the given SQLSTATE code.
func violatedConstraint(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func isUniqueViolation(err error, constraint string) bool {
	name, ok := violatedConstraint(err, pgUniqueViolation)
	return ok && name == constraint
}

func isForeignKeyViolation(err error, constraint string) bool {
	name, ok := violatedConstraint(err, pgForeignKeyViolation)
	return ok && name == constraint
}
