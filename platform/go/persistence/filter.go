package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TenantFilterKind selects how listings are scoped by tenant.
type TenantFilterKind int

const (
	// TenantFilterAll returns every row.
	TenantFilterAll TenantFilterKind = iota
	// TenantFilterGeneral returns rows without a tenant.
	TenantFilterGeneral
	// TenantFilterTenant returns rows owned by TenantFilter.TenantID.
	TenantFilterTenant
)

// TenantFilter scopes agent and dashboard listings.
type TenantFilter struct {
	Kind     TenantFilterKind
	TenantID uuid.UUID
}

// ErrInvalidTenantFilter reports a filter that is neither all, general nor a UUID.
var ErrInvalidTenantFilter = errors.New("tenantId must be all, general, or a tenant UUID")

// ParseTenantFilter reads the tenantId query value. Empty means all.
func ParseTenantFilter(raw string) (TenantFilter, error) {
	switch value := strings.TrimSpace(raw); value {
	case "", "all":
		return TenantFilter{Kind: TenantFilterAll}, nil
	case "general":
		return TenantFilter{Kind: TenantFilterGeneral}, nil
	default:
		id, err := uuid.Parse(value)
		if err != nil {
			return TenantFilter{}, ErrInvalidTenantFilter
		}
		return TenantFilter{Kind: TenantFilterTenant, TenantID: id}, nil
	}
}

// whereClause renders the filter against column, using $1 when an argument is needed.
func (f TenantFilter) whereClause(column string) (string, []any) {
	switch f.Kind {
	case TenantFilterGeneral:
		return fmt.Sprintf("WHERE %s IS NULL", column), nil
	case TenantFilterTenant:
		return fmt.Sprintf("WHERE %s = $1", column), []any{f.TenantID}
	default:
		return "", nil
	}
}
