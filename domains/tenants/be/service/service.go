package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainrepo "github.com/flowlyst-io/agents/domains/tenants/be/repo"
	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// MaxNameLength bounds tenant names, counted in characters.
const MaxNameLength = 255

var namePattern = regexp.MustCompile(`^[A-Za-z0-9 _.\-]+$`)

// Domain-level errors.
var (
	ErrNotFound       = apperrors.NotFound("tenant")
	ErrTargetNotFound = &apperrors.NotFoundError{Resource: "tenant", Message: "target tenant not found"}
	ErrConflict       = &apperrors.ConflictError{Resource: "tenant", Message: "tenant name already exists"}
)

// Tenant is a customer organization grouping agents and dashboards.
type Tenant struct {
	ID         uuid.UUID
	Name       string
	AgentCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DeleteInput selects the disposition applied to the tenant's agents.
type DeleteInput struct {
	Action         string
	TargetTenantID *uuid.UUID
}

// DeleteResult reports what a deletion touched.
type DeleteResult struct {
	Disposition       persistence.Disposition
	AgentsAffected    int64
	DashboardsCleared int64
}

// DeletionObserver is notified of every deletion attempt.
type DeletionObserver interface {
	ObserveTenantDeletion(disposition, outcome string)
}

// Deletion outcomes reported to the DeletionObserver.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Service exposes the tenants domain operations.
type Service interface {
	List(ctx context.Context) ([]Tenant, error)
	Create(ctx context.Context, name string) (Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (Tenant, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (Tenant, error)
	Delete(ctx context.Context, id uuid.UUID, input DeleteInput) (DeleteResult, error)
	Resolve(ctx context.Context, choice Choice) (*uuid.UUID, error)
}

type service struct {
	repo     domainrepo.Repository
	observer DeletionObserver
	newID    func() uuid.UUID
}

// New builds a tenants Service. observer may be nil.
func New(repo domainrepo.Repository, observer DeletionObserver) Service {
	if repo == nil {
		panic("tenants repository is required")
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &service{repo: repo, observer: observer, newID: uuid.New}
}

func (s *service) List(ctx context.Context) ([]Tenant, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	tenants := make([]Tenant, 0, len(records))
	for _, record := range records {
		tenant := mapTenant(record.Tenant)
		tenant.AgentCount = record.AgentCount
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}

func (s *service) Create(ctx context.Context, name string) (Tenant, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return Tenant{}, err
	}

	record, err := s.repo.Create(ctx, s.newID(), normalized)
	if err != nil {
		if errors.Is(err, persistence.ErrTenantConflict) {
			return Tenant{}, ErrConflict
		}
		return Tenant{}, err
	}
	return mapTenant(record), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Tenant, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrTenantNotFound) {
			return Tenant{}, ErrNotFound
		}
		return Tenant{}, err
	}
	return mapTenant(record), nil
}

func (s *service) Rename(ctx context.Context, id uuid.UUID, name string) (Tenant, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return Tenant{}, err
	}

	record, err := s.repo.Rename(ctx, id, normalized)
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrTenantNotFound):
			return Tenant{}, ErrNotFound
		case errors.Is(err, persistence.ErrTenantConflict):
			return Tenant{}, ErrConflict
		default:
			return Tenant{}, err
		}
	}
	return mapTenant(record), nil
}

// NormalizeName trims name and checks it against the tenant naming rules.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return "", apperrors.NewValidation("name", "name is required")
	case utf8.RuneCountInString(trimmed) > MaxNameLength:
		return "", apperrors.NewValidation("name", "name must be at most 255 characters")
	case !namePattern.MatchString(trimmed):
		return "", apperrors.NewValidation("name", "name may contain only letters, numbers, spaces, hyphens, underscores, and periods")
	}
	return trimmed, nil
}

func mapTenant(record persistence.Tenant) Tenant {
	return Tenant{
		ID:        record.ID,
		Name:      record.Name,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

type noopObserver struct{}

func (noopObserver) ObserveTenantDeletion(string, string) {}
