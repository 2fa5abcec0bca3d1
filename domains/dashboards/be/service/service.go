package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainrepo "github.com/flowlyst-io/agents/domains/dashboards/be/repo"
	tenantservice "github.com/flowlyst-io/agents/domains/tenants/be/service"
	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

const maxSlugAttempts = 3

// Domain-level errors.
var (
	ErrNotFound       = apperrors.NotFound("dashboard")
	ErrTenantNotFound = apperrors.NotFound("tenant")
	ErrAgentsNotFound = &apperrors.NotFoundError{Resource: "agent", Message: "one or more agents not found"}
	ErrSlugExhausted  = errors.New("could not allocate a unique dashboard slug")
)

// Dashboard is a curated, ordered collection of agents.
type Dashboard struct {
	ID         uuid.UUID
	Title      string
	Slug       string
	TenantID   *uuid.UUID
	TenantName *string
	AgentCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Member is an agent as it appears on a dashboard.
type Member struct {
	AgentID    uuid.UUID
	Name       string
	Slug       string
	WorkflowID string
	TenantID   *uuid.UUID
	TenantName *string
	Order      int
}

// DashboardWithAgents is a dashboard together with its ordered members.
type DashboardWithAgents struct {
	Dashboard
	Agents []Member
}

// CreateInput defines the payload required to create a dashboard.
type CreateInput struct {
	Title  string
	Tenant tenantservice.Choice
}

// UpdateInput lists the fields to change. A nil Tenant leaves the current
// tenant untouched.
type UpdateInput struct {
	Title  *string
	Tenant *tenantservice.Choice
}

// MembershipChange reports the agents added and removed by SetMembership.
type MembershipChange struct {
	Added   []uuid.UUID
	Removed []uuid.UUID
}

// TenantResolver turns a tenant choice into the id to store.
type TenantResolver interface {
	Resolve(ctx context.Context, choice tenantservice.Choice) (*uuid.UUID, error)
}

// Service exposes the dashboards domain operations.
type Service interface {
	List(ctx context.Context, filter persistence.TenantFilter) ([]Dashboard, error)
	Create(ctx context.Context, input CreateInput) (Dashboard, error)
	Get(ctx context.Context, id uuid.UUID) (DashboardWithAgents, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Dashboard, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AddAgents(ctx context.Context, id uuid.UUID, agentIDs []uuid.UUID) ([]uuid.UUID, error)
	RemoveAgents(ctx context.Context, id uuid.UUID, agentIDs []uuid.UUID) error
	SetMembership(ctx context.Context, id uuid.UUID, desired []uuid.UUID) (MembershipChange, error)
	ReorderAgents(ctx context.Context, id uuid.UUID, ordered []uuid.UUID) error
}

type service struct {
	repo    domainrepo.Repository
	tenants TenantResolver
	logger  *zap.Logger
	newID   func() uuid.UUID
	newSlug func() string
}

// New builds a dashboards Service.
func New(repo domainrepo.Repository, tenants TenantResolver, logger *zap.Logger) Service {
	if repo == nil {
		panic("dashboards repository is required")
	}
	if tenants == nil {
		panic("tenant resolver is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &service{
		repo:    repo,
		tenants: tenants,
		logger:  logger,
		newID:   uuid.New,
		newSlug: persistence.GenerateSlug,
	}
}

func (s *service) List(ctx context.Context, filter persistence.TenantFilter) ([]Dashboard, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	dashboards := make([]Dashboard, 0, len(records))
	for _, record := range records {
		dashboards = append(dashboards, mapDashboard(record))
	}
	return dashboards, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (Dashboard, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Dashboard{}, apperrors.NewValidation("title", "title is required")
	}

	tenantID, err := s.tenants.Resolve(ctx, input.Tenant)
	if err != nil {
		return Dashboard{}, err
	}

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		record, err := s.repo.Create(ctx, persistence.CreateDashboardParams{
			ID:       s.newID(),
			Title:    title,
			Slug:     s.newSlug(),
			TenantID: tenantID,
		})
		if errors.Is(err, persistence.ErrDashboardSlugConflict) {
			continue
		}
		if err != nil {
			s.warnOrphanedTenant(input.Tenant, tenantID, err)
			return Dashboard{}, mapStoreError(err)
		}
		return mapDashboard(record), nil
	}

	s.warnOrphanedTenant(input.Tenant, tenantID, ErrSlugExhausted)
	return Dashboard{}, fmt.Errorf("create dashboard: %w", ErrSlugExhausted)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (DashboardWithAgents, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return DashboardWithAgents{}, mapStoreError(err)
	}

	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return DashboardWithAgents{}, err
	}

	result := DashboardWithAgents{Dashboard: mapDashboard(record), Agents: make([]Member, 0, len(members))}
	for _, m := range members {
		result.Agents = append(result.Agents, Member{
			AgentID:    m.AgentID,
			Name:       m.Name,
			Slug:       m.Slug,
			WorkflowID: m.WorkflowID,
			TenantID:   m.TenantID,
			TenantName: m.TenantName,
			Order:      m.Order,
		})
	}
	result.AgentCount = len(result.Agents)
	return result, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Dashboard, error) {
	if input.Title == nil && input.Tenant == nil {
		return Dashboard{}, apperrors.NewValidation("body", "at least one field must be provided")
	}

	params := persistence.UpdateDashboardParams{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return Dashboard{}, apperrors.NewValidation("title", "title must not be empty")
		}
		params.Title = &title
	}

	if input.Tenant != nil {
		tenantID, err := s.tenants.Resolve(ctx, *input.Tenant)
		if err != nil {
			return Dashboard{}, err
		}
		params.SetTenant = true
		params.TenantID = tenantID
	}

	record, err := s.repo.Update(ctx, id, params)
	if err != nil {
		if input.Tenant != nil {
			s.warnOrphanedTenant(*input.Tenant, params.TenantID, err)
		}
		return Dashboard{}, mapStoreError(err)
	}
	return mapDashboard(record), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (s *service) warnOrphanedTenant(choice tenantservice.Choice, tenantID *uuid.UUID, cause error) {
	if choice.Kind != tenantservice.NewTenantName || tenantID == nil {
		return
	}
	s.logger.Warn("tenant created for a failed dashboard write",
		zap.String("tenant_id", tenantID.String()),
		zap.String("tenant_name", choice.Name),
		zap.Error(cause),
	)
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrDashboardNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrAgentNotFound):
		return ErrAgentsNotFound
	case errors.Is(err, persistence.ErrTenantReference):
		return ErrTenantNotFound
	default:
		return err
	}
}

func mapDashboard(record persistence.Dashboard) Dashboard {
	return Dashboard{
		ID:         record.ID,
		Title:      record.Title,
		Slug:       record.Slug,
		TenantID:   record.TenantID,
		TenantName: record.TenantName,
		AgentCount: record.AgentCount,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}
