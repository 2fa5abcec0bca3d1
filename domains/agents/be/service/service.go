package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainrepo "github.com/flowlyst-io/agents/domains/agents/be/repo"
	tenantservice "github.com/flowlyst-io/agents/domains/tenants/be/service"
	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

const maxSlugAttempts = 3

// Domain-level errors.
var (
	ErrNotFound       = apperrors.NotFound("agent")
	ErrTenantNotFound = apperrors.NotFound("tenant")
	ErrSlugExhausted  = errors.New("could not allocate a unique agent slug")
)

// Agent is a named binding to an external chat workflow.
type Agent struct {
	ID         uuid.UUID
	Name       string
	Slug       string
	WorkflowID string
	TenantID   *uuid.UUID
	TenantName *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateInput defines the payload required to create an agent.
type CreateInput struct {
	Name       string
	WorkflowID string
	Tenant     tenantservice.Choice
}

// UpdateInput lists the fields to change. A nil Tenant leaves the current
// tenant untouched.
type UpdateInput struct {
	Name       *string
	WorkflowID *string
	Tenant     *tenantservice.Choice
}

// TenantResolver turns a tenant choice into the id to store.
type TenantResolver interface {
	Resolve(ctx context.Context, choice tenantservice.Choice) (*uuid.UUID, error)
}

// Service exposes the agents domain operations.
type Service interface {
	List(ctx context.Context, filter persistence.TenantFilter) ([]Agent, error)
	Create(ctx context.Context, input CreateInput) (Agent, error)
	Get(ctx context.Context, id uuid.UUID) (Agent, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Agent, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo    domainrepo.Repository
	tenants TenantResolver
	logger  *zap.Logger
	newID   func() uuid.UUID
	newSlug func() string
}

// New builds an agents Service.
func New(repo domainrepo.Repository, tenants TenantResolver, logger *zap.Logger) Service {
	if repo == nil {
		panic("agents repository is required")
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

func (s *service) List(ctx context.Context, filter persistence.TenantFilter) ([]Agent, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	agents := make([]Agent, 0, len(records))
	for _, record := range records {
		agents = append(agents, mapAgent(record))
	}
	return agents, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (Agent, error) {
	name := strings.TrimSpace(input.Name)
	workflowID := strings.TrimSpace(input.WorkflowID)

	errs := apperrors.FieldErrors{}
	if name == "" {
		errs.Add("name", "name is required")
	}
	if workflowID == "" {
		errs.Add("workflowId", "workflowId is required")
	}
	if err := errs.Err(); err != nil {
		return Agent{}, err
	}

	tenantID, err := s.tenants.Resolve(ctx, input.Tenant)
	if err != nil {
		return Agent{}, err
	}

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		record, err := s.repo.Create(ctx, persistence.CreateAgentParams{
			ID:         s.newID(),
			Name:       name,
			Slug:       s.newSlug(),
			WorkflowID: workflowID,
			TenantID:   tenantID,
		})
		if errors.Is(err, persistence.ErrAgentSlugConflict) {
			continue
		}
		if err != nil {
			s.warnOrphanedTenant(input.Tenant, tenantID, err)
			return Agent{}, mapStoreError(err)
		}
		return mapAgent(record), nil
	}

	s.warnOrphanedTenant(input.Tenant, tenantID, ErrSlugExhausted)
	return Agent{}, fmt.Errorf("create agent: %w", ErrSlugExhausted)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Agent, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Agent{}, mapStoreError(err)
	}
	return mapAgent(record), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Agent, error) {
	if input.Name == nil && input.WorkflowID == nil && input.Tenant == nil {
		return Agent{}, apperrors.NewValidation("body", "at least one field must be provided")
	}

	params := persistence.UpdateAgentParams{}
	errs := apperrors.FieldErrors{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			errs.Add("name", "name must not be empty")
		}
		params.Name = &name
	}
	if input.WorkflowID != nil {
		workflowID := strings.TrimSpace(*input.WorkflowID)
		if workflowID == "" {
			errs.Add("workflowId", "workflowId must not be empty")
		}
		params.WorkflowID = &workflowID
	}
	if err := errs.Err(); err != nil {
		return Agent{}, err
	}

	if input.Tenant != nil {
		tenantID, err := s.tenants.Resolve(ctx, *input.Tenant)
		if err != nil {
			return Agent{}, err
		}
		params.SetTenant = true
		params.TenantID = tenantID
	}

	record, err := s.repo.Update(ctx, id, params)
	if err != nil {
		if input.Tenant != nil {
			s.warnOrphanedTenant(*input.Tenant, params.TenantID, err)
		}
		return Agent{}, mapStoreError(err)
	}
	return mapAgent(record), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// warnOrphanedTenant records a tenant created inline for a write that then failed.
func (s *service) warnOrphanedTenant(choice tenantservice.Choice, tenantID *uuid.UUID, cause error) {
	if choice.Kind != tenantservice.NewTenantName || tenantID == nil {
		return
	}
	s.logger.Warn("tenant created for a failed agent write",
		zap.String("tenant_id", tenantID.String()),
		zap.String("tenant_name", choice.Name),
		zap.Error(cause),
	)
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrAgentNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrTenantReference):
		return ErrTenantNotFound
	default:
		return err
	}
}

func mapAgent(record persistence.Agent) Agent {
	return Agent{
		ID:         record.ID,
		Name:       record.Name,
		Slug:       record.Slug,
		WorkflowID: record.WorkflowID,
		TenantID:   record.TenantID,
		TenantName: record.TenantName,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}
