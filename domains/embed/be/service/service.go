package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainrepo "github.com/flowlyst-io/agents/domains/embed/be/repo"
	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// Domain-level errors.
var (
	ErrAgentNotFound     = apperrors.NotFound("agent")
	ErrDashboardNotFound = apperrors.NotFound("dashboard")
)

// Agent is the public view of an agent rendered inside an embed.
type Agent struct {
	id         uuid.UUID
	Name       string
	Slug       string
	WorkflowID string
}

// Dashboard is a resolved embed dashboard with its agents in display order.
type Dashboard struct {
	id     uuid.UUID
	Title  string
	Slug   string
	Source string
	Agents []Agent
}

// Service resolves public embed slugs.
type Service interface {
	ResolveAgent(ctx context.Context, agentSlug string) (Agent, error)
	ResolveDashboard(ctx context.Context, slug string) (Dashboard, error)
	ResolveDashboardAgent(ctx context.Context, slug, agentSlug string) (Dashboard, Agent, error)
}

type service struct {
	repo   domainrepo.Repository
	chain  Chain
	logger *zap.Logger
}

// New builds an embed Service that consults resolvers in the given order.
func New(repo domainrepo.Repository, logger *zap.Logger, resolvers ...Resolver) Service {
	if repo == nil {
		panic("embed repository is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if len(resolvers) == 0 {
		panic("at least one dashboard resolver is required")
	}
	return &service{repo: repo, chain: Chain(resolvers), logger: logger}
}

func (s *service) ResolveAgent(ctx context.Context, agentSlug string) (Agent, error) {
	record, err := s.repo.AgentBySlug(ctx, agentSlug)
	if errors.Is(err, persistence.ErrAgentNotFound) {
		return Agent{}, ErrAgentNotFound
	}
	if err != nil {
		return Agent{}, fmt.Errorf("resolve agent %q: %w", agentSlug, err)
	}
	return fromRecord(record), nil
}

func (s *service) ResolveDashboard(ctx context.Context, slug string) (Dashboard, error) {
	resolver, dashboard, err := s.chain.resolve(ctx, slug)
	if err != nil {
		return Dashboard{}, err
	}

	s.logger.Debug("embed dashboard resolved",
		zap.String("slug", slug),
		zap.String("source", resolver.Source()),
		zap.Int("agents", len(dashboard.Agents)),
	)
	return dashboard, nil
}

func (s *service) ResolveDashboardAgent(ctx context.Context, slug, agentSlug string) (Dashboard, Agent, error) {
	resolver, dashboard, err := s.chain.resolve(ctx, slug)
	if err != nil {
		return Dashboard{}, Agent{}, err
	}

	agent, err := s.ResolveAgent(ctx, agentSlug)
	if err != nil {
		return Dashboard{}, Agent{}, err
	}

	member, err := resolver.IsMember(ctx, dashboard, agent)
	if err != nil {
		return Dashboard{}, Agent{}, fmt.Errorf("%s resolver: %w", resolver.Source(), err)
	}
	if !member {
		return Dashboard{}, Agent{}, ErrAgentNotFound
	}
	return dashboard, agent, nil
}
