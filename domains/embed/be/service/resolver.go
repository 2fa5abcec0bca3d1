package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowlyst-io/agents/domains/embed/be/legacy"
	domainrepo "github.com/flowlyst-io/agents/domains/embed/be/repo"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// Dashboard sources.
const (
	SourceDatabase = "database"
	SourceLegacy   = "legacy"
)

// errUnknownDashboard tells the chain to consult the next resolver.
var errUnknownDashboard = errors.New("dashboard slug not known to resolver")

// Resolver answers dashboard lookups for one source of dashboards.
type Resolver interface {
	Source() string
	// Dashboard returns errUnknownDashboard when the slug is not handled here.
	Dashboard(ctx context.Context, slug string) (Dashboard, error)
	// IsMember reports whether agent is listed on the dashboard.
	IsMember(ctx context.Context, dashboard Dashboard, agent Agent) (bool, error)
}

// Chain asks each resolver in order; the first one that knows a slug owns it.
type Chain []Resolver

func (c Chain) resolve(ctx context.Context, slug string) (Resolver, Dashboard, error) {
	for _, resolver := range c {
		dashboard, err := resolver.Dashboard(ctx, slug)
		if errors.Is(err, errUnknownDashboard) {
			continue
		}
		if err != nil {
			return nil, Dashboard{}, fmt.Errorf("%s resolver: %w", resolver.Source(), err)
		}
		return resolver, dashboard, nil
	}
	return nil, Dashboard{}, ErrDashboardNotFound
}

type dbResolver struct {
	repo domainrepo.Repository
}

// NewDatabaseResolver resolves dashboards stored in the dashboards table.
func NewDatabaseResolver(repo domainrepo.Repository) Resolver {
	if repo == nil {
		panic("embed repository is required")
	}
	return &dbResolver{repo: repo}
}

func (r *dbResolver) Source() string { return SourceDatabase }

func (r *dbResolver) Dashboard(ctx context.Context, slug string) (Dashboard, error) {
	record, err := r.repo.DashboardBySlug(ctx, slug)
	if errors.Is(err, persistence.ErrDashboardNotFound) {
		return Dashboard{}, errUnknownDashboard
	}
	if err != nil {
		return Dashboard{}, err
	}

	members, err := r.repo.DashboardMembers(ctx, record.ID)
	if err != nil {
		return Dashboard{}, err
	}

	dashboard := Dashboard{
		id:     record.ID,
		Title:  record.Title,
		Slug:   record.Slug,
		Source: SourceDatabase,
		Agents: make([]Agent, 0, len(members)),
	}
	for _, m := range members {
		dashboard.Agents = append(dashboard.Agents, Agent{
			id:         m.AgentID,
			Name:       m.Name,
			Slug:       m.Slug,
			WorkflowID: m.WorkflowID,
		})
	}
	return dashboard, nil
}

func (r *dbResolver) IsMember(_ context.Context, dashboard Dashboard, agent Agent) (bool, error) {
	for _, member := range dashboard.Agents {
		if member.id == agent.id {
			return true, nil
		}
	}
	return false, nil
}

type staticResolver struct {
	repo    domainrepo.Repository
	clients *legacy.Clients
}

// NewStaticResolver resolves the legacy client table. Agents are matched by
// workflow id.
func NewStaticResolver(repo domainrepo.Repository, clients *legacy.Clients) Resolver {
	if repo == nil {
		panic("embed repository is required")
	}
	if clients == nil {
		panic("legacy clients are required")
	}
	return &staticResolver{repo: repo, clients: clients}
}

func (r *staticResolver) Source() string { return SourceLegacy }

func (r *staticResolver) Dashboard(ctx context.Context, slug string) (Dashboard, error) {
	client, ok := r.clients.Lookup(slug)
	if !ok {
		return Dashboard{}, errUnknownDashboard
	}

	records, err := r.repo.AgentsByWorkflowIDs(ctx, client.WorkflowIDs)
	if err != nil {
		return Dashboard{}, err
	}

	dashboard := Dashboard{
		Title:  r.clients.Title(client),
		Slug:   client.Slug,
		Source: SourceLegacy,
		Agents: make([]Agent, 0, len(records)),
	}
	for _, record := range records {
		dashboard.Agents = append(dashboard.Agents, fromRecord(record))
	}
	return dashboard, nil
}

func (r *staticResolver) IsMember(_ context.Context, dashboard Dashboard, agent Agent) (bool, error) {
	client, ok := r.clients.Lookup(dashboard.Slug)
	if !ok {
		return false, nil
	}
	return client.Contains(agent.WorkflowID), nil
}

func fromRecord(record persistence.Agent) Agent {
	return Agent{
		id:         record.ID,
		Name:       record.Name,
		Slug:       record.Slug,
		WorkflowID: record.WorkflowID,
	}
}
