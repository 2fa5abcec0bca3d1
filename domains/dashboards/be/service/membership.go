package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// AddAgents appends the agents that are not yet on the dashboard. Agents
// already present keep their position. It returns the ids actually added.
func (s *service) AddAgents(ctx context.Context, id uuid.UUID, agentIDs []uuid.UUID) ([]uuid.UUID, error) {
	ids, err := requireAgentIDs(agentIDs)
	if err != nil {
		return nil, err
	}

	added, err := s.repo.AddMembers(ctx, id, ids)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return added, nil
}

// RemoveAgents drops the agents from the dashboard. Non-members are ignored.
func (s *service) RemoveAgents(ctx context.Context, id uuid.UUID, agentIDs []uuid.UUID) error {
	ids, err := requireAgentIDs(agentIDs)
	if err != nil {
		return err
	}

	if _, err := s.repo.RemoveMembers(ctx, id, ids); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// SetMembership makes the dashboard's membership equal to desired. Current
// members missing from desired are removed and new ones are appended in the
// order given. An empty desired list clears the dashboard.
func (s *service) SetMembership(ctx context.Context, id uuid.UUID, desired []uuid.UUID) (MembershipChange, error) {
	if err := rejectNilIDs(desired); err != nil {
		return MembershipChange{}, err
	}

	applied, err := s.repo.SetMembers(ctx, id, dedupe(desired), planMembership)
	if err != nil {
		return MembershipChange{}, mapStoreError(err)
	}
	return MembershipChange{
		Added:   nonNil(applied.Add),
		Removed: nonNil(applied.Remove),
	}, nil
}

// ReorderAgents rewrites the positions so the members appear in the given
// order. ordered must list every current member exactly once.
func (s *service) ReorderAgents(ctx context.Context, id uuid.UUID, ordered []uuid.UUID) error {
	if err := rejectNilIDs(ordered); err != nil {
		return err
	}
	if len(dedupe(ordered)) != len(ordered) {
		return apperrors.NewValidation("agentIds", "agentIds must not contain duplicates")
	}

	if err := s.repo.ReorderMembers(ctx, id, ordered); err != nil {
		if errors.Is(err, persistence.ErrMembershipMismatch) {
			return apperrors.NewValidation("agentIds", "agentIds must list every current member exactly once")
		}
		return mapStoreError(err)
	}
	return nil
}

// planMembership computes the removals (current minus desired, in current
// order) and additions (desired minus current, in desired order).
func planMembership(current, desired []uuid.UUID) persistence.MembershipPlan {
	currentSet := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}
	desiredSet := make(map[uuid.UUID]struct{}, len(desired))
	for _, id := range desired {
		desiredSet[id] = struct{}{}
	}

	var plan persistence.MembershipPlan
	for _, id := range current {
		if _, keep := desiredSet[id]; !keep {
			plan.Remove = append(plan.Remove, id)
		}
	}
	for _, id := range desired {
		if _, present := currentSet[id]; !present {
			plan.Add = append(plan.Add, id)
		}
	}
	return plan
}

func requireAgentIDs(agentIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(agentIDs) == 0 {
		return nil, apperrors.NewValidation("agentIds", "agentIds must contain at least one agent")
	}
	if err := rejectNilIDs(agentIDs); err != nil {
		return nil, err
	}
	return dedupe(agentIDs), nil
}

func rejectNilIDs(ids []uuid.UUID) error {
	for _, id := range ids {
		if id == uuid.Nil {
			return apperrors.NewValidation("agentIds", "agentIds must not contain the nil UUID")
		}
	}
	return nil
}

// dedupe keeps the first occurrence of every id.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
