package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

func TestPlanMembership(t *testing.T) {
	t.Parallel()

	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	cases := []struct {
		name    string
		current []uuid.UUID
		desired []uuid.UUID
		remove  []uuid.UUID
		add     []uuid.UUID
	}{
		{name: "from empty", desired: []uuid.UUID{b, a}, add: []uuid.UUID{b, a}},
		{name: "unchanged", current: []uuid.UUID{a, b}, desired: []uuid.UUID{b, a}},
		{name: "swap one", current: []uuid.UUID{a, b, c}, desired: []uuid.UUID{a, d, c}, remove: []uuid.UUID{b}, add: []uuid.UUID{d}},
		{name: "clear", current: []uuid.UUID{a, b}, remove: []uuid.UUID{a, b}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			plan := planMembership(tc.current, tc.desired)
			require.Equal(t, tc.remove, plan.Remove)
			require.Equal(t, tc.add, plan.Add)
		})
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()
	require.Equal(t, []uuid.UUID{a, b}, dedupe([]uuid.UUID{a, b, a, b, a}))
}

func TestAddAgents(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	a, b := uuid.New(), uuid.New()
	repo := &mockRepository{}
	repo.addFn = func(ctx context.Context, gotID uuid.UUID, agentIDs []uuid.UUID) ([]uuid.UUID, error) {
		require.Equal(t, id, gotID)
		require.Equal(t, []uuid.UUID{a, b}, agentIDs)
		return []uuid.UUID{b}, nil
	}

	added, err := newTestService(t, repo).AddAgents(context.Background(), id, []uuid.UUID{a, b, a})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{b}, added)
}

func TestAddAgentsValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &mockRepository{})

	_, err := svc.AddAgents(context.Background(), uuid.New(), nil)
	requireValidationField(t, err, "agentIds")

	_, err = svc.AddAgents(context.Background(), uuid.New(), []uuid.UUID{uuid.Nil})
	requireValidationField(t, err, "agentIds")

	require.Error(t, svc.RemoveAgents(context.Background(), uuid.New(), []uuid.UUID{}))
}

func TestAddAgentsErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		repoErr error
		message string
	}{
		{name: "dashboard", repoErr: persistence.ErrDashboardNotFound, message: "dashboard not found"},
		{name: "agent", repoErr: persistence.ErrAgentNotFound, message: "one or more agents not found"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := &mockRepository{}
			repo.addFn = func(ctx context.Context, id uuid.UUID, agentIDs []uuid.UUID) ([]uuid.UUID, error) {
				return nil, tc.repoErr
			}

			_, err := newTestService(t, repo).AddAgents(context.Background(), uuid.New(), []uuid.UUID{uuid.New()})
			require.ErrorIs(t, err, apperrors.ErrNotFound)
			require.EqualError(t, err, tc.message)
		})
	}
}

func TestRemoveAgents(t *testing.T) {
	t.Parallel()

	a := uuid.New()
	repo := &mockRepository{}
	repo.removeFn = func(ctx context.Context, id uuid.UUID, agentIDs []uuid.UUID) (int64, error) {
		require.Equal(t, []uuid.UUID{a}, agentIDs)
		return 0, nil
	}

	require.NoError(t, newTestService(t, repo).RemoveAgents(context.Background(), uuid.New(), []uuid.UUID{a}))
}

func TestSetMembership(t *testing.T) {
	t.Parallel()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	repo := &mockRepository{}
	repo.setFn = func(ctx context.Context, id uuid.UUID, desired []uuid.UUID, plan persistence.PlanFunc) (persistence.MembershipPlan, error) {
		require.Equal(t, []uuid.UUID{b, c}, desired)
		return plan([]uuid.UUID{a, b}, desired), nil
	}

	change, err := newTestService(t, repo).SetMembership(context.Background(), uuid.New(), []uuid.UUID{b, c, b})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{c}, change.Added)
	require.Equal(t, []uuid.UUID{a}, change.Removed)
}

func TestSetMembershipEmptyResultIsNotNil(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	repo.setFn = func(ctx context.Context, id uuid.UUID, desired []uuid.UUID, plan persistence.PlanFunc) (persistence.MembershipPlan, error) {
		return plan(nil, desired), nil
	}

	change, err := newTestService(t, repo).SetMembership(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	require.NotNil(t, change.Added)
	require.NotNil(t, change.Removed)
}

func TestReorderAgents(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()

	svc := newTestService(t, &mockRepository{})
	err := svc.ReorderAgents(context.Background(), uuid.New(), []uuid.UUID{a, a})
	requireValidationField(t, err, "agentIds")

	repo := &mockRepository{}
	repo.reorderFn = func(ctx context.Context, id uuid.UUID, ordered []uuid.UUID) error {
		if len(ordered) != 2 {
			return persistence.ErrMembershipMismatch
		}
		return nil
	}
	svc = newTestService(t, repo)

	require.NoError(t, svc.ReorderAgents(context.Background(), uuid.New(), []uuid.UUID{b, a}))
	requireValidationField(t, svc.ReorderAgents(context.Background(), uuid.New(), []uuid.UUID{a}), "agentIds")
}
