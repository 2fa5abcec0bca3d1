package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MembershipPlan is the diff applied by MembershipStore.Set.
type MembershipPlan struct {
	Remove []uuid.UUID
	Add    []uuid.UUID
}

// PlanFunc computes a MembershipPlan from the current ordered membership and
// the desired one.
type PlanFunc func(current, desired []uuid.UUID) MembershipPlan

// MembershipStore manages the dashboard_agents join table. Every mutation
// locks the dashboard row so concurrent edits of the same dashboard are
// serialised and appended orders stay distinct.
type MembershipStore struct {
	tx *TxRunner
}

// NewMembershipStore creates a store; assumes BootstrapSchema already ran.
func NewMembershipStore(pool *pgxpool.Pool) (*MembershipStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &MembershipStore{tx: NewTxRunner(pool)}, nil
}

// Add appends the agents that are not yet members, in the given order,
// starting at max(order)+1. Existing members are left untouched. It returns
// the ids that were inserted.
func (s *MembershipStore) Add(ctx context.Context, dashboardID uuid.UUID, agentIDs []uuid.UUID) ([]uuid.UUID, error) {
	var added []uuid.UUID
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockDashboard(ctx, tx, dashboardID); err != nil {
			return err
		}
		if err := ensureAgentsExist(ctx, tx, agentIDs); err != nil {
			return err
		}
		var err error
		added, err = appendMembers(ctx, tx, dashboardID, agentIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Remove deletes the given memberships; non-members are ignored. It returns
// the number of rows removed.
func (s *MembershipStore) Remove(ctx context.Context, dashboardID uuid.UUID, agentIDs []uuid.UUID) (int64, error) {
	var removed int64
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockDashboard(ctx, tx, dashboardID); err != nil {
			return err
		}
		var err error
		removed, err = removeMembers(ctx, tx, dashboardID, agentIDs)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Set replaces the membership with desired. The plan is computed from the
// locked current membership and applied removals first, then additions.
func (s *MembershipStore) Set(ctx context.Context, dashboardID uuid.UUID, desired []uuid.UUID, plan PlanFunc) (MembershipPlan, error) {
	if plan == nil {
		return MembershipPlan{}, errors.New("plan func is required")
	}

	var applied MembershipPlan
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockDashboard(ctx, tx, dashboardID); err != nil {
			return err
		}
		if err := ensureAgentsExist(ctx, tx, desired); err != nil {
			return err
		}

		current, err := memberIDs(ctx, tx, dashboardID)
		if err != nil {
			return err
		}

		applied = plan(current, desired)
		if _, err := removeMembers(ctx, tx, dashboardID, applied.Remove); err != nil {
			return err
		}
		if _, err := appendMembers(ctx, tx, dashboardID, applied.Add); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return MembershipPlan{}, err
	}
	return applied, nil
}

// Reorder rewrites the order of every member to its index in ordered. The
// ids must be exactly the current members, otherwise ErrMembershipMismatch.
func (s *MembershipStore) Reorder(ctx context.Context, dashboardID uuid.UUID, ordered []uuid.UUID) error {
	return s.tx.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockDashboard(ctx, tx, dashboardID); err != nil {
			return err
		}

		current, err := memberIDs(ctx, tx, dashboardID)
		if err != nil {
			return err
		}
		if !sameMembers(current, ordered) {
			return ErrMembershipMismatch
		}

		for position, agentID := range ordered {
			if _, err := tx.Exec(ctx, `
                UPDATE dashboard_agents SET sort_order = $3
                WHERE dashboard_id = $1 AND agent_id = $2
            `, dashboardID, agentID, position); err != nil {
				return fmt.Errorf("reorder member: %w", err)
			}
		}
		return nil
	})
}

func lockDashboard(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var locked uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM dashboards WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDashboardNotFound
		}
		return fmt.Errorf("lock dashboard: %w", err)
	}
	return nil
}

// ensureAgentsExist fails with ErrAgentNotFound unless every id names an agent.
func ensureAgentsExist(ctx context.Context, tx pgx.Tx, agentIDs []uuid.UUID) error {
	distinct := make(map[uuid.UUID]struct{}, len(agentIDs))
	for _, id := range agentIDs {
		distinct[id] = struct{}{}
	}
	if len(distinct) == 0 {
		return nil
	}

	var found int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*)::int FROM agents WHERE id = ANY($1::uuid[])`, agentIDs).Scan(&found); err != nil {
		return fmt.Errorf("count agents: %w", err)
	}
	if found != len(distinct) {
		return ErrAgentNotFound
	}
	return nil
}

func memberIDs(ctx context.Context, tx pgx.Tx, dashboardID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `
        SELECT agent_id FROM dashboard_agents
        WHERE dashboard_id = $1
        ORDER BY sort_order, created_at, agent_id
    `, dashboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func appendMembers(ctx context.Context, tx pgx.Tx, dashboardID uuid.UUID, agentIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(agentIDs) == 0 {
		return nil, nil
	}

	var maxOrder int
	if err := tx.QueryRow(ctx, `
        SELECT COALESCE(MAX(sort_order), -1) FROM dashboard_agents WHERE dashboard_id = $1
    `, dashboardID).Scan(&maxOrder); err != nil {
		return nil, fmt.Errorf("read max order: %w", err)
	}

	next := maxOrder + 1
	var added []uuid.UUID
	for _, agentID := range agentIDs {
		tag, err := tx.Exec(ctx, `
            INSERT INTO dashboard_agents (dashboard_id, agent_id, sort_order)
            VALUES ($1, $2, $3)
            ON CONFLICT (dashboard_id, agent_id) DO NOTHING
        `, dashboardID, agentID, next)
		if err != nil {
			if isForeignKeyViolation(err, constraintMembershipAgentFK) {
				return nil, ErrAgentNotFound
			}
			return nil, fmt.Errorf("insert member: %w", err)
		}
		if tag.RowsAffected() == 1 {
			added = append(added, agentID)
			next++
		}
	}
	return added, nil
}

func removeMembers(ctx context.Context, tx pgx.Tx, dashboardID uuid.UUID, agentIDs []uuid.UUID) (int64, error) {
	if len(agentIDs) == 0 {
		return 0, nil
	}
	tag, err := tx.Exec(ctx, `
        DELETE FROM dashboard_agents
        WHERE dashboard_id = $1 AND agent_id = ANY($2::uuid[])
    `, dashboardID, agentIDs)
	if err != nil {
		return 0, fmt.Errorf("remove members: %w", err)
	}
	return tag.RowsAffected(), nil
}

func sameMembers(current, proposed []uuid.UUID) bool {
	if len(current) != len(proposed) {
		return false
	}
	seen := make(map[uuid.UUID]bool, len(current))
	for _, id := range current {
		seen[id] = false
	}
	for _, id := range proposed {
		used, ok := seen[id]
		if !ok || used {
			return false
		}
		seen[id] = true
	}
	return true
}
