package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// Delete removes a tenant and applies the requested disposition to its
// agents. Either every change lands or none does. Failures after validation
// surface as *apperrors.TenantDeletionError unless the tenant or the reassign
// target is missing.
func (s *service) Delete(ctx context.Context, id uuid.UUID, input DeleteInput) (DeleteResult, error) {
	disposition := persistence.Disposition(strings.TrimSpace(input.Action))

	params, err := deletionParams(id, disposition, input.TargetTenantID)
	if err != nil {
		s.observer.ObserveTenantDeletion(string(disposition), OutcomeRejected)
		return DeleteResult{}, err
	}

	result, err := s.repo.Delete(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrTenantNotFound):
			s.observer.ObserveTenantDeletion(string(disposition), OutcomeRejected)
			return DeleteResult{}, ErrNotFound
		case errors.Is(err, persistence.ErrDeletionTargetNotFound):
			s.observer.ObserveTenantDeletion(string(disposition), OutcomeRejected)
			return DeleteResult{}, ErrTargetNotFound
		default:
			s.observer.ObserveTenantDeletion(string(disposition), OutcomeFailed)
			return DeleteResult{}, &apperrors.TenantDeletionError{
				TenantID:    id,
				Disposition: string(disposition),
				Cause:       err,
			}
		}
	}

	s.observer.ObserveTenantDeletion(string(disposition), OutcomeSucceeded)
	return DeleteResult{
		Disposition:       disposition,
		AgentsAffected:    result.AgentsAffected,
		DashboardsCleared: result.DashboardsCleared,
	}, nil
}

func deletionParams(id uuid.UUID, disposition persistence.Disposition, target *uuid.UUID) (persistence.DeleteTenantParams, error) {
	errs := apperrors.FieldErrors{}
	if !disposition.Valid() {
		errs.Add("action", "action must be one of make_general, reassign, delete_agents")
	}

	params := persistence.DeleteTenantParams{TenantID: id, Disposition: disposition}
	if disposition == persistence.DispositionReassign {
		switch {
		case target == nil || *target == uuid.Nil:
			errs.Add("targetTenantId", "targetTenantId is required when action is reassign")
		case *target == id:
			errs.Add("targetTenantId", "targetTenantId must differ from the tenant being deleted")
		default:
			targetID := *target
			params.TargetTenantID = &targetID
		}
	}

	if err := errs.Err(); err != nil {
		return persistence.DeleteTenantParams{}, err
	}
	return params, nil
}
