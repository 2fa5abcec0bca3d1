package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// ChoiceKind tags the variant held by a Choice.
type ChoiceKind int

const (
	// NoTenant places the entity in the general pool.
	NoTenant ChoiceKind = iota
	// ExistingTenant references a tenant by id.
	ExistingTenant
	// NewTenantName creates a tenant on the fly.
	NewTenantName
)

// Choice is the tenant assignment requested for an agent or dashboard.
type Choice struct {
	Kind ChoiceKind
	ID   uuid.UUID
	Name string
}

// None selects the general pool.
func None() Choice { return Choice{Kind: NoTenant} }

// Existing selects the tenant with the given id.
func Existing(id uuid.UUID) Choice { return Choice{Kind: ExistingTenant, ID: id} }

// NewName asks for a new tenant called name.
func NewName(name string) Choice { return Choice{Kind: NewTenantName, Name: name} }

// ParseChoice builds a Choice from the two request fields that can express it.
// idSet reports whether tenantId was present at all; a present but empty id
// means the general pool. It returns nil when neither field was supplied.
func ParseChoice(idSet bool, id *uuid.UUID, newName *string) (*Choice, error) {
	hasName := newName != nil && strings.TrimSpace(*newName) != ""

	switch {
	case hasName && idSet && id != nil:
		return nil, apperrors.NewValidation("newTenantName", "provide either tenantId or newTenantName, not both")
	case hasName:
		choice := NewName(*newName)
		return &choice, nil
	case idSet && id != nil:
		choice := Existing(*id)
		return &choice, nil
	case idSet:
		choice := None()
		return &choice, nil
	default:
		return nil, nil
	}
}

// Resolve turns a Choice into the tenant id to store. NewTenantName creates
// the tenant in its own statement, so a later failure of the caller leaves
// the new tenant in place.
func (s *service) Resolve(ctx context.Context, choice Choice) (*uuid.UUID, error) {
	switch choice.Kind {
	case NoTenant:
		return nil, nil
	case ExistingTenant:
		if _, err := s.repo.Get(ctx, choice.ID); err != nil {
			if errors.Is(err, persistence.ErrTenantNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		id := choice.ID
		return &id, nil
	case NewTenantName:
		tenant, err := s.Create(ctx, choice.Name)
		if err != nil {
			var validationErr *apperrors.ValidationError
			if errors.As(err, &validationErr) {
				return nil, renameField(validationErr, "name", "newTenantName")
			}
			return nil, err
		}
		return &tenant.ID, nil
	default:
		return nil, apperrors.NewValidation("tenantId", "unknown tenant choice")
	}
}

func renameField(err *apperrors.ValidationError, from, to string) error {
	fields := apperrors.FieldErrors{}
	for field, messages := range err.Fields {
		if field == from {
			field = to
		}
		for _, message := range messages {
			fields.Add(field, message)
		}
	}
	return fields.Err()
}
