package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flowlyst-io/agents/platform/go/apperrors"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

type mockRepository struct {
	listFn   func(ctx context.Context) ([]persistence.TenantWithAgentCount, error)
	createFn func(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error)
	getFn    func(ctx context.Context, id uuid.UUID) (persistence.Tenant, error)
	renameFn func(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error)
	deleteFn func(ctx context.Context, params persistence.DeleteTenantParams) (persistence.DeleteTenantResult, error)
}

func (m *mockRepository) List(ctx context.Context) ([]persistence.TenantWithAgentCount, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx)
}

func (m *mockRepository) Create(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, id, name)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockRepository) Rename(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error) {
	if m.renameFn == nil {
		panic("renameFn not configured")
	}
	return m.renameFn(ctx, id, name)
}

func (m *mockRepository) Delete(ctx context.Context, params persistence.DeleteTenantParams) (persistence.DeleteTenantResult, error) {
	if m.deleteFn == nil {
		panic("deleteFn not configured")
	}
	return m.deleteFn(ctx, params)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) ObserveTenantDeletion(disposition, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, disposition+"/"+outcome)
}

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()
	var validationErr *apperrors.ValidationError
	require.True(t, errors.As(err, &validationErr), "expected validation error, got %v", err)
	require.Contains(t, validationErr.Fields, field)
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "trims", input: "  Acme Corp ", want: "Acme Corp"},
		{name: "punctuation", input: "acme_corp-2.0", want: "acme_corp-2.0"},
		{name: "max length", input: strings.Repeat("a", 255), want: strings.Repeat("a", 255)},
		{name: "empty", input: "   ", wantErr: true},
		{name: "padded max length", input: "  " + strings.Repeat("a", 255) + " ", want: strings.Repeat("a", 255)},
		{name: "too long", input: strings.Repeat("a", 256), wantErr: true},
		{name: "at sign", input: "Acme@Corp", wantErr: true},
		{name: "invalid rune", input: "Acme/Corp", wantErr: true},
		{name: "tab", input: "Acme\tCorp", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeName(tc.input)
			if tc.wantErr {
				requireValidationField(t, err, "name")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestServiceCreate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	repo := &mockRepository{}
	repo.createFn = func(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error) {
		require.NotEqual(t, uuid.Nil, id)
		require.Equal(t, "Acme Corp", name)
		return persistence.Tenant{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}, nil
	}

	tenant, err := New(repo, nil).Create(context.Background(), " Acme Corp ")
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", tenant.Name)
	require.Equal(t, now, tenant.CreatedAt)
}

func TestServiceCreateConflict(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	repo.createFn = func(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error) {
		return persistence.Tenant{}, persistence.ErrTenantConflict
	}

	_, err := New(repo, nil).Create(context.Background(), "Acme")
	require.ErrorIs(t, err, apperrors.ErrConflict)
	require.EqualError(t, err, "tenant name already exists")
}

func TestServiceCreateRejectsInvalidName(t *testing.T) {
	t.Parallel()

	_, err := New(&mockRepository{}, nil).Create(context.Background(), "")
	requireValidationField(t, err, "name")
}

func TestServiceRename(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	cases := []struct {
		name    string
		repoErr error
		want    error
	}{
		{name: "success"},
		{name: "missing", repoErr: persistence.ErrTenantNotFound, want: apperrors.ErrNotFound},
		{name: "duplicate", repoErr: persistence.ErrTenantConflict, want: apperrors.ErrConflict},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := &mockRepository{}
			repo.renameFn = func(ctx context.Context, gotID uuid.UUID, name string) (persistence.Tenant, error) {
				require.Equal(t, id, gotID)
				require.Equal(t, "Renamed", name)
				if tc.repoErr != nil {
					return persistence.Tenant{}, tc.repoErr
				}
				return persistence.Tenant{ID: id, Name: name}, nil
			}

			tenant, err := New(repo, nil).Rename(context.Background(), id, "Renamed ")
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "Renamed", tenant.Name)
		})
	}
}

func TestServiceListCarriesAgentCounts(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	repo.listFn = func(ctx context.Context) ([]persistence.TenantWithAgentCount, error) {
		return []persistence.TenantWithAgentCount{
			{Tenant: persistence.Tenant{ID: uuid.New(), Name: "Acme"}, AgentCount: 2},
			{Tenant: persistence.Tenant{ID: uuid.New(), Name: "Beta"}},
		}, nil
	}

	tenants, err := New(repo, nil).List(context.Background())
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	require.Equal(t, 2, tenants[0].AgentCount)
	require.Equal(t, 0, tenants[1].AgentCount)
}

func TestServiceGetNotFound(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	repo.getFn = func(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
		return persistence.Tenant{}, persistence.ErrTenantNotFound
	}

	_, err := New(repo, nil).Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
