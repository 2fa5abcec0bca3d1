package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTenantFilterWhereClause(t *testing.T) {
	t.Parallel()

	where, args := TenantFilter{}.whereClause("a.tenant_id")
	require.Empty(t, where)
	require.Empty(t, args)

	where, args = TenantFilter{Kind: TenantFilterGeneral}.whereClause("a.tenant_id")
	require.Equal(t, "WHERE a.tenant_id IS NULL", where)
	require.Empty(t, args)

	id := uuid.New()
	where, args = TenantFilter{Kind: TenantFilterTenant, TenantID: id}.whereClause("d.tenant_id")
	require.Equal(t, "WHERE d.tenant_id = $1", where)
	require.Equal(t, []any{id}, args)
}

func TestSameMembers(t *testing.T) {
	t.Parallel()

	a, b, c := uuid.New(), uuid.New(), uuid.New()

	require.True(t, sameMembers([]uuid.UUID{a, b, c}, []uuid.UUID{c, a, b}))
	require.True(t, sameMembers(nil, nil))
	require.False(t, sameMembers([]uuid.UUID{a, b}, []uuid.UUID{a, a}))
	require.False(t, sameMembers([]uuid.UUID{a, b}, []uuid.UUID{a}))
	require.False(t, sameMembers([]uuid.UUID{a, b}, []uuid.UUID{a, c}))
}

func TestParseTenantFilter(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	cases := []struct {
		raw     string
		want    TenantFilter
		wantErr bool
	}{
		{raw: "", want: TenantFilter{Kind: TenantFilterAll}},
		{raw: "all", want: TenantFilter{Kind: TenantFilterAll}},
		{raw: " general ", want: TenantFilter{Kind: TenantFilterGeneral}},
		{raw: id.String(), want: TenantFilter{Kind: TenantFilterTenant, TenantID: id}},
		{raw: "acme", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseTenantFilter(tc.raw)
		if tc.wantErr {
			require.ErrorIs(t, err, ErrInvalidTenantFilter, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		require.Equal(t, tc.want, got, tc.raw)
	}
}
