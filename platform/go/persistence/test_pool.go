package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// mustTestPool returns a pool on a clean, bootstrapped database. It uses
// TEST_DATABASE_URL when set and otherwise starts a disposable PostgreSQL
// container. Callers sharing TEST_DATABASE_URL must not run in parallel.
func mustTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	connString, ok := os.LookupEnv("TEST_DATABASE_URL")
	if !ok || connString == "" {
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("flowlyst"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = pgContainer.Terminate(context.Background())
		})

		connString, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	pool, err := NewPool(ctx, PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(func() { ClosePool(pool) })

	require.NoError(t, BootstrapSchema(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE dashboard_agents, dashboards, agents, tenants`)
	require.NoError(t, err)

	return pool
}

type testStores struct {
	tenants     *TenantStore
	agents      *AgentStore
	dashboards  *DashboardStore
	memberships *MembershipStore
}

func mustTestStores(t *testing.T, pool *pgxpool.Pool) testStores {
	t.Helper()

	tenants, err := NewTenantStore(pool)
	require.NoError(t, err)
	agents, err := NewAgentStore(pool)
	require.NoError(t, err)
	dashboards, err := NewDashboardStore(pool)
	require.NoError(t, err)
	memberships, err := NewMembershipStore(pool)
	require.NoError(t, err)

	return testStores{tenants: tenants, agents: agents, dashboards: dashboards, memberships: memberships}
}
