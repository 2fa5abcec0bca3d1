package root

import (
	"context"
	"fmt"

	"github.com/flowlyst-io/agents/apps/cli/cmd/bootstrap"
	legacycmd "github.com/flowlyst-io/agents/apps/cli/cmd/legacy"
	tenantcmd "github.com/flowlyst-io/agents/apps/cli/cmd/tenant"
	tenantsrepo "github.com/flowlyst-io/agents/domains/tenants/be/repo"
	tenantsservice "github.com/flowlyst-io/agents/domains/tenants/be/service"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

func init() {
	Root().AddCommand(bootstrap.Command(openPool))
	Root().AddCommand(tenantcmd.Command(openTenants))
	Root().AddCommand(legacycmd.Command())
}

func openTenants(ctx context.Context) (tenantsservice.Service, func(), error) {
	pool, err := openPool(ctx)
	if err != nil {
		return nil, nil, err
	}

	store, err := persistence.NewTenantStore(pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, nil, fmt.Errorf("init tenant store: %w", err)
	}

	svc := tenantsservice.New(tenantsrepo.NewPostgresRepository(store), nil)
	return svc, func() { persistence.ClosePool(pool) }, nil
}
