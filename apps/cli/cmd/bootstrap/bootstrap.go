package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// PoolOpener connects to the console database.
type PoolOpener func(ctx context.Context) (*pgxpool.Pool, error)

// Command applies the embedded schema. The DDL is idempotent so it is safe to rerun.
func Command(open PoolOpener) *cobra.Command {
	if open == nil {
		panic("pool opener is required")
	}

	return &cobra.Command{
		Use:     "migrate",
		Aliases: []string{"bootstrap"},
		Short:   "Apply the database schema (tenants, agents, dashboards)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := open(ctx)
			if err != nil {
				return err
			}
			defer persistence.ClosePool(pool)

			if err := persistence.BootstrapSchema(ctx, pool); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}
