package root

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/flowlyst-io/agents/platform/go/persistence"
	"github.com/flowlyst-io/agents/platform/go/setups"
)

// rootCmd is the base command for the flowlyst admin CLI. Subcommands (migrate, tenant, legacy) are attached here.
var rootCmd = &cobra.Command{
	Use:           "flowlyst",
	Short:         "Flowlyst admin CLI",
	Long:          "Administrative utilities for the agents console (schema migration, tenant management, legacy client checks).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var databaseURL string

type cliConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string (defaults to DATABASE_URL)")
}

// Execute runs the CLI.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}

// openPool connects using --database-url, falling back to DATABASE_URL.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	connString := strings.TrimSpace(databaseURL)
	if connString == "" {
		var cfg cliConfig
		if err := setups.LoadConfig(&cfg); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		connString = strings.TrimSpace(cfg.DatabaseURL)
	}
	if connString == "" {
		return nil, errors.New("database url is required: pass --database-url or set DATABASE_URL")
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: connString})
	if err != nil {
		return nil, fmt.Errorf("init pool: %w", err)
	}
	return pool, nil
}
