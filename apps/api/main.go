package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/flowlyst-io/agents/contracts"
	agentshandler "github.com/flowlyst-io/agents/domains/agents/be/handler"
	agentsrepo "github.com/flowlyst-io/agents/domains/agents/be/repo"
	agentsservice "github.com/flowlyst-io/agents/domains/agents/be/service"
	dashboardshandler "github.com/flowlyst-io/agents/domains/dashboards/be/handler"
	dashboardsrepo "github.com/flowlyst-io/agents/domains/dashboards/be/repo"
	dashboardsservice "github.com/flowlyst-io/agents/domains/dashboards/be/service"
	embedhandler "github.com/flowlyst-io/agents/domains/embed/be/handler"
	"github.com/flowlyst-io/agents/domains/embed/be/legacy"
	embedrepo "github.com/flowlyst-io/agents/domains/embed/be/repo"
	embedservice "github.com/flowlyst-io/agents/domains/embed/be/service"
	tenantshandler "github.com/flowlyst-io/agents/domains/tenants/be/handler"
	tenantsrepo "github.com/flowlyst-io/agents/domains/tenants/be/repo"
	tenantsservice "github.com/flowlyst-io/agents/domains/tenants/be/service"
	platformlogging "github.com/flowlyst-io/agents/platform/go/logging"
	"github.com/flowlyst-io/agents/platform/go/metrics"
	"github.com/flowlyst-io/agents/platform/go/persistence"
	"github.com/flowlyst-io/agents/platform/go/setups"
)

type config struct {
	Port                string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	DatabaseURL         string        `env:"DATABASE_URL,required"`
	DBMaxConns          int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns          int32         `env:"DB_MIN_CONNS" envDefault:"0"`
	AutoMigrate         bool          `env:"AUTO_MIGRATE" envDefault:"false"`
	LegacyClientsFile   string        `env:"LEGACY_CLIENTS_FILE"`
	ChatWidgetScriptURL string        `env:"CHAT_WIDGET_SCRIPT_URL"`
	EmbedFrameAncestors []string      `env:"EMBED_FRAME_ANCESTORS" envSeparator:"," envDefault:"*"`
	CORSAllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

func main() {
	var cfg config
	if err := setups.LoadConfig(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "admin-api",
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("api server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString: cfg.DatabaseURL,
		MaxConns:   cfg.DBMaxConns,
		MinConns:   cfg.DBMinConns,
	})
	if err != nil {
		return err
	}
	defer persistence.ClosePool(pool)

	if cfg.AutoMigrate {
		if err := persistence.BootstrapSchema(ctx, pool); err != nil {
			return err
		}
		logger.Info("database schema applied")
	}

	tenantStore, err := persistence.NewTenantStore(pool)
	if err != nil {
		return err
	}
	agentStore, err := persistence.NewAgentStore(pool)
	if err != nil {
		return err
	}
	dashboardStore, err := persistence.NewDashboardStore(pool)
	if err != nil {
		return err
	}
	membershipStore, err := persistence.NewMembershipStore(pool)
	if err != nil {
		return err
	}

	legacyClients, err := legacy.Load(cfg.LegacyClientsFile)
	if err != nil {
		return err
	}
	logger.Info("legacy embed clients loaded", zap.Strings("slugs", legacyClients.Slugs()))

	spec, err := contracts.LoadAdmin(ctx)
	if err != nil {
		return err
	}

	appMetrics := metrics.New(nil)

	tenantService := tenantsservice.New(tenantsrepo.NewPostgresRepository(tenantStore), appMetrics)
	agentService := agentsservice.New(agentsrepo.NewPostgresRepository(agentStore), tenantService, logger)
	dashboardService := dashboardsservice.New(
		dashboardsrepo.NewPostgresRepository(dashboardStore, membershipStore),
		tenantService,
		logger,
	)

	embedRepo := embedrepo.NewPostgresRepository(agentStore, dashboardStore)
	embedService := embedservice.New(embedRepo, logger,
		embedservice.NewDatabaseResolver(embedRepo),
		embedservice.NewStaticResolver(embedRepo, legacyClients),
	)

	router := newRouter(routerDeps{
		logger:         logger,
		metrics:        appMetrics,
		db:             pool,
		spec:           spec,
		requestTimeout: cfg.RequestTimeout,
		corsOrigins:    cfg.CORSAllowedOrigins,
		tenants:        tenantshandler.New(tenantService, logger),
		agents:         agentshandler.New(agentService, logger),
		dashboards:     dashboardshandler.New(dashboardService, logger),
		embed: embedhandler.New(embedService, logger, embedhandler.Config{
			WidgetScriptURL: cfg.ChatWidgetScriptURL,
			FrameAncestors:  cfg.EmbedFrameAncestors,
		}),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
