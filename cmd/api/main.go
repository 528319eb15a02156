package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/perkgate/perkgate-backend/api/routes"
	"github.com/perkgate/perkgate-backend/internal/access"
	"github.com/perkgate/perkgate-backend/internal/audit"
	"github.com/perkgate/perkgate-backend/internal/identity"
	"github.com/perkgate/perkgate-backend/internal/partners"
	"github.com/perkgate/perkgate-backend/internal/portfolio"
	"github.com/perkgate/perkgate-backend/internal/requests"
	"github.com/perkgate/perkgate-backend/internal/whitelist"
	"github.com/perkgate/perkgate-backend/pkg/config"
	"github.com/perkgate/perkgate-backend/pkg/db"
	"github.com/perkgate/perkgate-backend/pkg/logger"
	"github.com/perkgate/perkgate-backend/pkg/metrics"
	"github.com/perkgate/perkgate-backend/pkg/migrate"
	"github.com/perkgate/perkgate-backend/pkg/outbox"
	"github.com/perkgate/perkgate-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	accessMetrics := metrics.NewAccessMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	auditService, err := audit.NewService(audit.ServiceParams{
		Repo:    audit.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Emitter: outboxService,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	partnersRepo := partners.NewRepository(dbClient.DB())
	whitelistRepo := whitelist.NewRepository(dbClient.DB())

	whitelistCache := whitelist.NewCache(
		cfg.Whitelist,
		partnersRepo,
		whitelist.NewCatalogSource(cfg.Whitelist, logg),
		whitelistRepo,
		accessMetrics,
		logg,
	)

	partnersService, err := partners.NewService(partners.ServiceParams{
		Repo:    partnersRepo,
		Tx:      dbClient,
		Auditor: auditService,
		Emitter: outboxService,
		Cache:   whitelistCache,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create partners service", err)
		os.Exit(1)
	}

	whitelistService, err := whitelist.NewService(whitelist.ServiceParams{
		Repo:     whitelistRepo,
		Partners: partnersRepo,
		Tx:       dbClient,
		Auditor:  auditService,
		Emitter:  outboxService,
		Cache:    whitelistCache,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create whitelist service", err)
		os.Exit(1)
	}

	requestsService, err := requests.NewService(requests.ServiceParams{
		Repo:    requests.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Auditor: auditService,
		Emitter: outboxService,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create access requests service", err)
		os.Exit(1)
	}

	identityClient, err := identity.NewClient(cfg.Identity, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity client", err)
		os.Exit(1)
	}
	resolver := identity.NewResolver(identityClient, cfg.App, cfg.Identity, cfg.Access)

	accessService, err := access.NewService(access.ServiceParams{
		Partners:  partnersService,
		Whitelist: whitelistCache,
		Portfolio: portfolio.NewClient(cfg.Portfolio, logg),
		Approvals: requestsService,
		Codec:     access.NewCodec(cfg.Decision),
		Metrics:   accessMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create access service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			resolver,
			accessService,
			requestsService,
			partnersService,
			whitelistService,
			auditService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
