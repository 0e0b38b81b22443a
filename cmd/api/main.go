package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/migrate"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingers := map[string]controllers.Pinger{}
	var closers []func() error

	// The memory store keeps rate limits, idempotency and session tokens
	// working when a single instance runs without redis.
	var kv pkgredis.Store = pkgredis.NewMemory()
	var redisClient *pkgredis.Client
	if cfg.Redis.Configured() {
		redisClient, err = pkgredis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		kv = redisClient
		pingers["redis"] = redisClient
		closers = append(closers, redisClient.Close)
	} else {
		logg.Warn(ctx, "redis not configured, using in-process store")
	}

	var dbClient *db.Client
	if cfg.Cart.Backend == config.CartBackendSQL || cfg.FeatureFlags.UseSQLite {
		dbClient, err = db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
		requireResource(ctx, logg, "database", err)
		pingers["db"] = dbClient
		closers = append(closers, dbClient.Close)
		if err := migrate.MaybeAutoMigrate(ctx, cfg, logg, dbClient); err != nil {
			logg.Error(ctx, "failed to run migrations", err)
			os.Exit(1)
		}
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	application, err := buildApp(cfg, logg, infra{
		KV:       kv,
		Redis:    redisClient,
		DB:       dbClient,
		Registry: promRegistry,
		Pingers:  pingers,
	})
	requireResource(ctx, logg, "services", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     id,
		"cart_backend": cfg.Cart.Backend,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, application.deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := application.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "scheduler stopped unexpectedly", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "graceful shutdown failed", err)
		exitCode = 1
	}

	var closeErr error
	for _, closeFn := range closers {
		closeErr = multierr.Append(closeErr, closeFn())
	}
	if closeErr != nil {
		logg.Error(ctx, "error closing resources", closeErr)
		exitCode = 1
	}

	logg.Info(ctx, "api server shut down")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to bootstrap "+resource, err)
	os.Exit(1)
}
