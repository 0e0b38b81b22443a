package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/cron"
	"github.com/angelmondragon/storefront/internal/landing"
	"github.com/angelmondragon/storefront/internal/media"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/internal/ui"
	"github.com/angelmondragon/storefront/pkg/auth/session"
	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

const previewURLPrefix = "/api/admin/previews/file"

// infra holds the connections main opens before any service is built.
// Redis and DB are nil when not configured.
type infra struct {
	KV       pkgredis.Store
	Redis    *pkgredis.Client
	DB       *db.Client
	Registry *prometheus.Registry
	Pingers  map[string]controllers.Pinger
}

type app struct {
	deps      routes.Dependencies
	scheduler *cron.Service
}

// buildApp wires every service from a loaded config. It opens no network
// connections itself.
func buildApp(cfg *config.Config, logg *logger.Logger, in infra) (*app, error) {
	if in.KV == nil {
		return nil, fmt.Errorf("kv store required")
	}
	if in.Registry == nil {
		in.Registry = prometheus.NewRegistry()
	}

	backendClient, err := backend.NewClient(cfg.Backend.BaseURL, backend.WithTimeout(cfg.Backend.Timeout))
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	httpMetrics := metrics.NewHTTPMetrics(in.Registry)
	cartMetrics := metrics.NewCartMetrics(in.Registry)
	jobMetrics := metrics.NewJobMetrics(in.Registry)

	cartRepo, purger, err := cartRepository(cfg, in.KV, in.DB)
	if err != nil {
		return nil, fmt.Errorf("cart repository: %w", err)
	}
	cartOpts := []cart.Option{cart.WithRecorder(cartMetrics)}
	if cfg.Cart.Backend != config.CartBackendMemory {
		// Other instances write the same snapshots.
		cartOpts = append(cartOpts, cart.WithSharedPersistence())
	}
	carts, err := cart.NewRegistry(cartRepo, cartOpts...)
	if err != nil {
		return nil, fmt.Errorf("cart registry: %w", err)
	}
	uiStates := ui.NewRegistry()

	sessionManager, err := session.NewManager(in.KV)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	authService, err := auth.NewService(auth.ServiceParams{
		Backend:        backendClient,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		FallbackTTL:    cfg.Session.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	checkoutKeys, err := checkout.NewKeyManager(in.KV, cfg.Session.TTL)
	if err != nil {
		return nil, fmt.Errorf("checkout keys: %w", err)
	}
	checkoutService, err := checkout.NewService(carts, checkoutKeys, backendClient, logg)
	if err != nil {
		return nil, fmt.Errorf("checkout service: %w", err)
	}

	ordersService, err := orders.NewService(backendClient)
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}
	catalogService, err := newCatalogService(cfg, backendClient, in.Redis, logg)
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	landingService, err := landing.NewService(backendClient, cfg.Cache.LandingTTL)
	if err != nil {
		return nil, fmt.Errorf("landing service: %w", err)
	}
	mediaService, err := media.NewService(backendClient, media.NewPreviewCache(previewURLPrefix), cfg.Media.MaxUploadBytes())
	if err != nil {
		return nil, fmt.Errorf("media service: %w", err)
	}

	scheduler, err := newScheduler(cfg, logg, in.KV, jobMetrics, purger, map[string]cron.Sweepable{
		"cart":     carts,
		"ui":       uiStates,
		"orders":   ordersService,
		"previews": mediaService,
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	return &app{
		deps: routes.Dependencies{
			KV:       in.KV,
			Pingers:  in.Pingers,
			Gatherer: in.Registry,
			HTTP:     httpMetrics,
			Carts:    carts,
			Sessions: carts,
			UI:       uiStates,
			Checkout: checkoutService,
			Auth:     authService,
			Orders:   ordersService,
			Catalog:  catalogService,
			Landing:  landingService,
			Media:    mediaService,
		},
		scheduler: scheduler,
	}, nil
}

// cartRepository picks the persistence backend for carts. The purger is only
// set for the SQL backend; redis snapshots expire on their own.
func cartRepository(cfg *config.Config, kv pkgredis.Store, dbClient *db.Client) (cart.Repository, *cart.SQLRepository, error) {
	switch cfg.Cart.Backend {
	case config.CartBackendSQL:
		if dbClient == nil {
			return nil, nil, fmt.Errorf("sql cart backend needs a database")
		}
		repo, err := cart.NewSQLRepository(dbClient.DB())
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	case config.CartBackendMemory:
		return cart.NewMemoryRepository(), nil, nil
	default:
		repo, err := cart.NewRedisRepository(kv, cfg.Session.TTL)
		if err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	}
}

// newCatalogService only caches through a real redis; a process-local cache
// would serve stale listings per instance.
func newCatalogService(cfg *config.Config, client *backend.Client, redisClient *pkgredis.Client, logg *logger.Logger) (catalog.Service, error) {
	if redisClient == nil {
		return catalog.NewService(client, nil, cfg.Cache.CatalogTTL, logg)
	}
	return catalog.NewService(client, redisClient, cfg.Cache.CatalogTTL, logg)
}

func newScheduler(cfg *config.Config, logg *logger.Logger, kv pkgredis.Store, jobMetrics *metrics.JobMetrics, purger *cart.SQLRepository, targets map[string]cron.Sweepable) (*cron.Service, error) {
	sweep, err := cron.NewSessionSweepJob(cron.SessionSweepParams{
		Targets: targets,
		MaxIdle: cfg.Session.IdleEvict,
		Gauge:   jobMetrics,
	})
	if err != nil {
		return nil, err
	}
	registry := cron.NewRegistry(sweep)

	if purger != nil {
		purge, err := cron.NewCartPurgeJob(cron.CartPurgeParams{
			Logger:    logg,
			Repo:      purger,
			Retention: cfg.Session.TTL,
		})
		if err != nil {
			return nil, err
		}
		lock, err := cron.NewRedisLock(kv, pkgredis.LockKey(cfg.App.Env, purge.Name()), 0)
		if err != nil {
			return nil, err
		}
		registry.Register(cron.WithLock(purge, lock))
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Metrics:  jobMetrics,
		Interval: cfg.Session.SweepInterval,
	})
}
