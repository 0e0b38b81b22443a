package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

const cacheScope = "catalog"

type catalogClient interface {
	ListProducts(ctx context.Context, q backend.ProductQuery) (backend.ProductPage, error)
	GetProduct(ctx context.Context, slug string) (backend.Product, error)
	ListCategories(ctx context.Context) ([]backend.Category, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Service serves catalog reads from the backend through a short-lived
// Redis cache. Cache failures degrade to direct backend reads.
type Service interface {
	ListProducts(ctx context.Context, q backend.ProductQuery) (backend.ProductPage, error)
	GetProduct(ctx context.Context, slug string) (backend.Product, error)
	ListCategories(ctx context.Context) ([]backend.Category, error)
}

type service struct {
	client catalogClient
	cache  cacheStore
	ttl    time.Duration
	logg   *logger.Logger
}

// NewService builds the catalog service. A nil cache or non-positive ttl
// disables caching.
func NewService(client catalogClient, cache cacheStore, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{client: client, cache: cache, ttl: ttl, logg: logg}, nil
}

func (s *service) ListProducts(ctx context.Context, q backend.ProductQuery) (backend.ProductPage, error) {
	return cached(ctx, s, cacheKey("products", q.Values().Encode()), func() (backend.ProductPage, error) {
		return s.client.ListProducts(ctx, q)
	})
}

func (s *service) GetProduct(ctx context.Context, slug string) (backend.Product, error) {
	return cached(ctx, s, cacheKey("product", strings.ToLower(strings.TrimSpace(slug))), func() (backend.Product, error) {
		return s.client.GetProduct(ctx, slug)
	})
}

func (s *service) ListCategories(ctx context.Context) ([]backend.Category, error) {
	return cached(ctx, s, cacheKey("categories"), func() ([]backend.Category, error) {
		return s.client.ListCategories(ctx)
	})
}

func (s *service) enabled() bool {
	return s.cache != nil && s.ttl > 0
}

func cached[T any](ctx context.Context, s *service, key string, load func() (T, error)) (T, error) {
	if s.enabled() {
		raw, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var value T
			if jsonErr := json.Unmarshal([]byte(raw), &value); jsonErr == nil {
				return value, nil
			}
			s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "discarding unreadable catalog cache entry")
		case !pkgredis.IsMiss(err):
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "catalog cache read failed")
		}
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if s.enabled() {
		if payload, err := json.Marshal(value); err == nil {
			if err := s.cache.Set(ctx, key, string(payload), s.ttl); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "catalog cache write failed")
			}
		}
	}
	return value, nil
}

func cacheKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return pkgredis.CacheKey(cacheScope, hex.EncodeToString(sum[:16]))
}
