package cart

import (
	"context"
	"fmt"
	"time"

	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisRepository stores each cart as JSON under pf:cart:<session>. Every
// save refreshes the TTL so active carts live as long as their session.
type RedisRepository struct {
	store kvStore
	ttl   time.Duration
}

func NewRedisRepository(store kvStore, ttl time.Duration) (*RedisRepository, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	return &RedisRepository{store: store, ttl: ttl}, nil
}

func (r *RedisRepository) Load(ctx context.Context, sessionID string) ([]byte, error) {
	value, err := r.store.Get(ctx, pkgredis.CartKey(sessionID))
	if pkgredis.IsMiss(err) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	return []byte(value), nil
}

func (r *RedisRepository) Save(ctx context.Context, sessionID string, payload []byte) error {
	if err := r.store.Set(ctx, pkgredis.CartKey(sessionID), string(payload), r.ttl); err != nil {
		return fmt.Errorf("write cart: %w", err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, sessionID string) error {
	return r.store.Del(ctx, pkgredis.CartKey(sessionID))
}
