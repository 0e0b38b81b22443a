package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
	"github.com/google/uuid"
)

const keyScope = "checkout"

type keyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// KeyManager owns the session-scoped checkout idempotency key. The key is
// created lazily and survives failed submissions so retries reuse it.
type KeyManager struct {
	store keyStore
	ttl   time.Duration
	newID func() string
}

func NewKeyManager(store keyStore, ttl time.Duration) (*KeyManager, error) {
	if store == nil {
		return nil, fmt.Errorf("key store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("key ttl must be positive")
	}
	return &KeyManager{store: store, ttl: ttl, newID: uuid.NewString}, nil
}

// Get returns the session's key, generating one on first use.
func (m *KeyManager) Get(ctx context.Context, sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	redisKey := pkgredis.IdempotencyKey(keyScope, sessionID)

	existing, err := m.store.Get(ctx, redisKey)
	if err == nil && existing != "" {
		return existing, nil
	}
	if err != nil && !pkgredis.IsMiss(err) {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency key")
	}

	candidate := m.newID()
	created, err := m.store.SetNX(ctx, redisKey, candidate, m.ttl)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store idempotency key")
	}
	if created {
		return candidate, nil
	}

	// another request won the race
	existing, err = m.store.Get(ctx, redisKey)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency key")
	}
	return existing, nil
}

// Clear forgets the key; the next Get generates a new one.
func (m *KeyManager) Clear(ctx context.Context, sessionID string) error {
	if err := m.store.Del(ctx, pkgredis.IdempotencyKey(keyScope, strings.TrimSpace(sessionID))); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear idempotency key")
	}
	return nil
}
