package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

const sessionIDBytes = 32

// ErrNoSession means the storefront session carries no backend tokens.
var ErrNoSession = errors.New("no authenticated session")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// Tokens is the backend JWT pair held on behalf of a browser session.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Manager stores backend tokens per storefront session in Redis so they
// never reach the browser.
type Manager struct {
	store sessionStore
}

func NewManager(store sessionStore) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	return &Manager{store: store}, nil
}

// Save stores tokens for ttl, normally the access token's remaining lifetime.
func (m *Manager) Save(ctx context.Context, sessionID string, tokens Tokens, ttl time.Duration) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	payload, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode session tokens: %w", err)
	}
	return m.store.Set(ctx, pkgredis.SessionTokensKey(sessionID), string(payload), ttl)
}

// Load returns the tokens of a session or ErrNoSession.
func (m *Manager) Load(ctx context.Context, sessionID string) (Tokens, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Tokens{}, ErrNoSession
	}
	raw, err := m.store.Get(ctx, pkgredis.SessionTokensKey(sessionID))
	if err != nil {
		return Tokens{}, wrapNotFound(err)
	}
	var tokens Tokens
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil || tokens.Access == "" {
		return Tokens{}, ErrNoSession
	}
	return tokens, nil
}

// Revoke deletes the tokens tied to the session.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return m.store.Del(ctx, pkgredis.SessionTokensKey(sessionID))
}

// NewSessionID returns an unguessable identifier for the session cookie.
func NewSessionID() (string, error) {
	bytes := make([]byte, sessionIDBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ValidSessionID reports whether id has the shape produced by NewSessionID.
// Cookies carrying anything else are replaced rather than trusted.
func ValidSessionID(id string) bool {
	if len(id) != base64.RawURLEncoding.EncodedLen(sessionIDBytes) {
		return false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil && len(decoded) == sessionIDBytes
}

func wrapNotFound(err error) error {
	if errors.Is(err, redislib.Nil) {
		return ErrNoSession
	}
	return err
}
