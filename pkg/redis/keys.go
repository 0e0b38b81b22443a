package redis

import "strings"

const (
	keyNamespace      = "pf"
	cartPrefix        = "cart"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	sessionPrefix     = "session"
	cachePrefix       = "cache"
	lockPrefix        = "lock"
)

// CartKey holds a session's serialized cart.
func CartKey(sessionID string) string {
	return buildKey(cartPrefix, sessionID)
}

// IdempotencyKey returns a namespaced key for idempotency storage.
func IdempotencyKey(scope, id string) string {
	return buildKey(idempotencyPrefix, scope, id)
}

// RateLimitKey returns a namespaced key for rate limit counters.
func RateLimitKey(scope string) string {
	return buildKey(rateLimitPrefix, scope)
}

// SessionTokensKey holds the backend tokens of a logged-in session.
func SessionTokensKey(sessionID string) string {
	return buildKey(sessionPrefix, sessionID, "tokens")
}

// CacheKey returns a namespaced key for cached upstream responses.
func CacheKey(scope, digest string) string {
	return buildKey(cachePrefix, scope, digest)
}

// LockKey names the distributed lock of a scheduled job.
func LockKey(env, job string) string {
	return buildKey(lockPrefix, env, job)
}

func buildKey(parts ...string) string {
	clean := []string{keyNamespace}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, ":")
}
