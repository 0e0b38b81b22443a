package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type registryEntry struct {
	once     sync.Once
	store    *Store
	err      error
	lastUsed time.Time
}

// Registry hands out one Store per session. A store is rehydrated once when
// it is first materialised in this process; stores over shared persistence
// are refreshed on every later access. Idle stores can be swept since their
// state is persisted.
type Registry struct {
	repo Repository
	opts []Option
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

func NewRegistry(repo Repository, opts ...Option) (*Registry, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &Registry{
		repo:    repo,
		opts:    opts,
		now:     time.Now,
		entries: make(map[string]*registryEntry),
	}, nil
}

// ForSession returns the session's store, creating and rehydrating it on first use.
func (r *Registry) ForSession(ctx context.Context, sessionID string) (*Store, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	r.mu.Lock()
	entry, ok := r.entries[sessionID]
	if !ok {
		entry = &registryEntry{store: NewStore(Bind(r.repo, sessionID), r.opts...)}
		r.entries[sessionID] = entry
	}
	entry.lastUsed = r.now()
	r.mu.Unlock()

	loaded := false
	entry.once.Do(func() {
		entry.err = entry.store.Rehydrate(ctx)
		loaded = true
	})
	if entry.err != nil {
		r.mu.Lock()
		if r.entries[sessionID] == entry {
			delete(r.entries, sessionID)
		}
		r.mu.Unlock()
		return nil, entry.err
	}
	if !loaded {
		if err := entry.store.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return entry.store, nil
}

// Move hands the cart of one session over to another, merging into whatever
// the target already holds. The source snapshot is deleted afterwards.
func (r *Registry) Move(ctx context.Context, fromSessionID, toSessionID string) error {
	fromSessionID = strings.TrimSpace(fromSessionID)
	toSessionID = strings.TrimSpace(toSessionID)
	if fromSessionID == "" || toSessionID == "" || fromSessionID == toSessionID {
		return nil
	}
	src, err := r.ForSession(ctx, fromSessionID)
	if err != nil {
		return err
	}
	items := src.Items()
	if len(items) > 0 {
		dst, err := r.ForSession(ctx, toSessionID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := dst.AddItem(ctx, item); err != nil {
				return err
			}
		}
	}
	r.Forget(fromSessionID)
	if err := r.repo.Delete(ctx, fromSessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete moved cart")
	}
	return nil
}

// Forget drops the in-process store of a session. Persisted state is kept.
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
}

// Sweep forgets stores idle for longer than maxIdle and returns how many were dropped.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for id, entry := range r.entries {
		if entry.lastUsed.Before(cutoff) {
			delete(r.entries, id)
			dropped++
		}
	}
	return dropped
}

// Len reports how many stores are materialised.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
