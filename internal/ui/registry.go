package ui

import (
	"sync"
	"time"
)

type entry struct {
	store    *Store
	lastUsed time.Time
}

// Registry keeps one UI store per session. A restarted process starts
// every session closed, which matches a page reload.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry), now: time.Now}
}

func (r *Registry) ForSession(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		e = &entry{store: NewStore()}
		r.entries[sessionID] = e
	}
	e.lastUsed = r.now()
	return e.store
}

// Sweep forgets stores idle for longer than maxIdle.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			delete(r.entries, id)
			dropped++
		}
	}
	return dropped
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
