package orders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/sequence"
)

type orderClient interface {
	GetOrder(ctx context.Context, reference string) (backend.Order, error)
}

// Service looks up orders by reference and remembers the latest result per
// session for the order-tracking page.
type Service interface {
	Lookup(ctx context.Context, sessionID, reference string) (backend.Order, error)
	Tracked(sessionID string) (backend.Order, bool)
	Forget(sessionID string)
	Sweep(maxIdle time.Duration) int
	Len() int
}

type tracked struct {
	guard    sequence.Guard
	mu       sync.Mutex
	order    *backend.Order
	lastUsed time.Time
}

type service struct {
	client orderClient
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*tracked
}

func NewService(client orderClient) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &service{client: client, now: time.Now, sessions: make(map[string]*tracked)}, nil
}

// Lookup fetches the order and records it as the session's tracked order
// unless a lookup started later has already been recorded.
func (s *service) Lookup(ctx context.Context, sessionID, reference string) (backend.Order, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return backend.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
	}

	entry := s.entry(sessionID)
	ticket := entry.guard.Begin()

	order, err := s.client.GetOrder(ctx, reference)
	if err != nil {
		return backend.Order{}, err
	}

	entry.guard.Commit(ticket, func() {
		entry.mu.Lock()
		entry.order = &order
		entry.mu.Unlock()
	})
	return order, nil
}

func (s *service) Tracked(sessionID string) (backend.Order, bool) {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return backend.Order{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.order == nil {
		return backend.Order{}, false
	}
	return *entry.order, true
}

func (s *service) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *service) entry(sessionID string) *tracked {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		entry = &tracked{}
		s.sessions[sessionID] = entry
	}
	entry.lastUsed = s.now()
	return entry
}

// Sweep drops trackers not used by a lookup for longer than maxIdle.
func (s *service) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, entry := range s.sessions {
		if entry.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped
}

func (s *service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
