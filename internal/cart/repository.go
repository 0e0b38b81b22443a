package cart

import (
	"context"
	"errors"
	"sync"
)

// ErrSnapshotNotFound is returned by repositories when a session has no cart.
var ErrSnapshotNotFound = errors.New("cart snapshot not found")

// Repository stores serialized carts keyed by session. Implementations only
// move bytes; encoding and tolerance of bad payloads live in Bind.
type Repository interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, payload []byte) error
	Delete(ctx context.Context, sessionID string) error
}

type boundPersister struct {
	repo      Repository
	sessionID string
}

// Bind adapts a session-keyed repository into the Persister of one cart.
func Bind(repo Repository, sessionID string) Persister {
	return &boundPersister{repo: repo, sessionID: sessionID}
}

func (b *boundPersister) Load(ctx context.Context) (State, bool, error) {
	payload, err := b.repo.Load(ctx, b.sessionID)
	if errors.Is(err, ErrSnapshotNotFound) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	state, ok := DecodeState(payload)
	return state, ok, nil
}

func (b *boundPersister) Save(ctx context.Context, state State) error {
	payload, err := EncodeState(state)
	if err != nil {
		return err
	}
	return b.repo.Save(ctx, b.sessionID, payload)
}

// MemoryRepository keeps carts in process memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string][]byte)}
}

func (m *MemoryRepository) Load(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.data[sessionID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return append([]byte(nil), payload...), nil
}

func (m *MemoryRepository) Save(_ context.Context, sessionID string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = append([]byte(nil), payload...)
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}
