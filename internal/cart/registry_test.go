package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type flakyRepository struct {
	*MemoryRepository
	mu        sync.Mutex
	failLoads int
	loads     int
}

func (f *flakyRepository) Load(ctx context.Context, sessionID string) ([]byte, error) {
	f.mu.Lock()
	f.loads++
	fail := f.failLoads > 0
	if fail {
		f.failLoads--
	}
	f.mu.Unlock()
	if fail {
		return nil, errors.New("connection refused")
	}
	return f.MemoryRepository.Load(ctx, sessionID)
}

func TestRegistryReturnsSameStorePerSession(t *testing.T) {
	ctx := context.Background()
	repo := &flakyRepository{MemoryRepository: NewMemoryRepository()}
	reg, err := NewRegistry(repo)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	a1, err := reg.ForSession(ctx, "a")
	if err != nil {
		t.Fatalf("for session: %v", err)
	}
	a2, _ := reg.ForSession(ctx, "a")
	b, _ := reg.ForSession(ctx, "b")

	if a1 != a2 {
		t.Fatalf("expected the same store for one session")
	}
	if a1 == b {
		t.Fatalf("expected distinct stores per session")
	}
	if repo.loads != 2 {
		t.Fatalf("expected one rehydrate per session, got %d loads", repo.loads)
	}
}

func TestRegistryRehydratesPersistedCart(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	seed := NewStore(Bind(repo, "returning"))
	if err := seed.AddItem(ctx, item(3, 4, 25)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reg, _ := NewRegistry(repo)
	store, err := reg.ForSession(ctx, "returning")
	if err != nil {
		t.Fatalf("for session: %v", err)
	}
	if store.TotalItems() != 4 {
		t.Fatalf("expected 4 items after rehydrate, got %d", store.TotalItems())
	}
}

func TestRegistryRetriesAfterLoadFailure(t *testing.T) {
	ctx := context.Background()
	repo := &flakyRepository{MemoryRepository: NewMemoryRepository(), failLoads: 1}
	reg, _ := NewRegistry(repo)

	_, err := reg.ForSession(ctx, "s")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("failed entry should not be cached")
	}
	if _, err := reg.ForSession(ctx, "s"); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
}

func TestRegistryRejectsEmptySession(t *testing.T) {
	reg, _ := NewRegistry(NewMemoryRepository())
	_, err := reg.ForSession(context.Background(), "  ")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegistrySweepDropsIdleStores(t *testing.T) {
	ctx := context.Background()
	reg, _ := NewRegistry(NewMemoryRepository())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	_, _ = reg.ForSession(ctx, "old")
	now = now.Add(20 * time.Minute)
	_, _ = reg.ForSession(ctx, "fresh")
	now = now.Add(5 * time.Minute)

	if dropped := reg.Sweep(15 * time.Minute); dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected fresh store to remain")
	}

	reg.Forget("fresh")
	if reg.Len() != 0 {
		t.Fatalf("expected forget to drop the store")
	}
}

func TestRegistryConcurrentFirstUse(t *testing.T) {
	ctx := context.Background()
	repo := &flakyRepository{MemoryRepository: NewMemoryRepository()}
	reg, _ := NewRegistry(repo)

	var wg sync.WaitGroup
	stores := make([]*Store, 16)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stores[i], _ = reg.ForSession(ctx, "shared")
		}(i)
	}
	wg.Wait()

	for _, s := range stores {
		if s != stores[0] {
			t.Fatalf("expected all goroutines to share one store")
		}
	}
	if repo.loads != 1 {
		t.Fatalf("expected a single rehydrate, got %d", repo.loads)
	}
}

func TestSharedRegistriesSeeEachOthersWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	instanceA, err := NewRegistry(repo, WithSharedPersistence())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	instanceB, _ := NewRegistry(repo, WithSharedPersistence())

	storeA, err := instanceA.ForSession(ctx, "sess")
	if err != nil {
		t.Fatalf("for session a: %v", err)
	}
	storeB, err := instanceB.ForSession(ctx, "sess")
	if err != nil {
		t.Fatalf("for session b: %v", err)
	}

	if err := storeA.AddItem(ctx, item(1, 2, 100)); err != nil {
		t.Fatalf("add via a: %v", err)
	}
	if err := storeB.AddItem(ctx, item(2, 1, 100)); err != nil {
		t.Fatalf("add via b: %v", err)
	}

	again, err := instanceA.ForSession(ctx, "sess")
	if err != nil {
		t.Fatalf("for session a again: %v", err)
	}
	if got := again.TotalItems(); got != 3 {
		t.Fatalf("instance a lost a write from instance b: total items %d", got)
	}

	if err := again.RemoveItem(ctx, 1); err != nil {
		t.Fatalf("remove via a: %v", err)
	}
	storeB, _ = instanceB.ForSession(ctx, "sess")
	items := storeB.Items()
	if len(items) != 1 || items[0].VariantID != 2 {
		t.Fatalf("instance b should see the removal, got %+v", items)
	}
}

func TestRegistryMoveMergesIntoTarget(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	reg, err := NewRegistry(repo)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	anon, _ := reg.ForSession(ctx, "anon")
	if err := anon.AddItem(ctx, item(1, 2, 100)); err != nil {
		t.Fatalf("add: %v", err)
	}
	target, _ := reg.ForSession(ctx, "rotated")
	if err := target.AddItem(ctx, item(1, 1, 100)); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := reg.Move(ctx, "anon", "rotated"); err != nil {
		t.Fatalf("move: %v", err)
	}

	moved, _ := reg.ForSession(ctx, "rotated")
	if got := moved.TotalItems(); got != 3 {
		t.Fatalf("expected merged quantity 3, got %d", got)
	}
	if _, err := repo.Load(ctx, "anon"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected source snapshot deleted, got %v", err)
	}
	if err := reg.Move(ctx, "rotated", "rotated"); err != nil {
		t.Fatalf("self move should be a no-op: %v", err)
	}
}
