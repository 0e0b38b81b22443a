package cart

import (
	"context"
	"sync"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

// Persister is the durable-storage port of one cart. Load reports found=false
// for missing or unreadable data.
type Persister interface {
	Load(ctx context.Context) (State, bool, error)
	Save(ctx context.Context, state State) error
}

// MutationRecorder observes effective cart mutations.
type MutationRecorder interface {
	IncCartMutation(op string)
}

// Listener receives a snapshot after every effective change. It runs on the
// mutating goroutine after the store lock is released.
type Listener func(Snapshot)

const (
	OpAdd       = "add"
	OpUpdate    = "update"
	OpRemove    = "remove"
	OpClear     = "clear"
	OpRehydrate = "rehydrate"
	OpCheckout  = "checkout"
)

// Store owns the contents of one cart. All mutations go through its methods
// and are serialized; each effective mutation is saved before it returns.
type Store struct {
	mu        sync.Mutex
	items     []LineItem
	persister Persister
	recorder  MutationRecorder
	shared    bool

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

type Option func(*Store)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r MutationRecorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

// WithSharedPersistence marks the persisted cart as writable by other
// processes. Every mutation then starts from the persisted state instead of
// the local copy, and Refresh picks up changes made elsewhere.
func WithSharedPersistence() Option {
	return func(s *Store) {
		s.shared = true
	}
}

// NewStore builds an empty store. Call Rehydrate to load persisted state.
func NewStore(persister Persister, opts ...Option) *Store {
	s := &Store{
		persister: persister,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddItem merges item into the cart. Quantities ≤ 0 are ignored and a line
// never grows past MaxQuantity.
func (s *Store) AddItem(ctx context.Context, item LineItem) error {
	if item.Quantity <= 0 {
		return nil
	}
	item.Quantity = clampQuantity(item.Quantity)
	return s.mutate(ctx, OpAdd, func(items []LineItem) ([]LineItem, bool) {
		if pos := indexOf(items, item.VariantID); pos >= 0 {
			merged := addQuantity(items[pos].Quantity, item.Quantity)
			if merged == items[pos].Quantity {
				return items, false
			}
			items[pos].Quantity = merged
			return items, true
		}
		return append(items, item), true
	})
}

// UpdateQuantity sets the quantity of a variant; q ≤ 0 removes it.
func (s *Store) UpdateQuantity(ctx context.Context, variantID int64, quantity int) error {
	if quantity <= 0 {
		return s.removeAs(ctx, OpUpdate, variantID)
	}
	quantity = clampQuantity(quantity)
	return s.mutate(ctx, OpUpdate, func(items []LineItem) ([]LineItem, bool) {
		pos := indexOf(items, variantID)
		if pos < 0 {
			return items, false
		}
		items[pos].Quantity = quantity
		return items, true
	})
}

// RemoveItem drops a variant if present.
func (s *Store) RemoveItem(ctx context.Context, variantID int64) error {
	return s.removeAs(ctx, OpRemove, variantID)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, OpClear, func([]LineItem) ([]LineItem, bool) {
		return nil, true
	})
}

// Subtract removes ordered quantities from the cart, e.g. after checkout.
// Lines or units added since the order was built stay in the cart.
func (s *Store) Subtract(ctx context.Context, ordered []LineItem) error {
	if len(ordered) == 0 {
		return nil
	}
	return s.mutate(ctx, OpCheckout, func(items []LineItem) ([]LineItem, bool) {
		changed := false
		for _, o := range ordered {
			pos := indexOf(items, o.VariantID)
			if pos < 0 || o.Quantity <= 0 {
				continue
			}
			changed = true
			if items[pos].Quantity <= o.Quantity {
				items = append(items[:pos], items[pos+1:]...)
				continue
			}
			items[pos].Quantity -= o.Quantity
		}
		return items, changed
	})
}

// Refresh reloads the persisted state when it is shared with other
// processes and notifies listeners if it differs from the local copy.
// Without shared persistence it is a no-op.
func (s *Store) Refresh(ctx context.Context) error {
	if !s.shared || s.persister == nil {
		return nil
	}
	s.mu.Lock()
	loaded, err := s.loadLocked(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if sameItems(s.items, loaded) {
		s.mu.Unlock()
		return nil
	}
	s.items = loaded
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Rehydrate replaces the in-memory state with the persisted one. Missing or
// malformed data yields an empty cart. Safe to call repeatedly.
func (s *Store) Rehydrate(ctx context.Context) error {
	s.mu.Lock()
	loaded, err := s.loadLocked(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.items = loaded
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.record(OpRehydrate)
	s.notify(snap)
	return nil
}

// Items returns a copy of the line items in cart order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// TotalItems is the sum of quantities.
func (s *Store) TotalItems() int {
	return s.Totals().TotalItems
}

// TotalPrice is the sum of price × quantity.
func (s *Store) TotalPrice() decimal.Decimal {
	return s.Totals().TotalPrice
}

func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return computeTotals(s.items)
}

// Snapshot returns items and totals read under a single lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers a listener and returns its cancel function.
func (s *Store) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) removeAs(ctx context.Context, op string, variantID int64) error {
	return s.mutate(ctx, op, func(items []LineItem) ([]LineItem, bool) {
		pos := indexOf(items, variantID)
		if pos < 0 {
			return items, false
		}
		return append(items[:pos], items[pos+1:]...), true
	})
}

// mutate applies fn to a private copy of the items. When fn reports a
// change the copy becomes the state and is saved before returning. A save
// failure leaves the new state in memory and is returned to the caller.
// With shared persistence the base is reloaded first so writes made by other
// processes are not overwritten.
func (s *Store) mutate(ctx context.Context, op string, fn func([]LineItem) ([]LineItem, bool)) error {
	s.mu.Lock()
	if s.shared && s.persister != nil {
		loaded, err := s.loadLocked(ctx)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.items = loaded
	}
	next, changed := fn(cloneItems(s.items))
	if !changed {
		s.mu.Unlock()
		return nil
	}
	s.items = next

	var saveErr error
	if s.persister != nil {
		saveErr = s.persister.Save(ctx, State{Items: cloneItems(next)})
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.record(op)
	s.notify(snap)

	if saveErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "save cart")
	}
	return nil
}

// loadLocked reads and normalizes the persisted items. Missing or malformed
// data yields an empty cart.
func (s *Store) loadLocked(ctx context.Context) ([]LineItem, error) {
	if s.persister == nil {
		return normalize(nil), nil
	}
	state, found, err := s.persister.Load(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if !found {
		return normalize(nil), nil
	}
	return normalize(state.Items), nil
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Items: cloneItems(s.items), Totals: computeTotals(s.items)}
}

func (s *Store) notify(snap Snapshot) {
	s.listenersMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(Snapshot{Items: cloneItems(snap.Items), Totals: snap.Totals})
	}
}

func (s *Store) record(op string) {
	if s.recorder != nil {
		s.recorder.IncCartMutation(op)
	}
}

func sameItems(a, b []LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].VariantID != b[i].VariantID || a[i].Quantity != b[i].Quantity ||
			!a[i].Price.Equal(b[i].Price) || a[i].ProductName != b[i].ProductName ||
			a[i].VariantLabel != b[i].VariantLabel || a[i].Image != b[i].Image {
			return false
		}
	}
	return true
}

func indexOf(items []LineItem, variantID int64) int {
	for i, item := range items {
		if item.VariantID == variantID {
			return i
		}
	}
	return -1
}
