package media

import (
	"sync"
	"time"
)

// Slot is the single owner of one form field's preview. Selecting a new
// image releases the previous local reference; Close releases the current one.
type Slot struct {
	cache *PreviewCache

	mu      sync.Mutex
	current Preview
}

func NewSlot(cache *PreviewCache) *Slot {
	return &Slot{cache: cache}
}

// Select resolves a new preview for the slot. On ErrNoPreview the slot is
// left empty.
func (s *Slot) Select(file *LocalFile, remoteURL string) (Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseLocked()
	preview, err := Resolve(s.cache, file, remoteURL)
	if err != nil {
		return Preview{}, err
	}
	s.current = preview
	return preview, nil
}

func (s *Slot) Current() Preview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close releases the slot's temporary reference. Safe to call repeatedly.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

func (s *Slot) releaseLocked() {
	if s.current.Ref != "" && s.cache != nil {
		s.cache.Release(s.current.Ref)
	}
	s.current = Preview{}
}

type slotKey struct {
	owner  string
	target string
}

// Slots tracks one slot per admin session and upload target. Owners that
// stay idle past the sweep window lose their previews.
type Slots struct {
	cache *PreviewCache

	mu       sync.Mutex
	slots    map[slotKey]*Slot
	lastUsed map[string]time.Time
	now      func() time.Time
}

func NewSlots(cache *PreviewCache) *Slots {
	return &Slots{
		cache:    cache,
		slots:    make(map[slotKey]*Slot),
		lastUsed: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *Slots) ForOwner(owner, target string) *Slot {
	key := slotKey{owner: owner, target: target}
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[key]
	if !ok {
		slot = NewSlot(s.cache)
		s.slots[key] = slot
	}
	s.lastUsed[owner] = s.now()
	return slot
}

// Close releases and forgets the slot of owner/target if it exists.
func (s *Slots) Close(owner, target string) {
	key := slotKey{owner: owner, target: target}
	s.mu.Lock()
	slot, ok := s.slots[key]
	delete(s.slots, key)
	s.mu.Unlock()
	if ok {
		slot.Close()
	}
}

// CloseOwner releases every slot of an owner, e.g. on logout.
func (s *Slots) CloseOwner(owner string) int {
	s.mu.Lock()
	closing := s.detachLocked(func(o string) bool { return o == owner })
	s.mu.Unlock()
	for _, slot := range closing {
		slot.Close()
	}
	return len(closing)
}

// Sweep releases the slots of owners not seen within maxIdle and returns
// how many owners were dropped.
func (s *Slots) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	idle := make(map[string]bool)
	for owner, seen := range s.lastUsed {
		if seen.Before(cutoff) {
			idle[owner] = true
		}
	}
	closing := s.detachLocked(func(o string) bool { return idle[o] })
	s.mu.Unlock()
	for _, slot := range closing {
		slot.Close()
	}
	return len(idle)
}

// Len is the number of owners currently holding slots.
func (s *Slots) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	owners := make(map[string]struct{})
	for key := range s.slots {
		owners[key.owner] = struct{}{}
	}
	return len(owners)
}

func (s *Slots) detachLocked(match func(owner string) bool) []*Slot {
	var closing []*Slot
	for key, slot := range s.slots {
		if match(key.owner) {
			closing = append(closing, slot)
			delete(s.slots, key)
		}
	}
	for owner := range s.lastUsed {
		if match(owner) {
			delete(s.lastUsed, owner)
		}
	}
	return closing
}
