package ui

import (
	"strings"
	"sync"
)

// State is the transient overlay state of one storefront session.
type State struct {
	IsCartOpen        bool    `json:"isCartOpen"`
	ActiveModalTarget *string `json:"activeModalTarget"`
}

type Listener func(State)

// Store holds UI flags in memory only; nothing here is ever persisted.
type Store struct {
	mu    sync.Mutex
	state State

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

func (s *Store) OpenCart() {
	s.update(func(st *State) bool {
		if st.IsCartOpen {
			return false
		}
		st.IsCartOpen = true
		return true
	})
}

func (s *Store) CloseCart() {
	s.update(func(st *State) bool {
		if !st.IsCartOpen {
			return false
		}
		st.IsCartOpen = false
		return true
	})
}

// OpenAddToCartModal opens the modal for target. An empty target closes it.
func (s *Store) OpenAddToCartModal(target string) {
	target = strings.TrimSpace(target)
	if target == "" {
		s.CloseAddToCartModal()
		return
	}
	s.update(func(st *State) bool {
		if st.ActiveModalTarget != nil && *st.ActiveModalTarget == target {
			return false
		}
		st.ActiveModalTarget = &target
		return true
	})
}

func (s *Store) CloseAddToCartModal() {
	s.update(func(st *State) bool {
		if st.ActiveModalTarget == nil {
			return false
		}
		st.ActiveModalTarget = nil
		return true
	})
}

// State returns a copy that callers may keep.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state)
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

func (s *Store) update(fn func(*State) bool) {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return
	}
	snap := copyState(s.state)
	s.mu.Unlock()

	s.listenersMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()
	for _, l := range listeners {
		l(copyState(snap))
	}
}

func copyState(st State) State {
	if st.ActiveModalTarget != nil {
		target := *st.ActiveModalTarget
		st.ActiveModalTarget = &target
	}
	return st
}
