package session

import (
	"maps"
	"slices"
	"sync"
)

// Store serialises dispatches over a State
type Store struct {
	// notify orders listener calls by dispatch; mu guards the fields below
	notify    sync.Mutex
	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

// NewStore creates a store holding the empty state
func NewStore() *Store {
	return &Store{listeners: make(map[int]func(State))}
}

// State returns the current snapshot
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a and returns the resulting state. Listeners run before
// Dispatch returns, in dispatch order and outside the state lock, so they
// may read the store. They must not dispatch themselves.
func (s *Store) Dispatch(a Action) State {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state
	listeners := make([]func(State), 0, len(s.listeners))
	for _, id := range slices.Sorted(maps.Keys(s.listeners)) {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next
}

// Subscribe registers l for every new state. The returned func unsubscribes.
func (s *Store) Subscribe(l func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
