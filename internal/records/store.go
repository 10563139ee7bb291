package records

import "sync"

// Store is an id-keyed collection that keeps insertion order and notifies
// subscribers after every change.
type Store[T any] struct {
	key func(T) string

	mu          sync.RWMutex
	order       []string
	items       map[string]T
	subscribers []func()
}

// NewStore creates an empty store keyed by key.
func NewStore[T any](key func(T) string) *Store[T] {
	return &Store[T]{key: key, items: make(map[string]T)}
}

// Replace swaps the whole collection.
func (s *Store[T]) Replace(items []T) {
	s.mu.Lock()
	s.order = make([]string, 0, len(items))
	s.items = make(map[string]T, len(items))
	for _, item := range items {
		id := s.key(item)
		if _, dup := s.items[id]; !dup {
			s.order = append(s.order, id)
		}
		s.items[id] = item
	}
	s.mu.Unlock()
	s.notify()
}

// Get returns the record with id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// Update applies fn to the record with id. It returns false when no such
// record exists.
func (s *Store[T]) Update(id string, fn func(*T)) bool {
	s.mu.Lock()
	item, ok := s.items[id]
	if ok {
		fn(&item)
		s.items[id] = item
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// Delete removes the record with id.
func (s *Store[T]) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.items[id]
	if ok {
		delete(s.items, id)
		for i, existing := range s.order {
			if existing == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// All returns the records in insertion order.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Len returns the number of records.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Subscribe registers fn to run after each change. fn must not write to the store.
func (s *Store[T]) Subscribe(fn func()) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

func (s *Store[T]) notify() {
	s.mu.RLock()
	subs := append([]func(){}, s.subscribers...)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}
