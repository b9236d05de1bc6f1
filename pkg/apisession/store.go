// Package apisession hands out per-client planning state. Clients identify
// themselves with an opaque session ID (typically a UUID generated client-side);
// entries expire after a period of inactivity.
package apisession

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const minJanitorInterval = time.Second

// Store is a typed, thread-safe session store. Each unique session ID maps to
// one instance of T, created on first access via the newFn factory.
type Store[T any] struct {
	mu    sync.Mutex
	items *cache.Cache
	newFn func() *T
}

// New creates a Store that evicts sessions inactive longer than ttl.
// A background janitor removes expired sessions every ttl/4.
func New[T any](ttl time.Duration, newFn func() *T) *Store[T] {
	return &Store[T]{
		items: cache.New(ttl, max(ttl/4, minJanitorInterval)),
		newFn: newFn,
	}
}

// Get returns the state for the given session, creating it if needed.
// Each call pushes the session's expiry out by the TTL.
func (s *Store[T]) Get(id string) *T {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.lookupLocked(id)
	if !ok {
		v = s.newFn()
	}
	s.items.SetDefault(id, v)
	return v
}

// Lookup returns the state for an existing session without creating one.
func (s *Store[T]) Lookup(id string) (*T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.lookupLocked(id)
	if ok {
		s.items.SetDefault(id, v)
	}
	return v, ok
}

func (s *Store[T]) lookupLocked(id string) (*T, bool) {
	raw, ok := s.items.Get(id)
	if !ok {
		return nil, false
	}
	v, ok := raw.(*T)
	return v, ok
}

// OnEvict registers a callback for sessions removed by expiry or Delete.
// Refreshing a live session does not trigger it.
func (s *Store[T]) OnEvict(fn func(id string, v *T)) {
	s.items.OnEvicted(func(id string, raw interface{}) {
		if v, ok := raw.(*T); ok {
			fn(id, v)
		}
	})
}

// Delete drops a session immediately.
func (s *Store[T]) Delete(id string) {
	s.items.Delete(id)
}

// Cleanup evicts all sessions that have been inactive longer than the TTL.
func (s *Store[T]) Cleanup() {
	s.items.DeleteExpired()
}

// Len returns the number of stored sessions, including expired ones not yet cleaned up.
func (s *Store[T]) Len() int {
	return s.items.ItemCount()
}
