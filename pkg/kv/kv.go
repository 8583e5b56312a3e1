// Package kv provides a generic, thread-safe, in-memory key-value store with
// optional per-entry TTL, insertion-order listing, and deterministic ID
// generation. It backs the domain stores and the OTP engine; a networked
// cache could implement the same surface in a production deployment.
package kv

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Store is a generic, thread-safe, in-memory store for objects of type T.
// Entries stored with SetTTL are lazily evicted on read once expired.
type Store[T any] struct {
	mu      sync.RWMutex
	items   map[string]entry[T]
	order   []string // insertion order for deterministic listing
	prefix  string
	clock   *Clock
	counter atomic.Uint64
}

type entry[T any] struct {
	value     T
	expiresAt time.Time // zero means no expiry
}

// New creates a Store with the given ID prefix (e.g. "cust", "txn") using the
// provided clock for TTL checks. A nil clock falls back to wall time.
func New[T any](prefix string, clock *Clock) *Store[T] {
	if clock == nil {
		clock = NewClock()
	}
	return &Store[T]{
		items:  make(map[string]entry[T]),
		order:  make([]string, 0),
		prefix: prefix,
		clock:  clock,
	}
}

// NextID generates a deterministic ID of the form "{prefix}_{counter}".
func (s *Store[T]) NextID() string {
	n := s.counter.Add(1)
	return fmt.Sprintf("%s_%06d", s.prefix, n)
}

// Set stores an item without expiry. An existing key is overwritten but keeps
// its position in the insertion order.
func (s *Store[T]) Set(key string, item T) {
	s.SetTTL(key, item, 0)
}

// SetTTL stores an item that expires ttl from now. A ttl of zero means no
// expiry. Overwriting a live entry replaces both value and deadline.
func (s *Store[T]) SetTTL(key string, item T, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; !exists {
		s.order = append(s.order, key)
	}
	e := entry[T]{value: item}
	if ttl > 0 {
		e.expiresAt = s.clock.Now().Add(ttl)
	}
	s.items[key] = e
}

// Get retrieves an item by key. An expired entry is deleted and reported as
// absent.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	if s.expired(e) {
		s.remove(key)
		var zero T
		return zero, false
	}
	return e.value, true
}

// Delete removes an item by key. Returns true if a live item existed.
func (s *Store[T]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	if !ok {
		return false
	}
	wasLive := !s.expired(e)
	s.remove(key)
	return wasLive
}

// List returns all live items in insertion order.
func (s *Store[T]) List() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]T, 0, len(s.order))
	for _, key := range s.keysLocked() {
		result = append(result, s.items[key].value)
	}
	return result
}

// Filter returns live items matching the predicate, in insertion order.
func (s *Store[T]) Filter(predicate func(key string, item T) bool) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []T
	for _, key := range s.keysLocked() {
		if predicate(key, s.items[key].value) {
			result = append(result, s.items[key].value)
		}
	}
	return result
}

// Count returns the number of live items.
func (s *Store[T]) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keysLocked())
}

// Update applies fn to the item under key while holding the store lock, so a
// concurrent read-modify-write for the same key cannot lose updates. fn is
// not called if the key is absent or expired.
func (s *Store[T]) Update(key string, fn func(item T) T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	if !ok || s.expired(e) {
		if ok {
			s.remove(key)
		}
		return false
	}
	e.value = fn(e.value)
	s.items[key] = e
	return true
}

// Reset clears all items and resets the ID counter.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]entry[T])
	s.order = make([]string, 0)
	s.counter.Store(0)
}

// Snapshot returns all live items as a JSON-serializable map. TTL deadlines
// are not part of the snapshot; seeded state does not expire.
func (s *Store[T]) Snapshot() map[string]T {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]T)
	for _, key := range s.keysLocked() {
		snapshot[key] = s.items[key].value
	}
	return snapshot
}

// LoadSnapshot replaces all items from a map. Keys are sorted for
// deterministic order.
func (s *Store[T]) LoadSnapshot(snapshot map[string]T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]entry[T], len(snapshot))
	s.order = make([]string, 0, len(snapshot))
	for k, v := range snapshot {
		s.items[k] = entry[T]{value: v}
		s.order = append(s.order, k)
	}
	sort.Strings(s.order)
}

// MarshalJSON serializes the store as its snapshot map.
func (s *Store[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// UnmarshalJSON replaces the store contents from a snapshot map.
func (s *Store[T]) UnmarshalJSON(data []byte) error {
	var snapshot map[string]T
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	s.LoadSnapshot(snapshot)
	return nil
}

// keysLocked returns keys of live entries in insertion order, evicting
// expired ones as a side effect. Caller must hold mu.
func (s *Store[T]) keysLocked() []string {
	live := make([]string, 0, len(s.order))
	var stale []string
	for _, key := range s.order {
		if s.expired(s.items[key]) {
			stale = append(stale, key)
			continue
		}
		live = append(live, key)
	}
	for _, key := range stale {
		s.remove(key)
	}
	return live
}

func (s *Store[T]) expired(e entry[T]) bool {
	return !e.expiresAt.IsZero() && s.clock.Now().After(e.expiresAt)
}

// remove deletes key from items and order. Caller must hold mu.
func (s *Store[T]) remove(key string) {
	delete(s.items, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Clock provides a simulated clock for time-dependent behavior. Tests advance
// it to cross TTL deadlines without sleeping.
type Clock struct {
	mu     sync.RWMutex
	offset time.Duration
}

// NewClock creates a clock with no offset.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(c.offset)
}

// Advance moves the simulated clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

// Offset returns the accumulated simulated offset.
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Reset clears the clock offset.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = 0
}
