// Package memory holds in-process adapters for running prompt-vault without
// Postgres. State is lost on restart.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var ErrNotFound = errors.New("store: not found")

type storeEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e storeEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Store is a namespaced byte-value map with optional per-entry TTL. Values
// are copied in and out so callers never share backing arrays.
type Store struct {
	mu      sync.RWMutex
	entries map[string]storeEntry
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]storeEntry),
	}
}

func storeKey(namespace, key string) string {
	return namespace + "/" + key
}

func (s *Store) Get(_ context.Context, namespace, key string) ([]byte, error) {
	k := storeKey(namespace, key)
	s.mu.RLock()
	entry, ok := s.entries[k]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if entry.expired(time.Now()) {
		s.mu.Lock()
		delete(s.entries, k)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

// Set stores value under key. A ttl of zero keeps the entry until deleted.
func (s *Store) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	entry := storeEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[storeKey(namespace, key)] = entry
	s.mu.Unlock()
	return nil
}

// SetIfAbsent stores value only when key has no live entry and reports
// whether it did.
func (s *Store) SetIfAbsent(_ context.Context, namespace, key string, value []byte, ttl time.Duration) bool {
	k := storeKey(namespace, key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[k]; ok && !entry.expired(time.Now()) {
		return false
	}
	entry := storeEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries[k] = entry
	return true
}

func (s *Store) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	delete(s.entries, storeKey(namespace, key))
	s.mu.Unlock()
	return nil
}

// Sweep removes every entry that has expired by now and returns the count.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Values returns every live value in namespace, ordered by key.
func (s *Store) Values(_ context.Context, namespace string) [][]byte {
	prefix := namespace + "/"
	now := time.Now()

	s.mu.RLock()
	keys := make([]string, 0)
	for k, entry := range s.entries {
		if strings.HasPrefix(k, prefix) && !entry.expired(now) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		out = append(out, append([]byte(nil), s.entries[k].value...))
	}
	s.mu.RUnlock()
	return out
}
