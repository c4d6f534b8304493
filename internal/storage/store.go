package storage

import (
	"sort"
	"sync"
)

// Record is a value with the version it was written at.
type Record struct {
	Value   []byte
	Version int64
}

// PutOutcome describes what a Put did.
type PutOutcome int

const (
	// Stored means the record was written.
	Stored PutOutcome = iota
	// IgnoredStale means a newer version was already stored.
	IgnoredStale
)

// Store defines the interface for key-value storage.
type Store interface {
	// Get retrieves a record by key. Returns nil if not found.
	Get(key string) *Record
	// Put stores value at version unless a strictly newer version is
	// already present. Equal versions overwrite.
	Put(key string, value []byte, version int64) PutOutcome
	// Delete removes a key. Returns false if the key was not present.
	Delete(key string) bool
	// Keys returns every stored key, sorted.
	Keys() []string
	// Len returns the number of stored keys.
	Len() int
}

// InMemoryStore is a thread-safe in-memory implementation of Store.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]*Record
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		data: make(map[string]*Record),
	}
}

// Get retrieves a record by key.
func (s *InMemoryStore) Get(key string) *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[key]
	if !exists {
		return nil
	}

	// Return a copy to avoid external modifications
	return &Record{
		Value:   append([]byte(nil), rec.Value...),
		Version: rec.Version,
	}
}

// Put stores a record with last-writer-wins semantics.
func (s *InMemoryStore) Put(key string, value []byte, version int64) PutOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.data[key]; exists && existing.Version > version {
		return IgnoredStale
	}

	s.data[key] = &Record{
		Value:   append([]byte(nil), value...),
		Version: version,
	}
	return Stored
}

// Delete removes a key.
func (s *InMemoryStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists {
		return false
	}
	delete(s.data, key)
	return true
}

// Keys returns every stored key, sorted.
func (s *InMemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
