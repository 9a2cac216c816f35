package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/facetophone/security-service/internal/domain"
)

type memoryEntry struct {
	sealed  []byte
	indexes map[string]string
}

// MemoryStore is a thread-safe in-memory Store. Secondary indexes give
// O(1) bucket lookups while full scans stay a linear pass over a small,
// bounded collection. It is the single-device default; the Redis backend
// serves the same interface for deployments that want the data off-heap.
type MemoryStore struct {
	codec *Codec

	mu          sync.RWMutex
	collections map[string]map[string]*memoryEntry
	order       map[string][]string
	// collection -> index name -> index value -> keys in insertion order
	indexes map[string]map[string]map[string][]string
}

// NewMemoryStore creates an empty store sealing with the given codec.
func NewMemoryStore(codec *Codec) *MemoryStore {
	return &MemoryStore{
		codec:       codec,
		collections: make(map[string]map[string]*memoryEntry),
		order:       make(map[string][]string),
		indexes:     make(map[string]map[string]map[string][]string),
	}
}

// Put seals and stores a record. Sealing happens before any state is
// touched, so a failed write leaves no partial record behind.
func (s *MemoryStore) Put(ctx context.Context, collection, key string, value any, indexes map[string]string) error {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", collection, err)
	}
	sealed, err := s.codec.Seal(plaintext)
	if err != nil {
		return &domain.EncryptionError{Collection: collection, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]*memoryEntry)
	}

	if old, exists := s.collections[collection][key]; exists {
		s.removeFromIndexes(collection, key, old.indexes)
	} else {
		s.order[collection] = append(s.order[collection], key)
	}

	s.collections[collection][key] = &memoryEntry{sealed: sealed, indexes: indexes}
	s.addToIndexes(collection, key, indexes)
	return nil
}

// Get opens the record at (collection, key) into out.
func (s *MemoryStore) Get(ctx context.Context, collection, key string, out any) error {
	s.mu.RLock()
	entry, ok := s.collections[collection][key]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}

	plaintext, err := s.codec.Open(entry.sealed)
	if err != nil {
		return &domain.DecryptionError{Collection: collection, Err: err}
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("unmarshal %s record: %w", collection, err)
	}
	return nil
}

// GetAllByIndex opens every record whose index matches value, in
// insertion order. Every match is decrypted before it is returned.
func (s *MemoryStore) GetAllByIndex(ctx context.Context, collection, index, value string) ([]json.RawMessage, error) {
	s.mu.RLock()
	keys := append([]string(nil), s.indexes[collection][index][value]...)
	s.mu.RUnlock()

	return s.openKeys(collection, keys)
}

// GetAll opens every record in the collection, in insertion order.
func (s *MemoryStore) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	s.mu.RLock()
	keys := append([]string(nil), s.order[collection]...)
	s.mu.RUnlock()

	return s.openKeys(collection, keys)
}

// Delete removes a record and its index entries.
func (s *MemoryStore) Delete(ctx context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.collections[collection][key]
	if !ok {
		return nil
	}
	s.removeFromIndexes(collection, key, entry.indexes)
	delete(s.collections[collection], key)

	keys := s.order[collection]
	for i, k := range keys {
		if k == key {
			s.order[collection] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) openKeys(collection string, keys []string) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(keys))
	for _, key := range keys {
		s.mu.RLock()
		entry, ok := s.collections[collection][key]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		plaintext, err := s.codec.Open(entry.sealed)
		if err != nil {
			return nil, &domain.DecryptionError{Collection: collection, Err: err}
		}
		out = append(out, json.RawMessage(plaintext))
	}
	return out, nil
}

func (s *MemoryStore) addToIndexes(collection, key string, indexes map[string]string) {
	for name, value := range indexes {
		if s.indexes[collection] == nil {
			s.indexes[collection] = make(map[string]map[string][]string)
		}
		if s.indexes[collection][name] == nil {
			s.indexes[collection][name] = make(map[string][]string)
		}
		s.indexes[collection][name][value] = append(s.indexes[collection][name][value], key)
	}
}

func (s *MemoryStore) removeFromIndexes(collection, key string, indexes map[string]string) {
	for name, value := range indexes {
		bucket := s.indexes[collection][name][value]
		for i, k := range bucket {
			if k == key {
				s.indexes[collection][name][value] = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
	}
}
