package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// InMemoryStore is a thread-safe, non-durable Store.
type InMemoryStore struct {
	mu       sync.RWMutex
	memories []Memory
	index    map[string]int // id → position in memories
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{index: make(map[string]int)}
}

// Compile-time interface check.
var _ Store = (*InMemoryStore)(nil)

// SaveMemory implements Store.
func (s *InMemoryStore) SaveMemory(_ context.Context, m Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Embedding = slices.Clone(m.Embedding)
	if i, exists := s.index[m.ID]; exists {
		s.memories[i] = m
		return nil
	}
	s.index[m.ID] = len(s.memories)
	s.memories = append(s.memories, m)
	return nil
}

// ListMemories implements Store.
func (s *InMemoryStore) ListMemories(_ context.Context, owner string) ([]Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Memory
	for _, m := range s.memories {
		if m.Owner == owner {
			out = append(out, clone(m))
		}
	}
	slices.SortStableFunc(out, func(a, b Memory) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// DeleteMemory implements Store.
func (s *InMemoryStore) DeleteMemory(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id), nil
}

// DeleteAllMemories implements Store.
func (s *InMemoryStore) DeleteAllMemories(_ context.Context, owner string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for _, m := range s.memories {
		if m.Owner == owner {
			ids = append(ids, m.ID)
		}
	}
	for _, id := range ids {
		s.deleteLocked(id)
	}
	return len(ids), nil
}

// ListUnembedded implements Store.
func (s *InMemoryStore) ListUnembedded(_ context.Context, limit int) ([]Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Memory
	for _, m := range s.memories {
		if limit > 0 && len(out) >= limit {
			break
		}
		if len(m.Embedding) == 0 {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

// Len returns the number of stored memories.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memories)
}

// deleteLocked swap-deletes id. Callers hold s.mu.
func (s *InMemoryStore) deleteLocked(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	last := len(s.memories) - 1
	if i != last {
		s.memories[i] = s.memories[last]
		s.index[s.memories[i].ID] = i
	}
	s.memories = s.memories[:last]
	delete(s.index, id)
	return true
}

func clone(m Memory) Memory {
	m.Embedding = slices.Clone(m.Embedding)
	m.Metadata = maps.Clone(m.Metadata)
	return m
}
