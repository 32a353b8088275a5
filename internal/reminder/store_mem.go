package reminder

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// InMemoryStore is a thread-safe, non-durable Store.
type InMemoryStore struct {
	mu        sync.RWMutex
	reminders map[string]Reminder
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{reminders: make(map[string]Reminder)}
}

// Compile-time interface checks.
var (
	_ Store     = (*InMemoryStore)(nil)
	_ DueLister = (*InMemoryStore)(nil)
)

// SaveReminder implements Store.
func (s *InMemoryStore) SaveReminder(_ context.Context, r Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[r.ID] = r
	return nil
}

// GetReminder implements Store.
func (s *InMemoryStore) GetReminder(_ context.Context, id string) (Reminder, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reminders[id]
	return r, ok, nil
}

// ListActiveReminders implements Store.
func (s *InMemoryStore) ListActiveReminders(_ context.Context, owner string) ([]Reminder, error) {
	return s.filter(func(r Reminder) bool {
		return r.Active && (owner == "" || r.Owner == owner)
	}), nil
}

// ListReminders implements Store.
func (s *InMemoryStore) ListReminders(_ context.Context, owner string) ([]Reminder, error) {
	return s.filter(func(r Reminder) bool {
		return owner == "" || r.Owner == owner
	}), nil
}

// ListDueReminders implements DueLister.
func (s *InMemoryStore) ListDueReminders(_ context.Context, before time.Time) ([]Reminder, error) {
	due := s.filter(func(r Reminder) bool {
		return r.Active && !r.NextTrigger.After(before)
	})
	slices.SortStableFunc(due, func(a, b Reminder) int {
		return a.NextTrigger.Compare(b.NextTrigger)
	})
	return due, nil
}

// DeleteReminder implements Store.
func (s *InMemoryStore) DeleteReminder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reminders, id)
	return nil
}

// DeleteAllReminders implements Store.
func (s *InMemoryStore) DeleteAllReminders(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.reminders {
		if r.Owner == owner {
			delete(s.reminders, id)
		}
	}
	return nil
}

// Len returns the number of stored reminders.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reminders)
}

func (s *InMemoryStore) filter(keep func(Reminder) bool) []Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Reminder
	for _, r := range s.reminders {
		if keep(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Reminder) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
