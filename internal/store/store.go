// Package store groups the reminder and memory persistence capabilities
// and provides a null-object implementation for environments without
// durable storage.
package store

import (
	"context"

	"github.com/flemzord/mnemo/internal/memory"
	"github.com/flemzord/mnemo/internal/reminder"
)

// Service names under which store modules publish themselves.
const (
	ReminderService = "store.reminders"
	MemoryService   = "store.memories"
)

// Store is the full persistence capability.
type Store interface {
	reminder.Store
	memory.Store
}

// Nop accepts every write and stores nothing. Reads return empty results.
type Nop struct{}

// Compile-time interface check.
var _ Store = Nop{}

// SaveReminder implements reminder.Store.
func (Nop) SaveReminder(context.Context, reminder.Reminder) error { return nil }

// GetReminder implements reminder.Store.
func (Nop) GetReminder(context.Context, string) (reminder.Reminder, bool, error) {
	return reminder.Reminder{}, false, nil
}

// ListActiveReminders implements reminder.Store.
func (Nop) ListActiveReminders(context.Context, string) ([]reminder.Reminder, error) {
	return nil, nil
}

// ListReminders implements reminder.Store.
func (Nop) ListReminders(context.Context, string) ([]reminder.Reminder, error) { return nil, nil }

// DeleteReminder implements reminder.Store.
func (Nop) DeleteReminder(context.Context, string) error { return nil }

// DeleteAllReminders implements reminder.Store.
func (Nop) DeleteAllReminders(context.Context, string) error { return nil }

// SaveMemory implements memory.Store.
func (Nop) SaveMemory(context.Context, memory.Memory) error { return nil }

// ListMemories implements memory.Store.
func (Nop) ListMemories(context.Context, string) ([]memory.Memory, error) { return nil, nil }

// DeleteMemory implements memory.Store.
func (Nop) DeleteMemory(context.Context, string) (bool, error) { return false, nil }

// DeleteAllMemories implements memory.Store.
func (Nop) DeleteAllMemories(context.Context, string) (int, error) { return 0, nil }

// ListUnembedded implements memory.Store.
func (Nop) ListUnembedded(context.Context, int) ([]memory.Memory, error) { return nil, nil }

// Composite joins separate reminder and memory stores into one Store.
type Composite struct {
	Reminders reminder.Store
	Memories  memory.Store
}

// Compile-time interface check.
var _ Store = Composite{}

// InMemory returns a non-durable Store.
func InMemory() Composite {
	return Composite{
		Reminders: reminder.NewInMemoryStore(),
		Memories:  memory.NewInMemoryStore(),
	}
}

// SaveReminder implements reminder.Store.
func (c Composite) SaveReminder(ctx context.Context, r reminder.Reminder) error {
	return c.Reminders.SaveReminder(ctx, r)
}

// GetReminder implements reminder.Store.
func (c Composite) GetReminder(ctx context.Context, id string) (reminder.Reminder, bool, error) {
	return c.Reminders.GetReminder(ctx, id)
}

// ListActiveReminders implements reminder.Store.
func (c Composite) ListActiveReminders(ctx context.Context, owner string) ([]reminder.Reminder, error) {
	return c.Reminders.ListActiveReminders(ctx, owner)
}

// ListReminders implements reminder.Store.
func (c Composite) ListReminders(ctx context.Context, owner string) ([]reminder.Reminder, error) {
	return c.Reminders.ListReminders(ctx, owner)
}

// DeleteReminder implements reminder.Store.
func (c Composite) DeleteReminder(ctx context.Context, id string) error {
	return c.Reminders.DeleteReminder(ctx, id)
}

// DeleteAllReminders implements reminder.Store.
func (c Composite) DeleteAllReminders(ctx context.Context, owner string) error {
	return c.Reminders.DeleteAllReminders(ctx, owner)
}

// SaveMemory implements memory.Store.
func (c Composite) SaveMemory(ctx context.Context, m memory.Memory) error {
	return c.Memories.SaveMemory(ctx, m)
}

// ListMemories implements memory.Store.
func (c Composite) ListMemories(ctx context.Context, owner string) ([]memory.Memory, error) {
	return c.Memories.ListMemories(ctx, owner)
}

// DeleteMemory implements memory.Store.
func (c Composite) DeleteMemory(ctx context.Context, id string) (bool, error) {
	return c.Memories.DeleteMemory(ctx, id)
}

// DeleteAllMemories implements memory.Store.
func (c Composite) DeleteAllMemories(ctx context.Context, owner string) (int, error) {
	return c.Memories.DeleteAllMemories(ctx, owner)
}

// ListUnembedded implements memory.Store.
func (c Composite) ListUnembedded(ctx context.Context, limit int) ([]memory.Memory, error) {
	return c.Memories.ListUnembedded(ctx, limit)
}
