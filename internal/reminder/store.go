package reminder

import (
	"context"
	"time"
)

// Store persists reminders. It owns durability, not business rules.
// Implementations must be safe for concurrent use.
type Store interface {
	// SaveReminder inserts or replaces a reminder by ID.
	SaveReminder(ctx context.Context, r Reminder) error

	// GetReminder returns the reminder with the given ID, or false.
	GetReminder(ctx context.Context, id string) (Reminder, bool, error)

	// ListActiveReminders returns the owner's active reminders ordered by
	// creation time. An empty owner lists every owner's reminders.
	ListActiveReminders(ctx context.Context, owner string) ([]Reminder, error)

	// ListReminders returns all of the owner's reminders, including inactive ones.
	ListReminders(ctx context.Context, owner string) ([]Reminder, error)

	// DeleteReminder removes a reminder. Deleting a missing ID is not an error.
	DeleteReminder(ctx context.Context, id string) error

	// DeleteAllReminders removes every reminder belonging to owner.
	DeleteAllReminders(ctx context.Context, owner string) error
}

// DueLister is implemented by stores that can list active reminders due
// at or before a point in time, soonest first. Recover fires those
// before arming the rest.
type DueLister interface {
	ListDueReminders(ctx context.Context, before time.Time) ([]Reminder, error)
}
