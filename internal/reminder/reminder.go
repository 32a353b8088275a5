// Package reminder owns the reminder lifecycle: creation, triggering,
// rescheduling, snoozing and cancellation, on top of a persistence Store
// and a Clock that delivers fires asynchronously.
package reminder

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfiguration indicates a reminder cannot be created because
// its time parameters are missing or invalid. It is never retried.
var ErrInvalidConfiguration = errors.New("reminder: invalid configuration")

// Kind distinguishes recurring from one-time reminders.
type Kind string

// Reminder kinds.
const (
	KindRecurring Kind = "recurring"
	KindOneTime   Kind = "one_time"
)

// ParseKind converts a stored label back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindRecurring, KindOneTime:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("reminder: unknown kind %q", s)
	}
}

// Reminder is a persisted reminder. NextTrigger is the single source of
// truth for when it fires next; Interval and ScheduledAt are kept only to
// reconstruct it. Zero times mean "unset".
type Reminder struct {
	ID          string        `json:"id"`
	Owner       string        `json:"owner"`
	Message     string        `json:"message"`
	Kind        Kind          `json:"kind"`
	Interval    time.Duration `json:"interval,omitempty"`
	ScheduledAt time.Time     `json:"scheduled_at,omitzero"`
	NextTrigger time.Time     `json:"next_trigger"`
	Active      bool          `json:"active"`
	TriggeredAt time.Time     `json:"triggered_at,omitzero"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Params carries the kind-specific timing of a new reminder: Interval
// for recurring reminders, At for one-time ones.
type Params struct {
	Interval time.Duration
	At       time.Time
}
