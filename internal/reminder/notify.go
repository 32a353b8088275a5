package reminder

import (
	"context"
	"time"
)

// Notification describes a fired reminder handed to the notification sink.
type Notification struct {
	ReminderID  string    `json:"reminder_id"`
	Owner       string    `json:"owner"`
	Message     string    `json:"message"`
	Kind        Kind      `json:"kind"`
	FiredAt     time.Time `json:"fired_at"`
	NextTrigger time.Time `json:"next_trigger,omitzero"`
	Actions     []Action  `json:"actions"`
}

// Notifier renders a fired reminder to the user. Delivery is fire and
// forget: implementations must not block the engine for long and report
// their own failures.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Speaker voices a fired reminder. Same delivery contract as Notifier.
type Speaker interface {
	Speak(ctx context.Context, owner, text string)
}

// Observer receives lifecycle events, typically for metrics.
type Observer interface {
	ReminderEvent(event string, kind Kind)
}

// Lifecycle event names passed to Observer.
const (
	EventCreated   = "created"
	EventFired     = "fired"
	EventSnoozed   = "snoozed"
	EventCancelled = "cancelled"
	EventStale     = "stale_fire"
)

type nopSinks struct{}

func (nopSinks) Notify(context.Context, Notification)  {}
func (nopSinks) Speak(context.Context, string, string) {}
func (nopSinks) ReminderEvent(string, Kind)            {}
