package notify

import (
	"context"
	"log/slog"

	"github.com/flemzord/mnemo/internal/reminder"
)

// Sink is a notification and voice target.
type Sink interface {
	reminder.Notifier
	reminder.Speaker
}

// LogSink writes notifications to a logger. It is the fallback target
// when no client is connected.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Notify implements reminder.Notifier.
func (s LogSink) Notify(ctx context.Context, n reminder.Notification) {
	attrs := []any{
		"reminder_id", n.ReminderID,
		"owner", n.Owner,
		"kind", n.Kind,
		"message", n.Message,
	}
	if !n.NextTrigger.IsZero() {
		attrs = append(attrs, "next_trigger", n.NextTrigger)
	}
	s.logger().InfoContext(ctx, "reminder fired", attrs...)
}

// Speak implements reminder.Speaker.
func (s LogSink) Speak(ctx context.Context, owner, text string) {
	s.logger().DebugContext(ctx, "speak", "owner", owner, "text", text)
}

// Multi returns a Sink delivering to every sink in order. Nil sinks
// are skipped.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multi []Sink

func (m multi) Notify(ctx context.Context, n reminder.Notification) {
	for _, s := range m {
		s.Notify(ctx, n)
	}
}

func (m multi) Speak(ctx context.Context, owner, text string) {
	for _, s := range m {
		s.Speak(ctx, owner, text)
	}
}
