// Package notifytest provides a recording notification sink for tests.
package notifytest

import (
	"context"
	"sync"

	"github.com/flemzord/mnemo/internal/reminder"
)

// Speech is one recorded Speak call.
type Speech struct {
	Owner string
	Text  string
}

// Recorder captures every notification and speech it receives.
type Recorder struct {
	mu            sync.Mutex
	notifications []reminder.Notification
	speeches      []Speech
}

// Notify implements reminder.Notifier.
func (r *Recorder) Notify(_ context.Context, n reminder.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// Speak implements reminder.Speaker.
func (r *Recorder) Speak(_ context.Context, owner, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speeches = append(r.speeches, Speech{Owner: owner, Text: text})
}

// Notifications returns a copy of the recorded notifications.
func (r *Recorder) Notifications() []reminder.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]reminder.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// Speeches returns a copy of the recorded speeches.
func (r *Recorder) Speeches() []Speech {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Speech, len(r.speeches))
	copy(out, r.speeches)
	return out
}

// Reset clears everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = nil
	r.speeches = nil
}
