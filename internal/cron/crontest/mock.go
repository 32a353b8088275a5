// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/mnemo/internal/cron"
	"github.com/flemzord/mnemo/internal/reminder"
)

// MockJob is a configurable test double for cron.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu       sync.Mutex
	calls    int
	lastCall time.Time
}

// Compile-time interface check.
var _ cron.Job = (*MockJob)(nil)

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements cron.Job and increments the call counter.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.lastCall = time.Now()
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastCall returns the time of the last Run call.
func (m *MockJob) LastCall() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCall
}

// MockRecoverer is a test double for cron.ReminderRecoverer.
type MockRecoverer struct {
	RecoverFunc func(ctx context.Context) (reminder.RecoverReport, error)
	Calls       atomic.Int32
}

// Recover implements cron.ReminderRecoverer.
func (m *MockRecoverer) Recover(ctx context.Context) (reminder.RecoverReport, error) {
	m.Calls.Add(1)
	if m.RecoverFunc != nil {
		return m.RecoverFunc(ctx)
	}
	return reminder.RecoverReport{}, nil
}

// MockBackfiller is a test double for cron.Backfiller.
type MockBackfiller struct {
	BackfillFunc func(ctx context.Context, limit int) (int, error)
	Calls        atomic.Int32
}

// Backfill implements cron.Backfiller.
func (m *MockBackfiller) Backfill(ctx context.Context, limit int) (int, error) {
	m.Calls.Add(1)
	if m.BackfillFunc != nil {
		return m.BackfillFunc(ctx, limit)
	}
	return 0, nil
}
