package cron

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/mnemo/internal/reminder"
)

// Default job schedules.
const (
	DefaultSweepSchedule    = "* * * * *"
	DefaultBackfillSchedule = "*/15 * * * *"
)

// DefaultBackfillBatch bounds how many memories one backfill run embeds.
const DefaultBackfillBatch = 100

// ReminderRecoverer is the subset of reminder.Engine needed by the sweep.
type ReminderRecoverer interface {
	Recover(ctx context.Context) (reminder.RecoverReport, error)
}

// ReminderSweepJob re-arms persisted reminders and fires overdue ones.
// It picks up reminders written by other processes and repairs arms lost
// to clock drift.
type ReminderSweepJob struct {
	Engine       ReminderRecoverer
	Logger       *slog.Logger
	ScheduleExpr string // empty = DefaultSweepSchedule
}

// Compile-time interface check.
var _ Job = (*ReminderSweepJob)(nil)

// Name implements Job.
func (j *ReminderSweepJob) Name() string { return "reminder_sweep" }

// Schedule implements Job.
func (j *ReminderSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultSweepSchedule
}

// Run implements Job.
func (j *ReminderSweepJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: reminder sweep cancelled: %w", ctx.Err())
	}
	report, err := j.Engine.Recover(ctx)
	if report.Fired > 0 {
		j.Logger.Info("cron: fired overdue reminders", "count", report.Fired, "armed", report.Armed)
	}
	if err != nil {
		return fmt.Errorf("cron: reminder sweep: %w", err)
	}
	return nil
}

// Backfiller embeds memories that were stored without a vector.
type Backfiller interface {
	Backfill(ctx context.Context, limit int) (int, error)
}

// EmbeddingBackfillJob periodically attaches embeddings to memories that
// lack one.
type EmbeddingBackfillJob struct {
	Memories     Backfiller
	Logger       *slog.Logger
	Batch        int    // 0 = DefaultBackfillBatch
	ScheduleExpr string // empty = DefaultBackfillSchedule
}

// Compile-time interface check.
var _ Job = (*EmbeddingBackfillJob)(nil)

// Name implements Job.
func (j *EmbeddingBackfillJob) Name() string { return "embedding_backfill" }

// Schedule implements Job.
func (j *EmbeddingBackfillJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultBackfillSchedule
}

// Run implements Job.
func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: embedding backfill cancelled: %w", ctx.Err())
	}
	batch := j.Batch
	if batch <= 0 {
		batch = DefaultBackfillBatch
	}
	n, err := j.Memories.Backfill(ctx, batch)
	if n > 0 {
		j.Logger.Info("cron: backfilled embeddings", "count", n)
	}
	if err != nil {
		return fmt.Errorf("cron: embedding backfill: %w", err)
	}
	return nil
}
