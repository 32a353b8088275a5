// Package cron schedules background work: periodic jobs such as the
// reminder sweep and embedding backfill, and one-shot reminder alarms.
package cron

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier, used in logs and for dedup.
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "*/15 * * * *").
	Schedule() string

	// Run executes the job. Implementations should honor ctx cancellation.
	Run(ctx context.Context) error
}

// standardParser accepts the classic 5-field expressions plus descriptors
// such as "@hourly".
var standardParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule reports whether expr is an accepted cron expression.
func ValidateSchedule(expr string) error {
	if _, err := standardParser.Parse(expr); err != nil {
		return fmt.Errorf("cron: invalid schedule %q: %w", expr, err)
	}
	return nil
}
