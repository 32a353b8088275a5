package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/mnemo/internal/command"
)

// DefaultSnooze is used when Snooze is called with a non-positive duration.
const DefaultSnooze = 10 * time.Minute

// Clock arms one wake-up per reminder ID. Arming an ID that is already
// armed replaces the previous arm. Fires are delivered back through
// Engine.HandleFire.
type Clock interface {
	Arm(id string, at time.Time, payload map[string]string)
	Disarm(id string)
}

// Config holds the engine collaborators. Store and Clock are required.
type Config struct {
	Store    Store
	Clock    Clock
	Notifier Notifier
	Speaker  Speaker
	Observer Observer
	Logger   *slog.Logger

	// Snooze is the default snooze duration. Zero selects DefaultSnooze.
	Snooze time.Duration

	// Now overrides the time source. Defaults to time.Now.
	Now func() time.Time
}

// Engine owns the reminder state machine. It is the only writer of
// NextTrigger, Active and TriggeredAt. Operations on one reminder ID are
// serialized; different IDs proceed concurrently. Create and CancelAll
// are also serialized per owner, so replace-by-message and bulk
// cancellation see a stable set of rows.
type Engine struct {
	store    Store
	clock    Clock
	notifier Notifier
	speaker  Speaker
	observer Observer
	logger   *slog.Logger
	snooze   time.Duration
	now      func() time.Time
	parser   *command.Parser
	locks    *keyedMutex
	owners   *keyedMutex
	tracer   trace.Tracer
	newID    func() string
}

// NewEngine validates cfg and builds an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("reminder: store is required")
	}
	if cfg.Clock == nil {
		return nil, errors.New("reminder: clock is required")
	}

	e := &Engine{
		store:    cfg.Store,
		clock:    cfg.Clock,
		notifier: cfg.Notifier,
		speaker:  cfg.Speaker,
		observer: cfg.Observer,
		logger:   cfg.Logger,
		snooze:   cfg.Snooze,
		now:      cfg.Now,
		locks:    newKeyedMutex(),
		owners:   newKeyedMutex(),
		tracer:   otel.Tracer("github.com/flemzord/mnemo/internal/reminder"),
		newID:    uuid.NewString,
	}
	if e.notifier == nil {
		e.notifier = nopSinks{}
	}
	if e.speaker == nil {
		e.speaker = nopSinks{}
	}
	if e.observer == nil {
		e.observer = nopSinks{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.snooze <= 0 {
		e.snooze = DefaultSnooze
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.parser = command.NewParser(e.now)
	return e, nil
}

// Create persists and arms a new reminder. An active reminder of the
// same owner with the same message is cancelled first.
func (e *Engine) Create(ctx context.Context, owner, message string, kind Kind, p Params) (Reminder, error) {
	message = strings.TrimSpace(message)
	if owner == "" {
		return Reminder{}, fmt.Errorf("%w: owner is required", ErrInvalidConfiguration)
	}
	if message == "" {
		return Reminder{}, fmt.Errorf("%w: message is required", ErrInvalidConfiguration)
	}

	now := e.now()
	r := Reminder{
		ID:        e.newID(),
		Owner:     owner,
		Message:   message,
		Kind:      kind,
		Active:    true,
		CreatedAt: now,
	}

	switch kind {
	case KindRecurring:
		if p.Interval <= 0 {
			return Reminder{}, fmt.Errorf("%w: recurring reminder needs a positive interval", ErrInvalidConfiguration)
		}
		r.Interval = p.Interval
		r.NextTrigger = now.Add(p.Interval)
	case KindOneTime:
		if p.At.IsZero() {
			return Reminder{}, fmt.Errorf("%w: one-time reminder needs a scheduled time", ErrInvalidConfiguration)
		}
		r.ScheduledAt = p.At
		r.NextTrigger = p.At
	default:
		return Reminder{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidConfiguration, kind)
	}

	unlockOwner := e.owners.Lock(owner)
	defer unlockOwner()

	if err := e.replaceByMessage(ctx, owner, message); err != nil {
		return Reminder{}, err
	}

	unlock := e.locks.Lock(r.ID)
	defer unlock()

	if err := e.store.SaveReminder(ctx, r); err != nil {
		return Reminder{}, fmt.Errorf("reminder: save %s: %w", r.ID, err)
	}
	e.observer.ReminderEvent(EventCreated, r.Kind)
	e.logger.Info("reminder created",
		"reminder_id", r.ID,
		"owner", owner,
		"kind", string(kind),
		"next_trigger", r.NextTrigger,
	)

	return e.armLocked(ctx, r)
}

// CreateFromText parses a natural-language request and creates the
// reminder it describes.
func (e *Engine) CreateFromText(ctx context.Context, owner, text string) (Reminder, error) {
	req, ok := e.parser.ParseReminder(text)
	if !ok {
		return Reminder{}, fmt.Errorf("%w: unclear reminder request %q", ErrInvalidConfiguration, text)
	}
	if req.Kind == command.Recurring {
		return e.Create(ctx, owner, req.Task, KindRecurring, Params{
			Interval: time.Duration(req.IntervalMinutes) * time.Minute,
		})
	}
	return e.Create(ctx, owner, req.Task, KindOneTime, Params{At: req.ScheduledAt})
}

func (e *Engine) replaceByMessage(ctx context.Context, owner, message string) error {
	active, err := e.store.ListActiveReminders(ctx, owner)
	if err != nil {
		return fmt.Errorf("reminder: list active for %s: %w", owner, err)
	}
	for _, r := range active {
		if !strings.EqualFold(strings.TrimSpace(r.Message), message) {
			continue
		}
		e.logger.Info("replacing reminder with same message", "reminder_id", r.ID, "owner", owner)
		if _, err := e.Cancel(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// HandleFire consumes a clock fire for id armed at the given time. Fires
// whose armed time no longer matches the persisted next trigger are stale
// and dropped.
func (e *Engine) HandleFire(ctx context.Context, id string, armedAt time.Time) {
	unlock := e.locks.Lock(id)
	defer unlock()

	if _, _, err := e.triggerLocked(ctx, id, armedAt); err != nil {
		e.logger.Error("reminder fire failed", "reminder_id", id, "error", err)
	}
}

// Trigger fires a reminder now, regardless of its schedule. It reports
// whether the reminder fired; unknown and inactive reminders are no-ops.
func (e *Engine) Trigger(ctx context.Context, id string) (Reminder, bool, error) {
	unlock := e.locks.Lock(id)
	defer unlock()
	return e.triggerLocked(ctx, id, time.Time{})
}

// triggerLocked runs one trigger, reschedule, persist unit. A zero
// armedAt skips the stale-fire check. Callers hold the lock for id.
func (e *Engine) triggerLocked(ctx context.Context, id string, armedAt time.Time) (Reminder, bool, error) {
	ctx, span := e.tracer.Start(ctx, "reminder.Trigger",
		trace.WithAttributes(attribute.String("reminder.id", id)),
	)
	defer span.End()

	r, ok, err := e.store.GetReminder(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Reminder{}, false, fmt.Errorf("reminder: load %s: %w", id, err)
	}
	if !ok || !r.Active {
		return r, false, nil
	}
	if !armedAt.IsZero() && !armedAt.Equal(r.NextTrigger) {
		e.observer.ReminderEvent(EventStale, r.Kind)
		e.logger.Debug("dropping stale fire",
			"reminder_id", id,
			"armed_at", armedAt,
			"next_trigger", r.NextTrigger,
		)
		return r, false, nil
	}

	now := e.now()
	n := Notification{
		ReminderID: r.ID,
		Owner:      r.Owner,
		Message:    r.Message,
		Kind:       r.Kind,
		FiredAt:    now,
		Actions:    DefaultActions,
	}

	if r.TriggeredAt.IsZero() {
		r.TriggeredAt = now
	}
	switch r.Kind {
	case KindRecurring:
		next, skipped := advance(r.NextTrigger, r.Interval, now)
		if skipped > 0 {
			e.logger.Warn("skipping missed recurring fires",
				"reminder_id", id,
				"skipped", skipped,
			)
		}
		r.NextTrigger = next
		n.NextTrigger = next
	default:
		r.Active = false
	}

	e.notifier.Notify(ctx, n)
	e.speaker.Speak(ctx, r.Owner, r.Message)

	if err := e.store.SaveReminder(ctx, r); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return r, true, fmt.Errorf("reminder: save %s after trigger: %w", id, err)
	}
	e.observer.ReminderEvent(EventFired, r.Kind)
	e.logger.Info("reminder fired",
		"reminder_id", id,
		"owner", r.Owner,
		"kind", string(r.Kind),
		"active", r.Active,
	)

	if r.Active {
		e.clock.Arm(r.ID, r.NextTrigger, payload(r))
	}
	span.SetAttributes(attribute.Bool("reminder.active", r.Active))
	return r, true, nil
}

// advance moves next forward by one interval, then by as many more
// intervals as needed to land after now. It returns the number of
// occurrences skipped by the catch-up.
func advance(next time.Time, interval time.Duration, now time.Time) (time.Time, int) {
	next = next.Add(interval)
	if next.After(now) {
		return next, 0
	}
	behind := now.Sub(next)/interval + 1
	return next.Add(behind * interval), int(behind)
}

// armLocked arms r, or triggers it at once when its next trigger is not
// in the future. Callers hold the lock for r.ID.
func (e *Engine) armLocked(ctx context.Context, r Reminder) (Reminder, error) {
	if r.NextTrigger.After(e.now()) {
		e.clock.Arm(r.ID, r.NextTrigger, payload(r))
		return r, nil
	}

	e.logger.Info("reminder already due, triggering now",
		"reminder_id", r.ID,
		"next_trigger", r.NextTrigger,
	)
	fired, _, err := e.triggerLocked(ctx, r.ID, time.Time{})
	if err != nil {
		return r, err
	}
	return fired, nil
}

// Snooze pushes the next trigger to now plus minutes. A non-positive
// value selects the default snooze. Kind and TriggeredAt never change,
// and neither does Active for a reminder that is still scheduled. The
// exception is a fired one-time reminder: it is terminal otherwise, but
// snoozing it from its notification sets Active again and rearms it.
func (e *Engine) Snooze(ctx context.Context, id string, minutes int) (Reminder, bool, error) {
	d := time.Duration(minutes) * time.Minute
	if d <= 0 {
		d = e.snooze
	}

	unlock := e.locks.Lock(id)
	defer unlock()

	r, ok, err := e.store.GetReminder(ctx, id)
	if err != nil {
		return Reminder{}, false, fmt.Errorf("reminder: load %s: %w", id, err)
	}
	if !ok {
		return Reminder{}, false, nil
	}

	r.NextTrigger = e.now().Add(d)
	if !r.Active && r.Kind == KindOneTime {
		r.Active = true
	}
	if err := e.store.SaveReminder(ctx, r); err != nil {
		return r, true, fmt.Errorf("reminder: save %s after snooze: %w", id, err)
	}
	e.clock.Arm(r.ID, r.NextTrigger, payload(r))
	e.observer.ReminderEvent(EventSnoozed, r.Kind)
	e.logger.Info("reminder snoozed", "reminder_id", id, "next_trigger", r.NextTrigger)
	return r, true, nil
}

// Cancel disarms and deletes a reminder. Once it returns, the reminder
// can no longer fire. It reports whether the reminder existed.
func (e *Engine) Cancel(ctx context.Context, id string) (bool, error) {
	unlock := e.locks.Lock(id)
	defer unlock()
	return e.cancelLocked(ctx, id)
}

func (e *Engine) cancelLocked(ctx context.Context, id string) (bool, error) {
	e.clock.Disarm(id)

	r, ok, err := e.store.GetReminder(ctx, id)
	if err != nil {
		return false, fmt.Errorf("reminder: load %s: %w", id, err)
	}
	if err := e.store.DeleteReminder(ctx, id); err != nil {
		return ok, fmt.Errorf("reminder: delete %s: %w", id, err)
	}
	if ok {
		e.observer.ReminderEvent(EventCancelled, r.Kind)
		e.logger.Info("reminder cancelled", "reminder_id", id, "owner", r.Owner)
	}
	return ok, nil
}

// CancelByMessage cancels the owner's active reminder that best matches
// phrase. It returns the cancelled reminder and whether one matched.
func (e *Engine) CancelByMessage(ctx context.Context, owner, phrase string) (Reminder, bool, error) {
	active, err := e.store.ListActiveReminders(ctx, owner)
	if err != nil {
		return Reminder{}, false, fmt.Errorf("reminder: list active for %s: %w", owner, err)
	}
	i := bestMatch(phrase, active)
	if i < 0 {
		return Reminder{}, false, nil
	}
	ok, err := e.Cancel(ctx, active[i].ID)
	return active[i], ok, err
}

// CancelAll disarms and deletes every reminder of owner, returning how
// many were removed. Creates for the same owner wait until it returns,
// so no row reaches DeleteAllReminders without having been disarmed.
func (e *Engine) CancelAll(ctx context.Context, owner string) (int, error) {
	unlockOwner := e.owners.Lock(owner)
	defer unlockOwner()

	all, err := e.store.ListReminders(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("reminder: list for %s: %w", owner, err)
	}

	n := 0
	for _, r := range all {
		ok, err := e.Cancel(ctx, r.ID)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	if err := e.store.DeleteAllReminders(ctx, owner); err != nil {
		return n, fmt.Errorf("reminder: delete all for %s: %w", owner, err)
	}
	e.logger.Info("all reminders cancelled", "owner", owner, "count", n)
	return n, nil
}

// CancelResult describes what CancelFromText did.
type CancelResult struct {
	All      bool     `json:"all"`
	Count    int      `json:"count"`
	Reminder Reminder `json:"reminder,omitzero"`
}

// CancelFromText parses a cancel request and dispatches it. It reports
// false when the text is not a cancel request or nothing matched.
func (e *Engine) CancelFromText(ctx context.Context, owner, text string) (CancelResult, bool, error) {
	phrase, ok := e.parser.ParseCancel(text)
	if !ok {
		return CancelResult{}, false, nil
	}
	if phrase == command.CancelAll {
		n, err := e.CancelAll(ctx, owner)
		return CancelResult{All: true, Count: n}, n > 0, err
	}
	r, ok, err := e.CancelByMessage(ctx, owner, phrase)
	if !ok || err != nil {
		return CancelResult{}, ok, err
	}
	return CancelResult{Count: 1, Reminder: r}, true, nil
}

// RecoverReport summarizes a Recover pass.
type RecoverReport struct {
	Armed int
	Fired int
}

// Recover re-arms every persisted active reminder and triggers the ones
// already due. Re-arming replaces existing arms, so it is safe to call
// repeatedly. When the store implements DueLister, overdue reminders fire
// first, soonest trigger first.
func (e *Engine) Recover(ctx context.Context) (RecoverReport, error) {
	var due []Reminder
	if dl, ok := e.store.(DueLister); ok {
		var err error
		if due, err = dl.ListDueReminders(ctx, e.now()); err != nil {
			return RecoverReport{}, fmt.Errorf("reminder: recover: %w", err)
		}
	}
	active, err := e.store.ListActiveReminders(ctx, "")
	if err != nil {
		return RecoverReport{}, fmt.Errorf("reminder: recover: %w", err)
	}

	var report RecoverReport
	var errs []error
	seen := make(map[string]struct{}, len(active))
	for _, listed := range slices.Concat(due, active) {
		if _, dup := seen[listed.ID]; dup {
			continue
		}
		seen[listed.ID] = struct{}{}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		fired, err := e.recoverOne(ctx, listed.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if fired {
			report.Fired++
		} else {
			report.Armed++
		}
	}
	return report, errors.Join(errs...)
}

func (e *Engine) recoverOne(ctx context.Context, id string) (bool, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	r, ok, err := e.store.GetReminder(ctx, id)
	if err != nil {
		return false, fmt.Errorf("reminder: load %s: %w", id, err)
	}
	if !ok || !r.Active {
		return false, nil
	}
	if r.NextTrigger.After(e.now()) {
		e.clock.Arm(r.ID, r.NextTrigger, payload(r))
		return false, nil
	}
	_, fired, err := e.triggerLocked(ctx, id, time.Time{})
	return fired, err
}

// List returns the owner's reminders ordered by creation time.
func (e *Engine) List(ctx context.Context, owner string, includeInactive bool) ([]Reminder, error) {
	var (
		out []Reminder
		err error
	)
	if includeInactive {
		out, err = e.store.ListReminders(ctx, owner)
	} else {
		out, err = e.store.ListActiveReminders(ctx, owner)
	}
	if err != nil {
		return nil, fmt.Errorf("reminder: list for %s: %w", owner, err)
	}
	return out, nil
}

// Get returns one reminder by ID.
func (e *Engine) Get(ctx context.Context, id string) (Reminder, bool, error) {
	return e.store.GetReminder(ctx, id)
}

func payload(r Reminder) map[string]string {
	return map[string]string{
		"owner":   r.Owner,
		"kind":    string(r.Kind),
		"message": r.Message,
	}
}
