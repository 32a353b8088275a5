package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type arm struct {
	at      time.Time
	payload map[string]string
}

type fakeClock struct {
	mu    sync.Mutex
	arms  map[string]arm
	calls int
}

func newFakeClock() *fakeClock { return &fakeClock{arms: make(map[string]arm)} }

func (c *fakeClock) Arm(id string, at time.Time, payload map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arms[id] = arm{at: at, payload: payload}
	c.calls++
}

func (c *fakeClock) Disarm(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.arms, id)
}

func (c *fakeClock) armed(id string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.arms[id]
	return a.at, ok
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.arms)
}

type recordingSink struct {
	mu     sync.Mutex
	notes  []Notification
	spoken []string
	events []string
}

func (s *recordingSink) Notify(_ context.Context, n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
}

func (s *recordingSink) Speak(_ context.Context, _, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
}

func (s *recordingSink) ReminderEvent(event string, _ Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) notified() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

type testEnv struct {
	engine *Engine
	store  *InMemoryStore
	clock  *fakeClock
	sink   *recordingSink
	now    *time.Time
}

func (env *testEnv) advance(d time.Duration) { *env.now = env.now.Add(d) }

func newTestEngine(t *testing.T) *testEnv {
	t.Helper()

	now := baseTime
	env := &testEnv{
		store: NewInMemoryStore(),
		clock: newFakeClock(),
		sink:  &recordingSink{},
		now:   &now,
	}
	seq := 0
	e, err := NewEngine(Config{
		Store:    env.store,
		Clock:    env.clock,
		Notifier: env.sink,
		Speaker:  env.sink,
		Observer: env.sink,
		Now:      func() time.Time { return *env.now },
	})
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	e.newID = func() string {
		seq++
		return fmt.Sprintf("r%d", seq)
	}
	env.engine = e
	return env
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine(Config{Clock: newFakeClock()}); err == nil {
		t.Error("expected error without store")
	}
	if _, err := NewEngine(Config{Store: NewInMemoryStore()}); err == nil {
		t.Error("expected error without clock")
	}
}

func TestEngine_CreateRecurring(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	r, err := env.engine.Create(ctx, "alice", "Drink water", KindRecurring, Params{Interval: 30 * time.Minute})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !r.Active {
		t.Error("new reminder should be active")
	}
	want := baseTime.Add(30 * time.Minute)
	if !r.NextTrigger.Equal(want) {
		t.Errorf("NextTrigger = %v, want %v", r.NextTrigger, want)
	}
	at, ok := env.clock.armed(r.ID)
	if !ok || !at.Equal(want) {
		t.Errorf("armed = %v, %v, want %v, true", at, ok, want)
	}
	stored, ok, _ := env.store.GetReminder(ctx, r.ID)
	if !ok || stored.Interval != 30*time.Minute {
		t.Errorf("stored = %+v, %v", stored, ok)
	}
}

func TestEngine_CreateInvalid(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		owner string
		msg   string
		kind  Kind
		p     Params
	}{
		{"recurring without interval", "alice", "x", KindRecurring, Params{}},
		{"recurring negative interval", "alice", "x", KindRecurring, Params{Interval: -time.Minute}},
		{"one-time without time", "alice", "x", KindOneTime, Params{Interval: time.Minute}},
		{"unknown kind", "alice", "x", Kind("weekly"), Params{Interval: time.Minute}},
		{"empty message", "alice", "  ", KindRecurring, Params{Interval: time.Minute}},
		{"empty owner", "", "x", KindRecurring, Params{Interval: time.Minute}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.Create(ctx, tt.owner, tt.msg, tt.kind, tt.p)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("Create() error = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
	if env.store.Len() != 0 {
		t.Errorf("store has %d reminders, want 0", env.store.Len())
	}
}

func TestEngine_CreateReplacesSameMessage(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	first, _ := env.engine.Create(ctx, "alice", "Stretch", KindRecurring, Params{Interval: time.Hour})
	second, err := env.engine.Create(ctx, "alice", "stretch", KindRecurring, Params{Interval: 20 * time.Minute})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, ok, _ := env.store.GetReminder(ctx, first.ID); ok {
		t.Error("first reminder should have been replaced")
	}
	if _, ok := env.clock.armed(first.ID); ok {
		t.Error("first reminder should be disarmed")
	}
	if _, ok := env.clock.armed(second.ID); !ok {
		t.Error("second reminder should be armed")
	}

	// Other owners are untouched.
	other, _ := env.engine.Create(ctx, "bob", "Stretch", KindRecurring, Params{Interval: time.Hour})
	if _, ok, _ := env.store.GetReminder(ctx, second.ID); !ok {
		t.Error("alice's reminder should survive bob's create")
	}
	if other.ID == second.ID {
		t.Error("expected distinct IDs")
	}
}

func TestEngine_CreatePastDueTriggersImmediately(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	r, err := env.engine.Create(ctx, "alice", "Late", KindOneTime, Params{At: baseTime.Add(-time.Minute)})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if r.Active {
		t.Error("past-due one-time reminder should fire and go inactive")
	}
	if env.sink.notified() != 1 {
		t.Errorf("notified = %d, want 1", env.sink.notified())
	}
	if _, ok := env.clock.armed(r.ID); ok {
		t.Error("past-due reminder should not be armed")
	}
}

func TestEngine_TriggerRecurringAdvancesByInterval(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	r, _ := env.engine.Create(ctx, "alice", "Call mom", KindRecurring, Params{Interval: 30 * time.Minute})
	old := r.NextTrigger
	env.advance(30 * time.Minute)

	got, fired, err := env.engine.Trigger(ctx, r.ID)
	if err != nil || !fired {
		t.Fatalf("Trigger() = %v, %v", fired, err)
	}
	if want := old.Add(30 * time.Minute); !got.NextTrigger.Equal(want) {
		t.Errorf("NextTrigger = %v, want %v", got.NextTrigger, want)
	}
	if !got.Active {
		t.Error("recurring reminder should stay active")
	}
	if !got.TriggeredAt.Equal(*env.now) {
		t.Errorf("TriggeredAt = %v, want %v", got.TriggeredAt, *env.now)
	}
	at, _ := env.clock.armed(r.ID)
	if !at.Equal(got.NextTrigger) {
		t.Errorf("rearmed at %v, want %v", at, got.NextTrigger)
	}

	env.sink.mu.Lock()
	defer env.sink.mu.Unlock()
	if len(env.sink.spoken) != 1 || env.sink.spoken[0] != "Call mom" {
		t.Errorf("spoken = %v", env.sink.spoken)
	}
	if !env.sink.notes[0].NextTrigger.Equal(got.NextTrigger) {
		t.Errorf("notification NextTrigger = %v", env.sink.notes[0].NextTrigger)
	}
}

func TestEngine_TriggerRecurringCatchesUp(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	r, _ := env.engine.Create(ctx, "alice", "Blink", KindRecurring, Params{Interval: 10 * time.Minute})
	env.advance(3 * time.Hour)

	got, fired, err := env.engine.Trigger(ctx, r.ID)
	if err != nil || !fired {
		t.Fatalf("Trigger() = %v, %v", fired, err)
	}
	if !got.NextTrigger.After(*env.now) {
		t.Errorf("NextTrigger = %v, want after %v", got.NextTrigger, *env.now)
	}
	if got.NextTrigger.Sub(*env.now) > 10*time.Minute {
		t.Errorf("NextTrigger = %v, too far after %v", got.NextTrigger, *env.now)
	}
	if offset := got.NextTrigger.Sub(r.NextTrigger) % (10 * time.Minute); offset != 0 {
		t.Errorf("NextTrigger drifted off the interval grid by %v", offset)
	}
	if env.sink.notified() != 1 {
		t.Errorf("notified = %d, want 1", env.sink.notified())
	}
}

func TestEngine_TriggerOneTimeIsIdempotent(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	r, _ := env.engine.Create(ctx, "alice", "Take medicine", KindOneTime, Params{At: baseTime.Add(time.Hour)})
	env.advance(time.Hour)

	got, fired, err := env.engine.Trigger(ctx, r.ID)
	if err != nil || !fired {
		t.Fatalf("Trigger() = %v, %v", fired, err)
	}
	if got.Active {
		t.Error("one-time reminder should be inactive after trigger")
	}

	_, fired, err = env.engine.Trigger(ctx, r.ID)
	if err != nil {
		t.Fatalf("second Trigger() error: %v", err)
	}
	if fired {
		t.Error("second trigger should be a no-op")
	}
	if env.sink.notified() != 1 {
		t.Errorf("notified = %d, want 1", env.sink.notified())
	}
	if _, ok := env.clock.armed(r.ID); ok {
		t.Error("inactive reminder should not be rearmed")
	}
}

func TestEngine_TriggerUnknown(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)

	_, fired, err := env.engine.Trigger(context.Background(), "missing")
	if err != nil || fired {
		t.Errorf("Trigger(missing) = %v, %v, want false, nil", fired, err)
	}
}

func TestEngine_HandleFireDropsStale(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	r, _ := env.engine.Create(ctx, "alice", "Stand up", KindRecurring, Params{Interval: time.Hour})
	staleAt := r.NextTrigger

	env.advance(5 * time.Minute)
	snoozed, _, _ := env.engine.Snooze(ctx, r.ID, 10)

	env.engine.HandleFire(ctx, r.ID, staleAt)
	if env.sink.notified() != 0 {
		t.Fatal("stale fire should be dropped")
	}

	env.advance(10 * time.Minute)
	env.engine.HandleFire(ctx, r.ID, snoozed.NextTrigger)
	if env.sink.notified() != 1 {
		t.Errorf("notified = %d, want 1", env.sink.notified())
	}
}

func TestEngine_Snooze(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	r, _ := env.engine.Create(ctx, "alice", "Walk", KindRecurring, Params{Interval: time.Hour})
	env.advance(time.Hour)
	fired, _, _ := env.engine.Trigger(ctx, r.ID)

	got, ok, err := env.engine.Snooze(ctx, r.ID, 10)
	if err != nil || !ok {
		t.Fatalf("Snooze() = %v, %v", ok, err)
	}
	if want := env.now.Add(10 * time.Minute); !got.NextTrigger.Equal(want) {
		t.Errorf("NextTrigger = %v, want %v", got.NextTrigger, want)
	}
	if got.Kind != KindRecurring || !got.Active {
		t.Errorf("kind/active changed: %v %v", got.Kind, got.Active)
	}
	if !got.TriggeredAt.Equal(fired.TriggeredAt) {
		t.Errorf("TriggeredAt = %v, want %v", got.TriggeredAt, fired.TriggeredAt)
	}
	at, _ := env.clock.armed(r.ID)
	if !at.Equal(got.NextTrigger) {
		t.Errorf("armed at %v, want %v", at, got.NextTrigger)
	}
}

func TestEngine_SnoozeDefault(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	r, _ := env.engine.Create(ctx, "alice", "Walk", KindRecurring, Params{Interval: time.Hour})
	got, _, _ := env.engine.Snooze(ctx, r.ID, 0)
	if want := baseTime.Add(DefaultSnooze); !got.NextTrigger.Equal(want) {
		t.Errorf("NextTrigger = %v, want %v", got.NextTrigger, want)
	}

	if _, ok, _ := env.engine.Snooze(ctx, "missing", 5); ok {
		t.Error("Snooze(missing) should report not found")
	}
}

func TestEngine_SnoozeFiredOneTime(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	r, _ := env.engine.Create(ctx, "alice", "Tea", KindOneTime, Params{At: baseTime.Add(time.Minute)})
	env.advance(time.Minute)
	_, _, _ = env.engine.Trigger(ctx, r.ID)

	got, _, _ := env.engine.Snooze(ctx, r.ID, 5)
	if !got.Active {
		t.Fatal("snoozed one-time reminder should be rearmed")
	}
	env.advance(5 * time.Minute)
	env.engine.HandleFire(ctx, r.ID, got.NextTrigger)
	if env.sink.notified() != 2 {
		t.Errorf("notified = %d, want 2", env.sink.notified())
	}
}

func TestEngine_Cancel(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	r, _ := env.engine.Create(ctx, "alice", "Read", KindRecurring, Params{Interval: time.Hour})
	ok, err := env.engine.Cancel(ctx, r.ID)
	if err != nil || !ok {
		t.Fatalf("Cancel() = %v, %v", ok, err)
	}
	if _, ok := env.clock.armed(r.ID); ok {
		t.Error("cancelled reminder still armed")
	}
	if _, ok, _ := env.store.GetReminder(ctx, r.ID); ok {
		t.Error("cancelled reminder still stored")
	}

	// An in-flight fire for a cancelled reminder must not resurrect it.
	env.engine.HandleFire(ctx, r.ID, r.NextTrigger)
	if env.sink.notified() != 0 {
		t.Error("fire after cancel should be a no-op")
	}
	if env.clock.count() != 0 {
		t.Error("fire after cancel rearmed the clock")
	}

	ok, err = env.engine.Cancel(ctx, r.ID)
	if err != nil || ok {
		t.Errorf("second Cancel() = %v, %v, want false, nil", ok, err)
	}
}

func TestEngine_CancelByMessage(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	water, _ := env.engine.Create(ctx, "alice", "Drink water", KindRecurring, Params{Interval: time.Hour})
	env.advance(time.Second)
	mom, _ := env.engine.Create(ctx, "alice", "Call mom", KindRecurring, Params{Interval: time.Hour})

	got, ok, err := env.engine.CancelByMessage(ctx, "alice", "water")
	if err != nil || !ok {
		t.Fatalf("CancelByMessage() = %v, %v", ok, err)
	}
	if got.ID != water.ID {
		t.Errorf("cancelled %q, want %q", got.ID, water.ID)
	}
	if _, ok, _ := env.store.GetReminder(ctx, mom.ID); !ok {
		t.Error("unrelated reminder was cancelled")
	}

	if _, ok, _ := env.engine.CancelByMessage(ctx, "alice", "gym"); ok {
		t.Error("unmatched phrase should report false")
	}
	if _, ok, _ := env.engine.CancelByMessage(ctx, "bob", "mom"); ok {
		t.Error("other owner's reminders should not match")
	}
}

func TestEngine_CancelAll(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	for _, msg := range []string{"a", "b", "c"} {
		if _, err := env.engine.Create(ctx, "alice", msg, KindRecurring, Params{Interval: time.Hour}); err != nil {
			t.Fatal(err)
		}
	}
	keep, _ := env.engine.Create(ctx, "bob", "a", KindRecurring, Params{Interval: time.Hour})

	n, err := env.engine.CancelAll(ctx, "alice")
	if err != nil {
		t.Fatalf("CancelAll() error: %v", err)
	}
	if n != 3 {
		t.Errorf("CancelAll() = %d, want 3", n)
	}
	active, _ := env.store.ListActiveReminders(ctx, "alice")
	if len(active) != 0 {
		t.Errorf("active after CancelAll = %d, want 0", len(active))
	}
	if env.clock.count() != 1 {
		t.Errorf("armed = %d, want 1", env.clock.count())
	}
	if _, ok := env.clock.armed(keep.ID); !ok {
		t.Error("bob's reminder should stay armed")
	}
}

func TestEngine_CancelFromText(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	_, _ = env.engine.Create(ctx, "alice", "Call mom", KindRecurring, Params{Interval: time.Hour})
	_, _ = env.engine.Create(ctx, "alice", "Water plants", KindRecurring, Params{Interval: time.Hour})

	res, ok, err := env.engine.CancelFromText(ctx, "alice", "cancel my call mom reminder")
	if err != nil || !ok {
		t.Fatalf("CancelFromText() = %v, %v", ok, err)
	}
	if res.All || res.Reminder.Message != "Call mom" {
		t.Errorf("result = %+v", res)
	}

	res, ok, err = env.engine.CancelFromText(ctx, "alice", "delete all my reminders")
	if err != nil || !ok || !res.All || res.Count != 1 {
		t.Errorf("CancelFromText(all) = %+v, %v, %v", res, ok, err)
	}

	if _, ok, _ := env.engine.CancelFromText(ctx, "alice", "what's the weather"); ok {
		t.Error("non-cancel text should report false")
	}
}

func TestEngine_CreateFromText(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	r, err := env.engine.CreateFromText(ctx, "alice", "remind me to call mom every 30 minutes")
	if err != nil {
		t.Fatalf("CreateFromText() error: %v", err)
	}
	if r.Kind != KindRecurring || r.Interval != 30*time.Minute || r.Message != "Call mom" {
		t.Errorf("reminder = %+v", r)
	}

	r, err = env.engine.CreateFromText(ctx, "alice", "remind me to stretch in 2 hours")
	if err != nil {
		t.Fatalf("CreateFromText() error: %v", err)
	}
	if r.Kind != KindOneTime || !r.NextTrigger.Equal(baseTime.Add(2*time.Hour)) {
		t.Errorf("reminder = %+v", r)
	}

	_, err = env.engine.CreateFromText(ctx, "alice", "remind me sometime")
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("CreateFromText(unclear) error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestEngine_Recover(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	future := Reminder{
		ID: "future", Owner: "alice", Message: "Later", Kind: KindOneTime,
		ScheduledAt: baseTime.Add(time.Hour), NextTrigger: baseTime.Add(time.Hour),
		Active: true, CreatedAt: baseTime.Add(-time.Hour),
	}
	missed := Reminder{
		ID: "missed", Owner: "bob", Message: "Missed", Kind: KindOneTime,
		ScheduledAt: baseTime.Add(-time.Hour), NextTrigger: baseTime.Add(-time.Hour),
		Active: true, CreatedAt: baseTime.Add(-2 * time.Hour),
	}
	done := Reminder{
		ID: "done", Owner: "alice", Message: "Done", Kind: KindOneTime,
		NextTrigger: baseTime.Add(-time.Hour), CreatedAt: baseTime.Add(-3 * time.Hour),
	}
	for _, r := range []Reminder{future, missed, done} {
		_ = env.store.SaveReminder(ctx, r)
	}

	report, err := env.engine.Recover(ctx)
	if err != nil {
		t.Fatalf("Recover() error: %v", err)
	}
	if report.Armed != 1 || report.Fired != 1 {
		t.Errorf("report = %+v, want Armed 1, Fired 1", report)
	}
	if at, ok := env.clock.armed("future"); !ok || !at.Equal(future.NextTrigger) {
		t.Errorf("future armed = %v, %v", at, ok)
	}
	got, _, _ := env.store.GetReminder(ctx, "missed")
	if got.Active {
		t.Error("missed one-time reminder should fire and go inactive")
	}

	// A second pass re-arms without duplicating fires.
	report, err = env.engine.Recover(ctx)
	if err != nil {
		t.Fatalf("second Recover() error: %v", err)
	}
	if report.Armed != 1 || report.Fired != 0 {
		t.Errorf("second report = %+v, want Armed 1, Fired 0", report)
	}
	if env.sink.notified() != 1 {
		t.Errorf("notified = %d, want 1", env.sink.notified())
	}
	if env.clock.count() != 1 {
		t.Errorf("armed = %d, want 1", env.clock.count())
	}
}

func TestEngine_List(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	a, _ := env.engine.Create(ctx, "alice", "a", KindOneTime, Params{At: baseTime.Add(time.Minute)})
	env.advance(time.Second)
	b, _ := env.engine.Create(ctx, "alice", "b", KindRecurring, Params{Interval: time.Hour})
	env.advance(time.Minute)
	_, _, _ = env.engine.Trigger(ctx, a.ID)

	active, _ := env.engine.List(ctx, "alice", false)
	if len(active) != 1 || active[0].ID != b.ID {
		t.Errorf("List(active) = %+v", active)
	}
	all, _ := env.engine.List(ctx, "alice", true)
	if len(all) != 2 || all[0].ID != a.ID {
		t.Errorf("List(all) = %+v", all)
	}
}

func TestEngine_ConcurrentTriggersSerialize(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := context.Background()

	r, _ := env.engine.Create(ctx, "alice", "Once", KindOneTime, Params{At: baseTime.Add(time.Minute)})
	env.advance(time.Minute)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.engine.HandleFire(ctx, r.ID, r.NextTrigger)
		}()
	}
	wg.Wait()

	if env.sink.notified() != 1 {
		t.Errorf("notified = %d, want exactly 1", env.sink.notified())
	}
	if env.engine.locks.size() != 0 {
		t.Errorf("lock map size = %d, want 0", env.engine.locks.size())
	}
}

func TestAdvance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		next        time.Time
		interval    time.Duration
		now         time.Time
		want        time.Time
		wantSkipped int
	}{
		{"on time", baseTime, 30 * time.Minute, baseTime, baseTime.Add(30 * time.Minute), 0},
		{"lands on now", baseTime, 30 * time.Minute, baseTime.Add(30 * time.Minute), baseTime.Add(time.Hour), 1},
		{"far behind", baseTime, 10 * time.Minute, baseTime.Add(65 * time.Minute), baseTime.Add(70 * time.Minute), 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, skipped := advance(tt.next, tt.interval, tt.now)
			if !got.Equal(tt.want) || skipped != tt.wantSkipped {
				t.Errorf("advance() = %v, %d, want %v, %d", got, skipped, tt.want, tt.wantSkipped)
			}
		})
	}
}

// slowStore widens the window between listing and saving.
type slowStore struct {
	*InMemoryStore
	delay time.Duration
}

func (s slowStore) ListActiveReminders(ctx context.Context, owner string) ([]Reminder, error) {
	time.Sleep(s.delay)
	return s.InMemoryStore.ListActiveReminders(ctx, owner)
}

func (s slowStore) ListReminders(ctx context.Context, owner string) ([]Reminder, error) {
	time.Sleep(s.delay)
	return s.InMemoryStore.ListReminders(ctx, owner)
}

func newSlowEngine(t *testing.T) (*Engine, slowStore, *fakeClock) {
	t.Helper()
	store := slowStore{InMemoryStore: NewInMemoryStore(), delay: 5 * time.Millisecond}
	clock := newFakeClock()
	e, err := NewEngine(Config{Store: store, Clock: clock, Now: func() time.Time { return baseTime }})
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return e, store, clock
}

func TestEngine_ConcurrentCreateSameMessage(t *testing.T) {
	t.Parallel()
	e, store, clock := newSlowEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Create(ctx, "alice", "drink water", KindRecurring, Params{Interval: 30 * time.Minute}); err != nil {
				t.Errorf("Create() error: %v", err)
			}
		}()
	}
	wg.Wait()

	active, _ := store.InMemoryStore.ListActiveReminders(ctx, "alice")
	if len(active) != 1 {
		t.Fatalf("active = %d, want 1", len(active))
	}
	if clock.count() != 1 {
		t.Errorf("armed = %d, want 1", clock.count())
	}
	if _, ok := clock.armed(active[0].ID); !ok {
		t.Error("surviving reminder is not armed")
	}
	if e.owners.size() != 0 || e.locks.size() != 0 {
		t.Errorf("lock maps not drained: owners %d, ids %d", e.owners.size(), e.locks.size())
	}
}

func TestEngine_CancelAllRacingCreate(t *testing.T) {
	t.Parallel()
	e, store, clock := newSlowEngine(t)
	ctx := context.Background()

	for _, msg := range []string{"a", "b"} {
		if _, err := e.Create(ctx, "alice", msg, KindRecurring, Params{Interval: time.Hour}); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := e.CancelAll(ctx, "alice"); err != nil {
			t.Errorf("CancelAll() error: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := e.Create(ctx, "alice", "c", KindRecurring, Params{Interval: time.Hour}); err != nil {
			t.Errorf("Create() error: %v", err)
		}
	}()
	wg.Wait()

	// Whichever ran first, stored rows and arms must agree.
	rows, _ := store.InMemoryStore.ListReminders(ctx, "alice")
	if clock.count() != len(rows) {
		t.Fatalf("armed = %d, stored = %d", clock.count(), len(rows))
	}
	for _, r := range rows {
		if _, ok := clock.armed(r.ID); !ok {
			t.Errorf("stored reminder %s is not armed", r.ID)
		}
	}
}

// listOnlyStore hides InMemoryStore's DueLister.
type listOnlyStore struct {
	inner *InMemoryStore
}

func (s listOnlyStore) SaveReminder(ctx context.Context, r Reminder) error {
	return s.inner.SaveReminder(ctx, r)
}

func (s listOnlyStore) GetReminder(ctx context.Context, id string) (Reminder, bool, error) {
	return s.inner.GetReminder(ctx, id)
}

func (s listOnlyStore) ListActiveReminders(ctx context.Context, owner string) ([]Reminder, error) {
	return s.inner.ListActiveReminders(ctx, owner)
}

func (s listOnlyStore) ListReminders(ctx context.Context, owner string) ([]Reminder, error) {
	return s.inner.ListReminders(ctx, owner)
}

func (s listOnlyStore) DeleteReminder(ctx context.Context, id string) error {
	return s.inner.DeleteReminder(ctx, id)
}

func (s listOnlyStore) DeleteAllReminders(ctx context.Context, owner string) error {
	return s.inner.DeleteAllReminders(ctx, owner)
}

func TestEngine_RecoverFiresOverdueInTriggerOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Created first, due last.
	overdue := []Reminder{
		{
			ID: "late", Owner: "alice", Message: "Late", Kind: KindOneTime,
			NextTrigger: baseTime.Add(-time.Minute), Active: true, CreatedAt: baseTime.Add(-3 * time.Hour),
		},
		{
			ID: "later", Owner: "alice", Message: "Later", Kind: KindRecurring, Interval: time.Hour,
			NextTrigger: baseTime.Add(-10 * time.Minute), Active: true, CreatedAt: baseTime.Add(-2 * time.Hour),
		},
		{
			ID: "oldest", Owner: "bob", Message: "Oldest", Kind: KindOneTime,
			NextTrigger: baseTime.Add(-time.Hour), Active: true, CreatedAt: baseTime.Add(-time.Hour),
		},
	}
	upcoming := Reminder{
		ID: "soon", Owner: "bob", Message: "Soon", Kind: KindOneTime,
		NextTrigger: baseTime.Add(time.Hour), Active: true, CreatedAt: baseTime.Add(-4 * time.Hour),
	}

	for _, tt := range []struct {
		name  string
		store func(*InMemoryStore) Store
		want  []string
	}{
		{"due lister", func(s *InMemoryStore) Store { return s }, []string{"Oldest", "Later", "Late"}},
		{"plain store", func(s *InMemoryStore) Store { return listOnlyStore{s} }, []string{"Late", "Later", "Oldest"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mem := NewInMemoryStore()
			for _, r := range append([]Reminder{upcoming}, overdue...) {
				_ = mem.SaveReminder(ctx, r)
			}
			clock := newFakeClock()
			sink := &recordingSink{}
			e, err := NewEngine(Config{
				Store:    tt.store(mem),
				Clock:    clock,
				Notifier: sink,
				Now:      func() time.Time { return baseTime },
			})
			if err != nil {
				t.Fatalf("NewEngine() error: %v", err)
			}

			report, err := e.Recover(ctx)
			if err != nil {
				t.Fatalf("Recover() error: %v", err)
			}
			// The fired recurring reminder is rearmed but counted once.
			if report.Fired != 3 || report.Armed != 1 {
				t.Errorf("report = %+v, want Fired 3, Armed 1", report)
			}
			var got []string
			for _, n := range sink.notes {
				got = append(got, n.Message)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("fire order = %v, want %v", got, tt.want)
			}
			if _, ok := clock.armed("soon"); !ok {
				t.Error("upcoming reminder should be armed")
			}
			if at, ok := clock.armed("later"); !ok || !at.After(baseTime) {
				t.Errorf("recurring reminder armed = %v, %v, want next interval", at, ok)
			}
		})
	}
}
