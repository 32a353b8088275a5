package store_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/flemzord/mnemo/internal/core"
	"github.com/flemzord/mnemo/internal/memory"
	"github.com/flemzord/mnemo/internal/reminder"
	"github.com/flemzord/mnemo/internal/store"
)

func TestNop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var s store.Store = store.Nop{}

	if err := s.SaveReminder(ctx, reminder.Reminder{ID: "r1"}); err != nil {
		t.Errorf("SaveReminder() error: %v", err)
	}
	if _, ok, err := s.GetReminder(ctx, "r1"); ok || err != nil {
		t.Errorf("GetReminder() = %v, %v, want false, nil", ok, err)
	}
	if rs, _ := s.ListActiveReminders(ctx, "alice"); len(rs) != 0 {
		t.Errorf("ListActiveReminders() = %v", rs)
	}
	if err := s.SaveMemory(ctx, memory.Memory{ID: "m1"}); err != nil {
		t.Errorf("SaveMemory() error: %v", err)
	}
	if ms, _ := s.ListMemories(ctx, "alice"); len(ms) != 0 {
		t.Errorf("ListMemories() = %v", ms)
	}
	if ok, _ := s.DeleteMemory(ctx, "m1"); ok {
		t.Error("DeleteMemory() should report false")
	}
}

func TestNop_EngineDegradesGracefully(t *testing.T) {
	t.Parallel()

	e, err := reminder.NewEngine(reminder.Config{Store: store.Nop{}, Clock: nopClock{}})
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	ctx := context.Background()
	r, err := e.Create(ctx, "alice", "Stretch", reminder.KindRecurring, reminder.Params{Interval: time.Hour})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, fired, _ := e.Trigger(ctx, r.ID); fired {
		t.Error("nothing is persisted, so nothing can fire")
	}
	report, err := e.Recover(ctx)
	if err != nil || report != (reminder.RecoverReport{}) {
		t.Errorf("Recover() = %+v, %v", report, err)
	}
}

type nopClock struct{}

func (nopClock) Arm(string, time.Time, map[string]string) {}
func (nopClock) Disarm(string)                            {}

func TestComposite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := store.InMemory()

	_ = s.SaveReminder(ctx, reminder.Reminder{ID: "r1", Owner: "alice", Active: true})
	_ = s.SaveMemory(ctx, memory.Memory{ID: "m1", Owner: "alice", Content: "x"})

	if rs, _ := s.ListActiveReminders(ctx, "alice"); len(rs) != 1 {
		t.Errorf("ListActiveReminders() = %d, want 1", len(rs))
	}
	if ms, _ := s.ListUnembedded(ctx, 10); len(ms) != 1 {
		t.Errorf("ListUnembedded() = %d, want 1", len(ms))
	}
	if n, _ := s.DeleteAllMemories(ctx, "alice"); n != 1 {
		t.Errorf("DeleteAllMemories() = %d, want 1", n)
	}
	_ = s.DeleteAllReminders(ctx, "alice")
	if rs, _ := s.ListReminders(ctx, "alice"); len(rs) != 0 {
		t.Errorf("ListReminders() = %d, want 0", len(rs))
	}
}

func TestVolatileModules(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		id       string
		wantKept int
	}{
		{store.MemoryModuleID, 1},
		{store.NopModuleID, 0},
	} {
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()

			appCtx := core.NewAppContext(slog.New(slog.DiscardHandler), t.TempDir())
			if _, err := appCtx.LoadModule(tt.id); err != nil {
				t.Fatalf("LoadModule() error: %v", err)
			}
			rs, ok := core.Service[reminder.Store](appCtx, store.ReminderService)
			if !ok {
				t.Fatal("reminder store not registered")
			}
			ms, ok := core.Service[memory.Store](appCtx, store.MemoryService)
			if !ok {
				t.Fatal("memory store not registered")
			}

			ctx := context.Background()
			_ = rs.SaveReminder(ctx, reminder.Reminder{ID: "r1", Owner: "alice", Active: true})
			_ = ms.SaveMemory(ctx, memory.Memory{ID: "m1", Owner: "alice", Content: "x"})
			if got, _ := rs.ListActiveReminders(ctx, "alice"); len(got) != tt.wantKept {
				t.Errorf("reminders = %d, want %d", len(got), tt.wantKept)
			}
			if got, _ := ms.ListMemories(ctx, "alice"); len(got) != tt.wantKept {
				t.Errorf("memories = %d, want %d", len(got), tt.wantKept)
			}
		})
	}
}
