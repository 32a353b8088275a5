package reminder

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryStore(t *testing.T) {
	t.Parallel()
	s := NewInMemoryStore()
	ctx := context.Background()

	rs := []Reminder{
		{ID: "2", Owner: "alice", Active: true, CreatedAt: baseTime.Add(time.Minute)},
		{ID: "1", Owner: "alice", Active: true, CreatedAt: baseTime},
		{ID: "3", Owner: "alice", Active: false, CreatedAt: baseTime.Add(2 * time.Minute)},
		{ID: "4", Owner: "bob", Active: true, CreatedAt: baseTime},
	}
	for _, r := range rs {
		if err := s.SaveReminder(ctx, r); err != nil {
			t.Fatalf("SaveReminder() error: %v", err)
		}
	}

	active, _ := s.ListActiveReminders(ctx, "alice")
	if len(active) != 2 || active[0].ID != "1" || active[1].ID != "2" {
		t.Errorf("ListActiveReminders(alice) = %+v", active)
	}
	all, _ := s.ListReminders(ctx, "alice")
	if len(all) != 3 {
		t.Errorf("ListReminders(alice) = %d, want 3", len(all))
	}
	everyone, _ := s.ListActiveReminders(ctx, "")
	if len(everyone) != 3 || everyone[0].ID != "1" || everyone[1].ID != "4" {
		t.Errorf("ListActiveReminders(\"\") = %+v", everyone)
	}

	if err := s.DeleteReminder(ctx, "missing"); err != nil {
		t.Errorf("DeleteReminder(missing) error: %v", err)
	}
	_ = s.DeleteAllReminders(ctx, "alice")
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if _, ok, _ := s.GetReminder(ctx, "4"); !ok {
		t.Error("bob's reminder should remain")
	}
}
