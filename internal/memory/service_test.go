package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/mnemo/internal/embedding"
	"github.com/flemzord/mnemo/internal/memory"
)

type failingStore struct {
	memory.Store
}

func (failingStore) ListMemories(context.Context, string) ([]memory.Memory, error) {
	return nil, errors.New("disk on fire")
}

func newTestService(t *testing.T, store memory.Store) *memory.Service {
	t.Helper()
	svc, err := memory.NewService(memory.ServiceConfig{
		Store:    store,
		Embedder: embedding.New(nil, embedding.DefaultDimensions),
		Now:      func() time.Time { return baseTime },
	})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	return svc
}

func TestNewService_Requires(t *testing.T) {
	t.Parallel()

	if _, err := memory.NewService(memory.ServiceConfig{Embedder: embedding.New(nil, 8)}); err == nil {
		t.Error("expected error without store")
	}
	if _, err := memory.NewService(memory.ServiceConfig{Store: memory.NewInMemoryStore()}); err == nil {
		t.Error("expected error without embedder")
	}
}

func TestService_Remember(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	m, err := svc.Remember(ctx, "alice", "  Parked on level 3  ", map[string]string{"source": "voice"})
	if err != nil {
		t.Fatalf("Remember() error: %v", err)
	}
	if m.Content != "Parked on level 3" {
		t.Errorf("Content = %q", m.Content)
	}
	if len(m.Embedding) != embedding.DefaultDimensions {
		t.Errorf("len(Embedding) = %d, want %d", len(m.Embedding), embedding.DefaultDimensions)
	}
	if !m.CreatedAt.Equal(baseTime) {
		t.Errorf("CreatedAt = %v, want %v", m.CreatedAt, baseTime)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}

	if _, err := svc.Remember(ctx, "alice", "   ", nil); err == nil {
		t.Error("expected error for empty content")
	}
	if _, err := svc.Remember(ctx, "", "x", nil); err == nil {
		t.Error("expected error for empty owner")
	}
}

func TestService_Recall(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, memory.NewInMemoryStore())
	ctx := context.Background()

	for _, c := range []string{"my wifi password is hunter2", "the car is parked on level 3", "dentist appointment on friday"} {
		if _, err := svc.Remember(ctx, "alice", c, nil); err != nil {
			t.Fatal(err)
		}
	}
	_, _ = svc.Remember(ctx, "bob", "the car is parked on level 3", nil)

	got := svc.Recall(ctx, "alice", "the car is parked on level 3")
	if len(got) == 0 {
		t.Fatal("Recall() returned no results")
	}
	if got[0].Content != "the car is parked on level 3" {
		t.Errorf("top result = %q", got[0].Content)
	}
	if got[0].Similarity < 0.99 {
		t.Errorf("Similarity = %v, want ~1", got[0].Similarity)
	}
	if got[0].Recency != 0.1 {
		t.Errorf("Recency = %v, want 0.1 for a memory created now", got[0].Recency)
	}
	for _, r := range got {
		if r.Similarity < 0.3 {
			t.Errorf("result %q below threshold: %v", r.Content, r.Similarity)
		}
	}

	if got := svc.Recall(ctx, "alice", "the car is parked on level 3", memory.WithTopK(1)); len(got) != 1 {
		t.Errorf("WithTopK(1) returned %d results", len(got))
	}
	if got := svc.Recall(ctx, "alice", "the car is parked on level 3", memory.WithThreshold(1.01)); len(got) != 0 {
		t.Errorf("WithThreshold(1.01) returned %d results", len(got))
	}
	if got := svc.Recall(ctx, "carol", "anything"); got != nil {
		t.Errorf("Recall(unknown owner) = %v, want nil", got)
	}
	if got := svc.Recall(ctx, "alice", "   "); got != nil {
		t.Errorf("Recall(blank) = %v, want nil", got)
	}
}

func TestService_SetDefaults(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, memory.NewInMemoryStore())
	ctx := context.Background()
	for _, c := range []string{"buy milk", "buy bread", "buy eggs"} {
		if _, err := svc.Remember(ctx, "alice", c, nil); err != nil {
			t.Fatal(err)
		}
	}

	svc.SetDefaults(1, -1)
	if got := svc.Recall(ctx, "alice", "buy milk"); len(got) != 1 {
		t.Errorf("Recall() after SetDefaults(1, -1) returned %d results, want 1", len(got))
	}

	svc.SetDefaults(10, 0)
	if got := svc.Recall(ctx, "alice", "buy milk"); len(got) != 3 {
		t.Errorf("Recall() with threshold 0 returned %d results, want 3", len(got))
	}

	svc.SetDefaults(10, 1.01)
	if got := svc.Recall(ctx, "alice", "buy milk"); len(got) != 0 {
		t.Errorf("Recall() above max similarity returned %d results", len(got))
	}
	if got := svc.Recall(ctx, "alice", "buy milk", memory.WithThreshold(-1)); len(got) != 3 {
		t.Errorf("WithThreshold(-1) returned %d results, want 3", len(got))
	}
}

func TestService_RecallBackfillsLazily(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	legacy := testMemory("legacy", "alice", "buy oat milk", 0)
	legacy.Embedding = []float32{1, 2, 3} // wrong dimension
	_ = store.SaveMemory(ctx, legacy)
	_ = store.SaveMemory(ctx, testMemory("bare", "alice", "water the ferns", time.Second))

	got := svc.Recall(ctx, "alice", "buy oat milk")
	if len(got) == 0 || got[0].ID != "legacy" {
		t.Fatalf("Recall() = %+v", got)
	}

	pending, _ := store.ListUnembedded(ctx, 0)
	if len(pending) != 0 {
		t.Errorf("unembedded after recall = %d, want 0", len(pending))
	}
	all, _ := store.ListMemories(ctx, "alice")
	for _, m := range all {
		if len(m.Embedding) != embedding.DefaultDimensions {
			t.Errorf("memory %s has %d dims", m.ID, len(m.Embedding))
		}
	}
}

func TestService_RecallStoreFailure(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, failingStore{memory.NewInMemoryStore()})
	if got := svc.Recall(context.Background(), "alice", "anything"); got != nil {
		t.Errorf("Recall() = %v, want nil on store failure", got)
	}
}

func TestService_Backfill(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_ = store.SaveMemory(ctx, testMemory(id, "alice", "note "+id, 0))
	}

	n, err := svc.Backfill(ctx, 2)
	if err != nil || n != 2 {
		t.Fatalf("Backfill(2) = %d, %v", n, err)
	}
	n, _ = svc.Backfill(ctx, 10)
	if n != 1 {
		t.Errorf("second Backfill() = %d, want 1", n)
	}
	n, _ = svc.Backfill(ctx, 10)
	if n != 0 {
		t.Errorf("third Backfill() = %d, want 0", n)
	}
}

func TestService_Forget(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, memory.NewInMemoryStore())
	ctx := context.Background()

	m, _ := svc.Remember(ctx, "alice", "one", nil)
	_, _ = svc.Remember(ctx, "alice", "two", nil)
	_, _ = svc.Remember(ctx, "alice", "three", nil)

	ok, err := svc.Forget(ctx, m.ID)
	if err != nil || !ok {
		t.Fatalf("Forget() = %v, %v", ok, err)
	}
	if ok, _ := svc.Forget(ctx, m.ID); ok {
		t.Error("second Forget() should report false")
	}

	n, err := svc.ForgetAll(ctx, "alice")
	if err != nil || n != 2 {
		t.Errorf("ForgetAll() = %d, %v, want 2", n, err)
	}
	list, _ := svc.List(ctx, "alice")
	if len(list) != 0 {
		t.Errorf("List() after ForgetAll = %d", len(list))
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	if got := memory.Format(nil); got != "" {
		t.Errorf("Format(nil) = %q, want empty", got)
	}

	svc := newTestService(t, memory.NewInMemoryStore())
	ctx := context.Background()
	_, _ = svc.Remember(ctx, "alice", "gate code is 4512", nil)

	out := memory.Format(svc.Recall(ctx, "alice", "gate code is 4512"))
	if !strings.HasPrefix(out, "## Relevant Memory\n\n") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "- gate code is 4512 (score 1.10)") {
		t.Errorf("Format() = %q", out)
	}
}
