package cron

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// simpleJob is a minimal Job for scheduler tests.
type simpleJob struct {
	name     string
	schedule string
	runFunc  func(ctx context.Context) error
	mu       sync.Mutex
	calls    int
}

func (j *simpleJob) Name() string     { return j.name }
func (j *simpleJob) Schedule() string { return j.schedule }
func (j *simpleJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	if j.runFunc != nil {
		return j.runFunc(ctx)
	}
	return nil
}

func TestScheduler_RegisterJob_DuplicateName(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())

	err := s.RegisterJob(&simpleJob{name: "test", schedule: "* * * * *"})
	if err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}

	err = s.RegisterJob(&simpleJob{name: "test", schedule: "* * * * *"})
	if err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestScheduler_RegisterJob_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	if err := s.RegisterJob(&simpleJob{name: "bad", schedule: "invalid"}); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if len(s.Jobs()) != 0 {
		t.Errorf("jobs = %v, want none", s.Jobs())
	}
}

func TestScheduler_StartTwice(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	if err := s.Start(); err == nil {
		t.Fatal("second start should fail")
	}
}

func TestScheduler_RunNow(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	job := &simpleJob{name: "sweep", schedule: "@hourly"}
	_ = s.RegisterJob(job)

	ran, err := s.RunNow(context.Background(), "sweep")
	if err != nil || !ran {
		t.Fatalf("RunNow() = %v, %v", ran, err)
	}
	job.mu.Lock()
	calls := job.calls
	job.mu.Unlock()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	ran, _ = s.RunNow(context.Background(), "missing")
	if ran {
		t.Error("RunNow(missing) should report false")
	}
}

func TestScheduler_RunNowSkipsRunningJob(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(&simpleJob{
		name:     "slow",
		schedule: "* * * * *",
		runFunc: func(_ context.Context) error {
			close(started)
			<-release
			return nil
		},
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunNow(context.Background(), "slow")
	}()
	<-started

	ran, err := s.RunNow(context.Background(), "slow")
	if err != nil || ran {
		t.Errorf("overlapping RunNow() = %v, %v, want false, nil", ran, err)
	}
	close(release)
	<-done
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(&simpleJob{name: "noop", schedule: "* * * * *"})

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_NilLogger(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil) // should not panic
	if s.logger == nil {
		t.Fatal("logger should default to slog.Default()")
	}
}

func TestScheduler_JobError(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(&simpleJob{
		name:     "failing",
		schedule: "* * * * *",
		runFunc: func(_ context.Context) error {
			return errors.New("job failed")
		},
	})

	ran, err := s.RunNow(context.Background(), "failing")
	if !ran || err == nil {
		t.Fatalf("RunNow() = %v, %v, want true, error", ran, err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	// Stop without Start should not panic.
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}
