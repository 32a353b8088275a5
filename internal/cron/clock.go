package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Alarm is a one-shot wake-up delivered by Clock.
type Alarm struct {
	ID      string
	At      time.Time
	Payload map[string]string
}

// FireFunc consumes alarms. It runs on its own goroutine.
type FireFunc func(ctx context.Context, a Alarm)

// onceSchedule fires a single time at a fixed instant.
type onceSchedule time.Time

// Next implements cron.Schedule. A zero time tells robfig/cron the entry
// never runs again.
func (s onceSchedule) Next(t time.Time) time.Time {
	at := time.Time(s)
	if t.Before(at) {
		return at
	}
	return time.Time{}
}

type armedAlarm struct {
	entry   cron.EntryID
	gen     uint64
	at      time.Time
	payload map[string]string
}

// Clock keeps at most one pending alarm per ID on top of robfig/cron.
// Arm replaces any previous alarm for the ID; Disarm drops it. Alarms at
// or before the current time fire immediately.
type Clock struct {
	mu      sync.Mutex
	cron    *cron.Cron
	armed   map[string]armedAlarm
	gen     uint64
	handler FireFunc
	logger  *slog.Logger
	now     func() time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewClock creates a stopped clock.
func NewClock(logger *slog.Logger) *Clock {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Clock{
		cron:   cron.New(),
		armed:  make(map[string]armedAlarm),
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handle sets the function that receives fired alarms. Alarms that fire
// with no handler are logged and dropped.
func (c *Clock) Handle(fn FireFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// Arm schedules a wake-up for id at the given time, replacing any alarm
// already pending for id.
func (c *Clock) Arm(id string, at time.Time, payload map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(id)
	c.gen++
	gen := c.gen
	alarm := Alarm{ID: id, At: at, Payload: payload}

	if !at.After(c.now()) {
		c.armed[id] = armedAlarm{gen: gen, at: at, payload: payload}
		c.fireAsync(alarm, gen)
		return
	}

	entry := c.cron.Schedule(onceSchedule(at), cron.FuncJob(func() {
		c.fire(alarm, gen)
	}))
	c.armed[id] = armedAlarm{entry: entry, gen: gen, at: at, payload: payload}
}

// Disarm cancels the pending alarm for id, if any.
func (c *Clock) Disarm(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

// Armed returns the time id is armed for.
func (c *Clock) Armed(id string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.armed[id]
	return a.at, ok
}

// Len returns the number of pending alarms.
func (c *Clock) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.armed)
}

// Start begins delivering alarms. Alarms armed before Start whose time
// has since passed fire immediately.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, a := range c.armed {
		if a.entry == 0 || a.at.After(now) {
			continue
		}
		c.cron.Remove(a.entry)
		c.armed[id] = armedAlarm{gen: a.gen, at: a.at, payload: a.payload}
		c.fireAsync(Alarm{ID: id, At: a.at, Payload: a.payload}, a.gen)
	}
	c.cron.Start()
	c.logger.Info("cron: clock started", "armed", len(c.armed))
}

// Stop halts delivery and waits for in-flight handlers to return or ctx
// to expire.
func (c *Clock) Stop(ctx context.Context) error {
	c.cancel()
	stopped := c.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("cron: clock stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Clock) removeLocked(id string) {
	prev, ok := c.armed[id]
	if !ok {
		return
	}
	if prev.entry != 0 {
		c.cron.Remove(prev.entry)
	}
	delete(c.armed, id)
}

func (c *Clock) fireAsync(alarm Alarm, gen uint64) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.fire(alarm, gen)
	}()
}

// fire delivers alarm if it is still the current arm for its ID.
func (c *Clock) fire(alarm Alarm, gen uint64) {
	c.mu.Lock()
	cur, ok := c.armed[alarm.ID]
	if !ok || cur.gen != gen {
		c.mu.Unlock()
		return
	}
	c.removeLocked(alarm.ID)
	handler := c.handler
	c.mu.Unlock()

	if handler == nil {
		c.logger.Warn("cron: alarm fired without handler", "id", alarm.ID)
		return
	}
	if c.ctx.Err() != nil {
		return
	}
	handler(c.ctx, alarm)
}
