// Package reload re-applies the configuration file to a running daemon
// when the file changes or the process receives SIGHUP.
package reload

import (
	"context"
	"os"
	"sync"
	"time"
)

// DefaultPollInterval is used when WatcherConfig.PollInterval is zero.
const DefaultPollInterval = 5 * time.Second

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	Path         string
	PollInterval time.Duration
}

// Event reports that the watched file changed.
type Event struct {
	Path    string
	ModTime time.Time
}

// stamp identifies one version of the file. A missing file has the zero
// stamp.
type stamp struct {
	mod  time.Time
	size int64
}

func (s stamp) missing() bool { return s.mod.IsZero() }

func (s stamp) equal(o stamp) bool { return s.mod.Equal(o.mod) && s.size == o.size }

// Watcher polls a file's size and modification time. Changes that land
// while an event is still pending are coalesced into it.
type Watcher struct {
	path     string
	interval time.Duration
	events   chan Event

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewWatcher creates a Watcher. Nothing is polled until Start.
func NewWatcher(cfg WatcherConfig) *Watcher {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		path:     cfg.Path,
		interval: interval,
		events:   make(chan Event, 1),
	}
}

// Events delivers change notifications.
func (w *Watcher) Events() <-chan Event { return w.events }

// Start begins polling in the background until ctx ends or Stop is
// called. Later calls are no-ops.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil || w.stopped {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.poll(ctx, w.stat())
}

// Stop ends polling and waits for the poller to exit. It is safe to call
// more than once and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.stopped = true
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) poll(ctx context.Context, last stamp) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cur := w.stat()
		if cur.missing() || cur.equal(last) {
			continue
		}
		last = cur
		select {
		case w.events <- Event{Path: w.path, ModTime: cur.mod}:
		default:
		}
	}
}

func (w *Watcher) stat() stamp {
	info, err := os.Stat(w.path)
	if err != nil {
		return stamp{}
	}
	return stamp{mod: info.ModTime(), size: info.Size()}
}
