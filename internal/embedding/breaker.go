package embedding

import (
	"sync"
	"time"
)

// DefaultFailureThreshold is the number of consecutive remote failures
// that opens the circuit.
const DefaultFailureThreshold = 3

// circuitState is the availability state of the remote provider.
type circuitState int

const (
	circuitClosed circuitState = iota // remote calls allowed
	circuitOpen                       // remote disabled until Reset
)

// String returns a human-readable label for the circuit state.
func (s circuitState) String() string {
	switch s {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	default:
		return "unknown"
	}
}

// breaker counts consecutive remote failures and opens once the
// threshold is reached. Unlike a timed breaker it never half-opens on
// its own: only Reset closes it again.
type breaker struct {
	threshold int

	// onStateChange is called outside the lock on every transition.
	onStateChange func(from, to circuitState)

	mu       sync.Mutex
	state    circuitState
	failures int
	openedAt time.Time
	lastErr  string

	now func() time.Time
}

func newBreaker(threshold int) *breaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &breaker{
		threshold: threshold,
		state:     circuitClosed,
		now:       time.Now,
	}
}

// Allow reports whether a remote call may be attempted.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == circuitClosed
}

// RecordSuccess zeroes the consecutive failure count.
func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	b.failures = 0
	b.lastErr = ""
	b.mu.Unlock()
}

// RecordFailure increments the failure count and opens the circuit when
// the threshold is reached.
func (b *breaker) RecordFailure(err error) {
	b.mu.Lock()
	prev := b.state
	b.failures++
	if err != nil {
		b.lastErr = err.Error()
	}
	if b.failures >= b.threshold && b.state == circuitClosed {
		b.state = circuitOpen
		b.openedAt = b.now()
	}
	next := b.state
	b.mu.Unlock()

	if prev != next && b.onStateChange != nil {
		b.onStateChange(prev, next)
	}
}

// Reset closes the circuit and clears the failure count.
func (b *breaker) Reset() {
	b.mu.Lock()
	prev := b.state
	b.state = circuitClosed
	b.failures = 0
	b.lastErr = ""
	b.openedAt = time.Time{}
	b.mu.Unlock()

	if prev != circuitClosed && b.onStateChange != nil {
		b.onStateChange(prev, circuitClosed)
	}
}

func (b *breaker) snapshot() (state circuitState, failures int, openedAt time.Time, lastErr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.failures, b.openedAt, b.lastErr
}
