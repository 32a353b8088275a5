// Package embedding turns text into fixed-length vectors. A Codec wraps
// an optional remote Provider with a failure circuit breaker and always
// falls back to a deterministic local embedding, so Embed never fails.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Source identifies where a vector came from.
type Source string

// Vector sources reported to observers.
const (
	SourceRemote   Source = "remote"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// Observer receives codec events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	EmbedServed(source Source)
	RemoteFailed()
	CircuitChanged(open bool)
}

type nopObserver struct{}

func (nopObserver) EmbedServed(Source)  {}
func (nopObserver) RemoteFailed()       {}
func (nopObserver) CircuitChanged(bool) {}

// Status is a point-in-time view of the codec's remote path.
type Status struct {
	RemoteConfigured bool      `json:"remote_configured"`
	CircuitOpen      bool      `json:"circuit_open"`
	Failures         int       `json:"failures"`
	Threshold        int       `json:"threshold"`
	OpenedAt         time.Time `json:"opened_at,omitzero"`
	LastError        string    `json:"last_error,omitempty"`
	Dimensions       int       `json:"dimensions"`
}

// Codec converts text to vectors of a fixed dimension.
// It is safe for concurrent use; construct one per process.
type Codec struct {
	provider  Provider
	dims      int
	timeout   time.Duration
	threshold int
	cacheSize int

	breaker  *breaker
	cache    *vectorCache
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout bounds each remote call. Values above MaxTimeout are capped.
func WithTimeout(d time.Duration) Option {
	return func(c *Codec) { c.timeout = d }
}

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(c *Codec) { c.threshold = n }
}

// WithCache enables an in-process cache of remote vectors holding up to
// size entries.
func WithCache(size int) Option {
	return func(c *Codec) { c.cacheSize = size }
}

// WithObserver registers an event observer (metrics).
func WithObserver(o Observer) Option {
	return func(c *Codec) {
		if o != nil {
			c.observer = o
		}
	}
}

// New creates a Codec. A nil provider makes the codec local-only.
func New(provider Provider, dims int, opts ...Option) *Codec {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	c := &Codec{
		provider: provider,
		dims:     dims,
		timeout:  MaxTimeout,
		logger:   slog.Default(),
		observer: nopObserver{},
		tracer:   otel.Tracer("github.com/flemzord/mnemo/internal/embedding"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout <= 0 || c.timeout > MaxTimeout {
		c.timeout = MaxTimeout
	}

	c.breaker = newBreaker(c.threshold)
	c.breaker.onStateChange = func(_, to circuitState) {
		open := to == circuitOpen
		if open {
			c.logger.Warn("embedding: circuit opened, using local fallback until reset",
				"threshold", c.breaker.threshold,
			)
		} else {
			c.logger.Info("embedding: circuit closed")
		}
		c.observer.CircuitChanged(open)
	}

	cache, err := newVectorCache(c.cacheSize)
	if err != nil {
		c.logger.Warn("embedding: cache disabled", "error", err)
	}
	c.cache = cache

	return c
}

// Dimensions returns the vector length produced by Embed.
func (c *Codec) Dimensions() int { return c.dims }

// Embed returns a vector of length Dimensions() for text. It never fails:
// remote errors are recorded and answered with LocalEmbed.
func (c *Codec) Embed(ctx context.Context, text string, isQuery bool) []float32 {
	task := TaskDocument
	if isQuery {
		task = TaskQuery
	}

	ctx, span := c.tracer.Start(ctx, "embedding.Embed",
		trace.WithAttributes(attribute.String("embedding.task", task.String())),
	)
	defer span.End()

	if c.provider != nil && c.breaker.Allow() {
		if vec, ok := c.cache.get(task, text); ok {
			c.observer.EmbedServed(SourceCache)
			span.SetAttributes(attribute.String("embedding.source", string(SourceCache)))
			return vec
		}

		vec, err := c.remote(ctx, text, task)
		switch {
		case err == nil:
			c.breaker.RecordSuccess()
			c.cache.set(task, text, vec)
			c.observer.EmbedServed(SourceRemote)
			span.SetAttributes(attribute.String("embedding.source", string(SourceRemote)))
			return vec
		case errors.Is(err, ErrNotConfigured):
			// Unconfigured is not a failure: no breaker or observer update.
		default:
			c.observer.RemoteFailed()
			span.RecordError(err)
			span.SetStatus(codes.Error, "remote embedding failed")
			c.logger.Warn("embedding: remote call failed, using local fallback", "task", task.String(), "error", err)
			c.breaker.RecordFailure(err)
		}
	}

	c.observer.EmbedServed(SourceFallback)
	span.SetAttributes(attribute.String("embedding.source", string(SourceFallback)))
	return LocalEmbed(text, c.dims)
}

func (c *Codec) remote(ctx context.Context, text string, task Task) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vec, err := c.provider.Embed(ctx, text, task)
	if err != nil {
		return nil, err
	}
	if len(vec) < c.dims {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", ErrMalformedResponse, len(vec), c.dims)
	}
	return vec[:c.dims:c.dims], nil
}

// ResetCircuit re-enables remote calls and zeroes the failure counter.
func (c *Codec) ResetCircuit() {
	c.breaker.Reset()
}

// Status reports the remote path state.
func (c *Codec) Status() Status {
	state, failures, openedAt, lastErr := c.breaker.snapshot()
	return Status{
		RemoteConfigured: c.provider != nil,
		CircuitOpen:      state == circuitOpen,
		Failures:         failures,
		Threshold:        c.breaker.threshold,
		OpenedAt:         openedAt,
		LastError:        lastErr,
		Dimensions:       c.dims,
	}
}

// Close releases the vector cache.
func (c *Codec) Close() {
	c.cache.close()
}
