package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/mnemo/internal/ranking"
)

// Embedder turns text into fixed-length vectors. embedding.Codec
// satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string, isQuery bool) []float32
	Dimensions() int
}

// ServiceConfig holds the Service collaborators. Store and Embedder are required.
type ServiceConfig struct {
	Store     Store
	Embedder  Embedder
	Logger    *slog.Logger
	TopK      int      // 0 = ranking.DefaultTopK
	Threshold *float64 // nil = ranking.DefaultThreshold
	Now       func() time.Time
}

// Service saves memories with their embeddings and recalls them by
// semantic similarity.
type Service struct {
	store    Store
	embedder Embedder
	ranker   *ranking.Ranker
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	tracer   trace.Tracer

	mu        sync.RWMutex
	topK      int
	threshold float64
}

// NewService validates cfg and builds a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("memory: store is required")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("memory: embedder is required")
	}
	s := &Service{
		store:    cfg.Store,
		embedder: cfg.Embedder,
		logger:   cfg.Logger,
		now:      cfg.Now,
		newID:    uuid.NewString,
		tracer:   otel.Tracer("github.com/flemzord/mnemo/internal/memory"),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	threshold := ranking.DefaultThreshold
	if cfg.Threshold != nil {
		threshold = *cfg.Threshold
	}
	s.SetDefaults(cfg.TopK, threshold)
	if s.now == nil {
		s.now = time.Now
	}
	s.ranker = ranking.NewRanker(s.logger)
	s.ranker.SetClock(s.now)
	return s, nil
}

// Remember embeds content as a document and saves it for owner.
func (s *Service) Remember(ctx context.Context, owner, content string, metadata map[string]string) (Memory, error) {
	content = strings.TrimSpace(content)
	if owner == "" {
		return Memory{}, errors.New("memory: owner is required")
	}
	if content == "" {
		return Memory{}, errors.New("memory: content is required")
	}

	m := Memory{
		ID:        s.newID(),
		Owner:     owner,
		Content:   content,
		CreatedAt: s.now(),
		Embedding: s.embedder.Embed(ctx, content, false),
		Metadata:  metadata,
	}
	if err := s.store.SaveMemory(ctx, m); err != nil {
		return Memory{}, fmt.Errorf("memory: save: %w", err)
	}
	s.logger.Debug("memory saved", "memory_id", m.ID, "owner", owner)
	return m, nil
}

// RecallOption tunes a single Recall call.
type RecallOption func(*recallParams)

type recallParams struct {
	topK      int
	threshold float64
}

// WithTopK caps the number of results.
func WithTopK(n int) RecallOption {
	return func(p *recallParams) {
		if n > 0 {
			p.topK = n
		}
	}
}

// WithThreshold sets the minimum raw similarity.
func WithThreshold(t float64) RecallOption {
	return func(p *recallParams) { p.threshold = t }
}

// SetDefaults replaces the top-k and threshold used when Recall gets no
// overriding option. A non-positive topK selects ranking.DefaultTopK;
// threshold is taken as given, zero included.
func (s *Service) SetDefaults(topK int, threshold float64) {
	if topK <= 0 {
		topK = ranking.DefaultTopK
	}
	s.mu.Lock()
	s.topK, s.threshold = topK, threshold
	s.mu.Unlock()
}

// Recall ranks the owner's memories against query. Storage failures are
// logged and yield no results; memories without an embedding are
// embedded on the way.
func (s *Service) Recall(ctx context.Context, owner, query string, opts ...RecallOption) []ranking.Scored {
	s.mu.RLock()
	params := recallParams{topK: s.topK, threshold: s.threshold}
	s.mu.RUnlock()
	for _, opt := range opts {
		opt(&params)
	}

	ctx, span := s.tracer.Start(ctx, "memory.Recall", trace.WithAttributes(
		attribute.Int("recall.top_k", params.topK),
		attribute.Float64("recall.threshold", params.threshold),
	))
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil
	}

	memories, err := s.store.ListMemories(ctx, owner)
	if err != nil {
		s.logger.Error("memory: list failed", "owner", owner, "error", err)
		return nil
	}
	if len(memories) == 0 {
		return nil
	}

	dims := s.embedder.Dimensions()
	candidates := make([]ranking.Candidate, 0, len(memories))
	for _, m := range memories {
		if len(m.Embedding) != dims {
			m.Embedding = s.backfillOne(ctx, m)
		}
		candidates = append(candidates, ranking.Candidate{
			ID:        m.ID,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
			Vector:    m.Embedding,
		})
	}

	results := s.ranker.Rank(s.embedder.Embed(ctx, query, true), candidates, params.topK, params.threshold)
	span.SetAttributes(
		attribute.Int("recall.candidates", len(candidates)),
		attribute.Int("recall.results", len(results)),
	)
	return results
}

// backfillOne embeds m and persists the vector. The vector is returned
// even when saving fails.
func (s *Service) backfillOne(ctx context.Context, m Memory) []float32 {
	m.Embedding = s.embedder.Embed(ctx, m.Content, false)
	if err := s.store.SaveMemory(ctx, m); err != nil {
		s.logger.Warn("memory: backfill save failed", "memory_id", m.ID, "error", err)
	}
	return m.Embedding
}

// Backfill embeds up to limit memories stored without an embedding and
// returns how many were updated.
func (s *Service) Backfill(ctx context.Context, limit int) (int, error) {
	pending, err := s.store.ListUnembedded(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("memory: list unembedded: %w", err)
	}

	n := 0
	for _, m := range pending {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		m.Embedding = s.embedder.Embed(ctx, m.Content, false)
		if err := s.store.SaveMemory(ctx, m); err != nil {
			return n, fmt.Errorf("memory: save %s: %w", m.ID, err)
		}
		n++
	}
	return n, nil
}

// List returns the owner's memories ordered by creation time.
func (s *Service) List(ctx context.Context, owner string) ([]Memory, error) {
	out, err := s.store.ListMemories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("memory: list: %w", err)
	}
	return out, nil
}

// Forget deletes one memory and reports whether it existed.
func (s *Service) Forget(ctx context.Context, id string) (bool, error) {
	ok, err := s.store.DeleteMemory(ctx, id)
	if err != nil {
		return false, fmt.Errorf("memory: delete %s: %w", id, err)
	}
	return ok, nil
}

// ForgetAll deletes every memory of owner.
func (s *Service) ForgetAll(ctx context.Context, owner string) (int, error) {
	n, err := s.store.DeleteAllMemories(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("memory: delete all for %s: %w", owner, err)
	}
	s.logger.Info("memories cleared", "owner", owner, "count", n)
	return n, nil
}

// Format renders recall results as a markdown list for prompts and
// terminals. It returns "" for no results.
func Format(results []ranking.Scored) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Relevant Memory\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- %s (score %.2f)\n", r.Content, r.Score)
	}
	return b.String()
}
