// Package ranking scores stored items against a query vector using cosine
// similarity plus a bounded recency bonus.
package ranking

import (
	"log/slog"
	"math"
	"sort"
	"time"
)

// Defaults applied when Rank receives non-positive arguments.
const (
	DefaultTopK      = 5
	DefaultThreshold = 0.3

	// MaxRecencyBonus is awarded to an item created at the reference time
	// and decays linearly to zero over RecencyWindow.
	MaxRecencyBonus = 0.1
	RecencyWindow   = 30 * 24 * time.Hour
)

// Candidate is an item that can be ranked.
type Candidate struct {
	ID        string
	Content   string
	CreatedAt time.Time
	Vector    []float32
}

// Scored is a ranked candidate. Score = Similarity + Recency.
type Scored struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Similarity float64   `json:"similarity"`
	Recency    float64   `json:"recency_bonus"`
	Score      float64   `json:"score"`
}

// Ranker orders candidates by similarity to a query.
type Ranker struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewRanker creates a Ranker. A nil logger defaults to slog.Default().
func NewRanker(logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{logger: logger, now: time.Now}
}

// SetClock overrides the time source used for recency bonuses.
func (r *Ranker) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Rank returns at most topK candidates whose raw similarity to query is
// at least threshold, ordered by final score descending. Candidates with
// equal scores keep their input order. The recency bonus is added only
// after the threshold test. A non-positive topK means DefaultTopK.
func (r *Ranker) Rank(query []float32, candidates []Candidate, topK int, threshold float64) []Scored {
	if topK <= 0 {
		topK = DefaultTopK
	}
	now := r.now()

	var out []Scored
	for _, c := range candidates {
		if len(c.Vector) != len(query) {
			r.logger.Warn("ranking: dimension mismatch, scoring 0",
				"id", c.ID,
				"query_dims", len(query),
				"candidate_dims", len(c.Vector),
			)
		}
		sim := CosineSimilarity(query, c.Vector)
		if sim < threshold {
			continue
		}
		bonus := RecencyBonus(c.CreatedAt, now)
		out = append(out, Scored{
			ID:         c.ID,
			Content:    c.Content,
			CreatedAt:  c.CreatedAt,
			Similarity: sim,
			Recency:    bonus,
			Score:      sim + bonus,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// CosineSimilarity returns the cosine of the angle between a and b.
// It returns 0 when either vector has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// RecencyBonus returns MaxRecencyBonus*(1-age/RecencyWindow) for items
// younger than RecencyWindow, 0 otherwise. Items dated in the future
// get the full bonus.
func RecencyBonus(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt)
	if age >= RecencyWindow {
		return 0
	}
	if age < 0 {
		age = 0
	}
	return MaxRecencyBonus * (1 - float64(age)/float64(RecencyWindow))
}
