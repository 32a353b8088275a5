// Package memory stores short natural-language memories and recalls them
// by semantic similarity.
package memory

import (
	"context"
	"time"
)

// Memory is a saved piece of text. Embedding is nil until computed; when
// present its length equals the configured dimension.
type Memory struct {
	ID        string            `json:"id"`
	Owner     string            `json:"owner"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	Embedding []float32         `json:"-"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Store persists memories. Implementations must be safe for concurrent use.
type Store interface {
	// SaveMemory inserts or replaces a memory by ID.
	SaveMemory(ctx context.Context, m Memory) error

	// ListMemories returns the owner's memories ordered by creation time.
	ListMemories(ctx context.Context, owner string) ([]Memory, error)

	// DeleteMemory removes a memory and reports whether it existed.
	DeleteMemory(ctx context.Context, id string) (bool, error)

	// DeleteAllMemories removes every memory of owner and returns the count.
	DeleteAllMemories(ctx context.Context, owner string) (int, error)

	// ListUnembedded returns up to limit memories, across owners, that
	// have no embedding.
	ListUnembedded(ctx context.Context, limit int) ([]Memory, error)
}
