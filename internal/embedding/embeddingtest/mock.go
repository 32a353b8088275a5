// Package embeddingtest provides test doubles for the embedding package.
package embeddingtest

import (
	"context"
	"sync"

	"github.com/flemzord/mnemo/internal/embedding"
)

// MockProvider is a configurable test double for embedding.Provider.
// When EmbedFunc is nil it returns a constant vector of length Dims.
type MockProvider struct {
	EmbedFunc func(ctx context.Context, text string, task embedding.Task) ([]float32, error)
	Dims      int

	mu        sync.Mutex
	calls     int
	lastTask  embedding.Task
	lastInput string
}

// Compile-time interface check.
var _ embedding.Provider = (*MockProvider)(nil)

// Embed implements embedding.Provider and records the call.
func (m *MockProvider) Embed(ctx context.Context, text string, task embedding.Task) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.lastTask = task
	m.lastInput = text
	m.mu.Unlock()

	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text, task)
	}
	vec := make([]float32, m.Dims)
	for i := range vec {
		vec[i] = 1
	}
	return vec, nil
}

// CallCount returns the number of Embed calls.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastTask returns the task hint of the most recent call.
func (m *MockProvider) LastTask() embedding.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTask
}

// LastInput returns the text of the most recent call.
func (m *MockProvider) LastInput() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastInput
}
