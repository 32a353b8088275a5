package embedding

import (
	"github.com/dgraph-io/ristretto"
)

// vectorCache memoizes remote vectors keyed by task and text. Fallback
// vectors are never cached since they are cheap and deterministic.
// A nil *vectorCache is valid and caches nothing.
type vectorCache struct {
	cache *ristretto.Cache
}

func newVectorCache(size int) (*vectorCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(size) * 10,
		MaxCost:     int64(size),
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &vectorCache{cache: c}, nil
}

func cacheKey(task Task, text string) string {
	return task.String() + "\x00" + text
}

func (c *vectorCache) get(task Task, text string) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.cache.Get(cacheKey(task, text))
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float32)
	if !ok {
		return nil, false
	}
	return append([]float32(nil), vec...), true
}

func (c *vectorCache) set(task Task, text string, vec []float32) {
	if c == nil {
		return
	}
	c.cache.Set(cacheKey(task, text), append([]float32(nil), vec...), 1)
}

func (c *vectorCache) close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
