package out

import (
	"context"
	"sync"

	"retort/internal/modules/lethality/domain"
	lethalityout "retort/internal/modules/lethality/port/out"
)

// MemoryResultCache keeps evaluations for the life of the process.
type MemoryResultCache struct {
	mu      sync.RWMutex
	entries map[string]domain.Result
}

var _ lethalityout.ResultCache = (*MemoryResultCache)(nil)

func NewMemoryResultCache() *MemoryResultCache {
	return &MemoryResultCache{entries: map[string]domain.Result{}}
}

func (c *MemoryResultCache) Get(_ context.Context, key string) (domain.Result, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.entries[key]
	if !ok {
		return domain.Result{}, false, nil
	}
	return result.Clone(), true, nil
}

func (c *MemoryResultCache) Set(_ context.Context, key string, result domain.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result.Clone()
	return nil
}
