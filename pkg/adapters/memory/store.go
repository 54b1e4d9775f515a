package memory

import (
	"context"
	"sync"

	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
)

// Cache implements ports.HitCache in memory.
// Safe for concurrent use.
type Cache struct {
	data map[ports.HitKey][]domain.CandidateHit
	mu   sync.RWMutex
}

// NewCache creates a new in-memory hit cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[ports.HitKey][]domain.CandidateHit),
	}
}

// Put stores a copy of the hits.
func (c *Cache) Put(ctx context.Context, key ports.HitKey, hits []domain.CandidateHit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]domain.CandidateHit{}, hits...)
	return nil
}

// Get returns a copy of the cached hits.
func (c *Cache) Get(ctx context.Context, key ports.HitKey) ([]domain.CandidateHit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits, ok := c.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return append([]domain.CandidateHit{}, hits...), nil
}

// Delete removes the entry.
func (c *Cache) Delete(ctx context.Context, key ports.HitKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
