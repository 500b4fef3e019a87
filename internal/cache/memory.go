package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Memory is an in-process cache backed by ristretto, bounded by the total
// size of stored values.
type Memory struct {
	c *ristretto.Cache[string, []byte]
}

// NewMemory creates a ristretto-backed cache holding at most maxCostBytes
// of values.
func NewMemory(maxCostBytes int64) (*Memory, error) {
	if maxCostBytes <= 0 {
		return nil, fmt.Errorf("memory cache: max cost must be positive, got %d", maxCostBytes)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: max(maxCostBytes/100*10, 1000), // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("memory cache: %w", err)
	}
	return &Memory{c: c}, nil
}

// Get retrieves a value from the cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := m.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a value. Sets are applied before Set returns, so a following
// Get observes them unless ristretto rejected the item.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.c.SetWithTTL(key, value, int64(len(value)), ttl)
	m.c.Wait()
	return nil
}

// Delete removes a value from the cache.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.c.Del(key)
	return nil
}

// Clear drops every entry.
func (m *Memory) Clear() {
	m.c.Clear()
}

// Close releases the cache's background goroutines.
func (m *Memory) Close() {
	m.c.Close()
}
