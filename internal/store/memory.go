package store

import (
	"context"
	"sync"

	api "github.com/macrat/scout/lib-scout"
)

// Memory is a Store that keeps everything in memory.
// It is useful for testing and for one-shot runs.
type Memory struct {
	mu    sync.RWMutex
	limit int
	c     collection
}

func NewMemory(limit int) *Memory {
	return &Memory{
		limit: limit,
		c:     make(collection),
	}
}

func (m *Memory) Targets(ctx context.Context) ([]api.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.c.list(), nil
}

func (m *Memory) Target(ctx context.Context, id string) (api.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.c.get(id)
}

func (m *Memory) Put(ctx context.Context, t api.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.c.put(t, m.limit)
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.c.delete(id)
}

func (m *Memory) Commit(ctx context.Context, id string, tr Transition, snap *api.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.c.commit(id, tr, snap, m.limit)
}

func (m *Memory) Close() error {
	return nil
}
