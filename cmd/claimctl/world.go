package main

import (
	"context"
	"sync"

	"skyclaim.ai/internal/territory/keys"
	"skyclaim.ai/internal/territory/region"
)

// memWorld is an in-memory world used by the demo as both the physical
// scanner and the entity counter.
type memWorld struct {
	mu       sync.Mutex
	blocks   map[string]int
	entities map[string]int
}

func newMemWorld() *memWorld {
	return &memWorld{blocks: map[string]int{}, entities: map[string]int{}}
}

func (w *memWorld) place(key string, n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blocks[keys.Normalize(key)] += n
}

func (w *memWorld) spawn(entityType string, n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entities[keys.Normalize(entityType)] += n
}

func (w *memWorld) ScanRegion(ctx context.Context, _ region.Bounds) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int, len(w.blocks))
	for k, v := range w.blocks {
		out[k] = v
	}
	return out, nil
}

func (w *memWorld) CountEntities(ctx context.Context, _ region.Bounds, entityType string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entities[keys.Normalize(entityType)], nil
}
