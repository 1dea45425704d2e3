package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
)

// MemoryBackend keeps records in a map guarded by a RWMutex. Records are
// cloned on the way in and out, so callers never share state with the store.
type MemoryBackend struct {
	mu     sync.RWMutex
	byID   map[string]*models.Record
	order  []string
	closed bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{byID: make(map[string]*models.Record)}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Add(_ context.Context, r *models.Record) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("add record: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, ok := b.byID[r.ID]; ok {
		return fmt.Errorf("add record %s: %w", r.ID, ErrDuplicateID)
	}
	b.byID[r.ID] = r.Clone()
	b.order = append(b.order, r.ID)
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, id string) (*models.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	return b.byID[id].Clone(), nil
}

func (b *MemoryBackend) Update(_ context.Context, id string, p models.Patch) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false, ErrClosed
	}
	r, ok := b.byID[id]
	if !ok {
		return false, nil
	}
	p.Apply(r)
	return true, nil
}

func (b *MemoryBackend) Delete(_ context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false, ErrClosed
	}
	if _, ok := b.byID[id]; !ok {
		return false, nil
	}
	delete(b.byID, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// GetAll returns clones of every record in insertion order.
func (b *MemoryBackend) GetAll(_ context.Context) ([]*models.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	out := make([]*models.Record, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.byID[id].Clone())
	}
	return out, nil
}

func (b *MemoryBackend) IncrementAccess(_ context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false, ErrClosed
	}
	r, ok := b.byID[id]
	if !ok {
		return false, nil
	}
	r.Metadata.AccessCount++
	return true, nil
}

func (b *MemoryBackend) FindByContentHash(_ context.Context, hash string) (*models.Record, error) {
	if hash == "" {
		return nil, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	for _, id := range b.order {
		if r := b.byID[id]; r.ContentHash == hash {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

func (b *MemoryBackend) Count(_ context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, ErrClosed
	}
	return len(b.byID), nil
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
