package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/magpie-engine/magpie/internal/metadata"
)

// Memory collects items in process memory. Used by the test profile and as
// the assertion point for pipeline tests.
type Memory struct {
	mu    sync.Mutex
	items []Item
}

// NewMemory constructs an empty in-memory data store.
func NewMemory() *Memory { return &Memory{} }

// AddItem appends the item and returns its generated id.
func (m *Memory) AddItem(_ context.Context, text string, md metadata.Metadata) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	m.items = append(m.items, Item{ID: id, Text: text, Metadata: md.Copy()})
	m.mu.Unlock()
	return id, nil
}

// Items returns a snapshot copy of everything stored so far.
func (m *Memory) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

// Close discards all items.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.items = nil
	m.mu.Unlock()
	return nil
}
