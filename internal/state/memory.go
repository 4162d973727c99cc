package state

import (
	"context"
	"sort"
	"sync"
)

// Memory is the in-process state store used by the test and development
// profiles.
type Memory struct {
	mu         sync.RWMutex
	partitions map[string]map[string]Entry
}

// NewMemory constructs an empty in-memory state store.
func NewMemory() *Memory {
	return &Memory{partitions: make(map[string]map[string]Entry)}
}

// Put writes or replaces the entry under (partition, key).
func (m *Memory) Put(_ context.Context, partition, key, value string, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.partitions[partition]
	if !ok {
		p = make(map[string]Entry)
		m.partitions[partition] = p
	}
	p[key] = Entry{Key: key, Value: value, Version: version}
	return nil
}

// Get returns the entry under (partition, key) and whether it exists.
func (m *Memory) Get(_ context.Context, partition, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.partitions[partition][key]
	return e, ok, nil
}

// Versioned returns the partition's entries with version < olderThan,
// sorted by key.
func (m *Memory) Versioned(_ context.Context, partition string, olderThan int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for _, e := range m.partitions[partition] {
		if e.Version < olderThan {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// KeysWithValue returns the partition's keys holding exactly value, sorted.
func (m *Memory) KeysWithValue(_ context.Context, partition, value string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k, e := range m.partitions[partition] {
		if e.Value == value {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Purge removes every entry in the partition.
func (m *Memory) Purge(_ context.Context, partition string) error {
	m.mu.Lock()
	delete(m.partitions, partition)
	m.mu.Unlock()
	return nil
}

// Close discards all partitions.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.partitions = make(map[string]map[string]Entry)
	m.mu.Unlock()
	return nil
}
