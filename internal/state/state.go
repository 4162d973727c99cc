// Package state defines the partitioned state store contract. Every entry
// lives under a partition key, the owning plugin's stable identity string,
// so two plugins using the same entry key never observe each other's values.
// Versions enable forward migration: a plugin can ask for entries written by
// an older version of itself and rewrite them.
package state

import "context"

// Entry is one stored (key, value, version) triple within a partition.
type Entry struct {
	Key     string
	Value   string
	Version int
}

// Store persists partitioned state entries. Implementations are responsible
// for their own concurrency safety under concurrent readers and writers.
type Store interface {
	// Put writes or replaces the entry under (partition, key).
	Put(ctx context.Context, partition, key, value string, version int) error

	// Get returns the entry under (partition, key) and whether it exists.
	Get(ctx context.Context, partition, key string) (Entry, bool, error)

	// Versioned returns the partition's entries whose stored version
	// predates olderThan, sorted by key.
	Versioned(ctx context.Context, partition string, olderThan int) ([]Entry, error)

	// KeysWithValue returns the partition's keys holding exactly value,
	// sorted.
	KeysWithValue(ctx context.Context, partition, value string) ([]string, error)

	// Purge removes every entry in the partition.
	Purge(ctx context.Context, partition string) error

	Close() error
}
