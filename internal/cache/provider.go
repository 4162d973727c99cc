package cache

import (
	"github.com/magpie-engine/magpie/internal/config"
)

// MemoryProvider is the builtin cache provider used by the test and
// development profiles.
type MemoryProvider struct{}

// NewMemoryProvider constructs the memory cache provider.
func NewMemoryProvider() *MemoryProvider { return &MemoryProvider{} }

// ProviderID identifies this provider for singleton selection.
func (*MemoryProvider) ProviderID() string { return "memory" }

// CreateCache builds a fresh in-memory cache. The configuration carries no
// knobs for this backend.
func (*MemoryProvider) CreateCache(_ *config.Config) (Cache, error) {
	return NewMemory(), nil
}
