package state

import (
	"context"
	"time"

	"github.com/magpie-engine/magpie/internal/config"
)

// MemoryProvider is the builtin state-store provider for ephemeral profiles.
type MemoryProvider struct{}

// NewMemoryProvider constructs the memory state-store provider.
func NewMemoryProvider() *MemoryProvider { return &MemoryProvider{} }

// ProviderID identifies this provider for singleton selection.
func (*MemoryProvider) ProviderID() string { return "memory" }

// CreateStateStore builds a fresh in-memory state store.
func (*MemoryProvider) CreateStateStore(_ context.Context, _ *config.Config) (Store, error) {
	return NewMemory(), nil
}

// PostgresProvider is the builtin state-store provider for the production
// profile.
type PostgresProvider struct{}

// NewPostgresProvider constructs the Postgres state-store provider.
func NewPostgresProvider() *PostgresProvider { return &PostgresProvider{} }

// ProviderID identifies this provider for singleton selection.
func (*PostgresProvider) ProviderID() string { return "postgres" }

// CreateStateStore connects the pool described by the state_store.postgres
// configuration section.
func (*PostgresProvider) CreateStateStore(ctx context.Context, cfg *config.Config) (Store, error) {
	return NewPostgres(ctx, PostgresConfig{
		DSN:             cfg.GetString("state_store.postgres.dsn", ""),
		Table:           cfg.GetString("state_store.postgres.table", "magpie_state"),
		MaxConns:        int32(cfg.GetInt("state_store.postgres.max_conns", 4)),
		MaxConnLifetime: time.Duration(cfg.GetInt("state_store.postgres.conn_lifetime_minutes", 30)) * time.Minute,
	})
}
