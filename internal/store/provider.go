package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/config"
)

// MemoryProvider is the builtin data-store provider for ephemeral profiles.
type MemoryProvider struct{}

// NewMemoryProvider constructs the memory data-store provider.
func NewMemoryProvider() *MemoryProvider { return &MemoryProvider{} }

// ProviderID identifies this provider for singleton selection.
func (*MemoryProvider) ProviderID() string { return "memory" }

// CreateDataStore builds a fresh in-memory data store.
func (*MemoryProvider) CreateDataStore(_ context.Context, _ *config.Config) (DataStore, error) {
	return NewMemory(), nil
}

// PostgresProvider is the builtin data-store provider for the production
// profile.
type PostgresProvider struct{}

// NewPostgresProvider constructs the Postgres data-store provider.
func NewPostgresProvider() *PostgresProvider { return &PostgresProvider{} }

// ProviderID identifies this provider for singleton selection.
func (*PostgresProvider) ProviderID() string { return "postgres" }

// CreateDataStore connects the pool described by the data_store.postgres
// configuration section.
func (*PostgresProvider) CreateDataStore(ctx context.Context, cfg *config.Config) (DataStore, error) {
	return NewPostgres(ctx, PostgresConfig{
		DSN:             cfg.GetString("data_store.postgres.dsn", ""),
		Table:           cfg.GetString("data_store.postgres.table", "content_items"),
		MaxConns:        int32(cfg.GetInt("data_store.postgres.max_conns", 4)),
		MaxConnLifetime: time.Duration(cfg.GetInt("data_store.postgres.conn_lifetime_minutes", 30)) * time.Minute,
	})
}

// GCSProvider stores extracted text as Cloud Storage objects.
type GCSProvider struct {
	logger *zap.Logger
}

// NewGCSProvider constructs the GCS data-store provider.
func NewGCSProvider(logger *zap.Logger) *GCSProvider {
	return &GCSProvider{logger: logger}
}

// ProviderID identifies this provider for singleton selection.
func (*GCSProvider) ProviderID() string { return "gcs" }

// CreateDataStore builds a GCS-backed data store from the data_store.gcs
// configuration section.
func (p *GCSProvider) CreateDataStore(ctx context.Context, cfg *config.Config) (DataStore, error) {
	return NewGCS(ctx,
		cfg.GetString("data_store.gcs.bucket", ""),
		cfg.GetString("data_store.gcs.prefix", "items"),
		p.logger,
	)
}
