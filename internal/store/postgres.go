package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/magpie-engine/magpie/internal/metadata"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool used for content
// items.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Postgres writes content items into Postgres. Expected schema:
//
//	CREATE TABLE content_items (
//	    id          UUID PRIMARY KEY,
//	    source_url  TEXT NOT NULL,
//	    title       TEXT,
//	    mime_type   TEXT,
//	    body        TEXT NOT NULL,
//	    metadata    JSONB NOT NULL,
//	    stored_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Postgres struct {
	pool  execCloser
	table string
}

// NewPostgres connects a pool and verifies the connection.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("data_store.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresWithPool(pool, cfg.Table)
}

// NewPostgresWithPool constructs a store from an existing pool (primarily
// for testing).
func NewPostgresWithPool(pool execCloser, table string) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "content_items"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// AddItem inserts one row and returns its generated id.
func (p *Postgres) AddItem(ctx context.Context, text string, md metadata.Metadata) (string, error) {
	mdJSON, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	id := uuid.NewString()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, source_url, title, mime_type, body, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.table)
	if _, err := p.pool.Exec(ctx, query, id, md.SourceURL, md.Title, md.MimeType, text, mdJSON); err != nil {
		return "", fmt.Errorf("insert content item: %w", err)
	}
	return id, nil
}

// Close releases the underlying pool resources.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
