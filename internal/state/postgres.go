package state

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool backing the state
// store.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres persists partitioned state entries in a single table. Expected
// schema:
//
//	CREATE TABLE magpie_state (
//	    partition_key TEXT NOT NULL,
//	    entry_key     TEXT NOT NULL,
//	    entry_value   TEXT NOT NULL,
//	    version       INTEGER NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (partition_key, entry_key)
//	);
type Postgres struct {
	pool  pgxPool
	table string
}

// NewPostgres connects a pool and verifies the connection.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("state_store.postgres.dsn is required")
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
func NewPostgresWithPool(pool pgxPool, table string) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "magpie_state"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// Put upserts the entry under (partition, key).
func (p *Postgres) Put(ctx context.Context, partition, key, value string, version int) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (partition_key, entry_key, entry_value, version, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (partition_key, entry_key)
		DO UPDATE SET entry_value = EXCLUDED.entry_value,
		              version = EXCLUDED.version,
		              updated_at = NOW()
	`, p.table)
	if _, err := p.pool.Exec(ctx, query, partition, key, value, version); err != nil {
		return fmt.Errorf("upsert state entry: %w", err)
	}
	return nil
}

// Get returns the entry under (partition, key) and whether it exists.
func (p *Postgres) Get(ctx context.Context, partition, key string) (Entry, bool, error) {
	query := fmt.Sprintf(
		`SELECT entry_key, entry_value, version FROM %s WHERE partition_key = $1 AND entry_key = $2`,
		p.table)
	var e Entry
	err := p.pool.QueryRow(ctx, query, partition, key).Scan(&e.Key, &e.Value, &e.Version)
	if err == pgx.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query state entry: %w", err)
	}
	return e, true, nil
}

// Versioned returns the partition's entries with version < olderThan,
// sorted by key.
func (p *Postgres) Versioned(ctx context.Context, partition string, olderThan int) ([]Entry, error) {
	query := fmt.Sprintf(
		`SELECT entry_key, entry_value, version FROM %s
		 WHERE partition_key = $1 AND version < $2 ORDER BY entry_key`,
		p.table)
	rows, err := p.pool.Query(ctx, query, partition, olderThan)
	if err != nil {
		return nil, fmt.Errorf("query versioned entries: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.Version); err != nil {
			return nil, fmt.Errorf("scan versioned entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versioned entries: %w", err)
	}
	return out, nil
}

// KeysWithValue returns the partition's keys holding exactly value, sorted.
func (p *Postgres) KeysWithValue(ctx context.Context, partition, value string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT entry_key FROM %s WHERE partition_key = $1 AND entry_value = $2 ORDER BY entry_key`,
		p.table)
	rows, err := p.pool.Query(ctx, query, partition, value)
	if err != nil {
		return nil, fmt.Errorf("query keys by value: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return out, nil
}

// Purge removes every entry in the partition.
func (p *Postgres) Purge(ctx context.Context, partition string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE partition_key = $1`, p.table)
	if _, err := p.pool.Exec(ctx, query, partition); err != nil {
		return fmt.Errorf("purge partition: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
