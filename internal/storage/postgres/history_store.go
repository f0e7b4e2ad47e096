// Package postgres records search history rows in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mouseminar/job-mcp/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "search_history"

// Config controls the Postgres connection pool used for history rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// HistoryStore writes one row per completed search.
type HistoryStore struct {
	pool  execCloser
	table string
}

// NewHistoryStore connects a pool using cfg.
func NewHistoryStore(ctx context.Context, cfg Config) (*HistoryStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
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
	return &HistoryStore{pool: pool, table: table}, nil
}

// NewHistoryStoreWithPool builds a store around an existing pool.
func NewHistoryStoreWithPool(pool execCloser, table string) (*HistoryStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &HistoryStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		return defaultTable, nil
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the pool.
func (s *HistoryStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RecordSearch inserts entry.
func (s *HistoryStore) RecordSearch(ctx context.Context, entry crawler.SearchHistory) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("history store is not configured")
	}
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	params, err := json.Marshal(entry.Query)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	bySource, err := json.Marshal(nonNil(entry.BySource))
	if err != nil {
		return fmt.Errorf("marshal by_source: %w", err)
	}
	errs, err := json.Marshal(nonNil(entry.Errors))
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	position,
	city,
	success,
	total,
	by_source,
	errors,
	params,
	blob_uri,
	completed_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)`, s.table)

	args := []any{
		entry.RunID,
		entry.Query.Position,
		entry.Query.City,
		entry.Success,
		entry.Total,
		bySource,
		errs,
		params,
		entry.BlobURI,
		entry.Completed,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert search history: %w", err)
	}
	return nil
}

func nonNil[V any](m map[string]V) map[string]V {
	if m == nil {
		return map[string]V{}
	}
	return m
}
