// Package store maps structured crawl records onto the normalized relational
// schema: movies, the people/genre/region dimensions with their join tables,
// reviews, the brief_movies staging table and the failures ledger. It is the
// only writer of durable state.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Config controls pool sizing and transaction retry ceilings.
type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	MovieTxRetries  int
	ReviewTxRetries int
}

func (c Config) withDefaults() Config {
	if c.MovieTxRetries <= 0 {
		c.MovieTxRetries = 5
	}
	if c.ReviewTxRetries <= 0 {
		c.ReviewTxRetries = 3
	}
	return c
}

// Store implements catalog.Store over Postgres.
type Store struct {
	db     DB
	cfg    Config
	logger *zap.Logger
}

// New connects a pool and pings it. Failure here is the only process-fatal
// path in the system, so the caller is expected to abort on error.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
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
	return NewWithDB(pool, cfg, logger), nil
}

// NewWithDB constructs a store from an existing pool, primarily for tests.
func NewWithDB(db DB, cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, cfg: cfg.withDefaults(), logger: logger}
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.db.Close()
}

// nullIfEmpty maps empty strings onto SQL NULL for nullable columns.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
