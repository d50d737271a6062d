package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/compozy/tdlimport/engine/infra/store"
	"github.com/compozy/tdlimport/pkg/logger"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultPingTimeout    = 3 * time.Second
	defaultMaxConns       = 4
	connectBackoffBase    = 200 * time.Millisecond
)

// DB is the minimal database interface the store depends on (pgxpool or pgxmock).
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the PostgreSQL destination driver. One destination is one schema.
type Store struct {
	db     DB
	pool   *pgxpool.Pool
	schema string
}

var _ store.Store = (*Store)(nil)

// NewStore opens a pool whose sessions resolve tables in schema.
func NewStore(ctx context.Context, cfg *Config, schema string) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("postgres: config is required")
	}
	poolCfg, err := buildPoolConfig(cfg, schema)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	if err := pingWithRetry(ctx, pool, cfg.ConnectRetries); err != nil {
		pool.Close()
		return nil, err
	}
	logger.FromContext(ctx).With(
		"store_driver", "postgres",
		"host", poolCfg.ConnConfig.Host,
		"db_name", poolCfg.ConnConfig.Database,
		"schema", schema,
	).Debug("Store initialized")
	return &Store{db: pool, pool: pool, schema: schema}, nil
}

// NewStoreWithDB wraps an existing handle, such as a pgxmock pool.
func NewStoreWithDB(db DB, schema string) *Store {
	return &Store{db: db, schema: schema}
}

func buildPoolConfig(cfg *Config, schema string) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	poolCfg.MaxConns = defaultMaxConns
	poolCfg.ConnConfig.ConnectTimeout = defaultConnectTimeout
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if schema != "" {
		poolCfg.ConnConfig.RuntimeParams["search_path"] = schema
	}
	return poolCfg, nil
}

// pingWithRetry pings with exponential backoff, giving up after retries
// extra attempts.
func pingWithRetry(ctx context.Context, pool *pgxpool.Pool, retries uint64) error {
	log := logger.FromContext(ctx)
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(connectBackoffBase))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			log.Debug("postgres: ping failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Schema returns the destination schema.
func (s *Store) Schema() string { return s.schema }

// Begin opens the load transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, store.Fault("begin transaction", err)
	}
	return &Tx{tx: tx}, nil
}

const countsQuery = `SELECT
	(SELECT COUNT(*) FROM tasks) AS tasks,
	(SELECT COUNT(*) FROM categories) AS categories,
	(SELECT COUNT(*) FROM task_categories) AS task_categories`

// Counts reports committed row totals.
func (s *Store) Counts(ctx context.Context) (store.Counts, error) {
	var c store.Counts
	if err := pgxscan.Get(ctx, s.db, &c, countsQuery); err != nil {
		return store.Counts{}, store.Fault("count rows", err)
	}
	return c, nil
}

// Close shuts down the connection pool.
func (s *Store) Close(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
		logger.FromContext(ctx).Debug("Postgres store closed", "schema", s.schema)
	}
	return nil
}
