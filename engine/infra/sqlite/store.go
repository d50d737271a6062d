package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/compozy/tdlimport/engine/infra/store"
	"github.com/compozy/tdlimport/pkg/logger"
)

const (
	driverName         = "sqlite"
	defaultBusyTimeout = 5 * time.Second
	memoryPath         = ":memory:"
)

// Store is the SQLite destination driver.
type Store struct {
	db      *sql.DB
	path    string
	release func() error
}

var _ store.Store = (*Store)(nil)

// NewStore opens the database described by cfg and verifies the connection.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, errors.New("sqlite: path is required")
	}
	db, err := sql.Open(driverName, buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// One connection keeps a single writer and a stable in-memory database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	logger.FromContext(ctx).With("store_driver", "sqlite", "path", cfg.Path).Debug("Store initialized")
	return &Store{db: db, path: cfg.Path}, nil
}

// buildDSN builds a modernc DSN with foreign keys and busy timeout pragmas.
func buildDSN(cfg *Config) string {
	timeout := cfg.BusyTimeout
	if timeout <= 0 {
		timeout = defaultBusyTimeout
	}
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", timeout.Milliseconds()))
	params.Set("_txlock", "immediate")
	query := strings.NewReplacer("%28", "(", "%29", ")").Replace(params.Encode())
	if cfg.Path == memoryPath {
		return "file::memory:?" + query
	}
	return "file:" + cfg.Path + "?" + query
}

// DB exposes the handle for driver-local use such as migrations.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Begin opens the load transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, store.Fault("begin transaction", err)
	}
	return &Tx{tx: tx}, nil
}

// Counts reports committed row totals.
func (s *Store) Counts(ctx context.Context) (store.Counts, error) {
	var c store.Counts
	if err := sqlscan.Get(ctx, s.db, &c, countsQuery); err != nil {
		return store.Counts{}, store.Fault("count rows", err)
	}
	return c, nil
}

const countsQuery = `SELECT
	(SELECT COUNT(*) FROM tasks) AS tasks,
	(SELECT COUNT(*) FROM categories) AS categories,
	(SELECT COUNT(*) FROM task_categories) AS task_categories`

// Close closes the database and releases the provisioning lock, if held.
func (s *Store) Close(ctx context.Context) error {
	err := s.db.Close()
	if s.release != nil {
		if uerr := s.release(); uerr != nil {
			logger.FromContext(ctx).Warn("sqlite: release lock failed", "error", uerr)
		}
		s.release = nil
	}
	if err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	return nil
}
