package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/compozy/tdlimport/engine/infra/store"
	"github.com/compozy/tdlimport/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS
var gooseMu sync.Mutex

const (
	lockNamespace      = "tdlimport"
	defaultLockTimeout = 45 * time.Second
)

// ProvisionSchema prepares schema as a destination: it is dropped first when
// reset is set, created when missing and migrated to the embedded version.
// A Postgres advisory lock keyed on the schema serializes concurrent
// provisioners of the same destination.
func ProvisionSchema(ctx context.Context, cfg *Config, schema string, reset bool) error {
	connCfg, err := pgx.ParseConfig(dsn(cfg))
	if err != nil {
		return fmt.Errorf("postgres: parse config: %w", err)
	}
	connCfg.RuntimeParams["search_path"] = schema
	db := stdlib.OpenDB(*connCfg)
	defer db.Close()
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("postgres: acquire dedicated connection: %w", err)
	}
	defer conn.Close()
	log := logger.FromContext(ctx)
	lockCtx, cancel := context.WithTimeout(ctx, defaultLockTimeout)
	defer cancel()
	if _, err := conn.ExecContext(
		lockCtx,
		"select pg_advisory_lock(hashtext($1), hashtext($2))",
		lockNamespace,
		schema,
	); err != nil {
		return fmt.Errorf("postgres: acquire provisioning advisory lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(
			context.WithoutCancel(ctx),
			"select pg_advisory_unlock(hashtext($1), hashtext($2))",
			lockNamespace,
			schema,
		); err != nil {
			log.Warn("Failed to release provisioning advisory lock", "error", err)
		}
	}()
	ident := pgx.Identifier{schema}.Sanitize()
	if reset {
		if _, err := conn.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+ident+" CASCADE"); err != nil {
			return fmt.Errorf("postgres: drop schema: %w", err)
		}
	}
	if _, err := conn.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+ident); err != nil {
		return fmt.Errorf("postgres: create schema: %w", err)
	}
	return runMigrations(ctx, db)
}

// runMigrations applies migrations on the provided *sql.DB.
func runMigrations(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}()
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(store.NewMigrationLogger(logger.FromContext(ctx)))
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("postgres: set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("postgres: migrate up: %w", err)
	}
	return nil
}
