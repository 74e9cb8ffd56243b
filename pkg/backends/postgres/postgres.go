package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/Ghunter254/lazy-appwrite/pkg/backend"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// catalogSchema holds the declared metadata PostgreSQL has no place for:
// permissions, enabled flags, column specs and index specs.
const catalogSchema = "lazy_catalog"

var catalogDDL = []string{
	`CREATE SCHEMA IF NOT EXISTS lazy_catalog`,
	`CREATE TABLE IF NOT EXISTS lazy_catalog.databases (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS lazy_catalog.tables (
		database_id TEXT NOT NULL REFERENCES lazy_catalog.databases(id) ON DELETE CASCADE,
		table_id TEXT NOT NULL,
		name TEXT NOT NULL,
		permissions JSONB NOT NULL DEFAULT '[]',
		row_security BOOLEAN NOT NULL DEFAULT FALSE,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (database_id, table_id)
	)`,
	`CREATE TABLE IF NOT EXISTS lazy_catalog.columns (
		database_id TEXT NOT NULL,
		table_id TEXT NOT NULL,
		key TEXT NOT NULL,
		position SERIAL,
		spec JSONB NOT NULL,
		PRIMARY KEY (database_id, table_id, key),
		FOREIGN KEY (database_id, table_id) REFERENCES lazy_catalog.tables ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS lazy_catalog.indexes (
		database_id TEXT NOT NULL,
		table_id TEXT NOT NULL,
		key TEXT NOT NULL,
		type TEXT NOT NULL,
		columns JSONB NOT NULL,
		orders JSONB,
		PRIMARY KEY (database_id, table_id, key),
		FOREIGN KEY (database_id, table_id) REFERENCES lazy_catalog.tables ON DELETE CASCADE
	)`,
}

// Backend implements core.Backend for PostgreSQL. A database is a schema,
// a table is a table keyed by "$id", and columns and indexes are native.
// Every structural object is available as soon as its DDL commits.
type Backend struct {
	backend.BaseSQL
}

var _ core.Backend = (*Backend)(nil)

// New creates a new PostgreSQL backend instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{
		BaseSQL: backend.BaseSQL{Logger: logger},
	}
}

// Connect opens the connection and creates the catalog schema if needed.
func (b *Backend) Connect(ctx context.Context, cfg core.BackendConfig) error {
	if cfg.Database == "" {
		return fmt.Errorf("postgres database name is required")
	}
	dsn := buildPostgresDSN(cfg)

	b.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", mapError(err))
	}

	b.DB = db
	b.Cfg = cfg
	if err := b.ensureCatalog(ctx); err != nil {
		_ = db.Close()
		b.DB = nil
		return err
	}
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg core.BackendConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

func (b *Backend) ensureCatalog(ctx context.Context) error {
	return b.InTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range catalogDDL {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create %s schema: %w", catalogSchema, err)
			}
		}
		return nil
	})
}

// Ping checks the connection.
func (b *Backend) Ping(ctx context.Context) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	return mapError(b.DB.PingContext(ctx))
}

// ident quotes a possibly schema-qualified identifier.
func ident(parts ...string) string {
	return pgx.Identifier(parts).Sanitize()
}

// mapError translates driver errors into status-coded API errors so the
// engine can tell idempotent conflicts and missing objects apart from
// real failures.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound("not found")
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	code := statusFor(pgErr.Code)
	if code == 0 {
		return err
	}
	return &core.APIError{Code: code, Type: pgErr.Code, Message: pgErr.Message}
}

func statusFor(sqlState string) int {
	switch sqlState {
	case "42P06", "42P07", "42701", "42710", "23505":
		return http.StatusConflict
	case "3F000", "42P01", "42704":
		return http.StatusNotFound
	case "42703", "42804", "23502", "22P02":
		return http.StatusBadRequest
	case "40001", "40P01", "53300", "57P03":
		return http.StatusServiceUnavailable
	case "28000", "28P01":
		return http.StatusUnauthorized
	}
	return 0
}
