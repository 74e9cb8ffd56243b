package backend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// BaseSQL provides common database/sql plumbing for SQL-backed backends.
// Embed it in concrete implementations to get Close and the exec helpers.
type BaseSQL struct {
	DB     *sql.DB
	Cfg    core.BackendConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQL) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQL) IsConnected() bool {
	return b.DB != nil
}

// Exec executes a statement that doesn't return rows.
func (b *BaseSQL) Exec(ctx context.Context, query string, args ...any) error {
	if b.DB == nil {
		return errNotConnected
	}
	if _, err := b.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// InTx runs fn inside a transaction, rolling back if fn fails.
func (b *BaseSQL) InTx(ctx context.Context, fn func(*sql.Tx) error) error {
	if b.DB == nil {
		return errNotConnected
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var errNotConnected = fmt.Errorf("database connection not established")
