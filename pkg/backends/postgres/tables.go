package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

func (b *Backend) GetDatabase(ctx context.Context, databaseID string) (*core.Database, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	var d core.Database
	err := b.DB.QueryRowContext(ctx,
		`SELECT id, name, enabled FROM lazy_catalog.databases WHERE id = $1`, databaseID,
	).Scan(&d.ID, &d.Name, &d.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("database %q not found", databaseID)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &d, nil
}

// CreateDatabase creates the schema backing the database and records it.
func (b *Backend) CreateDatabase(ctx context.Context, databaseID, name string) (*core.Database, error) {
	err := b.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "CREATE SCHEMA "+ident(databaseID)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO lazy_catalog.databases (id, name) VALUES ($1, $2)`, databaseID, name)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	b.Logger.Debug("created schema", "database", databaseID)
	return &core.Database{ID: databaseID, Name: name, Enabled: true}, nil
}

func (b *Backend) GetTable(ctx context.Context, databaseID, tableID string) (*core.Table, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	var (
		t     = core.Table{ID: tableID}
		perms []byte
	)
	err := b.DB.QueryRowContext(ctx,
		`SELECT name, permissions, row_security, enabled FROM lazy_catalog.tables
		WHERE database_id = $1 AND table_id = $2`, databaseID, tableID,
	).Scan(&t.Name, &perms, &t.RowSecurity, &t.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("table %q not found", tableID)
	}
	if err != nil {
		return nil, mapError(err)
	}
	if err := json.Unmarshal(perms, &t.Permissions); err != nil {
		return nil, fmt.Errorf("failed to decode permissions of %q: %w", tableID, err)
	}
	return &t, nil
}

// CreateTable creates the table with its system columns. Row security maps
// to PostgreSQL row level security.
func (b *Backend) CreateTable(ctx context.Context, databaseID string, spec core.TableSpec) (*core.Table, error) {
	perms := spec.Permissions
	if perms == nil {
		perms = []string{}
	}
	permsJSON, err := json.Marshal(perms)
	if err != nil {
		return nil, err
	}
	enabled := spec.Enabled == nil || *spec.Enabled
	qualified := ident(databaseID, spec.ID)

	err = b.InTx(ctx, func(tx *sql.Tx) error {
		ddl := fmt.Sprintf(`CREATE TABLE %s (
			"$id" TEXT PRIMARY KEY,
			"$createdAt" TIMESTAMPTZ NOT NULL DEFAULT now(),
			"$updatedAt" TIMESTAMPTZ NOT NULL DEFAULT now(),
			"$permissions" JSONB NOT NULL DEFAULT '[]'
		)`, qualified)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return err
		}
		if spec.RowSecurity {
			if _, err := tx.ExecContext(ctx, "ALTER TABLE "+qualified+" ENABLE ROW LEVEL SECURITY"); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO lazy_catalog.tables (database_id, table_id, name, permissions, row_security, enabled)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			databaseID, spec.ID, spec.Name, string(permsJSON), spec.RowSecurity, enabled)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &core.Table{
		ID:          spec.ID,
		Name:        spec.Name,
		Permissions: perms,
		RowSecurity: spec.RowSecurity,
		Enabled:     enabled,
	}, nil
}

func (b *Backend) UpdateTable(ctx context.Context, databaseID, tableID string, update core.TableUpdate) (*core.Table, error) {
	current, err := b.GetTable(ctx, databaseID, tableID)
	if err != nil {
		return nil, err
	}

	next := *current
	if update.Name != "" {
		next.Name = update.Name
	}
	if update.Permissions != nil {
		next.Permissions = update.Permissions
	}
	if update.RowSecurity != nil {
		next.RowSecurity = *update.RowSecurity
	}
	if update.Enabled != nil {
		next.Enabled = *update.Enabled
	}
	permsJSON, err := json.Marshal(next.Permissions)
	if err != nil {
		return nil, err
	}

	err = b.InTx(ctx, func(tx *sql.Tx) error {
		if next.RowSecurity != current.RowSecurity {
			action := "DISABLE"
			if next.RowSecurity {
				action = "ENABLE"
			}
			stmt := fmt.Sprintf("ALTER TABLE %s %s ROW LEVEL SECURITY", ident(databaseID, tableID), action)
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE lazy_catalog.tables SET name = $3, permissions = $4, row_security = $5, enabled = $6
			WHERE database_id = $1 AND table_id = $2`,
			databaseID, tableID, next.Name, string(permsJSON), next.RowSecurity, next.Enabled)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &next, nil
}
