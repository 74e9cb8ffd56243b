package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// indexName scopes an index key to its table; PostgreSQL index names are
// unique per schema.
func indexName(tableID, key string) string {
	return tableID + "_" + key
}

// indexDDL builds the CREATE INDEX statement for spec. Fulltext indexes use
// a GIN over a tsvector of the concatenated columns; spatial indexes use a
// GIN over the JSONB coordinates.
func indexDDL(databaseID, tableID string, spec core.IndexSpec) string {
	name := ident(indexName(tableID, spec.Key))
	on := ident(databaseID, tableID)

	switch spec.Type {
	case schema.IndexFulltext:
		cols := make([]string, len(spec.Columns))
		for i, c := range spec.Columns {
			cols[i] = fmt.Sprintf("coalesce(%s::text, '')", ident(c))
		}
		return fmt.Sprintf("CREATE INDEX %s ON %s USING GIN (to_tsvector('simple', %s))",
			name, on, strings.Join(cols, " || ' ' || "))
	case schema.IndexSpatial:
		cols := make([]string, len(spec.Columns))
		for i, c := range spec.Columns {
			cols[i] = ident(c)
		}
		return fmt.Sprintf("CREATE INDEX %s ON %s USING GIN (%s)", name, on, strings.Join(cols, ", "))
	}

	unique := ""
	if spec.Type == schema.IndexUnique {
		unique = "UNIQUE "
	}
	cols := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		cols[i] = ident(c)
		if i < len(spec.Orders) && strings.EqualFold(spec.Orders[i], "DESC") {
			cols[i] += " DESC"
		}
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, name, on, strings.Join(cols, ", "))
}

func scanIndex(scan func(dest ...any) error) (core.Index, error) {
	var (
		idx          core.Index
		typ          string
		cols, orders []byte
	)
	if err := scan(&idx.Key, &typ, &cols, &orders); err != nil {
		return idx, err
	}
	idx.Type = schema.IndexType(typ)
	idx.Status = core.StatusAvailable
	if err := json.Unmarshal(cols, &idx.Columns); err != nil {
		return idx, fmt.Errorf("failed to decode index columns: %w", err)
	}
	if len(orders) > 0 {
		if err := json.Unmarshal(orders, &idx.Orders); err != nil {
			return idx, fmt.Errorf("failed to decode index orders: %w", err)
		}
	}
	return idx, nil
}

func (b *Backend) ListIndexes(ctx context.Context, databaseID, tableID string) ([]core.Index, error) {
	if _, err := b.GetTable(ctx, databaseID, tableID); err != nil {
		return nil, err
	}
	rows, err := b.DB.QueryContext(ctx,
		`SELECT key, type, columns, orders FROM lazy_catalog.indexes
		WHERE database_id = $1 AND table_id = $2 ORDER BY key`, databaseID, tableID)
	if err != nil {
		return nil, mapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Index
	for rows.Next() {
		idx, err := scanIndex(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index specs: %w", err)
	}
	return out, nil
}

func (b *Backend) GetIndex(ctx context.Context, databaseID, tableID, key string) (*core.Index, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	row := b.DB.QueryRowContext(ctx,
		`SELECT key, type, columns, orders FROM lazy_catalog.indexes
		WHERE database_id = $1 AND table_id = $2 AND key = $3`, databaseID, tableID, key)
	idx, err := scanIndex(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("index %q not found", key)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &idx, nil
}

func (b *Backend) CreateIndex(ctx context.Context, databaseID, tableID string, spec core.IndexSpec) error {
	cols, err := json.Marshal(spec.Columns)
	if err != nil {
		return err
	}
	var orders any
	if spec.Orders != nil {
		data, err := json.Marshal(spec.Orders)
		if err != nil {
			return err
		}
		orders = string(data)
	}
	err = b.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, indexDDL(databaseID, tableID, spec)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO lazy_catalog.indexes (database_id, table_id, key, type, columns, orders)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			databaseID, tableID, spec.Key, string(spec.Type), string(cols), orders)
		return err
	})
	return mapError(err)
}

func (b *Backend) DeleteIndex(ctx context.Context, databaseID, tableID, key string) error {
	err := b.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM lazy_catalog.indexes WHERE database_id = $1 AND table_id = $2 AND key = $3`,
			databaseID, tableID, key)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return core.NotFound("index %q not found", key)
		}
		_, err = tx.ExecContext(ctx, "DROP INDEX IF EXISTS "+ident(databaseID, indexName(tableID, key)))
		return err
	})
	return mapError(err)
}
