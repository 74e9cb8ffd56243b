package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// columnType returns the PostgreSQL type for a declared column. Geometry is
// stored as GeoJSON-style coordinates in JSONB, and relationships hold the
// related row id.
func columnType(col schema.Column) string {
	var typ string
	switch col.Kind {
	case schema.KindString:
		typ = fmt.Sprintf("VARCHAR(%d)", col.Size)
	case schema.KindInteger:
		typ = "BIGINT"
	case schema.KindFloat:
		typ = "DOUBLE PRECISION"
	case schema.KindBoolean:
		typ = "BOOLEAN"
	case schema.KindDatetime:
		typ = "TIMESTAMPTZ"
	case schema.KindPoint, schema.KindLine, schema.KindPolygon:
		return "JSONB"
	case schema.KindRelationship:
		typ = "TEXT"
		if col.Relation != nil && (col.Relation.Type == schema.OneToMany || col.Relation.Type == schema.ManyToMany) {
			typ += "[]"
		}
		return typ
	default:
		typ = "TEXT"
	}
	if col.Array {
		typ += "[]"
	}
	return typ
}

// literal renders a default value as a SQL literal. Only scalar defaults
// are supported.
func literal(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("unsupported default value %v (%T)", v, v)
}

// columnDDL returns the definition used in ALTER TABLE ... ADD COLUMN.
func columnDDL(col schema.Column) (string, error) {
	def := ident(col.Key) + " " + columnType(col)
	if col.Required {
		def += " NOT NULL"
	}
	if col.Default != nil && !col.Array {
		lit, err := literal(col.Default)
		if err != nil {
			return "", err
		}
		def += " DEFAULT " + lit
	}
	return def, nil
}

func toCoreColumn(col schema.Column) core.Column {
	return core.Column{
		Key:      col.Key,
		Kind:     col.Kind,
		Status:   core.StatusAvailable,
		Required: col.Required,
		Array:    col.Array,
		Size:     col.Size,
		Elements: col.Elements,
		Min:      col.Min,
		Max:      col.Max,
		Default:  col.Default,
		Relation: col.Relation,
	}
}

func (b *Backend) ListColumns(ctx context.Context, databaseID, tableID string) ([]core.Column, error) {
	if _, err := b.GetTable(ctx, databaseID, tableID); err != nil {
		return nil, err
	}
	rows, err := b.DB.QueryContext(ctx,
		`SELECT spec FROM lazy_catalog.columns WHERE database_id = $1 AND table_id = $2 ORDER BY position`,
		databaseID, tableID)
	if err != nil {
		return nil, mapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Column
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan column spec: %w", err)
		}
		var col schema.Column
		if err := json.Unmarshal(raw, &col); err != nil {
			return nil, fmt.Errorf("failed to decode column spec: %w", err)
		}
		out = append(out, toCoreColumn(col))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column specs: %w", err)
	}
	return out, nil
}

func (b *Backend) GetColumn(ctx context.Context, databaseID, tableID, key string) (*core.Column, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	var raw []byte
	err := b.DB.QueryRowContext(ctx,
		`SELECT spec FROM lazy_catalog.columns WHERE database_id = $1 AND table_id = $2 AND key = $3`,
		databaseID, tableID, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("column %q not found", key)
	}
	if err != nil {
		return nil, mapError(err)
	}
	var col schema.Column
	if err := json.Unmarshal(raw, &col); err != nil {
		return nil, fmt.Errorf("failed to decode column spec: %w", err)
	}
	c := toCoreColumn(col)
	return &c, nil
}

func (b *Backend) CreateColumn(ctx context.Context, databaseID, tableID string, col schema.Column) error {
	def, err := columnDDL(col)
	if err != nil {
		return &core.APIError{Code: http.StatusBadRequest, Type: "column_invalid", Message: err.Error()}
	}
	spec, err := json.Marshal(col)
	if err != nil {
		return err
	}
	err = b.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "ALTER TABLE "+ident(databaseID, tableID)+" ADD COLUMN "+def); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO lazy_catalog.columns (database_id, table_id, key, spec) VALUES ($1, $2, $3, $4)`,
			databaseID, tableID, col.Key, string(spec))
		return err
	})
	return mapError(err)
}

// UpdateColumn widens string columns and rewrites the stored spec. Enum
// elements live only in the catalog.
func (b *Backend) UpdateColumn(ctx context.Context, databaseID, tableID string, col schema.Column) error {
	spec, err := json.Marshal(col)
	if err != nil {
		return err
	}
	qualified := ident(databaseID, tableID)
	err = b.InTx(ctx, func(tx *sql.Tx) error {
		if col.Kind == schema.KindString {
			stmt := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", qualified, ident(col.Key), columnType(col))
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE lazy_catalog.columns SET spec = $4 WHERE database_id = $1 AND table_id = $2 AND key = $3`,
			databaseID, tableID, col.Key, string(spec))
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return core.NotFound("column %q not found", col.Key)
		}
		return nil
	})
	return mapError(err)
}
