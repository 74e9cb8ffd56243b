package appwrite

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// rowDoc decodes a row. System attributes are prefixed with "$"; everything
// else is user data.
type rowDoc map[string]any

func (d rowDoc) toCore() *core.Row {
	row := &core.Row{Data: make(map[string]any, len(d))}
	for k, v := range d {
		if !strings.HasPrefix(k, "$") {
			row.Data[k] = v
			continue
		}
		switch k {
		case "$id":
			row.ID, _ = v.(string)
		case "$tableId":
			row.TableID, _ = v.(string)
		case "$databaseId":
			row.DatabaseID, _ = v.(string)
		case "$createdAt":
			row.CreatedAt = parseTime(v)
		case "$updatedAt":
			row.UpdatedAt = parseTime(v)
		case "$permissions":
			if list, ok := v.([]any); ok {
				for _, p := range list {
					if s, ok := p.(string); ok {
						row.Permissions = append(row.Permissions, s)
					}
				}
			}
		}
	}
	return row
}

func parseTime(v any) time.Time {
	s, _ := v.(string)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func rowsPath(databaseID, tableID string) string {
	return tablePath(databaseID, tableID) + "/rows"
}

func (b *Backend) CreateRow(ctx context.Context, databaseID, tableID, rowID string, data map[string]any, permissions []string) (*core.Row, error) {
	if rowID == "" {
		rowID = "unique()"
	}
	body := map[string]any{"rowId": rowID, "data": data}
	if permissions != nil {
		body["permissions"] = permissions
	}
	var doc rowDoc
	if err := b.do(ctx, http.MethodPost, rowsPath(databaseID, tableID), nil, body, &doc); err != nil {
		return nil, err
	}
	return doc.toCore(), nil
}

func (b *Backend) GetRow(ctx context.Context, databaseID, tableID, rowID string) (*core.Row, error) {
	var doc rowDoc
	if err := b.do(ctx, http.MethodGet, rowsPath(databaseID, tableID)+"/"+escape(rowID), nil, nil, &doc); err != nil {
		return nil, err
	}
	return doc.toCore(), nil
}

func (b *Backend) ListRows(ctx context.Context, databaseID, tableID string, queries []string) (*core.RowList, error) {
	var list struct {
		Total int      `json:"total"`
		Rows  []rowDoc `json:"rows"`
	}
	if err := b.do(ctx, http.MethodGet, rowsPath(databaseID, tableID), queries, nil, &list); err != nil {
		return nil, err
	}
	out := &core.RowList{Total: list.Total, Rows: make([]core.Row, 0, len(list.Rows))}
	for _, d := range list.Rows {
		out.Rows = append(out.Rows, *d.toCore())
	}
	return out, nil
}

func (b *Backend) UpdateRow(ctx context.Context, databaseID, tableID, rowID string, data map[string]any) (*core.Row, error) {
	var doc rowDoc
	body := map[string]any{"data": data}
	if err := b.do(ctx, http.MethodPatch, rowsPath(databaseID, tableID)+"/"+escape(rowID), nil, body, &doc); err != nil {
		return nil, err
	}
	return doc.toCore(), nil
}

func (b *Backend) DeleteRow(ctx context.Context, databaseID, tableID, rowID string) error {
	return b.do(ctx, http.MethodDelete, rowsPath(databaseID, tableID)+"/"+escape(rowID), nil, nil, nil)
}
