package appwrite

import (
	"context"
	"net/http"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

type databaseDoc struct {
	ID      string `json:"$id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type tableDoc struct {
	ID          string   `json:"$id"`
	Name        string   `json:"name"`
	Permissions []string `json:"$permissions"`
	RowSecurity bool     `json:"rowSecurity"`
	Enabled     bool     `json:"enabled"`
}

func (d tableDoc) toCore() *core.Table {
	return &core.Table{
		ID:          d.ID,
		Name:        d.Name,
		Permissions: d.Permissions,
		RowSecurity: d.RowSecurity,
		Enabled:     d.Enabled,
	}
}

type indexDoc struct {
	Key     string   `json:"key"`
	Type    string   `json:"type"`
	Status  string   `json:"status"`
	Error   string   `json:"error"`
	Columns []string `json:"columns"`
	Orders  []string `json:"orders"`
}

func (d indexDoc) toCore() core.Index {
	return core.Index{
		Key:     d.Key,
		Type:    schema.IndexType(d.Type),
		Columns: d.Columns,
		Orders:  d.Orders,
		Status:  core.Status(d.Status),
		Error:   d.Error,
	}
}

// Ping lists databases with a limit of one.
func (b *Backend) Ping(ctx context.Context) error {
	return b.do(ctx, http.MethodGet, "/tablesdb", []string{query("limit", 1)}, nil, nil)
}

func (b *Backend) GetDatabase(ctx context.Context, databaseID string) (*core.Database, error) {
	var doc databaseDoc
	if err := b.do(ctx, http.MethodGet, databasePath(databaseID), nil, nil, &doc); err != nil {
		return nil, err
	}
	return &core.Database{ID: doc.ID, Name: doc.Name, Enabled: doc.Enabled}, nil
}

func (b *Backend) CreateDatabase(ctx context.Context, databaseID, name string) (*core.Database, error) {
	body := map[string]any{"databaseId": databaseID, "name": name}
	var doc databaseDoc
	if err := b.do(ctx, http.MethodPost, "/tablesdb", nil, body, &doc); err != nil {
		return nil, err
	}
	return &core.Database{ID: doc.ID, Name: doc.Name, Enabled: doc.Enabled}, nil
}

func (b *Backend) GetTable(ctx context.Context, databaseID, tableID string) (*core.Table, error) {
	var doc tableDoc
	if err := b.do(ctx, http.MethodGet, tablePath(databaseID, tableID), nil, nil, &doc); err != nil {
		return nil, err
	}
	return doc.toCore(), nil
}

func (b *Backend) CreateTable(ctx context.Context, databaseID string, spec core.TableSpec) (*core.Table, error) {
	perms := spec.Permissions
	if perms == nil {
		perms = []string{}
	}
	body := map[string]any{
		"tableId":     spec.ID,
		"name":        spec.Name,
		"permissions": perms,
		"rowSecurity": spec.RowSecurity,
	}
	if spec.Enabled != nil {
		body["enabled"] = *spec.Enabled
	}
	var doc tableDoc
	if err := b.do(ctx, http.MethodPost, databasePath(databaseID)+"/tables", nil, body, &doc); err != nil {
		return nil, err
	}
	return doc.toCore(), nil
}

func (b *Backend) UpdateTable(ctx context.Context, databaseID, tableID string, update core.TableUpdate) (*core.Table, error) {
	body := map[string]any{"name": update.Name}
	if update.Permissions != nil {
		body["permissions"] = update.Permissions
	}
	if update.RowSecurity != nil {
		body["rowSecurity"] = *update.RowSecurity
	}
	if update.Enabled != nil {
		body["enabled"] = *update.Enabled
	}
	var doc tableDoc
	if err := b.do(ctx, http.MethodPut, tablePath(databaseID, tableID), nil, body, &doc); err != nil {
		return nil, err
	}
	return doc.toCore(), nil
}

func (b *Backend) ListIndexes(ctx context.Context, databaseID, tableID string) ([]core.Index, error) {
	var list struct {
		Total   int        `json:"total"`
		Indexes []indexDoc `json:"indexes"`
	}
	if err := b.do(ctx, http.MethodGet, tablePath(databaseID, tableID)+"/indexes", nil, nil, &list); err != nil {
		return nil, err
	}
	out := make([]core.Index, 0, len(list.Indexes))
	for _, d := range list.Indexes {
		out = append(out, d.toCore())
	}
	return out, nil
}

func (b *Backend) GetIndex(ctx context.Context, databaseID, tableID, key string) (*core.Index, error) {
	var doc indexDoc
	if err := b.do(ctx, http.MethodGet, tablePath(databaseID, tableID)+"/indexes/"+escape(key), nil, nil, &doc); err != nil {
		return nil, err
	}
	idx := doc.toCore()
	return &idx, nil
}

func (b *Backend) CreateIndex(ctx context.Context, databaseID, tableID string, spec core.IndexSpec) error {
	body := map[string]any{
		"key":     spec.Key,
		"type":    string(spec.Type),
		"columns": spec.Columns,
	}
	if spec.Orders != nil {
		body["orders"] = spec.Orders
	}
	return b.do(ctx, http.MethodPost, tablePath(databaseID, tableID)+"/indexes", nil, body, nil)
}

func (b *Backend) DeleteIndex(ctx context.Context, databaseID, tableID, key string) error {
	return b.do(ctx, http.MethodDelete, tablePath(databaseID, tableID)+"/indexes/"+escape(key), nil, nil, nil)
}
