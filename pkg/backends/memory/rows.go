package memory

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// uniqueID is the placeholder asking the backend to pick a row id.
const uniqueID = "unique()"

func (b *Backend) CreateRow(_ context.Context, databaseID, tableID, rowID string, data map[string]any, permissions []string) (*core.Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpCreateRow); err != nil {
		return nil, err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil, err
	}
	if rowID == "" || rowID == uniqueID {
		rowID = uuid.NewString()
	}
	if _, ok := t.rows[rowID]; ok {
		return nil, core.Conflict("row %q already exists", rowID)
	}
	for key := range data {
		if t.column(key) == nil {
			return nil, badRequest("unknown column %q", key)
		}
	}
	for _, c := range t.columns {
		if _, ok := data[c.Key]; !ok && c.Required {
			return nil, badRequest("missing required column %q", c.Key)
		}
	}

	now := time.Now().UTC()
	row := &core.Row{
		ID:          rowID,
		TableID:     tableID,
		DatabaseID:  databaseID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Permissions: append([]string(nil), permissions...),
		Data:        maps.Clone(data),
	}
	t.rows[rowID] = row
	t.order = append(t.order, rowID)
	return cloneRow(row), nil
}

func (b *Backend) GetRow(_ context.Context, databaseID, tableID, rowID string) (*core.Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpGetRow); err != nil {
		return nil, err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil, err
	}
	row, ok := t.rows[rowID]
	if !ok {
		return nil, core.NotFound("row %q not found", rowID)
	}
	return cloneRow(row), nil
}

// ListRows returns every row in insertion order. Queries are not evaluated.
func (b *Backend) ListRows(_ context.Context, databaseID, tableID string, _ []string) (*core.RowList, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpListRows); err != nil {
		return nil, err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil, err
	}
	list := &core.RowList{Total: len(t.order)}
	for _, id := range t.order {
		list.Rows = append(list.Rows, *cloneRow(t.rows[id]))
	}
	return list, nil
}

func (b *Backend) UpdateRow(_ context.Context, databaseID, tableID, rowID string, data map[string]any) (*core.Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpUpdateRow); err != nil {
		return nil, err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil, err
	}
	row, ok := t.rows[rowID]
	if !ok {
		return nil, core.NotFound("row %q not found", rowID)
	}
	for key := range data {
		if t.column(key) == nil {
			return nil, badRequest("unknown column %q", key)
		}
	}
	if row.Data == nil {
		row.Data = make(map[string]any, len(data))
	}
	maps.Copy(row.Data, data)
	row.UpdatedAt = time.Now().UTC()
	return cloneRow(row), nil
}

func (b *Backend) DeleteRow(_ context.Context, databaseID, tableID, rowID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpDeleteRow); err != nil {
		return err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return err
	}
	if _, ok := t.rows[rowID]; !ok {
		return core.NotFound("row %q not found", rowID)
	}
	delete(t.rows, rowID)
	for i, id := range t.order {
		if id == rowID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

func cloneRow(r *core.Row) *core.Row {
	out := *r
	out.Permissions = append([]string(nil), r.Permissions...)
	out.Data = maps.Clone(r.Data)
	return &out
}
