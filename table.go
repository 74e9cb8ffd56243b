package lazyappwrite

import (
	"context"
	"fmt"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// Table performs row operations on a declared table. Mutations sync the
// table first; reads never wait for a sync.
type Table struct {
	client *Client
	schema schema.Table
}

// Table returns the row façade for a declared table.
func (c *Client) Table(t schema.Table) *Table {
	return &Table{client: c, schema: t}
}

// Schema returns the declaration the façade operates on.
func (t *Table) Schema() schema.Table {
	return t.schema
}

func (t *Table) rows() (core.RowBackend, error) {
	rb, ok := t.client.backend.(core.RowBackend)
	if !ok {
		return nil, core.NewConfigError("rows", "backend does not support row operations", nil)
	}
	return rb, nil
}

// checkRequired reports the first required column missing from data.
func (t *Table) checkRequired(data map[string]any) error {
	for _, col := range t.schema.Columns {
		if !col.Required {
			continue
		}
		if v, ok := data[col.Key]; !ok || v == nil {
			return core.NewValidationError(fmt.Sprintf("missing required field %q for table %q", col.Key, t.schema.ID), nil)
		}
	}
	return nil
}

// Create inserts a row. An empty rowID lets the backend choose one.
func (t *Table) Create(ctx context.Context, rowID string, data map[string]any, permissions ...string) (*core.Row, error) {
	rb, err := t.rows()
	if err != nil {
		return nil, err
	}
	if err := t.checkRequired(data); err != nil {
		return nil, err
	}
	if err := t.client.EnsureSynced(ctx, t.schema); err != nil {
		return nil, err
	}
	row, err := rb.CreateRow(ctx, t.client.databaseID, t.schema.ID, rowID, data, permissions)
	if err != nil {
		return nil, core.NewAppwriteError(fmt.Sprintf("failed to create row in %q", t.schema.ID), err)
	}
	return row, nil
}

// Get fetches one row. If the table is missing remotely, a background sync
// is started and the not-found error is returned.
func (t *Table) Get(ctx context.Context, rowID string) (*core.Row, error) {
	rb, err := t.rows()
	if err != nil {
		return nil, err
	}
	row, err := rb.GetRow(ctx, t.client.databaseID, t.schema.ID, rowID)
	if err != nil {
		t.syncIfMissing(ctx, err)
		return nil, core.NewAppwriteError(fmt.Sprintf("failed to get row %q from %q", rowID, t.schema.ID), err)
	}
	return row, nil
}

// List returns rows matching queries. A missing table yields an empty
// result and starts a background sync.
func (t *Table) List(ctx context.Context, queries ...string) (*core.RowList, error) {
	rb, err := t.rows()
	if err != nil {
		return nil, err
	}
	list, err := rb.ListRows(ctx, t.client.databaseID, t.schema.ID, queries)
	if err != nil {
		if core.IsNotFound(err) {
			t.syncIfMissing(ctx, err)
			return &core.RowList{Rows: []core.Row{}}, nil
		}
		return nil, core.NewAppwriteError(fmt.Sprintf("failed to list rows of %q", t.schema.ID), err)
	}
	return list, nil
}

// Update patches a row.
func (t *Table) Update(ctx context.Context, rowID string, data map[string]any) (*core.Row, error) {
	rb, err := t.rows()
	if err != nil {
		return nil, err
	}
	if err := t.client.EnsureSynced(ctx, t.schema); err != nil {
		return nil, err
	}
	row, err := rb.UpdateRow(ctx, t.client.databaseID, t.schema.ID, rowID, data)
	if err != nil {
		return nil, core.NewAppwriteError(fmt.Sprintf("failed to update row %q in %q", rowID, t.schema.ID), err)
	}
	return row, nil
}

// Delete removes a row.
func (t *Table) Delete(ctx context.Context, rowID string) error {
	rb, err := t.rows()
	if err != nil {
		return err
	}
	if err := t.client.EnsureSynced(ctx, t.schema); err != nil {
		return err
	}
	if err := rb.DeleteRow(ctx, t.client.databaseID, t.schema.ID, rowID); err != nil {
		return core.NewAppwriteError(fmt.Sprintf("failed to delete row %q from %q", rowID, t.schema.ID), err)
	}
	return nil
}

// syncIfMissing starts a background sync when a read failed with not-found
// on a table that has not been verified.
func (t *Table) syncIfMissing(ctx context.Context, err error) {
	if !core.IsNotFound(err) || t.client.IsVerified(t.schema.ID) {
		return
	}
	t.client.syncInBackground(ctx, t.schema)
}
