package memory

import (
	"slices"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// Seeding and inspection helpers. None of these count as calls.

// PutTable creates or replaces a table, creating its database if needed.
func (b *Backend) PutTable(databaseID string, t core.Table) {
	b.mu.Lock()
	defer b.mu.Unlock()
	db, ok := b.databases[databaseID]
	if !ok {
		db = &database{
			info:   core.Database{ID: databaseID, Name: databaseID, Enabled: true},
			tables: make(map[string]*table),
		}
		b.databases[databaseID] = db
	}
	db.tables[t.ID] = &table{info: *cloneTable(t), rows: make(map[string]*core.Row)}
}

// PutColumn adds or replaces a column on an existing table.
func (b *Backend) PutColumn(databaseID, tableID string, c core.Column) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.mustTable(databaseID, tableID)
	if c.Status == "" {
		c.Status = core.StatusAvailable
	}
	if existing := t.column(c.Key); existing != nil {
		existing.Column = cloneColumn(c)
		existing.polls = 0
		return
	}
	t.columns = append(t.columns, &column{Column: cloneColumn(c)})
}

// PutIndex adds or replaces an index on an existing table.
func (b *Backend) PutIndex(databaseID, tableID string, idx core.Index) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.mustTable(databaseID, tableID)
	if idx.Status == "" {
		idx.Status = core.StatusAvailable
	}
	if i, existing := t.index(idx.Key); existing != nil {
		t.indexes[i] = &index{Index: cloneIndex(idx)}
		return
	}
	t.indexes = append(t.indexes, &index{Index: cloneIndex(idx)})
}

// SetColumnStatus forces the provisioning status of a column.
func (b *Backend) SetColumnStatus(databaseID, tableID, key string, status core.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c := b.mustTable(databaseID, tableID).column(key); c != nil {
		c.Status = status
	}
}

// Table returns a snapshot of a table, or nil.
func (b *Backend) Table(databaseID, tableID string) *core.Table {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil
	}
	return cloneTable(t.info)
}

// Column returns a snapshot of a column, or nil.
func (b *Backend) Column(databaseID, tableID, key string) *core.Column {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil
	}
	c := t.column(key)
	if c == nil {
		return nil
	}
	out := cloneColumn(c.Column)
	return &out
}

// Index returns a snapshot of an index, or nil.
func (b *Backend) Index(databaseID, tableID, key string) *core.Index {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil
	}
	_, idx := t.index(key)
	if idx == nil {
		return nil
	}
	out := cloneIndex(idx.Index)
	return &out
}

// ColumnKeys returns the keys of a table's columns in creation order.
func (b *Backend) ColumnKeys(databaseID, tableID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		keys = append(keys, c.Key)
	}
	return slices.Clip(keys)
}

func (b *Backend) mustTable(databaseID, tableID string) *table {
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		panic("memory: " + err.Error())
	}
	return t
}
