package memory

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// Operation names used for call counting and fault injection.
const (
	OpPing           = "Ping"
	OpGetDatabase    = "GetDatabase"
	OpCreateDatabase = "CreateDatabase"
	OpGetTable       = "GetTable"
	OpCreateTable    = "CreateTable"
	OpUpdateTable    = "UpdateTable"
	OpListColumns    = "ListColumns"
	OpGetColumn      = "GetColumn"
	OpCreateColumn   = "CreateColumn"
	OpUpdateColumn   = "UpdateColumn"
	OpListIndexes    = "ListIndexes"
	OpGetIndex       = "GetIndex"
	OpCreateIndex    = "CreateIndex"
	OpDeleteIndex    = "DeleteIndex"
	OpCreateRow      = "CreateRow"
	OpGetRow         = "GetRow"
	OpListRows       = "ListRows"
	OpUpdateRow      = "UpdateRow"
	OpDeleteRow      = "DeleteRow"
)

// Backend is an in-memory core.Backend and core.RowBackend.
//
// Columns are created in the processing state and become available after
// ProvisionPolls reads through GetColumn. Deleted indexes linger in the
// deleting state for DeletionPolls reads through GetIndex.
type Backend struct {
	ProvisionPolls int
	DeletionPolls  int

	mu        sync.Mutex
	databases map[string]*database
	calls     map[string]int
	faults    map[string][]error
	logger    *slog.Logger
}

type database struct {
	info   core.Database
	tables map[string]*table
}

type table struct {
	info    core.Table
	columns []*column
	indexes []*index
	rows    map[string]*core.Row
	order   []string
}

type column struct {
	core.Column
	polls int
}

type index struct {
	core.Index
	polls int
}

var (
	_ core.Backend    = (*Backend)(nil)
	_ core.RowBackend = (*Backend)(nil)
)

// New returns an empty backend. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{
		databases: make(map[string]*database),
		calls:     make(map[string]int),
		faults:    make(map[string][]error),
		logger:    logger,
	}
}

// Connect reads the provisioning options, if any.
func (b *Backend) Connect(_ context.Context, cfg core.BackendConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, dst := range map[string]*int{
		"provision_polls": &b.ProvisionPolls,
		"deletion_polls":  &b.DeletionPolls,
	} {
		v, ok := cfg.Options[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %s option %q", key, v)
		}
		*dst = n
	}
	return nil
}

// Close is a no-op.
func (b *Backend) Close() error { return nil }

// FailNext queues errs to be returned, one per call, by the next calls to op.
func (b *Backend) FailNext(op string, errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[op] = append(b.faults[op], errs...)
}

// Calls returns how many times op has been invoked.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// ResetCalls zeroes every call counter.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.calls)
}

// enter counts a call and pops a queued fault. Callers hold b.mu.
func (b *Backend) enter(op string) error {
	b.calls[op]++
	if q := b.faults[op]; len(q) > 0 {
		b.faults[op] = q[1:]
		if q[0] != nil {
			b.logger.Debug("injecting fault", slog.String("op", op), slog.String("error", q[0].Error()))
		}
		return q[0]
	}
	return nil
}

func (b *Backend) lookupTable(databaseID, tableID string) (*table, error) {
	db, ok := b.databases[databaseID]
	if !ok {
		return nil, core.NotFound("database %q not found", databaseID)
	}
	t, ok := db.tables[tableID]
	if !ok {
		return nil, core.NotFound("table %q not found", tableID)
	}
	return t, nil
}

func (t *table) column(key string) *column {
	for _, c := range t.columns {
		if c.Key == key {
			return c
		}
	}
	return nil
}

func (t *table) index(key string) (int, *index) {
	for i, idx := range t.indexes {
		if idx.Key == key {
			return i, idx
		}
	}
	return -1, nil
}

func badRequest(format string, args ...any) *core.APIError {
	return &core.APIError{Code: http.StatusBadRequest, Type: "invalid_structure", Message: fmt.Sprintf(format, args...)}
}

// Ping succeeds unless a fault is queued.
func (b *Backend) Ping(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enter(OpPing)
}

func (b *Backend) GetDatabase(_ context.Context, databaseID string) (*core.Database, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpGetDatabase); err != nil {
		return nil, err
	}
	db, ok := b.databases[databaseID]
	if !ok {
		return nil, core.NotFound("database %q not found", databaseID)
	}
	info := db.info
	return &info, nil
}

func (b *Backend) CreateDatabase(_ context.Context, databaseID, name string) (*core.Database, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpCreateDatabase); err != nil {
		return nil, err
	}
	if _, ok := b.databases[databaseID]; ok {
		return nil, core.Conflict("database %q already exists", databaseID)
	}
	db := &database{
		info:   core.Database{ID: databaseID, Name: name, Enabled: true},
		tables: make(map[string]*table),
	}
	b.databases[databaseID] = db
	info := db.info
	return &info, nil
}

func (b *Backend) GetTable(_ context.Context, databaseID, tableID string) (*core.Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpGetTable); err != nil {
		return nil, err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil, err
	}
	return cloneTable(t.info), nil
}

func (b *Backend) CreateTable(_ context.Context, databaseID string, spec core.TableSpec) (*core.Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpCreateTable); err != nil {
		return nil, err
	}
	db, ok := b.databases[databaseID]
	if !ok {
		return nil, core.NotFound("database %q not found", databaseID)
	}
	if _, ok := db.tables[spec.ID]; ok {
		return nil, core.Conflict("table %q already exists", spec.ID)
	}
	enabled := true
	if spec.Enabled != nil {
		enabled = *spec.Enabled
	}
	t := &table{
		info: core.Table{
			ID:          spec.ID,
			Name:        spec.Name,
			Permissions: slices.Clone(spec.Permissions),
			RowSecurity: spec.RowSecurity,
			Enabled:     enabled,
		},
		rows: make(map[string]*core.Row),
	}
	db.tables[spec.ID] = t
	return cloneTable(t.info), nil
}

func (b *Backend) UpdateTable(_ context.Context, databaseID, tableID string, update core.TableUpdate) (*core.Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpUpdateTable); err != nil {
		return nil, err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil, err
	}
	if update.Name != "" {
		t.info.Name = update.Name
	}
	t.info.Permissions = slices.Clone(update.Permissions)
	if update.RowSecurity != nil {
		t.info.RowSecurity = *update.RowSecurity
	}
	if update.Enabled != nil {
		t.info.Enabled = *update.Enabled
	}
	return cloneTable(t.info), nil
}

func (b *Backend) ListColumns(_ context.Context, databaseID, tableID string) ([]core.Column, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpListColumns); err != nil {
		return nil, err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Column, 0, len(t.columns))
	for _, c := range t.columns {
		out = append(out, cloneColumn(c.Column))
	}
	return out, nil
}

// GetColumn reports a column and advances its provisioning.
func (b *Backend) GetColumn(_ context.Context, databaseID, tableID, key string) (*core.Column, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpGetColumn); err != nil {
		return nil, err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil, err
	}
	c := t.column(key)
	if c == nil {
		return nil, core.NotFound("column %q not found", key)
	}
	if c.Status == core.StatusProcessing {
		c.polls++
		if c.polls > b.ProvisionPolls {
			c.Status = core.StatusAvailable
		}
	}
	out := cloneColumn(c.Column)
	return &out, nil
}

func (b *Backend) CreateColumn(_ context.Context, databaseID, tableID string, col schema.Column) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpCreateColumn); err != nil {
		return err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return err
	}
	if t.column(col.Key) != nil {
		return core.Conflict("column %q already exists", col.Key)
	}
	if col.Kind == schema.KindRelationship && col.Relation != nil {
		if _, err := b.lookupTable(databaseID, col.Relation.RelatedTable); err != nil {
			return badRequest("related table %q not found", col.Relation.RelatedTable)
		}
	}
	status := core.StatusAvailable
	if b.ProvisionPolls > 0 {
		status = core.StatusProcessing
	}
	c := FromSchema(col)
	c.Status = status
	t.columns = append(t.columns, &column{Column: c})
	return nil
}

func (b *Backend) UpdateColumn(_ context.Context, databaseID, tableID string, col schema.Column) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpUpdateColumn); err != nil {
		return err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return err
	}
	c := t.column(col.Key)
	if c == nil {
		return core.NotFound("column %q not found", col.Key)
	}
	if c.Kind != col.Kind {
		return badRequest("column %q is %s, not %s", col.Key, c.Kind, col.Kind)
	}
	c.Required = col.Required
	c.Default = col.Default
	switch col.Kind {
	case schema.KindString:
		c.Size = col.Size
	case schema.KindEnum:
		c.Elements = slices.Clone(col.Elements)
	case schema.KindInteger, schema.KindFloat:
		c.Min, c.Max = col.Min, col.Max
	}
	return nil
}

func (b *Backend) ListIndexes(_ context.Context, databaseID, tableID string) ([]core.Index, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpListIndexes); err != nil {
		return nil, err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Index, 0, len(t.indexes))
	for _, idx := range t.indexes {
		out = append(out, cloneIndex(idx.Index))
	}
	return out, nil
}

// GetIndex reports an index and advances a pending deletion.
func (b *Backend) GetIndex(_ context.Context, databaseID, tableID, key string) (*core.Index, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpGetIndex); err != nil {
		return nil, err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return nil, err
	}
	i, idx := t.index(key)
	if idx == nil {
		return nil, core.NotFound("index %q not found", key)
	}
	if idx.Status == core.StatusDeleting {
		idx.polls++
		if idx.polls > b.DeletionPolls {
			t.indexes = slices.Delete(t.indexes, i, i+1)
			return nil, core.NotFound("index %q not found", key)
		}
	}
	out := cloneIndex(idx.Index)
	return &out, nil
}

// CreateIndex requires every referenced column to be available.
func (b *Backend) CreateIndex(_ context.Context, databaseID, tableID string, spec core.IndexSpec) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpCreateIndex); err != nil {
		return err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return err
	}
	if _, idx := t.index(spec.Key); idx != nil {
		return core.Conflict("index %q already exists", spec.Key)
	}
	for _, key := range spec.Columns {
		if schema.IsSystemColumn(key) {
			continue
		}
		c := t.column(key)
		if c == nil {
			return badRequest("index %q references unknown column %q", spec.Key, key)
		}
		if c.Status != core.StatusAvailable {
			return badRequest("column %q is not available (%s)", key, c.Status)
		}
	}
	t.indexes = append(t.indexes, &index{Index: core.Index{
		Key:     spec.Key,
		Type:    spec.Type,
		Columns: slices.Clone(spec.Columns),
		Orders:  slices.Clone(spec.Orders),
		Status:  core.StatusAvailable,
	}})
	return nil
}

// DeleteIndex removes an index, or marks it deleting when DeletionPolls > 0.
func (b *Backend) DeleteIndex(_ context.Context, databaseID, tableID, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpDeleteIndex); err != nil {
		return err
	}
	t, err := b.lookupTable(databaseID, tableID)
	if err != nil {
		return err
	}
	i, idx := t.index(key)
	if idx == nil || idx.Status == core.StatusDeleting {
		return core.NotFound("index %q not found", key)
	}
	if b.DeletionPolls == 0 {
		t.indexes = slices.Delete(t.indexes, i, i+1)
		return nil
	}
	idx.Status = core.StatusDeleting
	idx.polls = 0
	return nil
}

// FromSchema converts a declared column to its remote form.
func FromSchema(col schema.Column) core.Column {
	c := core.Column{
		Key:      col.Key,
		Kind:     col.Kind,
		Required: col.Required,
		Array:    col.Array,
		Default:  col.Default,
		Status:   core.StatusAvailable,
	}
	switch col.Kind {
	case schema.KindString:
		c.Size = col.Size
	case schema.KindEnum:
		c.Elements = slices.Clone(col.Elements)
	case schema.KindInteger, schema.KindFloat:
		c.Min, c.Max = col.Min, col.Max
	case schema.KindRelationship:
		if col.Relation != nil {
			rel := *col.Relation
			c.Relation = &rel
		}
	}
	return c
}

func cloneTable(t core.Table) *core.Table {
	t.Permissions = slices.Clone(t.Permissions)
	return &t
}

func cloneColumn(c core.Column) core.Column {
	c.Elements = slices.Clone(c.Elements)
	return c
}

func cloneIndex(idx core.Index) core.Index {
	idx.Columns = slices.Clone(idx.Columns)
	idx.Orders = slices.Clone(idx.Orders)
	return idx
}
