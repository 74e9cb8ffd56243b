package core

import (
	"time"

	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// Status is the provisioning status of a remote structural object.
type Status string

// Provisioning statuses.
const (
	StatusProcessing Status = "processing"
	StatusAvailable  Status = "available"
	StatusFailed     Status = "failed"
	StatusStuck      Status = "stuck"
	StatusDeleting   Status = "deleting"
)

// IsGhost reports whether an object in this status will never become usable
// on its own.
func (s Status) IsGhost() bool {
	return s == StatusFailed || s == StatusStuck
}

// Database is a remote database container.
type Database struct {
	ID      string
	Name    string
	Enabled bool
}

// Table is a remote table.
type Table struct {
	ID          string
	Name        string
	Permissions []string
	RowSecurity bool
	Enabled     bool
}

// TableSpec is the payload for creating a table.
type TableSpec struct {
	ID          string
	Name        string
	Permissions []string
	RowSecurity bool
	Enabled     *bool
}

// TableUpdate is the payload for updating a table. Nil pointers leave the
// remote value untouched.
type TableUpdate struct {
	Name        string
	Permissions []string
	RowSecurity *bool
	Enabled     *bool
}

// Column is a remote column, with its type normalized to a schema kind.
type Column struct {
	Key      string
	Kind     schema.Kind
	Status   Status
	Error    string
	Required bool
	Array    bool
	Size     int
	Elements []string
	Min      *float64
	Max      *float64
	Default  any
	Relation *schema.Relation
}

// IndexSpec is the payload for creating an index. Orders is nil for spatial
// indexes.
type IndexSpec struct {
	Key     string
	Type    schema.IndexType
	Columns []string
	Orders  []string
}

// Index is a remote index.
type Index struct {
	Key     string
	Type    schema.IndexType
	Columns []string
	Orders  []string
	Status  Status
	Error   string
}

// Row is a stored record.
type Row struct {
	ID          string
	TableID     string
	DatabaseID  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Permissions []string
	Data        map[string]any
}

// RowList is a page of rows.
type RowList struct {
	Total int
	Rows  []Row
}
