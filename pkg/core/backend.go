package core

import (
	"context"

	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// Backend is the structural API of a remote storage backend. Every method
// reports failures as errors carrying a status code where the backend
// provides one (see APIError); transport faults carry none.
type Backend interface {
	// Connect prepares the backend using the provided config.
	Connect(ctx context.Context, cfg BackendConfig) error

	// Close releases any resources held by the backend.
	Close() error

	// Ping performs the cheapest possible authenticated read, such as listing
	// databases with a limit of one.
	Ping(ctx context.Context) error

	GetDatabase(ctx context.Context, databaseID string) (*Database, error)
	CreateDatabase(ctx context.Context, databaseID, name string) (*Database, error)

	GetTable(ctx context.Context, databaseID, tableID string) (*Table, error)
	CreateTable(ctx context.Context, databaseID string, spec TableSpec) (*Table, error)
	UpdateTable(ctx context.Context, databaseID, tableID string, update TableUpdate) (*Table, error)

	ListColumns(ctx context.Context, databaseID, tableID string) ([]Column, error)
	GetColumn(ctx context.Context, databaseID, tableID, key string) (*Column, error)
	CreateColumn(ctx context.Context, databaseID, tableID string, col schema.Column) error
	// UpdateColumn applies the constraints of col to an existing column. Only
	// string size and enum elements are ever changed by the engine.
	UpdateColumn(ctx context.Context, databaseID, tableID string, col schema.Column) error

	ListIndexes(ctx context.Context, databaseID, tableID string) ([]Index, error)
	GetIndex(ctx context.Context, databaseID, tableID, key string) (*Index, error)
	CreateIndex(ctx context.Context, databaseID, tableID string, spec IndexSpec) error
	DeleteIndex(ctx context.Context, databaseID, tableID, key string) error
}

// RowBackend is implemented by backends that can also store rows.
type RowBackend interface {
	CreateRow(ctx context.Context, databaseID, tableID, rowID string, data map[string]any, permissions []string) (*Row, error)
	GetRow(ctx context.Context, databaseID, tableID, rowID string) (*Row, error)
	ListRows(ctx context.Context, databaseID, tableID string, queries []string) (*RowList, error)
	UpdateRow(ctx context.Context, databaseID, tableID, rowID string, data map[string]any) (*Row, error)
	DeleteRow(ctx context.Context, databaseID, tableID, rowID string) error
}

// BackendConfig holds configuration for connecting to a backend.
type BackendConfig struct {
	Type string

	// REST backends
	Endpoint  string
	ProjectID string
	APIKey    string

	// SQL backends
	Host     string
	Port     int
	Database string
	Username string
	Password string

	Options map[string]string
}
