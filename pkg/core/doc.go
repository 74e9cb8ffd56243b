// Package core defines the shared language of lazy-appwrite.
//
// This package contains:
//   - The backend contract (Backend, RowBackend) and its configuration
//   - Remote object types as reported by a backend (Database, Table, Column, Index)
//   - The error taxonomy (Validation, Config, Appwrite, Timeout, Abort)
//   - Sync journal entities (Run, StageRun)
//
// pkg/core imports only pkg/schema and the standard library.
// Engines and backends depend on core, not the reverse.
package core
