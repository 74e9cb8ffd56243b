// Package postgres reconciles table declarations against PostgreSQL.
//
// Import this package with a blank identifier to register the backend:
//
//	import _ "github.com/Ghunter254/lazy-appwrite/pkg/backends/postgres"
package postgres

import (
	"log/slog"

	"github.com/Ghunter254/lazy-appwrite/pkg/backend"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

func init() {
	backend.Register("postgres", func(logger *slog.Logger) core.Backend { return New(logger) })
}
