// Package appwrite provides a backend for the Appwrite TablesDB REST API.
//
// Import this package with a blank identifier to register the backend:
//
//	import _ "github.com/Ghunter254/lazy-appwrite/pkg/backends/appwrite"
package appwrite

import (
	"log/slog"

	"github.com/Ghunter254/lazy-appwrite/pkg/backend"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

func init() {
	backend.Register("appwrite", func(logger *slog.Logger) core.Backend { return New(logger) })
}
