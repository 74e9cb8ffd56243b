// Package memory provides an in-process backend that emulates the remote
// structural API, including asynchronous column provisioning.
//
// Import this package with a blank identifier to register the backend:
//
//	import _ "github.com/Ghunter254/lazy-appwrite/pkg/backends/memory"
package memory

import (
	"log/slog"

	"github.com/Ghunter254/lazy-appwrite/pkg/backend"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

func init() {
	backend.Register("memory", func(logger *slog.Logger) core.Backend { return New(logger) })
}
