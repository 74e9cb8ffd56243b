// Package backend holds the registry of remote backend implementations.
//
// Concrete backends live in pkg/backends/ subdirectories and register a
// factory from their init() functions. Callers select one by the type name
// carried in core.BackendConfig.
package backend

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// Factory builds an unconnected backend.
type Factory func(*slog.Logger) core.Backend

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a backend factory to the registry.
// Called by backend implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a backend factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New creates a backend instance based on config type. The backend is not
// connected; call Connect or use Open.
// The logger is passed to the backend constructor (nil uses a discard logger).
func New(cfg core.BackendConfig, logger *slog.Logger) (core.Backend, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("backend type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownBackendError{
			Type:      cfg.Type,
			Available: List(),
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// List returns all registered backend names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownBackendError is returned when an unknown backend type is requested.
type UnknownBackendError struct {
	Type      string
	Available []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown backend type %q\nAvailable backends: %v\nHint: Check backend.type in lazyappwrite.yaml", e.Type, e.Available)
}
