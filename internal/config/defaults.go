package config

import "time"

// Config file names, in lookup order.
const (
	ConfigFileName    = "lazyappwrite.yaml"
	ConfigFileNameAlt = "lazyappwrite.yml"
)

// Default configuration values.
const (
	DefaultBackend      = "appwrite"
	DefaultSchemasDir   = "schemas"
	DefaultStateFile    = ".lazyappwrite/journal.db"
	DefaultOutput       = "auto" // TTY=text, non-TTY=markdown
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultPollAttempts = 30
	DefaultPollInterval = time.Second
	DefaultColumnPacing = 200 * time.Millisecond
	DefaultParallelism  = 4
	DefaultMaxRejoins   = 1
	DefaultPostgresPort = 5432
)

func defaults() map[string]any {
	return map[string]any{
		"backend.type":       DefaultBackend,
		"schemas":            []string{DefaultSchemasDir},
		"state_path":         DefaultStateFile,
		"verbose":            false,
		"output":             DefaultOutput,
		"sync.max_retries":   DefaultMaxRetries,
		"sync.initial_delay": DefaultInitialDelay.String(),
		"sync.poll_attempts": DefaultPollAttempts,
		"sync.poll_interval": DefaultPollInterval.String(),
		"sync.column_pacing": DefaultColumnPacing.String(),
		"sync.parallelism":   DefaultParallelism,
		"sync.max_rejoins":   DefaultMaxRejoins,
	}
}

// applyBackendDefaults fills type-specific defaults.
func applyBackendDefaults(b *BackendConfig) {
	if b.Type == "postgres" && b.Port == 0 {
		b.Port = DefaultPostgresPort
	}
}
