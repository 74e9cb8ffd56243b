// Package config loads lazy-appwrite configuration.
//
// Values are layered, highest precedence first: explicitly set CLI flags,
// LAZYAPPWRITE_* environment variables, the lazyappwrite.yaml file, and
// built-in defaults. A .env file next to the config file (or in the working
// directory) is loaded into the environment first.
package config

import (
	"time"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// Config holds all configuration options.
type Config struct {
	Backend      BackendConfig  `koanf:"backend"`
	Database     DatabaseConfig `koanf:"database"`
	Schemas      []string       `koanf:"schemas"`
	StatePath    string         `koanf:"state_path"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`
	Sync         SyncConfig     `koanf:"sync"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
}

// BackendConfig selects and configures the remote backend.
type BackendConfig struct {
	Type     string            `koanf:"type"`
	Endpoint string            `koanf:"endpoint"`
	Project  string            `koanf:"project"`
	Key      string            `koanf:"key"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Options  map[string]string `koanf:"options"`
}

// DatabaseConfig is the database used for schema documents that do not
// name one.
type DatabaseConfig struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
}

// SyncConfig tunes the synchronization engine.
type SyncConfig struct {
	MaxRetries   int           `koanf:"max_retries"`
	InitialDelay time.Duration `koanf:"initial_delay"`
	PollAttempts int           `koanf:"poll_attempts"`
	PollInterval time.Duration `koanf:"poll_interval"`
	ColumnPacing time.Duration `koanf:"column_pacing"`
	Parallelism  int           `koanf:"parallelism"`
	MaxRejoins   int           `koanf:"max_rejoins"`
}

// CoreConfig converts the backend section to a core.BackendConfig.
func (b BackendConfig) CoreConfig() core.BackendConfig {
	return core.BackendConfig{
		Type:      b.Type,
		Endpoint:  b.Endpoint,
		ProjectID: b.Project,
		APIKey:    b.Key,
		Host:      b.Host,
		Port:      b.Port,
		Database:  b.Database,
		Username:  b.User,
		Password:  b.Password,
		Options:   b.Options,
	}
}
