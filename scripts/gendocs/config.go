package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Ghunter254/lazy-appwrite/internal/config"
)

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
	Category    string // "project", "backend", "sync"
}

// Key returns the dotted path of the field in the configuration file.
func (f ConfigField) Key() string {
	if f.Category == "project" {
		return f.Name
	}
	return f.Category + "." + f.Name
}

// envVar returns the environment variable that sets key.
func envVar(key string) string {
	return config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
}

// getConfigSchema returns the configuration schema definition, following
// internal/config/types.go.
func getConfigSchema() []ConfigField {
	return []ConfigField{
		{Name: "schemas", Type: "[]string", Default: config.DefaultSchemasDir, Description: "Schema files or directories", Category: "project"},
		{Name: "database.id", Type: "string", Description: "Database for documents that do not name one", Category: "project"},
		{Name: "database.name", Type: "string", Description: "Display name of that database", Category: "project"},
		{Name: "state_path", Type: "string", Default: config.DefaultStateFile, Description: "Sync journal (SQLite); `:memory:` disables persistence", Category: "project"},
		{Name: "output", Type: "string", Default: config.DefaultOutput, Description: "auto, text, markdown or json", Category: "project"},

		{Name: "type", Type: "string", Default: config.DefaultBackend, Description: "appwrite, postgres or memory", Category: "backend"},
		{Name: "endpoint", Type: "string", Description: "Appwrite API endpoint (appwrite)", Category: "backend"},
		{Name: "project", Type: "string", Description: "Appwrite project id (appwrite)", Category: "backend"},
		{Name: "key", Type: "string", Description: "Appwrite API key; `${VAR}` is expanded (appwrite)", Category: "backend"},
		{Name: "host", Type: "string", Description: "Database host (postgres)", Category: "backend"},
		{Name: "port", Type: "int", Default: strconv.Itoa(config.DefaultPostgresPort), Description: "Database port (postgres)", Category: "backend"},
		{Name: "database", Type: "string", Description: "Database name (postgres)", Category: "backend"},
		{Name: "user", Type: "string", Description: "Database user (postgres)", Category: "backend"},
		{Name: "password", Type: "string", Description: "Database password (postgres)", Category: "backend"},
		{Name: "options", Type: "map[string]string", Description: "Backend-specific options such as `timeout` or `sslmode`", Category: "backend"},

		{Name: "max_retries", Type: "int", Default: strconv.Itoa(config.DefaultMaxRetries), Description: "Retries for transient backend failures", Category: "sync"},
		{Name: "initial_delay", Type: "duration", Default: config.DefaultInitialDelay.String(), Description: "First retry delay; doubles on each attempt", Category: "sync"},
		{Name: "poll_attempts", Type: "int", Default: strconv.Itoa(config.DefaultPollAttempts), Description: "Status polls before a column or index times out", Category: "sync"},
		{Name: "poll_interval", Type: "duration", Default: config.DefaultPollInterval.String(), Description: "Delay between status polls", Category: "sync"},
		{Name: "column_pacing", Type: "duration", Default: config.DefaultColumnPacing.String(), Description: "Pause between column creations; negative disables", Category: "sync"},
		{Name: "parallelism", Type: "int", Default: strconv.Itoa(config.DefaultParallelism), Description: "Tables synchronized concurrently", Category: "sync"},
		{Name: "max_rejoins", Type: "int", Default: strconv.Itoa(config.DefaultMaxRejoins), Description: "Times a caller may join a new sync after a shared one failed", Category: "sync"},
	}
}

// generateConfigDocs generates the configuration reference page.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "lazyappwrite configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("lazyappwrite reads %s from the working directory or the nearest parent directory.", InlineCode(config.ConfigFileName)))

	sections := []struct {
		category, title, intro string
	}{
		{"project", "Project Settings", "Top-level keys:"},
		{"backend", "Backend", "Keys under `backend`:"},
		{"sync", "Sync", "Keys under `sync`:"},
	}
	fields := getConfigSchema()
	for _, sec := range sections {
		w.Header(2, sec.title)
		w.Paragraph(sec.intro)
		var rows [][]string
		for _, f := range fields {
			if f.Category != sec.category {
				continue
			}
			defVal := "-"
			if f.Default != "" {
				defVal = InlineCode(f.Default)
			}
			rows = append(rows, []string{InlineCode(f.Name), f.Type, defVal, f.Description})
		}
		w.Table([]string{"Field", "Type", "Default", "Description"}, rows)
	}

	w.Header(2, "Example")
	w.CodeBlock("yaml", `backend:
  type: appwrite
  endpoint: https://cloud.appwrite.io/v1
  project: my-project
  key: ${APPWRITE_API_KEY}
database:
  id: main
  name: Main
schemas:
  - schemas
sync:
  parallelism: 4`)

	filename := filepath.Join(outDir, "configuration.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}
