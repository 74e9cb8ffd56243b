// Package commands implements the lazyappwrite CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	lazyappwrite "github.com/Ghunter254/lazy-appwrite"
	"github.com/Ghunter254/lazy-appwrite/internal/cli/output"
	"github.com/Ghunter254/lazy-appwrite/internal/config"
	"github.com/Ghunter254/lazy-appwrite/internal/state"
	"github.com/Ghunter254/lazy-appwrite/pkg/backend"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"

	// Register backends.
	_ "github.com/Ghunter254/lazy-appwrite/pkg/backends/appwrite"
	_ "github.com/Ghunter254/lazy-appwrite/pkg/backends/memory"
	_ "github.com/Ghunter254/lazy-appwrite/pkg/backends/postgres"
)

type configKey struct{}

type loggerKey struct{}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from ctx, or a discard logger.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds a CommandContext from the config and logger the
// root command stored in the command's context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   GetLogger(ctx),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// LoadDocuments reads every schema document named in the configuration.
// Documents without a database take the configured default.
func (c *CommandContext) LoadDocuments() ([]*schema.Document, error) {
	if len(c.Cfg.Schemas) == 0 {
		return nil, fmt.Errorf("no schema paths configured\nHint: set schemas in %s or pass --schemas", config.ConfigFileName)
	}
	docs, err := schema.LoadPaths(c.Cfg.Schemas...)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.Database.ID == "" {
			doc.Database.ID = c.Cfg.Database.ID
			if doc.Database.Name == "" {
				doc.Database.Name = c.Cfg.Database.Name
			}
		}
	}
	return docs, nil
}

// ValidateDocuments validates docs, prefixing failures with their file.
func ValidateDocuments(docs []*schema.Document) error {
	var errs []error
	for _, doc := range docs {
		if err := doc.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", doc.Path, err))
		}
	}
	if len(errs) > 0 {
		return core.NewValidationError("invalid schema documents", errors.Join(errs...))
	}
	return nil
}

// OpenBackend validates the configuration and connects the backend.
func (c *CommandContext) OpenBackend(ctx context.Context) (core.Backend, error) {
	if err := c.Cfg.Validate(); err != nil {
		return nil, core.NewConfigError("config", "invalid configuration", err)
	}
	b, err := backend.Open(ctx, c.Cfg.Backend.CoreConfig(), c.Logger)
	if err != nil {
		return nil, core.NewConfigError("backend", "cannot open backend", err)
	}
	return b, nil
}

// OpenJournal opens the sync journal, creating its directory if needed.
func (c *CommandContext) OpenJournal() (*state.SQLiteStore, error) {
	path := c.Cfg.StatePath
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}
	return state.Open(path, c.Logger)
}

// ClientConfig converts the sync section into a client configuration.
func (c *CommandContext) ClientConfig(journal lazyappwrite.Journal) lazyappwrite.Config {
	s := c.Cfg.Sync
	// Defaults are filled in by the config loader, so a zero here was set
	// explicitly and means "off". The client reads zero as "use the default".
	rejoins, pacing := s.MaxRejoins, s.ColumnPacing
	if rejoins == 0 {
		rejoins = -1
	}
	if pacing == 0 {
		pacing = -1
	}
	return lazyappwrite.Config{
		DatabaseID:   c.Cfg.Database.ID,
		DatabaseName: c.Cfg.Database.Name,
		Logger:       c.Logger,
		Journal:      journal,
		MaxRetries:   s.MaxRetries,
		InitialDelay: s.InitialDelay,
		PollAttempts: s.PollAttempts,
		PollInterval: s.PollInterval,
		ColumnPacing: pacing,
		MaxRejoins:   rejoins,
	}
}
