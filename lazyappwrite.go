// Package lazyappwrite keeps declared tables in sync with a remote backend
// on demand.
//
// A Client synchronizes a table the first time it is needed, deduplicating
// concurrent requests for the same table, and remembers tables that have
// been verified for the rest of its life:
//
//	client := lazyappwrite.New(backend, lazyappwrite.Config{DatabaseID: "main"})
//	users := client.Table(usersSchema)
//	row, err := users.Create(ctx, "", map[string]any{"name": "ada"})
package lazyappwrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ghunter254/lazy-appwrite/internal/dag"
	"github.com/Ghunter254/lazy-appwrite/internal/engine"
	"github.com/Ghunter254/lazy-appwrite/internal/guard"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// Journal records sync runs and stage outcomes.
type Journal = engine.Journal

// DefaultParallelism is used by SyncAll when parallelism is not positive.
const DefaultParallelism = 4

// Config configures a Client. Zero values select the engine defaults.
type Config struct {
	// DatabaseID is the database tables are synchronized into (required).
	DatabaseID string
	// DatabaseName is used when the database has to be created. Defaults
	// to DatabaseID.
	DatabaseName string

	Logger  *slog.Logger
	Journal Journal

	MaxRetries   int
	InitialDelay time.Duration
	OnRetry      func(op string, attempt int, delay time.Duration, err error)

	PollAttempts int
	PollInterval time.Duration
	ColumnPacing time.Duration

	// MaxRejoins bounds how often a caller waiting on a failed sync tries
	// again itself. Zero keeps the guard default; negative disables rejoins.
	MaxRejoins int
}

// Client synchronizes tables on first use.
type Client struct {
	backend      core.Backend
	syncer       *engine.Syncer
	guard        *guard.Guard
	logger       *slog.Logger
	databaseID   string
	databaseName string

	bg *sync.WaitGroup
}

// New creates a Client over backend, which must already be connected.
func New(backend core.Backend, cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	g := guard.New(logger)
	switch {
	case cfg.MaxRejoins > 0:
		g.MaxRejoins = cfg.MaxRejoins
	case cfg.MaxRejoins < 0:
		g.MaxRejoins = 0
	}

	name := cfg.DatabaseName
	if name == "" {
		name = cfg.DatabaseID
	}

	return &Client{
		backend: backend,
		syncer: engine.New(engine.Config{
			Backend:      backend,
			Logger:       logger,
			Journal:      cfg.Journal,
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: cfg.InitialDelay,
			OnRetry:      cfg.OnRetry,
			PollAttempts: cfg.PollAttempts,
			PollInterval: cfg.PollInterval,
			ColumnPacing: cfg.ColumnPacing,
		}),
		guard:        g,
		logger:       logger,
		databaseID:   cfg.DatabaseID,
		databaseName: name,
		bg:           &sync.WaitGroup{},
	}
}

// Database returns a Client for another database that shares the backend,
// the verified set and the in-flight registry of c.
func (c *Client) Database(id, name string) *Client {
	if name == "" {
		name = id
	}
	clone := *c
	clone.databaseID = id
	clone.databaseName = name
	return &clone
}

// DatabaseID returns the database the client synchronizes into.
func (c *Client) DatabaseID() string {
	return c.databaseID
}

// Backend returns the backend the client talks to.
func (c *Client) Backend() core.Backend {
	return c.backend
}

// EnsureSynced makes sure table exists remotely as declared. Once a sync
// succeeds the table is never synced again by this client; concurrent
// callers for the same table share a single sync.
func (c *Client) EnsureSynced(ctx context.Context, table schema.Table) error {
	if c.databaseID == "" {
		return core.NewConfigError("client", "database id is required", nil)
	}
	key := guard.Key{DatabaseID: c.databaseID, TableID: table.ID}
	return c.guard.EnsureSynced(ctx, key, func(ctx context.Context) error {
		return c.syncer.SyncTable(ctx, c.databaseID, c.databaseName, table)
	})
}

// IsVerified reports whether tableID has been synced successfully.
func (c *Client) IsVerified(tableID string) bool {
	return c.guard.IsVerified(guard.Key{DatabaseID: c.databaseID, TableID: tableID})
}

// Result is the outcome of one table in SyncAll.
type Result struct {
	TableID  string
	Err      error
	Duration time.Duration
}

// SyncAll synchronizes tables with at most parallelism syncs in flight.
// Tables a relationship points at are synchronized before the tables that
// declare it. Every input gets a result, in the order of tables: a table
// without an id, or repeating an earlier id, fails with a Validation error
// and is not synced. A failure of one table does not stop the others; if
// every table fails, SyncAll returns an Abort error joining their causes.
func (c *Client) SyncAll(ctx context.Context, tables []schema.Table, parallelism int) ([]Result, error) {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	results := make([]Result, len(tables))
	position := make(map[string]int, len(tables))
	batch := make([]schema.Table, 0, len(tables))
	for i, t := range tables {
		results[i].TableID = t.ID
		if t.ID == "" {
			results[i].Err = core.NewValidationError(fmt.Sprintf("table at position %d has no id", i), nil)
			continue
		}
		if first, dup := position[t.ID]; dup {
			results[i].Err = core.NewValidationError(fmt.Sprintf("table %q is declared twice (positions %d and %d)", t.ID, first, i), nil)
			continue
		}
		position[t.ID] = i
		batch = append(batch, t)
	}

	levels, err := dag.New(batch).Levels()
	if err != nil {
		c.logger.Warn("syncing tables without relationship ordering", "database", c.databaseID, "error", err.Error())
		levels = [][]schema.Table{batch}
	}

	for _, level := range levels {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(parallelism)
		for _, t := range level {
			i := position[t.ID]
			g.Go(func() error {
				start := time.Now()
				err := c.EnsureSynced(gctx, t)
				results[i] = Result{TableID: t.ID, Err: err, Duration: time.Since(start)}
				return nil
			})
		}
		_ = g.Wait()
	}

	var errs []error
	for i, r := range results {
		if r.Err != nil {
			name := r.TableID
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			errs = append(errs, fmt.Errorf("%s: %w", name, r.Err))
		}
	}
	if len(results) > 0 && len(errs) == len(results) {
		return results, core.NewAbortError(fmt.Sprintf("all %d tables failed to sync", len(results)), errors.Join(errs...))
	}
	return results, nil
}

// syncInBackground starts a sync detached from the caller. Failures are
// logged; the next operation on the table tries again.
func (c *Client) syncInBackground(ctx context.Context, table schema.Table) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if err := c.EnsureSynced(context.WithoutCancel(ctx), table); err != nil {
			c.logger.Warn("background sync failed", "database", c.databaseID, "table", table.ID, "error", err.Error())
		}
	}()
}

// Wait blocks until background syncs started by reads have finished.
func (c *Client) Wait() {
	c.bg.Wait()
}
