// Package engine reconciles declared tables against a remote backend.
//
// A sync runs four stages in order: database, table, columns, indexes.
// Every stage is idempotent, so a failed sync can simply be run again from
// the start. Mutations go through a retry.Executor; reads used for drift
// comparison do not.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Ghunter254/lazy-appwrite/internal/retry"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultPollAttempts = 30
	DefaultPollInterval = time.Second
	DefaultColumnPacing = 200 * time.Millisecond
)

// Journal records sync runs. Implementations must be safe for concurrent use.
type Journal interface {
	StartRun(ctx context.Context, databaseID, tableID string) (*core.Run, error)
	RecordStage(ctx context.Context, stage *core.StageRun) error
	FinishRun(ctx context.Context, runID string, runErr error) error
}

// Config holds Syncer configuration.
type Config struct {
	// Backend is the remote structural API (required).
	Backend core.Backend
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
	// Journal receives run and stage outcomes (optional).
	Journal Journal

	// MaxRetries and InitialDelay configure the backoff around mutations.
	MaxRetries   int
	InitialDelay time.Duration
	// OnRetry is forwarded to the retry executor.
	OnRetry func(op string, attempt int, delay time.Duration, err error)

	// PollAttempts and PollInterval bound column and index state polling.
	PollAttempts int
	PollInterval time.Duration
	// ColumnPacing is the pause after each column creation. Negative
	// disables pacing.
	ColumnPacing time.Duration
}

// Syncer runs table synchronizations against one backend.
type Syncer struct {
	backend core.Backend
	logger  *slog.Logger
	journal Journal
	retry   *retry.Executor

	pollAttempts int
	pollInterval time.Duration
	columnPacing time.Duration

	group     singleflight.Group
	mu        sync.Mutex
	connected bool
	databases map[string]bool
}

// New creates a Syncer.
func New(cfg Config) *Syncer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	exec := retry.New(logger)
	if cfg.MaxRetries > 0 {
		exec.MaxRetries = cfg.MaxRetries
	}
	if cfg.InitialDelay > 0 {
		exec.InitialDelay = cfg.InitialDelay
	}
	exec.OnRetry = cfg.OnRetry

	s := &Syncer{
		backend:      cfg.Backend,
		logger:       logger,
		journal:      cfg.Journal,
		retry:        exec,
		pollAttempts: cfg.PollAttempts,
		pollInterval: cfg.PollInterval,
		columnPacing: cfg.ColumnPacing,
		databases:    make(map[string]bool),
	}
	if s.pollAttempts <= 0 {
		s.pollAttempts = DefaultPollAttempts
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	switch {
	case s.columnPacing == 0:
		s.columnPacing = DefaultColumnPacing
	case s.columnPacing < 0:
		s.columnPacing = 0
	}
	return s
}

// Backend returns the backend the Syncer reconciles against.
func (s *Syncer) Backend() core.Backend {
	return s.backend
}

type stage struct {
	name string
	run  func(ctx context.Context) error
}

// SyncTable brings one table in line with its declaration. The declaration
// is validated before any remote call. A failing stage stops the sync and
// is reported as a Config error naming the stage.
func (s *Syncer) SyncTable(ctx context.Context, databaseID, databaseName string, table schema.Table) error {
	if err := table.Validate(); err != nil {
		return core.NewValidationError(fmt.Sprintf("invalid declaration for table %q", table.ID), err)
	}

	log := s.logger.With("database", databaseID, "table", table.ID)
	log.Info("syncing table")
	start := time.Now()

	runID := s.startRun(ctx, databaseID, table.ID)

	stages := []stage{
		{core.StageDatabase, func(ctx context.Context) error { return s.EnsureDatabase(ctx, databaseID, databaseName) }},
		{core.StageTable, func(ctx context.Context) error { return s.EnsureTable(ctx, databaseID, table) }},
		{core.StageColumns, func(ctx context.Context) error { return s.SyncColumns(ctx, databaseID, table.ID, table.Columns) }},
		{core.StageIndexes, func(ctx context.Context) error { return s.SyncIndexes(ctx, databaseID, table.ID, table.Indexes) }},
	}

	for _, st := range stages {
		started := time.Now()
		err := st.run(ctx)
		s.recordStage(ctx, runID, st.name, started, err)
		if err != nil {
			wrapped := core.NewConfigError(st.name, fmt.Sprintf("sync of table %q failed", table.ID), err)
			log.Error("sync failed", "stage", st.name, "error", err.Error())
			s.finishRun(ctx, runID, wrapped)
			return wrapped
		}
		log.Debug("stage complete", "stage", st.name, "duration", time.Since(started))
	}

	s.finishRun(ctx, runID, nil)
	log.Info("table in sync", "duration", time.Since(start))
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
