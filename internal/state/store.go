// Package state records synchronization runs in a local SQLite journal.
//
// Each SyncTable call produces one run and up to four stage records. The
// journal is advisory: the engine never reads it back, and the CLI uses it
// for history.
package state

import (
	"context"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// Store is the sync journal. It satisfies engine.Journal.
type Store interface {
	StartRun(ctx context.Context, databaseID, tableID string) (*core.Run, error)
	RecordStage(ctx context.Context, stage *core.StageRun) error
	FinishRun(ctx context.Context, runID string, runErr error) error

	GetRun(ctx context.Context, id string) (*core.Run, error)
	ListRuns(ctx context.Context, limit int) ([]core.Run, error)
	ListStages(ctx context.Context, runID string) ([]core.StageRun, error)
	PruneRuns(ctx context.Context, keep int) (int64, error)

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
