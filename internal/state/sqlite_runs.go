package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// StartRun records the start of a table sync.
func (s *SQLiteStore) StartRun(ctx context.Context, databaseID, tableID string) (*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run := &core.Run{
		ID:         generateID(),
		DatabaseID: databaseID,
		TableID:    tableID,
		Status:     core.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, database_id, table_id, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.DatabaseID, run.TableID, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// RecordStage stores the outcome of one stage. Recording the same stage
// twice for a run replaces the earlier record.
func (s *SQLiteStore) RecordStage(ctx context.Context, stage *core.StageRun) error {
	if s.db == nil {
		return errNotOpened
	}

	var errMsg *string
	if stage.Error != "" {
		errMsg = &stage.Error
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sync_stages (run_id, stage, status, started_at, completed_at, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stage.RunID, stage.Stage, stage.Status, stage.StartedAt.UTC(), stage.CompletedAt.UTC(), stage.DurationMS, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to record stage: %w", err)
	}
	return nil
}

// FinishRun marks a run completed, or failed when runErr is non-nil.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, runErr error) error {
	if s.db == nil {
		return errNotOpened
	}

	status := core.RunStatusCompleted
	var errMsg *string
	if runErr != nil {
		status = core.RunStatusFailed
		msg := runErr.Error()
		errMsg = &msg
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sync_runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, time.Now().UTC(), errMsg, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

const runColumns = `id, database_id, table_id, status, started_at, completed_at, error`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*core.Run, error) {
	run := &core.Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString
	if err := row.Scan(&run.ID, &run.DatabaseID, &run.TableID, &run.Status, &run.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM sync_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListStages returns the recorded stages of a run in execution order.
func (s *SQLiteStore) ListStages(ctx context.Context, runID string) ([]core.StageRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, stage, status, started_at, completed_at, duration_ms, error
		 FROM sync_stages WHERE run_id = ? ORDER BY started_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stages []core.StageRun
	for rows.Next() {
		var st core.StageRun
		var errMsg sql.NullString
		if err := rows.Scan(&st.RunID, &st.Stage, &st.Status, &st.StartedAt, &st.CompletedAt, &st.DurationMS, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		st.Error = errMsg.String
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

// PruneRuns deletes all but the newest keep runs and returns how many were
// removed.
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if s.db == nil {
		return 0, errNotOpened
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_runs WHERE id NOT IN (
			SELECT id FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		s.logger.Debug("pruned sync runs", "count", n)
	}
	return n, nil
}
