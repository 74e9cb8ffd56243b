package engine

import (
	"context"
	"time"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// Journal failures are logged and never fail a sync.

func (s *Syncer) startRun(ctx context.Context, databaseID, tableID string) string {
	if s.journal == nil {
		return ""
	}
	run, err := s.journal.StartRun(ctx, databaseID, tableID)
	if err != nil {
		s.logger.Warn("failed to record run start", "table", tableID, "error", err.Error())
		return ""
	}
	return run.ID
}

func (s *Syncer) recordStage(ctx context.Context, runID, name string, started time.Time, stageErr error) {
	if s.journal == nil || runID == "" {
		return
	}
	now := time.Now()
	sr := &core.StageRun{
		RunID:       runID,
		Stage:       name,
		Status:      core.StageStatusSuccess,
		StartedAt:   started,
		CompletedAt: now,
		DurationMS:  now.Sub(started).Milliseconds(),
	}
	if stageErr != nil {
		sr.Status = core.StageStatusFailed
		sr.Error = stageErr.Error()
	}
	if err := s.journal.RecordStage(ctx, sr); err != nil {
		s.logger.Warn("failed to record stage", "run_id", runID, "stage", name, "error", err.Error())
	}
}

func (s *Syncer) finishRun(ctx context.Context, runID string, runErr error) {
	if s.journal == nil || runID == "" {
		return
	}
	if err := s.journal.FinishRun(ctx, runID, runErr); err != nil {
		s.logger.Warn("failed to record run completion", "run_id", runID, "error", err.Error())
	}
}
