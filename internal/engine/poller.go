package engine

import (
	"context"
	"fmt"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// AwaitColumnReady polls a column until the backend reports it available.
//
// A column that is not yet visible is treated as still provisioning. A
// failed or stuck column is an Appwrite error; running out of attempts is a
// Timeout error.
func (s *Syncer) AwaitColumnReady(ctx context.Context, databaseID, tableID, key string) error {
	for attempt := 1; attempt <= s.pollAttempts; attempt++ {
		col, err := s.backend.GetColumn(ctx, databaseID, tableID, key)
		switch {
		case err == nil:
			switch {
			case col.Status == core.StatusAvailable:
				return nil
			case col.Status.IsGhost():
				msg := fmt.Sprintf("column %q in table %q is %s", key, tableID, col.Status)
				if col.Error != "" {
					msg += ": " + col.Error
				}
				return core.NewAppwriteError(msg, nil)
			}
			s.logger.Debug("column not ready", "table", tableID, "column", key, "status", col.Status, "attempt", attempt)
		case core.IsNotFound(err):
			s.logger.Debug("column not visible yet", "table", tableID, "column", key, "attempt", attempt)
		default:
			return core.NewAppwriteError(fmt.Sprintf("failed to poll column %q in table %q", key, tableID), err)
		}

		if attempt < s.pollAttempts {
			if err := sleep(ctx, s.pollInterval); err != nil {
				return err
			}
		}
	}
	return core.NewTimeoutError(fmt.Sprintf("column %q in table %q not available after %d attempts", key, tableID, s.pollAttempts))
}

// awaitIndexGone polls until a deleted index is no longer reported.
func (s *Syncer) awaitIndexGone(ctx context.Context, databaseID, tableID, key string) error {
	for attempt := 1; attempt <= s.pollAttempts; attempt++ {
		_, err := s.backend.GetIndex(ctx, databaseID, tableID, key)
		switch {
		case core.IsNotFound(err):
			return nil
		case err != nil:
			return core.NewAppwriteError(fmt.Sprintf("failed to poll index %q in table %q", key, tableID), err)
		}

		if attempt < s.pollAttempts {
			if err := sleep(ctx, s.pollInterval); err != nil {
				return err
			}
		}
	}
	return core.NewTimeoutError(fmt.Sprintf("index %q in table %q still present after %d attempts", key, tableID, s.pollAttempts))
}
