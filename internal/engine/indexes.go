package engine

import (
	"context"
	"fmt"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// SyncIndexes creates missing indexes and repairs broken or drifted ones.
//
// Before creating an index every participating column must be available.
// An index whose columns never become ready is skipped with a warning and
// does not fail the pass.
func (s *Syncer) SyncIndexes(ctx context.Context, databaseID, tableID string, indexes []schema.Index) error {
	if len(indexes) == 0 {
		return nil
	}
	remote, err := s.backend.ListIndexes(ctx, databaseID, tableID)
	if err != nil {
		return core.NewAppwriteError(fmt.Sprintf("failed to list indexes of table %q", tableID), err)
	}
	byKey := make(map[string]core.Index, len(remote))
	for _, idx := range remote {
		byKey[idx.Key] = idx
	}

	for _, idx := range indexes {
		if existing, ok := byKey[idx.Key]; ok {
			proceed, err := s.clearIndex(ctx, databaseID, tableID, idx, existing)
			if err != nil {
				return err
			}
			if !proceed {
				continue
			}
		}
		if err := s.createIndex(ctx, databaseID, tableID, idx); err != nil {
			return err
		}
	}
	return nil
}

// clearIndex decides what to do with an index that already exists remotely.
// It returns true when the index has been removed and must be recreated.
func (s *Syncer) clearIndex(ctx context.Context, databaseID, tableID string, idx schema.Index, remote core.Index) (bool, error) {
	log := s.logger.With("table", tableID, "index", idx.Key)

	switch {
	case remote.Status == core.StatusDeleting:
		log.Info("index is being deleted, waiting before recreating")
	case remote.Status.IsGhost():
		log.Warn("repairing broken index", "status", remote.Status, "remote_error", remote.Error)
		if err := s.deleteIndex(ctx, databaseID, tableID, idx.Key); err != nil {
			return false, err
		}
	case !indexMatches(idx, remote):
		log.Warn("index differs from declaration, recreating",
			"remote_type", remote.Type, "remote_columns", remote.Columns)
		if err := s.deleteIndex(ctx, databaseID, tableID, idx.Key); err != nil {
			return false, err
		}
	default:
		log.Debug("index up to date")
		return false, nil
	}

	if err := s.awaitIndexGone(ctx, databaseID, tableID, idx.Key); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		log.Warn("index not removed in time, skipping", "error", err.Error())
		return false, nil
	}
	return true, nil
}

func (s *Syncer) deleteIndex(ctx context.Context, databaseID, tableID, key string) error {
	err := s.retry.Do(ctx, "delete index", func(ctx context.Context) error {
		return s.backend.DeleteIndex(ctx, databaseID, tableID, key)
	})
	if err != nil && !core.IsNotFound(err) {
		return core.NewAppwriteError(fmt.Sprintf("failed to delete index %q in table %q", key, tableID), err)
	}
	return nil
}

func (s *Syncer) createIndex(ctx context.Context, databaseID, tableID string, idx schema.Index) error {
	for _, key := range idx.Columns {
		if schema.IsSystemColumn(key) {
			continue
		}
		if err := s.AwaitColumnReady(ctx, databaseID, tableID, key); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("skipping index, column not ready",
				"table", tableID, "index", idx.Key, "column", key, "error", err.Error())
			return nil
		}
	}

	spec := core.IndexSpec{
		Key:     idx.Key,
		Type:    idx.Type,
		Columns: idx.Columns,
	}
	if idx.Type != schema.IndexSpatial {
		spec.Orders = make([]string, len(idx.Columns))
		for i := range spec.Orders {
			spec.Orders[i] = "ASC"
		}
	}

	s.logger.Info("creating index", "table", tableID, "index", idx.Key, "type", idx.Type)
	err := s.retry.Do(ctx, "create index", func(ctx context.Context) error {
		return s.backend.CreateIndex(ctx, databaseID, tableID, spec)
	})
	if err != nil && !core.IsConflict(err) {
		return core.NewAppwriteError(fmt.Sprintf("failed to create index %q in table %q", idx.Key, tableID), err)
	}
	return nil
}

// indexMatches reports whether remote has the declared type and the same
// set of columns, in any order.
func indexMatches(idx schema.Index, remote core.Index) bool {
	return idx.Type == remote.Type && sameSet(idx.Columns, remote.Columns) && len(idx.Columns) == len(remote.Columns)
}
