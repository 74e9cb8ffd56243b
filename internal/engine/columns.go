package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// SyncColumns creates missing columns and reconciles existing ones.
//
// Type and array-shape changes cannot be applied without migrating data and
// are reported as Validation errors. Strings only grow. Enum elements are
// only ever added.
func (s *Syncer) SyncColumns(ctx context.Context, databaseID, tableID string, columns []schema.Column) error {
	remote, err := s.backend.ListColumns(ctx, databaseID, tableID)
	if err != nil {
		return core.NewAppwriteError(fmt.Sprintf("failed to list columns of table %q", tableID), err)
	}
	byKey := make(map[string]core.Column, len(remote))
	for _, c := range remote {
		byKey[c.Key] = c
	}

	for _, col := range columns {
		existing, ok := byKey[col.Key]
		if !ok {
			if err := s.createColumn(ctx, databaseID, tableID, col); err != nil {
				return err
			}
			continue
		}
		if err := s.reconcileColumn(ctx, databaseID, tableID, col, existing); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) createColumn(ctx context.Context, databaseID, tableID string, col schema.Column) error {
	s.logger.Info("creating column", "table", tableID, "column", col.Key, "type", col.Kind)
	err := s.retry.Do(ctx, "create column", func(ctx context.Context) error {
		return s.backend.CreateColumn(ctx, databaseID, tableID, col)
	})
	if err != nil {
		if core.IsConflict(err) {
			s.logger.Debug("column already exists", "table", tableID, "column", col.Key)
			return nil
		}
		return core.NewAppwriteError(fmt.Sprintf("failed to create column %q (%s) in table %q", col.Key, col.Kind, tableID), err)
	}
	// the backend provisions columns asynchronously; spread out creations
	return sleep(ctx, s.columnPacing)
}

func (s *Syncer) reconcileColumn(ctx context.Context, databaseID, tableID string, col schema.Column, remote core.Column) error {
	if col.Kind != remote.Kind {
		if col.Kind == schema.KindRelationship {
			s.logger.Warn("relationship column differs from remote, skipping",
				"table", tableID, "column", col.Key, "remote_type", remote.Kind)
			return nil
		}
		return core.NewValidationError(fmt.Sprintf(
			"table %q column %q is declared as %s but is %s remotely; changing a column type requires a manual migration",
			tableID, col.Key, col.Kind, remote.Kind), nil)
	}
	if col.Array != remote.Array {
		return core.NewValidationError(fmt.Sprintf(
			"table %q column %q is declared with array=%t but is array=%t remotely (%s); changing array shape requires a manual migration",
			tableID, col.Key, col.Array, remote.Array, remote.Kind), nil)
	}

	switch col.Kind {
	case schema.KindString:
		if col.Size < remote.Size {
			s.logger.Debug("declared string size is smaller than remote, keeping remote",
				"table", tableID, "column", col.Key, "declared", col.Size, "remote", remote.Size)
			return nil
		}
		if col.Size == remote.Size {
			return nil
		}
		s.logger.Info("growing string column", "table", tableID, "column", col.Key, "from", remote.Size, "to", col.Size)
		return s.updateColumn(ctx, databaseID, tableID, col)

	case schema.KindEnum:
		merged := unionElements(remote.Elements, col.Elements)
		if len(merged) == len(remote.Elements) {
			return nil
		}
		s.logger.Info("adding enum elements", "table", tableID, "column", col.Key,
			"added", merged[len(remote.Elements):])
		update := col
		update.Elements = merged
		return s.updateColumn(ctx, databaseID, tableID, update)
	}
	return nil
}

func (s *Syncer) updateColumn(ctx context.Context, databaseID, tableID string, col schema.Column) error {
	err := s.retry.Do(ctx, "update column", func(ctx context.Context) error {
		return s.backend.UpdateColumn(ctx, databaseID, tableID, col)
	})
	if err != nil {
		return core.NewAppwriteError(fmt.Sprintf("failed to update column %q (%s) in table %q", col.Key, col.Kind, tableID), err)
	}
	return nil
}

// unionElements returns remote followed by each declared element remote
// does not already contain.
func unionElements(remote, declared []string) []string {
	merged := slices.Clone(remote)
	for _, e := range declared {
		if !slices.Contains(merged, e) {
			merged = append(merged, e)
		}
	}
	return merged
}
