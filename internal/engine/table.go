package engine

import (
	"context"
	"fmt"

	"github.com/Ghunter254/lazy-appwrite/internal/retry"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// EnsureTable creates the table if missing, otherwise reconciles its
// permissions, row security and enabled flag. At most one create or update
// call is made.
func (s *Syncer) EnsureTable(ctx context.Context, databaseID string, table schema.Table) error {
	remote, err := s.backend.GetTable(ctx, databaseID, table.ID)
	if err != nil {
		if !core.IsNotFound(err) {
			return core.NewAppwriteError(fmt.Sprintf("failed to read table %q", table.ID), err)
		}
		return s.createTable(ctx, databaseID, table)
	}

	update, drift := tableDrift(remote, table)
	if len(drift) == 0 {
		s.logger.Debug("table up to date", "table", table.ID)
		return nil
	}

	s.logger.Info("updating table", "table", table.ID, "drift", drift)
	_, err = retry.Value(ctx, s.retry, "update table", func(ctx context.Context) (*core.Table, error) {
		return s.backend.UpdateTable(ctx, databaseID, table.ID, update)
	})
	if err != nil {
		return core.NewAppwriteError(fmt.Sprintf("failed to update table %q", table.ID), err)
	}
	return nil
}

func (s *Syncer) createTable(ctx context.Context, databaseID string, table schema.Table) error {
	s.logger.Info("creating table", "table", table.ID)
	spec := core.TableSpec{
		ID:          table.ID,
		Name:        table.DisplayName(),
		Permissions: declaredPermissions(table),
		RowSecurity: table.RowSecurityEnabled(),
		Enabled:     table.Enabled,
	}
	_, err := retry.Value(ctx, s.retry, "create table", func(ctx context.Context) (*core.Table, error) {
		return s.backend.CreateTable(ctx, databaseID, spec)
	})
	if err != nil && !core.IsConflict(err) {
		return core.NewAppwriteError(fmt.Sprintf("failed to create table %q", table.ID), err)
	}
	return nil
}

// tableDrift compares the remote table with its declaration and returns the
// update to apply along with the names of the drifted fields.
func tableDrift(remote *core.Table, table schema.Table) (core.TableUpdate, []string) {
	var drift []string
	declared := declaredPermissions(table)
	if !sameSet(remote.Permissions, declared) {
		drift = append(drift, "permissions")
	}
	rowSecurity := table.RowSecurityEnabled()
	if remote.RowSecurity != rowSecurity {
		drift = append(drift, "rowSecurity")
	}
	if table.Enabled != nil && *table.Enabled != remote.Enabled {
		drift = append(drift, "enabled")
	}

	return core.TableUpdate{
		Name:        table.DisplayName(),
		Permissions: declared,
		RowSecurity: &rowSecurity,
		Enabled:     table.Enabled,
	}, drift
}

func declaredPermissions(table schema.Table) []string {
	if table.Permissions == nil {
		return []string{}
	}
	return table.Permissions
}

// sameSet reports whether a and b hold the same distinct strings.
func sameSet(a, b []string) bool {
	as := make(map[string]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[string]struct{}, len(b))
	for _, v := range b {
		bs[v] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if _, ok := bs[v]; !ok {
			return false
		}
	}
	return true
}
