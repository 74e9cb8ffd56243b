package engine

import (
	"context"
	"fmt"

	"github.com/Ghunter254/lazy-appwrite/internal/retry"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// VerifyConnection pings the backend once per Syncer. Concurrent first
// callers share a single ping. A failed ping is a Config error and is not
// retried. A caller whose ctx ends first gets ctx.Err(); the shared ping
// carries on for the others.
func (s *Syncer) VerifyConnection(ctx context.Context) error {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()
	if connected {
		return nil
	}

	return s.shared(ctx, "connection", func(ctx context.Context) error {
		s.mu.Lock()
		connected := s.connected
		s.mu.Unlock()
		if connected {
			return nil
		}

		if err := s.backend.Ping(ctx); err != nil {
			return core.NewConfigError("connection", "cannot reach backend; check endpoint, project and API key", err)
		}
		s.logger.Debug("backend connection verified")

		s.mu.Lock()
		s.connected = true
		s.mu.Unlock()
		return nil
	})
}

// EnsureDatabase makes sure the database exists, creating it if needed.
// Existence is remembered per database id for the life of the Syncer.
func (s *Syncer) EnsureDatabase(ctx context.Context, databaseID, name string) error {
	if err := s.VerifyConnection(ctx); err != nil {
		return err
	}
	if s.databaseKnown(databaseID) {
		return nil
	}
	if name == "" {
		name = databaseID
	}

	return s.shared(ctx, "database:"+databaseID, func(ctx context.Context) error {
		if s.databaseKnown(databaseID) {
			return nil
		}

		_, err := s.backend.GetDatabase(ctx, databaseID)
		switch {
		case err == nil:
		case core.IsNotFound(err):
			s.logger.Info("creating database", "database", databaseID)
			_, err = retry.Value(ctx, s.retry, "create database", func(ctx context.Context) (*core.Database, error) {
				return s.backend.CreateDatabase(ctx, databaseID, name)
			})
			if err != nil && !core.IsConflict(err) {
				return core.NewAppwriteError(fmt.Sprintf("failed to create database %q", databaseID), err)
			}
		default:
			return core.NewAppwriteError(fmt.Sprintf("failed to read database %q", databaseID), err)
		}

		s.mu.Lock()
		s.databases[databaseID] = true
		s.mu.Unlock()
		return nil
	})
}

// shared runs fn once for concurrent callers with the same key. fn gets a
// context detached from ctx's cancellation, so the caller that happens to
// start the flight cannot fail it for the others.
func (s *Syncer) shared(ctx context.Context, key string, fn func(context.Context) error) error {
	flight := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return nil, fn(flight)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *Syncer) databaseKnown(databaseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.databases[databaseID]
}
