// Package guard deduplicates concurrent synchronizations of the same table
// within one process.
//
// The first caller for a key becomes the leader and runs the sync; callers
// that arrive while it is running attach to the same in-flight call and
// observe its result. Keys that succeeded once are remembered for the life
// of the Guard and never synced again.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// DefaultMaxRejoins bounds how often a follower retries after a failed leader.
const DefaultMaxRejoins = 1

// Key identifies a table in a database.
type Key struct {
	DatabaseID string
	TableID    string
}

func (k Key) String() string {
	return k.DatabaseID + "/" + k.TableID
}

type call struct {
	done chan struct{}
	err  error
}

// Guard holds the verified set and the registry of in-flight syncs.
type Guard struct {
	// MaxRejoins is how many times a follower re-enters after the leader
	// it waited on failed.
	MaxRejoins int

	mu       sync.Mutex
	verified map[Key]struct{}
	pending  map[Key]*call
	logger   *slog.Logger
}

// New returns an empty Guard.
func New(logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Guard{
		MaxRejoins: DefaultMaxRejoins,
		verified:   make(map[Key]struct{}),
		pending:    make(map[Key]*call),
		logger:     logger,
	}
}

// IsVerified reports whether key has been synced successfully.
func (g *Guard) IsVerified(key Key) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.verified[key]
	return ok
}

// Verified returns the number of verified keys.
func (g *Guard) Verified() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.verified)
}

// EnsureSynced runs fn for key unless key is already verified or another
// caller is already running it, in which case it waits for that result.
//
// fn runs on a context detached from ctx's cancellation so that a caller
// giving up does not abort a sync other callers are waiting on. If ctx is
// done first, EnsureSynced returns ctx.Err() and the sync carries on.
func (g *Guard) EnsureSynced(ctx context.Context, key Key, fn func(context.Context) error) error {
	rejoins := 0
	for {
		c, leader, done := g.join(ctx, key, fn)
		if done {
			return nil
		}
		if !leader {
			g.logger.Debug("waiting on in-flight sync", slog.String("key", key.String()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
		}

		if c.err == nil {
			return nil
		}
		if leader || !g.shouldRejoin(c.err, rejoins) {
			return c.err
		}
		rejoins++
		g.logger.Debug("in-flight sync failed, retrying",
			slog.String("key", key.String()),
			slog.String("error", c.err.Error()))
	}
}

// join checks the verified set and the pending registry and registers a new
// leader call if neither has key. All three happen under one lock.
func (g *Guard) join(ctx context.Context, key Key, fn func(context.Context) error) (c *call, leader, verified bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.verified[key]; ok {
		return nil, false, true
	}
	if c, ok := g.pending[key]; ok {
		return c, false, false
	}

	c = &call{done: make(chan struct{})}
	g.pending[key] = c
	go g.lead(context.WithoutCancel(ctx), key, c, fn)
	return c, true, false
}

func (g *Guard) lead(ctx context.Context, key Key, c *call, fn func(context.Context) error) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync of %s panicked: %v", key, r)
		}

		g.mu.Lock()
		if err == nil {
			g.verified[key] = struct{}{}
		}
		c.err = err
		delete(g.pending, key)
		g.mu.Unlock()

		close(c.done)
	}()

	err = fn(ctx)
}

// shouldRejoin decides whether a follower retries after the leader failed.
// Failures rooted in bad configuration or an invalid declaration fail the
// same way every time.
func (g *Guard) shouldRejoin(err error, rejoins int) bool {
	if rejoins >= g.MaxRejoins {
		return false
	}
	switch core.RootKind(err) {
	case core.KindConfig, core.KindValidation:
		return false
	}
	return true
}
