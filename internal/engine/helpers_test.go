package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ghunter254/lazy-appwrite/internal/testutil"
	"github.com/Ghunter254/lazy-appwrite/pkg/backends/memory"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// newTestSyncer returns a Syncer with fast retries, polling and no pacing.
func newTestSyncer(t *testing.T, b core.Backend, opts ...func(*Config)) *Syncer {
	t.Helper()
	cfg := Config{
		Backend:      b,
		Logger:       testutil.NewTestLogger(t),
		InitialDelay: time.Millisecond,
		PollAttempts: 5,
		PollInterval: time.Millisecond,
		ColumnPacing: -1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}

// seededBackend returns a memory backend holding main/users with the given
// remote columns.
func seededBackend(t *testing.T, table core.Table, cols ...core.Column) *memory.Backend {
	t.Helper()
	b := memory.New(testutil.NewTestLogger(t))
	if table.ID == "" {
		table.ID = "users"
	}
	if table.Name == "" {
		table.Name = table.ID
	}
	b.PutTable("main", table)
	for _, c := range cols {
		b.PutColumn("main", table.ID, c)
	}
	return b
}

func usersTable() schema.Table {
	return schema.Table{
		ID:          "users",
		Name:        "Users",
		Permissions: []string{`read("any")`, `create("users")`},
		Columns: []schema.Column{
			{Key: "name", Kind: schema.KindString, Size: 128, Required: true},
			{Key: "email", Kind: schema.KindEmail},
			{Key: "role", Kind: schema.KindEnum, Elements: []string{"admin", "member"}, Default: "member"},
			{Key: "age", Kind: schema.KindInteger, Min: schema.Float(0)},
		},
		Indexes: []schema.Index{
			{Key: "by_email", Type: schema.IndexUnique, Columns: []string{"email"}},
			{Key: "by_created", Type: schema.IndexKey, Columns: []string{"$createdAt", "name"}},
		},
	}
}

type fakeJournal struct {
	mu       sync.Mutex
	runs     []string
	stages   []core.StageRun
	finished map[string]error
	startErr error
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{finished: make(map[string]error)}
}

func (j *fakeJournal) StartRun(_ context.Context, databaseID, tableID string) (*core.Run, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.startErr != nil {
		return nil, j.startErr
	}
	id := databaseID + "/" + tableID
	j.runs = append(j.runs, id)
	return &core.Run{ID: id, DatabaseID: databaseID, TableID: tableID, Status: core.RunStatusRunning}, nil
}

func (j *fakeJournal) RecordStage(_ context.Context, stage *core.StageRun) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stages = append(j.stages, *stage)
	return nil
}

func (j *fakeJournal) FinishRun(_ context.Context, runID string, runErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finished[runID] = runErr
	return nil
}

var errUnavailable = errors.New("journal unavailable")

func apiError(code int) error {
	return &core.APIError{Code: code, Message: "injected"}
}
