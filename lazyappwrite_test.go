package lazyappwrite_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lazyappwrite "github.com/Ghunter254/lazy-appwrite"
	"github.com/Ghunter254/lazy-appwrite/internal/testutil"
	"github.com/Ghunter254/lazy-appwrite/pkg/backends/memory"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

func newClient(t *testing.T, b core.Backend) *lazyappwrite.Client {
	t.Helper()
	return lazyappwrite.New(b, lazyappwrite.Config{
		DatabaseID:   "main",
		DatabaseName: "Main",
		Logger:       testutil.NewTestLogger(t),
		InitialDelay: time.Millisecond,
		PollAttempts: 5,
		PollInterval: time.Millisecond,
		ColumnPacing: -1,
	})
}

func postsTable() schema.Table {
	return schema.Table{
		ID:   "posts",
		Name: "Posts",
		Columns: []schema.Column{
			{Key: "title", Kind: schema.KindString, Size: 200, Required: true},
			{Key: "published", Kind: schema.KindBoolean, Default: false},
		},
		Indexes: []schema.Index{
			{Key: "by_title", Type: schema.IndexKey, Columns: []string{"title"}},
		},
	}
}

func TestEnsureSynced_ConcurrentCallersCreateOnce(t *testing.T) {
	b := memory.New(nil)
	client := newClient(t, b)
	ctx := context.Background()

	const callers = 25
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = client.EnsureSynced(ctx, postsTable())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, b.Calls(memory.OpCreateDatabase))
	assert.Equal(t, 1, b.Calls(memory.OpCreateTable))
	assert.Equal(t, 2, b.Calls(memory.OpCreateColumn))
	assert.Equal(t, 1, b.Calls(memory.OpCreateIndex))
	assert.True(t, client.IsVerified("posts"))
}

func TestEnsureSynced_VerifiedMakesNoCalls(t *testing.T) {
	b := memory.New(nil)
	client := newClient(t, b)
	ctx := context.Background()

	require.NoError(t, client.EnsureSynced(ctx, postsTable()))
	b.ResetCalls()

	require.NoError(t, client.EnsureSynced(ctx, postsTable()))
	assert.Zero(t, b.TotalCalls())
}

func TestEnsureSynced_RequiresDatabase(t *testing.T) {
	client := lazyappwrite.New(memory.New(nil), lazyappwrite.Config{})
	err := client.EnsureSynced(context.Background(), postsTable())
	assert.Equal(t, core.KindConfig, core.KindOf(err))
}

func TestEnsureSynced_FailureIsRetriedNextTime(t *testing.T) {
	b := memory.New(nil)
	client := newClient(t, b)
	ctx := context.Background()

	b.FailNext(memory.OpCreateTable, &core.APIError{Code: 401, Message: "unauthorized"})
	err := client.EnsureSynced(ctx, postsTable())
	require.Error(t, err)
	assert.False(t, client.IsVerified("posts"))

	require.NoError(t, client.EnsureSynced(ctx, postsTable()))
	assert.True(t, client.IsVerified("posts"))
}

func TestDatabase_SharesVerifiedSet(t *testing.T) {
	b := memory.New(nil)
	client := newClient(t, b)
	logs := client.Database("logs", "")
	ctx := context.Background()

	require.NoError(t, logs.EnsureSynced(ctx, postsTable()))
	assert.Equal(t, "logs", logs.DatabaseID())
	assert.True(t, logs.IsVerified("posts"))
	assert.False(t, client.IsVerified("posts"))
	assert.NotNil(t, b.Table("logs", "posts"))
}

func TestSyncAll(t *testing.T) {
	b := memory.New(nil)
	client := newClient(t, b)
	broken := schema.Table{ID: "broken"}

	results, err := client.SyncAll(context.Background(), []schema.Table{postsTable(), broken}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "posts", results[0].TableID)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "broken", results[1].TableID)
	assert.Equal(t, core.KindValidation, core.KindOf(results[1].Err))
}

func TestSyncAll_RelationshipTargetsFirst(t *testing.T) {
	b := memory.New(nil)
	client := newClient(t, b)
	comments := schema.Table{ID: "comments", Columns: []schema.Column{
		{Key: "body", Kind: schema.KindString, Size: 500},
		{Key: "post", Kind: schema.KindRelationship, Relation: &schema.Relation{
			RelatedTable: "posts", Type: schema.ManyToOne, OnDelete: schema.OnDeleteCascade,
		}},
	}}

	results, err := client.SyncAll(context.Background(), []schema.Table{comments, postsTable()}, 4)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "comments", results[0].TableID)
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)

	col, err := b.GetColumn(context.Background(), "main", "comments", "post")
	require.NoError(t, err)
	assert.Equal(t, "posts", col.Relation.RelatedTable)
}

func TestSyncAll_RelationshipCycleStillSyncs(t *testing.T) {
	rel := func(target string) schema.Column {
		return schema.Column{Key: target, Kind: schema.KindRelationship, Relation: &schema.Relation{
			RelatedTable: target, Type: schema.OneToOne,
		}}
	}
	a := schema.Table{ID: "a", Columns: []schema.Column{{Key: "x", Kind: schema.KindBoolean}, rel("b")}}
	bt := schema.Table{ID: "b", Columns: []schema.Column{{Key: "x", Kind: schema.KindBoolean}, rel("a")}}

	logger, rec := testutil.NewRecordingLogger(t)
	client := lazyappwrite.New(memory.New(nil), lazyappwrite.Config{
		DatabaseID: "main", Logger: logger,
		MaxRetries: 1, InitialDelay: time.Millisecond,
		PollAttempts: 3, PollInterval: time.Millisecond, ColumnPacing: -1,
	})

	results, _ := client.SyncAll(context.Background(), []schema.Table{a, bt}, 2)
	assert.Len(t, results, 2)
	assert.True(t, rec.Has(slog.LevelWarn, "syncing tables without relationship ordering"))
}

func TestSyncAll_EmptyIDIsReported(t *testing.T) {
	b := memory.New(nil)
	client := newClient(t, b)

	results, err := client.SyncAll(context.Background(), []schema.Table{{ID: ""}}, 1)
	require.Error(t, err)
	assert.Equal(t, core.KindAbort, core.KindOf(err))
	require.Len(t, results, 1)
	assert.Equal(t, core.KindValidation, core.KindOf(results[0].Err))
	assert.Contains(t, results[0].Err.Error(), "has no id")
	assert.Zero(t, b.TotalCalls())
}

func TestSyncAll_EmptyIDAlongsideValidTable(t *testing.T) {
	client := newClient(t, memory.New(nil))

	results, err := client.SyncAll(context.Background(), []schema.Table{postsTable(), {ID: ""}}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, core.KindValidation, core.KindOf(results[1].Err))
}

func TestSyncAll_DuplicateIDIsReported(t *testing.T) {
	b := memory.New(nil)
	client := newClient(t, b)
	other := postsTable()
	other.Name = "Other posts"

	results, err := client.SyncAll(context.Background(), []schema.Table{postsTable(), other}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "posts", results[0].TableID)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "posts", results[1].TableID)
	assert.Equal(t, core.KindValidation, core.KindOf(results[1].Err))
	assert.Contains(t, results[1].Err.Error(), "declared twice")
	assert.Equal(t, 1, b.Calls(memory.OpCreateTable))
}

func TestSyncAll_AllFailedIsAbort(t *testing.T) {
	client := newClient(t, memory.New(nil))

	results, err := client.SyncAll(context.Background(), []schema.Table{{ID: "a"}, {ID: "b"}}, 0)
	require.Error(t, err)
	assert.Equal(t, core.KindAbort, core.KindOf(err))
	assert.Len(t, results, 2)
	assert.Contains(t, err.Error(), "all 2 tables failed")
}

func TestSyncAll_Empty(t *testing.T) {
	results, err := newClient(t, memory.New(nil)).SyncAll(context.Background(), nil, 1)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestTable_RowLifecycle(t *testing.T) {
	b := memory.New(nil)
	client := newClient(t, b)
	posts := client.Table(postsTable())
	ctx := context.Background()

	row, err := posts.Create(ctx, "", map[string]any{"title": "hello"}, `read("any")`)
	require.NoError(t, err)
	assert.NotEmpty(t, row.ID)
	assert.Equal(t, []string{`read("any")`}, row.Permissions)
	assert.True(t, client.IsVerified("posts"))

	got, err := posts.Get(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Data["title"])

	updated, err := posts.Update(ctx, row.ID, map[string]any{"published": true})
	require.NoError(t, err)
	assert.Equal(t, true, updated.Data["published"])

	list, err := posts.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	require.NoError(t, posts.Delete(ctx, row.ID))
	_, err = posts.Get(ctx, row.ID)
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, core.KindAppwrite, core.KindOf(err))
}

func TestTable_CreateMissingRequiredField(t *testing.T) {
	b := memory.New(nil)
	posts := newClient(t, b).Table(postsTable())

	_, err := posts.Create(context.Background(), "", map[string]any{"published": true})
	require.Error(t, err)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
	assert.Contains(t, err.Error(), `"title"`)
	assert.Zero(t, b.TotalCalls())
}

func TestTable_ListMissingTableSyncsInBackground(t *testing.T) {
	b := memory.New(nil)
	client := newClient(t, b)
	posts := client.Table(postsTable())

	list, err := posts.List(context.Background())
	require.NoError(t, err)
	assert.Zero(t, list.Total)
	assert.Empty(t, list.Rows)

	client.Wait()
	assert.True(t, client.IsVerified("posts"))
	assert.NotNil(t, b.Table("main", "posts"))
}

func TestTable_BackgroundSyncFailureIsLogged(t *testing.T) {
	b := memory.New(nil)
	logger, rec := testutil.NewRecordingLogger(t)
	client := lazyappwrite.New(b, lazyappwrite.Config{
		DatabaseID:   "main",
		Logger:       logger,
		InitialDelay: time.Millisecond,
		ColumnPacing: -1,
	})
	b.FailNext(memory.OpCreateDatabase, &core.APIError{Code: 403, Message: "forbidden"})

	_, err := client.Table(postsTable()).List(context.Background())
	require.NoError(t, err)
	client.Wait()

	e := rec.Find(slog.LevelWarn, "background sync failed")
	require.NotNil(t, e)
	assert.Equal(t, "posts", e.Attrs["table"])
	assert.False(t, client.IsVerified("posts"))
}

func TestTable_MutationSurfacesSyncFailure(t *testing.T) {
	b := memory.New(nil)
	posts := newClient(t, b).Table(postsTable())
	b.FailNext(memory.OpPing, &core.APIError{Code: 401, Message: "invalid key"})

	_, err := posts.Create(context.Background(), "", map[string]any{"title": "x"})
	require.Error(t, err)
	assert.Equal(t, core.KindConfig, core.KindOf(err))
	assert.Zero(t, b.Calls(memory.OpCreateRow))
}

type structureOnly struct {
	core.Backend
}

func TestTable_BackendWithoutRows(t *testing.T) {
	posts := newClient(t, structureOnly{memory.New(nil)}).Table(postsTable())

	_, err := posts.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, core.KindConfig, core.KindOf(err))
	assert.Contains(t, err.Error(), "row operations")
}
