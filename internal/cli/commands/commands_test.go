package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ghunter254/lazy-appwrite/internal/config"
	"github.com/Ghunter254/lazy-appwrite/internal/testutil"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

const blogSchema = `
database:
  id: blog
  name: Blog
tables:
  - id: posts
    columns:
      - {key: title, type: string, size: 200, required: true}
      - {key: published, type: boolean, default: false}
    indexes:
      - {key: by_title, type: key, columns: [title]}
  - id: tags
    columns:
      - {key: label, type: string, size: 32}
`

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "blog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return dir
}

func testConfig(t *testing.T, schemaDir string) *config.Config {
	t.Helper()
	return &config.Config{
		Backend:      config.BackendConfig{Type: "memory"},
		Schemas:      []string{schemaDir},
		StatePath:    filepath.Join(t.TempDir(), "state", "journal.db"),
		OutputFormat: "json",
		Sync: config.SyncConfig{
			MaxRetries:   1,
			InitialDelay: time.Millisecond,
			PollAttempts: 5,
			PollInterval: time.Millisecond,
			ColumnPacing: -1,
			Parallelism:  2,
			MaxRejoins:   1,
		},
	}
}

func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	// as under the root command: errors are returned, not printed with usage
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	ctx := WithLogger(WithConfig(context.Background(), cfg), testutil.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewSyncCommand(), "sync [table...]", []string{"no-journal"}},
		{NewValidateCommand(), "validate", nil},
		{NewHistoryCommand(), "history [run-id]", []string{"limit", "prune"}},
		{NewDoctorCommand(), "doctor", []string{"format", "timeout"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			assert.NotEmpty(t, tt.cmd.Long)
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), "flag %s", name)
			}
		})
	}
}

func TestNewCommandContext_NoConfig(t *testing.T) {
	cmd := NewValidateCommand()
	cmd.SetContext(context.Background())
	_, err := NewCommandContext(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration not loaded")
}

func TestGroupTables(t *testing.T) {
	col := []schema.Column{{Key: "a", Kind: schema.KindBoolean}}
	docs := []*schema.Document{
		{Database: schema.DatabaseRef{ID: "blog"}, Tables: []schema.Table{{ID: "posts", Columns: col}}},
		{Database: schema.DatabaseRef{ID: "logs"}, Tables: []schema.Table{{ID: "events", Columns: col}}},
		{Database: schema.DatabaseRef{ID: "blog"}, Tables: []schema.Table{{ID: "tags", Columns: col}}},
	}

	t.Run("all", func(t *testing.T) {
		groups, err := groupTables(docs, nil)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "blog", groups[0].database.ID)
		require.Len(t, groups[0].tables, 2)
		assert.Equal(t, "posts", groups[0].tables[0].ID)
		assert.Equal(t, "tags", groups[0].tables[1].ID)
		assert.Equal(t, "logs", groups[1].database.ID)
	})

	t.Run("selected", func(t *testing.T) {
		groups, err := groupTables(docs, []string{"events"})
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "logs", groups[0].database.ID)
	})

	t.Run("selected pulls in relationship targets", func(t *testing.T) {
		withRel := append([]*schema.Document{}, docs...)
		withRel = append(withRel, &schema.Document{
			Database: schema.DatabaseRef{ID: "blog"},
			Tables: []schema.Table{{ID: "comments", Columns: []schema.Column{{
				Key: "post", Kind: schema.KindRelationship,
				Relation: &schema.Relation{RelatedTable: "posts", Type: schema.ManyToOne},
			}}}},
		})
		groups, err := groupTables(withRel, []string{"comments"})
		require.NoError(t, err)
		require.Len(t, groups, 1)
		require.Len(t, groups[0].tables, 2)
		assert.Equal(t, "posts", groups[0].tables[0].ID)
		assert.Equal(t, "comments", groups[0].tables[1].ID)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := groupTables(docs, []string{"comments"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"comments" is not declared`)
	})
}

func TestLoadDocuments_DefaultDatabase(t *testing.T) {
	dir := writeSchema(t, "tables:\n  - id: notes\n    columns:\n      - {key: body, type: string, size: 10}\n")
	cfg := testConfig(t, dir)
	cfg.Database = config.DatabaseConfig{ID: "main", Name: "Main"}

	c := &CommandContext{Cfg: cfg}
	docs, err := c.LoadDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "main", docs[0].Database.ID)
	assert.Equal(t, "Main", docs[0].Database.Name)
}

func TestLoadDocuments_NoSchemas(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Schemas = nil
	_, err := (&CommandContext{Cfg: cfg}).LoadDocuments()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema paths configured")
}

func TestClientConfig_ZeroMeansOff(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Sync.MaxRejoins = 0
	cfg.Sync.ColumnPacing = 0

	cc := (&CommandContext{Cfg: cfg}).ClientConfig(nil)
	assert.Equal(t, -1, cc.MaxRejoins)
	assert.Equal(t, time.Duration(-1), cc.ColumnPacing)
	assert.Nil(t, cc.Journal)

	cfg.Sync.MaxRejoins = 2
	cfg.Sync.ColumnPacing = 50 * time.Millisecond
	cc = (&CommandContext{Cfg: cfg}).ClientConfig(nil)
	assert.Equal(t, 2, cc.MaxRejoins)
	assert.Equal(t, 50*time.Millisecond, cc.ColumnPacing)
}

func TestValidateCommand(t *testing.T) {
	cfg := testConfig(t, writeSchema(t, blogSchema))

	out, err := execute(t, NewValidateCommand(), cfg)
	require.NoError(t, err)

	var tables []TableSummary
	require.NoError(t, json.Unmarshal([]byte(out), &tables))
	require.Len(t, tables, 2)
	assert.Equal(t, "posts", tables[0].Table)
	assert.Equal(t, 2, tables[0].Columns)
	assert.Equal(t, 1, tables[0].Indexes)
}

func TestValidateCommand_Invalid(t *testing.T) {
	cfg := testConfig(t, writeSchema(t, "database: {id: blog}\ntables:\n  - id: t\n    columns:\n      - {key: a, type: string}\n"))

	_, err := execute(t, NewValidateCommand(), cfg)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindValidation))
	assert.Contains(t, err.Error(), "size must be positive")
}

func TestSyncCommand(t *testing.T) {
	cfg := testConfig(t, writeSchema(t, blogSchema))

	out, err := execute(t, NewSyncCommand(), cfg)
	require.NoError(t, err)

	var results []SyncResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "blog", r.Database)
		assert.Equal(t, "synced", r.Status, r.Error)
	}

	// every table recorded a run
	out, err = execute(t, NewHistoryCommand(), cfg)
	require.NoError(t, err)
	var runs []RunOutput
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "completed", runs[0].Status)

	out, err = execute(t, NewHistoryCommand(), cfg, runs[0].ID)
	require.NoError(t, err)
	var run RunOutput
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, runs[0].ID, run.ID)
	assert.NotEmpty(t, run.Stages)
}

func TestSyncCommand_SelectedTable(t *testing.T) {
	cfg := testConfig(t, writeSchema(t, blogSchema))

	out, err := execute(t, NewSyncCommand(), cfg, "--no-journal", "tags")
	require.NoError(t, err)

	var results []SyncResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "tags", results[0].Table)
	_, statErr := os.Stat(cfg.StatePath)
	assert.True(t, os.IsNotExist(statErr), "journal should not be created")
}

func TestSyncCommand_UnknownTable(t *testing.T) {
	cfg := testConfig(t, writeSchema(t, blogSchema))

	_, err := execute(t, NewSyncCommand(), cfg, "comments")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not declared")
}

func TestSyncCommand_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, writeSchema(t, blogSchema))
	cfg.Sync.Parallelism = 0

	_, err := execute(t, NewSyncCommand(), cfg)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindConfig))
}

func TestSyncFailure(t *testing.T) {
	assert.NoError(t, syncFailure(0, 3, nil))

	err := syncFailure(1, 3, nil)
	require.Error(t, err)
	assert.Equal(t, "1 of 3 tables failed to sync", err.Error())
	assert.False(t, core.IsKind(err, core.KindAbort))

	abort := core.NewAbortError("all 2 tables failed to sync", errors.New("posts: boom"))
	err = syncFailure(2, 3, []error{abort})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindAbort))
	assert.ErrorIs(t, err, abort)
	assert.Contains(t, err.Error(), "2 of 3 tables failed to sync")
	assert.Contains(t, err.Error(), "posts: boom")
}

func TestHistoryCommand_Prune(t *testing.T) {
	cfg := testConfig(t, writeSchema(t, blogSchema))
	_, err := execute(t, NewSyncCommand(), cfg)
	require.NoError(t, err)

	cfg.OutputFormat = "markdown"
	out, err := execute(t, NewHistoryCommand(), cfg, "--prune", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "pruned 1 runs")

	cfg.OutputFormat = "json"
	out, err = execute(t, NewHistoryCommand(), cfg)
	require.NoError(t, err)
	var runs []RunOutput
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	assert.Len(t, runs, 1)
}

func TestHistoryCommand_UnknownRun(t *testing.T) {
	cfg := testConfig(t, writeSchema(t, blogSchema))

	_, err := execute(t, NewHistoryCommand(), cfg, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}
