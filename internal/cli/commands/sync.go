package commands

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	lazyappwrite "github.com/Ghunter254/lazy-appwrite"
	"github.com/Ghunter254/lazy-appwrite/internal/cli/output"
	"github.com/Ghunter254/lazy-appwrite/internal/dag"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// SyncOptions holds options for the sync command.
type SyncOptions struct {
	NoJournal bool
}

// SyncResult is the JSON output for one table.
type SyncResult struct {
	Database   string `json:"database"`
	Table      string `json:"table"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	opts := &SyncOptions{}
	cmd := &cobra.Command{
		Use:   "sync [table...]",
		Short: "Synchronize declared tables with the backend",
		Long: `Load every schema document, then create or update the database, tables,
columns and indexes they declare. Existing structure is never dropped:
strings only grow, enum elements are only added, and drifted indexes are
recreated.

Tables are synchronized concurrently up to sync.parallelism. Each table
records a run in the sync journal (see "lazyappwrite history").`,
		Example: `  # Sync everything under ./schemas
  lazyappwrite sync

  # Sync two tables only
  lazyappwrite sync users posts

  # Against a throwaway in-memory backend
  lazyappwrite sync --backend memory --state :memory:`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoJournal, "no-journal", false, "Do not record runs in the sync journal")

	return cmd
}

type tableGroup struct {
	database schema.DatabaseRef
	tables   []schema.Table
}

// groupTables collects tables per database in document order, keeping only
// the tables named in selected, and the tables they relate to, when selected
// is non-empty.
func groupTables(docs []*schema.Document, selected []string) ([]tableGroup, error) {
	if len(selected) > 0 {
		selected = withRelated(docs, selected)
	}
	found := make(map[string]bool, len(selected))
	var groups []tableGroup
	index := make(map[string]int)

	for _, doc := range docs {
		for _, t := range doc.Tables {
			if len(selected) > 0 && !slices.Contains(selected, t.ID) {
				continue
			}
			found[t.ID] = true
			i, ok := index[doc.Database.ID]
			if !ok {
				i = len(groups)
				index[doc.Database.ID] = i
				groups = append(groups, tableGroup{database: doc.Database})
			}
			groups[i].tables = append(groups[i].tables, t)
		}
	}

	for _, name := range selected {
		if !found[name] {
			return nil, fmt.Errorf("table %q is not declared in any schema document", name)
		}
	}
	return groups, nil
}

// withRelated adds the relationship targets of every selected table.
func withRelated(docs []*schema.Document, selected []string) []string {
	byDB := make(map[string][]schema.Table)
	var dbs []string
	for _, doc := range docs {
		if _, ok := byDB[doc.Database.ID]; !ok {
			dbs = append(dbs, doc.Database.ID)
		}
		byDB[doc.Database.ID] = append(byDB[doc.Database.ID], doc.Tables...)
	}

	out := slices.Clone(selected)
	for _, db := range dbs {
		g := dag.New(byDB[db])
		for _, id := range selected {
			for _, up := range g.Upstream(id) {
				if !slices.Contains(out, up) {
					out = append(out, up)
				}
			}
		}
	}
	return out
}

func runSync(cmd *cobra.Command, args []string, opts *SyncOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	r := cmdCtx.Renderer

	docs, err := cmdCtx.LoadDocuments()
	if err != nil {
		return err
	}
	if err := ValidateDocuments(docs); err != nil {
		return err
	}
	groups, err := groupTables(docs, args)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		r.Warning("no tables declared in %v", cmdCtx.Cfg.Schemas)
		return nil
	}

	b, err := cmdCtx.OpenBackend(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	var journal lazyappwrite.Journal
	if !opts.NoJournal {
		store, err := cmdCtx.OpenJournal()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		journal = store
	}

	client := lazyappwrite.New(b, cmdCtx.ClientConfig(journal))
	start := time.Now()

	var results []SyncResult
	var aborts []error
	failed := 0
	for _, g := range groups {
		db := client.Database(g.database.ID, g.database.DisplayName())
		out, err := db.SyncAll(ctx, g.tables, cmdCtx.Cfg.Sync.Parallelism)
		if err != nil {
			cmdCtx.Logger.Warn("database sync aborted", "database", g.database.ID, "error", err.Error())
			aborts = append(aborts, err)
		}
		for _, res := range out {
			sr := SyncResult{
				Database:   g.database.ID,
				Table:      res.TableID,
				Status:     "synced",
				DurationMS: res.Duration.Milliseconds(),
			}
			if res.Err != nil {
				sr.Status = "failed"
				sr.Error = res.Err.Error()
				failed++
			}
			results = append(results, sr)
		}
	}

	if err := renderSyncResults(r, results, time.Since(start)); err != nil {
		return err
	}
	return syncFailure(failed, len(results), aborts)
}

// syncFailure summarizes a sync run. Abort errors from databases in which
// every table failed are wrapped so callers can still match their kind.
func syncFailure(failed, total int, aborts []error) error {
	if failed == 0 && len(aborts) == 0 {
		return nil
	}
	summary := fmt.Sprintf("%d of %d tables failed to sync", failed, total)
	if len(aborts) == 0 {
		return errors.New(summary)
	}
	return fmt.Errorf("%s: %w", summary, errors.Join(aborts...))
}

func renderSyncResults(r *output.Renderer, results []SyncResult, elapsed time.Duration) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(results)
	}

	rows := make([][]any, 0, len(results))
	for _, res := range results {
		rows = append(rows, []any{res.Database, res.Table, res.Status, fmt.Sprintf("%dms", res.DurationMS), res.Error})
	}
	r.Table([]string{"Database", "Table", "Status", "Duration", "Error"}, rows)
	r.Println("Completed %d tables in %s", len(results), elapsed.Round(time.Millisecond))
	return nil
}
