package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ghunter254/lazy-appwrite/internal/cli/output"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
	Prune int
}

// RunOutput is the JSON output for one run.
type RunOutput struct {
	ID          string        `json:"id"`
	Database    string        `json:"database"`
	Table       string        `json:"table"`
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Error       string        `json:"error,omitempty"`
	Stages      []StageOutput `json:"stages,omitempty"`
}

// StageOutput is the JSON output for one stage.
type StageOutput struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded sync runs",
		Long: `List recent runs from the sync journal, newest first. With a run id, show
the stages of that run.`,
		Example: `  lazyappwrite history --limit 5
  lazyappwrite history 4f1c0b5e-...
  lazyappwrite history --prune 100`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().IntVar(&opts.Prune, "prune", 0, "Delete all but the newest N runs")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string, opts *HistoryOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	r := cmdCtx.Renderer

	store, err := cmdCtx.OpenJournal()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if opts.Prune > 0 {
		n, err := store.PruneRuns(ctx, opts.Prune)
		if err != nil {
			return err
		}
		r.Success("pruned %d runs", n)
		return nil
	}

	if len(args) == 1 {
		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		stages, err := store.ListStages(ctx, run.ID)
		if err != nil {
			return err
		}
		out := toRunOutput(*run)
		for _, s := range stages {
			out.Stages = append(out.Stages, StageOutput{
				Stage: s.Stage, Status: string(s.Status), DurationMS: s.DurationMS, Error: s.Error,
			})
		}
		return renderRun(r, out)
	}

	runs, err := store.ListRuns(ctx, opts.Limit)
	if err != nil {
		return err
	}
	outs := make([]RunOutput, 0, len(runs))
	for _, run := range runs {
		outs = append(outs, toRunOutput(run))
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(outs)
	}
	if len(outs) == 0 {
		r.Println("No runs recorded in %s", store.Path())
		return nil
	}
	rows := make([][]any, 0, len(outs))
	for _, o := range outs {
		rows = append(rows, []any{o.ID, o.Database, o.Table, o.Status, o.StartedAt.Local().Format(time.DateTime), o.Error})
	}
	r.Table([]string{"Run", "Database", "Table", "Status", "Started", "Error"}, rows)
	return nil
}

func toRunOutput(run core.Run) RunOutput {
	return RunOutput{
		ID:          run.ID,
		Database:    run.DatabaseID,
		Table:       run.TableID,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Error:       run.Error,
	}
}

func renderRun(r *output.Renderer, run RunOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(run)
	}
	r.Header(fmt.Sprintf("Run %s", run.ID))
	r.Println("Table:  %s/%s", run.Database, run.Table)
	r.Println("Status: %s", run.Status)
	if run.Error != "" {
		r.Println("Error:  %s", run.Error)
	}
	rows := make([][]any, 0, len(run.Stages))
	for _, s := range run.Stages {
		rows = append(rows, []any{s.Stage, s.Status, fmt.Sprintf("%dms", s.DurationMS), s.Error})
	}
	r.Table([]string{"Stage", "Status", "Duration", "Error"}, rows)
	return nil
}
