package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ghunter254/lazy-appwrite/internal/cli/output"
	"github.com/Ghunter254/lazy-appwrite/internal/config"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format  string // Output format: text, markdown, json
	Timeout time.Duration
}

// Check statuses.
const (
	CheckPass = "pass"
	CheckWarn = "warn"
	CheckFail = "fail"
)

// HealthCheck is the result of one doctor check.
type HealthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Checks  []HealthCheck `json:"checks"`
	Healthy bool          `json:"healthy"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, schemas, backend and journal",
		Long: `Run a series of checks that a sync depends on:
the configuration file, configuration values, schema documents, the backend
connection and the sync journal.`,
		Example: `  lazyappwrite doctor
  lazyappwrite doctor --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "Timeout for the backend check")

	return cmd
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	out := &DoctorOutput{Checks: []HealthCheck{
		checkConfigFile(cmdCtx.Cfg),
		checkConfigValues(cmdCtx.Cfg),
		checkSchemas(cmdCtx),
		checkBackend(cmd.Context(), cmdCtx, opts.Timeout),
		checkJournal(cmdCtx),
	}}
	out.Healthy = true
	failed := 0
	for _, c := range out.Checks {
		if c.Status == CheckFail {
			out.Healthy = false
			failed++
		}
	}

	if err := renderDoctor(r, out); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}

func checkConfigFile(cfg *config.Config) HealthCheck {
	c := HealthCheck{Name: "config file", Status: CheckPass, Detail: cfg.ConfigFile}
	if cfg.ConfigFile == "" {
		c.Status = CheckWarn
		c.Detail = fmt.Sprintf("no %s found; using defaults, environment and flags", config.ConfigFileName)
	}
	return c
}

func checkConfigValues(cfg *config.Config) HealthCheck {
	if err := cfg.Validate(); err != nil {
		return HealthCheck{Name: "configuration", Status: CheckFail, Detail: err.Error()}
	}
	return HealthCheck{Name: "configuration", Status: CheckPass, Detail: "backend " + cfg.Backend.Type}
}

func checkSchemas(cmdCtx *CommandContext) HealthCheck {
	c := HealthCheck{Name: "schemas"}
	docs, err := cmdCtx.LoadDocuments()
	if err == nil {
		err = ValidateDocuments(docs)
	}
	if err != nil {
		c.Status = CheckFail
		c.Detail = err.Error()
		return c
	}
	tables := 0
	for _, d := range docs {
		tables += len(d.Tables)
	}
	c.Status = CheckPass
	c.Detail = fmt.Sprintf("%d documents, %d tables", len(docs), tables)
	if tables == 0 {
		c.Status = CheckWarn
	}
	return c
}

func checkBackend(ctx context.Context, cmdCtx *CommandContext, timeout time.Duration) HealthCheck {
	c := HealthCheck{Name: "backend"}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b, err := cmdCtx.OpenBackend(ctx)
	if err != nil {
		c.Status = CheckFail
		c.Detail = err.Error()
		return c
	}
	defer func() { _ = b.Close() }()

	start := time.Now()
	if err := b.Ping(ctx); err != nil {
		c.Status = CheckFail
		c.Detail = err.Error()
		return c
	}
	c.Status = CheckPass
	c.Detail = fmt.Sprintf("%s reachable in %s", cmdCtx.Cfg.Backend.Type, time.Since(start).Round(time.Millisecond))
	return c
}

func checkJournal(cmdCtx *CommandContext) HealthCheck {
	c := HealthCheck{Name: "journal"}
	store, err := cmdCtx.OpenJournal()
	if err != nil {
		c.Status = CheckFail
		c.Detail = err.Error()
		return c
	}
	defer func() { _ = store.Close() }()

	version, err := store.GetMigrationVersion()
	if err != nil {
		c.Status = CheckFail
		c.Detail = err.Error()
		return c
	}
	c.Status = CheckPass
	c.Detail = fmt.Sprintf("%s (schema version %d)", store.Path(), version)
	return c
}

func renderDoctor(r *output.Renderer, out *DoctorOutput) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Header("lazyappwrite doctor")
	default:
		r.Println("lazyappwrite doctor")
		r.Println("")
	}

	rows := make([][]any, 0, len(out.Checks))
	for _, c := range out.Checks {
		rows = append(rows, []any{statusMark(c.Status), c.Name, c.Detail})
	}
	r.Table([]string{"", "Check", "Detail"}, rows)

	if out.Healthy {
		r.Success("ready to sync")
	} else {
		r.Failure("fix the failing checks before running sync")
	}
	return nil
}

func statusMark(status string) string {
	switch status {
	case CheckPass:
		return "✓"
	case CheckWarn:
		return "!"
	}
	return "✗"
}
