package commands

import (
	"github.com/spf13/cobra"

	"github.com/Ghunter254/lazy-appwrite/internal/cli/output"
)

// TableSummary is the JSON output of validate for one table.
type TableSummary struct {
	File     string `json:"file"`
	Database string `json:"database"`
	Table    string `json:"table"`
	Columns  int    `json:"columns"`
	Indexes  int    `json:"indexes"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check schema documents without contacting the backend",
		Long: `Parse and validate every schema document. Nothing is sent to the backend,
so no credentials are needed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			docs, err := cmdCtx.LoadDocuments()
			if err != nil {
				return err
			}
			if err := ValidateDocuments(docs); err != nil {
				return err
			}

			var tables []TableSummary
			for _, doc := range docs {
				for _, t := range doc.Tables {
					tables = append(tables, TableSummary{
						File:     doc.Path,
						Database: doc.Database.ID,
						Table:    t.ID,
						Columns:  len(t.Columns),
						Indexes:  len(t.Indexes),
					})
				}
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(tables)
			}
			rows := make([][]any, 0, len(tables))
			for _, t := range tables {
				rows = append(rows, []any{t.Database, t.Table, t.Columns, t.Indexes, t.File})
			}
			r.Table([]string{"Database", "Table", "Columns", "Indexes", "File"}, rows)
			r.Success("%d documents, %d tables valid", len(docs), len(tables))
			return nil
		},
	}
}
