package main

import (
	"cmp"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Ghunter254/lazy-appwrite/internal/cli"
	"github.com/Ghunter254/lazy-appwrite/internal/cli/output"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// stageSummaries describes what each sync stage converges.
var stageSummaries = map[string]string{
	core.StageDatabase: "Pings the backend once per process, then creates the database if it is missing.",
	core.StageTable:    "Creates the table, or updates it when permissions, row security or the enabled flag drifted.",
	core.StageColumns:  "Creates missing columns and updates drifted ones, waiting until each is available. A column whose type changed fails the table.",
	core.StageIndexes:  "Creates missing indexes and replaces indexes whose type or columns changed.",
}

// outputSummaries describes the --output modes.
var outputSummaries = []struct {
	mode output.Mode
	text string
}{
	{output.ModeAuto, "Text on a terminal, markdown when piped"},
	{output.ModeText, "Aligned tables for humans"},
	{output.ModeMarkdown, "Markdown tables, for pasting into reviews"},
	{output.ModeJSON, "One JSON document on stdout, for scripts"},
}

// generateCLIDocs writes index.md plus one page per documented command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	commands := documentedCommands(root)

	pages := map[string][]byte{"index.md": renderCLIIndex(root, commands)}
	for _, cmd := range commands {
		pages[cmd.Name()+".md"] = renderCommandPage(cmd)
	}
	for name, data := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

// documentedCommands returns the visible subcommands of root, sorted by name.
func documentedCommands(root *cobra.Command) []*cobra.Command {
	commands := slices.DeleteFunc(slices.Clone(root.Commands()), func(c *cobra.Command) bool {
		return c.Hidden || !c.IsAvailableCommand() || c.Name() == "help" || c.Name() == "completion"
	})
	slices.SortFunc(commands, func(a, b *cobra.Command) int { return strings.Compare(a.Name(), b.Name()) })
	return commands
}

func renderCLIIndex(root *cobra.Command, commands []*cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for lazyappwrite")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("lazyappwrite synchronizes YAML schema documents with an Appwrite project, validates them offline and keeps a journal of every sync run.")
	w.CodeBlock("bash", "go install github.com/Ghunter254/lazy-appwrite/cmd/lazyappwrite@latest")

	w.Header(2, "Commands")
	rows := make([][]string, 0, len(commands))
	for _, cmd := range commands {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name()),
			cleanDescription(cmd.Short),
		})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Sync Stages")
	w.Paragraph("`sync` runs these stages for every table, in order. A failed stage stops the table and is recorded in the journal; `history <run-id>` shows which stage failed.")
	stages := make([]string, 0, len(core.Stages))
	for _, stage := range core.Stages {
		stages = append(stages, InlineCode(stage)+": "+stageSummaries[stage])
	}
	w.BulletList(stages)

	w.Header(2, "Output Modes")
	modes := make([][]string, 0, len(outputSummaries))
	for _, m := range outputSummaries {
		modes = append(modes, []string{InlineCode(string(m.mode)), m.text})
	}
	w.Table([]string{"Mode", "Rendering"}, modes)

	w.Header(2, "Global Options")
	w.Table(flagHeaders, flagRows(root.PersistentFlags()))

	w.Header(2, "Environment Variables")
	w.Paragraph(fmt.Sprintf("Every key of the [configuration file](/reference/configuration) can be set as %s followed by its path in upper case, with sections separated by a double underscore. Flags win over the environment, which wins over the file.", InlineCode(envVar(""))))
	var env [][]string
	for _, f := range getConfigSchema() {
		env = append(env, []string{InlineCode(envVar(f.Key())), f.Description})
	}
	w.Table([]string{"Variable", "Description"}, env)

	w.Paragraph("Any failure exits with status 1 and prints the error, prefixed by its kind (validation, config, appwrite, timeout or abort), on stderr.")
	return w.Bytes()
}

func renderCommandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	w.Paragraph(cmp.Or(cmd.Long, cmd.Short))

	w.Header(2, "Usage")
	w.CodeBlock("bash", cmd.UseLine())

	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		w.Table(flagHeaders, flagRows(cmd.LocalFlags()))
	}
	if cmd.HasInheritedFlags() {
		w.Paragraph("Global options such as `--config` and `--output` also apply; see the [CLI reference](/cli/).")
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}
	return w.Bytes()
}

var flagHeaders = []string{"Option", "Default", "Description"}

func flagRows(flags *pflag.FlagSet) [][]string {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			name = InlineCode("-"+f.Shorthand) + ", " + name
		}
		def := "-"
		if f.DefValue != "" && f.DefValue != "[]" {
			def = InlineCode(f.DefValue)
		}
		rows = append(rows, []string{name, def, cleanDescription(f.Usage)})
	})
	return rows
}

// dedent strips the indentation shared by every non-blank line of s.
func dedent(s string) string {
	var lines []string
	prefix, seen := "", false
	for line := range strings.Lines(s) {
		line = strings.TrimRight(line, " \t\r\n")
		lines = append(lines, line)
		if line == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !seen {
			prefix, seen = indent, true
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
