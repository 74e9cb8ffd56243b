// Package output renders CLI results as terminal tables, markdown or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// Mode selects how results are rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto" // text on a terminal, markdown otherwise
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal flag.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{out: out, errOut: errOut, mode: mode, isTTY: isTTY}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// EffectiveMode resolves ModeAuto.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// Out returns the standard output writer.
func (r *Renderer) Out() io.Writer {
	return r.out
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders a header and rows. In markdown mode the table is a GitHub
// markdown table; otherwise a box-drawn terminal table.
func (r *Renderer) Table(header []string, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	hdr := make(table.Row, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	t.AppendHeader(hdr)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

// Header writes a section title.
func (r *Renderer) Header(title string) {
	if r.EffectiveMode() == ModeMarkdown {
		_, _ = fmt.Fprintf(r.out, "## %s\n\n", title)
		return
	}
	_, _ = fmt.Fprintln(r.out, title)
}

// Println writes a plain line.
func (r *Renderer) Println(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format+"\n", args...)
}

// Success writes a success line.
func (r *Renderer) Success(format string, args ...any) {
	r.status("✓", format, args...)
}

// Warning writes a warning line to the error stream.
func (r *Renderer) Warning(format string, args ...any) {
	_, _ = fmt.Fprintf(r.errOut, "Warning: "+format+"\n", args...)
}

// Failure writes a failure line.
func (r *Renderer) Failure(format string, args ...any) {
	r.status("✗", format, args...)
}

func (r *Renderer) status(mark, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.EffectiveMode() == ModeMarkdown {
		_, _ = fmt.Fprintf(r.out, "- %s %s\n", mark, msg)
		return
	}
	_, _ = fmt.Fprintf(r.out, "%s %s\n", mark, msg)
}
