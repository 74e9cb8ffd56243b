// Package testutil provides logging helpers for tests.
package testutil

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"testing"
)

// NewTestLogger returns a debug-level logger that writes to t.Log, so
// output only appears for failing tests or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(newTextHandler(t))
}

func newTextHandler(t testing.TB) slog.Handler {
	return slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug})
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// Entry is one captured log record.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Recorder captures log records for assertions. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecordingLogger returns a logger that writes to t.Log and also records
// every entry in the returned Recorder.
func NewRecordingLogger(t testing.TB) (*slog.Logger, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	return slog.New(&recordingHandler{next: newTextHandler(t), rec: rec}), rec
}

// Entries returns a copy of the captured records.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

// Has reports whether a record with the given level and message was logged.
func (r *Recorder) Has(level slog.Level, msg string) bool {
	return r.Find(level, msg) != nil
}

// Find returns the first record with the given level and message.
func (r *Recorder) Find(level slog.Level, msg string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].Level == level && r.entries[i].Message == msg {
			e := r.entries[i]
			return &e
		}
	}
	return nil
}

type recordingHandler struct {
	next  slog.Handler
	rec   *Recorder
	attrs []slog.Attr
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	e := Entry{Level: r.Level, Message: r.Message, Attrs: make(map[string]any)}
	for _, a := range h.attrs {
		e.Attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.Resolve().Any()
		return true
	})

	h.rec.mu.Lock()
	h.rec.entries = append(h.rec.entries, e)
	h.rec.mu.Unlock()

	return h.next.Handle(ctx, r)
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{
		next:  h.next.WithAttrs(attrs),
		rec:   h.rec,
		attrs: append(slices.Clone(h.attrs), attrs...),
	}
}

// WithGroup drops the group name from captured keys.
func (h *recordingHandler) WithGroup(name string) slog.Handler {
	return &recordingHandler{next: h.next.WithGroup(name), rec: h.rec, attrs: h.attrs}
}
