package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// LogEntry is one captured log record.
type LogEntry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogRecorder captures slog output so tests can assert on warnings and
// diagnostics. Obtain a logger with Logger and inspect what was logged
// with Entries, Messages, and Count.
type LogRecorder struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogRecorder creates an empty log recorder.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{}
}

// Logger returns a logger that records every level into the recorder.
func (r *LogRecorder) Logger() *slog.Logger {
	return slog.New(&recordingHandler{recorder: r})
}

// Entries returns a copy of the captured records in log order.
func (r *LogRecorder) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Messages returns the captured messages at the given level, in order.
func (r *LogRecorder) Messages(level slog.Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Count returns how many records at the given level contain substr in
// their message.
func (r *LogRecorder) Count(level slog.Level, substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Level == level && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}

func (r *LogRecorder) append(entry LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// recordingHandler is the slog.Handler backing LogRecorder. Group
// qualification is not tracked; attribute keys are stored as written.
type recordingHandler struct {
	recorder *LogRecorder
	attrs    []slog.Attr
}

func (h *recordingHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]any, record.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Resolve().Any()
	}
	record.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Resolve().Any()
		return true
	})
	h.recorder.append(LogEntry{
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &recordingHandler{recorder: h.recorder, attrs: merged}
}

func (h *recordingHandler) WithGroup(_ string) slog.Handler {
	return h
}
