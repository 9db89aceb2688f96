// Package logging writes structured JSON log lines, one object per line.
package logging

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Logger is safe for concurrent use. A nil *Logger discards everything.
type Logger struct {
	mu  sync.Mutex
	enc *json.Encoder
	loc *time.Location
}

// New returns a Logger writing to w with timestamps rendered in loc.
func New(w io.Writer, loc *time.Location) *Logger {
	if loc == nil {
		loc = time.UTC
	}
	return &Logger{enc: json.NewEncoder(w), loc: loc}
}

// Default logs to stdout in UTC.
func Default() *Logger {
	return New(os.Stdout, time.UTC)
}

// Discard drops everything; handy in tests.
func Discard() *Logger {
	return New(io.Discard, time.UTC)
}

// Fields are extra key/value pairs attached to an entry.
type Fields map[string]any

func (l *Logger) Info(msg string, f Fields)  { l.write("info", msg, f) }
func (l *Logger) Warn(msg string, f Fields)  { l.write("warn", msg, f) }
func (l *Logger) Error(msg string, f Fields) { l.write("error", msg, f) }

// Entry writes a pre-built map as-is, adding ts and level when missing.
func (l *Logger) Entry(data map[string]any) {
	if l == nil {
		return
	}
	if _, ok := data["ts"]; !ok {
		data["ts"] = time.Now().In(l.loc).Format(time.RFC3339Nano)
	}
	if _, ok := data["level"]; !ok {
		data["level"] = "info"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(data)
}

func (l *Logger) write(level, msg string, f Fields) {
	entry := make(map[string]any, len(f)+3)
	for k, v := range f {
		entry[k] = v
	}
	if err, ok := entry["error"].(error); ok {
		entry["error"] = err.Error()
	}
	entry["level"] = level
	entry["msg"] = msg
	l.Entry(entry)
}
