// Package turnlog writes the append-only newline-delimited JSON
// interaction log, one record per completed chat turn.
package turnlog

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Entry is one completed interaction.
type Entry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Temperature  float64   `json:"temperature"`
	DurationMS   int64     `json:"duration_ms"`
}

// Logger appends entries to a JSONL file. Failures are swallowed: logging
// must never surface an error to the client or abort a response.
type Logger struct {
	mu      sync.Mutex
	enabled bool
	path    string
}

func New(enabled bool, path string) *Logger {
	return &Logger{enabled: enabled, path: path}
}

// Record appends one entry. It is safe for concurrent use and returns
// nothing; write failures are only debug-logged.
func (l *Logger) Record(entry Entry) {
	if !l.enabled {
		return
	}

	line, err := json.Marshal(entry)
	if err != nil {
		slog.Debug("Could not marshal interaction log entry", "error", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		slog.Debug("Could not open interaction log", "path", l.path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		slog.Debug("Could not write interaction log entry", "path", l.path, "error", err)
	}
}
