// Package logger implements ports.Logger on log/slog.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/yabu/internal/core/ports"
)

// zerrError is the part of *zerr.Error the chain walk needs.
type zerrError interface {
	Message() string
	Metadata() map[string]any
}

// Logger implements ports.Logger. Errors are printed as their cause chain.
type Logger struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	output   io.Writer
	jsonMode bool
}

var _ ports.Logger = (*Logger)(nil)

// New creates a Logger printing human readable lines to stderr.
func New() *Logger {
	l := &Logger{output: os.Stderr}
	l.rebuild()
	return l
}

// SetOutput redirects the log. A nil writer selects os.Stderr.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	l.output = w
	l.rebuild()
}

// SetJSON switches between JSON records and pretty lines.
func (l *Logger) SetJSON(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jsonMode = enable
	l.rebuild()
}

func (l *Logger) rebuild() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if l.jsonMode {
		l.logger = slog.New(slog.NewJSONHandler(l.output, opts))
		return
	}
	l.logger = slog.New(NewPrettyHandler(l.output, opts))
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs err with its causes. JSON mode keeps the error as a structured
// attribute.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.jsonMode {
		l.logger.Error("operation failed", "error", err)
		return
	}
	l.logger.Error(formatErrorEntries(collectErrorEntries(err)))
}

type errorEntry struct {
	msg  string
	meta map[string]any
}

// collectErrorEntries walks the cause chain. Wrappers without a message only
// contribute their metadata to the next entry.
func collectErrorEntries(err error) []errorEntry {
	var entries []errorEntry
	pending := map[string]any{}
	for err != nil {
		z, ok := err.(zerrError)
		if !ok {
			entries = append(entries, errorEntry{msg: err.Error(), meta: pending})
			break
		}
		for k, v := range z.Metadata() {
			pending[k] = v
		}
		if z.Message() != "" {
			entries = append(entries, errorEntry{msg: z.Message(), meta: pending})
			pending = map[string]any{}
		}
		err = errors.Unwrap(err)
	}
	return entries
}

func formatErrorEntries(entries []errorEntry) string {
	var lines []string
	for i, e := range entries {
		parts := strings.Split(e.msg+formatMeta(e.meta), "\n")
		switch i {
		case 0:
			lines = append(lines, "Error: "+parts[0])
			for _, p := range parts[1:] {
				lines = append(lines, "       "+p)
			}
		default:
			if i == 1 {
				lines = append(lines, "  Caused by:")
			}
			lines = append(lines, "    → "+parts[0])
			for _, p := range parts[1:] {
				lines = append(lines, "      "+p)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func formatMeta(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, meta[k])
	}
	return " (" + strings.Join(pairs, ", ") + ")"
}
