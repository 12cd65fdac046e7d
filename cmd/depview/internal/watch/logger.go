package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/albertocavalcante/depview/cmd/depview/internal/incremental"
)

// ChangeType represents the type of file change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "+"
	ChangeModified ChangeType = "~"
	ChangeDeleted  ChangeType = "-"
)

// Logger handles watch mode output formatting.
type Logger struct {
	writer  io.Writer
	verbose bool
	jsonOut bool

	green  *color.Color
	yellow *color.Color
	red    *color.Color

	statsMu sync.Mutex
	stats   WatchStats
}

// WatchStats tracks statistics for the watch session.
type WatchStats struct {
	EvaluationCount int
	DirtyCount      int
	ErrorCount      int
	StartTime       time.Time
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
	JSON    bool
}

// NewLogger creates a new logger with the given configuration. Colors are
// used only when writing to a terminal.
func NewLogger(cfg LoggerConfig) *Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	isTTY := false
	if f, ok := writer.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	colorize := isTTY && !cfg.NoColor

	newColor := func(attr color.Attribute) *color.Color {
		c := color.New(attr)
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}

	return &Logger{
		writer:  writer,
		verbose: cfg.Verbose,
		jsonOut: cfg.JSON,
		green:   newColor(color.FgGreen),
		yellow:  newColor(color.FgYellow),
		red:     newColor(color.FgRed),
		stats: WatchStats{
			StartTime: time.Now(),
		},
	}
}

// Ready logs the initial ready message.
func (l *Logger) Ready(targets, roots int, path string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":   "ready",
			"targets": targets,
			"roots":   roots,
			"path":    path,
		})
		return
	}

	l.printf("depview: watching %d targets (%d source roots) in %s\n", targets, roots, path)
	l.println("depview: ready")
	l.println()
}

// FileChanged logs a file change event. Text output shows it only when
// verbose.
func (l *Logger) FileChanged(path string, change ChangeType) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":  "file_changed",
			"path":   path,
			"change": string(change),
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}

	if l.verbose {
		l.printf("[%s] %s %s\n", l.timestamp(), l.colorize(change), path)
	}
}

// Reloaded logs that the manifest was read again.
func (l *Logger) Reloaded(targets int) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":   "reloaded",
			"targets": targets,
			"time":    time.Now().Format(time.RFC3339),
		})
		return
	}

	l.printf("[%s] manifest reloaded, %d targets\n", l.timestamp(), targets)
}

// Evaluated logs the outcome of checking targets.
func (l *Logger) Evaluated(report *incremental.Report) {
	l.statsMu.Lock()
	l.stats.EvaluationCount++
	l.stats.DirtyCount += len(report.Dirty)
	l.statsMu.Unlock()

	if l.jsonOut {
		event := map[string]any{
			"event":   "evaluated",
			"rebuild": report.RebuildTargets(),
			"clean":   len(report.Clean),
			"time":    time.Now().Format(time.RFC3339),
		}
		if len(report.Failed) > 0 {
			failed := make(map[string]string, len(report.Failed))
			for _, s := range report.Failed {
				failed[s.Target] = s.Error
			}
			event["failed"] = failed
		}
		l.writeJSON(event)
		return
	}

	ts := l.timestamp()
	for _, s := range report.Dirty {
		l.printf("[%s] %s %s needs rebuild\n", ts, l.yellow.Sprint("~"), s.Target)
	}
	for _, s := range report.Failed {
		l.printf("[%s] %s %s: %s\n", ts, l.red.Sprint("✗"), s.Target, s.Error)
	}
	if report.IsUpToDate() {
		l.printf("[%s] %s %d targets up to date\n", ts, l.green.Sprint("✓"), report.TotalTargets())
	}
}

// Error logs an error.
func (l *Logger) Error(err error) {
	l.statsMu.Lock()
	l.stats.ErrorCount++
	l.statsMu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event": "error",
			"error": err.Error(),
			"time":  time.Now().Format(time.RFC3339),
		})
		return
	}

	l.printf("[%s] %s error: %v\n", l.timestamp(), l.red.Sprint("✗"), err)
}

// Shutdown logs the shutdown message with statistics.
func (l *Logger) Shutdown() {
	stats := l.Stats()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":       "shutdown",
			"evaluations": stats.EvaluationCount,
			"errors":      stats.ErrorCount,
			"duration":    time.Since(stats.StartTime).String(),
		})
		return
	}

	l.println()
	l.printf("depview: shutting down (%d evaluations, %d errors)\n",
		stats.EvaluationCount, stats.ErrorCount)
}

// Stats returns the current watch statistics.
func (l *Logger) Stats() WatchStats {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.stats
}

// timestamp returns the current time formatted as HH:MM:SS.
func (l *Logger) timestamp() string {
	return time.Now().Format("15:04:05")
}

func (l *Logger) colorize(change ChangeType) string {
	switch change {
	case ChangeAdded:
		return l.green.Sprint(string(change))
	case ChangeModified:
		return l.yellow.Sprint(string(change))
	case ChangeDeleted:
		return l.red.Sprint(string(change))
	default:
		return string(change)
	}
}

// writeJSON writes a JSON object to the output.
func (l *Logger) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		// Tooling still needs a parseable line.
		l.println(`{"event":"internal_error","error":"json marshal failed"}`)
		return
	}
	l.println(string(data))
}

// printf writes a formatted string to the writer. Output errors are ignored.
func (l *Logger) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(l.writer, format, args...)
}

// println writes a line to the writer. Output errors are ignored.
func (l *Logger) println(args ...any) {
	_, _ = fmt.Fprintln(l.writer, args...)
}
