package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// sink is one consistent logger configuration. It is replaced as a whole so
// readers never see a logger built from mixed settings.
type sink struct {
	logger    *slog.Logger
	out       io.Writer
	format    Format
	verbosity int
}

var (
	current atomic.Pointer[sink]
	level   = new(slog.LevelVar)
	mu      sync.Mutex // serializes writers of current
)

func init() {
	// Warnings to stderr until Init runs; stdout is reserved for command output.
	configure(os.Stderr, FormatText, VerbosityWarn)
}

func configure(out io.Writer, format Format, v int) {
	mu.Lock()
	defer mu.Unlock()
	level.Set(VerbosityToLevel(v))
	current.Store(&sink{
		logger:    slog.New(NewHandler(out, level, format)),
		out:       out,
		format:    format,
		verbosity: v,
	})
}

// Init configures the global logger from the -v level and format name and
// installs it as the slog default.
func Init(v int, format string) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}
	configure(os.Stderr, f, v)
	slog.SetDefault(current.Load().logger)
	return nil
}

// SetOutput redirects the global logger, keeping level and format.
func SetOutput(w io.Writer) {
	s := current.Load()
	configure(w, s.format, s.verbosity)
}

// SetVerbosity changes the level at runtime.
func SetVerbosity(v int) {
	s := current.Load()
	configure(s.out, s.format, v)
}

// Verbosity returns the current -v level.
func Verbosity() int {
	return current.Load().verbosity
}

// Enabled reports whether records at l would be emitted. Callers use it to
// skip building expensive attributes such as configuration diffs.
func Enabled(l slog.Level) bool {
	return current.Load().logger.Enabled(context.Background(), l)
}

func Error(msg string, args ...any) { current.Load().logger.Error(msg, args...) }
func Warn(msg string, args ...any)  { current.Load().logger.Warn(msg, args...) }
func Info(msg string, args ...any)  { current.Load().logger.Info(msg, args...) }
func Debug(msg string, args ...any) { current.Load().logger.Debug(msg, args...) }

// Trace logs at LevelTrace (v=4).
func Trace(msg string, args ...any) {
	current.Load().logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Component returns a logger tagged with a subsystem name ("usage",
// "fingerprint", "watch"). It is bound to the configuration current at call
// time, so packages call it per operation instead of caching the result.
func Component(name string) *slog.Logger {
	return current.Load().logger.With("component", name)
}
