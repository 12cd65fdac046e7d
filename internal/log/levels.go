// Package log is the process-wide structured logger of depview.
//
// Verbosity follows the -v=N convention: 0 errors, 1 warnings, 2 info,
// 3 debug, 4 trace. Library packages log through Component so records can
// be filtered by subsystem.
package log

import "log/slog"

// LevelTrace sits below debug and is used for per-record output such as
// every decoded usage.
const LevelTrace = slog.Level(-8)

// Verbosity levels.
const (
	VerbosityError = 0 // errors only
	VerbosityWarn  = 1 // unreadable or unwritable fingerprints
	VerbosityInfo  = 2 // dirty targets, saved fingerprints
	VerbosityDebug = 3 // configuration diffs, intern statistics
	VerbosityTrace = 4 // every decoded usage record
)

// VerbosityToLevel maps -v=N to an slog level. Values above
// VerbosityTrace clamp to trace.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v <= VerbosityError:
		return slog.LevelError
	case v == VerbosityWarn:
		return slog.LevelWarn
	case v == VerbosityInfo:
		return slog.LevelInfo
	case v == VerbosityDebug:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// LevelName returns the display name of l, including TRACE.
func LevelName(l slog.Level) string {
	if l == LevelTrace {
		return "TRACE"
	}
	return l.String()
}
