package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
)

// capture redirects the global logger to a buffer for the test.
func capture(t *testing.T, v int, format string) *bytes.Buffer {
	t.Helper()
	if err := Init(v, format); err != nil {
		t.Fatalf("Init(%d, %q) error = %v", v, format, err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		_ = Init(VerbosityWarn, "text")
	})
	return &buf
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      slog.Level
	}{
		{-1, slog.LevelError},
		{VerbosityError, slog.LevelError},
		{VerbosityWarn, slog.LevelWarn},
		{VerbosityInfo, slog.LevelInfo},
		{VerbosityDebug, slog.LevelDebug},
		{VerbosityTrace, LevelTrace},
		{9, LevelTrace},
	}

	for _, tt := range tests {
		if got := VerbosityToLevel(tt.verbosity); got != tt.want {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}

func TestLevelName(t *testing.T) {
	if got := LevelName(LevelTrace); got != "TRACE" {
		t.Errorf("LevelName(trace) = %q", got)
	}
	if got := LevelName(slog.LevelWarn); got != "WARN" {
		t.Errorf("LevelName(warn) = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" json ", FormatJSON, false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	capture(t, VerbosityInfo, "text")

	if err := Init(VerbosityDebug, "xml"); err == nil {
		t.Fatal("Init should reject an unknown format")
	}
	if Verbosity() != VerbosityInfo {
		t.Errorf("failed Init changed verbosity to %d", Verbosity())
	}
}

func TestVerbosityFiltersRecords(t *testing.T) {
	buf := capture(t, VerbosityInfo, "text")

	Info("target dirty", "target", "java-production:core")
	Debug("configuration diff")
	Trace("decoded usage", "index", 0)

	out := buf.String()
	if !strings.Contains(out, "target=java-production:core") {
		t.Errorf("info record missing:\n%s", out)
	}
	if strings.Contains(out, "configuration diff") || strings.Contains(out, "decoded usage") {
		t.Errorf("records below info should be dropped:\n%s", out)
	}
}

func TestSetVerbosityKeepsOutput(t *testing.T) {
	buf := capture(t, VerbosityWarn, "text")

	SetVerbosity(VerbosityTrace)
	if Verbosity() != VerbosityTrace {
		t.Errorf("Verbosity() = %d, want %d", Verbosity(), VerbosityTrace)
	}
	Trace("decoded usage", "kind", "field")

	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("trace record should carry the TRACE level name:\n%s", buf.String())
	}
}

func TestComponentJSON(t *testing.T) {
	buf := capture(t, VerbosityInfo, "json")

	Component("fingerprint").Info("saved fingerprint", "target", "resources:app")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("record is not JSON: %v\n%s", err, buf.String())
	}
	if rec["component"] != "fingerprint" || rec["target"] != "resources:app" {
		t.Errorf("record = %v", rec)
	}
}

func TestEnabled(t *testing.T) {
	capture(t, VerbosityInfo, "text")

	if !Enabled(slog.LevelInfo) {
		t.Error("info should be enabled at verbosity 2")
	}
	if Enabled(slog.LevelDebug) {
		t.Error("debug should not be enabled at verbosity 2")
	}

	SetVerbosity(VerbosityDebug)
	if !Enabled(slog.LevelDebug) {
		t.Error("debug should be enabled after SetVerbosity(3)")
	}
}

func TestNewHandlerText(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, slog.LevelWarn, FormatText))

	l.Info("dropped")
	l.Warn("unreadable fingerprint", "path", "config.dat")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("handler should honor its level:\n%s", out)
	}
	if !strings.Contains(out, "path=config.dat") {
		t.Errorf("warn record missing:\n%s", out)
	}
}

func TestDefaultsToStderr(t *testing.T) {
	if err := Init(VerbosityWarn, ""); err != nil {
		t.Fatal(err)
	}
	if current.Load().out != os.Stderr {
		t.Error("Init should write to stderr")
	}
}
