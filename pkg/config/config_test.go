package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/albertocavalcante/depview/pkg/usage"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Data.Dir != DefaultDataDir {
		t.Errorf("data dir should be %q, got %q", DefaultDataDir, cfg.Data.Dir)
	}
	if cfg.Manifest.Path != DefaultManifestPath {
		t.Errorf("manifest path should be %q, got %q", DefaultManifestPath, cfg.Manifest.Path)
	}
	if cfg.Usage.DescriptorCacheSize != usage.DefaultDescriptorCacheSize {
		t.Errorf("descriptor cache size should be %d, got %d", usage.DefaultDescriptorCacheSize, cfg.Usage.DescriptorCacheSize)
	}
	if cfg.IsStrict() {
		t.Error("strict should be off by default")
	}
	if cfg.LogVerbosity() != 1 {
		t.Errorf("default verbosity should be 1, got %d", cfg.LogVerbosity())
	}
	if cfg.Debounce() != DefaultDebounceMs*time.Millisecond {
		t.Errorf("default debounce should be %dms, got %v", DefaultDebounceMs, cfg.Debounce())
	}
	if cfg.WorkerCount() != runtime.NumCPU() {
		t.Errorf("default workers should be %d, got %d", runtime.NumCPU(), cfg.WorkerCount())
	}
}

func TestIsTargetTypeEnabled(t *testing.T) {
	cfg := NewConfig()

	// Empty enabled list means every type
	if !cfg.IsTargetTypeEnabled("java-production") {
		t.Error("java-production should be enabled by default")
	}

	cfg.Targets.Enabled = []string{"java-production", "java-tests"}
	if !cfg.IsTargetTypeEnabled("java-tests") {
		t.Error("java-tests should be enabled")
	}
	if cfg.IsTargetTypeEnabled("resources") {
		t.Error("resources should not be enabled when absent from enabled list")
	}

	// Test disabled takes precedence
	cfg.Targets.Disabled = []string{"java-tests"}
	if cfg.IsTargetTypeEnabled("java-tests") {
		t.Error("java-tests should be disabled when in disabled list")
	}
}

func TestMerge(t *testing.T) {
	base := NewConfig()
	trueVal := true
	verbosity := 3
	other := &Config{
		Data:    DataConfig{Dir: "/var/depview"},
		Targets: TargetsConfig{Disabled: []string{"resources"}},
		Build:   BuildConfig{Workers: 2, Strict: &trueVal},
		Watch:   WatchConfig{MetricsAddr: ":9464"},
		Log:     LogConfig{Verbosity: &verbosity},
	}

	base.Merge(other)

	if base.Data.Dir != "/var/depview" {
		t.Errorf("data dir should be '/var/depview', got %q", base.Data.Dir)
	}
	if base.Manifest.Path != DefaultManifestPath {
		t.Errorf("unset manifest path should keep default, got %q", base.Manifest.Path)
	}
	if base.IsTargetTypeEnabled("resources") {
		t.Error("resources should be disabled after merge")
	}
	if base.WorkerCount() != 2 {
		t.Errorf("workers should be 2, got %d", base.WorkerCount())
	}
	if !base.IsStrict() {
		t.Error("strict should be on after merge")
	}
	if base.Watch.MetricsAddr != ":9464" {
		t.Errorf("metrics addr should be ':9464', got %q", base.Watch.MetricsAddr)
	}
	if base.Watch.DebounceMs != DefaultDebounceMs {
		t.Errorf("unset debounce should keep default, got %d", base.Watch.DebounceMs)
	}
	if base.LogVerbosity() != 3 {
		t.Errorf("verbosity should be 3, got %d", base.LogVerbosity())
	}
	if base.Log.Format != DefaultLogFormat {
		t.Errorf("unset log format should keep default, got %q", base.Log.Format)
	}

	base.Merge(nil)
}

func TestResolvePaths(t *testing.T) {
	cfg := NewConfig()
	root := filepath.Join("/work", "repo")

	if got, want := cfg.DataDir(root), filepath.Join(root, ".depview", "data"); got != want {
		t.Errorf("DataDir() = %q, want %q", got, want)
	}
	if got, want := cfg.ManifestPath(root), filepath.Join(root, "targets.toml"); got != want {
		t.Errorf("ManifestPath() = %q, want %q", got, want)
	}

	abs := filepath.Join(string(filepath.Separator), "abs", "data")
	cfg.Data.Dir = abs
	if got := cfg.DataDir(root); got != abs {
		t.Errorf("absolute data dir should be kept, got %q", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[data]
dir = "build/state"

[targets]
enabled = ["java-production", "java-tests"]
disabled = ["resources"]

[build]
workers = 4
strict = true

[usage]
descriptor_cache_size = 128

[watch]
debounce_ms = 250
metrics_addr = "127.0.0.1:9464"

[log]
verbosity = 3
format = "json"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg := loadConfigFile(configPath)
	if cfg == nil {
		t.Fatal("loadConfigFile returned nil")
	}

	if cfg.Data.Dir != "build/state" {
		t.Errorf("data dir should be 'build/state', got %q", cfg.Data.Dir)
	}
	if len(cfg.Targets.Enabled) != 2 {
		t.Errorf("expected 2 enabled target types, got %d", len(cfg.Targets.Enabled))
	}
	if len(cfg.Targets.Disabled) != 1 {
		t.Errorf("expected 1 disabled target type, got %d", len(cfg.Targets.Disabled))
	}
	if cfg.Build.Workers != 4 {
		t.Errorf("workers should be 4, got %d", cfg.Build.Workers)
	}
	if cfg.Build.Strict == nil || !*cfg.Build.Strict {
		t.Error("strict should be true")
	}
	if cfg.Usage.DescriptorCacheSize != 128 {
		t.Errorf("descriptor cache size should be 128, got %d", cfg.Usage.DescriptorCacheSize)
	}
	if cfg.Debounce() != 250*time.Millisecond {
		t.Errorf("debounce should be 250ms, got %v", cfg.Debounce())
	}
	if cfg.Watch.MetricsAddr != "127.0.0.1:9464" {
		t.Errorf("metrics addr should be '127.0.0.1:9464', got %q", cfg.Watch.MetricsAddr)
	}
	if cfg.Log.Verbosity == nil || *cfg.Log.Verbosity != 3 {
		t.Error("verbosity should be 3")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format should be 'json', got %q", cfg.Log.Format)
	}
}

func TestLoadConfigFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(configPath, []byte("[build\nworkers = "), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if cfg := loadConfigFile(configPath); cfg != nil {
		t.Error("invalid config file should be ignored")
	}
	if cfg := loadConfigFile(filepath.Join(tmpDir, "missing.toml")); cfg != nil {
		t.Error("missing config file should be ignored")
	}
}

func TestApplyEnvironmentVariables(t *testing.T) {
	cfg := NewConfig()

	// Set environment variables
	t.Setenv("DEPVIEW_DATA_DIR", "/tmp/depview")
	t.Setenv("DEPVIEW_TARGETS_ENABLED", "java-production, java-tests")
	t.Setenv("DEPVIEW_WORKERS", "3")
	t.Setenv("DEPVIEW_STRICT", "yes")
	t.Setenv("DEPVIEW_WATCH_DEBOUNCE_MS", "not-a-number")
	t.Setenv("DEPVIEW_VERBOSITY", "4")
	t.Setenv("DEPVIEW_LOG_FORMAT", "json")

	applyEnvironmentVariables(cfg)

	if cfg.Data.Dir != "/tmp/depview" {
		t.Errorf("data dir should be '/tmp/depview', got %q", cfg.Data.Dir)
	}
	if len(cfg.Targets.Enabled) != 2 {
		t.Errorf("expected 2 enabled target types, got %d", len(cfg.Targets.Enabled))
	}
	if cfg.Build.Workers != 3 {
		t.Errorf("workers should be 3, got %d", cfg.Build.Workers)
	}
	if !cfg.IsStrict() {
		t.Error("strict should be enabled via env var")
	}
	if cfg.Watch.DebounceMs != DefaultDebounceMs {
		t.Errorf("invalid debounce should be ignored, got %d", cfg.Watch.DebounceMs)
	}
	if cfg.LogVerbosity() != 4 {
		t.Errorf("verbosity should be 4, got %d", cfg.LogVerbosity())
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format should be 'json', got %q", cfg.Log.Format)
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"java-production,java-tests", []string{"java-production", "java-tests"}},
		{" java-production , resources ", []string{"java-production", "resources"}},
		{"resources", []string{"resources"}},
		{"", []string{}},
		{" , , ", []string{}},
	}

	for _, tt := range tests {
		result := splitAndTrim(tt.input)
		if len(result) != len(tt.expected) {
			t.Errorf("splitAndTrim(%q) = %v, want %v", tt.input, result, tt.expected)
			continue
		}
		for i, v := range result {
			if v != tt.expected[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.expected[i])
			}
		}
	}
}

func TestProjectConfigSearch(t *testing.T) {
	// Create a temp directory structure
	tmpDir := t.TempDir()
	projectDir := filepath.Join(tmpDir, "project", "subdir")
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatalf("failed to create project dir: %v", err)
	}

	// Create .git marker at project root
	gitDir := filepath.Join(tmpDir, "project", ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatalf("failed to create .git dir: %v", err)
	}

	// Create depview.toml at project root
	configPath := filepath.Join(tmpDir, "project", "depview.toml")
	configContent := `
[build]
workers = 7
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	// Load config from subdir
	cfg := loadProjectConfigFrom(projectDir)
	if cfg == nil {
		t.Fatal("loadProjectConfigFrom returned nil")
	}
	if cfg.Build.Workers != 7 {
		t.Errorf("expected 7 workers, got %d", cfg.Build.Workers)
	}

	if got, want := FindWorkspaceRoot(projectDir), filepath.Join(tmpDir, "project"); got != want {
		t.Errorf("FindWorkspaceRoot() = %q, want %q", got, want)
	}
}

func TestLoadFromLayers(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))

	if err := os.MkdirAll(filepath.Join(tmpDir, ".depview"), 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	configContent := `
[build]
workers = 5

[log]
format = "json"
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".depview", "config.toml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("DEPVIEW_WORKERS", "9")

	cfg := LoadFrom(tmpDir)
	if cfg.Build.Workers != 9 {
		t.Errorf("env should override project config, got %d workers", cfg.Build.Workers)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("project config should override defaults, got %q", cfg.Log.Format)
	}
	if cfg.Manifest.Path != DefaultManifestPath {
		t.Errorf("defaults should survive, got %q", cfg.Manifest.Path)
	}
}

func TestWorkspaceRootDetection(t *testing.T) {
	tmpDir := t.TempDir()

	// Test .git
	gitDir := filepath.Join(tmpDir, ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatalf("failed to create .git dir: %v", err)
	}
	if !isWorkspaceRoot(tmpDir) {
		t.Error("directory with .git should be workspace root")
	}

	// Test targets.toml
	tmpDir2 := t.TempDir()
	manifestFile := filepath.Join(tmpDir2, "targets.toml")
	if err := os.WriteFile(manifestFile, []byte(""), 0o644); err != nil {
		t.Fatalf("failed to write manifest file: %v", err)
	}
	if !isWorkspaceRoot(tmpDir2) {
		t.Error("directory with targets.toml should be workspace root")
	}

	// Test depview.toml
	tmpDir3 := t.TempDir()
	configFile := filepath.Join(tmpDir3, "depview.toml")
	if err := os.WriteFile(configFile, []byte(""), 0o644); err != nil {
		t.Fatalf("failed to write depview.toml file: %v", err)
	}
	if !isWorkspaceRoot(tmpDir3) {
		t.Error("directory with depview.toml should be workspace root")
	}

	if isWorkspaceRoot(t.TempDir()) {
		t.Error("empty directory should not be workspace root")
	}
}
