package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/albertocavalcante/depview/internal/log"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = "depview.toml"

// ConfigDirName is the name of the project-level config directory.
const ConfigDirName = ".depview"

// GlobalConfigDir is the name of the global config directory inside user's config.
const GlobalConfigDir = "depview"

// LoadFrom loads configuration for the workspace at dir from all layers in
// order of precedence:
//  1. Built-in defaults
//  2. Global user config (~/.config/depview/config.toml)
//  3. Project config (.depview/config.toml or depview.toml)
//  4. Environment variables (DEPVIEW_*)
//
// CLI flags are applied by the caller.
func LoadFrom(dir string) *Config {
	cfg := NewConfig()

	// Layer 2: Global user config
	if globalCfg := loadGlobalConfig(); globalCfg != nil {
		cfg.Merge(globalCfg)
	}

	// Layer 3: Project config from specified directory
	if projectCfg := loadProjectConfigFrom(dir); projectCfg != nil {
		cfg.Merge(projectCfg)
	}

	// Layer 4: Environment variables
	applyEnvironmentVariables(cfg)

	return cfg
}

// loadGlobalConfig loads the global user configuration from ~/.config/depview/config.toml.
func loadGlobalConfig() *Config {
	path := GetGlobalConfigPath()
	if path == "" {
		return nil
	}
	return loadConfigFile(path)
}

// loadProjectConfigFrom looks for project configuration starting from the given directory.
func loadProjectConfigFrom(dir string) *Config {
	// Search up the directory tree for config files
	current := dir
	for {
		for _, path := range GetProjectConfigPaths(current) {
			if cfg := loadConfigFile(path); cfg != nil {
				return cfg
			}
		}

		// Stop at filesystem root or workspace root
		if isWorkspaceRoot(current) {
			break
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return nil
}

// FindWorkspaceRoot walks up from dir to the nearest workspace root. If none
// is found, dir itself is returned.
func FindWorkspaceRoot(dir string) string {
	current := dir
	for {
		if isWorkspaceRoot(current) {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir
		}
		current = parent
	}
}

// isWorkspaceRoot checks if the directory is a workspace root (has .git, a
// target manifest or a depview config).
func isWorkspaceRoot(dir string) bool {
	markers := []string{".git", DefaultManifestPath, ConfigFileName, ConfigDirName}
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// loadConfigFile loads a configuration from a TOML file.
func loadConfigFile(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		log.Component("config").Warn("ignoring invalid config file", "path", path, "error", err)
		return nil
	}

	return &cfg
}

// applyEnvironmentVariables applies DEPVIEW_* environment variables to the config.
func applyEnvironmentVariables(cfg *Config) {
	if v := os.Getenv("DEPVIEW_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("DEPVIEW_MANIFEST"); v != "" {
		cfg.Manifest.Path = v
	}

	// DEPVIEW_TARGETS_ENABLED: comma-separated list of target types to evaluate
	if types := os.Getenv("DEPVIEW_TARGETS_ENABLED"); types != "" {
		cfg.Targets.Enabled = splitAndTrim(types)
	}

	// DEPVIEW_TARGETS_DISABLED: comma-separated list of target types to skip
	if types := os.Getenv("DEPVIEW_TARGETS_DISABLED"); types != "" {
		cfg.Targets.Disabled = splitAndTrim(types)
	}

	applyIntEnv("DEPVIEW_WORKERS", &cfg.Build.Workers)
	applyBoolEnv("DEPVIEW_STRICT", &cfg.Build.Strict)
	applyIntEnv("DEPVIEW_DESCRIPTOR_CACHE_SIZE", &cfg.Usage.DescriptorCacheSize)
	applyIntEnv("DEPVIEW_WATCH_DEBOUNCE_MS", &cfg.Watch.DebounceMs)
	if v := os.Getenv("DEPVIEW_METRICS_ADDR"); v != "" {
		cfg.Watch.MetricsAddr = v
	}

	if v := os.Getenv("DEPVIEW_VERBOSITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Log.Verbosity = &n
		}
	}
	if v := os.Getenv("DEPVIEW_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// applyBoolEnv applies a boolean environment variable to a pointer.
func applyBoolEnv(envVar string, target **bool) {
	if v := os.Getenv(envVar); v != "" {
		v = strings.ToLower(v)
		if v == "true" || v == "1" || v == "yes" {
			t := true
			*target = &t
		} else if v == "false" || v == "0" || v == "no" {
			f := false
			*target = &f
		}
	}
}

// applyIntEnv applies an integer environment variable. Unparseable values
// are ignored.
func applyIntEnv(envVar string, target *int) {
	if v := os.Getenv(envVar); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*target = n
		}
	}
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for a given directory.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}
