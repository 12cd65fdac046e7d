package fingerprint

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/albertocavalcante/depview/internal/log"
)

// ConfigFileName is the name of the persisted fingerprint inside a
// target's data root.
const ConfigFileName = "config.dat"

// Observer is notified of configuration checks and saves.
type Observer interface {
	ConfigurationChecked(typeID string, dirty bool)
	ConfigurationSaved(typeID string, err error)
}

// Option configures a Configuration.
type Option func(*Configuration)

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(c *Configuration) {
		c.observer = o
	}
}

// Configuration tracks the configuration fingerprint of one target for one
// build attempt.
//
// The current fingerprint is rendered at most once per instance. Create a
// new Configuration for every build attempt. A Configuration is safe for
// concurrent use.
type Configuration struct {
	target   Target
	state    *TargetsState
	path     string
	observer Observer

	mu sync.Mutex
	// baseline is the fingerprint of the last successful build; hasBaseline
	// is false when none could be loaded, which always counts as dirty.
	baseline    string
	hasBaseline bool

	once       sync.Once
	current    string
	currentErr error
}

// NewConfiguration loads the persisted fingerprint of t. A missing or
// unreadable file leaves the configuration without a baseline.
func NewConfiguration(t Target, state *TargetsState, opts ...Option) *Configuration {
	c := &Configuration{
		target: t,
		state:  state,
		path:   filepath.Join(state.Paths.TargetDataRoot(t), ConfigFileName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.load()
	return c
}

func (c *Configuration) load() {
	data, err := os.ReadFile(c.path)
	switch {
	case err == nil:
		c.baseline = string(data)
		c.hasBaseline = true
	case errors.Is(err, fs.ErrNotExist):
		c.logger().Debug("no stored configuration", "path", c.path)
	default:
		c.logger().Info("cannot load configuration", "path", c.path, "error", err)
	}
}

func (c *Configuration) logger() *slog.Logger {
	return log.Component("fingerprint").With("target", c.target.ID(), "type", c.target.TypeID())
}

// Target returns the target this configuration belongs to.
func (c *Configuration) Target() Target {
	return c.target
}

// Path returns the location of the persisted fingerprint.
func (c *Configuration) Path() string {
	return c.path
}

// HasBaseline reports whether a fingerprint from an earlier build is known.
func (c *Configuration) HasBaseline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasBaseline
}

// Current returns the rendered configuration, rendering it on first use.
func (c *Configuration) Current() (string, error) {
	c.once.Do(func() {
		var buf bytes.Buffer
		if err := c.target.WriteConfiguration(&buf, c.state.Paths, c.state.Index); err != nil {
			c.currentErr = fmt.Errorf("render configuration of %s: %w", c.target.ID(), err)
			return
		}
		c.current = buf.String()
	})
	return c.current, c.currentErr
}

// IsDirty reports whether the target must be rebuilt: there is no baseline
// or the current configuration differs from it. The error is non-nil only
// when the configuration cannot be rendered.
func (c *Configuration) IsDirty() (bool, error) {
	current, err := c.Current()
	if err != nil {
		return true, err
	}

	c.mu.Lock()
	baseline, ok := c.baseline, c.hasBaseline
	c.mu.Unlock()

	dirty := !ok || baseline != current
	if dirty {
		c.logChange(baseline, ok, current)
	}
	if c.observer != nil {
		c.observer.ConfigurationChecked(c.target.TypeID(), dirty)
	}
	return dirty, nil
}

func (c *Configuration) logChange(baseline string, ok bool, current string) {
	if !log.Enabled(slog.LevelDebug) {
		return
	}
	logger := c.logger()
	if !ok {
		logger.Debug("configuration has no baseline, target will be rebuilt")
		return
	}
	added, removed, text := lineDiff(baseline, current)
	logger.Debug("configuration changed, target will be rebuilt",
		"added", added,
		"removed", removed,
	)
	log.Trace("configuration diff", "target", c.target.ID(), "diff", text)
}

// Save persists the current configuration as the new baseline. The file is
// replaced atomically; on failure the previous baseline is kept both on disk
// and in memory, so the target stays dirty.
func (c *Configuration) Save() (err error) {
	defer func() {
		if err != nil {
			c.logger().Info("cannot save configuration", "path", c.path, "error", err)
		}
		if c.observer != nil {
			c.observer.ConfigurationSaved(c.target.TypeID(), err)
		}
	}()

	current, err := c.Current()
	if err != nil {
		return err
	}

	if err := writeFileAtomic(c.path, []byte(current)); err != nil {
		return err
	}

	c.mu.Lock()
	c.baseline = current
	c.hasBaseline = true
	c.mu.Unlock()
	return nil
}

// Clean removes the persisted fingerprint so the next build sees no
// baseline.
func (c *Configuration) Clean() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove configuration of %s: %w", c.target.ID(), err)
	}

	c.mu.Lock()
	c.baseline = ""
	c.hasBaseline = false
	c.mu.Unlock()
	return nil
}

// Digest returns the hex xxHash64 of the current configuration.
func (c *Configuration) Digest() (string, error) {
	current, err := c.Current()
	if err != nil {
		return "", err
	}
	return hashString(current), nil
}

func hashString(s string) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], xxhash.Sum64String(s))
	return hex.EncodeToString(buf[:])
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create target data directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp configuration file: %w", err)
	}

	// Rename temp file to actual file (atomic on POSIX)
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename configuration file: %w", err)
	}
	return nil
}
