package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/albertocavalcante/depview/cmd/depview/internal/detect"
	"github.com/albertocavalcante/depview/cmd/depview/internal/incremental"
	"github.com/albertocavalcante/depview/cmd/depview/internal/manifest"
	"github.com/albertocavalcante/depview/internal/log"
	"github.com/albertocavalcante/depview/pkg/config"
	"github.com/albertocavalcante/depview/pkg/fingerprint"
	"github.com/albertocavalcante/depview/pkg/metrics"
)

// manifestKey is the debouncer key for a manifest change. Target names
// always contain ':' so it cannot collide with one.
const manifestKey = "manifest"

// ErrWatchLimitReached is returned when the OS watch limit is exceeded.
var ErrWatchLimitReached = errors.New("filesystem watch limit reached")

// Config configures the watcher.
type Config struct {
	Root     string
	Settings *config.Config
	// Metrics receives fingerprint events; nil disables metrics.
	Metrics *metrics.Collector
	Writer  io.Writer
	Verbose bool
	NoColor bool
	JSON    bool
}

// targetSet is the state derived from one read of the manifest.
type targetSet struct {
	tracker *incremental.Tracker
	// roots maps an absolute source root to the names of targets using it.
	roots map[string][]string
	names map[string]bool
}

// Watcher re-evaluates target fingerprints on manifest and source root changes.
type Watcher struct {
	config       Config
	manifestPath string
	dataDir      string
	fsWatcher    *fsnotify.Watcher
	debouncer    *Debouncer
	logger       *Logger

	// evalMu serializes reloads and evaluations.
	evalMu  sync.Mutex
	setMu   sync.RWMutex
	set     *targetSet
	watchMu sync.Mutex
	watched map[string]bool
}

// New creates a watcher and reads the manifest once.
func New(cfg Config) (*Watcher, error) {
	if cfg.Settings == nil {
		cfg.Settings = config.NewConfig()
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	cfg.Root = root

	w := &Watcher{
		config:       cfg,
		manifestPath: filepath.Clean(cfg.Settings.ManifestPath(root)),
		dataDir:      cfg.Settings.DataDir(root),
		watched:      make(map[string]bool),
		logger: NewLogger(LoggerConfig{
			Writer:  cfg.Writer,
			Verbose: cfg.Verbose,
			NoColor: cfg.NoColor,
			JSON:    cfg.JSON,
		}),
	}

	set, err := w.load()
	if err != nil {
		return nil, err
	}
	w.set = set

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = fsWatcher
	return w, nil
}

// load reads the manifest and builds fresh target state.
func (w *Watcher) load() (*targetSet, error) {
	m, err := manifest.Load(w.manifestPath)
	if err != nil {
		return nil, err
	}

	state := fingerprint.NewTargetsState(w.dataDir)
	loaded, err := m.Build(w.config.Settings, state)
	if err != nil {
		return nil, err
	}

	opts := []incremental.Option{incremental.WithWorkers(w.config.Settings.WorkerCount())}
	if w.config.Metrics != nil {
		opts = append(opts, incremental.WithObserver(w.config.Metrics))
	}

	set := &targetSet{
		tracker: incremental.NewTracker(state, loaded, opts...),
		roots:   make(map[string][]string),
		names:   make(map[string]bool, len(loaded)),
	}
	for _, t := range loaded {
		name := incremental.TargetName(t)
		set.names[name] = true
		for _, r := range state.Index.Roots(t) {
			dir := w.abs(r.Path)
			set.roots[dir] = append(set.roots[dir], name)
		}
	}
	return set, nil
}

func (w *Watcher) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.config.Root, path)
}

func (w *Watcher) current() *targetSet {
	w.setMu.RLock()
	defer w.setMu.RUnlock()
	return w.set
}

// Run evaluates all targets, then watches until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	if addr := w.config.Settings.Watch.MetricsAddr; addr != "" && w.config.Metrics != nil {
		srv, err := w.config.Metrics.Serve(addr)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Close(shutdownCtx)
		}()
	}

	w.debouncer = NewDebouncer(w.config.Settings.Debounce(), func(keys []string) {
		w.handleFlush(ctx, keys)
	})
	defer w.debouncer.Stop()

	if err := w.addDir(filepath.Dir(w.manifestPath)); err != nil {
		return fmt.Errorf("failed to watch manifest: %w", err)
	}
	if err := w.syncWatches(); err != nil {
		return err
	}

	set := w.current()
	w.logger.Ready(len(set.names), len(set.roots), w.config.Root)
	w.evaluate(ctx, set, nil)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err)
		}
	}
}

// syncWatches watches every existing source root of the current set.
// Roots that do not exist yet are picked up after the next manifest reload.
func (w *Watcher) syncWatches() error {
	for dir := range w.current().roots {
		if _, err := os.Stat(dir); err != nil {
			log.Component("watch").Debug("source root not watched", "root", dir, "error", err)
			continue
		}
		if err := w.addRecursive(dir); err != nil {
			return err
		}
	}
	return nil
}

// addRecursive adds a directory and all subdirectories to the watcher.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				log.Component("watch").Debug("permission denied", "path", path)
				return nil
			}
			w.logger.Error(fmt.Errorf("walk error at %s: %w", path, err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && detect.IsIgnoredDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.addDir(path)
	})
}

func (w *Watcher) addDir(dir string) error {
	w.watchMu.Lock()
	defer w.watchMu.Unlock()
	if w.watched[dir] {
		return nil
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		if isWatchLimitError(err) {
			return fmt.Errorf("%w at %s: %w\n"+
				"Increase limit with: sudo sysctl fs.inotify.max_user_watches=524288", ErrWatchLimitReached, dir, err)
		}
		log.Component("watch").Debug("failed to watch directory", "dir", dir, "error", err)
		return nil
	}
	w.watched[dir] = true
	return nil
}

// forget drops path and its subdirectories from the watched set and
// reports whether path was a watched directory. fsnotify removes their
// watches itself.
func (w *Watcher) forget(path string) bool {
	w.watchMu.Lock()
	defer w.watchMu.Unlock()
	found := w.watched[path]
	for dir := range w.watched {
		if dir == path || strings.HasPrefix(dir, path+string(filepath.Separator)) {
			delete(w.watched, dir)
		}
	}
	return found
}

// isWatchLimitError checks if an error is due to inotify watch limits.
func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "no space left on device") ||
		strings.Contains(errStr, "too many open files")
}

// handleEvent maps a filesystem event to the debouncer keys it affects.
//
// A target's configuration names its roots but never reads the files below
// them, so file content edits are ignored. Directories appearing or
// disappearing below a root re-evaluate the targets owning it, and a
// manifest change reloads everything.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if path == w.manifestPath {
		var change ChangeType
		switch {
		case event.Has(fsnotify.Create):
			change = ChangeAdded
		case event.Has(fsnotify.Write):
			change = ChangeModified
		case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
			change = ChangeDeleted
		default:
			return
		}
		w.logger.FileChanged(w.rel(path), change)
		w.debouncer.Add(manifestKey)
		return
	}

	var change ChangeType
	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			return
		}
		change = ChangeAdded
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if !w.forget(path) {
			return
		}
		change = ChangeDeleted
	default:
		return
	}

	names := w.affected(path)
	if len(names) == 0 {
		return
	}

	if change == ChangeAdded {
		if err := w.addRecursive(path); err != nil {
			w.logger.Error(fmt.Errorf("failed to watch new directory %s: %w", path, err))
		}
	}

	w.logger.FileChanged(w.rel(path), change)
	w.debouncer.Add(names...)
}

// affected returns the names of targets with a source root containing path.
func (w *Watcher) affected(path string) []string {
	var names []string
	for dir, targets := range w.current().roots {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			names = append(names, targets...)
		}
	}
	return names
}

func (w *Watcher) rel(path string) string {
	if rel, err := filepath.Rel(w.config.Root, path); err == nil {
		return rel
	}
	return path
}

// handleFlush reloads the manifest if it changed, then re-evaluates the
// affected targets with fresh configurations.
func (w *Watcher) handleFlush(ctx context.Context, keys []string) {
	w.evalMu.Lock()
	defer w.evalMu.Unlock()

	if slices.Contains(keys, manifestKey) {
		set, err := w.load()
		if err != nil {
			w.logger.Error(fmt.Errorf("manifest not reloaded: %w", err))
			return
		}
		w.setMu.Lock()
		w.set = set
		w.setMu.Unlock()
		if err := w.syncWatches(); err != nil {
			w.logger.Error(err)
		}
		w.logger.Reloaded(len(set.names))
		w.evaluate(ctx, set, nil)
		return
	}

	set := w.current()
	// Keys collected before a reload may name targets that no longer exist.
	names := slices.DeleteFunc(keys, func(name string) bool { return !set.names[name] })
	if len(names) == 0 {
		return
	}
	w.evaluate(ctx, set, names)
}

func (w *Watcher) evaluate(ctx context.Context, set *targetSet, names []string) {
	report, err := set.tracker.Status(ctx, names...)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error(fmt.Errorf("evaluation failed: %w", err))
		}
		return
	}
	w.logger.Evaluated(report)
	if w.config.Metrics != nil {
		w.config.Metrics.EvaluationDone()
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}
