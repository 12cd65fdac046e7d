// Package incremental evaluates target configuration fingerprints for a
// workspace: which targets are dirty, saving new baselines and dropping
// old ones.
package incremental

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/albertocavalcante/depview/internal/log"
	"github.com/albertocavalcante/depview/pkg/fingerprint"
)

// Tracker provides high-level incremental update tracking over a fixed set
// of targets.
type Tracker struct {
	state    *fingerprint.TargetsState
	targets  []fingerprint.Target
	workers  int
	observer fingerprint.Observer
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWorkers bounds the number of targets evaluated in parallel.
func WithWorkers(n int) Option {
	return func(t *Tracker) {
		t.workers = n
	}
}

// WithObserver forwards configuration events to o.
func WithObserver(o fingerprint.Observer) Option {
	return func(t *Tracker) {
		t.observer = o
	}
}

// NewTracker creates a tracker for targets sharing state.
func NewTracker(state *fingerprint.TargetsState, targets []fingerprint.Target, opts ...Option) *Tracker {
	t := &Tracker{
		state:   state,
		targets: targets,
		workers: 1,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.workers < 1 {
		t.workers = 1
	}
	return t
}

// Targets returns the tracked targets.
func (t *Tracker) Targets() []fingerprint.Target {
	return t.targets
}

// TargetName is the "type:id" name of a target.
func TargetName(target fingerprint.Target) string {
	return target.TypeID() + ":" + target.ID()
}

func (t *Tracker) configuration(target fingerprint.Target) *fingerprint.Configuration {
	var opts []fingerprint.Option
	if t.observer != nil {
		opts = append(opts, fingerprint.WithObserver(t.observer))
	}
	return fingerprint.NewConfiguration(target, t.state, opts...)
}

// Status checks every target without modifying state.
// A target whose configuration cannot be rendered is reported as failed.
func (t *Tracker) Status(ctx context.Context, names ...string) (*Report, error) {
	selected, err := t.Select(names...)
	if err != nil {
		return nil, err
	}

	report := NewReport()
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for _, target := range selected {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			status, dirty, err := t.check(target)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed = append(report.Failed, status)
			case dirty:
				report.Dirty = append(report.Dirty, status)
			default:
				report.Clean = append(report.Clean, status)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.sort()
	return report, nil
}

func (t *Tracker) check(target fingerprint.Target) (TargetStatus, bool, error) {
	c := t.configuration(target)
	status := TargetStatus{
		Target:   TargetName(target),
		Type:     target.TypeID(),
		ID:       target.ID(),
		Baseline: c.HasBaseline(),
	}

	dirty, err := c.IsDirty()
	if err != nil {
		status.Error = err.Error()
		return status, true, err
	}
	status.Digest, _ = c.Digest()
	return status, dirty, nil
}

// SaveResult lists the outcome of saving fingerprints.
type SaveResult struct {
	Saved  []string          `json:"saved"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Save persists the current configuration of the named targets (all when
// names is empty). Failures of individual targets do not stop the others;
// they are reported in the result.
func (t *Tracker) Save(ctx context.Context, names ...string) (*SaveResult, error) {
	selected, err := t.Select(names...)
	if err != nil {
		return nil, err
	}

	result := &SaveResult{Saved: []string{}, Failed: map[string]string{}}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for _, target := range selected {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := t.configuration(target).Save()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[TargetName(target)] = err.Error()
			} else {
				result.Saved = append(result.Saved, TargetName(target))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.Sort(result.Saved)
	return result, nil
}

// Clean removes the persisted fingerprints of the named targets (all when
// names is empty), forcing them to be rebuilt.
func (t *Tracker) Clean(ctx context.Context, names ...string) error {
	selected, err := t.Select(names...)
	if err != nil {
		return err
	}

	var errs []error
	for _, target := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.configuration(target).Clean(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Select resolves target names. A name is either "type:id" or a bare id
// matching targets of every type. No names selects all targets.
func (t *Tracker) Select(names ...string) ([]fingerprint.Target, error) {
	if len(names) == 0 {
		return t.targets, nil
	}

	var selected []fingerprint.Target
	seen := make(map[string]bool)
	for _, name := range names {
		found := false
		for _, target := range t.targets {
			if name != TargetName(target) && name != target.ID() {
				continue
			}
			found = true
			if !seen[TargetName(target)] {
				seen[TargetName(target)] = true
				selected = append(selected, target)
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown target %q", name)
		}
	}
	return selected, nil
}

// HasState returns true if any fingerprint has been saved.
func (t *Tracker) HasState() bool {
	return t.StoredFingerprintCount() > 0
}

// StoredFingerprintCount returns the number of fingerprint files below the
// data directory. Returns 0 if no state exists or on error.
func (t *Tracker) StoredFingerprintCount() int {
	count := 0
	err := filepath.WalkDir(t.state.Paths.TargetsDir(), func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == fingerprint.ConfigFileName {
			count++
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Component("incremental").Debug("cannot count fingerprints", "error", err)
		return 0
	}
	return count
}
