// Package watch re-evaluates target fingerprints when the manifest or a
// source root changes.
package watch

import (
	"slices"
	"sync"
	"time"
)

// MaxPending is the maximum number of keys that can be pending. Reaching it
// flushes immediately.
const MaxPending = 1000

// Debouncer coalesces bursts of change events into one batch of keys.
// A batch is delivered once no new key has been added for the window.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	window  time.Duration
	onFlush func(keys []string)
	stopped bool
}

// NewDebouncer creates a debouncer. onFlush receives the sorted pending
// keys and is never called while the debouncer lock is held.
func NewDebouncer(window time.Duration, onFlush func(keys []string)) *Debouncer {
	return &Debouncer{
		pending: make(map[string]struct{}),
		window:  window,
		onFlush: onFlush,
	}
}

// Add records a key. Repeated keys within the window are delivered once.
func (d *Debouncer) Add(keys ...string) {
	d.mu.Lock()
	if d.stopped || len(keys) == 0 {
		d.mu.Unlock()
		return
	}
	for _, k := range keys {
		d.pending[k] = struct{}{}
	}

	if len(d.pending) >= MaxPending {
		batch := d.drainLocked()
		d.mu.Unlock()
		d.deliver(batch)
		return
	}

	// A timer that already fired may still run flush; it finds an empty
	// set or a newer batch, both of which are fine.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.FlushNow)
	d.mu.Unlock()
}

// FlushNow delivers pending keys without waiting for the window.
func (d *Debouncer) FlushNow() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	batch := d.drainLocked()
	d.mu.Unlock()
	d.deliver(batch)
}

// Stop stops the debouncer after delivering what is pending.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	batch := d.drainLocked()
	d.mu.Unlock()
	d.deliver(batch)
}

// PendingCount returns the number of keys waiting to be flushed.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// drainLocked stops the timer and takes the pending set. Caller must hold d.mu.
func (d *Debouncer) drainLocked() []string {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if len(d.pending) == 0 {
		return nil
	}
	keys := make([]string, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	d.pending = make(map[string]struct{})
	slices.Sort(keys)
	return keys
}

func (d *Debouncer) deliver(keys []string) {
	if len(keys) > 0 && d.onFlush != nil {
		d.onFlush(keys)
	}
}
