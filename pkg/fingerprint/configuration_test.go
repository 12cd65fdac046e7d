package fingerprint

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeTarget struct {
	id      string
	typ     string
	text    string
	err     error
	renders atomic.Int32
}

func (t *fakeTarget) ID() string     { return t.id }
func (t *fakeTarget) TypeID() string { return t.typ }

func (t *fakeTarget) WriteConfiguration(w io.Writer, _ *DataPaths, index *RootIndex) error {
	t.renders.Add(1)
	if t.err != nil {
		return t.err
	}
	if _, err := io.WriteString(w, t.text); err != nil {
		return err
	}
	for _, r := range index.Roots(t) {
		if _, err := fmt.Fprintf(w, "root %s generated=%t\n", r.Path, r.Generated); err != nil {
			return err
		}
	}
	return nil
}

func newTarget(text string) *fakeTarget {
	return &fakeTarget{id: "app", typ: "java-production", text: text}
}

// isDirty fails the test on error.
func isDirty(t *testing.T, c *Configuration) bool {
	t.Helper()
	dirty, err := c.IsDirty()
	if err != nil {
		t.Fatalf("IsDirty() error = %v", err)
	}
	return dirty
}

func save(t *testing.T, c *Configuration) {
	t.Helper()
	if err := c.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func assertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("%s should not exist (stat error = %v)", path, err)
	}
}

func TestDirtyWithoutBaseline(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"non-empty configuration", "classpath=a.jar\n"},
		{"empty configuration", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfiguration(newTarget(tt.text), NewTargetsState(t.TempDir()))
			if c.HasBaseline() {
				t.Error("HasBaseline() = true before any save")
			}
			if !isDirty(t, c) {
				t.Error("target without a stored fingerprint should be dirty")
			}
		})
	}
}

func TestCleanAfterSave(t *testing.T) {
	state := NewTargetsState(t.TempDir())
	target := newTarget("classpath=a.jar\n")

	c := NewConfiguration(target, state)
	save(t, c)

	if isDirty(t, c) {
		t.Error("same instance should be clean after save")
	}

	fresh := NewConfiguration(target, state)
	if !fresh.HasBaseline() {
		t.Error("fresh instance should see the saved baseline")
	}
	if isDirty(t, fresh) {
		t.Error("fresh instance should be clean against unchanged inputs")
	}

	data, err := os.ReadFile(c.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "classpath=a.jar\n" {
		t.Errorf("stored fingerprint = %q", data)
	}
	assertNoFile(t, c.Path()+".tmp")
}

func TestEmptyConfigurationCleanAfterSave(t *testing.T) {
	state := NewTargetsState(t.TempDir())
	target := newTarget("")

	save(t, NewConfiguration(target, state))

	if isDirty(t, NewConfiguration(target, state)) {
		t.Error("saved empty configuration should be clean")
	}
}

func TestDirtyAfterChange(t *testing.T) {
	state := NewTargetsState(t.TempDir())
	save(t, NewConfiguration(newTarget("classpath=a.jar\n"), state))

	if !isDirty(t, NewConfiguration(newTarget("classpath=a.jar:b.jar\n"), state)) {
		t.Error("changed configuration should be dirty")
	}
}

func TestRootsAffectConfiguration(t *testing.T) {
	state := NewTargetsState(t.TempDir())
	target := newTarget("x\n")
	save(t, NewConfiguration(target, state))

	state.Index.Add(target.TypeID(), target.ID(), Root{Path: "src/gen", Generated: true})

	if !isDirty(t, NewConfiguration(target, state)) {
		t.Error("adding a root should make the target dirty")
	}
}

func TestSaveFailureLeavesTargetDirty(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the data directory should be makes every write fail.
	dataRoot := filepath.Join(dir, "data")
	if err := os.WriteFile(dataRoot, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}

	state := NewTargetsState(dataRoot)
	target := newTarget("classpath=a.jar\n")

	c := NewConfiguration(target, state)
	if err := c.Save(); err == nil {
		t.Fatal("Save() should fail when the data root is a file")
	}
	if c.HasBaseline() {
		t.Error("failed save should not record a baseline")
	}
	if !isDirty(t, c) {
		t.Error("failed save must not clear dirtiness")
	}
	if !isDirty(t, NewConfiguration(target, state)) {
		t.Error("failed save must not leave a clean state behind")
	}
}

func TestSaveFailureKeepsPreviousBaseline(t *testing.T) {
	state := NewTargetsState(t.TempDir())
	old := newTarget("v1\n")
	save(t, NewConfiguration(old, state))

	c := NewConfiguration(newTarget("v2\n"), state)
	// Occupy the temp path so the write cannot happen.
	if err := os.Mkdir(c.Path()+".tmp", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(); err == nil {
		t.Fatal("Save() should fail when the temp path is a directory")
	}

	if !isDirty(t, NewConfiguration(newTarget("v2\n"), state)) {
		t.Error("unsaved configuration should stay dirty")
	}
	if isDirty(t, NewConfiguration(old, state)) {
		t.Error("previous baseline should survive a failed save")
	}
}

func TestUnreadableBaselineIsDirty(t *testing.T) {
	state := NewTargetsState(t.TempDir())
	target := newTarget("")

	path := filepath.Join(state.Paths.TargetDataRoot(target), ConfigFileName)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}

	c := NewConfiguration(target, state)
	if c.HasBaseline() {
		t.Error("a directory is not a baseline")
	}
	if !isDirty(t, c) {
		t.Error("unreadable baseline should be dirty")
	}
}

func TestRenderError(t *testing.T) {
	state := NewTargetsState(t.TempDir())
	boom := errors.New("boom")
	target := &fakeTarget{id: "broken", typ: "java-tests", err: boom}

	c := NewConfiguration(target, state)
	dirty, err := c.IsDirty()
	if !errors.Is(err, boom) || !dirty {
		t.Errorf("IsDirty() = %v, %v, want true, %v", dirty, err, boom)
	}

	if err := c.Save(); !errors.Is(err, boom) {
		t.Errorf("Save() error = %v, want %v", err, boom)
	}
	assertNoFile(t, c.Path())

	if _, err := c.Digest(); !errors.Is(err, boom) {
		t.Errorf("Digest() error = %v, want %v", err, boom)
	}
	if n := target.renders.Load(); n != 1 {
		t.Errorf("rendered %d times, want 1", n)
	}
}

func TestRenderedOnce(t *testing.T) {
	state := NewTargetsState(t.TempDir())
	target := newTarget("x\n")
	c := NewConfiguration(target, state)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.IsDirty(); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent IsDirty() error = %v", err)
	}

	if _, err := c.Digest(); err != nil {
		t.Fatal(err)
	}
	save(t, c)

	// Changing the target after the first render does not affect this instance.
	target.text = "y\n"
	if isDirty(t, c) {
		t.Error("instance should keep its first rendering")
	}
	if n := target.renders.Load(); n != 1 {
		t.Errorf("rendered %d times, want 1", n)
	}

	if !isDirty(t, NewConfiguration(target, state)) {
		t.Error("new instance should see the changed target")
	}
}

func TestClean(t *testing.T) {
	state := NewTargetsState(t.TempDir())
	target := newTarget("x\n")

	c := NewConfiguration(target, state)
	if err := c.Clean(); err != nil {
		t.Fatalf("Clean() without a stored file error = %v", err)
	}

	save(t, c)
	if err := c.Clean(); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	assertNoFile(t, c.Path())
	if c.HasBaseline() {
		t.Error("HasBaseline() = true after Clean")
	}
	if !isDirty(t, c) {
		t.Error("cleaned target should be dirty")
	}
}

func TestDigest(t *testing.T) {
	state := NewTargetsState(t.TempDir())

	digest := func(text string) string {
		d, err := NewConfiguration(newTarget(text), state).Digest()
		if err != nil {
			t.Fatalf("Digest() error = %v", err)
		}
		return d
	}

	a, b, c := digest("x\n"), digest("x\n"), digest("y\n")
	if len(a) != 16 {
		t.Errorf("Digest() = %q, want 16 hex digits", a)
	}
	if a != b {
		t.Errorf("equal configurations digest to %q and %q", a, b)
	}
	if a == c {
		t.Error("different configurations share a digest")
	}
	if want := hashString("x\n"); a != want {
		t.Errorf("Digest() = %q, want %q", a, want)
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	checked []string
	saved   []string
}

func (o *recordingObserver) ConfigurationChecked(typeID string, dirty bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.checked = append(o.checked, fmt.Sprintf("%s dirty=%t", typeID, dirty))
}

func (o *recordingObserver) ConfigurationSaved(typeID string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.saved = append(o.saved, fmt.Sprintf("%s ok=%t", typeID, err == nil))
}

func TestObserver(t *testing.T) {
	state := NewTargetsState(t.TempDir())
	obs := &recordingObserver{}

	c := NewConfiguration(newTarget("x\n"), state, WithObserver(obs))
	isDirty(t, c)
	save(t, c)
	isDirty(t, c)

	if want := []string{"java-production dirty=true", "java-production dirty=false"}; !slices.Equal(obs.checked, want) {
		t.Errorf("checked = %v, want %v", obs.checked, want)
	}
	if want := []string{"java-production ok=true"}; !slices.Equal(obs.saved, want) {
		t.Errorf("saved = %v, want %v", obs.saved, want)
	}
}

func TestLineDiff(t *testing.T) {
	tests := []struct {
		name        string
		old, new    string
		added       int
		removed     int
		contains    []string
		notContains []string
	}{
		{
			name:        "changed and appended lines",
			old:         "a\nb\nc\n",
			new:         "a\nB\nc\nd\n",
			added:       2,
			removed:     1,
			contains:    []string{"-b\n", "+B\n", "+d\n"},
			notContains: []string{"a"},
		},
		{
			name: "identical",
			old:  "same\n",
			new:  "same\n",
		},
		{
			name:  "blank lines",
			new:   strings.Repeat("\n", 2),
			added: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, removed, text := lineDiff(tt.old, tt.new)
			if added != tt.added || removed != tt.removed {
				t.Errorf("lineDiff() counts = +%d -%d, want +%d -%d", added, removed, tt.added, tt.removed)
			}
			for _, s := range tt.contains {
				if !strings.Contains(text, s) {
					t.Errorf("diff %q missing %q", text, s)
				}
			}
			for _, s := range tt.notContains {
				if strings.Contains(text, s) {
					t.Errorf("diff %q should not contain %q", text, s)
				}
			}
			if tt.added == 0 && tt.removed == 0 && text != "" {
				t.Errorf("diff of identical texts = %q, want empty", text)
			}
		})
	}
}
