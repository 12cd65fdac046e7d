// Package targets provides the built-in build target types and their
// canonical configuration rendering.
package targets

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/albertocavalcante/depview/pkg/fingerprint"
	"github.com/albertocavalcante/depview/pkg/util"
)

// Built-in target type ids.
const (
	TypeJavaProduction = "java-production"
	TypeJavaTests      = "java-tests"
	TypeResources      = "resources"
)

// Spec is the declaration of one target in the manifest.
type Spec struct {
	ID               string            `toml:"id"`
	Type             string            `toml:"type"`
	Sources          []string          `toml:"sources,omitempty"`
	GeneratedSources []string          `toml:"generated_sources,omitempty"`
	Outputs          []string          `toml:"outputs,omitempty"`
	Options          map[string]string `toml:"options,omitempty"`
	Deps             []string          `toml:"deps,omitempty"`
	// PackagePrefix applies to every source root of the target.
	PackagePrefix string `toml:"package_prefix,omitempty"`
}

// Roots returns the source roots declared by s.
func (s Spec) Roots() []fingerprint.Root {
	roots := make([]fingerprint.Root, 0, len(s.Sources)+len(s.GeneratedSources))
	for _, p := range s.Sources {
		roots = append(roots, fingerprint.Root{Path: filepath.ToSlash(p), Prefix: s.PackagePrefix})
	}
	for _, p := range s.GeneratedSources {
		roots = append(roots, fingerprint.Root{Path: filepath.ToSlash(p), Generated: true, Prefix: s.PackagePrefix})
	}
	return roots
}

// Target is a manifest-declared target. Its configuration covers everything
// that forces a rebuild when changed: source roots, outputs, compiler
// options and dependencies.
type Target struct {
	spec Spec
	// tests marks java-tests targets, which implicitly depend on the
	// production target with the same id.
	tests bool
	// compiled is false for targets that only copy files.
	compiled bool
}

var _ fingerprint.Target = (*Target)(nil)

// NewJavaProduction creates a java-production target.
func NewJavaProduction(s Spec) *Target {
	return &Target{spec: s, compiled: true}
}

// NewJavaTests creates a java-tests target.
func NewJavaTests(s Spec) *Target {
	return &Target{spec: s, compiled: true, tests: true}
}

// NewResources creates a resources target.
func NewResources(s Spec) *Target {
	return &Target{spec: s}
}

func (t *Target) ID() string     { return t.spec.ID }
func (t *Target) TypeID() string { return t.spec.Type }

// Spec returns the declaration the target was created from.
func (t *Target) Spec() Spec { return t.spec }

func (t *Target) String() string {
	return t.spec.Type + ":" + t.spec.ID
}

// WriteConfiguration renders the canonical configuration text. Lists are
// sorted so declaration order never makes a target dirty.
func (t *Target) WriteConfiguration(w io.Writer, _ *fingerprint.DataPaths, index *fingerprint.RootIndex) error {
	ew := &errWriter{w: w}

	ew.printf("target %s\n", t)
	for _, r := range index.Roots(t) {
		kind := "source"
		if r.Generated {
			kind = "generated"
		}
		ew.printf("%s %s", kind, r.Path)
		if r.Prefix != "" {
			ew.printf(" prefix=%s", r.Prefix)
		}
		ew.printf("\n")
	}

	for _, out := range util.SortedUnique(t.spec.Outputs) {
		ew.printf("output %s\n", filepath.ToSlash(out))
	}

	if t.compiled {
		for _, key := range util.SortedKeys(t.spec.Options) {
			ew.printf("option %s=%s\n", key, t.spec.Options[key])
		}

		deps := slices.Clone(t.spec.Deps)
		if t.tests {
			deps = append(deps, TypeJavaProduction+":"+t.spec.ID)
		}
		for _, dep := range util.SortedUnique(deps) {
			ew.printf("dep %s\n", dep)
		}
	} else if len(t.spec.Options) > 0 {
		// Resource targets only honor filtering options.
		for _, key := range util.SortedKeys(t.spec.Options) {
			if key == "filter" || key == "encoding" {
				ew.printf("option %s=%s\n", key, t.spec.Options[key])
			}
		}
	}

	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
