// Package manifest loads the target manifest (targets.toml).
//
// A manifest declares build targets:
//
//	[[target]]
//	id = "core"
//	type = "java-production"
//	sources = ["core/src/main/java"]
//	outputs = ["out/core"]
//	deps = ["java-production:util"]
//
//	[target.options]
//	target = "17"
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/albertocavalcante/depview/pkg/config"
	"github.com/albertocavalcante/depview/pkg/fingerprint"
	"github.com/albertocavalcante/depview/pkg/registry"
	"github.com/albertocavalcante/depview/pkg/targets"
)

// ErrNoManifest is returned when the manifest file does not exist.
var ErrNoManifest = errors.New("no target manifest")

// Manifest is a parsed target manifest.
type Manifest struct {
	// Path is the file the manifest was read from.
	Path string `toml:"-"`

	Targets []targets.Spec `toml:"target"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoManifest, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse decodes and validates manifest text.
func Parse(text string) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(text, &m)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown manifest key %q", undecoded[0].String())
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	seen := make(map[string]bool, len(m.Targets))
	for i, spec := range m.Targets {
		if spec.ID == "" {
			return fmt.Errorf("target #%d: missing id", i+1)
		}
		if spec.Type == "" {
			return fmt.Errorf("target %q: missing type", spec.ID)
		}
		if !registry.IsTypeAvailable(spec.Type) {
			return &registry.UnknownTypeError{Target: spec.ID, Type: spec.Type}
		}
		key := spec.Type + ":" + spec.ID
		if seen[key] {
			return fmt.Errorf("target %q declared twice", key)
		}
		seen[key] = true
	}
	return nil
}

// Build creates the enabled targets and registers their source roots in
// state's root index.
func (m *Manifest) Build(cfg *config.Config, state *fingerprint.TargetsState) ([]fingerprint.Target, error) {
	loaded, err := registry.LoadTargets(cfg, m.Targets)
	if err != nil {
		return nil, err
	}
	for _, spec := range m.Targets {
		state.Index.Add(spec.Type, spec.ID, spec.Roots()...)
	}
	return loaded, nil
}
