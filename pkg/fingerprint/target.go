// Package fingerprint decides whether a build target must be rebuilt because
// its configuration changed since the last successful build.
//
// Every target renders its configuration as canonical text. The text from
// the last successful build is persisted under the target's data root and
// compared against a freshly rendered copy; any difference marks the target
// dirty.
package fingerprint

import (
	"cmp"
	"encoding/binary"
	"encoding/hex"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Target is a build target that can render its own configuration.
//
// WriteConfiguration must be deterministic: the same inputs always produce
// the same bytes.
type Target interface {
	// ID is unique among targets of the same type.
	ID() string
	// TypeID names the target type, e.g. "java-production".
	TypeID() string
	WriteConfiguration(w io.Writer, paths *DataPaths, index *RootIndex) error
}

// DataPaths locates persisted per-target data below a data directory.
type DataPaths struct {
	Root string
}

// NewDataPaths returns paths rooted at dir.
func NewDataPaths(dir string) *DataPaths {
	return &DataPaths{Root: dir}
}

// TargetsDir is the directory holding all per-target data.
func (p *DataPaths) TargetsDir() string {
	return filepath.Join(p.Root, "targets")
}

// TargetDataRoot is the directory holding data for t.
func (p *DataPaths) TargetDataRoot(t Target) string {
	return filepath.Join(p.TargetsDir(), fileName(t.TypeID()), fileName(t.ID()))
}

// fileName turns an arbitrary id into a single path element. Ids that need
// rewriting get a hash suffix so distinct ids never share a directory.
func fileName(id string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, id)
	if clean == id && id != "" && id != "." && id != ".." {
		return id
	}

	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], xxhash.Sum64String(id))
	return clean + "-" + hex.EncodeToString(sum[:4])
}

// Root is a source directory belonging to a target.
type Root struct {
	Path      string
	Generated bool
	// Prefix is the package prefix of sources below Path, if any.
	Prefix string
}

// RootIndex maps targets to their source roots. It is safe for concurrent
// use.
type RootIndex struct {
	mu    sync.RWMutex
	roots map[string][]Root
}

// NewRootIndex creates an empty index.
func NewRootIndex() *RootIndex {
	return &RootIndex{roots: make(map[string][]Root)}
}

// Add registers roots for the target with the given type and id.
func (x *RootIndex) Add(typeID, id string, roots ...Root) {
	x.mu.Lock()
	defer x.mu.Unlock()
	key := rootKey(typeID, id)
	x.roots[key] = append(x.roots[key], roots...)
}

// Roots returns the roots of t sorted by path, then by generated flag and
// prefix. The order does not depend on registration order.
func (x *RootIndex) Roots(t Target) []Root {
	x.mu.RLock()
	defer x.mu.RUnlock()

	roots := slices.Clone(x.roots[rootKey(t.TypeID(), t.ID())])
	slices.SortFunc(roots, compareRoots)
	return roots
}

func compareRoots(a, b Root) int {
	return cmp.Or(
		strings.Compare(a.Path, b.Path),
		compareBool(a.Generated, b.Generated),
		strings.Compare(a.Prefix, b.Prefix),
	)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

// All returns every registered root, sorted and deduplicated by path. Of
// several roots sharing a path the one ordered first by Roots is kept.
func (x *RootIndex) All() []Root {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var all []Root
	for _, roots := range x.roots {
		all = append(all, roots...)
	}
	slices.SortFunc(all, compareRoots)
	return slices.CompactFunc(all, func(a, b Root) bool {
		return a.Path == b.Path
	})
}

func rootKey(typeID, id string) string {
	return typeID + "\x00" + id
}

// TargetsState is what a build session shares between target
// configurations.
type TargetsState struct {
	Paths *DataPaths
	Index *RootIndex
}

// NewTargetsState returns state rooted at dataDir with an empty root index.
func NewTargetsState(dataDir string) *TargetsState {
	return &TargetsState{
		Paths: NewDataPaths(dataDir),
		Index: NewRootIndex(),
	}
}
