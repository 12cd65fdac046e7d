// Package detect finds build targets in a source tree.
//
// # Detection Algorithm
//
// Detection is DETERMINISTIC: given the same directory contents, it always
// produces the same target list. The algorithm:
//
//  1. Walk the directory tree, skipping ignored directories and those
//     matched by the root .gitignore
//  2. For each directory, check whether it ends in a known source-set layout
//     (src/main/java, src/test/kotlin, ...)
//  3. Group matching directories by module and target type
//
// A module is the directory holding "src". Its path relative to the root,
// with "/" replaced by "-", is the target id; the root module takes the root
// directory's name.
package detect

import (
	"cmp"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/albertocavalcante/depview/pkg/targets"
)

// Layout maps a conventional source-set directory to a target type.
type Layout struct {
	Dir    string
	Type   string
	Output string
}

// Layouts lists the recognized source-set directories.
var Layouts = []Layout{
	{Dir: "src/main/java", Type: targets.TypeJavaProduction, Output: "main"},
	{Dir: "src/main/kotlin", Type: targets.TypeJavaProduction, Output: "main"},
	{Dir: "src/test/java", Type: targets.TypeJavaTests, Output: "test"},
	{Dir: "src/test/kotlin", Type: targets.TypeJavaTests, Output: "test"},
	{Dir: "src/main/resources", Type: targets.TypeResources, Output: "resources"},
}

// IgnoredDirs contains directory prefixes to skip during detection and
// watching.
//
// Prefix matching means "bazel-" matches "bazel-out", "bazel-bin", etc.
var IgnoredDirs = []string{
	"bazel-",       // Bazel output directories
	".",            // Hidden directories, including .depview
	"node_modules", // Node.js dependencies
	"vendor",       // Vendored deps
	"target",       // Maven output
	"build",        // Gradle/generic build output
	"out",          // Generic output
	"dist",         // Distribution output
}

// IsIgnoredDir reports whether a directory with this base name is skipped.
func IsIgnoredDir(name string) bool {
	for _, prefix := range IgnoredDirs {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Targets detects targets under root. Paths in the returned specs are
// relative to root and use forward slashes. Specs are sorted by id, then
// type.
func Targets(root string) ([]targets.Spec, error) {
	rootName := filepath.Base(root)
	byKey := make(map[string]*targets.Spec)
	gi := loadGitignore(root)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if IsIgnoredDir(d.Name()) {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if gi != nil && gi.MatchesPath(rel+"/") {
			return filepath.SkipDir
		}

		layout, module, ok := match(rel)
		if !ok {
			return nil
		}

		id := strings.ReplaceAll(module, "/", "-")
		if id == "" {
			id = rootName
		}
		key := layout.Type + ":" + id
		spec, found := byKey[key]
		if !found {
			spec = &targets.Spec{
				ID:      id,
				Type:    layout.Type,
				Outputs: []string{joinSlash(module, "out", layout.Output)},
			}
			byKey[key] = spec
		}
		spec.Sources = append(spec.Sources, rel)

		// Source trees never contain further modules.
		return filepath.SkipDir
	})
	if err != nil {
		return nil, err
	}

	result := make([]targets.Spec, 0, len(byKey))
	for _, spec := range byKey {
		slices.Sort(spec.Sources)
		result = append(result, *spec)
	}
	slices.SortFunc(result, func(a, b targets.Spec) int {
		return cmp.Or(cmp.Compare(a.ID, b.ID), cmp.Compare(a.Type, b.Type))
	})
	return result, nil
}

// loadGitignore returns the root .gitignore matcher, or nil when there is
// none.
func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// match returns the layout rel ends with and the module directory before it.
func match(rel string) (Layout, string, bool) {
	for _, l := range Layouts {
		if rel == l.Dir {
			return l, "", true
		}
		if module, ok := strings.CutSuffix(rel, "/"+l.Dir); ok {
			return l, module, true
		}
	}
	return Layout{}, "", false
}

func joinSlash(elems ...string) string {
	var parts []string
	for _, e := range elems {
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "/")
}
