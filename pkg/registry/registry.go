// Package registry provides the target type registry.
// It maps manifest type ids to target factories and loads only the types
// that are enabled in configuration.
package registry

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/albertocavalcante/depview/pkg/config"
	"github.com/albertocavalcante/depview/pkg/fingerprint"
	"github.com/albertocavalcante/depview/pkg/targets"
)

// TargetFactory creates a target from its manifest declaration.
type TargetFactory func(spec targets.Spec) fingerprint.Target

var (
	mu sync.RWMutex

	// factories maps target type ids to their factory functions.
	factories = map[string]TargetFactory{
		targets.TypeJavaProduction: func(s targets.Spec) fingerprint.Target { return targets.NewJavaProduction(s) },
		targets.TypeJavaTests:      func(s targets.Spec) fingerprint.Target { return targets.NewJavaTests(s) },
		targets.TypeResources:      func(s targets.Spec) fingerprint.Target { return targets.NewResources(s) },
	}
)

// typeOrder defines the order in which target types are evaluated and
// reported. Unlisted types follow in name order.
var typeOrder = []string{
	targets.TypeJavaProduction,
	targets.TypeJavaTests,
	targets.TypeResources,
}

// UnknownTypeError reports a manifest entry with an unregistered type.
type UnknownTypeError struct {
	Target string
	Type   string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("target %q: unknown target type %q (available: %v)", e.Target, e.Type, AvailableTypes())
}

// LoadTargets creates targets for specs whose type is enabled in cfg.
// Targets are returned in type order, then by id.
func LoadTargets(cfg *config.Config, specs []targets.Spec) ([]fingerprint.Target, error) {
	mu.RLock()
	defer mu.RUnlock()

	var loaded []fingerprint.Target
	for _, spec := range specs {
		factory, ok := factories[spec.Type]
		if !ok {
			return nil, &UnknownTypeError{Target: spec.ID, Type: spec.Type}
		}
		if cfg != nil && !cfg.IsTargetTypeEnabled(spec.Type) {
			continue
		}
		loaded = append(loaded, factory(spec))
	}

	slices.SortStableFunc(loaded, func(a, b fingerprint.Target) int {
		return cmp.Or(
			cmp.Compare(typeRank(a.TypeID()), typeRank(b.TypeID())),
			cmp.Compare(a.TypeID(), b.TypeID()),
			cmp.Compare(a.ID(), b.ID()),
		)
	})
	return loaded, nil
}

func typeRank(typeID string) int {
	if i := slices.Index(typeOrder, typeID); i >= 0 {
		return i
	}
	return len(typeOrder)
}

// AvailableTypes returns the registered target type ids, sorted.
func AvailableTypes() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsTypeAvailable checks if a target factory is registered.
func IsTypeAvailable(typeID string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := factories[typeID]
	return ok
}

// RegisterType registers a target factory.
// This allows external packages to add new target types.
func RegisterType(typeID string, factory TargetFactory) {
	mu.Lock()
	defer mu.Unlock()
	factories[typeID] = factory
}
