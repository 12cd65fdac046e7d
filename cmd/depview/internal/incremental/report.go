package incremental

import (
	"cmp"
	"slices"
)

// TargetStatus is the evaluation result of one target.
type TargetStatus struct {
	// Target is "type:id".
	Target string `json:"target"`
	Type   string `json:"type"`
	ID     string `json:"id"`
	// Digest is the hash of the current configuration.
	Digest string `json:"digest,omitempty"`
	// Baseline reports whether a fingerprint from an earlier build exists.
	Baseline bool   `json:"baseline"`
	Error    string `json:"error,omitempty"`
}

// Report groups targets by evaluation outcome.
type Report struct {
	Dirty  []TargetStatus `json:"dirty"`
	Clean  []TargetStatus `json:"clean"`
	Failed []TargetStatus `json:"failed"`
}

// NewReport creates an empty Report.
func NewReport() *Report {
	return &Report{
		Dirty:  []TargetStatus{},
		Clean:  []TargetStatus{},
		Failed: []TargetStatus{},
	}
}

// IsUpToDate returns true if no target needs a rebuild.
func (r *Report) IsUpToDate() bool {
	if r == nil {
		return true
	}
	return len(r.Dirty) == 0 && len(r.Failed) == 0
}

// TotalTargets returns the number of evaluated targets.
func (r *Report) TotalTargets() int {
	if r == nil {
		return 0
	}
	return len(r.Dirty) + len(r.Clean) + len(r.Failed)
}

// RebuildTargets returns sorted "type:id" names of targets that must be
// rebuilt. Failed targets are included since they cannot be proven clean.
func (r *Report) RebuildTargets() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Dirty)+len(r.Failed))
	for _, s := range r.Dirty {
		names = append(names, s.Target)
	}
	for _, s := range r.Failed {
		names = append(names, s.Target)
	}
	slices.Sort(names)
	return names
}

// DirtyTypes returns the sorted target types with at least one target to
// rebuild.
func (r *Report) DirtyTypes() []string {
	if r == nil {
		return nil
	}
	types := make(map[string]struct{})
	for _, s := range r.Dirty {
		types[s.Type] = struct{}{}
	}
	for _, s := range r.Failed {
		types[s.Type] = struct{}{}
	}

	result := make([]string, 0, len(types))
	for typ := range types {
		result = append(result, typ)
	}
	slices.Sort(result)
	return result
}

// sort sorts all slices for deterministic output.
func (r *Report) sort() {
	if r == nil {
		return
	}
	byTarget := func(a, b TargetStatus) int { return cmp.Compare(a.Target, b.Target) }
	slices.SortFunc(r.Dirty, byTarget)
	slices.SortFunc(r.Clean, byTarget)
	slices.SortFunc(r.Failed, byTarget)
}
