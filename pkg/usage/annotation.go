package usage

import "github.com/albertocavalcante/depview/pkg/binio"

// AnnotationUsage is an application of annotation Type. UsedArguments holds
// the names of explicitly given annotation arguments and UsedTargets the
// element kinds the annotation was applied to; either may be absent.
type AnnotationUsage struct {
	Type          ClassType
	UsedArguments IDSet
	UsedTargets   ElemTypeSet
}

func (u *AnnotationUsage) Kind() Kind   { return KindAnnotation }
func (u *AnnotationUsage) Owner() int32 { return u.Type.ClassName }

func (u *AnnotationUsage) Hash() int32 {
	h := u.Type.Hash()
	h = 31*h + u.UsedArguments.hash()
	h = 31*h + u.UsedTargets.hash()
	return h
}

func (u *AnnotationUsage) Equal(other Usage) bool {
	o, ok := other.(*AnnotationUsage)
	return ok &&
		u.Type == o.Type &&
		u.UsedTargets == o.UsedTargets &&
		u.UsedArguments.Equal(o.UsedArguments)
}

// Satisfies reports whether a change to the annotation usage described by
// candidate affects code that depends on u's usage pattern.
//
// It holds when candidate applies the same annotation type and either u
// names an argument that candidate does not, or the two share a target
// element kind. The relation is directional. An absent argument or target
// set on u contributes nothing; an absent set on candidate counts as empty.
func (u *AnnotationUsage) Satisfies(candidate Usage) bool {
	c, ok := candidate.(*AnnotationUsage)
	if !ok || u.Type != c.Type {
		return false
	}

	argumentsSatisfy := false
	if !u.UsedArguments.Absent() {
		argumentsSatisfy = u.UsedArguments.hasAnyNotIn(c.UsedArguments)
	}

	targetsSatisfy := false
	if !u.UsedTargets.Absent() {
		targetsSatisfy = u.UsedTargets.Intersects(c.UsedTargets)
	}

	return argumentsSatisfy || targetsSatisfy
}

func (u *AnnotationUsage) writeFields(w *binio.Writer) {
	u.Type.writeType(w)

	if u.UsedArguments.Absent() {
		w.Int32(absentSet)
	} else {
		w.Len(len(u.UsedArguments))
		for _, id := range u.UsedArguments {
			w.Int32(id)
		}
	}

	if u.UsedTargets.Absent() {
		w.Int32(absentSet)
	} else {
		targets := u.UsedTargets.All()
		w.Len(len(targets))
		for _, t := range targets {
			w.Int32(int32(t))
		}
	}
}

// absentSet is the count written for a set that was never recorded.
const absentSet int32 = -1
