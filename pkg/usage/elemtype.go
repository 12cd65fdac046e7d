package usage

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"
)

// ElemType is the kind of program element an annotation may be applied
// to. Ordinals are persisted.
type ElemType uint8

const (
	ElemTypeType ElemType = iota
	ElemTypeField
	ElemTypeMethod
	ElemTypeParameter
	ElemTypeConstructor
	ElemTypeLocalVariable
	ElemTypeAnnotationType
	ElemTypePackage
	ElemTypeTypeParameter
	ElemTypeTypeUse

	elemTypeCount
)

var elemTypeNames = [elemTypeCount]string{
	"TYPE",
	"FIELD",
	"METHOD",
	"PARAMETER",
	"CONSTRUCTOR",
	"LOCAL_VARIABLE",
	"ANNOTATION_TYPE",
	"PACKAGE",
	"TYPE_PARAMETER",
	"TYPE_USE",
}

func (e ElemType) String() string {
	if e < elemTypeCount {
		return elemTypeNames[e]
	}
	return fmt.Sprintf("ElemType(%d)", uint8(e))
}

// ParseElemType accepts the names printed by String, case-insensitively.
func ParseElemType(s string) (ElemType, error) {
	for i, name := range elemTypeNames {
		if strings.EqualFold(name, s) {
			return ElemType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown element type %q", s)
}

// ElemTypeSet is an immutable set of element types. The zero value is the
// absent set, which is distinct from an empty set.
type ElemTypeSet struct {
	bits    uint16
	present bool
}

// ElemTypes returns a present set holding ts.
func ElemTypes(ts ...ElemType) ElemTypeSet {
	s := ElemTypeSet{present: true}
	for _, t := range ts {
		s.bits |= 1 << t
	}
	return s
}

// Absent reports whether the set was never recorded.
func (s ElemTypeSet) Absent() bool { return !s.present }

// Has reports whether t is in the set.
func (s ElemTypeSet) Has(t ElemType) bool { return s.bits&(1<<t) != 0 }

// Len returns the number of element types in the set.
func (s ElemTypeSet) Len() int { return bits.OnesCount16(s.bits) }

// Intersects reports whether the sets share an element type.
func (s ElemTypeSet) Intersects(other ElemTypeSet) bool { return s.bits&other.bits != 0 }

// All returns the members in ordinal order.
func (s ElemTypeSet) All() []ElemType {
	out := make([]ElemType, 0, s.Len())
	for t := ElemType(0); t < elemTypeCount; t++ {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s ElemTypeSet) hash() int32 { return int32(s.bits) }

// IDSet is an immutable set of interned name ids kept in ascending order.
// A nil IDSet is absent; NewIDSet always returns a present set.
type IDSet []int32

// NewIDSet returns a present set holding ids.
func NewIDSet(ids ...int32) IDSet {
	s := make(IDSet, len(ids))
	copy(s, ids)
	slices.Sort(s)
	return slices.Compact(s)
}

// Absent reports whether the set was never recorded.
func (s IDSet) Absent() bool { return s == nil }

// Has reports whether id is in the set.
func (s IDSet) Has(id int32) bool {
	_, found := slices.BinarySearch(s, id)
	return found
}

// Equal compares two sets, treating absent and empty as different.
func (s IDSet) Equal(other IDSet) bool {
	if s.Absent() != other.Absent() {
		return false
	}
	return slices.Equal(s, other)
}

// hasAnyNotIn reports whether s holds an id missing from other.
func (s IDSet) hasAnyNotIn(other IDSet) bool {
	for _, id := range s {
		if !other.Has(id) {
			return true
		}
	}
	return false
}

func (s IDSet) hash() int32 {
	var h int32
	for _, id := range s {
		h += id
	}
	return h
}
