package usage

import (
	"github.com/albertocavalcante/depview/pkg/binio"
)

// Type tags. Persisted; never reassign.
const (
	primitiveTypeTag byte = 0x0
	classTypeTag     byte = 0x1
	arrayTypeTag     byte = 0x2
)

// Type is the structured form of a JVM type descriptor.
//
// Implementations are PrimitiveType, ClassType and ArrayType. All three are
// comparable values, so a Type can be used directly as a map key.
type Type interface {
	Hash() int32
	Equal(other Type) bool
	// Descriptor renders the JVM descriptor, e.g. "I" or "[Ljava/lang/String;".
	Descriptor(names *NameTable) string

	writeType(w *binio.Writer)
}

// PrimitiveType is a primitive or void type. Descr is the interned
// one-character descriptor.
type PrimitiveType struct {
	Descr int32
}

func (t PrimitiveType) Hash() int32 { return t.Descr }

func (t PrimitiveType) Equal(other Type) bool {
	o, ok := other.(PrimitiveType)
	return ok && o == t
}

func (t PrimitiveType) Descriptor(names *NameTable) string {
	return names.Value(t.Descr)
}

func (t PrimitiveType) writeType(w *binio.Writer) {
	w.Byte(primitiveTypeTag)
	w.Int32(t.Descr)
}

// ClassType is a reference to a class by interned internal name
// ("java/lang/String").
type ClassType struct {
	ClassName int32
}

func (t ClassType) Hash() int32 { return t.ClassName }

func (t ClassType) Equal(other Type) bool {
	o, ok := other.(ClassType)
	return ok && o == t
}

func (t ClassType) Descriptor(names *NameTable) string {
	return "L" + names.Value(t.ClassName) + ";"
}

func (t ClassType) writeType(w *binio.Writer) {
	w.Byte(classTypeTag)
	w.Int32(t.ClassName)
}

// ArrayType is an array of Elem.
type ArrayType struct {
	Elem Type
}

func (t ArrayType) Hash() int32 { return 31*t.Elem.Hash() + 1 }

func (t ArrayType) Equal(other Type) bool {
	o, ok := other.(ArrayType)
	return ok && t.Elem.Equal(o.Elem)
}

func (t ArrayType) Descriptor(names *NameTable) string {
	return "[" + t.Elem.Descriptor(names)
}

func (t ArrayType) writeType(w *binio.Writer) {
	w.Byte(arrayTypeTag)
	t.Elem.writeType(w)
}

// maxArrayDepth matches the JVM limit on array dimensions.
const maxArrayDepth = 255

func readType(r *binio.Reader) Type {
	return readTypeDepth(r, 0)
}

func readTypeDepth(r *binio.Reader, depth int) Type {
	tag := r.Byte()
	r.Continue()
	if r.Err() != nil {
		return nil
	}
	switch tag {
	case primitiveTypeTag:
		return PrimitiveType{Descr: r.Int32()}
	case classTypeTag:
		return ClassType{ClassName: r.Int32()}
	case arrayTypeTag:
		if depth >= maxArrayDepth {
			r.Fail(&FormatError{What: "array depth", Value: int32(depth), Err: ErrCorrupt})
			return nil
		}
		elem := readTypeDepth(r, depth+1)
		if elem == nil {
			return nil
		}
		return ArrayType{Elem: elem}
	default:
		r.Fail(&FormatError{What: "type tag", Value: int32(tag), Err: ErrUnknownTypeTag})
		return nil
	}
}

func typeTag(t Type) byte {
	switch t.(type) {
	case PrimitiveType:
		return primitiveTypeTag
	case ClassType:
		return classTypeTag
	default:
		return arrayTypeTag
	}
}

func hashTypes(ts []Type) int32 {
	h := int32(1)
	for _, t := range ts {
		h = 31*h + t.Hash()
	}
	return h
}

func equalTypes(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
