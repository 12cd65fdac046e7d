// Package usage models the compile-time usage facts that drive incremental
// recompilation: which fields, methods, classes and annotations a compiled
// class refers to and how.
//
// Usages are immutable values interned through a Context. Factories and the
// Codec always return the canonical instance for a structural value, so two
// usages collected at different analysis sites compare equal with ==.
package usage

import (
	"fmt"

	"github.com/albertocavalcante/depview/pkg/binio"
)

// Kind identifies a usage variant. The numeric value is the persisted tag
// byte; values are never reassigned.
type Kind byte

const (
	KindField               Kind = 0x0
	KindFieldAssign         Kind = 0x1
	KindMethod              Kind = 0x2
	KindClass               Kind = 0x3
	KindClassExtends        Kind = 0x4
	KindClassNew            Kind = 0x5
	KindAnnotation          Kind = 0x6
	KindMetaMethod          Kind = 0x7
	KindClassAsGenericBound Kind = 0x8
)

var kindNames = map[Kind]string{
	KindField:               "FieldUsage",
	KindFieldAssign:         "FieldAssignUsage",
	KindMethod:              "MethodUsage",
	KindClass:               "ClassUsage",
	KindClassExtends:        "ClassExtendsUsage",
	KindClassNew:            "ClassNewUsage",
	KindAnnotation:          "AnnotationUsage",
	KindMetaMethod:          "MetaMethodUsage",
	KindClassAsGenericBound: "ClassAsGenericBoundUsage",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%#x)", byte(k))
}

// Hash offsets that keep sibling variants with equal attributes apart in
// hash-based structures. They are in-memory only and not persisted.
const (
	fieldAssignHashOffset  = 1
	classExtendsHashOffset = 1
	classNewHashOffset     = 2
	genericBoundHashOffset = 3
)

// Usage is one fact about how compiled code references a program element.
//
// The set of implementations is closed: *FieldUsage, *FieldAssignUsage,
// *MethodUsage, *MetaMethodUsage, *ClassUsage, *ClassAsGenericBoundUsage,
// *ClassExtendsUsage, *ClassNewUsage and *AnnotationUsage.
type Usage interface {
	Kind() Kind
	// Owner is the class that is the subject of the usage.
	Owner() int32
	// Hash is consistent with Equal.
	Hash() int32
	// Equal is structural equality; usages of different kinds are never equal.
	Equal(other Usage) bool

	writeFields(w *binio.Writer)
}

// FieldUsage is a read of field Name declared in Class.
type FieldUsage struct {
	Name  int32
	Class int32
	Type  Type
}

func (u *FieldUsage) Kind() Kind   { return KindField }
func (u *FieldUsage) Owner() int32 { return u.Class }
func (u *FieldUsage) Hash() int32  { return 31*(31*u.Type.Hash()+u.Name) + u.Class }

func (u *FieldUsage) sameField(o *FieldUsage) bool {
	return u.Name == o.Name && u.Class == o.Class && u.Type.Equal(o.Type)
}

func (u *FieldUsage) Equal(other Usage) bool {
	o, ok := other.(*FieldUsage)
	return ok && u.sameField(o)
}

func (u *FieldUsage) writeFields(w *binio.Writer) {
	w.Int32(u.Name)
	w.Int32(u.Class)
	u.Type.writeType(w)
}

// FieldAssignUsage is a write to a field. It shares FieldUsage's
// attributes and differs only by kind.
type FieldAssignUsage struct {
	FieldUsage
}

func (u *FieldAssignUsage) Kind() Kind  { return KindFieldAssign }
func (u *FieldAssignUsage) Hash() int32 { return u.FieldUsage.Hash() + fieldAssignHashOffset }

func (u *FieldAssignUsage) Equal(other Usage) bool {
	o, ok := other.(*FieldAssignUsage)
	return ok && u.sameField(&o.FieldUsage)
}

// MethodUsage is an invocation of a method with a static signature.
type MethodUsage struct {
	Name   int32
	Class  int32
	Args   []Type
	Return Type
}

func (u *MethodUsage) Kind() Kind   { return KindMethod }
func (u *MethodUsage) Owner() int32 { return u.Class }

func (u *MethodUsage) Hash() int32 {
	return ((31*hashTypes(u.Args)+u.Return.Hash())*31+u.Name)*31 + u.Class
}

func (u *MethodUsage) Equal(other Usage) bool {
	o, ok := other.(*MethodUsage)
	return ok &&
		u.Name == o.Name &&
		u.Class == o.Class &&
		u.Return.Equal(o.Return) &&
		equalTypes(u.Args, o.Args)
}

func (u *MethodUsage) writeFields(w *binio.Writer) {
	w.Int32(u.Name)
	w.Int32(u.Class)
	w.Len(len(u.Args))
	for _, t := range u.Args {
		t.writeType(w)
	}
	u.Return.writeType(w)
}

// MetaMethodUsage is a dynamic call known only by name and argument count.
type MetaMethodUsage struct {
	Name  int32
	Class int32
	Arity int32
}

func (u *MetaMethodUsage) Kind() Kind   { return KindMetaMethod }
func (u *MetaMethodUsage) Owner() int32 { return u.Class }
func (u *MetaMethodUsage) Hash() int32  { return 31*(31*u.Name+u.Class) + u.Arity }

func (u *MetaMethodUsage) Equal(other Usage) bool {
	o, ok := other.(*MetaMethodUsage)
	return ok && *u == *o
}

func (u *MetaMethodUsage) writeFields(w *binio.Writer) {
	w.Int32(u.Name)
	w.Int32(u.Class)
	w.Int32(u.Arity)
}

// ClassUsage is a reference to a type.
type ClassUsage struct {
	ClassName int32
}

func (u *ClassUsage) Kind() Kind   { return KindClass }
func (u *ClassUsage) Owner() int32 { return u.ClassName }
func (u *ClassUsage) Hash() int32  { return u.ClassName }

func (u *ClassUsage) Equal(other Usage) bool {
	o, ok := other.(*ClassUsage)
	return ok && o.ClassName == u.ClassName
}

func (u *ClassUsage) writeFields(w *binio.Writer) {
	w.Int32(u.ClassName)
}

// ClassAsGenericBoundUsage is a type used as a generic bound.
type ClassAsGenericBoundUsage struct {
	ClassUsage
}

func (u *ClassAsGenericBoundUsage) Kind() Kind  { return KindClassAsGenericBound }
func (u *ClassAsGenericBoundUsage) Hash() int32 { return u.ClassName + genericBoundHashOffset }

func (u *ClassAsGenericBoundUsage) Equal(other Usage) bool {
	o, ok := other.(*ClassAsGenericBoundUsage)
	return ok && o.ClassName == u.ClassName
}

// ClassExtendsUsage is a supertype reference.
type ClassExtendsUsage struct {
	ClassName int32
}

func (u *ClassExtendsUsage) Kind() Kind   { return KindClassExtends }
func (u *ClassExtendsUsage) Owner() int32 { return u.ClassName }
func (u *ClassExtendsUsage) Hash() int32  { return u.ClassName + classExtendsHashOffset }

func (u *ClassExtendsUsage) Equal(other Usage) bool {
	o, ok := other.(*ClassExtendsUsage)
	return ok && o.ClassName == u.ClassName
}

func (u *ClassExtendsUsage) writeFields(w *binio.Writer) {
	w.Int32(u.ClassName)
}

// ClassNewUsage is an instantiation of a class.
type ClassNewUsage struct {
	ClassExtendsUsage
}

func (u *ClassNewUsage) Kind() Kind  { return KindClassNew }
func (u *ClassNewUsage) Hash() int32 { return u.ClassName + classNewHashOffset }

func (u *ClassNewUsage) Equal(other Usage) bool {
	o, ok := other.(*ClassNewUsage)
	return ok && o.ClassName == u.ClassName
}
