package usage

import (
	"errors"
	"fmt"
	"io"

	"github.com/albertocavalcante/depview/pkg/binio"
)

// Format errors. Any of them means the persisted data is corrupt or from an
// incompatible version and the enclosing cache must be rebuilt.
var (
	ErrUnknownTag      = errors.New("unknown usage tag")
	ErrUnknownTypeTag  = errors.New("unknown type tag")
	ErrUnknownElemType = errors.New("unknown element type ordinal")
	ErrCorrupt         = errors.New("corrupt usage record")
)

// FormatError reports an undecodable value in a usage record.
type FormatError struct {
	What  string
	Value int32
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("usage format: %s %d: %v", e.What, e.Value, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Codec encodes and decodes usage records of the form [tag][fields].
// Decoded usages are interned through the Codec's Context.
type Codec struct {
	ctx *Context
}

// NewCodec returns a codec bound to ctx.
func NewCodec(ctx *Context) Codec {
	return Codec{ctx: ctx}
}

// Codec returns a codec bound to c.
func (c *Context) Codec() Codec {
	return NewCodec(c)
}

// Encode writes one record for u.
func (c Codec) Encode(w io.Writer, u Usage) error {
	bw := binio.NewWriter(w)
	c.Write(bw, u)
	if err := bw.Err(); err != nil {
		return fmt.Errorf("encode %s: %w", u.Kind(), err)
	}
	return nil
}

// Decode reads exactly one record from r and nothing beyond it, so it can
// be called repeatedly on the same stream.
func (c Codec) Decode(r io.Reader) (Usage, error) {
	br := binio.NewReader(r)
	u := c.Read(br)
	if err := br.Err(); err != nil {
		return nil, err
	}
	return u, nil
}

// Write appends the record for u to w.
func (c Codec) Write(w *binio.Writer, u Usage) {
	writeUsage(w, u)
}

// Read decodes the next record from r. On failure it returns nil and the
// error is available from r.Err. A clean end of stream before the tag is
// reported as io.EOF.
func (c Codec) Read(r *binio.Reader) Usage {
	tag := Kind(r.Byte())
	if r.Err() != nil {
		return nil
	}

	var u Usage
	switch tag {
	case KindClass:
		u = &ClassUsage{ClassName: r.Int32()}
	case KindClassAsGenericBound:
		u = &ClassAsGenericBoundUsage{ClassUsage{ClassName: r.Int32()}}
	case KindClassExtends:
		u = &ClassExtendsUsage{ClassName: r.Int32()}
	case KindClassNew:
		u = &ClassNewUsage{ClassExtendsUsage{ClassName: r.Int32()}}
	case KindField:
		u = readFieldUsage(r)
	case KindFieldAssign:
		if f := readFieldUsage(r); f != nil {
			u = &FieldAssignUsage{*f}
		}
	case KindMethod:
		u = readMethodUsage(r)
	case KindMetaMethod:
		u = &MetaMethodUsage{Name: r.Int32(), Class: r.Int32(), Arity: r.Int32()}
	case KindAnnotation:
		u = readAnnotationUsage(r)
	default:
		r.Fail(&FormatError{What: "usage tag", Value: int32(tag), Err: ErrUnknownTag})
		return nil
	}

	r.Continue()
	if r.Err() != nil {
		return nil
	}
	return c.ctx.Usage(u)
}

func writeUsage(w *binio.Writer, u Usage) {
	w.Byte(byte(u.Kind()))
	u.writeFields(w)
}

func readFieldUsage(r *binio.Reader) *FieldUsage {
	name := r.Int32()
	owner := r.Int32()
	t := readType(r)
	if t == nil {
		return nil
	}
	return &FieldUsage{Name: name, Class: owner, Type: t}
}

func readMethodUsage(r *binio.Reader) Usage {
	name := r.Int32()
	owner := r.Int32()
	n := r.Len()
	args := make([]Type, 0, min(n, 255))
	for i := 0; i < n && r.Err() == nil; i++ {
		args = append(args, readType(r))
	}
	ret := readType(r)
	if r.Err() != nil {
		return nil
	}
	return &MethodUsage{Name: name, Class: owner, Args: args, Return: ret}
}

func readAnnotationUsage(r *binio.Reader) Usage {
	t := readType(r)
	if r.Err() != nil {
		return nil
	}
	ct, ok := t.(ClassType)
	if !ok {
		r.Fail(&FormatError{What: "annotation type tag", Value: int32(typeTag(t)), Err: ErrCorrupt})
		return nil
	}

	var args IDSet
	if n := r.Int32(); n != absentSet {
		if n < 0 {
			r.Fail(&FormatError{What: "argument count", Value: n, Err: ErrCorrupt})
			return nil
		}
		ids := make([]int32, 0, min(int(n), 1024))
		for i := int32(0); i < n && r.Err() == nil; i++ {
			ids = append(ids, r.Int32())
		}
		args = NewIDSet(ids...)
	}

	var targets ElemTypeSet
	if n := r.Int32(); n != absentSet {
		if n < 0 {
			r.Fail(&FormatError{What: "target count", Value: n, Err: ErrCorrupt})
			return nil
		}
		targets = ElemTypes()
		for i := int32(0); i < n && r.Err() == nil; i++ {
			ord := r.Int32()
			if ord < 0 || ord >= int32(elemTypeCount) {
				r.Fail(&FormatError{What: "element type", Value: ord, Err: ErrUnknownElemType})
				return nil
			}
			targets.bits |= 1 << ord
		}
	}

	if r.Err() != nil {
		return nil
	}
	return &AnnotationUsage{Type: ct, UsedArguments: args, UsedTargets: targets}
}
