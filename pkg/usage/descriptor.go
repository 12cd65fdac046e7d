package usage

import (
	"errors"
	"fmt"
)

// ErrMalformedDescriptor is returned for descriptor strings that are not
// valid JVM field or method descriptors.
var ErrMalformedDescriptor = errors.New("malformed descriptor")

// MethodSignature is a parsed method descriptor. The slice is shared with
// the descriptor cache and must not be modified.
type MethodSignature struct {
	Args   []Type
	Return Type
}

func malformed(descr string, pos int, reason string) error {
	return fmt.Errorf("%w %q at %d: %s", ErrMalformedDescriptor, descr, pos, reason)
}

// ParseFieldDescriptor parses a field descriptor such as "I",
// "Ljava/util/List;" or "[[J".
func ParseFieldDescriptor(names *NameTable, descr string) (Type, error) {
	t, next, err := parseType(names, descr, 0, false)
	if err != nil {
		return nil, err
	}
	if next != len(descr) {
		return nil, malformed(descr, next, "trailing characters")
	}
	return t, nil
}

// ParseMethodDescriptor parses a method descriptor such as
// "(ILjava/lang/String;)V".
func ParseMethodDescriptor(names *NameTable, descr string) (MethodSignature, error) {
	if len(descr) == 0 || descr[0] != '(' {
		return MethodSignature{}, malformed(descr, 0, "expected '('")
	}
	var sig MethodSignature
	sig.Args = []Type{}
	pos := 1
	for {
		if pos >= len(descr) {
			return MethodSignature{}, malformed(descr, pos, "unterminated argument list")
		}
		if descr[pos] == ')' {
			pos++
			break
		}
		t, next, err := parseType(names, descr, pos, false)
		if err != nil {
			return MethodSignature{}, err
		}
		sig.Args = append(sig.Args, t)
		pos = next
	}
	ret, next, err := parseType(names, descr, pos, true)
	if err != nil {
		return MethodSignature{}, err
	}
	if next != len(descr) {
		return MethodSignature{}, malformed(descr, next, "trailing characters")
	}
	sig.Return = ret
	return sig, nil
}

func parseType(names *NameTable, descr string, pos int, allowVoid bool) (Type, int, error) {
	depth := 0
	for pos < len(descr) && descr[pos] == '[' {
		depth++
		pos++
	}
	if depth > maxArrayDepth {
		return nil, 0, malformed(descr, pos, "too many array dimensions")
	}
	if pos >= len(descr) {
		return nil, 0, malformed(descr, pos, "unexpected end")
	}

	var t Type
	switch c := descr[pos]; c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		t = PrimitiveType{Descr: names.Intern(descr[pos : pos+1])}
		pos++
	case 'V':
		if !allowVoid || depth > 0 {
			return nil, 0, malformed(descr, pos, "void is only valid as a return type")
		}
		t = PrimitiveType{Descr: names.Intern("V")}
		pos++
	case 'L':
		end := pos + 1
		for end < len(descr) && descr[end] != ';' {
			end++
		}
		if end >= len(descr) {
			return nil, 0, malformed(descr, pos, "unterminated class name")
		}
		if end == pos+1 {
			return nil, 0, malformed(descr, pos, "empty class name")
		}
		t = ClassType{ClassName: names.Intern(descr[pos+1 : end])}
		pos = end + 1
	default:
		return nil, 0, malformed(descr, pos, fmt.Sprintf("unexpected %q", c))
	}

	for i := 0; i < depth; i++ {
		t = ArrayType{Elem: t}
	}
	return t, pos, nil
}
