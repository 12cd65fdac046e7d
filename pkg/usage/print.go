package usage

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// Fprint writes a human-readable description of u, resolving ids through
// names. Annotation arguments and targets are printed sorted.
func Fprint(w io.Writer, names *NameTable, u Usage) error {
	var b strings.Builder

	member := func(name, owner int32) {
		fmt.Fprintf(&b, "%s:\n", u.Kind())
		fmt.Fprintf(&b, "  Name : %s\n", names.Value(name))
		fmt.Fprintf(&b, "  Owner: %s\n", names.Value(owner))
	}

	switch u := u.(type) {
	case *FieldUsage:
		member(u.Name, u.Class)
		fmt.Fprintf(&b, "  Type : %s\n", u.Type.Descriptor(names))
	case *FieldAssignUsage:
		member(u.Name, u.Class)
		fmt.Fprintf(&b, "  Type : %s\n", u.Type.Descriptor(names))
	case *MethodUsage:
		member(u.Name, u.Class)
		b.WriteString("  Arguments:\n")
		for _, t := range u.Args {
			fmt.Fprintf(&b, "    %s\n", t.Descriptor(names))
		}
		fmt.Fprintf(&b, "  Return type: %s\n", u.Return.Descriptor(names))
	case *MetaMethodUsage:
		member(u.Name, u.Class)
		fmt.Fprintf(&b, "  Arity: %d\n", u.Arity)
	case *ClassUsage, *ClassAsGenericBoundUsage, *ClassExtendsUsage, *ClassNewUsage:
		fmt.Fprintf(&b, "%s: %s\n", u.Kind(), names.Value(u.Owner()))
	case *AnnotationUsage:
		fmt.Fprintf(&b, "%s:\n", u.Kind())
		fmt.Fprintf(&b, "  Type     : %s\n", u.Type.Descriptor(names))

		args := make([]string, 0, len(u.UsedArguments))
		for _, id := range u.UsedArguments {
			args = append(args, names.Value(id))
		}
		slices.Sort(args)
		b.WriteString("  Arguments:\n")
		for _, a := range args {
			fmt.Fprintf(&b, "    %s\n", a)
		}

		targets := make([]string, 0, u.UsedTargets.Len())
		for _, t := range u.UsedTargets.All() {
			targets = append(targets, t.String())
		}
		slices.Sort(targets)
		b.WriteString("  Targets  :\n")
		for _, t := range targets {
			fmt.Fprintf(&b, "    %s\n", t)
		}
	default:
		return fmt.Errorf("print: unsupported usage %T", u)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
