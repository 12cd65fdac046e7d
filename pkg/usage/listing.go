package usage

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ListingError reports a malformed line of a usage listing.
type ListingError struct {
	Line int
	Err  error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }

// ReadListing parses a line-oriented usage listing and creates each usage
// through ctx. Blank lines and lines starting with '#' are skipped.
//
//	field         <owner> <name> <descriptor>
//	field-assign  <owner> <name> <descriptor>
//	method        <owner> <name> <descriptor>
//	meta-method   <owner> <name> <descriptor>
//	class         <class>
//	class-bound   <class>
//	class-extends <class>
//	class-new     <class>
//	annotation    <class> [args=<a,b>] [targets=<FIELD,METHOD>]
//
// An annotation without args= or targets= has an absent set; "args=" with
// no value is an empty set.
func ReadListing(ctx *Context, r io.Reader) ([]Usage, error) {
	var usages []Usage
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		u, err := parseListingLine(ctx, strings.Fields(text))
		if err != nil {
			return nil, &ListingError{Line: line, Err: err}
		}
		usages = append(usages, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	return usages, nil
}

type memberFactory func(ctx *Context, name, owner int32, descr string) (Usage, error)

var memberFactories = map[string]memberFactory{
	"field":        CreateFieldUsage,
	"field-assign": CreateFieldAssignUsage,
	"method":       CreateMethodUsage,
	"meta-method":  CreateMetaMethodUsage,
}

var classFactories = map[string]func(ctx *Context, className int32) Usage{
	"class":         CreateClassUsage,
	"class-bound":   CreateClassAsGenericBoundUsage,
	"class-extends": CreateClassExtendsUsage,
	"class-new":     CreateClassNewUsage,
}

func parseListingLine(ctx *Context, fields []string) (Usage, error) {
	kind, args := fields[0], fields[1:]

	if create, ok := memberFactories[kind]; ok {
		if len(args) != 3 {
			return nil, fmt.Errorf("%s: want <owner> <name> <descriptor>, got %d fields", kind, len(args))
		}
		return create(ctx, ctx.Intern(args[1]), ctx.Intern(args[0]), args[2])
	}

	if create, ok := classFactories[kind]; ok {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: want <class>, got %d fields", kind, len(args))
		}
		return create(ctx, ctx.Intern(args[0])), nil
	}

	if kind == "annotation" {
		return parseAnnotation(ctx, args)
	}
	return nil, fmt.Errorf("unknown usage kind %q", kind)
}

func parseAnnotation(ctx *Context, args []string) (Usage, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("annotation: missing type")
	}
	typ := ClassType{ClassName: ctx.Intern(args[0])}

	var (
		used    IDSet
		targets ElemTypeSet
	)
	for _, opt := range args[1:] {
		key, value, ok := strings.Cut(opt, "=")
		if !ok {
			return nil, fmt.Errorf("annotation: expected key=value, got %q", opt)
		}
		names := splitList(value)
		switch key {
		case "args":
			ids := make([]int32, len(names))
			for i, n := range names {
				ids[i] = ctx.Intern(n)
			}
			used = NewIDSet(ids...)
		case "targets":
			elems := make([]ElemType, len(names))
			for i, n := range names {
				t, err := ParseElemType(n)
				if err != nil {
					return nil, fmt.Errorf("annotation: %w", err)
				}
				elems[i] = t
			}
			targets = ElemTypes(elems...)
		default:
			return nil, fmt.Errorf("annotation: unknown option %q", key)
		}
	}
	return CreateAnnotationUsage(ctx, typ, used, targets), nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
