package usage

// CreateFieldUsage returns the canonical read of field name in owner with
// the given field descriptor.
func CreateFieldUsage(ctx *Context, name, owner int32, descr string) (Usage, error) {
	t, err := ctx.FieldType(descr)
	if err != nil {
		return nil, err
	}
	return ctx.Usage(&FieldUsage{Name: name, Class: owner, Type: t}), nil
}

// CreateFieldAssignUsage returns the canonical write of field name in owner.
func CreateFieldAssignUsage(ctx *Context, name, owner int32, descr string) (Usage, error) {
	t, err := ctx.FieldType(descr)
	if err != nil {
		return nil, err
	}
	return ctx.Usage(&FieldAssignUsage{FieldUsage{Name: name, Class: owner, Type: t}}), nil
}

// CreateMethodUsage returns the canonical call of method name in owner with
// the given method descriptor.
func CreateMethodUsage(ctx *Context, name, owner int32, descr string) (Usage, error) {
	sig, err := ctx.MethodSignature(descr)
	if err != nil {
		return nil, err
	}
	return ctx.Usage(&MethodUsage{Name: name, Class: owner, Args: sig.Args, Return: sig.Return}), nil
}

// CreateMetaMethodUsage returns the canonical dynamic call of name in owner.
// Only the argument count of descr is kept.
func CreateMetaMethodUsage(ctx *Context, name, owner int32, descr string) (Usage, error) {
	sig, err := ctx.MethodSignature(descr)
	if err != nil {
		return nil, err
	}
	return ctx.Usage(&MetaMethodUsage{Name: name, Class: owner, Arity: int32(len(sig.Args))}), nil
}

// CreateClassUsage returns the canonical reference to className.
func CreateClassUsage(ctx *Context, className int32) Usage {
	return ctx.Usage(&ClassUsage{ClassName: className})
}

// CreateClassAsGenericBoundUsage returns the canonical use of className as
// a generic bound.
func CreateClassAsGenericBoundUsage(ctx *Context, className int32) Usage {
	return ctx.Usage(&ClassAsGenericBoundUsage{ClassUsage{ClassName: className}})
}

// CreateClassExtendsUsage returns the canonical supertype reference to
// className.
func CreateClassExtendsUsage(ctx *Context, className int32) Usage {
	return ctx.Usage(&ClassExtendsUsage{ClassName: className})
}

// CreateClassNewUsage returns the canonical instantiation of className.
func CreateClassNewUsage(ctx *Context, className int32) Usage {
	return ctx.Usage(&ClassNewUsage{ClassExtendsUsage{ClassName: className}})
}

// CreateAnnotationUsage returns the canonical application of annotation
// typ. args is copied; pass nil for an absent argument set.
func CreateAnnotationUsage(ctx *Context, typ ClassType, args IDSet, targets ElemTypeSet) Usage {
	if args != nil {
		args = NewIDSet(args...)
	}
	return ctx.Usage(&AnnotationUsage{Type: typ, UsedArguments: args, UsedTargets: targets})
}
