package ir

// Walk visits n and its children depth-first. scope is the context of the
// nearest enclosing named nature. Returning false from visit skips the
// children of the current node.
func Walk(n Nature, visit func(n Nature, scope *Context) bool) {
	walk(n, nil, visit)
}

func walk(n Nature, scope *Context, visit func(Nature, *Context) bool) {
	if n == nil {
		return
	}
	if named, ok := n.(Named); ok && named.Context() != nil {
		if _, isRef := n.(*Ref); !isRef {
			scope = named.Context()
		}
	}
	if !visit(n, scope) {
		return
	}
	switch v := n.(type) {
	case *Struct:
		for _, f := range v.Fields {
			walk(f, scope, visit)
		}
	case *TupleStruct:
		walk(v.Inner, scope, visit)
	case *Enum:
		for _, variant := range v.Variants {
			walk(variant, scope, visit)
		}
	case *EnumVariant:
		for _, f := range v.Fields {
			walk(f, scope, visit)
		}
	case *Function:
		walk(v.Func, scope, visit)
	case *Field:
		walk(v.Type, scope, visit)
	case *FuncArg:
		walk(v.Type, scope, visit)
	case *Generic:
		walk(v.Func, scope, visit)
	case *Constant:
		walk(v.Type, scope, visit)
	case *Array:
		walk(v.Element, scope, visit)
	case *Vec:
		walk(v.Element, scope, visit)
	case *Map:
		if v.Key != nil {
			walk(v.Key, scope, visit)
		}
		walk(v.Value, scope, visit)
	case *Tuple:
		for _, e := range v.Elements {
			walk(e, scope, visit)
		}
	case *Option:
		walk(v.Inner, scope, visit)
	case *Result:
		walk(v.Ok, scope, visit)
		walk(v.Err, scope, visit)
	case *FuncType:
		for _, a := range v.Args {
			walk(a, scope, visit)
		}
		walk(v.Out, scope, visit)
	}
}
