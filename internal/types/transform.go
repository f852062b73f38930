package types

// Walk calls fn for every node of t in pre-order, descending into function
// parameters and typename template arguments. Returning false from fn
// skips the children of that node.
func Walk(t Type, fn func(Type) bool) {
	if t == nil || !fn(t) {
		return
	}
	switch x := t.(type) {
	case *Pointer:
		Walk(x.Elem, fn)
	case *Reference:
		Walk(x.Elem, fn)
	case *Array:
		Walk(x.Elem, fn)
	case *Function:
		Walk(x.Return, fn)
		for _, p := range x.Params {
			Walk(p, fn)
		}
	case *TemplateInstantiation:
		for _, arg := range x.Args {
			if ta, ok := arg.(*TypenameArgument); ok {
				Walk(ta.Type, fn)
			}
		}
	}
}

// Transformation maps a node to a replacement. Returning false keeps the
// node and continues into its children.
type Transformation func(Type) (Type, bool)

// Transform rebuilds t bottom-up, replacing every node for which fn
// reports true. Replaced nodes are not descended into. Typename template
// arguments are transformed too.
func Transform(t Type, fn Transformation) Type {
	if t == nil {
		return nil
	}
	if replacement, ok := fn(t); ok {
		return replacement
	}
	switch x := t.(type) {
	case *Pointer:
		return &Pointer{Elem: Transform(x.Elem, fn), Qual: x.Qual}
	case *Reference:
		return &Reference{Elem: Transform(x.Elem, fn), Qual: x.Qual}
	case *Array:
		return &Array{Elem: Transform(x.Elem, fn), Dim: x.Dim}
	case *Function:
		params := make([]Type, len(x.Params))
		for i, p := range x.Params {
			params[i] = Transform(p, fn)
		}
		return &Function{Return: Transform(x.Return, fn), Params: params}
	case *TemplateInstantiation:
		return &TemplateInstantiation{
			Template: x.Template,
			Args:     TransformArguments(x.Args, fn),
			Qual:     x.Qual,
		}
	}
	return t
}

// TransformArguments applies Transform to each typename argument.
func TransformArguments(args []TemplateArgument, fn Transformation) []TemplateArgument {
	out := make([]TemplateArgument, len(args))
	for i, arg := range args {
		if ta, ok := arg.(*TypenameArgument); ok {
			out[i] = &TypenameArgument{Type: Transform(ta.Type, fn)}
			continue
		}
		out[i] = arg
	}
	return out
}

// Fill replaces every Blank in t with fill.
func Fill(t, fill Type) Type {
	return Transform(t, func(n Type) (Type, bool) {
		if _, ok := n.(*Blank); ok {
			return fill, true
		}
		return nil, false
	})
}

// IsFlat reports whether t contains no Blank node.
func IsFlat(t Type) bool {
	flat := true
	Walk(t, func(n Type) bool {
		if _, ok := n.(*Blank); ok {
			flat = false
		}
		return flat
	})
	return flat
}

// Entities returns the entities referenced by t in pre-order, templates
// of instantiations included.
func Entities(t Type) []EntityID {
	var ids []EntityID
	Walk(t, func(n Type) bool {
		switch x := n.(type) {
		case *Leaf:
			ids = append(ids, x.Entity)
		case *TemplateInstantiation:
			ids = append(ids, x.Template)
		}
		return true
	})
	return ids
}

// Instantiations returns every template instantiation node in t,
// innermost arguments first.
func Instantiations(t Type) []*TemplateInstantiation {
	var out []*TemplateInstantiation
	var visit func(Type)
	visit = func(n Type) {
		switch x := n.(type) {
		case *Pointer:
			visit(x.Elem)
		case *Reference:
			visit(x.Elem)
		case *Array:
			visit(x.Elem)
		case *Function:
			visit(x.Return)
			for _, p := range x.Params {
				visit(p)
			}
		case *TemplateInstantiation:
			for _, arg := range x.Args {
				if ta, ok := arg.(*TypenameArgument); ok {
					visit(ta.Type)
				}
			}
			out = append(out, x)
		}
	}
	visit(t)
	return out
}
