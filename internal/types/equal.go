package types

// Equal reports whether a and b are structurally equal.
func Equal(a, b Type) bool {
	return Compatible(a, b, nil)
}

// Expander returns the aliased type of an alias entity. It reports false
// for entities that are not aliases.
type Expander func(id EntityID) (Type, bool)

// Compatible reports structural equality of a and b. When expand is not
// nil, leaves naming aliases are replaced by their aliased types (keeping
// the leaf qualifiers) before comparing.
func Compatible(a, b Type, expand Expander) bool {
	if expand != nil {
		a = expandLeaf(a, expand)
		b = expandLeaf(b, expand)
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.CV() != b.CV() {
		return false
	}
	switch x := a.(type) {
	case *Leaf:
		y, ok := b.(*Leaf)
		return ok && x.Entity == y.Entity
	case *Pointer:
		y, ok := b.(*Pointer)
		return ok && Compatible(x.Elem, y.Elem, expand)
	case *Reference:
		y, ok := b.(*Reference)
		return ok && Compatible(x.Elem, y.Elem, expand)
	case *Array:
		y, ok := b.(*Array)
		return ok && x.Dim == y.Dim && Compatible(x.Elem, y.Elem, expand)
	case *Function:
		y, ok := b.(*Function)
		if !ok || len(x.Params) != len(y.Params) || !Compatible(x.Return, y.Return, expand) {
			return false
		}
		for i := range x.Params {
			if !Compatible(x.Params[i], y.Params[i], expand) {
				return false
			}
		}
		return true
	case *TemplateInstantiation:
		y, ok := b.(*TemplateInstantiation)
		return ok && x.Template == y.Template && argumentsCompatible(x.Args, y.Args, expand)
	case *Ellipsis:
		_, ok := b.(*Ellipsis)
		return ok
	case *Blank:
		_, ok := b.(*Blank)
		return ok
	}
	return false
}

// ArgumentsEqual reports whether two argument lists are structurally equal.
func ArgumentsEqual(a, b []TemplateArgument) bool {
	return argumentsCompatible(a, b, nil)
}

func argumentsCompatible(a, b []TemplateArgument, expand Expander) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		switch x := a[i].(type) {
		case *TypenameArgument:
			y, ok := b[i].(*TypenameArgument)
			if !ok || !Compatible(x.Type, y.Type, expand) {
				return false
			}
		case *DataArgument:
			y, ok := b[i].(*DataArgument)
			if !ok || x.Text != y.Text {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func expandLeaf(t Type, expand Expander) Type {
	seen := map[EntityID]bool{}
	for {
		leaf, ok := t.(*Leaf)
		if !ok || seen[leaf.Entity] {
			return t
		}
		seen[leaf.Entity] = true
		aliased, ok := expand(leaf.Entity)
		if !ok || aliased == nil {
			return t
		}
		t = Qualify(aliased, leaf.Qual)
	}
}
