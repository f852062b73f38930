package templates

import (
	"strings"

	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/types"
)

// binding maps the parameters of one template to their arguments.
type binding struct {
	// args holds one argument per template parameter.
	args []types.TemplateArgument

	// typenames maps parameter delegates to the bound types.
	typenames map[types.EntityID]types.Type

	// data maps data parameter names to the bound text.
	data map[string]string

	// copies maps template members to their copies in the instance.
	copies map[types.EntityID]types.EntityID

	// self is the template being instantiated. A leaf naming it inside its
	// own members stands for the instance and is spelled as an
	// instantiation node, so that it formats and parses back unchanged.
	self types.EntityID
}

func newBinding() *binding {
	return &binding{
		typenames: make(map[types.EntityID]types.Type),
		data:      make(map[string]string),
		copies:    make(map[types.EntityID]types.EntityID),
	}
}

// dataText replaces whole identifiers naming data parameters in text.
func (b *binding) dataText(text string) string {
	if len(b.data) == 0 {
		return text
	}
	var out strings.Builder
	for i := 0; i < len(text); {
		if !isIdentByte(text[i], true) {
			out.WriteByte(text[i])
			i++
			continue
		}
		j := i + 1
		for j < len(text) && isIdentByte(text[j], false) {
			j++
		}
		word := text[i:j]
		if bound, ok := b.data[word]; ok {
			word = bound
		}
		out.WriteString(word)
		i = j
	}
	return out.String()
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

// substitute rewrites t for the instance: parameter delegates become the
// bound types, members of the template become their copies, and trait
// references "Param::member" are looked up in the bound argument. The
// template of an instantiation node is kept as is.
func (e *Engine) substitute(t types.Type, b *binding) types.Type {
	switch x := t.(type) {
	case *types.Leaf:
		if b.self != types.NoEntity && x.Entity == b.self {
			return &types.TemplateInstantiation{Template: b.self, Args: b.args, Qual: x.Qual}
		}
		if bound, ok := b.typenames[x.Entity]; ok {
			return types.Qualify(bound, x.Qual)
		}
		if cp, ok := b.copies[x.Entity]; ok {
			return &types.Leaf{Entity: cp, Qual: x.Qual}
		}
		if ref, ok := e.trait(x.Entity, b); ok {
			return types.Qualify(ref, x.Qual)
		}
		return x
	case *types.Pointer:
		return &types.Pointer{Elem: e.substitute(x.Elem, b), Qual: x.Qual}
	case *types.Reference:
		return &types.Reference{Elem: e.substitute(x.Elem, b), Qual: x.Qual}
	case *types.Array:
		return &types.Array{Elem: e.substitute(x.Elem, b), Dim: x.Dim}
	case *types.Function:
		params := make([]types.Type, len(x.Params))
		for i, p := range x.Params {
			params[i] = e.substitute(p, b)
		}
		return &types.Function{Return: e.substitute(x.Return, b), Params: params}
	case *types.TemplateInstantiation:
		return &types.TemplateInstantiation{Template: x.Template, Args: e.substituteArgs(x.Args, b), Qual: x.Qual}
	}
	return t
}

func (e *Engine) substituteArgs(args []types.TemplateArgument, b *binding) []types.TemplateArgument {
	out := make([]types.TemplateArgument, len(args))
	for i, arg := range args {
		switch a := arg.(type) {
		case *types.DataArgument:
			out[i] = types.Data(b.dataText(a.Text))
		case *types.TypenameArgument:
			if text, ok := e.dataParameterLeaf(a.Type, b); ok {
				out[i] = types.Data(text)
				continue
			}
			out[i] = types.Typename(e.substitute(a.Type, b))
		default:
			out[i] = arg
		}
	}
	return out
}

// dataParameterLeaf recognizes a data parameter written where the parser
// expected a type, as N in "Array<T, N>", and returns its bound text.
func (e *Engine) dataParameterLeaf(t types.Type, b *binding) (string, bool) {
	leaf, ok := t.(*types.Leaf)
	if !ok || leaf.Qual != types.CVNone {
		return "", false
	}
	agg, ok := e.db.Entity(leaf.Entity).(*graph.Aggregate)
	if !ok || !agg.Incomplete() || agg.IsDelegate() {
		return "", false
	}
	text, ok := b.data[agg.Name()]
	return text, ok
}

// trait resolves an entity created under a parameter delegate, such as
// T::value_type, against the argument bound to that parameter. A member
// the argument lacks is replaced by an orphan placeholder named after the
// argument.
func (e *Engine) trait(id types.EntityID, b *binding) (types.Type, bool) {
	var path []string
	for ent := e.db.Entity(id); ent != nil; ent = ent.Base().Container() {
		bound, ok := b.typenames[ent.ID()]
		if !ok {
			path = append([]string{ent.Name()}, path...)
			continue
		}
		if len(path) == 0 {
			return nil, false
		}
		member := strings.Join(path, graph.ScopeSeparator)
		if found, ok := e.memberOf(bound, member); ok {
			return types.NewLeaf(found.ID()), true
		}
		return types.NewLeaf(e.orphan(describe(e.db, bound) + graph.ScopeSeparator + member).ID()), true
	}
	return nil, false
}

func (e *Engine) memberOf(bound types.Type, member string) (graph.Entity, bool) {
	if leaf, ok := bound.(*types.Leaf); ok {
		if agg, ok := e.db.Entity(leaf.Entity).(*graph.Aggregate); ok && agg.IsDelegate() {
			found, err := e.db.ResolveOrCreate(agg.DelegateOwner(), agg.Name()+graph.ScopeSeparator+member)
			return found, err == nil
		}
	}
	agg, err := e.aggregateOf(bound)
	if err != nil {
		return nil, false
	}
	return e.db.LookupIn(agg, member)
}
