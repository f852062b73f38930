// Package toolbox provides semantic helpers over the program database:
// reference and pointer wrapping, alias unwrapping, visibility analysis and
// prototype reconstruction.
package toolbox

import (
	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/types"
)

// Toolbox answers questions that need both the type tree and the entities
// it references.
type Toolbox struct {
	db                 *graph.Database
	needsEncapsulation Policy
}

// New returns a toolbox over db. A nil policy means Transparent.
func New(db *graph.Database, policy Policy) *Toolbox {
	if policy == nil {
		policy = Transparent
	}
	return &Toolbox{db: db, needsEncapsulation: policy}
}

// Database returns the database the toolbox reads.
func (tb *Toolbox) Database() *graph.Database { return tb.db }

// Dereference strips every leading reference from t.
func Dereference(t types.Type) types.Type {
	for {
		ref, ok := t.(*types.Reference)
		if !ok {
			return t
		}
		t = ref.Elem
	}
}

// DereferencePointerOnce removes exactly one pointer or reference level.
// It panics when the root of t is neither.
func DereferencePointerOnce(t types.Type) types.Type {
	switch x := t.(type) {
	case *types.Pointer:
		return x.Elem
	case *types.Reference:
		return x.Elem
	}
	panic(errors.InappropriateKind("dereferencing %T, which is not a pointer or reference", t))
}

// MakeReference wraps t in a reference.
func MakeReference(t types.Type) types.Type { return types.ReferenceTo(t) }

// MakePointer wraps t in a pointer.
func MakePointer(t types.Type) types.Type { return types.PointerTo(t) }

// MakeReferenceTo returns a reference to the entity e.
func MakeReferenceTo(e graph.Entity) types.Type { return types.ReferenceTo(types.NewLeaf(e.ID())) }

// MakePointerTo returns a pointer to the entity e.
func MakePointerTo(e graph.Entity) types.Type { return types.PointerTo(types.NewLeaf(e.ID())) }

// MakeConst returns the const-qualified entity e.
func MakeConst(e graph.Entity) types.Type {
	return &types.Leaf{Entity: e.ID(), Qual: types.Const}
}

// OriginalType replaces the base of t by the aliased type for as long as
// the base names an alias the policy lets through. Wrappers around the
// base are kept, and the qualifiers of each replaced leaf are added to the
// aliased type. A name seen twice stops the unwrapping, so "typedef A A"
// yields t unchanged.
func (tb *Toolbox) OriginalType(t types.Type) types.Type {
	rootCV := t.CV()
	seen := map[types.EntityID]bool{}
	for {
		leaf, ok := types.Base(t).(*types.Leaf)
		if !ok || seen[leaf.Entity] {
			break
		}
		seen[leaf.Entity] = true
		alias, ok := tb.db.Entity(leaf.Entity).(*graph.Alias)
		if !ok || alias.AliasedType() == nil || tb.needsEncapsulation(alias) {
			break
		}
		t = replaceBase(t, alias.AliasedType())
	}
	return types.Qualify(t, rootCV)
}

// OriginalTypeShallow unwraps a chain of aliases at the root of t. It does
// not look below pointers or references, and it stops before an aliased
// type that is not visible.
func (tb *Toolbox) OriginalTypeShallow(t types.Type) types.Type {
	seen := map[types.EntityID]bool{}
	for {
		leaf, ok := t.(*types.Leaf)
		if !ok || seen[leaf.Entity] {
			return t
		}
		seen[leaf.Entity] = true
		alias, ok := tb.db.Entity(leaf.Entity).(*graph.Alias)
		if !ok || alias.AliasedType() == nil || !tb.IsVisibleType(alias.AliasedType()) {
			return t
		}
		t = types.Qualify(alias.AliasedType(), leaf.Qual)
	}
}

// OriginalTypeDeep unwraps aliases at every pointer and reference level of
// t, keeping the qualifiers of each level.
func (tb *Toolbox) OriginalTypeDeep(t types.Type) types.Type {
	return tb.deep(t, map[types.EntityID]bool{})
}

func (tb *Toolbox) deep(t types.Type, path map[types.EntityID]bool) types.Type {
	switch x := t.(type) {
	case *types.Pointer:
		return &types.Pointer{Elem: tb.deep(x.Elem, path), Qual: x.Qual}
	case *types.Reference:
		return &types.Reference{Elem: tb.deep(x.Elem, path), Qual: x.Qual}
	case *types.Leaf:
		if path[x.Entity] {
			return t
		}
		unwrapped := tb.OriginalTypeShallow(t)
		switch unwrapped.(type) {
		case *types.Pointer, *types.Reference:
			path[x.Entity] = true
			defer delete(path, x.Entity)
			return tb.deep(unwrapped, path)
		}
		return unwrapped
	}
	return t
}

// IsVisible reports whether e can be named from outside its containers:
// every containment link above it is a namespace link or public.
func IsVisible(e graph.Entity) bool {
	seen := map[types.EntityID]bool{}
	for e != nil && !seen[e.ID()] {
		seen[e.ID()] = true
		link := e.Base().Uplink()
		if link == nil {
			return true
		}
		container := e.Base().Container()
		if _, ok := container.(*graph.Namespace); !ok && link.Visibility != graph.Public {
			return false
		}
		e = container
	}
	return true
}

// IsVisibleType reports whether every entity named by a leaf of t is
// visible.
func (tb *Toolbox) IsVisibleType(t types.Type) bool {
	visible := true
	types.Walk(t, func(n types.Type) bool {
		if leaf, ok := n.(*types.Leaf); ok {
			if e := tb.db.Entity(leaf.Entity); e != nil && !IsVisible(e) {
				visible = false
			}
		}
		return visible
	})
	return visible
}

// replaceBase substitutes with for the base of t, reached through element
// and return types.
func replaceBase(t, with types.Type) types.Type {
	switch x := t.(type) {
	case *types.Pointer:
		return &types.Pointer{Elem: replaceBase(x.Elem, with), Qual: x.Qual}
	case *types.Reference:
		return &types.Reference{Elem: replaceBase(x.Elem, with), Qual: x.Qual}
	case *types.Array:
		return &types.Array{Elem: replaceBase(x.Elem, with), Dim: x.Dim}
	case *types.Function:
		return &types.Function{Return: replaceBase(x.Return, with), Params: x.Params}
	}
	return types.Qualify(with, t.CV())
}
