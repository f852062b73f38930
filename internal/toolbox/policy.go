package toolbox

import (
	"strings"

	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/types"
)

// Policy reports whether an alias must stay encapsulated, i.e. must not be
// replaced by its aliased type when computing original types.
type Policy func(alias *graph.Alias) bool

// Policy names accepted by PolicyByName.
const (
	PolicyTransparent           = "transparent"
	PolicyEncapsulatePrimitives = "encapsulate-primitives"
)

// Transparent unwraps every alias.
func Transparent(*graph.Alias) bool { return false }

// EncapsulatePrimitives keeps aliases of primitives wider than a pointer
// and aliases of pointers to primitives.
func EncapsulatePrimitives(alias *graph.Alias) bool {
	aliased := alias.AliasedType()
	if aliased == nil || !types.IsFlat(aliased) {
		return false
	}
	id, ok := types.BaseEntity(aliased)
	if !ok {
		return false
	}
	prim, ok := alias.Database().Entity(id).(*graph.Primitive)
	if !ok {
		return false
	}
	return !IsSmallPrimitive(prim) || types.PointerDegree(aliased) != 0
}

var widePrimitives = map[string]bool{
	"double":             true,
	"long double":        true,
	"long long":          true,
	"unsigned long long": true,
}

// IsSmallPrimitive reports whether e is a primitive no wider than a
// pointer.
func IsSmallPrimitive(e graph.Entity) bool {
	prim, ok := e.(*graph.Primitive)
	return ok && !widePrimitives[prim.Name()]
}

// PolicyByName returns the policy with the given configuration name.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyTransparent:
		return Transparent, nil
	case PolicyEncapsulatePrimitives:
		return EncapsulatePrimitives, nil
	}
	return nil, errors.WithHintf(errors.Newf("unknown alias policy %q", name),
		"use %q or %q", PolicyTransparent, PolicyEncapsulatePrimitives)
}
