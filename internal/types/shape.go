package types

import (
	"github.com/skn123/robin-sub001/internal/errors"
)

// Shape decomposes a type of the common form
// array*(reference?(pointer*(base))), where base is a Leaf, a
// TemplateInstantiation or an Ellipsis.
type Shape struct {
	Dims      []int
	Reference bool
	Pointers  int
	Base      Type
}

// Decompose returns the Shape of t. It reports false when t has another
// form, such as a pointer to function.
func Decompose(t Type) (Shape, bool) {
	var s Shape
	for {
		a, ok := t.(*Array)
		if !ok {
			break
		}
		s.Dims = append(s.Dims, a.Dim)
		t = a.Elem
	}
	if r, ok := t.(*Reference); ok {
		s.Reference = true
		t = r.Elem
	}
	for {
		p, ok := t.(*Pointer)
		if !ok {
			break
		}
		s.Pointers++
		t = p.Elem
	}
	switch t.(type) {
	case *Leaf, *TemplateInstantiation, *Ellipsis:
		s.Base = t
		return s, true
	}
	return Shape{}, false
}

// PointerDegree counts the pointer levels of t below its arrays and an
// optional reference. It panics on a type that is not flat.
func PointerDegree(t Type) int {
	mustBeFlat(t)
	s, ok := Decompose(t)
	if !ok {
		return 0
	}
	return s.Pointers
}

// IsReference reports whether t is a reference, possibly below arrays.
func IsReference(t Type) bool {
	mustBeFlat(t)
	s, ok := Decompose(t)
	return ok && s.Reference
}

// IsArray reports whether the root of t is an array.
func IsArray(t Type) bool {
	_, ok := t.(*Array)
	return ok
}

// ArrayDimensions lists the dimensions of the arrays at the root of t,
// outermost first. Unknown dimensions are 0.
func ArrayDimensions(t Type) []int {
	var dims []int
	for {
		a, ok := t.(*Array)
		if !ok {
			return dims
		}
		dims = append(dims, a.Dim)
		t = a.Elem
	}
}

// Base returns the innermost node of t reached through element and
// return types.
func Base(t Type) Type {
	for {
		switch x := t.(type) {
		case *Pointer:
			t = x.Elem
		case *Reference:
			t = x.Elem
		case *Array:
			t = x.Elem
		case *Function:
			t = x.Return
		default:
			return t
		}
	}
}

// BaseEntity returns the entity named by the base of t.
func BaseEntity(t Type) (EntityID, bool) {
	switch x := Base(t).(type) {
	case *Leaf:
		return x.Entity, true
	case *TemplateInstantiation:
		return x.Template, true
	}
	return NoEntity, false
}

// IsConst reports whether the base of t is const-qualified.
func IsConst(t Type) bool {
	return Base(t).CV().Has(Const)
}

// IsVolatile reports whether the base of t is volatile-qualified.
func IsVolatile(t Type) bool {
	return Base(t).CV().Has(Volatile)
}

// TemplateArgs returns the arguments of the base instantiation of t.
func TemplateArgs(t Type) []TemplateArgument {
	if ti, ok := Base(t).(*TemplateInstantiation); ok {
		return ti.Args
	}
	return nil
}

func mustBeFlat(t Type) {
	if !IsFlat(t) {
		panic(errors.InappropriateKind("classifying a type that still holds a placeholder"))
	}
}
