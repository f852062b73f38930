// Package types implements the type expression tree of the program database.
//
// A Type is an immutable tree of nodes: Leaf, Pointer, Reference, Array,
// Function, TemplateInstantiation, Ellipsis and the transient Blank used
// while parsing. Leaves and template instantiations refer to entities by
// EntityID handle; anything that needs entity names receives a Namer.
package types

import "strings"

// EntityID is a stable handle of an entity in the program database.
// The zero value refers to no entity.
type EntityID uint32

// NoEntity is the zero handle.
const NoEntity EntityID = 0

// CV is a set of cv-qualifiers.
type CV uint8

const (
	// CVNone carries no qualifier.
	CVNone CV = 0
	// Const is the const qualifier.
	Const CV = 1 << 0
	// Volatile is the volatile qualifier.
	Volatile CV = 1 << 1
)

// Has reports whether every qualifier in q is present in c.
func (c CV) Has(q CV) bool {
	return c&q == q
}

// String renders the qualifiers as source keywords.
func (c CV) String() string {
	var words []string
	if c.Has(Const) {
		words = append(words, "const")
	}
	if c.Has(Volatile) {
		words = append(words, "volatile")
	}
	return strings.Join(words, " ")
}

// Type is a node of a type expression tree.
type Type interface {
	// CV returns the qualifiers of this node.
	CV() CV
	// WithCV returns a copy of the node carrying exactly the given qualifiers.
	WithCV(CV) Type
	node()
}

// Leaf names an entity: a primitive, an aggregate, an alias, an enum or
// a template parameter delegate.
type Leaf struct {
	Entity EntityID
	Qual   CV
}

// Pointer is one level of pointer indirection.
type Pointer struct {
	Elem Type
	Qual CV
}

// Reference is one level of reference indirection.
type Reference struct {
	Elem Type
	Qual CV
}

// Array is an array of Elem. Dim is 0 when the dimension is unknown.
type Array struct {
	Elem Type
	Dim  int
}

// Function is a function returning Return. Params lists the parameter
// types in declaration order.
type Function struct {
	Return Type
	Params []Type
}

// TemplateInstantiation applies a template entity to arguments.
type TemplateInstantiation struct {
	Template EntityID
	Args     []TemplateArgument
	Qual     CV
}

// Ellipsis is the variadic marker "...".
type Ellipsis struct{}

// Blank is the placeholder left by a parenthesized declarator until the
// enclosing type is known. A tree containing a Blank is not flat.
type Blank struct{}

func (t *Leaf) CV() CV                  { return t.Qual }
func (t *Pointer) CV() CV               { return t.Qual }
func (t *Reference) CV() CV             { return t.Qual }
func (t *Array) CV() CV                 { return CVNone }
func (t *Function) CV() CV              { return CVNone }
func (t *TemplateInstantiation) CV() CV { return t.Qual }
func (t *Ellipsis) CV() CV              { return CVNone }
func (t *Blank) CV() CV                 { return CVNone }

func (t *Leaf) WithCV(cv CV) Type      { return &Leaf{Entity: t.Entity, Qual: cv} }
func (t *Pointer) WithCV(cv CV) Type   { return &Pointer{Elem: t.Elem, Qual: cv} }
func (t *Reference) WithCV(cv CV) Type { return &Reference{Elem: t.Elem, Qual: cv} }
func (t *Array) WithCV(CV) Type        { return t }
func (t *Function) WithCV(CV) Type     { return t }
func (t *TemplateInstantiation) WithCV(cv CV) Type {
	return &TemplateInstantiation{Template: t.Template, Args: t.Args, Qual: cv}
}
func (t *Ellipsis) WithCV(CV) Type { return t }
func (t *Blank) WithCV(CV) Type    { return t }

func (*Leaf) node()                  {}
func (*Pointer) node()               {}
func (*Reference) node()             {}
func (*Array) node()                 {}
func (*Function) node()              {}
func (*TemplateInstantiation) node() {}
func (*Ellipsis) node()              {}
func (*Blank) node()                 {}

// TemplateArgument is a bound argument of a template instantiation.
type TemplateArgument interface {
	argument()
}

// TypenameArgument binds a type.
type TypenameArgument struct {
	Type Type
}

// DataArgument binds a value, kept as source text.
type DataArgument struct {
	Text string
}

func (*TypenameArgument) argument() {}
func (*DataArgument) argument()     {}

// NewLeaf returns a leaf naming id.
func NewLeaf(id EntityID) Type {
	return &Leaf{Entity: id}
}

// PointerTo wraps t in one pointer level.
func PointerTo(t Type) Type {
	return &Pointer{Elem: t}
}

// ReferenceTo wraps t in one reference level.
func ReferenceTo(t Type) Type {
	return &Reference{Elem: t}
}

// ArrayOf returns an array of t. Pass 0 for an unknown dimension.
func ArrayOf(t Type, dim int) Type {
	return &Array{Elem: t, Dim: dim}
}

// FunctionReturning returns a function type.
func FunctionReturning(ret Type, params ...Type) Type {
	return &Function{Return: ret, Params: params}
}

// Instantiate returns a template instantiation node.
func Instantiate(template EntityID, args ...TemplateArgument) Type {
	return &TemplateInstantiation{Template: template, Args: args}
}

// Typename returns a typename template argument.
func Typename(t Type) TemplateArgument {
	return &TypenameArgument{Type: t}
}

// Data returns a data template argument.
func Data(text string) TemplateArgument {
	return &DataArgument{Text: strings.TrimSpace(text)}
}

// Qualify returns t with q added to its root qualifiers.
func Qualify(t Type, q CV) Type {
	if q == CVNone {
		return t
	}
	return t.WithCV(t.CV() | q)
}
