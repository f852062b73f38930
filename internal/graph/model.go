// Package graph provides the entity and containment model of the program
// database.
//
// It defines the entity variants (aggregates, namespaces, routines, fields,
// parameters, aliases, enums, groups, primitives and macros), the scopes
// that hold them, and the connections between them: containment with
// visibility/virtuality/storage attributes, inheritance, and template
// specialization. Entities live in an arena owned by a Database and refer to
// each other through EntityID handles.
package graph

import (
	"strings"

	"github.com/skn123/robin-sub001/internal/types"
)

// EntityID is the stable handle of an entity within its Database.
type EntityID = types.EntityID

// EntityKind is the variant of an entity.
type EntityKind string

const (
	KindNamespace EntityKind = "namespace"
	KindAggregate EntityKind = "aggregate"
	KindRoutine   EntityKind = "routine"
	KindField     EntityKind = "field"
	KindParameter EntityKind = "parameter"
	KindAlias     EntityKind = "alias"
	KindEnum      EntityKind = "enum"
	KindGroup     EntityKind = "group"
	KindPrimitive EntityKind = "primitive"
	KindMacro     EntityKind = "macro"
)

// AggregateKind distinguishes class, struct and union aggregates.
type AggregateKind string

const (
	AggregateClass  AggregateKind = "class"
	AggregateStruct AggregateKind = "struct"
	AggregateUnion  AggregateKind = "union"
)

// Visibility is the access level of a contained member. DontCare is used
// where the container kind has no notion of access.
type Visibility int

const (
	DontCare  Visibility = 0
	Private   Visibility = 1
	Protected Visibility = 2
	Package   Visibility = 3
	Public    Visibility = 4
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Protected:
		return "protected"
	case Package:
		return "package"
	case Public:
		return "public"
	}
	return ""
}

// ParseVisibility maps an access keyword to a Visibility.
func ParseVisibility(s string) Visibility {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "private":
		return Private
	case "protected":
		return Protected
	case "package":
		return Package
	case "public":
		return Public
	}
	return DontCare
}

// Virtuality of a member routine.
type Virtuality int

const (
	NonVirtual  Virtuality = 1
	Virtual     Virtuality = 2
	PureVirtual Virtuality = 3
)

// Storage class of a member.
type Storage int

const (
	// Static members are class-wide.
	Static Storage = 1
	// Extern members are instance-own.
	Extern Storage = 2
)

// Membership carries the attributes of a containment edge.
type Membership struct {
	Visibility Visibility
	Virtuality Virtuality
	Storage    Storage
}

// PublicMember is the membership of a public, non-virtual instance member.
var PublicMember = Membership{Visibility: Public, Virtuality: NonVirtual, Storage: Extern}

// Property is one documentation key/value pair attached to an entity.
type Property struct {
	Name  string
	Value string
}

// Concealed reports whether the property is hidden from documentation
// output. Concealed property names start with a dot.
func (p Property) Concealed() bool {
	return strings.HasPrefix(p.Name, ".")
}

// SourceLocation is a position in a source file.
type SourceLocation struct {
	// File is the path of the source file.
	File string

	// Line is the 1-based line number.
	Line int

	// Column is the 1-based column, 0 when unknown.
	Column int
}

// ContainedConnection records that Container holds Contained.
type ContainedConnection struct {
	// Container is the aggregate, namespace or group holding the member.
	Container EntityID

	// Contained is the member.
	Contained EntityID

	// Kind is the variant of the member.
	Kind EntityKind

	// Visibility is DontCare for namespace members.
	Visibility Visibility

	// Virtuality is meaningful for member routines only.
	Virtuality Virtuality

	// Storage is meaningful for aggregate members only.
	Storage Storage
}

// Membership returns the attributes of the edge.
func (c *ContainedConnection) Membership() Membership {
	return Membership{Visibility: c.Visibility, Virtuality: c.Virtuality, Storage: c.Storage}
}

// InheritanceConnection records that Derived inherits from Base.
type InheritanceConnection struct {
	// Base is the base aggregate or, for a templated base, the general
	// template.
	Base EntityID

	// BaseArgs are the template arguments applied to Base, if any.
	BaseArgs []types.TemplateArgument

	// Visibility of the inheritance.
	Visibility Visibility

	// Derived is the inheriting aggregate.
	Derived EntityID
}

// IsTemplated reports whether the base is a template applied to arguments.
func (c *InheritanceConnection) IsTemplated() bool {
	return len(c.BaseArgs) > 0
}

// BaseAsType returns the base as a type: a leaf for a plain base, a
// template instantiation for a templated one.
func (c *InheritanceConnection) BaseAsType() types.Type {
	if c.IsTemplated() {
		return types.Instantiate(c.Base, c.BaseArgs...)
	}
	return types.NewLeaf(c.Base)
}

// SpecializationConnection records that Specific is General applied to Args.
type SpecializationConnection struct {
	General  EntityID
	Args     []types.TemplateArgument
	Specific EntityID
}

// EnumConstant is one literal of an enum.
type EnumConstant struct {
	Literal string
	Value   int
}
