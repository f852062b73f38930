package graph

import (
	"strings"
	"unicode"

	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/types"
)

// DefaultName is given to entities declared without a name.
const DefaultName = "anonymous"

// Entity is any declared program element. The set of variants is closed:
// *Namespace, *Aggregate, *Routine, *Field, *Parameter, *Alias, *Enum,
// *Group, *Primitive and *Macro.
type Entity interface {
	ID() EntityID
	Name() string
	Kind() EntityKind
	Base() *Header
	entity()
}

// Header holds the attributes shared by every entity.
type Header struct {
	db                 *Database
	id                 EntityID
	name               string
	uplink             *ContainedConnection
	group              EntityID
	properties         []Property
	declaration        *SourceLocation
	definition         *SourceLocation
	external           bool
	templateParameters []TemplateParameter
}

func (h *Header) entity() {}

// Base returns the shared attributes.
func (h *Header) Base() *Header { return h }

// ID returns the handle of the entity.
func (h *Header) ID() EntityID { return h.id }

// Name returns the short name.
func (h *Header) Name() string { return h.name }

// Database returns the database owning the entity.
func (h *Header) Database() *Database { return h.db }

// Uplink returns the connection to the container, or nil for a top-level
// entity.
func (h *Header) Uplink() *ContainedConnection { return h.uplink }

// Container returns the containing entity, or nil.
func (h *Header) Container() Entity {
	if h.uplink == nil {
		return nil
	}
	return h.db.Entity(h.uplink.Container)
}

// Group returns the presentation group the entity belongs to, or nil.
func (h *Header) Group() *Group {
	if h.group == types.NoEntity {
		return nil
	}
	g, _ := h.db.Entity(h.group).(*Group)
	return g
}

// FullName returns the name qualified with every enclosing container.
func (h *Header) FullName() string {
	return h.db.FullName(h.id)
}

// Properties returns the documentation properties in insertion order.
func (h *Header) Properties() []Property { return h.properties }

// AddProperty appends a documentation property.
func (h *Header) AddProperty(name, value string) {
	h.properties = append(h.properties, Property{Name: name, Value: value})
}

// Property returns the value of the first property with the given name.
func (h *Header) Property(name string) (string, bool) {
	for _, p := range h.properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Declaration returns where the entity is declared.
func (h *Header) Declaration() (SourceLocation, error) {
	if h.declaration == nil {
		return SourceLocation{}, errors.MissingInformation(h.name, "declaration")
	}
	return *h.declaration, nil
}

// SetDeclaration records where the entity is declared.
func (h *Header) SetDeclaration(loc SourceLocation) { h.declaration = &loc }

// Definition returns where the entity is defined.
func (h *Header) Definition() (SourceLocation, error) {
	if h.definition == nil {
		return SourceLocation{}, errors.MissingInformation(h.name, "definition")
	}
	return *h.definition, nil
}

// SetDefinition records where the entity is defined.
func (h *Header) SetDefinition(loc SourceLocation) { h.definition = &loc }

// External reports whether the entity was declared outside the analyzed
// sources.
func (h *Header) External() bool { return h.external }

// SetExternal marks the entity as declared outside the analyzed sources.
func (h *Header) SetExternal(external bool) { h.external = external }

// TemplateParameters returns the template parameters in declaration order.
func (h *Header) TemplateParameters() []TemplateParameter { return h.templateParameters }

// IsTemplated reports whether the entity declares template parameters.
func (h *Header) IsTemplated() bool { return len(h.templateParameters) > 0 }

// Namespace is a named scope.
type Namespace struct {
	Header
	scope *Scope
}

// Kind returns KindNamespace.
func (*Namespace) Kind() EntityKind { return KindNamespace }

// Scope returns the members of the namespace.
func (n *Namespace) Scope() *Scope { return n.scope }

// Aggregate is a class, struct or union.
type Aggregate struct {
	Header
	aggregateKind   AggregateKind
	scope           *Scope
	bases           []*InheritanceConnection
	derived         []*InheritanceConnection
	specialization  *SpecializationConnection
	specializations []*SpecializationConnection
	incomplete      bool
	delegateOf      EntityID
}

// Kind returns KindAggregate.
func (*Aggregate) Kind() EntityKind { return KindAggregate }

// AggregateKind returns class, struct or union.
func (a *Aggregate) AggregateKind() AggregateKind { return a.aggregateKind }

// SetAggregateKind changes between class, struct and union.
func (a *Aggregate) SetAggregateKind(k AggregateKind) { a.aggregateKind = k }

// Scope returns the members of the aggregate.
func (a *Aggregate) Scope() *Scope { return a.scope }

// Bases returns the inheritance edges towards base classes in declaration
// order.
func (a *Aggregate) Bases() []*InheritanceConnection { return a.bases }

// Derived returns the inheritance edges towards derived classes.
func (a *Aggregate) Derived() []*InheritanceConnection { return a.derived }

// Specialization returns the link to the general template when the
// aggregate is a specialization.
func (a *Aggregate) Specialization() *SpecializationConnection { return a.specialization }

// IsSpecialization reports whether the aggregate specializes a template.
func (a *Aggregate) IsSpecialization() bool { return a.specialization != nil }

// Specializations returns the known specializations of a template.
func (a *Aggregate) Specializations() []*SpecializationConnection { return a.specializations }

// GeneralTemplate returns the template the aggregate specializes, or nil.
func (a *Aggregate) GeneralTemplate() *Aggregate {
	if a.specialization == nil {
		return nil
	}
	general, _ := a.db.Entity(a.specialization.General).(*Aggregate)
	return general
}

// Incomplete reports whether the aggregate is a forward reference whose
// definition has not been absorbed yet.
func (a *Aggregate) Incomplete() bool { return a.incomplete }

// SetIncomplete marks or clears the forward-reference state.
func (a *Aggregate) SetIncomplete(incomplete bool) { a.incomplete = incomplete }

// IsDelegate reports whether the aggregate stands in for a typename
// template parameter.
func (a *Aggregate) IsDelegate() bool { return a.delegateOf != types.NoEntity }

// DelegateOwner returns the templated entity declaring the parameter the
// aggregate stands in for.
func (a *Aggregate) DelegateOwner() Entity {
	if a.delegateOf == types.NoEntity {
		return nil
	}
	return a.db.Entity(a.delegateOf)
}

// Routine is a function or a member function.
type Routine struct {
	Header
	returnType types.Type
	params     []*Parameter
	throws     []types.Type
	isConst    bool
	inline     bool
	explicit   bool
	hasThrow   bool
}

// Kind returns KindRoutine.
func (*Routine) Kind() EntityKind { return KindRoutine }

// ReturnType returns the declared return type. Constructors, destructors
// and routines whose return type was never recorded report
// ErrMissingInformation.
func (r *Routine) ReturnType() (types.Type, error) {
	if r.returnType == nil {
		return nil, errors.MissingInformation(r.name, "return type")
	}
	return r.returnType, nil
}

// SetReturnType records the return type.
func (r *Routine) SetReturnType(t types.Type) { r.returnType = t }

// Parameters returns the parameters in declaration order.
func (r *Routine) Parameters() []*Parameter { return r.params }

// AddParameter appends a parameter.
func (r *Routine) AddParameter(p *Parameter) { r.params = append(r.params, p) }

// Throws returns the exception types of the throw clause.
func (r *Routine) Throws() []types.Type { return r.throws }

// AddThrow appends an exception type and marks the throw clause present.
func (r *Routine) AddThrow(t types.Type) {
	r.hasThrow = true
	r.throws = append(r.throws, t)
}

// HasThrowClause reports whether the routine declares a throw clause,
// possibly empty.
func (r *Routine) HasThrowClause() bool { return r.hasThrow }

// SetThrowClause marks the throw clause present or absent.
func (r *Routine) SetThrowClause(present bool) { r.hasThrow = present }

// IsConst reports a const member function.
func (r *Routine) IsConst() bool { return r.isConst }

// SetConst marks a const member function.
func (r *Routine) SetConst(c bool) { r.isConst = c }

// IsInline reports an inline routine.
func (r *Routine) IsInline() bool { return r.inline }

// SetInline marks an inline routine.
func (r *Routine) SetInline(i bool) { r.inline = i }

// IsExplicit reports an explicit constructor or conversion.
func (r *Routine) IsExplicit() bool { return r.explicit }

// SetExplicit marks an explicit constructor or conversion.
func (r *Routine) SetExplicit(e bool) { r.explicit = e }

// IsConstructor reports whether the routine is named after its container.
// Inside a specialization the general template's name is used.
func (r *Routine) IsConstructor() bool {
	agg, ok := r.Container().(*Aggregate)
	if !ok {
		return false
	}
	if general := agg.GeneralTemplate(); general != nil {
		return r.name == general.Name()
	}
	return r.name == agg.Name()
}

// IsDestructor reports a routine named with a leading tilde.
func (r *Routine) IsDestructor() bool {
	return strings.HasPrefix(r.name, "~")
}

// IsOperator reports an operator overload, conversions included.
func (r *Routine) IsOperator() bool {
	return strings.HasPrefix(r.name, "operator")
}

// IsConversionOperator reports an operator converting to a named type, as
// in "operator bool".
func (r *Routine) IsConversionOperator() bool {
	rest, ok := strings.CutPrefix(r.name, "operator ")
	if !ok {
		return false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return false
	}
	c := rune(rest[0])
	return unicode.IsLetter(c) || c == '_'
}

// IsCompatible reports whether other has the same name, const-ness and
// parameter types.
func (r *Routine) IsCompatible(other *Routine) bool {
	if r.name != other.name || r.isConst != other.isConst || len(r.params) != len(other.params) {
		return false
	}
	for i, p := range r.params {
		a, errA := p.Type()
		b, errB := other.params[i].Type()
		if errA != nil || errB != nil || !types.Equal(a, b) {
			return false
		}
	}
	return true
}

// Field is a data member or a global variable.
type Field struct {
	Header
	typ         types.Type
	initializer *string
}

// Kind returns KindField.
func (*Field) Kind() EntityKind { return KindField }

// Type returns the declared type.
func (f *Field) Type() (types.Type, error) {
	if f.typ == nil {
		return nil, errors.MissingInformation(f.name, "type")
	}
	return f.typ, nil
}

// SetType records the declared type.
func (f *Field) SetType(t types.Type) { f.typ = t }

// Initializer returns the initializer text.
func (f *Field) Initializer() (string, bool) {
	if f.initializer == nil {
		return "", false
	}
	return *f.initializer, true
}

// SetInitializer records the initializer text.
func (f *Field) SetInitializer(text string) { f.initializer = &text }

// Parameter is a routine parameter.
type Parameter struct {
	Header
	typ          types.Type
	defaultValue *string
}

// Kind returns KindParameter.
func (*Parameter) Kind() EntityKind { return KindParameter }

// Type returns the declared type.
func (p *Parameter) Type() (types.Type, error) {
	if p.typ == nil {
		return nil, errors.MissingInformation(p.name, "type")
	}
	return p.typ, nil
}

// SetType records the declared type.
func (p *Parameter) SetType(t types.Type) { p.typ = t }

// Default returns the default value text.
func (p *Parameter) Default() (string, bool) {
	if p.defaultValue == nil {
		return "", false
	}
	return *p.defaultValue, true
}

// SetDefault records the default value text.
func (p *Parameter) SetDefault(text string) { p.defaultValue = &text }

// Alias is a typedef.
type Alias struct {
	Header
	aliased types.Type
}

// Kind returns KindAlias.
func (*Alias) Kind() EntityKind { return KindAlias }

// AliasedType returns the type the alias stands for.
func (a *Alias) AliasedType() types.Type { return a.aliased }

// SetAliasedType records the type the alias stands for.
func (a *Alias) SetAliasedType(t types.Type) { a.aliased = t }

// Enum is an enumeration.
type Enum struct {
	Header
	constants []EnumConstant
}

// Kind returns KindEnum.
func (*Enum) Kind() EntityKind { return KindEnum }

// Constants returns the literals in declaration order.
func (e *Enum) Constants() []EnumConstant { return e.constants }

// AddConstant appends a literal.
func (e *Enum) AddConstant(literal string, value int) {
	e.constants = append(e.constants, EnumConstant{Literal: literal, Value: value})
}

// Group is a named presentation group. Its members keep their real
// container.
type Group struct {
	Header
	scope *Scope
}

// Kind returns KindGroup.
func (*Group) Kind() EntityKind { return KindGroup }

// Scope returns the members of the group.
func (g *Group) Scope() *Scope { return g.scope }

// Primitive is a built-in type such as int or unsigned long.
type Primitive struct {
	Header
}

// Kind returns KindPrimitive.
func (*Primitive) Kind() EntityKind { return KindPrimitive }

// Macro is a preprocessor definition.
type Macro struct {
	Header
	params []string
	body   string
}

// Kind returns KindMacro.
func (*Macro) Kind() EntityKind { return KindMacro }

// Parameters returns the macro parameter names; nil for an object-like macro.
func (m *Macro) Parameters() []string { return m.params }

// Body returns the replacement text.
func (m *Macro) Body() string { return m.body }

// ScopeOf returns the scope of a namespace, aggregate or group, or nil.
func ScopeOf(e Entity) *Scope {
	switch x := e.(type) {
	case *Namespace:
		return x.scope
	case *Aggregate:
		return x.scope
	case *Group:
		return x.scope
	}
	return nil
}
