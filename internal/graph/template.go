package graph

import (
	"github.com/skn123/robin-sub001/internal/types"
)

// TemplateParameter is a parameter of a templated aggregate or routine.
// The variants are *TypenameParameter and *DataParameter.
type TemplateParameter interface {
	Name() string
	templateParameter()
}

// TypenameParameter is a "typename T" parameter. Inside the template body
// T is represented by a delegate aggregate.
type TypenameParameter struct {
	name        string
	defaultType types.Type
	delegate    EntityID
}

func (*TypenameParameter) templateParameter() {}

// Name returns the parameter name.
func (p *TypenameParameter) Name() string { return p.name }

// Delegate returns the handle of the aggregate standing in for the
// parameter.
func (p *TypenameParameter) Delegate() EntityID { return p.delegate }

// Default returns the default type.
func (p *TypenameParameter) Default() (types.Type, bool) {
	return p.defaultType, p.defaultType != nil
}

// SetDefault records the default type.
func (p *TypenameParameter) SetDefault(t types.Type) { p.defaultType = t }

// DataParameter is a non-type parameter such as "int N".
type DataParameter struct {
	name         string
	typ          types.Type
	defaultValue *string
}

func (*DataParameter) templateParameter() {}

// Name returns the parameter name.
func (p *DataParameter) Name() string { return p.name }

// Type returns the declared type of the parameter.
func (p *DataParameter) Type() types.Type { return p.typ }

// SetType records the declared type.
func (p *DataParameter) SetType(t types.Type) { p.typ = t }

// Default returns the default value text.
func (p *DataParameter) Default() (string, bool) {
	if p.defaultValue == nil {
		return "", false
	}
	return *p.defaultValue, true
}

// SetDefault records the default value text.
func (p *DataParameter) SetDefault(text string) { p.defaultValue = &text }

// AddTypenameParameter declares a typename parameter on owner and creates
// its delegate aggregate.
func (db *Database) AddTypenameParameter(owner Entity, name string) *TypenameParameter {
	delegate := db.NewAggregate(name, AggregateClass)
	delegate.delegateOf = owner.ID()
	p := &TypenameParameter{name: name, delegate: delegate.ID()}
	h := owner.Base()
	h.templateParameters = append(h.templateParameters, p)
	return p
}

// AddDataParameter declares a data parameter on owner.
func (db *Database) AddDataParameter(owner Entity, name string, typ types.Type) *DataParameter {
	p := &DataParameter{name: name, typ: typ}
	h := owner.Base()
	h.templateParameters = append(h.templateParameters, p)
	return p
}

// TemplateParameter returns the parameter with the given name.
func (h *Header) TemplateParameter(name string) (TemplateParameter, bool) {
	for _, p := range h.templateParameters {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// delegate returns the delegate aggregate of the typename parameter named
// name, if the entity declares one.
func (h *Header) delegate(name string) Entity {
	p, ok := h.TemplateParameter(name)
	if !ok {
		return nil
	}
	tp, ok := p.(*TypenameParameter)
	if !ok {
		return nil
	}
	return h.db.Entity(tp.delegate)
}

// Specialize links specific as general applied to args.
func (db *Database) Specialize(general, specific *Aggregate, args []types.TemplateArgument) *SpecializationConnection {
	conn := &SpecializationConnection{General: general.ID(), Args: args, Specific: specific.ID()}
	specific.specialization = conn
	general.specializations = append(general.specializations, conn)
	return conn
}

// AddBase records that derived inherits from base, optionally applied to
// template arguments.
func (db *Database) AddBase(derived, base *Aggregate, args []types.TemplateArgument, vis Visibility) *InheritanceConnection {
	conn := &InheritanceConnection{
		Base:       base.ID(),
		BaseArgs:   args,
		Visibility: vis,
		Derived:    derived.ID(),
	}
	derived.bases = append(derived.bases, conn)
	base.derived = append(base.derived, conn)
	return conn
}
