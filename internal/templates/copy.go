package templates

import (
	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/types"
)

// copyScope fills dst with the members of src, substituted through b.
// Nested aggregates, aliases and enums are copied before routines and
// fields so that member signatures can refer to the copies.
func (e *Engine) copyScope(src, dst *graph.Aggregate, b *binding) {
	e.copyBases(src, dst, b)

	s := src.Scope()
	for _, conn := range s.Connections(graph.KindAggregate) {
		nested, ok := e.db.Entity(conn.Contained).(*graph.Aggregate)
		if !ok || nested.IsSpecialization() {
			continue
		}
		dst.Scope().AddMember(e.copyAggregate(nested, b), conn.Membership())
	}
	for _, conn := range s.Connections(graph.KindEnum) {
		enum := e.db.Entity(conn.Contained).(*graph.Enum)
		clone := e.db.NewEnum(enum.Name())
		copyHeader(enum, clone)
		for _, c := range enum.Constants() {
			clone.AddConstant(c.Literal, c.Value)
		}
		b.copies[enum.ID()] = clone.ID()
		dst.Scope().AddMember(clone, conn.Membership())
	}
	for _, conn := range s.Connections(graph.KindAlias) {
		alias := e.db.Entity(conn.Contained).(*graph.Alias)
		var aliased types.Type
		if alias.AliasedType() != nil {
			aliased = e.substitute(alias.AliasedType(), b)
		}
		clone := e.db.NewAlias(alias.Name(), aliased)
		copyHeader(alias, clone)
		b.copies[alias.ID()] = clone.ID()
		dst.Scope().AddMember(clone, conn.Membership())
	}
	for _, conn := range s.Connections(graph.KindRoutine) {
		r := e.db.Entity(conn.Contained).(*graph.Routine)
		dst.Scope().AddMember(e.copyRoutine(r, b), conn.Membership())
	}
	for _, conn := range s.Connections(graph.KindField) {
		f := e.db.Entity(conn.Contained).(*graph.Field)
		var typ types.Type
		if t, err := f.Type(); err == nil {
			typ = e.substitute(t, b)
		}
		clone := e.db.NewField(f.Name(), typ)
		copyHeader(f, clone)
		if init, ok := f.Initializer(); ok {
			clone.SetInitializer(b.dataText(init))
		}
		b.copies[f.ID()] = clone.ID()
		dst.Scope().AddMember(clone, conn.Membership())
	}
	for _, friend := range s.Friends() {
		if ent := e.db.Entity(friend.Contained); ent != nil {
			dst.Scope().AddFriend(ent)
		}
	}
	e.copyGroups(src, dst, b)
}

func (e *Engine) copyBases(src, dst *graph.Aggregate, b *binding) {
	for _, base := range src.Bases() {
		target, err := e.aggregateOf(e.substitute(base.BaseAsType(), b))
		if err != nil {
			e.warn(errors.Wrapf(err, "base of %s", dst.FullName()))
			continue
		}
		e.db.AddBase(dst, target, nil, base.Visibility)
	}
}

func (e *Engine) copyAggregate(src *graph.Aggregate, b *binding) *graph.Aggregate {
	clone := e.db.NewAggregate(src.Name(), src.AggregateKind())
	copyHeader(src, clone)
	clone.SetIncomplete(src.Incomplete())
	b.copies[src.ID()] = clone.ID()
	e.copyTemplateParameters(src, clone, b)
	e.copyScope(src, clone, b)
	return clone
}

func (e *Engine) copyRoutine(r *graph.Routine, b *binding) *graph.Routine {
	name := r.Name()
	ret, retErr := r.ReturnType()
	if retErr == nil && r.IsConversionOperator() {
		if converted := e.substitute(ret, b); types.IsFlat(converted) {
			name = "operator " + types.FormatCpp(e.db, converted, "")
		}
	}

	clone := e.db.NewRoutine(name)
	copyHeader(r, clone)
	e.copyTemplateParameters(r, clone, b)
	if retErr == nil {
		clone.SetReturnType(e.substitute(ret, b))
	}
	for _, p := range r.Parameters() {
		param := e.db.NewParameter(p.Name(), nil)
		copyHeader(p, param)
		if t, err := p.Type(); err == nil {
			param.SetType(e.substitute(t, b))
		}
		if def, ok := p.Default(); ok {
			param.SetDefault(b.dataText(def))
		}
		clone.AddParameter(param)
	}
	for _, t := range r.Throws() {
		clone.AddThrow(e.substitute(t, b))
	}
	clone.SetThrowClause(r.HasThrowClause())
	clone.SetConst(r.IsConst())
	clone.SetInline(r.IsInline())
	clone.SetExplicit(r.IsExplicit())
	b.copies[r.ID()] = clone.ID()
	return clone
}

// copyTemplateParameters redeclares the parameters of a member template
// on its copy and maps the old delegates to the new ones.
func (e *Engine) copyTemplateParameters(src, dst graph.Entity, b *binding) {
	for _, param := range src.Base().TemplateParameters() {
		switch p := param.(type) {
		case *graph.TypenameParameter:
			np := e.db.AddTypenameParameter(dst, p.Name())
			if def, ok := p.Default(); ok {
				np.SetDefault(e.substitute(def, b))
			}
			b.typenames[p.Delegate()] = types.NewLeaf(np.Delegate())
		case *graph.DataParameter:
			var typ types.Type
			if p.Type() != nil {
				typ = e.substitute(p.Type(), b)
			}
			np := e.db.AddDataParameter(dst, p.Name(), typ)
			if def, ok := p.Default(); ok {
				np.SetDefault(b.dataText(def))
			}
		}
	}
}

func (e *Engine) copyGroups(src, dst *graph.Aggregate, b *binding) {
	for _, conn := range src.Scope().Connections(graph.KindGroup) {
		group := e.db.Entity(conn.Contained).(*graph.Group)
		clone := e.db.NewGroup(group.Name())
		copyHeader(group, clone)
		dst.Scope().AddMember(clone, conn.Membership())
		for _, kind := range []graph.EntityKind{graph.KindAggregate, graph.KindEnum, graph.KindAlias, graph.KindRoutine, graph.KindField} {
			for _, member := range group.Scope().Connections(kind) {
				if cp, ok := b.copies[member.Contained]; ok {
					clone.Scope().AddMember(e.db.Entity(cp), member.Membership())
				}
			}
		}
	}
}

// copyHeader copies the documentation and source positions of src.
func copyHeader(src, dst graph.Entity) {
	from, to := src.Base(), dst.Base()
	for _, p := range from.Properties() {
		to.AddProperty(p.Name, p.Value)
	}
	if loc, err := from.Declaration(); err == nil {
		to.SetDeclaration(loc)
	}
	if loc, err := from.Definition(); err == nil {
		to.SetDefinition(loc)
	}
	to.SetExternal(from.External())
}
