package ingestion

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/logger"
	"github.com/skn123/robin-sub001/internal/parsers"
	"github.com/skn123/robin-sub001/internal/typeexpr"
	"github.com/skn123/robin-sub001/internal/types"
)

// Diagnostic is a problem found while loading declarations. Diagnostics
// never stop a run.
type Diagnostic struct {
	File    string
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.File, d.Message)
}

// Absorb loads documents into db and returns the problems found.
//
// Loading runs in two passes over all documents: the first declares every
// namespace, class, enum, alias and group, the second fills in types,
// bases, routines and fields. Type names therefore resolve to declarations
// from any of the documents regardless of order. Namespaces and classes
// that already exist are reused, so a forward declaration is completed by
// a later definition.
func Absorb(db *graph.Database, docs ...*parsers.Document) []Diagnostic {
	a := &absorber{
		db:       db,
		log:      logger.Named("absorb"),
		entities: make(map[*parsers.Element]graph.Entity),
		defined:  make(map[*graph.Aggregate]bool),
	}
	for _, doc := range docs {
		db.AddSourceFile(doc.File)
		a.doc = doc
		a.declare(a.root(doc), doc.Elements)
		for _, m := range doc.Macros {
			db.AddMacro(m.Name, m.Parameters, m.Body)
		}
	}
	for _, doc := range docs {
		a.doc = doc
		a.define(a.root(doc), doc.Elements)
	}
	return a.diags
}

type absorber struct {
	db       *graph.Database
	log      *zap.SugaredLogger
	doc      *parsers.Document
	entities map[*parsers.Element]graph.Entity
	defined  map[*graph.Aggregate]bool
	diags    []Diagnostic
}

func (a *absorber) root(doc *parsers.Document) graph.Entity {
	if doc.External {
		return a.db.Externals()
	}
	return a.db.Global()
}

func (a *absorber) warnf(el *parsers.Element, format string, args ...any) {
	d := Diagnostic{File: a.doc.File, Message: fmt.Sprintf(format, args...)}
	if el != nil {
		d.Line = el.Line
	}
	a.diags = append(a.diags, d)
	a.log.Warnw(d.Message, "file", d.File, "line", d.Line)
}

// declare is the first pass: scope-like entities are created or reused.
func (a *absorber) declare(owner graph.Entity, els []parsers.Element) {
	scope := graph.ScopeOf(owner)
	for i := range els {
		el := &els[i]
		var e graph.Entity
		switch el.Kind {
		case parsers.KindNamespace:
			ns, ok := scope.Find(el.Name).(*graph.Namespace)
			if !ok {
				ns = a.db.NewNamespace(el.Name)
				scope.AddMember(ns, graph.Membership{})
			}
			e = ns
		case parsers.KindClass, parsers.KindStruct, parsers.KindUnion:
			e = a.declareAggregate(owner, el)
		case parsers.KindEnum:
			enum, ok := scope.Find(el.Name).(*graph.Enum)
			if !ok {
				enum = a.db.NewEnum(el.Name)
				a.add(owner, enum, el)
			}
			if len(enum.Constants()) == 0 {
				for _, c := range el.Constants {
					enum.AddConstant(c.Name, c.Value)
				}
			}
			e = enum
		case parsers.KindAlias:
			alias, ok := scope.Find(el.Name).(*graph.Alias)
			if !ok {
				alias = a.db.NewAlias(el.Name, nil)
				a.declareTemplate(alias, el.Template)
				a.add(owner, alias, el)
			}
			e = alias
		case parsers.KindGroup:
			group, ok := scope.GroupByName(el.Name)
			if !ok {
				group = a.db.NewGroup(el.Name)
				a.add(owner, group, el)
			}
			e = group
		case parsers.KindRoutine, parsers.KindField:
			continue
		case "":
			// Friend declarations outside a class.
			continue
		default:
			a.warnf(el, "unknown element kind %q", el.Kind)
			continue
		}
		a.entities[el] = e
		a.annotate(e, el)
		switch {
		case el.Kind == parsers.KindGroup:
			a.declareGroupMembers(owner, e.(*graph.Group), el.Members)
		case graph.ScopeOf(e) != nil:
			a.declare(e, el.Members)
		case len(el.Members) > 0:
			a.warnf(el, "%s %s cannot have members, ignoring %d", el.Kind, el.Name, len(el.Members))
		}
	}
}

func (a *absorber) declareAggregate(owner graph.Entity, el *parsers.Element) *graph.Aggregate {
	scope := graph.ScopeOf(owner)
	kind := aggregateKind(el.Kind)
	if agg, ok := scope.Find(el.Name).(*graph.Aggregate); ok && !agg.IsDelegate() {
		// A forward declaration or an earlier definition of the same class.
		if !el.Incomplete {
			if !agg.Incomplete() && len(el.Members) > 0 && agg.Base().Uplink() != nil {
				a.warnf(el, "%s redefined", agg.FullName())
			}
			agg.SetIncomplete(false)
			agg.SetAggregateKind(kind)
		}
		if len(el.Template) > 0 && !agg.IsTemplated() {
			a.declareTemplate(agg, el.Template)
		}
		return agg
	}
	agg := a.db.NewAggregate(el.Name, kind)
	agg.SetIncomplete(el.Incomplete)
	a.declareTemplate(agg, el.Template)
	a.add(owner, agg, el)
	return agg
}

// declareTemplate declares the template parameters in order. The types of
// data parameters and all defaults are set in the second pass.
func (a *absorber) declareTemplate(owner graph.Entity, params []parsers.TemplateParam) {
	for _, p := range params {
		if p.Type == nil {
			a.db.AddTypenameParameter(owner, p.Name)
		} else {
			a.db.AddDataParameter(owner, p.Name, nil)
		}
	}
}

// declareGroupMembers declares the scope-like members of a group in the
// group's owner and records them in the group.
func (a *absorber) declareGroupMembers(owner graph.Entity, group *graph.Group, els []parsers.Element) {
	a.declare(owner, els)
	for i := range els {
		if e, ok := a.entities[&els[i]]; ok && e.Base().Group() == nil {
			group.Scope().AddMember(e, graph.Membership{})
		}
	}
}

// add places e in owner with the membership described by el.
func (a *absorber) add(owner graph.Entity, e graph.Entity, el *parsers.Element) {
	graph.ScopeOf(owner).AddMember(e, a.membership(owner, el))
	if owner.Base().External() {
		e.Base().SetExternal(true)
	}
}

func (a *absorber) membership(owner graph.Entity, el *parsers.Element) graph.Membership {
	m := graph.Membership{Visibility: graph.ParseVisibility(el.Visibility), Virtuality: graph.NonVirtual, Storage: graph.Extern}
	if m.Visibility == graph.DontCare {
		if agg, ok := owner.(*graph.Aggregate); ok {
			m.Visibility = graph.Public
			if agg.AggregateKind() == graph.AggregateClass {
				m.Visibility = graph.Private
			}
		}
	}
	switch el.Virtuality {
	case "virtual":
		m.Virtuality = graph.Virtual
	case "pure":
		m.Virtuality = graph.PureVirtual
	}
	if el.Static {
		m.Storage = graph.Static
	}
	return m
}

func (a *absorber) annotate(e graph.Entity, el *parsers.Element) {
	h := e.Base()
	for _, p := range el.Properties {
		h.AddProperty(p.Name, p.Value)
	}
	if el.Line > 0 {
		if _, err := h.Declaration(); err != nil || !el.Incomplete {
			h.SetDeclaration(graph.SourceLocation{File: a.doc.File, Line: el.Line})
		}
	}
	if el.Definition > 0 {
		h.SetDefinition(graph.SourceLocation{File: a.doc.File, Line: el.Definition})
	}
}

// define is the second pass.
func (a *absorber) define(owner graph.Entity, els []parsers.Element) {
	for i := range els {
		el := &els[i]
		switch el.Kind {
		case parsers.KindNamespace:
			a.define(a.entities[el], el.Members)
		case parsers.KindClass, parsers.KindStruct, parsers.KindUnion:
			agg := a.entities[el].(*graph.Aggregate)
			a.defineAggregate(agg, el)
			a.define(agg, el.Members)
		case parsers.KindAlias:
			alias := a.entities[el].(*graph.Alias)
			res := &signatureResolver{DatabaseResolver: typeexpr.NewResolver(a.db, owner), signature: alias}
			a.defineTemplate(res, alias, el.Template)
			if el.Type == nil {
				a.warnf(el, "alias %s has no type", el.Name)
				continue
			}
			alias.SetAliasedType(a.typeOf(res, el, el.Type))
		case parsers.KindGroup:
			a.define(owner, el.Members)
		case parsers.KindRoutine:
			a.defineRoutine(owner, el)
		case parsers.KindField:
			a.defineField(owner, el)
		case "":
			if len(el.Friends) > 0 {
				a.warnf(el, "friend declaration outside a class")
			}
		}
	}
}

func (a *absorber) defineAggregate(agg *graph.Aggregate, el *parsers.Element) {
	res := a.resolver(agg)
	a.defineTemplate(res, agg, el.Template)
	if a.defined[agg] {
		// Already defined by another document.
		return
	}
	a.defined[agg] = true
	for _, b := range el.Bases {
		if b.Type == nil {
			a.warnf(el, "base of %s has no type", agg.Name())
			continue
		}
		t := a.typeOf(res, el, b.Type)
		var args []types.TemplateArgument
		if ti, ok := t.(*types.TemplateInstantiation); ok {
			t, args = types.NewLeaf(ti.Template), ti.Args
		}
		leaf, ok := t.(*types.Leaf)
		if !ok {
			a.warnf(el, "base of %s is not a class: %s", agg.Name(), describe(b.Type))
			continue
		}
		base, ok := a.db.Entity(leaf.Entity).(*graph.Aggregate)
		if !ok {
			a.warnf(el, "base of %s is not a class: %s", agg.Name(), describe(b.Type))
			continue
		}
		vis := graph.ParseVisibility(b.Visibility)
		if vis == graph.DontCare {
			vis = graph.Public
			if agg.AggregateKind() == graph.AggregateClass {
				vis = graph.Private
			}
		}
		a.db.AddBase(agg, base, args, vis)
	}
	if el.Specializes != nil {
		t := a.typeOf(res, el, el.Specializes)
		if ti, ok := t.(*types.TemplateInstantiation); ok {
			if general, ok := a.db.Entity(ti.Template).(*graph.Aggregate); ok {
				a.db.Specialize(general, agg, ti.Args)
			}
		} else {
			a.warnf(el, "%s does not specialize a template", agg.Name())
		}
	}
	for _, name := range el.Friends {
		if friend, ok := a.db.Resolve(agg, name); ok {
			agg.Scope().AddFriend(friend)
		} else {
			a.log.Debugw("unresolved friend", "class", agg.FullName(), "friend", name)
		}
	}
}

// defineTemplate sets the types of data parameters and the defaults of
// all parameters.
func (a *absorber) defineTemplate(res typeexpr.Resolver, owner graph.Entity, params []parsers.TemplateParam) {
	for _, p := range params {
		tp, ok := owner.Base().TemplateParameter(p.Name)
		if !ok {
			continue
		}
		switch tp := tp.(type) {
		case *graph.DataParameter:
			if tp.Type() == nil && p.Type != nil {
				tp.SetType(a.typeOf(res, nil, p.Type))
			}
			if _, set := tp.Default(); !set && p.Default != "" {
				tp.SetDefault(p.Default)
			}
		case *graph.TypenameParameter:
			if _, set := tp.Default(); !set && p.Default != "" {
				tp.SetDefault(a.typeOf(res, nil, parsers.Expr(p.Default)))
			}
		}
	}
}

// resolver resolves names as seen from inside e.
func (a *absorber) resolver(e graph.Entity) typeexpr.Resolver {
	return typeexpr.NewResolver(a.db, e)
}

func (a *absorber) defineRoutine(owner graph.Entity, el *parsers.Element) {
	r := a.db.NewRoutine(el.Name)
	a.declareTemplate(r, el.Template)
	res := &signatureResolver{DatabaseResolver: typeexpr.NewResolver(a.db, owner), signature: r}
	a.defineTemplate(res, r, el.Template)
	if el.Type != nil {
		r.SetReturnType(a.typeOf(res, el, el.Type))
	}
	for _, p := range el.Parameters {
		if p.Type == nil {
			a.warnf(el, "parameter %s of %s has no type", p.Name, el.Name)
			continue
		}
		param := a.db.NewParameter(p.Name, a.typeOf(res, el, p.Type))
		if p.Default != "" {
			param.SetDefault(p.Default)
		}
		r.AddParameter(param)
	}
	r.SetThrowClause(el.HasThrows || len(el.Throws) > 0)
	for i := range el.Throws {
		r.AddThrow(a.typeOf(res, el, &el.Throws[i]))
	}
	r.SetConst(el.Const)
	r.SetInline(el.Inline)
	r.SetExplicit(el.Explicit)

	scope := graph.ScopeOf(owner)
	for _, existing := range scope.Routines() {
		if existing.IsCompatible(r) {
			// A redeclaration, such as a prototype followed by its
			// definition.
			a.annotate(existing, el)
			return
		}
	}
	a.annotate(r, el)
	a.add(owner, r, el)
	a.addToGroup(r, el)
}

func (a *absorber) defineField(owner graph.Entity, el *parsers.Element) {
	if el.Type == nil {
		a.warnf(el, "field %s has no type", el.Name)
		return
	}
	scope := graph.ScopeOf(owner)
	for _, existing := range scope.Fields() {
		if existing.Name() == el.Name {
			a.annotate(existing, el)
			return
		}
	}
	f := a.db.NewField(el.Name, a.typeOf(a.resolver(owner), el, el.Type))
	if el.Initializer != "" {
		f.SetInitializer(el.Initializer)
	}
	a.annotate(f, el)
	a.add(owner, f, el)
	a.addToGroup(f, el)
}

// addToGroup records routines and fields declared inside a group element.
func (a *absorber) addToGroup(e graph.Entity, el *parsers.Element) {
	for group, g := range a.entities {
		if group.Kind != parsers.KindGroup {
			continue
		}
		for i := range group.Members {
			if &group.Members[i] == el {
				g.(*graph.Group).Scope().AddMember(e, graph.Membership{})
				return
			}
		}
	}
}

// typeOf converts a type spec, resolving names through res. Parse errors
// are reported and leave the error entity in place of the bad part.
func (a *absorber) typeOf(res typeexpr.Resolver, el *parsers.Element, spec *parsers.TypeSpec) types.Type {
	if spec.Expr != "" {
		parsed := typeexpr.Parse(spec.Expr, res)
		if parsed.ErrorOccurred() {
			a.warnf(el, "type %q: %s", spec.Expr, parsed.Messages())
		}
		return qualify(parsed.Type, spec)
	}
	var t types.Type
	switch spec.Kind {
	case parsers.TypeName:
		parsed := typeexpr.Parse(spec.Name, res)
		if parsed.ErrorOccurred() {
			a.warnf(el, "type name %q: %s", spec.Name, parsed.Messages())
		}
		t = parsed.Type
	case parsers.TypePointer, parsers.TypeReference, parsers.TypeArray:
		if spec.Of == nil {
			a.warnf(el, "%s type without element", spec.Kind)
			return types.NewLeaf(a.db.ErrorEntity().ID())
		}
		of := a.typeOf(res, el, spec.Of)
		switch spec.Kind {
		case parsers.TypePointer:
			t = types.PointerTo(of)
		case parsers.TypeReference:
			t = types.ReferenceTo(of)
		default:
			t = types.ArrayOf(of, spec.Size)
		}
	case parsers.TypeFunction:
		var ret types.Type = types.NewLeaf(a.db.Primitive("void").ID())
		if spec.Returns != nil {
			ret = a.typeOf(res, el, spec.Returns)
		}
		params := make([]types.Type, len(spec.Params))
		for i := range spec.Params {
			params[i] = a.typeOf(res, el, &spec.Params[i])
		}
		t = types.FunctionReturning(ret, params...)
	case parsers.TypeTemplate:
		args := make([]types.TemplateArgument, len(spec.Args))
		for i, arg := range spec.Args {
			if arg.Type != nil {
				args[i] = types.Typename(a.typeOf(res, el, arg.Type))
			} else {
				args[i] = types.Data(arg.Value)
			}
		}
		t = types.Instantiate(res.ResolveName(spec.Name), args...)
	case parsers.TypeEllipsis:
		t = &types.Ellipsis{}
	default:
		a.warnf(el, "unknown type kind %q", spec.Kind)
		return types.NewLeaf(a.db.ErrorEntity().ID())
	}
	return qualify(t, spec)
}

// signatureResolver resolves the names of a routine or alias signature
// before the declaration is placed in its container: the declaration's
// own template parameters come first, then the container's view.
type signatureResolver struct {
	*typeexpr.DatabaseResolver
	signature graph.Entity
}

func (r *signatureResolver) ResolveName(name string) types.EntityID {
	if !r.signature.Base().IsTemplated() {
		return r.DatabaseResolver.ResolveName(name)
	}
	if e, ok := r.DB.LookupIn(r.signature, name); ok {
		return e.ID()
	}
	if parts := graph.SplitQualified(name); len(parts) > 1 {
		if _, ok := r.DB.LookupIn(r.signature, parts[0]); ok {
			if e, err := r.DB.ResolveOrCreate(r.signature, name); err == nil {
				return e.ID()
			}
		}
	}
	return r.DatabaseResolver.ResolveName(name)
}

func qualify(t types.Type, spec *parsers.TypeSpec) types.Type {
	var cv types.CV
	if spec.Const {
		cv |= types.Const
	}
	if spec.Volatile {
		cv |= types.Volatile
	}
	if cv == 0 {
		return t
	}
	return types.Qualify(t, cv)
}

func describe(spec *parsers.TypeSpec) string {
	if spec.Expr != "" {
		return spec.Expr
	}
	if spec.Name != "" {
		return spec.Name
	}
	return spec.Kind
}

func aggregateKind(kind string) graph.AggregateKind {
	switch kind {
	case parsers.KindStruct:
		return graph.AggregateStruct
	case parsers.KindUnion:
		return graph.AggregateUnion
	}
	return graph.AggregateClass
}
