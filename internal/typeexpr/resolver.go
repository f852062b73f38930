package typeexpr

import (
	"strings"

	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/types"
)

// Instantiator produces the instance named by a template instantiation.
type Instantiator interface {
	InstantiateType(ti *types.TemplateInstantiation) (*graph.Aggregate, error)
}

// DatabaseResolver resolves names against a program database as seen from
// Scope. Unknown names are created as incomplete aggregates, under the
// global namespace or, for "Param::member" inside a template, under the
// parameter's delegate.
type DatabaseResolver struct {
	DB    *graph.Database
	Scope graph.Entity

	// Engine, when set, instantiates the templates that qualify a nested
	// name such as "Vec<int>::iterator". Without it only existing
	// instances are used.
	Engine Instantiator
}

// NewResolver returns a resolver looking names up from scope. A nil scope
// means the global namespace.
func NewResolver(db *graph.Database, scope graph.Entity) *DatabaseResolver {
	return &DatabaseResolver{DB: db, Scope: scope}
}

func (r *DatabaseResolver) ResolveName(name string) types.EntityID {
	e, err := r.DB.ResolveOrCreate(r.Scope, name)
	if err != nil {
		return r.ErrorEntity()
	}
	return e.ID()
}

// ResolveNested looks member up inside the instance of template for args.
// The instance is found under its canonical name, so spelling differences
// such as "Vec<int*>" against "Vec<int *>" do not matter, and missing
// members are created inside it.
//
// Without an instance, the member of a real template is taken from the
// general template, or is the error entity when the template has none;
// nothing is created. A name that is not a template, such as a forward
// reference to an unknown class, gets an incomplete stand-in class with
// the canonical instance name next to it.
func (r *DatabaseResolver) ResolveNested(template types.EntityID, args []types.TemplateArgument, member string) types.EntityID {
	if inst := r.instance(template, args); inst != nil {
		if e, ok := r.DB.LookupIn(inst, member); ok {
			return e.ID()
		}
		return r.DB.CreateIn(inst, member).ID()
	}
	general := r.DB.Entity(template)
	if general == nil {
		return r.ErrorEntity()
	}
	if general.Base().IsTemplated() {
		if e, ok := r.DB.LookupIn(general, member); ok {
			return e.ID()
		}
		return r.ErrorEntity()
	}
	container := general.Base().Container()
	if container == nil || graph.ScopeOf(container) == nil || !types.IsFlat(types.Instantiate(template, args...)) {
		return r.ErrorEntity()
	}
	name := general.Name() + strings.TrimPrefix(types.FormatInstantiation(r.DB, template, args), r.DB.TypeName(template))
	return r.DB.CreateIn(r.DB.CreateIn(container, name), member).ID()
}

func (r *DatabaseResolver) instance(template types.EntityID, args []types.TemplateArgument) graph.Entity {
	ti := types.Instantiate(template, args...)
	for _, id := range types.Entities(ti) {
		if agg, ok := r.DB.Entity(id).(*graph.Aggregate); ok && agg.IsDelegate() {
			// Dependent on a template parameter: there is no instance.
			return nil
		}
	}
	if r.Engine != nil {
		if inst, err := r.Engine.InstantiateType(&types.TemplateInstantiation{Template: template, Args: args}); err == nil {
			return inst
		}
	}
	if !types.IsFlat(ti) {
		return nil
	}
	if e, err := r.DB.Lookup(types.FormatInstantiation(r.DB, template, args), false); err == nil {
		return e
	}
	return nil
}

func (r *DatabaseResolver) ResolvePrimitive(keyword string) types.EntityID {
	return r.DB.Primitive(keyword).ID()
}

func (r *DatabaseResolver) ErrorEntity() types.EntityID {
	return r.DB.ErrorEntity().ID()
}

// ParseIn parses text with names resolved from scope in db.
func ParseIn(db *graph.Database, scope graph.Entity, text string) *Result {
	return Parse(text, NewResolver(db, scope))
}
