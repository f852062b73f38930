// Package templates instantiates class templates.
//
// An Engine produces exactly one Aggregate per distinct (template,
// arguments) pair. Instances are named "General<Arg1,Arg2>", linked to
// their template by a specialization connection, added next to the
// template in its container, and populated with a copy of the template's
// members in which the template parameters are replaced by the bound
// arguments.
package templates

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/logger"
	"github.com/skn123/robin-sub001/internal/types"
)

// maxDepth bounds nested instantiation, as in "template<class T> struct S
// : S<T*>".
const maxDepth = 64

// Engine memoizes template instances for one database.
//
// Instantiate is safe for concurrent use; instantiation is serialized.
type Engine struct {
	db  *graph.Database
	log *zap.SugaredLogger

	mu        sync.Mutex
	instances map[string]*graph.Aggregate
	order     []*graph.Aggregate
	orphans   map[string]*graph.Aggregate
	warnings  []error
	depth     int
}

// NewEngine creates an engine over db.
func NewEngine(db *graph.Database) *Engine {
	return &Engine{
		db:        db,
		log:       logger.Named("templates"),
		instances: make(map[string]*graph.Aggregate),
		orphans:   make(map[string]*graph.Aggregate),
	}
}

// Key returns the memoization key of tmpl applied to args: the template's
// full name followed by the formatted arguments.
func (e *Engine) Key(tmpl *graph.Aggregate, args []types.TemplateArgument) string {
	return tmpl.FullName() + argumentText(e.db, args)
}

// Instance returns the instance memoized under key.
func (e *Engine) Instance(key string) (*graph.Aggregate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.instances[key]
	return inst, ok
}

// Find returns the existing instance of tmpl for args without creating
// one. Defaults are applied as in Instantiate.
func (e *Engine) Find(tmpl *graph.Aggregate, args []types.TemplateArgument) (*graph.Aggregate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !tmpl.IsTemplated() {
		return nil, false
	}
	b, err := e.bind(tmpl, args)
	if err != nil {
		return nil, false
	}
	inst, ok := e.instances[e.Key(tmpl, b.args)]
	return inst, ok
}

// Instances returns every instance in creation order.
func (e *Engine) Instances() []*graph.Aggregate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*graph.Aggregate(nil), e.order...)
}

// Len returns the number of instances.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}

// Warnings returns the members that could not be instantiated. Each
// wraps ErrInvalidInstantiation.
func (e *Engine) Warnings() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]error(nil), e.warnings...)
}

// Instantiate returns the instance of tmpl for args, creating it on first
// use. Missing trailing arguments take the parameters' defaults, so
// explicit and defaulted spellings share one instance.
func (e *Engine) Instantiate(tmpl *graph.Aggregate, args []types.TemplateArgument) (*graph.Aggregate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instantiate(tmpl, args)
}

// InstantiateType instantiates the template named by an instantiation
// node.
func (e *Engine) InstantiateType(ti *types.TemplateInstantiation) (*graph.Aggregate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instantiateNode(ti)
}

func (e *Engine) instantiateNode(ti *types.TemplateInstantiation) (*graph.Aggregate, error) {
	tmpl, err := e.template(ti.Template)
	if err != nil {
		return nil, err
	}
	return e.instantiate(tmpl, ti.Args)
}

func (e *Engine) template(id types.EntityID) (*graph.Aggregate, error) {
	agg, ok := e.db.Entity(id).(*graph.Aggregate)
	if !ok || !agg.IsTemplated() || agg.IsDelegate() {
		return nil, errors.Wrapf(errors.ErrInvalidInstantiation, "%s is not a class template", e.db.FullName(id))
	}
	return agg, nil
}

func (e *Engine) instantiate(tmpl *graph.Aggregate, args []types.TemplateArgument) (*graph.Aggregate, error) {
	if !tmpl.IsTemplated() {
		return nil, errors.Wrapf(errors.ErrInvalidInstantiation, "%s is not a class template", tmpl.FullName())
	}
	if e.depth >= maxDepth {
		return nil, errors.Wrapf(errors.ErrInvalidInstantiation, "%s: instantiation nested too deeply", tmpl.FullName())
	}
	e.depth++
	defer func() { e.depth-- }()

	for _, arg := range args {
		tn, ok := arg.(*types.TypenameArgument)
		if !ok {
			continue
		}
		for _, ti := range types.Instantiations(tn.Type) {
			if _, err := e.instantiateNode(ti); err != nil {
				return nil, errors.Wrapf(err, "argument of %s", tmpl.FullName())
			}
		}
	}

	b, err := e.bind(tmpl, args)
	if err != nil {
		return nil, err
	}
	key := e.Key(tmpl, b.args)
	if inst, ok := e.instances[key]; ok {
		return inst, nil
	}

	inst := e.db.NewAggregate(tmpl.Name()+argumentText(e.db, b.args), tmpl.AggregateKind())
	e.db.Specialize(tmpl, inst, b.args)
	e.instances[key] = inst
	e.order = append(e.order, inst)
	copyHeader(tmpl, inst)
	if link := tmpl.Uplink(); link != nil {
		if scope := graph.ScopeOf(tmpl.Container()); scope != nil {
			scope.AddMember(inst, link.Membership())
		}
	}
	e.log.Debugw("instantiating template", "key", key)

	b.self = tmpl.ID()
	e.copyScope(tmpl, inst, b)
	return inst, nil
}

// bind pairs the template parameters with args, filling defaults.
func (e *Engine) bind(tmpl *graph.Aggregate, args []types.TemplateArgument) (*binding, error) {
	params := tmpl.TemplateParameters()
	if len(args) > len(params) {
		return nil, errors.Wrapf(errors.ErrInvalidInstantiation,
			"%s takes %d arguments, got %d", tmpl.FullName(), len(params), len(args))
	}

	b := newBinding()
	for i, param := range params {
		var arg types.TemplateArgument
		if i < len(args) {
			arg = args[i]
		}
		switch p := param.(type) {
		case *graph.TypenameParameter:
			if arg == nil {
				def, ok := p.Default()
				if !ok {
					return nil, errors.Wrapf(errors.ErrInvalidInstantiation, "%s: no argument for %s", tmpl.FullName(), p.Name())
				}
				arg = types.Typename(e.substitute(def, b))
			}
			tn, ok := arg.(*types.TypenameArgument)
			if !ok {
				return nil, errors.Wrapf(errors.ErrInvalidInstantiation,
					"%s: parameter %s expects a type, got %s", tmpl.FullName(), p.Name(), types.FormatArgument(e.db, arg))
			}
			b.typenames[p.Delegate()] = tn.Type
		case *graph.DataParameter:
			if arg == nil {
				def, ok := p.Default()
				if !ok {
					return nil, errors.Wrapf(errors.ErrInvalidInstantiation, "%s: no argument for %s", tmpl.FullName(), p.Name())
				}
				arg = types.Data(b.dataText(def))
			}
			if tn, ok := arg.(*types.TypenameArgument); ok {
				arg = types.Data(types.FormatCpp(e.db, tn.Type, ""))
			}
			b.data[p.Name()] = arg.(*types.DataArgument).Text
		}
		b.args = append(b.args, arg)
	}
	return b, nil
}

// aggregateOf returns the class named by t, following aliases and
// instantiating templates.
func (e *Engine) aggregateOf(t types.Type) (*graph.Aggregate, error) {
	seen := map[types.EntityID]bool{}
	for {
		switch x := t.(type) {
		case *types.TemplateInstantiation:
			return e.instantiateNode(x)
		case *types.Leaf:
			switch ent := e.db.Entity(x.Entity).(type) {
			case *graph.Aggregate:
				return ent, nil
			case *graph.Alias:
				if ent.AliasedType() != nil && !seen[x.Entity] {
					seen[x.Entity] = true
					t = ent.AliasedType()
					continue
				}
			}
		}
		return nil, errors.Wrapf(errors.ErrInvalidInstantiation, "%s is not a class", describe(e.db, t))
	}
}

// orphan returns the placeholder standing for a member that the bound
// argument does not have.
func (e *Engine) orphan(name string) *graph.Aggregate {
	if agg, ok := e.orphans[name]; ok {
		return agg
	}
	agg := e.db.NewAggregate(name, graph.AggregateClass)
	agg.SetIncomplete(true)
	e.orphans[name] = agg
	return agg
}

func (e *Engine) warn(err error) {
	e.warnings = append(e.warnings, err)
	e.log.Warnw("skipping template member", "error", err)
}

func argumentText(n types.Namer, args []types.TemplateArgument) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = types.FormatArgument(n, arg)
	}
	return "<" + strings.Join(parts, ",") + ">"
}

func describe(n types.Namer, t types.Type) string {
	if types.IsFlat(t) {
		return types.FormatCpp(n, t, "")
	}
	return types.Describe(n, t)
}
