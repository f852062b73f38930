// Package collect selects the subjects a generator works on: the classes,
// enums, typedefs, global functions and namespaces matching requested
// names, closed over inner classes, typedef targets and the template
// instances their declarations need.
package collect

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/logger"
	"github.com/skn123/robin-sub001/internal/templates"
	"github.com/skn123/robin-sub001/internal/toolbox"
	"github.com/skn123/robin-sub001/internal/traverse"
	"github.com/skn123/robin-sub001/internal/types"
)

// Diagnostic is a warning recorded while collecting.
type Diagnostic struct {
	// Phase names the operation that recorded it.
	Phase string

	// Message describes the problem.
	Message string
}

func (d Diagnostic) String() string {
	return d.Phase + ": " + d.Message
}

// Options tune a Collector.
type Options struct {
	// SeparateClassTemplates keeps class templates out of the subjects and
	// in a set of their own.
	SeparateClassTemplates bool

	// MaxPasses bounds the implicit instantiation fixed point. Zero means
	// DefaultMaxPasses.
	MaxPasses int

	// Policy decides which aliases are kept when types are simplified.
	// Nil means toolbox.Transparent.
	Policy toolbox.Policy
}

// DefaultMaxPasses is the default bound on implicit instantiation passes.
const DefaultMaxPasses = 32

// Collector accumulates the subjects of one run.
type Collector struct {
	db      *graph.Database
	engine  *templates.Engine
	toolbox *toolbox.Toolbox
	opts    Options
	log     *zap.SugaredLogger

	subjects         *set[*graph.Aggregate]
	subjectTemplates *set[*graph.Aggregate]
	enums            *set[*graph.Enum]
	typedefs         *set[*graph.Alias]
	globalFuncs      *set[*graph.Routine]
	namespaces       *set[*graph.Namespace]
	diagnostics      []Diagnostic
}

// New creates an empty collector over db. Template instances are created
// through engine.
func New(db *graph.Database, engine *templates.Engine, opts Options) *Collector {
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultMaxPasses
	}
	return &Collector{
		db:               db,
		engine:           engine,
		toolbox:          toolbox.New(db, opts.Policy),
		opts:             opts,
		log:              logger.Named("collect"),
		subjects:         newSet[*graph.Aggregate](),
		subjectTemplates: newSet[*graph.Aggregate](),
		enums:            newSet[*graph.Enum](),
		typedefs:         newSet[*graph.Alias](),
		globalFuncs:      newSet[*graph.Routine](),
		namespaces:       newSet[*graph.Namespace](),
	}
}

// GlobalNamespace returns the root of the program.
func (c *Collector) GlobalNamespace() *graph.Namespace { return c.db.Global() }

// Toolbox returns the toolbox configured with the collector's policy.
func (c *Collector) Toolbox() *toolbox.Toolbox { return c.toolbox }

// Database returns the database being collected from.
func (c *Collector) Database() *graph.Database { return c.db }

// Engine returns the instantiation engine.
func (c *Collector) Engine() *templates.Engine { return c.engine }

// Subjects returns the collected classes in insertion order.
func (c *Collector) Subjects() []*graph.Aggregate { return c.subjects.list() }

// SubjectTemplates returns the collected class templates when they are
// kept separately.
func (c *Collector) SubjectTemplates() []*graph.Aggregate { return c.subjectTemplates.list() }

// Enums returns the collected enums.
func (c *Collector) Enums() []*graph.Enum { return c.enums.list() }

// Typedefs returns the collected typedefs.
func (c *Collector) Typedefs() []*graph.Alias { return c.typedefs.list() }

// GlobalFuncs returns the collected free functions and static member
// functions.
func (c *Collector) GlobalFuncs() []*graph.Routine { return c.globalFuncs.list() }

// Namespaces returns the collected namespaces.
func (c *Collector) Namespaces() []*graph.Namespace { return c.namespaces.list() }

// Diagnostics returns the warnings recorded so far.
func (c *Collector) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), c.diagnostics...)
}

// AddSubject adds a class directly.
func (c *Collector) AddSubject(agg *graph.Aggregate) { c.consume(agg) }

// Collect searches the global namespace and the externals for name.
func (c *Collector) Collect(name string) {
	c.CollectIn(c.db.Global().Scope(), name)
	c.CollectIn(c.db.Externals().Scope(), name)
}

// CollectIn searches scope and its nested namespaces for entities named
// name. A match is on the short name, the full name, or the general
// template name of a specialization. A matching namespace is collected
// together with everything under it.
func (c *Collector) CollectIn(scope *graph.Scope, name string) {
	for _, conn := range scope.Connections(graph.KindAggregate) {
		if agg, ok := c.db.Entity(conn.Contained).(*graph.Aggregate); ok && nameMatches(agg, name) {
			c.consume(agg)
		}
	}
	for _, conn := range scope.Connections(graph.KindEnum) {
		if enum, ok := c.db.Entity(conn.Contained).(*graph.Enum); ok && exposed(conn) && nameMatches(enum, name) {
			c.enums.add(enum)
		}
	}
	for _, conn := range scope.Connections(graph.KindAlias) {
		if alias, ok := c.db.Entity(conn.Contained).(*graph.Alias); ok && exposed(conn) && nameMatches(alias, name) {
			c.typedefs.add(alias)
		}
	}
	if _, inClass := scope.Owner().(*graph.Aggregate); !inClass {
		for _, r := range scope.Routines() {
			if nameMatches(r, name) {
				c.globalFuncs.add(r)
			}
		}
	}
	for _, ns := range scope.Namespaces() {
		if nameMatches(ns, name) {
			c.namespaces.add(ns)
			c.AutocollectIn(ns.Scope())
		}
		c.CollectIn(ns.Scope(), name)
	}
}

// Autocollect gathers every class, free function and typedef under the
// global namespace.
func (c *Collector) Autocollect() {
	c.AutocollectIn(c.db.Global().Scope())
}

// AutocollectIn gathers every class, free function and typedef under
// scope, descending into nested namespaces.
func (c *Collector) AutocollectIn(scope *graph.Scope) {
	for _, agg := range scope.Aggregates() {
		c.consume(agg)
	}
	for _, r := range scope.Routines() {
		c.globalFuncs.add(r)
	}
	for _, alias := range scope.Aliases() {
		c.typedefs.add(alias)
	}
	for _, ns := range scope.Namespaces() {
		c.AutocollectIn(ns.Scope())
	}
}

// GrabTypedefedClasses adds the classes and enums that collected typedefs
// name directly, without indirection.
func (c *Collector) GrabTypedefedClasses() {
	for _, alias := range c.typedefs.list() {
		leaf, ok := alias.AliasedType().(*types.Leaf)
		if !ok {
			continue
		}
		switch target := c.db.Entity(leaf.Entity).(type) {
		case *graph.Aggregate:
			if !target.IsDelegate() && !dependent(target) {
				c.consume(target)
			}
		case *graph.Enum:
			c.enums.add(target)
		}
	}
}

// GrabInnersAsWell adds the public inner classes of the subjects, and
// their public enums, typedefs and static functions.
func (c *Collector) GrabInnersAsWell() {
	var inners []*graph.Aggregate
	for _, subject := range c.subjects.list() {
		inners = c.grabInnersOf(subject, inners)
	}
	for _, inner := range inners {
		c.subjects.add(inner)
	}
}

func (c *Collector) grabInnersOf(subject *graph.Aggregate, inners []*graph.Aggregate) []*graph.Aggregate {
	scope := subject.Scope()
	for _, conn := range scope.Connections(graph.KindEnum) {
		if conn.Visibility == graph.Public {
			c.enums.add(c.db.Entity(conn.Contained).(*graph.Enum))
		}
	}
	for _, conn := range scope.Connections(graph.KindAlias) {
		if conn.Visibility == graph.Public {
			c.typedefs.add(c.db.Entity(conn.Contained).(*graph.Alias))
		}
	}
	for _, conn := range scope.Connections(graph.KindRoutine) {
		if conn.Visibility == graph.Public && conn.Storage == graph.Static {
			c.globalFuncs.add(c.db.Entity(conn.Contained).(*graph.Routine))
		}
	}
	for _, conn := range scope.Connections(graph.KindAggregate) {
		if conn.Visibility == graph.Public {
			inner := c.db.Entity(conn.Contained).(*graph.Aggregate)
			inners = append(inners, inner)
			inners = c.grabInnersOf(inner, inners)
		}
	}
	return inners
}

// TopologicallySortSubjects returns the subjects ordered so that no base
// follows a class deriving from it. With considerInstantiations, a
// templated base counts as its instance; otherwise as its general
// template.
func (c *Collector) TopologicallySortSubjects(considerInstantiations bool) []*graph.Aggregate {
	direct := traverse.DirectBase(c.db)
	resolve := direct
	if considerInstantiations && c.engine != nil {
		resolve = func(conn *graph.InheritanceConnection) *graph.Aggregate {
			base := direct(conn)
			if base == nil || !conn.IsTemplated() {
				return base
			}
			inst, ok := c.engine.Find(base, conn.BaseArgs)
			if !ok {
				return nil
			}
			return inst
		}
	}
	return traverse.TopoSort(c.subjects.list(), resolve)
}

func (c *Collector) consume(agg *graph.Aggregate) {
	if agg.IsTemplated() && c.opts.SeparateClassTemplates {
		c.subjectTemplates.add(agg)
		return
	}
	c.subjects.add(agg)
}

func (c *Collector) warnf(phase, format string, args ...any) {
	d := Diagnostic{Phase: phase, Message: fmt.Sprintf(format, args...)}
	c.diagnostics = append(c.diagnostics, d)
	c.log.Warnw(d.Message, "phase", phase)
}

// exposed reports whether a member is reachable by name from outside its
// container: namespace members and public class members are.
func exposed(conn *graph.ContainedConnection) bool {
	return conn.Visibility == graph.Public || conn.Visibility == graph.DontCare
}

// nameMatches compares name against the short name, the full name and,
// for a specialization, the name of its general template.
func nameMatches(e graph.Entity, name string) bool {
	if e.Name() == name || e.Base().FullName() == name {
		return true
	}
	if agg, ok := e.(*graph.Aggregate); ok {
		if general := agg.GeneralTemplate(); general != nil && general.Name() == name {
			return true
		}
	}
	return false
}
