package collect

import (
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/traverse"
	"github.com/skn123/robin-sub001/internal/types"
)

// InvestImplicitInstantiations instantiates every class template named
// with concrete arguments in the collected declarations: the bases and
// public signatures of non-template subjects, the signatures of
// non-template global functions and the targets of typedefs. New
// instances become subjects and are scanned in turn until a pass adds
// nothing. It returns the number of instances added.
//
// Types that depend on a template parameter, and types naming entities
// invisible from outside their class, are skipped. Failed instantiations
// are recorded as diagnostics once each.
func (c *Collector) InvestImplicitInstantiations() int {
	if c.engine == nil {
		return 0
	}
	failed := make(map[string]bool)
	added := 0
	for pass := 1; ; pass++ {
		if pass > c.opts.MaxPasses {
			c.warnf("instantiate", "gave up after %d passes", c.opts.MaxPasses)
			return added
		}
		n := 0
		for _, t := range c.obligations() {
			for _, ti := range types.Instantiations(t) {
				inst, err := c.engine.InstantiateType(ti)
				if err != nil {
					msg := err.Error()
					if !failed[msg] {
						failed[msg] = true
						c.warnf("instantiate", "%s", msg)
					}
					continue
				}
				if c.subjects.add(inst) {
					n++
				}
			}
		}
		c.log.Debugw("instantiation pass", "pass", pass, "added", n)
		added += n
		if n == 0 {
			return added
		}
	}
}

// obligations returns the concrete types of the collected declarations
// that may name template instances.
func (c *Collector) obligations() []types.Type {
	var out []types.Type
	keep := func(t types.Type) {
		if t == nil || c.dependentType(t) || !c.toolbox.IsVisibleType(t) {
			return
		}
		if len(types.Instantiations(t)) > 0 {
			out = append(out, t)
		}
	}
	for _, subject := range c.subjects.list() {
		if subject.IsTemplated() || dependent(subject) {
			continue
		}
		traverse.TypesInAggregate(subject, keep, false, graph.Public)
	}
	for _, r := range c.globalFuncs.list() {
		if !r.IsTemplated() {
			traverse.TypesInRoutine(r, keep)
		}
	}
	for _, alias := range c.typedefs.list() {
		keep(alias.AliasedType())
	}
	return out
}

// InvestImpliedEnums adds the enums named in the public signatures of the
// subjects and of the global functions.
func (c *Collector) InvestImpliedEnums() int {
	n := 0
	visit := func(t types.Type) {
		for _, id := range types.Entities(t) {
			if enum, ok := c.db.Entity(id).(*graph.Enum); ok && c.enums.add(enum) {
				n++
			}
		}
	}
	for _, subject := range c.subjects.list() {
		traverse.TypesIn(subject.Scope(), visit, false, graph.Public)
	}
	for _, r := range c.globalFuncs.list() {
		traverse.TypesInRoutine(r, visit)
	}
	return n
}

func (c *Collector) dependentType(t types.Type) bool {
	found := false
	types.Walk(t, func(n types.Type) bool {
		if leaf, ok := n.(*types.Leaf); ok && dependent(c.db.Entity(leaf.Entity)) {
			found = true
		}
		return !found
	})
	return found
}

// dependent reports whether e is a template parameter, is reached through
// one as in "T::value_type", or is declared inside a class template.
func dependent(e graph.Entity) bool {
	for cur := e; cur != nil; cur = cur.Base().Container() {
		agg, ok := cur.(*graph.Aggregate)
		if !ok {
			continue
		}
		if agg.IsDelegate() || (cur != e && agg.IsTemplated()) {
			return true
		}
	}
	return false
}
