// Package traverse walks the program database on behalf of generators.
package traverse

import (
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/types"
)

// TypeVisitor receives each type found during a walk.
type TypeVisitor func(t types.Type)

// RoutineVisitor receives each routine found during a walk.
type RoutineVisitor func(r *graph.Routine)

// AggregateVisitor receives each aggregate found during a walk.
type AggregateVisitor func(a *graph.Aggregate)

// TypesIn visits the signature types of the routines, the field types and
// the aliased types of the members of s with at least minVisibility.
// Templated routines are skipped unless intoTemplates is set. Members whose
// types are unknown are skipped.
func TypesIn(s *graph.Scope, visit TypeVisitor, intoTemplates bool, minVisibility graph.Visibility) {
	for _, conn := range s.Connections(graph.KindRoutine) {
		r, ok := entity[*graph.Routine](s, conn)
		if !ok || conn.Visibility < minVisibility || (!intoTemplates && r.IsTemplated()) {
			continue
		}
		TypesInRoutine(r, visit)
	}
	for _, conn := range s.Connections(graph.KindField) {
		f, ok := entity[*graph.Field](s, conn)
		if !ok || conn.Visibility < minVisibility {
			continue
		}
		if t, err := f.Type(); err == nil {
			visit(t)
		}
	}
	for _, conn := range s.Connections(graph.KindAlias) {
		a, ok := entity[*graph.Alias](s, conn)
		if !ok || conn.Visibility < minVisibility || a.AliasedType() == nil {
			continue
		}
		visit(a.AliasedType())
	}
}

// TypesInAggregate is TypesIn over the scope of a, followed by the bases
// of a with at least minVisibility.
func TypesInAggregate(a *graph.Aggregate, visit TypeVisitor, intoTemplates bool, minVisibility graph.Visibility) {
	TypesIn(a.Scope(), visit, intoTemplates, minVisibility)
	for _, base := range a.Bases() {
		if base.Visibility >= minVisibility {
			visit(base.BaseAsType())
		}
	}
}

// TypesInRoutine visits the return type and the parameter types of r.
func TypesInRoutine(r *graph.Routine, visit TypeVisitor) {
	if t, err := r.ReturnType(); err == nil {
		visit(t)
	}
	for _, p := range r.Parameters() {
		if t, err := p.Type(); err == nil {
			visit(t)
		}
	}
}

// Routines visits the routines of s and, recursively, of its aggregates
// and namespaces.
func Routines(s *graph.Scope, visit RoutineVisitor) {
	for _, r := range s.Routines() {
		visit(r)
	}
	for _, a := range s.Aggregates() {
		Routines(a.Scope(), visit)
	}
	for _, ns := range s.Namespaces() {
		Routines(ns.Scope(), visit)
	}
}

// Aggregates visits the aggregates of s, each followed by its nested
// aggregates, then those found in nested namespaces.
func Aggregates(s *graph.Scope, visit AggregateVisitor) {
	for _, a := range s.Aggregates() {
		visit(a)
		Aggregates(a.Scope(), visit)
	}
	for _, ns := range s.Namespaces() {
		Aggregates(ns.Scope(), visit)
	}
}

func entity[T graph.Entity](s *graph.Scope, conn *graph.ContainedConnection) (T, bool) {
	e, ok := s.Owner().Base().Database().Entity(conn.Contained).(T)
	return e, ok
}
