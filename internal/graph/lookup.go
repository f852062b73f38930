package graph

import (
	"strings"

	"github.com/skn123/robin-sub001/internal/errors"
)

// ScopeSeparator separates the components of a qualified name.
const ScopeSeparator = "::"

// SplitQualified splits a qualified name on the scope separator, ignoring
// separators nested inside template argument brackets. A leading separator
// is dropped.
func SplitQualified(name string) []string {
	name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), ScopeSeparator))
	if name == "" {
		return nil
	}
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ':':
			if depth == 0 && i+1 < len(name) && name[i+1] == ':' {
				parts = append(parts, strings.TrimSpace(name[start:i]))
				start = i + 2
				i++
			}
		}
	}
	return append(parts, strings.TrimSpace(name[start:]))
}

// Lookup finds an entity by its fully qualified name, starting at the
// global namespace. With createMissing, absent intermediate components are
// created as namespaces and an absent final component as an incomplete
// aggregate, so that forward references can be linked before their
// definitions are seen.
func (db *Database) Lookup(qualified string, createMissing bool) (Entity, error) {
	parts := SplitQualified(qualified)
	if len(parts) == 0 {
		return nil, errors.NotFound(qualified)
	}
	var current Entity = db.global
	for i, part := range parts {
		next := db.member(current, part)
		if next == nil {
			if !createMissing {
				return nil, errors.NotFound(qualified)
			}
			scope := ScopeOf(current)
			if scope == nil {
				return nil, errors.Wrapf(errors.ErrElementNotFound, "%s: %s has no scope", qualified, current.Name())
			}
			if i < len(parts)-1 {
				next = db.NewNamespace(part)
			} else {
				agg := db.NewAggregate(part, AggregateClass)
				agg.incomplete = true
				next = agg
			}
			scope.AddMember(next, PublicMember)
		}
		current = next
	}
	return current, nil
}

// LookupIn resolves a possibly qualified name relative to scope owner
// without searching enclosing scopes.
func (db *Database) LookupIn(owner Entity, name string) (Entity, bool) {
	parts := SplitQualified(name)
	if len(parts) == 0 {
		return nil, false
	}
	current := owner
	for _, part := range parts {
		current = db.member(current, part)
		if current == nil {
			return nil, false
		}
	}
	return current, true
}

// Resolve resolves name as seen from inside the entity from: the first
// component is searched in from and then in each enclosing container up to
// the global namespace; the remaining components are searched downwards.
// A name with a leading separator is resolved from the global namespace.
func (db *Database) Resolve(from Entity, name string) (Entity, bool) {
	if strings.HasPrefix(strings.TrimSpace(name), ScopeSeparator) || from == nil {
		e, err := db.Lookup(name, false)
		return e, err == nil
	}
	seen := map[EntityID]bool{}
	for scope := from; scope != nil && !seen[scope.ID()]; scope = enclosing(scope) {
		seen[scope.ID()] = true
		if e, ok := db.LookupIn(scope, name); ok {
			return e, true
		}
	}
	if e, ok := db.LookupIn(db.global, name); ok {
		return e, true
	}
	return db.LookupIn(db.externals, name)
}

// member finds a direct member of owner that may appear inside a qualified
// name. Aggregates and templated routines also expose the delegates of
// their typename template parameters, after the regular members.
func (db *Database) member(owner Entity, name string) Entity {
	if scope := ScopeOf(owner); scope != nil {
		if e := scope.findScopeLike(name); e != nil {
			return e
		}
	}
	if owner.Base().IsTemplated() {
		if e := owner.Base().delegate(name); e != nil {
			return e
		}
	}
	return nil
}

// enclosing returns the container of e; a template delegate is enclosed by
// the entity declaring its parameter.
func enclosing(e Entity) Entity {
	if agg, ok := e.(*Aggregate); ok && agg.IsDelegate() {
		return agg.DelegateOwner()
	}
	return e.Base().Container()
}

// ResolveOrCreate resolves name from inside from, creating what is missing.
// When the first component names a template parameter delegate, the rest
// is created inside the delegate as incomplete aggregates; these trait
// references ("T::value_type") are bound when the template is instantiated.
// Any other unknown name is created from the global namespace as Lookup
// does with createMissing.
func (db *Database) ResolveOrCreate(from Entity, name string) (Entity, error) {
	if e, ok := db.Resolve(from, name); ok {
		return e, nil
	}
	parts := SplitQualified(name)
	if from != nil && len(parts) > 1 && !strings.HasPrefix(strings.TrimSpace(name), ScopeSeparator) {
		if head, ok := db.Resolve(from, parts[0]); ok {
			if agg, ok := head.(*Aggregate); ok && agg.IsDelegate() {
				return db.createUnder(agg, parts[1:]), nil
			}
		}
	}
	return db.Lookup(name, true)
}

// CreateIn resolves a possibly qualified name downwards from owner,
// creating the missing components as incomplete aggregates.
func (db *Database) CreateIn(owner Entity, name string) Entity {
	return db.createUnder(owner, SplitQualified(name))
}

func (db *Database) createUnder(owner Entity, parts []string) Entity {
	current := owner
	for _, part := range parts {
		next := db.member(current, part)
		if next == nil {
			scope := ScopeOf(current)
			if scope == nil {
				return current
			}
			agg := db.NewAggregate(part, AggregateClass)
			agg.incomplete = true
			scope.AddMember(agg, PublicMember)
			next = agg
		}
		current = next
	}
	return current
}
