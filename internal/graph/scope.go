package graph

import (
	"github.com/skn123/robin-sub001/internal/errors"
)

// Scope is the per-kind ordered collection of the members of a namespace,
// an aggregate or a group.
type Scope struct {
	db         *Database
	owner      EntityID
	ownerKind  EntityKind
	routines   []*ContainedConnection
	fields     []*ContainedConnection
	aggregates []*ContainedConnection
	namespaces []*ContainedConnection
	aliases    []*ContainedConnection
	enums      []*ContainedConnection
	groups     []*ContainedConnection
	friends    []*ContainedConnection
}

func newScope(db *Database, owner EntityID, kind EntityKind) *Scope {
	return &Scope{db: db, owner: owner, ownerKind: kind}
}

// Owner returns the entity owning the scope.
func (s *Scope) Owner() Entity { return s.db.Entity(s.owner) }

// AddMember appends e to the scope. Namespace members get DontCare
// attributes. Aggregate and namespace members get their back-reference
// set; group members keep their real container and only record the group.
//
// Adding an entity that already has a container to a non-group scope is a
// programming error and panics.
func (s *Scope) AddMember(e Entity, m Membership) *ContainedConnection {
	if s.ownerKind == KindNamespace {
		m = Membership{}
	}
	conn := &ContainedConnection{
		Container:  s.owner,
		Contained:  e.ID(),
		Kind:       e.Kind(),
		Visibility: m.Visibility,
		Virtuality: m.Virtuality,
		Storage:    m.Storage,
	}
	h := e.Base()
	if s.ownerKind == KindGroup {
		h.group = s.owner
	} else {
		if h.uplink != nil {
			panic(errors.InappropriateKind("%s is already contained in %s", h.name, s.db.FullName(h.uplink.Container)))
		}
		h.uplink = conn
	}

	switch e.Kind() {
	case KindRoutine:
		s.routines = append(s.routines, conn)
	case KindField:
		s.fields = append(s.fields, conn)
	case KindAggregate:
		s.aggregates = append(s.aggregates, conn)
	case KindNamespace:
		s.namespaces = append(s.namespaces, conn)
	case KindAlias:
		s.aliases = append(s.aliases, conn)
	case KindEnum:
		s.enums = append(s.enums, conn)
	case KindGroup:
		s.groups = append(s.groups, conn)
	default:
		panic(errors.InappropriateKind("%s cannot be a scope member", e.Kind()))
	}
	return conn
}

// AddFriend records a friend declaration. Friends keep their own container.
func (s *Scope) AddFriend(e Entity) *ContainedConnection {
	conn := &ContainedConnection{Container: s.owner, Contained: e.ID(), Kind: e.Kind()}
	s.friends = append(s.friends, conn)
	return conn
}

// Connections returns the containment edges of one member kind.
func (s *Scope) Connections(kind EntityKind) []*ContainedConnection {
	switch kind {
	case KindRoutine:
		return s.routines
	case KindField:
		return s.fields
	case KindAggregate:
		return s.aggregates
	case KindNamespace:
		return s.namespaces
	case KindAlias:
		return s.aliases
	case KindEnum:
		return s.enums
	case KindGroup:
		return s.groups
	}
	return nil
}

// Friends returns the friend declarations.
func (s *Scope) Friends() []*ContainedConnection { return s.friends }

// Routines returns the member routines.
func (s *Scope) Routines() []*Routine { return members[*Routine](s, s.routines) }

// Fields returns the member fields.
func (s *Scope) Fields() []*Field { return members[*Field](s, s.fields) }

// Aggregates returns the nested aggregates.
func (s *Scope) Aggregates() []*Aggregate { return members[*Aggregate](s, s.aggregates) }

// Namespaces returns the nested namespaces.
func (s *Scope) Namespaces() []*Namespace { return members[*Namespace](s, s.namespaces) }

// Aliases returns the member typedefs.
func (s *Scope) Aliases() []*Alias { return members[*Alias](s, s.aliases) }

// Enums returns the member enums.
func (s *Scope) Enums() []*Enum { return members[*Enum](s, s.enums) }

// Groups returns the presentation groups.
func (s *Scope) Groups() []*Group { return members[*Group](s, s.groups) }

// GroupByName returns the group with the given name.
func (s *Scope) GroupByName(name string) (*Group, bool) {
	for _, g := range s.Groups() {
		if g.Name() == name {
			return g, true
		}
	}
	return nil, false
}

// Len returns the number of members, friends excluded.
func (s *Scope) Len() int {
	return len(s.routines) + len(s.fields) + len(s.aggregates) + len(s.namespaces) +
		len(s.aliases) + len(s.enums) + len(s.groups)
}

// Find returns the first member named name, searching aggregates,
// namespaces, enums, aliases, routines and fields in that order.
func (s *Scope) Find(name string) Entity {
	for _, list := range [][]*ContainedConnection{s.aggregates, s.namespaces, s.enums, s.aliases, s.routines, s.fields} {
		for _, conn := range list {
			if e := s.db.Entity(conn.Contained); e != nil && e.Name() == name {
				return e
			}
		}
	}
	return nil
}

// findScopeLike returns the first aggregate, namespace, enum or alias named
// name; these are the members that can appear inside a qualified type name.
func (s *Scope) findScopeLike(name string) Entity {
	for _, list := range [][]*ContainedConnection{s.aggregates, s.namespaces, s.enums, s.aliases} {
		for _, conn := range list {
			if e := s.db.Entity(conn.Contained); e != nil && e.Name() == name {
				return e
			}
		}
	}
	return nil
}

func members[T Entity](s *Scope, conns []*ContainedConnection) []T {
	out := make([]T, 0, len(conns))
	for _, conn := range conns {
		if e, ok := s.db.Entity(conn.Contained).(T); ok {
			out = append(out, e)
		}
	}
	return out
}
