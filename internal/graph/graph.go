// Package graph provides the in-memory program database.
//
// The Database is an arena of entities addressed by EntityID handles, with
// a secondary index by kind. It owns the global namespace, the namespace of
// external declarations, the primitive types and the macros of a run. The
// graph only grows: entities are never removed.
package graph

import (
	"strings"
	"sync"

	"github.com/skn123/robin-sub001/internal/types"
)

// ErrorName is the name of the placeholder entity used for a type name
// that could not be parsed.
const ErrorName = "<error>"

// Database owns every entity of one run.
//
// Reads are safe from several goroutines once population is complete;
// additions take the write lock.
type Database struct {
	mu       sync.RWMutex
	entities []Entity
	byKind   map[EntityKind][]EntityID

	global     *Namespace
	externals  *Namespace
	primitives map[string]*Primitive
	macros     []*Macro
	sources    []string
	errorLeaf  *Aggregate
}

// NewDatabase creates a database holding an empty global namespace and
// an empty externals namespace.
func NewDatabase() *Database {
	db := &Database{
		byKind:     make(map[EntityKind][]EntityID),
		primitives: make(map[string]*Primitive),
	}
	db.global = db.NewNamespace("")
	db.externals = db.NewNamespace("")
	db.externals.external = true
	return db
}

// register assigns the next handle to e.
func (db *Database) register(e Entity, h *Header, name string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	h.db = db
	h.name = name
	db.entities = append(db.entities, e)
	h.id = EntityID(len(db.entities))
	db.byKind[e.Kind()] = append(db.byKind[e.Kind()], h.id)
}

// Entity returns the entity with the given handle, or nil.
func (db *Database) Entity(id EntityID) Entity {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if id == types.NoEntity || int(id) > len(db.entities) {
		return nil
	}
	return db.entities[id-1]
}

// Len returns the number of entities.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.entities)
}

// EntitiesByKind returns every entity of the given kind in creation order.
func (db *Database) EntitiesByKind(kind EntityKind) []Entity {
	db.mu.RLock()
	defer db.mu.RUnlock()
	ids := db.byKind[kind]
	out := make([]Entity, len(ids))
	for i, id := range ids {
		out[i] = db.entities[id-1]
	}
	return out
}

// CountByKind returns the number of entities of the given kind.
func (db *Database) CountByKind(kind EntityKind) int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.byKind[kind])
}

// Global returns the global namespace.
func (db *Database) Global() *Namespace { return db.global }

// Externals returns the namespace holding declarations that come from
// outside the analyzed sources.
func (db *Database) Externals() *Namespace { return db.externals }

// NewNamespace creates a namespace without a container.
func (db *Database) NewNamespace(name string) *Namespace {
	n := &Namespace{}
	db.register(n, &n.Header, name)
	n.scope = newScope(db, n.id, KindNamespace)
	return n
}

// NewAggregate creates an aggregate without a container.
func (db *Database) NewAggregate(name string, kind AggregateKind) *Aggregate {
	a := &Aggregate{aggregateKind: kind}
	db.register(a, &a.Header, orDefault(name))
	a.scope = newScope(db, a.id, KindAggregate)
	return a
}

// NewRoutine creates a routine without a container.
func (db *Database) NewRoutine(name string) *Routine {
	r := &Routine{}
	db.register(r, &r.Header, orDefault(name))
	return r
}

// NewField creates a field of the given type.
func (db *Database) NewField(name string, typ types.Type) *Field {
	f := &Field{typ: typ}
	db.register(f, &f.Header, orDefault(name))
	return f
}

// NewParameter creates a routine parameter of the given type.
func (db *Database) NewParameter(name string, typ types.Type) *Parameter {
	p := &Parameter{typ: typ}
	db.register(p, &p.Header, name)
	return p
}

// NewAlias creates a typedef of the given type.
func (db *Database) NewAlias(name string, aliased types.Type) *Alias {
	a := &Alias{aliased: aliased}
	db.register(a, &a.Header, orDefault(name))
	return a
}

// NewEnum creates an empty enum.
func (db *Database) NewEnum(name string) *Enum {
	e := &Enum{}
	db.register(e, &e.Header, orDefault(name))
	return e
}

// NewGroup creates an empty presentation group.
func (db *Database) NewGroup(name string) *Group {
	g := &Group{}
	db.register(g, &g.Header, orDefault(name))
	g.scope = newScope(db, g.id, KindGroup)
	return g
}

// Primitive returns the primitive type with the given keyword, creating
// it on first use.
func (db *Database) Primitive(keyword string) *Primitive {
	db.mu.RLock()
	p, ok := db.primitives[keyword]
	db.mu.RUnlock()
	if ok {
		return p
	}
	p = &Primitive{}
	db.register(p, &p.Header, keyword)
	db.mu.Lock()
	db.primitives[keyword] = p
	db.mu.Unlock()
	return p
}

// Primitives returns the primitive types created so far.
func (db *Database) Primitives() []*Primitive {
	out := make([]*Primitive, 0)
	for _, e := range db.EntitiesByKind(KindPrimitive) {
		out = append(out, e.(*Primitive))
	}
	return out
}

// ErrorEntity returns the placeholder standing in for names that could
// not be parsed.
func (db *Database) ErrorEntity() *Aggregate {
	if db.errorLeaf == nil {
		db.errorLeaf = db.NewAggregate(ErrorName, AggregateClass)
	}
	return db.errorLeaf
}

// AddMacro records a preprocessor definition.
func (db *Database) AddMacro(name string, params []string, body string) *Macro {
	m := &Macro{params: params, body: body}
	db.register(m, &m.Header, name)
	db.mu.Lock()
	db.macros = append(db.macros, m)
	db.mu.Unlock()
	return m
}

// Macros returns the macros in definition order.
func (db *Database) Macros() []*Macro {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]*Macro(nil), db.macros...)
}

// AddSourceFile records an analyzed source file.
func (db *Database) AddSourceFile(path string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.sources = append(db.sources, path)
}

// SourceFiles returns the analyzed source files.
func (db *Database) SourceFiles() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]string(nil), db.sources...)
}

// FullName returns the name of id qualified with its containers, as in
// "ns::Outer::Inner". The global namespace contributes nothing.
func (db *Database) FullName(id EntityID) string {
	e := db.Entity(id)
	if e == nil {
		return ErrorName
	}
	var parts []string
	seen := map[EntityID]bool{}
	for e != nil && !seen[e.ID()] {
		seen[e.ID()] = true
		if e.Name() != "" {
			parts = append(parts, e.Name())
		}
		e = e.Base().Container()
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "::")
}

// TypeName implements types.Namer.
func (db *Database) TypeName(id EntityID) string {
	return db.FullName(id)
}

// Stats summarizes the database.
type Stats struct {
	Entities   int
	Namespaces int
	Aggregates int
	Routines   int
	Fields     int
	Aliases    int
	Enums      int
	Primitives int
	Macros     int
}

// Stats returns entity counts by kind.
func (db *Database) Stats() Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return Stats{
		Entities:   len(db.entities),
		Namespaces: len(db.byKind[KindNamespace]),
		Aggregates: len(db.byKind[KindAggregate]),
		Routines:   len(db.byKind[KindRoutine]),
		Fields:     len(db.byKind[KindField]),
		Aliases:    len(db.byKind[KindAlias]),
		Enums:      len(db.byKind[KindEnum]),
		Primitives: len(db.byKind[KindPrimitive]),
		Macros:     len(db.byKind[KindMacro]),
	}
}

func orDefault(name string) string {
	if name == "" {
		return DefaultName
	}
	return name
}
