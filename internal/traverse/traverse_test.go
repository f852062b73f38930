package traverse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/types"
)

func names[T graph.Entity](list []T) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.Name()
	}
	return out
}

func addClass(db *graph.Database, scope *graph.Scope, name string) *graph.Aggregate {
	a := db.NewAggregate(name, graph.AggregateClass)
	scope.AddMember(a, graph.PublicMember)
	return a
}

func TestTopoSort(t *testing.T) {
	t.Parallel()

	t.Run("BaseBeforeDerived", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		base := addClass(db, db.Global().Scope(), "Base")
		derived := addClass(db, db.Global().Scope(), "Derived")
		db.AddBase(derived, base, nil, graph.Public)

		sorted := TopoSort([]*graph.Aggregate{derived, base}, DirectBase(db))

		assert.Equal(t, []string{"Base", "Derived"}, names(sorted))
	})

	t.Run("IndirectBases", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		a := addClass(db, db.Global().Scope(), "A")
		b := addClass(db, db.Global().Scope(), "B")
		c := addClass(db, db.Global().Scope(), "C")
		d := addClass(db, db.Global().Scope(), "D")
		db.AddBase(d, c, nil, graph.Public)
		db.AddBase(c, b, nil, graph.Public)
		db.AddBase(b, a, nil, graph.Public)
		db.AddBase(d, a, nil, graph.Public)

		sorted := TopoSort([]*graph.Aggregate{d, c, b, a}, DirectBase(db))

		assert.Equal(t, []string{"A", "B", "C", "D"}, names(sorted))
	})

	t.Run("IgnoresBasesOutsideSubjects", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		outside := addClass(db, db.Global().Scope(), "Outside")
		derived := addClass(db, db.Global().Scope(), "Derived")
		db.AddBase(derived, outside, nil, graph.Public)

		sorted := TopoSort([]*graph.Aggregate{derived}, DirectBase(db))

		assert.Equal(t, []string{"Derived"}, names(sorted))
	})

	t.Run("CycleTerminatesWithPermutation", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		a := addClass(db, db.Global().Scope(), "A")
		b := addClass(db, db.Global().Scope(), "B")
		c := addClass(db, db.Global().Scope(), "C")
		root := addClass(db, db.Global().Scope(), "Root")
		db.AddBase(a, b, nil, graph.Public)
		db.AddBase(b, a, nil, graph.Public)
		db.AddBase(c, a, nil, graph.Public)

		sorted := TopoSort([]*graph.Aggregate{a, b, c, root}, DirectBase(db))

		assert.ElementsMatch(t, []string{"A", "B", "C", "Root"}, names(sorted))
		assert.Equal(t, "Root", sorted[0].Name())
	})

	t.Run("DuplicatesEmittedOnce", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		a := addClass(db, db.Global().Scope(), "A")

		sorted := TopoSort([]*graph.Aggregate{a, a}, DirectBase(db))

		assert.Len(t, sorted, 1)
	})
}

func TestTypesIn(t *testing.T) {
	t.Parallel()

	db := graph.NewDatabase()
	intT := types.NewLeaf(db.Primitive("int").ID())
	charT := types.NewLeaf(db.Primitive("char").ID())
	longT := types.NewLeaf(db.Primitive("long").ID())
	base := addClass(db, db.Global().Scope(), "Base")
	cls := addClass(db, db.Global().Scope(), "Cls")
	db.AddBase(cls, base, nil, graph.Public)

	get := db.NewRoutine("get")
	get.SetReturnType(intT)
	get.AddParameter(db.NewParameter("c", charT))
	cls.Scope().AddMember(get, graph.PublicMember)

	tmpl := db.NewRoutine("cast")
	db.AddTypenameParameter(tmpl, "U")
	tmpl.SetReturnType(longT)
	cls.Scope().AddMember(tmpl, graph.PublicMember)

	hidden := db.NewField("secret", longT)
	cls.Scope().AddMember(hidden, graph.Membership{Visibility: graph.Private})
	cls.Scope().AddMember(db.NewField("unknown", nil), graph.PublicMember)
	cls.Scope().AddMember(db.NewAlias("size_type", types.PointerTo(intT)), graph.PublicMember)

	collect := func(intoTemplates bool, minVisibility graph.Visibility) []string {
		var out []string
		TypesInAggregate(cls, func(t types.Type) {
			out = append(out, types.FormatCpp(db, t, ""))
		}, intoTemplates, minVisibility)
		return out
	}

	t.Run("PublicOnly", func(t *testing.T) {
		assert.Equal(t, []string{"int", "char", "int *", "Base"}, collect(false, graph.Public))
	})

	t.Run("IntoTemplatesAndPrivate", func(t *testing.T) {
		assert.Equal(t, []string{"int", "char", "long", "long", "int *", "Base"}, collect(true, graph.DontCare))
	})
}

func TestRoutinesAndAggregates(t *testing.T) {
	t.Parallel()

	db := graph.NewDatabase()
	ns := db.NewNamespace("ns")
	db.Global().Scope().AddMember(ns, graph.PublicMember)
	outer := addClass(db, ns.Scope(), "Outer")
	inner := addClass(db, outer.Scope(), "Inner")
	addClass(db, db.Global().Scope(), "Top")

	for _, r := range []struct {
		scope *graph.Scope
		name  string
	}{{db.Global().Scope(), "free"}, {outer.Scope(), "method"}, {inner.Scope(), "deep"}} {
		r.scope.AddMember(db.NewRoutine(r.name), graph.PublicMember)
	}

	var routines []string
	Routines(db.Global().Scope(), func(r *graph.Routine) { routines = append(routines, r.Name()) })
	assert.Equal(t, []string{"free", "method", "deep"}, routines)

	var aggregates []*graph.Aggregate
	Aggregates(db.Global().Scope(), func(a *graph.Aggregate) { aggregates = append(aggregates, a) })
	require.Len(t, aggregates, 3)
	assert.Equal(t, []string{"Top", "Outer", "Inner"}, names(aggregates))
}
