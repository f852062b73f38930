package collect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/templates"
	"github.com/skn123/robin-sub001/internal/types"
)

var privateMember = graph.Membership{Visibility: graph.Private, Virtuality: graph.NonVirtual, Storage: graph.Extern}

func names[T graph.Entity](list []T) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.Base().FullName()
	}
	return out
}

func leafOf(e graph.Entity) types.Type { return types.NewLeaf(e.ID()) }

func addClass(db *graph.Database, scope *graph.Scope, name string) *graph.Aggregate {
	a := db.NewAggregate(name, graph.AggregateClass)
	scope.AddMember(a, graph.PublicMember)
	return a
}

func addRoutine(db *graph.Database, scope *graph.Scope, name string, ret types.Type, m graph.Membership) *graph.Routine {
	r := db.NewRoutine(name)
	r.SetReturnType(ret)
	scope.AddMember(r, m)
	return r
}

// newVec declares "template<class T> class Vec" in the global namespace
// with a public "T &at(int)" and a private "T *data".
func newVec(db *graph.Database) *graph.Aggregate {
	vec := addClass(db, db.Global().Scope(), "Vec")
	t := types.NewLeaf(db.AddTypenameParameter(vec, "T").Delegate())
	addRoutine(db, vec.Scope(), "at", types.ReferenceTo(t), graph.PublicMember)
	vec.Scope().AddMember(db.NewField("data", types.PointerTo(t)), privateMember)
	return vec
}

func vecOf(vec *graph.Aggregate, t types.Type) types.Type {
	return types.Instantiate(vec.ID(), types.Typename(t))
}

func newCollector(db *graph.Database) *Collector {
	return New(db, templates.NewEngine(db), Options{})
}

func TestCollector_Collect(t *testing.T) {
	t.Parallel()

	t.Run("RecursiveDescentMatchesWholeNames", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		ns := db.NewNamespace("N")
		db.Global().Scope().AddMember(ns, graph.PublicMember)
		addClass(db, ns.Scope(), "Foo")
		addClass(db, ns.Scope(), "FooBar")
		c := newCollector(db)

		c.Collect("Foo")

		assert.Equal(t, []string{"N::Foo"}, names(c.Subjects()))
	})

	t.Run("FullNameMatches", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		a := db.NewNamespace("A")
		b := db.NewNamespace("B")
		db.Global().Scope().AddMember(a, graph.PublicMember)
		db.Global().Scope().AddMember(b, graph.PublicMember)
		addClass(db, a.Scope(), "Foo")
		addClass(db, b.Scope(), "Foo")
		c := newCollector(db)

		c.Collect("B::Foo")

		assert.Equal(t, []string{"B::Foo"}, names(c.Subjects()))
	})

	t.Run("GeneralTemplateNameMatchesInstances", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		vec := newVec(db)
		e := templates.NewEngine(db)
		_, err := e.Instantiate(vec, []types.TemplateArgument{types.Typename(leafOf(db.Primitive("int")))})
		require.NoError(t, err)
		c := New(db, e, Options{SeparateClassTemplates: true})

		c.Collect("Vec")

		assert.Equal(t, []string{"Vec<int>"}, names(c.Subjects()))
		assert.Equal(t, []string{"Vec"}, names(c.SubjectTemplates()))
	})

	t.Run("EnumsTypedefsAndFunctions", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		global := db.Global().Scope()
		cls := addClass(db, global, "Widget")
		global.AddMember(db.NewEnum("Mode"), graph.PublicMember)
		global.AddMember(db.NewAlias("Handle", leafOf(cls)), graph.PublicMember)
		addRoutine(db, global, "Mode", nil, graph.PublicMember)
		cls.Scope().AddMember(db.NewEnum("Mode"), privateMember)
		c := newCollector(db)

		c.Collect("Mode")
		c.Collect("Handle")

		assert.Equal(t, []string{"Mode"}, names(c.Enums()))
		assert.Equal(t, []string{"Handle"}, names(c.Typedefs()))
		assert.Equal(t, []string{"Mode"}, names(c.GlobalFuncs()))
		assert.Empty(t, c.Subjects())
	})

	t.Run("MemberFunctionsAreNotGlobal", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		cls := addClass(db, db.Global().Scope(), "Widget")
		addRoutine(db, cls.Scope(), "draw", nil, graph.PublicMember)
		c := newCollector(db)

		c.Collect("draw")

		assert.Empty(t, c.GlobalFuncs())
	})

	t.Run("MatchingNamespaceCollectsEverything", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		ns := db.NewNamespace("N")
		db.Global().Scope().AddMember(ns, graph.PublicMember)
		addClass(db, ns.Scope(), "Foo")
		addClass(db, ns.Scope(), "Bar")
		addRoutine(db, ns.Scope(), "run", nil, graph.PublicMember)
		c := newCollector(db)

		c.Collect("N")

		assert.Equal(t, []string{"N"}, names(c.Namespaces()))
		assert.Equal(t, []string{"N::Foo", "N::Bar"}, names(c.Subjects()))
		assert.Equal(t, []string{"N::run"}, names(c.GlobalFuncs()))
	})

	t.Run("RepeatedCollectIsIdempotent", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		addClass(db, db.Global().Scope(), "Foo")
		c := newCollector(db)

		c.Collect("Foo")
		c.Collect("Foo")

		assert.Len(t, c.Subjects(), 1)
	})
}

func TestCollector_Autocollect(t *testing.T) {
	t.Parallel()
	db := graph.NewDatabase()
	global := db.Global().Scope()
	ns := db.NewNamespace("ns")
	global.AddMember(ns, graph.PublicMember)
	addClass(db, global, "A")
	addClass(db, ns.Scope(), "B")
	addRoutine(db, ns.Scope(), "f", nil, graph.PublicMember)
	global.AddMember(db.NewAlias("Int", leafOf(db.Primitive("int"))), graph.PublicMember)
	c := newCollector(db)

	c.Autocollect()

	assert.Equal(t, []string{"A", "ns::B"}, names(c.Subjects()))
	assert.Equal(t, []string{"ns::f"}, names(c.GlobalFuncs()))
	assert.Equal(t, []string{"Int"}, names(c.Typedefs()))
	assert.Same(t, db.Global(), c.GlobalNamespace())
}

func TestCollector_GrabTypedefedClasses(t *testing.T) {
	t.Parallel()
	db := graph.NewDatabase()
	global := db.Global().Scope()
	foo := addClass(db, global, "Foo")
	color := db.NewEnum("Color")
	global.AddMember(color, graph.PublicMember)
	global.AddMember(db.NewAlias("FooAlias", leafOf(foo)), graph.PublicMember)
	global.AddMember(db.NewAlias("ColorAlias", leafOf(color)), graph.PublicMember)
	global.AddMember(db.NewAlias("FooPtr", types.PointerTo(leafOf(foo))), graph.PublicMember)
	c := newCollector(db)
	c.Collect("FooAlias")
	c.Collect("ColorAlias")
	c.Collect("FooPtr")

	c.GrabTypedefedClasses()

	assert.Equal(t, []string{"Foo"}, names(c.Subjects()))
	assert.Equal(t, []string{"Color"}, names(c.Enums()))
}

func TestCollector_GrabInnersAsWell(t *testing.T) {
	t.Parallel()
	db := graph.NewDatabase()
	outer := addClass(db, db.Global().Scope(), "Outer")
	inner := addClass(db, outer.Scope(), "Inner")
	addClass(db, inner.Scope(), "Deep")
	outer.Scope().AddMember(db.NewAggregate("Hidden", graph.AggregateClass), privateMember)
	outer.Scope().AddMember(db.NewEnum("Color"), graph.PublicMember)
	outer.Scope().AddMember(db.NewAlias("Size", leafOf(db.Primitive("int"))), graph.PublicMember)
	addRoutine(db, outer.Scope(), "make", leafOf(outer), graph.Membership{Visibility: graph.Public, Virtuality: graph.NonVirtual, Storage: graph.Static})
	addRoutine(db, outer.Scope(), "size", leafOf(db.Primitive("int")), graph.PublicMember)
	c := newCollector(db)
	c.Collect("Outer")

	c.GrabInnersAsWell()

	assert.Equal(t, []string{"Outer", "Outer::Inner", "Outer::Inner::Deep"}, names(c.Subjects()))
	assert.Equal(t, []string{"Outer::Color"}, names(c.Enums()))
	assert.Equal(t, []string{"Outer::Size"}, names(c.Typedefs()))
	assert.Equal(t, []string{"Outer::make"}, names(c.GlobalFuncs()))
}

func TestCollector_InvestImplicitInstantiations(t *testing.T) {
	t.Parallel()

	t.Run("SignatureOfSubject", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		vec := newVec(db)
		holder := addClass(db, db.Global().Scope(), "Holder")
		addRoutine(db, holder.Scope(), "items", vecOf(vec, leafOf(db.Primitive("int"))), graph.PublicMember)
		c := newCollector(db)
		c.Collect("Holder")

		added := c.InvestImplicitInstantiations()

		assert.Equal(t, 1, added)
		assert.Equal(t, []string{"Holder", "Vec<int>"}, names(c.Subjects()))
		assert.Empty(t, c.Diagnostics())
	})

	t.Run("NestedArgumentsReachFixedPoint", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		vec := newVec(db)
		intType := leafOf(db.Primitive("int"))
		addRoutine(db, db.Global().Scope(), "nested", vecOf(vec, vecOf(vec, intType)), graph.PublicMember)
		c := newCollector(db)
		c.Collect("nested")

		added := c.InvestImplicitInstantiations()

		assert.Equal(t, 2, added)
		assert.Equal(t, []string{"Vec<int>", "Vec<Vec<int>>"}, names(c.Subjects()))
		assert.Zero(t, c.InvestImplicitInstantiations())
	})

	t.Run("TypedefTarget", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		vec := newVec(db)
		db.Global().Scope().AddMember(db.NewAlias("Ints", vecOf(vec, leafOf(db.Primitive("int")))), graph.PublicMember)
		c := newCollector(db)
		c.Collect("Ints")

		assert.Equal(t, 1, c.InvestImplicitInstantiations())
	})

	t.Run("TemplateBase", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		vec := newVec(db)
		derived := addClass(db, db.Global().Scope(), "IntList")
		db.AddBase(derived, vec, []types.TemplateArgument{types.Typename(leafOf(db.Primitive("int")))}, graph.Public)
		c := newCollector(db)
		c.Collect("IntList")

		assert.Equal(t, 1, c.InvestImplicitInstantiations())
		assert.Equal(t, []string{"IntList", "Vec<int>"}, names(c.Subjects()))
	})

	t.Run("SkipsDependentTypes", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		vec := newVec(db)
		box := addClass(db, db.Global().Scope(), "Box")
		u := types.NewLeaf(db.AddTypenameParameter(box, "U").Delegate())
		addRoutine(db, box.Scope(), "contents", vecOf(vec, u), graph.PublicMember)
		c := newCollector(db)
		c.Collect("Box")

		assert.Zero(t, c.InvestImplicitInstantiations())
		assert.Zero(t, c.Engine().Len())
	})

	t.Run("SkipsInvisibleArguments", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		vec := newVec(db)
		holder := addClass(db, db.Global().Scope(), "Holder")
		secret := db.NewAggregate("Secret", graph.AggregateStruct)
		holder.Scope().AddMember(secret, privateMember)
		addRoutine(db, holder.Scope(), "secrets", vecOf(vec, leafOf(secret)), graph.PublicMember)
		c := newCollector(db)
		c.Collect("Holder")

		assert.Zero(t, c.InvestImplicitInstantiations())
	})

	t.Run("FailuresReportedOnce", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		notTemplate := addClass(db, db.Global().Scope(), "Plain")
		bogus := types.Instantiate(notTemplate.ID(), types.Typename(leafOf(db.Primitive("int"))))
		addRoutine(db, db.Global().Scope(), "f", bogus, graph.PublicMember)
		addRoutine(db, db.Global().Scope(), "g", bogus, graph.PublicMember)
		c := newCollector(db)
		c.Collect("f")
		c.Collect("g")

		assert.Zero(t, c.InvestImplicitInstantiations())
		require.Len(t, c.Diagnostics(), 1)
		assert.Equal(t, "instantiate", c.Diagnostics()[0].Phase)
		assert.Contains(t, c.Diagnostics()[0].String(), "Plain is not a class template")
	})
}

func TestCollector_InvestImpliedEnums(t *testing.T) {
	t.Parallel()
	db := graph.NewDatabase()
	global := db.Global().Scope()
	mode := db.NewEnum("Mode")
	global.AddMember(mode, graph.PublicMember)
	level := db.NewEnum("Level")
	global.AddMember(level, graph.PublicMember)
	cls := addClass(db, global, "Device")
	setMode := addRoutine(db, cls.Scope(), "setMode", nil, graph.PublicMember)
	setMode.AddParameter(db.NewParameter("m", leafOf(mode)))
	addRoutine(db, cls.Scope(), "level", leafOf(level), privateMember)
	c := newCollector(db)
	c.Collect("Device")

	assert.Equal(t, 1, c.InvestImpliedEnums())
	assert.Equal(t, []string{"Mode"}, names(c.Enums()))
}

func TestCollector_TopologicallySortSubjects(t *testing.T) {
	t.Parallel()
	db := graph.NewDatabase()
	vec := newVec(db)
	derived := addClass(db, db.Global().Scope(), "IntList")
	db.AddBase(derived, vec, []types.TemplateArgument{types.Typename(leafOf(db.Primitive("int")))}, graph.Public)
	top := addClass(db, db.Global().Scope(), "Top")
	db.AddBase(top, derived, nil, graph.Public)
	c := newCollector(db)
	c.Collect("Top")
	c.Collect("IntList")
	c.InvestImplicitInstantiations()

	t.Run("ConsideringInstantiations", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"Vec<int>", "IntList", "Top"}, names(c.TopologicallySortSubjects(true)))
	})

	t.Run("GeneralTemplatesOnly", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"IntList", "Vec<int>", "Top"}, names(c.TopologicallySortSubjects(false)))
	})
}
