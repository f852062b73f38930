package toolbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/types"
)

func leafOf(e graph.Entity) types.Type { return types.NewLeaf(e.ID()) }

func addAlias(db *graph.Database, owner *graph.Scope, name string, aliased types.Type, vis graph.Visibility) *graph.Alias {
	a := db.NewAlias(name, aliased)
	owner.AddMember(a, graph.Membership{Visibility: vis, Virtuality: graph.NonVirtual, Storage: graph.Extern})
	return a
}

func TestDereference(t *testing.T) {
	t.Parallel()

	db := graph.NewDatabase()
	intT := leafOf(db.Primitive("int"))

	tests := []struct {
		name string
		typ  types.Type
	}{
		{"Leaf", intT},
		{"ConstLeaf", types.Qualify(intT, types.Const)},
		{"Pointer", types.PointerTo(intT)},
		{"ConstPointer", &types.Pointer{Elem: intT, Qual: types.Const}},
		{"Array", types.ArrayOf(intT, 4)},
		{"Function", types.FunctionReturning(intT, intT)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, types.Equal(tt.typ, Dereference(MakeReference(tt.typ))))
		})
	}

	t.Run("StripsEveryReference", func(t *testing.T) {
		t.Parallel()
		assert.True(t, types.Equal(intT, Dereference(MakeReference(MakeReference(intT)))))
	})
}

func TestDereferencePointerOnce(t *testing.T) {
	t.Parallel()

	db := graph.NewDatabase()
	intT := leafOf(db.Primitive("int"))

	assert.True(t, types.Equal(types.PointerTo(intT), DereferencePointerOnce(MakePointer(MakePointer(intT)))))
	assert.True(t, types.Equal(intT, DereferencePointerOnce(MakeReference(intT))))
	assert.Panics(t, func() { DereferencePointerOnce(intT) })
}

func TestMakeHelpers(t *testing.T) {
	t.Parallel()

	db := graph.NewDatabase()
	foo := db.NewAggregate("Foo", graph.AggregateClass)
	db.Global().Scope().AddMember(foo, graph.PublicMember)

	assert.Equal(t, "Foo &", types.FormatCpp(db, MakeReferenceTo(foo), ""))
	assert.Equal(t, "Foo *", types.FormatCpp(db, MakePointerTo(foo), ""))
	assert.Equal(t, "const Foo", types.FormatCpp(db, MakeConst(foo), ""))
}

func TestOriginalType(t *testing.T) {
	t.Parallel()

	t.Run("UnwrapsChain", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		intT := leafOf(db.Primitive("int"))
		a := addAlias(db, db.Global().Scope(), "A", intT, graph.DontCare)
		b := addAlias(db, db.Global().Scope(), "B", leafOf(a), graph.DontCare)

		got := New(db, nil).OriginalType(types.Qualify(leafOf(b), types.Const))

		assert.True(t, types.Equal(types.Qualify(intT, types.Const), got))
	})

	t.Run("KeepsWrappers", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		intT := leafOf(db.Primitive("int"))
		a := addAlias(db, db.Global().Scope(), "A", intT, graph.DontCare)

		got := New(db, nil).OriginalType(&types.Pointer{Elem: leafOf(a), Qual: types.Const})

		assert.Equal(t, "int *const", types.FormatCpp(db, got, ""))
	})

	t.Run("SelfReferentialTypedefTerminates", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		a := db.NewAlias("A", nil)
		db.Global().Scope().AddMember(a, graph.PublicMember)
		a.SetAliasedType(leafOf(a))

		got := New(db, nil).OriginalType(leafOf(a))

		assert.True(t, types.Equal(leafOf(a), got))
	})

	t.Run("MutualTypedefsTerminate", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		a := db.NewAlias("A", nil)
		b := db.NewAlias("B", leafOf(a))
		a.SetAliasedType(leafOf(b))

		got := New(db, nil).OriginalType(leafOf(a))

		_, ok := got.(*types.Leaf)
		assert.True(t, ok)
	})

	t.Run("PolicyStopsAtEncapsulatedAlias", func(t *testing.T) {
		t.Parallel()
		db := graph.NewDatabase()
		wide := addAlias(db, db.Global().Scope(), "Wide", leafOf(db.Primitive("long long")), graph.DontCare)
		narrow := addAlias(db, db.Global().Scope(), "Narrow", leafOf(db.Primitive("int")), graph.DontCare)
		tb := New(db, EncapsulatePrimitives)

		assert.True(t, types.Equal(leafOf(wide), tb.OriginalType(leafOf(wide))))
		assert.True(t, types.Equal(leafOf(db.Primitive("int")), tb.OriginalType(leafOf(narrow))))
	})
}

func TestOriginalTypeShallowAndDeep(t *testing.T) {
	t.Parallel()

	db := graph.NewDatabase()
	intT := leafOf(db.Primitive("int"))
	outer := db.NewAggregate("Outer", graph.AggregateClass)
	db.Global().Scope().AddMember(outer, graph.PublicMember)
	hidden := db.NewAggregate("Hidden", graph.AggregateStruct)
	outer.Scope().AddMember(hidden, graph.Membership{Visibility: graph.Private})

	intPtr := addAlias(db, db.Global().Scope(), "IntPtr", types.PointerTo(intT), graph.DontCare)
	handle := addAlias(db, db.Global().Scope(), "Handle", leafOf(intPtr), graph.DontCare)
	secret := addAlias(db, db.Global().Scope(), "Secret", types.PointerTo(leafOf(hidden)), graph.DontCare)
	tb := New(db, nil)

	t.Run("ShallowUnwrapsRootChain", func(t *testing.T) {
		got := tb.OriginalTypeShallow(leafOf(handle))
		assert.True(t, types.Equal(types.PointerTo(intT), got))
	})

	t.Run("ShallowIgnoresWrappedAliases", func(t *testing.T) {
		typ := types.PointerTo(leafOf(handle))
		assert.True(t, types.Equal(typ, tb.OriginalTypeShallow(typ)))
	})

	t.Run("ShallowStopsBeforeInvisibleType", func(t *testing.T) {
		assert.True(t, types.Equal(leafOf(secret), tb.OriginalTypeShallow(leafOf(secret))))
	})

	t.Run("DeepUnwrapsEveryLevel", func(t *testing.T) {
		typ := &types.Reference{Elem: &types.Pointer{Elem: leafOf(handle), Qual: types.Const}}
		got := tb.OriginalTypeDeep(typ)
		assert.Equal(t, "int **const &", types.FormatCpp(db, got, ""))
	})
}

func TestIsVisible(t *testing.T) {
	t.Parallel()

	db := graph.NewDatabase()
	ns := db.NewNamespace("ns")
	db.Global().Scope().AddMember(ns, graph.PublicMember)
	outer := db.NewAggregate("Outer", graph.AggregateClass)
	ns.Scope().AddMember(outer, graph.PublicMember)
	private := db.NewAggregate("Private", graph.AggregateClass)
	outer.Scope().AddMember(private, graph.Membership{Visibility: graph.Private})
	public := db.NewAggregate("Public", graph.AggregateClass)
	outer.Scope().AddMember(public, graph.PublicMember)
	underPrivate := db.NewAggregate("Inner", graph.AggregateClass)
	private.Scope().AddMember(underPrivate, graph.PublicMember)
	loose := db.NewAggregate("Loose", graph.AggregateClass)

	assert.True(t, IsVisible(loose))
	assert.True(t, IsVisible(outer))
	assert.True(t, IsVisible(public))
	assert.False(t, IsVisible(private))
	assert.False(t, IsVisible(underPrivate))

	tb := New(db, nil)
	assert.True(t, tb.IsVisibleType(types.PointerTo(leafOf(public))))
	assert.False(t, tb.IsVisibleType(types.Instantiate(outer.ID(), types.Typename(leafOf(private)))))
}

func TestPolicyByName(t *testing.T) {
	t.Parallel()

	p, err := PolicyByName("encapsulate-primitives")
	require.NoError(t, err)
	require.NotNil(t, p)

	p, err = PolicyByName("")
	require.NoError(t, err)
	assert.False(t, p(nil))

	_, err = PolicyByName("sometimes")
	assert.Error(t, err)
}

func TestEncapsulatePrimitives(t *testing.T) {
	t.Parallel()

	db := graph.NewDatabase()
	foo := db.NewAggregate("Foo", graph.AggregateClass)

	tests := []struct {
		name    string
		aliased types.Type
		want    bool
	}{
		{"SmallPrimitive", leafOf(db.Primitive("int")), false},
		{"WidePrimitive", leafOf(db.Primitive("double")), true},
		{"PointerToPrimitive", types.PointerTo(leafOf(db.Primitive("char"))), true},
		{"Aggregate", leafOf(foo), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EncapsulatePrimitives(db.NewAlias("T", tt.aliased)))
		})
	}
}

func TestPrototype(t *testing.T) {
	t.Parallel()

	db := graph.NewDatabase()
	intT := leafOf(db.Primitive("int"))
	charT := leafOf(db.Primitive("char"))
	foo := db.NewAggregate("Foo", graph.AggregateClass)
	db.Global().Scope().AddMember(foo, graph.PublicMember)

	newParam := func(name string, typ types.Type) *graph.Parameter { return db.NewParameter(name, typ) }

	t.Run("StaticInline", func(t *testing.T) {
		r := db.NewRoutine("find")
		r.SetReturnType(types.PointerTo(intT))
		r.SetInline(true)
		key := newParam("key", types.PointerTo(types.Qualify(charT, types.Const)))
		limit := newParam("limit", intT)
		limit.SetDefault("10")
		r.AddParameter(key)
		r.AddParameter(limit)
		foo.Scope().AddMember(r, graph.Membership{Visibility: graph.Public, Virtuality: graph.NonVirtual, Storage: graph.Static})

		got, err := Prototype(r)
		require.NoError(t, err)
		assert.Equal(t, "static inline int *find(const char *key, int limit = 10)", got)
	})

	t.Run("PureVirtualConst", func(t *testing.T) {
		r := db.NewRoutine("size")
		r.SetReturnType(intT)
		r.SetConst(true)
		foo.Scope().AddMember(r, graph.Membership{Visibility: graph.Public, Virtuality: graph.PureVirtual, Storage: graph.Extern})

		got, err := Prototype(r)
		require.NoError(t, err)
		assert.Equal(t, "virtual int size() const = 0", got)
	})

	t.Run("ConstructorHasNoReturnType", func(t *testing.T) {
		r := db.NewRoutine("Foo")
		r.AddParameter(newParam("other", types.ReferenceTo(types.Qualify(leafOf(foo), types.Const))))
		foo.Scope().AddMember(r, graph.PublicMember)

		got, err := Prototype(r)
		require.NoError(t, err)
		assert.Equal(t, "Foo(const Foo &other)", got)
	})

	t.Run("MissingParameterType", func(t *testing.T) {
		r := db.NewRoutine("broken")
		r.AddParameter(newParam("x", nil))

		_, err := Prototype(r)
		assert.Error(t, err)
	})
}
