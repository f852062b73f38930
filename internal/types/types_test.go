package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapNamer map[EntityID]string

func (m mapNamer) TypeName(id EntityID) string { return m[id] }

const (
	idInt EntityID = iota + 1
	idChar
	idVoid
	idFoo
	idVec
	idAlias
)

var names = mapNamer{
	idInt:   "int",
	idChar:  "char",
	idVoid:  "void",
	idFoo:   "ns::Foo",
	idVec:   "Vec",
	idAlias: "IntAlias",
}

func TestFormatCpp(t *testing.T) {
	t.Parallel()

	intT := NewLeaf(idInt)
	tests := []struct {
		name string
		typ  Type
		decl string
		want string
	}{
		{"Leaf", intT, "x", "int x"},
		{"LeafNoName", intT, "", "int"},
		{"ConstLeaf", &Leaf{Entity: idFoo, Qual: Const}, "f", "const ns::Foo f"},
		{"Pointer", PointerTo(intT), "p", "int *p"},
		{"ConstPointer", &Pointer{Elem: intT, Qual: Const}, "p", "int *const p"},
		{"ConstPointerNoName", &Pointer{Elem: intT, Qual: Const}, "", "int *const"},
		{"Reference", ReferenceTo(&Leaf{Entity: idFoo, Qual: Const}), "r", "const ns::Foo &r"},
		{"FunctionPointer", PointerTo(FunctionReturning(intT)), "f", "int (*f)()"},
		{"ArrayOfPointers", ArrayOf(PointerTo(intT), 3), "a", "int *a[3]"},
		{"PointerToArray", PointerTo(ArrayOf(intT, 3)), "p", "int (*p)[3]"},
		{"UnknownDimension", ArrayOf(NewLeaf(idChar), 0), "s", "char s[]"},
		{"FunctionWithParams", FunctionReturning(NewLeaf(idVoid), intT, PointerTo(NewLeaf(idChar))), "f", "void f(int, char *)"},
		{"Instantiation", Instantiate(idVec, Typename(intT), Data("4")), "v", "Vec<int,4> v"},
		{"NestedInstantiation", Instantiate(idVec, Typename(Instantiate(idVec, Typename(intT)))), "", "Vec<Vec<int>>"},
		{"Ellipsis", &Ellipsis{}, "", "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatCpp(names, tt.typ, tt.decl))
		})
	}

	t.Run("BlankPanics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { FormatCpp(names, PointerTo(&Blank{}), "x") })
	})
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	typ := &Pointer{Elem: &Leaf{Entity: idInt, Qual: Const}, Qual: Const}
	assert.Equal(t, "const pointer(const int)", Describe(names, typ))
	assert.Equal(t, "pointer(_)", Describe(names, PointerTo(&Blank{})))
	assert.Equal(t, "instantiation(Vec; int; 3)", Describe(names, Instantiate(idVec, Typename(NewLeaf(idInt)), Data("3"))))
}

func TestEqual(t *testing.T) {
	t.Parallel()

	t.Run("Structural", func(t *testing.T) {
		t.Parallel()
		a := PointerTo(Instantiate(idVec, Typename(NewLeaf(idInt))))
		b := PointerTo(Instantiate(idVec, Typename(NewLeaf(idInt))))
		assert.True(t, Equal(a, b))
	})

	t.Run("QualifiersMatter", func(t *testing.T) {
		t.Parallel()
		assert.False(t, Equal(NewLeaf(idInt), &Leaf{Entity: idInt, Qual: Const}))
		assert.False(t, Equal(PointerTo(NewLeaf(idInt)), &Pointer{Elem: NewLeaf(idInt), Qual: Const}))
	})

	t.Run("DifferentShapes", func(t *testing.T) {
		t.Parallel()
		assert.False(t, Equal(PointerTo(NewLeaf(idInt)), ReferenceTo(NewLeaf(idInt))))
		assert.False(t, Equal(ArrayOf(NewLeaf(idInt), 2), ArrayOf(NewLeaf(idInt), 3)))
		assert.False(t, Equal(Instantiate(idVec, Data("1")), Instantiate(idVec, Data("2"))))
	})

	t.Run("CompatibleExpandsAliases", func(t *testing.T) {
		t.Parallel()
		expand := func(id EntityID) (Type, bool) {
			if id == idAlias {
				return NewLeaf(idInt), true
			}
			return nil, false
		}
		assert.False(t, Equal(PointerTo(NewLeaf(idAlias)), PointerTo(NewLeaf(idInt))))
		assert.True(t, Compatible(PointerTo(NewLeaf(idAlias)), PointerTo(NewLeaf(idInt)), expand))
	})
}

func TestTransform(t *testing.T) {
	t.Parallel()

	t.Run("ReplacesLeavesInsideArguments", func(t *testing.T) {
		t.Parallel()
		typ := PointerTo(Instantiate(idVec, Typename(NewLeaf(idFoo))))
		out := Transform(typ, func(n Type) (Type, bool) {
			if l, ok := n.(*Leaf); ok && l.Entity == idFoo {
				return NewLeaf(idInt), true
			}
			return nil, false
		})
		assert.Equal(t, "Vec<int> *", FormatCpp(names, out, ""))
		assert.Equal(t, "Vec<ns::Foo> *", FormatCpp(names, typ, ""), "original is untouched")
	})

	t.Run("FillBlank", func(t *testing.T) {
		t.Parallel()
		inner := PointerTo(&Blank{})
		assert.False(t, IsFlat(inner))
		filled := Fill(inner, FunctionReturning(NewLeaf(idInt)))
		require.True(t, IsFlat(filled))
		assert.Equal(t, "int (*f)()", FormatCpp(names, filled, "f"))
	})

	t.Run("Instantiations", func(t *testing.T) {
		t.Parallel()
		innerInst := Instantiate(idVec, Typename(NewLeaf(idInt)))
		outer := Instantiate(idVec, Typename(innerInst))
		found := Instantiations(ReferenceTo(outer))
		require.Len(t, found, 2)
		assert.True(t, Equal(innerInst, found[0]))
		assert.True(t, Equal(outer, found[1]))
	})

	t.Run("Entities", func(t *testing.T) {
		t.Parallel()
		ids := Entities(FunctionReturning(NewLeaf(idVoid), Instantiate(idVec, Typename(NewLeaf(idChar)))))
		assert.Equal(t, []EntityID{idVoid, idVec, idChar}, ids)
	})
}

func TestShape(t *testing.T) {
	t.Parallel()

	t.Run("Decompose", func(t *testing.T) {
		t.Parallel()
		typ := ArrayOf(ReferenceTo(PointerTo(PointerTo(&Leaf{Entity: idChar, Qual: Const}))), 4)
		s, ok := Decompose(typ)
		require.True(t, ok)
		assert.Equal(t, []int{4}, s.Dims)
		assert.True(t, s.Reference)
		assert.Equal(t, 2, s.Pointers)
		assert.Equal(t, 2, PointerDegree(typ))
		assert.True(t, IsReference(typ))
		assert.True(t, IsConst(typ))
		assert.False(t, IsVolatile(typ))
	})

	t.Run("FunctionPointerIsNotSimple", func(t *testing.T) {
		t.Parallel()
		_, ok := Decompose(PointerTo(FunctionReturning(NewLeaf(idInt))))
		assert.False(t, ok)
		id, ok := BaseEntity(PointerTo(FunctionReturning(NewLeaf(idInt))))
		assert.True(t, ok)
		assert.Equal(t, idInt, id)
	})

	t.Run("ArrayDimensions", func(t *testing.T) {
		t.Parallel()
		typ := ArrayOf(ArrayOf(NewLeaf(idInt), 3), 2)
		assert.True(t, IsArray(typ))
		assert.Equal(t, []int{2, 3}, ArrayDimensions(typ))
	})

	t.Run("PlaceholderPanics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { PointerDegree(PointerTo(&Blank{})) })
	})

	t.Run("TemplateArgs", func(t *testing.T) {
		t.Parallel()
		args := TemplateArgs(PointerTo(Instantiate(idVec, Data("7"))))
		require.Len(t, args, 1)
		assert.Equal(t, "7", args[0].(*DataArgument).Text)
	})
}

func TestQualify(t *testing.T) {
	t.Parallel()

	typ := Qualify(&Leaf{Entity: idInt, Qual: Volatile}, Const)
	assert.Equal(t, Const|Volatile, typ.CV())
	assert.Equal(t, "const volatile", typ.CV().String())
	arr := ArrayOf(NewLeaf(idInt), 1)
	assert.Same(t, arr, Qualify(arr, Const))
}
