package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/types"
)

var privateMember = graph.Membership{Visibility: graph.Private, Virtuality: graph.NonVirtual, Storage: graph.Extern}

// shapes declares, in namespace geo:
//
//	class Shape { public: virtual double area() const = 0; private: int secret; };
//	struct Point { int x; static int count; };
//	class Polygon : public Shape { public: void add(Point p); };
func shapes(t *testing.T) (*graph.Database, []*graph.Aggregate) {
	t.Helper()
	db := graph.NewDatabase()
	geo := db.NewNamespace("geo")
	db.Global().Scope().AddMember(geo, graph.PublicMember)
	intT := types.NewLeaf(db.Primitive("int").ID())

	shape := db.NewAggregate("Shape", graph.AggregateClass)
	geo.Scope().AddMember(shape, graph.PublicMember)
	shape.AddProperty("description", "A closed figure.")
	shape.AddProperty(".internal", "yes")
	shape.SetDeclaration(graph.SourceLocation{File: "include/shapes.h", Line: 4})
	area := db.NewRoutine("area")
	area.SetReturnType(types.NewLeaf(db.Primitive("double").ID()))
	area.SetConst(true)
	shape.Scope().AddMember(area, graph.Membership{Visibility: graph.Public, Virtuality: graph.PureVirtual, Storage: graph.Extern})
	shape.Scope().AddMember(db.NewField("secret", intT), privateMember)

	point := db.NewAggregate("Point", graph.AggregateStruct)
	geo.Scope().AddMember(point, graph.PublicMember)
	point.Scope().AddMember(db.NewField("x", intT), graph.PublicMember)
	point.Scope().AddMember(db.NewField("count", intT), graph.Membership{Visibility: graph.Public, Virtuality: graph.NonVirtual, Storage: graph.Static})
	point.Scope().AddMember(db.NewField("untyped", nil), graph.PublicMember)

	polygon := db.NewAggregate("Polygon", graph.AggregateClass)
	geo.Scope().AddMember(polygon, graph.PublicMember)
	db.AddBase(polygon, shape, nil, graph.Public)
	add := db.NewRoutine("add")
	add.SetReturnType(types.NewLeaf(db.Primitive("void").ID()))
	add.AddParameter(db.NewParameter("p", types.NewLeaf(point.ID())))
	polygon.Scope().AddMember(add, graph.PublicMember)
	broken := db.NewRoutine("broken")
	broken.AddParameter(db.NewParameter("q", nil))
	polygon.Scope().AddMember(broken, graph.PublicMember)

	return db, []*graph.Aggregate{shape, point, polygon}
}

func TestRender(t *testing.T) {
	t.Parallel()
	_, subjects := shapes(t)

	t.Run("PublicRoutinesAndProperties", func(t *testing.T) {
		t.Parallel()
		e, err := Render(subjects[0])
		require.NoError(t, err)
		assert.Equal(t, "geo::Shape", e.Name)
		assert.Equal(t, "class", e.Kind)
		assert.Equal(t, []string{"virtual double area() const = 0"}, e.Prototypes)
		assert.Empty(t, e.Fields, "private fields are left out")
		assert.Equal(t, map[string]string{"description": "A closed figure."}, e.Properties)
		assert.Equal(t, "include/shapes.h", e.File)
		assert.Equal(t, 4, e.Line)
	})

	t.Run("Fields", func(t *testing.T) {
		t.Parallel()
		e, err := Render(subjects[1])
		require.NoError(t, err)
		assert.Equal(t, "struct", e.Kind)
		assert.Equal(t, []string{"int x", "static int count"}, e.Fields)
		assert.Nil(t, e.Properties)
		assert.Empty(t, e.File)
	})

	t.Run("BasesAndIncompleteRoutines", func(t *testing.T) {
		t.Parallel()
		e, err := Render(subjects[2])
		require.NoError(t, err)
		assert.Equal(t, []string{"public geo::Shape"}, e.Bases)
		assert.Equal(t, []string{"void add(geo::Point p)"}, e.Prototypes)
	})
}

func TestBuild(t *testing.T) {
	t.Parallel()
	_, subjects := shapes(t)

	t.Run("KeepsOrder", func(t *testing.T) {
		t.Parallel()
		entries, err := Build(subjects, nil)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "geo::Shape", entries[0].Name)
		assert.Equal(t, "geo::Polygon", entries[2].Name)
	})

	t.Run("RendererFailure", func(t *testing.T) {
		t.Parallel()
		_, err := Build(subjects, func(*graph.Aggregate) (*Entry, error) {
			return nil, errors.New("boom")
		})
		assert.ErrorContains(t, err, "rendering geo::Shape")
	})
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"Qualified", "geo::Vec<double>", []string{"geo", "vec", "double"}},
		{"CamelCase", "HttpServer", []string{"httpserver", "http", "server"}},
		{"Digits", "Vec3", []string{"vec3", "vec", "3"}},
		{"Declarator", "int *data", []string{"int", "data"}},
		{"Empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tokenize(tt.text))
		})
	}
}

func sampleEntries() []*Entry {
	return []*Entry{
		{Name: "geo::Shape", Kind: "class", Prototypes: []string{"virtual double area() const = 0"}},
		{Name: "geo::Polygon", Kind: "class", Bases: []string{"public geo::Shape"}, Prototypes: []string{"double area() const"}},
		{Name: "net::Socket", Kind: "class", Fields: []string{"int fd"}},
	}
}

// testBackend runs the Backend contract against b.
func testBackend(t *testing.T, b Backend) {
	ctx := context.Background()
	require.NoError(t, b.Store(ctx, sampleEntries()))
	assert.Equal(t, 3, b.Count())

	t.Run("Entry", func(t *testing.T) {
		e, err := b.Entry(ctx, "net::Socket")
		require.NoError(t, err)
		assert.Equal(t, []string{"int fd"}, e.Fields)

		_, err = b.Entry(ctx, "net::Absent")
		assert.True(t, errors.IsElementNotFound(err))
	})

	t.Run("SearchRanksNamesFirst", func(t *testing.T) {
		results, err := b.Search(ctx, "Shape", 0)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "geo::Shape", results[0].Name)
		assert.Equal(t, "virtual double area() const = 0", results[0].Snippet)
		assert.Equal(t, "geo::Polygon", results[1].Name)
		assert.Greater(t, results[0].Score, results[1].Score)
	})

	t.Run("SearchLimit", func(t *testing.T) {
		results, err := b.Search(ctx, "area", 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "geo::Polygon", results[0].Name, "ties break by name")
	})

	t.Run("NoHits", func(t *testing.T) {
		results, err := b.Search(ctx, "matrix", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("StoreReplaces", func(t *testing.T) {
		require.NoError(t, b.Store(ctx, sampleEntries()[2:]))
		assert.Equal(t, 1, b.Count())
		results, err := b.Search(ctx, "shape", 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestMemoryBackend(t *testing.T) {
	t.Parallel()

	b := NewMemoryBackend()
	require.NoError(t, b.Initialize("", false))
	defer b.Close()
	testBackend(t, b)

	ro := NewMemoryBackend()
	require.NoError(t, ro.Initialize("", true))
	assert.Error(t, ro.Store(context.Background(), sampleEntries()))
}

func TestBadgerBackend(t *testing.T) {
	t.Parallel()

	t.Run("Contract", func(t *testing.T) {
		t.Parallel()
		b := NewBadgerBackend()
		require.NoError(t, b.Initialize(t.TempDir(), false))
		defer b.Close()
		testBackend(t, b)
	})

	t.Run("Reopen", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		b := NewBadgerBackend()
		require.NoError(t, b.Initialize(dir, false))
		require.NoError(t, b.Store(context.Background(), sampleEntries()))
		require.NoError(t, b.Close())

		reopened := NewBadgerBackend()
		require.NoError(t, reopened.Initialize(dir, true))
		defer reopened.Close()
		assert.Equal(t, 3, reopened.Count())
		e, err := reopened.Entry(context.Background(), "geo::Polygon")
		require.NoError(t, err)
		assert.Equal(t, []string{"public geo::Shape"}, e.Bases)
		assert.Error(t, reopened.Store(context.Background(), nil))
	})

	t.Run("NotInitialized", func(t *testing.T) {
		t.Parallel()
		b := NewBadgerBackend()
		_, err := b.Search(context.Background(), "x", 1)
		assert.Error(t, err)
		assert.NoError(t, b.Close())
	})
}
