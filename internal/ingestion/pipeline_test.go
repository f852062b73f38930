package ingestion

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skn123/robin-sub001/internal/collect"
	"github.com/skn123/robin-sub001/internal/config"
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/parsers"
	"github.com/skn123/robin-sub001/internal/templates"
)

const shapesHeader = `
namespace geo {
template <typename T>
class Vec {
public:
    T &at(int i);
};

class Shape {
public:
    virtual double area() const = 0;
};

class Polygon : public Shape {
public:
    Vec<double> points() const;
};
}
`

const unitsDocument = `
elements:
  - kind: namespace
    name: units
    members:
      - kind: struct
        name: Meter
        members:
          - kind: field
            name: value
            type: double
`

// holderDocument declares "template <class T> class Holder : public T"
// and a struct using Holder<int>, whose base is not a class.
const holderDocument = `
elements:
  - kind: class
    name: Holder
    template:
      - name: T
    bases:
      - type: T
        visibility: public
  - kind: struct
    name: User
    members:
      - kind: field
        name: held
        type: Holder<int>
`

func testConfig() *config.Config {
	return &config.Config{
		Input: config.InputConfig{
			Roots:      []string{"."},
			Extensions: []string{".h"},
		},
		Collect: config.CollectConfig{
			Inners:         true,
			Typedefs:       true,
			Instantiations: true,
		},
		Toolbox: config.ToolboxConfig{AliasPolicy: "transparent"},
	}
}

func mustDecode(t *testing.T, text string) *parsers.Document {
	t.Helper()
	doc, err := parsers.DecodeDocument(strings.NewReader(text))
	require.NoError(t, err)
	return doc
}

func fullNames(aggs []*graph.Aggregate) []string {
	names := make([]string, len(aggs))
	for i, a := range aggs {
		names[i] = a.FullName()
	}
	return names
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func TestRunPipeline(t *testing.T) {
	t.Parallel()

	t.Run("HeadersEndToEnd", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTree(t, dir, map[string]string{"include/shapes.h": shapesHeader})

		var phases []string
		run, result, err := RunPipeline(context.Background(), dir, testConfig(), func(phase string, p float64) {
			if p == 0 {
				phases = append(phases, phase)
			}
		})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Files)
		assert.Equal(t, 1, result.Documents)
		assert.NotEqual(t, uuid.Nil, run.ID)
		assert.Equal(t, []string{
			"Discovering sources",
			"Parsing headers",
			"Loading declarations",
			"Collecting subjects",
			"Instantiating templates",
			"Sorting subjects",
		}, phases)

		sorted := fullNames(run.Sorted)
		assert.Contains(t, sorted, "geo::Shape")
		assert.Contains(t, sorted, "geo::Polygon")
		assert.Contains(t, sorted, "geo::Vec<double>")
		assert.Less(t, indexOf(sorted, "geo::Shape"), indexOf(sorted, "geo::Polygon"))
		assert.Equal(t, 1, result.Instantiations)
		assert.Equal(t, len(run.Sorted), result.Subjects)
	})

	t.Run("DocumentsAndNamedSubjects", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTree(t, dir, map[string]string{
			"decls/units.yaml":     unitsDocument,
			"api/extra.robin.yaml": "elements:\n  - kind: class\n    name: Extra\n    members: []\n",
		})
		cfg := testConfig()
		cfg.Input.Documents = []string{"decls/units.yaml"}
		cfg.Collect.Subjects = []string{"units::Meter"}

		run, result, err := RunPipeline(context.Background(), dir, cfg, nil)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Files)
		assert.Equal(t, 2, result.Documents)
		assert.Equal(t, []string{"units::Meter"}, fullNames(run.Sorted))
		_, err = run.DB.Lookup("Extra", false)
		assert.NoError(t, err, "discovered documents are loaded")
	})

	t.Run("BadInputsBecomeDiagnostics", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTree(t, dir, map[string]string{
			"good.robin.yaml": unitsDocument,
			"bad.robin.yaml":  "elements:\n  - kind: [class\n",
		})
		cfg := testConfig()
		cfg.Input.Documents = []string{"absent.yaml"}

		run, result, err := RunPipeline(context.Background(), dir, cfg, nil)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Files)
		assert.Equal(t, 1, result.Documents)
		assert.Equal(t, []string{"units::Meter"}, fullNames(run.Sorted))
		require.Len(t, run.Diagnostics, 2)
		assert.Equal(t, "bad.robin.yaml", run.Diagnostics[0].File)
		assert.Equal(t, "absent.yaml", run.Diagnostics[1].File)
		assert.Equal(t, 2, result.Diagnostics)
	})

	t.Run("TemplateWarningsReported", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTree(t, dir, map[string]string{"holder.robin.yaml": holderDocument})

		run, result, err := RunPipeline(context.Background(), dir, testConfig(), nil)
		require.NoError(t, err)

		assert.Contains(t, fullNames(run.Sorted), "Holder<int>")
		var messages []string
		for _, d := range run.Diagnostics {
			if d.File == "templates" {
				messages = append(messages, d.Message)
			}
		}
		require.NotEmpty(t, messages)
		assert.Contains(t, messages[0], "base of Holder<int>")
		assert.Equal(t, len(run.Diagnostics)+len(run.Collector.Diagnostics()), result.Diagnostics)
	})

	t.Run("Cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := RunPipeline(ctx, t.TempDir(), testConfig(), nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("InstantiationsDisabled", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTree(t, dir, map[string]string{"shapes.h": shapesHeader})
		cfg := testConfig()
		cfg.Collect.Instantiations = false

		run, result, err := RunPipeline(context.Background(), dir, cfg, nil)
		require.NoError(t, err)
		assert.Zero(t, result.Instantiations)
		assert.NotContains(t, fullNames(run.Sorted), "geo::Vec<double>")
	})
}

func TestCollect(t *testing.T) {
	t.Parallel()

	db := graph.NewDatabase()
	Absorb(db, mustDecode(t, unitsDocument))
	c := collect.New(db, templates.NewEngine(db), collect.Options{})

	Collect(c, config.CollectConfig{})

	assert.Equal(t, []string{"units::Meter"}, fullNames(c.Subjects()), "no subjects means everything")
}

func TestParseEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.h":          "class A {};",
		"b.h":          "class B {};",
		"c.robin.yaml": "elements: []\n",
	})
	entries, err := WalkSources(dir, WalkOptions{Extensions: []string{".h"}})
	require.NoError(t, err)

	docs, diags, err := ParseEntries(context.Background(), entries)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, docs, len(entries))
	for i, doc := range docs {
		assert.Equal(t, entries[i].RelPath, doc.File)
	}

	t.Run("FailuresSkipped", func(t *testing.T) {
		t.Parallel()
		mixed := []FileEntry{
			{RelPath: "x.rs", Language: "rust"},
			entries[0],
			{Path: filepath.Join(dir, "gone.robin.yaml"), RelPath: "gone.robin.yaml", Language: LanguageDocument},
		}
		docs, diags, err := ParseEntries(context.Background(), mixed)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, entries[0].RelPath, docs[0].File)
		require.Len(t, diags, 2)
		assert.Equal(t, "x.rs", diags[0].File)
		assert.Contains(t, diags[0].Message, "unsupported language")
		assert.Equal(t, "gone.robin.yaml", diags[1].File)
	})

	t.Run("Cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := ParseEntries(ctx, entries)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
