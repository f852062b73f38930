package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skn123/robin-sub001/internal/catalog"
)

const shapesHeader = `
namespace geo {
class Shape {
public:
    virtual double area() const = 0;
};

class Circle : public Shape {
public:
    double area() const;
    double radius;
};
}
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "include"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "include", "shapes.h"), []byte(shapesHeader), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a header"), 0o644))
	return dir
}

func TestAnalyzeCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("WritesCatalog", func(t *testing.T) {
		t.Parallel()
		dir := writeProject(t)

		cmd := &AnalyzeCmd{ProjectFlags: ProjectFlags{Path: dir, Subject: []string{"Circle"}}}
		require.NoError(t, cmd.Run(&CLI{Quiet: true}))

		metaJSON, err := os.ReadFile(filepath.Join(dir, ".robin", "meta.json"))
		require.NoError(t, err)
		var meta map[string]any
		require.NoError(t, json.Unmarshal(metaJSON, &meta))
		assert.Equal(t, dir, meta["path"])
		assert.NotEmpty(t, meta["run"])
		assert.EqualValues(t, 1, meta["stats"].(map[string]any)["subjects"])

		store, err := openCatalog(dir)
		require.NoError(t, err)
		defer store.Close()
		assert.Equal(t, 1, store.Count())
		e, err := store.Entry(t.Context(), "geo::Circle")
		require.NoError(t, err)
		assert.Equal(t, []string{"public geo::Shape"}, e.Bases)
		assert.Equal(t, []string{"double radius"}, e.Fields)
	})

	t.Run("InvalidPath", func(t *testing.T) {
		t.Parallel()
		cmd := &AnalyzeCmd{ProjectFlags: ProjectFlags{Path: "/nonexistent/path"}}
		assert.Error(t, cmd.Run(&CLI{Quiet: true}))
	})

	t.Run("NotADirectory", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "file.h")
		require.NoError(t, os.WriteFile(file, []byte("class A {};"), 0o644))
		cmd := &AnalyzeCmd{ProjectFlags: ProjectFlags{Path: file}}
		assert.ErrorContains(t, cmd.Run(&CLI{Quiet: true}), "is not a directory")
	})
}

func TestProjectFlags_Load(t *testing.T) {
	t.Parallel()
	dir := writeProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "robin.toml"), []byte(`
[collect]
subjects = ["Shape"]
instantiations = true
`), 0o644))

	t.Run("ConfigFile", func(t *testing.T) {
		t.Parallel()
		f := &ProjectFlags{Path: dir}
		_, cfg, err := f.load()
		require.NoError(t, err)
		assert.Equal(t, []string{"Shape"}, cfg.Collect.Subjects)
		assert.True(t, cfg.Collect.Instantiations)
	})

	t.Run("FlagsOverride", func(t *testing.T) {
		t.Parallel()
		f := &ProjectFlags{Path: dir, Subject: []string{"Circle"}, Autocollect: true, NoInstantiations: true}
		base, cfg, err := f.load()
		require.NoError(t, err)
		assert.Equal(t, dir, base)
		assert.Equal(t, []string{"Circle"}, cfg.Collect.Subjects)
		assert.True(t, cfg.Collect.Autocollect)
		assert.False(t, cfg.Collect.Instantiations)
	})
}

func TestExportCmd_Run(t *testing.T) {
	t.Parallel()
	dir := writeProject(t)
	out := filepath.Join(t.TempDir(), "export.json")

	cmd := &ExportCmd{ProjectFlags: ProjectFlags{Path: dir, Autocollect: true}, Output: out}
	require.NoError(t, cmd.Run())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var entries []*catalog.Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "geo::Shape", entries[0].Name, "bases come first")
	assert.Equal(t, "geo::Circle", entries[1].Name)
}

func TestQueryCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("NoCatalog", func(t *testing.T) {
		t.Parallel()
		cmd := &QueryCmd{Query: "shape", Limit: 5, Path: t.TempDir()}
		assert.ErrorContains(t, cmd.Run(), "no catalog found")
	})

	t.Run("AfterAnalyze", func(t *testing.T) {
		t.Parallel()
		dir := writeProject(t)
		analyze := &AnalyzeCmd{ProjectFlags: ProjectFlags{Path: dir, Autocollect: true}}
		require.NoError(t, analyze.Run(&CLI{Quiet: true}))

		cmd := &QueryCmd{Query: "circle", Limit: 5, Path: dir}
		assert.NoError(t, cmd.Run())
	})
}

func TestParseCmd_Run(t *testing.T) {
	t.Parallel()
	dir := writeProject(t)

	assert.NoError(t, (&ParseCmd{File: filepath.Join(dir, "include", "shapes.h")}).Run())
	assert.Error(t, (&ParseCmd{File: filepath.Join(dir, "missing.h")}).Run())
}

func TestCollectCmd_Run(t *testing.T) {
	t.Parallel()
	dir := writeProject(t)

	assert.NoError(t, (&CollectCmd{ProjectFlags: ProjectFlags{Path: dir, Subject: []string{"Circle"}}}).Run())
	assert.NoError(t, (&CollectCmd{ProjectFlags: ProjectFlags{Path: dir, Autocollect: true}, JSON: true}).Run())
}

func TestResolve(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("/base", ".robin", "catalog"), resolve("/base", filepath.Join(".robin", "catalog")))
	assert.Equal(t, "/elsewhere", resolve("/base", "/elsewhere"))
}

// Execute replaces the global logger, so this test does not run in parallel.
func TestCLI_Execute(t *testing.T) {
	t.Run("UnknownCommand", func(t *testing.T) {
		assert.Error(t, NewCLI().Execute([]string{"bogus"}))
	})

	t.Run("Parse", func(t *testing.T) {
		dir := writeProject(t)
		assert.NoError(t, NewCLI().Execute([]string{"--quiet", "parse", filepath.Join(dir, "include", "shapes.h")}))
	})
}
