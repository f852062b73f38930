package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var headerExtensions = []string{".h", ".hpp"}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

func relPaths(entries []FileEntry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = filepath.ToSlash(e.RelPath)
	}
	sort.Strings(paths)
	return paths
}

func TestWalkSources(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"geo.h":                  "class Point {};",
		"src/shape.hpp":          "class Shape {};",
		"src/shape.cpp":          "int main() {}",
		"README.md":              "# README",
		".gitignore":             "generated/\n*.tmp.h\n",
		"generated/proto.h":      "class Proto {};",
		"scratch.tmp.h":          "class Scratch {};",
		"build/config.h":         "#define X 1",
		"third_party/vendored.h": "class Vendored {};",
		"api.robin.yaml":         "elements: []",
		"ci.yaml":                "jobs: []",
	})

	t.Run("HeadersAndDocuments", func(t *testing.T) {
		t.Parallel()
		entries, err := WalkSources(tmpDir, WalkOptions{Extensions: headerExtensions})
		require.NoError(t, err)
		assert.Equal(t, []string{"api.robin.yaml", "geo.h", "src/shape.hpp", "third_party/vendored.h"}, relPaths(entries))

		for _, e := range entries {
			if e.RelPath == "api.robin.yaml" {
				assert.Equal(t, LanguageDocument, e.Language)
			} else {
				assert.Equal(t, LanguageCpp, e.Language)
			}
		}
	})

	t.Run("ExcludePatterns", func(t *testing.T) {
		t.Parallel()
		entries, err := WalkSources(tmpDir, WalkOptions{Extensions: headerExtensions, Exclude: []string{"third_party/"}})
		require.NoError(t, err)
		assert.NotContains(t, relPaths(entries), "third_party/vendored.h")
		assert.Contains(t, relPaths(entries), "geo.h")
	})

	t.Run("NoExtensions", func(t *testing.T) {
		t.Parallel()
		entries, err := WalkSources(tmpDir, WalkOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"api.robin.yaml"}, relPaths(entries))
	})

	t.Run("MissingRoot", func(t *testing.T) {
		t.Parallel()
		_, err := WalkSources(filepath.Join(tmpDir, "absent"), WalkOptions{Extensions: headerExtensions})
		assert.Error(t, err)
	})
}

func TestLoadGitignore(t *testing.T) {
	t.Parallel()

	t.Run("NoGitignore", func(t *testing.T) {
		t.Parallel()
		patterns, err := loadGitignore(t.TempDir())
		assert.NoError(t, err)
		assert.Empty(t, patterns)
	})

	t.Run("WithGitignore", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("# comment\n*.o\n\nbuild/\n"), 0o644))

		patterns, err := loadGitignore(tmpDir)
		assert.NoError(t, err)
		assert.Len(t, patterns, 2)
	})
}

func TestLanguageOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		expected string
	}{
		{"Header", "point.h", LanguageCpp},
		{"UpperCase", "POINT.HPP", LanguageCpp},
		{"Source", "point.cpp", ""},
		{"Document", "decls.robin.yaml", LanguageDocument},
		{"DocumentYml", "decls.robin.yml", LanguageDocument},
		{"OtherYaml", "compose.yaml", ""},
		{"Markdown", "README.md", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, languageOf(tt.filename, headerExtensions))
		})
	}
}

func TestFileEntry_HashConsistency(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	content := "struct S {};"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "s.h"), []byte(content), 0o644))

	entries, err := WalkSources(tmpDir, WalkOptions{Extensions: headerExtensions})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	expectedHash := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(expectedHash[:]), entries[0].SHA256)
	assert.Equal(t, []byte(content), entries[0].Content)
}
