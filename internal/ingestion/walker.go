// Package ingestion loads C++ declarations into a program database and
// runs the analysis pipeline over them.
package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/skn123/robin-sub001/internal/errors"
)

// Source languages.
const (
	LanguageCpp      = "cpp"
	LanguageDocument = "document"
)

// FileEntry represents a file to be processed.
type FileEntry struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the path relative to the walked root.
	RelPath string

	// Language is LanguageCpp or LanguageDocument.
	Language string

	// Content is the file content.
	Content []byte

	// SHA256 is the hash of the file content.
	SHA256 string
}

// WalkOptions selects the files of a walk.
type WalkOptions struct {
	// Extensions are the header extensions to read, such as ".h".
	Extensions []string

	// Exclude holds extra gitignore-style patterns.
	Exclude []string
}

// Default patterns to ignore (in addition to .gitignore).
var defaultIgnorePatterns = []string{
	".git/",
	".robin/",
	"build/",
	"cmake-build-*/",
	"node_modules/",
	".cache/",
	".DS_Store",
}

// WalkSources walks root and returns the headers and declaration documents
// below it, honoring .gitignore.
func WalkSources(root string, opts WalkOptions) ([]FileEntry, error) {
	matcher, err := ignoreMatcher(root, opts.Exclude)
	if err != nil {
		return nil, err
	}
	return walk(root, opts.Extensions, matcher)
}

func walk(root string, extensions []string, matcher gitignore.Matcher) ([]FileEntry, error) {
	var entries []FileEntry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name(), path, root, matcher) {
				return filepath.SkipDir
			}
			return nil
		}

		language := languageOf(d.Name(), extensions)
		if language == "" {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matcher.Match(splitPath(relPath), false) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		hash := sha256.Sum256(content)

		entries = append(entries, FileEntry{
			Path:     path,
			RelPath:  relPath,
			Language: language,
			Content:  content,
			SHA256:   hex.EncodeToString(hash[:]),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", root)
	}
	return entries, nil
}

// loadGitignore loads .gitignore patterns from the root.
func loadGitignore(root string) ([]gitignore.Pattern, error) {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading .gitignore")
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, nil
}

// languageOf returns the language of a file, or "" when it is not read.
func languageOf(filename string, extensions []string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".yaml", ".yml":
		if strings.HasSuffix(strings.TrimSuffix(filename, filepath.Ext(filename)), ".robin") {
			return LanguageDocument
		}
		return ""
	}
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return LanguageCpp
		}
	}
	return ""
}

// shouldSkipDir checks if a directory should be skipped.
func shouldSkipDir(name, path, root string, matcher gitignore.Matcher) bool {
	if name == ".git" {
		return true
	}
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return matcher.Match(splitPath(relPath), true)
}

// splitPath splits a path into its components.
func splitPath(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
