// Package catalog keeps the documentation index of a run: one rendered
// entry per collected subject, searchable by name tokens.
//
// A Backend stores the entries produced by Build. BadgerBackend persists
// them on disk so that later commands can query the index without
// reparsing the headers; MemoryBackend serves tests and the tool server.
package catalog

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Entry is the documentation of one subject.
type Entry struct {
	// Name is the fully qualified name, such as "geo::Vec<double>".
	Name string `json:"name"`

	// Kind is the aggregate kind: class, struct or union.
	Kind string `json:"kind"`

	// Bases are the public bases, formatted as types.
	Bases []string `json:"bases,omitempty"`

	// Prototypes are the declarations of the public routines.
	Prototypes []string `json:"prototypes,omitempty"`

	// Fields are the declarations of the public fields.
	Fields []string `json:"fields,omitempty"`

	// Properties are the documentation properties that are not concealed.
	Properties map[string]string `json:"properties,omitempty"`

	// File and Line locate the declaration, when known.
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// SearchResult is one hit of Backend.Search.
type SearchResult struct {
	// Name is the full name of the matching entry.
	Name string

	// Kind is the aggregate kind of the entry.
	Kind string

	// Score is the relevance score (higher is better).
	Score float64

	// Snippet is the first prototype or field of the entry.
	Snippet string
}

// Backend defines the interface for catalog storage.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	// Initialize opens or creates the catalog at the given path.
	// If readOnly is true, Store fails.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// Store replaces the catalog contents with entries.
	Store(ctx context.Context, entries []*Entry) error

	// Entry returns the entry with the given full name, or an
	// element-not-found error.
	Entry(ctx context.Context, name string) (*Entry, error)

	// Search ranks the entries against the tokens of query. A non-positive
	// limit returns every hit.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// Count returns the number of stored entries.
	Count() int
}

var (
	separators = regexp.MustCompile(`[^A-Za-z0-9]+`)
	camelCase  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	digits     = regexp.MustCompile(`([A-Za-z])([0-9])`)
)

// tokenize splits text into lowercase search tokens. Scope operators,
// template brackets and declarator punctuation separate tokens, as do
// camelCase and letter-digit boundaries; whole words are kept as well.
func tokenize(text string) []string {
	seen := make(map[string]bool)
	var tokens []string
	add := func(token string) {
		token = strings.ToLower(token)
		if token != "" && !seen[token] {
			seen[token] = true
			tokens = append(tokens, token)
		}
	}

	for _, word := range separators.Split(text, -1) {
		add(word)
		split := camelCase.ReplaceAllString(word, "$1 $2")
		split = digits.ReplaceAllString(split, "$1 $2")
		for _, part := range strings.Fields(split) {
			add(part)
		}
	}
	return tokens
}

// Token weights. A hit in the subject's own name outranks a hit in its
// members.
const (
	nameWeight   = 3.0
	memberWeight = 1.0
)

// weights maps every token of e to its weight.
func weights(e *Entry) map[string]float64 {
	w := make(map[string]float64)
	addAll := func(text string, weight float64) {
		for _, token := range tokenize(text) {
			w[token] += weight
		}
	}
	addAll(e.Name, nameWeight)
	for _, base := range e.Bases {
		addAll(base, memberWeight)
	}
	for _, p := range e.Prototypes {
		addAll(p, memberWeight)
	}
	for _, f := range e.Fields {
		addAll(f, memberWeight)
	}
	for _, v := range e.Properties {
		addAll(v, memberWeight)
	}
	return w
}

// snippet returns the first member declaration of e.
func snippet(e *Entry) string {
	if len(e.Prototypes) > 0 {
		return e.Prototypes[0]
	}
	if len(e.Fields) > 0 {
		return e.Fields[0]
	}
	return ""
}

// rank orders results by score, then by name, and applies limit.
func rank(results []SearchResult, limit int) []SearchResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
