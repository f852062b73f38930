package catalog

import (
	"context"
	"sync"

	"github.com/skn123/robin-sub001/internal/errors"
)

// MemoryBackend is an in-memory implementation of Backend.
type MemoryBackend struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	readOnly bool
}

// NewMemoryBackend creates a new in-memory catalog.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]*Entry)}
}

// Initialize implements Backend. The path is ignored.
func (m *MemoryBackend) Initialize(_ string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readOnly = readOnly
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Entry)
	return nil
}

// Store implements Backend.
func (m *MemoryBackend) Store(_ context.Context, entries []*Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readOnly {
		return errors.New("catalog is read-only")
	}

	m.entries = make(map[string]*Entry, len(entries))
	for _, e := range entries {
		m.entries[e.Name] = e
	}
	return nil
}

// Entry implements Backend.
func (m *MemoryBackend) Entry(_ context.Context, name string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[name]; ok {
		return e, nil
	}
	return nil, errors.NotFound(name)
}

// Search implements Backend.
func (m *MemoryBackend) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queryTokens := tokenize(query)
	var results []SearchResult
	for _, e := range m.entries {
		w := weights(e)
		score := 0.0
		for _, token := range queryTokens {
			score += w[token]
		}
		if score > 0 {
			results = append(results, SearchResult{Name: e.Name, Kind: e.Kind, Score: score, Snippet: snippet(e)})
		}
	}
	return rank(results, limit), nil
}

// Count implements Backend.
func (m *MemoryBackend) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
