package collect

import (
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/types"
)

// set is an insertion-ordered set of entities.
type set[T graph.Entity] struct {
	items []T
	seen  map[types.EntityID]bool
}

func newSet[T graph.Entity]() *set[T] {
	return &set[T]{seen: make(map[types.EntityID]bool)}
}

func (s *set[T]) add(e T) bool {
	if s.seen[e.ID()] {
		return false
	}
	s.seen[e.ID()] = true
	s.items = append(s.items, e)
	return true
}

func (s *set[T]) list() []T { return append([]T(nil), s.items...) }
