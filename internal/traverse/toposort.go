package traverse

import (
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/types"
)

// BaseResolver maps an inheritance edge to the aggregate standing for the
// base in a sort, or nil to ignore the edge.
type BaseResolver func(conn *graph.InheritanceConnection) *graph.Aggregate

// DirectBase resolves an edge to its base aggregate; a templated base is
// represented by its general template.
func DirectBase(db *graph.Database) BaseResolver {
	return func(conn *graph.InheritanceConnection) *graph.Aggregate {
		agg, _ := db.Entity(conn.Base).(*graph.Aggregate)
		return agg
	}
}

// TopoSort orders subjects so that no base comes after a class deriving
// from it. Only edges whose both ends are in subjects count. Ready classes
// are emitted in sweeps over the input order. When the
// inheritance edges form a cycle the classes on it are appended in input
// order, so the result is always a permutation of subjects.
func TopoSort(subjects []*graph.Aggregate, resolve BaseResolver) []*graph.Aggregate {
	index := make(map[types.EntityID]int, len(subjects))
	for i, s := range subjects {
		if _, dup := index[s.ID()]; !dup {
			index[s.ID()] = i
		}
	}

	inDegree := make([]int, len(subjects))
	derived := make([][]int, len(subjects))
	for i, s := range subjects {
		if index[s.ID()] != i {
			continue
		}
		for _, conn := range s.Bases() {
			base := resolve(conn)
			if base == nil {
				continue
			}
			j, ok := index[base.ID()]
			if !ok || j == i {
				continue
			}
			derived[j] = append(derived[j], i)
			inDegree[i]++
		}
	}

	sorted := make([]*graph.Aggregate, 0, len(index))
	done := make([]bool, len(subjects))
	for i, s := range subjects {
		if index[s.ID()] != i {
			done[i] = true
		}
	}

	for len(sorted) < len(index) {
		progressed := false
		for i := range subjects {
			if done[i] || inDegree[i] > 0 {
				continue
			}
			done[i] = true
			progressed = true
			sorted = append(sorted, subjects[i])
			for _, d := range derived[i] {
				inDegree[d]--
			}
		}
		if progressed {
			continue
		}
		// Cycle: release the first remaining class.
		for i := range subjects {
			if !done[i] {
				inDegree[i] = 0
				break
			}
		}
	}
	return sorted
}
