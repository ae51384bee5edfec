package graph

import (
	"errors"
	"slices"
)

var (
	// ErrVertexOutOfRange is returned when an edge or a fold subset references
	// a vertex index outside [0, VertexCount).
	ErrVertexOutOfRange = errors.New("vertex out of range")

	// ErrSelfLoop is returned when an edge connects a vertex to itself.
	ErrSelfLoop = errors.New("self loop")

	// ErrAsymmetric is returned by [Graph.Validate] when an arc u->v has no
	// matching arc v->u of the same weight.
	ErrAsymmetric = errors.New("adjacency is not symmetric")

	// ErrInvalidWeight is returned when a vertex or edge weight is not positive.
	ErrInvalidWeight = errors.New("weights must be positive")

	// ErrEmptySubset is returned by [Graph.Fold] for an empty vertex subset.
	ErrEmptySubset = errors.New("empty vertex subset")

	// ErrDuplicateVertex is returned by [Graph.Fold] when a vertex appears twice
	// in the subset.
	ErrDuplicateVertex = errors.New("duplicate vertex in subset")
)

// Graph is an undirected weighted graph in compressed adjacency form.
//
// Arcs of vertex v occupy indices [offsets[v], offsets[v+1]) of adj. Each
// undirected edge appears as two arcs. Nil weight tables mean unit weights
// and a nil origin table means vertices carry their own index as origin.
//
// A Graph is never modified after construction and is safe for concurrent
// readers.
type Graph struct {
	offsets []int
	adj     []int
	vwgt    []int
	ewgt    []int
	origin  []int
	vwsum   int
}

// VertexCount returns the number of vertices.
func (g *Graph) VertexCount() int { return len(g.offsets) - 1 }

// ArcCount returns the number of arcs, twice the number of edges.
func (g *Graph) ArcCount() int { return len(g.adj) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return len(g.adj) / 2 }

// Arcs returns the half-open arc index range of vertex v.
func (g *Graph) Arcs(v int) (start, end int) { return g.offsets[v], g.offsets[v+1] }

// ArcTarget returns the head vertex of arc a.
func (g *Graph) ArcTarget(a int) int { return g.adj[a] }

// ArcWeight returns the weight of arc a.
func (g *Graph) ArcWeight(a int) int {
	if g.ewgt == nil {
		return 1
	}
	return g.ewgt[a]
}

// Neighbors returns the neighbors of v in ascending order.
// The returned slice aliases internal storage and must not be modified.
func (g *Graph) Neighbors(v int) []int { return g.adj[g.offsets[v]:g.offsets[v+1]] }

// Degree returns the number of neighbors of v.
func (g *Graph) Degree(v int) int { return g.offsets[v+1] - g.offsets[v] }

// VertexWeight returns the load of vertex v.
func (g *Graph) VertexWeight(v int) int {
	if g.vwgt == nil {
		return 1
	}
	return g.vwgt[v]
}

// TotalWeight returns the sum of all vertex weights.
func (g *Graph) TotalWeight() int { return g.vwsum }

// Origin returns the original vertex number of v, as numbered in the graph
// the caller first submitted.
func (g *Graph) Origin(v int) int {
	if g.origin == nil {
		return v
	}
	return g.origin[v]
}

// HasVertexWeights reports whether the graph carries non-unit vertex weights.
func (g *Graph) HasVertexWeights() bool { return g.vwgt != nil }

// HasEdgeWeights reports whether the graph carries non-unit edge weights.
func (g *Graph) HasEdgeWeights() bool { return g.ewgt != nil }

// Validate checks structural integrity: arc targets in range, no self
// loops, positive weights and symmetric adjacency with matching weights.
// Graphs produced by [Builder.Build] and [Graph.Fold] are always valid.
func (g *Graph) Validate() error {
	n := g.VertexCount()
	for v := range n {
		if g.VertexWeight(v) <= 0 {
			return ErrInvalidWeight
		}
		start, end := g.Arcs(v)
		for a := start; a < end; a++ {
			u := g.adj[a]
			if u < 0 || u >= n {
				return ErrVertexOutOfRange
			}
			if u == v {
				return ErrSelfLoop
			}
			w := g.ArcWeight(a)
			if w <= 0 {
				return ErrInvalidWeight
			}
			if back, ok := g.findArc(u, v); !ok || g.ArcWeight(back) != w {
				return ErrAsymmetric
			}
		}
	}
	return nil
}

func (g *Graph) findArc(from, to int) (int, bool) {
	start, end := g.Arcs(from)
	i, ok := slices.BinarySearch(g.adj[start:end], to)
	return start + i, ok
}

// Rooted returns a view of g that shares its storage but numbers origins
// from g itself: Origin(v) == v for every vertex.
func (g *Graph) Rooted() *Graph {
	r := *g
	r.origin = nil
	return &r
}

// Fold extracts the subgraph induced by the given vertices.
//
// The subset may be given in any order; the new graph numbers the retained
// vertices in ascending order of their index in g. Vertex weights, edge
// weights and origins are preserved, and edges leaving the subset are
// dropped. The result shares no storage with g.
func (g *Graph) Fold(vertices []int) (*Graph, error) {
	if len(vertices) == 0 {
		return nil, ErrEmptySubset
	}
	n := g.VertexCount()
	renum := make([]int, n)
	for i := range renum {
		renum[i] = -1
	}
	for _, v := range vertices {
		if v < 0 || v >= n {
			return nil, ErrVertexOutOfRange
		}
		if renum[v] >= 0 {
			return nil, ErrDuplicateVertex
		}
		renum[v] = 0
	}
	kept := make([]int, 0, len(vertices))
	for v := range n {
		if renum[v] >= 0 {
			renum[v] = len(kept)
			kept = append(kept, v)
		}
	}

	f := &Graph{
		offsets: make([]int, len(kept)+1),
		origin:  make([]int, len(kept)),
	}
	if g.vwgt != nil {
		f.vwgt = make([]int, len(kept))
	}
	for i, v := range kept {
		f.origin[i] = g.Origin(v)
		if f.vwgt != nil {
			f.vwgt[i] = g.vwgt[v]
		}
		f.vwsum += g.VertexWeight(v)

		start, end := g.Arcs(v)
		for a := start; a < end; a++ {
			u := renum[g.adj[a]]
			if u < 0 {
				continue
			}
			f.adj = append(f.adj, u)
			if g.ewgt != nil {
				f.ewgt = append(f.ewgt, g.ewgt[a])
			}
		}
		f.offsets[i+1] = len(f.adj)
	}
	return f, nil
}
