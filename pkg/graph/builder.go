package graph

import (
	"cmp"
	"slices"
)

type arc struct {
	to, w int
}

// Builder assembles a [Graph]. The zero value is not usable; use [NewBuilder].
// A Builder is not safe for concurrent use.
type Builder struct {
	adj  [][]arc
	vwgt []int
}

// NewBuilder creates a builder for a graph with n vertices and no edges.
// All vertex weights start at 1.
func NewBuilder(n int) *Builder {
	vwgt := make([]int, n)
	for i := range vwgt {
		vwgt[i] = 1
	}
	return &Builder{adj: make([][]arc, n), vwgt: vwgt}
}

// VertexCount returns the number of vertices being built.
func (b *Builder) VertexCount() int { return len(b.adj) }

// SetVertexWeight sets the load of vertex v.
func (b *Builder) SetVertexWeight(v, w int) error {
	if v < 0 || v >= len(b.adj) {
		return ErrVertexOutOfRange
	}
	if w <= 0 {
		return ErrInvalidWeight
	}
	b.vwgt[v] = w
	return nil
}

// AddEdge adds the undirected edge {u, v} with weight w as two arcs.
// Adding the same edge twice accumulates its weight.
func (b *Builder) AddEdge(u, v, w int) error {
	if err := b.AddArc(u, v, w); err != nil {
		return err
	}
	return b.AddArc(v, u, w)
}

// AddArc adds the single arc u->v. Readers of formats that list both
// directions explicitly use this; [Builder.Build] rejects graphs whose arcs
// are not symmetric.
func (b *Builder) AddArc(u, v, w int) error {
	n := len(b.adj)
	if u < 0 || u >= n || v < 0 || v >= n {
		return ErrVertexOutOfRange
	}
	if u == v {
		return ErrSelfLoop
	}
	if w <= 0 {
		return ErrInvalidWeight
	}
	b.adj[u] = append(b.adj[u], arc{to: v, w: w})
	return nil
}

// Build produces the graph. Neighbor lists are sorted and parallel arcs are
// merged by summing their weights. Unit weight tables are dropped.
func (b *Builder) Build() (*Graph, error) {
	n := len(b.adj)
	g := &Graph{offsets: make([]int, n+1)}

	unitV, unitE := true, true
	for v := range n {
		g.vwsum += b.vwgt[v]
		if b.vwgt[v] != 1 {
			unitV = false
		}
	}

	var ewgt []int
	for v := range n {
		arcs := slices.Clone(b.adj[v])
		slices.SortFunc(arcs, func(x, y arc) int { return cmp.Compare(x.to, y.to) })
		for i, a := range arcs {
			if i > 0 && arcs[i-1].to == a.to {
				ewgt[len(ewgt)-1] += a.w
				continue
			}
			g.adj = append(g.adj, a.to)
			ewgt = append(ewgt, a.w)
		}
		g.offsets[v+1] = len(g.adj)
	}
	for _, w := range ewgt {
		if w != 1 {
			unitE = false
			break
		}
	}

	if !unitV {
		g.vwgt = slices.Clone(b.vwgt)
	}
	if !unitE {
		g.ewgt = ewgt
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Ring builds a cycle of n vertices with unit weights. For n < 3 the ring
// degenerates to a path (n == 2) or a single vertex.
func Ring(n int) *Graph {
	b := NewBuilder(n)
	switch {
	case n == 2:
		_ = b.AddEdge(0, 1, 1)
	case n >= 3:
		for v := range n {
			_ = b.AddEdge(v, (v+1)%n, 1)
		}
	}
	g, _ := b.Build()
	return g
}

// Hypercube builds the binary hypercube of the given dimension: 2^dim
// vertices, each connected to the dim vertices whose number differs by one
// bit.
func Hypercube(dim int) *Graph {
	n := 1 << dim
	b := NewBuilder(n)
	for v := range n {
		for bit := 1; bit < n; bit <<= 1 {
			if u := v ^ bit; u > v {
				_ = b.AddEdge(v, u, 1)
			}
		}
	}
	g, _ := b.Build()
	return g
}

// Mesh2D builds an x by y grid graph. Vertex (i, j) has number j*x + i.
func Mesh2D(x, y int) *Graph {
	b := NewBuilder(x * y)
	for j := range y {
		for i := range x {
			v := j*x + i
			if i+1 < x {
				_ = b.AddEdge(v, v+1, 1)
			}
			if j+1 < y {
				_ = b.AddEdge(v, v+x, 1)
			}
		}
	}
	g, _ := b.Build()
	return g
}
