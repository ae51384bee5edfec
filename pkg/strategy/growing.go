package strategy

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/matzehuels/drbmap/pkg/graph"
)

// Default parameters of [GraphGrowing].
const (
	DefaultPasses       = 4
	DefaultRefinePasses = 8
	DefaultTolerance    = 0.05
)

// GraphGrowing bipartitions by growing part 0 from a seed vertex, always
// absorbing the frontier vertex with the best cut gain, until part 0 holds
// its share of the load. Each result is then improved by moving boundary
// vertices with positive gain while the balance stays within tolerance.
// The best of several seeds is kept.
type GraphGrowing struct {
	// Passes is the number of seed vertices tried.
	Passes int
	// RefinePasses bounds the boundary refinement sweeps per seed.
	RefinePasses int
	// Tolerance is the allowed relative deviation of part 0 from its
	// target load.
	Tolerance float64
}

// NewGraphGrowing returns a graph-growing strategy with default parameters.
func NewGraphGrowing() *GraphGrowing {
	return &GraphGrowing{
		Passes:       DefaultPasses,
		RefinePasses: DefaultRefinePasses,
		Tolerance:    DefaultTolerance,
	}
}

func (s *GraphGrowing) String() string {
	return fmt.Sprintf("grow{passes=%d,refine=%d,tol=%g}", s.Passes, s.RefinePasses, s.Tolerance)
}

// Bipartition implements [Strategy].
func (s *GraphGrowing) Bipartition(ctx context.Context, g *graph.Graph, req Request) (Partition, error) {
	if req.Weight0 < 0 || req.Weight1 < 0 || req.Weight0+req.Weight1 == 0 {
		return nil, fmt.Errorf("invalid domain weights %d and %d", req.Weight0, req.Weight1)
	}
	n := g.VertexCount()
	if n == 0 {
		return Partition{}, nil
	}

	total := g.TotalWeight()
	b := &bisection{
		g:      g,
		target: int(int64(total) * int64(req.Weight0) / int64(req.Weight0+req.Weight1)),
	}
	b.slack = max(int(s.Tolerance*float64(total)), maxVertexWeight(g)/2)

	rng := rand.New(rand.NewPCG(req.Seed, req.Seed^0xdeadbeef))
	var best Partition
	bestCut, bestDev := 0, 0
	for range max(s.Passes, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.grow(rng.IntN(n))
		b.refine(s.RefinePasses)

		cut, dev := b.cut(), abs(b.load0-b.target)
		if best == nil || cut < bestCut || (cut == bestCut && dev < bestDev) {
			best = append(best[:0], b.part...)
			bestCut, bestDev = cut, dev
		}
	}
	return best, nil
}

// bisection is the working state of one growing pass.
type bisection struct {
	g      *graph.Graph
	target int
	slack  int

	part  Partition
	load0 int
	gain  []int
	stamp []int
}

type candidate struct {
	v, gain, stamp int
}

func (b *bisection) grow(seed int) {
	g := b.g
	n := g.VertexCount()
	b.part = make(Partition, n)
	b.gain = make([]int, n)
	b.stamp = make([]int, n)
	b.load0 = 0
	for v := range n {
		b.part[v] = 1
		start, end := g.Arcs(v)
		for e := start; e < end; e++ {
			b.gain[v] -= g.ArcWeight(e)
		}
	}

	heap := binaryheap.NewWith(func(x, y interface{}) int {
		a, c := x.(candidate), y.(candidate)
		switch {
		case a.gain != c.gain:
			return c.gain - a.gain
		default:
			return a.v - c.v
		}
	})
	heap.Push(candidate{v: seed, gain: b.gain[seed]})

	next := 0 // restart point for disconnected graphs
	for b.load0 < b.target {
		item, ok := heap.Pop()
		if !ok {
			for next < n && b.part[next] == 0 {
				next++
			}
			if next == n {
				return
			}
			heap.Push(candidate{v: next, gain: b.gain[next], stamp: b.stamp[next]})
			next++
			continue
		}
		c := item.(candidate)
		if b.part[c.v] == 0 || c.stamp != b.stamp[c.v] {
			continue
		}
		w := g.VertexWeight(c.v)
		if b.load0 > 0 && b.load0+w > b.target+b.slack {
			continue
		}
		b.part[c.v] = 0
		b.load0 += w

		start, end := g.Arcs(c.v)
		for e := start; e < end; e++ {
			u := g.ArcTarget(e)
			if b.part[u] == 0 {
				continue
			}
			b.gain[u] += 2 * g.ArcWeight(e)
			b.stamp[u]++
			heap.Push(candidate{v: u, gain: b.gain[u], stamp: b.stamp[u]})
		}
	}
}

// refine sweeps over the vertices, moving each one whose move lowers the
// cut, or keeps it and improves the balance, without leaving the tolerance.
func (b *bisection) refine(passes int) {
	g := b.g
	for range passes {
		moved := false
		for v := range g.VertexCount() {
			ext, in := 0, 0
			start, end := g.Arcs(v)
			for e := start; e < end; e++ {
				if b.part[g.ArcTarget(e)] == b.part[v] {
					in += g.ArcWeight(e)
				} else {
					ext += g.ArcWeight(e)
				}
			}
			if ext == 0 {
				continue
			}
			w := g.VertexWeight(v)
			load0 := b.load0 - w
			if b.part[v] == 1 {
				load0 = b.load0 + w
			}
			if load0 <= 0 || load0 >= g.TotalWeight() {
				continue
			}
			dev, newDev := abs(b.load0-b.target), abs(load0-b.target)
			if newDev > b.slack && newDev >= dev {
				continue
			}
			if gain := ext - in; gain > 0 || (gain == 0 && newDev < dev) {
				b.part[v] ^= 1
				b.load0 = load0
				moved = true
			}
		}
		if !moved {
			return
		}
	}
}

func (b *bisection) cut() int {
	g := b.g
	cut := 0
	for v := range g.VertexCount() {
		start, end := g.Arcs(v)
		for e := start; e < end; e++ {
			if u := g.ArcTarget(e); u > v && b.part[u] != b.part[v] {
				cut += g.ArcWeight(e)
			}
		}
	}
	return cut
}

func maxVertexWeight(g *graph.Graph) int {
	m := 0
	for v := range g.VertexCount() {
		m = max(m, g.VertexWeight(v))
	}
	return m
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
