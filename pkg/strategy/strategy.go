// Package strategy defines how the mapper splits one job's graph in two.
//
// A [Strategy] receives a graph together with the two subdomains the job's
// domain splits into, and returns a [Partition] assigning each vertex to
// part 0 or part 1. The mapper treats strategies as opaque: it validates
// the returned partition and reports any error as a strategy failure.
package strategy

import (
	"context"
	"fmt"

	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/graph"
)

// Request describes one bipartition.
type Request struct {
	// Domain0 and Domain1 are the subdomains that parts 0 and 1 map to.
	Domain0, Domain1 arch.Domain
	// Weight0 and Weight1 are the capacities of the subdomains. A balanced
	// partition gives each part a load proportional to its capacity.
	Weight0, Weight1 int
	// Seed initializes any randomness. Equal requests with equal seeds
	// must produce equal partitions.
	Seed uint64
}

// Partition assigns each vertex of a graph to part 0 or 1.
type Partition []uint8

// Sizes returns the number of vertices in each part.
func (p Partition) Sizes() (n0, n1 int) {
	for _, x := range p {
		if x == 0 {
			n0++
		} else {
			n1++
		}
	}
	return n0, n1
}

// Validate checks that p covers n vertices with values 0 and 1 only.
func (p Partition) Validate(n int) error {
	if len(p) != n {
		return fmt.Errorf("partition has %d entries for %d vertices", len(p), n)
	}
	for v, x := range p {
		if x > 1 {
			return fmt.Errorf("vertex %d in part %d", v, x)
		}
	}
	return nil
}

// Strategy computes bipartitions. Implementations must be safe for
// concurrent use, since tied rounds run several bipartitions at once.
type Strategy interface {
	Bipartition(ctx context.Context, g *graph.Graph, req Request) (Partition, error)
}

// Func adapts a function to the [Strategy] interface.
type Func func(ctx context.Context, g *graph.Graph, req Request) (Partition, error)

// Bipartition calls f.
func (f Func) Bipartition(ctx context.Context, g *graph.Graph, req Request) (Partition, error) {
	return f(ctx, g, req)
}
