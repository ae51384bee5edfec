package arch

import (
	"fmt"
	"strings"
)

// TreeLeaf is a tree-shaped machine whose leaves are the terminals, such as
// a cluster of nodes made of sockets made of cores. Level i has Sizes[i]
// children per node, and sending a message across a level i node costs
// Costs[i].
type TreeLeaf struct {
	sizes []int
	costs []int
	// block[i] is the number of terminals below one node of level i.
	block []int
}

// NewTreeLeaf returns a tree-leaf architecture. sizes and costs must have the
// same non-zero length.
func NewTreeLeaf(sizes, costs []int) (*TreeLeaf, error) {
	if len(sizes) == 0 || len(sizes) != len(costs) {
		return nil, fmt.Errorf("tleaf: need one size and one cost per level")
	}
	t := &TreeLeaf{
		sizes: append([]int(nil), sizes...),
		costs: append([]int(nil), costs...),
		block: make([]int, len(sizes)),
	}
	b := 1
	for i := len(sizes) - 1; i >= 0; i-- {
		if sizes[i] < 1 {
			return nil, fmt.Errorf("tleaf: level %d has size %d", i, sizes[i])
		}
		if costs[i] < 0 {
			return nil, fmt.Errorf("tleaf: level %d has negative cost %d", i, costs[i])
		}
		t.block[i] = b
		if sizes[i] > MaxTerminals/b {
			return nil, fmt.Errorf("tleaf: more than %d terminals", MaxTerminals)
		}
		b *= sizes[i]
	}
	return t, nil
}

func (t *TreeLeaf) Name() string             { return "tleaf" }
func (t *TreeLeaf) Root() Domain             { return Span(0, t.block[0]*t.sizes[0]-1) }
func (t *TreeLeaf) Terminal(d Domain) bool   { return d.Lo[0] == d.Hi[0] }
func (t *TreeLeaf) TerminalNum(d Domain) int { return d.Lo[0] }
func (t *TreeLeaf) Weight(d Domain) int      { return d.Size() }

func (t *TreeLeaf) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "tleaf %d", len(t.sizes))
	for i := range t.sizes {
		fmt.Fprintf(&sb, " %d %d", t.sizes[i], t.costs[i])
	}
	return sb.String()
}

// Bipart splits the children of the shallowest level at which d spans more
// than one node, so subdomains always stay aligned on tree nodes.
func (t *TreeLeaf) Bipart(d Domain) (Domain, Domain, error) {
	if t.Terminal(d) {
		return Domain{}, Domain{}, ErrTerminal
	}
	lo, hi := d.Lo[0], d.Hi[0]
	for _, b := range t.block {
		first, last := lo/b, hi/b
		if first == last {
			continue
		}
		f0, l0, f1, l1 := halve(first, last)
		return Span(f0*b, (l0+1)*b-1), Span(f1*b, (l1+1)*b-1), nil
	}
	return Domain{}, Domain{}, ErrTerminal
}

// Distance is the link cost of the shallowest level separating the two
// domains, or 0 when they share every ancestor.
func (t *TreeLeaf) Distance(a, b Domain) int {
	for i, blk := range t.block {
		if a.Lo[0]/blk != b.Lo[0]/blk {
			return t.costs[i]
		}
	}
	return 0
}
