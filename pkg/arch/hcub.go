package arch

import (
	"fmt"
	"math/bits"
)

// maxHypercubeDim keeps hypercubes within [MaxTerminals].
const maxHypercubeDim = 30

// Hypercube is a binary hypercube. Terminal numbers are vertex labels, and
// splitting fixes the highest free bit first.
type Hypercube struct {
	dim int
}

// NewHypercube returns a hypercube of dimension dim (2^dim terminals).
func NewHypercube(dim int) (*Hypercube, error) {
	if dim < 0 || dim > maxHypercubeDim {
		return nil, fmt.Errorf("hcub: dimension %d out of range [0, %d]", dim, maxHypercubeDim)
	}
	return &Hypercube{dim: dim}, nil
}

func (h *Hypercube) Name() string             { return "hcub" }
func (h *Hypercube) Root() Domain             { return Span(0, 1<<h.dim-1) }
func (h *Hypercube) Terminal(d Domain) bool   { return d.Lo[0] == d.Hi[0] }
func (h *Hypercube) TerminalNum(d Domain) int { return d.Lo[0] }
func (h *Hypercube) Weight(d Domain) int      { return d.Size() }
func (h *Hypercube) String() string           { return fmt.Sprintf("hcub %d", h.dim) }

func (h *Hypercube) Bipart(d Domain) (Domain, Domain, error) {
	if h.Terminal(d) {
		return Domain{}, Domain{}, ErrTerminal
	}
	lo0, hi0, lo1, hi1 := halve(d.Lo[0], d.Hi[0])
	return Span(lo0, hi0), Span(lo1, hi1), nil
}

// Distance counts the fixed bits in which the two subcubes differ, plus half
// the free bits of the larger subcube as the expected extra hops.
func (h *Hypercube) Distance(a, b Domain) int {
	free := max(freeBits(a), freeBits(b))
	return bits.OnesCount(uint(a.Lo[0]^b.Lo[0])>>free) + free/2
}

func freeBits(d Domain) int {
	return bits.Len(uint(d.Size())) - 1
}
