// Package arch models target architectures as trees of domains.
//
// A domain is a set of terminals (processors). The root domain holds every
// terminal; [Arch.Bipart] splits a non-terminal domain into two non-empty
// subdomains, and repeated splitting always ends at single-terminal domains.
// The mapper walks this tree in lock-step with recursive graph bipartitioning.
//
// Architectures are usually built from a short text description:
//
//	a, err := arch.Parse("tleaf 2 4 10 2 1")
//
// See [Parse] for the accepted forms.
package arch

import (
	"errors"
	"fmt"
)

// ErrTerminal is returned by [Arch.Bipart] for a single-terminal domain.
var ErrTerminal = errors.New("domain is terminal")

// MaxTerminals bounds the terminal count of every architecture.
const MaxTerminals = 1 << 30

// Domain is a box of terminals. One-dimensional architectures use only the
// first coordinate; [Mesh2D] uses both. Bounds are inclusive.
type Domain struct {
	Lo [2]int `json:"lo"`
	Hi [2]int `json:"hi"`
}

// Span returns a one-dimensional domain covering terminals lo..hi.
func Span(lo, hi int) Domain {
	return Domain{Lo: [2]int{lo, 0}, Hi: [2]int{hi, 0}}
}

// Size returns the number of terminals in d.
func (d Domain) Size() int {
	return (d.Hi[0] - d.Lo[0] + 1) * (d.Hi[1] - d.Lo[1] + 1)
}

// Contains reports whether every terminal of o is also in d.
func (d Domain) Contains(o Domain) bool {
	for i := range 2 {
		if o.Lo[i] < d.Lo[i] || o.Hi[i] > d.Hi[i] {
			return false
		}
	}
	return true
}

func (d Domain) String() string {
	if d.Lo[1] == 0 && d.Hi[1] == 0 {
		if d.Lo[0] == d.Hi[0] {
			return fmt.Sprintf("[%d]", d.Lo[0])
		}
		return fmt.Sprintf("[%d..%d]", d.Lo[0], d.Hi[0])
	}
	return fmt.Sprintf("[%d..%d]x[%d..%d]", d.Lo[0], d.Hi[0], d.Lo[1], d.Hi[1])
}

// Arch is a target architecture.
//
// Implementations are immutable and safe for concurrent use.
type Arch interface {
	// Name returns the architecture keyword, such as "hcub".
	Name() string

	// Root returns the domain holding every terminal.
	Root() Domain

	// Terminal reports whether d holds a single terminal.
	Terminal(d Domain) bool

	// Bipart splits a non-terminal domain into two non-empty, disjoint
	// subdomains whose union is d. It returns [ErrTerminal] for terminals.
	Bipart(d Domain) (Domain, Domain, error)

	// TerminalNum returns the terminal number of a terminal domain, in
	// the range [0, Weight(Root())).
	TerminalNum(d Domain) int

	// Weight returns the processing capacity of d. Every terminal counts 1.
	Weight(d Domain) int

	// Distance returns the communication cost between two domains. It is
	// zero for a domain and itself.
	Distance(a, b Domain) int

	// String returns a description that [Parse] accepts.
	String() string
}

// Terminals returns the number of terminals of a.
func Terminals(a Arch) int { return a.Weight(a.Root()) }

// Depth returns the height of the domain tree of a. It follows the heavier
// subdomain of every split, which is the deepest one since every
// architecture gives the extra terminals of an uneven split to the first
// half.
func Depth(a Arch) int {
	depth := 0
	for d := a.Root(); !a.Terminal(d); depth++ {
		d0, d1, err := a.Bipart(d)
		if err != nil {
			break
		}
		d = d0
		if a.Weight(d1) > a.Weight(d0) {
			d = d1
		}
	}
	return depth
}

// halve splits the inclusive range lo..hi into two non-empty halves, the
// first one taking the extra element when the count is odd.
func halve(lo, hi int) (int, int, int, int) {
	mid := lo + (hi-lo+1+1)/2 - 1
	return lo, mid, mid + 1, hi
}

// locator is implemented by architectures whose terminal numbers are not
// the first domain coordinate.
type locator interface {
	locate(num int) Domain
}

// TerminalDomain returns the terminal domain numbered num. It walks the
// domain tree from the root, so only the domains on the path are built.
func TerminalDomain(a Arch, num int) (Domain, bool) {
	if num < 0 || num >= Terminals(a) {
		return Domain{}, false
	}
	point := Span(num, num)
	if l, ok := a.(locator); ok {
		point = l.locate(num)
	}
	d := a.Root()
	for !a.Terminal(d) {
		d0, d1, err := a.Bipart(d)
		if err != nil {
			return Domain{}, false
		}
		switch {
		case d0.Contains(point):
			d = d0
		case d1.Contains(point):
			d = d1
		default:
			return Domain{}, false
		}
	}
	return d, a.TerminalNum(d) == num
}

// TerminalDomains returns the terminal domains of a numbered below limit,
// indexed by terminal number.
func TerminalDomains(a Arch, limit int) []Domain {
	out := make([]Domain, 0, max(0, min(limit, Terminals(a))))
	for num := range cap(out) {
		d, ok := TerminalDomain(a, num)
		if !ok {
			break
		}
		out = append(out, d)
	}
	return out
}
