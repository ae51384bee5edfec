package arch

import "fmt"

// Complete is a complete graph of terminals: every pair of distinct
// terminals is one hop apart.
type Complete struct {
	n int
}

// NewComplete returns a complete-graph architecture with n terminals.
func NewComplete(n int) (*Complete, error) {
	if n < 1 || n > MaxTerminals {
		return nil, fmt.Errorf("cmplt: terminal count %d out of range [1, %d]", n, MaxTerminals)
	}
	return &Complete{n: n}, nil
}

func (c *Complete) Name() string           { return "cmplt" }
func (c *Complete) Root() Domain           { return Span(0, c.n-1) }
func (c *Complete) Terminal(d Domain) bool { return d.Lo[0] == d.Hi[0] }
func (c *Complete) TerminalNum(d Domain) int {
	return d.Lo[0]
}
func (c *Complete) Weight(d Domain) int { return d.Size() }
func (c *Complete) String() string      { return fmt.Sprintf("cmplt %d", c.n) }

func (c *Complete) Bipart(d Domain) (Domain, Domain, error) {
	if c.Terminal(d) {
		return Domain{}, Domain{}, ErrTerminal
	}
	lo0, hi0, lo1, hi1 := halve(d.Lo[0], d.Hi[0])
	return Span(lo0, hi0), Span(lo1, hi1), nil
}

// Distance is 0 between identical domains and 1 otherwise.
func (c *Complete) Distance(a, b Domain) int {
	if a == b {
		return 0
	}
	return 1
}
