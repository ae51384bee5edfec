package arch

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/matzehuels/drbmap/pkg/errors"
)

// description is the parse tree of an architecture description: a keyword
// followed by integer parameters.
type description struct {
	Kind string `parser:"@Ident"`
	Args []int  `parser:"@Int*"`
}

var descLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z][A-Za-z0-9]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "whitespace", Pattern: `[ \t\r\n]+`},
})

var descParser = participle.MustBuild[description](
	participle.Lexer(descLexer),
)

// Parse builds an architecture from its text description:
//
//	cmplt <n>                      complete graph with n terminals
//	hcub <dim>                     hypercube with 2^dim terminals
//	tleaf <levels> {<size> <cost>} tree-leaf with one size and link cost per level
//	mesh2D <x> <y>                 x by y grid
//
// Errors carry the [errors.ErrCodeInvalidArch] code.
func Parse(desc string) (Arch, error) {
	if err := errors.ValidateArchDescription(desc); err != nil {
		return nil, err
	}
	d, err := descParser.ParseString("", desc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArch, err, "cannot parse architecture %q", desc)
	}
	a, err := d.build()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArch, err, "invalid architecture %q", desc)
	}
	return a, nil
}

// MustParse is like [Parse] but panics on error. It is meant for tests and
// package-level variables.
func MustParse(desc string) Arch {
	a, err := Parse(desc)
	if err != nil {
		panic(err)
	}
	return a
}

func (d *description) build() (Arch, error) {
	want := func(n int) error {
		if len(d.Args) != n {
			return fmt.Errorf("%s takes %d parameter(s), got %d", d.Kind, n, len(d.Args))
		}
		return nil
	}

	switch strings.ToLower(d.Kind) {
	case "cmplt":
		if err := want(1); err != nil {
			return nil, err
		}
		return NewComplete(d.Args[0])
	case "hcub":
		if err := want(1); err != nil {
			return nil, err
		}
		return NewHypercube(d.Args[0])
	case "tleaf":
		if len(d.Args) == 0 {
			return nil, fmt.Errorf("tleaf needs a level count")
		}
		levels := d.Args[0]
		if err := want(1 + 2*levels); err != nil {
			return nil, err
		}
		sizes := make([]int, levels)
		costs := make([]int, levels)
		for i := range levels {
			sizes[i] = d.Args[1+2*i]
			costs[i] = d.Args[2+2*i]
		}
		return NewTreeLeaf(sizes, costs)
	case "mesh2d":
		if err := want(2); err != nil {
			return nil, err
		}
		return NewMesh2D(d.Args[0], d.Args[1])
	default:
		return nil, fmt.Errorf("unknown architecture %q", d.Kind)
	}
}
