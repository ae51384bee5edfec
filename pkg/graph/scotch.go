package graph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrBadScotch is returned when Scotch graph input is malformed.
var ErrBadScotch = errors.New("bad scotch input")

// scotchVersion is the only graph file version understood.
const scotchVersion = 0

// tokenReader yields whitespace-separated integers.
type tokenReader struct {
	sc    *bufio.Scanner
	count int
}

func newTokenReader(r io.Reader) *tokenReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 4096), 1024*1024)
	sc.Split(bufio.ScanWords)
	return &tokenReader{sc: sc}
}

// text returns the next token.
func (t *tokenReader) text(what string) (string, error) {
	if !t.sc.Scan() {
		if err := t.sc.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: unexpected end of input reading %s", ErrBadScotch, what)
	}
	t.count++
	return t.sc.Text(), nil
}

// int returns the next token as a non-negative integer.
func (t *tokenReader) int(what string) (int, error) {
	s, err := t.text(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: token %d: invalid %s %q", ErrBadScotch, t.count, what, s)
	}
	return v, nil
}

// ReadScotch decodes a graph in the Scotch source graph format.
//
// The header holds the file version (0), the vertex and arc counts (an
// undirected edge counts as two arcs), the base value (0 or 1) and a flag
// field of up to three digits: hundreds for vertex labels, tens for edge
// loads and units for vertex loads. Each vertex then lists an optional
// label, an optional load, its degree and, per neighbor, an optional edge
// load followed by the neighbor. Neighbors are vertex labels when labels are
// present and based vertex numbers otherwise. Line breaks carry no meaning.
//
// Vertices keep their order in the file whatever their labels.
func ReadScotch(r io.Reader) (*Graph, error) {
	tr := newTokenReader(r)

	version, err := tr.int("version")
	if err != nil {
		return nil, err
	}
	if version != scotchVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadScotch, version)
	}
	n, err := tr.int("vertex count")
	if err != nil {
		return nil, err
	}
	narcs, err := tr.int("arc count")
	if err != nil {
		return nil, err
	}
	base, err := tr.int("base value")
	if err != nil {
		return nil, err
	}
	if base > 1 {
		return nil, fmt.Errorf("%w: base value %d, want 0 or 1", ErrBadScotch, base)
	}
	flagText, err := tr.text("flags")
	if err != nil {
		return nil, err
	}
	hasLabels, hasEloads, hasVloads, ok := parseFlagDigits(flagText)
	if !ok {
		return nil, fmt.Errorf("%w: flags %q", ErrBadScotch, flagText)
	}

	type vertex struct {
		label int
		load  int
		ends  []int
		loads []int
	}
	verts := make([]vertex, 0, min(n, maxPrealloc))
	arcs := 0
	for v := range n {
		vx := vertex{label: v + base, load: 1}
		if hasLabels {
			if vx.label, err = tr.int("vertex label"); err != nil {
				return nil, err
			}
		}
		if hasVloads {
			if vx.load, err = tr.int("vertex load"); err != nil {
				return nil, err
			}
		}
		degree, err := tr.int("degree")
		if err != nil {
			return nil, err
		}
		for range degree {
			w := 1
			if hasEloads {
				if w, err = tr.int("edge load"); err != nil {
					return nil, err
				}
			}
			end, err := tr.int("neighbor")
			if err != nil {
				return nil, err
			}
			vx.ends = append(vx.ends, end)
			vx.loads = append(vx.loads, w)
			arcs++
		}
		verts = append(verts, vx)
	}
	if arcs != narcs {
		return nil, fmt.Errorf("%w: header declares %d arcs, found %d", ErrBadScotch, narcs, arcs)
	}

	index := func(end int) (int, bool) {
		u := end - base
		return u, u >= 0 && u < n
	}
	if hasLabels {
		byLabel := make(map[int]int, len(verts))
		for v, vx := range verts {
			if _, dup := byLabel[vx.label]; dup {
				return nil, fmt.Errorf("%w: duplicate label %d", ErrBadScotch, vx.label)
			}
			byLabel[vx.label] = v
		}
		index = func(end int) (int, bool) {
			u, ok := byLabel[end]
			return u, ok
		}
	}

	b := NewBuilder(n)
	for v, vx := range verts {
		if err := b.SetVertexWeight(v, vx.load); err != nil {
			return nil, fmt.Errorf("%w: vertex %d: %v", ErrBadScotch, v+base, err)
		}
		for i, end := range vx.ends {
			u, ok := index(end)
			if !ok {
				return nil, fmt.Errorf("%w: vertex %d: unknown neighbor %d", ErrBadScotch, v+base, end)
			}
			if err := b.AddArc(v, u, vx.loads[i]); err != nil {
				return nil, fmt.Errorf("%w: vertex %d: %v", ErrBadScotch, v+base, err)
			}
		}
	}
	g, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadScotch, err)
	}
	return g, nil
}

// WriteScotch encodes g in the Scotch source graph format with base value
// 0. Loads are written only when the graph carries non-unit weights.
func WriteScotch(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	flags := 0
	if g.HasEdgeWeights() {
		flags += 10
	}
	if g.HasVertexWeights() {
		flags++
	}
	fmt.Fprintf(bw, "%d\n%d\t%d\n0\t%03d\n", scotchVersion, g.VertexCount(), g.ArcCount(), flags)

	for v := range g.VertexCount() {
		if g.HasVertexWeights() {
			fmt.Fprintf(bw, "%d\t", g.VertexWeight(v))
		}
		fmt.Fprintf(bw, "%d", g.Degree(v))
		start, end := g.Arcs(v)
		for a := start; a < end; a++ {
			if g.HasEdgeWeights() {
				fmt.Fprintf(bw, "\t%d %d", g.ArcWeight(a), g.ArcTarget(a))
			} else {
				fmt.Fprintf(bw, "\t%d", g.ArcTarget(a))
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
