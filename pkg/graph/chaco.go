package graph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrBadChaco is returned when Chaco input is malformed. The wrapping error
// names the offending line.
var ErrBadChaco = errors.New("bad chaco input")

// maxPrealloc bounds the tables readers size from a header before the
// vertices it announces have been read.
const maxPrealloc = 1 << 16

// chacoFlags records which optional columns a Chaco file carries. The format
// field is read as up to three decimal digits: hundreds for labels, tens for
// vertex loads and units for edge loads.
type chacoFlags struct {
	labels, vloads, eloads bool
}

func parseChacoFlags(s string) (chacoFlags, error) {
	labels, vloads, eloads, ok := parseFlagDigits(s)
	if !ok {
		return chacoFlags{}, fmt.Errorf("%w: format %q", ErrBadChaco, s)
	}
	return chacoFlags{labels: labels, vloads: vloads, eloads: eloads}, nil
}

// parseFlagDigits reads a flag field of up to three decimal digits and
// reports which of the hundreds, tens and units digits are set.
func parseFlagDigits(s string) (hundreds, tens, units, ok bool) {
	if s == "" {
		return false, false, false, true
	}
	if len(s) > 3 {
		return false, false, false, false
	}
	num, err := strconv.Atoi(s)
	if err != nil || num < 0 {
		return false, false, false, false
	}
	return (num/100)%10 != 0, (num/10)%10 != 0, num%10 != 0, true
}

// ReadChaco decodes a graph in Chaco format.
//
// The header holds the vertex count, the edge count and an optional format
// field. Each following line describes one vertex: an optional label, an
// optional load, then its 1-based neighbors, each followed by an edge load
// when edge loads are enabled. Lines starting with '%' are comments.
//
// When labels are present vertex i of the result is the vertex labelled
// i+1, and neighbor numbers are read as labels.
func ReadChaco(r io.Reader) (*Graph, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	lineNum := 0
	next := func() (string, bool) {
		for sc.Scan() {
			lineNum++
			line := sc.Text()
			if strings.HasPrefix(line, "%") {
				continue
			}
			return line, true
		}
		return "", false
	}

	header, ok := next()
	if !ok {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: missing header", ErrBadChaco)
	}
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: header %q", ErrBadChaco, header)
	}
	n, err1 := strconv.Atoi(fields[0])
	m, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || n < 0 || m < 0 {
		return nil, fmt.Errorf("%w: header %q", ErrBadChaco, header)
	}
	var flags chacoFlags
	if len(fields) > 2 {
		if flags, err1 = parseChacoFlags(fields[2]); err1 != nil {
			return nil, err1
		}
	}

	type vertexLine struct {
		load  int
		nbrs  []int
		loads []int
	}
	// The header count is untrusted: tables grow as vertex lines arrive, so
	// a short input cannot make the reader allocate for a huge graph.
	lines := make([]vertexLine, 0, min(n, maxPrealloc))
	labels := make([]int, 0, min(n, maxPrealloc))
	arcs := 0

	for v := range n {
		line, ok := next()
		if !ok {
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: expected %d vertex lines, got %d", ErrBadChaco, n, v)
		}
		ints, err := parseInts(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadChaco, lineNum, err)
		}

		label := v + 1
		if flags.labels {
			if len(ints) == 0 || ints[0] < 1 || ints[0] > n {
				return nil, fmt.Errorf("%w: line %d: invalid label", ErrBadChaco, lineNum)
			}
			label = ints[0]
			ints = ints[1:]
		}
		labels = append(labels, label)
		vl := vertexLine{load: 1}
		if flags.vloads {
			if len(ints) == 0 || ints[0] < 1 {
				return nil, fmt.Errorf("%w: line %d: invalid vertex load", ErrBadChaco, lineNum)
			}
			vl.load = ints[0]
			ints = ints[1:]
		}
		step := 1
		if flags.eloads {
			step = 2
			if len(ints)%2 != 0 {
				return nil, fmt.Errorf("%w: line %d: neighbor without edge load", ErrBadChaco, lineNum)
			}
		}
		for i := 0; i < len(ints); i += step {
			u := ints[i]
			if u < 1 || u > n {
				return nil, fmt.Errorf("%w: line %d: neighbor %d out of range", ErrBadChaco, lineNum, u)
			}
			w := 1
			if flags.eloads {
				if w = ints[i+1]; w < 1 {
					return nil, fmt.Errorf("%w: line %d: invalid edge load", ErrBadChaco, lineNum)
				}
			}
			vl.nbrs = append(vl.nbrs, u)
			vl.loads = append(vl.loads, w)
			arcs++
		}
		lines = append(lines, vl)
	}
	if arcs != 2*m {
		return nil, fmt.Errorf("%w: header declares %d edges, found %d arcs", ErrBadChaco, m, arcs)
	}
	if flags.labels {
		seen := make([]bool, n)
		for _, l := range labels {
			if seen[l-1] {
				return nil, fmt.Errorf("%w: duplicate label %d", ErrBadChaco, l)
			}
			seen[l-1] = true
		}
	}

	b := NewBuilder(n)
	for v, vl := range lines {
		src := labels[v] - 1
		if err := b.SetVertexWeight(src, vl.load); err != nil {
			return nil, err
		}
		for i, u := range vl.nbrs {
			if err := b.AddArc(src, u-1, vl.loads[i]); err != nil {
				return nil, fmt.Errorf("%w: vertex %d: %v", ErrBadChaco, labels[v], err)
			}
		}
	}
	g, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadChaco, err)
	}
	return g, nil
}

func parseInts(line string) ([]int, error) {
	fields := strings.Fields(line)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// WriteChaco encodes g in Chaco format. Vertex and edge loads are written
// only when the graph carries non-unit weights. Labels are never written.
func WriteChaco(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	format := ""
	switch {
	case g.HasVertexWeights() && g.HasEdgeWeights():
		format = "\t011"
	case g.HasVertexWeights():
		format = "\t010"
	case g.HasEdgeWeights():
		format = "\t001"
	}
	fmt.Fprintf(bw, "%d\t%d%s\n", g.VertexCount(), g.EdgeCount(), format)

	for v := range g.VertexCount() {
		sep := ""
		if g.HasVertexWeights() {
			fmt.Fprintf(bw, "%d", g.VertexWeight(v))
			sep = "\t"
		}
		start, end := g.Arcs(v)
		for a := start; a < end; a++ {
			fmt.Fprintf(bw, "%s%d", sep, g.ArcTarget(a)+1)
			if g.HasEdgeWeights() {
				fmt.Fprintf(bw, " %d", g.ArcWeight(a))
			}
			sep = "\t"
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
