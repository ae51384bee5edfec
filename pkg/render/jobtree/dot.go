package jobtree

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/mapper"
)

// Options configures job tree rendering.
type Options struct {
	// Detailed adds the level and processing rank to node labels.
	Detailed bool
	// Arch, if set, labels terminal jobs with their terminal number.
	Arch arch.Arch
}

// ToDOT converts a job tree to Graphviz DOT source, root at the top.
// Terminal jobs are filled, dropped subdomains are dashed.
func ToDOT(t *Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph jobs {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.08\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.2;\n")
	buf.WriteString("\n")

	jobs := t.Jobs()
	for _, n := range jobs {
		fmt.Fprintf(&buf, "  j%d [%s];\n", n.ID, strings.Join(jobAttrs(n, opts), ", "))
	}
	dropped := t.Dropped()
	for i, n := range dropped {
		fmt.Fprintf(&buf, "  d%d [label=%q, style=\"rounded,dashed\", fontcolor=grey40];\n", i, n.Domain.String())
	}

	buf.WriteString("\n")
	for _, n := range jobs {
		if n.Parent >= 0 {
			fmt.Fprintf(&buf, "  j%d -> j%d;\n", n.Parent, n.ID)
		}
	}
	for i, n := range dropped {
		fmt.Fprintf(&buf, "  j%d -> d%d [style=dashed];\n", n.Parent, i)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func jobAttrs(n Node, opts Options) []string {
	lines := []string{n.Domain.String(), fmt.Sprintf("%d vertices", n.Vertices)}
	if n.Kind == mapper.EventTerminal && opts.Arch != nil {
		lines[0] = fmt.Sprintf("terminal %d", opts.Arch.TerminalNum(n.Domain))
	}
	if opts.Detailed {
		lines = append(lines, fmt.Sprintf("job %d, level %d, rank %d", n.ID, n.Level, n.Order))
	}
	attrs := []string{fmt.Sprintf("label=%q", strings.Join(lines, "\n"))}
	if n.Kind == mapper.EventTerminal {
		attrs = append(attrs, "fillcolor=lightblue")
	}
	return attrs
}

// RenderSVG renders DOT source to SVG using the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root svg tag so the drawing scales with
// its container.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
