// Package jobtree records and draws the job tree of a mapping run.
//
// Every job of the recursive mapper either splits into up to two children
// or maps its vertices to a terminal. A [Tree] collects those events as a
// [mapper.Recorder]:
//
//	tree := jobtree.New()
//	opts := mapper.DefaultOptions()
//	opts.Trace = tree
//	m, err := mapper.MapGraph(ctx, g, a, strategy.NewGraphGrowing(), opts)
//
// and [ToDOT] turns it into Graphviz source, which [RenderSVG] renders in
// process with [github.com/goccy/go-graphviz]:
//
//	dot := jobtree.ToDOT(tree, jobtree.Options{Arch: a})
//	svg, err := jobtree.RenderSVG(ctx, dot)
package jobtree
