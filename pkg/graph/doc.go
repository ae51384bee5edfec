// Package graph provides the source graph consumed by the mapper.
//
// A [Graph] is an immutable, undirected, weighted graph stored in compressed
// adjacency form. Every vertex carries a weight (its computational load) and
// every edge a weight (its communication volume). Vertices also remember their
// original number, so that subgraphs extracted with [Graph.Fold] can still be
// related to the graph the caller submitted.
//
// # Building Graphs
//
// Use a [Builder] to assemble a graph vertex by vertex:
//
//	b := graph.NewBuilder(3)
//	_ = b.AddEdge(0, 1, 1)
//	_ = b.AddEdge(1, 2, 5)
//	g, err := b.Build()
//
// Generators are provided for common test topologies: [Ring], [Hypercube]
// and [Mesh2D].
//
// # Folding
//
// [Graph.Fold] extracts the subgraph induced by a vertex subset. The result is
// independently owned and renumbered from zero, preserves vertex and edge
// weights, and maps every new vertex back to the original vertex number via
// [Graph.Origin].
//
// # Serialization
//
// Three on-disk formats are supported:
//
//   - Scotch: the "0 / n arcs / base flags" source graph format, where every
//     vertex lists its degree before its neighbors ([ReadScotch],
//     [WriteScotch]).
//   - Chaco: the classic "vertices edges [fmt]" text format with optional
//     labels, vertex loads and edge loads ([ReadChaco], [WriteChaco]).
//   - JSON: a compact edge-list format used for caching and the HTTP API
//     ([MarshalGraph], [ReadGraph]).
//
// [ReadFile] selects the format from the file extension and falls back to
// [Detect] for unknown extensions. [Decode] always detects.
package graph
