// Package pkg provides the libraries behind drbmap, a static mapper of
// process graphs onto target architectures.
//
// # Overview
//
// drbmap assigns every vertex of a source graph to a terminal (processor) of
// a target architecture so that heavily communicating vertices land on nearby
// terminals and every terminal gets a fair share of the load. It does so by
// dual recursive bipartitioning: a job pairs a subset of vertices with an
// architecture domain, and each job splits both halves together until every
// domain is a single terminal.
//
// # Architecture
//
// The data flow of a mapping run:
//
//	Scotch/Chaco/JSON         architecture description
//	         ↓                          ↓
//	    [graph] package           [arch] package
//	         └──────────┬───────────────┘
//	                    ↓
//	    [mapper] package (job pool + policies)  ←  [strategy] (bipartitioning)
//	                    ↓
//	    [mapping] package (terminal per vertex + quality metrics)
//
// [pipeline] wires these stages together with a result [cache] and a run
// [store], and is shared by the CLI and the HTTP [server].
//
// # Main Packages
//
// ## Core
//
// [graph] - Compressed adjacency graphs with vertex and edge weights,
// induced subgraphs, and the Scotch, Chaco and JSON formats.
//
// [arch] - Target architectures (cmplt, hcub, mesh2D, tleaf): domains,
// bipartitioning of domains and inter-domain distances.
//
// [strategy] - Graph bipartitioning: greedy graph growing with boundary
// refinement, biased by the cost of external edges.
//
// [mapper] - The recursive mapping driver: the job pool, the seven
// selection policies, tied rounds and job tracing.
//
// [mapping] - The mapping result, its text and JSON forms, and evaluation
// of communication cost and load imbalance.
//
// ## Infrastructure
//
// [pipeline] - load → map → evaluate → record, used by CLI and API.
//
// [cache] - Result caches on disk, in Badger or in Redis.
//
// [store] - Run records in memory, on disk or in MongoDB.
//
// [config] - TOML configuration.
//
// [server] - The HTTP API.
//
// [render/jobtree] - Job tree diagrams in DOT and SVG.
//
// [observability] - Hooks for metrics and progress reporting.
//
// [errors] - Error codes shared by CLI and API.
//
// # Quick Start
//
//	g, _ := graph.ReadFile("ring.grf")
//	a, _ := arch.Parse("hcub 3")
//	m, _ := mapper.MapGraph(ctx, g, a, strategy.NewGraphGrowing(), mapper.DefaultOptions())
//	metrics, _ := mapping.Evaluate(g, m)
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/graph
// [arch]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/arch
// [strategy]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/strategy
// [mapper]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/mapper
// [mapping]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/mapping
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/store
// [config]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/config
// [server]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/server
// [render/jobtree]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/render/jobtree
// [observability]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/drbmap/pkg/errors
package pkg
