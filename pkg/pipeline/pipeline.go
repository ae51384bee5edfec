// Package pipeline runs a complete mapping: load → map → evaluate → store.
//
// The CLI and the HTTP API both go through a [Runner], so that caching,
// logging and run records behave the same for every entry point.
//
// # Stages
//
//  1. Load: read the source graph from a file, inline graph text or a
//     prebuilt [graph.Graph], and parse the target architecture
//  2. Map: look the result up in the cache, or run [mapper.Map] with the
//     graph-growing bipartitioner and cache the result
//  3. Evaluate: compute the [mapping.Metrics] of the result
//  4. Store: record the run in the [store.Store], if one is configured
//
// Optionally the job tree of the run is rendered (see [RenderTree]). A
// job tree needs a fresh mapping, so requesting one bypasses the cache
// lookup.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, st, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    GraphPath: "ring.grf",
//	    Arch:      "hcub 3",
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Metrics.CommCost)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/graph"
	"github.com/matzehuels/drbmap/pkg/mapper"
	"github.com/matzehuels/drbmap/pkg/mapping"
	"github.com/matzehuels/drbmap/pkg/render/jobtree"
	"github.com/matzehuels/drbmap/pkg/store"
	"github.com/matzehuels/drbmap/pkg/strategy"
)

// =============================================================================
// Formats
// =============================================================================

// Job tree output formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// ValidFormats is the set of supported job tree formats.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if !ValidFormats[f] {
			return errors.New(errors.ErrCodeInvalidFormat, "invalid tree format %q (must be one of: dot, svg)", f)
		}
	}
	return nil
}

// =============================================================================
// Options
// =============================================================================

// Options describes one mapping run.
type Options struct {
	// The source graph comes from exactly one of Graph, GraphPath and
	// GraphText.
	Graph     *graph.Graph
	GraphPath string
	GraphText string

	// MaxGraphBytes bounds GraphText. Zero disables the check.
	MaxGraphBytes int

	// Arch describes the target architecture, such as "hcub 3".
	Arch string

	Policy          string
	TieJobs         bool
	TieMapping      bool
	Seed            uint64
	Workers         int
	InitialJobs     int
	MaxJobs         int
	CheckInvariants bool

	// Strategy bipartitions the jobs. Nil means the default graph-growing
	// strategy.
	Strategy *strategy.GraphGrowing

	// Refresh skips the cache lookup. The result is still cached.
	Refresh bool

	// TreeFormats lists the job tree renderings to produce.
	TreeFormats []string

	// Logger overrides the runner's logger for this run.
	Logger *log.Logger
}

// DefaultOptions returns options with the mapper defaults and no input.
func DefaultOptions() Options {
	d := mapper.DefaultOptions()
	return Options{
		Policy:     d.Policy.String(),
		TieJobs:    d.TieJobs,
		TieMapping: d.TieMapping,
		Seed:       d.Seed,
		Workers:    d.Workers,
	}
}

// Validate checks the options that do not require loading the graph.
func (o *Options) Validate() error {
	sources := 0
	for _, set := range []bool{o.Graph != nil, o.GraphPath != "", o.GraphText != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return errors.New(errors.ErrCodeInvalidInput, "exactly one of graph, graph path and graph text is required")
	}
	if o.GraphText != "" {
		if err := errors.ValidateGraphPayload(o.GraphText, o.MaxGraphBytes); err != nil {
			return err
		}
	}
	if err := errors.ValidateArchDescription(o.Arch); err != nil {
		return err
	}
	if _, err := o.MapperOptions(); err != nil {
		return err
	}
	return ValidateFormats(o.TreeFormats)
}

// MapperOptions converts o to mapper options. The logger and trace are
// left to the runner.
func (o *Options) MapperOptions() (mapper.Options, error) {
	p := mapper.PolicySize
	if o.Policy != "" {
		var err error
		if p, err = mapper.ParsePolicy(o.Policy); err != nil {
			return mapper.Options{}, err
		}
	}
	mo := mapper.Options{
		Policy:          p,
		TieJobs:         o.TieJobs,
		TieMapping:      o.TieMapping,
		Seed:            o.Seed,
		Workers:         o.Workers,
		InitialJobs:     o.InitialJobs,
		CheckInvariants: o.CheckInvariants,
	}
	if o.MaxJobs > 0 {
		mo.Allocator = mapper.LimitAllocator{MaxJobs: o.MaxJobs}
	}
	return mo, nil
}

func (o *Options) strategy() *strategy.GraphGrowing {
	if o.Strategy == nil {
		return strategy.NewGraphGrowing()
	}
	return o.Strategy
}

func (o *Options) logger(fallback *log.Logger) *log.Logger {
	switch {
	case o.Logger != nil:
		return o.Logger
	case fallback != nil:
		return fallback
	default:
		return log.NewWithOptions(io.Discard, log.Options{})
	}
}

// =============================================================================
// Result
// =============================================================================

// Result holds the outputs of a run.
type Result struct {
	// Run is the stored record of the run.
	Run *store.Run

	Graph   *graph.Graph
	Arch    arch.Arch
	Mapping *mapping.Mapping
	Metrics mapping.Metrics

	// Tree is the recorded job tree. It is nil when the mapping came
	// from the cache.
	Tree *jobtree.Tree

	// Artifacts holds the job tree renderings keyed by format.
	Artifacts map[string][]byte

	Stats    Stats
	CacheHit bool
}

// Stats contains timing and size information.
type Stats struct {
	Vertices int
	Edges    int
	Jobs     int
	LoadTime time.Duration
	MapTime  time.Duration
	EvalTime time.Duration
}
