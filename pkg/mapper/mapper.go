// Package mapper computes static mappings by dual recursive bipartitioning.
//
// The source graph and the target architecture are split in lock-step: a
// job pairs a subgraph with an architecture domain. The driver repeatedly
// takes the best pending job from a pool. If the job's domain is a single
// terminal, every vertex of the job is mapped there. Otherwise a
// [strategy.Strategy] splits the subgraph in two, and each non-empty part
// becomes a child job on one half of the domain.
//
// # Policies
//
// The [Policy] decides which pending job comes next: the deepest, the
// largest, a random one, the oldest, or one ranked by its neighbor jobs.
// Neighbor jobs are pending jobs owning vertices adjacent, in the source
// graph, to vertices of the job. Ties always go to the older job.
//
// # Tied jobs
//
// With [Options].TieJobs the driver works in rounds. A round takes every
// pending job of one level, bipartitions them with up to Workers
// goroutines, and commits the results in pool order. Strategy seeds derive
// from the job index, so the mapping depends neither on the number of
// workers nor on their timing.
//
// # Failure
//
// [Map] is all-or-nothing. The mapping is built in a private accumulator
// and copied into the caller's one only on success; on any error the
// caller's accumulator is left untouched.
package mapper

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/graph"
	"github.com/matzehuels/drbmap/pkg/mapping"
	"github.com/matzehuels/drbmap/pkg/observability"
	"github.com/matzehuels/drbmap/pkg/strategy"
)

// ownerNone marks a vertex that no pending job owns: it is finalized.
const ownerNone = -1

// Map maps every vertex of g onto a terminal of a and stores the result in
// m, which must have g's vertex count. On error m is not modified.
//
// Errors carry one of the codes [errors.ErrCodeInvalidGraph],
// [errors.ErrCodeInvalidArch], [errors.ErrCodeInvalidInput],
// [errors.ErrCodeInvalidPolicy], [errors.ErrCodeResourceExhausted],
// [errors.ErrCodeStrategyFailed], [errors.ErrCodeCanceled] or
// [errors.ErrCodeInternal].
func Map(ctx context.Context, g *graph.Graph, a arch.Arch, m *mapping.Mapping, strat strategy.Strategy, opts Options) error {
	switch {
	case g == nil:
		return errors.New(errors.ErrCodeInvalidGraph, "no source graph")
	case g.VertexCount() == 0:
		return errors.New(errors.ErrCodeInvalidGraph, "source graph has no vertices")
	case a == nil:
		return errors.New(errors.ErrCodeInvalidArch, "no target architecture")
	case m == nil:
		return errors.New(errors.ErrCodeInvalidInput, "no mapping to fill")
	case m.VertexCount() != g.VertexCount():
		return errors.New(errors.ErrCodeInvalidInput, "mapping has %d vertices, graph has %d", m.VertexCount(), g.VertexCount())
	case strat == nil:
		return errors.New(errors.ErrCodeInvalidInput, "no bipartition strategy")
	}
	opts, err := opts.normalized()
	if err != nil {
		return err
	}

	d := newDriver(g, a, strat, opts)
	hooks := observability.Mapper()
	hooks.OnMapStart(ctx, g.VertexCount(), arch.Terminals(a), opts.Policy.String())
	start := time.Now()

	err = d.run(ctx)
	hooks.OnMapComplete(ctx, d.jobs.len(), time.Since(start), err)
	if err != nil {
		d.log.Debug("mapping aborted", "jobs", d.jobs.len(), "err", err)
		return err
	}
	d.log.Debug("mapping complete", "jobs", d.jobs.len(), "elapsed", time.Since(start))

	if err := m.CopyFrom(d.staging); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "cannot commit mapping")
	}
	return nil
}

// MapGraph is like [Map] but allocates the mapping.
func MapGraph(ctx context.Context, g *graph.Graph, a arch.Arch, strat strategy.Strategy, opts Options) (*mapping.Mapping, error) {
	if g == nil {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "no source graph")
	}
	m := mapping.New(a, g.VertexCount())
	if err := Map(ctx, g, a, m, strat, opts); err != nil {
		return nil, err
	}
	return m, nil
}

// =============================================================================
// Driver
// =============================================================================

type driver struct {
	source *graph.Graph
	arch   arch.Arch
	strat  strategy.Strategy
	opts   Options
	log    *log.Logger
	hooks  observability.MapperHooks

	jobs    *jobTable
	owner   []int // source vertex -> pending job, or ownerNone
	staging *mapping.Mapping
	rng     *rand.Rand
}

func newDriver(g *graph.Graph, a arch.Arch, strat strategy.Strategy, opts Options) *driver {
	owner := make([]int, g.VertexCount())
	for i := range owner {
		owner[i] = ownerNone
	}
	return &driver{
		source:  g.Rooted(),
		arch:    a,
		strat:   strat,
		opts:    opts,
		log:     opts.Logger,
		hooks:   observability.Mapper(),
		jobs:    newJobTable(opts.InitialJobs, opts.Allocator),
		owner:   owner,
		staging: mapping.New(a, g.VertexCount()),
		rng:     rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xdeadbeef)),
	}
}

func (d *driver) run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return canceled(err)
	}
	root, err := d.newJob(d.source, d.arch.Root(), 0, -1)
	if err != nil {
		return err
	}

	if d.opts.TieJobs {
		err = d.runTied(ctx, root)
	} else {
		err = d.runSequential(ctx, root)
	}
	if err != nil {
		return err
	}
	if !d.staging.Complete() {
		return errors.New(errors.ErrCodeInternal, "%d of %d vertices left unmapped",
			d.staging.VertexCount()-d.staging.Assigned(), d.staging.VertexCount())
	}
	return nil
}

// runSequential processes one job at a time, children going back into the
// same pool.
func (d *driver) runSequential(ctx context.Context, root int) error {
	p := newPool()
	d.insert(p, root)
	for step := 1; !p.empty(); step++ {
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}
		d.hooks.OnRound(ctx, step, p.len())

		id, _ := p.popBest(d.jobs)
		j := *d.jobs.get(id)
		var out outcome
		if !j.terminal {
			if out = d.split(ctx, j); out.err != nil {
				return out.err
			}
		}
		if err := d.commit(ctx, id, out, p); err != nil {
			return err
		}
		if err := d.check(p); err != nil {
			return err
		}
	}
	return nil
}

// runTied processes the pool level by level. Each round drains the current
// pool, bipartitions its jobs concurrently, then commits the results in pop
// order into the pool of the next round.
func (d *driver) runTied(ctx context.Context, root int) error {
	cur, next := newPool(), newPool()
	d.insert(cur, root)
	for round := 1; !cur.empty(); round++ {
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}
		d.hooks.OnRound(ctx, round, cur.len())

		batch := make([]int, 0, cur.len())
		for {
			id, ok := cur.popBest(d.jobs)
			if !ok {
				break
			}
			batch = append(batch, id)
		}
		d.log.Debug("round", "round", round, "level", d.jobs.get(batch[0]).level, "jobs", len(batch))

		outcomes, err := d.splitBatch(ctx, batch)
		if err != nil {
			return err
		}
		for i, id := range batch {
			if err := d.commit(ctx, id, outcomes[i], next); err != nil {
				return err
			}
		}
		if d.opts.Policy.neighborAware() {
			d.rescore(next.ids())
		}
		if err := d.check(next); err != nil {
			return err
		}
		cur, next = next, cur
	}
	return nil
}

// splitBatch bipartitions the non-terminal jobs of a round. The first
// failure cancels the jobs still running, whose errors then read as
// canceled. Of the failures observed, the one of the job popped first is
// returned, skipping cancellations. With one worker jobs run in pop order,
// so this is the first failing job; with more workers it may be any job
// that failed before the cancellation reached the others.
func (d *driver) splitBatch(ctx context.Context, batch []int) ([]outcome, error) {
	outcomes := make([]outcome, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for i, id := range batch {
		j := *d.jobs.get(id)
		if j.terminal {
			continue
		}
		g.Go(func() error {
			outcomes[i] = d.split(gctx, j)
			return outcomes[i].err
		})
	}
	if err := g.Wait(); err != nil {
		for _, o := range outcomes {
			if o.err != nil && !errors.Is(o.err, errors.ErrCodeCanceled) {
				return nil, o.err
			}
		}
		return nil, err
	}
	return outcomes, nil
}

// outcome is the result of bipartitioning one job: the graph of each
// child, nil for an empty part.
type outcome struct {
	parts [2]*graph.Graph
	err   error
}

// split bipartitions j and builds the graphs of its children. It reads
// only j and immutable driver state, so jobs of a round can be split
// concurrently.
func (d *driver) split(ctx context.Context, j job) outcome {
	req := strategy.Request{
		Domain0: j.sub0,
		Domain1: j.sub1,
		Weight0: d.arch.Weight(j.sub0),
		Weight1: d.arch.Weight(j.sub1),
		Seed:    jobSeed(d.opts.Seed, j.id),
	}
	part, err := d.strat.Bipartition(ctx, j.graph, req)
	if err != nil {
		if ctx.Err() != nil {
			return outcome{err: canceled(ctx.Err())}
		}
		return outcome{err: errors.Wrap(errors.ErrCodeStrategyFailed, err, "bipartition of job %d failed", j.id)}
	}
	n := j.vertices()
	if err := part.Validate(n); err != nil {
		return outcome{err: errors.Wrap(errors.ErrCodeStrategyFailed, err, "bipartition of job %d is invalid", j.id)}
	}

	// With tied mapping, equal halves are ordered by the lowest vertex.
	var flip uint8
	if d.opts.TieMapping && req.Weight0 == req.Weight1 {
		flip = part[lowestVertex(j.graph)]
	}
	var sides [2][]int
	for v, x := range part {
		sides[x^flip] = append(sides[x^flip], v)
	}

	var out outcome
	for k, vs := range sides {
		switch len(vs) {
		case 0:
		case n:
			out.parts[k] = j.graph
		default:
			sub, err := j.graph.Fold(vs)
			if err != nil {
				return outcome{err: errors.Wrap(errors.ErrCodeInternal, err, "cannot fold part %d of job %d", k, j.id)}
			}
			out.parts[k] = sub
		}
	}
	return out
}

// commit applies the outcome of a popped job: terminal jobs are finalized,
// others are replaced by their children, inserted into dest.
func (d *driver) commit(ctx context.Context, id int, out outcome, dest *pool) error {
	j := *d.jobs.get(id)
	n := j.vertices()

	if j.terminal {
		if err := d.finalize(id); err != nil {
			return err
		}
		d.removeJob(id)
		d.jobs.release(id)
		d.log.Debug("job", "id", id, "level", j.level, "vertices", n, "domain", j.domain, "kind", EventTerminal)
		d.record(JobEvent{ID: id, Parent: j.parent, Level: j.level, Domain: j.domain, Vertices: n, Kind: EventTerminal})
		d.hooks.OnJobDone(ctx, j.level, n, true)
		return nil
	}

	d.log.Debug("job", "id", id, "level", j.level, "vertices", n, "domain", j.domain, "kind", EventSplit)
	d.record(JobEvent{ID: id, Parent: j.parent, Level: j.level, Domain: j.domain, Vertices: n, Kind: EventSplit})

	children := make([]int, 0, 2)
	for k, sub := range [2]arch.Domain{j.sub0, j.sub1} {
		if out.parts[k] == nil {
			d.record(JobEvent{ID: -1, Parent: id, Level: j.level + 1, Domain: sub, Kind: EventDropped})
			continue
		}
		cid, err := d.newJob(out.parts[k], sub, j.level+1, id)
		if err != nil {
			return err
		}
		children = append(children, cid)
	}
	for _, cid := range children {
		d.insert(dest, cid)
	}
	d.jobs.release(id)
	if !d.opts.TieJobs {
		d.updateNeighbors(children...)
	}
	d.hooks.OnJobDone(ctx, j.level, n, false)
	return nil
}

// newJob creates a job and hands it the ownership of its vertices. The
// split of a non-terminal domain is computed up front, so that a domain
// that does not shrink is rejected before any work is done on it.
func (d *driver) newJob(g *graph.Graph, dom arch.Domain, level, parent int) (int, error) {
	nj := job{parent: parent, level: level, domain: dom, graph: g}
	if d.arch.Terminal(dom) {
		nj.terminal = true
	} else {
		s0, s1, err := d.arch.Bipart(dom)
		if err != nil {
			return 0, errors.Wrap(errors.ErrCodeInvalidArch, err, "cannot split domain %v", dom)
		}
		w, w0, w1 := d.arch.Weight(dom), d.arch.Weight(s0), d.arch.Weight(s1)
		if w0 <= 0 || w1 <= 0 || w0 >= w || w1 >= w {
			return 0, errors.New(errors.ErrCodeInvalidArch, "domain %v does not shrink: split into %v and %v", dom, s0, s1)
		}
		nj.sub0, nj.sub1 = s0, s1
	}

	id, err := d.jobs.add(nj)
	if err != nil {
		return 0, err
	}
	for v := range g.VertexCount() {
		d.owner[g.Origin(v)] = id
	}
	return id, nil
}

func (d *driver) insert(p *pool, id int) {
	j := d.jobs.get(id)
	j.score = scorers[d.opts.Policy](d, id)
	p.insert(j)
}

// finalize maps every vertex of a terminal job to its domain.
func (d *driver) finalize(id int) error {
	j := d.jobs.get(id)
	if d.staging.DomainCount() == d.staging.DomainCap() {
		c, err := d.opts.Allocator.Grow(StorageDomains, d.staging.DomainCap(), d.staging.DomainCount()+1)
		if err != nil {
			return errors.Wrap(errors.ErrCodeResourceExhausted, err, "cannot grow domain table")
		}
		d.staging.Reserve(c)
	}
	dom := d.staging.AddDomain(j.domain)
	for v := range j.vertices() {
		if err := d.staging.Assign(j.graph.Origin(v), dom); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "job %d", id)
		}
	}
	return nil
}

// check verifies, when enabled, that pending and finalized vertices add up
// to the source graph with every pending vertex owned by exactly one job.
func (d *driver) check(pools ...*pool) error {
	if !d.opts.CheckInvariants {
		return nil
	}
	pending := 0
	for _, p := range pools {
		for _, id := range p.ids() {
			jg := d.jobs.get(id).graph
			pending += jg.VertexCount()
			for v := range jg.VertexCount() {
				if o := d.owner[jg.Origin(v)]; o != id {
					return errors.New(errors.ErrCodeInternal, "vertex %d of job %d is owned by job %d", jg.Origin(v), id, o)
				}
			}
		}
	}
	if fin := d.staging.Assigned(); pending+fin != d.source.VertexCount() {
		return errors.New(errors.ErrCodeInternal, "%d pending and %d finalized vertices, want %d in total",
			pending, fin, d.source.VertexCount())
	}
	return nil
}

func (d *driver) record(e JobEvent) {
	if d.opts.Trace != nil {
		d.opts.Trace.Record(e)
	}
}

// lowestVertex returns the vertex of g with the lowest original number.
func lowestVertex(g *graph.Graph) int {
	best := 0
	for v := 1; v < g.VertexCount(); v++ {
		if g.Origin(v) < g.Origin(best) {
			best = v
		}
	}
	return best
}

// jobSeed derives the strategy seed of a job with a splitmix64 step.
func jobSeed(seed uint64, id int) uint64 {
	z := seed + uint64(id+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func canceled(err error) error {
	return errors.Wrap(errors.ErrCodeCanceled, err, "mapping canceled")
}
