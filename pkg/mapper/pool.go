package mapper

import (
	"slices"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// poolKey orders jobs in a pool: higher score first, then lower job index.
type poolKey struct {
	score int64
	id    int
}

func comparePoolKeys(a, b interface{}) int {
	x, y := a.(poolKey), b.(poolKey)
	switch {
	case x.score > y.score:
		return -1
	case x.score < y.score:
		return 1
	case x.id < y.id:
		return -1
	case x.id > y.id:
		return 1
	default:
		return 0
	}
}

// pool is an ordered set of pending jobs. It stores job indices; the key of
// each job is kept in the job itself so that the job can be found again for
// removal or re-ranking.
type pool struct {
	tree *redblacktree.Tree
}

func newPool() *pool {
	return &pool{tree: redblacktree.NewWith(comparePoolKeys)}
}

func (p *pool) len() int    { return p.tree.Size() }
func (p *pool) empty() bool { return p.tree.Empty() }

func (p *pool) insert(j *job) {
	j.key = poolKey{score: j.score, id: j.id}
	j.pool = p
	p.tree.Put(j.key, j.id)
}

func (p *pool) remove(j *job) {
	p.tree.Remove(j.key)
	j.pool = nil
}

// popBest removes and returns the best job.
func (p *pool) popBest(jobs *jobTable) (int, bool) {
	node := p.tree.Left()
	if node == nil {
		return 0, false
	}
	id := node.Value.(int)
	p.remove(jobs.get(id))
	return id, true
}

// update moves j to the position of a new score. The set of pooled jobs is
// unchanged, and updating to the current score is a no-op.
func (p *pool) update(j *job, score int64) {
	if score == j.key.score {
		return
	}
	p.tree.Remove(j.key)
	j.score = score
	p.insert(j)
}

// ids returns the pooled job indices in pop order.
func (p *pool) ids() []int {
	out := make([]int, 0, p.tree.Size())
	it := p.tree.Iterator()
	for it.Next() {
		out = append(out, it.Value().(int))
	}
	return out
}

// =============================================================================
// Scoring
// =============================================================================

// scorer computes the pool score of a pending job.
type scorer func(d *driver, id int) int64

var scorers = map[Policy]scorer{
	PolicyRandom: func(d *driver, _ int) int64 { return d.rng.Int64() },
	PolicyLevel:  func(d *driver, id int) int64 { return int64(d.jobs.get(id).level) },
	PolicySize:   func(d *driver, id int) int64 { return int64(d.jobs.get(id).vertices()) },
	PolicyOld:    func(*driver, int) int64 { return 0 },

	// Level, lowered by how far each neighbor job lags behind.
	PolicyNeighbor: func(d *driver, id int) int64 {
		level := d.jobs.get(id).level
		score := int64(level)
		for _, n := range d.neighborJobs(id) {
			if lag := level - d.jobs.get(n).level; lag > 0 {
				score -= int64(lag)
			}
		}
		return score
	},

	// Number of neighbor jobs deeper than the job.
	PolicyNgLevel: func(d *driver, id int) int64 {
		level := d.jobs.get(id).level
		var count int64
		for _, n := range d.neighborJobs(id) {
			if d.jobs.get(n).level > level {
				count++
			}
		}
		return count
	},

	// Number of neighbor jobs smaller than the job.
	PolicyNgSize: func(d *driver, id int) int64 {
		size := d.jobs.get(id).vertices()
		var count int64
		for _, n := range d.neighborJobs(id) {
			if d.jobs.get(n).vertices() < size {
				count++
			}
		}
		return count
	},
}

// neighborJobs returns the pending jobs, other than id, that own a vertex
// adjacent in the source graph to a vertex of job id. The result is sorted.
func (d *driver) neighborJobs(id int) []int {
	jg := d.jobs.get(id).graph
	var out []int
	for v := range jg.VertexCount() {
		for _, u := range d.source.Neighbors(jg.Origin(v)) {
			if o := d.owner[u]; o >= 0 && o != id {
				out = append(out, o)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// updateNeighbors re-ranks the given jobs and their neighbor jobs after a
// change of the pending set around them. Only pooled jobs move; applying it
// twice in a row leaves the pools as they were after the first time.
func (d *driver) updateNeighbors(ids ...int) {
	if !d.opts.Policy.neighborAware() {
		return
	}
	affected := slices.Clone(ids)
	for _, id := range ids {
		affected = append(affected, d.neighborJobs(id)...)
	}
	slices.Sort(affected)
	affected = slices.Compact(affected)
	d.rescore(affected)
}

// removeJob takes a job out of its pool and re-ranks its neighbors, whose
// neighborhood no longer includes it.
func (d *driver) removeJob(id int) {
	j := d.jobs.get(id)
	if j.pool != nil {
		j.pool.remove(j)
	}
	nbrs := d.neighborJobs(id)
	jg := j.graph
	for v := range jg.VertexCount() {
		if o := jg.Origin(v); d.owner[o] == id {
			d.owner[o] = ownerNone
		}
	}
	if d.opts.Policy.neighborAware() {
		d.rescore(nbrs)
	}
}

// rescore recomputes the scores of pooled jobs among ids.
func (d *driver) rescore(ids []int) {
	score := scorers[d.opts.Policy]
	for _, id := range ids {
		j := d.jobs.get(id)
		if j.pool == nil || j.graph == nil {
			continue
		}
		j.pool.update(j, score(d, id))
	}
}
