package mapper

import (
	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/graph"
)

// job is a pending (subgraph, domain) pair. Jobs are addressed by their
// index in the job table, which is also their creation rank.
type job struct {
	id     int
	parent int
	level  int

	domain     arch.Domain
	sub0, sub1 arch.Domain
	terminal   bool

	graph *graph.Graph

	// Pool link: the pool holding the job and its key there.
	pool  *pool
	key   poolKey
	score int64
}

// vertices returns the number of vertices of the job's graph.
func (j *job) vertices() int { return j.graph.VertexCount() }

// jobTable is the job arena. Pools and the owner table refer to jobs by
// index, so growing the table never invalidates a reference. Slots are not
// reused: the table holds at most one job per domain of the target
// architecture.
type jobTable struct {
	jobs  []job
	alloc Allocator
}

func newJobTable(capacity int, alloc Allocator) *jobTable {
	return &jobTable{jobs: make([]job, 0, capacity), alloc: alloc}
}

func (t *jobTable) len() int { return len(t.jobs) }

func (t *jobTable) get(id int) *job { return &t.jobs[id] }

// grow makes room for one more job, growing the table through the
// allocator when it is full. On failure the table is unchanged.
func (t *jobTable) grow() error {
	need := len(t.jobs) + 1
	if need <= cap(t.jobs) {
		return nil
	}
	c, err := t.alloc.Grow(StorageJobs, cap(t.jobs), need)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResourceExhausted, err, "cannot grow job table to %d jobs", need)
	}
	if c < need {
		return errors.New(errors.ErrCodeResourceExhausted, "allocator granted %d jobs, need %d", c, need)
	}
	grown := make([]job, len(t.jobs), c)
	copy(grown, t.jobs)
	t.jobs = grown
	return nil
}

// add stores j and returns its index.
func (t *jobTable) add(j job) (int, error) {
	if err := t.grow(); err != nil {
		return 0, err
	}
	j.id = len(t.jobs)
	t.jobs = append(t.jobs, j)
	return j.id, nil
}

// release drops the job's graph once the job has left the pool.
func (t *jobTable) release(id int) {
	t.jobs[id].graph = nil
}
