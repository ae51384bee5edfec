package jobtree

import (
	"slices"
	"sync"

	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/mapper"
)

// Node is one job of a mapping run, or a subdomain that received no
// vertices.
type Node struct {
	ID       int
	Parent   int
	Level    int
	Domain   arch.Domain
	Vertices int
	Kind     mapper.EventKind
	// Order is the rank of the event among all recorded events.
	Order int
}

// Tree collects the job events of a mapping run. It implements
// [mapper.Recorder] and may be passed as Options.Trace.
type Tree struct {
	mu      sync.Mutex
	jobs    []Node
	dropped []Node
	events  int
}

// New returns an empty tree.
func New() *Tree { return &Tree{} }

// Record implements [mapper.Recorder].
func (t *Tree) Record(e mapper.JobEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := Node{
		ID:       e.ID,
		Parent:   e.Parent,
		Level:    e.Level,
		Domain:   e.Domain,
		Vertices: e.Vertices,
		Kind:     e.Kind,
		Order:    t.events,
	}
	t.events++
	if e.Kind == mapper.EventDropped {
		t.dropped = append(t.dropped, n)
		return
	}
	t.jobs = append(t.jobs, n)
}

// Jobs returns the split and terminal jobs sorted by ID.
func (t *Tree) Jobs() []Node {
	t.mu.Lock()
	out := slices.Clone(t.jobs)
	t.mu.Unlock()
	slices.SortFunc(out, func(a, b Node) int { return a.ID - b.ID })
	return out
}

// Dropped returns the empty subdomains in recording order.
func (t *Tree) Dropped() []Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.dropped)
}

// Len returns the number of jobs.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Depth returns the deepest job level.
func (t *Tree) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := 0
	for _, n := range t.jobs {
		d = max(d, n.Level)
	}
	return d
}

// Reset forgets all events.
func (t *Tree) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs, t.dropped, t.events = nil, nil, 0
}

var _ mapper.Recorder = (*Tree)(nil)
