package mapper

import (
	"slices"
	"testing"

	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/graph"
	"github.com/matzehuels/drbmap/pkg/strategy"
)

func TestPoolOrder(t *testing.T) {
	jobs := newJobTable(1, DoublingAllocator{})
	p := newPool()
	for _, score := range []int64{3, 7, 3, 1, 7} {
		id, err := jobs.add(job{})
		if err != nil {
			t.Fatal(err)
		}
		j := jobs.get(id)
		j.score = score
		p.insert(j)
	}

	// Highest score first, ties to the older job.
	if got, want := p.ids(), []int{1, 4, 0, 2, 3}; !slices.Equal(got, want) {
		t.Errorf("ids() = %v, want %v", got, want)
	}

	p.update(jobs.get(3), 9)
	p.remove(jobs.get(4))
	if got, want := p.ids(), []int{3, 1, 0, 2}; !slices.Equal(got, want) {
		t.Errorf("ids() after update = %v, want %v", got, want)
	}

	var popped []int
	for {
		id, ok := p.popBest(jobs)
		if !ok {
			break
		}
		if jobs.get(id).pool != nil {
			t.Errorf("job %d still linked after pop", id)
		}
		popped = append(popped, id)
	}
	if !slices.Equal(popped, []int{3, 1, 0, 2}) || !p.empty() {
		t.Errorf("popped %v, empty %v", popped, p.empty())
	}
}

func TestJobTableGrowth(t *testing.T) {
	jobs := newJobTable(1, LimitAllocator{MaxJobs: 3})
	for want := range 3 {
		id, err := jobs.add(job{level: want})
		if err != nil || id != want {
			t.Fatalf("add() = %d, %v, want %d", id, err, want)
		}
	}
	if _, err := jobs.add(job{}); err == nil {
		t.Fatal("expected allocation failure")
	}
	// A failed growth leaves the table as it was.
	if jobs.len() != 3 || jobs.get(2).level != 2 {
		t.Errorf("table changed after failed growth: len %d", jobs.len())
	}
}

func TestAllocators(t *testing.T) {
	if c, _ := (DoublingAllocator{}).Grow(StorageJobs, 16, 17); c != 32 {
		t.Errorf("DoublingAllocator.Grow = %d, want 32", c)
	}
	if c, _ := (LimitAllocator{MaxJobs: 20}).Grow(StorageJobs, 16, 17); c != 20 {
		t.Errorf("LimitAllocator.Grow = %d, want 20", c)
	}
	if _, err := (LimitAllocator{MaxDomains: 4}).Grow(StorageDomains, 4, 5); err == nil {
		t.Error("LimitAllocator should refuse domains past its limit")
	}
	if c, err := (LimitAllocator{MaxDomains: 4}).Grow(StorageJobs, 64, 65); err != nil || c != 128 {
		t.Errorf("LimitAllocator.Grow(jobs) = %d, %v, want 128", c, err)
	}
}

// neighborFixture builds pending jobs A = {0, 1} at level 1, B = {2} at
// level 2 and C = {3} at level 3 over a ring of four vertices.
func neighborFixture(t *testing.T, policy Policy) (*driver, [3]int) {
	t.Helper()
	g := graph.Ring(4)
	opts, _ := Options{Policy: policy}.normalized()
	d := newDriver(g, arch.MustParse("cmplt 4"), strategy.NewGraphGrowing(), opts)
	p := newPool()

	var ids [3]int
	parts := []struct {
		vertices []int
		dom      arch.Domain
		level    int
	}{
		{[]int{0, 1}, arch.Span(0, 1), 1},
		{[]int{2}, arch.Span(2, 2), 2},
		{[]int{3}, arch.Span(3, 3), 3},
	}
	for i, part := range parts {
		sub, err := g.Fold(part.vertices)
		if err != nil {
			t.Fatal(err)
		}
		if ids[i], err = d.newJob(sub, part.dom, part.level, -1); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range ids {
		d.insert(p, id)
	}
	return d, ids
}

func TestNeighborScores(t *testing.T) {
	tests := []struct {
		policy Policy
		want   [3]int64
	}{
		// A lags nobody; C is two levels ahead of A and one ahead of B.
		{PolicyNeighbor, [3]int64{1, 2 - 1, 3 - 2 - 1}},
		{PolicyNgLevel, [3]int64{2, 1, 0}},
		{PolicyNgSize, [3]int64{2, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			d, ids := neighborFixture(t, tt.policy)
			if got := d.neighborJobs(ids[0]); !slices.Equal(got, []int{ids[1], ids[2]}) {
				t.Errorf("neighborJobs(A) = %v", got)
			}
			for i, id := range ids {
				if got := d.jobs.get(id).score; got != tt.want[i] {
					t.Errorf("score of job %d = %d, want %d", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestUpdateNeighborsIdempotent(t *testing.T) {
	d, ids := neighborFixture(t, PolicyNgLevel)
	p := d.jobs.get(ids[0]).pool

	// Finalizing C changes the neighborhood of A and B.
	d.removeJob(ids[2])
	if got := d.jobs.get(ids[0]).score; got != 1 {
		t.Errorf("score of A after removing C = %d, want 1", got)
	}
	first := p.ids()
	d.updateNeighbors(ids[0], ids[1])
	d.updateNeighbors(ids[0], ids[1])
	if got := p.ids(); !slices.Equal(got, first) {
		t.Errorf("ids() = %v after repeated updates, want %v", got, first)
	}
	if d.owner[3] != ownerNone {
		t.Errorf("owner of vertex 3 = %d, want none", d.owner[3])
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range Policies() {
		got, err := ParsePolicy(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePolicy(%q) = %v, %v", p.String(), got, err)
		}
	}
	if p, err := ParsePolicy(" NGSize "); err != nil || p != PolicyNgSize {
		t.Errorf("ParsePolicy(NGSize) = %v, %v", p, err)
	}
	if _, err := ParsePolicy("fastest"); err == nil {
		t.Error("expected error for unknown policy")
	}

	var p Policy
	if err := p.UnmarshalText([]byte("level")); err != nil || p != PolicyLevel {
		t.Errorf("UnmarshalText = %v, %v", p, err)
	}
	if _, err := Policy(42).MarshalText(); err == nil {
		t.Error("expected error marshaling an invalid policy")
	}
}
