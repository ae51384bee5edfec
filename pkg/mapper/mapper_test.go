package mapper_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/graph"
	"github.com/matzehuels/drbmap/pkg/mapper"
	"github.com/matzehuels/drbmap/pkg/mapping"
	"github.com/matzehuels/drbmap/pkg/strategy"
)

// halves puts the first vertices of the job, in proportion to the domain
// weights, in part 0. It counts its calls.
type halves struct {
	calls atomic.Int64
}

func (h *halves) Bipartition(_ context.Context, g *graph.Graph, req strategy.Request) (strategy.Partition, error) {
	h.calls.Add(1)
	n := g.VertexCount()
	n0 := (n*req.Weight0 + (req.Weight0+req.Weight1)/2) / (req.Weight0 + req.Weight1)
	p := make(strategy.Partition, n)
	for v := n0; v < n; v++ {
		p[v] = 1
	}
	return p, nil
}

func options(policy mapper.Policy, tied bool) mapper.Options {
	opts := mapper.DefaultOptions()
	opts.Policy = policy
	opts.TieJobs = tied
	opts.CheckInvariants = true
	return opts
}

func TestScenarioRingOnBinaryTree(t *testing.T) {
	for _, tied := range []bool{false, true} {
		t.Run(fmt.Sprintf("tied=%v", tied), func(t *testing.T) {
			a := arch.MustParse("cmplt 8")
			strat := &halves{}
			var stats mapper.Stats
			var finalSizes []int
			opts := options(mapper.PolicySize, tied)
			opts.Trace = mapper.Tee(&stats, mapper.RecorderFunc(func(e mapper.JobEvent) {
				if e.Kind == mapper.EventTerminal {
					finalSizes = append(finalSizes, e.Vertices)
				}
			}))

			m, err := mapper.MapGraph(context.Background(), graph.Ring(8), a, strat, opts)
			if err != nil {
				t.Fatalf("MapGraph: %v", err)
			}
			if got := strat.calls.Load(); got != 7 {
				t.Errorf("strategy calls = %d, want 7", got)
			}
			if stats.Splits != 7 || stats.Terminals != 8 || stats.Dropped != 0 {
				t.Errorf("stats = %+v, want 7 splits and 8 terminals", stats)
			}
			if diff := cmp.Diff([]int{1, 1, 1, 1, 1, 1, 1, 1}, finalSizes); diff != "" {
				t.Errorf("finalized job sizes (-want +got):\n%s", diff)
			}
			assertComplete(t, m, a)
			if got := distinct(m.Terminals()); got != 8 {
				t.Errorf("distinct terminals = %d, want 8", got)
			}
		})
	}
}

func TestScenarioSingleSplit(t *testing.T) {
	a := arch.MustParse("cmplt 2")
	strat := &halves{}
	var sizes []int
	opts := options(mapper.PolicyLevel, true)
	opts.Trace = mapper.RecorderFunc(func(e mapper.JobEvent) {
		if e.Kind == mapper.EventTerminal {
			sizes = append(sizes, e.Vertices)
		}
	})

	m, err := mapper.MapGraph(context.Background(), graph.Ring(5), a, strat, opts)
	if err != nil {
		t.Fatalf("MapGraph: %v", err)
	}
	if got := strat.calls.Load(); got != 1 {
		t.Errorf("strategy calls = %d, want 1", got)
	}
	if len(sizes) != 2 || sizes[0]+sizes[1] != 5 {
		t.Errorf("terminal job sizes = %v, want two summing to 5", sizes)
	}
	assertComplete(t, m, a)
	if got := distinct(m.Terminals()); got != 2 {
		t.Errorf("distinct terminals = %d, want 2", got)
	}
}

func TestScenarioEmptyPartIsDropped(t *testing.T) {
	var calls atomic.Int64
	allZero := strategy.Func(func(_ context.Context, g *graph.Graph, _ strategy.Request) (strategy.Partition, error) {
		calls.Add(1)
		return make(strategy.Partition, g.VertexCount()), nil
	})

	for _, tied := range []bool{false, true} {
		calls.Store(0)
		var stats mapper.Stats
		opts := options(mapper.PolicySize, tied)
		opts.Trace = &stats

		m, err := mapper.MapGraph(context.Background(), graph.Ring(6), arch.MustParse("cmplt 8"), allZero, opts)
		if err != nil {
			t.Fatalf("tied=%v: MapGraph: %v", tied, err)
		}
		// Three splits down to terminal 0, each dropping its second part.
		if calls.Load() != 3 || stats.Dropped != 3 || stats.Terminals != 1 {
			t.Errorf("tied=%v: calls %d, stats %+v", tied, calls.Load(), stats)
		}
		if diff := cmp.Diff([]int{0, 0, 0, 0, 0, 0}, m.Terminals()); diff != "" {
			t.Errorf("tied=%v: terminals (-want +got):\n%s", tied, diff)
		}
	}
}

func TestScenarioAllocationFailure(t *testing.T) {
	for _, tied := range []bool{false, true} {
		a := arch.MustParse("cmplt 8")
		m := mapping.New(a, 8)
		opts := options(mapper.PolicySize, tied)
		opts.InitialJobs = 4
		opts.Allocator = mapper.LimitAllocator{MaxJobs: 4}

		err := mapper.Map(context.Background(), graph.Ring(8), a, m, &halves{}, opts)
		if !errors.Is(err, errors.ErrCodeResourceExhausted) {
			t.Fatalf("tied=%v: error = %v, want %s", tied, err, errors.ErrCodeResourceExhausted)
		}
		if !stderrors.Is(err, mapper.ErrAllocation) {
			t.Errorf("tied=%v: error should wrap ErrAllocation: %v", tied, err)
		}
		assertUntouched(t, m)
	}
}

func TestDomainTableAllocationFailure(t *testing.T) {
	a := arch.MustParse("cmplt 4")
	m := mapping.New(a, 8)
	opts := options(mapper.PolicySize, false)
	opts.Allocator = mapper.AllocatorFunc(func(what mapper.Storage, have, need int) (int, error) {
		if what == mapper.StorageDomains && need > 2 {
			return 0, mapper.ErrAllocation
		}
		return need, nil
	})

	err := mapper.Map(context.Background(), graph.Ring(8), a, m, &halves{}, opts)
	if !errors.Is(err, errors.ErrCodeResourceExhausted) {
		t.Fatalf("error = %v, want %s", err, errors.ErrCodeResourceExhausted)
	}
	assertUntouched(t, m)
}

func TestStrategyFailureIsClean(t *testing.T) {
	boom := stderrors.New("boom")
	tests := []struct {
		name  string
		strat strategy.Strategy
	}{
		{"error on third call", failAfter(2, boom)},
		{"short partition", strategy.Func(func(context.Context, *graph.Graph, strategy.Request) (strategy.Partition, error) {
			return strategy.Partition{0}, nil
		})},
		{"invalid part", strategy.Func(func(_ context.Context, g *graph.Graph, _ strategy.Request) (strategy.Partition, error) {
			p := make(strategy.Partition, g.VertexCount())
			p[0] = 2
			return p, nil
		})},
	}

	for _, tt := range tests {
		for _, tied := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/tied=%v", tt.name, tied), func(t *testing.T) {
				a := arch.MustParse("hcub 3")
				m := mapping.New(a, 16)
				opts := options(mapper.PolicyLevel, tied)
				opts.Workers = 4

				err := mapper.Map(context.Background(), graph.Mesh2D(4, 4), a, m, tt.strat, opts)
				if !errors.Is(err, errors.ErrCodeStrategyFailed) {
					t.Fatalf("error = %v, want %s", err, errors.ErrCodeStrategyFailed)
				}
				assertUntouched(t, m)
			})
		}
	}
}

func TestTiedRoundReportsFirstFailure(t *testing.T) {
	first, later := stderrors.New("first"), stderrors.New("later")
	var calls atomic.Int64
	inner := &halves{}
	strat := strategy.Func(func(ctx context.Context, g *graph.Graph, req strategy.Request) (strategy.Partition, error) {
		switch calls.Add(1) {
		case 1:
			return inner.Bipartition(ctx, g, req)
		case 2:
			return nil, first
		}
		return nil, later
	})

	a := arch.MustParse("hcub 2")
	opts := options(mapper.PolicyLevel, true)
	opts.Workers = 1
	_, err := mapper.MapGraph(context.Background(), graph.Ring(8), a, strat, opts)
	if !stderrors.Is(err, first) {
		t.Errorf("error = %v, want the first failure of the round", err)
	}
	if !errors.Is(err, errors.ErrCodeStrategyFailed) {
		t.Errorf("code = %s, want %s", errors.GetCode(err), errors.ErrCodeStrategyFailed)
	}
}

func failAfter(n int64, err error) strategy.Strategy {
	var calls atomic.Int64
	inner := &halves{}
	return strategy.Func(func(ctx context.Context, g *graph.Graph, req strategy.Request) (strategy.Partition, error) {
		if calls.Add(1) > n {
			return nil, err
		}
		return inner.Bipartition(ctx, g, req)
	})
}

func TestCommitOnlyOnSuccess(t *testing.T) {
	a := arch.MustParse("cmplt 2")
	m, err := mapping.FromTerminals(a, []int{1, 1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	before := m.Terminals()

	failing := failAfter(0, stderrors.New("nope"))
	if err := mapper.Map(context.Background(), graph.Ring(4), a, m, failing, mapper.DefaultOptions()); err == nil {
		t.Fatal("expected error")
	}
	if diff := cmp.Diff(before, m.Terminals()); diff != "" {
		t.Errorf("mapping changed on failure (-before +after):\n%s", diff)
	}

	if err := mapper.Map(context.Background(), graph.Ring(4), a, m, &halves{}, mapper.DefaultOptions()); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if diff := cmp.Diff([]int{0, 0, 1, 1}, m.Terminals()); diff != "" {
		t.Errorf("terminals (-want +got):\n%s", diff)
	}
}

func TestTerminalJobsNeverReachStrategy(t *testing.T) {
	a := arch.MustParse("tleaf 2 3 5 2 1")
	var bad atomic.Int64
	grow := strategy.NewGraphGrowing()
	strat := strategy.Func(func(ctx context.Context, g *graph.Graph, req strategy.Request) (strategy.Partition, error) {
		if req.Domain0 == req.Domain1 || req.Domain0.Size()+req.Domain1.Size() < 2 {
			bad.Add(1)
		}
		return grow.Bipartition(ctx, g, req)
	})

	var stats mapper.Stats
	opts := options(mapper.PolicySize, false)
	opts.Trace = &stats
	m, err := mapper.MapGraph(context.Background(), graph.Mesh2D(6, 4), a, strat, opts)
	if err != nil {
		t.Fatalf("MapGraph: %v", err)
	}
	if bad.Load() != 0 {
		t.Errorf("strategy received %d terminal requests", bad.Load())
	}
	if stats.Terminals+stats.Splits != stats.Jobs {
		t.Errorf("stats = %+v", stats)
	}
	assertComplete(t, m, a)
}

func TestAllPoliciesComplete(t *testing.T) {
	a := arch.MustParse("mesh2D 3 3")
	g := graph.Mesh2D(9, 6)
	for _, p := range mapper.Policies() {
		for _, tied := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/tied=%v", p, tied), func(t *testing.T) {
				m, err := mapper.MapGraph(context.Background(), g, a, strategy.NewGraphGrowing(), options(p, tied))
				if err != nil {
					t.Fatalf("MapGraph: %v", err)
				}
				assertComplete(t, m, a)
				met, err := mapping.Evaluate(g, m)
				if err != nil {
					t.Fatal(err)
				}
				if met.UsedTerminals != 9 {
					t.Errorf("used terminals = %d, want 9", met.UsedTerminals)
				}
			})
		}
	}
}

// popTrace records, for every job in pop order, its index, parent, level
// and size, so that the pending set at each pop can be rebuilt.
type popTrace struct {
	mu     sync.Mutex
	events []mapper.JobEvent
}

func (p *popTrace) Record(e mapper.JobEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.Kind != mapper.EventDropped {
		p.events = append(p.events, e)
	}
}

// pendingAt returns the jobs pending when event k was popped: created by a
// parent popped before k, and popped after k.
func (p *popTrace) pendingAt(k int) []mapper.JobEvent {
	popped := make(map[int]int, len(p.events))
	for i, e := range p.events {
		popped[e.ID] = i
	}
	var out []mapper.JobEvent
	for i, e := range p.events {
		if i <= k {
			continue
		}
		if parentAt, ok := popped[e.Parent]; e.Parent < 0 || (ok && parentAt < k) {
			out = append(out, e)
		}
	}
	return out
}

func TestPolicyOrder(t *testing.T) {
	tests := []struct {
		policy mapper.Policy
		key    func(mapper.JobEvent) int
	}{
		{mapper.PolicyLevel, func(e mapper.JobEvent) int { return e.Level }},
		{mapper.PolicySize, func(e mapper.JobEvent) int { return e.Vertices }},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			var trace popTrace
			opts := options(tt.policy, false)
			opts.Trace = &trace
			g := graph.Mesh2D(7, 5)
			if _, err := mapper.MapGraph(context.Background(), g, arch.MustParse("cmplt 11"), strategy.NewGraphGrowing(), opts); err != nil {
				t.Fatal(err)
			}

			for k, e := range trace.events {
				for _, other := range trace.pendingAt(k) {
					if tt.key(other) > tt.key(e) {
						t.Errorf("pop %d (job %d, key %d) while job %d with key %d was pending",
							k, e.ID, tt.key(e), other.ID, tt.key(other))
					}
				}
			}
		})
	}
}

func TestTiedDeterminism(t *testing.T) {
	a := arch.MustParse("hcub 4")
	g := graph.Mesh2D(12, 10)
	for _, p := range mapper.Policies() {
		t.Run(p.String(), func(t *testing.T) {
			var want []int
			for _, workers := range []int{1, 3, 8, 1} {
				opts := options(p, true)
				opts.Workers = workers
				m, err := mapper.MapGraph(context.Background(), g, a, strategy.NewGraphGrowing(), opts)
				if err != nil {
					t.Fatalf("workers=%d: %v", workers, err)
				}
				if want == nil {
					want = m.Terminals()
					continue
				}
				if diff := cmp.Diff(want, m.Terminals()); diff != "" {
					t.Errorf("workers=%d: mapping differs (-first +this):\n%s", workers, diff)
				}
			}
		})
	}
}

func TestResizeTransparency(t *testing.T) {
	a := arch.MustParse("tleaf 2 4 10 4 1")
	g := graph.Mesh2D(8, 8)
	for _, tied := range []bool{false, true} {
		var want []int
		for _, initial := range []int{1, 2, 1000} {
			opts := options(mapper.PolicyNeighbor, tied)
			opts.InitialJobs = initial
			m, err := mapper.MapGraph(context.Background(), g, a, strategy.NewGraphGrowing(), opts)
			if err != nil {
				t.Fatalf("initial=%d: %v", initial, err)
			}
			if want == nil {
				want = m.Terminals()
				continue
			}
			if diff := cmp.Diff(want, m.Terminals()); diff != "" {
				t.Errorf("tied=%v initial=%d: mapping differs (-first +this):\n%s", tied, initial, diff)
			}
		}
	}
}

func TestTieMapping(t *testing.T) {
	// A strategy that always puts the lowest vertex in part 1.
	reversed := strategy.Func(func(_ context.Context, g *graph.Graph, _ strategy.Request) (strategy.Partition, error) {
		p := make(strategy.Partition, g.VertexCount())
		for v := range p {
			if v < (len(p)+1)/2 {
				p[v] = 1
			}
		}
		return p, nil
	})
	a := arch.MustParse("cmplt 2")

	opts := options(mapper.PolicySize, true)
	opts.TieMapping = true
	m, err := mapper.MapGraph(context.Background(), graph.Ring(4), a, reversed, opts)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{0, 0, 1, 1}, m.Terminals()); diff != "" {
		t.Errorf("tied mapping (-want +got):\n%s", diff)
	}

	opts.TieMapping = false
	m, err = mapper.MapGraph(context.Background(), graph.Ring(4), a, reversed, opts)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 1, 0, 0}, m.Terminals()); diff != "" {
		t.Errorf("untied mapping (-want +got):\n%s", diff)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancelling := strategy.Func(func(_ context.Context, g *graph.Graph, req strategy.Request) (strategy.Partition, error) {
		cancel()
		return (&halves{}).Bipartition(ctx, g, req)
	})

	for _, tied := range []bool{false, true} {
		a := arch.MustParse("cmplt 4")
		m := mapping.New(a, 8)
		err := mapper.Map(ctx, graph.Ring(8), a, m, cancelling, options(mapper.PolicySize, tied))
		if !errors.Is(err, errors.ErrCodeCanceled) {
			t.Errorf("tied=%v: error = %v, want %s", tied, err, errors.ErrCodeCanceled)
		}
		assertUntouched(t, m)
	}
}

// shrinkless is a two-terminal architecture whose root splits into itself.
type shrinkless struct{ arch.Arch }

func (s shrinkless) Bipart(d arch.Domain) (arch.Domain, arch.Domain, error) {
	return d, d, nil
}

func TestInputErrors(t *testing.T) {
	a := arch.MustParse("cmplt 2")
	empty, _ := graph.NewBuilder(0).Build()
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		want errors.Code
	}{
		{"nil graph", func() error {
			_, err := mapper.MapGraph(ctx, nil, a, &halves{}, mapper.DefaultOptions())
			return err
		}, errors.ErrCodeInvalidGraph},
		{"empty graph", func() error {
			_, err := mapper.MapGraph(ctx, empty, a, &halves{}, mapper.DefaultOptions())
			return err
		}, errors.ErrCodeInvalidGraph},
		{"nil arch", func() error {
			_, err := mapper.MapGraph(ctx, graph.Ring(3), nil, &halves{}, mapper.DefaultOptions())
			return err
		}, errors.ErrCodeInvalidArch},
		{"nil strategy", func() error {
			_, err := mapper.MapGraph(ctx, graph.Ring(3), a, nil, mapper.DefaultOptions())
			return err
		}, errors.ErrCodeInvalidInput},
		{"mapping size", func() error {
			return mapper.Map(ctx, graph.Ring(3), a, mapping.New(a, 4), &halves{}, mapper.DefaultOptions())
		}, errors.ErrCodeInvalidInput},
		{"bad policy", func() error {
			_, err := mapper.MapGraph(ctx, graph.Ring(3), a, &halves{}, mapper.Options{Policy: 99})
			return err
		}, errors.ErrCodeInvalidPolicy},
		{"domain does not shrink", func() error {
			_, err := mapper.MapGraph(ctx, graph.Ring(3), shrinkless{a}, &halves{}, mapper.DefaultOptions())
			return err
		}, errors.ErrCodeInvalidArch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestWeightedGraph(t *testing.T) {
	b := graph.NewBuilder(6)
	for v := range 5 {
		_ = b.AddEdge(v, v+1, v+1)
	}
	_ = b.SetVertexWeight(0, 5)
	g, _ := b.Build()
	a := arch.MustParse("cmplt 3")

	m, err := mapper.MapGraph(context.Background(), g, a, strategy.NewGraphGrowing(), options(mapper.PolicySize, true))
	if err != nil {
		t.Fatal(err)
	}
	assertComplete(t, m, a)
}

func assertComplete(t *testing.T, m *mapping.Mapping, a arch.Arch) {
	t.Helper()
	if !m.Complete() {
		t.Fatalf("mapping incomplete: %d of %d assigned", m.Assigned(), m.VertexCount())
	}
	for v, term := range m.Terminals() {
		if term < 0 || term >= arch.Terminals(a) {
			t.Errorf("vertex %d mapped to %d, not a terminal", v, term)
		}
	}
}

func assertUntouched(t *testing.T, m *mapping.Mapping) {
	t.Helper()
	if m.Assigned() != 0 {
		t.Errorf("mapping has %d assigned vertices after failure, want 0", m.Assigned())
	}
	for v := range m.VertexCount() {
		if m.Part(v) != mapping.Unset {
			t.Errorf("vertex %d is set after failure", v)
		}
	}
}

func distinct(xs []int) int {
	seen := make(map[int]bool)
	for _, x := range xs {
		seen[x] = true
	}
	return len(seen)
}
