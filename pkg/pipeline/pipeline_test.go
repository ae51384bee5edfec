package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/drbmap/pkg/cache"
	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/graph"
	"github.com/matzehuels/drbmap/pkg/mapper"
	"github.com/matzehuels/drbmap/pkg/observability"
	"github.com/matzehuels/drbmap/pkg/store"
)

// ring6 is a 6-vertex ring in Chaco format.
const ring6 = "6 6\n2 6\n1 3\n2 4\n3 5\n4 6\n5 1\n"

func newTestRunner(t *testing.T) (*Runner, *store.MemoryStore) {
	t.Helper()
	c, err := cache.NewBadgerCache("")
	if err != nil {
		t.Fatalf("NewBadgerCache: %v", err)
	}
	st := store.NewMemoryStore()
	r := NewRunner(c, nil, st, log.New(&bytes.Buffer{}))
	t.Cleanup(func() { r.Close() })
	return r, st
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.GraphText = ring6
	opts.Arch = "cmplt 3"
	opts.CheckInvariants = true
	return opts
}

type cacheRecorder struct {
	observability.NoopCacheHooks
	hits, misses, sets int
}

func (c *cacheRecorder) OnCacheHit(context.Context, string)      { c.hits++ }
func (c *cacheRecorder) OnCacheMiss(context.Context, string)     { c.misses++ }
func (c *cacheRecorder) OnCacheSet(context.Context, string, int) { c.sets++ }

func TestExecute(t *testing.T) {
	defer observability.Reset()
	rec := &cacheRecorder{}
	observability.SetCacheHooks(rec)

	ctx := context.Background()
	r, st := newTestRunner(t)

	first, err := r.Execute(ctx, testOptions())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if first.CacheHit {
		t.Error("first run hit the cache")
	}
	if !first.Mapping.Complete() {
		t.Error("mapping is incomplete")
	}
	if first.Metrics.Vertices != 6 || first.Metrics.UsedTerminals != 3 {
		t.Errorf("Metrics = %+v, want 6 vertices on 3 terminals", first.Metrics)
	}
	if first.Stats.Jobs == 0 || first.Tree == nil {
		t.Errorf("Stats.Jobs = %d, Tree = %v; want a recorded job tree", first.Stats.Jobs, first.Tree)
	}

	second, err := r.Execute(ctx, testOptions())
	if err != nil {
		t.Fatalf("Execute (cached): %v", err)
	}
	if !second.CacheHit || second.Tree != nil {
		t.Errorf("second run: CacheHit = %v, Tree = %v; want a cache hit without tree", second.CacheHit, second.Tree)
	}
	if diff := cmp.Diff(first.Mapping.Terminals(), second.Mapping.Terminals()); diff != "" {
		t.Errorf("cached terminals differ (-first +second):\n%s", diff)
	}
	if rec.hits != 1 || rec.misses != 1 || rec.sets != 1 {
		t.Errorf("cache hooks = %d hits, %d misses, %d sets; want 1, 1, 1", rec.hits, rec.misses, rec.sets)
	}

	runs, err := st.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("stored %d runs, want 2", len(runs))
	}
	got, err := st.Get(ctx, first.Run.ID)
	if err != nil {
		t.Fatalf("Get(first run): %v", err)
	}
	if got.Arch != "cmplt 3" || got.Policy != "size" || got.CacheHit || got.GraphHash == "" {
		t.Errorf("stored run = %+v", got)
	}
	if diff := cmp.Diff(first.Mapping.Terminals(), got.Terminals); diff != "" {
		t.Errorf("stored terminals mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteOptionsChangeKey(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRunner(t)
	if _, err := r.Execute(ctx, testOptions()); err != nil {
		t.Fatal(err)
	}

	opts := testOptions()
	opts.Policy = "level"
	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Error("a different policy hit the cache")
	}

	opts = testOptions()
	opts.Refresh = true
	if res, err = r.Execute(ctx, opts); err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Error("Refresh hit the cache")
	}
}

func TestExecuteTree(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRunner(t)
	if _, err := r.Execute(ctx, testOptions()); err != nil {
		t.Fatal(err)
	}

	opts := testOptions()
	opts.TreeFormats = []string{FormatDOT}
	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Error("a tree request was served from the cache")
	}
	if dot := string(res.Artifacts[FormatDOT]); !strings.HasPrefix(dot, "digraph jobs {") {
		t.Errorf("DOT artifact = %.60q", dot)
	}
}

func TestExecuteGraphSources(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "ring.chaco")
	if err := os.WriteFile(path, []byte(ring6), 0o644); err != nil {
		t.Fatal(err)
	}

	for name, set := range map[string]func(*Options){
		"path":  func(o *Options) { o.GraphPath = path },
		"graph": func(o *Options) { o.Graph = graph.Ring(6) },
		"scotch text": func(o *Options) {
			var buf strings.Builder
			_ = graph.WriteScotch(&buf, graph.Ring(6))
			o.GraphText = buf.String()
		},
	} {
		t.Run(name, func(t *testing.T) {
			r, _ := newTestRunner(t)
			opts := testOptions()
			opts.GraphText = ""
			set(&opts)
			res, err := r.Execute(ctx, opts)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if res.Stats.Vertices != 6 || res.Stats.Edges != 6 {
				t.Errorf("Stats = %+v, want 6 vertices and 6 edges", res.Stats)
			}
		})
	}
}

func TestExecuteErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		mod  func(*Options)
		code errors.Code
	}{
		{"no graph", func(o *Options) { o.GraphText = "" }, errors.ErrCodeInvalidInput},
		{"two graphs", func(o *Options) { o.Graph = graph.Ring(3) }, errors.ErrCodeInvalidInput},
		{"empty arch", func(o *Options) { o.Arch = " " }, errors.ErrCodeInvalidArch},
		{"bad arch", func(o *Options) { o.Arch = "torus 4" }, errors.ErrCodeInvalidArch},
		{"bad policy", func(o *Options) { o.Policy = "fastest" }, errors.ErrCodeInvalidPolicy},
		{"bad format", func(o *Options) { o.TreeFormats = []string{"png"} }, errors.ErrCodeInvalidFormat},
		{"bad chaco", func(o *Options) { o.GraphText = "2 1\n2\n3\n" }, errors.ErrCodeInvalidGraph},
		{"too large", func(o *Options) { o.MaxGraphBytes = 4 }, errors.ErrCodeInvalidGraph},
		{"missing file", func(o *Options) { o.GraphText, o.GraphPath = "", "/nonexistent/g.grf" }, errors.ErrCodeNotFound},
		{"job limit", func(o *Options) { o.InitialJobs, o.MaxJobs = 1, 2 }, errors.ErrCodeResourceExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, st := newTestRunner(t)
			opts := testOptions()
			tt.mod(&opts)
			_, err := r.Execute(ctx, opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("Execute() error = %v, want %s", err, tt.code)
			}
			if runs, _ := st.List(ctx, 0); len(runs) != 0 {
				t.Errorf("failed run stored %d records", len(runs))
			}
		})
	}
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ := newTestRunner(t)
	if _, err := r.Execute(ctx, testOptions()); !errors.Is(err, errors.ErrCodeCanceled) {
		t.Errorf("Execute() error = %v, want %s", err, errors.ErrCodeCanceled)
	}
}

func TestRunnerMap(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRunner(t)
	g := graph.Ring(6)
	opts := testOptions()
	opts.GraphText = ""
	opts.Graph = g

	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	m, hit, err := r.Map(ctx, g, res.Arch, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("Map after Execute missed the cache")
	}
	if !cmp.Equal(m.Terminals(), res.Mapping.Terminals()) {
		t.Errorf("Map terminals = %v, want %v", m.Terminals(), res.Mapping.Terminals())
	}
}

func TestMapperOptions(t *testing.T) {
	opts := Options{Policy: "ngsize", TieJobs: true, Seed: 9, Workers: 4, MaxJobs: 10}
	mo, err := opts.MapperOptions()
	if err != nil {
		t.Fatal(err)
	}
	if mo.Policy != mapper.PolicyNgSize || !mo.TieJobs || mo.TieMapping || mo.Seed != 9 || mo.Workers != 4 {
		t.Errorf("MapperOptions() = %+v", mo)
	}
	if a, ok := mo.Allocator.(mapper.LimitAllocator); !ok || a.MaxJobs != 10 {
		t.Errorf("Allocator = %#v, want LimitAllocator{MaxJobs: 10}", mo.Allocator)
	}
	if mo, _ := (&Options{}).MapperOptions(); mo.Policy != mapper.PolicySize {
		t.Errorf("empty policy = %v, want size", mo.Policy)
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"dot", "svg"}); err != nil {
		t.Errorf("ValidateFormats(dot, svg) = %v", err)
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("ValidateFormats(nil) = %v", err)
	}
	if err := ValidateFormats([]string{"SVG"}); err == nil {
		t.Error("ValidateFormats(SVG) succeeded")
	}
}
