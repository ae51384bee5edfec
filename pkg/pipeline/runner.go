package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/cache"
	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/graph"
	"github.com/matzehuels/drbmap/pkg/mapper"
	"github.com/matzehuels/drbmap/pkg/mapping"
	"github.com/matzehuels/drbmap/pkg/observability"
	"github.com/matzehuels/drbmap/pkg/render/jobtree"
	"github.com/matzehuels/drbmap/pkg/store"
)

// Runner executes mapping runs with caching and run records.
//
// The Runner keeps no per-run state, so several goroutines may share one
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Store  store.Store
	Logger *log.Logger
	// TTL is how long results stay cached.
	TTL time.Duration
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// uses [cache.DefaultKeyer] and a nil store keeps no run records.
func NewRunner(c cache.Cache, keyer cache.Keyer, st store.Store, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Store: st, Logger: logger, TTL: cache.TTLMapping}
}

// Execute runs the complete pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := opts.logger(r.Logger)

	// Stage 1: Load
	start := time.Now()
	g, err := LoadGraph(ctx, opts)
	if err != nil {
		return nil, err
	}
	a, err := arch.Parse(opts.Arch)
	if err != nil {
		return nil, err
	}
	res := &Result{Graph: g, Arch: a}
	res.Stats.Vertices = g.VertexCount()
	res.Stats.Edges = g.EdgeCount()
	res.Stats.LoadTime = time.Since(start)
	logger.Info("loaded graph",
		"vertices", g.VertexCount(),
		"edges", g.EdgeCount(),
		"arch", a.String(),
		"terminals", arch.Terminals(a),
		"duration", res.Stats.LoadTime)

	// Stage 2: Map
	start = time.Now()
	key, graphHash, err := r.cacheKey(g, a, opts)
	if err != nil {
		return nil, err
	}
	m, hit, tree, err := r.mapWithCache(ctx, key, g, a, opts, logger)
	if err != nil {
		return nil, err
	}
	res.Mapping, res.CacheHit, res.Tree = m, hit, tree
	res.Stats.MapTime = time.Since(start)
	if tree != nil {
		res.Stats.Jobs = tree.Len()
	}
	logger.Info("mapped graph",
		"cached", hit,
		"jobs", res.Stats.Jobs,
		"duration", res.Stats.MapTime)

	// Stage 3: Evaluate
	start = time.Now()
	met, err := mapping.Evaluate(g, m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "evaluate mapping")
	}
	res.Metrics = met
	res.Stats.EvalTime = time.Since(start)
	observability.Pipeline().OnEvaluateComplete(ctx, met.CommCost, met.Imbalance)
	logger.Info("evaluated mapping",
		"comm_cost", met.CommCost,
		"cut_edges", met.CutEdges,
		"imbalance", met.Imbalance)

	if len(opts.TreeFormats) > 0 && tree != nil {
		if res.Artifacts, err = RenderTree(ctx, tree, a, opts.TreeFormats); err != nil {
			return nil, err
		}
	}

	// Stage 4: Store
	res.Run = r.newRun(res, graphHash, opts)
	if r.Store != nil {
		if err := r.Store.Put(ctx, res.Run); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "store run")
		}
		logger.Debug("stored run", "id", res.Run.ID)
	}
	return res, nil
}

// Map runs the mapping stage alone: cache lookup, mapping and caching.
func (r *Runner) Map(ctx context.Context, g *graph.Graph, a arch.Arch, opts Options) (*mapping.Mapping, bool, error) {
	key, _, err := r.cacheKey(g, a, opts)
	if err != nil {
		return nil, false, err
	}
	m, hit, _, err := r.mapWithCache(ctx, key, g, a, opts, opts.logger(r.Logger))
	return m, hit, err
}

// cacheKey returns the cache key of a run and the hash of its graph.
func (r *Runner) cacheKey(g *graph.Graph, a arch.Arch, opts Options) (string, string, error) {
	mo, err := opts.MapperOptions()
	if err != nil {
		return "", "", err
	}
	data, err := graph.MarshalGraph(g)
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeInternal, err, "serialize graph for cache key")
	}
	graphHash := cache.Hash(data)
	key := r.Keyer.MappingKey(graphHash, cache.MappingKeyOpts{
		Arch:       a.String(),
		Policy:     mo.Policy.String(),
		Strategy:   opts.strategy().String(),
		TieJobs:    mo.TieJobs,
		TieMapping: mo.TieMapping,
		Seed:       mo.Seed,
	})
	return key, graphHash, nil
}

func (r *Runner) mapWithCache(ctx context.Context, key string, g *graph.Graph, a arch.Arch, opts Options, logger *log.Logger) (*mapping.Mapping, bool, *jobtree.Tree, error) {
	hooks := observability.Cache()
	fresh := opts.Refresh || len(opts.TreeFormats) > 0

	if !fresh {
		if data, hit, err := r.Cache.Get(ctx, key); err != nil {
			logger.Warn("cache lookup failed", "err", err)
		} else if hit {
			if m, err := decodeMapping(data, g, a); err == nil {
				hooks.OnCacheHit(ctx, key)
				return m, true, nil, nil
			}
			logger.Warn("discarding unreadable cache entry", "key", key)
		}
		hooks.OnCacheMiss(ctx, key)
	}

	mo, err := opts.MapperOptions()
	if err != nil {
		return nil, false, nil, err
	}
	tree := jobtree.New()
	mo.Trace = tree
	mo.Logger = logger

	m, err := mapper.MapGraph(ctx, g, a, opts.strategy(), mo)
	if err != nil {
		return nil, false, nil, err
	}

	if data, err := json.Marshal(m); err == nil {
		if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
			logger.Warn("cache write failed", "err", err)
		} else {
			hooks.OnCacheSet(ctx, key, len(data))
		}
	}
	return m, false, tree, nil
}

// decodeMapping rebuilds a cached mapping and checks it fits g and a.
func decodeMapping(data []byte, g *graph.Graph, a arch.Arch) (*mapping.Mapping, error) {
	var doc mapping.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Arch != a.String() {
		return nil, errors.New(errors.ErrCodeInternal, "cached mapping targets %q, want %q", doc.Arch, a.String())
	}
	if len(doc.Terminals) != g.VertexCount() {
		return nil, errors.New(errors.ErrCodeInternal, "cached mapping has %d vertices, want %d", len(doc.Terminals), g.VertexCount())
	}
	return mapping.FromDocument(doc)
}

func (r *Runner) newRun(res *Result, graphHash string, opts Options) *store.Run {
	mo, _ := opts.MapperOptions()
	run := store.NewRun()
	run.GraphHash = graphHash
	run.Arch = res.Arch.String()
	run.Policy = mo.Policy.String()
	run.Strategy = opts.strategy().String()
	run.TieJobs = mo.TieJobs
	run.TieMapping = mo.TieMapping
	run.Seed = mo.Seed
	run.CacheHit = res.CacheHit
	run.Duration = res.Stats.LoadTime + res.Stats.MapTime + res.Stats.EvalTime
	run.Terminals = res.Mapping.Terminals()
	run.Metrics = res.Metrics
	return run
}

// Close releases the cache and the store.
func (r *Runner) Close() error {
	var first error
	if r.Cache != nil {
		first = r.Cache.Close()
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
