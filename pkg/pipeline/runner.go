package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causeway/pkg/cache"
	"github.com/matzehuels/causeway/pkg/dataset"
	"github.com/matzehuels/causeway/pkg/graph"
	"github.com/matzehuels/causeway/pkg/knowledge"
	"github.com/matzehuels/causeway/pkg/observability"
	"github.com/matzehuels/causeway/pkg/score"
	"github.com/matzehuels/causeway/pkg/search/boss"
	"github.com/matzehuels/causeway/pkg/store"
)

// Runner executes the pipeline with caching and run history. Both the
// CLI and the HTTP server use it.
//
// A Runner holds no per-run state; several goroutines may share one.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Store  store.Store
	Logger *log.Logger
}

// NewRunner returns a Runner. A nil cache disables caching, a nil keyer
// selects DefaultKeyer and a nil store disables run history.
func NewRunner(c cache.Cache, keyer cache.Keyer, st store.Store, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Store:  st,
		Logger: logger,
	}
}

// cachedResult is the cache payload of a search.
type cachedResult struct {
	CPDAG graph.Document `json:"cpdag"`
	DAG   graph.Document `json:"dag"`
	Order []string       `json:"order"`
	Score float64        `json:"score"`
	Stats boss.Stats     `json:"stats"`
}

// Execute runs load → search → record.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	hooks := observability.Pipeline()

	// Stage 1: Load
	loadStart := time.Now()
	hooks.OnLoadStart(ctx, opts.Source())
	ds, know, idx, initial, err := r.load(opts)
	if err != nil {
		hooks.OnLoadComplete(ctx, opts.Source(), 0, 0, time.Since(loadStart), err)
		return nil, err
	}
	res := &Result{
		DataHash:  ds.Hash(),
		Variables: ds.Names(),
	}
	res.Stats.Variables = ds.NumVariables()
	res.Stats.Rows = ds.NumRows()
	res.Stats.LoadTime = time.Since(loadStart)
	hooks.OnLoadComplete(ctx, opts.Source(), res.Stats.Variables, res.Stats.Rows, res.Stats.LoadTime, nil)

	r.Logger.Info("loaded data",
		"source", opts.Source(),
		"variables", res.Stats.Variables,
		"rows", res.Stats.Rows,
		"duration", res.Stats.LoadTime)

	// Stage 2: Search, unless cached
	searchStart := time.Now()
	key := r.Keyer.SearchKey(res.DataHash, opts.SearchKeyOpts(knowledgeHash(know), initial))
	if !opts.Refresh && r.lookup(ctx, key, res) {
		res.CacheInfo.SearchHit = true
	} else {
		if err := r.search(ctx, ds, idx, initial, opts, res); err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		if !res.Interrupted {
			r.remember(ctx, key, res)
		}
	}
	res.Stats.SearchTime = time.Since(searchStart)
	res.Stats.Edges = res.CPDAG.NumEdges()

	r.Logger.Info("search complete",
		"score", res.Score,
		"edges", res.Stats.Edges,
		"cached", res.CacheInfo.SearchHit,
		"interrupted", res.Interrupted,
		"duration", res.Stats.SearchTime)

	// Stage 3: Record
	if r.Store != nil {
		run := r.record(opts, !know.Empty(), res)
		if err := r.Store.Save(ctx, run); err != nil {
			r.Logger.Warn("run not recorded", "err", err)
		} else {
			res.RunID = run.ID
		}
	}
	return res, nil
}

func (r *Runner) load(opts Options) (*dataset.DataSet, knowledge.Knowledge, *knowledge.Index, []int, error) {
	ds, err := LoadDataset(opts)
	if err != nil {
		return nil, knowledge.Knowledge{}, nil, nil, fmt.Errorf("load data: %w", err)
	}
	know, err := LoadKnowledge(opts)
	if err != nil {
		return nil, knowledge.Knowledge{}, nil, nil, fmt.Errorf("load knowledge: %w", err)
	}
	idx, err := know.Compile(ds.Names())
	if err != nil {
		return nil, knowledge.Knowledge{}, nil, nil, fmt.Errorf("compile knowledge: %w", err)
	}
	initial, err := resolveOrder(ds.Names(), opts.InitialOrder)
	if err != nil {
		return nil, knowledge.Knowledge{}, nil, nil, err
	}
	return ds, know, idx, initial, nil
}

func (r *Runner) search(ctx context.Context, ds *dataset.DataSet, idx *knowledge.Index, initial []int, opts Options, res *Result) error {
	hooks := observability.Pipeline()
	cached, err := score.NewCached(score.NewSemBIC(ds, opts.Penalty), opts.CacheSize)
	if err != nil {
		return err
	}
	if d := opts.Timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	eng := boss.New(cached, boss.Options{
		Strategy:      boss.Strategy(opts.Strategy),
		MaxSweeps:     opts.MaxSweeps,
		NumStarts:     opts.NumStarts,
		Shuffle:       opts.Shuffle,
		Seed:          opts.Seed,
		Parallelism:   opts.Parallelism,
		UseBES:        opts.UseBES,
		DisableShrink: opts.DisableShrink,
		Knowledge:     idx,
		Logger:        opts.Logger,
		Hooks:         opts.SearchHooks,
	})

	start := time.Now()
	hooks.OnSearchStart(ctx, opts.Strategy, ds.NumVariables())
	out, err := eng.Search(ctx, initial)
	if err != nil {
		hooks.OnSearchComplete(ctx, opts.Strategy, 0, time.Since(start), err)
		return err
	}
	hooks.OnSearchComplete(ctx, opts.Strategy, out.Score, time.Since(start), nil)

	res.CPDAG = out.CPDAG
	res.DAG = out.DAG
	res.Order = out.OrderNames
	res.Score = out.Score
	res.Interrupted = out.Interrupted
	res.Search = out.Stats
	res.CacheInfo.Scores = cached.Stats()
	return nil
}

// lookup fills res from the result cache and reports a hit.
func (r *Runner) lookup(ctx context.Context, key string, res *Result) bool {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "search")
		return false
	}
	var c cachedResult
	if err := json.Unmarshal(data, &c); err != nil {
		observability.Cache().OnCacheMiss(ctx, "search")
		return false
	}
	cpdag, err := c.CPDAG.Graph()
	if err != nil {
		return false
	}
	dag, err := c.DAG.Graph()
	if err != nil {
		return false
	}
	observability.Cache().OnCacheHit(ctx, "search")
	res.CPDAG, res.DAG = cpdag, dag
	res.Order = c.Order
	res.Score = c.Score
	res.Search = c.Stats
	return true
}

// remember stores res in the result cache. Failures only cost a future
// cache hit.
func (r *Runner) remember(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(cachedResult{
		CPDAG: res.CPDAG.Document(),
		DAG:   res.DAG.Document(),
		Order: res.Order,
		Score: res.Score,
		Stats: res.Search,
	})
	if err != nil {
		r.Logger.Debug("result not cacheable", "err", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLSearch); err != nil {
		r.Logger.Debug("cache set failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "search", len(data))
}

func (r *Runner) record(opts Options, hasKnowledge bool, res *Result) *store.Run {
	run := store.NewRun()
	run.Source = opts.Source()
	run.DataHash = res.DataHash
	run.Variables = res.Variables
	run.Rows = res.Stats.Rows
	run.Settings = opts.Settings(hasKnowledge)
	run.Score = res.Score
	run.Order = res.Order
	run.CPDAG = res.CPDAG.Document()
	run.Interrupted = res.Interrupted
	run.CacheHit = res.CacheInfo.SearchHit
	run.Stats = res.Search
	return run
}

// RenderWithCacheInfo renders g in every requested format, reusing
// cached artifacts, and reports whether all of them were cached.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *graph.Graph, opts RenderOptions) (map[string][]byte, bool, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}
	graphData, err := graph.MarshalGraph(g)
	if err != nil {
		return nil, false, fmt.Errorf("serialize graph for cache key: %w", err)
	}
	graphHash := cache.Hash(graphData)

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		key := r.Keyer.RenderKey(graphHash, opts.keyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "render")
			artifacts[format] = data
			continue
		}
		observability.Cache().OnCacheMiss(ctx, "render")
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	rendered, err := Render(ctx, g, RenderOptions{Formats: missing, Title: opts.Title, RankDir: opts.RankDir})
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		key := r.Keyer.RenderKey(graphHash, opts.keyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLRender); err == nil {
			observability.Cache().OnCacheSet(ctx, "render", len(data))
		}
		artifacts[format] = data
	}
	return artifacts, false, nil
}

// Close releases the cache and the store.
func (r *Runner) Close() error {
	var err error
	if r.Cache != nil {
		err = r.Cache.Close()
	}
	if r.Store != nil {
		if serr := r.Store.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
