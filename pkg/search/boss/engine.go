// Package boss implements permutation-based causal structure search in the
// BOSS/GRaSP family.
//
// The engine keeps an order of variables in a [scorer.Scorer], sweeps over
// the variables trying moves, and keeps a move only when it strictly
// improves the total score and the whole order still satisfies the
// knowledge. A restart has converged when a full sweep accepts nothing.
// Tucks need an edge to act on, so a tuck sweep that finds none falls
// back to best-move relocation.
// Several restarts from shuffled orders may run in parallel; the best total
// wins, ties going to the lowest start index.
//
//	eng := boss.New(s, boss.Options{NumStarts: 4, Seed: 42})
//	res, err := eng.Search(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.CPDAG)
//
// Cancelling ctx stops every restart at the next candidate move. Search
// then returns the best state reached so far with Result.Interrupted set and
// a nil error.
package boss

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/graph"
	"github.com/matzehuels/causeway/pkg/observability"
	"github.com/matzehuels/causeway/pkg/score"
	"github.com/matzehuels/causeway/pkg/search/scorer"
)

// Engine runs permutation search over one Score. An Engine holds no
// per-search state and may run several searches concurrently.
type Engine struct {
	score score.Score
	opts  Options
}

// New returns an engine over s. Unset options take their defaults.
func New(s score.Score, opts Options) *Engine {
	return &Engine{score: s, opts: opts.withDefaults()}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// startResult is the outcome of one restart.
type startResult struct {
	order       []int
	parents     [][]int
	total       float64
	interrupted bool
	stats       Stats
}

// Search runs every restart and returns the best result. initial is the
// start-0 order; nil means the natural column order. An invalid initial
// order or invalid options fail with an INVALID_* error.
func (e *Engine) Search(ctx context.Context, initial []int) (*Result, error) {
	if err := e.opts.Validate(); err != nil {
		return nil, err
	}
	began := time.Now()
	names := e.score.Variables()
	p := len(names)
	if initial == nil {
		initial = make([]int, p)
		for i := range initial {
			initial[i] = i
		}
	}
	if err := checkOrder(initial, p); err != nil {
		return nil, err
	}

	logger := e.opts.Logger
	logger.Debug("search starting", "variables", p, "strategy", e.opts.Strategy, "starts", e.opts.NumStarts, "bes", e.opts.UseBES)

	results := make([]*startResult, e.opts.NumStarts)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Parallelism)
	for s := 0; s < e.opts.NumStarts; s++ {
		g.Go(func() error {
			res, err := e.runStart(gctx, s, e.startOrder(s, initial))
			if err != nil {
				return err
			}
			results[s] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := 0
	var stats Stats
	interrupted := false
	for s, r := range results {
		stats.add(r.stats)
		interrupted = interrupted || r.interrupted
		if better(r.total, results[best].total) {
			best = s
		}
	}
	stats.Restarts = len(results)
	stats.BestStart = best
	stats.Duration = time.Since(began)

	r := results[best]
	dag := graph.FromParents(names, r.parents)
	orderNames := make([]string, p)
	for i, v := range r.order {
		orderNames[i] = names[v]
	}
	logger.Debug("search finished", "score", r.total, "best_start", best, "sweeps", stats.Sweeps, "interrupted", interrupted, "took", stats.Duration)

	return &Result{
		CPDAG:       graph.CPDAG(dag),
		DAG:         dag,
		Order:       r.order,
		OrderNames:  orderNames,
		Score:       r.total,
		Interrupted: interrupted,
		Stats:       stats,
	}, nil
}

// startOrder returns the initial order of restart s. Start 0 uses initial
// unless Shuffle is set; later starts always shuffle, each from its own
// PCG stream so results do not depend on scheduling.
func (e *Engine) startOrder(s int, initial []int) []int {
	order := slices.Clone(initial)
	if s == 0 && !e.opts.Shuffle {
		return order
	}
	rng := rand.New(rand.NewPCG(e.opts.Seed, uint64(s)))
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

func (e *Engine) scorerOptions() []scorer.Option {
	opts := []scorer.Option{scorer.WithShrink(!e.opts.DisableShrink)}
	if e.opts.Knowledge != nil {
		opts = append(opts, scorer.WithKnowledge(e.opts.Knowledge))
	}
	return opts
}

func (e *Engine) runStart(ctx context.Context, start int, order []int) (*startResult, error) {
	logger := e.opts.Logger.With("start", start)
	hooks := e.opts.Hooks

	sc, err := scorer.New(e.score, e.scorerOptions()...)
	if err != nil {
		return nil, err
	}
	if sc.Knowledge().Violates(order) {
		order = sc.Knowledge().Repair(order)
		logger.Debug("repaired initial order to satisfy knowledge")
	}
	best, err := sc.Score(order)
	if err != nil {
		return nil, err
	}
	sc.Bookmark(0)
	hooks.OnRestartStart(ctx, start, best)
	logger.Debug("restart begins", "score", best)

	st := &Stats{}
	interrupted := false
	besTried := false
	for {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		if e.opts.MaxSweeps > 0 && st.Sweeps >= e.opts.MaxSweeps {
			break
		}

		before := *st
		var improved bool
		if e.opts.Strategy == StrategyBestMove {
			improved, interrupted = e.bestMoveSweep(ctx, sc, &best, st)
		} else {
			improved, interrupted = e.tuckSweep(ctx, sc, &best, st)
			if !interrupted && st.MovesTried == before.MovesTried {
				// No variable was adjacent to an earlier one, so tucks
				// cannot create edges; relocate variables instead.
				logger.Debug("no applicable tuck, running best-move sweep", "sweep", st.Sweeps+1)
				improved, interrupted = e.bestMoveSweep(ctx, sc, &best, st)
			}
		}
		st.Sweeps++
		ev := sweepEvent(start, st, before, best)
		hooks.OnSweep(ctx, ev)
		logger.Debug("sweep", "sweep", ev.Sweep, "accepted", ev.Accepted, "tried", ev.Tried, "score", best)
		if interrupted {
			break
		}
		if improved {
			besTried = false
			continue
		}
		if !e.opts.UseBES || besTried {
			break
		}
		besTried = true
		if !e.besStep(ctx, sc, &best, st, logger) {
			break
		}
	}

	sc.GoToBookmark(0)
	st.MemoNodes = sc.MemoSize()
	hooks.OnRestartComplete(ctx, start, best, st.Sweeps, interrupted)
	logger.Debug("restart complete", "score", best, "sweeps", st.Sweeps, "interrupted", interrupted)

	return &startResult{
		order:       sc.Order(),
		parents:     sc.ParentMap(),
		total:       best,
		interrupted: interrupted,
		stats:       *st,
	}, nil
}

func sweepEvent(start int, st *Stats, before Stats, best float64) observability.SweepEvent {
	return observability.SweepEvent{
		Start:    start,
		Sweep:    st.Sweeps,
		Accepted: st.Accepted - before.Accepted,
		Tried:    st.MovesTried - before.MovesTried,
		Total:    best,
	}
}

// better reports whether a strictly improves on b. NaN never improves
// anything, and any finite value improves on NaN.
func better(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	return math.IsNaN(b) || a > b
}

func checkOrder(order []int, p int) error {
	if len(order) != p {
		return errors.New(errors.ErrCodeInvalidOrder, "initial order has %d entries, want %d", len(order), p)
	}
	seen := make([]bool, p)
	for _, v := range order {
		if v < 0 || v >= p || seen[v] {
			return errors.New(errors.ErrCodeInvalidOrder, "initial order is not a permutation of 0..%d", p-1)
		}
		seen[v] = true
	}
	return nil
}
