package boss

import (
	"context"
	"math"
	"math/bits"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causeway/pkg/graph"
	"github.com/matzehuels/causeway/pkg/knowledge"
	"github.com/matzehuels/causeway/pkg/score"
	"github.com/matzehuels/causeway/pkg/search/scorer"
)

// maxSubsetBits bounds the neighbours enumerated as subsets H of one delete
// operator.
const maxSubsetBits = 16

// besStep runs backward equivalence search from the current CPDAG, turns
// the result into an order consistent with knowledge and rescores it. The
// new order is kept only if it strictly improves best; otherwise the scorer
// returns to the bookmark. It reports whether the order was kept.
func (e *Engine) besStep(ctx context.Context, sc *scorer.Scorer, best *float64, st *Stats, logger *log.Logger) bool {
	cpdag, deletions := backwardSearch(ctx, e.score, sc.Graph(true), sc.Knowledge())
	if deletions == 0 {
		return false
	}
	st.BESDeletions += deletions

	dag, err := graph.ExtendToDAG(cpdag)
	if err != nil {
		logger.Debug("bes result has no extension", "err", err)
		return false
	}
	order, err := graph.TopologicalOrder(dag)
	if err != nil {
		logger.Debug("bes result is not a DAG", "err", err)
		return false
	}
	order = sc.Knowledge().Repair(order)

	total, err := sc.Score(order)
	if err == nil && better(total, *best) && !sc.Violates() {
		logger.Debug("bes improved order", "deletions", deletions, "score", total)
		*best = total
		sc.Bookmark(0)
		st.Accepted++
		return true
	}
	logger.Debug("bes order rejected", "deletions", deletions, "score", total)
	sc.GoToBookmark(0)
	return false
}

type deleteOp struct {
	x, y  int
	h     []int
	delta float64
}

// backwardSearch greedily applies Chickering delete operators to cpdag
// while the best one does not lower the score, rebuilding the CPDAG after
// every deletion. Directed edges forbidden by knowledge are deleted first. It
// returns the final CPDAG and the number of deleted edges.
func backwardSearch(ctx context.Context, s score.Score, cpdag *graph.Graph, know *knowledge.Index) (*graph.Graph, int) {
	g := cpdag.Clone()
	deletions := 0
	p := g.Size()

	// Compiled knowledge never forbids both directions of a pair, so only
	// directed edges can be forbidden outright.
	if !know.Empty() {
		for a := 0; a < p; a++ {
			for b := 0; b < p; b++ {
				if g.IsDirected(a, b) && know.ForbiddenParent(a, b) {
					g.RemoveEdge(a, b)
					deletions++
				}
			}
		}
		if deletions > 0 {
			if next, ok := rebuild(g); ok {
				g = next
			}
		}
	}

	for ctx.Err() == nil {
		op, ok := bestDelete(s, g)
		if !ok {
			break
		}
		g.RemoveEdge(op.x, op.y)
		for _, h := range op.h {
			if g.IsUndirected(op.y, h) {
				g.AddDirected(op.y, h)
			}
			if g.IsUndirected(op.x, h) {
				g.AddDirected(op.x, h)
			}
		}
		deletions++
		next, ok := rebuild(g)
		if !ok {
			break
		}
		g = next
	}
	return g, deletions
}

// bestDelete scans Y ascending, X ascending and H by ascending bitmask and
// returns the first operator with the highest non-negative delta.
func bestDelete(s score.Score, g *graph.Graph) (deleteOp, bool) {
	p := g.Size()
	var best deleteOp
	found := false
	for y := 0; y < p; y++ {
		pa := g.Parents(y)
		nbrs := g.Neighbors(y)
		for x := 0; x < p; x++ {
			if !g.IsDirected(x, y) && !g.IsUndirected(x, y) {
				continue
			}
			var na []int
			for _, n := range nbrs {
				if n != x && g.Adjacent(n, x) {
					na = append(na, n)
				}
			}
			bitsN := min(len(na), maxSubsetBits)
			for mask := uint32(0); mask < 1<<bitsN; mask++ {
				h := make([]int, 0, bits.OnesCount32(mask))
				rest := make([]int, 0, len(na))
				for i, n := range na {
					if i < bitsN && mask&(1<<i) != 0 {
						h = append(h, n)
					} else {
						rest = append(rest, n)
					}
				}
				if !isClique(g, rest) {
					continue
				}
				cond := make([]int, 0, len(rest)+len(pa))
				cond = append(cond, rest...)
				for _, u := range pa {
					if u != x {
						cond = append(cond, u)
					}
				}
				delta := -s.LocalScoreDiff(x, y, cond)
				if math.IsNaN(delta) || delta < 0 {
					continue
				}
				if !found || delta > best.delta {
					best = deleteOp{x: x, y: y, h: h, delta: delta}
					found = true
				}
			}
		}
	}
	return best, found
}

func isClique(g *graph.Graph, nodes []int) bool {
	for i, a := range nodes {
		for _, b := range nodes[i+1:] {
			if !g.Adjacent(a, b) {
				return false
			}
		}
	}
	return true
}

func rebuild(g *graph.Graph) (*graph.Graph, bool) {
	dag, err := graph.ExtendToDAG(g)
	if err != nil {
		return nil, false
	}
	return graph.CPDAG(dag), true
}
