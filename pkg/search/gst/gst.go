// Package gst implements the grow-shrink tree: a per-variable memo trie of
// forward-selection steps used to find the best parent set of a target
// variable among an arbitrary candidate pool.
//
// Each trie node is a parent set reached by adding one variable to its
// parent node's set. A node lazily computes its branches, which are the
// single-variable additions that strictly improve its score, ordered best
// first. Tracing a candidate pool walks from the root, always taking the
// first branch whose variable is in the pool, so pools sharing a long
// common prefix reuse every score already computed.
//
//	t := gst.New(s, target)
//	var parents []int
//	best := t.Trace(prefix, prefix, &parents)
//
// Nodes are never removed: a local score for a fixed (target, parents)
// pair never changes during a run, so every memoised value stays valid.
//
// A Tree is not safe for concurrent use.
package gst

import (
	"math"
	"slices"

	"github.com/matzehuels/causeway/pkg/score"
	"github.com/matzehuels/causeway/pkg/search/varset"
)

// Tree is the grow-shrink memo for one target variable.
type Tree struct {
	score    score.Score
	target   int
	p        int
	excluded varset.Set
	root     *node
	size     int
}

type node struct {
	add     int
	parents []int
	score   float64

	grown    bool
	branches []*node

	shrinks map[string]shrunk
}

type shrunk struct {
	parents []int
	score   float64
}

// Option configures a Tree.
type Option func(*Tree)

// WithExcluded removes the given variables from every candidate pool, for
// example parents forbidden by background knowledge.
func WithExcluded(vars varset.Set) Option {
	return func(t *Tree) {
		for _, v := range vars.Members() {
			if v < t.p {
				t.excluded.Add(v)
			}
		}
	}
}

// New returns an empty tree for target. The root, the empty parent set, is
// scored immediately.
func New(s score.Score, target int, opts ...Option) *Tree {
	p := len(s.Variables())
	t := &Tree{
		score:    s,
		target:   target,
		p:        p,
		excluded: varset.New(p),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.excluded.Add(target)
	t.root = &node{add: -1, score: s.LocalScore(target, nil)}
	t.size = 1
	return t
}

// Target returns the variable this tree scores.
func (t *Tree) Target() int { return t.target }

// Len returns the number of memoised trie nodes.
func (t *Tree) Len() int { return t.size }

// EmptyScore returns the score of the target with no parents.
func (t *Tree) EmptyScore() float64 { return t.root.score }

// Trace returns the best parent set the greedy grow-shrink procedure finds
// among grow, and its score. Growth adds the most improving variable of grow
// until none improves. Backward elimination then repeatedly drops the
// member of shrink whose removal raises the score most, or the first one
// whose removal leaves it unchanged; an empty shrink set skips this phase.
// Every step removes a parent, so elimination ends.
//
// *parents is replaced with the chosen set in ascending order. The slice is
// shared with the memo and must not be modified.
//
// If the empty set already scores NaN, Trace returns that NaN with no
// parents. Candidates scoring NaN or ±Inf never become branches.
func (t *Tree) Trace(grow, shrink varset.Set, parents *[]int) float64 {
	n := t.root
	for {
		t.grow(n)
		var next *node
		for _, b := range n.branches {
			if grow.Has(b.add) {
				next = b
				break
			}
		}
		if next == nil {
			break
		}
		n = next
	}

	if len(n.parents) == 0 || shrink.Empty() {
		*parents = n.parents
		return n.score
	}
	res := t.shrink(n, shrink)
	*parents = res.parents
	return res.score
}

func (t *Tree) grow(n *node) {
	if n.grown {
		return
	}
	n.grown = true
	if math.IsNaN(n.score) {
		return
	}

	in := varset.Of(t.p, n.parents...)
	buf := make([]int, len(n.parents)+1)
	for c := 0; c < t.p; c++ {
		if t.excluded.Has(c) || in.Has(c) {
			continue
		}
		cand := insertSorted(buf[:0], n.parents, c)
		s := t.score.LocalScore(t.target, cand)
		if math.IsNaN(s) || math.IsInf(s, 0) || !(s > n.score) {
			continue
		}
		n.branches = append(n.branches, &node{
			add:     c,
			parents: slices.Clone(cand),
			score:   s,
		})
	}
	// Stable sort keeps ascending variable order among equal scores.
	slices.SortStableFunc(n.branches, func(a, b *node) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})
	t.size += len(n.branches)
}

func (t *Tree) shrink(n *node, shrink varset.Set) shrunk {
	removable := varset.New(t.p)
	for _, v := range n.parents {
		if shrink.Has(v) {
			removable.Add(v)
		}
	}
	if removable.Empty() {
		return shrunk{parents: n.parents, score: n.score}
	}

	key := removable.Key()
	if res, ok := n.shrinks[key]; ok {
		return res
	}

	cur := n.parents
	curScore := n.score
	buf := make([]int, 0, len(cur))
	for {
		best, bestScore := -1, curScore
		for i, v := range cur {
			if !removable.Has(v) {
				continue
			}
			buf = append(append(buf[:0], cur[:i]...), cur[i+1:]...)
			s := t.score.LocalScore(t.target, buf)
			if s > bestScore || (best < 0 && s == bestScore) {
				best, bestScore = i, s
			}
		}
		if best < 0 {
			break
		}
		next := make([]int, 0, len(cur)-1)
		next = append(append(next, cur[:best]...), cur[best+1:]...)
		cur, curScore = next, bestScore
	}

	res := shrunk{parents: cur, score: curScore}
	if n.shrinks == nil {
		n.shrinks = make(map[string]shrunk)
	}
	n.shrinks[key] = res
	return res
}

// insertSorted writes sorted ∪ {v} into dst in ascending order.
func insertSorted(dst, sorted []int, v int) []int {
	i, _ := slices.BinarySearch(sorted, v)
	dst = append(dst, sorted[:i]...)
	dst = append(dst, v)
	return append(dst, sorted[i:]...)
}
