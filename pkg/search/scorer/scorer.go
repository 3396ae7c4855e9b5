// Package scorer maintains a permutation of variables together with the
// best parent set of every variable given its prefix, and offers the
// score-aware move primitives used by permutation search.
//
// Parents are always chosen from the prefix of a variable, so the implied
// graph is acyclic by construction. Each variable owns a [gst.Tree] that
// memoises parent-set searches for the lifetime of the Scorer.
//
// A Scorer is not safe for concurrent use. Random restarts create one
// Scorer each over a shared, concurrency-safe [score.Score].
package scorer

import (
	"fmt"
	"slices"

	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/graph"
	"github.com/matzehuels/causeway/pkg/knowledge"
	"github.com/matzehuels/causeway/pkg/score"
	"github.com/matzehuels/causeway/pkg/search/gst"
	"github.com/matzehuels/causeway/pkg/search/varset"
)

// Scorer owns the current order π and the parent sets derived from it.
type Scorer struct {
	score  score.Score
	names  []string
	p      int
	know   *knowledge.Index
	shrink bool

	trees   []*gst.Tree
	order   []int
	pos     []int
	parents [][]int // per variable; slices are immutable and shared
	local   []float64

	bookmarks map[int]bookmark
}

// bookmark copies slice headers only; parent slices are never mutated.
type bookmark struct {
	order   []int
	parents [][]int
	local   []float64
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithKnowledge excludes parents forbidden by idx from every parent search.
// Order consistency is checked by the search engine, not the scorer.
func WithKnowledge(idx *knowledge.Index) Option {
	return func(s *Scorer) { s.know = idx }
}

// WithShrink toggles the backward-elimination phase of parent search.
// It is on by default.
func WithShrink(on bool) Option {
	return func(s *Scorer) { s.shrink = on }
}

// New returns a Scorer positioned at the identity order, already scored.
func New(sc score.Score, opts ...Option) (*Scorer, error) {
	names := sc.Variables()
	p := len(names)
	if p == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "score has no variables")
	}

	s := &Scorer{
		score:     sc,
		names:     names,
		p:         p,
		shrink:    true,
		bookmarks: make(map[int]bookmark),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.know != nil && s.know.Size() != p {
		return nil, errors.New(errors.ErrCodeInvalidKnowledge, "knowledge compiled for %d variables, score has %d", s.know.Size(), p)
	}

	s.trees = make([]*gst.Tree, p)
	for v := 0; v < p; v++ {
		var treeOpts []gst.Option
		if !s.know.Empty() {
			excluded := varset.New(p)
			for u := 0; u < p; u++ {
				if s.know.ForbiddenParent(u, v) {
					excluded.Add(u)
				}
			}
			treeOpts = append(treeOpts, gst.WithExcluded(excluded))
		}
		s.trees[v] = gst.New(sc, v, treeOpts...)
	}

	s.order = make([]int, p)
	s.pos = make([]int, p)
	for i := range s.order {
		s.order[i], s.pos[i] = i, i
	}
	s.parents = make([][]int, p)
	s.local = make([]float64, p)
	s.update(0, p-1)
	return s, nil
}

// Score replaces π with order, recomputes every parent set and returns the
// total score. order must be a permutation of 0..p-1.
func (s *Scorer) Score(order []int) (float64, error) {
	if err := s.validOrder(order); err != nil {
		return 0, err
	}
	copy(s.order, order)
	for i, v := range s.order {
		s.pos[v] = i
	}
	s.update(0, s.p-1)
	return s.Total(), nil
}

func (s *Scorer) validOrder(order []int) error {
	if len(order) != s.p {
		return errors.New(errors.ErrCodeInvalidOrder, "order has %d entries, want %d", len(order), s.p)
	}
	seen := make([]bool, s.p)
	for i, v := range order {
		if v < 0 || v >= s.p {
			return errors.New(errors.ErrCodeInvalidOrder, "order[%d] = %d is outside 0..%d", i, v, s.p-1)
		}
		if seen[v] {
			return errors.New(errors.ErrCodeInvalidOrder, "variable %d appears twice", v)
		}
		seen[v] = true
	}
	return nil
}

// MoveTo removes v from its position and reinserts it at index, shifting
// the variables in between. Only that range is rescored.
func (s *Scorer) MoveTo(v, index int) {
	s.mustVar(v)
	s.mustIndex(index)
	from := s.pos[v]
	if from == index {
		return
	}
	if from < index {
		copy(s.order[from:index], s.order[from+1:index+1])
	} else {
		copy(s.order[index+1:from+1], s.order[index:from])
	}
	s.order[index] = v

	lo, hi := min(from, index), max(from, index)
	for i := lo; i <= hi; i++ {
		s.pos[s.order[i]] = i
	}
	s.update(lo, hi)
}

// Tuck moves every ancestor of k found in positions j+1..Index(k),
// k included, to start at position j, keeping their relative order. The
// variables they pass shift right. It returns false, leaving the state
// untouched, unless j < Index(k) and k is adjacent to Get(j).
func (s *Scorer) Tuck(k, j int) bool {
	s.mustVar(k)
	s.mustIndex(j)
	end := s.pos[k]
	if j >= end || !s.Adjacent(k, s.order[j]) {
		return false
	}

	anc := s.ancestors(k)
	moved := make([]int, 0, end-j+1)
	rest := make([]int, 0, end-j+1)
	rest = append(rest, s.order[j])
	for i := j + 1; i <= end; i++ {
		if v := s.order[i]; anc.Has(v) {
			moved = append(moved, v)
		} else {
			rest = append(rest, v)
		}
	}
	copy(s.order[j:], moved)
	copy(s.order[j+len(moved):], rest)
	for i := j; i <= end; i++ {
		s.pos[s.order[i]] = i
	}
	s.update(j, end)
	return true
}

// Bookmark snapshots the current state under id, replacing any earlier
// snapshot with the same id.
func (s *Scorer) Bookmark(id int) {
	s.bookmarks[id] = bookmark{
		order:   slices.Clone(s.order),
		parents: slices.Clone(s.parents),
		local:   slices.Clone(s.local),
	}
}

// GoToBookmark restores the state saved under id. It returns false if id
// was never bookmarked (or was cleared).
func (s *Scorer) GoToBookmark(id int) bool {
	b, ok := s.bookmarks[id]
	if !ok {
		return false
	}
	copy(s.order, b.order)
	for i, v := range s.order {
		s.pos[v] = i
	}
	copy(s.parents, b.parents)
	copy(s.local, b.local)
	return true
}

// ClearBookmarks drops every snapshot.
func (s *Scorer) ClearBookmarks() { clear(s.bookmarks) }

// Total returns the sum of local scores, summed in variable-index order so
// that equal states always give bit-identical totals.
func (s *Scorer) Total() float64 {
	var t float64
	for _, v := range s.local {
		t += v
	}
	return t
}

// LocalScore returns the current local score of v.
func (s *Scorer) LocalScore(v int) float64 {
	s.mustVar(v)
	return s.local[v]
}

// Size returns the number of variables.
func (s *Scorer) Size() int { return s.p }

// Names returns the variable names, indexed by variable.
func (s *Scorer) Names() []string { return slices.Clone(s.names) }

// Index returns the position of v in π.
func (s *Scorer) Index(v int) int {
	s.mustVar(v)
	return s.pos[v]
}

// Get returns the variable at position i.
func (s *Scorer) Get(i int) int {
	s.mustIndex(i)
	return s.order[i]
}

// Order returns a copy of π.
func (s *Scorer) Order() []int { return slices.Clone(s.order) }

// Parents returns a copy of the parents of v, ascending.
func (s *Scorer) Parents(v int) []int {
	s.mustVar(v)
	return slices.Clone(s.parents[v])
}

// ParentMap returns a copy of every parent set, indexed by variable.
func (s *Scorer) ParentMap() [][]int {
	out := make([][]int, s.p)
	for v, pa := range s.parents {
		out[v] = slices.Clone(pa)
	}
	return out
}

// NumEdges returns the number of parent→child edges in the implied DAG.
func (s *Scorer) NumEdges() int {
	n := 0
	for _, pa := range s.parents {
		n += len(pa)
	}
	return n
}

// Adjacent reports whether a and b are joined in the implied DAG.
func (s *Scorer) Adjacent(a, b int) bool {
	s.mustVar(a)
	s.mustVar(b)
	return contains(s.parents[b], a) || contains(s.parents[a], b)
}

// Ancestors returns the ancestors of v in the implied DAG, v included,
// in ascending order.
func (s *Scorer) Ancestors(v int) []int {
	s.mustVar(v)
	return s.ancestors(v).Members()
}

func (s *Scorer) ancestors(v int) varset.Set {
	seen := varset.Of(s.p, v)
	stack := []int{v}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, u := range s.parents[x] {
			if !seen.Has(u) {
				seen.Add(u)
				stack = append(stack, u)
			}
		}
	}
	return seen
}

// Violates reports whether π breaks the scorer's knowledge.
func (s *Scorer) Violates() bool { return s.know.Violates(s.order) }

// Knowledge returns the compiled knowledge, possibly nil.
func (s *Scorer) Knowledge() *knowledge.Index { return s.know }

// Graph returns the DAG implied by the current parent sets, or its CPDAG.
func (s *Scorer) Graph(cpdag bool) *graph.Graph {
	g := graph.FromParents(s.names, s.parents)
	if cpdag {
		return graph.CPDAG(g)
	}
	return g
}

// MemoSize returns the total number of memoised grow-shrink nodes.
func (s *Scorer) MemoSize() int {
	n := 0
	for _, t := range s.trees {
		n += t.Len()
	}
	return n
}

// update recomputes parents and local scores for positions lo..hi.
func (s *Scorer) update(lo, hi int) {
	prefix := varset.Of(s.p, s.order[:lo]...)
	none := varset.New(s.p)
	for i := lo; i <= hi; i++ {
		v := s.order[i]
		shrink := none
		if s.shrink {
			shrink = prefix
		}
		var pa []int
		s.local[v] = s.trees[v].Trace(prefix, shrink, &pa)
		s.parents[v] = pa
		prefix.Add(v)
	}
}

func (s *Scorer) mustVar(v int) {
	if v < 0 || v >= s.p {
		panic(fmt.Sprintf("scorer: unknown variable %d (have %d)", v, s.p))
	}
}

func (s *Scorer) mustIndex(i int) {
	if i < 0 || i >= s.p {
		panic(fmt.Sprintf("scorer: position %d out of range 0..%d", i, s.p-1))
	}
}

func contains(sorted []int, v int) bool {
	_, ok := slices.BinarySearch(sorted, v)
	return ok
}
