package gst

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/causeway/pkg/score"
	"github.com/matzehuels/causeway/pkg/search/varset"
)

func additive(t *testing.T, p int, weights [][]float64, penalty float64) *score.Additive {
	t.Helper()
	names := make([]string, p)
	for i := range names {
		names[i] = string(rune('A' + i))
	}
	s, err := score.NewAdditive(names, weights, penalty)
	require.NoError(t, err)
	return s
}

func TestTraceSelectsImprovingParents(t *testing.T) {
	// Target D (3): A and C help, B does not.
	w := [][]float64{
		{0, 0, 0, 2},
		{0, 0, 0, 0.5},
		{0, 0, 0, 1},
		{0, 0, 0, 0},
	}
	tree := New(additive(t, 4, w, 0.75), 3)

	var parents []int
	got := tree.Trace(varset.Of(4, 0, 1, 2), varset.New(4), &parents)

	require.Equal(t, []int{0, 2}, parents)
	require.InDelta(t, 2+1-1.5, got, 1e-12)
}

func TestTraceRespectsPool(t *testing.T) {
	w := [][]float64{
		{0, 0, 3},
		{0, 0, 1},
		{0, 0, 0},
	}
	tree := New(additive(t, 3, w, 0.1), 2)

	var parents []int
	tree.Trace(varset.Of(3, 1), varset.New(3), &parents)
	require.Equal(t, []int{1}, parents, "A is outside the pool")

	tree.Trace(varset.New(3), varset.New(3), &parents)
	require.Empty(t, parents)
}

func TestTraceExcluded(t *testing.T) {
	w := [][]float64{
		{0, 5},
		{0, 0},
	}
	tree := New(additive(t, 2, w, 0), 1, WithExcluded(varset.Of(2, 0)))

	var parents []int
	tree.Trace(varset.Of(2, 0), varset.New(2), &parents)
	require.Empty(t, parents)
}

func TestTraceMemoises(t *testing.T) {
	s := &countingScore{Score: additive(t, 5, randomWeights(5, 1), 0.2)}
	tree := New(s, 4)
	pool := varset.Of(5, 0, 1, 2, 3)

	var first, second []int
	a := tree.Trace(pool, pool, &first)
	calls := s.calls
	b := tree.Trace(pool, pool, &second)

	require.Equal(t, a, b)
	require.Equal(t, first, second)
	require.Equal(t, calls, s.calls, "repeat trace should be served from the memo")
	require.Greater(t, tree.Len(), 1)
}

// Growing the pool never yields a worse result for a decomposable score.
func TestTraceMonotoneInPool(t *testing.T) {
	const p = 8
	rng := rand.New(rand.NewPCG(7, 0))
	for trial := 0; trial < 50; trial++ {
		tree := New(additive(t, p, randomWeights(p, uint64(trial)), 0.3), p-1)

		pool := varset.New(p)
		prev := tree.EmptyScore()
		for _, v := range rng.Perm(p - 1) {
			pool.Add(v)
			var parents []int
			got := tree.Trace(pool, pool, &parents)
			require.GreaterOrEqual(t, got, prev, "trial %d: adding %d lowered the score", trial, v)
			for _, pa := range parents {
				require.True(t, pool.Has(pa), "parent %d outside the pool", pa)
			}
			require.True(t, slices.IsSorted(parents))
			prev = got
		}
	}
}

type valueScore struct {
	score.Score
	f func(node int, parents []int) float64
}

func (v valueScore) LocalScore(node int, parents []int) float64 { return v.f(node, parents) }

func TestTraceNaNRoot(t *testing.T) {
	base := additive(t, 3, nil, 0)
	s := valueScore{Score: base, f: func(int, []int) float64 { return math.NaN() }}
	tree := New(s, 2)

	var parents []int
	got := tree.Trace(varset.Of(3, 0, 1), varset.Of(3, 0, 1), &parents)
	require.True(t, math.IsNaN(got))
	require.Empty(t, parents)
}

func TestTraceSkipsNaNCandidates(t *testing.T) {
	base := additive(t, 3, nil, 0)
	s := valueScore{Score: base, f: func(_ int, parents []int) float64 {
		if slices.Contains(parents, 0) {
			return math.NaN()
		}
		return float64(len(parents))
	}}
	tree := New(s, 2)

	var parents []int
	got := tree.Trace(varset.Of(3, 0, 1), varset.New(3), &parents)
	require.Equal(t, []int{1}, parents)
	require.Equal(t, 1.0, got)
}

func TestShrinkDropsRedundantParent(t *testing.T) {
	// Non-additive score where A looks best alone but B and C together make
	// A useless: greedy growth picks A first, then B and C.
	base := additive(t, 4, nil, 0)
	s := valueScore{Score: base, f: func(_ int, parents []int) float64 {
		has := func(v int) bool { return slices.Contains(parents, v) }
		one := has(1) || has(2)
		v := 0.0
		switch {
		case has(1) && has(2):
			v = 10
		case has(0) && one:
			v = 3.5
		case has(0):
			v = 3
		case one:
			v = 2
		}
		return v - 0.1*float64(len(parents))
	}}

	tree := New(s, 3)
	pool := varset.Of(4, 0, 1, 2)

	var grown []int
	tree.Trace(pool, varset.New(4), &grown)
	require.Equal(t, []int{0, 1, 2}, grown)

	var shrunk []int
	got := tree.Trace(pool, pool, &shrunk)
	require.Equal(t, []int{1, 2}, shrunk)
	require.InDelta(t, 9.8, got, 1e-12)
}

func TestShrinkDropsNeutralParent(t *testing.T) {
	// Growth takes A, then B, then C. Without A the score is unchanged, so
	// elimination drops it; dropping B or C afterwards would lose score.
	scores := map[string]float64{
		"":      0,
		"0":     2,
		"1":     1,
		"2":     0.5,
		"0,1":   3,
		"0,2":   2.5,
		"1,2":   4,
		"0,1,2": 4,
	}
	base := additive(t, 4, nil, 0)
	s := valueScore{Score: base, f: func(_ int, parents []int) float64 {
		key := ""
		for i, v := range parents {
			if i > 0 {
				key += ","
			}
			key += string(rune('0' + v))
		}
		return scores[key]
	}}

	tree := New(s, 3)
	pool := varset.Of(4, 0, 1, 2)

	var grown []int
	tree.Trace(pool, varset.New(4), &grown)
	require.Equal(t, []int{0, 1, 2}, grown)

	var shrunk []int
	got := tree.Trace(pool, pool, &shrunk)
	require.Equal(t, []int{1, 2}, shrunk)
	require.Equal(t, 4.0, got)
}

func TestTiesBreakByIndex(t *testing.T) {
	w := [][]float64{
		{0, 0, 1},
		{0, 0, 1},
		{0, 0, 0},
	}
	base := additive(t, 3, w, 0)
	// Only one parent may be kept: the second addition is never an improvement.
	s := valueScore{Score: base, f: func(node int, parents []int) float64 {
		if len(parents) > 1 {
			return 0
		}
		return base.LocalScore(node, parents)
	}}
	tree := New(s, 2)

	var parents []int
	tree.Trace(varset.Of(3, 0, 1), varset.New(3), &parents)
	require.Equal(t, []int{0}, parents)
}

type countingScore struct {
	score.Score
	calls int
}

func (c *countingScore) LocalScore(node int, parents []int) float64 {
	c.calls++
	return c.Score.LocalScore(node, parents)
}

func randomWeights(p int, seed uint64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, 1))
	w := make([][]float64, p)
	for i := range w {
		w[i] = make([]float64, p)
		for j := range w[i] {
			if i != j {
				w[i][j] = rng.Float64()
			}
		}
	}
	return w
}
