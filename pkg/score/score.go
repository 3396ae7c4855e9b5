// Package score defines the local-score capability consumed by structure
// search, together with the concrete scores shipped with causeway.
//
// A Score evaluates how well a parent set explains one variable. Search
// code treats higher as better and NaN as "no information": a NaN score is
// never preferred over a finite one. Implementations must be deterministic
// for a fixed dataset and safe for concurrent use, because random restarts
// share one Score across goroutines.
//
// # Implementations
//
//   - [SemBIC]: linear-Gaussian BIC computed from a covariance matrix
//   - [Additive]: synthetic per-edge weights, used for tests and examples
//   - [Cached]: an LRU memo that wraps any other Score
package score

import "slices"

// Score is the capability structure search needs from a scoring function.
type Score interface {
	// LocalScore returns the score of node given the parent set. Parents
	// are variable indices; order does not matter and the slice must not be
	// retained or modified.
	LocalScore(node int, parents []int) float64

	// LocalScoreDiff returns LocalScore(y, z ∪ {x}) - LocalScore(y, z).
	LocalScoreDiff(x, y int, z []int) float64

	// Variables returns the variable names, indexed by variable id.
	Variables() []string

	// SampleSize returns the number of observations behind the score.
	SampleSize() int
}

// Diff computes LocalScoreDiff from LocalScore. Implementations without a
// cheaper closed form delegate to it.
func Diff(s Score, x, y int, z []int) float64 {
	with := make([]int, 0, len(z)+1)
	with = append(with, z...)
	if !slices.Contains(z, x) {
		with = append(with, x)
	}
	return s.LocalScore(y, with) - s.LocalScore(y, z)
}

// Total sums the local scores of a parent map indexed by variable.
func Total(s Score, parents [][]int) float64 {
	var t float64
	for v, pa := range parents {
		t += s.LocalScore(v, pa)
	}
	return t
}
