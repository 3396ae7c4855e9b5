package score

import (
	"github.com/matzehuels/causeway/pkg/errors"
)

// Additive is a synthetic decomposable score: the local score of a node is
// the sum of the weights of its incoming edges minus a fixed per-edge
// penalty. With all weights zero it reduces to "minus the number of edges".
//
// Weights are indexed [parent][child].
type Additive struct {
	names   []string
	weights [][]float64
	penalty float64
	n       int
}

// NewAdditive builds an Additive score over names. A nil weights matrix is
// treated as all zeros.
func NewAdditive(names []string, weights [][]float64, penalty float64) (*Additive, error) {
	if err := errors.ValidateVariableNames(names); err != nil {
		return nil, err
	}
	p := len(names)
	if weights == nil {
		weights = make([][]float64, p)
		for i := range weights {
			weights[i] = make([]float64, p)
		}
	}
	if len(weights) != p {
		return nil, errors.New(errors.ErrCodeInvalidInput, "weights have %d rows, want %d", len(weights), p)
	}
	for i, row := range weights {
		if len(row) != p {
			return nil, errors.New(errors.ErrCodeInvalidInput, "weights row %d has %d entries, want %d", i, len(row), p)
		}
	}
	return &Additive{
		names:   append([]string(nil), names...),
		weights: weights,
		penalty: penalty,
		n:       1000,
	}, nil
}

// Weight returns the weight of the edge parent→child.
func (a *Additive) Weight(parent, child int) float64 { return a.weights[parent][child] }

// Variables implements Score.
func (a *Additive) Variables() []string { return a.names }

// SampleSize implements Score.
func (a *Additive) SampleSize() int { return a.n }

// LocalScore implements Score.
func (a *Additive) LocalScore(node int, parents []int) float64 {
	s := -a.penalty * float64(len(parents))
	for _, p := range parents {
		s += a.weights[p][node]
	}
	return s
}

// LocalScoreDiff implements Score.
func (a *Additive) LocalScoreDiff(x, y int, z []int) float64 {
	return Diff(a, x, y, z)
}
