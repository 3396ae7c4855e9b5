package score

import (
	"math"

	"github.com/matzehuels/causeway/pkg/dataset"
	"github.com/matzehuels/causeway/pkg/errors"
)

// DefaultPenaltyDiscount is the BIC penalty multiplier used when none is set.
const DefaultPenaltyDiscount = 2.0

// singularTol is the smallest pivot accepted by the Cholesky factorisation.
const singularTol = 1e-10

// SemBIC is the linear-Gaussian BIC score
//
//	-n·ln σ²(Y | P) - c·|P|·ln n
//
// where σ² is the residual variance of regressing Y on P, computed from the
// sample covariance. Collinear parent sets produce NaN.
type SemBIC struct {
	names   []string
	cov     [][]float64
	n       int
	penalty float64
}

// NewSemBIC builds a SemBIC over a dataset. A non-positive penalty selects
// DefaultPenaltyDiscount.
func NewSemBIC(ds *dataset.DataSet, penalty float64) *SemBIC {
	if penalty <= 0 {
		penalty = DefaultPenaltyDiscount
	}
	return &SemBIC{
		names:   ds.Names(),
		cov:     ds.Covariance(),
		n:       ds.NumRows(),
		penalty: penalty,
	}
}

// NewSemBICFromCovariance builds a SemBIC from a precomputed covariance
// matrix and sample size.
func NewSemBICFromCovariance(names []string, cov [][]float64, n int, penalty float64) (*SemBIC, error) {
	if len(cov) != len(names) {
		return nil, errors.New(errors.ErrCodeInvalidData, "covariance is %dx?, want %d variables", len(cov), len(names))
	}
	for i, row := range cov {
		if len(row) != len(names) {
			return nil, errors.New(errors.ErrCodeInvalidData, "covariance row %d has %d entries, want %d", i, len(row), len(names))
		}
	}
	if n < 2 {
		return nil, errors.New(errors.ErrCodeInvalidData, "sample size must be at least 2, got %d", n)
	}
	if penalty <= 0 {
		penalty = DefaultPenaltyDiscount
	}
	return &SemBIC{names: append([]string(nil), names...), cov: cov, n: n, penalty: penalty}, nil
}

// Variables implements Score.
func (s *SemBIC) Variables() []string { return s.names }

// SampleSize implements Score.
func (s *SemBIC) SampleSize() int { return s.n }

// PenaltyDiscount returns the penalty multiplier c.
func (s *SemBIC) PenaltyDiscount() float64 { return s.penalty }

// LocalScore implements Score.
func (s *SemBIC) LocalScore(node int, parents []int) float64 {
	v := s.residualVariance(node, parents)
	if math.IsNaN(v) || v <= 0 {
		return math.NaN()
	}
	n := float64(s.n)
	return -n*math.Log(v) - s.penalty*float64(len(parents))*math.Log(n)
}

// LocalScoreDiff implements Score.
func (s *SemBIC) LocalScoreDiff(x, y int, z []int) float64 {
	return Diff(s, x, y, z)
}

// residualVariance returns Σyy - Σyp Σpp⁻¹ Σpy via a Cholesky solve.
func (s *SemBIC) residualVariance(y int, parents []int) float64 {
	k := len(parents)
	if k == 0 {
		return s.cov[y][y]
	}

	a := make([][]float64, k)
	b := make([]float64, k)
	for i, pi := range parents {
		a[i] = make([]float64, k)
		for j, pj := range parents {
			a[i][j] = s.cov[pi][pj]
		}
		b[i] = s.cov[pi][y]
	}

	l, ok := cholesky(a)
	if !ok {
		return math.NaN()
	}
	// Solve L w = b; then Σyp Σpp⁻¹ Σpy = |w|².
	w := make([]float64, k)
	for i := 0; i < k; i++ {
		sum := b[i]
		for j := 0; j < i; j++ {
			sum -= l[i][j] * w[j]
		}
		w[i] = sum / l[i][i]
	}
	var explained float64
	for _, x := range w {
		explained += x * x
	}
	return s.cov[y][y] - explained
}

func cholesky(a [][]float64) ([][]float64, bool) {
	k := len(a)
	l := make([][]float64, k)
	for i := range l {
		l[i] = make([]float64, k)
	}
	for i := 0; i < k; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i][j]
			for m := 0; m < j; m++ {
				sum -= l[i][m] * l[j][m]
			}
			if i == j {
				if sum <= singularTol {
					return nil, false
				}
				l[i][i] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}
	return l, true
}
