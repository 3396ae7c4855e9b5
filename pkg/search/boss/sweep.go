package boss

import (
	"context"

	"github.com/matzehuels/causeway/pkg/search/scorer"
)

// tuckSweep visits every variable of a snapshot of the current order and
// tries tucking it into earlier positions, nearest first. The first tuck
// that strictly improves the bookmarked best and keeps the order consistent
// with knowledge is kept and the sweep moves on to the next variable; any
// other applicable tuck is rolled back.
//
// On cancellation the scorer is left at the bookmark and interrupted is
// true.
func (e *Engine) tuckSweep(ctx context.Context, sc *scorer.Scorer, best *float64, st *Stats) (improved, interrupted bool) {
	for _, x := range sc.Order() {
		for j := sc.Index(x) - 1; j >= 0; j-- {
			if ctx.Err() != nil {
				sc.GoToBookmark(0)
				return improved, true
			}
			if !sc.Tuck(x, j) {
				continue
			}
			st.MovesTried++
			if total := sc.Total(); better(total, *best) && !sc.Violates() {
				*best = total
				sc.Bookmark(0)
				st.Accepted++
				improved = true
				break
			}
			sc.GoToBookmark(0)
		}
	}
	return improved, false
}

// bestMoveSweep relocates each variable of a snapshot of the current order
// to the position, tried from p-1 down to 0, giving the highest total that
// strictly improves the bookmarked best and satisfies knowledge. Equal
// totals keep the higher position because it is tried first.
func (e *Engine) bestMoveSweep(ctx context.Context, sc *scorer.Scorer, best *float64, st *Stats) (improved, interrupted bool) {
	p := sc.Size()
	for _, x := range sc.Order() {
		bestPos, bestTotal := -1, *best
		for i := p - 1; i >= 0; i-- {
			if ctx.Err() != nil {
				sc.GoToBookmark(0)
				return improved, true
			}
			if i == sc.Index(x) {
				continue
			}
			sc.MoveTo(x, i)
			st.MovesTried++
			if total := sc.Total(); better(total, bestTotal) && !sc.Violates() {
				bestPos, bestTotal = i, total
			}
			sc.GoToBookmark(0)
		}
		if bestPos < 0 {
			continue
		}
		sc.MoveTo(x, bestPos)
		*best = sc.Total()
		sc.Bookmark(0)
		st.Accepted++
		improved = true
	}
	return improved, false
}
