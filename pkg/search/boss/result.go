package boss

import (
	"time"

	"github.com/matzehuels/causeway/pkg/graph"
)

// Result is the outcome of a search.
type Result struct {
	// CPDAG is the equivalence class of the best DAG found.
	CPDAG *graph.Graph
	// DAG is the best DAG found, as implied by Order.
	DAG *graph.Graph
	// Order is the best permutation, as variable indices.
	Order []int
	// OrderNames is Order translated to variable names.
	OrderNames []string
	// Score is the total score of Order.
	Score float64
	// Interrupted is set when the context ended before convergence; the
	// result is then the best state reached.
	Interrupted bool
	// Stats describes the work done.
	Stats Stats
}

// Stats aggregates counters across every restart.
type Stats struct {
	Restarts     int           `json:"restarts"`
	BestStart    int           `json:"best_start"`
	Sweeps       int           `json:"sweeps"`
	MovesTried   int           `json:"moves_tried"`
	Accepted     int           `json:"accepted"`
	BESDeletions int           `json:"bes_deletions"`
	MemoNodes    int           `json:"memo_nodes"`
	Duration     time.Duration `json:"duration"`
}

func (s *Stats) add(o Stats) {
	s.Sweeps += o.Sweeps
	s.MovesTried += o.MovesTried
	s.Accepted += o.Accepted
	s.BESDeletions += o.BESDeletions
	s.MemoNodes += o.MemoNodes
}
