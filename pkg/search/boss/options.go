package boss

import (
	"io"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/knowledge"
	"github.com/matzehuels/causeway/pkg/observability"
)

// Strategy selects the move operator of a sweep.
type Strategy string

const (
	// StrategyTuck tries tucks into every earlier position, scanning from
	// Index(x)-1 down to 0, and takes the first strict improvement. A sweep
	// in which no tuck applies, as when the order implies no edges at all,
	// is completed with a best-move pass.
	StrategyTuck Strategy = "tuck"

	// StrategyBestMove tries every position from p-1 down to 0 for each
	// variable and keeps the best strict improvement.
	StrategyBestMove Strategy = "best-move"
)

// Strategies lists the supported strategies.
var Strategies = []Strategy{StrategyTuck, StrategyBestMove}

// Options configures an Engine. The zero value is usable.
type Options struct {
	// Strategy is the move operator; defaults to StrategyTuck.
	Strategy Strategy

	// MaxSweeps caps the sweeps of each restart; 0 means until convergence.
	MaxSweeps int

	// NumStarts is the number of restarts; defaults to 1.
	NumStarts int

	// Shuffle makes start 0 begin from a shuffle instead of the supplied order.
	Shuffle bool

	// Seed seeds the per-start shuffles.
	Seed uint64

	// Parallelism bounds concurrently running restarts; defaults to
	// GOMAXPROCS.
	Parallelism int

	// UseBES runs backward equivalence search after each converged sweep
	// phase and resumes sweeping if it improves the score.
	UseBES bool

	// DisableShrink turns off backward elimination in parent search.
	DisableShrink bool

	// Knowledge constrains orders and parent choices; nil means none.
	Knowledge *knowledge.Index

	// Logger receives debug output; defaults to a discard logger.
	Logger *log.Logger

	// Hooks receives progress events; defaults to no-op hooks.
	Hooks observability.SearchHooks
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = StrategyTuck
	}
	if o.NumStarts <= 0 {
		o.NumStarts = 1
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.Hooks == nil {
		o.Hooks = observability.NoopSearchHooks{}
	}
	return o
}

// Validate checks option values that have no sensible default.
func (o Options) Validate() error {
	switch o.Strategy {
	case "", StrategyTuck, StrategyBestMove:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown strategy %q (must be one of: tuck, best-move)", o.Strategy)
	}
	if o.MaxSweeps < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max sweeps must be non-negative, got %d", o.MaxSweeps)
	}
	return nil
}
