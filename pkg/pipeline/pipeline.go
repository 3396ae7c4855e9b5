// Package pipeline runs the complete causeway workflow shared by the CLI
// and the HTTP server.
//
// # Architecture
//
// A run has four stages:
//
//  1. Load: read the dataset (CSV/TSV) and optional knowledge file
//  2. Score: build a SEM-BIC score over the data, wrapped in an LRU cache
//  3. Search: run the permutation search and derive the CPDAG
//  4. Record: cache the result and append the run to the history store
//
// A search result depends only on the data and the options, so a cached
// result for the same data hash and options short-circuits stages 2 and 3.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, runs, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    DataPath:  "data.csv",
//	    NumStarts: 4,
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.CPDAG)
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causeway/pkg/cache"
	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/graph"
	"github.com/matzehuels/causeway/pkg/knowledge"
	"github.com/matzehuels/causeway/pkg/observability"
	"github.com/matzehuels/causeway/pkg/score"
	"github.com/matzehuels/causeway/pkg/search/boss"
	"github.com/matzehuels/causeway/pkg/store"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultSeed is the default seed for shuffled restarts.
	DefaultSeed = uint64(42)

	// DefaultNumStarts is the default number of restarts.
	DefaultNumStarts = 1

	// DefaultPenalty is the default SEM-BIC penalty discount.
	DefaultPenalty = score.DefaultPenaltyDiscount

	// DefaultStrategy is the default move operator.
	DefaultStrategy = string(boss.StrategyTuck)

	// DefaultCacheSize is the default number of memoised local scores.
	DefaultCacheSize = score.DefaultCacheSize

	// MaxNumStarts bounds restarts requested through the API.
	MaxNumStarts = 256
)

// Format constants for rendered outputs.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures one run. It supports JSON for API requests.
type Options struct {
	// Input: exactly one of DataPath and Data.
	DataPath  string `json:"data_path,omitempty"`
	Data      string `json:"data,omitempty"`
	Delimiter string `json:"delimiter,omitempty"`

	// Knowledge: a TOML file, inline knowledge, or neither.
	KnowledgePath string          `json:"knowledge_path,omitempty"`
	Knowledge     *knowledge.File `json:"knowledge,omitempty"`

	// Score options
	Penalty   float64 `json:"penalty,omitempty"`
	CacheSize int     `json:"cache_size,omitempty"`

	// Search options
	Strategy      string   `json:"strategy,omitempty"`
	NumStarts     int      `json:"num_starts,omitempty"`
	Seed          uint64   `json:"seed,omitempty"`
	Shuffle       bool     `json:"shuffle,omitempty"`
	MaxSweeps     int      `json:"max_sweeps,omitempty"`
	UseBES        bool     `json:"use_bes,omitempty"`
	DisableShrink bool     `json:"disable_shrink,omitempty"`
	Parallelism   int      `json:"parallelism,omitempty"`
	InitialOrder  []string `json:"initial_order,omitempty"`
	TimeoutSec    int      `json:"timeout_seconds,omitempty"`

	// Refresh bypasses the result cache lookup.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger      *log.Logger               `json:"-"`
	SearchHooks observability.SearchHooks `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result is the outcome of a run.
type Result struct {
	// RunID is the stored run's ID, empty without a store.
	RunID string

	// DataHash is the content hash of the dataset.
	DataHash string

	// Variables lists the dataset columns.
	Variables []string

	CPDAG       *graph.Graph
	DAG         *graph.Graph
	Order       []string
	Score       float64
	Interrupted bool

	// Search holds the engine counters of the run that produced the result.
	Search boss.Stats

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Variables  int
	Rows       int
	Edges      int
	LoadTime   time.Duration
	SearchTime time.Duration
}

// CacheInfo tracks cache use.
type CacheInfo struct {
	// SearchHit is set when the result came from the result cache.
	SearchHit bool
	// Scores reports the local-score memo of a fresh search.
	Scores score.CacheStats
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid format: %q (must be one of: svg, dot, json)", format)
	}
	return nil
}

// ValidateStrategy checks that a strategy name is valid.
func ValidateStrategy(name string) error {
	if !slices.Contains(boss.Strategies, boss.Strategy(name)) {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid strategy: %q (must be one of: tuck, best-move)", name)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.DataPath == "" && o.Data == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "data_path or data is required")
	}
	if o.DataPath != "" && o.Data != "" {
		return errors.New(errors.ErrCodeInvalidConfig, "data_path and data are mutually exclusive")
	}
	if o.DataPath != "" {
		if err := errors.ValidatePath(o.DataPath); err != nil {
			return err
		}
	}
	if o.KnowledgePath != "" && o.Knowledge != nil {
		return errors.New(errors.ErrCodeInvalidConfig, "knowledge_path and knowledge are mutually exclusive")
	}
	o.SetSearchDefaults()

	if err := ValidateStrategy(o.Strategy); err != nil {
		return err
	}
	if o.Penalty <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "penalty must be positive, got %g", o.Penalty)
	}
	if o.NumStarts > MaxNumStarts {
		return errors.New(errors.ErrCodeInvalidConfig, "num_starts must be at most %d, got %d", MaxNumStarts, o.NumStarts)
	}
	if o.MaxSweeps < 0 || o.TimeoutSec < 0 || o.Parallelism < 0 || o.CacheSize < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_sweeps, timeout_seconds, parallelism and cache_size must be non-negative")
	}
	o.validated = true
	return nil
}

// SetSearchDefaults fills search defaults without validating.
func (o *Options) SetSearchDefaults() {
	if o.Strategy == "" {
		o.Strategy = DefaultStrategy
	}
	if o.Penalty == 0 {
		o.Penalty = DefaultPenalty
	}
	if o.NumStarts <= 0 {
		o.NumStarts = DefaultNumStarts
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.CacheSize == 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.SearchHooks == nil {
		o.SearchHooks = observability.NoopSearchHooks{}
	}
}

// Timeout returns the search deadline, zero meaning none.
func (o *Options) Timeout() time.Duration {
	return time.Duration(o.TimeoutSec) * time.Second
}

// Source describes where the data came from, for logs and run records.
func (o *Options) Source() string {
	if o.DataPath != "" {
		return o.DataPath
	}
	return "inline"
}

// SearchKeyOpts returns cache key options for the search result.
func (o *Options) SearchKeyOpts(knowledgeHash string, initial []int) cache.SearchKeyOpts {
	return cache.SearchKeyOpts{
		Strategy:      o.Strategy,
		Penalty:       o.Penalty,
		NumStarts:     o.NumStarts,
		Shuffle:       o.Shuffle,
		Seed:          o.Seed,
		MaxSweeps:     o.MaxSweeps,
		UseBES:        o.UseBES,
		DisableShrink: o.DisableShrink,
		KnowledgeHash: knowledgeHash,
		InitialOrder:  initial,
	}
}

// Settings returns the run-record form of the search options.
func (o *Options) Settings(hasKnowledge bool) store.Settings {
	return store.Settings{
		Strategy:      o.Strategy,
		Penalty:       o.Penalty,
		NumStarts:     o.NumStarts,
		Seed:          o.Seed,
		Shuffle:       o.Shuffle,
		MaxSweeps:     o.MaxSweeps,
		UseBES:        o.UseBES,
		DisableShrink: o.DisableShrink,
		Knowledge:     hasKnowledge,
	}
}
