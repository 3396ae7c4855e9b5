// Package store keeps the history of search runs.
//
// Every completed search can be saved as a [Run]: the inputs that produced
// it, the resulting CPDAG and the search statistics. Backends:
//
//   - [FileStore]: one JSON file per run, for the CLI
//   - [MemoryStore]: in-process, for tests and the default server
//   - [MongoStore]: a MongoDB collection shared by several servers
//
// Runs are identified by random UUIDs.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/graph"
	"github.com/matzehuels/causeway/pkg/search/boss"
)

// ErrNotFound is wrapped by every lookup of a missing run.
var ErrNotFound = errors.New(errors.ErrCodeRunNotFound, "run not found")

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Settings records the options a run was searched with.
type Settings struct {
	Strategy      string  `json:"strategy" bson:"strategy"`
	Penalty       float64 `json:"penalty" bson:"penalty"`
	NumStarts     int     `json:"num_starts" bson:"num_starts"`
	Seed          uint64  `json:"seed" bson:"seed"`
	Shuffle       bool    `json:"shuffle,omitempty" bson:"shuffle,omitempty"`
	MaxSweeps     int     `json:"max_sweeps,omitempty" bson:"max_sweeps,omitempty"`
	UseBES        bool    `json:"use_bes,omitempty" bson:"use_bes,omitempty"`
	DisableShrink bool    `json:"disable_shrink,omitempty" bson:"disable_shrink,omitempty"`
	Knowledge     bool    `json:"knowledge,omitempty" bson:"knowledge,omitempty"`
}

// Run is one stored search.
type Run struct {
	ID        string    `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	Source    string   `json:"source" bson:"source"`
	DataHash  string   `json:"data_hash" bson:"data_hash"`
	Variables []string `json:"variables" bson:"variables"`
	Rows      int      `json:"rows" bson:"rows"`
	Settings  Settings `json:"settings" bson:"settings"`

	Score       float64        `json:"score" bson:"score"`
	Order       []string       `json:"order" bson:"order"`
	CPDAG       graph.Document `json:"cpdag" bson:"cpdag"`
	Interrupted bool           `json:"interrupted,omitempty" bson:"interrupted,omitempty"`
	CacheHit    bool           `json:"cache_hit,omitempty" bson:"cache_hit,omitempty"`
	Stats       boss.Stats     `json:"stats" bson:"stats"`
}

// NewRun returns a Run with a fresh ID and the current time.
func NewRun() *Run {
	return &Run{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
}

// NumEdges returns the number of CPDAG edges.
func (r *Run) NumEdges() int { return len(r.CPDAG.Edges) }

// ListOptions filters List.
type ListOptions struct {
	// Limit caps the result; 0 means DefaultListLimit.
	Limit int
	// DataHash restricts the result to runs over one dataset.
	DataHash string
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// Store persists runs.
type Store interface {
	// Save inserts or replaces r.
	Save(ctx context.Context, r *Run) error

	// Get returns the run with the given id, or an error wrapping
	// ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns runs newest first.
	List(ctx context.Context, opts ListOptions) ([]*Run, error)

	// Delete removes a run. Deleting a missing run wraps ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

func notFound(id string) error {
	return errors.Wrap(errors.ErrCodeRunNotFound, ErrNotFound, "run %q", id)
}

func validate(r *Run) error {
	if r == nil {
		return errors.New(errors.ErrCodeInvalidInput, "run is nil")
	}
	return errors.ValidateRunID(r.ID)
}
