// Package cache provides result caching for causeway searches.
//
// A search over the same data with the same options always produces the
// same CPDAG, so the pipeline caches serialized results keyed by the data
// hash and every option that affects the outcome. Rendered SVGs are cached
// the same way, keyed by the graph hash.
//
// # Backends
//
//   - [NullCache]: caching disabled
//   - [FileCache]: JSON entries under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP server
//
// # Keys
//
// Keys come from a [Keyer]. [DefaultKeyer] hashes the options into a fixed
// length key; [NewScopedKeyer] prefixes keys to separate namespaces sharing
// one backend.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values by key.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default entry lifetimes.
const (
	TTLSearch = 7 * 24 * time.Hour
	TTLRender = 30 * 24 * time.Hour
)

// Keyer derives cache keys.
type Keyer interface {
	// SearchKey identifies a search result over data with the given hash.
	SearchKey(dataHash string, opts SearchKeyOpts) string

	// RenderKey identifies a rendered artifact of a graph with the given
	// hash.
	RenderKey(graphHash string, opts RenderKeyOpts) string
}

// SearchKeyOpts lists every option that changes a search result.
type SearchKeyOpts struct {
	Strategy      string  `json:"strategy"`
	Penalty       float64 `json:"penalty"`
	NumStarts     int     `json:"num_starts"`
	Shuffle       bool    `json:"shuffle"`
	Seed          uint64  `json:"seed"`
	MaxSweeps     int     `json:"max_sweeps"`
	UseBES        bool    `json:"use_bes"`
	DisableShrink bool    `json:"disable_shrink"`
	KnowledgeHash string  `json:"knowledge_hash,omitempty"`
	InitialOrder  []int   `json:"initial_order,omitempty"`
}

// RenderKeyOpts lists every option that changes a rendered artifact.
type RenderKeyOpts struct {
	Format  string `json:"format"`
	Title   string `json:"title,omitempty"`
	RankDir string `json:"rank_dir,omitempty"`
	DAG     bool   `json:"dag,omitempty"`
}

// DefaultKeyer hashes key options with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SearchKey implements Keyer.
func (DefaultKeyer) SearchKey(dataHash string, opts SearchKeyOpts) string {
	return hashKey("search", dataHash, opts)
}

// RenderKey implements Keyer.
func (DefaultKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return hashKey("render", graphHash, opts)
}

// ScopedKeyer prefixes every key of an inner Keyer, so that several
// deployments or users can share one backend without collisions.
//
//	k := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "team-a:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or a DefaultKeyer if inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SearchKey implements Keyer.
func (k *ScopedKeyer) SearchKey(dataHash string, opts SearchKeyOpts) string {
	return k.prefix + k.inner.SearchKey(dataHash, opts)
}

// RenderKey implements Keyer.
func (k *ScopedKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(graphHash, opts)
}
