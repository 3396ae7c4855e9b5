package score

import (
	"encoding/binary"
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/causeway/pkg/errors"
)

// DefaultCacheSize is the number of local scores kept by Cached when the
// caller passes a non-positive size.
const DefaultCacheSize = 100_000

// Cached memoises LocalScore of an underlying Score in a bounded LRU.
// It is safe for concurrent use; restarts running in parallel share hits.
type Cached struct {
	Score
	lru    *lru.Cache[string, float64]
	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats reports memo effectiveness.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// NewCached wraps s with an LRU of the given size.
func NewCached(s Score, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, float64](size)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "create score cache")
	}
	return &Cached{Score: s, lru: c}, nil
}

// LocalScore implements Score.
func (c *Cached) LocalScore(node int, parents []int) float64 {
	key := localKey(node, parents)
	if v, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return v
	}
	c.misses.Add(1)
	v := c.Score.LocalScore(node, parents)
	c.lru.Add(key, v)
	return v
}

// LocalScoreDiff implements Score using the memoised LocalScore.
func (c *Cached) LocalScoreDiff(x, y int, z []int) float64 {
	return Diff(c, x, y, z)
}

// Stats returns a snapshot of the hit and miss counters.
func (c *Cached) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.lru.Len(),
	}
}

// localKey encodes node and the sorted parent set as a compact string.
func localKey(node int, parents []int) string {
	sorted := slices.Clone(parents)
	slices.Sort(sorted)
	buf := make([]byte, 0, 4*(len(sorted)+1))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(node))
	for _, p := range sorted {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(p))
	}
	return string(buf)
}
