package cache

import (
	"context"
	"time"
)

// NullCache is the cache behind --no-cache and backend "none". Searches
// and renders always recompute; Set and Delete succeed without effect.
type NullCache struct{}

// NewNullCache returns a Cache that stores nothing.
func NewNullCache() Cache { return &NullCache{} }

// Get reports a miss for every search and render key.
func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
