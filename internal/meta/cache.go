package meta

import (
	"context"
	"time"
)

// Cache is the store's view of the external metadata cache. Implementations
// must make Set/Get/Remove atomic per key, and a Get after Invalidate(tag)
// returns must miss for every key set under tag.
type Cache interface {
	// Enabled reports whether metadata caching is switched on.
	Enabled() bool
	// Excluded reports whether a raw table name is opted out of caching.
	Excluded(table string) bool

	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tag string) error
	Remove(ctx context.Context, key string) error
	Invalidate(ctx context.Context, tag string) error
}

// NoCache is a Cache that is always disabled.
type NoCache struct{}

func (NoCache) Enabled() bool        { return false }
func (NoCache) Excluded(string) bool { return true }

func (NoCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NoCache) Set(context.Context, string, []byte, time.Duration, string) error { return nil }

func (NoCache) Remove(context.Context, string) error     { return nil }
func (NoCache) Invalidate(context.Context, string) error { return nil }
