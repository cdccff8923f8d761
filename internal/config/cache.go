package config

import (
	"context"

	"github.com/koustreak/dbmeta/internal/cache"
	"github.com/koustreak/dbmeta/internal/filestore/minio"
)

// NewCache connects the configured backend and wraps it in a cache.Adapter.
// The returned func releases the backend; it is never nil.
func NewCache(ctx context.Context, c *CacheConfig) (*cache.Adapter, func() error, error) {
	noop := func() error { return nil }
	adapterCfg := cache.Config{Enabled: c.Enabled, Exclude: c.Exclude}
	if !c.Enabled {
		return cache.New(nil, adapterCfg), noop, nil
	}

	switch c.Backend {
	case BackendRedis:
		r, err := cache.NewRedis(ctx, c.Redis)
		if err != nil {
			return nil, nil, err
		}
		return cache.New(r, adapterCfg), r.Close, nil
	case BackendObject:
		store, err := minio.New(ctx, &c.Object)
		if err != nil {
			return nil, nil, err
		}
		return cache.New(cache.NewObject(store, c.Object.Bucket, c.Object.Prefix), adapterCfg), store.Close, nil
	default:
		return cache.New(cache.NewMemory(), adapterCfg), noop, nil
	}
}
