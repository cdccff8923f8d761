// Package filestore abstracts the object storage the metadata cache can
// persist to when no Redis is available. One cache entry is one object.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	backend := cache.NewObject(store, cfg.Bucket, cfg.Prefix)
package filestore

import (
	"context"
	"io"
)

// Store is implemented by object storage providers. Errors are *errs.Error.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	// ListObjects lists bucket. Non-recursive listings include common
	// prefixes as entries with IsDir set.
	ListObjects(ctx context.Context, bucket string, opts ListOptions) ([]ObjectInfo, error)

	// GetObject opens key for reading. A missing key is errs.ErrKindNotFound.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// PutObject replaces key with size bytes read from r.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error

	// RemoveObject deletes key; a missing key is not an error.
	RemoveObject(ctx context.Context, bucket, key string) error
}
