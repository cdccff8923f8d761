// Package minio implements filestore.Store on MinIO or any S3 compatible
// server. The metadata cache's object backend uses it to keep one JSON
// object per cache key.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
package minio

import (
	"context"
	"io"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/filestore"
)

// Driver is safe for concurrent use.
type Driver struct {
	client *miniogo.Client
	bucket string
}

var _ filestore.Store = (*Driver)(nil)

// New creates a client for cfg, creating cfg.Bucket when it does not exist
// yet, and pings the server.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid object store settings", err)
	}
	d := &Driver{client: client, bucket: cfg.Bucket}

	if d.bucket == "" {
		return d, d.Ping(ctx)
	}
	exists, err := client.BucketExists(ctx, d.bucket)
	if err != nil {
		return nil, mapError(err, "failed to reach object store")
	}
	if !exists {
		if err := client.MakeBucket(ctx, d.bucket, miniogo.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, mapError(err, "failed to create bucket "+d.bucket)
		}
	}
	return d, nil
}

// Ping checks the configured bucket, or the bucket list when none is set.
func (d *Driver) Ping(ctx context.Context) error {
	if d.bucket != "" {
		if _, err := d.client.BucketExists(ctx, d.bucket); err != nil {
			return mapError(err, "ping failed")
		}
		return nil
	}
	if _, err := d.client.ListBuckets(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op; the SDK keeps no connections open between calls.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // stops the listing goroutine when Limit cuts it short

	var out []filestore.ObjectInfo
	for obj := range d.client.ListObjects(ctx, bucket, miniogo.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: opts.Recursive,
	}) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list objects")
		}
		out = append(out, toInfo(obj))
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// GetObject stats key first, so that a missing key fails here with
// errs.ErrKindNotFound rather than on the first Read.
func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	stat, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat object "+key)
	}
	obj, err := d.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get object "+key)
	}
	info := toInfo(stat)
	return &object{ReadCloser: obj, info: &info}, nil
}

func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	if _, err := d.client.PutObject(ctx, bucket, key, r, size, miniogo.PutObjectOptions{ContentType: contentType}); err != nil {
		return mapError(err, "failed to put object "+key)
	}
	return nil
}

// RemoveObject succeeds for a missing key, as S3 does.
func (d *Driver) RemoveObject(ctx context.Context, bucket, key string) error {
	if err := d.client.RemoveObject(ctx, bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return mapError(err, "failed to remove object "+key)
	}
	return nil
}

func toInfo(obj miniogo.ObjectInfo) filestore.ObjectInfo {
	return filestore.ObjectInfo{
		Key:          obj.Key,
		Size:         obj.Size,
		LastModified: obj.LastModified,
		IsDir:        strings.HasSuffix(obj.Key, "/"),
	}
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo { return o.info }
