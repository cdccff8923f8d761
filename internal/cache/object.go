package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/filestore"
)

// Object is a Backend storing one object per key in a bucket. Object stores
// have no native expiry, so each object carries its own deadline and Purge
// sweeps expired ones.
type Object struct {
	store  filestore.Store
	bucket string
	prefix string
	now    func() time.Time
}

type objectRecord struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Value     []byte     `json:"value"`
}

// NewObject returns an Object backend writing under prefix in bucket.
func NewObject(store filestore.Store, bucket, prefix string) *Object {
	return &Object{store: store, bucket: bucket, prefix: prefix, now: time.Now}
}

func (o *Object) objectKey(key string) string {
	return o.prefix + key
}

func (o *Object) Get(ctx context.Context, key string) ([]byte, bool, error) {
	rec, ok, err := o.read(ctx, o.objectKey(key))
	if err != nil || !ok {
		return nil, false, err
	}
	if rec.ExpiresAt != nil && o.now().After(*rec.ExpiresAt) {
		return nil, false, nil
	}
	return rec.Value, true, nil
}

func (o *Object) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	rec := objectRecord{Value: value}
	if ttl > 0 {
		at := o.now().Add(ttl)
		rec.ExpiresAt = &at
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to encode cache object", err)
	}
	return o.store.PutObject(ctx, o.bucket, o.objectKey(key), bytes.NewReader(data), int64(len(data)), "application/json")
}

func (o *Object) Delete(ctx context.Context, key string) error {
	return o.store.RemoveObject(ctx, o.bucket, o.objectKey(key))
}

// Purge removes every expired object under the prefix and returns how many
// were removed.
func (o *Object) Purge(ctx context.Context) (int, error) {
	objects, err := o.store.ListObjects(ctx, o.bucket, filestore.ListOptions{Prefix: o.prefix, Recursive: true})
	if err != nil {
		return 0, err
	}
	now := o.now()
	removed := 0
	for _, info := range objects {
		if info.IsDir {
			continue
		}
		rec, ok, err := o.read(ctx, info.Key)
		if err != nil {
			return removed, err
		}
		if !ok || rec.ExpiresAt == nil || !now.After(*rec.ExpiresAt) {
			continue
		}
		if err := o.store.RemoveObject(ctx, o.bucket, info.Key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// read returns (nil, false, nil) for missing or undecodable objects.
func (o *Object) read(ctx context.Context, objectKey string) (*objectRecord, bool, error) {
	obj, err := o.store.GetObject(ctx, o.bucket, objectKey)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, false, errs.Wrap(errs.ErrKindConnectionFailed, "failed to read cache object", err)
	}
	var rec objectRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, nil
	}
	return &rec, true, nil
}
