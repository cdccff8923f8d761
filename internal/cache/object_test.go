package cache

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/filestore"
)

// memStore is an in-memory filestore.Store.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Ping(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }

func (s *memStore) ListObjects(_ context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []filestore.ObjectInfo
	for k, v := range s.objects {
		name := strings.TrimPrefix(k, bucket+"/")
		if strings.HasPrefix(name, opts.Prefix) {
			out = append(out, filestore.ObjectInfo{Key: name, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type memObject struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o memObject) Info() *filestore.ObjectInfo { return o.info }

func (s *memStore) GetObject(_ context.Context, bucket, key string) (filestore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key")
	}
	return memObject{
		ReadCloser: io.NopCloser(bytes.NewReader(v)),
		info:       &filestore.ObjectInfo{Key: key, Size: int64(len(v))},
	}, nil
}

func (s *memStore) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = data
	return nil
}

func (s *memStore) RemoveObject(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+key)
	return nil
}

func TestObject_SetAndGet(t *testing.T) {
	store := newMemStore()
	o := NewObject(store, "dbmeta", "cache/")
	ctx := context.Background()

	require.NoError(t, o.Set(ctx, "dbmeta:table:ab", []byte("v"), time.Minute))
	assert.Contains(t, store.objects, "dbmeta/cache/dbmeta:table:ab")

	got, ok, err := o.Get(ctx, "dbmeta:table:ab")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	_, ok, err = o.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestObject_ExpirationAndPurge(t *testing.T) {
	store := newMemStore()
	o := NewObject(store, "dbmeta", "cache/")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, o.Set(ctx, "short", []byte("v"), time.Second))
	require.NoError(t, o.Set(ctx, "long", []byte("v"), time.Hour))
	require.NoError(t, o.Set(ctx, "forever", []byte("v"), 0))
	now = now.Add(time.Minute)

	_, ok, err := o.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := o.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Len(t, store.objects, 2)
}

func TestObject_Delete(t *testing.T) {
	store := newMemStore()
	o := NewObject(store, "dbmeta", "")
	ctx := context.Background()

	require.NoError(t, o.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, o.Delete(ctx, "k"))
	assert.Empty(t, store.objects)
}

func TestObject_WithAdapter(t *testing.T) {
	a := New(NewObject(newMemStore(), "dbmeta", "cache/"), Config{Enabled: true})
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", []byte("v"), time.Hour, "conn"))
	require.NoError(t, a.Invalidate(ctx, "conn"))

	_, ok, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
