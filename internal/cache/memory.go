package cache

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Memory is an in-process Backend. Expired items are dropped when read or
// by Purge.
type Memory struct {
	data *xsync.MapOf[string, memoryItem]
	now  func() time.Time
}

type memoryItem struct {
	value      []byte
	expiration time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{
		data: xsync.NewMapOf[string, memoryItem](),
		now:  time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	item, ok := m.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	if item.expired(m.now()) {
		m.data.Compute(key, func(cur memoryItem, loaded bool) (memoryItem, bool) {
			// Only drop the item we saw; a concurrent Set may have replaced it.
			return cur, loaded && cur.expired(m.now())
		})
		return nil, false, nil
	}
	return append([]byte(nil), item.value...), true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiration = m.now().Add(ttl)
	}
	m.data.Store(key, item)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data.Delete(key)
	return nil
}

// Purge drops every expired item.
func (m *Memory) Purge() {
	now := m.now()
	m.data.Range(func(key string, item memoryItem) bool {
		if item.expired(now) {
			m.data.Delete(key)
		}
		return true
	})
}

// Len returns the number of stored items, expired ones included.
func (m *Memory) Len() int {
	return m.data.Size()
}
