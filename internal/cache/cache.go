// Package cache provides the metadata cache used by meta.Store: an Adapter
// implementing meta.Cache on top of a plain key/value Backend.
//
// Backends know nothing about tags. The Adapter implements tag invalidation
// generationally: every tag has a version token stored in the backend, each
// entry records the versions of its tags at write time, and Invalidate
// replaces the token so that older entries stop matching. Stale entries are
// never enumerated; they age out through their TTL or are overwritten.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/meta"
)

const tagVersionPrefix = "dbmeta:tagver:"

// Backend is a key/value store with per-key TTL. Get reports a missing or
// expired key as (nil, false, nil). Implementations are safe for
// concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key. A zero ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Config switches caching on and lists raw table names never cached.
type Config struct {
	Enabled bool     `yaml:"enabled"`
	Exclude []string `yaml:"exclude"`
}

// Adapter implements meta.Cache over a Backend.
type Adapter struct {
	backend Backend
	enabled bool
	exclude map[string]struct{}
}

var _ meta.Cache = (*Adapter)(nil)

// New returns an Adapter. A nil backend yields a disabled adapter.
func New(b Backend, cfg Config) *Adapter {
	a := &Adapter{
		backend: b,
		enabled: cfg.Enabled && b != nil,
		exclude: make(map[string]struct{}, len(cfg.Exclude)),
	}
	for _, name := range cfg.Exclude {
		a.exclude[name] = struct{}{}
	}
	return a
}

// entry is the stored form of a cached value.
type entry struct {
	Tags  map[string]string `json:"tags,omitempty"`
	Value []byte            `json:"value"`
}

func (a *Adapter) Enabled() bool {
	return a.enabled
}

// Excluded matches table against the configured names exactly.
func (a *Adapter) Excluded(table string) bool {
	_, ok := a.exclude[table]
	return ok
}

// Get returns the value under key unless it is missing, expired, or was
// written before one of its tags was invalidated.
func (a *Adapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !a.enabled {
		return nil, false, nil
	}
	data, ok, err := a.backend.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		// Foreign or corrupt data is a miss; the next Set overwrites it.
		return nil, false, nil
	}
	for tag, version := range e.Tags {
		current, ok, err := a.backend.Get(ctx, tagVersionPrefix+tag)
		if err != nil {
			return nil, false, err
		}
		if !ok || string(current) != version {
			return nil, false, nil
		}
	}
	return e.Value, true, nil
}

// Set stores value under key, associated with tag when tag is not empty.
func (a *Adapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tag string) error {
	if !a.enabled {
		return nil
	}
	e := entry{Value: value}
	if tag != "" {
		version, err := a.tagVersion(ctx, tag)
		if err != nil {
			return err
		}
		e.Tags = map[string]string{tag: version}
	}
	data, err := json.Marshal(e)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to encode cache entry", err)
	}
	return a.backend.Set(ctx, key, data, ttl)
}

func (a *Adapter) Remove(ctx context.Context, key string) error {
	if !a.enabled {
		return nil
	}
	return a.backend.Delete(ctx, key)
}

// Invalidate makes every entry written under tag so far a miss.
func (a *Adapter) Invalidate(ctx context.Context, tag string) error {
	if !a.enabled {
		return nil
	}
	return a.backend.Set(ctx, tagVersionPrefix+tag, []byte(uuid.NewString()), 0)
}

// tagVersion returns the current version token of tag, creating one if the
// tag has none yet. Two writers racing to create a token can each win once;
// the loser's entry then reads as a miss.
func (a *Adapter) tagVersion(ctx context.Context, tag string) (string, error) {
	key := tagVersionPrefix + tag
	current, ok, err := a.backend.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if ok {
		return string(current), nil
	}
	version := uuid.NewString()
	if err := a.backend.Set(ctx, key, []byte(version), 0); err != nil {
		return "", err
	}
	return version, nil
}
