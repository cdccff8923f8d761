package meta

import (
	"context"
	"encoding/json"
	"fmt"
)

// Metadata type labels every dialect registers.
const (
	TypeSchema      = "schema"
	TypePrimaryKey  = "primaryKey"
	TypeForeignKeys = "foreignKeys"
	TypeUniques     = "uniques"
)

// LoadFunc loads one kind of metadata for a raw table name. Returning
// (nil, nil) means the table or item does not exist, which is cached like
// any other result.
type LoadFunc[T any] func(ctx context.Context, rawName string) (*T, error)

type loader struct {
	load   func(ctx context.Context, rawName string) (any, error)
	decode func(raw json.RawMessage) (any, error)
}

// Registry maps metadata type labels to loaders. It is filled once by a
// dialect and handed to NewStore, which rejects a registry that recorded
// a registration error.
type Registry struct {
	loaders map[string]loader
	order   []string
	err     error
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]loader)}
}

// Register adds fn as the loader for label. Values of type T are persisted
// as JSON, so T must round-trip through encoding/json.
func Register[T any](r *Registry, label string, fn LoadFunc[T]) {
	if r.err != nil {
		return
	}
	switch {
	case label == "":
		r.err = fmt.Errorf("register loader: empty metadata type label")
		return
	case label == versionField:
		r.err = fmt.Errorf("register loader: %q is reserved", label)
		return
	case fn == nil:
		r.err = fmt.Errorf("register loader %q: nil function", label)
		return
	}
	if _, dup := r.loaders[label]; dup {
		r.err = fmt.Errorf("register loader %q: already registered", label)
		return
	}

	r.loaders[label] = loader{
		load: func(ctx context.Context, rawName string) (any, error) {
			v, err := fn(ctx, rawName)
			if err != nil || v == nil {
				return nil, err
			}
			return v, nil
		},
		decode: func(raw json.RawMessage) (any, error) {
			if string(raw) == "null" {
				return nil, nil
			}
			v := new(T)
			if err := json.Unmarshal(raw, v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
	r.order = append(r.order, label)
}

// Types returns the registered labels in registration order.
func (r *Registry) Types() []string {
	return append([]string(nil), r.order...)
}

// Err returns the first registration error, if any.
func (r *Registry) Err() error {
	return r.err
}

func (r *Registry) lookup(label string) (loader, bool) {
	l, ok := r.loaders[label]
	return l, ok
}
