package meta

import (
	"context"

	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/schema"
)

// Lookup is TableMetadata with the value asserted to *T.
func Lookup[T any](ctx context.Context, s *Store, name, typ string, refresh bool) (*T, error) {
	v, err := s.TableMetadata(ctx, name, typ, refresh)
	if err != nil || v == nil {
		return nil, err
	}
	t, ok := v.(*T)
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "metadata type %q holds %T, not %T", typ, v, t)
	}
	return t, nil
}

// LookupAll is AllMetadata with every value asserted to *T.
func LookupAll[T any](ctx context.Context, s *Store, schemaName, typ string, refresh bool) ([]*T, error) {
	values, err := s.AllMetadata(ctx, schemaName, typ, refresh)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(values))
	for _, v := range values {
		t, ok := v.(*T)
		if !ok {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "metadata type %q holds %T, not %T", typ, v, t)
		}
		out = append(out, t)
	}
	return out, nil
}

// TableSchema returns the structure of a table, or nil if it does not exist.
func (s *Store) TableSchema(ctx context.Context, name string, refresh bool) (*schema.Table, error) {
	return Lookup[schema.Table](ctx, s, name, TypeSchema, refresh)
}

// TableSchemas returns the structure of every table in schemaName.
func (s *Store) TableSchemas(ctx context.Context, schemaName string, refresh bool) ([]*schema.Table, error) {
	return LookupAll[schema.Table](ctx, s, schemaName, TypeSchema, refresh)
}

func (s *Store) TablePrimaryKey(ctx context.Context, name string, refresh bool) (*schema.Constraint, error) {
	return Lookup[schema.Constraint](ctx, s, name, TypePrimaryKey, refresh)
}

func (s *Store) TableForeignKeys(ctx context.Context, name string, refresh bool) (*schema.ForeignKeys, error) {
	return Lookup[schema.ForeignKeys](ctx, s, name, TypeForeignKeys, refresh)
}

func (s *Store) TableUniques(ctx context.Context, name string, refresh bool) (*schema.Constraints, error) {
	return Lookup[schema.Constraints](ctx, s, name, TypeUniques, refresh)
}
