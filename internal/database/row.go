package database

import (
	"context"

	"github.com/koustreak/dbmeta/internal/errs"
)

// ScanRows drains and closes rows, returning one map per row keyed by
// column name. []byte values are returned as strings. The result is never
// nil.
func ScanRows(rows Rows) ([]map[string]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read column names", err)
	}

	values := make([]any, len(columns))
	targets := make([]any, len(columns))
	for i := range values {
		targets[i] = &values[i]
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
			values[i] = nil
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// QueryMaps runs q and returns every row as a map.
func QueryMaps(ctx context.Context, db DB, q string, args ...any) ([]map[string]any, error) {
	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return ScanRows(rows)
}

// QueryStrings runs q, which must select a single text column, and returns
// the values in result order.
func QueryStrings(ctx context.Context, db DB, q string, args ...any) ([]string, error) {
	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// WithTimeout derives a context bounded by the configured query timeout.
func WithTimeout(ctx context.Context, cfg *Config) (context.Context, context.CancelFunc) {
	if cfg == nil || cfg.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.QueryTimeout)
}
