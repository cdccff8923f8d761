package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/koustreak/dbmeta/internal/errs"
)

// SQL implements DB over database/sql. It is safe for concurrent use by
// multiple goroutines.
type SQL struct {
	db       *sql.DB
	classify Classifier
}

// Open opens a database/sql pool for the registered driverName, applies the
// pool settings of cfg and pings it.
func Open(ctx context.Context, driverName string, cfg *Config, classify Classifier) (*SQL, error) {
	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := NewSQL(db, classify)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// NewSQL wraps an open *sql.DB. A nil classify uses errs.DefaultRules.
func NewSQL(db *sql.DB, classify Classifier) *SQL {
	if classify == nil {
		classify = func(err error, sql string) error {
			return errs.Classify(err, sql, errs.DefaultRules, nil)
		}
	}
	return &SQL{db: db, classify: classify}
}

func (d *SQL) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return errs.Wrap(errs.ErrKindTimeout, "ping failed", err)
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, "ping failed", err)
	}
	return nil
}

func (d *SQL) Close() {
	_ = d.db.Close()
}

func (d *SQL) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, d.classify(err, query)
	}
	return &sqlRows{rows: rows, sql: query, classify: d.classify}, nil
}

func (d *SQL) QueryRow(ctx context.Context, query string, args ...any) Row {
	return &sqlRow{row: d.db.QueryRowContext(ctx, query, args...), sql: query, classify: d.classify}
}

// DB returns the underlying *sql.DB.
func (d *SQL) DB() *sql.DB {
	return d.db
}

// --- sql.DB type wrappers ---

type sqlRows struct {
	rows     *sql.Rows
	sql      string
	classify Classifier
}

func (r *sqlRows) Next() bool                 { return r.rows.Next() }
func (r *sqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *sqlRows) Close()                     { _ = r.rows.Close() }

func (r *sqlRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "failed to scan row", err)
	}
	return nil
}

func (r *sqlRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return r.classify(err, r.sql)
	}
	return nil
}

type sqlRow struct {
	row      *sql.Row
	sql      string
	classify Classifier
}

func (r *sqlRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, "record not found", err)
	}
	return r.classify(err, r.sql)
}
