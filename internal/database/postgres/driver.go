// Package postgres implements the PostgreSQL dialect: a pgxpool backed
// database.DB, catalog introspection for the metadata store and error
// classification.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/errs"
)

// Driver is a pgxpool backed database.DB.
type Driver struct {
	pool *pgxpool.Pool
}

var _ database.DB = (*Driver)(nil)

// New opens a pool for cfg and pings it.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create connection pool", err)
	}

	d := &Driver{pool: pool}
	if err := d.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return d, nil
}

// poolConfig parses cfg.DSN and applies the pool settings of cfg. A zero
// MaxConns keeps pgxpool's default.
func poolConfig(cfg *database.Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid postgres dsn", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	return poolCfg, nil
}

// OpenSQL connects through database/sql with the lib/pq driver. Errors are
// classified the same way as with the pgx Driver.
func OpenSQL(ctx context.Context, cfg *database.Config) (*database.SQL, error) {
	return database.Open(ctx, "postgres", cfg, Classify)
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return connError("ping failed", err)
	}
	return nil
}

func (d *Driver) Close() {
	d.pool.Close()
}

func (d *Driver) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, Classify(err, sql)
	}
	return &pgxRows{rows: rows, sql: sql}, nil
}

func (d *Driver) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return &pgxRow{row: d.pool.QueryRow(ctx, sql, args...), sql: sql}
}

// Pool returns the underlying pgxpool.
func (d *Driver) Pool() *pgxpool.Pool {
	return d.pool
}

type pgxRows struct {
	rows pgx.Rows
	sql  string
}

func (r *pgxRows) Next() bool { return r.rows.Next() }
func (r *pgxRows) Close()     { r.rows.Close() }

func (r *pgxRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "failed to scan row", err)
	}
	return nil
}

func (r *pgxRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return Classify(err, r.sql)
	}
	return nil
}

func (r *pgxRows) Columns() ([]string, error) {
	descs := r.rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	return cols, nil
}

type pgxRow struct {
	row pgx.Row
	sql string
}

func (r *pgxRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, "record not found", err)
	}
	return Classify(err, r.sql)
}
