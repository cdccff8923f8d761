// Package database defines the connection contract the dialect packages
// implement and a database/sql based implementation of it.
//
// Dialect packages (postgres, mysql, sqlite, sqlserver) open connections,
// classify driver errors and introspect catalogs. Layers above talk only to
// the DB interface, and every error crossing it is an *errs.Error.
package database

import "context"

// DB is a pooled, read-only view of a database as the metadata loaders
// need it. Implementations are safe for concurrent use.
type DB interface {
	Ping(ctx context.Context) error
	Close()
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	// QueryRow defers errors, including the missing row, to Row.Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Rows is a result set. Close must be called even after an error; Err is
// only meaningful once Next returned false.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Close()
	Err() error
}

// Row is a single-row result. Scan reports a missing row with an error
// for which errs.IsNotFound is true.
type Row interface {
	Scan(dest ...any) error
}

// Classifier turns a driver error raised by sql into an *errs.Error.
type Classifier func(err error, sql string) error
