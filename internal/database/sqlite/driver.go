// Package sqlite implements the SQLite dialect over mattn/go-sqlite3. The
// catalog is read with PRAGMA statements; SQLite has no schema enumeration.
package sqlite

import (
	"context"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/errs"
)

// New opens an SQLite database. An in-memory database exists per
// connection, so the pool is pinned to one connection for ":memory:" and
// "mode=memory" DSNs.
func New(ctx context.Context, cfg *database.Config) (*database.SQL, error) {
	c := *cfg
	if isMemory(c.DSN) {
		c.MaxConns = 1
		c.MinConns = 1
		c.MaxConnLifetime = 0
		c.MaxConnIdleTime = 0
	}
	return database.Open(ctx, "sqlite3", &c, Classify)
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Rules classifies SQLite errors. Constraint failures are reported with
// SQLSTATE 23000 by DriverInfo and matched by the default rule.
var Rules = errs.DefaultRules.With(
	errs.Rule{Pattern: "unable to open database file", Kind: errs.ErrKindConnectionFailed},
	errs.Rule{Pattern: "database is locked", Kind: errs.ErrKindTimeout},
	errs.Rule{Pattern: "database table is locked", Kind: errs.ErrKindTimeout},
	errs.Rule{Pattern: "readonly database", Kind: errs.ErrKindPermissionDenied},
	errs.Rule{Pattern: "not authorized", Kind: errs.ErrKindPermissionDenied},
)

// DriverInfo extracts the result code from an SQLite error. It returns nil
// for errors not raised by the SQLite library.
func DriverInfo(err error) *errs.DriverInfo {
	var sqErr sqlite3.Error
	if !errors.As(err, &sqErr) {
		return nil
	}
	info := &errs.DriverInfo{Code: int(sqErr.ExtendedCode), Message: sqErr.Error()}
	if sqErr.Code == sqlite3.ErrConstraint {
		info.SQLState = "23000"
	}
	return info
}

// Classify translates a driver error raised while executing sql into
// *errs.Error.
func Classify(err error, sql string) error {
	return errs.Classify(err, sql, Rules, DriverInfo(err))
}
