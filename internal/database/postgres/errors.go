package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/lib/pq"
)

// Rules classifies PostgreSQL errors by SQLSTATE class.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
var Rules = errs.DefaultRules.With(
	// connection exception, server shutting down
	errs.Rule{Pattern: "SQLSTATE[08", Kind: errs.ErrKindConnectionFailed},
	errs.Rule{Pattern: "SQLSTATE[57P0", Kind: errs.ErrKindConnectionFailed},
	// invalid authorization, insufficient privilege
	errs.Rule{Pattern: "SQLSTATE[28", Kind: errs.ErrKindPermissionDenied},
	errs.Rule{Pattern: "SQLSTATE[42501]", Kind: errs.ErrKindPermissionDenied},
	// statement timeout
	errs.Rule{Pattern: "SQLSTATE[57014]", Kind: errs.ErrKindTimeout},
)

// DriverInfo extracts the server-reported error fields from a pgx or lib/pq
// error. It returns nil for client-side errors.
func DriverInfo(err error) *errs.DriverInfo {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &errs.DriverInfo{SQLState: pgErr.Code, Message: pgErr.Message}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &errs.DriverInfo{SQLState: string(pqErr.Code), Message: pqErr.Message}
	}
	return nil
}

// Classify translates a driver error raised while executing sql into
// *errs.Error.
func Classify(err error, sql string) error {
	if err == nil {
		return nil
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return connError("connection failed", err)
	}
	return errs.Classify(err, sql, Rules, DriverInfo(err))
}

// connError maps errors raised while no statement is running. Server errors
// still go through Rules; everything else is a connection problem.
func connError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	if info := DriverInfo(err); info != nil {
		return errs.Classify(err, "", Rules, info)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
