// Package sqlserver implements the SQL Server dialect over
// microsoft/go-mssqldb: bracket quoting, catalog introspection through
// information_schema and error classification by error number.
package sqlserver

import (
	"context"
	"errors"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/errs"
)

// New opens a SQL Server connection pool using the provided Config.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*database.SQL, error) {
	return database.Open(ctx, "sqlserver", cfg, Classify)
}

// SQL Server error numbers that carry no SQLSTATE on the wire.
// Full list: https://learn.microsoft.com/sql/relational-databases/errors-events/database-engine-events-and-errors
var integrityErrors = map[int32]bool{
	515:  true, // cannot insert NULL
	547:  true, // constraint conflict
	2601: true, // duplicate key row in unique index
	2627: true, // unique constraint violation
}

// Rules classifies SQL Server errors by message text.
var Rules = errs.DefaultRules.With(
	errs.Rule{Pattern: "Login failed", Kind: errs.ErrKindPermissionDenied},
	errs.Rule{Pattern: "permission was denied", Kind: errs.ErrKindPermissionDenied},
	errs.Rule{Pattern: "Lock request time out period exceeded", Kind: errs.ErrKindTimeout},
	errs.Rule{Pattern: "unable to open tcp connection", Kind: errs.ErrKindConnectionFailed},
	errs.Rule{Pattern: "Cannot open database", Kind: errs.ErrKindConnectionFailed},
)

// DriverInfo extracts the server-reported error fields from a SQL Server
// error. Integrity errors are reported with SQLSTATE 23000.
func DriverInfo(err error) *errs.DriverInfo {
	var msErr mssql.Error
	if !errors.As(err, &msErr) {
		return nil
	}
	info := &errs.DriverInfo{Code: int(msErr.Number), Message: msErr.Message}
	if integrityErrors[msErr.Number] {
		info.SQLState = "23000"
	}
	return info
}

// Classify translates a driver error raised while executing sql into
// *errs.Error.
func Classify(err error, sql string) error {
	return errs.Classify(err, sql, Rules, DriverInfo(err))
}
