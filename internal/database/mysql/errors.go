package mysql

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/koustreak/dbmeta/internal/errs"
)

// Rules classifies MySQL errors. The driver message carries the error
// number, so rules match on message text.
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
var Rules = errs.DefaultRules.With(
	errs.Rule{Pattern: "SQLSTATE[08", Kind: errs.ErrKindConnectionFailed},
	errs.Rule{Pattern: "invalid connection", Kind: errs.ErrKindConnectionFailed},
	errs.Rule{Pattern: "bad connection", Kind: errs.ErrKindConnectionFailed},
	errs.Rule{Pattern: "Too many connections", Kind: errs.ErrKindConnectionFailed},
	errs.Rule{Pattern: "Unknown database", Kind: errs.ErrKindConnectionFailed},
	errs.Rule{Pattern: "Access denied", Kind: errs.ErrKindPermissionDenied},
	errs.Rule{Pattern: "command denied", Kind: errs.ErrKindPermissionDenied},
	errs.Rule{Pattern: "Lock wait timeout exceeded", Kind: errs.ErrKindTimeout},
	errs.Rule{Pattern: "maximum statement execution time exceeded", Kind: errs.ErrKindTimeout},
)

// DriverInfo extracts the server-reported error fields from a MySQL error.
// It returns nil for client-side errors.
func DriverInfo(err error) *errs.DriverInfo {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return nil
	}
	info := &errs.DriverInfo{Code: int(myErr.Number), Message: myErr.Message}
	if myErr.SQLState != [5]byte{} {
		info.SQLState = string(myErr.SQLState[:])
	}
	return info
}

// Classify translates a driver error raised while executing sql into
// *errs.Error.
func Classify(err error, sql string) error {
	return errs.Classify(err, sql, Rules, DriverInfo(err))
}
