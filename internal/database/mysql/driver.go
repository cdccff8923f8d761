// Package mysql implements the MySQL dialect: a database/sql connection
// through go-sql-driver/mysql, catalog introspection for the metadata store
// and error classification.
package mysql

import (
	"context"

	"github.com/go-sql-driver/mysql"

	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/meta"
)

// New opens a MySQL connection pool using the provided Config.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*database.SQL, error) {
	return database.Open(ctx, "mysql", cfg, Classify)
}

// Identity returns the metadata store identity of cfg. When cfg has no
// Username the user named in the DSN is used.
func Identity(cfg *database.Config) meta.Identity {
	id := cfg.Identity()
	if id.Username == "" {
		if dsn, err := mysql.ParseDSN(cfg.DSN); err == nil {
			id.Username = dsn.User
		}
	}
	return id
}
