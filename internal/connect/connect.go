// Package connect turns a config.Config into a live connection: the driver,
// the dialect matching it and a metadata store backed by the configured
// cache.
//
// Usage:
//
//	conn, err := connect.Open(ctx, cfg)
//	if err != nil { ... }
//	defer conn.Close()
//
//	tbl, err := conn.Store.TableSchema(ctx, "users", false)
package connect

import (
	"context"

	"github.com/koustreak/dbmeta/internal/config"
	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/database/mysql"
	"github.com/koustreak/dbmeta/internal/database/postgres"
	"github.com/koustreak/dbmeta/internal/database/sqlite"
	"github.com/koustreak/dbmeta/internal/database/sqlserver"
	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/logger"
	"github.com/koustreak/dbmeta/internal/meta"
	"github.com/koustreak/dbmeta/internal/query"
)

// Conn bundles everything opened for one configured database.
type Conn struct {
	DB      database.DB
	Store   *meta.Store
	Dialect query.Dialect

	closeCache func() error
	log        *logger.Logger
}

// Open connects to the configured database and cache. A nil log means
// logger.Global().
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Global()
	}
	log = log.Component("connect")

	dbCfg := &cfg.Database
	identity := dbCfg.Identity()
	var (
		db      database.DB
		d       meta.Introspector
		dialect query.Dialect
	)
	switch dbCfg.Driver {
	case database.DriverPostgres:
		drv, err := postgres.New(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		db, d, dialect = drv, postgres.NewDialect(drv, dbCfg), postgres.QueryDialect(dbCfg.TablePrefix)
	case database.DriverMySQL:
		drv, err := mysql.New(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		identity = mysql.Identity(dbCfg)
		db, d, dialect = drv, mysql.NewDialect(drv, dbCfg), mysql.QueryDialect(dbCfg.TablePrefix)
	case database.DriverSQLite:
		drv, err := sqlite.New(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		db, d, dialect = drv, sqlite.NewDialect(drv, dbCfg), sqlite.QueryDialect(dbCfg.TablePrefix)
	case database.DriverSQLServer:
		drv, err := sqlserver.New(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		db, d, dialect = drv, sqlserver.NewDialect(drv, dbCfg), sqlserver.QueryDialect(dbCfg.TablePrefix)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown database driver %q", dbCfg.Driver)
	}

	adapter, closeCache, err := config.NewCache(ctx, &cfg.Cache)
	if err != nil {
		db.Close()
		return nil, err
	}

	store, err := meta.NewStore(identity, d, adapter, &meta.Options{
		CacheDuration: cfg.Cache.Duration,
		Logger:        log,
	})
	if err != nil {
		db.Close()
		_ = closeCache()
		return nil, err
	}

	log.InfoWith("connected", map[string]any{
		"driver": string(dbCfg.Driver),
		"cache":  cacheBackend(&cfg.Cache),
	})
	return &Conn{DB: db, Store: store, Dialect: dialect, closeCache: closeCache, log: log}, nil
}

// Close releases the cache backend and the database pool.
func (c *Conn) Close() {
	if err := c.closeCache(); err != nil {
		c.log.WarnWith("closing metadata cache failed", err, nil)
	}
	c.DB.Close()
}

func cacheBackend(c *config.CacheConfig) string {
	if !c.Enabled {
		return "disabled"
	}
	return c.Backend
}
