package connect

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dbmeta/internal/config"
	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/logger"
	"github.com/koustreak/dbmeta/internal/query"
)

func sqliteConfig() *config.Config {
	cfg := config.Default()
	cfg.Database = *database.DefaultConfig(database.DriverSQLite, ":memory:")
	return cfg
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, sqliteConfig(), logger.Nop())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.DB.Ping(ctx))
	assert.False(t, conn.Dialect.RowValues)

	sql, _, err := query.Select("users", conn.Dialect).Limit(1).Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users` LIMIT ?", sql)

	tbl, err := conn.Store.TableSchema(ctx, "users", false)
	require.NoError(t, err)
	assert.Nil(t, tbl)
}

func TestOpen_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := sqliteConfig()
	cfg.Cache.Backend = config.BackendRedis
	cfg.Cache.Redis.Addr = mr.Addr()

	conn, err := Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer conn.Close()

	// absence is cached too: one record plus the connection's tag version
	tbl, err := conn.Store.TableSchema(context.Background(), "users", false)
	require.NoError(t, err)
	assert.Nil(t, tbl)
	assert.Len(t, mr.Keys(), 2)
}

func TestOpen_Invalid(t *testing.T) {
	cfg := sqliteConfig()
	cfg.Database.Driver = "oracle"
	_, err := Open(context.Background(), cfg, nil)
	assert.True(t, errs.IsInvalidInput(err))

	cfg = sqliteConfig()
	cfg.Cache.Backend = config.BackendRedis
	cfg.Cache.Redis.Addr = "127.0.0.1:1"
	_, err = Open(context.Background(), cfg, logger.Nop())
	assert.True(t, errs.IsConnectionFailed(err))
}
