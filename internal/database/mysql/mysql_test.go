package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dbmeta/internal/condition"
	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/meta"
	"github.com/koustreak/dbmeta/internal/query"
	"github.com/koustreak/dbmeta/internal/schema"
)

var columnHeader = []string{
	"column_name", "column_type", "is_nullable", "column_default", "extra", "column_key", "column_comment",
}

func setup(t *testing.T) (*meta.Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	d := NewDialect(database.NewSQL(db, Classify), nil)
	store, err := meta.NewStore(meta.Identity{DSN: "app:secret@tcp(localhost:3306)/shop"}, d, nil, nil)
	require.NoError(t, err)
	return store, mock
}

func TestIdentity(t *testing.T) {
	cfg := database.DefaultConfig(database.DriverMySQL, "app:secret@tcp(localhost:3306)/shop")
	assert.Equal(t, "app", Identity(cfg).Username)

	cfg.Username = "explicit"
	assert.Equal(t, "explicit", Identity(cfg).Username)

	cfg = database.DefaultConfig(database.DriverMySQL, "not a dsn")
	assert.Equal(t, "", Identity(cfg).Username)
}

func TestResolveTableName(t *testing.T) {
	d := NewDialect(nil, nil)

	got, err := d.ResolveTableName("users")
	require.NoError(t, err)
	assert.Equal(t, schema.TableName{Name: "users"}, got)

	got, err = d.ResolveTableName("`shop`.`orders`")
	require.NoError(t, err)
	assert.Equal(t, schema.TableName{Schema: "shop", Name: "orders"}, got)

	_, err = d.ResolveTableName("a.b.c")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestQueryDialect(t *testing.T) {
	sql, args, err := query.Select("users", QueryDialect("")).
		Where(condition.NewNotIn("id", 1, nil)).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users` WHERE `id` <> ? AND `id` IS NOT NULL", sql)
	assert.Equal(t, []any{1}, args)
}

func TestTableSchema(t *testing.T) {
	store, mock := setup(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).
		WithArgs("", "users").
		WillReturnRows(sqlmock.NewRows(columnHeader).
			AddRow("id", "bigint(20) unsigned", 0, nil, "auto_increment", "PRI", "").
			AddRow("active", "tinyint(1)", 0, "1", "", "", "").
			AddRow("role", "enum('admin','it''s me')", 0, "'admin'", "", "", "").
			AddRow("price", "decimal(10,2)", 1, "NULL", "", "", "unit price").
			AddRow("name", "varchar(64)", 1, nil, "", "MUL", ""))

	tbl, err := store.TableSchema(context.Background(), "users", false)
	require.NoError(t, err)
	require.NotNil(t, tbl)

	assert.Equal(t, "users", tbl.FullName)
	assert.Equal(t, []string{"id"}, tbl.PrimaryKey)

	id := tbl.Column("id")
	assert.True(t, id.IsPrimaryKey)
	assert.True(t, id.AutoIncrement)
	assert.True(t, id.Unsigned)
	assert.Equal(t, schema.TypeBigInt, id.Type)
	assert.Equal(t, schema.HostString, id.HostType)
	assert.Equal(t, 20, id.Size)

	active := tbl.Column("active")
	assert.Equal(t, schema.TypeBoolean, active.Type)
	require.NotNil(t, active.DefaultValue)
	assert.Equal(t, "1", *active.DefaultValue)

	role := tbl.Column("role")
	assert.Equal(t, []string{"admin", "it's me"}, role.EnumValues)
	require.NotNil(t, role.DefaultValue)
	assert.Equal(t, "admin", *role.DefaultValue)

	price := tbl.Column("price")
	assert.True(t, price.AllowNull)
	assert.Nil(t, price.DefaultValue)
	assert.Equal(t, 10, price.Precision)
	assert.Equal(t, 2, price.Scale)
	assert.Equal(t, "unit price", price.Comment)

	name := tbl.Column("name")
	assert.False(t, name.IsPrimaryKey)
	assert.Equal(t, 64, name.Size)
	assert.Equal(t, schema.TypeString, name.Type)
}

func TestTableSchema_QualifiedAndMissing(t *testing.T) {
	store, mock := setup(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).
		WithArgs("archive", "users").
		WillReturnRows(sqlmock.NewRows(columnHeader))

	tbl, err := store.TableSchema(context.Background(), "archive.users", false)
	require.NoError(t, err)
	assert.Nil(t, tbl)
}

func TestConstraints(t *testing.T) {
	store, mock := setup(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.table_constraints tc")).
		WithArgs("PRIMARY KEY", "", "order_items").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("PRIMARY", "order_id").
			AddRow("PRIMARY", "line"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.table_constraints tc")).
		WithArgs("UNIQUE", "", "order_items").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}))

	pk, err := store.TablePrimaryKey(ctx, "order_items", false)
	require.NoError(t, err)
	require.NotNil(t, pk)
	assert.Equal(t, []string{"order_id", "line"}, pk.Columns)

	uq, err := store.TableUniques(ctx, "order_items", false)
	require.NoError(t, err)
	require.NotNil(t, uq)
	assert.Empty(t, *uq)
}

func TestTablePrimaryKey_None(t *testing.T) {
	store, mock := setup(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.table_constraints tc")).
		WithArgs("PRIMARY KEY", "", "log").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}))

	pk, err := store.TablePrimaryKey(context.Background(), "log", false)
	require.NoError(t, err)
	assert.Nil(t, pk)
}

func TestTableForeignKeys(t *testing.T) {
	store, mock := setup(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.referential_constraints rc")).
		WithArgs("", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"name", "column", "ref_schema", "ref_table", "ref_column", "on_delete", "on_update"}).
			AddRow("fk_customer", "customer_id", "shop", "customers", "id", "SET NULL", "CASCADE"))

	fks, err := store.TableForeignKeys(context.Background(), "orders", false)
	require.NoError(t, err)
	require.NotNil(t, fks)
	assert.Equal(t, schema.ForeignKeys{{
		Name:           "fk_customer",
		Columns:        []string{"customer_id"},
		ForeignSchema:  "shop",
		ForeignTable:   "customers",
		ForeignColumns: []string{"id"},
		OnDelete:       "SET NULL",
		OnUpdate:       "CASCADE",
	}}, *fks)
}

func TestSchemaAndTableNames(t *testing.T) {
	store, mock := setup(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.schemata")).
		WillReturnRows(sqlmock.NewRows([]string{"schema_name"}).AddRow("archive").AddRow("shop"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WithArgs("archive").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users"))

	ctx := context.Background()
	schemas, err := store.SchemaNames(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"archive", "shop"}, schemas)

	tables, err := store.TableNames(ctx, "archive", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"duplicate entry", &mysql.MySQLError{Number: 1062, SQLState: [5]byte{'2', '3', '0', '0', '0'}, Message: "Duplicate entry '1' for key 'PRIMARY'"}, errs.ErrKindIntegrityViolation},
		{"access denied", &mysql.MySQLError{Number: 1045, SQLState: [5]byte{'2', '8', '0', '0', '0'}, Message: "Access denied for user 'app'@'localhost'"}, errs.ErrKindPermissionDenied},
		{"select denied", &mysql.MySQLError{Number: 1142, Message: "SELECT command denied to user 'app'"}, errs.ErrKindPermissionDenied},
		{"lock wait", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded; try restarting transaction"}, errs.ErrKindTimeout},
		{"too many connections", &mysql.MySQLError{Number: 1040, Message: "Too many connections"}, errs.ErrKindConnectionFailed},
		{"unknown table", &mysql.MySQLError{Number: 1146, Message: "Table 'shop.nope' doesn't exist"}, errs.ErrKindQueryFailed},
		{"invalid connection", mysql.ErrInvalidConn, errs.ErrKindConnectionFailed},
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errs.KindOf(Classify(tt.err, "SELECT 1")))
		})
	}
}

func TestDriverInfo(t *testing.T) {
	info := DriverInfo(&mysql.MySQLError{Number: 1062, SQLState: [5]byte{'2', '3', '0', '0', '0'}, Message: "dup"})
	require.NotNil(t, info)
	assert.Equal(t, 1062, info.Code)
	assert.Equal(t, "23000", info.SQLState)
	assert.Equal(t, "dup", info.Message)

	info = DriverInfo(&mysql.MySQLError{Number: 1146, Message: "missing"})
	require.NotNil(t, info)
	assert.Empty(t, info.SQLState)

	assert.Nil(t, DriverInfo(errors.New("plain")))
}
