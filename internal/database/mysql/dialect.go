package mysql

import (
	"context"
	"strings"

	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/meta"
	"github.com/koustreak/dbmeta/internal/query"
	"github.com/koustreak/dbmeta/internal/schema"
)

// ClassID identifies the MySQL dialect in metadata cache keys.
const ClassID = "mysql"

var typeMap = schema.TypeMap{
	"tinyint":    schema.TypeTinyInt,
	"bit":        schema.TypeInteger,
	"smallint":   schema.TypeSmallInt,
	"mediumint":  schema.TypeInteger,
	"int":        schema.TypeInteger,
	"integer":    schema.TypeInteger,
	"bigint":     schema.TypeBigInt,
	"float":      schema.TypeFloat,
	"double":     schema.TypeDouble,
	"real":       schema.TypeFloat,
	"decimal":    schema.TypeDecimal,
	"numeric":    schema.TypeDecimal,
	"tinytext":   schema.TypeText,
	"mediumtext": schema.TypeText,
	"longtext":   schema.TypeText,
	"longblob":   schema.TypeBinary,
	"blob":       schema.TypeBinary,
	"text":       schema.TypeText,
	"varchar":    schema.TypeString,
	"string":     schema.TypeString,
	"char":       schema.TypeChar,
	"datetime":   schema.TypeDatetime,
	"year":       schema.TypeDate,
	"date":       schema.TypeDate,
	"time":       schema.TypeTime,
	"timestamp":  schema.TypeTimestamp,
	"enum":       schema.TypeString,
	"set":        schema.TypeString,
	"binary":     schema.TypeBinary,
	"varbinary":  schema.TypeBinary,
	"json":       schema.TypeJSON,
}

// TypeMap returns the MySQL type map.
func TypeMap() schema.TypeMap {
	return typeMap
}

// NewQuoter returns a backtick Quoter for a connection with prefix.
func NewQuoter(prefix string) *schema.Quoter {
	return schema.NewQuoter(schema.Symmetric("`"), prefix)
}

// QueryDialect returns the query builder settings for MySQL.
func QueryDialect(prefix string) query.Dialect {
	return query.Dialect{
		Quoter:      NewQuoter(prefix),
		Placeholder: query.Question,
		RowValues:   true,
	}
}

// Dialect introspects a MySQL catalog for the metadata store.
type Dialect struct {
	db      database.DB
	cfg     *database.Config
	loaders *meta.Registry
}

var (
	_ meta.Introspector      = (*Dialect)(nil)
	_ meta.TableNameResolver = (*Dialect)(nil)
)

// NewDialect returns a Dialect reading the catalog through db. cfg may be
// nil; when set its QueryTimeout bounds every catalog query.
func NewDialect(db database.DB, cfg *database.Config) *Dialect {
	d := &Dialect{db: db, cfg: cfg}
	d.loaders = meta.NewRegistry()
	meta.Register(d.loaders, meta.TypeSchema, d.loadTableSchema)
	meta.Register(d.loaders, meta.TypePrimaryKey, d.loadPrimaryKey)
	meta.Register(d.loaders, meta.TypeForeignKeys, d.loadForeignKeys)
	meta.Register(d.loaders, meta.TypeUniques, d.loadUniques)
	return d
}

func (d *Dialect) ClassID() string                     { return ClassID }
func (d *Dialect) Quoter(prefix string) *schema.Quoter { return NewQuoter(prefix) }
func (d *Dialect) Loaders() *meta.Registry             { return d.loaders }

// SchemaNames lists the databases, skipping the system ones.
func (d *Dialect) SchemaNames(ctx context.Context) ([]string, error) {
	const q = `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
		ORDER BY schema_name`

	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()
	return database.QueryStrings(ctx, d.db, q)
}

// TableNames lists tables and views in schemaName ("" is the current
// database).
func (d *Dialect) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name`

	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()
	return database.QueryStrings(ctx, d.db, q, schemaName)
}

// ResolveTableName splits "[database.]name". A missing database leaves
// Schema empty, which catalog queries read as the current database.
func (d *Dialect) ResolveTableName(name string) (schema.TableName, error) {
	if name == "" {
		return schema.TableName{}, errs.New(errs.ErrKindInvalidInput, "empty table name")
	}
	q := NewQuoter("")
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q.UnquoteSimpleTableName(p)
	}
	switch len(parts) {
	case 1:
		return schema.TableName{Name: parts[0]}, nil
	case 2:
		return schema.TableName{Schema: parts[0], Name: parts[1]}, nil
	default:
		return schema.TableName{}, errs.Newf(errs.ErrKindInvalidInput, "invalid table name %q", name)
	}
}
