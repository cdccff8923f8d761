package postgres

import (
	"context"
	"strings"

	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/meta"
	"github.com/koustreak/dbmeta/internal/query"
	"github.com/koustreak/dbmeta/internal/schema"
)

// ClassID identifies the PostgreSQL dialect in metadata cache keys.
const ClassID = "postgres"

// DefaultSchema is the schema unqualified table names resolve to.
const DefaultSchema = "public"

// typeMap maps PostgreSQL type names, as reported by information_schema,
// to abstract types.
var typeMap = schema.TypeMap{
	"bit":                         schema.TypeInteger,
	"bit varying":                 schema.TypeInteger,
	"varbit":                      schema.TypeInteger,
	"bool":                        schema.TypeBoolean,
	"boolean":                     schema.TypeBoolean,
	"box":                         schema.TypeString,
	"circle":                      schema.TypeString,
	"point":                       schema.TypeString,
	"line":                        schema.TypeString,
	"lseg":                        schema.TypeString,
	"polygon":                     schema.TypeString,
	"path":                        schema.TypeString,
	"character":                   schema.TypeChar,
	"char":                        schema.TypeChar,
	"bpchar":                      schema.TypeChar,
	"character varying":           schema.TypeString,
	"varchar":                     schema.TypeString,
	"text":                        schema.TypeText,
	"bytea":                       schema.TypeBinary,
	"cidr":                        schema.TypeString,
	"inet":                        schema.TypeString,
	"macaddr":                     schema.TypeString,
	"real":                        schema.TypeFloat,
	"float4":                      schema.TypeFloat,
	"double precision":            schema.TypeDouble,
	"float8":                      schema.TypeDouble,
	"decimal":                     schema.TypeDecimal,
	"numeric":                     schema.TypeDecimal,
	"money":                       schema.TypeMoney,
	"smallint":                    schema.TypeSmallInt,
	"int2":                        schema.TypeSmallInt,
	"int4":                        schema.TypeInteger,
	"int":                         schema.TypeInteger,
	"integer":                     schema.TypeInteger,
	"bigint":                      schema.TypeBigInt,
	"int8":                        schema.TypeBigInt,
	"oid":                         schema.TypeBigInt,
	"smallserial":                 schema.TypeSmallInt,
	"serial2":                     schema.TypeSmallInt,
	"serial4":                     schema.TypeInteger,
	"serial":                      schema.TypeInteger,
	"bigserial":                   schema.TypeBigInt,
	"serial8":                     schema.TypeBigInt,
	"pg_lsn":                      schema.TypeBigInt,
	"date":                        schema.TypeDate,
	"interval":                    schema.TypeString,
	"time without time zone":      schema.TypeTime,
	"time":                        schema.TypeTime,
	"time with time zone":         schema.TypeTime,
	"timetz":                      schema.TypeTime,
	"timestamp without time zone": schema.TypeTimestamp,
	"timestamp":                   schema.TypeTimestamp,
	"timestamp with time zone":    schema.TypeTimestamp,
	"timestamptz":                 schema.TypeTimestamp,
	"abstime":                     schema.TypeTimestamp,
	"tsquery":                     schema.TypeString,
	"tsvector":                    schema.TypeString,
	"txid_snapshot":               schema.TypeString,
	"unknown":                     schema.TypeString,
	"uuid":                        schema.TypeString,
	"json":                        schema.TypeJSON,
	"jsonb":                       schema.TypeJSON,
	"xml":                         schema.TypeString,
}

// TypeMap returns the PostgreSQL type map.
func TypeMap() schema.TypeMap {
	return typeMap
}

// NewQuoter returns a double-quote Quoter for a connection with prefix.
func NewQuoter(prefix string) *schema.Quoter {
	return schema.NewQuoter(schema.Symmetric(`"`), prefix)
}

// QueryDialect returns the query builder settings for PostgreSQL.
func QueryDialect(prefix string) query.Dialect {
	return query.Dialect{
		Quoter:      NewQuoter(prefix),
		Placeholder: query.Dollar,
		RowValues:   true,
	}
}

// Dialect introspects a PostgreSQL catalog for the metadata store.
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

// SchemaNames lists the user schemas, skipping pg_* and information_schema.
func (d *Dialect) SchemaNames(ctx context.Context) ([]string, error) {
	const q = `
		SELECT nspname::text
		FROM pg_namespace
		WHERE nspname NOT LIKE 'pg\_%'
		  AND nspname <> 'information_schema'
		ORDER BY nspname`

	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()
	return database.QueryStrings(ctx, d.db, q)
}

// TableNames lists tables and views in schemaName ("" is public).
func (d *Dialect) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	const q = `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name`

	if schemaName == "" {
		schemaName = DefaultSchema
	}
	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()
	return database.QueryStrings(ctx, d.db, q, schemaName)
}

// ResolveTableName splits "[catalog.][schema.]name". Quoted parts are
// unquoted and a missing schema resolves to public.
func (d *Dialect) ResolveTableName(name string) (schema.TableName, error) {
	if name == "" {
		return schema.TableName{}, errs.New(errs.ErrKindInvalidInput, "empty table name")
	}
	q := NewQuoter("")
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q.UnquoteSimpleTableName(p)
	}

	var tn schema.TableName
	switch len(parts) {
	case 1:
		tn = schema.TableName{Schema: DefaultSchema, Name: parts[0]}
	case 2:
		tn = schema.TableName{Schema: parts[0], Name: parts[1]}
	case 3:
		tn = schema.TableName{Catalog: parts[0], Schema: parts[1], Name: parts[2]}
	default:
		return schema.TableName{}, errs.Newf(errs.ErrKindInvalidInput, "invalid table name %q", name)
	}
	return tn, nil
}
