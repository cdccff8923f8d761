package sqlserver

import (
	"context"

	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/meta"
	"github.com/koustreak/dbmeta/internal/query"
	"github.com/koustreak/dbmeta/internal/schema"
)

// ClassID identifies the SQL Server dialect in metadata cache keys.
const ClassID = "sqlserver"

// DefaultSchema is the schema unqualified table names resolve to.
const DefaultSchema = "dbo"

var typeMap = schema.TypeMap{
	"bigint":           schema.TypeBigInt,
	"numeric":          schema.TypeDecimal,
	"bit":              schema.TypeBoolean,
	"smallint":         schema.TypeSmallInt,
	"decimal":          schema.TypeDecimal,
	"smallmoney":       schema.TypeMoney,
	"int":              schema.TypeInteger,
	"tinyint":          schema.TypeTinyInt,
	"money":            schema.TypeMoney,
	"float":            schema.TypeFloat,
	"double":           schema.TypeDouble,
	"real":             schema.TypeFloat,
	"date":             schema.TypeDate,
	"datetimeoffset":   schema.TypeDatetime,
	"datetime2":        schema.TypeDatetime,
	"smalldatetime":    schema.TypeDatetime,
	"datetime":         schema.TypeDatetime,
	"time":             schema.TypeTime,
	"char":             schema.TypeChar,
	"varchar":          schema.TypeString,
	"text":             schema.TypeText,
	"nchar":            schema.TypeChar,
	"nvarchar":         schema.TypeString,
	"ntext":            schema.TypeText,
	"binary":           schema.TypeBinary,
	"varbinary":        schema.TypeBinary,
	"image":            schema.TypeBinary,
	"timestamp":        schema.TypeTimestamp,
	"hierarchyid":      schema.TypeString,
	"uniqueidentifier": schema.TypeString,
	"sql_variant":      schema.TypeString,
	"xml":              schema.TypeString,
	"table":            schema.TypeString,
}

// TypeMap returns the SQL Server type map.
func TypeMap() schema.TypeMap {
	return typeMap
}

// NewQuoter returns a Quoter using "[" and "]" whose qualified names may
// contain dots inside brackets.
func NewQuoter(prefix string) *schema.Quoter {
	q := schema.NewQuoter(schema.QuoteChars{Start: "[", End: "]"}, prefix)
	q.SplitName = schema.SplitBracketed
	return q
}

// QueryDialect returns the query builder settings for SQL Server.
func QueryDialect(prefix string) query.Dialect {
	return query.Dialect{
		Quoter:      NewQuoter(prefix),
		Placeholder: query.AtP,
		LikeEscape:  true,
		Paging:      query.OffsetFetch,
	}
}

// Dialect introspects a SQL Server catalog for the metadata store.
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

// SchemaNames lists user schemas, skipping system and fixed role schemas.
func (d *Dialect) SchemaNames(ctx context.Context) ([]string, error) {
	const q = `
		SELECT name
		FROM sys.schemas
		WHERE name NOT IN ('INFORMATION_SCHEMA', 'sys', 'guest')
		  AND name NOT LIKE 'db[_]%'
		ORDER BY name`

	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()
	return database.QueryStrings(ctx, d.db, q)
}

// TableNames lists tables and views in schemaName ("" is dbo).
func (d *Dialect) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = @p1
		  AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name`

	if schemaName == "" {
		schemaName = DefaultSchema
	}
	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()
	return database.QueryStrings(ctx, d.db, q, schemaName)
}

// ResolveTableName splits "[catalog.][schema.]name" where parts may be
// bracket quoted and contain dots, e.g. "[my.db].dbo.users".
func (d *Dialect) ResolveTableName(name string) (schema.TableName, error) {
	if name == "" {
		return schema.TableName{}, errs.New(errs.ErrKindInvalidInput, "empty table name")
	}
	parts := schema.SplitBracketed(name)
	switch len(parts) {
	case 1:
		return schema.TableName{Schema: DefaultSchema, Name: parts[0]}, nil
	case 2:
		return schema.TableName{Schema: parts[0], Name: parts[1]}, nil
	case 3:
		return schema.TableName{Catalog: parts[0], Schema: parts[1], Name: parts[2]}, nil
	default:
		return schema.TableName{}, errs.Newf(errs.ErrKindInvalidInput, "invalid table name %q", name)
	}
}

// catalogPrefix qualifies information_schema views with the table's
// catalog, when it names one.
func catalogPrefix(n schema.TableName) string {
	if n.Catalog == "" {
		return ""
	}
	return NewQuoter("").EscapeTableName(n.Catalog) + "."
}
