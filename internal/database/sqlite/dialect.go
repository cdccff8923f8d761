package sqlite

import (
	"context"
	"strings"

	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/meta"
	"github.com/koustreak/dbmeta/internal/query"
	"github.com/koustreak/dbmeta/internal/schema"
)

// ClassID identifies the SQLite dialect in metadata cache keys.
const ClassID = "sqlite"

var typeMap = schema.TypeMap{
	"tinyint":    schema.TypeTinyInt,
	"bit":        schema.TypeSmallInt,
	"boolean":    schema.TypeBoolean,
	"bool":       schema.TypeBoolean,
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
	"text":       schema.TypeText,
	"varchar":    schema.TypeString,
	"string":     schema.TypeString,
	"char":       schema.TypeChar,
	"blob":       schema.TypeBinary,
	"datetime":   schema.TypeDatetime,
	"year":       schema.TypeDate,
	"date":       schema.TypeDate,
	"time":       schema.TypeTime,
	"timestamp":  schema.TypeTimestamp,
	"enum":       schema.TypeString,
	"json":       schema.TypeJSON,
}

// TypeMap returns the SQLite type map.
func TypeMap() schema.TypeMap {
	return typeMap
}

// NewQuoter returns a backtick Quoter for a connection with prefix.
func NewQuoter(prefix string) *schema.Quoter {
	return schema.NewQuoter(schema.Symmetric("`"), prefix)
}

// QueryDialect returns the query builder settings for SQLite. Row value
// IN lists are rendered as OR of ANDs. SQLite has no default LIKE escape.
func QueryDialect(prefix string) query.Dialect {
	return query.Dialect{
		Quoter:      NewQuoter(prefix),
		Placeholder: query.Question,
		LikeEscape:  true,
	}
}

// Dialect introspects an SQLite database for the metadata store.
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

// SchemaNames is not supported: SQLite has attached databases, not schemas.
func (d *Dialect) SchemaNames(context.Context) ([]string, error) {
	return nil, errs.Unsupported("schema enumeration", "SQLite")
}

// TableNames lists tables and views of the main database, or of an attached
// database when schemaName is set.
func (d *Dialect) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	q := `
		SELECT name
		FROM ` + d.pragmaSchema(schemaName) + `sqlite_master
		WHERE type IN ('table', 'view')
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()
	return database.QueryStrings(ctx, d.db, q)
}

// ResolveTableName splits "[database.]name".
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

// pragmaSchema returns the quoted "schema." qualifier, or "" for main.
func (d *Dialect) pragmaSchema(schemaName string) string {
	if schemaName == "" {
		return ""
	}
	return NewQuoter("").EscapeTableName(schemaName) + "."
}

// pragma builds "PRAGMA [schema.]fn(arg)" with arg quoted as an identifier.
func (d *Dialect) pragma(fn string, schemaName, arg string) string {
	return "PRAGMA " + d.pragmaSchema(schemaName) + fn + "(" + NewQuoter("").EscapeTableName(arg) + ")"
}
