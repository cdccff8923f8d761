package postgres

import (
	"context"
	"regexp"
	"strings"

	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/schema"
)

var (
	sequenceDefault = regexp.MustCompile(`^nextval\('([^']+)'::regclass\)$`)
	literalDefault  = regexp.MustCompile(`^'((?:[^']|'')*)'::[\w\s\[\]".]+$`)
	numericDefault  = regexp.MustCompile(`^\(?(-?[\d.]+)\)?::[\w\s\[\]".]+$`)
)

// loadTableSchema reads a table's columns, primary key and sequence. A table
// without columns does not exist.
func (d *Dialect) loadTableSchema(ctx context.Context, rawName string) (*schema.Table, error) {
	const q = `
		SELECT c.column_name::text,
		       c.data_type::text,
		       c.udt_name::text,
		       c.is_nullable = 'YES',
		       c.column_default::text,
		       c.character_maximum_length::int,
		       c.numeric_precision::int,
		       c.numeric_scale::int,
		       c.is_identity = 'YES',
		       COALESCE(pg_catalog.col_description(
		           format('%I.%I', c.table_schema, c.table_name)::regclass::oid,
		           c.ordinal_position::int), '')
		FROM information_schema.columns c
		WHERE c.table_schema = $1
		  AND c.table_name   = $2
		ORDER BY c.ordinal_position`

	name, err := d.ResolveTableName(rawName)
	if err != nil {
		return nil, err
	}
	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()

	rows, err := d.db.Query(ctx, q, name.Schema, name.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := &schema.Table{
		SchemaName: name.Schema,
		Name:       name.Name,
		FullName:   fullName(name),
	}
	var enumColumns []*schema.Column

	for rows.Next() {
		var (
			c                      schema.Column
			dataType, udtName      string
			def                    *string
			size, precision, scale *int64
			identity               bool
		)
		if err := rows.Scan(&c.Name, &dataType, &udtName, &c.AllowNull, &def,
			&size, &precision, &scale, &identity, &c.Comment); err != nil {
			return nil, err
		}

		c.DBType = dataType
		if dataType == "USER-DEFINED" || dataType == "ARRAY" {
			c.DBType = udtName
		}
		c.Type = typeMap.Lookup(c.DBType)
		if dataType == "ARRAY" {
			c.Type = schema.TypeString
		}
		if size != nil {
			c.Size = int(*size)
		}
		if precision != nil {
			c.Precision = int(*precision)
		}
		if scale != nil {
			c.Scale = int(*scale)
		}

		c.AutoIncrement = identity
		if def != nil {
			if m := sequenceDefault.FindStringSubmatch(*def); m != nil {
				c.AutoIncrement = true
				if table.SequenceName == "" {
					table.SequenceName = m[1]
				}
			} else {
				c.DefaultValue = parseDefault(*def)
			}
		}
		c.ResolveHostType()

		table.Columns = append(table.Columns, &c)
		if dataType == "USER-DEFINED" {
			enumColumns = append(enumColumns, &c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(table.Columns) == 0 {
		return nil, nil
	}

	for _, c := range enumColumns {
		values, err := database.QueryStrings(ctx, d.db, enumQuery, c.DBType)
		if err != nil {
			return nil, err
		}
		if len(values) > 0 {
			c.EnumValues = values
		}
	}

	pk, err := d.primaryKey(ctx, name)
	if err != nil {
		return nil, err
	}
	if pk != nil {
		table.PrimaryKey = pk.Columns
		for _, col := range pk.Columns {
			if c := table.Column(col); c != nil {
				c.IsPrimaryKey = true
			}
		}
	}
	return table, nil
}

const enumQuery = `
	SELECT e.enumlabel::text
	FROM pg_catalog.pg_enum e
	JOIN pg_catalog.pg_type t ON t.oid = e.enumtypid
	WHERE t.typname = $1
	ORDER BY e.enumsortorder`

// loadPrimaryKey returns nil when the table has no primary key.
func (d *Dialect) loadPrimaryKey(ctx context.Context, rawName string) (*schema.Constraint, error) {
	name, err := d.ResolveTableName(rawName)
	if err != nil {
		return nil, err
	}
	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()
	return d.primaryKey(ctx, name)
}

func (d *Dialect) primaryKey(ctx context.Context, name schema.TableName) (*schema.Constraint, error) {
	cs, err := d.constraints(ctx, "PRIMARY KEY", name)
	if err != nil || len(cs) == 0 {
		return nil, err
	}
	return &cs[0], nil
}

func (d *Dialect) loadUniques(ctx context.Context, rawName string) (*schema.Constraints, error) {
	name, err := d.ResolveTableName(rawName)
	if err != nil {
		return nil, err
	}
	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()

	cs, err := d.constraints(ctx, "UNIQUE", name)
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

func (d *Dialect) constraints(ctx context.Context, typ string, name schema.TableName) (schema.Constraints, error) {
	const q = `
		SELECT tc.constraint_name::text,
		       kcu.column_name::text
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema    = kcu.table_schema
		 AND tc.table_name      = kcu.table_name
		WHERE tc.constraint_type = $1
		  AND tc.table_schema    = $2
		  AND tc.table_name      = $3
		ORDER BY tc.constraint_name, kcu.ordinal_position`

	rows, err := d.db.Query(ctx, q, typ, name.Schema, name.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cs := schema.Constraints{}
	for rows.Next() {
		var constraint, column string
		if err := rows.Scan(&constraint, &column); err != nil {
			return nil, err
		}
		cs = cs.AddColumn(constraint, column)
	}
	return cs, rows.Err()
}

func (d *Dialect) loadForeignKeys(ctx context.Context, rawName string) (*schema.ForeignKeys, error) {
	const q = `
		SELECT kcu.constraint_name::text,
		       kcu.column_name::text,
		       ref.table_schema::text,
		       ref.table_name::text,
		       ref.column_name::text,
		       rc.delete_rule::text,
		       rc.update_rule::text
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name   = rc.constraint_name
		 AND kcu.constraint_schema = rc.constraint_schema
		JOIN information_schema.key_column_usage ref
		  ON ref.constraint_name   = rc.unique_constraint_name
		 AND ref.constraint_schema = rc.unique_constraint_schema
		 AND ref.ordinal_position  = kcu.position_in_unique_constraint
		WHERE kcu.table_schema = $1
		  AND kcu.table_name   = $2
		ORDER BY kcu.constraint_name, kcu.ordinal_position`

	name, err := d.ResolveTableName(rawName)
	if err != nil {
		return nil, err
	}
	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()

	rows, err := d.db.Query(ctx, q, name.Schema, name.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := schema.ForeignKeys{}
	for rows.Next() {
		var (
			fk             schema.ForeignKey
			column, refCol string
		)
		if err := rows.Scan(&fk.Name, &column, &fk.ForeignSchema, &fk.ForeignTable,
			&refCol, &fk.OnDelete, &fk.OnUpdate); err != nil {
			return nil, err
		}
		fk.Columns = []string{column}
		fk.ForeignColumns = []string{refCol}
		fks = fks.Merge(fk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &fks, nil
}

// parseDefault strips the type cast PostgreSQL appends to literal defaults.
// NULL defaults return nil; expressions are kept verbatim.
func parseDefault(def string) *string {
	if strings.HasPrefix(def, "NULL::") {
		return nil
	}
	if m := literalDefault.FindStringSubmatch(def); m != nil {
		v := strings.ReplaceAll(m[1], "''", "'")
		return &v
	}
	if m := numericDefault.FindStringSubmatch(def); m != nil {
		return &m[1]
	}
	return &def
}

// fullName omits the default schema, matching how callers usually refer to
// tables in it.
func fullName(n schema.TableName) string {
	if n.Schema == DefaultSchema {
		return n.Name
	}
	return n.Schema + "." + n.Name
}
