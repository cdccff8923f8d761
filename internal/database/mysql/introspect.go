package mysql

import (
	"context"
	"strings"

	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/schema"
)

// loadTableSchema reads a table's columns. Primary key membership comes
// from column_key, so no second query is needed. A table without columns
// does not exist.
func (d *Dialect) loadTableSchema(ctx context.Context, rawName string) (*schema.Table, error) {
	const q = `
		SELECT column_name,
		       column_type,
		       is_nullable = 'YES',
		       column_default,
		       extra,
		       column_key,
		       column_comment
		FROM information_schema.columns
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND table_name   = ?
		ORDER BY ordinal_position`

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

	table := &schema.Table{SchemaName: name.Schema, Name: name.Name, FullName: name.FullName()}
	for rows.Next() {
		var (
			c                schema.Column
			def              *string
			extra, columnKey string
		)
		if err := rows.Scan(&c.Name, &c.DBType, &c.AllowNull, &def, &extra, &columnKey, &c.Comment); err != nil {
			return nil, err
		}

		lower := strings.ToLower(c.DBType)
		c.Type = typeMap.Lookup(lower)
		if strings.HasPrefix(lower, "tinyint(1)") || strings.HasPrefix(lower, "bit(1)") {
			c.Type = schema.TypeBoolean
		}
		c.Unsigned = strings.Contains(lower, "unsigned")
		c.Size, c.Precision, c.Scale, c.EnumValues = schema.ParseSize(c.DBType)
		c.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		c.DefaultValue = parseDefault(def, c.AllowNull)
		c.IsPrimaryKey = columnKey == "PRI"
		c.ResolveHostType()

		if c.IsPrimaryKey {
			table.PrimaryKey = append(table.PrimaryKey, c.Name)
		}
		table.Columns = append(table.Columns, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(table.Columns) == 0 {
		return nil, nil
	}
	return table, nil
}

// loadPrimaryKey returns nil when the table has no primary key.
func (d *Dialect) loadPrimaryKey(ctx context.Context, rawName string) (*schema.Constraint, error) {
	cs, err := d.constraints(ctx, "PRIMARY KEY", rawName)
	if err != nil || len(cs) == 0 {
		return nil, err
	}
	return &cs[0], nil
}

func (d *Dialect) loadUniques(ctx context.Context, rawName string) (*schema.Constraints, error) {
	cs, err := d.constraints(ctx, "UNIQUE", rawName)
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

func (d *Dialect) constraints(ctx context.Context, typ, rawName string) (schema.Constraints, error) {
	const q = `
		SELECT kcu.constraint_name,
		       kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name   = kcu.constraint_name
		 AND tc.constraint_schema = kcu.constraint_schema
		 AND tc.table_name        = kcu.table_name
		WHERE tc.constraint_type = ?
		  AND tc.table_schema    = COALESCE(NULLIF(?, ''), DATABASE())
		  AND tc.table_name      = ?
		ORDER BY kcu.constraint_name, kcu.ordinal_position`

	name, err := d.ResolveTableName(rawName)
	if err != nil {
		return nil, err
	}
	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()

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
		SELECT kcu.constraint_name,
		       kcu.column_name,
		       kcu.referenced_table_schema,
		       kcu.referenced_table_name,
		       kcu.referenced_column_name,
		       rc.delete_rule,
		       rc.update_rule
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
		  ON rc.constraint_name   = kcu.constraint_name
		 AND rc.constraint_schema = kcu.constraint_schema
		 AND rc.table_name        = kcu.table_name
		WHERE kcu.table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND kcu.table_name   = ?
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

// parseDefault normalizes column_default. MariaDB reports literal defaults
// quoted and a NULL default as the string NULL; MySQL does neither.
func parseDefault(def *string, allowNull bool) *string {
	if def == nil {
		return nil
	}
	v := *def
	if allowNull && v == "NULL" {
		return nil
	}
	if len(v) >= 2 && strings.HasPrefix(v, "'") && strings.HasSuffix(v, "'") {
		v = strings.ReplaceAll(v[1:len(v)-1], "''", "'")
	}
	return &v
}
