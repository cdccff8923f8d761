package sqlserver

import (
	"context"
	"strings"

	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/schema"
)

// loadTableSchema reads a table's columns and primary key. A table without
// columns does not exist.
func (d *Dialect) loadTableSchema(ctx context.Context, rawName string) (*schema.Table, error) {
	name, err := d.ResolveTableName(rawName)
	if err != nil {
		return nil, err
	}
	prefix := catalogPrefix(name)
	q := `
		SELECT c.column_name,
		       c.data_type,
		       CASE WHEN c.is_nullable = 'YES' THEN 1 ELSE 0 END,
		       c.column_default,
		       c.character_maximum_length,
		       c.numeric_precision,
		       c.numeric_scale,
		       COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.table_catalog) + '.' + QUOTENAME(c.table_schema) + '.' + QUOTENAME(c.table_name)),
		                      c.column_name, 'IsIdentity')
		FROM ` + prefix + `information_schema.columns c
		WHERE c.table_schema = @p1
		  AND c.table_name   = @p2
		ORDER BY c.ordinal_position`

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
	for rows.Next() {
		var (
			c                                schema.Column
			def                              *string
			size, precision, scale, identity *int64
		)
		if err := rows.Scan(&c.Name, &c.DBType, &c.AllowNull, &def,
			&size, &precision, &scale, &identity); err != nil {
			return nil, err
		}

		c.Type = typeMap.Lookup(c.DBType)
		if size != nil && *size > 0 {
			c.Size = int(*size)
		}
		if precision != nil {
			c.Precision = int(*precision)
		}
		if scale != nil {
			c.Scale = int(*scale)
		}
		c.AutoIncrement = identity != nil && *identity == 1
		c.DefaultValue = parseDefault(def)
		c.ResolveHostType()
		table.Columns = append(table.Columns, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(table.Columns) == 0 {
		return nil, nil
	}

	cs, err := d.constraints(ctx, "PRIMARY KEY", name)
	if err != nil {
		return nil, err
	}
	if len(cs) > 0 {
		table.PrimaryKey = cs[0].Columns
		for _, col := range cs[0].Columns {
			if c := table.Column(col); c != nil {
				c.IsPrimaryKey = true
			}
		}
	}
	return table, nil
}

// loadPrimaryKey returns nil when the table has no primary key.
func (d *Dialect) loadPrimaryKey(ctx context.Context, rawName string) (*schema.Constraint, error) {
	name, err := d.ResolveTableName(rawName)
	if err != nil {
		return nil, err
	}
	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()

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
	prefix := catalogPrefix(name)
	q := `
		SELECT kcu.constraint_name,
		       kcu.column_name
		FROM ` + prefix + `information_schema.table_constraints tc
		JOIN ` + prefix + `information_schema.key_column_usage kcu
		  ON tc.constraint_name   = kcu.constraint_name
		 AND tc.constraint_schema = kcu.constraint_schema
		 AND tc.table_name        = kcu.table_name
		WHERE tc.constraint_type = @p1
		  AND tc.table_schema    = @p2
		  AND tc.table_name      = @p3
		ORDER BY kcu.constraint_name, kcu.ordinal_position`

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
	name, err := d.ResolveTableName(rawName)
	if err != nil {
		return nil, err
	}
	prefix := catalogPrefix(name)
	q := `
		SELECT kcu.constraint_name,
		       kcu.column_name,
		       ref.table_schema,
		       ref.table_name,
		       ref.column_name,
		       rc.delete_rule,
		       rc.update_rule
		FROM ` + prefix + `information_schema.referential_constraints rc
		JOIN ` + prefix + `information_schema.key_column_usage kcu
		  ON kcu.constraint_name   = rc.constraint_name
		 AND kcu.constraint_schema = rc.constraint_schema
		JOIN ` + prefix + `information_schema.key_column_usage ref
		  ON ref.constraint_name   = rc.unique_constraint_name
		 AND ref.constraint_schema = rc.unique_constraint_schema
		 AND ref.ordinal_position  = kcu.ordinal_position
		WHERE kcu.table_schema = @p1
		  AND kcu.table_name   = @p2
		ORDER BY kcu.constraint_name, kcu.ordinal_position`

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

// parseDefault strips the parentheses SQL Server wraps defaults in and
// unquotes string literals, e.g. "((0))" -> "0", "(N'abc')" -> "abc".
// Expressions such as "(getdate())" keep their inner text.
func parseDefault(def *string) *string {
	if def == nil {
		return nil
	}
	v := *def
	for len(v) >= 2 && v[0] == '(' && v[len(v)-1] == ')' && balanced(v[1:len(v)-1]) {
		v = v[1 : len(v)-1]
	}
	if strings.EqualFold(v, "NULL") {
		return nil
	}
	lit := strings.TrimPrefix(v, "N")
	if len(lit) >= 2 && lit[0] == '\'' && lit[len(lit)-1] == '\'' {
		v = strings.ReplaceAll(lit[1:len(lit)-1], "''", "'")
	}
	return &v
}

// balanced reports whether s has no unmatched parenthesis, so that
// "(a) + (b)" is not mistaken for one wrapped expression.
func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func fullName(n schema.TableName) string {
	full := n.Name
	if n.Schema != DefaultSchema {
		full = n.Schema + "." + full
	}
	if n.Catalog != "" {
		full = n.Catalog + "." + n.Schema + "." + n.Name
	}
	return full
}
