package sqlite

import (
	"context"
	"sort"
	"strings"

	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/schema"
)

type pragmaColumn struct {
	name    string
	dbType  string
	notNull bool
	def     *string
	pkOrder int
}

func (d *Dialect) tableInfo(ctx context.Context, name schema.TableName) ([]pragmaColumn, error) {
	rows, err := d.db.Query(ctx, d.pragma("table_info", name.Schema, name.Name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []pragmaColumn
	for rows.Next() {
		var (
			cid int
			c   pragmaColumn
		)
		if err := rows.Scan(&cid, &c.name, &c.dbType, &c.notNull, &c.def, &c.pkOrder); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// primaryKeyColumns returns the key columns in key order.
func primaryKeyColumns(cols []pragmaColumn) []string {
	var pk []pragmaColumn
	for _, c := range cols {
		if c.pkOrder > 0 {
			pk = append(pk, c)
		}
	}
	sort.Slice(pk, func(i, j int) bool { return pk[i].pkOrder < pk[j].pkOrder })
	names := make([]string, len(pk))
	for i, c := range pk {
		names[i] = c.name
	}
	return names
}

// loadTableSchema reads PRAGMA table_info. A table without columns does not
// exist. A single INTEGER primary key aliases the rowid and auto-increments.
func (d *Dialect) loadTableSchema(ctx context.Context, rawName string) (*schema.Table, error) {
	name, err := d.ResolveTableName(rawName)
	if err != nil {
		return nil, err
	}
	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()

	cols, err := d.tableInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, nil
	}

	table := &schema.Table{
		SchemaName: name.Schema,
		Name:       name.Name,
		FullName:   name.FullName(),
		PrimaryKey: primaryKeyColumns(cols),
	}
	for _, pc := range cols {
		c := &schema.Column{
			Name:         pc.name,
			DBType:       strings.ToLower(pc.dbType),
			AllowNull:    !pc.notNull,
			IsPrimaryKey: pc.pkOrder > 0,
			DefaultValue: parseDefault(pc.def),
		}
		c.Type = typeMap.Lookup(c.DBType)
		c.Unsigned = strings.Contains(c.DBType, "unsigned")
		c.Size, c.Precision, c.Scale, c.EnumValues = schema.ParseSize(c.DBType)
		if c.IsPrimaryKey && len(table.PrimaryKey) == 1 && c.DBType == "integer" {
			c.AutoIncrement = true
			c.AllowNull = false
		}
		c.ResolveHostType()
		table.Columns = append(table.Columns, c)
	}
	return table, nil
}

// loadPrimaryKey returns nil when the table has no declared primary key.
// SQLite does not name primary keys.
func (d *Dialect) loadPrimaryKey(ctx context.Context, rawName string) (*schema.Constraint, error) {
	name, err := d.ResolveTableName(rawName)
	if err != nil {
		return nil, err
	}
	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()

	cols, err := d.tableInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	pk := primaryKeyColumns(cols)
	if len(pk) == 0 {
		return nil, nil
	}
	return &schema.Constraint{Columns: pk}, nil
}

// loadUniques reads unique indexes, including those backing UNIQUE
// constraints, but not the primary key index.
func (d *Dialect) loadUniques(ctx context.Context, rawName string) (*schema.Constraints, error) {
	name, err := d.ResolveTableName(rawName)
	if err != nil {
		return nil, err
	}
	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()

	indexes, err := d.uniqueIndexes(ctx, name)
	if err != nil {
		return nil, err
	}

	cs := schema.Constraints{}
	for _, index := range indexes {
		rows, err := d.db.Query(ctx, d.pragma("index_info", name.Schema, index))
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var (
				seqno, cid int
				column     string
			)
			if err := rows.Scan(&seqno, &cid, &column); err != nil {
				rows.Close()
				return nil, err
			}
			cs = cs.AddColumn(index, column)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return &cs, nil
}

// uniqueIndexes lists unique, non primary key index names. The result set
// is closed before returning so an in-memory database pinned to one
// connection can run the next PRAGMA.
func (d *Dialect) uniqueIndexes(ctx context.Context, name schema.TableName) ([]string, error) {
	rows, err := d.db.Query(ctx, d.pragma("index_list", name.Schema, name.Name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var (
			seq             int
			index, origin   string
			unique, partial bool
		)
		if err := rows.Scan(&seq, &index, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		if unique && origin != "pk" {
			names = append(names, index)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// loadForeignKeys reads PRAGMA foreign_key_list. SQLite does not name
// foreign keys; rows are grouped by their id. A reference without target
// columns points at the referenced table's primary key.
func (d *Dialect) loadForeignKeys(ctx context.Context, rawName string) (*schema.ForeignKeys, error) {
	name, err := d.ResolveTableName(rawName)
	if err != nil {
		return nil, err
	}
	ctx, cancel := database.WithTimeout(ctx, d.cfg)
	defer cancel()

	rows, err := d.db.Query(ctx, d.pragma("foreign_key_list", name.Schema, name.Name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := schema.ForeignKeys{}
	byID := make(map[int]int)
	var implicit []int
	for rows.Next() {
		var (
			id, seq                 int
			table, from             string
			to                      *string
			onUpdate, onDelete, mtc string
		)
		if err := rows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &mtc); err != nil {
			return nil, err
		}
		i, ok := byID[id]
		if !ok {
			i = len(fks)
			byID[id] = i
			fks = append(fks, schema.ForeignKey{
				ForeignSchema: name.Schema,
				ForeignTable:  table,
				OnDelete:      onDelete,
				OnUpdate:      onUpdate,
			})
		}
		fks[i].Columns = append(fks[i].Columns, from)
		if to == nil {
			if len(implicit) == 0 || implicit[len(implicit)-1] != i {
				implicit = append(implicit, i)
			}
			continue
		}
		fks[i].ForeignColumns = append(fks[i].ForeignColumns, *to)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, i := range implicit {
		cols, err := d.tableInfo(ctx, schema.TableName{Schema: name.Schema, Name: fks[i].ForeignTable})
		if err != nil {
			return nil, err
		}
		fks[i].ForeignColumns = primaryKeyColumns(cols)
	}
	return &fks, nil
}

// parseDefault unquotes string literal defaults. A NULL default is nil.
func parseDefault(def *string) *string {
	if def == nil || strings.EqualFold(*def, "NULL") {
		return nil
	}
	v := *def
	if len(v) >= 2 {
		if q := v[0]; (q == '\'' || q == '"') && v[len(v)-1] == q {
			v = strings.ReplaceAll(v[1:len(v)-1], string([]byte{q, q}), string(q))
		}
	}
	return &v
}
