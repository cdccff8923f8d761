// Package schema holds the table metadata model shared by every dialect:
// tables, columns, constraints, the abstract column type system and
// identifier quoting.
package schema

// Column describes a single column in a table
type Column struct {
	Name          string   `json:"name"`
	DBType        string   `json:"db_type"`   // type as reported by the DBMS, e.g. "int(11) unsigned"
	Type          Abstract `json:"type"`      // abstract type, e.g. "integer"
	HostType      HostType `json:"host_type"` // Go-side representation of values
	AllowNull     bool     `json:"allow_null"`
	DefaultValue  *string  `json:"default_value,omitempty"` // nil if no default
	EnumValues    []string `json:"enum_values,omitempty"`
	Size          int      `json:"size,omitempty"`
	Precision     int      `json:"precision,omitempty"`
	Scale         int      `json:"scale,omitempty"`
	IsPrimaryKey  bool     `json:"is_primary_key"`
	AutoIncrement bool     `json:"auto_increment"`
	Unsigned      bool     `json:"unsigned"`
	Comment       string   `json:"comment,omitempty"`
}

// Table is the structural metadata of one table
type Table struct {
	SchemaName   string       `json:"schema_name,omitempty"`
	Name         string       `json:"name"`
	FullName     string       `json:"full_name"`
	PrimaryKey   []string     `json:"primary_key,omitempty"`
	SequenceName string       `json:"sequence_name,omitempty"`
	Columns      []*Column    `json:"columns"`
	ForeignKeys  []ForeignKey `json:"foreign_keys,omitempty"`
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnNames returns column names in ordinal order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ForeignKey describes a relationship from this table to another
type ForeignKey struct {
	Name           string   `json:"name,omitempty"`
	Columns        []string `json:"columns"`
	ForeignSchema  string   `json:"foreign_schema,omitempty"`
	ForeignTable   string   `json:"foreign_table"`
	ForeignColumns []string `json:"foreign_columns"`
	OnDelete       string   `json:"on_delete,omitempty"`
	OnUpdate       string   `json:"on_update,omitempty"`
}

// Constraint is a named set of columns: a primary key or unique constraint.
type Constraint struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
}

// ForeignKeys is the foreignKeys metadata value of a table.
type ForeignKeys []ForeignKey

// Constraints is the uniques metadata value of a table.
type Constraints []Constraint

// AddColumn appends column to the constraint called name, adding the
// constraint at the end when it is not present yet. Catalog rows arrive one
// column at a time; feeding them in order keeps column order.
func (cs Constraints) AddColumn(name, column string) Constraints {
	for i := range cs {
		if cs[i].Name == name {
			cs[i].Columns = append(cs[i].Columns, column)
			return cs
		}
	}
	return append(cs, Constraint{Name: name, Columns: []string{column}})
}

// Merge adds fk, folding its column pairs into an existing foreign key of
// the same non-empty name.
func (fks ForeignKeys) Merge(fk ForeignKey) ForeignKeys {
	if fk.Name != "" {
		for i := range fks {
			if fks[i].Name == fk.Name {
				fks[i].Columns = append(fks[i].Columns, fk.Columns...)
				fks[i].ForeignColumns = append(fks[i].ForeignColumns, fk.ForeignColumns...)
				return fks
			}
		}
	}
	return append(fks, fk)
}

// TableName is a table reference split into its qualifiers.
type TableName struct {
	Catalog string `json:"catalog,omitempty"`
	Schema  string `json:"schema,omitempty"`
	Name    string `json:"name"`
}

// FullName joins the non-empty qualifiers with ".".
func (n TableName) FullName() string {
	full := n.Name
	if n.Schema != "" {
		full = n.Schema + "." + full
	}
	if n.Catalog != "" {
		full = n.Catalog + "." + full
	}
	return full
}
