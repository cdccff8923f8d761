// Package query builds parameterized SELECT statements. Values are never
// interpolated into the SQL string; they are always returned as args.
package query

import (
	"fmt"
	"strings"

	"github.com/koustreak/dbmeta/internal/condition"
	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/schema"
)

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
//
// Usage (Postgres):
//
//	sql, args, err := query.Select("users", postgres.QueryDialect("")).
//	    Columns("id", "name", "email").
//	    Where(condition.NewIn("status", "active", "pending")).
//	    OrderBy("created_at", query.Desc).
//	    Limit(20).
//	    Offset(0).
//	    Build()
type SelectBuilder struct {
	table   string
	dialect Dialect
	columns []string
	where   []condition.Condition
	orderBy []orderClause
	limit   *int
	offset  *int
	err     error
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type orderClause struct {
	column string
	dir    SortDirection
}

var _ condition.Subquery = (*SelectBuilder)(nil)

// Select starts a new SelectBuilder for the given table and dialect.
func Select(table string, d Dialect) *SelectBuilder {
	return &SelectBuilder{table: table, dialect: d}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds a condition. Multiple calls are combined with AND.
func (b *SelectBuilder) Where(c condition.Condition) *SelectBuilder {
	b.where = append(b.where, c)
	return b
}

// WhereArray adds a condition given in array form, e.g.
// []any{"IN", "id", []int{1, 2}}. A malformed array fails Build.
func (b *SelectBuilder) WhereArray(arr ...any) *SelectBuilder {
	c, err := condition.FromArray(arr)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return b
	}
	return b.Where(c)
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip (for pagination).
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Build produces the final SQL string and argument slice.
func (b *SelectBuilder) Build() (string, []any, error) {
	r := newRenderer(b.dialect)
	sql, err := b.RenderSQL(r)
	if err != nil {
		return "", nil, err
	}
	return sql, r.args, nil
}

// RenderSQL renders the statement through r, so that a builder used as a
// subquery shares the outer statement's parameter sequence.
func (b *SelectBuilder) RenderSQL(r condition.Renderer) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.table == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "select requires a table")
	}

	// --- column list ---
	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = r.QuoteColumn(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(r.QuoteTable(b.table))

	// --- WHERE ---
	if len(b.where) > 0 {
		where, err := condition.And(b.where...).Render(r)
		if err != nil {
			return "", err
		}
		if where != "" {
			sb.WriteString(" WHERE ")
			sb.WriteString(where)
		}
	}

	// --- ORDER BY ---
	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", r.QuoteColumn(o.column), dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	// --- LIMIT / OFFSET ---
	if b.limit == nil && b.offset == nil {
		return sb.String(), nil
	}
	if b.dialect.Paging == OffsetFetch {
		if len(b.orderBy) == 0 {
			sb.WriteString(" ORDER BY (SELECT NULL)")
		}
		offset := 0
		if b.offset != nil {
			offset = *b.offset
		}
		sb.WriteString(" OFFSET " + r.Bind(offset) + " ROWS")
		if b.limit != nil {
			sb.WriteString(" FETCH NEXT " + r.Bind(*b.limit) + " ROWS ONLY")
		}
		return sb.String(), nil
	}
	if b.limit != nil {
		sb.WriteString(" LIMIT " + r.Bind(*b.limit))
	}
	if b.offset != nil {
		sb.WriteString(" OFFSET " + r.Bind(*b.offset))
	}
	return sb.String(), nil
}

// Dialect controls quoting, placeholders and paging.
type Dialect struct {
	Quoter      *schema.Quoter
	Placeholder Placeholder
	// RowValues is set when the DBMS accepts (a, b) IN ((1, 2)).
	RowValues bool
	// LikeEscape is set when backslash is not the default LIKE escape.
	LikeEscape bool
	Paging     Paging
}

// Placeholder returns the n-th (1-based) parameter placeholder.
type Placeholder func(n int) string

// Dollar renders $1, $2, …
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Question renders ? (index is ignored).
func Question(int) string { return "?" }

// AtP renders @p1, @p2, …
func AtP(n int) string { return fmt.Sprintf("@p%d", n) }

// Paging selects the LIMIT/OFFSET syntax.
type Paging int

const (
	LimitOffset Paging = iota
	OffsetFetch        // OFFSET n ROWS FETCH NEXT m ROWS ONLY
)

// renderer implements condition.Renderer for one statement.
type renderer struct {
	d    Dialect
	args []any
}

func newRenderer(d Dialect) *renderer {
	if d.Quoter == nil {
		d.Quoter = schema.NewQuoter(schema.Symmetric(`"`), "")
	}
	if d.Placeholder == nil {
		d.Placeholder = Question
	}
	return &renderer{d: d}
}

func (r *renderer) QuoteColumn(name string) string { return r.d.Quoter.QuoteColumnName(name) }

func (r *renderer) QuoteTable(name string) string {
	return r.d.Quoter.QuoteTableName(r.d.Quoter.RawTableName(name))
}

func (r *renderer) Bind(v any) string {
	r.args = append(r.args, v)
	return r.d.Placeholder(len(r.args))
}

func (r *renderer) RowValues() bool { return r.d.RowValues }

func (r *renderer) LikeEscape() bool { return r.d.LikeEscape }
