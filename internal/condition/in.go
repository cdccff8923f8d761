package condition

import (
	"reflect"
	"strings"

	"github.com/koustreak/dbmeta/internal/errs"
)

// In is an IN or NOT IN condition over one column or a composite of
// columns. Values are either a list or a subquery.
//
// For composite columns each value is a []any in column order or a
// map[string]any keyed by column name.
type In struct {
	columns []string
	op      string
	values  []any
	query   Subquery
}

// NewIn returns column IN (values...).
func NewIn(column string, values ...any) *In {
	return &In{columns: []string{column}, op: "IN", values: cloneValues(values)}
}

// NewNotIn returns column NOT IN (values...).
func NewNotIn(column string, values ...any) *In {
	return &In{columns: []string{column}, op: "NOT IN", values: cloneValues(values)}
}

// NewCompositeIn returns (columns...) op (rows...). op is IN or NOT IN.
func NewCompositeIn(columns []string, op string, rows ...any) *In {
	return &In{columns: append([]string(nil), columns...), op: normalizeOp(op), values: cloneValues(rows)}
}

// NewInQuery returns (columns...) op (subquery).
func NewInQuery(columns []string, op string, q Subquery) *In {
	return &In{columns: append([]string(nil), columns...), op: normalizeOp(op), query: q}
}

// NewInFromOperands builds an In from the two-operand form
// (column-spec, values-spec). The column spec is a name or a []string;
// the values spec is a slice, a Subquery or a single value.
func NewInFromOperands(op string, operands []any) (*In, error) {
	op = normalizeOp(op)
	if len(operands) < 2 {
		return nil, operandCountError(op, 2)
	}

	var columns []string
	switch c := operands[0].(type) {
	case string:
		if c == "" {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "operator %q requires a column name", op)
		}
		columns = []string{c}
	case []string:
		if len(c) == 0 {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "operator %q requires at least one column", op)
		}
		columns = append([]string(nil), c...)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "operator %q: invalid column spec %T", op, operands[0])
	}

	in := &In{columns: columns, op: op}
	if q, ok := operands[1].(Subquery); ok {
		in.query = q
		return in, nil
	}
	in.values = toValues(operands[1])
	return in, nil
}

func inFromOperands(op string, operands []any) (Condition, error) {
	return NewInFromOperands(op, operands)
}

func (c *In) Operator() string { return c.op }

// Column returns the column for a single-column condition, or "" when the
// condition is composite.
func (c *In) Column() string {
	if len(c.columns) != 1 {
		return ""
	}
	return c.columns[0]
}

// Columns returns a copy of the column list.
func (c *In) Columns() []string { return append([]string(nil), c.columns...) }

// Values returns a copy of the value list; nil when the values are a subquery.
func (c *In) Values() []any { return cloneValues(c.values) }

// Query returns the subquery operand, if any.
func (c *In) Query() Subquery { return c.query }

func (c *In) negated() bool { return strings.HasPrefix(c.op, "NOT") }

// Render renders the condition. Empty values render False for IN and True
// for NOT IN, since excluding nothing matches every row.
func (c *In) Render(r Renderer) (string, error) {
	if c.query != nil {
		sub, err := renderSubquery(r, c.query)
		if err != nil {
			return "", err
		}
		return c.columnList(r) + " " + c.op + " " + sub, nil
	}

	if len(c.values) == 0 {
		if c.negated() {
			return True, nil
		}
		return False, nil
	}

	if len(c.columns) > 1 {
		return c.renderComposite(r)
	}
	return c.renderSingle(r)
}

func (c *In) columnList(r Renderer) string {
	if len(c.columns) == 1 {
		return r.QuoteColumn(c.columns[0])
	}
	quoted := make([]string, len(c.columns))
	for i, col := range c.columns {
		quoted[i] = r.QuoteColumn(col)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func (c *In) renderSingle(r Renderer) (string, error) {
	col := r.QuoteColumn(c.columns[0])
	hasNull := false
	var params []string
	for _, v := range c.values {
		if v == nil {
			hasNull = true
			continue
		}
		if q, ok := v.(Subquery); ok {
			sub, err := renderSubquery(r, q)
			if err != nil {
				return "", err
			}
			params = append(params, sub)
			continue
		}
		params = append(params, r.Bind(v))
	}

	not := c.negated()
	var sql string
	switch len(params) {
	case 0:
	case 1:
		eq := "="
		if not {
			eq = "<>"
		}
		sql = col + " " + eq + " " + params[0]
	default:
		sql = col + " " + c.op + " (" + strings.Join(params, ", ") + ")"
	}

	if !hasNull {
		return sql, nil
	}
	isNull := col + " IS NULL"
	if not {
		isNull = col + " IS NOT NULL"
	}
	if sql == "" {
		return isNull, nil
	}
	if not {
		return sql + " AND " + isNull, nil
	}
	return "(" + sql + " OR " + isNull + ")", nil
}

func (c *In) renderComposite(r Renderer) (string, error) {
	rows := make([][]any, 0, len(c.values))
	for _, v := range c.values {
		row, err := c.rowValues(v)
		if err != nil {
			return "", err
		}
		rows = append(rows, row)
	}

	if r.RowValues() {
		tuples := make([]string, len(rows))
		for i, row := range rows {
			params := make([]string, len(row))
			for j, v := range row {
				params[j] = r.Bind(v)
			}
			tuples[i] = "(" + strings.Join(params, ", ") + ")"
		}
		return c.columnList(r) + " " + c.op + " (" + strings.Join(tuples, ", ") + ")", nil
	}

	alternatives := make([]string, len(rows))
	for i, row := range rows {
		terms := make([]string, len(row))
		for j, v := range row {
			col := r.QuoteColumn(c.columns[j])
			if v == nil {
				terms[j] = col + " IS NULL"
			} else {
				terms[j] = col + " = " + r.Bind(v)
			}
		}
		alternatives[i] = "(" + strings.Join(terms, " AND ") + ")"
	}
	sql := strings.Join(alternatives, " OR ")
	if c.negated() {
		return "NOT (" + sql + ")", nil
	}
	if len(alternatives) > 1 {
		return "(" + sql + ")", nil
	}
	return sql, nil
}

func (c *In) rowValues(v any) ([]any, error) {
	switch row := v.(type) {
	case map[string]any:
		out := make([]any, len(c.columns))
		for i, col := range c.columns {
			out[i] = row[col]
		}
		return out, nil
	case []any:
		if len(row) != len(c.columns) {
			return nil, errs.Newf(errs.ErrKindInvalidInput,
				"operator %q: row has %d values for %d columns", c.op, len(row), len(c.columns))
		}
		return row, nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput,
			"operator %q: composite values must be []any or map[string]any, got %T", c.op, v)
	}
}

// toValues turns a values operand into a list. Slices of any element type
// are expanded; anything else, nil included, is a single value.
func toValues(v any) []any {
	switch vs := v.(type) {
	case []any:
		return cloneValues(vs)
	case nil:
		return []any{nil}
	}
	if !isList(v) {
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// isList reports whether v is a slice other than []byte.
func isList(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8
}

func cloneValues(vs []any) []any {
	if vs == nil {
		return nil
	}
	return append([]any(nil), vs...)
}
