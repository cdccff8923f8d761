package condition

import (
	"strings"

	"github.com/koustreak/dbmeta/internal/errs"
)

var comparisonOps = map[string]bool{
	"=":  true,
	"!=": true,
	"<>": true,
	"<":  true,
	">":  true,
	"<=": true,
	">=": true,
}

// Simple compares a column with a value or subquery.
type Simple struct {
	column string
	op     string
	value  any
}

// NewSimple returns column op value. op must be a comparison operator.
func NewSimple(column, op string, value any) (*Simple, error) {
	op = normalizeOp(op)
	if !comparisonOps[op] {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported comparison operator %q", op)
	}
	if column == "" {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "operator %q requires a column name", op)
	}
	return &Simple{column: column, op: op, value: value}, nil
}

// Eq returns column = value.
func Eq(column string, value any) *Simple {
	return &Simple{column: column, op: "=", value: value}
}

func simpleFromOperands(op string, operands []any) (Condition, error) {
	if len(operands) != 2 {
		return nil, operandCountError(op, 2)
	}
	column, err := columnName(op, operands[0])
	if err != nil {
		return nil, err
	}
	return NewSimple(column, op, operands[1])
}

func (c *Simple) Operator() string { return c.op }

// Render renders the comparison. A nil value renders IS NULL for "=" and
// IS NOT NULL for "!=" and "<>".
func (c *Simple) Render(r Renderer) (string, error) {
	col := r.QuoteColumn(c.column)
	switch v := c.value.(type) {
	case nil:
		switch c.op {
		case "=":
			return col + " IS NULL", nil
		case "!=", "<>":
			return col + " IS NOT NULL", nil
		}
		return "", errs.Newf(errs.ErrKindInvalidInput, "cannot compare %s %s NULL", c.column, c.op)
	case Subquery:
		sub, err := renderSubquery(r, v)
		if err != nil {
			return "", err
		}
		return col + " " + c.op + " " + sub, nil
	default:
		return col + " " + c.op + " " + r.Bind(v), nil
	}
}

// Hash is an AND of column = value pairs. A nil value renders IS NULL and a
// slice value renders IN.
type Hash struct {
	values map[string]any
}

// NewHash returns the hash condition for values. The map is copied.
func NewHash(values map[string]any) *Hash {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Hash{values: cp}
}

func (c *Hash) Operator() string { return "HASH" }

// Render renders the pairs in column name order.
func (c *Hash) Render(r Renderer) (string, error) {
	parts := make([]string, 0, len(c.values))
	for _, column := range sortedKeys(c.values) {
		var cond Condition
		switch v := c.values[column].(type) {
		case Subquery:
			cond = NewInQuery([]string{column}, "IN", v)
		case nil:
			cond = Eq(column, nil)
		default:
			if isList(v) {
				cond = &In{columns: []string{column}, op: "IN", values: toValues(v)}
			} else {
				cond = Eq(column, v)
			}
		}
		sql, err := cond.Render(r)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return strings.Join(parts, " AND "), nil
}

// Between is column BETWEEN start AND end, or NOT BETWEEN.
type Between struct {
	column     string
	op         string
	start, end any
}

// NewBetween returns column op start AND end. op is BETWEEN or NOT BETWEEN.
func NewBetween(column, op string, start, end any) *Between {
	return &Between{column: column, op: normalizeOp(op), start: start, end: end}
}

func betweenFromOperands(op string, operands []any) (Condition, error) {
	if len(operands) < 3 {
		return nil, operandCountError(op, 3)
	}
	column, err := columnName(op, operands[0])
	if err != nil {
		return nil, err
	}
	return NewBetween(column, op, operands[1], operands[2]), nil
}

func (c *Between) Operator() string { return c.op }

func (c *Between) Render(r Renderer) (string, error) {
	return r.QuoteColumn(c.column) + " " + c.op + " " + r.Bind(c.start) + " AND " + r.Bind(c.end), nil
}
