package condition

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/koustreak/dbmeta/internal/errs"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Like matches a column against one or more patterns. LIKE and NOT LIKE
// join the patterns with AND; OR LIKE and OR NOT LIKE join them with OR.
// Values are escaped and wrapped in "%" unless built with NewRawLike.
type Like struct {
	column string
	op     string
	values []string
	raw    bool
}

// NewLike returns a condition matching values anywhere in column.
func NewLike(column, op string, values ...string) *Like {
	return &Like{column: column, op: normalizeOp(op), values: append([]string(nil), values...)}
}

// NewRawLike is NewLike with values used as patterns verbatim.
func NewRawLike(column, op string, patterns ...string) *Like {
	l := NewLike(column, op, patterns...)
	l.raw = true
	return l
}

func likeFromOperands(op string, operands []any) (Condition, error) {
	if len(operands) < 2 {
		return nil, operandCountError(op, 2)
	}
	column, err := columnName(op, operands[0])
	if err != nil {
		return nil, err
	}
	values, err := cast.ToStringSliceE(toValues(operands[1]))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "operator \""+op+"\" requires string values", err)
	}
	return NewLike(column, op, values...), nil
}

func (c *Like) Operator() string { return c.op }

// Render renders the condition. With no values LIKE renders False and the
// negated forms render True.
func (c *Like) Render(r Renderer) (string, error) {
	not := strings.Contains(c.op, "NOT")
	if len(c.values) == 0 {
		if not {
			return True, nil
		}
		return False, nil
	}

	join := " AND "
	match := strings.TrimPrefix(c.op, "OR ")
	if match != c.op {
		join = " OR "
	}

	col := r.QuoteColumn(c.column)
	parts := make([]string, len(c.values))
	for i, v := range c.values {
		if c.raw {
			parts[i] = col + " " + match + " " + r.Bind(v)
			continue
		}
		parts[i] = col + " " + match + " " + r.Bind("%"+likeEscaper.Replace(v)+"%")
		if r.LikeEscape() {
			parts[i] += ` ESCAPE '\'`
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, join) + ")", nil
}
