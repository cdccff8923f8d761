package condition

import (
	"strings"

	"github.com/koustreak/dbmeta/internal/errs"
)

// Conjunction joins conditions with AND or OR. Parts that render empty are
// dropped.
type Conjunction struct {
	op    string
	parts []Condition
}

// And returns the conjunction of conds.
func And(conds ...Condition) *Conjunction {
	return &Conjunction{op: "AND", parts: append([]Condition(nil), conds...)}
}

// Or returns the disjunction of conds.
func Or(conds ...Condition) *Conjunction {
	return &Conjunction{op: "OR", parts: append([]Condition(nil), conds...)}
}

// Each operand is a Condition, an array form or a hash map.
func conjunctionFromOperands(op string, operands []any) (Condition, error) {
	parts := make([]Condition, 0, len(operands))
	for _, o := range operands {
		c, err := toCondition(o)
		if err != nil {
			return nil, err
		}
		parts = append(parts, c)
	}
	return &Conjunction{op: op, parts: parts}, nil
}

func (c *Conjunction) Operator() string { return c.op }

func (c *Conjunction) Render(r Renderer) (string, error) {
	rendered := make([]string, 0, len(c.parts))
	for _, p := range c.parts {
		sql, err := p.Render(r)
		if err != nil {
			return "", err
		}
		if sql != "" {
			rendered = append(rendered, sql)
		}
	}
	switch len(rendered) {
	case 0:
		return "", nil
	case 1:
		return rendered[0], nil
	}
	return "(" + strings.Join(rendered, ") "+c.op+" (") + ")", nil
}

// Not negates a condition.
type Not struct {
	cond Condition
}

func NewNot(c Condition) *Not {
	return &Not{cond: c}
}

func notFromOperands(op string, operands []any) (Condition, error) {
	if len(operands) != 1 {
		return nil, operandCountError(op, 1)
	}
	c, err := toCondition(operands[0])
	if err != nil {
		return nil, err
	}
	return NewNot(c), nil
}

func (c *Not) Operator() string { return "NOT" }

func (c *Not) Render(r Renderer) (string, error) {
	sql, err := c.cond.Render(r)
	if err != nil || sql == "" {
		return "", err
	}
	return "NOT (" + sql + ")", nil
}

// Exists is EXISTS (subquery) or NOT EXISTS (subquery).
type Exists struct {
	op    string
	query Subquery
}

// NewExists returns op (q). op is EXISTS or NOT EXISTS.
func NewExists(op string, q Subquery) *Exists {
	return &Exists{op: normalizeOp(op), query: q}
}

func existsFromOperands(op string, operands []any) (Condition, error) {
	if len(operands) != 1 {
		return nil, operandCountError(op, 1)
	}
	q, ok := operands[0].(Subquery)
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "operator %q requires a subquery, got %T", op, operands[0])
	}
	return NewExists(op, q), nil
}

func (c *Exists) Operator() string { return c.op }

func (c *Exists) Render(r Renderer) (string, error) {
	sub, err := renderSubquery(r, c.query)
	if err != nil {
		return "", err
	}
	return c.op + " " + sub, nil
}
