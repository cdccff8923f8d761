// Package condition holds the query predicate AST consumed by SQL builders.
//
// Nodes are immutable once constructed. Every variant implements Condition
// and can be built from the generic array form
//
//	[]any{"IN", "status", []any{"active", "pending"}}
//
// through FromArray, which dispatches on the operator to the variant's own
// operand constructor. Rendering is delegated to a Renderer supplied by the
// query builder, which owns quoting and parameter binding.
package condition

import (
	"fmt"
	"sort"
	"strings"

	"github.com/koustreak/dbmeta/internal/errs"
)

// Condition is a renderable predicate.
type Condition interface {
	// Operator returns the operator the condition was built with, upper case.
	Operator() string
	// Render returns the SQL fragment for the condition. An empty string
	// means the condition constrains nothing and should be omitted.
	Render(r Renderer) (string, error)
}

// Renderer is implemented by query builders.
type Renderer interface {
	QuoteColumn(name string) string
	QuoteTable(name string) string
	// Bind records value as a parameter and returns its placeholder.
	Bind(value any) string
	// RowValues reports whether the DBMS supports (a, b) IN ((1, 2)).
	RowValues() bool
	// LikeEscape reports whether escaped LIKE patterns need an explicit
	// ESCAPE '\' clause, i.e. backslash is not the default escape.
	LikeEscape() bool
}

// Subquery is a statement usable as an operand, e.g. IN (SELECT ...).
// It renders through the outer Renderer so parameters share one sequence.
type Subquery interface {
	RenderSQL(r Renderer) (string, error)
}

// Always-false and always-true predicates.
const (
	False = "0=1"
	True  = "1=1"
)

// FromOperandsFunc builds a condition from its operator and operands.
type FromOperandsFunc func(op string, operands []any) (Condition, error)

var builders map[string]FromOperandsFunc

func init() {
	builders = map[string]FromOperandsFunc{
		"AND":         conjunctionFromOperands,
		"OR":          conjunctionFromOperands,
		"NOT":         notFromOperands,
		"IN":          inFromOperands,
		"NOT IN":      inFromOperands,
		"BETWEEN":     betweenFromOperands,
		"NOT BETWEEN": betweenFromOperands,
		"LIKE":        likeFromOperands,
		"NOT LIKE":    likeFromOperands,
		"OR LIKE":     likeFromOperands,
		"OR NOT LIKE": likeFromOperands,
		"ILIKE":       likeFromOperands,
		"NOT ILIKE":   likeFromOperands,
		"EXISTS":      existsFromOperands,
		"NOT EXISTS":  existsFromOperands,
	}
	for op := range comparisonOps {
		builders[op] = simpleFromOperands
	}
}

// Register adds a builder for a custom operator. It must be called during
// package initialization; the operator table is not synchronized.
func Register(op string, fn FromOperandsFunc) {
	builders[normalizeOp(op)] = fn
}

// FromArray builds a condition from the array form []any{op, operands...}.
// A single map[string]any element builds a Hash condition.
func FromArray(arr []any) (Condition, error) {
	if len(arr) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "empty condition array")
	}
	if len(arr) == 1 {
		if m, ok := arr[0].(map[string]any); ok {
			return NewHash(m), nil
		}
	}
	op, ok := arr[0].(string)
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "condition operator must be a string, got %T", arr[0])
	}
	op = normalizeOp(op)
	fn, ok := builders[op]
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown condition operator %q", op)
	}
	return fn(op, arr[1:])
}

// toCondition accepts a Condition, an array form or a hash map.
func toCondition(v any) (Condition, error) {
	switch c := v.(type) {
	case Condition:
		return c, nil
	case []any:
		return FromArray(c)
	case map[string]any:
		return NewHash(c), nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%T is not a condition", v)
	}
}

func normalizeOp(op string) string {
	return strings.Join(strings.Fields(strings.ToUpper(op)), " ")
}

func operandCountError(op string, want int) error {
	noun := "operands"
	if want == 1 {
		noun = "operand"
	}
	return errs.Newf(errs.ErrKindInvalidInput, "operator %q requires %d %s", op, want, noun)
}

func columnName(op string, v any) (string, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errs.Newf(errs.ErrKindInvalidInput, "operator %q requires a column name, got %T", op, v)
	}
	return s, nil
}

func renderSubquery(r Renderer, q Subquery) (string, error) {
	sql, err := q.RenderSQL(r)
	if err != nil {
		return "", err
	}
	return "(" + sql + ")", nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders c with inline placeholders, for logs and errors only.
func String(c Condition) string {
	sql, err := c.Render(debugRenderer{})
	if err != nil {
		return fmt.Sprintf("<%s: %v>", c.Operator(), err)
	}
	return sql
}

type debugRenderer struct{}

func (debugRenderer) QuoteColumn(name string) string { return name }
func (debugRenderer) QuoteTable(name string) string  { return name }
func (debugRenderer) Bind(v any) string              { return fmt.Sprintf("%#v", v) }
func (debugRenderer) RowValues() bool                { return true }
func (debugRenderer) LikeEscape() bool               { return false }
