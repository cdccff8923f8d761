package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dbmeta/internal/errs"
)

type testRenderer struct {
	rowValues  bool
	likeEscape bool
	args       []any
}

func (r *testRenderer) QuoteColumn(name string) string { return `"` + name + `"` }
func (r *testRenderer) QuoteTable(name string) string  { return `"` + name + `"` }
func (r *testRenderer) RowValues() bool                { return r.rowValues }
func (r *testRenderer) LikeEscape() bool               { return r.likeEscape }

func (r *testRenderer) Bind(v any) string {
	r.args = append(r.args, v)
	return "?"
}

type testSubquery struct {
	table string
	arg   any
}

func (q testSubquery) RenderSQL(r Renderer) (string, error) {
	return `SELECT "id" FROM ` + r.QuoteTable(q.table) + ` WHERE "x" = ` + r.Bind(q.arg), nil
}

func render(t *testing.T, c Condition, rowValues bool) (string, []any) {
	t.Helper()
	r := &testRenderer{rowValues: rowValues}
	sql, err := c.Render(r)
	require.NoError(t, err)
	return sql, r.args
}

func TestIn_EmptyValues(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want string
	}{
		{"IN", NewIn("id"), "0=1"},
		{"NOT IN", NewNotIn("id"), "1=1"},
		{"composite IN", NewCompositeIn([]string{"a", "b"}, "IN"), "0=1"},
		{"composite NOT IN", NewCompositeIn([]string{"a", "b"}, "not  in"), "1=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := render(t, tt.cond, true)
			assert.Equal(t, tt.want, sql)
			assert.Empty(t, args)
		})
	}

	c, err := FromArray([]any{"not in", "id", []int{}})
	require.NoError(t, err)
	sql, _ := render(t, c, false)
	assert.Equal(t, True, sql)
}

func TestIn_SingleColumn(t *testing.T) {
	tests := []struct {
		name     string
		cond     Condition
		wantSQL  string
		wantArgs []any
	}{
		{"many", NewIn("id", 1, 2, 3), `"id" IN (?, ?, ?)`, []any{1, 2, 3}},
		{"one", NewIn("id", 1), `"id" = ?`, []any{1}},
		{"not one", NewNotIn("id", 1), `"id" <> ?`, []any{1}},
		{"not many", NewNotIn("id", 1, 2), `"id" NOT IN (?, ?)`, []any{1, 2}},
		{"only null", NewIn("id", nil), `"id" IS NULL`, nil},
		{"not only null", NewNotIn("id", nil), `"id" IS NOT NULL`, nil},
		{"with null", NewIn("id", 1, nil, 2), `("id" IN (?, ?) OR "id" IS NULL)`, []any{1, 2}},
		{"not with null", NewNotIn("id", 1, nil), `"id" <> ? AND "id" IS NOT NULL`, []any{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := render(t, tt.cond, true)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestIn_Composite(t *testing.T) {
	c := NewCompositeIn([]string{"a", "b"}, "IN", []any{1, "x"}, map[string]any{"b": "y", "a": 2})

	sql, args := render(t, c, true)
	assert.Equal(t, `("a", "b") IN ((?, ?), (?, ?))`, sql)
	assert.Equal(t, []any{1, "x", 2, "y"}, args)

	sql, args = render(t, c, false)
	assert.Equal(t, `(("a" = ? AND "b" = ?) OR ("a" = ? AND "b" = ?))`, sql)
	assert.Equal(t, []any{1, "x", 2, "y"}, args)

	not := NewCompositeIn([]string{"a", "b"}, "NOT IN", []any{1, nil})
	sql, args = render(t, not, false)
	assert.Equal(t, `NOT (("a" = ? AND "b" IS NULL))`, sql)
	assert.Equal(t, []any{1}, args)
}

func TestIn_CompositeRowMismatch(t *testing.T) {
	c := NewCompositeIn([]string{"a", "b"}, "IN", []any{1})
	_, err := c.Render(&testRenderer{rowValues: true})
	assert.True(t, errs.IsInvalidInput(err))

	c = NewCompositeIn([]string{"a", "b"}, "IN", 1)
	_, err = c.Render(&testRenderer{})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestIn_Subquery(t *testing.T) {
	c := NewInQuery([]string{"user_id"}, "IN", testSubquery{table: "admins", arg: true})
	sql, args := render(t, c, true)
	assert.Equal(t, `"user_id" IN (SELECT "id" FROM "admins" WHERE "x" = ?)`, sql)
	assert.Equal(t, []any{true}, args)
}

func TestNewInFromOperands(t *testing.T) {
	c, err := NewInFromOperands("in", []any{"status", []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "IN", c.Operator())
	assert.Equal(t, "status", c.Column())
	assert.Equal(t, []any{"a", "b"}, c.Values())

	c, err = NewInFromOperands("IN", []any{[]string{"a", "b"}, []any{[]any{1, 2}}})
	require.NoError(t, err)
	assert.Equal(t, "", c.Column())
	assert.Equal(t, []string{"a", "b"}, c.Columns())

	c, err = NewInFromOperands("IN", []any{"id", 5})
	require.NoError(t, err)
	assert.Equal(t, []any{5}, c.Values())

	c, err = NewInFromOperands("IN", []any{"id", testSubquery{table: "t"}})
	require.NoError(t, err)
	assert.NotNil(t, c.Query())
	assert.Nil(t, c.Values())
}

func TestNewInFromOperands_TooFewOperands(t *testing.T) {
	for _, operands := range [][]any{nil, {}, {"id"}} {
		_, err := NewInFromOperands("NOT IN", operands)
		require.Error(t, err)
		assert.True(t, errs.IsInvalidInput(err))
		assert.Contains(t, err.Error(), `"NOT IN"`)
	}

	_, err := FromArray([]any{"IN", "id"})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestIn_Immutable(t *testing.T) {
	values := []any{1, 2}
	c := NewIn("id", values...)
	values[0] = 99

	got := c.Values()
	got[1] = 42

	assert.Equal(t, []any{1, 2}, c.Values())
}

func TestSimple(t *testing.T) {
	c, err := NewSimple("age", ">=", 18)
	require.NoError(t, err)
	sql, args := render(t, c, false)
	assert.Equal(t, `"age" >= ?`, sql)
	assert.Equal(t, []any{18}, args)

	sql, _ = render(t, Eq("deleted_at", nil), false)
	assert.Equal(t, `"deleted_at" IS NULL`, sql)

	c, err = NewSimple("deleted_at", "<>", nil)
	require.NoError(t, err)
	sql, _ = render(t, c, false)
	assert.Equal(t, `"deleted_at" IS NOT NULL`, sql)

	c, err = NewSimple("age", ">", nil)
	require.NoError(t, err)
	_, err = c.Render(&testRenderer{})
	assert.True(t, errs.IsInvalidInput(err))

	_, err = NewSimple("age", "; DROP", 1)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestHash(t *testing.T) {
	c := NewHash(map[string]any{
		"status": []string{"a", "b"},
		"active": true,
		"parent": nil,
		"owner":  testSubquery{table: "users", arg: 1},
	})
	sql, args := render(t, c, false)
	assert.Equal(t,
		`"active" = ? AND "owner" IN (SELECT "id" FROM "users" WHERE "x" = ?) AND "parent" IS NULL AND "status" IN (?, ?)`,
		sql)
	assert.Equal(t, []any{true, 1, "a", "b"}, args)

	sql, _ = render(t, NewHash(nil), false)
	assert.Empty(t, sql)
}

func TestBetween(t *testing.T) {
	c, err := FromArray([]any{"not between", "age", 18, 65})
	require.NoError(t, err)
	sql, args := render(t, c, false)
	assert.Equal(t, `"age" NOT BETWEEN ? AND ?`, sql)
	assert.Equal(t, []any{18, 65}, args)

	_, err = FromArray([]any{"BETWEEN", "age", 18})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestLike(t *testing.T) {
	tests := []struct {
		name     string
		arr      []any
		wantSQL  string
		wantArgs []any
	}{
		{"single", []any{"like", "name", "jo"}, `"name" LIKE ?`, []any{"%jo%"}},
		{"escaped", []any{"LIKE", "name", "50%_off"}, `"name" LIKE ?`, []any{`%50\%\_off%`}},
		{"and", []any{"NOT LIKE", "name", []string{"a", "b"}}, `("name" NOT LIKE ? AND "name" NOT LIKE ?)`, []any{"%a%", "%b%"}},
		{"or", []any{"or like", "name", []any{"a", "b"}}, `("name" LIKE ? OR "name" LIKE ?)`, []any{"%a%", "%b%"}},
		{"empty", []any{"LIKE", "name", []string{}}, "0=1", nil},
		{"empty negated", []any{"NOT LIKE", "name", []string{}}, "1=1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := FromArray(tt.arr)
			require.NoError(t, err)
			sql, args := render(t, c, false)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}

	sql, args := render(t, NewRawLike("name", "LIKE", "a_c%"), false)
	assert.Equal(t, `"name" LIKE ?`, sql)
	assert.Equal(t, []any{"a_c%"}, args)
}

func TestLike_EscapeClause(t *testing.T) {
	r := &testRenderer{likeEscape: true}
	sql, err := NewLike("sku", "or not like", "a_b", "c").Render(r)
	require.NoError(t, err)
	assert.Equal(t, `("sku" NOT LIKE ? ESCAPE '\' OR "sku" NOT LIKE ? ESCAPE '\')`, sql)
	assert.Equal(t, []any{`%a\_b%`, "%c%"}, r.args)

	r = &testRenderer{likeEscape: true}
	sql, err = NewRawLike("sku", "LIKE", "a_%").Render(r)
	require.NoError(t, err)
	assert.Equal(t, `"sku" LIKE ?`, sql)
}

func TestFromArray_BuiltinOperators(t *testing.T) {
	for _, op := range []string{"AND", "OR", "NOT", "IN", "NOT IN", "BETWEEN", "LIKE", "OR NOT LIKE", "EXISTS", "=", "<>", ">="} {
		assert.Contains(t, builders, op)
	}

	c, err := FromArray([]any{"or", []any{"and", []any{"=", "a", 1}, []any{"in", "b", []int{2, 3}}}, []any{"like", "c", "x"}})
	require.NoError(t, err)
	sql, args := render(t, c, true)
	assert.Equal(t, `(("a" = ?) AND ("b" IN (?, ?))) OR ("c" LIKE ?)`, sql)
	assert.Equal(t, []any{1, 2, 3, "%x%"}, args)
}

func TestConjunctionAndNot(t *testing.T) {
	c, err := FromArray([]any{"and",
		[]any{"=", "a", 1},
		map[string]any{"b": 2},
		[]any{"or", []any{"in", "c", []int{}}, Eq("d", 3)},
		And(),
	})
	require.NoError(t, err)

	sql, args := render(t, c, false)
	assert.Equal(t, `("a" = ?) AND ("b" = ?) AND ((0=1) OR ("d" = ?))`, sql)
	assert.Equal(t, []any{1, 2, 3}, args)

	sql, _ = render(t, Or(Eq("a", 1)), false)
	assert.Equal(t, `"a" = ?`, sql)

	sql, _ = render(t, And(), false)
	assert.Empty(t, sql)

	not, err := FromArray([]any{"NOT", []any{"in", "id", []any{1, 2}}})
	require.NoError(t, err)
	sql, _ = render(t, not, false)
	assert.Equal(t, `NOT ("id" IN (?, ?))`, sql)

	sql, _ = render(t, NewNot(And()), false)
	assert.Empty(t, sql)

	_, err = FromArray([]any{"NOT"})
	assert.True(t, errs.IsInvalidInput(err))
	_, err = FromArray([]any{"AND", 42})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestExists(t *testing.T) {
	c, err := FromArray([]any{"not exists", testSubquery{table: "orders", arg: 7}})
	require.NoError(t, err)
	sql, args := render(t, c, false)
	assert.Equal(t, `NOT EXISTS (SELECT "id" FROM "orders" WHERE "x" = ?)`, sql)
	assert.Equal(t, []any{7}, args)

	_, err = FromArray([]any{"EXISTS", "orders"})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestFromArray_Errors(t *testing.T) {
	_, err := FromArray(nil)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = FromArray([]any{42, "a"})
	assert.True(t, errs.IsInvalidInput(err))

	_, err = FromArray([]any{"SOUNDS LIKE", "a", "b"})
	assert.True(t, errs.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "SOUNDS LIKE")
}

func TestRegister(t *testing.T) {
	Register("regexp", func(op string, operands []any) (Condition, error) {
		if len(operands) < 2 {
			return nil, operandCountError(op, 2)
		}
		return NewRawLike(operands[0].(string), "REGEXP", operands[1].(string)), nil
	})
	t.Cleanup(func() { delete(builders, "REGEXP") })

	c, err := FromArray([]any{"REGEXP", "name", "^a"})
	require.NoError(t, err)
	sql, _ := render(t, c, false)
	assert.Equal(t, `"name" REGEXP ?`, sql)
}

func TestString(t *testing.T) {
	assert.Equal(t, `id IN (1, 2)`, String(NewIn("id", 1, 2)))
}
