package stdlib_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipfs/go-ipld-lambda/dsl"
	"github.com/ipfs/go-ipld-lambda/internal/test"
	"github.com/ipfs/go-ipld-lambda/lambda"
	"github.com/ipfs/go-ipld-lambda/predicate"
	"github.com/ipfs/go-ipld-lambda/stdlib"
	"github.com/ipfs/go-ipld-lambda/term"
)

func call(t *testing.T, name string, args ...any) (any, error) {
	t.Helper()
	f, err := predicate.Resolve(stdlib.Set(), name)
	require.NoError(t, err)
	return f.Call(args...)
}

func TestSetIsValid(t *testing.T) {
	require.NoError(t, predicate.Validate(stdlib.Set()))
	assert.Contains(t, predicate.Names(stdlib.Set()), "math.add")
	assert.Contains(t, predicate.Names(stdlib.Set()), "list.reduce")
}

func TestArithmetic(t *testing.T) {
	cases := []struct {
		name string
		args []any
		want any
	}{
		{"math.add", []any{1, 2}, int64(3)},
		{"math.add", []any{int64(1), 2.5}, 3.5},
		{"math.add", []any{json.Number("4"), uint8(1)}, int64(5)},
		{"math.sub", []any{1, 5}, int64(-4)},
		{"math.mul", []any{6, 7}, int64(42)},
		{"math.div", []any{7, 2}, int64(3)},
		{"math.div", []any{7.0, 2}, 3.5},
		{"math.mod", []any{7, 3}, int64(1)},
		{"math.neg", []any{3}, int64(-3)},
		{"math.neg", []any{1.5}, -1.5},
	}
	for _, c := range cases {
		got, err := call(t, c.name, c.args...)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.want, got, "%s%v", c.name, c.args)
	}
}

func TestArithmeticErrors(t *testing.T) {
	_, err := call(t, "math.div", 1, 0)
	require.ErrorIs(t, err, stdlib.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "division by zero")

	_, err = call(t, "math.add", 1, "two")
	require.ErrorIs(t, err, stdlib.ErrInvalidArgument)

	_, err = call(t, "math.add", 1)
	require.ErrorIs(t, err, stdlib.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "expected 2 arguments; got 1")
}

func TestComparison(t *testing.T) {
	cases := []struct {
		name string
		a, b any
		want bool
	}{
		{"cmp.eq", 1, int64(1), true},
		{"cmp.eq", 1, 1.0, true},
		{"cmp.eq", "a", "a", true},
		{"cmp.eq", []any{1}, []any{1}, true},
		{"cmp.eq", "a", 1, false},
		{"cmp.lt", 1, 2, true},
		{"cmp.lt", 2.5, 2, false},
		{"cmp.le", 2, 2, true},
		{"cmp.gt", "b", "a", true},
		{"cmp.ge", 1, 2, false},
	}
	for _, c := range cases {
		got, err := call(t, c.name, c.a, c.b)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s(%v, %v)", c.name, c.a, c.b)
	}

	_, err := call(t, "cmp.lt", "a", 1)
	require.ErrorIs(t, err, stdlib.ErrInvalidArgument)
}

func TestLogic(t *testing.T) {
	got, err := call(t, "logic.not", true)
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = call(t, "logic.and", true, true, false)
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = call(t, "logic.or", false, true)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = call(t, "logic.and")
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, err = call(t, "logic.or", 1)
	require.ErrorIs(t, err, stdlib.ErrInvalidArgument)
}

func TestLists(t *testing.T) {
	double := predicate.Func(func(args ...any) (any, error) { return args[0].(int) * 2, nil })
	odd := predicate.Func(func(args ...any) (any, error) { return args[0].(int)%2 == 1, nil })
	sum := predicate.Func(func(args ...any) (any, error) { return args[0].(int) + args[1].(int), nil })

	got, err := call(t, "list.map", []int{1, 2, 3}, double)
	require.NoError(t, err)
	assert.Equal(t, []any{2, 4, 6}, got)

	got, err = call(t, "list.filter", []any{1, 2, 3}, odd)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 3}, got)

	got, err = call(t, "list.filter", []any{2}, odd)
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)

	got, err = call(t, "list.reduce", []any{1, 2, 3}, sum, 10)
	require.NoError(t, err)
	assert.Equal(t, 16, got)

	got, err = call(t, "list.len", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	got, err = call(t, "list.nth", []any{"a", "b"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	_, err = call(t, "list.nth", []any{"a"}, 3)
	require.ErrorIs(t, err, stdlib.ErrInvalidArgument)

	_, err = call(t, "list.len", []byte("ab"))
	require.ErrorIs(t, err, stdlib.ErrInvalidArgument)

	_, err = call(t, "list.map", []any{1}, 2)
	require.ErrorIs(t, err, stdlib.ErrInvalidArgument)
}

func TestMapAndString(t *testing.T) {
	got, err := call(t, "map.get", map[string]any{"a": 1}, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = call(t, "map.get", map[string]int{"a": 1}, "b")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = call(t, "map.get", []any{}, "a")
	require.ErrorIs(t, err, stdlib.ErrInvalidArgument)

	got, err = call(t, "str.concat", "foo", "-", "bar")
	require.NoError(t, err)
	assert.Equal(t, "foo-bar", got)

	_, err = call(t, "str.concat", "foo", 1)
	require.ErrorIs(t, err, stdlib.ErrInvalidArgument)
}

var (
	v    = dsl.Var
	fn   = dsl.Lambda
	mul  = dsl.Require("math.mul")
	sub  = dsl.Require("math.sub")
	le   = dsl.Require("cmp.le")
	cond = dsl.Require("if")
)

func eval(t *testing.T, tm term.Term) (any, error) {
	t.Helper()
	ev, err := lambda.New(stdlib.Set())
	require.NoError(t, err)
	return ev.EvaluateTerm(context.Background(), tm)
}

func TestFactorial(t *testing.T) {
	// fix(\self. \n. if(n <= 1, \. 1, \. n * self(n - 1)))(5)
	fact := dsl.Require("fix")(fn([]string{"self"}, fn([]string{"n"},
		cond(
			le(v("n"), 1),
			fn(nil, 1),
			fn(nil, mul(v("n"), dsl.Apply(v("self"), sub(v("n"), 1)))),
		),
	)))
	got, err := eval(t, dsl.Apply(fact, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(120), got)
}

func TestIfRequiresFunctions(t *testing.T) {
	_, err := eval(t, cond(true, 1, 2))
	require.ErrorIs(t, err, stdlib.ErrInvalidArgument)
}

func TestComAndReferences(t *testing.T) {
	got, err := eval(t, dsl.Require("com")(dsl.Ref("math.neg"), 4))
	require.NoError(t, err)
	assert.Equal(t, int64(-4), got)

	got, err = eval(t, dsl.Require("list.map")(
		[]any{1, 2},
		fn([]string{"x"}, mul(v("x"), v("x"))),
	))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(4)}, got)
}

func TestWireEvaluation(t *testing.T) {
	wire := test.Wire(t, `["p","list.reduce",[["d",[1,2,3,4]],["f","math.add"],["d",0]]]`)
	ev, err := lambda.New(stdlib.Set())
	require.NoError(t, err)
	got, err := ev.Evaluate(context.Background(), wire)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got)
}
