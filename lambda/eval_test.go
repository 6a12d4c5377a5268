package lambda_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ipfs/go-ipld-lambda/dsl"
	. "github.com/ipfs/go-ipld-lambda/lambda"
	"github.com/ipfs/go-ipld-lambda/predicate"
	"github.com/ipfs/go-ipld-lambda/term"
)

var (
	v   = dsl.Var
	r   = dsl.Lambda
	app = dsl.Apply
)

func num(x any) int {
	switch x := x.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	default:
		panic(fmt.Sprintf("not a number: %#v", x))
	}
}

var (
	add = predicate.Func(func(args ...any) (any, error) { return num(args[0]) + num(args[1]), nil })
	sub = predicate.Func(func(args ...any) (any, error) { return num(args[0]) - num(args[1]), nil })
	id  = predicate.Func(func(args ...any) (any, error) { return args[0], nil })

	addOne = predicate.Func(func(args ...any) (any, error) { return num(args[0]) + 1, nil })

	com = predicate.Func(func(args ...any) (any, error) {
		return args[0].(predicate.Callable).Call(args[1])
	})

	myMap = predicate.Func(func(args ...any) (any, error) {
		list, fn := args[0].([]int), args[1].(predicate.Callable)
		out := make([]any, len(list))
		for i, e := range list {
			v, err := fn.Call(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	})

	fix = predicate.Func(func(args ...any) (any, error) {
		f := args[0].(predicate.Callable)
		var self predicate.Func
		self = func(xs ...any) (any, error) {
			g, err := f.Call(self)
			if err != nil {
				return nil, err
			}
			return g.(predicate.Callable).Call(xs...)
		}
		return self, nil
	})
)

func run(t *testing.T, set predicate.Set, tm term.Term, opts ...Option) (any, error) {
	t.Helper()
	ev, err := New(set, opts...)
	require.NoError(t, err)
	return ev.EvaluateTerm(context.Background(), tm)
}

func mustRun(t *testing.T, set predicate.Set, tm term.Term, opts ...Option) any {
	t.Helper()
	res, err := run(t, set, tm, opts...)
	require.NoError(t, err)
	return res
}

func TestBase(t *testing.T) {
	plus := dsl.Require("add")
	res := mustRun(t, predicate.Set{"add": add}, app(r([]string{"x"}, plus(1, v("x"))), 3))
	require.Equal(t, 4, res)
}

func TestLexicalCapture(t *testing.T) {
	plus := dsl.Require("add")
	set := predicate.Set{"add": add}

	// ((\x. \y. add(x, y))(10))(7)
	curried := r([]string{"x"}, r([]string{"y"}, plus(v("x"), v("y"))))
	require.Equal(t, 17, mustRun(t, set, app(app(curried, 10), 7)))

	// (\x. (\y. add(x, y))(7))(10)
	nested := r([]string{"x"}, app(r([]string{"y"}, plus(v("x"), v("y"))), 7))
	require.Equal(t, 17, mustRun(t, set, app(nested, 10)))
}

func TestShadowing(t *testing.T) {
	plus, minus := dsl.Require("add"), dsl.Require("sub")
	set := predicate.Set{"add": add, "sub": sub}

	// (x, y, z) => ((x, y) => x + y)(y, z) - x
	e := r([]string{"x", "y", "z"},
		minus(
			app(r([]string{"x", "y"}, plus(v("x"), v("y"))), v("y"), v("z")),
			v("x"),
		),
	)

	require.Equal(t, 2, mustRun(t, set, app(e, 5, 4, 3)))
	require.Equal(t, 6, mustRun(t, set, app(e, 1, 4, 3)))
}

func TestHigherOrderPredicates(t *testing.T) {
	plus := dsl.Require("add")
	set := predicate.Set{"add": add, "com": com, "myMap": myMap, "addOne": addOne}

	res := mustRun(t, set, dsl.Require("com")(r([]string{"x"}, plus(v("x"), 1)), 10))
	require.Equal(t, 11, res)

	res = mustRun(t, set, dsl.Require("myMap")([]int{1, 2, 3}, r([]string{"x"}, plus(v("x"), 1))))
	require.Equal(t, []any{2, 3, 4}, res)

	res = mustRun(t, set, dsl.Require("myMap")([]int{1, 2, 3}, dsl.Ref("addOne")))
	require.Equal(t, []any{2, 3, 4}, res)
}

func TestPredicateAsValue(t *testing.T) {
	set := predicate.Set{"addOne": addOne, "id": id}
	res := mustRun(t, set, app(dsl.Require("id")(dsl.Ref("addOne")), 2))
	require.Equal(t, 3, res)

	ref := mustRun(t, set, dsl.Ref("addOne"))
	_, ok := ref.(predicate.Callable)
	require.True(t, ok, "a predicate reference must not be invoked")
}

func TestHighOrderFunction(t *testing.T) {
	plus := dsl.Require("add")
	res := mustRun(t, predicate.Set{"add": add},
		app(app(r([]string{"x"}, r([]string{"y"}, plus(v("x"), v("y")))), 3), 4))
	require.Equal(t, 7, res)
}

func TestDottedPath(t *testing.T) {
	set := predicate.Set{"math": predicate.Set{"add": add}}
	require.Equal(t, 7, mustRun(t, set, dsl.Require("math.add")(3, 4)))
}

func TestGetFunction(t *testing.T) {
	set := predicate.Set{
		"getMath": predicate.Func(func(...any) (any, error) {
			return map[string]any{"add": add}, nil
		}),
		"get": predicate.Func(func(args ...any) (any, error) {
			return args[0].(map[string]any)[args[1].(string)], nil
		}),
	}
	res := mustRun(t, set, app(dsl.Require("get")(dsl.Require("getMath")(), "add"), 3, 4))
	require.Equal(t, 7, res)
}

func TestMetaDataIsVerbatim(t *testing.T) {
	res := mustRun(t, nil, dsl.Data(term.Encode(term.Var{Name: "x"})))
	require.Equal(t, []any{"v", "x"}, res)
}

func TestUndefinedVariable(t *testing.T) {
	plus := dsl.Require("add")
	_, err := run(t, predicate.Set{"add": add}, app(r([]string{"x"}, plus(v("y"), 1)), 10))

	var target ErrUndefinedVariable
	require.ErrorAs(t, err, &target)
	require.Equal(t, "y", target.Name)
	require.Contains(t, err.Error(), "undefined variable y")
}

func TestUnexpectedType(t *testing.T) {
	ev, err := New(predicate.Set{"add": add})
	require.NoError(t, err)

	_, err = ev.Evaluate(context.Background(), []any{"k"})
	require.ErrorAs(t, err, &term.ErrUnrecognizedTag{})
	require.Contains(t, err.Error(), "unexpected expression type k")
}

func TestMissingPredicate(t *testing.T) {
	_, err := run(t, predicate.Set{}, dsl.Require("add")(2, 3))

	var target predicate.ErrMissingPredicate
	require.ErrorAs(t, err, &target)
	require.Equal(t, "add", target.Name)
	require.Contains(t, err.Error(), "missing predicate add")

	_, err = run(t, predicate.Set{"myMap": myMap}, dsl.Require("myMap")([]int{1, 2, 3}, dsl.Ref("addOne")))
	require.ErrorAs(t, err, &target)
	require.Equal(t, "addOne", target.Name)
}

func TestNotCallable(t *testing.T) {
	ev, err := New(predicate.Set{})
	require.NoError(t, err)

	_, err = ev.Evaluate(context.Background(), []any{"a", []any{"d", 3}, []any{[]any{"d", 1}}})
	var target ErrNotCallable
	require.ErrorAs(t, err, &target)
	require.Equal(t, 3, target.Value)
	require.Equal(t, term.Data{Value: 3}, target.Term)
	require.Contains(t, err.Error(), "expected function")
}

func TestEvaluationOrder(t *testing.T) {
	var logged []any
	set := predicate.Set{
		"log": predicate.Func(func(args ...any) (any, error) {
			logged = append(logged, args[0])
			return args[0], nil
		}),
		"f": predicate.Func(func(args ...any) (any, error) { return nil, nil }),
		"pick": predicate.Func(func(args ...any) (any, error) {
			return predicate.Func(func(...any) (any, error) { return "picked", nil }), nil
		}),
	}
	log := dsl.Require("log")

	_, err := run(t, set, dsl.Require("f")(log(1), log(2)))
	require.NoError(t, err)
	require.Equal(t, []any{1, 2}, logged)

	// function position first, then the arguments left to right
	logged = nil
	res, err := run(t, set, app(dsl.Require("pick")(log(0)), log(1), log(2), log(3)))
	require.NoError(t, err)
	require.Equal(t, "picked", res)
	require.Equal(t, []any{0, 1, 2, 3}, logged)

	// arguments are evaluated before the predicate is resolved
	logged = nil
	_, err = run(t, set, dsl.Require("nope")(log(1)))
	require.ErrorAs(t, err, &predicate.ErrMissingPredicate{})
	require.Equal(t, []any{1}, logged)

	// an error stops the argument list
	logged = nil
	_, err = run(t, set, dsl.Require("f")(log(1), v("unbound"), log(2)))
	require.ErrorAs(t, err, &ErrUndefinedVariable{})
	require.Equal(t, []any{1}, logged)
}

func TestPositionalBinding(t *testing.T) {
	set := predicate.Set{}

	// missing arguments leave their parameters unbound
	require.Equal(t, 1, mustRun(t, set, app(r([]string{"x", "y"}, v("x")), 1)))
	_, err := run(t, set, app(r([]string{"x", "y"}, v("y")), 1))
	require.ErrorAs(t, err, &ErrUndefinedVariable{Name: "y"})

	// extra arguments are ignored
	require.Equal(t, 1, mustRun(t, set, app(r([]string{"x"}, v("x")), 1, 2)))

	// the later position wins
	require.Equal(t, 2, mustRun(t, set, app(r([]string{"x", "x"}, v("x")), 1, 2)))
	require.Equal(t, 1, mustRun(t, set, app(r([]string{"x", "x"}, v("x")), 1)))

	// an unbound parameter does not hide an outer binding
	outer := r([]string{"y"}, app(r([]string{"x", "y"}, v("y")), 1))
	require.Equal(t, 5, mustRun(t, set, app(outer, 5)))
}

func TestClosureReuse(t *testing.T) {
	plus := dsl.Require("add")
	set := predicate.Set{
		"add": add,
		"twice": predicate.Func(func(args ...any) (any, error) {
			f := args[0].(predicate.Callable)
			a, err := f.Call(1)
			if err != nil {
				return nil, err
			}
			b, err := f.Call(2)
			if err != nil {
				return nil, err
			}
			return []any{a, b}, nil
		}),
	}
	// (\k. twice(\x. add(x, k)))(10)
	tm := app(r([]string{"k"}, dsl.Require("twice")(r([]string{"x"}, plus(v("x"), v("k"))))), 10)
	require.Equal(t, []any{11, 12}, mustRun(t, set, tm))
}

func TestClosureAsResult(t *testing.T) {
	plus := dsl.Require("add")
	res := mustRun(t, predicate.Set{"add": add}, app(r([]string{"x"}, r([]string{"y"}, plus(v("x"), v("y")))), 10))

	c, ok := res.(*Closure)
	require.True(t, ok)
	require.Equal(t, `(\y. add(x, y))`, c.String())

	// still sees x = 10 after the evaluation returned
	out, err := c.Call(5)
	require.NoError(t, err)
	require.Equal(t, 15, out)
}

func TestRecursionThroughFix(t *testing.T) {
	set := predicate.Set{
		"fix": fix,
		"sub": sub,
		"mul": predicate.Func(func(args ...any) (any, error) { return num(args[0]) * num(args[1]), nil }),
		"if": predicate.Func(func(args ...any) (any, error) {
			if args[0].(bool) {
				return args[1].(predicate.Callable).Call()
			}
			return args[2].(predicate.Callable).Call()
		}),
		"zero": predicate.Func(func(args ...any) (any, error) { return num(args[0]) == 0, nil }),
	}
	p := dsl.Require
	// fix(\self. \n. if(zero(n), \. 1, \. mul(n, self(sub(n, 1)))))
	fact := p("fix")(r([]string{"self"}, r([]string{"n"},
		p("if")(
			p("zero")(v("n")),
			r(nil, 1),
			r(nil, p("mul")(v("n"), app(v("self"), p("sub")(v("n"), 1)))),
		),
	)))
	require.Equal(t, 120, mustRun(t, set, app(fact, 5)))
}

func TestDepthLimit(t *testing.T) {
	set := predicate.Set{"fix": fix}
	// fix(\self. \x. self(x))(1) never returns
	loop := app(dsl.Require("fix")(r([]string{"self"}, r([]string{"x"}, app(v("self"), v("x"))))), 1)

	_, err := run(t, set, loop, WithDepthLimit(64))
	require.ErrorIs(t, err, ErrDepthLimitReached)

	// nesting alone is bounded too
	deep := term.Term(term.Data{Value: 1})
	for i := 0; i < 10; i++ {
		deep = app(r([]string{"x"}, deep), 0)
	}
	_, err = run(t, set, deep, WithDepthLimit(5))
	require.ErrorIs(t, err, ErrDepthLimitReached)
	require.Equal(t, 1, mustRun(t, set, deep, WithDepthLimit(0)))
	require.Equal(t, 1, mustRun(t, set, deep))
}

// overlapSet holds "each", which runs its closure argument twice, and "hold",
// which the closure body calls. With parallel set, the second run happens
// while the first is blocked inside "hold".
func overlapSet(parallel bool) predicate.Set {
	entered := make(chan struct{})
	release := make(chan struct{})
	hold := predicate.Func(func(args ...any) (any, error) {
		if parallel && num(args[0]) == 1 {
			close(entered)
			<-release
		}
		return args[0], nil
	})
	each := predicate.Func(func(args ...any) (any, error) {
		c := args[0].(predicate.Callable)
		if !parallel {
			if _, err := c.Call(1); err != nil {
				return nil, err
			}
			return c.Call(2)
		}

		errc := make(chan error, 1)
		go func() {
			_, err := c.Call(1)
			errc <- err
		}()
		<-entered
		v, err := c.Call(2)
		close(release)
		if ferr := <-errc; ferr != nil {
			return nil, ferr
		}
		return v, err
	})
	return predicate.Set{"each": each, "hold": hold}
}

func TestDepthLimitCountsActiveFrames(t *testing.T) {
	p := dsl.Require
	// each(\x. hold(x)) is three frames deep: each, hold and x
	t3 := p("each")(r([]string{"x"}, p("hold")(v("x"))))

	require.Equal(t, 2, mustRun(t, overlapSet(false), t3, WithDepthLimit(3)))

	// the first run keeps two frames while the second needs three
	_, err := run(t, overlapSet(true), t3, WithDepthLimit(3))
	require.ErrorIs(t, err, ErrDepthLimitReached)
	require.Equal(t, 2, mustRun(t, overlapSet(true), t3, WithDepthLimit(4)))
}

func TestDepthLimitSequentialCallsDoNotAccumulate(t *testing.T) {
	p := dsl.Require
	list := make([]int, 100)
	for i := range list {
		list[i] = i
	}
	set := predicate.Set{"map": myMap, "addOne": addOne}
	res := mustRun(t, set, p("map")(list, r([]string{"x"}, p("addOne")(v("x")))), WithDepthLimit(3))
	require.Len(t, res, 100)
}

func TestCancelledContext(t *testing.T) {
	ev, err := New(predicate.Set{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ev.EvaluateTerm(ctx, dsl.Data(1))
	require.ErrorIs(t, err, context.Canceled)
}

func TestHostErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	set := predicate.Set{"fail": predicate.Func(func(...any) (any, error) { return nil, boom })}
	_, err := run(t, set, dsl.Require("fail")())
	require.ErrorIs(t, err, boom)
}

func TestMakeEvaluator(t *testing.T) {
	const code = `["a", ["l", ["x"], ["p", "add", [["d", 1], ["v", "x"]]]], [["d", 3]]]`
	var wire any
	require.NoError(t, json.Unmarshal([]byte(code), &wire))

	eval := MakeEvaluator(predicate.Set{"add": add})
	res, err := eval(wire)
	require.NoError(t, err)
	require.Equal(t, 4, res)

	// stateless across calls
	res, err = eval(wire)
	require.NoError(t, err)
	require.Equal(t, 4, res)
}

func TestConcurrentEvaluations(t *testing.T) {
	plus := dsl.Require("math.add")
	ev, err := New(predicate.Set{"math": predicate.Set{"add": add}}, WithResolveCache(16))
	require.NoError(t, err)

	curried := r([]string{"x"}, r([]string{"y"}, plus(v("x"), v("y"))))
	var g errgroup.Group
	results := make([]any, 32)
	for i := range results {
		i := i
		g.Go(func() error {
			res, err := ev.EvaluateTerm(context.Background(), app(app(curried, i), 7))
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())
	for i, res := range results {
		require.Equal(t, i+7, res)
	}
}
